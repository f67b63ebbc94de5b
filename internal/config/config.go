package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Remote backends.
const (
	RemotePostgres = "postgres"
	RemoteMongo    = "mongo"
	RemoteS3       = "s3"
	RemoteMemory   = "memory"
)

// Local backends.
const (
	LocalFile   = "file"
	LocalRedis  = "redis"
	LocalMemory = "memory"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Remote   RemoteConfig
	Mongo    MongoConfig
	S3       S3Config
	Local    LocalConfig
	Redis    RedisConfig
	Session  SessionConfig
	Order    OrderConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	JWTSecret string
}

// RemoteConfig selects the durable per-user document store.
type RemoteConfig struct {
	Backend string // postgres, mongo, s3 or memory
}

// MongoConfig holds MongoDB configuration.
type MongoConfig struct {
	URI      string
	Database string
}

// S3Config holds AWS S3 configuration for the document store.
type S3Config struct {
	Bucket string
	Region string
	Prefix string // Key prefix within bucket (e.g., "storefront/")
}

// LocalConfig selects the device-scoped store.
type LocalConfig struct {
	Backend string // file, redis or memory
	Dir     string
}

// RedisConfig holds Redis configuration for the device-scoped store.
type RedisConfig struct {
	URL    string
	Prefix string
}

// SessionConfig controls eviction of idle device sessions.
type SessionConfig struct {
	IdleTimeout   int // seconds
	SweepInterval int // seconds
}

// OrderConfig holds order confirmation settings.
type OrderConfig struct {
	OfflinePrefix        string
	ConfirmationRedirect string
	Placeholder          PlaceholderConfig
}

// PlaceholderConfig holds the customer, address and payment shown for an
// order that cannot be found.
type PlaceholderConfig struct {
	FirstName     string
	LastName      string
	Email         string
	Phone         string
	Address       string
	City          string
	State         string
	PostalCode    string
	PaymentMethod string
}

// Load loads configuration from environment variables. Values from a .env
// file in the working directory are applied first without overriding the
// environment.
func Load() (*Config, error) {
	if err := godotenv.Load(getEnv("ENV_FILE", ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "storefront"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 5),
			MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", ""),
		},
		Remote: RemoteConfig{
			Backend: getEnv("REMOTE_BACKEND", RemotePostgres),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", ""),
			Database: getEnv("MONGO_DATABASE", "storefront"),
		},
		S3: S3Config{
			Bucket: getEnv("S3_BUCKET", ""),
			Region: getEnv("S3_REGION", "us-east-1"),
			Prefix: getEnv("S3_PREFIX", "storefront/"),
		},
		Local: LocalConfig{
			Backend: getEnv("LOCAL_BACKEND", LocalFile),
			Dir:     getEnv("LOCAL_DIR", "data/devices"),
		},
		Redis: RedisConfig{
			URL:    getEnv("REDIS_URL", ""),
			Prefix: getEnv("REDIS_PREFIX", "storefront"),
		},
		Session: SessionConfig{
			IdleTimeout:   getEnvAsInt("SESSION_IDLE_TIMEOUT", 1800),
			SweepInterval: getEnvAsInt("SESSION_SWEEP_INTERVAL", 60),
		},
		Order: OrderConfig{
			OfflinePrefix:        getEnv("OFFLINE_ORDER_PREFIX", "OFFLINE-"),
			ConfirmationRedirect: getEnv("CONFIRMATION_REDIRECT", "/"),
			Placeholder: PlaceholderConfig{
				FirstName:     getEnv("ORDER_PLACEHOLDER_FIRST_NAME", "Valued"),
				LastName:      getEnv("ORDER_PLACEHOLDER_LAST_NAME", "Customer"),
				Email:         getEnv("ORDER_PLACEHOLDER_EMAIL", "customer@example.com"),
				Phone:         getEnv("ORDER_PLACEHOLDER_PHONE", "1234567890"),
				Address:       getEnv("ORDER_PLACEHOLDER_ADDRESS", "123 Main St"),
				City:          getEnv("ORDER_PLACEHOLDER_CITY", "Mumbai"),
				State:         getEnv("ORDER_PLACEHOLDER_STATE", "Maharashtra"),
				PostalCode:    getEnv("ORDER_PLACEHOLDER_POSTAL_CODE", "400001"),
				PaymentMethod: getEnv("ORDER_PLACEHOLDER_PAYMENT_METHOD", "cashfree"),
			},
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	switch c.Remote.Backend {
	case RemotePostgres:
		if err := c.Database.validate(); err != nil {
			return err
		}
	case RemoteMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("mongo URI is required when the remote backend is mongo")
		}
		if c.Mongo.Database == "" {
			return fmt.Errorf("mongo database is required when the remote backend is mongo")
		}
	case RemoteS3:
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when the remote backend is s3")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required when the remote backend is s3")
		}
	case RemoteMemory:
	default:
		return fmt.Errorf("invalid remote backend: %s (must be postgres, mongo, s3, or memory)", c.Remote.Backend)
	}

	switch c.Local.Backend {
	case LocalFile:
		if c.Local.Dir == "" {
			return fmt.Errorf("local directory is required when the local backend is file")
		}
	case LocalRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("redis URL is required when the local backend is redis")
		}
	case LocalMemory:
	default:
		return fmt.Errorf("invalid local backend: %s (must be file, redis, or memory)", c.Local.Backend)
	}

	if c.Session.IdleTimeout < 1 {
		return fmt.Errorf("session idle timeout must be at least 1 second")
	}

	if c.Session.SweepInterval < 1 {
		return fmt.Errorf("session sweep interval must be at least 1 second")
	}

	if c.Order.ConfirmationRedirect == "" {
		return fmt.Errorf("confirmation redirect is required")
	}

	return nil
}

func (c *DatabaseConfig) validate() error {
	if c.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Port)
	}

	if c.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.MinConnections > c.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IdleTimeoutDuration returns the idle timeout as a duration.
func (c *SessionConfig) IdleTimeoutDuration() time.Duration {
	return time.Duration(c.IdleTimeout) * time.Second
}

// SweepIntervalDuration returns the sweep interval as a duration.
func (c *SessionConfig) SweepIntervalDuration() time.Duration {
	return time.Duration(c.SweepInterval) * time.Second
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
