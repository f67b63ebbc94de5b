package local

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

// RedisProvider stores device slots as Redis strings under
// "<prefix>:<device>:<slot>".
type RedisProvider struct {
	client *redis.Client
	prefix string
	logger zerolog.Logger
}

// NewRedisProvider connects to redisURL and verifies the connection.
func NewRedisProvider(ctx context.Context, redisURL, prefix string, logger zerolog.Logger) (*RedisProvider, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return NewRedisProviderFromClient(client, prefix, logger), nil
}

// NewRedisProviderFromClient wraps an existing client.
func NewRedisProviderFromClient(client *redis.Client, prefix string, logger zerolog.Logger) *RedisProvider {
	return &RedisProvider{
		client: client,
		prefix: prefix,
		logger: logger.With().Str("component", "local-redis-store").Logger(),
	}
}

// ForDevice returns the store for deviceID.
func (p *RedisProvider) ForDevice(deviceID string) (Store, error) {
	if err := ValidateDeviceID(deviceID); err != nil {
		return nil, err
	}
	return &redisStore{
		client:    p.client,
		keyPrefix: p.prefix + ":" + deviceID + ":",
		logger:    p.logger.With().Str("device_id", deviceID).Logger(),
	}, nil
}

// Close closes the underlying client.
func (p *RedisProvider) Close() error {
	return p.client.Close()
}

type redisStore struct {
	client    *redis.Client
	keyPrefix string
	logger    zerolog.Logger
}

func (s *redisStore) Get(ctx context.Context, slot string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.keyPrefix+slot).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		s.logger.Error().Err(err).Str("slot", slot).Msg("failed to read slot")
		return nil, fmt.Errorf("failed to read slot %s: %w", slot, err)
	}
	return data, nil
}

func (s *redisStore) Set(ctx context.Context, slot string, data []byte) error {
	if err := s.client.Set(ctx, s.keyPrefix+slot, data, 0).Err(); err != nil {
		s.logger.Error().Err(err).Str("slot", slot).Msg("failed to write slot")
		return fmt.Errorf("failed to write slot %s: %w", slot, err)
	}
	return nil
}

func (s *redisStore) Remove(ctx context.Context, slot string) error {
	if err := s.client.Del(ctx, s.keyPrefix+slot).Err(); err != nil {
		return fmt.Errorf("failed to remove slot %s: %w", slot, err)
	}
	return nil
}
