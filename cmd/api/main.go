package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handler"
	"storefront/internal/identity"
	"storefront/internal/order"
	"storefront/internal/router"
	"storefront/internal/session"
	"storefront/internal/storage/local"
	"storefront/internal/storage/remote"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting storefront API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	remoteStore, closeRemote, err := openRemote(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRemote()

	provider, closeLocal, err := openLocal(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLocal()

	// Initialize session manager and evict idle devices in the background
	sessions := session.NewManager(provider, remoteStore, logger)
	go sessions.Run(ctx, cfg.Session.SweepIntervalDuration(), cfg.Session.IdleTimeoutDuration())

	resolver := order.NewResolver(remoteStore, logger,
		order.WithOfflinePrefix(cfg.Order.OfflinePrefix),
		order.WithDefaults(placeholderDefaults(cfg.Order.Placeholder)),
	)
	verifier := identity.NewVerifier(cfg.Auth.JWTSecret, logger)

	// Initialize HTTP handlers
	cartHandler := handler.NewCartHandler(sessions, logger)
	wishlistHandler := handler.NewWishlistHandler(sessions, logger)
	orderHandler := handler.NewOrderHandler(sessions, resolver, cfg.Order.ConfirmationRedirect, logger)

	// Initialize router
	mux := router.New(cartHandler, wishlistHandler, orderHandler, verifier, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Str("remote_backend", cfg.Remote.Backend).
			Str("local_backend", cfg.Local.Backend).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		// Retry writes that failed while the devices were active
		cancel()
		sessions.Close(shutdownCtx)

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// placeholderDefaults maps the configured placeholder order values.
func placeholderDefaults(cfg config.PlaceholderConfig) order.Defaults {
	return order.Defaults{
		FirstName:     cfg.FirstName,
		LastName:      cfg.LastName,
		Email:         cfg.Email,
		Phone:         cfg.Phone,
		Address:       cfg.Address,
		City:          cfg.City,
		State:         cfg.State,
		PostalCode:    cfg.PostalCode,
		PaymentMethod: cfg.PaymentMethod,
	}
}

// openRemote connects the configured per-user document store.
func openRemote(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (remote.Store, func(), error) {
	switch cfg.Remote.Backend {
	case config.RemotePostgres:
		pool, err := database.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		store := remote.NewPostgresStore(pool, logger)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil

	case config.RemoteMongo:
		client, err := remote.ConnectMongo(ctx, cfg.Mongo.URI)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := client.Disconnect(context.Background()); err != nil {
				logger.Error().Err(err).Msg("failed to disconnect mongo client")
			}
		}
		return remote.NewMongoStore(client.Database(cfg.Mongo.Database), logger), closeFn, nil

	case config.RemoteS3:
		client, err := remote.NewS3Client(ctx, cfg.S3.Region)
		if err != nil {
			return nil, nil, err
		}
		return remote.NewS3Store(client, cfg.S3.Bucket, cfg.S3.Prefix, logger), func() {}, nil

	case config.RemoteMemory:
		logger.Warn().Msg("using in-memory remote store, user collections will not survive a restart")
		return remote.NewMemoryStore(), func() {}, nil
	}

	return nil, nil, fmt.Errorf("unknown remote backend %q", cfg.Remote.Backend)
}

// openLocal creates the configured device-scoped store provider.
func openLocal(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (local.Provider, func(), error) {
	switch cfg.Local.Backend {
	case config.LocalFile:
		provider, err := local.NewFileProvider(cfg.Local.Dir, logger)
		if err != nil {
			return nil, nil, err
		}
		return provider, func() {}, nil

	case config.LocalRedis:
		provider, err := local.NewRedisProvider(ctx, cfg.Redis.URL, cfg.Redis.Prefix, logger)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := provider.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to close redis client")
			}
		}
		return provider, closeFn, nil

	case config.LocalMemory:
		return local.NewMemoryProvider(), func() {}, nil
	}

	return nil, nil, fmt.Errorf("unknown local backend %q", cfg.Local.Backend)
}
