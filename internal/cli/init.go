// Package cli provides common CLI initialization utilities shared by
// cmd/walletwatcher, cmd/wallet-worker and cmd/sheets-auth.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"walletwatcher/internal/aggregate"
	"walletwatcher/internal/amqp"
	"walletwatcher/internal/config"
	"walletwatcher/internal/log"
	"walletwatcher/internal/markers"
	"walletwatcher/internal/services"
	"walletwatcher/internal/storage"
)

// SetupLogger builds the process logger at the given level and installs it as the slog default.
func SetupLogger(level string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitStore opens the wallet database, applying migrations.
// Returns the store or exits the process on failure.
func InitStore(ctx context.Context, logger *log.Logger, dbPath string) *storage.Store {
	store, err := storage.Open(ctx, dbPath)
	if err != nil {
		logger.Error("Failed to open wallet database", log.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	if v, err := store.SchemaVersion(ctx); err == nil {
		logger.Info("Wallet database ready", "path", dbPath, "schema_version", v)
	}
	return store
}

// InitMarkers opens the scheduler marker file or exits the process.
func InitMarkers(logger *log.Logger, path string) *markers.FileStore {
	m, err := markers.NewFileStore(path)
	if err != nil {
		logger.Error("Failed to open markers file", log.FieldError, err, "path", path)
		os.Exit(1)
	}
	return m
}

// Calendar builds the week/month/year calendar from validated config.
func Calendar(cfg *config.Config) aggregate.Calendar {
	weekStart, _ := cfg.FirstWeekday()
	loc, _ := cfg.Location()
	return aggregate.Calendar{WeekStart: weekStart, Location: loc}
}

// InitPublisher connects to the broker when AMQP_URL is set. Without a
// broker, or when the connection fails, events are dropped and the wallet
// keeps working. The returned close func is always safe to call.
func InitPublisher(logger *log.Logger, cfg *config.Config) (services.EventPublisher, func()) {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled - wallet events will not be published")
		return services.NoopPublisher{}, func() {}
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		return services.NoopPublisher{}, func() {}
	}
	logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client, func() { _ = client.Close() }
}

// RunEvery calls fn immediately and then on every tick until ctx ends.
func RunEvery(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	fn(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String(), log.FieldOperation, log.OpShutdown)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached", log.FieldOperation, log.OpShutdown)
		} else {
			logger.Info("Shutdown complete", log.FieldOperation, log.OpShutdown)
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
