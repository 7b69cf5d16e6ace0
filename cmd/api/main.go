package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/chatpush/relay/internal/api"
	"github.com/chatpush/relay/internal/config"
	"github.com/chatpush/relay/internal/domain"
	"github.com/chatpush/relay/internal/push"
	"github.com/chatpush/relay/internal/repository"
	"github.com/chatpush/relay/internal/stream"
)

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	// Initialize logger
	logger, err := initLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Starting push relay",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
	)

	if cfg.Stream.Secret == "" {
		logger.Fatal("STREAM_SECRET is required to authenticate webhooks and sign tokens")
	}
	if cfg.WebPush.PublicKey == "" || cfg.WebPush.PrivateKey == "" {
		logger.Warn("VAPID keys are not configured - push deliveries will fail until they are set")
	}

	ctx := context.Background()

	// Initialize the profile store
	var store domain.ProfileStore
	if cfg.Database.URL != "" {
		db, err := initDatabase(ctx, cfg.Database.URL)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		pgStore := repository.NewPostgresStore(db)
		if err := pgStore.InitSchema(ctx); err != nil {
			logger.Fatal("Failed to initialize schema", zap.Error(err))
		}
		store = pgStore

		logger.Info("Connected to database")
	} else {
		store = repository.NewMemoryStore()
		logger.Warn("DATABASE_URL not set - using in-memory profile store, subscriptions will not survive restarts")
	}

	// Initialize clients with process-wide lifetime
	streamClient := stream.NewClient(cfg.Stream.Key, cfg.Stream.Secret)
	pushClient := push.NewClient(cfg.WebPush.Subject, cfg.WebPush.PublicKey, cfg.WebPush.PrivateKey)

	// Initialize services
	resolver := domain.NewResolver(store)
	deliverer := domain.NewDeliverer(store, pushClient, logger)
	registrar := domain.NewRegistrar(store)

	// Initialize handlers
	webhookHandler := api.NewWebhookHandler(streamClient, resolver, deliverer, logger)
	subscriptionHandler := api.NewSubscriptionHandler(registrar, logger)
	tokenHandler := api.NewTokenHandler(streamClient, logger)
	healthHandler := api.NewHealthHandler()

	// Initialize router
	router := api.NewRouter(webhookHandler, subscriptionHandler, tokenHandler, healthHandler, logger)
	r := router.Setup()

	// Start cleanup worker
	cleanupCtx, cleanupCancel := context.WithCancel(ctx)
	repository.StartCleanupWorker(cleanupCtx, store, logger, cfg.Cleanup.Interval, cfg.Cleanup.SubscriptionTTL)

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Cancel cleanup worker
	cleanupCancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	logger.Info("Server stopped")
}

func initLogger() (*zap.Logger, error) {
	env := os.Getenv("ENV")
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func initDatabase(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Connection pool settings
	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 1 * time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
