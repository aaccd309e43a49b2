package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kijko/internal/chat"
	"kijko/internal/config"
	"kijko/internal/queue"
	"kijko/internal/server"
	"kijko/internal/storage"
	"kijko/pkg/cache"
	"kijko/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	// Initialize logger
	debug := true
	if err := logger.Init(debug); err != nil {
		panic("Failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	logger.Info("Starting kijko API server")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
		return
	}

	// Connect to database
	db, err := storage.NewPostgresStorage(cfg.Postgres.DSN)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
		return
	}
	defer db.Close()

	// Initialize S3 storage from config
	s3Storage, err := storage.NewS3Storage(
		cfg.S3.Endpoint,
		cfg.S3.Region,
		cfg.S3.AccessKey,
		cfg.S3.SecretKey,
		cfg.S3.Bucket,
	)
	if err != nil {
		logger.Fatal("Failed to initialize S3 storage", zap.Error(err))
		return
	}

	logger.Info("S3 storage initialized")

	// Initialize chat client with the ordered API-key failover list
	chatClient, err := chat.NewClient(cfg.Chat.Endpoint, cfg.Chat.Model, cfg.Chat.APIKeys)
	if err != nil {
		logger.Fatal("Failed to initialize chat client", zap.Error(err))
		return
	}

	logger.Info("Chat client initialized", zap.Int("api_keys", len(cfg.Chat.APIKeys)))

	// Initialize Redis cache
	redisCache, err := cache.NewRedisCache(
		cfg.Redis.Addr,
		cfg.Redis.Password,
		cfg.Redis.DB,
		24*time.Hour, // Default TTL 24 hours
	)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
		return
	}
	defer redisCache.Close()

	logger.Info("Redis cache connection established")

	// Connect to RabbitMQ
	rabbitMQ, err := queue.NewRabbitMQ(cfg.RabbitMQ.URL)
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		return
	}
	defer rabbitMQ.Close()

	logger.Info("RabbitMQ connection established")

	srv := server.NewServer(db, s3Storage, rabbitMQ, chatClient, redisCache)

	// Graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Push worker results to open chat sockets
	go func() {
		if err := rabbitMQ.Consume(queue.QueueNameTranscriptionResults, srv.HandleTranscriptionResult); err != nil {
			logger.Error("Failed to consume transcription results", zap.Error(err))
			cancel()
		}
	}()

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // streaming over WebSocket
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.Server.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", zap.Error(err))
			cancel()
		}
	}()

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	logger.Info("API server shutdown complete")
}
