package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kijko/internal/config"
	"kijko/internal/queue"
	"kijko/internal/storage"
	"kijko/internal/transcribe"
	"kijko/internal/worker"
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

	logger.Info("Starting kijko worker service")

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

	// Initialize speech-to-text client
	sttClient := transcribe.NewClient(cfg.Transcribe.Endpoint, cfg.Transcribe.APIKey)

	logger.Info("Transcription client initialized")

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

	// Create processor with cache
	processor := worker.NewProcessor(db, s3Storage, sttClient, rabbitMQ, redisCache)

	// Graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start consuming messages
	for i := 0; i < cfg.Worker.Concurrency; i++ {
		go func(n int) {
			logger.Info("Starting queue consumer", zap.Int("consumer", n))
			if err := rabbitMQ.Consume(queue.QueueNameTranscription, processor.ProcessTask); err != nil {
				logger.Error("Failed to consume messages", zap.Error(err))
				cancel()
			}
		}(i)
	}

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Worker service shutdown complete")
}
