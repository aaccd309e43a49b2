package config

import (
	"kijko/pkg/logger"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Server struct {
		Addr string `yaml:"addr" env:"SERVER_ADDR" env-default:":8080"`
	} `yaml:"server"`

	Chat struct {
		Endpoint string `yaml:"endpoint" env:"CHAT_ENDPOINT" env-default:"https://api.openai.com/v1/chat/completions"`
		Model    string `yaml:"model" env:"CHAT_MODEL" env-default:"gpt-4.1-mini"`
		// Ordered failover list; the transport rotates to the next key
		// on auth or quota failures.
		APIKeys []string `yaml:"api_keys" env:"CHAT_API_KEYS" env-separator:","`
	} `yaml:"chat"`

	Transcribe struct {
		Endpoint string `yaml:"endpoint" env:"STT_ENDPOINT"`
		APIKey   string `yaml:"api_key" env:"STT_API_KEY"`
	} `yaml:"transcribe"`

	RabbitMQ struct {
		URL string `yaml:"url" env:"RABBITMQ_URL"`
	} `yaml:"rabbitmq"`

	Postgres struct {
		DSN string `yaml:"dsn" env:"POSTGRES_DSN"`
	} `yaml:"postgres"`

	S3 struct {
		Endpoint  string `yaml:"endpoint" env:"S3_ENDPOINT"`
		Region    string `yaml:"region" env:"S3_REGION" env-default:"us-east-1"`
		AccessKey string `yaml:"access_key" env:"S3_ACCESS_KEY"`
		SecretKey string `yaml:"secret_key" env:"S3_SECRET_KEY"`
		Bucket    string `yaml:"bucket" env:"S3_BUCKET"`
	} `yaml:"s3"`

	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
		Password string `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
		DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	} `yaml:"redis"`

	Worker struct {
		Concurrency int `yaml:"concurrency" env:"WORKER_CONCURRENCY" env-default:"4"`
	} `yaml:"worker"`
}

func LoadConfig() (*Config, error) {
	// Load .env file
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadConfig("configs/config.yaml", &cfg); err != nil {
		return nil, err
	}

	if err := cleanenv.UpdateEnv(&cfg); err != nil {
		return nil, err
	}

	logger.Info("Config loaded successfully")
	return &cfg, nil
}
