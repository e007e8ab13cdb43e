package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`

	DBDriver   string `env:"DB_DRIVER" envDefault:"mysql"`
	MySQLDSN   string `env:"MYSQL_DSN" envDefault:"user:password@tcp(localhost:3306)/gallery?charset=utf8mb4&parseTime=True&loc=Local"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"gallery.db"`

	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`
	RedisPass string `env:"REDIS_PASSWORD"`

	JWTSecret string `env:"JWT_SECRET" envDefault:"change-me"`

	RabbitMQ struct {
		URL       string `env:"RABBITMQ_URL"`
		QueueName string `env:"RABBITMQ_QUEUE_NAME" envDefault:"collector_stats"`
	}

	// SharedNonce restores the legacy one-nonce-per-process behaviour.
	SharedNonce bool `env:"USER_SHARED_NONCE" envDefault:"false"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	SwaggerHost string `env:"SWAGGER_HOST"`
	SeedSource  string `env:"SEED_SOURCE" envDefault:"seed/users.json"`
}

// Load builds Config from the environment, reading .env first when present.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	switch cfg.DBDriver {
	case "mysql", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	return &cfg, nil
}
