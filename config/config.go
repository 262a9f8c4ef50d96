package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Env        string `env:"ENV" envDefault:"production"`
	ServerPort int    `env:"SERVER_PORT" envDefault:"8080"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	Database   DatabaseConfig
	Auth       AuthConfig
	Session    SessionConfig
	Events     EventsConfig
}

type DatabaseConfig struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     int    `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"notekeeper"`
	Password string `env:"DB_PASSWORD" envDefault:"password"`
	DBName   string `env:"DB_NAME" envDefault:"notekeeper_db"`
	UseSSL   bool   `env:"DB_USE_SSL" envDefault:"false"`
}

type AuthConfig struct {
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"JWT_TOKEN_TTL" envDefault:"24h"`
}

type SessionConfig struct {
	Lifetime     time.Duration `env:"SESSION_LIFETIME" envDefault:"24h"`
	CookieSecure bool          `env:"SESSION_COOKIE_SECURE" envDefault:"true"`
}

// EventsConfig selects where change events are published.
// Backend is one of "none", "rabbitmq" or "pubsub".
type EventsConfig struct {
	Backend  string `env:"EVENTS_BACKEND" envDefault:"none"`
	Channel  string `env:"EVENTS_CHANNEL" envDefault:"notekeeper.changes"`
	RabbitMQ RabbitMQConfig
	PubSub   PubSubConfig
}

type RabbitMQConfig struct {
	URL             string `env:"RABBITMQ_URL"`
	QueueDurable    bool   `env:"RABBITMQ_QUEUE_DURABLE" envDefault:"true"`
	QueueAutoDelete bool   `env:"RABBITMQ_QUEUE_AUTO_DELETE" envDefault:"false"`
	PrefetchCount   int    `env:"RABBITMQ_PREFETCH_COUNT" envDefault:"0"`
}

type PubSubConfig struct {
	ProjectID          string `env:"PUBSUB_PROJECT_ID"`
	CredentialsFile    string `env:"PUBSUB_CREDENTIALS_FILE"`
	SubscriptionSuffix string `env:"PUBSUB_SUBSCRIPTION_SUFFIX" envDefault:"-sub"`
}

func LoadConfig() (Config, error) {
	if os.Getenv("ENV") == "dev" {
		_ = godotenv.Load()
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.ServerPort < 1 || cfg.ServerPort > 65535 {
		return Config{}, fmt.Errorf("invalid SERVER_PORT %d", cfg.ServerPort)
	}
	if cfg.Auth.TokenTTL <= 0 {
		return Config{}, errors.New("JWT_TOKEN_TTL must be positive")
	}
	switch cfg.Events.Backend {
	case "", "none", "rabbitmq", "pubsub":
	default:
		return Config{}, fmt.Errorf("unknown EVENTS_BACKEND %q", cfg.Events.Backend)
	}
	return cfg, nil
}

// IsDev reports whether the process runs in development mode.
func (c Config) IsDev() bool {
	return c.Env == "dev"
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
