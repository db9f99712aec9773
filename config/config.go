package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Backend  BackendConfig
	Auth     AuthConfig
	Image    ImageHostConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Observ   ObservabilityConfig
	Session  SessionConfig
}

type ServerConfig struct {
	Port      string `env:"PORT" envDefault:"8080"`
	Env       string `env:"ENV" envDefault:"development"`
	PublicURL string `env:"PUBLIC_URL" envDefault:"http://localhost:5173"`
}

// BackendConfig points at the bookstore REST API.
type BackendConfig struct {
	URL     string        `env:"API_URL,required"`
	Timeout time.Duration `env:"HTTP_CLIENT_TIMEOUT" envDefault:"0s"`
}

type AuthConfig struct {
	APIKey   string `env:"AUTH_API_KEY"`
	URL      string `env:"AUTH_URL" envDefault:"https://identitytoolkit.googleapis.com/v1"`
	TokenURL string `env:"TOKEN_URL" envDefault:"https://securetoken.googleapis.com/v1/token"`
}

type ImageHostConfig struct {
	APIKey string `env:"IMAGE_API_KEY,required"`
	URL    string `env:"IMAGE_HOST_URL" envDefault:"https://api.imgbb.com/1/upload"`
}

// DatabaseConfig is optional; sessions stay in memory when URL is empty.
type DatabaseConfig struct {
	URL string `env:"DATABASE_URL"`
}

type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	LockTTL  time.Duration `env:"MUTATION_LOCK_TTL" envDefault:"30s"`
}

type KafkaConfig struct {
	Brokers           []string `env:"KAFKA_BROKERS" envSeparator:","`
	TopicInvalidation string   `env:"KAFKA_TOPIC_INVALIDATIONS" envDefault:"cache-invalidations"`
}

type ObservabilityConfig struct {
	JaegerEndpoint string `env:"JAEGER_ENDPOINT"`
	LogLevel       string `env:"LOG_LEVEL"`
}

type SessionConfig struct {
	TTL           time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	CookieName    string        `env:"SESSION_COOKIE" envDefault:"bc_session"`
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"10m"`
}

// Load reads .env (if present) and the process environment. A missing API_URL or
// IMAGE_API_KEY is a fatal configuration error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Backend.URL = strings.TrimRight(strings.TrimSpace(cfg.Backend.URL), "/")
	if cfg.Backend.URL == "" {
		return nil, fmt.Errorf("parse config: API_URL is empty")
	}
	if strings.TrimSpace(cfg.Image.APIKey) == "" {
		return nil, fmt.Errorf("parse config: IMAGE_API_KEY is empty")
	}

	log.Printf("Config loaded: env=%s, port=%s, api=%s", cfg.Server.Env, cfg.Server.Port, cfg.Backend.URL)
	return cfg, nil
}

// KafkaEnabled reports whether cross-replica invalidation is configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0 && c.Kafka.Brokers[0] != ""
}
