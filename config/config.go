package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	API     APIConfig     `yaml:"api"`
	Session SessionConfig `yaml:"session"`
	Redis   RedisConfig   `yaml:"redis"`
	Kafka   KafkaConfig   `yaml:"kafka"`
	Cache   CacheConfig   `yaml:"cache"`
	Worker  WorkerConfig  `yaml:"worker"`
	Log     LogConfig     `yaml:"log"`
}

type HTTPConfig struct {
	Address string `yaml:"address" validate:"required"`
}

// APIConfig points at the storefront REST backend.
type APIConfig struct {
	BaseURL        string  `yaml:"base_url" validate:"required,url"`
	TimeoutSeconds int     `yaml:"timeout_seconds" validate:"gte=0"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps" validate:"gte=0"`
	RateLimitBurst int     `yaml:"rate_limit_burst" validate:"gte=0"`
}

func (a APIConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// SessionConfig selects where the bearer token comes from. A non-empty Token
// wins; otherwise the token is read from Redis under ID.
type SessionConfig struct {
	Token      string `yaml:"token"`
	ID         string `yaml:"id"`
	TTLMinutes int    `yaml:"ttl_minutes" validate:"gte=0"`
}

func (s SessionConfig) TTL() time.Duration {
	if s.TTLMinutes <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(s.TTLMinutes) * time.Minute
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers     []string `yaml:"brokers"`
	EventsTopic string   `yaml:"events_topic"`
	GroupID     string   `yaml:"group_id"`
	// PublishRetries bounds attempts per sync event; zero means one attempt.
	PublishRetries int `yaml:"publish_retries" validate:"gte=0"`
}

type CacheConfig struct {
	TTLSeconds int `yaml:"ttl_seconds" validate:"gte=0"`
}

func (c CacheConfig) TTL() time.Duration {
	if c.TTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.TTLSeconds) * time.Second
}

type WorkerConfig struct {
	ReconcileIntervalSeconds int `yaml:"reconcile_interval_seconds" validate:"gte=0"`
}

func (w WorkerConfig) ReconcileInterval() time.Duration {
	if w.ReconcileIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(w.ReconcileIntervalSeconds) * time.Second
}

type LogConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// LoadConfig reads the YAML file at path, then applies .env and environment
// overrides (TRAVELSYNC_*), then validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	_ = godotenv.Load()
	cfg.applyEnv()

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.HTTP.Address = getEnv("TRAVELSYNC_HTTP_ADDRESS", c.HTTP.Address)
	c.API.BaseURL = getEnv("TRAVELSYNC_API_BASE_URL", c.API.BaseURL)
	c.Session.Token = getEnv("TRAVELSYNC_API_TOKEN", c.Session.Token)
	c.Session.ID = getEnv("TRAVELSYNC_SESSION_ID", c.Session.ID)
	c.Redis.Addr = getEnv("TRAVELSYNC_REDIS_ADDR", c.Redis.Addr)
	c.Log.Level = getEnv("TRAVELSYNC_LOG_LEVEL", c.Log.Level)
	if brokers := os.Getenv("TRAVELSYNC_KAFKA_BROKERS"); brokers != "" {
		c.Kafka.Brokers = strings.Split(brokers, ",")
	}
	if ttl := os.Getenv("TRAVELSYNC_CACHE_TTL_SECONDS"); ttl != "" {
		if n, err := strconv.Atoi(ttl); err == nil {
			c.Cache.TTLSeconds = n
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
