package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingDatabaseURL is returned by Load when no database endpoint is configured.
var ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")

// Config holds every runtime setting. Values come from an optional YAML file
// (CONFIG_FILE), then the environment (and .env), which wins.
type Config struct {
	Port    string `yaml:"port"`
	BaseURL string `yaml:"base_url"`

	DatabaseDriver string `yaml:"database_driver"`
	DatabaseURL    string `yaml:"database_url"`

	CleanupSecret string `yaml:"cleanup_secret"`
	SessionSecret string `yaml:"session_secret"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	ClickMode           string        `yaml:"click_mode"`
	ClickWorkers        int           `yaml:"click_workers"`
	ClickQueueSize      int           `yaml:"click_queue_size"`
	ClickFlushInterval  time.Duration `yaml:"click_flush_interval"`
	ClickFlushThreshold int           `yaml:"click_flush_threshold"`

	RateLimitStrategy string `yaml:"rate_limit_strategy"`
	RateLimitMax      int    `yaml:"rate_limit_max"`

	BlocklistFile string `yaml:"blocklist_file"`
	SentryDSN     string `yaml:"sentry_dsn"`
	LogFile       string `yaml:"log_file"`
	LogLevel      string `yaml:"log_level"`
}

func defaults() *Config {
	return &Config{
		Port:                "8080",
		DatabaseDriver:      "postgres",
		ClickMode:           "async",
		ClickWorkers:        4,
		ClickQueueSize:      1024,
		ClickFlushInterval:  5 * time.Second,
		ClickFlushThreshold: 500,
		RateLimitStrategy:   "fixed",
		RateLimitMax:        30,
		LogFile:             "logs/urst.log",
		LogLevel:            "info",
	}
}

// Load builds the configuration. A missing DATABASE_URL is fatal for callers.
func Load() (*Config, error) {
	// .env is optional; real deployments inject the environment directly.
	_ = godotenv.Load()

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}

	if cfg.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}
	switch cfg.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q", cfg.DatabaseDriver)
	}
	switch cfg.ClickMode {
	case "async", "batch":
	default:
		return nil, fmt.Errorf("unsupported CLICK_MODE %q", cfg.ClickMode)
	}
	switch cfg.RateLimitStrategy {
	case "fixed", "sliding", "token", "leaky", "off":
	default:
		return nil, fmt.Errorf("unsupported RATE_LIMIT_STRATEGY %q", cfg.RateLimitStrategy)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	setString(&c.Port, "PORT")
	setString(&c.BaseURL, "BASE_URL")
	setString(&c.DatabaseDriver, "DATABASE_DRIVER")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.CleanupSecret, "CLEANUP_SECRET")
	setString(&c.SessionSecret, "SESSION_SECRET")
	setString(&c.RedisAddr, "REDIS_ADDR")
	setString(&c.RedisPassword, "REDIS_PASSWORD")
	setString(&c.ClickMode, "CLICK_MODE")
	setString(&c.RateLimitStrategy, "RATE_LIMIT_STRATEGY")
	setString(&c.BlocklistFile, "BLOCKLIST_FILE")
	setString(&c.SentryDSN, "SENTRY_DSN")
	setString(&c.LogFile, "LOG_FILE")
	setString(&c.LogLevel, "LOG_LEVEL")

	for key, dst := range map[string]*int{
		"REDIS_DB":              &c.RedisDB,
		"CLICK_WORKERS":         &c.ClickWorkers,
		"CLICK_QUEUE_SIZE":      &c.ClickQueueSize,
		"CLICK_FLUSH_THRESHOLD": &c.ClickFlushThreshold,
		"RATE_LIMIT_MAX":        &c.RateLimitMax,
	} {
		if err := setInt(dst, key); err != nil {
			return err
		}
	}

	if v, ok := os.LookupEnv("CLICK_FLUSH_INTERVAL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CLICK_FLUSH_INTERVAL: %w", err)
		}
		c.ClickFlushInterval = d
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}
