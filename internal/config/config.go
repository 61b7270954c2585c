// Package config loads service configuration from the environment, with an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Gemini    GeminiConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `env:"PORT" envDefault:"8080"`
	PublicBaseURL   string        `env:"PUBLIC_BASE_URL"`
	AdminToken      string        `env:"ADMIN_TOKEN,required"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"90s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// DatabaseConfig holds PostgreSQL settings.
type DatabaseConfig struct {
	URL           string `env:"DATABASE_URL,required"`
	MaxConns      int32  `env:"DATABASE_MAX_CONNS" envDefault:"0"`
	MigrationsDir string `env:"MIGRATIONS_DIR"`
}

// RedisConfig holds Redis settings.
type RedisConfig struct {
	URL string `env:"REDIS_URL,required"`
}

// GeminiConfig holds generative API settings.
type GeminiConfig struct {
	APIKey  string        `env:"GEMINI_API_KEY,required"`
	Model   string        `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash"`
	BaseURL string        `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	Timeout time.Duration `env:"GEMINI_TIMEOUT" envDefault:"60s"`
	MaxRPS  float64       `env:"GEMINI_MAX_RPS" envDefault:"0"`
}

// RateLimitConfig holds request limiting settings.
type RateLimitConfig struct {
	// Ceiling applies when GLOBAL_RATE_LIMIT is absent from Redis. Zero means unlimited.
	Ceiling int64 `env:"RATE_LIMIT_CEILING" envDefault:"0"`
	// PerIPPerMinute bounds HTTP requests per client IP.
	PerIPPerMinute int `env:"HTTP_RATE_LIMIT_PER_MINUTE" envDefault:"60"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first when present; it never
// overrides variables that are already set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout <= 0 || cfg.Server.WriteTimeout <= 0 {
		return errors.New("SERVER_READ_TIMEOUT and SERVER_WRITE_TIMEOUT must be positive")
	}
	if cfg.Gemini.Timeout <= 0 {
		return errors.New("GEMINI_TIMEOUT must be positive")
	}
	if cfg.Gemini.MaxRPS < 0 {
		return fmt.Errorf("GEMINI_MAX_RPS must not be negative, got %v", cfg.Gemini.MaxRPS)
	}
	if cfg.RateLimit.Ceiling < 0 {
		return fmt.Errorf("RATE_LIMIT_CEILING must not be negative, got %d", cfg.RateLimit.Ceiling)
	}
	if cfg.RateLimit.PerIPPerMinute < 1 {
		return fmt.Errorf("HTTP_RATE_LIMIT_PER_MINUTE must be at least 1, got %d", cfg.RateLimit.PerIPPerMinute)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error; got %q", cfg.Logging.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, text; got %q", cfg.Logging.Format)
	}

	cfg.Server.PublicBaseURL = strings.TrimRight(cfg.Server.PublicBaseURL, "/")
	return nil
}

// SlogLevel maps the configured level to a slog.Level.
func (c LoggingConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
