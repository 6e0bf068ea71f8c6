// Package config loads application configuration from environment variables.
// All variables use the LEARN_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Content  ContentConfig
	Review   ReviewConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig holds PostgreSQL connection settings. An empty URL means
// the server runs on in-memory stores (development mode).
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
	Migrate  bool
}

// CacheConfig holds Dragonfly/Redis connection settings. An empty URL
// disables the leaderboard.
type CacheConfig struct {
	URL string
}

// ContentConfig holds content catalog settings.
type ContentConfig struct {
	// SeedPath is a directory of YAML course/chapter/quiz definitions
	// loaded into the catalog at startup. Empty disables seeding.
	SeedPath string
}

// ReviewConfig holds content-review workflow settings.
type ReviewConfig struct {
	// DefaultRejectNote is used when a reviewer rejects without a note.
	DefaultRejectNote string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with LEARN_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("LEARN_SERVER_PORT", 8080),
			Host: envStr("LEARN_SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			URL:      envStr("LEARN_DATABASE_URL", ""),
			MaxConns: envInt("LEARN_DATABASE_MAX_CONNS", 25),
			MinConns: envInt("LEARN_DATABASE_MIN_CONNS", 5),
			Migrate:  envBool("LEARN_DATABASE_MIGRATE", true),
		},
		Cache: CacheConfig{
			URL: envStr("LEARN_CACHE_URL", ""),
		},
		Content: ContentConfig{
			SeedPath: envStr("LEARN_CONTENT_SEED_PATH", ""),
		},
		Review: ReviewConfig{
			DefaultRejectNote: envStr("LEARN_REVIEW_DEFAULT_REJECT_NOTE",
				"Request does not meet content guidelines"),
		},
		Log: LogConfig{
			Level:  envStr("LEARN_LOG_LEVEL", "info"),
			Format: envStr("LEARN_LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// Validate checks that configuration values are consistent.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("LEARN_SERVER_PORT must be 1-65535, got %d", c.Server.Port)
	}

	if c.Database.URL != "" && c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("LEARN_DATABASE_MAX_CONNS (%d) must be >= LEARN_DATABASE_MIN_CONNS (%d)",
			c.Database.MaxConns, c.Database.MinConns)
	}

	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("LEARN_LOG_FORMAT must be 'json' or 'text', got %q", c.Log.Format)
	}

	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}
