// Package config loads process settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// MemoryDatabaseURL selects the in-memory stores instead of Postgres.
const MemoryDatabaseURL = "memory://"

// Config holds all configuration for the movie app.
type Config struct {
	HTTPPort string
	GRPCPort string
	DB       DBConfig
	Redis    RedisConfig
	TMDB     TMDBConfig
	Auth     AuthConfig
	Log      LogConfig
}

// DBConfig holds PostgreSQL configuration.
type DBConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// InMemory reports whether the in-memory stores were requested.
func (d DBConfig) InMemory() bool {
	return d.URL == MemoryDatabaseURL
}

// RedisConfig holds Redis configuration. An empty Addr disables caching.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// TMDBConfig holds TMDB API configuration.
type TMDBConfig struct {
	APIKey  string
	BaseURL string
}

type AuthConfig struct {
	JWTSecret          string
	TokenTTL           time.Duration
	RateLimitPerMinute int
	// TrustProxyHeaders keys rate limiting on X-Forwarded-For / X-Real-IP. Enable it
	// only behind a reverse proxy that overwrites those headers.
	TrustProxyHeaders bool
}

type LogConfig struct {
	Level     string
	File      string
	MaxSizeMB int
}

// Load reads configuration from the environment, loading .env first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var errs []error
	intEnv := func(key string, fallback int) int {
		raw := getEnv(key, strconv.Itoa(fallback))
		v, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid integer %q", key, raw))
			return fallback
		}
		return v
	}
	durationEnv := func(key string, fallback time.Duration) time.Duration {
		raw := getEnv(key, fallback.String())
		v, err := time.ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q", key, raw))
			return fallback
		}
		return v
	}

	boolEnv := func(key string, fallback bool) bool {
		raw := getEnv(key, strconv.FormatBool(fallback))
		v, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid boolean %q", key, raw))
			return fallback
		}
		return v
	}

	cfg := &Config{
		HTTPPort: getEnv("HTTP_PORT", "8080"),
		GRPCPort: getEnv("GRPC_PORT", "9090"),
		DB: DBConfig{
			URL:          getEnv("DATABASE_URL", ""),
			MaxOpenConns: intEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: intEnv("DB_MAX_IDLE_CONNS", 10),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       intEnv("REDIS_DB", 0),
			CacheTTL: durationEnv("CACHE_TTL", 5*time.Minute),
		},
		TMDB: TMDBConfig{
			APIKey:  getEnv("TMDB_API_KEY", ""),
			BaseURL: getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		},
		Auth: AuthConfig{
			JWTSecret:          getEnv("JWT_SECRET", ""),
			TokenTTL:           durationEnv("JWT_TTL", 24*time.Hour),
			RateLimitPerMinute: intEnv("AUTH_RATE_PER_MINUTE", 10),
			TrustProxyHeaders:  boolEnv("TRUST_PROXY_HEADERS", false),
		},
		Log: LogConfig{
			Level:     getEnv("LOG_LEVEL", "info"),
			File:      getEnv("LOG_FILE", ""),
			MaxSizeMB: intEnv("LOG_MAX_SIZE_MB", 50),
		},
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the process cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.DB.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required (use memory:// for the in-memory store)"))
	}
	if len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 characters"))
	}
	for key, port := range map[string]string{"HTTP_PORT": c.HTTPPort, "GRPC_PORT": c.GRPCPort} {
		if n, err := strconv.Atoi(port); err != nil || n <= 0 || n > 65535 {
			errs = append(errs, fmt.Errorf("%s: invalid port %q", key, port))
		}
	}
	if c.Auth.RateLimitPerMinute <= 0 {
		errs = append(errs, errors.New("AUTH_RATE_PER_MINUTE must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
