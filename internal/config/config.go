package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the contact-ledger service.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
	Metrics   MetricsConfig
}

type ServerConfig struct {
	Addr            string
	Env             string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// CacheConfig configures the aggregation query result cache.
type CacheConfig struct {
	// Backend is one of "redis", "filesystem", "memory".
	Backend string
	// Dir is the root directory for the filesystem backend.
	Dir string
	// TTL bounds the staleness window of cached query results.
	TTL time.Duration
}

type AuthConfig struct {
	Enabled   bool
	MasterKey string
	SkipPaths []string
}

type RateLimitConfig struct {
	Enabled     bool
	EventRPS    float64
	EventBurst  int
	ReportRPS   float64
	ReportBurst int
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnv("CONTACT_LEDGER_HTTP_ADDR", ":8080"),
			Env:             getEnv("CONTACT_LEDGER_ENV", "development"),
			ShutdownTimeout: getDurationEnv("CONTACT_LEDGER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("CONTACT_LEDGER_DB_HOST", "localhost"),
			Port:     getIntEnv("CONTACT_LEDGER_DB_PORT", 5432),
			User:     getEnv("CONTACT_LEDGER_DB_USER", "contactledger"),
			Password: getEnv("CONTACT_LEDGER_DB_PASSWORD", "contactledger_secret"),
			DBName:   getEnv("CONTACT_LEDGER_DB_NAME", "contactledger"),
			SSLMode:  getEnv("CONTACT_LEDGER_DB_SSLMODE", "disable"),
			MaxConns: getIntEnv("CONTACT_LEDGER_DB_MAX_CONNS", 25),
			MinConns: getIntEnv("CONTACT_LEDGER_DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Addr:     getEnv("CONTACT_LEDGER_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("CONTACT_LEDGER_REDIS_PASSWORD", ""),
			DB:       getIntEnv("CONTACT_LEDGER_REDIS_DB", 0),
		},
		Cache: CacheConfig{
			Backend: getEnv("CONTACT_LEDGER_CACHE_BACKEND", "redis"),
			Dir:     getEnv("CONTACT_LEDGER_CACHE_DIR", filepath.Join(os.TempDir(), "contact-ledger", "sql")),
			TTL:     getDurationEnv("CONTACT_LEDGER_CACHE_TTL", 15*time.Minute),
		},
		Auth: AuthConfig{
			Enabled:   getBoolEnv("CONTACT_LEDGER_AUTH_ENABLED", false),
			MasterKey: getEnv("CONTACT_LEDGER_API_KEY_MASTER", ""),
			SkipPaths: getSliceEnv("CONTACT_LEDGER_AUTH_SKIP_PATHS", []string{"/health", "/metrics"}),
		},
		RateLimit: RateLimitConfig{
			Enabled:     getBoolEnv("CONTACT_LEDGER_RATE_LIMIT_ENABLED", true),
			EventRPS:    getFloatEnv("CONTACT_LEDGER_RATE_LIMIT_EVENT_RPS", 1000),
			EventBurst:  getIntEnv("CONTACT_LEDGER_RATE_LIMIT_EVENT_BURST", 100),
			ReportRPS:   getFloatEnv("CONTACT_LEDGER_RATE_LIMIT_REPORT_RPS", 100),
			ReportBurst: getIntEnv("CONTACT_LEDGER_RATE_LIMIT_REPORT_BURST", 20),
		},
		Log: LogConfig{
			Level:  getEnv("CONTACT_LEDGER_LOG_LEVEL", "info"),
			Format: getEnv("CONTACT_LEDGER_LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolEnv("CONTACT_LEDGER_METRICS_ENABLED", true),
			Path:    getEnv("CONTACT_LEDGER_METRICS_PATH", "/metrics"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Auth.Enabled && c.Auth.MasterKey == "" {
		return fmt.Errorf("CONTACT_LEDGER_API_KEY_MASTER is required when auth is enabled")
	}
	switch c.Cache.Backend {
	case "redis", "filesystem", "memory":
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Helper functions for reading environment variables

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getFloatEnv(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getSliceEnv(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				result = append(result, p)
			}
		}
		return result
	}
	return def
}
