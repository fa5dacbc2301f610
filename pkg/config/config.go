// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/copperdesk/copperdesk/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Auth          AuthConfig
	Visibility    VisibilityConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	ConnLifetime time.Duration
}

// RedisConfig holds the optional shared session store configuration
type RedisConfig struct {
	URL      string // empty disables Redis; sessions are read from SQL only
	Password string
	DB       int
}

// AuthConfig holds session validation configuration
type AuthConfig struct {
	// SessionCacheTTL bounds how long a validated session may be served
	// from the in-process cache before re-checking the store.
	SessionCacheTTL  time.Duration
	SessionCacheSize int

	// SweepSchedule is a cron expression for the expired-session sweep.
	SweepSchedule string
}

// VisibilityConfig controls the access scope resolver's failure policy.
type VisibilityConfig struct {
	// ResolutionPolicy is "fail_open" (lookup failures grant unrestricted
	// visibility, the historical behavior) or "fail_closed" (lookup
	// failures restrict to owner-only visibility).
	ResolutionPolicy string
}

// ObservabilityConfig holds logging, metrics, and tracing settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// Policy literals for VisibilityConfig.ResolutionPolicy.
const (
	PolicyFailOpen   = "fail_open"
	PolicyFailClosed = "fail_closed"
)

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("COPPERDESK_HOST", "0.0.0.0"),
			Port:            getEnv("COPPERDESK_PORT", "8080"),
			ReadTimeout:     getEnvDuration("COPPERDESK_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("COPPERDESK_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("COPPERDESK_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("COPPERDESK_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("COPPERDESK_HEALTH_PORT", "9090"),
		},
		Database: DatabaseConfig{
			URL:          getEnv("COPPERDESK_DATABASE_URL", "postgres://localhost/copperdesk?sslmode=disable"),
			MaxOpenConns: getEnvInt("COPPERDESK_DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("COPPERDESK_DATABASE_MAX_IDLE_CONNS", 5),
			ConnLifetime: getEnvDuration("COPPERDESK_DATABASE_CONN_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:      getEnv("COPPERDESK_REDIS_URL", ""),
			Password: getEnv("COPPERDESK_REDIS_PASSWORD", ""),
			DB:       getEnvInt("COPPERDESK_REDIS_DB", 0),
		},
		Auth: AuthConfig{
			SessionCacheTTL:  getEnvDuration("COPPERDESK_SESSION_CACHE_TTL", 30*time.Second),
			SessionCacheSize: getEnvInt("COPPERDESK_SESSION_CACHE_SIZE", 4096),
			SweepSchedule:    getEnv("COPPERDESK_SESSION_SWEEP_SCHEDULE", "*/10 * * * *"),
		},
		Visibility: VisibilityConfig{
			ResolutionPolicy: getEnv("COPPERDESK_RESOLUTION_POLICY", PolicyFailOpen),
		},
		Observability: ObservabilityConfig{
			LogLevel:           observability.ParseLogLevel(getEnv("COPPERDESK_LOG_LEVEL", "info")),
			MetricsEnabled:     getEnvBool("COPPERDESK_METRICS_ENABLED", true),
			OTelEnabled:        getEnvBool("COPPERDESK_OTEL_ENABLED", false),
			OTelEndpoint:       getEnv("COPPERDESK_OTEL_ENDPOINT", "localhost:4317"),
			OTelServiceName:    getEnv("COPPERDESK_OTEL_SERVICE_NAME", "copperdesk"),
			OTelServiceVersion: getEnv("COPPERDESK_OTEL_SERVICE_VERSION", "dev"),
			OTelInsecure:       getEnvBool("COPPERDESK_OTEL_INSECURE", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port must not be empty")
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("invalid server port %q", c.Server.Port)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database URL must not be empty")
	}
	switch c.Visibility.ResolutionPolicy {
	case PolicyFailOpen, PolicyFailClosed:
	default:
		return fmt.Errorf("invalid resolution policy %q (want %q or %q)",
			c.Visibility.ResolutionPolicy, PolicyFailOpen, PolicyFailClosed)
	}
	if c.Auth.SessionCacheSize <= 0 {
		return fmt.Errorf("session cache size must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
