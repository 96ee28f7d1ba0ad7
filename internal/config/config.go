// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.esgpilot/config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - AI: provider, model, temperature
//   - Storage: PostgreSQL connection (see storage.go)
//   - Generation: call timeout, retry, circuit breaker, rate limit
//   - Enrichment: per-section timeout, cache toggle
//   - Server: HTTP listen address
//   - Observability: OTLP trace exporter
//
// Sensitive data (the database password) is never logged.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidTimeout indicates a timeout value is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrInvalidThreshold indicates a circuit breaker threshold below 1.
	ErrInvalidThreshold = errors.New("invalid threshold")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGemini = "gemini"
)

// ObservabilityConfig configures the OTLP trace exporter.
// Traces are exported via OTLP HTTP to a local collector/agent, which
// handles authentication, buffering and forwarding.
type ObservabilityConfig struct {
	Enabled     bool   `mapstructure:"enabled" json:"enabled"`
	AgentHost   string `mapstructure:"agent_host" json:"agent_host"`
	Environment string `mapstructure:"environment" json:"environment"`
	ServiceName string `mapstructure:"service_name" json:"service_name"`
}

// Config stores application configuration.
type Config struct {
	// AI provider and model configuration
	Provider    string  `mapstructure:"provider" json:"provider"`
	ModelName   string  `mapstructure:"model_name" json:"model_name"`
	Temperature float32 `mapstructure:"temperature" json:"temperature"`

	// Generation (Response Generator) configuration
	GenerationTimeout   time.Duration `mapstructure:"generation_timeout" json:"generation_timeout"`
	GenerationRetries   int           `mapstructure:"generation_retries" json:"generation_retries"`
	GenerationRateLimit float64       `mapstructure:"generation_rate_limit" json:"generation_rate_limit"`
	GenerationRateBurst int           `mapstructure:"generation_rate_burst" json:"generation_rate_burst"`

	// Circuit breaker around model calls
	BreakerFailureThreshold int           `mapstructure:"breaker_failure_threshold" json:"breaker_failure_threshold"`
	BreakerSuccessThreshold int           `mapstructure:"breaker_success_threshold" json:"breaker_success_threshold"`
	BreakerCooldown         time.Duration `mapstructure:"breaker_cooldown" json:"breaker_cooldown"`

	// Enrichment (report section fan-out) configuration
	SectionTimeout  time.Duration `mapstructure:"section_timeout" json:"section_timeout"`
	EnrichmentCache bool          `mapstructure:"enrichment_cache" json:"enrichment_cache"`

	// Storage configuration (see storage.go for DSN helpers)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"-"` // SENSITIVE: never serialized
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Server configuration
	ServerAddr string `mapstructure:"server_addr" json:"server_addr"`

	// Observability configuration
	Observability ObservabilityConfig `mapstructure:"observability" json:"observability"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".esgpilot")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)

	v.SetEnvPrefix("ESGPILOT")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides individual postgres_* settings (cloud convention).
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	// AI defaults
	v.SetDefault("provider", ProviderGemini)
	v.SetDefault("model_name", "gemini-2.5-flash")
	v.SetDefault("temperature", 0.3)

	// Generation defaults
	v.SetDefault("generation_timeout", "60s")
	v.SetDefault("generation_retries", 3)
	v.SetDefault("generation_rate_limit", 10.0)
	v.SetDefault("generation_rate_burst", 30)
	v.SetDefault("breaker_failure_threshold", 5)
	v.SetDefault("breaker_success_threshold", 2)
	v.SetDefault("breaker_cooldown", "30s")

	// Enrichment defaults (per-section budget, matching report assembly SLO)
	v.SetDefault("section_timeout", "12s")
	v.SetDefault("enrichment_cache", true)

	// PostgreSQL defaults (matching docker-compose.yml)
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "esgpilot")
	v.SetDefault("postgres_password", "esgpilot_dev_password")
	v.SetDefault("postgres_db_name", "esgpilot")
	v.SetDefault("postgres_ssl_mode", "disable")

	// Server defaults
	v.SetDefault("server_addr", "127.0.0.1:3500")

	// Observability defaults
	v.SetDefault("observability.enabled", false)
	v.SetDefault("observability.agent_host", "localhost:4318")
	v.SetDefault("observability.environment", "dev")
	v.SetDefault("observability.service_name", "esgpilot")
}

// Validate performs range and format checks on the configuration.
// Returns sentinel errors wrapped with context; check with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}
	if c.Provider != ProviderGemini {
		return fmt.Errorf("%w: %q (supported: gemini)", ErrInvalidProvider, c.Provider)
	}
	if c.ModelName == "" {
		return fmt.Errorf("%w: empty", ErrInvalidModelName)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %v (range 0.0-2.0)", ErrInvalidTemperature, c.Temperature)
	}
	if c.GenerationTimeout <= 0 {
		return fmt.Errorf("%w: generation_timeout %v", ErrInvalidTimeout, c.GenerationTimeout)
	}
	if c.SectionTimeout <= 0 {
		return fmt.Errorf("%w: section_timeout %v", ErrInvalidTimeout, c.SectionTimeout)
	}
	if c.BreakerFailureThreshold < 1 {
		return fmt.Errorf("%w: breaker_failure_threshold %d", ErrInvalidThreshold, c.BreakerFailureThreshold)
	}
	if c.BreakerSuccessThreshold < 1 {
		return fmt.Errorf("%w: breaker_success_threshold %d", ErrInvalidThreshold, c.BreakerSuccessThreshold)
	}
	if c.BreakerCooldown <= 0 {
		return fmt.Errorf("%w: breaker_cooldown %v", ErrInvalidTimeout, c.BreakerCooldown)
	}
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: empty host", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: empty", ErrInvalidPostgresDBName)
	}
	switch c.PostgresSSLMode {
	case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}
	return nil
}
