// Package config provides configuration management with hot-reload support.
// It uses fsnotify to watch for file changes and atomic pointer swaps for
// zero-downtime updates.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete secretscope configuration.
type Config struct {
	Session   SessionConfig   `yaml:"session"`
	Sources   SourcesConfig   `yaml:"sources"`
	Cache     CacheConfig     `yaml:"cache"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

// SessionConfig contains scoped-session settings.
type SessionConfig struct {
	// ScratchDir is where artifact directories are created; empty uses the
	// system temp directory.
	ScratchDir string `yaml:"scratch_dir"`
	// EnvKey is the environment variable the binding is exported under.
	EnvKey string `yaml:"env_key"`
	// Separator joins artifact paths in the binding value.
	Separator string `yaml:"separator"`
}

// SourcesConfig enables and configures secret backends.
type SourcesConfig struct {
	// FallbackScheme routes bare secret names (no scheme) to a backend.
	FallbackScheme string         `yaml:"fallback_scheme"`
	Env            EnvSource      `yaml:"env"`
	File           FileSource     `yaml:"file"`
	Vault          VaultSource    `yaml:"vault"`
	AWSSM          AWSSMSource    `yaml:"awssm"`
	S3             S3Source       `yaml:"s3"`
	Redis          RedisSource    `yaml:"redis"`
	Postgres       PostgresSource `yaml:"postgres"`
}

// EnvSource configures the environment-variable backend.
type EnvSource struct {
	Enabled bool `yaml:"enabled"`
}

// FileSource configures the credential-directory backend.
type FileSource struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// VaultSource configures the HashiCorp Vault backend.
type VaultSource struct {
	Enabled    bool   `yaml:"enabled"`
	Address    string `yaml:"address"`
	AuthMethod string `yaml:"auth_method"` // "approle", "cert", "token"
	Token      string `yaml:"token"`
	RoleID     string `yaml:"role_id"`
	SecretID   string `yaml:"secret_id"`
	CACert     string `yaml:"ca_cert"`
	ClientCert string `yaml:"client_cert"`
	ClientKey  string `yaml:"client_key"`
}

// AWSSMSource configures the AWS Secrets Manager backend.
type AWSSMSource struct {
	Enabled     bool   `yaml:"enabled"`
	Region      string `yaml:"region"`
	AccessKeyID string `yaml:"access_key_id"`
	SecretKey   string `yaml:"secret_key"`
	Endpoint    string `yaml:"endpoint"`
}

// S3Source configures the S3 object backend.
type S3Source struct {
	Enabled     bool   `yaml:"enabled"`
	Bucket      string `yaml:"bucket"`
	Region      string `yaml:"region"`
	AccessKeyID string `yaml:"access_key_id"`
	SecretKey   string `yaml:"secret_key"`
	Endpoint    string `yaml:"endpoint"`
	PathPrefix  string `yaml:"path_prefix"`
}

// RedisSource configures the Redis backend.
type RedisSource struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// PostgresSource configures the PostgreSQL backend.
type PostgresSource struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
	Table   string `yaml:"table"`
}

// CacheConfig controls the source caching decorator.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
}

// RateLimitConfig throttles backend fetches.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerSecond int  `yaml:"requests_per_second"`
	BurstSize         int  `yaml:"burst_size"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// TracingConfig contains OpenTelemetry tracing settings.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`     // OTLP endpoint (e.g., "localhost:4317")
	Exporter    string  `yaml:"exporter"`     // grpc or http
	ServiceName string  `yaml:"service_name"` // Service name for traces
	SampleRate  float64 `yaml:"sample_rate"`  // Sampling rate (0.0 to 1.0)
	Insecure    bool    `yaml:"insecure"`     // Use insecure connection (no TLS)
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Session: SessionConfig{
			EnvKey:    "SECRET_FILES",
			Separator: ",",
		},
		Sources: SourcesConfig{
			Env: EnvSource{Enabled: true},
		},
		Cache: CacheConfig{
			Enabled: false,
			TTL:     5 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:           false,
			RequestsPerSecond: 10,
			BurstSize:         5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9464",
			Path:    "/metrics",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			Endpoint:    "localhost:4317",
			Exporter:    "grpc",
			ServiceName: "secretscope",
			SampleRate:  1.0,
			Insecure:    true,
		},
	}
}

// LoadFromFile reads and parses a YAML configuration file.
// Environment variables in the format ${VAR_NAME} are expanded. Unknown
// keys are rejected rather than silently accepted.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if !c.Sources.Env.Enabled && !c.Sources.File.Enabled && !c.Sources.Vault.Enabled &&
		!c.Sources.AWSSM.Enabled && !c.Sources.S3.Enabled && !c.Sources.Redis.Enabled &&
		!c.Sources.Postgres.Enabled {
		return fmt.Errorf("at least one secret source must be enabled")
	}

	if c.Sources.File.Enabled && c.Sources.File.Dir == "" {
		return fmt.Errorf("sources.file.dir is required when the file source is enabled")
	}
	if c.Sources.Vault.Enabled && c.Sources.Vault.Address == "" {
		return fmt.Errorf("sources.vault.address is required when the vault source is enabled")
	}
	if c.Sources.S3.Enabled && c.Sources.S3.Bucket == "" {
		return fmt.Errorf("sources.s3.bucket is required when the s3 source is enabled")
	}
	if c.Sources.Redis.Enabled && c.Sources.Redis.Addr == "" {
		return fmt.Errorf("sources.redis.addr is required when the redis source is enabled")
	}
	if c.Sources.Postgres.Enabled && c.Sources.Postgres.DSN == "" {
		return fmt.Errorf("sources.postgres.dsn is required when the postgres source is enabled")
	}

	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive when caching is enabled")
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate_limit.requests_per_second must be positive")
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("invalid logging.format: %q", c.Logging.Format)
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing.sample_rate must be between 0 and 1")
	}
	switch c.Tracing.Exporter {
	case "", "grpc", "http":
	default:
		return fmt.Errorf("invalid tracing.exporter: %q", c.Tracing.Exporter)
	}

	return nil
}
