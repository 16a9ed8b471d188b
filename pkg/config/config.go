// Package config loads the service configuration from file and environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full verbatimd configuration.
type Config struct {
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`

	HTTPAddr string `mapstructure:"http_addr"`

	Sessions SessionsConfig `mapstructure:"sessions"`
	Jobs     JobsConfig     `mapstructure:"jobs"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`

	// Providers maps provider name to its credentials and base override.
	Providers map[string]ProviderConfig `mapstructure:"providers"`
}

// SessionsConfig tunes the live-session core.
type SessionsConfig struct {
	Dir          string        `mapstructure:"dir"`
	DrainTimeout time.Duration `mapstructure:"drain_timeout"`
	Watchdog     time.Duration `mapstructure:"watchdog"`
	Cadence      time.Duration `mapstructure:"cadence"`
	// RedactPII masks emails and phone numbers in transcript log lines.
	RedactPII bool `mapstructure:"redact_pii"`
}

// MetricsConfig controls the operational event stream.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Path receives JSONL metric lines; empty means stdout.
	Path string `mapstructure:"path"`
}

// JobsConfig tunes the async callback pipeline.
type JobsConfig struct {
	StorePath      string        `mapstructure:"store_path"`
	PublicBaseURL  string        `mapstructure:"public_base_url"`
	CallbackSecret string        `mapstructure:"callback_secret"`
	SignedURLTTL   time.Duration `mapstructure:"signed_url_ttl"`

	S3Region         string `mapstructure:"s3_region"`
	S3Bucket         string `mapstructure:"s3_bucket"`
	S3AccessKey      string `mapstructure:"s3_access_key"`
	S3SecretKey      string `mapstructure:"s3_secret_key"`
	S3Endpoint       string `mapstructure:"s3_endpoint"`
	S3ForcePathStyle bool   `mapstructure:"s3_force_path_style"`
}

// ProviderConfig carries per-backend credentials.
type ProviderConfig struct {
	APIKey  string         `mapstructure:"api_key"`
	APIBase string         `mapstructure:"api_base"`
	Extra   map[string]any `mapstructure:"extra"`
}

// Load reads the config file at path (optional) with VERBATIM_* environment
// overrides.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("sessions.dir", "sessions")
	v.SetDefault("sessions.drain_timeout", 5*time.Second)
	v.SetDefault("sessions.watchdog", 30*time.Second)
	v.SetDefault("sessions.cadence", 100*time.Millisecond)
	v.SetDefault("jobs.store_path", "jobs.db")
	v.SetDefault("jobs.signed_url_ttl", time.Hour)
	v.SetDefault("metrics.enabled", false)

	v.SetEnvPrefix("VERBATIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
