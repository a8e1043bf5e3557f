// Package config loads service configuration from a YAML file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Dataset source kinds.
const (
	SourceFile  = "file"
	SourceDir   = "dir"
	SourceS3    = "s3"
	SourceGCS   = "gcs"
	SourceAzure = "azure"
)

// Artifact cache backends.
const (
	CacheMemory = "memory"
	CacheBadger = "badger"
)

// DatasetConfig locates the sales data.
type DatasetConfig struct {
	Source string   `yaml:"source"`         // file, dir, s3, gcs, azure
	Path   string   `yaml:"path,omitempty"` // file path, or directory for "dir"
	Keys   []string `yaml:"keys,omitempty"` // object keys combined in order

	Bucket    string `yaml:"bucket,omitempty"`
	Region    string `yaml:"region,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	PathStyle bool   `yaml:"path_style,omitempty"`
	KeyID     string `yaml:"-"`
	Secret    string `yaml:"-"`

	GCSKeyFile string `yaml:"gcs_key_file,omitempty"`

	AzureAccount   string `yaml:"azure_account,omitempty"`
	AzureKey       string `yaml:"-"`
	AzureContainer string `yaml:"azure_container,omitempty"`

	RefreshSchedule   string `yaml:"refresh_schedule,omitempty"` // cron spec; empty disables
	DefaultYear       int    `yaml:"default_year,omitempty"`
	SubstringFallback bool   `yaml:"substring_fallback,omitempty"`
}

// TranslatorConfig configures the Gemini translator.
type TranslatorConfig struct {
	APIKey   string        `yaml:"-"`
	Model    string        `yaml:"model,omitempty"`
	Endpoint string        `yaml:"endpoint,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`
}

// ArtifactConfig configures the report cache.
type ArtifactConfig struct {
	Backend string        `yaml:"backend"`        // memory, badger
	Path    string        `yaml:"path,omitempty"` // badger directory
	TTL     time.Duration `yaml:"ttl,omitempty"`
}

// ChannelConfig maps a delivery key to a destination.
type ChannelConfig struct {
	Key    string `yaml:"key"`
	Name   string `yaml:"name"`
	Target string `yaml:"target"` // Slack channel ID or AMQP routing key
}

// SlackConfig configures Slack delivery.
type SlackConfig struct {
	Token    string          `yaml:"-"`
	BaseURL  string          `yaml:"base_url,omitempty"`
	Channels []ChannelConfig `yaml:"channels,omitempty"`
}

// AMQPConfig configures RabbitMQ delivery.
type AMQPConfig struct {
	URL      string          `yaml:"-"`
	Exchange string          `yaml:"exchange,omitempty"`
	Channels []ChannelConfig `yaml:"channels,omitempty"`
}

// Config is the complete service configuration.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	LogLevel   string `yaml:"log_level"`
	Env        string `yaml:"env"`

	RateLimitRPS       float64  `yaml:"rate_limit_rps"`
	RateLimitBurst     int      `yaml:"rate_limit_burst"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`

	Dataset    DatasetConfig    `yaml:"dataset"`
	Translator TranslatorConfig `yaml:"translator"`
	Artifacts  ArtifactConfig   `yaml:"artifacts"`
	Slack      SlackConfig      `yaml:"slack"`
	AMQP       AMQPConfig       `yaml:"amqp"`

	// Warnings collects non-fatal problems found while loading.
	Warnings []string `yaml:"-"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	return &Config{
		ListenAddr:         ":8080",
		LogLevel:           "info",
		Env:                "development",
		RateLimitRPS:       2,
		RateLimitBurst:     5,
		CORSAllowedOrigins: []string{"*"},
		Dataset:            DatasetConfig{Source: SourceFile, Path: "sales.csv", Region: "us-east-1"},
		Translator:         TranslatorConfig{Timeout: 30 * time.Second},
		Artifacts:          ArtifactConfig{Backend: CacheMemory},
		AMQP:               AMQPConfig{Exchange: "spektr.reports"},
	}
}

// Load reads path (when non-empty) over the defaults, then applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.ListenAddr, "SPEKTR_LISTEN_ADDR")
	setString(&c.LogLevel, "SPEKTR_LOG_LEVEL")
	setString(&c.Env, "SPEKTR_ENV")

	if v := os.Getenv("SPEKTR_RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RateLimitRPS = f
		}
	}
	if v := os.Getenv("SPEKTR_RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateLimitBurst = n
		}
	}
	if v := os.Getenv("SPEKTR_CORS_ALLOWED_ORIGINS"); v != "" {
		c.CORSAllowedOrigins = splitList(v)
	}

	setString(&c.Dataset.Source, "SPEKTR_DATASET_SOURCE")
	setString(&c.Dataset.Path, "SPEKTR_DATASET_PATH")
	if v := os.Getenv("SPEKTR_DATASET_KEYS"); v != "" {
		c.Dataset.Keys = splitList(v)
	}
	setString(&c.Dataset.Bucket, "SPEKTR_BUCKET")
	setString(&c.Dataset.Region, "AWS_REGION")
	setString(&c.Dataset.Endpoint, "SPEKTR_S3_ENDPOINT")
	setString(&c.Dataset.KeyID, "AWS_ACCESS_KEY_ID")
	setString(&c.Dataset.Secret, "AWS_SECRET_ACCESS_KEY")
	setString(&c.Dataset.GCSKeyFile, "GOOGLE_APPLICATION_CREDENTIALS")
	setString(&c.Dataset.AzureAccount, "AZURE_STORAGE_ACCOUNT")
	setString(&c.Dataset.AzureKey, "AZURE_STORAGE_KEY")
	setString(&c.Dataset.RefreshSchedule, "SPEKTR_REFRESH_SCHEDULE")

	setString(&c.Translator.APIKey, "GEMINI_API_KEY")
	setString(&c.Translator.Model, "SPEKTR_GEMINI_MODEL")

	setString(&c.Artifacts.Backend, "SPEKTR_CACHE_BACKEND")
	setString(&c.Artifacts.Path, "SPEKTR_CACHE_PATH")

	setString(&c.Slack.Token, "SLACK_BOT_TOKEN")
	setString(&c.AMQP.URL, "SPEKTR_AMQP_URL")
}

// Validate checks that the configuration is internally consistent.
// Missing optional credentials are recorded as warnings.
func (c *Config) Validate() error {
	var errs []error

	switch c.Dataset.Source {
	case SourceFile:
		if c.Dataset.Path == "" {
			errs = append(errs, errors.New("dataset.path is required for source \"file\""))
		}
	case SourceDir:
		if c.Dataset.Path == "" || len(c.Dataset.Keys) == 0 {
			errs = append(errs, errors.New("dataset.path and dataset.keys are required for source \"dir\""))
		}
	case SourceS3, SourceGCS:
		if c.Dataset.Bucket == "" || len(c.Dataset.Keys) == 0 {
			errs = append(errs, fmt.Errorf("dataset.bucket and dataset.keys are required for source %q", c.Dataset.Source))
		}
	case SourceAzure:
		if c.Dataset.AzureAccount == "" || c.Dataset.AzureContainer == "" || len(c.Dataset.Keys) == 0 {
			errs = append(errs, errors.New("dataset.azure_account, dataset.azure_container and dataset.keys are required for source \"azure\""))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown dataset.source %q", c.Dataset.Source))
	}

	switch c.Artifacts.Backend {
	case CacheMemory:
	case CacheBadger:
		if c.Artifacts.Path == "" {
			c.Warnings = append(c.Warnings, "artifacts.path not set; badger cache runs in memory")
		}
	default:
		errs = append(errs, fmt.Errorf("unknown artifacts.backend %q", c.Artifacts.Backend))
	}

	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		errs = append(errs, errors.New("rate_limit_rps and rate_limit_burst must be positive"))
	}
	if c.Translator.Timeout < 0 {
		errs = append(errs, errors.New("translator.timeout must not be negative"))
	}

	seen := make(map[string]bool)
	for _, ch := range append(append([]ChannelConfig(nil), c.Slack.Channels...), c.AMQP.Channels...) {
		if ch.Key == "" || ch.Target == "" {
			errs = append(errs, fmt.Errorf("delivery channel %q needs a key and a target", ch.Name))
			continue
		}
		if seen[ch.Key] {
			errs = append(errs, fmt.Errorf("duplicate delivery channel key %q", ch.Key))
		}
		seen[ch.Key] = true
	}

	if c.Translator.APIKey == "" {
		c.Warnings = append(c.Warnings, "GEMINI_API_KEY not set; natural-language queries will fail")
	}
	if len(c.Slack.Channels) > 0 && c.Slack.Token == "" {
		c.Warnings = append(c.Warnings, "SLACK_BOT_TOKEN not set; slack delivery will fail")
	}
	if len(c.AMQP.Channels) > 0 && c.AMQP.URL == "" {
		errs = append(errs, errors.New("SPEKTR_AMQP_URL is required when amqp channels are configured"))
	}

	return errors.Join(errs...)
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
