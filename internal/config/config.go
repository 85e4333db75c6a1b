// Package config handles loading and validating the application configuration
// from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	domain "github.com/jmhart/catalog-tracker/pkg/types"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Detector  DetectorConfig  `yaml:"detector"`
	Feed      FeedConfig      `yaml:"feed"`
	Jobs      JobsConfig      `yaml:"jobs"`
	Retention RetentionConfig `yaml:"retention"`
	Clients   []ClientConfig  `yaml:"clients"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig defines the Echo HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig defines PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	PoolSize int    `yaml:"pool_size"`
}

// DSN returns a PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode,
	)
}

// DetectorConfig tunes the change detector's store retry policy.
type DetectorConfig struct {
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// FeedConfig defines catalog feed fetch settings shared by all clients.
type FeedConfig struct {
	APIKey   string        `yaml:"api_key"`
	PageSize int           `yaml:"page_size"`
	Timeout  time.Duration `yaml:"timeout"`
}

// JobsConfig defines background job coordinator settings.
type JobsConfig struct {
	MaxConcurrent    int           `yaml:"max_concurrent"`
	BatchesPerSecond float64       `yaml:"batches_per_second"`
	BatchBurst       int           `yaml:"batch_burst"`
	StaleRunTimeout  time.Duration `yaml:"stale_run_timeout"`
}

// RetentionConfig defines run history cleanup settings.
type RetentionConfig struct {
	MaxAgeDays      int           `yaml:"max_age_days"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// ClientConfig defines one scraping client namespace and its recurring
// ingestion schedule.
type ClientConfig struct {
	Name          string                `yaml:"name"`
	TargetURLs    []string              `yaml:"target_urls"`
	Categories    []string              `yaml:"categories"`
	MaxPages      int                   `yaml:"max_pages"`
	DiscountRules []domain.DiscountRule `yaml:"discount_rules"`
	Schedule      string                `yaml:"schedule"` // cron spec, empty disables
}

// RunConfig converts the client settings into a run configuration.
func (c *ClientConfig) RunConfig() domain.RunConfig {
	return domain.RunConfig{
		TargetURLs:    c.TargetURLs,
		Categories:    c.Categories,
		MaxPages:      c.MaxPages,
		DiscountRules: c.DiscountRules,
	}
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Load reads and parses a YAML config file, performing environment variable
// substitution and validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the YAML content.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyDatabaseDefaults(&cfg.Database)
	applyDetectorDefaults(&cfg.Detector)
	applyFeedDefaults(&cfg.Feed)
	applyJobsDefaults(&cfg.Jobs)
	applyRetentionDefaults(&cfg.Retention)
	applyLoggingDefaults(&cfg.Logging)
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 30 * time.Second
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 30 * time.Second
	}
}

func applyDatabaseDefaults(d *DatabaseConfig) {
	if d.Port == 0 {
		d.Port = 5432
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
	if d.PoolSize == 0 {
		d.PoolSize = 10
	}
}

func applyDetectorDefaults(d *DetectorConfig) {
	if d.MaxRetries == 0 {
		d.MaxRetries = 3
	}
	if d.RetryBackoff == 0 {
		d.RetryBackoff = 250 * time.Millisecond
	}
}

func applyFeedDefaults(f *FeedConfig) {
	if f.PageSize == 0 {
		f.PageSize = 100
	}
	if f.Timeout == 0 {
		f.Timeout = 30 * time.Second
	}
}

func applyJobsDefaults(j *JobsConfig) {
	if j.MaxConcurrent == 0 {
		j.MaxConcurrent = 4
	}
	if j.BatchesPerSecond == 0 {
		j.BatchesPerSecond = 2.0
	}
	if j.BatchBurst == 0 {
		j.BatchBurst = 4
	}
	if j.StaleRunTimeout == 0 {
		j.StaleRunTimeout = 2 * time.Hour
	}
}

func applyRetentionDefaults(r *RetentionConfig) {
	if r.MaxAgeDays == 0 {
		r.MaxAgeDays = 90
	}
	if r.CleanupInterval == 0 {
		r.CleanupInterval = 24 * time.Hour
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.Database.Host == "" {
		errs = append(errs, fmt.Errorf("database.host is required"))
	}
	if cfg.Database.Name == "" {
		errs = append(errs, fmt.Errorf("database.name is required"))
	}
	if cfg.Database.User == "" {
		errs = append(errs, fmt.Errorf("database.user is required"))
	}

	seen := map[string]bool{}
	for i := range cfg.Clients {
		c := &cfg.Clients[i]
		if c.Name == "" {
			errs = append(errs, fmt.Errorf("clients[%d].name is required", i))
			continue
		}
		if seen[c.Name] {
			errs = append(errs, fmt.Errorf("clients[%d].name %q is duplicated", i, c.Name))
		}
		seen[c.Name] = true

		for j, r := range c.DiscountRules {
			if r.PercentOff < 0 || r.PercentOff > 100 {
				errs = append(errs, fmt.Errorf(
					"clients[%d].discount_rules[%d].percent_off must be within [0, 100]", i, j,
				))
			}
			if r.AbsoluteOff < 0 {
				errs = append(errs, fmt.Errorf(
					"clients[%d].discount_rules[%d].absolute_off must not be negative", i, j,
				))
			}
		}
	}

	return errors.Join(errs...)
}
