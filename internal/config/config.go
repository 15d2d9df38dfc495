// Package config loads the server configuration. Values are layered:
// built-in defaults, then an optional YAML file, then NAJDISCE_* environment
// variables. Command-line flags are applied last by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/erazemk/najdisce/internal/imaging"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "NAJDISCE_"

// Config holds the server configuration.
type Config struct {
	Addr    string `yaml:"addr"`
	DBPath  string `yaml:"db"`
	LogPath string `yaml:"log"`

	// JWTSecret signs session tokens. When empty the secret stored in the
	// database is used, generated on first run.
	JWTSecret string `yaml:"jwt_secret"`

	Sentry SentryConfig `yaml:"sentry"`
	Report ReportConfig `yaml:"report"`
	Images ImageConfig  `yaml:"images"`
}

// SentryConfig configures error reporting. Reporting is off without a DSN.
type SentryConfig struct {
	DSN         string `yaml:"dsn"`
	Environment string `yaml:"environment"`
}

// ReportConfig configures the retry of the reporter's item copy.
type ReportConfig struct {
	CopyAttempts        int           `yaml:"copy_attempts"`
	CopyInitialInterval time.Duration `yaml:"copy_initial_interval"`
}

// ImageConfig configures photo uploads.
type ImageConfig struct {
	MaxDimension int   `yaml:"max_dimension"`
	Quality      int   `yaml:"quality"`
	MaxBytes     int64 `yaml:"max_bytes"`
}

// Options returns the imaging options for uploads.
func (c ImageConfig) Options() imaging.Options {
	return imaging.Options{
		MaxDimension: c.MaxDimension,
		Quality:      c.Quality,
		MaxBytes:     c.MaxBytes,
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Addr:   ":8080",
		DBPath: "najdisce.sqlite3",
		Sentry: SentryConfig{Environment: "production"},
		Report: ReportConfig{
			CopyAttempts:        4,
			CopyInitialInterval: 100 * time.Millisecond,
		},
		Images: ImageConfig{
			MaxDimension: imaging.DefaultMaxDimension,
			Quality:      imaging.DefaultQuality,
			MaxBytes:     imaging.DefaultMaxBytes,
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path, if path is
// not empty, and then with the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.loadEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}

	str("ADDR", &c.Addr)
	str("DB", &c.DBPath)
	str("LOG", &c.LogPath)
	str("JWT_SECRET", &c.JWTSecret)
	str("SENTRY_DSN", &c.Sentry.DSN)
	str("SENTRY_ENVIRONMENT", &c.Sentry.Environment)

	if v, ok := lookup(EnvPrefix + "COPY_ATTEMPTS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing %sCOPY_ATTEMPTS: %w", EnvPrefix, err)
		}
		c.Report.CopyAttempts = n
	}
	if v, ok := lookup(EnvPrefix + "COPY_INITIAL_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parsing %sCOPY_INITIAL_INTERVAL: %w", EnvPrefix, err)
		}
		c.Report.CopyInitialInterval = d
	}
	if v, ok := lookup(EnvPrefix + "MAX_UPLOAD_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parsing %sMAX_UPLOAD_BYTES: %w", EnvPrefix, err)
		}
		c.Images.MaxBytes = n
	}
	return nil
}

// Validate checks that the configuration can be served.
func (c *Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("database path is required"))
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("jwt secret must be at least 32 characters"))
	}
	if c.Report.CopyAttempts < 1 {
		errs = append(errs, errors.New("report copy attempts must be at least 1"))
	}
	if c.Report.CopyInitialInterval <= 0 {
		errs = append(errs, errors.New("report copy interval must be positive"))
	}
	if c.Images.MaxDimension < 1 {
		errs = append(errs, errors.New("image max dimension must be positive"))
	}
	if c.Images.Quality < 1 || c.Images.Quality > 100 {
		errs = append(errs, errors.New("image quality must be between 1 and 100"))
	}
	if c.Images.MaxBytes < 1 {
		errs = append(errs, errors.New("image max bytes must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
