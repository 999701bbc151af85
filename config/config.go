// Package config loads the fanadmin configuration file.
package config

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/fanadmin/api"
	"github.com/jonwraymond/fanadmin/debounce"
	"github.com/jonwraymond/fanadmin/httpclient"
	"github.com/jonwraymond/fanadmin/observe"
	"github.com/jonwraymond/fanadmin/query"
	"github.com/jonwraymond/fanadmin/secret"
)

// EnvPath overrides the default configuration path.
const EnvPath = "FANADMIN_CONFIG"

// Config is the whole configuration file.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Login   LoginConfig   `yaml:"login"`
	Session SessionConfig `yaml:"session"`
	Cache   CacheConfig   `yaml:"cache"`
	Search  SearchConfig  `yaml:"search"`
	Log     LogConfig     `yaml:"log"`
	Observe ObserveConfig `yaml:"observe"`
}

// APIConfig locates the admin API.
type APIConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
	PageSize  int           `yaml:"page_size"`
}

// LoginConfig holds credentials for non-interactive login. Values are
// usually secret references.
type LoginConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// SessionConfig places the two session scopes. The access token lives in
// RuntimeDir, which the OS empties on reboot; the refresh token and profile
// live in Dir, or in Redis when Redis.Addr is set.
type SessionConfig struct {
	Dir        string      `yaml:"dir"`
	RuntimeDir string      `yaml:"runtime_dir"`
	Redis      RedisConfig `yaml:"redis"`
}

// RedisConfig selects a shared persistent scope.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// CacheConfig tunes the query cache.
type CacheConfig struct {
	StaleTime  time.Duration `yaml:"stale_time"`
	GCTime     time.Duration `yaml:"gc_time"`
	GCInterval time.Duration `yaml:"gc_interval"`
	Retry      RetryConfig   `yaml:"retry"`
}

// RetryConfig retries failed fetches. Attempts below 2 disable retry.
type RetryConfig struct {
	Attempts     int           `yaml:"attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

// SearchConfig tunes search input.
type SearchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// ObserveConfig selects telemetry exporters.
type ObserveConfig struct {
	Tracing struct {
		Enabled   bool    `yaml:"enabled"`
		Exporter  string  `yaml:"exporter"`
		SamplePct float64 `yaml:"sample_pct"`
	} `yaml:"tracing"`
	Metrics struct {
		Enabled  bool   `yaml:"enabled"`
		Exporter string `yaml:"exporter"`
	} `yaml:"metrics"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	var c Config
	c.applyDefaults()
	return c
}

// DefaultPath returns $FANADMIN_CONFIG or <user config dir>/fanadmin/config.yaml.
func DefaultPath() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "fanadmin.yaml"
	}
	return filepath.Join(dir, "fanadmin", "config.yaml")
}

// Load reads path. A missing file yields Default unless required is set.
// Unknown keys are rejected.
func Load(path string, required bool) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is chosen by the operator
	if errors.Is(err, fs.ErrNotExist) && !required {
		return Default(), nil
	}
	if err != nil {
		return Config{}, zerr.With(zerr.Wrap(err, "failed to read config file"), "path", path)
	}
	return Parse(data)
}

// Parse decodes YAML and applies defaults.
func Parse(data []byte) (Config, error) {
	var c Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, zerr.Wrap(err, "failed to parse config file")
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = httpclient.DefaultBaseURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = 30 * time.Second
	}
	if c.API.UserAgent == "" {
		c.API.UserAgent = "fanadmin"
	}
	if c.API.PageSize == 0 {
		c.API.PageSize = api.DefaultPageSize
	}
	if c.Session.Dir == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			c.Session.Dir = filepath.Join(dir, "fanadmin")
		} else {
			c.Session.Dir = ".fanadmin"
		}
	}
	if c.Session.RuntimeDir == "" {
		c.Session.RuntimeDir = filepath.Join(os.TempDir(), "fanadmin-"+userTag())
	}
	if c.Session.Redis.Prefix == "" {
		c.Session.Redis.Prefix = "fanadmin:session:"
	}
	if c.Cache.StaleTime == 0 {
		c.Cache.StaleTime = query.DefaultStaleTime
	}
	if c.Cache.GCTime == 0 {
		c.Cache.GCTime = query.DefaultGCTime
	}
	if c.Cache.GCInterval == 0 {
		c.Cache.GCInterval = query.DefaultGCInterval
	}
	if c.Search.Debounce == 0 {
		c.Search.Debounce = debounce.DefaultSearchDelay
	}
	if c.Log.Level == "" {
		c.Log.Level = "warn"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 10
	}
	if c.Observe.Tracing.SamplePct == 0 {
		c.Observe.Tracing.SamplePct = 1
	}
}

// Validate checks values Parse cannot default.
func (c Config) Validate() error {
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") &&
		!strings.Contains(c.API.BaseURL, "${") && !strings.HasPrefix(c.API.BaseURL, "secretref:") {
		return zerr.With(zerr.New("api.base_url must be an http(s) URL"), "base_url", c.API.BaseURL)
	}
	if c.API.Timeout < 0 {
		return zerr.With(zerr.New("api.timeout must not be negative"), "timeout", c.API.Timeout.String())
	}
	if c.API.PageSize < 0 {
		return zerr.With(zerr.New("api.page_size must be positive"), "page_size", strconv.Itoa(c.API.PageSize))
	}
	if c.Cache.StaleTime < 0 || c.Cache.GCTime < 0 {
		return zerr.New("cache durations must not be negative")
	}
	if r := c.Cache.Retry; r.Attempts < 0 || r.InitialDelay < 0 || r.MaxDelay < 0 {
		return zerr.With(zerr.New("cache.retry values must not be negative"), "attempts", strconv.Itoa(r.Attempts))
	}
	oc := c.ObserveConfig("")
	if err := oc.Validate(); err != nil {
		return zerr.Wrap(err, "invalid observe settings")
	}
	return nil
}

// Resolve expands environment variables and secret references in the
// values that may carry them.
func (c *Config) Resolve(ctx context.Context, r *secret.Resolver) error {
	fields := []struct {
		name string
		ptr  *string
	}{
		{"api.base_url", &c.API.BaseURL},
		{"login.email", &c.Login.Email},
		{"login.password", &c.Login.Password},
		{"session.dir", &c.Session.Dir},
		{"session.runtime_dir", &c.Session.RuntimeDir},
		{"session.redis.addr", &c.Session.Redis.Addr},
		{"session.redis.password", &c.Session.Redis.Password},
		{"log.file", &c.Log.File},
	}
	for _, f := range fields {
		if err := r.ResolveInPlace(ctx, f.ptr); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to resolve config value"), "key", f.name)
		}
	}
	return nil
}

// CachePolicy returns the default query policy. Only failures that may
// succeed on repeat are retried.
func (c Config) CachePolicy() query.Policy {
	p := query.Policy{StaleTime: c.Cache.StaleTime, GCTime: c.Cache.GCTime}
	if r := c.Cache.Retry; r.Attempts >= 2 {
		p.Retry = query.RetryPolicy{
			Attempts:     r.Attempts,
			InitialDelay: r.InitialDelay,
			MaxDelay:     r.MaxDelay,
			RetryIf:      httpclient.IsRetryable,
		}
	}
	return p
}

// ObserveConfig converts the telemetry settings.
func (c Config) ObserveConfig(version string) observe.Config {
	return observe.Config{
		ServiceName: "fanadmin",
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   c.Observe.Tracing.Enabled,
			Exporter:  c.Observe.Tracing.Exporter,
			SamplePct: c.Observe.Tracing.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  c.Observe.Metrics.Enabled,
			Exporter: c.Observe.Metrics.Exporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   c.Log.Level,
			File:    c.Log.File,
			Rotation: observe.RotationConfig{
				MaxSizeMB:  c.Log.MaxSizeMB,
				MaxBackups: c.Log.MaxBackups,
				MaxAgeDays: c.Log.MaxAgeDays,
			},
		},
	}
}

func userTag() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "default"
}
