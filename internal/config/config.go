// Package config manages application configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"chanfeed/internal/errs"
	"chanfeed/internal/retry"
)

// Environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds all application configuration. Durations in the config file
// are strings such as "15s" or "2m".
type Config struct {
	// Catalog settings
	APIKey            string        `json:"api_key"`
	RequestTimeout    time.Duration `json:"request_timeout"`
	RequestsPerSecond float64       `json:"requests_per_second"`
	MaxResults        int           `json:"max_results"`

	// Retry settings
	MaxRetries     int           `json:"max_retries"`
	InitialBackoff time.Duration `json:"initial_backoff"`
	MaxBackoff     time.Duration `json:"max_backoff"`

	// Feed settings
	DataDir      string `json:"data_dir"`
	ChannelsFile string `json:"channels_file"`
	VideosFile   string `json:"videos_file"`
	TaxonomyFile string `json:"taxonomy_file"`
	WindowDays   int    `json:"window_days"`
	Concurrency  int    `json:"concurrency"`

	// Publish settings
	RepoDir     string        `json:"repo_dir"`
	Remote      string        `json:"remote"`
	Branch      string        `json:"branch"`
	GitTimeout  time.Duration `json:"git_timeout"`
	LockTimeout time.Duration `json:"lock_timeout"`

	// Service settings
	Environment              string   `json:"environment"`
	AllowPlaceholderChannels bool     `json:"allow_placeholder_channels"`
	Addr                     string   `json:"addr"`
	CORSOrigins              []string `json:"cors_origins"`
	LogLevel                 string   `json:"log_level"`
	LogFormat                string   `json:"log_format"`
}

// DefaultConfig returns configuration with safe defaults.
func DefaultConfig() *Config {
	return &Config{
		RequestTimeout:    15 * time.Second,
		RequestsPerSecond: 5,
		MaxResults:        20,
		MaxRetries:        3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        8 * time.Second,
		DataDir:           ".",
		ChannelsFile:      "channels.json",
		VideosFile:        "videos.json",
		WindowDays:        7,
		RepoDir:           ".",
		GitTimeout:        2 * time.Minute,
		Environment:       EnvDevelopment,
		Addr:              ":3001",
		CORSOrigins:       []string{"http://localhost:3000"},
		LogLevel:          "info",
		LogFormat:         "json",
	}
}

// Load loads configuration from environment variables, config file, and applies defaults.
// Priority: env vars > config file > defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.loadFromFile(searchPaths()); err != nil {
		// Config file is optional
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// searchPaths lists candidate config files. CHANFEED_CONFIG, when set, is
// the only candidate.
func searchPaths() []string {
	if p := os.Getenv("CHANFEED_CONFIG"); p != "" {
		return []string{p}
	}
	paths := []string{"chanfeed.json"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "chanfeed", "chanfeed.json"))
	}
	return paths
}

// loadFromFile loads the first existing file in paths.
func (c *Config) loadFromFile(paths []string) error {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}

		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		return nil
	}

	return os.ErrNotExist
}

// duration decodes a JSON duration string. Bare numbers are rejected so
// that 15 is never read as 15ns.
type duration time.Duration

func (d *duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string such as \"15s\", got %s", b)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = duration(v)
	return nil
}

// UnmarshalJSON decodes the config file, reading duration fields as
// duration strings. Keys absent from data keep their current values.
func (c *Config) UnmarshalJSON(data []byte) error {
	type plain Config
	aux := struct {
		*plain
		RequestTimeout *duration `json:"request_timeout"`
		InitialBackoff *duration `json:"initial_backoff"`
		MaxBackoff     *duration `json:"max_backoff"`
		GitTimeout     *duration `json:"git_timeout"`
		LockTimeout    *duration `json:"lock_timeout"`
	}{
		plain:          (*plain)(c),
		RequestTimeout: (*duration)(&c.RequestTimeout),
		InitialBackoff: (*duration)(&c.InitialBackoff),
		MaxBackoff:     (*duration)(&c.MaxBackoff),
		GitTimeout:     (*duration)(&c.GitTimeout),
		LockTimeout:    (*duration)(&c.LockTimeout),
	}
	return json.Unmarshal(data, &aux)
}

// loadFromEnv overrides config with environment variables.
func (c *Config) loadFromEnv() {
	if v := os.Getenv("CHANFEED_YOUTUBE_API_KEY"); v != "" {
		c.APIKey = v
	} else if v := os.Getenv("YOUTUBE_API_KEY"); v != "" {
		c.APIKey = v
	}
	envDuration("CHANFEED_REQUEST_TIMEOUT", &c.RequestTimeout)
	if v := os.Getenv("CHANFEED_REQUESTS_PER_SECOND"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RequestsPerSecond = f
		}
	}
	envInt("CHANFEED_MAX_RESULTS", &c.MaxResults)

	envInt("CHANFEED_MAX_RETRIES", &c.MaxRetries)
	envDuration("CHANFEED_INITIAL_BACKOFF", &c.InitialBackoff)
	envDuration("CHANFEED_MAX_BACKOFF", &c.MaxBackoff)

	envString("CHANFEED_DATA_DIR", &c.DataDir)
	envString("CHANFEED_CHANNELS_FILE", &c.ChannelsFile)
	envString("CHANFEED_VIDEOS_FILE", &c.VideosFile)
	envString("CHANFEED_TAXONOMY_FILE", &c.TaxonomyFile)
	envInt("CHANFEED_WINDOW_DAYS", &c.WindowDays)
	envInt("CHANFEED_CONCURRENCY", &c.Concurrency)

	envString("CHANFEED_REPO_DIR", &c.RepoDir)
	envString("CHANFEED_REMOTE", &c.Remote)
	envString("CHANFEED_BRANCH", &c.Branch)
	envDuration("CHANFEED_GIT_TIMEOUT", &c.GitTimeout)
	envDuration("CHANFEED_LOCK_TIMEOUT", &c.LockTimeout)

	envString("CHANFEED_ENV", &c.Environment)
	if v := os.Getenv("CHANFEED_ALLOW_PLACEHOLDER_CHANNELS"); v != "" {
		c.AllowPlaceholderChannels = v == "true" || v == "1"
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Addr = ":" + v
	}
	envString("CHANFEED_ADDR", &c.Addr)
	if v := os.Getenv("CHANFEED_CORS_ORIGINS"); v != "" {
		c.CORSOrigins = splitList(v)
	}
	envString("CHANFEED_LOG_LEVEL", &c.LogLevel)
	envString("CHANFEED_LOG_FORMAT", &c.LogFormat)
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	switch {
	case c.WindowDays < 1 || c.WindowDays > 365:
		return invalid("window_days must be between 1 and 365")
	case c.MaxResults < 1 || c.MaxResults > 50:
		return invalid("max_results must be between 1 and 50")
	case c.RequestTimeout <= 0:
		return invalid("request_timeout must be positive")
	case c.RequestsPerSecond < 0:
		return invalid("requests_per_second must be non-negative")
	case c.MaxRetries < 1:
		return invalid("max_retries must be at least 1")
	case c.InitialBackoff <= 0:
		return invalid("initial_backoff must be positive")
	case c.MaxBackoff < c.InitialBackoff:
		return invalid("max_backoff must be >= initial_backoff")
	case c.Concurrency < 0:
		return invalid("concurrency must be non-negative")
	case c.ChannelsFile == "" || c.VideosFile == "":
		return invalid("channels_file and videos_file are required")
	case c.Environment != EnvDevelopment && c.Environment != EnvProduction:
		return invalid(fmt.Sprintf("environment must be %q or %q", EnvDevelopment, EnvProduction))
	case c.AllowPlaceholderChannels && c.IsProduction():
		return invalid("placeholder channels are not allowed in production")
	case c.LogFormat != "json" && c.LogFormat != "console":
		return invalid("log_format must be json or console")
	}
	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("config: %w: %s", errs.ErrValidation, msg)
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// ChannelsPath returns the registry document location.
func (c *Config) ChannelsPath() string { return c.dataPath(c.ChannelsFile) }

// VideosPath returns the feed document location.
func (c *Config) VideosPath() string { return c.dataPath(c.VideosFile) }

// LockPath returns the base path of the publish lock file.
func (c *Config) LockPath() string { return filepath.Join(c.DataDir, ".chanfeed") }

func (c *Config) dataPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

// RepoFiles returns the data documents relative to RepoDir, as staged on
// publish.
func (c *Config) RepoFiles() ([]string, error) {
	repo, err := filepath.Abs(c.RepoDir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, p := range []string{c.ChannelsPath(), c.VideosPath()} {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		rel, err := filepath.Rel(repo, abs)
		if err != nil || strings.HasPrefix(rel, "..") {
			return nil, invalid(fmt.Sprintf("%s is outside repo_dir %s", p, c.RepoDir))
		}
		out = append(out, filepath.ToSlash(rel))
	}
	return out, nil
}

// RetryConfig returns the catalog retry policy.
func (c *Config) RetryConfig() retry.Config {
	return retry.Config{
		MaxAttempts:    c.MaxRetries,
		InitialBackoff: c.InitialBackoff,
		MaxBackoff:     c.MaxBackoff,
		Multiplier:     2.0,
	}
}
