// Package config provides configuration management for cute.
package config

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/ini.v1"

	"github.com/andresharpe/cute-sub002/internal/bulk"
	"github.com/andresharpe/cute-sub002/internal/constants"
	"github.com/andresharpe/cute-sub002/internal/ratelimit"
)

// Config is the on-disk configuration.
//
// INI format:
//
//	[contentful]
//	base_url = https://api.contentful.com
//	space_id = abc123
//	environment = master
//	api_key = <management-token>
//	default_locale = en-US
//
//	[bulk]
//	chunk_size = 100
//	max_in_flight = 5
//	max_concurrent = 50
//	permits = 7
//	budget = 0
//	window_ms = 1000
//	retry_limit = 10
//	page_size = 1000
//
//	[proxy]
//	mode = no-proxy
//	host =
//	port = 0
//	user =
//	no_proxy =
type Config struct {
	BaseURL       string
	SpaceID       string
	Environment   string
	APIKey        string
	DefaultLocale string

	ChunkSize     int
	MaxInFlight   int
	MaxConcurrent int
	Permits       int
	Budget        int // 0 means Permits
	WindowMS      int
	RetryLimit    int
	PageSize      int

	// Proxy settings. ProxyPassword is never written to disk.
	ProxyMode     string // no-proxy, system, basic, ntlm
	ProxyHost     string
	ProxyPort     int
	ProxyUser     string
	ProxyPassword string
	NoProxy       string
}

// Validation errors
var (
	ErrMissingBaseURL     = errors.New("base_url is required")
	ErrMissingSpaceID     = errors.New("space_id is required")
	ErrMissingEnvironment = errors.New("environment is required")
	ErrMissingAPIKey      = errors.New("api_key is required")
	ErrInvalidChunkSize   = errors.New("chunk_size must be between 1 and 200")
	ErrInvalidLimits      = errors.New("max_in_flight, max_concurrent, permits and window_ms must be positive")
	ErrInvalidProxyMode   = errors.New("proxy mode must be one of no-proxy, system, basic, ntlm")
	ErrInvalidPageSize    = errors.Newf("page_size must be between 1 and %d", constants.MaxListPageSize)
)

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		BaseURL:       DefaultBaseURL,
		Environment:   DefaultEnvironment,
		DefaultLocale: DefaultLocale,
		ChunkSize:     bulk.DefaultChunkSize,
		MaxInFlight:   bulk.DefaultMaxInFlight,
		MaxConcurrent: bulk.DefaultMaxConcurrent,
		Permits:       ratelimit.DefaultPermits,
		WindowMS:      int(ratelimit.DefaultWindow / time.Millisecond),
		RetryLimit:    ratelimit.DefaultRetryLimit,
		PageSize:      bulk.DefaultPageSize,
		ProxyMode:     "no-proxy",
	}
}

// Load reads configuration from an INI file.
// A missing file yields defaults and no error.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		path = DefaultConfigPath()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	file, err := ini.Load(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}

	cf := file.Section("contentful")
	cfg.BaseURL = cf.Key("base_url").MustString(cfg.BaseURL)
	cfg.SpaceID = cf.Key("space_id").String()
	cfg.Environment = cf.Key("environment").MustString(cfg.Environment)
	cfg.APIKey = cf.Key("api_key").String()
	cfg.DefaultLocale = cf.Key("default_locale").MustString(cfg.DefaultLocale)

	b := file.Section("bulk")
	cfg.ChunkSize = b.Key("chunk_size").MustInt(cfg.ChunkSize)
	cfg.MaxInFlight = b.Key("max_in_flight").MustInt(cfg.MaxInFlight)
	cfg.MaxConcurrent = b.Key("max_concurrent").MustInt(cfg.MaxConcurrent)
	cfg.Permits = b.Key("permits").MustInt(cfg.Permits)
	cfg.Budget = b.Key("budget").MustInt(0)
	cfg.WindowMS = b.Key("window_ms").MustInt(cfg.WindowMS)
	cfg.RetryLimit = b.Key("retry_limit").MustInt(cfg.RetryLimit)
	cfg.PageSize = b.Key("page_size").MustInt(cfg.PageSize)

	p := file.Section("proxy")
	cfg.ProxyMode = p.Key("mode").MustString(cfg.ProxyMode)
	cfg.ProxyHost = p.Key("host").String()
	cfg.ProxyPort = p.Key("port").MustInt(0)
	cfg.ProxyUser = p.Key("user").String()
	cfg.NoProxy = p.Key("no_proxy").String()

	return cfg, nil
}

// Save writes cfg to path, creating parent directories. The API key is
// stored in the file, so it is written with owner-only permissions.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	if err := os.MkdirAll(configDirOf(path), 0700); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	file := ini.Empty()

	cf, err := file.NewSection("contentful")
	if err != nil {
		return errors.Wrap(err, "failed to create contentful section")
	}
	cf.Key("base_url").SetValue(cfg.BaseURL)
	cf.Key("space_id").SetValue(cfg.SpaceID)
	cf.Key("environment").SetValue(cfg.Environment)
	cf.Key("api_key").SetValue(cfg.APIKey)
	cf.Key("default_locale").SetValue(cfg.DefaultLocale)

	b, err := file.NewSection("bulk")
	if err != nil {
		return errors.Wrap(err, "failed to create bulk section")
	}
	for _, kv := range []struct {
		key string
		v   int
	}{
		{"chunk_size", cfg.ChunkSize},
		{"max_in_flight", cfg.MaxInFlight},
		{"max_concurrent", cfg.MaxConcurrent},
		{"permits", cfg.Permits},
		{"budget", cfg.Budget},
		{"window_ms", cfg.WindowMS},
		{"retry_limit", cfg.RetryLimit},
		{"page_size", cfg.PageSize},
	} {
		b.Key(kv.key).SetValue(strconv.Itoa(kv.v))
	}

	p, err := file.NewSection("proxy")
	if err != nil {
		return errors.Wrap(err, "failed to create proxy section")
	}
	p.Key("mode").SetValue(cfg.ProxyMode)
	p.Key("host").SetValue(cfg.ProxyHost)
	p.Key("port").SetValue(strconv.Itoa(cfg.ProxyPort))
	p.Key("user").SetValue(cfg.ProxyUser)
	p.Key("no_proxy").SetValue(cfg.NoProxy)

	// Temporary file + rename so a crash never leaves a half-written config
	tmpPath := path + ".tmp"
	if err := file.SaveTo(tmpPath); err != nil {
		return errors.Wrap(err, "failed to write config")
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return errors.Wrap(err, "failed to set config permissions")
		}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "failed to save config")
	}
	return nil
}

// Validate checks everything needed to talk to the API and run bulk jobs.
func (c *Config) Validate() error {
	if err := c.ValidateForConnection(); err != nil {
		return err
	}
	if c.ChunkSize < 1 || c.ChunkSize > MaxChunkSize {
		return ErrInvalidChunkSize
	}
	if c.MaxInFlight < 1 || c.MaxConcurrent < 1 || c.Permits < 1 || c.WindowMS < 1 {
		return ErrInvalidLimits
	}
	if c.PageSize < 1 || c.PageSize > constants.MaxListPageSize {
		return ErrInvalidPageSize
	}
	switch strings.ToLower(c.ProxyMode) {
	case "", "no-proxy", "system", "basic", "ntlm":
	default:
		return ErrInvalidProxyMode
	}
	return nil
}

// ValidateForConnection checks only the connection settings.
func (c *Config) ValidateForConnection() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return ErrMissingBaseURL
	}
	if strings.TrimSpace(c.SpaceID) == "" {
		return ErrMissingSpaceID
	}
	if strings.TrimSpace(c.Environment) == "" {
		return ErrMissingEnvironment
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// LimiterConfig returns the shared rate limiter settings.
func (c *Config) LimiterConfig() ratelimit.Config {
	return ratelimit.Config{
		Permits:    c.Permits,
		Budget:     c.Budget,
		Window:     time.Duration(c.WindowMS) * time.Millisecond,
		RetryLimit: c.RetryLimit,
		Clock:      ratelimit.SystemClock{},
	}
}

// BulkOptions returns the orchestrator tuning.
func (c *Config) BulkOptions() bulk.Options {
	return bulk.Options{
		ChunkSize:     c.ChunkSize,
		MaxInFlight:   c.MaxInFlight,
		MaxConcurrent: c.MaxConcurrent,
		PageSize:      c.PageSize,
	}
}

// Overrides are command-line values that take precedence over the file.
// Zero values leave the loaded setting alone.
type Overrides struct {
	BaseURL       string
	SpaceID       string
	Environment   string
	ChunkSize     int
	MaxInFlight   int
	MaxConcurrent int
}

// Merge applies o on top of c.
func (c *Config) Merge(o Overrides) {
	if o.BaseURL != "" {
		c.BaseURL = o.BaseURL
	}
	if o.SpaceID != "" {
		c.SpaceID = o.SpaceID
	}
	if o.Environment != "" {
		c.Environment = o.Environment
	}
	if o.ChunkSize > 0 {
		c.ChunkSize = o.ChunkSize
	}
	if o.MaxInFlight > 0 {
		c.MaxInFlight = o.MaxInFlight
	}
	if o.MaxConcurrent > 0 {
		c.MaxConcurrent = o.MaxConcurrent
	}
}

// Redacted returns a copy safe for display.
func (c *Config) Redacted() Config {
	out := *c
	out.APIKey = MaskSecret(c.APIKey)
	if out.ProxyPassword != "" {
		out.ProxyPassword = "****"
	}
	return out
}

// MaskSecret keeps the last four characters of s.
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return strings.Repeat("*", 8) + s[len(s)-4:]
}
