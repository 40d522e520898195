package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresharpe/cute-sub002/internal/bulk"
	"github.com/andresharpe/cute-sub002/internal/ratelimit"
)

// TestLoadMissingFileReturnsDefaults verifies a missing config file yields the defaults.
func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.ini"))
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultEnvironment, cfg.Environment)
	assert.Equal(t, bulk.DefaultChunkSize, cfg.ChunkSize)
	assert.Equal(t, ratelimit.DefaultPermits, cfg.Permits)
	assert.Equal(t, 1000, cfg.WindowMS)
	assert.Equal(t, "no-proxy", cfg.ProxyMode)
}

// TestSaveLoadRoundTrip verifies a saved config loads back unchanged.
func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.ini")

	cfg := NewConfig()
	cfg.SpaceID = "space1"
	cfg.APIKey = "CFPAT-secret"
	cfg.Environment = "staging"
	cfg.ChunkSize = 50
	cfg.Budget = 5
	cfg.ProxyMode = "basic"
	cfg.ProxyHost = "proxy.corp"
	cfg.ProxyPort = 3128
	cfg.ProxyUser = "alice"
	cfg.ProxyPassword = "hunter2"

	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "space1", loaded.SpaceID)
	assert.Equal(t, "CFPAT-secret", loaded.APIKey)
	assert.Equal(t, "staging", loaded.Environment)
	assert.Equal(t, 50, loaded.ChunkSize)
	assert.Equal(t, 5, loaded.Budget)
	assert.Equal(t, "proxy.corp", loaded.ProxyHost)
	assert.Equal(t, 3128, loaded.ProxyPort)
	assert.Equal(t, "alice", loaded.ProxyUser)
	assert.Empty(t, loaded.ProxyPassword, "proxy password must never be persisted")

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temporary file should be renamed away")
}

// TestLoadPartialFileKeepsDefaults verifies keys absent from the file keep their defaults.
func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.ini")
	require.NoError(t, os.WriteFile(path, []byte("[contentful]\nspace_id = s\n\n[bulk]\nmax_in_flight = 2\n"), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "s", cfg.SpaceID)
	assert.Equal(t, 2, cfg.MaxInFlight)
	assert.Equal(t, bulk.DefaultMaxConcurrent, cfg.MaxConcurrent)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
}

// TestValidate verifies each limit is range checked.
func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := NewConfig()
		cfg.SpaceID = "space"
		cfg.APIKey = "key"
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"valid", func(*Config) {}, nil},
		{"no base url", func(c *Config) { c.BaseURL = " " }, ErrMissingBaseURL},
		{"no space", func(c *Config) { c.SpaceID = "" }, ErrMissingSpaceID},
		{"no environment", func(c *Config) { c.Environment = "" }, ErrMissingEnvironment},
		{"no key", func(c *Config) { c.APIKey = "" }, ErrMissingAPIKey},
		{"chunk too big", func(c *Config) { c.ChunkSize = MaxChunkSize + 1 }, ErrInvalidChunkSize},
		{"chunk zero", func(c *Config) { c.ChunkSize = 0 }, ErrInvalidChunkSize},
		{"no permits", func(c *Config) { c.Permits = 0 }, ErrInvalidLimits},
		{"bad proxy", func(c *Config) { c.ProxyMode = "socks" }, ErrInvalidProxyMode},
		{"page too big", func(c *Config) { c.PageSize = 1001 }, ErrInvalidPageSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

// TestLimiterConfigAndBulkOptions verifies the config maps onto limiter and bulk settings.
func TestLimiterConfigAndBulkOptions(t *testing.T) {
	cfg := NewConfig()
	cfg.Permits = 4
	cfg.Budget = 3
	cfg.WindowMS = 2000
	cfg.RetryLimit = 2
	cfg.ChunkSize = 20

	lc := cfg.LimiterConfig()
	assert.Equal(t, 4, lc.Permits)
	assert.Equal(t, 3, lc.Budget)
	assert.Equal(t, 2*time.Second, lc.Window)
	assert.Equal(t, 2, lc.RetryLimit)
	assert.NotNil(t, lc.Clock)

	opts := cfg.BulkOptions()
	assert.Equal(t, 20, opts.ChunkSize)
	assert.Equal(t, bulk.DefaultMaxInFlight, opts.MaxInFlight)
	assert.Equal(t, bulk.DefaultPageSize, opts.PageSize)
}

// TestMerge verifies flag overrides replace only the values they set.
func TestMerge(t *testing.T) {
	cfg := NewConfig()
	cfg.SpaceID = "file-space"

	cfg.Merge(Overrides{Environment: "dev", MaxInFlight: 9})
	assert.Equal(t, "file-space", cfg.SpaceID)
	assert.Equal(t, "dev", cfg.Environment)
	assert.Equal(t, 9, cfg.MaxInFlight)
	assert.Equal(t, bulk.DefaultChunkSize, cfg.ChunkSize)
}

// TestRedacted verifies the API key is masked for display.
func TestRedacted(t *testing.T) {
	cfg := NewConfig()
	cfg.APIKey = "CFPAT-abcdefgh1234"
	cfg.ProxyPassword = "pw"

	r := cfg.Redacted()
	assert.Equal(t, "********1234", r.APIKey)
	assert.Equal(t, "****", r.ProxyPassword)
	assert.Equal(t, "CFPAT-abcdefgh1234", cfg.APIKey, "original must be untouched")
	assert.Equal(t, "****", MaskSecret("abc"))
	assert.Empty(t, MaskSecret(""))
}

// TestResolveAPIKeySource verifies the key source precedence.
func TestResolveAPIKeySource(t *testing.T) {
	dir := t.TempDir()
	tokenFile := filepath.Join(dir, "token")
	require.NoError(t, os.WriteFile(tokenFile, []byte("\n  file-key  \n"), 0600))

	cfg := NewConfig()
	cfg.APIKey = "config-key"
	t.Setenv(APIKeyEnvVar, "env-key")

	key, src, err := ResolveAPIKeySource("flag-key", tokenFile, cfg)
	require.NoError(t, err)
	assert.Equal(t, "flag-key", key)
	assert.Equal(t, "flag", src)

	key, src, err = ResolveAPIKeySource("", tokenFile, cfg)
	require.NoError(t, err)
	assert.Equal(t, "file-key", key)
	assert.Equal(t, "token-file", src)

	key, src, err = ResolveAPIKeySource("", "", cfg)
	require.NoError(t, err)
	assert.Equal(t, "config-key", key)
	assert.Equal(t, "config", src)

	key, src, err = ResolveAPIKeySource("", "", NewConfig())
	require.NoError(t, err)
	assert.Equal(t, "env-key", key)
	assert.Equal(t, "environment", src)

	t.Setenv(APIKeyEnvVar, "")
	key, src, err = ResolveAPIKeySource("", "", nil)
	require.NoError(t, err)
	assert.Empty(t, key)
	assert.Empty(t, src)

	_, _, err = ResolveAPIKeySource("", filepath.Join(dir, "missing"), cfg)
	assert.Error(t, err)
}

// TestDefaultConfigPathHonoursXDG verifies XDG_CONFIG_HOME relocates the config file.
func TestDefaultConfigPathHonoursXDG(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("XDG_CONFIG_HOME is not consulted on Windows")
	}
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	assert.Equal(t, filepath.Join(dir, ConfigDir, "config.ini"), DefaultConfigPath())
}

// TestFileErrorsKeepCause verifies file failures are wrapped with context and
// still match the underlying os error.
func TestFileErrorsKeepCause(t *testing.T) {
	_, err := ReadTokenFile(filepath.Join(t.TempDir(), "missing-token"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "failed to read token file")

	// A directory passes the existence check but cannot be parsed.
	_, err = Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")

	cfg := NewConfig()
	cfg.BaseURL, cfg.SpaceID, cfg.Environment, cfg.APIKey = "https://api.example.com", "space", "master", "tok"
	cfg.PageSize = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidPageSize)
}
