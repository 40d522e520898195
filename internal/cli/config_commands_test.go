package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresharpe/cute-sub002/internal/config"
)

// runCLI executes args against a fresh command tree and returns stdout.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.APIKeyEnvVar, "")
	t.Setenv(ProxyPasswordEnvVar, "")

	root := NewRootCmd()
	AddCommands(root)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestConfigCmd(t *testing.T) {
	cmd := newConfigCmd()
	require.NotNil(t, cmd)
	assert.Equal(t, "config", cmd.Use)

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"init", "show", "test", "path"}, names)
}

func TestConfigInitHasForceFlag(t *testing.T) {
	cmd := newConfigInitCmd()
	assert.Equal(t, "init", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotNil(t, cmd.Flags().Lookup("force"))
}

func TestConfigInitWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.ini")

	// space, environment, token, base url, locale, proxy?
	answers := "space1\n\ntok-abcdef\n\nde-DE\nn\n"
	out, err := runCLI(t, answers, "config", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration saved to: "+path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "space1", cfg.SpaceID)
	assert.Equal(t, config.DefaultEnvironment, cfg.Environment)
	assert.Equal(t, "tok-abcdef", cfg.APIKey)
	assert.Equal(t, config.DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, "de-DE", cfg.DefaultLocale)
	assert.Equal(t, "no-proxy", cfg.ProxyMode)
}

func TestConfigInitWithBasicProxy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.ini")

	answers := "space1\nstaging\ntok\n\n\ny\nbasic\nproxy.local\n3128\nalice\n.internal\n"
	_, err := runCLI(t, answers, "config", "init", "--config", path)
	require.NoError(t, err)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "basic", cfg.ProxyMode)
	assert.Equal(t, "proxy.local", cfg.ProxyHost)
	assert.Equal(t, 3128, cfg.ProxyPort)
	assert.Equal(t, "alice", cfg.ProxyUser)
	assert.Equal(t, ".internal", cfg.NoProxy)
}

func TestConfigInitKeepsExistingWithoutForce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.ini")
	cfg := config.NewConfig()
	cfg.SpaceID = "original"
	cfg.APIKey = "tok"
	require.NoError(t, config.Save(cfg, path))

	out, err := runCLI(t, "other\n\ntok2\n\n\nn\n", "config", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "original", loaded.SpaceID)
}

func TestConfigInitEndOfInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.ini")
	_, err := runCLI(t, "", "config", "init", "--config", path)
	assert.Error(t, err)
	assert.NoFileExists(t, path)
}

func TestConfigShowMasksToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.ini")
	cfg := config.NewConfig()
	cfg.SpaceID = "space1"
	cfg.APIKey = "secret-token-9876"
	require.NoError(t, config.Save(cfg, path))

	out, err := runCLI(t, "", "config", "show", "--config", path, "--environment", "qa")
	require.NoError(t, err)
	assert.Contains(t, out, "space1")
	assert.Contains(t, out, "Environment:    qa")
	assert.Contains(t, out, "********9876")
	assert.NotContains(t, out, "secret-token-9876")
}

func TestConfigPathReportsMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.ini")
	out, err := runCLI(t, "", "config", "path", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "from --config flag")
	assert.Contains(t, out, path)
	assert.Contains(t, out, "File does not exist")
}

func TestConfigTestRequiresToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.ini")
	cfg := config.NewConfig()
	cfg.SpaceID = "space1"
	require.NoError(t, config.Save(cfg, path))

	_, err := runCLI(t, "", "config", "test", "--config", path)
	assert.ErrorIs(t, err, config.ErrMissingAPIKey)
}
