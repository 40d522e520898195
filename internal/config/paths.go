package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Connection defaults
const (
	DefaultBaseURL     = "https://api.contentful.com"
	DefaultEnvironment = "master"
	DefaultLocale      = "en-US"

	// MaxChunkSize is the largest number of entities a bulk action accepts.
	MaxChunkSize = 200
)

// ConfigDir is the configuration directory name.
const ConfigDir = "cute"

// APIKeyEnvVar is read when no other API key source is set.
const APIKeyEnvVar = "CONTENTFUL_MANAGEMENT_TOKEN"

// configDir returns the platform-appropriate config directory.
//   - Windows: %APPDATA%\cute
//   - Unix: $XDG_CONFIG_HOME/cute, falling back to ~/.config/cute
func configDir() string {
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, ConfigDir)
		}
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, ConfigDir)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", ConfigDir)
	}
	return ""
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	dir := configDir()
	if dir == "" {
		return "config.ini"
	}
	return filepath.Join(dir, "config.ini")
}

func configDirOf(path string) string {
	return filepath.Dir(path)
}
