package config

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
)

// ResolveAPIKeySource returns the management token and where it came from.
//
// Priority (highest to lowest):
//  1. flagKey, from --api-key
//  2. tokenFile, from --token-file
//  3. api_key in the config file
//  4. CONTENTFUL_MANAGEMENT_TOKEN environment variable
//
// source is one of "flag", "token-file", "config", "environment", or "" when
// nothing was found. A token file that cannot be read is an error rather than
// a silent fall-through.
func ResolveAPIKeySource(flagKey, tokenFile string, cfg *Config) (key, source string, err error) {
	if flagKey != "" {
		return flagKey, "flag", nil
	}
	if tokenFile != "" {
		key, err := ReadTokenFile(tokenFile)
		if err != nil {
			return "", "", err
		}
		if key != "" {
			return key, "token-file", nil
		}
	}
	if cfg != nil && cfg.APIKey != "" {
		return cfg.APIKey, "config", nil
	}
	if env := os.Getenv(APIKeyEnvVar); env != "" {
		return env, "environment", nil
	}
	return "", "", nil
}

// ReadTokenFile returns the first non-empty line of path.
func ReadTokenFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(err, "failed to read token file")
	}
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line, nil
		}
	}
	return "", nil
}
