package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/andresharpe/cute-sub002/internal/api"
	"github.com/andresharpe/cute-sub002/internal/config"
	"github.com/andresharpe/cute-sub002/internal/constants"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage cute configuration",
		Long: `Configuration management commands for cute.

Commands:
  init  - Interactive configuration setup
  show  - Display current configuration
  test  - Test API connection
  path  - Show configuration file path`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigTestCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long: `Interactive configuration setup for cute.

The configuration is saved to the path shown by 'cute config path'.
The management token is stored in the file with owner-only permissions.
A proxy password is never saved; supply it through ` + ProxyPasswordEnvVar + `
or answer the prompt when a command runs.

Use --force to overwrite existing configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath()
			out := cmd.OutOrStdout()

			if !force {
				if _, err := os.Stat(path); err == nil {
					fmt.Fprintf(out, "Configuration already exists at: %s\n", path)
					fmt.Fprintln(out, "Use --force to overwrite or run 'config show' to view current config.")
					return nil
				}
			}

			fmt.Fprintln(out, "Content Management Configuration Setup")
			fmt.Fprintln(out, "======================================")
			fmt.Fprintln(out)

			cfg, err := promptConfig(newPrompter(cmd.InOrStdin(), out), out)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return errors.Wrap(err, "invalid configuration")
			}
			if err := config.Save(cfg, path); err != nil {
				return err
			}

			GetLogger().Info().Str("path", path).Msg("Configuration saved")

			fmt.Fprintln(out)
			fmt.Fprintf(out, "Configuration saved to: %s\n", path)
			fmt.Fprintln(out, "Test your configuration with: cute config test")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing configuration")

	return cmd
}

// promptConfig asks for every setting, starting from the defaults.
func promptConfig(p *prompter, out io.Writer) (*config.Config, error) {
	cfg := config.NewConfig()
	var err error

	if cfg.SpaceID, err = p.line("Space ID (required)", ""); err != nil {
		return nil, err
	}
	for cfg.SpaceID == "" {
		fmt.Fprintln(out, "  Error: a value is required")
		if cfg.SpaceID, err = p.line("Space ID (required)", ""); err != nil {
			return nil, err
		}
	}
	if cfg.Environment, err = p.line("Environment", cfg.Environment); err != nil {
		return nil, err
	}
	if cfg.APIKey, err = p.required("Management token", true); err != nil {
		return nil, err
	}
	if cfg.BaseURL, err = p.line("API Base URL", cfg.BaseURL); err != nil {
		return nil, err
	}
	if cfg.DefaultLocale, err = p.line("Default locale", cfg.DefaultLocale); err != nil {
		return nil, err
	}

	fmt.Fprintln(out)
	useProxy, err := p.confirm("Configure proxy?")
	if err != nil {
		return nil, err
	}
	if !useProxy {
		return cfg, nil
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Proxy modes: no-proxy, system, basic, ntlm")
	if cfg.ProxyMode, err = p.line("Proxy mode", "system"); err != nil {
		return nil, err
	}
	cfg.ProxyMode = strings.ToLower(cfg.ProxyMode)
	if cfg.ProxyMode == "no-proxy" || cfg.ProxyMode == "system" {
		return cfg, nil
	}

	if cfg.ProxyHost, err = p.line("Proxy host", ""); err != nil {
		return nil, err
	}
	port, err := p.line("Proxy port", "8080")
	if err != nil {
		return nil, err
	}
	if cfg.ProxyPort, err = strconv.Atoi(port); err != nil || cfg.ProxyPort <= 0 {
		return nil, errors.Newf("invalid proxy port %q", port)
	}
	if cfg.ProxyUser, err = p.line("Proxy user", ""); err != nil {
		return nil, err
	}
	if cfg.NoProxy, err = p.line("Bypass proxy for (comma-separated)", ""); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Display the current configuration settings.

This command shows the merged configuration from:
  1. Command-line flags (--api-key, --token-file, --space, ...)
  2. Configuration file
  3. Environment variable (` + config.APIKeyEnvVar + `)

Priority: flags > token file > config file > environment > defaults`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			printConfig(cmd.OutOrStdout(), cfg.Redacted(), configPath())
			return nil
		},
	}

	return cmd
}

func printConfig(w io.Writer, cfg config.Config, path string) {
	notSet := func(s string) string {
		if s == "" {
			return "<not set>"
		}
		return s
	}

	fmt.Fprintln(w, "Current Configuration")
	fmt.Fprintln(w, "=====================")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "API Settings:")
	fmt.Fprintf(w, "  API Base URL:   %s\n", cfg.BaseURL)
	fmt.Fprintf(w, "  Space:          %s\n", notSet(cfg.SpaceID))
	fmt.Fprintf(w, "  Environment:    %s\n", cfg.Environment)
	fmt.Fprintf(w, "  Token:          %s\n", notSet(cfg.APIKey))
	fmt.Fprintf(w, "  Default Locale: %s\n", cfg.DefaultLocale)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Bulk Settings:")
	fmt.Fprintf(w, "  Chunk Size:     %d\n", cfg.ChunkSize)
	fmt.Fprintf(w, "  Max In Flight:  %d\n", cfg.MaxInFlight)
	fmt.Fprintf(w, "  Max Concurrent: %d\n", cfg.MaxConcurrent)
	fmt.Fprintf(w, "  Page Size:      %d\n", cfg.PageSize)
	fmt.Fprintln(w)

	budget := cfg.Budget
	if budget <= 0 {
		budget = cfg.Permits
	}
	fmt.Fprintln(w, "Rate Limit:")
	fmt.Fprintf(w, "  Permits:     %d\n", cfg.Permits)
	fmt.Fprintf(w, "  Budget:      %d calls per %dms\n", budget, cfg.WindowMS)
	fmt.Fprintf(w, "  Retry Limit: %d\n", cfg.RetryLimit)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Proxy Settings:")
	fmt.Fprintf(w, "  Proxy Mode: %s\n", cfg.ProxyMode)
	if cfg.ProxyHost != "" {
		fmt.Fprintf(w, "  Proxy Host: %s\n", cfg.ProxyHost)
		fmt.Fprintf(w, "  Proxy Port: %d\n", cfg.ProxyPort)
	}
	if cfg.ProxyUser != "" {
		fmt.Fprintf(w, "  Proxy User: %s\n", cfg.ProxyUser)
	}
	if cfg.NoProxy != "" {
		fmt.Fprintf(w, "  No Proxy:   %s\n", cfg.NoProxy)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Configuration file: %s\n", path)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintln(w, "  (file does not exist - using defaults)")
	}
}

// newConfigTestCmd creates the 'config test' command.
func newConfigTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test API connection",
		Long: `Test the API connection with current configuration.

Fetches the configured environment to verify the token, space and
environment, and network connectivity.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, "Testing API Connection")
			fmt.Fprintln(out, "======================")
			fmt.Fprintln(out)

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateForConnection(); err != nil {
				return errors.Wrap(err, "invalid configuration")
			}

			fmt.Fprintf(out, "API URL:     %s\n", cfg.BaseURL)
			fmt.Fprintf(out, "Space:       %s\n", cfg.SpaceID)
			fmt.Fprintf(out, "Environment: %s\n", cfg.Environment)
			fmt.Fprintln(out, "Testing connection...")
			fmt.Fprintln(out)

			client, err := api.NewClient(cfg, api.WithLogger(logger.Zerolog()))
			if err != nil {
				return errors.Wrap(err, "failed to create API client")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), constants.APIConnectionTestTimeout)
			defer cancel()

			env, err := client.Ping(ctx)
			if err != nil {
				logger.Error().Err(err).Msg("Connection test failed")
				fmt.Fprintln(out, "Connection FAILED")
				fmt.Fprintf(out, "  Error: %v\n", err)
				return errors.New("connection test failed")
			}

			logger.Info().Str("environment", env.Sys.ID).Msg("Connection test successful")

			fmt.Fprintln(out, "Connection SUCCESSFUL")
			fmt.Fprintf(out, "  Environment: %s", env.Sys.ID)
			if env.Name != "" && env.Name != env.Sys.ID {
				fmt.Fprintf(out, " (%s)", env.Name)
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	return cmd
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Long:  `Display the path to the configuration file.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if cfgFile == "" {
				fmt.Fprintln(out, "Default configuration path:")
			} else {
				fmt.Fprintln(out, "Configuration path (from --config flag):")
			}
			path := configPath()
			fmt.Fprintf(out, "  %s\n", path)
			fmt.Fprintln(out)

			if info, err := os.Stat(path); err == nil {
				fmt.Fprintln(out, "Status: File exists")
				fmt.Fprintf(out, "Size:   %d bytes\n", info.Size())
				fmt.Fprintf(out, "Modified: %s\n", info.ModTime().Format("2006-01-02 15:04:05"))
			} else {
				fmt.Fprintln(out, "Status: File does not exist")
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Create a configuration file with: cute config init")
			}
			return nil
		},
	}

	return cmd
}
