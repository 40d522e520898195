// Package cli provides the command-line interface for cute.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/andresharpe/cute-sub002/internal/logging"
	"github.com/andresharpe/cute-sub002/internal/version"
)

var (
	// Global flags
	cfgFile     string
	apiKey      string
	tokenFile   string // Path to file containing the management token
	apiBaseURL  string
	spaceID     string
	environment string
	verbose     bool
	debug       bool
	jsonLogs    bool
	noProgress  bool
	metricsAddr string

	// Bulk tuning overrides
	chunkSize     int
	maxInFlight   int
	maxConcurrent int

	// Global logger
	logger *logging.Logger

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cute",
		Short: "cute - bulk content operations for a headless CMS",
		Long: `cute ` + version.Version + ` - Built: ` + version.BuildTime + `
Publish, unpublish, delete and upsert entries in bulk against the content
management API. All calls share one rate limiter so large runs stay inside
the API's request budget.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.NewLogger(logging.Options{
				Verbose: verbose,
				Debug:   debug,
				JSON:    jsonLogs,
			})
			logger.Debug().Str("command", cmd.CommandPath()).Str("version", version.Version).Msg("starting")
		},
	}

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "Configuration file path")
	pf.StringVar(&apiKey, "api-key", "", "Management API token (overrides all other sources)")
	pf.StringVar(&tokenFile, "token-file", "", "Path to file containing the management API token")
	pf.StringVar(&apiBaseURL, "api-url", "", "Management API base URL (overrides config)")
	pf.StringVar(&spaceID, "space", "", "Space ID (overrides config)")
	pf.StringVar(&environment, "environment", "", "Environment ID (overrides config)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Verbose output (info messages)")
	pf.BoolVar(&debug, "debug", false, "Enable debug output (requests, retries)")
	pf.BoolVar(&jsonLogs, "json-logs", false, "Emit logs and progress as JSON lines")
	pf.BoolVar(&noProgress, "no-progress", false, "Print progress lines instead of bars")
	pf.StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running (e.g. :9090)")

	pf.IntVar(&chunkSize, "chunk-size", 0, "Entries per bulk action (0 = config value)")
	pf.IntVar(&maxInFlight, "max-in-flight", 0, "Bulk actions awaited at once (0 = config value)")
	pf.IntVar(&maxConcurrent, "max-concurrent", 0, "Per-entry calls awaited together (0 = config value)")

	rootCmd.Version = version.Version + " (" + version.BuildTime + ")"

	return rootCmd
}

// Execute runs the CLI.
func Execute() error {
	// Create a context that can be cancelled by signals
	rootContext, cancelFunc = context.WithCancel(context.Background())
	defer cancelFunc()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Loop so repeated Ctrl+C does not kill the process before the partial report prints
	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\nReceived signal %v, cancelling. Calls already sent will finish.\n", sig)
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.ExecuteContext(rootContext)

	signal.Stop(sigChan)
	close(sigChan)

	return err
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newContentCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return logger
}

// GetContext returns the global CLI context with signal handling.
// This context will be cancelled when the user presses Ctrl+C.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cute %s (built %s)\n", version.Version, version.BuildTime)
		},
	}
}
