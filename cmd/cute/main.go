// cute - bulk content operations for a headless CMS
package main

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/andresharpe/cute-sub002/internal/cli"
	"github.com/andresharpe/cute-sub002/internal/version"
)

// Version information, set with -ldflags at build time
var (
	Version   = ""
	BuildTime = ""
)

func main() {
	if Version != "" {
		version.Version = Version
	}
	if BuildTime != "" {
		version.BuildTime = BuildTime
	}

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if hint := errors.FlattenHints(err); hint != "" {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
		}
		os.Exit(1)
	}
}
