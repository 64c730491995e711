// internal/cli/root.go
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	debug      bool
)

// Version is overridden at build time with -ldflags.
var Version = "0.1.0-dev"

var rootCmd = &cobra.Command{
	Use:   "curvectl",
	Short: "curvectl - bonding-curve token launch engine",
	Long: `curvectl drives the launchpad bonding-curve engine: it runs trading
scenarios against an in-memory ledger, quotes trades against the configured
curve defaults and inspects the audit store.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. It is called once by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "conf", "", "configuration file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}
