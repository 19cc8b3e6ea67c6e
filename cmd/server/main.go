// Package main is the entry point for the pricelens backend.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pricelens/backend/config"
)

// Version information set via ldflags during build.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:           "pricelens",
		Short:         "PriceLens price catalog server",
		Long:          `PriceLens resolves grocery store listings into canonical products and serves price comparison search over them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")

	cmd.AddCommand(serveCmd(&envFile))
	cmd.AddCommand(ensureIndexesCmd(&envFile))
	cmd.AddCommand(ingestCmd(&envFile))
	cmd.AddCommand(versionCmd())

	return cmd
}

// loadConfig loads configuration from the .env file, environment variables and config files.
func loadConfig(envFile string) (*config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if version != "dev" {
		cfg.Server.Version = version
	}
	return cfg, nil
}
