package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"nekodl/pkg/config"
	"nekodl/pkg/logger"
	"nekodl/pkg/provider/all"
	"nekodl/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	debug      bool

	registry = all.NewRegistry()
)

// rootCmd downloads images when called without a subcommand
var rootCmd = &cobra.Command{
	Use:   "nekodl",
	Short: "Download images from anime image APIs, boorus and galleries",
	Long: `nekodl downloads images from a set of providers into a directory.

Providers wrap very different upstream APIs (random image endpoints,
subreddits, boorus, pixiv artworks and nhentai galleries) behind one
command. Files that already exist are skipped, downloads run in bounded
batches and partial files never replace finished ones.

Run 'nekodl providers' to see every provider and whether it needs an
extras file.`,
	Example: `  # Ten random nekos
  nekodl -c neko -a 10

  # Everything a booru query returns, with credentials from an extras file
  nekodl --provider danbooru --extras extras.toml -a 500

  # List the categories of a provider
  nekodl --provider hmtai -c check`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runDownload,
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ./.nekodl.yaml or ~/.config/nekodl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "print debug messages")

	rootCmd.SetVersionTemplate(`nekodl {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig resolves configuration from every source and sets up logging
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := map[string]interface{}{
		"log-level": logLevel,
		"debug":     debug,
	}
	if f := cmd.Flags().Lookup("path"); f != nil && f.Changed {
		flags["path"] = f.Value.String()
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}
