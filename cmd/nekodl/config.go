package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"nekodl/pkg/config"
	"nekodl/pkg/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage nekodl configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (NEKODL_*)
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is written to ~/.config/nekodl/config.yaml unless a different
path is given with --config.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

const exampleConfig = `# nekodl configuration file
#
# Every option can also be set with an environment variable prefixed with
# NEKODL_, for example NEKODL_OUTPUT_PATH or NEKODL_BATCH_SIZE.

output:
  # Directory images are downloaded into
  path: "./images"

download:
  # Downloads run concurrently in groups of this size
  batch_size: 50
  # Times a failed download is retried
  retry_depth: 5
  # Buffer size in bytes used when writing files
  chunk_size: 32768

gateway:
  # Deadline of one API request attempt. Downloads are bounded only while
  # waiting for response headers.
  timeout: 5m
  user_agent: "` + config.DefaultUserAgent + `"
  # Wait used on 429 responses without a Retry-After header
  default_retry_after: 60s
  # Longest Retry-After honoured before giving up
  max_retry_after: 5m
  # 429 responses tolerated per request
  max_rate_limit_retries: 5

rate_limit:
  # Pause between single fetches for providers without a bulk endpoint
  fetch_interval: 500ms

viewer:
  # Program used by --view, e.g. "feh --scale-down" or "imv".
  # Empty opens the output directory with the desktop's default handler.
  command: ""

logging:
  # Log level: debug, info, warn, error
  level: "error"
  # Log file path (optional, logs go to stderr when empty)
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = config.DefaultConfigPath()
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists: %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(exampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + path)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, map[string]interface{}{"log-level": logLevel, "debug": debug})
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Fprintln(ui.Output())
	fmt.Fprint(ui.Output(), string(data))

	source := configFile
	if source == "" {
		source = config.FindConfigFile()
	}
	if source == "" {
		source = "(none)"
	}
	fmt.Fprintln(ui.Output())
	ui.PrintInfo("Configuration file", source)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			return fmt.Errorf("cannot create log directory: %w", err)
		}
	}

	ui.PrintSuccess("Configuration is valid")
	ui.PrintInfo("  Output directory", cfg.Output.Path)
	ui.PrintInfo("  Batch size", fmt.Sprint(cfg.Download.BatchSize))
	ui.PrintInfo("  Gateway timeout", cfg.Gateway.Timeout.String())
	ui.PrintInfo("  Log level", cfg.Logging.Level)
	return nil
}
