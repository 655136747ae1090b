package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ecoscan/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage ecoscan configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (ECOSCAN_*)
  - .env file
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as '.ecoscan.yaml'
unless a different path is specified with the --config flag.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the effective configuration after merging all sources. Credentials
are never part of the configuration; use 'ecoscan auth show' for those.

With --output the merged configuration is written to a file instead.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long: `Load the configuration from all sources and report every problem found.

This command checks:
  - YAML syntax
  - Value ranges and delay windows
  - Presence of the credential files`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)

	showCmd.Flags().StringVarP(&showOutput, "output", "o", "", "write the effective configuration to this file")
}

var showOutput string

const exampleConfig = `# ecoscan configuration file
#
# Every option can also be set with an ECOSCAN_* environment variable,
# for example ECOSCAN_LOG_LEVEL=debug or ECOSCAN_REQUESTS_PER_MINUTE=60.

ecosapiens:
  base_url: "https://api.prod.ecosapiens.xyz"
  referer: "https://prod.ecosapiens.xyz/"
  # Per-request timeouts
  timeout: 5s
  upload_timeout: 15s

pexels:
  base_url: "https://api.pexels.com/v1"
  # Candidates fetched per search, 1-100
  max_results: 100
  orientation: "square"
  timeout: 10s
  download_timeout: 15s

credentials:
  # One session cookie per line, one line per account
  cookie_file: "cookie.key"
  api_key_file: "api.key"
  # Also read credentials stored with 'ecoscan auth --keyring'
  use_keyring: false

scan:
  # Uncomment to replace the built-in product catalog
  # categories:
  #   - "shampoo bottle"
  #   - "soda can"
  query_suffix: "product"
  poll_attempts: 30
  poll_interval: 2s

schedule:
  # Randomized pause between two accounts' turns
  account_delay_min: 5s
  account_delay_max: 8s
  # Randomized pause between rounds
  cycle_delay_min: 10s
  cycle_delay_max: 15s
  startup_pause: 2s

rate_limit:
  # Shared by every account
  requests_per_minute: 120
  burst_size: 10
  points_retry_attempts: 2

dashboard:
  enabled: true

logging:
  # debug, info, warn, error, disabled
  level: "info"
  # Defaults to ecoscan.log while the dashboard is shown
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	// Determine config file path
	configPath := configFile
	if configPath == "" {
		configPath = ".ecoscan.yaml"
	}

	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		return fmt.Errorf("%s already exists", configPath)
	}

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Put your account cookies in cookie.key and your Pexels key in api.key")
	fmt.Println("2. Run 'ecoscan check' to verify them")
	fmt.Println("3. Start scanning with 'ecoscan run'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if showOutput != "" {
		if err := cfg.Save(showOutput); err != nil {
			return err
		}
		ui.PrintSuccess("Configuration written to " + showOutput)
		return nil
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	fmt.Print(string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if configFile != "" {
		ui.PrintInfo("Validating configuration", configFile)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		ui.PrintError("Configuration validation failed", err)
		return err
	}

	if missing := missingCredentialFiles(cfg); len(missing) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, path := range missing {
			fmt.Printf("  - %s not found (credentials must then come from the environment or the vault)\n", path)
		}
		fmt.Println()
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Scan categories: %d\n", len(cfg.Scan.Categories))
	fmt.Printf("  Polling: %d x %s\n", cfg.Scan.PollAttempts, cfg.Scan.PollInterval)
	fmt.Printf("  Account delay: %s-%s\n", cfg.Schedule.AccountDelayMin, cfg.Schedule.AccountDelayMax)
	fmt.Printf("  Cycle delay: %s-%s\n", cfg.Schedule.CycleDelayMin, cfg.Schedule.CycleDelayMax)
	fmt.Printf("  Rate limit: %d requests/minute\n", cfg.RateLimit.RequestsPerMinute)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
	return nil
}
