package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"ecoscan/pkg/config"
	"ecoscan/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile        string
	cookieFile        string
	apiKeyFile        string
	vaultFile         string
	useKeyring        bool
	logLevel          string
	logFile           string
	requestsPerMinute int
	dashboardEnabled  bool
	verbose           bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ecoscan",
	Short: "Run product scans for several Ecosapiens accounts in rotation",
	Long: `ecoscan runs the Ecosapiens scan workflow for every account in cookie.key.

Each turn picks a random product category, fetches a matching photo from
Pexels, uploads it as a scan and waits for the verdict. Accounts take turns
with a short randomized pause between them and a longer one between rounds.

Credentials are read from, in order:
  - Environment variables (ECOSCAN_COOKIES, ECOSCAN_PEXELS_API_KEY)
  - cookie.key and api.key in the working directory
  - The encrypted credential vault
  - The system keychain (with --keyring)`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Don't show logo for certain commands
		if cmd.Name() != "version" && cmd.Name() != "help" && cmd.Name() != "show" {
			ui.PrintLogo()
		}
	},
	RunE: runScan,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "config file (default is .ecoscan.yaml or ~/.config/ecoscan/config.yaml)")
	flags.StringVar(&cookieFile, "cookie-file", "", "file with one account cookie per line (default cookie.key)")
	flags.StringVar(&apiKeyFile, "api-key-file", "", "file holding the Pexels API key (default api.key)")
	flags.StringVar(&vaultFile, "vault-file", "", "encrypted credential vault")
	flags.BoolVar(&useKeyring, "keyring", false, "also read credentials from the system keychain")
	flags.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")
	flags.StringVar(&logFile, "log-file", "", "write logs to this file")
	flags.IntVar(&requestsPerMinute, "requests-per-minute", 0, "outbound request budget shared by all accounts")
	flags.BoolVar(&dashboardEnabled, "dashboard", true, "show the live dashboard when attached to a terminal")
	flags.BoolVarP(&verbose, "verbose", "v", false, "print every status change in plain output mode")

	// Version template
	rootCmd.SetVersionTemplate(`ecoscan {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	// Disable default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig loads configuration, applying only the flags set explicitly
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := make(map[string]interface{})
	set := cmd.Flags()

	if set.Changed("cookie-file") {
		flags["cookie-file"] = cookieFile
	}
	if set.Changed("api-key-file") {
		flags["api-key-file"] = apiKeyFile
	}
	if set.Changed("vault-file") {
		flags["vault-file"] = vaultFile
	}
	if set.Changed("keyring") {
		flags["keyring"] = useKeyring
	}
	if set.Changed("log-level") {
		flags["log-level"] = logLevel
	}
	if set.Changed("log-file") {
		flags["log-file"] = logFile
	}
	if set.Changed("requests-per-minute") {
		flags["requests-per-minute"] = requestsPerMinute
	}
	if set.Changed("dashboard") {
		flags["dashboard"] = dashboardEnabled
	}

	return config.Load(configFile, flags)
}
