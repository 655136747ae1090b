package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"ecoscan/pkg/auth"
	"ecoscan/pkg/config"
	"ecoscan/pkg/ui"
)

var (
	// auth command flags
	quickGuide  bool
	forceDelete bool
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage account cookies and the Pexels API key",
	Long: `Manage stored credentials.

Values are written to the encrypted vault, or to the system keychain when
--keyring is set. Plain cookie.key and api.key files and the ECOSCAN_COOKIES
and ECOSCAN_PEXELS_API_KEY environment variables keep working and take
precedence over stored values.

Never share your cookies or config files!`,
}

// setKeyCmd represents the auth set-key command
var setKeyCmd = &cobra.Command{
	Use:   "set-key",
	Short: "Store the Pexels API key",
	Long:  `Prompt for the Pexels API key without echoing it and store it securely.`,
	Args:  cobra.NoArgs,
	RunE:  runSetKey,
}

// importCookiesCmd represents the auth import-cookies command
var importCookiesCmd = &cobra.Command{
	Use:   "import-cookies <file>",
	Short: "Store account cookies from a file",
	Long: `Read one cookie per line from a file and store them securely. Blank
lines are ignored. The order of the lines is the account order.`,
	Example: `  ecoscan auth import-cookies cookie.key
  ecoscan auth import-cookies cookies.txt --keyring`,
	Args: cobra.ExactArgs(1),
	RunE: runImportCookies,
}

// showAuthCmd represents the auth show command
var showAuthCmd = &cobra.Command{
	Use:   "show",
	Short: "Show which credentials would be used",
	Long:  `Resolve credentials the same way 'ecoscan run' does and show them masked.`,
	Args:  cobra.NoArgs,
	RunE:  runShowAuth,
}

// guideCmd represents the auth guide command
var guideCmd = &cobra.Command{
	Use:   "guide",
	Short: "Explain how to get the session cookie and the API key",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if quickGuide {
			auth.ShowQuickExtractGuide(os.Stdout)
			return
		}
		auth.ShowCookieExtractionGuide(os.Stdout)
	},
}

// deleteAuthCmd represents the auth delete command
var deleteAuthCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove stored credentials",
	Long:  `Remove everything ecoscan stored in the vault, or in the keychain with --keyring.`,
	Args:  cobra.NoArgs,
	RunE:  runDeleteAuth,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(setKeyCmd)
	authCmd.AddCommand(importCookiesCmd)
	authCmd.AddCommand(showAuthCmd)
	authCmd.AddCommand(guideCmd)
	authCmd.AddCommand(deleteAuthCmd)

	guideCmd.Flags().BoolVar(&quickGuide, "quick", false, "show the condensed guide")
	deleteAuthCmd.Flags().BoolVarP(&forceDelete, "yes", "y", false, "do not ask for confirmation")
}

func openStore(cmd *cobra.Command) (auth.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	store, err := auth.OpenStore(cfg.Credentials)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}
	return store, nil
}

func runSetKey(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}

	fmt.Print("🔑 Pexels API key (hidden): ")
	key, err := readPassword()
	if err != nil {
		return fmt.Errorf("failed to read API key: %w", err)
	}
	if key == "" {
		return errors.New("API key is required")
	}

	if err := store.SetAPIKey(key); err != nil {
		return fmt.Errorf("failed to store API key: %w", err)
	}

	ui.PrintSuccess(fmt.Sprintf("API key %s stored in %s", auth.MaskString(key), describeStore(store)))
	return nil
}

func runImportCookies(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	cookies := auth.ParseCookies(string(data))
	if len(cookies) == 0 {
		return fmt.Errorf("%s contains no cookies", args[0])
	}

	if err := store.SetCookies(cookies); err != nil {
		return fmt.Errorf("failed to store cookies: %w", err)
	}

	for i, cookie := range cookies {
		fmt.Printf("  #%d %s\n", i+1, auth.MaskString(cookie))
	}
	ui.PrintSuccess(fmt.Sprintf("%d cookies stored in %s", len(cookies), describeStore(store)))
	fmt.Println("\nRun 'ecoscan check' to verify them.")
	return nil
}

func runShowAuth(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	creds, err := loadCredentials(cfg)
	if err != nil {
		ui.PrintError("Credentials incomplete", err)
		fmt.Println()
		auth.ShowQuickExtractGuide(os.Stdout)
		return err
	}

	ui.PrintInfo("Pexels API key", fmt.Sprintf("%s (%s)", auth.MaskString(creds.APIKey), creds.APIKeyFrom))
	ui.PrintInfo("Cookies", fmt.Sprintf("%d (%s)", len(creds.Cookies), creds.CookieFrom))
	for i, cookie := range creds.Cookies {
		fmt.Printf("  #%d %s\n", i+1, auth.MaskString(cookie))
	}
	return nil
}

func runDeleteAuth(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}

	if !forceDelete {
		fmt.Printf("Remove all credentials from %s? (y/N): ", describeStore(store))
		reader := bufio.NewReader(os.Stdin)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return nil
		}
	}

	if err := store.Delete(); err != nil {
		if errors.Is(err, auth.ErrCredentialsNotFound) {
			ui.PrintWarning("Nothing stored in " + describeStore(store))
			return nil
		}
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	ui.PrintSuccess("Credentials removed from " + describeStore(store))
	return nil
}

// describeStore names a store for messages
func describeStore(store auth.Store) string {
	if vault, ok := store.(*auth.EncryptedFileStore); ok {
		return "vault " + vault.Path()
	}
	return "system keychain"
}

// readPassword reads a secret from stdin without echoing
func readPassword() (string, error) {
	// Try to read without echo
	if term.IsTerminal(int(syscall.Stdin)) {
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println() // New line after password
		if err == nil {
			return strings.TrimSpace(string(password)), nil
		}
	}

	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// missingCredentialFiles lists the configured credential files that do not exist
func missingCredentialFiles(cfg *config.Config) []string {
	var missing []string
	for _, path := range []string{cfg.Credentials.CookieFile, cfg.Credentials.APIKeyFile} {
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, path)
		}
	}
	return missing
}
