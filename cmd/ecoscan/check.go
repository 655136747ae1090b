package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ecoscan/pkg/auth"
	"ecoscan/pkg/ecosapiens"
	errs "ecoscan/pkg/errors"
	"ecoscan/pkg/logger"
	"ecoscan/pkg/pexels"
	"ecoscan/pkg/ratelimit"
	"ecoscan/pkg/ui"
)

// errNoValidCookies is returned by check when every cookie is rejected
var errNoValidCookies = errors.New("no valid accounts")

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the account cookies and the Pexels API key",
	Long: `Verify credentials without scanning. Each cookie is used to fetch the
account's identity and points, and the Pexels key is used for one search.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.NewNopLogger()
	if cmd.Flags().Changed("log-level") || cmd.Flags().Changed("log-file") {
		if log, err = logger.New(&cfg.Logging); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	creds, err := loadCredentials(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limiter := ratelimit.Unlimited{}

	ui.PrintInfo("Cookies", fmt.Sprintf("%d from %s", len(creds.Cookies), creds.CookieFrom))
	ui.PrintInfo("Pexels API key", fmt.Sprintf("%s from %s", auth.MaskString(creds.APIKey), creds.APIKeyFrom))
	fmt.Fprintln(ui.Output)

	valid := 0
	for i, cookie := range creds.Cookies {
		client := ecosapiens.NewClient(cfg.Ecosapiens, cookie, limiter, logger.AccountLogger(log, i))
		line, ok := checkAccount(ctx, client, i)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if ok {
			valid++
		}
		fmt.Fprintf(ui.Output, "  #%d %s %s\n", i+1, ui.Dim(auth.MaskString(cookie)), line)
	}

	source := pexels.NewClient(cfg.Pexels, creds.APIKey, limiter, log)
	if _, err := source.Search(ctx, "product", 1); err != nil {
		fmt.Fprintln(ui.Output)
		ui.PrintError("Pexels API key check failed", err)
		return err
	}

	fmt.Fprintln(ui.Output)
	if valid == 0 {
		ui.PrintError("No valid accounts. Check cookie.key.")
		return errNoValidCookies
	}
	ui.PrintSuccess(fmt.Sprintf("%d of %d accounts ready, Pexels key accepted", valid, len(creds.Cookies)))
	return nil
}

// checkAccount describes one account's credential state
func checkAccount(ctx context.Context, client *ecosapiens.Client, index int) (string, bool) {
	user, err := client.Identity(ctx)
	if err != nil {
		if errs.Is(err, errs.KindInvalidCredential) {
			return ui.Red("✗ Error: Invalid Cookie"), false
		}
		return ui.Yellow("? " + err.Error()), true
	}

	name := user.DisplayName()
	if name == "" {
		name = fmt.Sprintf("User %d", index+1)
	}

	points := ui.Unknown
	if total, err := client.Points(ctx); err == nil {
		points = ui.FormatNumber(&total)
	}
	return fmt.Sprintf("%s %s (%s points)", ui.Green("✓"), ui.Cyan(name), points), true
}
