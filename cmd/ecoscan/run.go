package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"ecoscan/pkg/auth"
	"ecoscan/pkg/config"
	"ecoscan/pkg/ecosapiens"
	errs "ecoscan/pkg/errors"
	"ecoscan/pkg/logger"
	"ecoscan/pkg/pexels"
	"ecoscan/pkg/ratelimit"
	"ecoscan/pkg/scheduler"
	"ecoscan/pkg/ui"
	"ecoscan/pkg/ui/dashboard"
	"ecoscan/pkg/workflow"
)

// defaultDashboardLogFile receives logs while the dashboard owns the terminal
const defaultDashboardLogFile = "ecoscan.log"

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start scanning with every configured account",
	Long: `Start the scan loop. Every account is checked first; accounts whose
cookie is rejected are skipped for the rest of the run. The remaining accounts
take turns until you press q or CTRL+C.

When stdout is a terminal a live dashboard is shown and logs go to
ecoscan.log (or --log-file). Otherwise status changes are printed as lines.`,
	Example: `  # Run with cookie.key and api.key in the current directory
  ecoscan run

  # Plain output, debug logs to a file
  ecoscan run --dashboard=false --log-level debug --log-file scan.log`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	useDashboard := cfg.Dashboard.Enabled && term.IsTerminal(int(os.Stdout.Fd()))
	if useDashboard && cfg.Logging.File == "" {
		cfg.Logging.File = defaultDashboardLogFile
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("ecoscan starting")

	creds, err := loadCredentials(cfg)
	if err != nil {
		log.WithError(err).Error("Credentials unavailable")
		return err
	}
	log.WithFields(map[string]interface{}{
		"accounts":     len(creds.Cookies),
		"cookies_from": creds.CookieFrom,
		"api_key_from": creds.APIKeyFrom,
	}).Info("Credentials loaded")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limiter := ratelimit.NewTokenBucket(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.BurstSize)
	accounts := buildAccounts(cfg, creds, limiter, log)
	opts := scheduler.OptionsFromConfig(cfg)

	if useDashboard {
		return runWithDashboard(ctx, accounts, opts, log)
	}

	display := ui.NewLineDisplay(os.Stdout, verbose)
	sched := scheduler.New(accounts, display, opts, log)
	err = sched.Run(ctx)
	sched.Close()
	return finishRun(sched, err, len(accounts))
}

// runWithDashboard runs the scheduler and the dashboard together. Closing
// the dashboard stops the scheduler and vice versa.
func runWithDashboard(ctx context.Context, accounts []*scheduler.Account, opts scheduler.Options, log logger.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	board := dashboard.New(ctx, len(accounts))
	sched := scheduler.New(accounts, board, opts, log)

	var runErr error
	var g errgroup.Group
	g.Go(func() error {
		runErr = sched.Run(ctx)
		sched.Close()
		board.Finish(runErr)
		return nil
	})
	g.Go(func() error {
		defer cancel()
		return board.Run()
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("dashboard failed: %w", err)
	}
	if board.Quitting() {
		log.Info("dashboard closed by user, scheduler stopped")
	}
	return finishRun(sched, runErr, len(accounts))
}

// finishRun maps the scheduler result to the process outcome and prints
// the summary. An interrupted run is a clean exit.
func finishRun(sched *scheduler.Scheduler, err error, accounts int) error {
	switch {
	case errors.Is(err, scheduler.ErrNoEligibleAccounts):
		ui.PrintError("No valid accounts. Check cookie.key.")
		return err
	case err == nil, errs.IsCanceled(err):
		fmt.Fprintln(ui.Output)
		ui.PrintWarning(ui.StoppedMessage)
		ui.PrintSummary(sched.Counters(), accounts)
		return nil
	default:
		return err
	}
}

// loadCredentials resolves cookies and the Pexels key from the credential chain
func loadCredentials(cfg *config.Config) (*auth.Credentials, error) {
	chain, err := auth.NewChain(cfg.Credentials)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential sources: %w", err)
	}
	return chain.Load()
}

// buildAccounts wires one scan client and workflow per cookie. The Pexels
// client and the request limiter are shared.
func buildAccounts(cfg *config.Config, creds *auth.Credentials, limiter ratelimit.Limiter, log logger.Logger) []*scheduler.Account {
	source := pexels.NewClient(cfg.Pexels, creds.APIKey, limiter, log)
	opts := workflow.OptionsFromConfig(cfg)

	accounts := make([]*scheduler.Account, 0, len(creds.Cookies))
	for i, cookie := range creds.Cookies {
		accountLog := logger.AccountLogger(log, i)
		service := ecosapiens.NewClient(cfg.Ecosapiens, cookie, limiter, accountLog)
		runner := workflow.New(source, service, opts, accountLog)
		accounts = append(accounts, scheduler.NewAccount(i, auth.MaskString(cookie), service, runner))
	}
	return accounts
}
