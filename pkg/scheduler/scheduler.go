package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"ecoscan/pkg/config"
	errs "ecoscan/pkg/errors"
	"ecoscan/pkg/logger"
	"ecoscan/pkg/models"
	"ecoscan/pkg/retry"
)

// ErrNoEligibleAccounts is returned by Run when every account failed
// credential validation
var ErrNoEligibleAccounts = errors.New("no account passed credential validation")

const (
	failureDetailRunes = 20
	productNameRunes   = 22
)

// Options tunes the scheduler. Zero values fall back to the defaults.
type Options struct {
	AccountDelay        retry.JitterWindow
	CycleDelay          retry.JitterWindow
	StartupPause        time.Duration
	PointsRetryAttempts int

	Rand  retry.Rand
	Clock retry.Clock
	Now   func() time.Time
}

// OptionsFromConfig derives scheduler options from configuration
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		AccountDelay:        retry.JitterWindow{Min: cfg.Schedule.AccountDelayMin, Max: cfg.Schedule.AccountDelayMax},
		CycleDelay:          retry.JitterWindow{Min: cfg.Schedule.CycleDelayMin, Max: cfg.Schedule.CycleDelayMax},
		StartupPause:        cfg.Schedule.StartupPause,
		PointsRetryAttempts: cfg.RateLimit.PointsRetryAttempts,
	}
}

func (o Options) withDefaults() Options {
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if o.Clock == nil {
		o.Clock = retry.RealClock{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.PointsRetryAttempts < 1 {
		o.PointsRetryAttempts = 1
	}
	return o
}

// Scheduler runs scan turns for its accounts one at a time in fixed order.
// All account state is mutated by the goroutine calling Run; readers use
// Snapshot and Counters.
type Scheduler struct {
	accounts []*Account
	opts     Options
	logger   logger.Logger
	notifier *notifier

	mu       sync.RWMutex
	counters models.GlobalCounters
	message  string
}

// New creates a scheduler publishing to sink. Call Close once done.
func New(accounts []*Account, sink Sink, opts Options, log logger.Logger) *Scheduler {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if sink == nil {
		sink = SinkFunc(func(models.Snapshot) {})
	}
	return &Scheduler{
		accounts: accounts,
		opts:     opts.withDefaults(),
		logger:   log.WithField("component", "scheduler"),
		notifier: newNotifier(sink),
	}
}

// Close flushes the last snapshot to the sink and stops publishing
func (s *Scheduler) Close() {
	s.notifier.close()
}

// Run initializes every account and then scans forever until ctx is done.
// It returns ErrNoEligibleAccounts if no account survives initialization
// and ctx.Err() once interrupted.
func (s *Scheduler) Run(ctx context.Context) error {
	logger.LogComponentStart(s.logger, "scheduler", map[string]interface{}{
		"accounts": len(s.accounts),
	})

	err := s.run(ctx)

	reason := "cancelled"
	if err != nil && !errs.IsCanceled(err) {
		reason = err.Error()
	}
	logger.LogComponentStop(s.logger, "scheduler", reason)
	return err
}

func (s *Scheduler) run(ctx context.Context) error {
	if err := s.Initialize(ctx); err != nil {
		return err
	}
	if len(s.Eligible()) == 0 {
		s.setMessage("No valid accounts. Check cookie.key.")
		return ErrNoEligibleAccounts
	}

	s.setMessage("Initialization complete. Starting cycles...")
	if err := s.opts.Clock.Sleep(ctx, s.opts.StartupPause); err != nil {
		return err
	}

	for {
		if err := s.RunCycle(ctx); err != nil {
			return err
		}
		if err := s.waitForNextCycle(ctx); err != nil {
			return err
		}
	}
}

// Initialize fetches identity and points for every account in order. A
// rejected credential parks the account in PhaseCredentialError; any other
// failure leaves it Ready under a fallback name. Only ctx cancellation is
// returned.
func (s *Scheduler) Initialize(ctx context.Context) error {
	s.setMessage("Fetching user info for all accounts...")

	for _, a := range s.accounts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.initAccount(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) initAccount(ctx context.Context, a *Account) error {
	log := logger.AccountLogger(s.logger, a.Index)
	fallback := fmt.Sprintf("User %d", a.Index+1)

	user, err := a.Session.Identity(ctx)
	switch {
	case err != nil && ctx.Err() != nil:
		return ctx.Err()
	case errs.Is(err, errs.KindInvalidCredential):
		log.WithError(err).Warn("credential rejected, account disabled")
		s.update(a, func(st *models.AccountState) {
			st.DisplayName = fallback
			st.Phase = models.PhaseCredentialError
			st.Detail = "Error: Invalid Cookie"
		})
		return nil
	case err != nil:
		log.WithError(err).Warn("identity lookup failed, continuing with fallback name")
		s.update(a, func(st *models.AccountState) {
			st.DisplayName = fallback
			st.Phase = models.PhaseReady
			st.Detail = "Ready"
		})
		return nil
	}

	name := user.DisplayName()
	if name == "" {
		name = fallback
	}
	points, pointsErr := s.fetchPoints(ctx, a)
	if err := ctx.Err(); err != nil {
		return err
	}

	s.update(a, func(st *models.AccountState) {
		st.DisplayName = name
		st.Phase = models.PhaseReady
		st.Detail = "Ready"
		if pointsErr == nil {
			st.Points = &points
		}
	})
	log.InfoWithFields("account ready", map[string]interface{}{"user": name})
	return nil
}

// RunCycle gives every eligible account one turn, in index order, with a
// jittered pause between consecutive turns
func (s *Scheduler) RunCycle(ctx context.Context) error {
	eligible := s.Eligible()
	for _, i := range eligible {
		s.update(s.accounts[i], func(st *models.AccountState) {
			st.Phase = models.PhaseQueued
			st.Detail = "Queued"
		})
	}

	for n, i := range eligible {
		if err := ctx.Err(); err != nil {
			return err
		}
		a := s.accounts[i]
		if err := s.takeTurn(ctx, a); err != nil {
			return err
		}

		if n == len(eligible)-1 {
			break
		}
		s.update(a, func(st *models.AccountState) {
			st.Phase = models.PhaseWaiting
			st.Detail = "Waiting..."
		})
		delay := s.opts.AccountDelay.Draw(s.opts.Rand)
		err := retry.Countdown(ctx, s.opts.Clock, delay, func(secs int) {
			s.setMessage(fmt.Sprintf("Next account starting in %ds", secs))
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) waitForNextCycle(ctx context.Context) error {
	for _, i := range s.Eligible() {
		s.update(s.accounts[i], func(st *models.AccountState) {
			st.Phase = models.PhaseQueued
			st.Detail = "Queued for next cycle"
		})
	}

	delay := s.opts.CycleDelay.Draw(s.opts.Rand)
	return retry.Countdown(ctx, s.opts.Clock, delay, func(secs int) {
		s.setMessage(fmt.Sprintf("All accounts processed. Next cycle in %ds...", secs))
	})
}

// takeTurn runs one scan for a and records the result. An attempt cut short
// by cancellation is not recorded.
func (s *Scheduler) takeTurn(ctx context.Context, a *Account) error {
	log := logger.AccountLogger(s.logger, a.Index)

	s.setMessage(fmt.Sprintf("Account %d is running...", a.Index+1))
	s.update(a, func(st *models.AccountState) {
		st.Phase = models.PhaseRunning
		st.Detail = "Starting scan..."
	})

	outcome, err := a.Runner.Run(ctx, func(label string) {
		s.update(a, func(st *models.AccountState) { st.Detail = label })
	})
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}

	if err != nil {
		log.WithError(err).WarnWithFields("scan turn failed", map[string]interface{}{
			"kind": string(errs.KindOf(err)),
		})
		s.record(a, func(st *models.AccountState, c *models.GlobalCounters) {
			st.Phase = models.PhaseFailed
			st.Detail = "Failed: " + errs.Truncate(err.Error(), failureDetailRunes)
			st.LastProduct = "-------"
			st.LastScore = nil
			st.FailCount++
			c.TotalFail++
		})
		return nil
	}

	s.record(a, func(st *models.AccountState, c *models.GlobalCounters) {
		if outcome.ProductFound {
			name := outcome.ProductName
			if name == "" {
				name = "Unknown"
			}
			score := outcome.Score
			st.Phase = models.PhaseSuccess
			st.Detail = "Success"
			st.LastProduct = errs.Truncate(name, productNameRunes)
			st.LastScore = &score
		} else {
			st.Phase = models.PhaseNoProductFound
			st.Detail = "Success (No Product)"
			st.LastProduct = "No product found"
			st.LastScore = nil
		}
		st.SuccessCount++
		c.TotalSuccess++
	})

	s.refreshPoints(ctx, a)
	return nil
}

// refreshPoints updates the points total if the API answers. Failures are
// ignored and the detail label reverts to the turn's result.
func (s *Scheduler) refreshPoints(ctx context.Context, a *Account) {
	var detail string
	s.update(a, func(st *models.AccountState) {
		detail = st.Detail
		st.Detail = "Updating points..."
	})

	points, err := s.fetchPoints(ctx, a)
	s.update(a, func(st *models.AccountState) {
		st.Detail = detail
		if err == nil {
			st.Points = &points
		}
	})
	if err != nil && !errs.IsCanceled(err) {
		logger.AccountLogger(s.logger, a.Index).WithError(err).Debug("points refresh failed")
	}
}

func (s *Scheduler) fetchPoints(ctx context.Context, a *Account) (float64, error) {
	return retry.DoWithResult(ctx, a.Session.Points, &retry.Config{
		MaxAttempts: s.opts.PointsRetryAttempts,
		Backoff:     retry.DefaultExponentialBackoff(),
		RetryIf:     retry.DefaultRetryIf,
		Clock:       s.opts.Clock,
		Logger:      logger.AccountLogger(s.logger, a.Index),
	})
}

// Eligible returns the positions of accounts that take part in cycles
func (s *Scheduler) Eligible() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []int
	for i, a := range s.accounts {
		if a.State.Phase.Eligible() {
			out = append(out, i)
		}
	}
	return out
}

// Snapshot returns a deep copy of the current state
func (s *Scheduler) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Counters returns the global success and failure totals
func (s *Scheduler) Counters() models.GlobalCounters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counters
}

func (s *Scheduler) snapshotLocked() models.Snapshot {
	views := make([]models.AccountView, len(s.accounts))
	for i, a := range s.accounts {
		views[i] = models.AccountView{
			Index:      a.Index,
			Credential: a.Credential,
			State:      a.State.Clone(),
		}
	}
	return models.Snapshot{
		Accounts: views,
		Counters: s.counters,
		Message:  s.message,
		TakenAt:  s.opts.Now(),
	}
}

func (s *Scheduler) update(a *Account, fn func(st *models.AccountState)) {
	s.record(a, func(st *models.AccountState, _ *models.GlobalCounters) { fn(st) })
}

func (s *Scheduler) record(a *Account, fn func(st *models.AccountState, c *models.GlobalCounters)) {
	s.mu.Lock()
	fn(&a.State, &s.counters)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notifier.publish(snapshot)
}

func (s *Scheduler) setMessage(msg string) {
	s.mu.Lock()
	s.message = msg
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notifier.publish(snapshot)
}
