package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"ecoscan/internal/testutil"
	errs "ecoscan/pkg/errors"
	"ecoscan/pkg/logger"
	"ecoscan/pkg/models"
	"ecoscan/pkg/retry"
	"ecoscan/pkg/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSession struct {
	user        models.CurrentUser
	identityErr error
	points      float64
	pointsErr   error
	pointsCalls int
}

func (f *fakeSession) Identity(ctx context.Context) (models.CurrentUser, error) {
	return f.user, f.identityErr
}

func (f *fakeSession) Points(ctx context.Context) (float64, error) {
	f.pointsCalls++
	return f.points, f.pointsErr
}

// fakeRunner returns script[call % len(script)]; an empty script always succeeds
type fakeRunner struct {
	script []turnResult
	calls  int
}

type turnResult struct {
	outcome models.Outcome
	err     error
}

func (f *fakeRunner) Run(ctx context.Context, observe workflow.Observer) (models.Outcome, error) {
	f.calls++
	observe(workflow.LabelSearching)
	if len(f.script) == 0 {
		return models.Outcome{ProductFound: true, ProductName: "Sparkling Water", Score: 82}, nil
	}
	r := f.script[(f.calls-1)%len(f.script)]
	return r.outcome, r.err
}

type recordingSink struct {
	mu        sync.Mutex
	snapshots []models.Snapshot
}

func (r *recordingSink) Publish(s models.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, s)
}

func (r *recordingSink) last() models.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshots[len(r.snapshots)-1]
}

type fixture struct {
	sessions []*fakeSession
	runners  []*fakeRunner
	accounts []*Account
	clock    *testutil.FakeClock
}

func newFixture(n int) *fixture {
	f := &fixture{clock: &testutil.FakeClock{}}
	for i := 0; i < n; i++ {
		session := &fakeSession{user: models.CurrentUser{Name: "user" + string(rune('A'+i))}, points: 100}
		runner := &fakeRunner{}
		f.sessions = append(f.sessions, session)
		f.runners = append(f.runners, runner)
		f.accounts = append(f.accounts, NewAccount(i, "cookie****", session, runner))
	}
	return f
}

func (f *fixture) scheduler(sink Sink) *Scheduler {
	return New(f.accounts, sink, Options{
		AccountDelay: testWindow(5 * time.Second),
		CycleDelay:   testWindow(10 * time.Second),
		StartupPause: 2 * time.Second,
		Rand:         &testutil.ScriptedRand{},
		Clock:        f.clock,
	}, logger.NewTestLogger())
}

func testWindow(d time.Duration) retry.JitterWindow { return retry.JitterWindow{Min: d, Max: d} }

func unauthorized() error {
	return errs.Wrap(errs.KindInvalidCredential, "Cookie is invalid or expired", &errs.Error{Type: errs.ErrorTypeAuth, Code: 401})
}

func phases(s *Scheduler) []models.Phase {
	var out []models.Phase
	for _, v := range s.Snapshot().Accounts {
		out = append(out, v.State.Phase)
	}
	return out
}

func TestInvalidCredentialIsIsolated(t *testing.T) {
	f := newFixture(3)
	f.sessions[1].identityErr = unauthorized()
	s := f.scheduler(nil)
	defer s.Close()

	require.NoError(t, s.Initialize(context.Background()))
	assert.Equal(t, []models.Phase{models.PhaseReady, models.PhaseCredentialError, models.PhaseReady}, phases(s))
	assert.Equal(t, "User 2", s.Snapshot().Accounts[1].State.DisplayName)
	assert.Equal(t, "Error: Invalid Cookie", s.Snapshot().Accounts[1].State.Detail)

	require.NoError(t, s.RunCycle(context.Background()))
	assert.Equal(t, 1, f.runners[0].calls)
	assert.Equal(t, 0, f.runners[1].calls)
	assert.Equal(t, 1, f.runners[2].calls)
	assert.Equal(t, 2, f.runners[0].calls+f.runners[1].calls+f.runners[2].calls)

	// rejection does not count as a scan failure
	assert.Equal(t, models.GlobalCounters{TotalSuccess: 2}, s.Counters())
}

func TestCredentialErrorNeverScheduled(t *testing.T) {
	f := newFixture(3)
	f.sessions[1].identityErr = unauthorized()
	s := f.scheduler(nil)
	defer s.Close()

	require.NoError(t, s.Initialize(context.Background()))
	for round := 0; round < 5; round++ {
		require.NoError(t, s.RunCycle(context.Background()))
		require.NoError(t, s.waitForNextCycle(context.Background()))
		assert.Equal(t, models.PhaseCredentialError, s.Snapshot().Accounts[1].State.Phase)
	}
	assert.Equal(t, 0, f.runners[1].calls)
	assert.Equal(t, 5, f.runners[0].calls)
	assert.Equal(t, 5, f.runners[2].calls)
}

func TestCountersMatchTurns(t *testing.T) {
	f := newFixture(3)
	f.runners[0].script = []turnResult{
		{outcome: models.Outcome{ProductFound: true, ProductName: "Cola", Score: 40}},
		{err: errs.New(errs.KindScanTimeout, "")},
	}
	f.runners[1].script = []turnResult{
		{outcome: models.Outcome{ProductFound: false}},
		{err: errs.Rejected("blurry")},
		{err: errs.New(errs.KindNoImagesFound, "No images found: tea box product")},
	}
	s := f.scheduler(nil)
	defer s.Close()

	require.NoError(t, s.Initialize(context.Background()))
	for round := 0; round < 7; round++ {
		require.NoError(t, s.RunCycle(context.Background()))
	}

	snap := s.Snapshot()
	var sum int
	for i, v := range snap.Accounts {
		turns := v.State.SuccessCount + v.State.FailCount
		assert.Equal(t, f.runners[i].calls, turns, "account %d", i+1)
		sum += turns
	}
	assert.Equal(t, sum, snap.Counters.TotalSuccess+snap.Counters.TotalFail)
	assert.Equal(t, 4, snap.Accounts[0].State.SuccessCount)
	assert.Equal(t, 3, snap.Accounts[0].State.FailCount)
	assert.Equal(t, 3, snap.Accounts[1].State.SuccessCount)
	assert.Equal(t, 4, snap.Accounts[1].State.FailCount)
	assert.Equal(t, 7, snap.Accounts[2].State.SuccessCount)
}

func TestTurnOutcomeDisplay(t *testing.T) {
	longName := "Organic Sparkling Mineral Water 500ml"
	tests := []struct {
		name        string
		result      turnResult
		wantPhase   models.Phase
		wantDetail  string
		wantProduct string
		wantScore   *float64
	}{
		{
			name:        "product found",
			result:      turnResult{outcome: models.Outcome{ProductFound: true, ProductName: longName, Score: 82}},
			wantPhase:   models.PhaseSuccess,
			wantDetail:  "Success",
			wantProduct: "Organic Sparkling Mine",
			wantScore:   floatPtr(82),
		},
		{
			name:        "no product",
			result:      turnResult{outcome: models.Outcome{ProductFound: false}},
			wantPhase:   models.PhaseNoProductFound,
			wantDetail:  "Success (No Product)",
			wantProduct: "No product found",
		},
		{
			name:        "timeout",
			result:      turnResult{err: errs.New(errs.KindScanTimeout, "")},
			wantPhase:   models.PhaseFailed,
			wantDetail:  "Failed: Scan timeout",
			wantProduct: "-------",
		},
		{
			name:        "rejected",
			result:      turnResult{err: errs.Rejected("blurry image, retake")},
			wantPhase:   models.PhaseFailed,
			wantDetail:  "Failed: Scan failed: blurry ",
			wantProduct: "-------",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(1)
			f.runners[0].script = []turnResult{tt.result}
			f.sessions[0].points = 250
			s := f.scheduler(nil)
			defer s.Close()

			require.NoError(t, s.Initialize(context.Background()))
			require.NoError(t, s.RunCycle(context.Background()))

			st := s.Snapshot().Accounts[0].State
			assert.Equal(t, tt.wantPhase, st.Phase)
			assert.Equal(t, tt.wantDetail, st.Detail)
			assert.Equal(t, tt.wantProduct, st.LastProduct)
			assert.Equal(t, tt.wantScore, st.LastScore)
			assert.LessOrEqual(t, utf8.RuneCountInString(strings.TrimPrefix(st.Detail, "Failed: ")), 20)
		})
	}
}

func TestPointsRefreshIsBestEffort(t *testing.T) {
	f := newFixture(1)
	s := f.scheduler(nil)
	defer s.Close()

	require.NoError(t, s.Initialize(context.Background()))
	require.Equal(t, floatPtr(100), s.Snapshot().Accounts[0].State.Points)

	f.sessions[0].pointsErr = &errs.Error{Type: errs.ErrorTypeServerError, Code: 502}
	require.NoError(t, s.RunCycle(context.Background()))

	st := s.Snapshot().Accounts[0].State
	assert.Equal(t, models.PhaseSuccess, st.Phase)
	assert.Equal(t, "Success", st.Detail)
	assert.Equal(t, 1, st.SuccessCount)
	assert.Equal(t, 0, st.FailCount)
	assert.Equal(t, floatPtr(100), st.Points)

	f.sessions[0].pointsErr = nil
	f.sessions[0].points = 130
	require.NoError(t, s.RunCycle(context.Background()))
	assert.Equal(t, floatPtr(130), s.Snapshot().Accounts[0].State.Points)
}

func TestPointsNotRefreshedAfterFailure(t *testing.T) {
	f := newFixture(1)
	f.runners[0].script = []turnResult{{err: errs.New(errs.KindDownloadFailed, "image download failed")}}
	s := f.scheduler(nil)
	defer s.Close()

	require.NoError(t, s.Initialize(context.Background()))
	calls := f.sessions[0].pointsCalls
	require.NoError(t, s.RunCycle(context.Background()))

	assert.Equal(t, calls, f.sessions[0].pointsCalls)
}

func TestIdentityFallbacks(t *testing.T) {
	f := newFixture(4)
	f.sessions[0].user = models.CurrentUser{FirstName: "Ana"}
	f.sessions[1].user = models.CurrentUser{Email: "bo@example.com"}
	f.sessions[2].user = models.CurrentUser{}
	f.sessions[3].identityErr = errs.Wrap(errs.KindServiceError, "session lookup failed", &errs.Error{Type: errs.ErrorTypeServerError, Code: 503})
	s := f.scheduler(nil)
	defer s.Close()

	require.NoError(t, s.Initialize(context.Background()))

	snap := s.Snapshot()
	assert.Equal(t, "Ana", snap.Accounts[0].State.DisplayName)
	assert.Equal(t, "bo@example.com", snap.Accounts[1].State.DisplayName)
	assert.Equal(t, "User 3", snap.Accounts[2].State.DisplayName)
	assert.Equal(t, "User 4", snap.Accounts[3].State.DisplayName)
	assert.Equal(t, models.PhaseReady, snap.Accounts[3].State.Phase)
	assert.Nil(t, snap.Accounts[3].State.Points)
}

func TestCycleDelays(t *testing.T) {
	f := newFixture(3)
	sink := &recordingSink{}
	s := New(f.accounts, sink, Options{
		AccountDelay: retry.JitterWindow{Min: 5 * time.Second, Max: 8 * time.Second},
		CycleDelay:   retry.JitterWindow{Min: 10 * time.Second, Max: 15 * time.Second},
		Rand:         &testutil.ScriptedRand{Fixed63: int64(1500 * time.Millisecond)},
		Clock:        f.clock,
	}, nil)

	require.NoError(t, s.Initialize(context.Background()))
	require.NoError(t, s.RunCycle(context.Background()))

	// two gaps of 6.5s between three turns, none after the last
	assert.Equal(t, 13*time.Second, f.clock.Total())
	assert.Len(t, f.clock.Sleeps(), 14)

	require.NoError(t, s.waitForNextCycle(context.Background()))
	assert.Equal(t, 24500*time.Millisecond, f.clock.Total())

	s.Close()
	last := sink.last()
	assert.Equal(t, "All accounts processed. Next cycle in 1s...", last.Message)
	for _, v := range last.Accounts {
		assert.Equal(t, models.PhaseQueued, v.State.Phase)
	}
}

func TestRunNoEligibleAccounts(t *testing.T) {
	f := newFixture(2)
	f.sessions[0].identityErr = unauthorized()
	f.sessions[1].identityErr = unauthorized()
	s := f.scheduler(nil)
	defer s.Close()

	err := s.Run(context.Background())

	assert.ErrorIs(t, err, ErrNoEligibleAccounts)
	assert.Equal(t, 0, f.runners[0].calls+f.runners[1].calls)
	assert.Empty(t, f.clock.Sleeps())
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFixture(2)
	ctx, cancel := context.WithCancel(context.Background())
	f.clock.CancelAfter = 1 + 2*(5+10)
	f.clock.Cancel = cancel
	sink := &recordingSink{}
	s := f.scheduler(sink)

	err := s.Run(ctx)
	s.Close()

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, f.runners[0].calls)
	assert.Equal(t, 2, f.runners[1].calls)
	assert.Equal(t, models.GlobalCounters{TotalSuccess: 4}, s.Counters())
	assert.Equal(t, 2*time.Second, f.clock.Sleeps()[0])
	assert.Equal(t, s.Counters(), sink.last().Counters)
}

// cancelRunner cancels the run while its attempt is in flight
type cancelRunner struct {
	cancel context.CancelFunc
}

func (c *cancelRunner) Run(ctx context.Context, observe workflow.Observer) (models.Outcome, error) {
	c.cancel()
	return models.Outcome{}, errs.Wrap(errs.KindUploadFailed, "upload failed", ctx.Err())
}

func TestCancelledAttemptNotCounted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := newFixture(1)
	f.accounts[0].Runner = &cancelRunner{cancel: cancel}
	s := f.scheduler(nil)
	defer s.Close()

	require.NoError(t, s.Initialize(ctx))
	err := s.RunCycle(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, models.GlobalCounters{}, s.Counters())
	st := s.Snapshot().Accounts[0].State
	assert.Equal(t, 0, st.SuccessCount+st.FailCount)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	f := newFixture(1)
	s := f.scheduler(nil)
	defer s.Close()
	require.NoError(t, s.Initialize(context.Background()))

	snap := s.Snapshot()
	*snap.Accounts[0].State.Points = -1
	snap.Accounts[0].State.DisplayName = "changed"

	fresh := s.Snapshot()
	assert.Equal(t, floatPtr(100), fresh.Accounts[0].State.Points)
	assert.Equal(t, "userA", fresh.Accounts[0].State.DisplayName)
}

func TestProgressLabelsReachSink(t *testing.T) {
	f := newFixture(1)
	var mu sync.Mutex
	var details []string
	sink := SinkFunc(func(snap models.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		details = append(details, snap.Accounts[0].State.Detail)
	})
	s := f.scheduler(sink)

	require.NoError(t, s.Initialize(context.Background()))
	require.NoError(t, s.RunCycle(context.Background()))
	s.Close()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, details)
	assert.Equal(t, "Success", details[len(details)-1])
}

func TestUnclassifiedRunnerErrorCounts(t *testing.T) {
	f := newFixture(1)
	f.runners[0].script = []turnResult{{err: errors.New("unexpected")}}
	s := f.scheduler(nil)
	defer s.Close()

	require.NoError(t, s.Initialize(context.Background()))
	require.NoError(t, s.RunCycle(context.Background()))

	assert.Equal(t, models.GlobalCounters{TotalFail: 1}, s.Counters())
	assert.Equal(t, "Failed: unexpected", s.Snapshot().Accounts[0].State.Detail)
}

func floatPtr(v float64) *float64 { return &v }
