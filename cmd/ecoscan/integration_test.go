package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecoscan/internal/testutil"
	"ecoscan/pkg/auth"
	"ecoscan/pkg/config"
	"ecoscan/pkg/logger"
	"ecoscan/pkg/models"
	"ecoscan/pkg/ratelimit"
	"ecoscan/pkg/scheduler"
)

func newIntegrationConfig(server *testutil.MockServer) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Pexels.BaseURL = server.PexelsURL()
	cfg.Ecosapiens.BaseURL = server.URL()
	cfg.Scan.PollInterval = time.Millisecond
	cfg.Scan.Categories = []string{"toothbrush"}
	return cfg
}

func newIntegrationScheduler(cfg *config.Config, creds *auth.Credentials, clock *testutil.FakeClock) *scheduler.Scheduler {
	log := logger.NewNopLogger()
	accounts := buildAccounts(cfg, creds, ratelimit.Unlimited{}, log)

	opts := scheduler.OptionsFromConfig(cfg)
	opts.Clock = clock
	opts.Rand = &testutil.ScriptedRand{}
	return scheduler.New(accounts, nil, opts, log)
}

func TestIntegrationFullCycle(t *testing.T) {
	server := testutil.NewMockServer()
	defer server.Close()
	server.PollsUntilDone = 2
	server.AddAccount("session=alice", "Alice", 100)
	server.AddAccount("session=carol", "Carol", 0)

	cfg := newIntegrationConfig(server)
	creds := &auth.Credentials{
		Cookies: []string{"session=alice", "session=expired", "session=carol"},
		APIKey:  server.APIKey,
	}
	sched := newIntegrationScheduler(cfg, creds, &testutil.FakeClock{})
	defer sched.Close()

	ctx := context.Background()
	require.NoError(t, sched.Initialize(ctx))
	assert.Equal(t, []int{0, 2}, sched.Eligible())

	require.NoError(t, sched.RunCycle(ctx))

	snap := sched.Snapshot()
	require.Len(t, snap.Accounts, 3)

	// not the last eligible account, so it waits for the next turn
	alice := snap.Accounts[0].State
	assert.Equal(t, "Alice", alice.DisplayName)
	assert.Equal(t, models.PhaseWaiting, alice.Phase)
	assert.Equal(t, "Waiting...", alice.Detail)
	assert.Equal(t, "Bamboo Toothbrush", alice.LastProduct)
	require.NotNil(t, alice.LastScore)
	assert.Equal(t, 8.5, *alice.LastScore)
	require.NotNil(t, alice.Points)
	assert.Equal(t, 110.0, *alice.Points)
	assert.Equal(t, 1, alice.SuccessCount)

	expired := snap.Accounts[1].State
	assert.Equal(t, models.PhaseCredentialError, expired.Phase)
	assert.Equal(t, "Error: Invalid Cookie", expired.Detail)
	assert.Equal(t, "User 2", expired.DisplayName)
	assert.Zero(t, expired.SuccessCount+expired.FailCount)

	carol := snap.Accounts[2].State
	assert.Equal(t, models.PhaseSuccess, carol.Phase)
	require.NotNil(t, carol.Points)
	assert.Equal(t, 10.0, *carol.Points)

	assert.Equal(t, models.GlobalCounters{TotalSuccess: 2}, sched.Counters())
	assert.Equal(t, 2, server.Uploads())
	assert.Equal(t, 2, server.Searches())
	assert.Equal(t, 2, server.Downloads())
	assert.Zero(t, server.LeakedAPIKeys(), "the Pexels key must only reach the search API")
}

func TestIntegrationNoProductAndFailure(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(*testutil.MockServer)
		wantPhase  models.Phase
		wantDetail string
		want       models.GlobalCounters
	}{
		{
			name:       "no product",
			setup:      func(s *testutil.MockServer) { s.ProductName = "" },
			wantPhase:  models.PhaseNoProductFound,
			wantDetail: "Success (No Product)",
			want:       models.GlobalCounters{TotalSuccess: 1},
		},
		{
			name:       "scan failed",
			setup:      func(s *testutil.MockServer) { s.FailureReason = "image too blurry to classify" },
			wantPhase:  models.PhaseFailed,
			wantDetail: "Failed: ",
			want:       models.GlobalCounters{TotalFail: 1},
		},
		{
			name:       "pexels unavailable",
			setup:      func(s *testutil.MockServer) { s.SetError("/v1/search", 403) },
			wantPhase:  models.PhaseFailed,
			wantDetail: "Failed: ",
			want:       models.GlobalCounters{TotalFail: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := testutil.NewMockServer()
			defer server.Close()
			server.AddAccount("session=alice", "Alice", 5)
			tt.setup(server)

			cfg := newIntegrationConfig(server)
			creds := &auth.Credentials{Cookies: []string{"session=alice"}, APIKey: server.APIKey}
			sched := newIntegrationScheduler(cfg, creds, &testutil.FakeClock{})
			defer sched.Close()

			ctx := context.Background()
			require.NoError(t, sched.Initialize(ctx))
			require.NoError(t, sched.RunCycle(ctx))

			st := sched.Snapshot().Accounts[0].State
			assert.Equal(t, tt.wantPhase, st.Phase)
			assert.True(t, strings.HasPrefix(st.Detail, tt.wantDetail), "detail %q", st.Detail)
			assert.Equal(t, tt.want, sched.Counters())
		})
	}
}

func TestIntegrationRunUntilInterrupted(t *testing.T) {
	server := testutil.NewMockServer()
	defer server.Close()
	server.AddAccount("session=alice", "Alice", 0)

	cfg := newIntegrationConfig(server)
	cfg.Schedule.CycleDelayMin = 3 * time.Second
	cfg.Schedule.CycleDelayMax = 3 * time.Second
	creds := &auth.Credentials{Cookies: []string{"session=alice"}, APIKey: server.APIKey}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// startup pause, then the first second of the cycle countdown
	clock := &testutil.FakeClock{CancelAfter: 2, Cancel: cancel}
	sched := newIntegrationScheduler(cfg, creds, clock)

	err := sched.Run(ctx)
	sched.Close()

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, models.GlobalCounters{TotalSuccess: 1}, sched.Counters())
	assert.Contains(t, sched.Snapshot().Message, "Next cycle in 3s")

	out := captureOutput(t)
	require.NoError(t, finishRun(sched, err, 1))
	assert.Contains(t, out.String(), "Total Success: 1 | Total Fails: 0 | Total Accounts: 1")
}

func TestIntegrationNoEligibleAccounts(t *testing.T) {
	server := testutil.NewMockServer()
	defer server.Close()

	cfg := newIntegrationConfig(server)
	creds := &auth.Credentials{Cookies: []string{"session=stale"}, APIKey: server.APIKey}
	sched := newIntegrationScheduler(cfg, creds, &testutil.FakeClock{})
	defer sched.Close()

	err := sched.Run(context.Background())

	assert.ErrorIs(t, err, scheduler.ErrNoEligibleAccounts)
	assert.Zero(t, server.Uploads())
}
