package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecoscan/pkg/auth"
	"ecoscan/pkg/config"
	"ecoscan/pkg/logger"
	"ecoscan/pkg/models"
	"ecoscan/pkg/ratelimit"
	"ecoscan/pkg/scheduler"
	"ecoscan/pkg/ui"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := ui.Output
	ui.Output = &buf
	t.Cleanup(func() { ui.Output = prev })
	return &buf
}

func TestBuildAccounts(t *testing.T) {
	creds := &auth.Credentials{
		Cookies: []string{"session=first-account-cookie", "session=second-account-cookie"},
		APIKey:  "pexels-key",
	}

	accounts := buildAccounts(config.DefaultConfig(), creds, ratelimit.Unlimited{}, logger.NewNopLogger())

	require.Len(t, accounts, 2)
	for i, a := range accounts {
		assert.Equal(t, i, a.Index)
		assert.Equal(t, auth.MaskString(creds.Cookies[i]), a.Credential)
		assert.NotContains(t, a.Credential, "account-cookie")
		assert.NotNil(t, a.Session)
		assert.NotNil(t, a.Runner)
		assert.Equal(t, models.PhaseInitializing, a.State.Phase)
	}
}

func TestFinishRunInterruptedIsClean(t *testing.T) {
	out := captureOutput(t)
	sched := scheduler.New(nil, nil, scheduler.Options{}, logger.NewNopLogger())
	defer sched.Close()

	err := finishRun(sched, context.Canceled, 3)

	assert.NoError(t, err)
	assert.Contains(t, out.String(), ui.StoppedMessage)
	assert.Contains(t, out.String(), "Total Success: 0 | Total Fails: 0 | Total Accounts: 3")
}

func TestFinishRunNoEligibleAccounts(t *testing.T) {
	out := captureOutput(t)
	sched := scheduler.New(nil, nil, scheduler.Options{}, logger.NewNopLogger())
	defer sched.Close()

	err := finishRun(sched, scheduler.ErrNoEligibleAccounts, 2)

	assert.ErrorIs(t, err, scheduler.ErrNoEligibleAccounts)
	assert.Contains(t, out.String(), "No valid accounts. Check cookie.key.")
}

func TestFinishRunPassesOtherErrors(t *testing.T) {
	captureOutput(t)
	sched := scheduler.New(nil, nil, scheduler.Options{}, logger.NewNopLogger())
	defer sched.Close()

	boom := fmt.Errorf("boom")
	assert.Equal(t, boom, finishRun(sched, boom, 1))
}

func TestExampleConfigIsValid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ecoscan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(exampleConfig), 0644))

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)

	defaults := config.DefaultConfig()
	assert.Equal(t, defaults.Scan, cfg.Scan)
	assert.Equal(t, defaults.Schedule, cfg.Schedule)
	assert.Equal(t, defaults.RateLimit, cfg.RateLimit)
}

func TestMissingCredentialFiles(t *testing.T) {
	dir := t.TempDir()
	cookies := filepath.Join(dir, "cookie.key")
	require.NoError(t, os.WriteFile(cookies, []byte("session=a\n"), 0600))

	cfg := config.DefaultConfig()
	cfg.Credentials.CookieFile = cookies
	cfg.Credentials.APIKeyFile = filepath.Join(dir, "api.key")

	assert.Equal(t, []string{cfg.Credentials.APIKeyFile}, missingCredentialFiles(cfg))
}
