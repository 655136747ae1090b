package scheduler

import (
	"context"

	"ecoscan/pkg/models"
	"ecoscan/pkg/workflow"
)

// Session is the per-account view of the scan API used outside of scans
type Session interface {
	Identity(ctx context.Context) (models.CurrentUser, error)
	Points(ctx context.Context) (float64, error)
}

// Runner performs one scan attempt for an account
type Runner interface {
	Run(ctx context.Context, observe workflow.Observer) (models.Outcome, error)
}

// Sink consumes snapshots. Publish is called from a single goroutine owned
// by the scheduler and may be slow; the scheduler never waits for it.
type Sink interface {
	Publish(snapshot models.Snapshot)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(models.Snapshot)

func (f SinkFunc) Publish(snapshot models.Snapshot) { f(snapshot) }

// Account is one managed account. Credential is the masked form shown to users.
type Account struct {
	Index      int
	Credential string
	Session    Session
	Runner     Runner
	State      models.AccountState
}

// NewAccount creates an account in the Initializing phase
func NewAccount(index int, credential string, session Session, runner Runner) *Account {
	return &Account{
		Index:      index,
		Credential: credential,
		Session:    session,
		Runner:     runner,
		State: models.AccountState{
			DisplayName: "Initializing...",
			Phase:       models.PhaseInitializing,
			Detail:      "Queued",
			LastProduct: "none",
		},
	}
}
