package dashboard

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"ecoscan/pkg/models"
)

// Dashboard is the full-screen account table. It implements the scheduler
// sink interface by forwarding snapshots to the running program.
type Dashboard struct {
	program *tea.Program
	model   *Model
}

// New creates a dashboard for the given number of accounts
func New(ctx context.Context, accounts int, opts ...tea.ProgramOption) *Dashboard {
	model := NewModel(accounts)
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)

	return &Dashboard{
		program: tea.NewProgram(model, opts...),
		model:   model,
	}
}

// Run blocks until the program exits. A cancelled context is not an error.
func (d *Dashboard) Run() error {
	if _, err := d.program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

// Quitting reports whether the user closed the dashboard
func (d *Dashboard) Quitting() bool {
	return d.model.Quitting()
}

// Publish sends a snapshot to the program. It blocks until the program
// accepts it or has exited, so it must only be called from the scheduler's
// notifier goroutine, never from the goroutine running the scheduler.
func (d *Dashboard) Publish(snapshot models.Snapshot) {
	d.program.Send(SnapshotMsg(snapshot))
}

// Finish stops the program once the scheduler has returned
func (d *Dashboard) Finish(err error) {
	d.program.Send(DoneMsg{Err: err})
}
