package dashboard

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ecoscan/pkg/errors"
	"ecoscan/pkg/models"
	"ecoscan/pkg/ui"
)

// Column widths, in runes, of the truncated table cells
const (
	userWidth    = 20
	statusWidth  = 20
	productWidth = 23
)

// Headers are the account table columns
var Headers = []string{"#", "User", "Points", "Status", "Last Product", "Score", "Success", "Fail"}

// Model is the dashboard state. It holds the latest snapshot only; all
// account state lives in the scheduler.
type Model struct {
	spinner  spinner.Model
	snapshot models.Snapshot
	accounts int

	width    int
	height   int
	quitting bool
	done     bool
	err      error
}

// NewModel creates a model for the given number of accounts
func NewModel(accounts int) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(neonCyan)

	return &Model{
		spinner:  s,
		accounts: accounts,
	}
}

// Init starts the spinner
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Snapshot returns the last snapshot received
func (m *Model) Snapshot() models.Snapshot {
	return m.snapshot
}

// Quitting reports whether the user asked to quit
func (m *Model) Quitting() bool {
	return m.quitting
}

// Rows renders the account table body
func (m *Model) Rows() [][]string {
	rows := make([][]string, 0, len(m.snapshot.Accounts))
	for _, view := range m.snapshot.Accounts {
		st := view.State
		rows = append(rows, []string{
			fmt.Sprint(view.Index + 1),
			errors.Truncate(st.DisplayName, userWidth),
			ui.FormatNumber(st.Points),
			errors.Truncate(st.Detail, statusWidth),
			errors.Truncate(st.LastProduct, productWidth),
			ui.FormatNumber(st.LastScore),
			fmt.Sprint(st.SuccessCount),
			fmt.Sprint(st.FailCount),
		})
	}
	return rows
}

// Summary is the totals line under the table
func (m *Model) Summary() string {
	return ui.SummaryLine(m.snapshot.Counters, m.accounts)
}
