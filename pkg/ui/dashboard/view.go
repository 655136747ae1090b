package dashboard

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"ecoscan/pkg/ui"
)

// Table column positions
const (
	colPoints  = 2
	colStatus  = 3
	colSuccess = 6
	colFail    = 7
)

// View renders the dashboard
func (m *Model) View() string {
	if m.quitting {
		return ui.StoppedMessage + "\n"
	}

	sections := []string{
		titleStyle.Render(" ECOSCAN "),
		m.renderTable(),
		summaryStyle.Render(m.Summary()),
		helpStyle.Render("Press q or CTRL+C to exit."),
		"",
		m.renderMessage(),
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderTable() string {
	rows := m.Rows()

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(Headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			switch col {
			case colPoints:
				return pointsStyle
			case colStatus:
				if row >= 0 && row < len(rows) {
					return toneStyle(rows[row][colStatus])
				}
			case colSuccess:
				return successStyle
			case colFail:
				return failStyle
			}
			return cellStyle
		})

	if m.width > 0 {
		t = t.Width(m.width)
	}
	return t.Render()
}

func (m *Model) renderMessage() string {
	if m.done {
		if m.err != nil {
			return failStyle.Render(m.err.Error())
		}
		return ""
	}
	msg := strings.TrimSpace(m.snapshot.Message)
	if msg == "" {
		return m.spinner.View()
	}
	return m.spinner.View() + " " + messageStyle.Render(msg)
}
