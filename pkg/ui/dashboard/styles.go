package dashboard

import (
	"github.com/charmbracelet/lipgloss"

	"ecoscan/pkg/ui"
)

var (
	neonCyan    = lipgloss.Color("#00FFFF")
	neonMagenta = lipgloss.Color("#FF00FF")
	neonGreen   = lipgloss.Color("#39FF14")
	neonYellow  = lipgloss.Color("#FFFF00")
	neonRed     = lipgloss.Color("#FF3131")
	dimWhite    = lipgloss.Color("#B0B0B0")
	darkBg      = lipgloss.Color("#0A0E27")

	titleStyle = lipgloss.NewStyle().
			Background(neonMagenta).
			Foreground(darkBg).
			Bold(true).
			Padding(0, 1)

	borderStyle = lipgloss.NewStyle().
			Foreground(neonMagenta)

	headerStyle = lipgloss.NewStyle().
			Foreground(neonCyan).
			Bold(true).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().
			Foreground(dimWhite).
			Padding(0, 1)

	pointsStyle  = cellStyle.Foreground(neonMagenta)
	successStyle = cellStyle.Foreground(neonGreen)
	failStyle    = cellStyle.Foreground(neonRed)
	pendingStyle = cellStyle.Foreground(neonYellow)

	summaryStyle = lipgloss.NewStyle().
			Foreground(neonYellow).
			Bold(true).
			PaddingTop(1)

	messageStyle = lipgloss.NewStyle().
			Foreground(neonCyan)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))
)

// toneStyle returns the status cell style for a status text
func toneStyle(detail string) lipgloss.Style {
	switch ui.StatusTone(detail) {
	case ui.ToneGood:
		return successStyle
	case ui.ToneBad:
		return failStyle
	default:
		return pendingStyle
	}
}
