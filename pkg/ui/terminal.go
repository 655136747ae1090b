package ui

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"ecoscan/pkg/models"
)

// ASCII logo for the application
const ASCIILogo = `
    ╔═══════════════════════════════════════════════════════════╗
    ║ ███████╗ ██████╗ ██████╗ ███████╗ ██████╗ █████╗ ███╗   ██╗ ║
    ║ ██╔════╝██╔════╝██╔═══██╗██╔════╝██╔════╝██╔══██╗████╗  ██║ ║
    ║ █████╗  ██║     ██║   ██║███████╗██║     ███████║██╔██╗ ██║ ║
    ║ ██╔══╝  ██║     ██║   ██║╚════██║██║     ██╔══██║██║╚██╗██║ ║
    ║ ███████╗╚██████╗╚██████╔╝███████║╚██████╗██║  ██║██║ ╚████║ ║
    ║ ╚══════╝ ╚═════╝ ╚═════╝ ╚══════╝ ╚═════╝╚═╝  ╚═╝╚═╝  ╚═══╝ ║
    ║            MULTI-ACCOUNT PRODUCT SCAN AUTOMATION            ║
    ╚═══════════════════════════════════════════════════════════╝
`

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

// Output is where the Print helpers write
var Output io.Writer = os.Stdout

// colorize returns a function that wraps text with ANSI color codes
func colorize(colorString string) func(string) string {
	return func(text string) string {
		return fmt.Sprintf(colorString, text)
	}
}

// PrintLogo prints the ASCII logo with color
func PrintLogo() {
	fmt.Fprint(Output, Cyan(ASCIILogo))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(Output, Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(Output, Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Fprintln(Output, Green(msg))
}

// PrintInfo prints an info message in cyan
func PrintInfo(label string, value string) {
	fmt.Fprintf(Output, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(Output, Yellow(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(Output, Yellow(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	fmt.Fprintln(Output, Magenta(msg))
}

// SummaryLine formats the exit summary
func SummaryLine(counters models.GlobalCounters, accounts int) string {
	return fmt.Sprintf("Total Success: %d | Total Fails: %d | Total Accounts: %d",
		counters.TotalSuccess, counters.TotalFail, accounts)
}

// PrintSummary prints the exit summary
func PrintSummary(counters models.GlobalCounters, accounts int) {
	fmt.Fprintln(Output)
	PrintHighlight(SummaryLine(counters, accounts))
}

// Unknown is shown for points and scores that have not been fetched
const Unknown = "N/A"

// StoppedMessage is printed when the run is interrupted
const StoppedMessage = "Scan stopped by user."

// FormatNumber renders an optional number, Unknown when nil
func FormatNumber(v *float64) string {
	if v == nil {
		return Unknown
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// Tone classifies a status text for coloring
type Tone int

const (
	TonePending Tone = iota
	ToneGood
	ToneBad
)

// StatusTone reports how a status detail should be colored: success texts
// are good, failures and errors are bad, everything else is pending
func StatusTone(detail string) Tone {
	lower := strings.ToLower(detail)
	switch {
	case strings.Contains(lower, "fail"), strings.Contains(lower, "error"):
		return ToneBad
	case strings.Contains(lower, "success"):
		return ToneGood
	default:
		return TonePending
	}
}

// Colorize applies the terminal color for a tone
func (t Tone) Colorize(text string) string {
	switch t {
	case ToneGood:
		return Green(text)
	case ToneBad:
		return Red(text)
	default:
		return Yellow(text)
	}
}
