package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode"

	"ecoscan/pkg/models"
)

// LineDisplay prints snapshot changes as plain lines. It is used when
// stdout is not a terminal or the dashboard is disabled. Unless verbose is
// set, countdown ticks and poll progress are folded into one line each.
type LineDisplay struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
	details map[int]string
	message string
}

// NewLineDisplay creates a display writing to out
func NewLineDisplay(out io.Writer, verbose bool) *LineDisplay {
	return &LineDisplay{
		out:     out,
		verbose: verbose,
		details: make(map[int]string),
	}
}

// Publish prints what changed since the previous snapshot
func (d *LineDisplay) Publish(snapshot models.Snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, view := range snapshot.Accounts {
		st := view.State
		prev, seen := d.details[view.Index]
		d.details[view.Index] = st.Detail
		if seen && !d.changed(prev, st.Detail) {
			continue
		}
		d.printAccount(view)
	}

	if snapshot.Message != "" && d.changed(d.message, snapshot.Message) {
		fmt.Fprintf(d.out, "%s %s\n", Magenta("→"), snapshot.Message)
	}
	d.message = snapshot.Message
}

// Complete prints the final summary
func (d *LineDisplay) Complete(counters models.GlobalCounters, accounts int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	fmt.Fprintf(d.out, "\n%s\n", Magenta(SummaryLine(counters, accounts)))
}

func (d *LineDisplay) changed(prev, next string) bool {
	if d.verbose {
		return prev != next
	}
	return template(prev) != template(next)
}

func (d *LineDisplay) printAccount(view models.AccountView) {
	st := view.State
	tone := StatusTone(st.Detail)

	marker := Dim("•")
	switch tone {
	case ToneGood:
		marker = Green("✓")
	case ToneBad:
		marker = Red("✗")
	}

	line := fmt.Sprintf("%s #%d %s • %s", marker, view.Index+1, Cyan(st.DisplayName), tone.Colorize(st.Detail))

	if st.Phase == models.PhaseSuccess || st.Phase == models.PhaseNoProductFound || st.Phase == models.PhaseFailed {
		line += fmt.Sprintf(" • %s (%s) • points %s • %s/%s",
			st.LastProduct,
			FormatNumber(st.LastScore),
			Magenta(FormatNumber(st.Points)),
			Green(fmt.Sprint(st.SuccessCount)),
			Red(fmt.Sprint(st.FailCount)),
		)
	}

	fmt.Fprintln(d.out, line)
}

// template strips digits so countdowns and poll counters compare equal
func template(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return '#'
		}
		return r
	}, s)
}
