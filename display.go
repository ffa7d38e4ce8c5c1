package main

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// terminalDisplay renders log entries as an append-only list on a
// terminal, only entries it hasn't drawn yet are written
type terminalDisplay struct {
	out  io.Writer
	last uuid.UUID
}

func newTerminalDisplay(out io.Writer) *terminalDisplay {
	return &terminalDisplay{out: out}
}

// render draws the entries following the last one drawn, if that entry
// has scrolled out of the window the whole window is drawn
func (d *terminalDisplay) render(entries []logEntry) {
	start := 0
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].id == d.last {
			start = i + 1
			break
		}
	}

	for _, e := range entries[start:] {
		fmt.Fprintln(d.out, formatEntry(e))
	}

	if len(entries) > 0 {
		d.last = entries[len(entries)-1].id
	}
}

// printPanel writes the full log panel
func printPanel(out io.Writer, entries []logEntry) {
	fmt.Fprintf(out, "--- Event Log (last %d) ---\n", displayedEntries)
	for _, e := range entries {
		fmt.Fprintln(out, formatEntry(e))
	}
}

func formatEntry(e logEntry) string {
	return fmt.Sprintf("%s [%s] %s", severityEmoji(e.severity), e.timestamp.Format(time.RFC3339Nano), e.message)
}

func severityEmoji(s severity) string {
	switch s {
	case severitySuccess:
		return "✅"
	case severityWarning:
		return "⚠️"
	case severityError:
		return "❌"
	default:
		return "ℹ️"
	}
}
