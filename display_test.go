package main

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalDisplayWritesNewEntriesOnly(t *testing.T) {
	var buf bytes.Buffer
	l := newEventLog(newTerminalDisplay(&buf), nil, 0)

	l.append("first", severityInfo)
	l.append("second", severityError)
	l.append("third", severitySuccess)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "ℹ️ ["))
	assert.True(t, strings.HasSuffix(lines[0], "] first"))
	assert.True(t, strings.HasPrefix(lines[1], "❌ ["))
	assert.True(t, strings.HasSuffix(lines[2], "] third"))
}

func TestTerminalDisplayAfterScrolling(t *testing.T) {
	var buf bytes.Buffer
	l := newEventLog(newTerminalDisplay(&buf), nil, 0)

	for i := 0; i < 30; i++ {
		l.append(fmt.Sprintf("entry %d", i), severityInfo)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 30)
}

func TestPrintPanel(t *testing.T) {
	var buf bytes.Buffer
	l := newEventLog(nil, nil, 0)
	l.append("shown", severityWarning)

	printPanel(&buf, l.recent(displayedEntries))

	assert.Contains(t, buf.String(), "--- Event Log (last 20) ---")
	assert.Contains(t, buf.String(), "⚠️ [")
	assert.Contains(t, buf.String(), "] shown")
}
