package main

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// number of entries handed to the display sink on every append
const displayedEntries = 20

type severity int

const (
	severityInfo severity = iota
	severitySuccess
	severityWarning
	severityError
)

func (s severity) String() string {
	switch s {
	case severitySuccess:
		return "success"
	case severityWarning:
		return "warning"
	case severityError:
		return "error"
	default:
		return "info"
	}
}

type logEntry struct {
	id        uuid.UUID
	timestamp time.Time
	message   string
	severity  severity
}

// displaySink renders the most recent log entries
type displaySink interface {
	render(entries []logEntry)
}

// eventLog is the append-only record of everything the harness did.
// Appends may come from CDP listener goroutines, so access is locked.
type eventLog struct {
	mu      sync.Mutex
	entries []logEntry
	retain  int // 0 keeps every entry
	sink    displaySink
	logger  *zap.Logger
	now     func() time.Time
}

// newEventLog creates an event log rendering into sink, sink and
// logger may be nil
func newEventLog(sink displaySink, logger *zap.Logger, retain int) *eventLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	if retain < 0 {
		retain = 0
	}

	return &eventLog{
		sink:   sink,
		logger: logger,
		retain: retain,
		now:    time.Now,
	}
}

// append adds an entry at the tail of the log and refreshes the display
func (l *eventLog) append(message string, sev severity) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := logEntry{
		id:        uuid.New(),
		timestamp: l.now().UTC(),
		message:   message,
		severity:  sev,
	}

	l.entries = append(l.entries, entry)
	if l.retain > 0 && len(l.entries) > l.retain {
		l.entries = l.entries[len(l.entries)-l.retain:]
	}

	if l.sink != nil {
		l.sink.render(l.recentLocked(displayedEntries))
	}

	l.mirror(entry)
}

// recent returns a copy of the last n entries in insertion order
func (l *eventLog) recent(n int) []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.recentLocked(n)
}

func (l *eventLog) recentLocked(n int) []logEntry {
	if n <= 0 {
		return []logEntry{}
	}

	start := max(len(l.entries)-n, 0)
	out := make([]logEntry, len(l.entries)-start)
	copy(out, l.entries[start:])

	return out
}

// count returns the number of retained entries of the given severity
func (l *eventLog) count(sev severity) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for _, e := range l.entries {
		if e.severity == sev {
			n++
		}
	}

	return n
}

// mirror writes the entry to the diagnostic logger
func (l *eventLog) mirror(e logEntry) {
	fields := []zap.Field{
		zap.String("severity", e.severity.String()),
		zap.Time("ts", e.timestamp),
	}

	switch e.severity {
	case severityError:
		l.logger.Error(e.message, fields...)
	case severityWarning:
		l.logger.Warn(e.message, fields...)
	default:
		l.logger.Debug(e.message, fields...)
	}
}
