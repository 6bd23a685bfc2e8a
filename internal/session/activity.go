package session

import (
	"strings"
	"sync"

	"github.com/arvosec/skywatch/internal/incident"
)

// Filter selects activity log entries. Text matches case-insensitively
// against action, site, details, incident ID and asset (OR across
// fields). IncidentID matches that field exactly, case-insensitively.
// When both are set, an entry must satisfy both dimensions.
type Filter struct {
	Text       string
	IncidentID string
}

// ActivityLog is the session's append-only activity record. Batches
// are prepended so the log reads newest-first by insertion order, not
// by timestamp.
type ActivityLog struct {
	mu      sync.RWMutex
	entries []incident.LogEntry
}

// NewActivityLog creates an empty activity log
func NewActivityLog() *ActivityLog {
	return &ActivityLog{}
}

// Append inserts entries at the head of the log, preserving the
// caller-supplied order within the batch
func (l *ActivityLog) Append(entries ...incident.LogEntry) {
	if len(entries) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(append([]incident.LogEntry{}, entries...), l.entries...)
}

// Entries returns a newest-first snapshot of the full log
func (l *ActivityLog) Entries() []incident.LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]incident.LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Query returns the entries matching the filter, newest first
func (l *ActivityLog) Query(f Filter) []incident.LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []incident.LogEntry
	for _, e := range l.entries {
		if matches(e, f) {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of entries in the log
func (l *ActivityLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

func matches(e incident.LogEntry, f Filter) bool {
	if f.IncidentID != "" && !strings.EqualFold(e.IncidentID, f.IncidentID) {
		return false
	}
	if f.Text == "" {
		return true
	}
	q := strings.ToLower(f.Text)
	for _, field := range []string{e.Action, e.Site, e.Details, e.IncidentID, e.Asset} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
