package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/arvosec/skywatch/internal/incident"
)

// EvidenceStore holds the live evidence set for the currently selected
// alert. The set reseeds from a fixed baseline whenever the selection
// changes; operator captures prepend on top of it.
type EvidenceStore struct {
	mu      sync.RWMutex
	alertID string
	items   []incident.EvidenceItem
	now     func() time.Time
}

// NewEvidenceStore creates an empty evidence store
func NewEvidenceStore() *EvidenceStore {
	return &EvidenceStore{now: time.Now}
}

// ResetForAlert reinitializes the evidence set to the seed baseline
// for the given alert, discarding anything captured for the previous
// selection
func (s *EvidenceStore) ResetForAlert(alertID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alertID = alertID
	s.items = incident.SeedEvidence()
}

// AddClip prepends a marked-moment clip covering the capture window
func (s *EvidenceStore) AddClip(label, captureWindow string) incident.EvidenceItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	item := incident.EvidenceItem{
		ID:     fmt.Sprintf("ev-%d", now.UnixMilli()),
		Time:   now.Format("15:04:05"),
		Kind:   incident.EvidenceClip,
		Source: "System",
		Tag:    "Manual",
		Label:  fmt.Sprintf("%s (%s)", label, captureWindow),
	}
	s.items = append([]incident.EvidenceItem{item}, s.items...)
	return item
}

// AddNote prepends an operator note
func (s *EvidenceStore) AddNote(content string) incident.EvidenceItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	item := incident.EvidenceItem{
		ID:      fmt.Sprintf("note-%d", now.UnixMilli()),
		Time:    now.Format("15:04:05"),
		Kind:    incident.EvidenceNote,
		Source:  "Operator",
		Tag:     "Note",
		Label:   "Operator Note",
		Content: content,
	}
	s.items = append([]incident.EvidenceItem{item}, s.items...)
	return item
}

// List returns a newest-first snapshot of the current evidence set
func (s *EvidenceStore) List() []incident.EvidenceItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]incident.EvidenceItem, len(s.items))
	copy(out, s.items)
	return out
}

// AlertID returns the alert the current set is scoped to
func (s *EvidenceStore) AlertID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.alertID
}

// Len returns the number of items in the current set
func (s *EvidenceStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
