package session

import (
	"fmt"
	"sync"

	"github.com/arvosec/skywatch/internal/incident"
)

// AlertStore is the single source of truth for alert identity and
// status within a session. Alerts are never deleted; new alerts are
// inserted at the head so List is newest-first by insertion.
type AlertStore struct {
	mu     sync.RWMutex
	alerts []incident.Alert
	byID   map[string]int
}

// NewAlertStore creates an empty alert store
func NewAlertStore() *AlertStore {
	return &AlertStore{byID: make(map[string]int)}
}

// Create inserts an alert at the head of the list. Duplicate IDs are
// rejected rather than silently overwritten.
func (s *AlertStore) Create(a incident.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[a.ID]; exists {
		return fmt.Errorf("create alert %s: %w", a.ID, ErrDuplicateID)
	}
	s.alerts = append([]incident.Alert{a}, s.alerts...)
	s.reindex()
	return nil
}

// CreateBatch inserts alerts at the head preserving the given order,
// so batch[0] ends up newest. The whole batch is rejected if any ID is
// a duplicate.
func (s *AlertStore) CreateBatch(batch []incident.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(batch))
	for _, a := range batch {
		if _, exists := s.byID[a.ID]; exists || seen[a.ID] {
			return fmt.Errorf("create alert %s: %w", a.ID, ErrDuplicateID)
		}
		seen[a.ID] = true
	}
	s.alerts = append(append([]incident.Alert{}, batch...), s.alerts...)
	s.reindex()
	return nil
}

// List returns a newest-first snapshot of all alerts
func (s *AlertStore) List() []incident.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]incident.Alert, len(s.alerts))
	copy(out, s.alerts)
	return out
}

// Find returns the alert with the given ID
func (s *AlertStore) Find(id string) (incident.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byID[id]
	if !ok {
		return incident.Alert{}, fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	return s.alerts[idx], nil
}

// SetStatus mutates only the status field. Last write wins; setting
// the current status again is a no-op.
func (s *AlertStore) SetStatus(id string, status incident.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	s.alerts[idx].Status = status
	return nil
}

// Len returns the number of alerts in the store
func (s *AlertStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.alerts)
}

// reindex rebuilds the ID index after a head insert; caller holds mu
func (s *AlertStore) reindex() {
	for i, a := range s.alerts {
		s.byID[a.ID] = i
	}
}
