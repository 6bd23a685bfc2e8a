package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arvosec/skywatch/internal/incident"
)

func TestResetForAlertReseedsBaseline(t *testing.T) {
	s := NewEvidenceStore()
	s.ResetForAlert("INC-111111")

	items := s.List()
	require.Len(t, items, 5)
	assert.Equal(t, "ev-1", items[0].ID)
	assert.Equal(t, "ev-5", items[4].ID)
	assert.Equal(t, "INC-111111", s.AlertID())
}

func TestAddClipPrepends(t *testing.T) {
	s := NewEvidenceStore()
	s.ResetForAlert("INC-111111")

	item := s.AddClip("Marked moment: [Operator]", incident.DefaultCaptureWindow)
	assert.Equal(t, incident.EvidenceClip, item.Kind)
	assert.Contains(t, item.Label, "10s/20s")

	items := s.List()
	require.Len(t, items, 6)
	assert.Equal(t, item.ID, items[0].ID, "new clip should be newest")
}

func TestAddNotePrepends(t *testing.T) {
	s := NewEvidenceStore()
	s.ResetForAlert("INC-111111")

	item := s.AddNote("Gate latch inspected, no damage")
	assert.Equal(t, incident.EvidenceNote, item.Kind)
	assert.Equal(t, "Gate latch inspected, no damage", item.Content)
	assert.Equal(t, item.ID, s.List()[0].ID)
}

func TestSwitchingAlertDiscardsCaptures(t *testing.T) {
	s := NewEvidenceStore()
	s.ResetForAlert("INC-111111")
	s.AddClip("Marked moment: [Operator]", incident.DefaultCaptureWindow)
	s.AddNote("note for first alert")
	require.Equal(t, 7, s.Len())

	s.ResetForAlert("INC-222222")
	items := s.List()
	require.Len(t, items, 5, "captures from the previous alert must not leak")
	assert.Equal(t, "ev-1", items[0].ID)
	assert.Equal(t, "INC-222222", s.AlertID())
}
