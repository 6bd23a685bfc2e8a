package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arvosec/skywatch/internal/incident"
)

func demoAlert(id string) incident.Alert {
	return incident.Alert{
		ID:         id,
		Severity:   incident.SeverityHigh,
		Type:       "Intrusion Suspected",
		Site:       "Site A",
		Timestamp:  1700000000000,
		Confidence: 0.86,
		Status:     incident.StatusInReview,
		AISummary:  "1 person detected",
		Details: incident.Details{
			Why:     "Motion detected near Gate 2",
			Action:  "Drone 3 tracking target",
			DroneID: "Drone 3",
			Zone:    "Gate 2 / North",
		},
	}
}

func TestCreateThenFindReturnsIdenticalFields(t *testing.T) {
	s := NewAlertStore()
	a := demoAlert("INC-000001")
	require.NoError(t, s.Create(a))

	got, err := s.Find("INC-000001")
	require.NoError(t, err)
	assert.Equal(t, a, got)

	list := s.List()
	require.NotEmpty(t, list)
	assert.Equal(t, "INC-000001", list[0].ID, "new alert should be at the head")
}

func TestCreateRejectsDuplicateID(t *testing.T) {
	s := NewAlertStore()
	require.NoError(t, s.Create(demoAlert("INC-000001")))

	err := s.Create(demoAlert("INC-000001"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateID))
	assert.Equal(t, 1, s.Len())
}

func TestCreateBatchPreservesOrderAtHead(t *testing.T) {
	s := NewAlertStore()
	require.NoError(t, s.Create(demoAlert("INC-000001")))

	batch := []incident.Alert{demoAlert("INC-000002"), demoAlert("INC-000003")}
	require.NoError(t, s.CreateBatch(batch))

	list := s.List()
	require.Len(t, list, 3)
	assert.Equal(t, "INC-000002", list[0].ID)
	assert.Equal(t, "INC-000003", list[1].ID)
	assert.Equal(t, "INC-000001", list[2].ID)
}

func TestCreateBatchRejectsDuplicateWithoutPartialInsert(t *testing.T) {
	s := NewAlertStore()
	require.NoError(t, s.Create(demoAlert("INC-000001")))

	batch := []incident.Alert{demoAlert("INC-000002"), demoAlert("INC-000001")}
	err := s.CreateBatch(batch)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateID))
	assert.Equal(t, 1, s.Len(), "failed batch must not insert anything")
}

func TestSetStatusLastWriteWins(t *testing.T) {
	s := NewAlertStore()
	require.NoError(t, s.Create(demoAlert("INC-000001")))

	require.NoError(t, s.SetStatus("INC-000001", incident.StatusAssessing))
	require.NoError(t, s.SetStatus("INC-000001", incident.StatusAcknowledged))
	require.NoError(t, s.SetStatus("INC-000001", incident.StatusResolved))

	got, err := s.Find("INC-000001")
	require.NoError(t, err)
	assert.Equal(t, incident.StatusResolved, got.Status)
}

func TestFindUnknownIDReturnsNotFound(t *testing.T) {
	s := NewAlertStore()
	_, err := s.Find("INC-999999")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	err = s.SetStatus("INC-999999", incident.StatusResolved)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestConfidenceLabelThreshold(t *testing.T) {
	a := demoAlert("INC-000001")
	a.Confidence = 0.86
	assert.Equal(t, "High", a.ConfidenceLabel())

	a.Confidence = 0.8
	assert.Equal(t, "Medium", a.ConfidenceLabel(), "exactly 0.8 is still Medium")

	a.Confidence = 0.62
	assert.Equal(t, "Medium", a.ConfidenceLabel())
}
