package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arvosec/skywatch/internal/incident"
)

func archiveEntry(id, incidentID, action string) incident.LogEntry {
	return incident.LogEntry{
		ID:         id,
		Timestamp:  1700000000000,
		IncidentID: incidentID,
		Site:       "Site A",
		Actor:      "System",
		Action:     action,
		Result:     incident.ResultInfo,
		Details:    "details for " + action,
		Category:   incident.CategorySystem,
	}
}

func TestArchiveAndListActivity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ArchiveActivity(ctx, archiveEntry("a-1", "INC-111111", "ALERT TRIGGERED")))
	require.NoError(t, s.ArchiveActivity(ctx, archiveEntry("a-2", "INC-111111", "AUTONOMOUS DISPATCH")))

	entries, err := s.ListActivity(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a-2", entries[0].ID, "latest archived entry should list first")
	assert.Equal(t, "ALERT TRIGGERED", entries[1].Action)
}

func TestListActivityHonorsLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		e := archiveEntry("a-"+string(rune('0'+i)), "INC-111111", "SYNC")
		require.NoError(t, s.ArchiveActivity(ctx, e))
	}

	entries, err := s.ListActivity(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestSearchActivityMatchesAcrossFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	byAction := archiveEntry("s-1", "INC-111111", "TRACKING INITIATED")
	byAsset := archiveEntry("s-2", "INC-222222", "DISPATCH")
	byAsset.Asset = "Drone 3"
	unrelated := archiveEntry("s-3", "", "SYNC")
	require.NoError(t, s.ArchiveActivity(ctx, byAction))
	require.NoError(t, s.ArchiveActivity(ctx, byAsset))
	require.NoError(t, s.ArchiveActivity(ctx, unrelated))

	got, err := s.SearchActivity(ctx, "tracking", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "s-1", got[0].ID)

	got, err = s.SearchActivity(ctx, "INC-222222", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "s-2", got[0].ID)
}

func TestGetActivityByIncident(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ArchiveActivity(ctx, archiveEntry("i-1", "INC-111111", "ALERT TRIGGERED")))
	require.NoError(t, s.ArchiveActivity(ctx, archiveEntry("i-2", "INC-222222", "ALERT TRIGGERED")))
	require.NoError(t, s.ArchiveActivity(ctx, archiveEntry("i-3", "INC-111111", "TRACKING INITIATED")))

	got, err := s.GetActivityByIncident(ctx, "inc-111111")
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, e := range got {
		assert.Equal(t, "INC-111111", e.IncidentID)
	}
}

func TestSaveAndListExports(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	pkg := incident.ExportPackage{
		ID:         "PKG-123456",
		IncidentID: "INC-111111",
		Scope:      "Quick (Incident)",
		Reason:     "Police",
		Includes:   []string{"GPS", "Notes", "CoC"},
		CreatedAt:  time.Unix(1700000000, 0),
	}
	require.NoError(t, s.SaveExport(ctx, pkg))

	got, err := s.ListExports(ctx, "INC-111111")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, pkg.ID, got[0].ID)
	assert.Equal(t, pkg.Includes, got[0].Includes)
	assert.Equal(t, pkg.CreatedAt.Unix(), got[0].CreatedAt.Unix())

	other, err := s.ListExports(ctx, "INC-999999")
	require.NoError(t, err)
	assert.Empty(t, other)
}
