package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arvosec/skywatch/internal/incident"
)

func entry(id, incidentID, action string) incident.LogEntry {
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

func TestAppendPreservesBatchOrderNewestFirst(t *testing.T) {
	l := NewActivityLog()
	l.Append(entry("old-1", "", "OLD ENTRY"))

	batch := []incident.LogEntry{
		entry("b-1", "INC-111111", "ALERT TRIGGERED"),
		entry("b-2", "INC-111111", "AUTONOMOUS DISPATCH"),
		entry("b-3", "INC-111111", "TRACKING INITIATED"),
		entry("b-4", "INC-111111", "EVIDENCE RECORDING STARTED"),
	}
	l.Append(batch...)

	got := l.Entries()
	require.Len(t, got, 5)
	assert.Equal(t, "b-1", got[0].ID)
	assert.Equal(t, "b-2", got[1].ID)
	assert.Equal(t, "b-3", got[2].ID)
	assert.Equal(t, "b-4", got[3].ID)
	assert.Equal(t, "old-1", got[4].ID, "prior entries stay behind the new batch")
}

func TestQueryByIncidentIDIsExactAndCaseInsensitive(t *testing.T) {
	l := NewActivityLog()
	l.Append(
		entry("1", "INC-111111", "ALERT TRIGGERED"),
		entry("2", "INC-222222", "ALERT TRIGGERED"),
		entry("3", "INC-111111", "TRACKING INITIATED"),
		entry("4", "", "SYSTEM SYNC"),
	)

	got := l.Query(Filter{IncidentID: "inc-111111"})
	require.Len(t, got, 2)
	for _, e := range got {
		assert.Equal(t, "INC-111111", e.IncidentID)
	}
}

func TestQueryTextMatchesAcrossFields(t *testing.T) {
	l := NewActivityLog()
	byAction := entry("1", "", "TRACKING INITIATED")
	bySite := entry("2", "", "SYNC")
	bySite.Site = "Site Bravo"
	byAsset := entry("3", "", "DISPATCH")
	byAsset.Asset = "Drone 3"
	byDetails := entry("4", "", "NOTE")
	byDetails.Details = "forced entry on the latch"
	l.Append(byAction, bySite, byAsset, byDetails)

	assert.Len(t, l.Query(Filter{Text: "tracking"}), 1)
	assert.Len(t, l.Query(Filter{Text: "bravo"}), 1)
	assert.Len(t, l.Query(Filter{Text: "drone 3"}), 1)
	assert.Len(t, l.Query(Filter{Text: "LATCH"}), 1)
	assert.Empty(t, l.Query(Filter{Text: "no such thing"}))
}

// When both dimensions are supplied an entry must satisfy both. The
// console only ever sets one at a time (text from the search box,
// incident ID from deep links) so AND composition is the conservative
// choice.
func TestQueryComposesDimensionsWithAnd(t *testing.T) {
	l := NewActivityLog()
	l.Append(
		entry("1", "INC-111111", "ALERT TRIGGERED"),
		entry("2", "INC-111111", "TRACKING INITIATED"),
		entry("3", "INC-222222", "TRACKING INITIATED"),
	)

	got := l.Query(Filter{Text: "tracking", IncidentID: "INC-111111"})
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)
}

func TestRelativeTimeRendering(t *testing.T) {
	e := entry("1", "INC-111111", "TRACKING INITIATED")
	e.IncidentStartTime = 1700000000000
	e.Timestamp = 1700000000000 + 125000
	assert.Equal(t, "T+02:05", e.RelativeTime())

	e.Timestamp = 1700000000000 - 65000
	assert.Equal(t, "T-01:05", e.RelativeTime())

	e.IncidentStartTime = 0
	assert.Equal(t, "", e.RelativeTime())
}
