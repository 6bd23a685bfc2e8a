package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arvosec/skywatch/internal/incident"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertAndGetCase(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := incident.RepoCase{
		ID: "INC-938471", Type: "Intrusion Suspected", Site: "Site A", Zone: "Gate 2",
		Status: incident.CaseActive, Confidence: "High", EvidenceCount: 12,
		Integrity: incident.IntegrityVerified, Timestamp: 1700000000000,
	}
	require.NoError(t, s.UpsertCase(ctx, c))

	got, err := s.GetCase(ctx, "INC-938471")
	require.NoError(t, err)
	assert.Equal(t, c, got)

	// upsert replaces in place
	c.Status = incident.CaseEscalated
	require.NoError(t, s.UpsertCase(ctx, c))
	got, err = s.GetCase(ctx, "INC-938471")
	require.NoError(t, err)
	assert.Equal(t, incident.CaseEscalated, got.Status)

	total, err := s.CountCases(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestGetCaseNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetCase(context.Background(), "INC-000000")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSeedPopulatesLibrary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Seed(ctx))

	cases, err := s.ListCases(ctx)
	require.NoError(t, err)
	assert.Len(t, cases, 7)
	assert.Equal(t, "INC-938471", cases[0].ID, "newest case should sort first")

	n, err := s.CountEvidence(ctx, "INC-938471")
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestFilterCasesByTab(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Seed(ctx))

	active, err := s.FilterCases(ctx, CaseFilter{Tab: "Active"})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, incident.CaseActive, active[0].Status)

	review, err := s.FilterCases(ctx, CaseFilter{Tab: "Needs Review"})
	require.NoError(t, err)
	require.Len(t, review, 2)
	for _, c := range review {
		assert.NotEqual(t, incident.IntegrityVerified, c.Integrity)
	}
}

func TestFilterCasesBySearchQuery(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Seed(ctx))

	byID, err := s.FilterCases(ctx, CaseFilter{Query: "938455"})
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, "INC-938455", byID[0].ID)

	byType, err := s.FilterCases(ctx, CaseFilter{Query: "loitering"})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, "Vehicle Loitering", byType[0].Type)

	bySite, err := s.FilterCases(ctx, CaseFilter{Query: "site d"})
	require.NoError(t, err)
	require.Len(t, bySite, 1)
	assert.Equal(t, "Site D", bySite[0].Site)
}

func TestFilterCasesCombinesFacetsWithAnd(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Seed(ctx))

	got, err := s.FilterCases(ctx, CaseFilter{
		Status: []string{"Closed"},
		Site:   []string{"Site A"},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "INC-938430", got[0].ID)

	got, err = s.FilterCases(ctx, CaseFilter{Integrity: []string{"Partial", "Flagged"}})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSetCaseStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Seed(ctx))

	require.NoError(t, s.SetCaseStatus(ctx, "INC-938471", incident.CaseExported))
	got, err := s.GetCase(ctx, "INC-938471")
	require.NoError(t, err)
	assert.Equal(t, incident.CaseExported, got.Status)

	err = s.SetCaseStatus(ctx, "INC-000000", incident.CaseClosed)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSaveAndGetEvidence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	item := incident.EvidenceItem{
		ID: "ev-100", Time: "14:40:00", Kind: incident.EvidenceClip,
		Source: "System", Tag: "Manual", Label: "Marked moment (10s/20s)",
	}
	require.NoError(t, s.SaveEvidence(ctx, "INC-938471", item))

	items, err := s.GetEvidenceByIncident(ctx, "INC-938471")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, item, items[0])

	// evidence for other incidents stays invisible
	items, err = s.GetEvidenceByIncident(ctx, "INC-938468")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCountAllEvidenceSpansIncidents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"INC-938471", "INC-938471", "INC-938468"} {
		item := incident.EvidenceItem{
			ID: "ev-" + string(rune('a'+i)), Time: "14:40:00",
			Kind: incident.EvidenceClip, Source: "System", Tag: "Manual", Label: "Marked moment",
		}
		require.NoError(t, s.SaveEvidence(ctx, id, item))
	}

	perIncident, err := s.CountEvidence(ctx, "INC-938471")
	require.NoError(t, err)
	assert.Equal(t, 2, perIncident)

	total, err := s.CountAllEvidence(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestResetClearsAllTables(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Seed(ctx))

	require.NoError(t, s.Reset(ctx))
	total, err := s.CountCases(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)

	n, err := s.CountEvidence(ctx, "INC-938471")
	require.NoError(t, err)
	assert.Zero(t, n)
}
