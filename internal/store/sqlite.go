// Package store persists the evidence repository's master case
// library, archived evidence, activity history and export manifests in
// SQLite. The live session keeps its own in-memory state; this store
// is the durable side the repository panel and the list/seed commands
// read from.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/arvosec/skywatch/internal/incident"
)

// ErrNotFound is returned when a requested case has no row
var ErrNotFound = errors.New("case not found")

// Store represents the SQLite storage implementation
type Store struct {
	db *sql.DB
}

// CaseFilter selects repository cases. Tab narrows by lifecycle
// ("Active") or integrity ("Needs Review"); Query matches
// case-insensitively against ID, type and site; the slice fields are
// multi-select facets combined with AND across dimensions.
type CaseFilter struct {
	Tab       string // All | Active | Needs Review
	Query     string
	Status    []string
	Site      []string
	Integrity []string
}

// NewStore creates a new SQLite store instance
func NewStore(dbPath string) (*Store, error) {
	// Ensure target directory exists (e.g., ./data)
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open(sqliteDriver, dbPath+"?_journal_mode=WAL&_foreign_keys=off")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate performs database migrations
func (s *Store) migrate() error {
	migrations := []string{
		// Master case library
		`CREATE TABLE IF NOT EXISTS cases (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			site TEXT NOT NULL,
			zone TEXT,
			status TEXT NOT NULL DEFAULT 'Active',
			confidence TEXT NOT NULL,
			evidence_count INTEGER DEFAULT 0,
			integrity TEXT NOT NULL DEFAULT 'Verified',
			timestamp INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,

		// Archived evidence, keyed by incident ID so the repository and
		// the live per-alert set refer to the same incident
		`CREATE TABLE IF NOT EXISTS evidence (
			id TEXT NOT NULL,
			incident_id TEXT NOT NULL,
			time TEXT NOT NULL,
			kind TEXT NOT NULL,
			source TEXT NOT NULL,
			tag TEXT,
			label TEXT NOT NULL,
			duration TEXT,
			format TEXT,
			content TEXT,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (incident_id, id)
		)`,

		// Activity log archive for cross-session listing
		`CREATE TABLE IF NOT EXISTS activity_archive (
			id TEXT PRIMARY KEY,
			timestamp INTEGER NOT NULL,
			incident_id TEXT,
			incident_start_time INTEGER,
			site TEXT,
			zone TEXT,
			actor TEXT NOT NULL,
			action TEXT NOT NULL,
			asset TEXT,
			result TEXT NOT NULL,
			details TEXT,
			category TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,

		// Export package manifests
		`CREATE TABLE IF NOT EXISTS exports (
			id TEXT PRIMARY KEY,
			incident_id TEXT NOT NULL,
			scope TEXT NOT NULL,
			reason TEXT,
			includes TEXT,
			created_at INTEGER NOT NULL
		)`,

		// Indexes for performance
		`CREATE INDEX IF NOT EXISTS idx_cases_status ON cases(status)`,
		`CREATE INDEX IF NOT EXISTS idx_cases_site ON cases(site)`,
		`CREATE INDEX IF NOT EXISTS idx_cases_integrity ON cases(integrity)`,
		`CREATE INDEX IF NOT EXISTS idx_cases_timestamp ON cases(timestamp)`,

		`CREATE INDEX IF NOT EXISTS idx_evidence_incident ON evidence(incident_id)`,

		`CREATE INDEX IF NOT EXISTS idx_activity_incident ON activity_archive(incident_id)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_timestamp ON activity_archive(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_action ON activity_archive(action)`,

		`CREATE INDEX IF NOT EXISTS idx_exports_incident ON exports(incident_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	// Try to set up FTS (optional)
	s.setupFTS()

	return nil
}

// setupFTS attempts to set up full-text search over the activity
// archive (optional feature). If fts5 is unavailable it falls back to
// a compatibility table with the same name and triggers; SearchActivity
// already has a LIKE fallback that doesn't depend on this.
func (s *Store) setupFTS() {
	_, err := s.db.Exec(`CREATE VIRTUAL TABLE IF NOT EXISTS activity_fts USING fts5(
		id, action, site, details, incident_id, asset,
		content='activity_archive',
		content_rowid='rowid'
	)`)

	createTriggers := func() {
		triggers := []string{
			`CREATE TRIGGER IF NOT EXISTS activity_fts_insert AFTER INSERT ON activity_archive BEGIN
				INSERT INTO activity_fts(id, action, site, details, incident_id, asset)
				VALUES (new.id, new.action, new.site, new.details, new.incident_id, new.asset);
			END`,
			`CREATE TRIGGER IF NOT EXISTS activity_fts_delete AFTER DELETE ON activity_archive BEGIN
				DELETE FROM activity_fts WHERE id = old.id;
			END`,
		}
		for _, m := range triggers {
			_, _ = s.db.Exec(m)
		}
	}

	if err == nil {
		createTriggers()
		return
	}

	_, _ = s.db.Exec(`CREATE TABLE IF NOT EXISTS activity_fts(
		id TEXT, action TEXT, site TEXT, details TEXT, incident_id TEXT, asset TEXT
	)`)
	createTriggers()
}

// UpsertCase creates or replaces a repository case
func (s *Store) UpsertCase(ctx context.Context, c incident.RepoCase) error {
	now := time.Now().Unix()
	query := `INSERT OR REPLACE INTO cases (
		id, type, site, zone, status, confidence, evidence_count, integrity, timestamp, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, COALESCE((SELECT created_at FROM cases WHERE id = ?), ?), ?)`

	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.Type, c.Site, c.Zone, string(c.Status), c.Confidence,
		c.EvidenceCount, string(c.Integrity), c.Timestamp, c.ID, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save case %s: %w", c.ID, err)
	}
	return nil
}

// GetCase returns a single repository case by incident ID
func (s *Store) GetCase(ctx context.Context, id string) (incident.RepoCase, error) {
	query := `SELECT id, type, site, zone, status, confidence, evidence_count, integrity, timestamp
		FROM cases WHERE id = ?`

	var c incident.RepoCase
	var zone sql.NullString
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.Type, &c.Site, &zone, &c.Status, &c.Confidence,
		&c.EvidenceCount, &c.Integrity, &c.Timestamp,
	)
	if err == sql.ErrNoRows {
		return incident.RepoCase{}, fmt.Errorf("case %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return incident.RepoCase{}, fmt.Errorf("failed to query case %s: %w", id, err)
	}
	if zone.Valid {
		c.Zone = zone.String
	}
	return c, nil
}

// ListCases returns all repository cases, newest first
func (s *Store) ListCases(ctx context.Context) ([]incident.RepoCase, error) {
	return s.FilterCases(ctx, CaseFilter{})
}

// FilterCases returns the cases matching the filter, newest first
func (s *Store) FilterCases(ctx context.Context, f CaseFilter) ([]incident.RepoCase, error) {
	base := `SELECT id, type, site, zone, status, confidence, evidence_count, integrity, timestamp
		FROM cases WHERE 1=1`
	args := []interface{}{}

	switch f.Tab {
	case "Active":
		base += " AND status = ?"
		args = append(args, string(incident.CaseActive))
	case "Needs Review":
		base += " AND integrity != ?"
		args = append(args, string(incident.IntegrityVerified))
	}

	if f.Query != "" {
		base += " AND (id LIKE ? COLLATE NOCASE OR type LIKE ? COLLATE NOCASE OR site LIKE ? COLLATE NOCASE)"
		pattern := "%" + f.Query + "%"
		args = append(args, pattern, pattern, pattern)
	}

	addFacet := func(column string, values []string) {
		if len(values) == 0 {
			return
		}
		placeholders := make([]string, 0, len(values))
		for _, v := range values {
			placeholders = append(placeholders, "?")
			args = append(args, v)
		}
		base += " AND " + column + " IN (" + strings.Join(placeholders, ",") + ")"
	}
	addFacet("status", f.Status)
	addFacet("site", f.Site)
	addFacet("integrity", f.Integrity)

	base += " ORDER BY timestamp DESC"

	rows, err := s.db.QueryContext(ctx, base, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cases: %w", err)
	}
	defer rows.Close()

	var cases []incident.RepoCase
	for rows.Next() {
		var c incident.RepoCase
		var zone sql.NullString
		if err := rows.Scan(&c.ID, &c.Type, &c.Site, &zone, &c.Status, &c.Confidence,
			&c.EvidenceCount, &c.Integrity, &c.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan case: %w", err)
		}
		if zone.Valid {
			c.Zone = zone.String
		}
		cases = append(cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating case rows: %w", err)
	}
	return cases, nil
}

// CountCases returns the total number of cases in the library
func (s *Store) CountCases(ctx context.Context) (int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM cases`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count cases: %w", err)
	}
	return total, nil
}

// SetCaseStatus updates only a case's lifecycle status
func (s *Store) SetCaseStatus(ctx context.Context, id string, status incident.CaseStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE cases SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to update case %s status: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("case %s: %w", id, ErrNotFound)
	}
	return nil
}

// SaveEvidence archives an evidence item under an incident ID
func (s *Store) SaveEvidence(ctx context.Context, incidentID string, item incident.EvidenceItem) error {
	query := `INSERT OR REPLACE INTO evidence (
		id, incident_id, time, kind, source, tag, label, duration, format, content, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		item.ID, incidentID, item.Time, string(item.Kind), item.Source,
		item.Tag, item.Label, item.Duration, item.Format, item.Content,
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save evidence %s for %s: %w", item.ID, incidentID, err)
	}
	return nil
}

// GetEvidenceByIncident returns the archived evidence for an incident,
// newest first by insertion
func (s *Store) GetEvidenceByIncident(ctx context.Context, incidentID string) ([]incident.EvidenceItem, error) {
	query := `SELECT id, time, kind, source, tag, label, duration, format, content
		FROM evidence WHERE incident_id = ? ORDER BY created_at DESC, rowid DESC`

	rows, err := s.db.QueryContext(ctx, query, incidentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query evidence for %s: %w", incidentID, err)
	}
	defer rows.Close()

	var items []incident.EvidenceItem
	for rows.Next() {
		var item incident.EvidenceItem
		var tag, duration, format, content sql.NullString
		if err := rows.Scan(&item.ID, &item.Time, &item.Kind, &item.Source,
			&tag, &item.Label, &duration, &format, &content); err != nil {
			return nil, fmt.Errorf("failed to scan evidence: %w", err)
		}
		item.Tag = tag.String
		item.Duration = duration.String
		item.Format = format.String
		item.Content = content.String
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating evidence rows: %w", err)
	}
	return items, nil
}

// CountEvidence returns how many items are archived for an incident
func (s *Store) CountEvidence(ctx context.Context, incidentID string) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM evidence WHERE incident_id = ?`, incidentID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count evidence for %s: %w", incidentID, err)
	}
	return total, nil
}

// CountAllEvidence returns the archived evidence total across every
// incident
func (s *Store) CountAllEvidence(ctx context.Context) (int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM evidence`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count evidence: %w", err)
	}
	return total, nil
}
