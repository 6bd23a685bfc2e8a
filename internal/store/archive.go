package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/arvosec/skywatch/internal/incident"
)

// ArchiveActivity persists an activity log entry for cross-session
// listing. The live in-memory log remains the session's source of
// truth; this is the durable trail behind `skywatch list activity`.
func (s *Store) ArchiveActivity(ctx context.Context, e incident.LogEntry) error {
	query := `INSERT OR REPLACE INTO activity_archive (
		id, timestamp, incident_id, incident_start_time, site, zone,
		actor, action, asset, result, details, category, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		e.ID, e.Timestamp, e.IncidentID, e.IncidentStartTime, e.Site, e.Zone,
		e.Actor, e.Action, e.Asset, string(e.Result), e.Details, string(e.Category),
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to archive activity entry %s: %w", e.ID, err)
	}
	return nil
}

// ListActivity returns archived entries newest first, up to limit
// (0 means no limit)
func (s *Store) ListActivity(ctx context.Context, limit int) ([]incident.LogEntry, error) {
	query := `SELECT id, timestamp, incident_id, incident_start_time, site, zone,
		actor, action, asset, result, details, category
		FROM activity_archive ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity archive: %w", err)
	}
	defer rows.Close()

	return s.scanActivity(rows)
}

// SearchActivity performs full-text search over the archive, falling
// back to LIKE matching when FTS is unavailable
func (s *Store) SearchActivity(ctx context.Context, query string, limit int) ([]incident.LogEntry, error) {
	ftsQuery := `SELECT a.id, a.timestamp, a.incident_id, a.incident_start_time, a.site, a.zone,
		a.actor, a.action, a.asset, a.result, a.details, a.category
		FROM activity_archive a
		JOIN activity_fts fts ON a.id = fts.id
		WHERE activity_fts MATCH ?
		ORDER BY rank
		LIMIT ?`

	// Quote the term so hyphenated incident IDs parse as a phrase
	rows, err := s.db.QueryContext(ctx, ftsQuery, `"`+strings.ReplaceAll(query, `"`, ``)+`"`, limit)
	if err == nil {
		defer rows.Close()
		return s.scanActivity(rows)
	}

	likeQuery := `SELECT id, timestamp, incident_id, incident_start_time, site, zone,
		actor, action, asset, result, details, category
		FROM activity_archive
		WHERE action LIKE ? COLLATE NOCASE
			OR site LIKE ? COLLATE NOCASE
			OR details LIKE ? COLLATE NOCASE
			OR incident_id LIKE ? COLLATE NOCASE
			OR asset LIKE ? COLLATE NOCASE
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`

	pattern := "%" + query + "%"
	rows, err = s.db.QueryContext(ctx, likeQuery, pattern, pattern, pattern, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search activity archive: %w", err)
	}
	defer rows.Close()

	return s.scanActivity(rows)
}

// GetActivityByIncident returns the archived trail for one incident
func (s *Store) GetActivityByIncident(ctx context.Context, incidentID string) ([]incident.LogEntry, error) {
	query := `SELECT id, timestamp, incident_id, incident_start_time, site, zone,
		actor, action, asset, result, details, category
		FROM activity_archive WHERE incident_id = ? COLLATE NOCASE
		ORDER BY created_at DESC, rowid DESC`

	rows, err := s.db.QueryContext(ctx, query, incidentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity for %s: %w", incidentID, err)
	}
	defer rows.Close()

	return s.scanActivity(rows)
}

// scanActivity scans archive rows into log entries
func (s *Store) scanActivity(rows *sql.Rows) ([]incident.LogEntry, error) {
	var entries []incident.LogEntry
	for rows.Next() {
		var e incident.LogEntry
		var incidentID, site, zone, asset, details sql.NullString
		var startTime sql.NullInt64

		if err := rows.Scan(&e.ID, &e.Timestamp, &incidentID, &startTime, &site, &zone,
			&e.Actor, &e.Action, &asset, &e.Result, &details, &e.Category); err != nil {
			return nil, fmt.Errorf("failed to scan activity entry: %w", err)
		}
		e.IncidentID = incidentID.String
		e.IncidentStartTime = startTime.Int64
		e.Site = site.String
		e.Zone = zone.String
		e.Asset = asset.String
		e.Details = details.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity rows: %w", err)
	}
	return entries, nil
}

// SaveExport records an export package manifest
func (s *Store) SaveExport(ctx context.Context, pkg incident.ExportPackage) error {
	includesJSON, err := json.Marshal(pkg.Includes)
	if err != nil {
		return fmt.Errorf("failed to marshal export includes: %w", err)
	}

	query := `INSERT INTO exports (id, incident_id, scope, reason, includes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		pkg.ID, pkg.IncidentID, pkg.Scope, pkg.Reason, string(includesJSON), pkg.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save export %s: %w", pkg.ID, err)
	}
	return nil
}

// ListExports returns export manifests, optionally scoped to one
// incident, newest first
func (s *Store) ListExports(ctx context.Context, incidentID string) ([]incident.ExportPackage, error) {
	query := `SELECT id, incident_id, scope, reason, includes, created_at FROM exports`
	args := []interface{}{}
	if incidentID != "" {
		query += " WHERE incident_id = ?"
		args = append(args, incidentID)
	}
	query += " ORDER BY created_at DESC, rowid DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query exports: %w", err)
	}
	defer rows.Close()

	var pkgs []incident.ExportPackage
	for rows.Next() {
		var pkg incident.ExportPackage
		var reason, includesJSON sql.NullString
		var createdAt int64
		if err := rows.Scan(&pkg.ID, &pkg.IncidentID, &pkg.Scope, &reason, &includesJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan export: %w", err)
		}
		pkg.Reason = reason.String
		pkg.CreatedAt = time.Unix(createdAt, 0)
		if includesJSON.Valid && includesJSON.String != "" {
			if err := json.Unmarshal([]byte(includesJSON.String), &pkg.Includes); err != nil {
				// keep the manifest row even if the includes blob is corrupt
				pkg.Includes = nil
			}
		}
		pkgs = append(pkgs, pkg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating export rows: %w", err)
	}
	return pkgs, nil
}

// Seed populates the case library and per-case evidence archive with
// the canned dataset. Existing rows with the same IDs are replaced.
func (s *Store) Seed(ctx context.Context) error {
	now := time.Now().UnixMilli()
	for _, c := range incident.SeedRepoCases(now) {
		if err := s.UpsertCase(ctx, c); err != nil {
			return err
		}
		for _, item := range incident.SeedEvidence() {
			if err := s.SaveEvidence(ctx, c.ID, item); err != nil {
				return err
			}
		}
	}
	return nil
}

// Reset drops all stored data
func (s *Store) Reset(ctx context.Context) error {
	tables := []string{"cases", "evidence", "activity_archive", "exports"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear table %s: %w", table, err)
		}
	}
	return nil
}
