package incident

import (
	"fmt"
	"time"
)

// Severity represents the severity level of an alert
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// Status represents an alert's position in the review workflow
type Status string

const (
	StatusUnreviewed   Status = "Unreviewed"
	StatusInReview     Status = "In Review"
	StatusAssessing    Status = "Assessing"
	StatusAcknowledged Status = "Acknowledged"
	StatusResolved     Status = "Resolved"
)

// Details carries the per-alert context shown in the detail sidebar
type Details struct {
	Why     string `json:"why"`
	Action  string `json:"action"`
	DroneID string `json:"drone_id"`
	Zone    string `json:"zone"`
}

// Alert represents a detected security event requiring operator attention.
// Alerts are identified by an incident ID of the form INC-<digits>, are
// never deleted within a session, and only their Status field mutates.
type Alert struct {
	ID         string   `json:"id"`
	Severity   Severity `json:"severity"`
	Type       string   `json:"type"`
	Site       string   `json:"site"`
	Timestamp  int64    `json:"timestamp"` // epoch milliseconds
	Confidence float64  `json:"confidence"`
	Status     Status   `json:"status"`
	AISummary  string   `json:"ai_summary"`
	Details    Details  `json:"details"`
}

// ConfidenceLabel maps the numeric confidence to the coarse label shown
// in the UI. The threshold is strict: exactly 0.8 is still Medium.
func (a *Alert) ConfidenceLabel() string {
	if a.Confidence > 0.8 {
		return "High"
	}
	return "Medium"
}

// Time returns the alert's creation instant
func (a *Alert) Time() time.Time {
	return time.UnixMilli(a.Timestamp)
}

// StartsInResponse reports whether the alert opens directly in the
// response workspace instead of the read-only detail sidebar. Only
// alerts already under active assessment skip the detail stage; an
// In Review alert still needs the operator to confirm the threat.
func (a *Alert) StartsInResponse() bool {
	return a.Status == StatusAssessing
}

// LogResult represents the outcome recorded on an activity log entry
type LogResult string

const (
	ResultSuccess    LogResult = "SUCCESS"
	ResultFailed     LogResult = "FAILED"
	ResultInProgress LogResult = "IN_PROGRESS"
	ResultInfo       LogResult = "INFO"
)

// LogCategory classifies activity log entries by origin
type LogCategory string

const (
	CategoryIncident LogCategory = "Incident"
	CategoryDrone    LogCategory = "Drone"
	CategoryEvidence LogCategory = "Evidence"
	CategorySystem   LogCategory = "System"
	CategoryOperator LogCategory = "Operator"
)

// LogEntry is an append-only activity record. Entries are prepended to
// the log so ordering is reverse-chronological by insertion, not by
// timestamp.
type LogEntry struct {
	ID                string      `json:"id"`
	Timestamp         int64       `json:"timestamp"`
	IncidentID        string      `json:"incident_id,omitempty"`
	IncidentStartTime int64       `json:"incident_start_time,omitempty"`
	Site              string      `json:"site"`
	Zone              string      `json:"zone,omitempty"`
	Actor             string      `json:"actor"`
	Action            string      `json:"action"`
	Asset             string      `json:"asset,omitempty"`
	Result            LogResult   `json:"result"`
	Details           string      `json:"details"`
	Category          LogCategory `json:"category"`
}

// RelativeTime renders the entry's offset from the incident start as
// T+mm:ss (or T-mm:ss for entries predating the incident). Entries with
// no incident start time render the empty string.
func (e *LogEntry) RelativeTime() string {
	if e.IncidentStartTime == 0 {
		return ""
	}
	delta := e.Timestamp - e.IncidentStartTime
	sign := "+"
	if delta < 0 {
		sign = "-"
		delta = -delta
	}
	secs := delta / 1000
	return fmt.Sprintf("T%s%02d:%02d", sign, secs/60, secs%60)
}

// EvidenceKind represents the type of a captured evidence item
type EvidenceKind string

const (
	EvidenceVideo    EvidenceKind = "video"
	EvidenceSnapshot EvidenceKind = "snapshot"
	EvidenceNote     EvidenceKind = "note"
	EvidenceClip     EvidenceKind = "clip"
)

// EvidenceItem is a single piece of captured evidence scoped to an
// alert. Items are append-only within a session; the set is reseeded
// whenever the selected alert changes.
type EvidenceItem struct {
	ID       string       `json:"id"`
	Time     string       `json:"time"` // display string, HH:MM:SS
	Kind     EvidenceKind `json:"kind"`
	Source   string       `json:"source"`
	Tag      string       `json:"tag"`
	Label    string       `json:"label"`
	Duration string       `json:"duration,omitempty"`
	Format   string       `json:"format,omitempty"`
	Content  string       `json:"content,omitempty"`
}

// SiteStatus represents a site's overall condition
type SiteStatus string

const (
	SiteNormal        SiteStatus = "Normal"
	SiteAlert         SiteStatus = "Alert"
	SiteInvestigating SiteStatus = "Investigating"
	SiteOffline       SiteStatus = "Offline"
)

// ConnectionState represents a site's uplink health
type ConnectionState string

const (
	ConnOnline   ConnectionState = "Online"
	ConnDegraded ConnectionState = "Degraded"
	ConnOffline  ConnectionState = "Offline"
)

// Site is a monitored deployment location shown on the dashboard grid
type Site struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Location        string          `json:"location"`
	DronesReady     int             `json:"drones_ready"`
	DronesBusy      int             `json:"drones_busy"`
	LastEvent       string          `json:"last_event"`
	Status          SiteStatus      `json:"status"`
	ActiveTask      string          `json:"active_task,omitempty"`
	ConnectionState ConnectionState `json:"connection_state"`
	AlertCount      int             `json:"alert_count"`
}

// CaseStatus represents a repository case's lifecycle state
type CaseStatus string

const (
	CaseActive    CaseStatus = "Active"
	CaseClosed    CaseStatus = "Closed"
	CaseEscalated CaseStatus = "Escalated"
	CaseExported  CaseStatus = "Exported"
)

// Integrity represents the chain-of-custody verification state of a case
type Integrity string

const (
	IntegrityVerified Integrity = "Verified"
	IntegrityPartial  Integrity = "Partial"
	IntegrityFlagged  Integrity = "Flagged"
)

// RepoCase is an entry in the evidence repository's master case
// library. Cases are keyed by incident ID, so a repository case and a
// live alert with the same ID refer to the same incident.
type RepoCase struct {
	ID            string     `json:"id"`
	Type          string     `json:"type"`
	Site          string     `json:"site"`
	Zone          string     `json:"zone"`
	Status        CaseStatus `json:"status"`
	Confidence    string     `json:"confidence"` // High | Med | Low
	EvidenceCount int        `json:"evidence_count"`
	Integrity     Integrity  `json:"integrity"`
	Timestamp     int64      `json:"timestamp"`
}

// NeedsReview reports whether the case belongs in the repository's
// Needs Review tab
func (c *RepoCase) NeedsReview() bool {
	return c.Integrity != IntegrityVerified
}

// TaskStatus represents the state of a response task
type TaskStatus string

const (
	TaskQueued    TaskStatus = "Queued"
	TaskEnRoute   TaskStatus = "En route"
	TaskActive    TaskStatus = "Active"
	TaskCompleted TaskStatus = "Completed"
)

// Task is a response workspace ledger entry
type Task struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Assignee string     `json:"assignee"`
	Status   TaskStatus `json:"status"`
	ETA      string     `json:"eta,omitempty"`
}

// Asset is a deployed drone telemetry card in the response workspace
type Asset struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Status  string `json:"status"`
	Intent  string `json:"intent"`
	Battery string `json:"battery"`
	Link    string `json:"link"`
	Mode    string `json:"mode"`
}

// FeedStatus represents the health of a video feed tile
type FeedStatus string

const (
	FeedLive       FeedStatus = "live"
	FeedConnecting FeedStatus = "connecting"
	FeedDegraded   FeedStatus = "degraded"
)

// Feed is a video wall tile in the response workspace
type Feed struct {
	ID        string     `json:"id"`
	Source    string     `json:"source"`
	Kind      string     `json:"kind"` // cctv | drone
	Status    FeedStatus `json:"status"`
	TargetTag string     `json:"target_tag,omitempty"`
	Pinned    bool       `json:"pinned,omitempty"`
}

// TimelineEvent is a row on the alert's context timeline
type TimelineEvent struct {
	Time     string `json:"time"` // T+mm:ss offset label
	Label    string `json:"label"`
	Source   string `json:"source"`
	Status   string `json:"status"` // done | active
	Category string `json:"category"`
}

// Job is a running background operation surfaced in the dashboard pill
type Job struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	SiteName string `json:"site_name"`
	Status   string `json:"status"` // Running | Completed
	Duration int    `json:"duration,omitempty"`
}

// ExportPackage records an evidence export produced from a case file
type ExportPackage struct {
	ID         string    `json:"id"` // PKG-<digits>
	IncidentID string    `json:"incident_id"`
	Scope      string    `json:"scope"`
	Reason     string    `json:"reason"`
	Includes   []string  `json:"includes"`
	CreatedAt  time.Time `json:"created_at"`
}
