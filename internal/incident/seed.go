package incident

import (
	"fmt"
	"time"
)

// Canned demo data for the console. The trigger path builds a fresh
// alert pair and log batch from the trigger instant so IDs and
// relative times stay consistent across a session.

// NewIncidentID derives an incident ID from an epoch-millisecond
// instant, using the last six digits for a compact display form.
func NewIncidentID(epochMillis int64) string {
	s := fmt.Sprintf("%d", epochMillis)
	if len(s) > 6 {
		s = s[len(s)-6:]
	}
	return "INC-" + s
}

// DemoAlert builds the primary alert created by the demo trigger
func DemoAlert(triggerTime int64) Alert {
	return Alert{
		ID:         NewIncidentID(triggerTime),
		Type:       "Intrusion Suspected",
		Site:       "Site A",
		Severity:   SeverityHigh,
		Timestamp:  triggerTime,
		Confidence: 0.86,
		Status:     StatusInReview,
		AISummary:  "1 person detected • Vehicle signature mismatch • Target moving (E perimeter)",
		Details: Details{
			Why:     "Motion detected near Gate 2 + unauthorized vehicle signature.",
			Action:  "Drone 3 tracking target",
			DroneID: "Drone 3",
			Zone:    "Gate 2 / North",
		},
	}
}

// CompanionAlert builds the secondary low-confidence alert created
// alongside the primary so the rail has context to compare against
func CompanionAlert(triggerTime int64) Alert {
	return Alert{
		ID:         NewIncidentID(triggerTime - 120000),
		Type:       "Perimeter Warning",
		Site:       "Site C",
		Severity:   SeverityMedium,
		Timestamp:  triggerTime - 300000,
		Confidence: 0.62,
		Status:     StatusUnreviewed,
		AISummary:  "Movement detected in Sector 4 • Likely fauna",
		Details: Details{
			Why:     "IR sensor triggered. No visual confirmation yet.",
			Action:  "Pending dispatch",
			DroneID: "None",
			Zone:    "Sector 4",
		},
	}
}

// TriggerLogEntries builds the fixed four-entry activity batch recorded
// when the demo alert fires. Order is significant and preserved by the
// activity log's batch append.
func TriggerLogEntries(triggerTime int64, incidentID string) []LogEntry {
	now := time.Now().UnixNano()
	return []LogEntry{
		{
			ID:         fmt.Sprintf("LOG-%d-1", now),
			Timestamp:  triggerTime,
			IncidentID: incidentID,
			Site:       "Site A",
			Zone:       "Gate 2",
			Actor:      "System",
			Action:     "ALERT TRIGGERED",
			Result:     ResultInfo,
			Details:    "Motion detected near Gate 2 + unauthorized vehicle signature.",
			Category:   CategoryIncident,
		},
		{
			ID:                fmt.Sprintf("LOG-%d-2", now),
			Timestamp:         triggerTime + 2000,
			IncidentID:        incidentID,
			IncidentStartTime: triggerTime,
			Site:              "Site A",
			Zone:              "Gate 2",
			Actor:             "System",
			Action:            "AUTONOMOUS DISPATCH",
			Asset:             "Drone 3",
			Result:            ResultSuccess,
			Details:           "Dispatch to Gate 2 (Tracking mode)",
			Category:          CategorySystem,
		},
		{
			ID:                fmt.Sprintf("LOG-%d-3", now),
			Timestamp:         triggerTime + 5000,
			IncidentID:        incidentID,
			IncidentStartTime: triggerTime,
			Site:              "Site A",
			Zone:              "Gate 2",
			Actor:             "Drone 3",
			Action:            "TRACKING INITIATED",
			Asset:             "Drone 3",
			Result:            ResultSuccess,
			Details:           "Target locked • T-0142",
			Category:          CategoryDrone,
		},
		{
			ID:                fmt.Sprintf("LOG-%d-4", now),
			Timestamp:         triggerTime + 2000,
			IncidentID:        incidentID,
			IncidentStartTime: triggerTime,
			Site:              "Site A",
			Zone:              "Gate 2",
			Actor:             "System",
			Action:            "EVIDENCE RECORDING STARTED",
			Asset:             "CAM-02 + Drone 3",
			Result:            ResultSuccess,
			Details:           "Streams: CAM-02 + Drone 3",
			Category:          CategoryEvidence,
		},
	}
}

// HistoricalAlert synthesizes a resolved alert for a repository case
// that has no live record in the current session. It is inserted into
// the alert store so subsequent lookups by ID succeed.
func HistoricalAlert(caseID string, now int64) Alert {
	return Alert{
		ID:         caseID,
		Type:       "Historical Incident",
		Site:       "Site A",
		Severity:   SeverityMedium,
		Timestamp:  now - 1000000,
		Confidence: 0.9,
		Status:     StatusResolved,
		AISummary:  "Archived record opened from the evidence repository.",
		Details: Details{
			Why:     "Historical record access",
			Action:  "Review only",
			DroneID: "N/A",
			Zone:    "N/A",
		},
	}
}

// SeedEvidence returns the fixed evidence set every alert starts with
func SeedEvidence() []EvidenceItem {
	return []EvidenceItem{
		{ID: "ev-1", Time: "14:32:01", Kind: EvidenceVideo, Source: "Drone 3", Tag: "Auto-Track", Label: "Suspect identified at Gate 2", Duration: "00:42"},
		{ID: "ev-2", Time: "14:32:15", Kind: EvidenceSnapshot, Source: "CAM-02", Tag: "Manual", Label: "Visual confirmation of vehicle", Format: "JPG"},
		{ID: "ev-3", Time: "14:32:45", Kind: EvidenceNote, Source: "Operator", Tag: "Note", Label: "Gate 2 lock appears broken", Content: "Visual inspection suggests forced entry on the main latch mechanism."},
		{ID: "ev-4", Time: "14:33:10", Kind: EvidenceVideo, Source: "Drone 3", Tag: "Auto-Track", Label: "Target tracking: Sector 4", Duration: "01:15"},
		{ID: "ev-5", Time: "14:33:30", Kind: EvidenceSnapshot, Source: "Drone 2", Tag: "Auto", Label: "Perimeter visual sweep", Format: "JPG"},
	}
}

// SeedFeeds returns the video wall layout every alert starts with
func SeedFeeds() []Feed {
	return []Feed{
		{ID: "1", Source: "CAM-02", Kind: "cctv", Status: FeedLive, TargetTag: "Target A"},
		{ID: "2", Source: "Drone 3", Kind: "drone", Status: FeedLive, TargetTag: "Target A"},
		{ID: "3", Source: "CAM-05", Kind: "cctv", Status: FeedLive, TargetTag: "Back Gate"},
		{ID: "4", Source: "Drone 1", Kind: "drone", Status: FeedConnecting, TargetTag: "Perimeter"},
		{ID: "5", Source: "CAM-08", Kind: "cctv", Status: FeedLive, TargetTag: "Lobby"},
		{ID: "6", Source: "CAM-01", Kind: "cctv", Status: FeedLive, TargetTag: "North Wall"},
		{ID: "7", Source: "CAM-09", Kind: "cctv", Status: FeedLive, TargetTag: "Corridor A"},
		{ID: "8", Source: "CAM-11", Kind: "cctv", Status: FeedLive, TargetTag: "Stairwell"},
		{ID: "9", Source: "Drone 2", Kind: "drone", Status: FeedConnecting, TargetTag: "Roof"},
	}
}

// SeedResponseTasks returns the task ledger seeded when a threat is
// confirmed or an alert opens directly in the response workspace
func SeedResponseTasks() []Task {
	return []Task{
		{ID: "t1", Name: "Track Target", Assignee: "Drone 3", Status: TaskActive},
		{ID: "t2", Name: "Evidence Capture", Assignee: "System", Status: TaskActive},
	}
}

// SeedResponseAsset returns the drone telemetry card seeded alongside
// the response task ledger
func SeedResponseAsset() Asset {
	return Asset{
		ID:      "d3",
		Name:    "Drone 3",
		Status:  "Airborne",
		Intent:  "Tracking Target A",
		Battery: "72%",
		Link:    "Good",
		Mode:    "Locked",
	}
}

// SeedLatestUpdate is the banner text shown when response mode opens
const SeedLatestUpdate = "Target moving East → likely Gate 3 in ~45s (High)"

// SeedTimeline builds the context timeline rows for an alert, anchoring
// absolute times to the alert's trigger instant
func SeedTimeline(alertTime time.Time) []TimelineEvent {
	clock := func(offset time.Duration) string {
		return alertTime.Add(offset).Format("15:04:05")
	}
	return []TimelineEvent{
		{Time: "T+00:00", Label: "Alert triggered", Source: clock(0) + " — Motion Sensor B", Status: "done", Category: "incident"},
		{Time: "T+00:02", Label: "Autonomous dispatch", Source: clock(2*time.Second) + " — System", Status: "done", Category: "system"},
		{Time: "T+00:05", Label: "Tracking initiated", Source: clock(5*time.Second) + " — Drone 3", Status: "active", Category: "drone"},
	}
}

// DeployPresets lists the drone deployment options shown in the
// response workspace
var DeployPresets = []string{"Perimeter Scan", "Track Target", "Evidence Capture"}

// BriefTemplate identifies one of the canned brief message formats
type BriefTemplate string

const (
	BriefRadio    BriefTemplate = "radio"
	BriefStandard BriefTemplate = "standard"
	BriefDetailed BriefTemplate = "detailed"
)

// BriefText returns the canned message body for a brief template
func BriefText(tpl BriefTemplate) string {
	switch tpl {
	case BriefRadio:
		return "INTRUDER GATE 2. MOVING EAST. INTERCEPT SECTOR 4."
	case BriefDetailed:
		return "Situation Report:\n- Incident: Unauthorized Access\n- Location: Site A, Gate 2\n- Target: 1 Person, Fast moving\n- Direction: East towards Sector 4\n- Assets: Drone 3 tracking, Drone 2 en route\n- Recommendation: Ground intercept at North Wall."
	default:
		return "Intrusion suspected at Gate 2. Person moving East. Intercept recommended at Sector 4."
	}
}

// DefaultBriefAttachments is the attachment set preselected on a new brief
var DefaultBriefAttachments = []string{"Snapshot", "Map Location"}

// DefaultCaptureWindow is the mark-moment clip window (-10s / +20s)
const DefaultCaptureWindow = "10s/20s"

// DefaultExportIncludes is the metadata bundle preselected on exports
var DefaultExportIncludes = []string{"GPS", "Flight Path", "Notes", "CoC", "Hashes"}

// SeedSites returns the monitored site grid
func SeedSites() []Site {
	return []Site{
		{
			ID: "1", Name: "Site A", Location: "Uttar Pradesh",
			DronesReady: 3, DronesBusy: 0, LastEvent: "12m ago",
			Status: SiteNormal, ConnectionState: ConnOnline,
		},
		{
			ID: "2", Name: "Site B", Location: "Karnataka",
			DronesReady: 0, DronesBusy: 1, LastEvent: "2m ago",
			Status: SiteInvestigating, ActiveTask: "Sweep running (42s)", ConnectionState: ConnOnline,
		},
		{
			ID: "3", Name: "Site C", Location: "Maharashtra",
			DronesReady: 2, DronesBusy: 0, LastEvent: "2h ago",
			Status: SiteNormal, ConnectionState: ConnOnline,
		},
	}
}

// SeedRepoCases returns the repository's master case library relative
// to a reference instant so humanized activity times stay plausible
func SeedRepoCases(now int64) []RepoCase {
	return []RepoCase{
		{ID: "INC-938471", Type: "Intrusion Suspected", Site: "Site A", Zone: "Gate 2", Status: CaseActive, Confidence: "High", EvidenceCount: 12, Integrity: IntegrityVerified, Timestamp: now},
		{ID: "INC-938468", Type: "Perimeter Warning", Site: "Site C", Zone: "Sector 4", Status: CaseClosed, Confidence: "Med", EvidenceCount: 4, Integrity: IntegrityVerified, Timestamp: now - 7200000},
		{ID: "INC-938455", Type: "Vehicle Loitering", Site: "Site A", Zone: "North Wall", Status: CaseEscalated, Confidence: "High", EvidenceCount: 8, Integrity: IntegrityPartial, Timestamp: now - 18000000},
		{ID: "INC-938442", Type: "Equipment Check", Site: "Site B", Zone: "Roof", Status: CaseExported, Confidence: "Low", EvidenceCount: 15, Integrity: IntegrityVerified, Timestamp: now - 86400000},
		{ID: "INC-938430", Type: "Motion Detected", Site: "Site A", Zone: "Lobby", Status: CaseClosed, Confidence: "Low", EvidenceCount: 2, Integrity: IntegrityFlagged, Timestamp: now - 90000000},
		{ID: "INC-938411", Type: "Unauthorized Access", Site: "Site D", Zone: "Lab 1", Status: CaseClosed, Confidence: "High", EvidenceCount: 24, Integrity: IntegrityVerified, Timestamp: now - 172800000},
		{ID: "INC-938399", Type: "System Offline", Site: "Site B", Zone: "Server Room", Status: CaseClosed, Confidence: "High", EvidenceCount: 1, Integrity: IntegrityVerified, Timestamp: now - 259200000},
	}
}

// QuickActions are the command bar's one-tap command chips
var QuickActions = []string{
	"Run quick sweep",
	"Review last incident",
	"Status check",
	"Export report",
	"Deploy drone",
}

// HelperTemplates rotate through the command bar placeholder
var HelperTemplates = []string{
	"Run quick sweep on Site A",
	"Status check across All sites",
	"Review last incident",
	"Open activity log for INC-...",
}
