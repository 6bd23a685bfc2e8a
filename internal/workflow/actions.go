package workflow

import (
	"fmt"
	"strings"

	"github.com/arvosec/skywatch/internal/incident"
)

// ConfirmThreat promotes the selected alert from the detail sidebar to
// the response workspace, seeding the default task ledger and deployed
// asset. Calling it again while already in response mode is a no-op so
// the seeds are never duplicated.
func (c *Controller) ConfirmThreat() error {
	c.mu.Lock()
	if c.selectedID == "" {
		c.mu.Unlock()
		return fmt.Errorf("confirm threat: %w", ErrInvalidState)
	}
	if c.mode == ModeResponse {
		c.mu.Unlock()
		return nil
	}
	if c.mode != ModeDetails {
		c.mu.Unlock()
		return fmt.Errorf("confirm threat from %s: %w", c.mode, ErrInvalidState)
	}

	id := c.selectedID
	c.mode = ModeResponse
	c.tab = TabResponse
	c.recording = true
	c.tasks = incident.SeedResponseTasks()
	c.assets = []incident.Asset{incident.SeedResponseAsset()}
	c.latestUpdate = incident.SeedLatestUpdate
	c.addTimelineLocked("Threat confirmed → Response protocols active", "Operator", "incident")
	c.mu.Unlock()

	if err := c.alerts.SetStatus(id, incident.StatusAssessing); err != nil {
		return err
	}

	c.appendActivity(incident.LogEntry{
		IncidentID: id,
		Site:       c.siteOf(id),
		Actor:      "Operator",
		Action:     "THREAT CONFIRMED",
		Result:     incident.ResultSuccess,
		Details:    "Response protocols active",
		Category:   incident.CategoryIncident,
	})
	c.logger.Printf("Threat confirmed for %s", id)
	c.fireToast("Threat confirmed. Response protocols active.")
	c.fireNotify()
	return nil
}

// MarkFalseAlarm dismisses the alert after operator confirmation. The
// panel closes without touching the alert's status, matching the
// existing dismissal behavior.
func (c *Controller) MarkFalseAlarm() error {
	c.mu.Lock()
	if c.selectedID == "" || c.mode != ModeDetails {
		c.mu.Unlock()
		return fmt.Errorf("mark false alarm from %s: %w", c.mode, ErrInvalidState)
	}
	id := c.selectedID
	c.mu.Unlock()

	c.appendActivity(incident.LogEntry{
		IncidentID: id,
		Site:       c.siteOf(id),
		Actor:      "Operator",
		Action:     "MARKED FALSE ALARM",
		Result:     incident.ResultInfo,
		Details:    "Alert dismissed by operator",
		Category:   incident.CategoryOperator,
	})
	c.logger.Printf("Alert %s marked false alarm", id)
	c.Close()
	return nil
}

// SwitchTab changes the active response workspace tab
func (c *Controller) SwitchTab(tab Tab) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeResponse {
		return fmt.Errorf("switch tab from %s: %w", c.mode, ErrInvalidState)
	}
	switch tab {
	case TabResponse, TabBrief, TabEvidence:
		c.tab = tab
		return nil
	default:
		return fmt.Errorf("unknown tab %q: %w", tab, ErrInvalidState)
	}
}

// OpenCaseFile switches to the full-screen evidence review. Reachable
// from the response workspace's evidence tab or a repository deep link.
func (c *Controller) OpenCaseFile() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selectedID == "" || c.mode == ModeClosed {
		return fmt.Errorf("open case file: %w", ErrInvalidState)
	}
	c.mode = ModeCaseFile
	c.tab = TabEvidence
	return nil
}

// CloseCaseFile returns to the response workspace's evidence tab
func (c *Controller) CloseCaseFile() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeCaseFile {
		return fmt.Errorf("close case file from %s: %w", c.mode, ErrInvalidState)
	}
	c.mode = ModeResponse
	c.tab = TabEvidence
	return nil
}

// DeployDrone assigns Drone 2 to a preset task, adding a ledger task
// and a telemetry card
func (c *Controller) DeployDrone(preset string) error {
	c.mu.Lock()
	if c.mode != ModeResponse {
		c.mu.Unlock()
		return fmt.Errorf("deploy drone from %s: %w", c.mode, ErrInvalidState)
	}
	id := c.selectedID
	now := c.now().UnixMilli()
	c.tasks = append(c.tasks, incident.Task{
		ID:       fmt.Sprintf("t-%d", now),
		Name:     preset,
		Assignee: "Drone 2",
		Status:   incident.TaskEnRoute,
		ETA:      "12s",
	})
	c.assets = append(c.assets, incident.Asset{
		ID:      fmt.Sprintf("d-%d", now),
		Name:    "Drone 2",
		Status:  "En route",
		Intent:  preset,
		Battery: "98%",
		Link:    "Good",
		Mode:    "Auto",
	})
	c.latestUpdate = fmt.Sprintf("Drone 2 deployed for %s", preset)
	c.addTimelineLocked(fmt.Sprintf("Drone 2 deployed → %s", preset), "System", "drone")
	c.mu.Unlock()

	c.appendActivity(incident.LogEntry{
		IncidentID: id,
		Site:       c.siteOf(id),
		Actor:      "System",
		Action:     "DRONE DEPLOYED",
		Asset:      "Drone 2",
		Result:     incident.ResultInProgress,
		Details:    preset,
		Category:   incident.CategoryDrone,
	})
	c.fireToast(fmt.Sprintf("%s started • Drone 2 assigned", preset))
	c.fireNotify()
	return nil
}

// LockPerimeter latches the perimeter lock. Locking an already locked
// perimeter is a no-op.
func (c *Controller) LockPerimeter() error {
	c.mu.Lock()
	if c.mode != ModeResponse {
		c.mu.Unlock()
		return fmt.Errorf("lock perimeter from %s: %w", c.mode, ErrInvalidState)
	}
	if c.perimeterLocked {
		c.mu.Unlock()
		return nil
	}
	id := c.selectedID
	c.perimeterLocked = true
	c.lockTime = c.now().Format("15:04")
	c.latestUpdate = "Perimeter locked — access restricted"
	c.addTimelineLocked("Perimeter locked", "Operator", "incident")
	c.mu.Unlock()

	c.appendActivity(incident.LogEntry{
		IncidentID: id,
		Site:       c.siteOf(id),
		Actor:      "Operator",
		Action:     "PERIMETER LOCKED",
		Result:     incident.ResultSuccess,
		Details:    "Access restricted at all gates",
		Category:   incident.CategoryOperator,
	})
	c.fireToast("Perimeter locked")
	c.fireNotify()
	return nil
}

// SendBrief starts the simulated delivery pipeline: the status moves
// to sent immediately, delivered after 1.5s, acked 4s after send. A
// second send while the chain is running is rejected.
func (c *Controller) SendBrief() error {
	c.mu.Lock()
	if c.mode != ModeResponse {
		c.mu.Unlock()
		return fmt.Errorf("send brief from %s: %w", c.mode, ErrInvalidState)
	}
	if c.briefStatus != BriefDraft {
		c.mu.Unlock()
		return fmt.Errorf("send brief while %s: %w", c.briefStatus, ErrBriefInFlight)
	}
	id := c.selectedID
	recipient := c.briefRecipient
	c.briefStatus = BriefSent
	c.briefSentAt = c.now().Format("15:04")
	c.latestUpdate = fmt.Sprintf("Brief sent to %s — Delivery active", recipient)
	c.addTimelineLocked(fmt.Sprintf("Brief sent → %s", recipient), "Operator", "comms")

	c.briefToken = c.runner.Schedule(c.briefOffsets, func(step int) { c.advanceBrief(step) })
	c.mu.Unlock()

	c.appendActivity(incident.LogEntry{
		IncidentID: id,
		Site:       c.siteOf(id),
		Actor:      "Operator",
		Action:     "BRIEF SENT",
		Result:     incident.ResultInProgress,
		Details:    "Recipient: " + recipient,
		Category:   incident.CategoryOperator,
	})
	c.fireToast(fmt.Sprintf("Brief sent to %s", recipient))
	c.fireNotify()
	return nil
}

// advanceBrief is the scheduler callback for the delivery pipeline
func (c *Controller) advanceBrief(step int) {
	c.mu.Lock()
	switch step {
	case 0:
		if c.briefStatus == BriefSent {
			c.briefStatus = BriefDelivered
		}
	case 1:
		if c.briefStatus == BriefDelivered {
			c.briefStatus = BriefAcked
		}
		c.briefToken = 0
	}
	c.mu.Unlock()
	c.fireNotify()
}

// SetBriefTemplate switches the message template, replacing the body
// with the template's canned text
func (c *Controller) SetBriefTemplate(tpl incident.BriefTemplate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.briefTemplate = tpl
	c.briefText = incident.BriefText(tpl)
}

// SetBriefRecipient changes the brief's addressee
func (c *Controller) SetBriefRecipient(recipient string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.briefRecipient = recipient
}

// ToggleBriefAttachment adds or removes an attachment by name
func (c *Controller) ToggleBriefAttachment(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, a := range c.briefAttachments {
		if a == name {
			c.briefAttachments = append(c.briefAttachments[:i], c.briefAttachments[i+1:]...)
			return
		}
	}
	c.briefAttachments = append(c.briefAttachments, name)
}

// MarkMoment captures a clip around the current instant using the
// configured capture window
func (c *Controller) MarkMoment() error {
	c.mu.Lock()
	if c.mode != ModeResponse && c.mode != ModeCaseFile {
		c.mu.Unlock()
		return fmt.Errorf("mark moment from %s: %w", c.mode, ErrInvalidState)
	}
	id := c.selectedID
	window := c.captureWindow
	c.addTimelineLocked("Clip captured", "Operator", "evidence")
	c.mu.Unlock()

	c.evidence.AddClip("Marked moment: [Operator]", window)
	c.appendActivity(incident.LogEntry{
		IncidentID: id,
		Site:       c.siteOf(id),
		Actor:      "Operator",
		Action:     "CLIP CAPTURED",
		Result:     incident.ResultSuccess,
		Details:    "Capture window " + window,
		Category:   incident.CategoryEvidence,
	})
	c.fireToast(fmt.Sprintf("Clip captured (%s)", window))
	c.fireNotify()
	return nil
}

// AddNote attaches an operator note to the case. Blank notes are
// rejected.
func (c *Controller) AddNote(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("add note: empty content: %w", ErrInvalidState)
	}
	c.mu.Lock()
	if c.mode != ModeResponse && c.mode != ModeCaseFile {
		c.mu.Unlock()
		return fmt.Errorf("add note from %s: %w", c.mode, ErrInvalidState)
	}
	id := c.selectedID
	c.addTimelineLocked("Context note added", "Operator", "evidence")
	c.mu.Unlock()

	c.evidence.AddNote(content)
	c.appendActivity(incident.LogEntry{
		IncidentID: id,
		Site:       c.siteOf(id),
		Actor:      "Operator",
		Action:     "NOTE ADDED",
		Result:     incident.ResultSuccess,
		Details:    content,
		Category:   incident.CategoryEvidence,
	})
	c.fireToast("Note added to case file")
	c.fireNotify()
	return nil
}

// Export produces an evidence package for the selected case
func (c *Controller) Export(scope, reason string, includes []string) (incident.ExportPackage, error) {
	c.mu.Lock()
	if c.selectedID == "" {
		c.mu.Unlock()
		return incident.ExportPackage{}, fmt.Errorf("export: %w", ErrInvalidState)
	}
	id := c.selectedID
	now := c.now()
	c.addTimelineLocked(fmt.Sprintf("Exported package: %s", scope), "System", "evidence")
	c.mu.Unlock()

	pkg := incident.ExportPackage{
		ID:         fmt.Sprintf("PKG-%06d", now.UnixMilli()%1000000),
		IncidentID: id,
		Scope:      scope,
		Reason:     reason,
		Includes:   append([]string{}, includes...),
		CreatedAt:  now,
	}
	c.appendActivity(incident.LogEntry{
		IncidentID: id,
		Site:       c.siteOf(id),
		Actor:      "System",
		Action:     "PACKAGE EXPORTED",
		Result:     incident.ResultSuccess,
		Details:    fmt.Sprintf("%s • scope %s", pkg.ID, scope),
		Category:   incident.CategoryEvidence,
	})
	c.fireToast("Package exported: " + pkg.ID)
	c.fireNotify()
	return pkg, nil
}

// PinFeed toggles a feed's pinned state, moving it to the primary
// focus slot when pinned and to the back of the wall when unpinned
func (c *Controller) PinFeed(feedID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, f := range c.feeds {
		if f.ID != feedID {
			continue
		}
		f.Pinned = !f.Pinned
		rest := append(append([]incident.Feed{}, c.feeds[:i]...), c.feeds[i+1:]...)
		if f.Pinned {
			c.feeds = append([]incident.Feed{f}, rest...)
		} else {
			c.feeds = append(rest, f)
		}
		return
	}
}

// View is a consistent snapshot of the transient workspace state
type View struct {
	SelectedID       string
	Mode             Mode
	Tab              Tab
	Tasks            []incident.Task
	Assets           []incident.Asset
	Feeds            []incident.Feed
	Timeline         []incident.TimelineEvent
	LatestUpdate     string
	Recording        bool
	PerimeterLocked  bool
	LockTime         string
	CaptureWindow    string
	BriefRecipient   string
	BriefText        string
	BriefTemplate    incident.BriefTemplate
	BriefAttachments []string
	BriefStatus      BriefStatus
	BriefSentAt      string
}

// Snapshot copies the current workspace state for rendering
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return View{
		SelectedID:       c.selectedID,
		Mode:             c.mode,
		Tab:              c.tab,
		Tasks:            append([]incident.Task{}, c.tasks...),
		Assets:           append([]incident.Asset{}, c.assets...),
		Feeds:            append([]incident.Feed{}, c.feeds...),
		Timeline:         append([]incident.TimelineEvent{}, c.timeline...),
		LatestUpdate:     c.latestUpdate,
		Recording:        c.recording,
		PerimeterLocked:  c.perimeterLocked,
		LockTime:         c.lockTime,
		CaptureWindow:    c.captureWindow,
		BriefRecipient:   c.briefRecipient,
		BriefText:        c.briefText,
		BriefTemplate:    c.briefTemplate,
		BriefAttachments: append([]string{}, c.briefAttachments...),
		BriefStatus:      c.briefStatus,
		BriefSentAt:      c.briefSentAt,
	}
}

// BriefState returns the delivery pipeline status
func (c *Controller) BriefState() BriefStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.briefStatus
}

// siteOf resolves an alert's site for log attribution
func (c *Controller) siteOf(id string) string {
	a, err := c.alerts.Find(id)
	if err != nil {
		return ""
	}
	return a.Site
}
