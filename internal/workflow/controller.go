// Package workflow implements the alert workflow coordinator: an
// explicit state machine tracking which surface is focused, which
// alert is selected, and the transient response-workspace state that
// belongs to that selection. All panel callbacks funnel through the
// Controller so stores are only ever mutated from one place.
package workflow

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arvosec/skywatch/internal/incident"
	"github.com/arvosec/skywatch/internal/sched"
	"github.com/arvosec/skywatch/internal/session"
)

// Mode is the coarse view state for the selected alert
type Mode string

const (
	// ModeClosed means no alert is selected
	ModeClosed Mode = ""
	// ModeDetails is the read-only sidebar for an unconfirmed alert
	ModeDetails Mode = "details"
	// ModeResponse is the tabbed operator workspace
	ModeResponse Mode = "response"
	// ModeCaseFile is the full-screen evidence review
	ModeCaseFile Mode = "case_file"
)

// Tab is the active sub-tab within response mode
type Tab string

const (
	TabResponse Tab = "response"
	TabBrief    Tab = "brief"
	TabEvidence Tab = "evidence"
)

// BriefStatus tracks the simulated delivery pipeline of an outbound brief
type BriefStatus string

const (
	BriefDraft     BriefStatus = "draft"
	BriefSent      BriefStatus = "sent"
	BriefDelivered BriefStatus = "delivered"
	BriefAcked     BriefStatus = "acked"
)

var (
	// ErrInvalidState is returned when an action is invoked from a
	// mode that does not support it
	ErrInvalidState = errors.New("invalid state for action")

	// ErrBriefInFlight is returned when a brief send is requested
	// while a previous delivery chain is still running
	ErrBriefInFlight = errors.New("brief delivery already in flight")
)

// Delivery and execution offsets for the simulated pipelines
const (
	briefDeliveredAfter = 1500 * time.Millisecond
	briefAckedAfter     = 4 * time.Second
)

// CommandStepOffsets drive the command bar's execution stepper: step 0
// fires immediately, the final offset completes the run
var CommandStepOffsets = []time.Duration{
	0,
	800 * time.Millisecond,
	2200 * time.Millisecond,
	3500 * time.Millisecond,
	4500 * time.Millisecond,
}

// Controller owns the session's view state and coordinates the alert,
// activity and evidence stores. Methods are safe for concurrent use;
// timer callbacks re-enter through the same lock.
type Controller struct {
	mu sync.Mutex

	alerts   *session.AlertStore
	activity *session.ActivityLog
	evidence *session.EvidenceStore
	runner   *sched.Runner
	logger   *log.Logger
	now      func() time.Time

	// notify is invoked after every state change so the UI can redraw;
	// toast surfaces one-line confirmations. Both may be nil.
	notify func()
	toast  func(msg string)

	// onActivity observes every appended log entry, letting the host
	// archive or publish entries without the controller knowing how
	onActivity func(incident.LogEntry)

	selectedID string
	mode       Mode
	tab        Tab

	// transient response-workspace state, reset on every selection change
	tasks           []incident.Task
	assets          []incident.Asset
	feeds           []incident.Feed
	timeline        []incident.TimelineEvent
	latestUpdate    string
	recording       bool
	perimeterLocked bool
	lockTime        string
	captureWindow   string

	briefRecipient   string
	briefText        string
	briefTemplate    incident.BriefTemplate
	briefAttachments []string
	briefStatus      BriefStatus
	briefSentAt      string
	briefToken       sched.Token
	briefOffsets     []time.Duration
}

// New creates a controller over the given stores
func New(alerts *session.AlertStore, activity *session.ActivityLog, evidence *session.EvidenceStore, runner *sched.Runner, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.New(log.Writer(), "[Workflow] ", log.LstdFlags)
	}
	return &Controller{
		alerts:       alerts,
		activity:     activity,
		evidence:     evidence,
		runner:       runner,
		logger:       logger,
		now:          time.Now,
		tab:          TabResponse,
		briefOffsets: []time.Duration{briefDeliveredAfter, briefAckedAfter},
	}
}

// SetNotify registers the redraw callback
func (c *Controller) SetNotify(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notify = fn
}

// SetToast registers the toast callback
func (c *Controller) SetToast(fn func(string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toast = fn
}

// SetActivityObserver registers a hook that sees every log entry the
// controller appends
func (c *Controller) SetActivityObserver(fn func(incident.LogEntry)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onActivity = fn
}

// TriggerDemoAlert creates the canned primary/companion alert pair,
// records the fixed four-entry activity batch, and selects the primary
func (c *Controller) TriggerDemoAlert() (incident.Alert, error) {
	triggerTime := c.now().UnixMilli()
	primary := incident.DemoAlert(triggerTime)
	companion := incident.CompanionAlert(triggerTime)

	if err := c.alerts.CreateBatch([]incident.Alert{primary, companion}); err != nil {
		return incident.Alert{}, fmt.Errorf("trigger alert: %w", err)
	}

	entries := incident.TriggerLogEntries(triggerTime, primary.ID)
	c.activity.Append(entries...)
	c.observeEntries(entries)
	c.logger.Printf("Triggered alert %s (+companion %s)", primary.ID, companion.ID)

	if err := c.Select(primary.ID); err != nil {
		return incident.Alert{}, err
	}
	return primary, nil
}

// InjectAlert adds an externally sourced alert (bus or folder ingest)
// together with its log entries, without changing the selection
func (c *Controller) InjectAlert(a incident.Alert, entries []incident.LogEntry) error {
	if err := c.alerts.Create(a); err != nil {
		return fmt.Errorf("inject alert: %w", err)
	}
	if len(entries) > 0 {
		c.activity.Append(entries...)
		c.observeEntries(entries)
	}
	c.logger.Printf("Injected alert %s from external source", a.ID)
	c.fireNotify()
	return nil
}

// Select focuses an alert and resets all transient sub-state to that
// alert's status-derived defaults. No state from the previous
// selection survives.
func (c *Controller) Select(id string) error {
	alert, err := c.alerts.Find(id)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.cancelPendingLocked()
	c.selectedID = alert.ID
	c.resetTransientLocked(alert)
	c.mu.Unlock()

	c.evidence.ResetForAlert(alert.ID)
	c.fireNotify()
	return nil
}

// OpenRepositoryCase deep-links from the repository into the case file
// view. Unknown case IDs get a synthesized resolved record inserted
// into the alert store so later lookups succeed.
func (c *Controller) OpenRepositoryCase(id string) error {
	if _, err := c.alerts.Find(id); err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			return err
		}
		historical := incident.HistoricalAlert(id, c.now().UnixMilli())
		if err := c.alerts.Create(historical); err != nil {
			return fmt.Errorf("open repository case: %w", err)
		}
		c.logger.Printf("Synthesized historical record for case %s", id)
	}

	if err := c.Select(id); err != nil {
		return err
	}

	c.mu.Lock()
	c.mode = ModeCaseFile
	c.tab = TabEvidence
	c.mu.Unlock()
	c.fireNotify()
	return nil
}

// Close clears the selection and cancels any pending simulated work
func (c *Controller) Close() {
	c.mu.Lock()
	c.cancelPendingLocked()
	c.selectedID = ""
	c.mode = ModeClosed
	c.tab = TabResponse
	c.clearTransientLocked()
	c.mu.Unlock()
	c.fireNotify()
}

// Selected returns the focused alert, if any
func (c *Controller) Selected() (incident.Alert, bool) {
	c.mu.Lock()
	id := c.selectedID
	c.mu.Unlock()
	if id == "" {
		return incident.Alert{}, false
	}
	a, err := c.alerts.Find(id)
	if err != nil {
		return incident.Alert{}, false
	}
	return a, true
}

// Mode returns the current coarse view mode
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// ActiveTab returns the response workspace's active tab
func (c *Controller) ActiveTab() Tab {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tab
}

// resetTransientLocked derives fresh workspace state from the alert's
// status; caller holds mu
func (c *Controller) resetTransientLocked(alert incident.Alert) {
	if alert.StartsInResponse() {
		c.mode = ModeResponse
		c.recording = true
		c.tasks = incident.SeedResponseTasks()
		c.assets = []incident.Asset{incident.SeedResponseAsset()}
		c.latestUpdate = incident.SeedLatestUpdate
	} else {
		c.mode = ModeDetails
		c.recording = false
		c.tasks = nil
		c.assets = nil
		c.latestUpdate = ""
	}
	c.tab = TabResponse
	c.feeds = incident.SeedFeeds()
	c.timeline = incident.SeedTimeline(alert.Time())
	c.perimeterLocked = false
	c.lockTime = ""
	c.captureWindow = incident.DefaultCaptureWindow

	c.briefRecipient = "Team Alpha"
	c.briefTemplate = incident.BriefStandard
	c.briefText = incident.BriefText(incident.BriefStandard)
	c.briefAttachments = append([]string{}, incident.DefaultBriefAttachments...)
	c.briefStatus = BriefDraft
	c.briefSentAt = ""
}

// clearTransientLocked wipes workspace state entirely; caller holds mu
func (c *Controller) clearTransientLocked() {
	c.tasks = nil
	c.assets = nil
	c.feeds = nil
	c.timeline = nil
	c.latestUpdate = ""
	c.recording = false
	c.perimeterLocked = false
	c.lockTime = ""
	c.briefStatus = BriefDraft
	c.briefSentAt = ""
}

// cancelPendingLocked invalidates in-flight simulated work so a
// dismissed view never receives late updates; caller holds mu
func (c *Controller) cancelPendingLocked() {
	if c.briefToken != 0 {
		c.runner.Cancel(c.briefToken)
		c.briefToken = 0
	}
}

// appendActivity records one log entry for a leaf action
func (c *Controller) appendActivity(e incident.LogEntry) {
	if e.ID == "" {
		e.ID = "LOG-" + uuid.NewString()
	}
	if e.Timestamp == 0 {
		e.Timestamp = c.now().UnixMilli()
	}
	c.activity.Append(e)
	c.observeEntries([]incident.LogEntry{e})
}

func (c *Controller) observeEntries(entries []incident.LogEntry) {
	c.mu.Lock()
	fn := c.onActivity
	c.mu.Unlock()
	if fn == nil {
		return
	}
	for _, e := range entries {
		fn(e)
	}
}

// addTimelineLocked prepends a drawer timeline row; caller holds mu
func (c *Controller) addTimelineLocked(label, source, category string) {
	now := c.now()
	displaySrc := source
	if source == "Operator" {
		displaySrc = now.Format("15:04") + " — Operator"
	}
	row := incident.TimelineEvent{
		Time:     fmt.Sprintf("T+%02d:%02d", now.Minute(), now.Second()),
		Label:    label,
		Source:   displaySrc,
		Status:   "active",
		Category: category,
	}
	c.timeline = append([]incident.TimelineEvent{row}, c.timeline...)
}

func (c *Controller) fireNotify() {
	c.mu.Lock()
	fn := c.notify
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (c *Controller) fireToast(msg string) {
	c.mu.Lock()
	fn := c.toast
	c.mu.Unlock()
	if fn != nil {
		fn(msg)
	}
}
