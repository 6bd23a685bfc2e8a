package workflow

import (
	"errors"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"github.com/arvosec/skywatch/internal/incident"
	"github.com/arvosec/skywatch/internal/sched"
	"github.com/arvosec/skywatch/internal/session"
)

func newTestController(t *testing.T) *Controller {
	t.Helper()
	runner := sched.NewRunner()
	t.Cleanup(runner.Close)
	logger := log.New(io.Discard, "", 0)
	return New(session.NewAlertStore(), session.NewActivityLog(), session.NewEvidenceStore(), runner, logger)
}

func TestTriggerCreatesAlertPairAndFourLogEntries(t *testing.T) {
	c := newTestController(t)

	primary, err := c.TriggerDemoAlert()
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}

	alerts := c.alerts.List()
	if len(alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(alerts))
	}
	if alerts[0].ID != primary.ID {
		t.Errorf("primary alert should be at the head, got %s", alerts[0].ID)
	}
	if primary.Confidence != 0.86 {
		t.Errorf("primary confidence = %v, want 0.86", primary.Confidence)
	}
	if primary.ConfidenceLabel() != "High" {
		t.Errorf("primary confidence label = %s, want High", primary.ConfidenceLabel())
	}

	entries := c.activity.Entries()
	if len(entries) != 4 {
		t.Fatalf("expected 4 log entries, got %d", len(entries))
	}
	wantOrder := []string{"ALERT TRIGGERED", "AUTONOMOUS DISPATCH", "TRACKING INITIATED", "EVIDENCE RECORDING STARTED"}
	for i, want := range wantOrder {
		if entries[i].Action != want {
			t.Errorf("entry %d action = %q, want %q", i, entries[i].Action, want)
		}
		if entries[i].IncidentID != primary.ID {
			t.Errorf("entry %d not linked to incident %s", i, primary.ID)
		}
	}
}

func TestTriggerOpensPrimaryInDetailsMode(t *testing.T) {
	c := newTestController(t)
	primary, err := c.TriggerDemoAlert()
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}

	selected, ok := c.Selected()
	if !ok || selected.ID != primary.ID {
		t.Fatalf("primary alert should be selected")
	}
	// In Review has not been confirmed as a threat yet, so the
	// read-only sidebar comes first
	if c.Mode() != ModeDetails {
		t.Errorf("mode after selecting the In Review primary = %s, want %s", c.Mode(), ModeDetails)
	}
	view := c.Snapshot()
	if len(view.Tasks) != 0 || len(view.Assets) != 0 {
		t.Errorf("details mode must not seed the workspace, got %d tasks / %d assets", len(view.Tasks), len(view.Assets))
	}

	if err := c.ConfirmThreat(); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if c.Mode() != ModeResponse {
		t.Errorf("mode after confirm = %s, want %s", c.Mode(), ModeResponse)
	}
	view = c.Snapshot()
	if len(view.Tasks) != 2 || len(view.Assets) != 1 {
		t.Errorf("confirming should seed 2 tasks and 1 asset, got %d/%d", len(view.Tasks), len(view.Assets))
	}
}

func TestOnlyAssessingStartsInResponseMode(t *testing.T) {
	c := newTestController(t)

	statuses := map[incident.Status]Mode{
		incident.StatusUnreviewed:   ModeDetails,
		incident.StatusInReview:     ModeDetails,
		incident.StatusAssessing:    ModeResponse,
		incident.StatusAcknowledged: ModeDetails,
		incident.StatusResolved:     ModeDetails,
	}
	i := 0
	for status, want := range statuses {
		a := incident.DemoAlert(int64(i))
		a.ID = fmt.Sprintf("INC-90%04d", i)
		a.Status = status
		if err := c.alerts.Create(a); err != nil {
			t.Fatalf("create %s: %v", a.ID, err)
		}
		if err := c.Select(a.ID); err != nil {
			t.Fatalf("select %s: %v", a.ID, err)
		}
		if got := c.Mode(); got != want {
			t.Errorf("status %q opens in %s, want %s", status, got, want)
		}
		i++
	}
}

func TestSelectUnknownAlertReturnsNotFound(t *testing.T) {
	c := newTestController(t)
	err := c.Select("INC-999999")
	if !errors.Is(err, session.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSwitchingAlertsResetsTransientState(t *testing.T) {
	c := newTestController(t)
	primary, err := c.TriggerDemoAlert()
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if err := c.ConfirmThreat(); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	// dirty the workspace on the primary alert
	if err := c.DeployDrone("Perimeter Scan"); err != nil {
		t.Fatalf("deploy: %v", err)
	}
	if err := c.LockPerimeter(); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := c.MarkMoment(); err != nil {
		t.Fatalf("mark moment: %v", err)
	}
	if got := c.Snapshot(); len(got.Tasks) != 3 || !got.PerimeterLocked {
		t.Fatalf("workspace should be dirty before switch")
	}

	// switch to the companion alert
	companion := c.alerts.List()[1]
	if err := c.Select(companion.ID); err != nil {
		t.Fatalf("select companion: %v", err)
	}

	view := c.Snapshot()
	if view.Mode != ModeDetails {
		t.Errorf("unreviewed companion should open in details mode, got %s", view.Mode)
	}
	if len(view.Tasks) != 0 || len(view.Assets) != 0 {
		t.Errorf("tasks/assets from %s leaked into %s", primary.ID, companion.ID)
	}
	if view.PerimeterLocked {
		t.Error("perimeter lock leaked across selection")
	}
	if c.evidence.Len() != 5 {
		t.Errorf("evidence should reseed to 5 items, got %d", c.evidence.Len())
	}
	if view.BriefStatus != BriefDraft {
		t.Errorf("brief status should reset to draft, got %s", view.BriefStatus)
	}
}

func TestConfirmThreatIsIdempotent(t *testing.T) {
	c := newTestController(t)
	if _, err := c.TriggerDemoAlert(); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	companion := c.alerts.List()[1]
	if err := c.Select(companion.ID); err != nil {
		t.Fatalf("select: %v", err)
	}
	if c.Mode() != ModeDetails {
		t.Fatalf("companion should open in details mode")
	}

	if err := c.ConfirmThreat(); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if c.Mode() != ModeResponse {
		t.Fatalf("confirm should enter response mode")
	}
	first := c.Snapshot()

	if err := c.ConfirmThreat(); err != nil {
		t.Fatalf("second confirm: %v", err)
	}
	second := c.Snapshot()
	if len(second.Tasks) != len(first.Tasks) {
		t.Errorf("second confirm duplicated seeded tasks: %d -> %d", len(first.Tasks), len(second.Tasks))
	}

	got, err := c.alerts.Find(companion.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Status != incident.StatusAssessing {
		t.Errorf("confirmed alert status = %s, want %s", got.Status, incident.StatusAssessing)
	}
}

func TestConfirmThreatWithoutSelectionFails(t *testing.T) {
	c := newTestController(t)
	if err := c.ConfirmThreat(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}

func TestMarkFalseAlarmClosesWithoutStatusChange(t *testing.T) {
	c := newTestController(t)
	if _, err := c.TriggerDemoAlert(); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	companion := c.alerts.List()[1]
	if err := c.Select(companion.ID); err != nil {
		t.Fatalf("select: %v", err)
	}

	if err := c.MarkFalseAlarm(); err != nil {
		t.Fatalf("mark false alarm: %v", err)
	}
	if c.Mode() != ModeClosed {
		t.Errorf("drawer should close, mode = %s", c.Mode())
	}
	got, err := c.alerts.Find(companion.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Status != incident.StatusUnreviewed {
		t.Errorf("false alarm must not mutate status, got %s", got.Status)
	}
}

func TestMarkFalseAlarmFromResponseModeFails(t *testing.T) {
	c := newTestController(t)
	if _, err := c.TriggerDemoAlert(); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if err := c.ConfirmThreat(); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := c.MarkFalseAlarm(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState from response mode, got %v", err)
	}
}

func TestCaseFileRoundTrip(t *testing.T) {
	c := newTestController(t)
	if _, err := c.TriggerDemoAlert(); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if err := c.ConfirmThreat(); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := c.SwitchTab(TabEvidence); err != nil {
		t.Fatalf("switch tab: %v", err)
	}
	if err := c.OpenCaseFile(); err != nil {
		t.Fatalf("open case file: %v", err)
	}
	if c.Mode() != ModeCaseFile {
		t.Fatalf("mode = %s, want %s", c.Mode(), ModeCaseFile)
	}
	if err := c.CloseCaseFile(); err != nil {
		t.Fatalf("close case file: %v", err)
	}
	if c.Mode() != ModeResponse || c.ActiveTab() != TabEvidence {
		t.Errorf("closing the case file should return to response/evidence, got %s/%s", c.Mode(), c.ActiveTab())
	}
}

func TestOpenRepositoryCaseSynthesizesHistoricalRecord(t *testing.T) {
	c := newTestController(t)

	if err := c.OpenRepositoryCase("INC-938411"); err != nil {
		t.Fatalf("open repository case: %v", err)
	}
	got, err := c.alerts.Find("INC-938411")
	if err != nil {
		t.Fatalf("synthesized record should be findable afterwards: %v", err)
	}
	if got.Status != incident.StatusResolved {
		t.Errorf("historical record status = %s, want %s", got.Status, incident.StatusResolved)
	}
	if c.Mode() != ModeCaseFile {
		t.Errorf("deep link should land in case file mode, got %s", c.Mode())
	}
}

func TestBriefPipelineAdvancesInOrder(t *testing.T) {
	c := newTestController(t)
	c.briefOffsets = []time.Duration{20 * time.Millisecond, 50 * time.Millisecond}
	if _, err := c.TriggerDemoAlert(); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if err := c.ConfirmThreat(); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if err := c.SendBrief(); err != nil {
		t.Fatalf("send brief: %v", err)
	}
	if got := c.BriefState(); got != BriefSent {
		t.Fatalf("status after send = %s, want %s", got, BriefSent)
	}

	// a second send before delivery completes must be rejected
	if err := c.SendBrief(); !errors.Is(err, ErrBriefInFlight) {
		t.Errorf("expected ErrBriefInFlight, got %v", err)
	}

	waitFor := func(want BriefStatus) {
		t.Helper()
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if c.BriefState() == want {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
		t.Fatalf("brief never reached %s (now %s)", want, c.BriefState())
	}
	waitFor(BriefDelivered)
	waitFor(BriefAcked)
}

func TestBriefPipelineCanceledOnAlertSwitch(t *testing.T) {
	c := newTestController(t)
	c.briefOffsets = []time.Duration{30 * time.Millisecond, 60 * time.Millisecond}
	if _, err := c.TriggerDemoAlert(); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if err := c.ConfirmThreat(); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := c.SendBrief(); err != nil {
		t.Fatalf("send brief: %v", err)
	}

	companion := c.alerts.List()[1]
	if err := c.Select(companion.ID); err != nil {
		t.Fatalf("select: %v", err)
	}

	time.Sleep(120 * time.Millisecond)
	if got := c.BriefState(); got != BriefDraft {
		t.Errorf("pending delivery steps should not land after a switch, status = %s", got)
	}
}

func TestLeafActionsAppendExactlyOneEntry(t *testing.T) {
	c := newTestController(t)
	if _, err := c.TriggerDemoAlert(); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if err := c.ConfirmThreat(); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	base := c.activity.Len()

	steps := []struct {
		name string
		fn   func() error
	}{
		{"deploy", func() error { return c.DeployDrone("Track Target") }},
		{"lock", c.LockPerimeter},
		{"mark moment", c.MarkMoment},
		{"add note", func() error { return c.AddNote("note body") }},
	}
	for i, step := range steps {
		if err := step.fn(); err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
		if got := c.activity.Len(); got != base+i+1 {
			t.Errorf("%s appended %d entries, want exactly 1", step.name, got-base-i)
		}
	}
}

func TestAddNoteRejectsBlankContent(t *testing.T) {
	c := newTestController(t)
	if _, err := c.TriggerDemoAlert(); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if err := c.ConfirmThreat(); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := c.AddNote("   "); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState for blank note, got %v", err)
	}
}

func TestExportProducesPackage(t *testing.T) {
	c := newTestController(t)
	primary, err := c.TriggerDemoAlert()
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}

	pkg, err := c.Export("Quick (Incident)", "Police", incident.DefaultExportIncludes)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if pkg.IncidentID != primary.ID {
		t.Errorf("package incident = %s, want %s", pkg.IncidentID, primary.ID)
	}
	if len(pkg.ID) != len("PKG-000000") {
		t.Errorf("package ID format unexpected: %s", pkg.ID)
	}
}

func TestPinFeedMovesToFocusSlot(t *testing.T) {
	c := newTestController(t)
	if _, err := c.TriggerDemoAlert(); err != nil {
		t.Fatalf("trigger: %v", err)
	}

	c.PinFeed("5")
	view := c.Snapshot()
	if view.Feeds[0].ID != "5" || !view.Feeds[0].Pinned {
		t.Fatalf("pinned feed should move to the focus slot, head = %s", view.Feeds[0].ID)
	}

	c.PinFeed("5")
	view = c.Snapshot()
	if view.Feeds[len(view.Feeds)-1].ID != "5" {
		t.Errorf("unpinned feed should move to the back")
	}
}
