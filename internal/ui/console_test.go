package ui

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/arvosec/skywatch/internal/sched"
	"github.com/arvosec/skywatch/internal/session"
	"github.com/arvosec/skywatch/internal/store"
	"github.com/arvosec/skywatch/internal/workflow"
)

func newTestConsole(t *testing.T) *Console {
	t.Helper()

	st, err := store.NewStore(":memory:")
	if err != nil {
		t.Fatalf("store.NewStore error: %v", err)
	}
	if err := st.Seed(context.Background()); err != nil {
		t.Fatalf("seed error: %v", err)
	}

	alerts := session.NewAlertStore()
	activity := session.NewActivityLog()
	evidence := session.NewEvidenceStore()
	runner := sched.NewRunner()
	logger := log.New(io.Discard, "", 0)
	ctrl := workflow.New(alerts, activity, evidence, runner, logger)

	c := NewConsole(context.Background(), ctrl, alerts, activity, evidence, st, runner, logger, Options{SkipIntro: true})

	t.Cleanup(func() {
		runner.Close()
		st.Close()
		c.cancel()
	})
	return c
}

func TestTriggerDemoPopulatesRail(t *testing.T) {
	c := newTestConsole(t)

	c.triggerDemo()

	if len(c.railIDs) != 2 {
		t.Fatalf("expected 2 rail cards, got %d", len(c.railIDs))
	}
	list := c.alerts.List()
	if c.railIDs[0] != list[0].ID {
		t.Errorf("rail head %q should match newest alert %q", c.railIDs[0], list[0].ID)
	}
	if front, _ := c.pages.GetFrontPage(); front != pageDrawer {
		t.Errorf("trigger should open the drawer, front page is %q", front)
	}
	if c.ctrl.Mode() != workflow.ModeDetails {
		t.Errorf("unconfirmed primary alert opens in details mode, got %q", c.ctrl.Mode())
	}
}

// Controller callbacks fire on whichever goroutine invoked the
// mutation, including handlers already on the tview event loop, so
// they must never wait for the loop to drain an update.
func TestControllerCallbacksDoNotBlockCallers(t *testing.T) {
	c := newTestConsole(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := c.ctrl.TriggerDemoAlert(); err != nil {
			t.Errorf("trigger: %v", err)
			return
		}
		if err := c.ctrl.ConfirmThreat(); err != nil {
			t.Errorf("confirm: %v", err)
			return
		}
		if err := c.ctrl.LockPerimeter(); err != nil {
			t.Errorf("lock: %v", err)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("controller mutation blocked on a console notification")
	}
}

func TestOpenAlertAtSelectsCompanion(t *testing.T) {
	c := newTestConsole(t)
	c.triggerDemo()

	// Rail index 1 is the companion, which opens read-only
	c.openAlertAt(1)

	sel, ok := c.ctrl.Selected()
	if !ok {
		t.Fatal("expected a selection after opening a rail card")
	}
	if sel.ID != c.railIDs[1] {
		t.Errorf("selected %q, want %q", sel.ID, c.railIDs[1])
	}
	if c.ctrl.Mode() != workflow.ModeDetails {
		t.Errorf("companion alert should open in details mode, got %q", c.ctrl.Mode())
	}
}

func TestEscapeClosesDrawer(t *testing.T) {
	c := newTestConsole(t)
	c.triggerDemo()

	c.handleEscape()

	if front, _ := c.pages.GetFrontPage(); front != pageMain {
		t.Errorf("escape should return to the dashboard, front page is %q", front)
	}
	if c.ctrl.Mode() != workflow.ModeClosed {
		t.Errorf("escape should close the selection, mode is %q", c.ctrl.Mode())
	}
}

func TestSiteFilterChips(t *testing.T) {
	c := newTestConsole(t)

	if got := len(c.filteredSites()); got != 3 {
		t.Fatalf("expected 3 sites unfiltered, got %d", got)
	}

	c.markSiteAlert("Site A")
	c.siteFilter = "Alerts"
	got := c.filteredSites()
	if len(got) != 1 || got[0].Name != "Site A" {
		t.Errorf("Alerts filter should show only Site A, got %v", got)
	}

	// Site B carries a running sweep in the seed data
	c.siteFilter = "Running"
	got = c.filteredSites()
	if len(got) != 1 || got[0].Name != "Site B" {
		t.Errorf("Running filter should show only Site B, got %v", got)
	}

	c.siteFilter = "All"
	c.siteSearch = "karnataka"
	got = c.filteredSites()
	if len(got) != 1 || got[0].Name != "Site B" {
		t.Errorf("search should match location, got %v", got)
	}
}

func TestCommandReviewAndCancel(t *testing.T) {
	c := newTestConsole(t)

	c.submitCommand("Run quick sweep @Site A")
	if c.cmdStage != 1 {
		t.Fatalf("submit should enter review, stage %d", c.cmdStage)
	}
	if c.cmdScope != "Site A" {
		t.Errorf("@-mention should scope to Site A, got %q", c.cmdScope)
	}
	if c.cmdText != "Run quick sweep" {
		t.Errorf("mention should be stripped from the command, got %q", c.cmdText)
	}

	c.cancelCommand()
	if c.cmdStage != 0 || c.cmdText != "" || c.cmdScope != "" {
		t.Errorf("cancel should reset the command bar: stage=%d text=%q scope=%q", c.cmdStage, c.cmdText, c.cmdScope)
	}
}

func TestCommandCompletionStartsJob(t *testing.T) {
	c := newTestConsole(t)

	c.submitCommand("Run quick sweep @Site A")
	c.cmdStage = 2

	// Drive the stepper to its final step directly
	c.advanceCommand(len(workflow.CommandStepOffsets) - 1)

	if c.runningJob == nil {
		t.Fatal("completion should start a running job")
	}
	if c.runningJob.SiteName != "Site A" {
		t.Errorf("job scoped to %q, want Site A", c.runningJob.SiteName)
	}
	if c.cmdStage != 0 {
		t.Errorf("command bar should reset after completion, stage %d", c.cmdStage)
	}

	for _, s := range c.sites {
		if s.Name == "Site A" && s.ActiveTask == "" {
			t.Error("scoped site should show the running sweep")
		}
	}
}

func TestRepositoryTabAndQueryFilters(t *testing.T) {
	c := newTestConsole(t)

	c.repoTab = "Needs Review"
	c.renderRepository()
	if len(c.repoCases) != 2 {
		t.Fatalf("Needs Review tab should list 2 cases, got %d", len(c.repoCases))
	}
	for _, rc := range c.repoCases {
		if !rc.NeedsReview() {
			t.Errorf("case %s does not need review", rc.ID)
		}
	}

	c.repoTab = "All"
	c.repoQuery = "938455"
	c.renderRepository()
	if len(c.repoCases) != 1 || c.repoCases[0].ID != "INC-938455" {
		t.Errorf("query should match one case, got %v", c.repoCases)
	}
}

func TestRepositoryMultiSelect(t *testing.T) {
	c := newTestConsole(t)

	c.renderRepository()
	if len(c.repoCases) != 7 {
		t.Fatalf("expected the seeded library, got %d cases", len(c.repoCases))
	}

	c.repoTable.Select(1, 0)
	c.toggleRepoSelection()
	if !c.repoSelected[c.repoCases[0].ID] {
		t.Error("space should mark the hovered case")
	}
	c.toggleRepoSelection()
	if len(c.repoSelected) != 0 {
		t.Error("second toggle should clear the mark")
	}
}

func TestRepositoryDeepLinkOpensCaseFile(t *testing.T) {
	c := newTestConsole(t)

	c.renderRepository()
	c.openRepoCaseAt(0)

	if c.ctrl.Mode() != workflow.ModeCaseFile {
		t.Errorf("deep link should land in case file mode, got %q", c.ctrl.Mode())
	}
	if front, _ := c.pages.GetFrontPage(); front != pageCaseFile {
		t.Errorf("front page is %q, want case file", front)
	}

	// The synthesized record is now findable
	if _, err := c.alerts.Find(c.repoCases[0].ID); err != nil {
		t.Errorf("deep-linked case should exist in the alert store: %v", err)
	}
}

func TestActivityDrawerDeepLinkFilter(t *testing.T) {
	c := newTestConsole(t)
	c.triggerDemo()

	primary := c.railIDs[0]
	c.openActivityDrawer(primary)

	if len(c.activityEntries) != 4 {
		t.Fatalf("trigger records 4 entries for the incident, got %d", len(c.activityEntries))
	}
	for _, e := range c.activityEntries {
		if e.IncidentID != primary {
			t.Errorf("entry %s leaked into the incident filter", e.ID)
		}
	}

	c.activityQuery = "target locked"
	c.renderActivityDrawer()
	if len(c.activityEntries) != 1 {
		t.Errorf("text search should narrow to 1 entry, got %d", len(c.activityEntries))
	}
}

func TestCaseFileListsEvidence(t *testing.T) {
	c := newTestConsole(t)
	c.triggerDemo()

	if err := c.ctrl.OpenCaseFile(); err != nil {
		t.Fatalf("open case file: %v", err)
	}
	c.renderCaseFile()

	// Header row plus the five seeded items
	if got := c.caseList.GetRowCount(); got != 6 {
		t.Errorf("case list rows = %d, want 6", got)
	}

	if err := c.ctrl.MarkMoment(); err != nil {
		t.Fatalf("mark moment: %v", err)
	}
	c.renderCaseFile()
	if got := c.caseList.GetRowCount(); got != 7 {
		t.Errorf("case list rows after capture = %d, want 7", got)
	}
}

func TestToastLifecycle(t *testing.T) {
	c := newTestConsole(t)

	c.showToast("Perimeter locked")
	if c.toastMsg != "Perimeter locked" {
		t.Errorf("toast not shown: %q", c.toastMsg)
	}
	// A newer toast replaces the old one immediately
	c.showToast("Data synced")
	if c.toastMsg != "Data synced" {
		t.Errorf("toast not replaced: %q", c.toastMsg)
	}
}
