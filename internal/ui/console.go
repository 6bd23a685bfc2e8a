// Package ui renders the operations console: site dashboard, command
// bar, alert rail, the alert drawer with its response workspace, the
// activity log and the evidence repository. All mutations go through
// the workflow controller; the console only reads snapshots and
// redraws.
package ui

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/arvosec/skywatch/internal/incident"
	"github.com/arvosec/skywatch/internal/sched"
	"github.com/arvosec/skywatch/internal/session"
	"github.com/arvosec/skywatch/internal/store"
	"github.com/arvosec/skywatch/internal/workflow"
)

// Page names for the console's overlay stack
const (
	pageIntro      = "intro"
	pageMain       = "main"
	pageDrawer     = "drawer"
	pageCaseFile   = "casefile"
	pageActivity   = "activity"
	pageRepository = "repository"
	pageModal      = "modal"
)

const (
	syncLatency   = 1500 * time.Millisecond
	toastLifetime = 4 * time.Second
)

// commandStepLabels name the execution stepper's phases; offsets come
// from workflow.CommandStepOffsets
var commandStepLabels = []string{
	"Sweep queued",
	"Drone assigned",
	"Sweep launched",
	"Sweep in progress",
	"Completed",
}

// Options tunes console startup behavior
type Options struct {
	SkipIntro bool
	ThemeName string
}

// Console is the terminal operations console
type Console struct {
	app      *tview.Application
	ctrl     *workflow.Controller
	alerts   *session.AlertStore
	activity *session.ActivityLog
	evidence *session.EvidenceStore
	repo     *store.Store
	runner   *sched.Runner
	logger   *log.Logger

	theme        Theme
	themeName    string
	hasTrueColor bool

	pages        *tview.Pages
	header       *tview.TextView
	statusLine   *tview.TextView
	commandInput *tview.InputField
	commandPanel *tview.TextView
	sitesTable   *tview.Table
	railList     *tview.List
	jobPill      *tview.TextView

	// drawer widgets (drawer.go)
	drawerFlex   *tview.Flex
	drawerBody   *tview.TextView
	drawerSide   *tview.TextView
	drawerFooter *tview.TextView

	// case file widgets (casefile.go)
	caseFlex     *tview.Flex
	caseList     *tview.Table
	casePreview  *tview.TextView
	caseMetadata *tview.TextView

	// activity drawer widgets (activity.go)
	activityFlex   *tview.Flex
	activitySearch *tview.InputField
	activityTable  *tview.Table

	// repository widgets (repository.go)
	repoFlex   *tview.Flex
	repoSearch *tview.InputField
	repoTabs   *tview.TextView
	repoTable  *tview.Table

	// dashboard state
	introSeen   bool
	skipIntro   bool
	sites       []incident.Site
	siteFilter  string // All | Alerts | Running | Offline
	siteSearch  string
	railIDs     []string
	runningJob  *incident.Job
	jobStarted  time.Time
	lastSync    time.Time
	syncing     bool
	syncToken   sched.Token
	toastMsg    string
	toastToken  sched.Token
	activeModal string

	// command bar state
	cmdStage  int // 0 idle, 1 reviewing, 2 executing
	cmdText   string
	cmdScope  string // "" means all sites
	cmdStep   int
	cmdToken  sched.Token

	// repository state (repository.go)
	repoTab        string
	repoQuery      string
	repoStatuses   map[string]bool
	repoSites      map[string]bool
	repoIntegrity  map[string]bool
	repoCases      []incident.RepoCase
	repoSelected   map[string]bool

	// activity drawer state
	activityQuery    string
	activityIncident string
	activityEntries  []incident.LogEntry

	// controller callback hand-off (drained by Start)
	updateCh chan struct{}
	toastCh  chan string

	ctx    context.Context
	cancel context.CancelFunc
}

// NewConsole wires the console over a controller and its stores
func NewConsole(ctx context.Context, ctrl *workflow.Controller, alerts *session.AlertStore, activity *session.ActivityLog, evidence *session.EvidenceStore, repo *store.Store, runner *sched.Runner, logger *log.Logger, opts Options) *Console {
	if logger == nil {
		logger = log.New(log.Writer(), "[Console] ", log.LstdFlags)
	}

	cCtx, cancel := context.WithCancel(ctx)

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = "dark"
	}

	c := &Console{
		app:          tview.NewApplication(),
		ctrl:         ctrl,
		alerts:       alerts,
		activity:     activity,
		evidence:     evidence,
		repo:         repo,
		runner:       runner,
		logger:       logger,
		theme:        themeByName(themeName),
		themeName:    themeName,
		hasTrueColor: detectTrueColor(),
		skipIntro:    opts.SkipIntro,
		sites:        incident.SeedSites(),
		siteFilter:   "All",
		lastSync:     time.Now(),
		repoTab:      "All",
		repoStatuses: make(map[string]bool),
		repoSites:    make(map[string]bool),
		repoIntegrity: make(map[string]bool),
		repoSelected: make(map[string]bool),
		updateCh:     make(chan struct{}, 1),
		toastCh:      make(chan string, 8),
		ctx:          cCtx,
		cancel:       cancel,
	}

	c.setupLayout()
	c.setupDrawer()
	c.setupCaseFile()
	c.setupActivityDrawer()
	c.setupRepository()
	c.setupKeybindings()

	// Controller callbacks fire on whichever goroutine invoked the
	// mutation. Key handlers already run on the event loop, where
	// QueueUpdateDraw would block forever waiting on itself, so the
	// requests go through channels drained by Start instead.
	ctrl.SetNotify(c.requestRefresh)
	ctrl.SetToast(c.requestToast)

	return c
}

// requestRefresh asks the event loop for a re-render. Safe from any
// goroutine; bursts coalesce into a single redraw.
func (c *Console) requestRefresh() {
	select {
	case c.updateCh <- struct{}{}:
	default:
	}
}

// requestToast hands a toast message to the event loop
func (c *Console) requestToast(msg string) {
	select {
	case c.toastCh <- msg:
	default:
	}
}

// Start runs the console until quit or context cancellation
func (c *Console) Start(ctx context.Context) error {
	c.logger.Println("Starting console")

	go func() {
		select {
		case <-ctx.Done():
			c.logger.Println("External context cancelled, stopping console")
		case <-c.ctx.Done():
			c.logger.Println("Console context cancelled")
		}
		c.cancel()
		c.app.Stop()
	}()

	// Drain controller callback requests onto the event loop. Only
	// this goroutine calls QueueUpdateDraw for them, so callbacks
	// fired from inside the loop never deadlock.
	go func() {
		for {
			select {
			case <-c.ctx.Done():
				return
			case <-c.updateCh:
				c.app.QueueUpdateDraw(c.refresh)
			case msg := <-c.toastCh:
				c.app.QueueUpdateDraw(func() { c.showToast(msg) })
			}
		}
	}()

	if !c.skipIntro && !c.introSeen {
		c.pages.SwitchToPage(pageIntro)
	} else {
		c.introSeen = true
		c.pages.SwitchToPage(pageMain)
	}
	c.refresh()

	err := c.app.Run()
	c.logger.Printf("app.Run() returned: %v", err)
	return err
}

// Stop shuts the console down
func (c *Console) Stop() {
	c.cancel()
	c.app.Stop()
}

// setupLayout assembles the dashboard page and the intro screen
func (c *Console) setupLayout() {
	c.header = tview.NewTextView()
	c.header.SetDynamicColors(true)
	c.header.SetTextAlign(tview.AlignLeft)

	c.statusLine = tview.NewTextView()
	c.statusLine.SetDynamicColors(true)

	c.commandInput = tview.NewInputField()
	c.commandInput.SetLabel(" > ")
	c.commandInput.SetPlaceholder(incident.HelperTemplates[0])
	c.commandInput.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			c.submitCommand(c.commandInput.GetText())
		}
	})

	c.commandPanel = tview.NewTextView()
	c.commandPanel.SetDynamicColors(true)
	c.commandPanel.SetTitle(" Command ")
	c.commandPanel.SetBorder(true)
	c.commandPanel.SetTitleAlign(tview.AlignLeft)

	c.sitesTable = tview.NewTable()
	c.sitesTable.SetTitle(" Sites ")
	c.sitesTable.SetBorder(true)
	c.sitesTable.SetTitleAlign(tview.AlignLeft)
	c.sitesTable.SetSelectable(true, false)
	c.sitesTable.SetFixed(1, 0)

	c.railList = tview.NewList()
	c.railList.SetTitle(" Alerts ")
	c.railList.SetBorder(true)
	c.railList.SetTitleAlign(tview.AlignLeft)
	c.railList.ShowSecondaryText(true)
	c.railList.SetSelectedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
		c.openAlertAt(index)
	})

	c.jobPill = tview.NewTextView()
	c.jobPill.SetDynamicColors(true)
	c.jobPill.SetTextAlign(tview.AlignRight)

	commandArea := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(c.commandInput, 1, 0, true).
		AddItem(c.commandPanel, 0, 1, false)

	left := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(commandArea, 9, 0, true).
		AddItem(c.sitesTable, 0, 1, false)

	topBar := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(c.header, 0, 1, false).
		AddItem(c.jobPill, 30, 0, false)

	body := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(left, 0, 2, true).
		AddItem(c.railList, 42, 0, false)

	main := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(topBar, 1, 0, false).
		AddItem(body, 0, 1, true).
		AddItem(c.statusLine, 1, 0, false)

	intro := tview.NewTextView()
	intro.SetDynamicColors(true)
	intro.SetTextAlign(tview.AlignCenter)
	intro.SetText(fmt.Sprintf("\n\n\n\n[%s::b]SKYWATCH OPS CONSOLE[-:-:-]\n\n[%s]Autonomous perimeter monitoring[-]\n\n\n[%s]Press Enter to begin[-]",
		c.theme.TagAccent, c.theme.TagMuted, c.theme.TagTextPrimary))
	intro.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if ev.Key() == tcell.KeyEnter {
			c.introSeen = true
			c.pages.SwitchToPage(pageMain)
			c.app.SetFocus(c.commandInput)
			return nil
		}
		return ev
	})

	c.pages = tview.NewPages()
	c.pages.AddPage(pageIntro, intro, true, false)
	c.pages.AddPage(pageMain, main, true, true)

	c.app.SetRoot(c.pages, true)
}

// setupKeybindings installs the global key handler
func (c *Console) setupKeybindings() {
	c.app.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if c.activeModal != "" {
			return ev
		}
		// Text inputs own their keystrokes
		if _, ok := c.app.GetFocus().(*tview.InputField); ok {
			if ev.Key() == tcell.KeyEscape {
				c.handleEscape()
				return nil
			}
			return ev
		}

		switch ev.Key() {
		case tcell.KeyEscape:
			c.handleEscape()
			return nil
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q':
				c.Stop()
				return nil
			case '/':
				c.app.SetFocus(c.commandInput)
				return nil
			case 't':
				c.triggerDemo()
				return nil
			case 'a':
				c.openActivityDrawer("")
				return nil
			case 'e':
				c.openRepository()
				return nil
			case 's':
				c.startSync()
				return nil
			case 'f':
				c.cycleSiteFilter()
				return nil
			case 'c':
				c.cycleTheme()
				return nil
			case '1':
				c.app.SetFocus(c.railList)
				return nil
			case '2':
				c.app.SetFocus(c.sitesTable)
				return nil
			}
		}
		return ev
	})
}

// handleEscape steps the topmost surface back one level
func (c *Console) handleEscape() {
	front, _ := c.pages.GetFrontPage()
	switch front {
	case pageCaseFile:
		if err := c.ctrl.CloseCaseFile(); err != nil {
			// Repository deep links have no workspace to return to
			c.ctrl.Close()
			c.pages.SwitchToPage(pageMain)
			c.refresh()
			return
		}
		c.pages.SwitchToPage(pageDrawer)
		c.renderDrawer()
	case pageDrawer:
		c.ctrl.Close()
		c.pages.SwitchToPage(pageMain)
		c.refresh()
	case pageActivity, pageRepository:
		c.pages.SwitchToPage(pageMain)
		c.refresh()
	default:
		if c.cmdStage == 1 {
			c.cancelCommand()
		}
	}
}

// refresh re-renders every visible surface from current state
func (c *Console) refresh() {
	c.renderHeader()
	c.renderStatusLine()
	c.renderRail()
	c.renderSites()
	c.renderJobPill()
	c.renderCommandPanel()

	switch front, _ := c.pages.GetFrontPage(); front {
	case pageDrawer:
		c.renderDrawer()
	case pageCaseFile:
		c.renderCaseFile()
	case pageActivity:
		c.renderActivityDrawer()
	case pageRepository:
		c.renderRepository()
	}
}

func (c *Console) renderHeader() {
	repoCount := 0
	if c.repo != nil {
		if n, err := c.repo.CountCases(c.ctx); err == nil {
			repoCount = n
		}
	}
	c.header.SetText(fmt.Sprintf(" [%s::b]SKYWATCH[-:-:-]  [%s]alerts %d[-]  [%s]activity %d[-]  [%s]cases %d[-]",
		c.theme.TagAccent, c.theme.TagWarning, c.alerts.Len(),
		c.theme.TagMuted, c.activity.Len(), c.theme.TagMuted, repoCount))
}

func (c *Console) renderStatusLine() {
	state := "MONITORING"
	stateTag := c.theme.TagSuccess
	if c.alerts.Len() > 0 {
		state = "ACTIVE INCIDENT"
		stateTag = c.theme.TagError
	}

	sync := fmt.Sprintf("synced %s", humanize.Time(c.lastSync))
	if c.syncing {
		sync = "syncing..."
	}

	toast := ""
	if c.toastMsg != "" {
		toast = fmt.Sprintf("  [%s]%s[-]", c.theme.TagAccent, c.toastMsg)
	}

	c.statusLine.SetText(fmt.Sprintf(" [%s]%s[-] | %d sites | %s%s | [%s]q[-]:quit [%s]t[-]:trigger [%s]a[-]:activity [%s]e[-]:repository [%s]s[-]:sync",
		stateTag, state, len(c.sites), sync, toast,
		c.theme.TagAccent, c.theme.TagAccent, c.theme.TagAccent, c.theme.TagAccent, c.theme.TagAccent))
}

// startSync simulates a manual data sync with fixed latency
func (c *Console) startSync() {
	if c.syncing {
		return
	}
	c.syncing = true
	c.renderStatusLine()
	c.syncToken = c.runner.Schedule([]time.Duration{syncLatency}, func(int) {
		c.app.QueueUpdateDraw(func() {
			c.syncing = false
			c.lastSync = time.Now()
			c.showToast("Data synced")
		})
	})
}

// showToast displays a transient confirmation on the status line
func (c *Console) showToast(msg string) {
	if c.toastToken != 0 {
		c.runner.Cancel(c.toastToken)
	}
	c.toastMsg = msg
	c.renderStatusLine()
	c.toastToken = c.runner.Schedule([]time.Duration{toastLifetime}, func(int) {
		c.app.QueueUpdateDraw(func() {
			c.toastMsg = ""
			c.renderStatusLine()
		})
	})
}

// triggerDemo fires the canned demo alert pair and opens the drawer
func (c *Console) triggerDemo() {
	alert, err := c.ctrl.TriggerDemoAlert()
	if err != nil {
		c.showToast("Trigger failed: " + err.Error())
		return
	}
	c.markSiteAlert(alert.Site)
	c.pages.SwitchToPage(pageDrawer)
	c.refresh()
}

// markSiteAlert flips a site tile into the alert state
func (c *Console) markSiteAlert(name string) {
	for i := range c.sites {
		if c.sites[i].Name == name {
			c.sites[i].Status = incident.SiteAlert
			c.sites[i].AlertCount++
			c.sites[i].LastEvent = "now"
		}
	}
}

// renderRail rebuilds the alert card list, newest first
func (c *Console) renderRail() {
	selected := c.railList.GetCurrentItem()
	c.railList.Clear()
	c.railIDs = c.railIDs[:0]

	list := c.alerts.List()
	for _, a := range list {
		c.railIDs = append(c.railIDs, a.ID)
		tag := c.severityTag(a.Severity)
		main := fmt.Sprintf("[%s]%s[-] %s", tag, a.ID, a.Type)
		second := fmt.Sprintf("  %s • %s • %s (%s)", a.Site, a.Status, a.ConfidenceLabel(), a.Time().Format("15:04:05"))
		c.railList.AddItem(main, second, 0, nil)
	}
	if len(list) == 0 {
		c.railList.AddItem(fmt.Sprintf("[%s]No active alerts[-]", c.theme.TagMuted), "", 0, nil)
	}
	if selected >= 0 && selected < c.railList.GetItemCount() {
		c.railList.SetCurrentItem(selected)
	}
}

// openAlertAt selects the alert behind a rail row and opens the drawer
func (c *Console) openAlertAt(index int) {
	if index < 0 || index >= len(c.railIDs) {
		return
	}
	if err := c.ctrl.Select(c.railIDs[index]); err != nil {
		c.showToast("Open failed: " + err.Error())
		return
	}
	c.pages.SwitchToPage(pageDrawer)
	c.refresh()
}

// filteredSites applies the active chip filter and text search
func (c *Console) filteredSites() []incident.Site {
	out := make([]incident.Site, 0, len(c.sites))
	q := strings.ToLower(strings.TrimSpace(c.siteSearch))
	for _, s := range c.sites {
		switch c.siteFilter {
		case "Alerts":
			if s.Status != incident.SiteAlert {
				continue
			}
		case "Running":
			if s.ActiveTask == "" && s.DronesBusy == 0 {
				continue
			}
		case "Offline":
			if s.ConnectionState != incident.ConnOffline {
				continue
			}
		}
		if q != "" && !strings.Contains(strings.ToLower(s.Name), q) && !strings.Contains(strings.ToLower(s.Location), q) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (c *Console) cycleSiteFilter() {
	order := []string{"All", "Alerts", "Running", "Offline"}
	for i, f := range order {
		if f == c.siteFilter {
			c.siteFilter = order[(i+1)%len(order)]
			c.renderSites()
			return
		}
	}
	c.siteFilter = "All"
	c.renderSites()
}

// renderSites rebuilds the site grid table
func (c *Console) renderSites() {
	c.sitesTable.Clear()
	c.sitesTable.SetTitle(fmt.Sprintf(" Sites [%s] (f to cycle) ", c.siteFilter))

	headers := []string{"Site", "Location", "Status", "Drones", "Link", "Last Event"}
	for col, h := range headers {
		c.sitesTable.SetCell(0, col, tview.NewTableCell(h).
			SetTextColor(c.theme.TableHeader).
			SetBackgroundColor(c.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetSelectable(false))
	}

	for row, s := range c.filteredSites() {
		status := string(s.Status)
		if s.ActiveTask != "" {
			status = string(s.Status) + " • " + s.ActiveTask
		}
		drones := fmt.Sprintf("%d ready / %d busy", s.DronesReady, s.DronesBusy)
		cells := []string{s.Name, s.Location, status, drones, string(s.ConnectionState), s.LastEvent}
		for col, text := range cells {
			cell := tview.NewTableCell(text).SetTextColor(c.theme.TableRow)
			if col == 2 {
				cell.SetTextColor(c.siteStatusColor(s.Status))
			}
			c.sitesTable.SetCell(row+1, col, cell)
		}
	}
}

func (c *Console) siteStatusColor(s incident.SiteStatus) tcell.Color {
	switch s {
	case incident.SiteAlert:
		return c.theme.Error
	case incident.SiteInvestigating:
		return c.theme.Warning
	case incident.SiteOffline:
		return c.theme.TextMuted
	default:
		return c.theme.Success
	}
}

func (c *Console) renderJobPill() {
	if c.runningJob == nil {
		c.jobPill.SetText("")
		return
	}
	elapsed := int(time.Since(c.jobStarted).Seconds())
	c.jobPill.SetText(fmt.Sprintf("[%s]%s %s (%ds)[-] ", c.theme.TagWarning, c.runningJob.Type, c.runningJob.SiteName, elapsed))
}

// submitCommand moves the command bar into the review stage
func (c *Console) submitCommand(text string) {
	text = strings.TrimSpace(text)
	if text == "" || c.cmdStage != 0 {
		return
	}

	// An @-mention scopes the command to one site
	c.cmdScope = ""
	if at := strings.LastIndex(text, "@"); at != -1 {
		mention := strings.TrimSpace(text[at+1:])
		for _, s := range c.sites {
			if strings.EqualFold(s.Name, mention) {
				c.cmdScope = s.Name
				text = strings.TrimSpace(text[:at])
			}
		}
	}

	c.cmdText = text
	c.cmdStage = 1
	c.renderCommandPanel()
}

// confirmCommand starts the simulated execution stepper
func (c *Console) confirmCommand() {
	if c.cmdStage != 1 {
		return
	}
	c.cmdStage = 2
	c.cmdStep = 0
	c.renderCommandPanel()

	c.cmdToken = c.runner.Schedule(workflow.CommandStepOffsets, func(step int) {
		c.app.QueueUpdateDraw(func() { c.advanceCommand(step) })
	})
}

// advanceCommand is the scheduler callback for the execution stepper
func (c *Console) advanceCommand(step int) {
	c.cmdStep = step
	if step == len(workflow.CommandStepOffsets)-1 {
		c.finishCommand()
		return
	}
	c.renderCommandPanel()
}

func (c *Console) finishCommand() {
	scope := c.cmdScope
	if scope == "" {
		scope = "All sites"
	}
	c.runningJob = &incident.Job{
		ID:       fmt.Sprintf("job-%d", time.Now().UnixMilli()),
		Type:     "Quick Sweep",
		SiteName: scope,
		Status:   "Running",
	}
	c.jobStarted = time.Now()

	for i := range c.sites {
		if c.sites[i].Name == c.cmdScope {
			c.sites[i].Status = incident.SiteInvestigating
			c.sites[i].ActiveTask = "Sweep running"
		}
	}

	c.cmdStage = 0
	c.cmdText = ""
	c.cmdToken = 0
	c.commandInput.SetText("")
	c.showToast(fmt.Sprintf("Sweep started on %s", scope))
	c.refresh()
}

func (c *Console) cancelCommand() {
	if c.cmdToken != 0 {
		c.runner.Cancel(c.cmdToken)
		c.cmdToken = 0
	}
	c.cmdStage = 0
	c.cmdText = ""
	c.cmdScope = ""
	c.commandInput.SetText("")
	c.renderCommandPanel()
}

// renderCommandPanel shows quick actions, the review plan or the stepper
func (c *Console) renderCommandPanel() {
	var b strings.Builder
	switch c.cmdStage {
	case 1:
		scope := c.cmdScope
		if scope == "" {
			scope = "All sites"
		}
		fmt.Fprintf(&b, "[%s::b]REVIEW[-:-:-]\n\n", c.theme.TagWarning)
		fmt.Fprintf(&b, "  Command: [%s]%s[-]\n", c.theme.TagTextPrimary, c.cmdText)
		fmt.Fprintf(&b, "  Scope:   [%s]%s[-]\n\n", c.theme.TagTextPrimary, scope)
		fmt.Fprintf(&b, "  [%s]Enter[-] confirm  [%s]e[-] edit  [%s]Esc[-] cancel", c.theme.TagSuccess, c.theme.TagAccent, c.theme.TagError)
	case 2:
		fmt.Fprintf(&b, "[%s::b]EXECUTING[-:-:-]\n\n", c.theme.TagAccent)
		for i, label := range commandStepLabels {
			marker := "QUEUED"
			tag := c.theme.TagMuted
			switch {
			case i < c.cmdStep:
				marker = "DONE"
				tag = c.theme.TagSuccess
			case i == c.cmdStep:
				marker = "RUNNING"
				tag = c.theme.TagAccent
			}
			fmt.Fprintf(&b, "  [%s]%-8s[-] %s\n", tag, marker, label)
		}
	default:
		fmt.Fprintf(&b, "[%s]Quick actions:[-]\n", c.theme.TagMuted)
		for _, a := range incident.QuickActions {
			fmt.Fprintf(&b, "  [%s]•[-] %s\n", c.theme.TagAccent, a)
		}
		fmt.Fprintf(&b, "\n[%s]@site scopes a command; Enter submits[-]", c.theme.TagMuted)
	}
	c.commandPanel.SetText(b.String())

	// Review-stage keys live on the panel while it has meaning
	c.commandPanel.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if c.cmdStage != 1 {
			return ev
		}
		switch ev.Key() {
		case tcell.KeyEnter:
			c.confirmCommand()
			return nil
		case tcell.KeyEscape:
			c.cancelCommand()
			return nil
		case tcell.KeyRune:
			if ev.Rune() == 'e' {
				c.cmdStage = 0
				c.commandInput.SetText(c.cmdText)
				c.renderCommandPanel()
				c.app.SetFocus(c.commandInput)
				return nil
			}
		}
		return ev
	})
	if c.cmdStage == 1 {
		c.app.SetFocus(c.commandPanel)
	}
}

func (c *Console) cycleTheme() {
	for i, name := range themeOrder {
		if name == c.themeName {
			c.themeName = themeOrder[(i+1)%len(themeOrder)]
			break
		}
	}
	c.theme = themeByName(c.themeName)
	c.applyTheme()
	c.refresh()
	c.showToast("Theme: " + c.themeName)
}

// applyTheme pushes widget colors after a palette switch
func (c *Console) applyTheme() {
	t := c.theme
	for _, tv := range []*tview.TextView{c.header, c.statusLine, c.commandPanel, c.jobPill, c.drawerBody, c.drawerSide, c.drawerFooter, c.casePreview, c.caseMetadata, c.repoTabs} {
		if tv == nil {
			continue
		}
		tv.SetBackgroundColor(t.Bg)
		tv.SetTextColor(t.TextPrimary)
		tv.SetBorderColor(t.Border)
	}
	for _, tb := range []*tview.Table{c.sitesTable, c.activityTable, c.repoTable, c.caseList} {
		if tb == nil {
			continue
		}
		tb.SetBackgroundColor(t.Bg)
		tb.SetBorderColor(t.Border)
		tb.SetSelectedStyle(tcell.StyleDefault.Background(t.SelectionBg).Foreground(t.SelectionFg))
	}
	c.railList.SetBackgroundColor(t.Bg)
	c.railList.SetBorderColor(t.Border)
	c.railList.SetMainTextColor(t.TextPrimary)
	c.railList.SetSecondaryTextColor(t.TextMuted)
	c.railList.SetSelectedBackgroundColor(t.SelectionBg)
	c.railList.SetSelectedTextColor(t.SelectionFg)
}

func (c *Console) severityTag(s incident.Severity) string {
	switch s {
	case incident.SeverityCritical:
		return c.theme.TagSeverityCritical
	case incident.SeverityHigh:
		return c.theme.TagSeverityHigh
	case incident.SeverityMedium:
		return c.theme.TagSeverityMedium
	default:
		return c.theme.TagSeverityLow
	}
}

// showModal overlays a confirmation dialog
func (c *Console) showModal(name, text string, buttons []string, done func(label string)) {
	modal := tview.NewModal().
		SetText(text).
		AddButtons(buttons).
		SetDoneFunc(func(idx int, label string) {
			c.activeModal = ""
			c.pages.RemovePage(pageModal)
			done(label)
		})
	c.activeModal = name
	c.pages.AddPage(pageModal, modal, true, true)
}
