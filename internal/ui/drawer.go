package ui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/arvosec/skywatch/internal/incident"
	"github.com/arvosec/skywatch/internal/workflow"
)

// setupDrawer builds the alert drawer page: main body (summary or
// workspace tab content), side pane (feeds wall / timeline) and a
// footer with the available actions
func (c *Console) setupDrawer() {
	c.drawerBody = tview.NewTextView()
	c.drawerBody.SetDynamicColors(true)
	c.drawerBody.SetBorder(true)
	c.drawerBody.SetTitleAlign(tview.AlignLeft)
	c.drawerBody.SetWordWrap(true)
	c.drawerBody.SetScrollable(true)

	c.drawerSide = tview.NewTextView()
	c.drawerSide.SetDynamicColors(true)
	c.drawerSide.SetBorder(true)
	c.drawerSide.SetTitleAlign(tview.AlignLeft)

	c.drawerFooter = tview.NewTextView()
	c.drawerFooter.SetDynamicColors(true)

	body := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(c.drawerBody, 0, 3, true).
		AddItem(c.drawerSide, 0, 2, false)

	c.drawerFlex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(body, 0, 1, true).
		AddItem(c.drawerFooter, 2, 0, false)

	c.drawerBody.SetInputCapture(c.drawerKeys)
	c.pages.AddPage(pageDrawer, c.drawerFlex, true, false)
}

// drawerKeys handles the drawer's action keys for both modes
func (c *Console) drawerKeys(ev *tcell.EventKey) *tcell.EventKey {
	if ev.Key() != tcell.KeyRune {
		return ev
	}
	switch c.ctrl.Mode() {
	case workflow.ModeDetails:
		switch ev.Rune() {
		case 'y':
			if err := c.ctrl.ConfirmThreat(); err != nil {
				c.showToast("Confirm failed: " + err.Error())
			}
			c.renderDrawer()
			return nil
		case 'n':
			c.confirmFalseAlarm()
			return nil
		case 'v':
			sel, _ := c.ctrl.Selected()
			c.openActivityDrawer(sel.ID)
			return nil
		}
	case workflow.ModeResponse:
		switch ev.Rune() {
		case '1', '2', '3':
			tabs := map[rune]workflow.Tab{'1': workflow.TabResponse, '2': workflow.TabBrief, '3': workflow.TabEvidence}
			if err := c.ctrl.SwitchTab(tabs[ev.Rune()]); err == nil {
				c.renderDrawer()
			}
			return nil
		case 'd':
			c.deployDroneMenu()
			return nil
		case 'l':
			if err := c.ctrl.LockPerimeter(); err != nil {
				c.showToast("Lock failed: " + err.Error())
			}
			c.renderDrawer()
			return nil
		case 'b':
			if err := c.ctrl.SendBrief(); err != nil {
				c.showToast("Send failed: " + err.Error())
			}
			c.renderDrawer()
			return nil
		case 'r':
			c.cycleBriefTemplate()
			return nil
		case 'm':
			if err := c.ctrl.MarkMoment(); err != nil {
				c.showToast("Capture failed: " + err.Error())
			}
			c.renderDrawer()
			return nil
		case 'o':
			c.noteComposer()
			return nil
		case 'p':
			c.pinFirstFeed()
			return nil
		case 'F':
			if err := c.ctrl.OpenCaseFile(); err == nil {
				c.pages.SwitchToPage(pageCaseFile)
				c.renderCaseFile()
			}
			return nil
		case 'v':
			sel, _ := c.ctrl.Selected()
			c.openActivityDrawer(sel.ID)
			return nil
		}
	}
	return ev
}

// renderDrawer redraws the drawer from the controller snapshot
func (c *Console) renderDrawer() {
	alert, ok := c.ctrl.Selected()
	if !ok {
		return
	}
	view := c.ctrl.Snapshot()

	switch view.Mode {
	case workflow.ModeDetails:
		c.renderDetails(alert, view)
	case workflow.ModeResponse:
		c.renderResponse(alert, view)
	}
}

// renderDetails shows the read-only sidebar for an unconfirmed alert
func (c *Console) renderDetails(alert incident.Alert, view workflow.View) {
	var b strings.Builder
	tag := c.severityTag(alert.Severity)

	fmt.Fprintf(&b, "[%s::b]%s[-:-:-]  [%s]%s[-]\n", tag, alert.ID, c.theme.TagMuted, alert.Type)
	fmt.Fprintf(&b, "[%s]%s • %s • %s confidence (%.0f%%)[-]\n\n", c.theme.TagMuted,
		alert.Site, alert.Time().Format("15:04:05"), alert.ConfidenceLabel(), alert.Confidence*100)
	fmt.Fprintf(&b, "[%s]AI SUMMARY[-]\n%s\n\n", c.theme.TagAccent, alert.AISummary)
	fmt.Fprintf(&b, "[%s]WHY THIS FIRED[-]\n%s\n\n", c.theme.TagAccent, alert.Details.Why)
	fmt.Fprintf(&b, "[%s]CURRENT ACTION[-]\n%s\n\n", c.theme.TagAccent, alert.Details.Action)
	fmt.Fprintf(&b, "[%s]ASSIGNED ASSET[-]\n%s — zone %s\n", c.theme.TagAccent, alert.Details.DroneID, alert.Details.Zone)

	c.drawerBody.SetTitle(fmt.Sprintf(" Alert %s ", alert.ID))
	c.drawerBody.SetText(b.String())

	c.drawerSide.SetTitle(" Timeline ")
	c.drawerSide.SetText(c.timelineText(view.Timeline))

	c.drawerFooter.SetText(fmt.Sprintf(" [%s]y[-] confirm threat  [%s]n[-] false alarm  [%s]v[-] audit trail  [%s]Esc[-] close",
		c.theme.TagSuccess, c.theme.TagError, c.theme.TagAccent, c.theme.TagMuted))
}

// renderResponse shows the tabbed operator workspace
func (c *Console) renderResponse(alert incident.Alert, view workflow.View) {
	var b strings.Builder
	tag := c.severityTag(alert.Severity)

	tabBar := func(active workflow.Tab) string {
		parts := make([]string, 0, 3)
		for i, t := range []workflow.Tab{workflow.TabResponse, workflow.TabBrief, workflow.TabEvidence} {
			label := fmt.Sprintf("%d:%s", i+1, strings.ToUpper(string(t)))
			if t == active {
				parts = append(parts, fmt.Sprintf("[%s::b]%s[-:-:-]", c.theme.TagAccent, label))
			} else {
				parts = append(parts, fmt.Sprintf("[%s]%s[-]", c.theme.TagMuted, label))
			}
		}
		return strings.Join(parts, "  ")
	}

	fmt.Fprintf(&b, "[%s::b]%s[-:-:-]  [%s]%s • %s[-]\n", tag, alert.ID, c.theme.TagMuted, alert.Type, alert.Site)
	if view.Recording {
		fmt.Fprintf(&b, "[%s]● REC[-]  ", c.theme.TagError)
	}
	if view.LatestUpdate != "" {
		fmt.Fprintf(&b, "[%s]%s[-]", c.theme.TagWarning, view.LatestUpdate)
	}
	fmt.Fprintf(&b, "\n\n%s\n\n", tabBar(view.Tab))

	switch view.Tab {
	case workflow.TabBrief:
		c.writeBriefTab(&b, view)
	case workflow.TabEvidence:
		c.writeEvidenceTab(&b, view)
	default:
		c.writeResponseTab(&b, view)
	}

	c.drawerBody.SetTitle(fmt.Sprintf(" Response %s ", alert.ID))
	c.drawerBody.SetText(b.String())

	c.drawerSide.SetTitle(" Feeds ")
	c.drawerSide.SetText(c.feedsText(view.Feeds))

	footer := fmt.Sprintf(" [%s]1/2/3[-] tabs  [%s]d[-] deploy  [%s]l[-] lock  [%s]b[-] send brief  [%s]m[-] mark  [%s]o[-] note  [%s]F[-] case file  [%s]Esc[-] close",
		c.theme.TagAccent, c.theme.TagAccent, c.theme.TagAccent, c.theme.TagAccent, c.theme.TagAccent, c.theme.TagAccent, c.theme.TagAccent, c.theme.TagMuted)
	c.drawerFooter.SetText(footer)
}

func (c *Console) writeResponseTab(b *strings.Builder, view workflow.View) {
	fmt.Fprintf(b, "[%s]TASKS[-]\n", c.theme.TagAccent)
	for _, t := range view.Tasks {
		eta := ""
		if t.ETA != "" {
			eta = " • ETA " + t.ETA
		}
		fmt.Fprintf(b, "  %-18s %-10s [%s]%s[-]%s\n", t.Name, t.Assignee, c.theme.TagSuccess, t.Status, eta)
	}
	if len(view.Tasks) == 0 {
		fmt.Fprintf(b, "  [%s]none[-]\n", c.theme.TagMuted)
	}

	fmt.Fprintf(b, "\n[%s]DEPLOYED ASSETS[-]\n", c.theme.TagAccent)
	for _, a := range view.Assets {
		fmt.Fprintf(b, "  %-8s %-10s %s • battery %s • link %s • %s\n", a.Name, a.Status, a.Intent, a.Battery, a.Link, a.Mode)
	}

	fmt.Fprintf(b, "\n[%s]RECOMMENDED[-]\n", c.theme.TagAccent)
	if view.PerimeterLocked {
		fmt.Fprintf(b, "  [%s]Perimeter locked at %s[-]\n", c.theme.TagSuccess, view.LockTime)
	} else {
		fmt.Fprintf(b, "  Lock perimeter ([%s]l[-])\n", c.theme.TagAccent)
	}
	for _, p := range incident.DeployPresets {
		fmt.Fprintf(b, "  Deploy: %s ([%s]d[-])\n", p, c.theme.TagAccent)
	}
}

func (c *Console) writeBriefTab(b *strings.Builder, view workflow.View) {
	statusTag := c.theme.TagMuted
	switch view.BriefStatus {
	case workflow.BriefSent:
		statusTag = c.theme.TagWarning
	case workflow.BriefDelivered:
		statusTag = c.theme.TagAccent
	case workflow.BriefAcked:
		statusTag = c.theme.TagSuccess
	}

	fmt.Fprintf(b, "[%s]TO[-]       %s\n", c.theme.TagAccent, view.BriefRecipient)
	fmt.Fprintf(b, "[%s]TEMPLATE[-] %s ([%s]r[-] to cycle)\n", c.theme.TagAccent, view.BriefTemplate, c.theme.TagAccent)
	fmt.Fprintf(b, "[%s]ATTACH[-]   %s\n\n", c.theme.TagAccent, strings.Join(view.BriefAttachments, ", "))
	fmt.Fprintf(b, "%s\n\n", view.BriefText)
	fmt.Fprintf(b, "[%s]STATUS[-]   [%s]%s[-]", c.theme.TagAccent, statusTag, strings.ToUpper(string(view.BriefStatus)))
	if view.BriefSentAt != "" {
		fmt.Fprintf(b, " [%s](sent %s)[-]", c.theme.TagMuted, view.BriefSentAt)
	}
	fmt.Fprintf(b, "\n\n[%s]b[-] send", c.theme.TagAccent)
}

func (c *Console) writeEvidenceTab(b *strings.Builder, view workflow.View) {
	fmt.Fprintf(b, "[%s]CAPTURED EVIDENCE[-]  window %s\n\n", c.theme.TagAccent, view.CaptureWindow)
	for _, item := range c.evidence.List() {
		extra := item.Duration
		if extra == "" {
			extra = item.Format
		}
		fmt.Fprintf(b, "  %s  [%s]%-8s[-] %-10s %s", item.Time, c.theme.TagWarning, item.Kind, item.Source, item.Label)
		if extra != "" {
			fmt.Fprintf(b, " [%s](%s)[-]", c.theme.TagMuted, extra)
		}
		fmt.Fprintln(b)
	}
	fmt.Fprintf(b, "\n[%s]m[-] mark moment  [%s]o[-] add note  [%s]F[-] view full case", c.theme.TagAccent, c.theme.TagAccent, c.theme.TagAccent)
}

func (c *Console) timelineText(rows []incident.TimelineEvent) string {
	var b strings.Builder
	for _, r := range rows {
		tag := c.theme.TagMuted
		if r.Status == "active" {
			tag = c.theme.TagAccent
		}
		fmt.Fprintf(&b, "[%s]%s[-] %s\n       [%s]%s[-]\n", tag, r.Time, r.Label, c.theme.TagMuted, r.Source)
	}
	return b.String()
}

func (c *Console) feedsText(feeds []incident.Feed) string {
	var b strings.Builder
	for _, f := range feeds {
		statusTag := c.theme.TagSuccess
		if f.Status != incident.FeedLive {
			statusTag = c.theme.TagWarning
		}
		pin := "  "
		if f.Pinned {
			pin = fmt.Sprintf("[%s]★[-] ", c.theme.TagAccent)
		}
		fmt.Fprintf(&b, "%s%-8s [%s]%-10s[-] %s\n", pin, f.Source, statusTag, f.Status, f.TargetTag)
	}
	fmt.Fprintf(&b, "\n[%s]p[-] pin top feed", c.theme.TagAccent)
	return b.String()
}

// confirmFalseAlarm asks before dismissing the alert
func (c *Console) confirmFalseAlarm() {
	c.showModal("false-alarm", "Mark this alert as a false alarm?", []string{"Mark False Alarm", "Cancel"}, func(label string) {
		if label != "Mark False Alarm" {
			c.app.SetFocus(c.drawerBody)
			return
		}
		if err := c.ctrl.MarkFalseAlarm(); err != nil {
			c.showToast("Dismiss failed: " + err.Error())
			return
		}
		c.pages.SwitchToPage(pageMain)
		c.refresh()
	})
}

// deployDroneMenu picks a deployment preset
func (c *Console) deployDroneMenu() {
	buttons := append(append([]string{}, incident.DeployPresets...), "Cancel")
	c.showModal("deploy", "Deploy Drone 2", buttons, func(label string) {
		c.app.SetFocus(c.drawerBody)
		if label == "Cancel" || label == "" {
			return
		}
		if err := c.ctrl.DeployDrone(label); err != nil {
			c.showToast("Deploy failed: " + err.Error())
		}
		c.renderDrawer()
	})
}

// cycleBriefTemplate rotates radio → standard → detailed
func (c *Console) cycleBriefTemplate() {
	order := []incident.BriefTemplate{incident.BriefRadio, incident.BriefStandard, incident.BriefDetailed}
	current := c.ctrl.Snapshot().BriefTemplate
	for i, t := range order {
		if t == current {
			c.ctrl.SetBriefTemplate(order[(i+1)%len(order)])
			c.renderDrawer()
			return
		}
	}
	c.ctrl.SetBriefTemplate(incident.BriefStandard)
	c.renderDrawer()
}

// noteComposer opens a one-line note input
func (c *Console) noteComposer() {
	input := tview.NewInputField()
	input.SetLabel(" Note: ")
	input.SetFieldWidth(60)
	form := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(nil, 0, 1, false).
		AddItem(input, 3, 0, true).
		AddItem(nil, 0, 1, false)
	input.SetDoneFunc(func(key tcell.Key) {
		text := input.GetText()
		c.activeModal = ""
		c.pages.RemovePage(pageModal)
		c.app.SetFocus(c.drawerBody)
		if key != tcell.KeyEnter {
			return
		}
		if err := c.ctrl.AddNote(text); err != nil {
			c.showToast("Note rejected: " + err.Error())
			return
		}
		c.renderDrawer()
	})
	c.activeModal = "note"
	c.pages.AddPage(pageModal, form, true, true)
	c.app.SetFocus(input)
}

func (c *Console) pinFirstFeed() {
	feeds := c.ctrl.Snapshot().Feeds
	if len(feeds) == 0 {
		return
	}
	c.ctrl.PinFeed(feeds[0].ID)
	c.renderDrawer()
}
