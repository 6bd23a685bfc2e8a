package ui

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/arvosec/skywatch/internal/session"
)

// setupActivityDrawer builds the activity log page: a search box over
// an expandable entry table
func (c *Console) setupActivityDrawer() {
	c.activitySearch = tview.NewInputField()
	c.activitySearch.SetLabel(" Search: ")
	c.activitySearch.SetChangedFunc(func(text string) {
		c.activityQuery = text
		c.renderActivityDrawer()
	})
	c.activitySearch.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter || key == tcell.KeyTab {
			c.app.SetFocus(c.activityTable)
		}
	})

	c.activityTable = tview.NewTable()
	c.activityTable.SetBorder(true)
	c.activityTable.SetTitleAlign(tview.AlignLeft)
	c.activityTable.SetSelectable(true, false)
	c.activityTable.SetFixed(1, 0)
	c.activityTable.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if ev.Key() == tcell.KeyRune && ev.Rune() == '/' {
			c.app.SetFocus(c.activitySearch)
			return nil
		}
		return ev
	})

	c.activityFlex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(c.activitySearch, 1, 0, false).
		AddItem(c.activityTable, 0, 1, true)

	c.pages.AddPage(pageActivity, c.activityFlex, true, false)
}

// openActivityDrawer shows the activity log, optionally pre-filtered
// to one incident (the audit-trail deep link)
func (c *Console) openActivityDrawer(incidentID string) {
	c.activityIncident = incidentID
	c.activityQuery = ""
	c.activitySearch.SetText("")
	c.pages.SwitchToPage(pageActivity)
	c.renderActivityDrawer()
	c.app.SetFocus(c.activityTable)
}

// renderActivityDrawer redraws the filtered entry table
func (c *Console) renderActivityDrawer() {
	c.activityEntries = c.activity.Query(session.Filter{
		Text:       c.activityQuery,
		IncidentID: c.activityIncident,
	})

	title := " Activity Log "
	if c.activityIncident != "" {
		title = fmt.Sprintf(" Activity Log — %s ", c.activityIncident)
	}
	c.activityTable.SetTitle(title)
	c.activityTable.Clear()

	headers := []string{"Time", "T+", "Incident", "Actor", "Action", "Result", "Details"}
	for col, h := range headers {
		c.activityTable.SetCell(0, col, tview.NewTableCell(h).
			SetTextColor(c.theme.TableHeader).
			SetBackgroundColor(c.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetSelectable(false))
	}

	for row, e := range c.activityEntries {
		abs := time.UnixMilli(e.Timestamp).Format("15:04:05")
		resultColor := c.theme.TextMuted
		switch e.Result {
		case "SUCCESS":
			resultColor = c.theme.Success
		case "FAILED":
			resultColor = c.theme.Error
		case "IN_PROGRESS":
			resultColor = c.theme.Warning
		}
		cells := []string{abs, e.RelativeTime(), e.IncidentID, e.Actor, e.Action, string(e.Result), e.Details}
		for col, text := range cells {
			cell := tview.NewTableCell(text).SetTextColor(c.theme.TableRow)
			switch col {
			case 1:
				cell.SetTextColor(c.theme.TextMuted)
			case 4:
				cell.SetAttributes(tcell.AttrBold)
			case 5:
				cell.SetTextColor(resultColor)
			}
			c.activityTable.SetCell(row+1, col, cell)
		}
	}

	if len(c.activityEntries) == 0 {
		c.activityTable.SetCell(1, 0, tview.NewTableCell("No matching entries").
			SetTextColor(c.theme.TableRowMuted))
	}
}
