package ui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/arvosec/skywatch/internal/incident"
)

// setupCaseFile builds the full-screen evidence review page: the
// evidence timeline on the left, a preview pane and the metadata /
// chain-of-custody pane on the right
func (c *Console) setupCaseFile() {
	c.caseList = tview.NewTable()
	c.caseList.SetTitle(" Evidence ")
	c.caseList.SetBorder(true)
	c.caseList.SetTitleAlign(tview.AlignLeft)
	c.caseList.SetSelectable(true, false)
	c.caseList.SetFixed(1, 0)
	c.caseList.SetSelectionChangedFunc(func(row, col int) {
		c.renderCasePreview(row - 1)
	})

	c.casePreview = tview.NewTextView()
	c.casePreview.SetDynamicColors(true)
	c.casePreview.SetTitle(" Preview ")
	c.casePreview.SetBorder(true)
	c.casePreview.SetTitleAlign(tview.AlignLeft)
	c.casePreview.SetWordWrap(true)

	c.caseMetadata = tview.NewTextView()
	c.caseMetadata.SetDynamicColors(true)
	c.caseMetadata.SetTitle(" Metadata ")
	c.caseMetadata.SetBorder(true)
	c.caseMetadata.SetTitleAlign(tview.AlignLeft)

	right := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(c.casePreview, 0, 2, false).
		AddItem(c.caseMetadata, 0, 1, false)

	c.caseFlex = tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(c.caseList, 0, 1, true).
		AddItem(right, 0, 1, false)

	c.caseList.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if ev.Key() != tcell.KeyRune {
			return ev
		}
		switch ev.Rune() {
		case 'x':
			c.exportModal()
			return nil
		case 'm':
			if err := c.ctrl.MarkMoment(); err != nil {
				c.showToast("Capture failed: " + err.Error())
			}
			c.renderCaseFile()
			return nil
		case 'o':
			c.noteComposer()
			return nil
		}
		return ev
	})

	c.pages.AddPage(pageCaseFile, c.caseFlex, true, false)
}

// renderCaseFile redraws the case file from the live evidence store
func (c *Console) renderCaseFile() {
	alert, ok := c.ctrl.Selected()
	if !ok {
		return
	}

	c.caseList.Clear()
	c.caseList.SetTitle(fmt.Sprintf(" Case File %s ", alert.ID))

	headers := []string{"Time", "Kind", "Source", "Tag", "Label"}
	for col, h := range headers {
		c.caseList.SetCell(0, col, tview.NewTableCell(h).
			SetTextColor(c.theme.TableHeader).
			SetBackgroundColor(c.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetSelectable(false))
	}

	for row, item := range c.evidence.List() {
		cells := []string{item.Time, string(item.Kind), item.Source, item.Tag, item.Label}
		for col, text := range cells {
			cell := tview.NewTableCell(text).SetTextColor(c.theme.TableRow)
			if col == 1 {
				cell.SetTextColor(c.theme.Warning)
			}
			c.caseList.SetCell(row+1, col, cell)
		}
	}

	c.renderCasePreview(0)
	c.renderCaseMetadata(alert)
}

// renderCasePreview shows the selected evidence item's detail
func (c *Console) renderCasePreview(index int) {
	items := c.evidence.List()
	if index < 0 || index >= len(items) {
		c.casePreview.SetText(fmt.Sprintf("[%s]No evidence selected[-]", c.theme.TagMuted))
		return
	}
	item := items[index]

	var b strings.Builder
	fmt.Fprintf(&b, "[%s::b]%s[-:-:-]\n\n", c.theme.TagAccent, item.Label)
	fmt.Fprintf(&b, "[%s]Captured[-]  %s by %s\n", c.theme.TagMuted, item.Time, item.Source)
	fmt.Fprintf(&b, "[%s]Tag[-]       %s\n", c.theme.TagMuted, item.Tag)
	switch item.Kind {
	case incident.EvidenceVideo, incident.EvidenceClip:
		fmt.Fprintf(&b, "[%s]Duration[-]  %s\n\n", c.theme.TagMuted, item.Duration)
		fmt.Fprintf(&b, "[%s]▶ playback simulated[-]", c.theme.TagMuted)
	case incident.EvidenceSnapshot:
		fmt.Fprintf(&b, "[%s]Format[-]    %s\n", c.theme.TagMuted, item.Format)
	case incident.EvidenceNote:
		fmt.Fprintf(&b, "\n%s", item.Content)
	}
	c.casePreview.SetText(b.String())
}

// renderCaseMetadata shows incident metadata and chain of custody
func (c *Console) renderCaseMetadata(alert incident.Alert) {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]INCIDENT[-]   %s\n", c.theme.TagAccent, alert.ID)
	fmt.Fprintf(&b, "[%s]TYPE[-]       %s\n", c.theme.TagAccent, alert.Type)
	fmt.Fprintf(&b, "[%s]SITE[-]       %s • %s\n", c.theme.TagAccent, alert.Site, alert.Details.Zone)
	fmt.Fprintf(&b, "[%s]STATUS[-]     %s\n", c.theme.TagAccent, alert.Status)
	fmt.Fprintf(&b, "[%s]ITEMS[-]      %d\n\n", c.theme.TagAccent, c.evidence.Len())
	fmt.Fprintf(&b, "[%s]CHAIN OF CUSTODY[-]\n", c.theme.TagAccent)
	fmt.Fprintf(&b, "  [%s]✓[-] Hashes verified\n", c.theme.TagSuccess)
	fmt.Fprintf(&b, "  [%s]✓[-] GPS + flight path attached\n", c.theme.TagSuccess)
	fmt.Fprintf(&b, "\n[%s]x[-] export  [%s]m[-] mark  [%s]o[-] note  [%s]Esc[-] back",
		c.theme.TagAccent, c.theme.TagAccent, c.theme.TagAccent, c.theme.TagMuted)
	c.caseMetadata.SetText(b.String())
}

// exportModal picks an export scope, then records the package
func (c *Console) exportModal() {
	c.showModal("export", "Export evidence package", []string{"Quick (Incident)", "Custom (Full Day)", "Cancel"}, func(label string) {
		c.app.SetFocus(c.caseList)
		if label == "Cancel" || label == "" {
			return
		}
		pkg, err := c.ctrl.Export(label, "Operator export", incident.DefaultExportIncludes)
		if err != nil {
			c.showToast("Export failed: " + err.Error())
			return
		}
		if c.repo != nil {
			if err := c.repo.SaveExport(c.ctx, pkg); err != nil {
				c.logger.Printf("Failed to persist export %s: %v", pkg.ID, err)
			}
		}
		c.renderCaseFile()
	})
}
