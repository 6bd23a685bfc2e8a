package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/arvosec/skywatch/internal/incident"
	"github.com/arvosec/skywatch/internal/store"
)

var (
	repoTabOrder       = []string{"All", "Active", "Needs Review"}
	repoStatusFacets   = []string{"Active", "Closed", "Escalated", "Exported"}
	repoSiteFacets     = []string{"Site A", "Site B", "Site C", "Site D"}
	repoIntegrityFacets = []string{"Verified", "Partial", "Flagged"}
)

// setupRepository builds the evidence repository page: search, tab
// bar, facet filters and the case table with multi-select
func (c *Console) setupRepository() {
	c.repoSearch = tview.NewInputField()
	c.repoSearch.SetLabel(" Search: ")
	c.repoSearch.SetChangedFunc(func(text string) {
		c.repoQuery = text
		c.renderRepository()
	})
	c.repoSearch.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter || key == tcell.KeyTab {
			c.app.SetFocus(c.repoTable)
		}
	})

	c.repoTabs = tview.NewTextView()
	c.repoTabs.SetDynamicColors(true)

	c.repoTable = tview.NewTable()
	c.repoTable.SetTitle(" Evidence Repository ")
	c.repoTable.SetBorder(true)
	c.repoTable.SetTitleAlign(tview.AlignLeft)
	c.repoTable.SetSelectable(true, false)
	c.repoTable.SetFixed(1, 0)
	c.repoTable.SetSelectedFunc(func(row, col int) {
		c.openRepoCaseAt(row - 1)
	})
	c.repoTable.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		switch ev.Key() {
		case tcell.KeyTab:
			c.cycleRepoTab()
			return nil
		case tcell.KeyRune:
			switch ev.Rune() {
			case '/':
				c.app.SetFocus(c.repoSearch)
				return nil
			case ' ':
				c.toggleRepoSelection()
				return nil
			case 'x':
				c.bulkExport()
				return nil
			case 'S':
				c.cycleFacet(c.repoStatuses, repoStatusFacets)
				return nil
			case 'I':
				c.cycleFacet(c.repoIntegrity, repoIntegrityFacets)
				return nil
			case 'L':
				c.cycleFacet(c.repoSites, repoSiteFacets)
				return nil
			}
		}
		return ev
	})

	c.repoFlex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(c.repoSearch, 1, 0, false).
		AddItem(c.repoTabs, 1, 0, false).
		AddItem(c.repoTable, 0, 1, true)

	c.pages.AddPage(pageRepository, c.repoFlex, true, false)
}

// openRepository shows the repository browser
func (c *Console) openRepository() {
	c.pages.SwitchToPage(pageRepository)
	c.renderRepository()
	c.app.SetFocus(c.repoTable)
}

func (c *Console) cycleRepoTab() {
	for i, t := range repoTabOrder {
		if t == c.repoTab {
			c.repoTab = repoTabOrder[(i+1)%len(repoTabOrder)]
			c.renderRepository()
			return
		}
	}
	c.repoTab = "All"
	c.renderRepository()
}

// cycleFacet rotates a facet filter through none → each value → none
func (c *Console) cycleFacet(active map[string]bool, values []string) {
	current := -1
	for i, v := range values {
		if active[v] {
			current = i
		}
		delete(active, v)
	}
	if next := current + 1; next < len(values) {
		active[values[next]] = true
	}
	c.renderRepository()
}

func enabledFacets(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		if v {
			out = append(out, k)
		}
	}
	return out
}

// renderRepository queries the case library and redraws the table
func (c *Console) renderRepository() {
	if c.repo == nil {
		return
	}

	filter := store.CaseFilter{
		Tab:       c.repoTab,
		Query:     c.repoQuery,
		Status:    enabledFacets(c.repoStatuses),
		Site:      enabledFacets(c.repoSites),
		Integrity: enabledFacets(c.repoIntegrity),
	}
	cases, err := c.repo.FilterCases(c.ctx, filter)
	if err != nil {
		c.logger.Printf("Repository query failed: %v", err)
		return
	}
	c.repoCases = cases

	c.renderRepoTabs()
	c.repoTable.Clear()

	headers := []string{"", "Case", "Type", "Site", "Status", "Conf", "Evidence", "Integrity", "Last Activity"}
	for col, h := range headers {
		c.repoTable.SetCell(0, col, tview.NewTableCell(h).
			SetTextColor(c.theme.TableHeader).
			SetBackgroundColor(c.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetSelectable(false))
	}

	for row, rc := range cases {
		mark := " "
		if c.repoSelected[rc.ID] {
			mark = "✓"
		}
		last := humanize.Time(time.UnixMilli(rc.Timestamp))
		cells := []string{mark, rc.ID, rc.Type, rc.Site, string(rc.Status), rc.Confidence,
			fmt.Sprintf("%d", rc.EvidenceCount), string(rc.Integrity), last}
		for col, text := range cells {
			cell := tview.NewTableCell(text).SetTextColor(c.theme.TableRow)
			switch col {
			case 0:
				cell.SetTextColor(c.theme.Accent)
			case 4:
				cell.SetTextColor(c.caseStatusColor(rc.Status))
			case 7:
				if rc.NeedsReview() {
					cell.SetTextColor(c.theme.Warning)
				}
			}
			c.repoTable.SetCell(row+1, col, cell)
		}
	}

	if len(cases) == 0 {
		c.repoTable.SetCell(1, 1, tview.NewTableCell("No matching cases").
			SetTextColor(c.theme.TableRowMuted))
	}
}

func (c *Console) renderRepoTabs() {
	parts := make([]string, 0, len(repoTabOrder))
	for _, t := range repoTabOrder {
		if t == c.repoTab {
			parts = append(parts, fmt.Sprintf("[%s::b]%s[-:-:-]", c.theme.TagAccent, t))
		} else {
			parts = append(parts, fmt.Sprintf("[%s]%s[-]", c.theme.TagMuted, t))
		}
	}
	facets := make([]string, 0, 3)
	if f := enabledFacets(c.repoStatuses); len(f) > 0 {
		facets = append(facets, "status="+strings.Join(f, ","))
	}
	if f := enabledFacets(c.repoSites); len(f) > 0 {
		facets = append(facets, "site="+strings.Join(f, ","))
	}
	if f := enabledFacets(c.repoIntegrity); len(f) > 0 {
		facets = append(facets, "integrity="+strings.Join(f, ","))
	}
	line := " " + strings.Join(parts, "  ") + fmt.Sprintf("   [%s]Tab[-]:tabs [%s]S/L/I[-]:facets [%s]Space[-]:select [%s]x[-]:export", c.theme.TagAccent, c.theme.TagAccent, c.theme.TagAccent, c.theme.TagAccent)
	if len(facets) > 0 {
		line += fmt.Sprintf("   [%s]%s[-]", c.theme.TagWarning, strings.Join(facets, " "))
	}
	c.repoTabs.SetText(line)
}

func (c *Console) caseStatusColor(s incident.CaseStatus) tcell.Color {
	switch s {
	case incident.CaseActive:
		return c.theme.Error
	case incident.CaseEscalated:
		return c.theme.Warning
	case incident.CaseExported:
		return c.theme.Accent
	default:
		return c.theme.TextMuted
	}
}

// toggleRepoSelection flips the multi-select mark on the hovered row
func (c *Console) toggleRepoSelection() {
	row, _ := c.repoTable.GetSelection()
	idx := row - 1
	if idx < 0 || idx >= len(c.repoCases) {
		return
	}
	id := c.repoCases[idx].ID
	if c.repoSelected[id] {
		delete(c.repoSelected, id)
	} else {
		c.repoSelected[id] = true
	}
	c.renderRepository()
}

// openRepoCaseAt deep-links the hovered case into the case file view
func (c *Console) openRepoCaseAt(idx int) {
	if idx < 0 || idx >= len(c.repoCases) {
		return
	}
	id := c.repoCases[idx].ID
	if err := c.ctrl.OpenRepositoryCase(id); err != nil {
		c.showToast("Open failed: " + err.Error())
		return
	}
	c.pages.SwitchToPage(pageCaseFile)
	c.renderCaseFile()
}

// bulkExport exports every multi-selected case and marks it Exported
func (c *Console) bulkExport() {
	if len(c.repoSelected) == 0 {
		c.showToast("No cases selected. Use Space to select.")
		return
	}
	ids := enabledFacets(c.repoSelected)
	c.showModal("bulk-export", fmt.Sprintf("Export %d selected case(s)?", len(ids)), []string{"Export", "Cancel"}, func(label string) {
		c.app.SetFocus(c.repoTable)
		if label != "Export" {
			return
		}
		for i, id := range ids {
			// Offset keeps IDs unique within one millisecond
			pkg := incident.ExportPackage{
				ID:         fmt.Sprintf("PKG-%06d", (time.Now().UnixMilli()+int64(i))%1000000),
				IncidentID: id,
				Scope:      "Bulk (Repository)",
				Reason:     "Operator export",
				Includes:   append([]string{}, incident.DefaultExportIncludes...),
				CreatedAt:  time.Now(),
			}
			if err := c.repo.SaveExport(c.ctx, pkg); err != nil {
				c.logger.Printf("Bulk export failed for %s: %v", id, err)
				continue
			}
			if err := c.repo.SetCaseStatus(c.ctx, id, incident.CaseExported); err != nil {
				c.logger.Printf("Status update failed for %s: %v", id, err)
			}
			delete(c.repoSelected, id)
		}
		c.showToast(fmt.Sprintf("Exported %d case(s)", len(ids)))
		c.renderRepository()
	})
}
