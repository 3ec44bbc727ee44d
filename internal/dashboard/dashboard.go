package dashboard

import (
	"time"

	"agencypulse/internal/dataprocessing"
	"agencypulse/pkg/contracts/domain"
)

// Dashboard is a layout computed over one filtered view.
type Dashboard struct {
	Layout     string                    `json:"layout"`
	Title      string                    `json:"title"`
	Filters    dataprocessing.FilterSpec `json:"filters"`
	Records    int                       `json:"records"`
	Tabs       []TabResult               `json:"tabs"`
	ComputedAt time.Time                 `json:"computed_at"`
}

// TabResult is one computed tab.
type TabResult struct {
	Title  string        `json:"title"`
	Panels []PanelResult `json:"panels"`
}

// PanelResult is one computed panel.
type PanelResult struct {
	ID    string `json:"id"`
	Kind  Kind   `json:"kind"`
	Title string `json:"title"`
	Chart string `json:"chart,omitempty"`
	Data  Result `json:"data"`
}

// Table returns the panel data titled with the panel title.
func (p PanelResult) Table() domain.Table {
	t := p.Data.Table()
	t.Title = p.Title
	return t
}

// Panel finds a computed panel by ID.
func (d Dashboard) Panel(id string) (PanelResult, bool) {
	for _, tab := range d.Tabs {
		for _, p := range tab.Panels {
			if p.ID == id {
				return p, true
			}
		}
	}
	return PanelResult{}, false
}

// Panels returns every computed panel in layout order.
func (d Dashboard) Panels() []PanelResult {
	var out []PanelResult
	for _, tab := range d.Tabs {
		out = append(out, tab.Panels...)
	}
	return out
}
