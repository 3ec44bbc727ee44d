package main

import (
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"agencypulse/pkg/contracts/domain"
)

var heading = color.New(color.FgCyan, color.Bold)

func renderHeading(w io.Writer, text string) {
	heading.Fprintln(w, "\n"+text)
}

// titled sets the title of a table that has none.
func titled(t domain.Table, title string) domain.Table {
	if t.Title == "" {
		t.Title = title
	}
	return t
}

// renderTable prints t under its title. Numbers are right aligned and
// missing values show as "n/a".
func renderTable(w io.Writer, t domain.Table) {
	if t.Title != "" {
		color.New(color.FgYellow).Fprintln(w, "\n"+t.Title)
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(t.Headers)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)

	for _, row := range t.Rows {
		table.Append(rowStrings(row))
	}
	if len(t.Rows) > 0 {
		aligns := make([]int, len(t.Rows[0]))
		for i, c := range t.Rows[0] {
			aligns[i] = tablewriter.ALIGN_LEFT
			if c.IsNumber() {
				aligns[i] = tablewriter.ALIGN_RIGHT
			}
		}
		table.SetColumnAlignment(aligns)
	}
	table.Render()
}

func rowStrings(row []domain.Cell) []string {
	out := make([]string, len(row))
	for i, c := range row {
		if c.IsNumber() && !c.Number.Defined() {
			out[i] = "n/a"
			continue
		}
		out[i] = c.String()
	}
	return out
}
