package domain

// Table is the presentation-neutral shape every aggregate can be flattened
// to. Exporters and CLI renderers consume it; a nil cell is a missing value.
type Table struct {
	Title   string   `json:"title"`
	Headers []string `json:"headers"`
	Rows    [][]Cell `json:"rows"`
}

// Cell holds either text or a number. Number takes precedence when set.
type Cell struct {
	Text   string `json:"text,omitempty"`
	Number *Float `json:"number,omitempty"`
}

// TextCell builds a text cell.
func TextCell(s string) Cell { return Cell{Text: s} }

// NumberCell builds a numeric cell. Undefined values render as empty.
func NumberCell(v float64) Cell {
	f := Float(v)
	return Cell{Number: &f}
}

// IsNumber reports whether the cell carries a number.
func (c Cell) IsNumber() bool { return c.Number != nil }

// String renders the cell for text outputs; missing numbers are "".
func (c Cell) String() string {
	if c.Number == nil {
		return c.Text
	}
	if !c.Number.Defined() {
		return ""
	}
	return c.Number.String()
}
