package dataprocessing

import (
	"encoding/json"
	"math"

	"gonum.org/v1/gonum/stat"

	"agencypulse/pkg/contracts/domain"
)

// DefaultCorrelationFields is every numeric measure.
var DefaultCorrelationFields = domain.MeasureFields

// Matrix is a symmetric Pearson correlation matrix. Rows is the number of
// complete-case records the coefficients were computed from.
type Matrix struct {
	Fields []domain.Field
	Values [][]float64
	Rows   int
}

// MarshalJSON writes undefined coefficients as null.
func (m Matrix) MarshalJSON() ([]byte, error) {
	values := make([][]domain.Float, len(m.Values))
	for i, row := range m.Values {
		values[i] = make([]domain.Float, len(row))
		for j, v := range row {
			values[i][j] = domain.Float(v)
		}
	}
	return json.Marshal(struct {
		Fields []domain.Field   `json:"fields"`
		Values [][]domain.Float `json:"values"`
		Rows   int              `json:"rows"`
	}{m.Fields, values, m.Rows})
}

// At returns the coefficient between a and b, NaN when either is absent.
func (m Matrix) At(a, b domain.Field) float64 {
	i, j := m.index(a), m.index(b)
	if i < 0 || j < 0 {
		return math.NaN()
	}
	return m.Values[i][j]
}

func (m Matrix) index(f domain.Field) int {
	for i, known := range m.Fields {
		if known == f {
			return i
		}
	}
	return -1
}

// Table flattens the matrix with the field names as the first column.
func (m Matrix) Table() domain.Table {
	headers := make([]string, 0, len(m.Fields)+1)
	headers = append(headers, "field")
	for _, f := range m.Fields {
		headers = append(headers, string(f))
	}
	rows := make([][]domain.Cell, 0, len(m.Fields))
	for i, f := range m.Fields {
		cells := []domain.Cell{domain.TextCell(string(f))}
		for _, v := range m.Values[i] {
			cells = append(cells, domain.NumberCell(v))
		}
		rows = append(rows, cells)
	}
	return domain.Table{Headers: headers, Rows: rows}
}

// Correlate computes pairwise Pearson coefficients over the records that
// have every requested field. Fewer than two such records, or a field
// with zero variance, yields NaN for the affected entries.
func Correlate(ds *Dataset, fields []domain.Field) Matrix {
	n := len(fields)
	cols := make([][]float64, n)
	for i := 0; i < ds.Len(); i++ {
		rec := ds.records[i]
		row := make([]float64, n)
		complete := true
		for j, f := range fields {
			row[j] = rec.Measure(f)
			if math.IsNaN(row[j]) {
				complete = false
				break
			}
		}
		if !complete {
			continue
		}
		for j := range fields {
			cols[j] = append(cols[j], row[j])
		}
	}

	m := Matrix{
		Fields: append([]domain.Field(nil), fields...),
		Values: make([][]float64, n),
	}
	if n > 0 {
		m.Rows = len(cols[0])
	}
	for i := range m.Values {
		m.Values[i] = nanValues(n)
	}
	if m.Rows < 2 {
		return m
	}

	varies := make([]bool, n)
	for i := range fields {
		varies[i] = stat.Variance(cols[i], nil) > 0
	}
	for i := 0; i < n; i++ {
		if !varies[i] {
			continue
		}
		m.Values[i][i] = 1
		for j := i + 1; j < n; j++ {
			if !varies[j] {
				continue
			}
			r := math.Max(-1, math.Min(1, stat.Correlation(cols[i], cols[j], nil)))
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}
	return m
}

// Point is one record projected for a scatter panel.
type Point struct {
	AgencyID string  `json:"agency_id"`
	ProdLine string  `json:"prod_line"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Size     float64 `json:"size,omitempty"`
	Color    float64 `json:"color,omitempty"`
}

// Scatter projects records onto x/y with optional size and color
// measures. Records missing any named measure are skipped.
func Scatter(ds *Dataset, x, y, size, color domain.Field) []Point {
	points := make([]Point, 0, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		rec := ds.records[i]
		p := Point{
			AgencyID: rec.AgencyID,
			ProdLine: rec.ProdLine,
			X:        rec.Measure(x),
			Y:        rec.Measure(y),
		}
		if math.IsNaN(p.X) || math.IsNaN(p.Y) {
			continue
		}
		if size != "" {
			if p.Size = rec.Measure(size); math.IsNaN(p.Size) {
				continue
			}
		}
		if color != "" {
			if p.Color = rec.Measure(color); math.IsNaN(p.Color) {
				continue
			}
		}
		points = append(points, p)
	}
	return points
}

// ScatterTable flattens scatter points.
func ScatterTable(points []Point, x, y, size, color domain.Field) domain.Table {
	headers := []string{"agency_id", "prod_line", string(x), string(y)}
	if size != "" {
		headers = append(headers, string(size))
	}
	if color != "" {
		headers = append(headers, string(color))
	}
	rows := make([][]domain.Cell, 0, len(points))
	for _, p := range points {
		cells := []domain.Cell{
			domain.TextCell(p.AgencyID),
			domain.TextCell(p.ProdLine),
			domain.NumberCell(p.X),
			domain.NumberCell(p.Y),
		}
		if size != "" {
			cells = append(cells, domain.NumberCell(p.Size))
		}
		if color != "" {
			cells = append(cells, domain.NumberCell(p.Color))
		}
		rows = append(rows, cells)
	}
	return domain.Table{Headers: headers, Rows: rows}
}
