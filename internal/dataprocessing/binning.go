package dataprocessing

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"agencypulse/pkg/contracts/domain"
)

// ErrInvalidBins is returned for a bin count below 1 or an unusable range.
var ErrInvalidBins = errors.New("invalid bin specification")

// BinSpec configures equal-width binning. Without Range the bins span the
// [min, max] of the binned field in the dataset being binned.
type BinSpec struct {
	Bins  int
	Range *[2]float64
}

// Bin is one interval. Intervals are closed on the right; the first bin
// is closed on both sides.
type Bin struct {
	Lo    float64
	Hi    float64
	Label string
	Count int
	Mean  float64
}

// MarshalJSON writes undefined values as null.
func (b Bin) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Label string       `json:"label"`
		Lo    domain.Float `json:"lo"`
		Hi    domain.Float `json:"hi"`
		Count int          `json:"count"`
		Mean  domain.Float `json:"mean"`
	}{b.Label, domain.Float(b.Lo), domain.Float(b.Hi), b.Count, domain.Float(b.Mean)})
}

// BinnedView is the result of Histogram and BinnedMean. Missing counts
// records without a binned value; Outside counts values beyond an
// explicit range.
type BinnedView struct {
	Field   domain.Field `json:"field"`
	Value   domain.Field `json:"value,omitempty"`
	Bins    []Bin        `json:"bins"`
	Missing int          `json:"missing"`
	Outside int          `json:"outside"`
}

// Total is the number of records placed in a bin.
func (v BinnedView) Total() int {
	n := 0
	for _, b := range v.Bins {
		n += b.Count
	}
	return n
}

// Table flattens the view: bin label, count and, for BinnedMean, the mean.
func (v BinnedView) Table() domain.Table {
	headers := []string{string(v.Field), "count"}
	if v.Value != "" {
		headers = append(headers, "mean_"+string(v.Value))
	}
	rows := make([][]domain.Cell, 0, len(v.Bins))
	for _, b := range v.Bins {
		cells := []domain.Cell{domain.TextCell(b.Label), domain.NumberCell(float64(b.Count))}
		if v.Value != "" {
			cells = append(cells, domain.NumberCell(b.Mean))
		}
		rows = append(rows, cells)
	}
	return domain.Table{Headers: headers, Rows: rows}
}

// Histogram counts records of ds per equal-width bin of field.
func Histogram(ds *Dataset, field domain.Field, spec BinSpec) (BinnedView, error) {
	return binned(ds, field, spec, "")
}

// BinnedMean bins ds on numeric and averages value within each bin,
// skipping missing values. Empty bins are kept with a NaN mean.
func BinnedMean(ds *Dataset, numeric domain.Field, spec BinSpec, value domain.Field) (BinnedView, error) {
	if value == "" {
		return BinnedView{}, fmt.Errorf("%w: value field required", ErrInvalidBins)
	}
	return binned(ds, numeric, spec, value)
}

func binned(ds *Dataset, field domain.Field, spec BinSpec, value domain.Field) (BinnedView, error) {
	if spec.Bins < 1 {
		return BinnedView{}, fmt.Errorf("%w: bins must be at least 1, got %d", ErrInvalidBins, spec.Bins)
	}

	view := BinnedView{Field: field, Value: value, Bins: []Bin{}}
	xs := ds.Values(field)

	var lo, hi float64
	if spec.Range != nil {
		lo, hi = spec.Range[0], spec.Range[1]
		if !finite(lo) || !finite(hi) || lo > hi {
			return BinnedView{}, fmt.Errorf("%w: range [%v, %v]", ErrInvalidBins, lo, hi)
		}
	} else {
		vals := present(xs)
		if len(vals) == 0 {
			view.Missing = len(xs)
			return view, nil
		}
		lo, hi = vals[0], vals[0]
		for _, v := range vals[1:] {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	lo, hi = widen(lo, hi)

	edges := binEdges(lo, hi, spec.Bins)
	bounds := edgeStrings(edges)
	sums := make([]float64, spec.Bins)
	seen := make([]int, spec.Bins)
	view.Bins = make([]Bin, spec.Bins)
	for i := range view.Bins {
		view.Bins[i] = Bin{Lo: edges[i], Hi: edges[i+1], Label: binLabel(i, bounds[i], bounds[i+1])}
	}

	for i, x := range xs {
		if math.IsNaN(x) {
			view.Missing++
			continue
		}
		idx, ok := binIndex(edges, x)
		if !ok {
			view.Outside++
			continue
		}
		view.Bins[idx].Count++
		if value != "" {
			if v := ds.records[i].Measure(value); !math.IsNaN(v) {
				sums[idx] += v
				seen[idx]++
			}
		}
	}

	for i := range view.Bins {
		view.Bins[i].Mean = math.NaN()
		if seen[i] > 0 {
			view.Bins[i].Mean = sums[i] / float64(seen[i])
		}
	}
	return view, nil
}

// widen opens a degenerate range by 0.1% on each side (0.001 at zero).
func widen(lo, hi float64) (float64, float64) {
	if lo != hi {
		return lo, hi
	}
	if lo == 0 {
		return -0.001, 0.001
	}
	d := math.Abs(lo) * 0.001
	return lo - d, hi + d
}

func binEdges(lo, hi float64, bins int) []float64 {
	width := (hi - lo) / float64(bins)
	edges := make([]float64, bins+1)
	for i := range edges {
		edges[i] = lo + float64(i)*width
	}
	edges[bins] = hi
	return edges
}

// binIndex places x in (edges[i], edges[i+1]], or bin 0 when x is the
// lower bound.
func binIndex(edges []float64, x float64) (int, bool) {
	n := len(edges) - 1
	lo, hi := edges[0], edges[n]
	if x < lo || x > hi {
		return 0, false
	}
	if x == lo {
		return 0, true
	}

	width := (hi - lo) / float64(n)
	idx := int(math.Ceil((x-lo)/width)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	// Correct for rounding in the division against the stored edges.
	for idx > 0 && x <= edges[idx] {
		idx--
	}
	for idx < n-1 && x > edges[idx+1] {
		idx++
	}
	return idx, true
}

func binLabel(i int, lo, hi string) string {
	open := "("
	if i == 0 {
		open = "["
	}
	return fmt.Sprintf("%s%s, %s]", open, lo, hi)
}

const (
	minLabelPrecision = 3
	maxLabelPrecision = 17
)

// edgeStrings formats the bin edges with the fewest decimals, starting at
// three, that keep every edge distinct.
func edgeStrings(edges []float64) []string {
	out := make([]string, len(edges))
	for prec := minLabelPrecision; prec <= maxLabelPrecision; prec++ {
		seen := make(map[string]bool, len(edges))
		distinct := true
		for i, e := range edges {
			out[i] = formatEdge(e, prec)
			if seen[out[i]] {
				distinct = false
			}
			seen[out[i]] = true
		}
		if distinct {
			break
		}
	}
	return out
}

func formatEdge(v float64, prec int) string {
	s := strconv.FormatFloat(v, 'f', prec, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	if s == "-0" {
		return "0"
	}
	return s
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
