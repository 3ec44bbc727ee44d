package dashboard

import (
	"fmt"
	"math"

	"agencypulse/internal/dataprocessing"
	"agencypulse/pkg/contracts/domain"
)

// Result is the data behind one panel. Every result flattens to a table
// for CSV, XLSX and terminal output.
type Result interface {
	Table() domain.Table
}

// ScatterResult is the data of a scatter panel.
type ScatterResult struct {
	X      domain.Field           `json:"x"`
	Y      domain.Field           `json:"y"`
	Size   domain.Field           `json:"size,omitempty"`
	Color  domain.Field           `json:"color,omitempty"`
	Points []dataprocessing.Point `json:"points"`
}

// Table implements Result.
func (s ScatterResult) Table() domain.Table {
	return dataprocessing.ScatterTable(s.Points, s.X, s.Y, s.Size, s.Color)
}

// Source supplies the datasets a panel is computed from.
type Source struct {
	// View is the filtered dataset.
	View *dataprocessing.Dataset
	// Full is the unfiltered dataset, used for RangeFull bin edges.
	Full *dataprocessing.Dataset
	// Policy sets the retention level thresholds.
	Policy dataprocessing.RetentionPolicy
}

// Compute runs the pipeline operation of spec over src.
func Compute(spec PanelSpec, src Source) (Result, error) {
	view := src.View

	switch spec.Kind {
	case KindKPI:
		return dataprocessing.Summarize(view), nil

	case KindHistogram:
		return dataprocessing.Histogram(view, spec.Field, binSpec(spec, src))

	case KindTrend:
		return dataprocessing.GroupMean(view, dataprocessing.ByDimension(spec.GroupBy), spec.Fields), nil

	case KindGroupSum:
		return dataprocessing.GroupSum(view, dataprocessing.ByDimension(spec.GroupBy), spec.Field), nil

	case KindBinnedMean:
		return dataprocessing.BinnedMean(view, spec.Field, binSpec(spec, src), spec.Value)

	case KindScatter:
		return ScatterResult{
			X:      spec.X,
			Y:      spec.Y,
			Size:   spec.Size,
			Color:  spec.Color,
			Points: dataprocessing.Scatter(view, spec.X, spec.Y, spec.Size, spec.Color),
		}, nil

	case KindCorrelation:
		fields := spec.Fields
		if len(fields) == 0 {
			fields = dataprocessing.DefaultCorrelationFields
		}
		return dataprocessing.Correlate(view, fields), nil

	case KindSegments:
		return dataprocessing.Segment(view, src.Policy, spec.Fields), nil

	default:
		return nil, fmt.Errorf("panel %q: unknown kind %q", spec.ID, spec.Kind)
	}
}

// binSpec pins the bin range to the full dataset for RangeFull panels.
// An empty full dataset leaves the range open.
func binSpec(spec PanelSpec, src Source) dataprocessing.BinSpec {
	bs := dataprocessing.BinSpec{Bins: spec.Bins}
	if spec.Range != RangeFull || src.Full == nil {
		return bs
	}
	if lo, hi, ok := bounds(src.Full.Values(spec.Field)); ok {
		bs.Range = &[2]float64{lo, hi}
	}
	return bs
}

func bounds(values []float64) (lo, hi float64, ok bool) {
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if !ok {
			lo, hi, ok = v, v, true
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi, ok
}
