package dataprocessing

import (
	"encoding/json"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"agencypulse/pkg/contracts/domain"
)

// Metrics are the headline KPIs of a (filtered) dataset.
//
// Ratio means skip missing values and are NaN when nothing contributes.
// Sums treat missing values as 0, so an empty dataset sums to 0.
type Metrics struct {
	Records int `json:"records"`

	AvgRetention float64 `json:"avg_retention"`
	AvgLossRatio float64 `json:"avg_loss_ratio"`
	AvgGrowth    float64 `json:"avg_growth"`

	TotalProducers       float64 `json:"total_producers"`
	TotalPolicies        float64 `json:"total_policies"`
	TotalPrevPolicies    float64 `json:"total_prev_policies"`
	TotalWrittenPremium  float64 `json:"total_written_premium"`
	TotalNewBusinessPrem float64 `json:"total_new_business_premium"`
}

// Summarize computes the KPI block.
func Summarize(ds *Dataset) Metrics {
	return Metrics{
		Records:              ds.Len(),
		AvgRetention:         mean(ds.Values(domain.FieldRetentionRatio)),
		AvgLossRatio:         mean(ds.Values(domain.FieldLossRatio)),
		AvgGrowth:            mean(ds.Values(domain.FieldGrowthRate3Yr)),
		TotalProducers:       sum(ds.Values(domain.FieldActiveProducers)),
		TotalPolicies:        sum(ds.Values(domain.FieldPolyInforceQty)),
		TotalPrevPolicies:    sum(ds.Values(domain.FieldPrevPolyInforceQty)),
		TotalWrittenPremium:  sum(ds.Values(domain.FieldWrtnPremAmt)),
		TotalNewBusinessPrem: sum(ds.Values(domain.FieldNBWrtnPremAmt)),
	}
}

// MarshalJSON writes undefined means as null.
func (m Metrics) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Records              int          `json:"records"`
		AvgRetention         domain.Float `json:"avg_retention"`
		AvgLossRatio         domain.Float `json:"avg_loss_ratio"`
		AvgGrowth            domain.Float `json:"avg_growth"`
		TotalProducers       float64      `json:"total_producers"`
		TotalPolicies        float64      `json:"total_policies"`
		TotalPrevPolicies    float64      `json:"total_prev_policies"`
		TotalWrittenPremium  float64      `json:"total_written_premium"`
		TotalNewBusinessPrem float64      `json:"total_new_business_premium"`
	}{
		m.Records,
		domain.Float(m.AvgRetention), domain.Float(m.AvgLossRatio), domain.Float(m.AvgGrowth),
		m.TotalProducers, m.TotalPolicies, m.TotalPrevPolicies,
		m.TotalWrittenPremium, m.TotalNewBusinessPrem,
	})
}

// Table flattens the metrics into label/value rows.
func (m Metrics) Table() domain.Table {
	row := func(label string, v float64) []domain.Cell {
		return []domain.Cell{domain.TextCell(label), domain.NumberCell(v)}
	}
	return domain.Table{
		Title:   "Key metrics",
		Headers: []string{"metric", "value"},
		Rows: [][]domain.Cell{
			row("Records", float64(m.Records)),
			row("Avg Retention", m.AvgRetention),
			row("Avg Loss Ratio", m.AvgLossRatio),
			row("Avg Growth (3yr)", m.AvgGrowth),
			row("Active Producers", m.TotalProducers),
			row("Policies In Force", m.TotalPolicies),
			row("Prev Policies In Force", m.TotalPrevPolicies),
			row("Written Premium", m.TotalWrittenPremium),
			row("New Business Premium", m.TotalNewBusinessPrem),
		},
	}
}

// present drops missing values.
func present(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// mean skips NaN; NaN when no value is present.
func mean(values []float64) float64 {
	vals := present(values)
	if len(vals) == 0 {
		return math.NaN()
	}
	return stat.Mean(vals, nil)
}

// sum treats NaN as 0.
func sum(values []float64) float64 {
	return floats.Sum(present(values))
}
