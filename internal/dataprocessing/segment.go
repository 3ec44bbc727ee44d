package dataprocessing

import (
	"fmt"

	"agencypulse/pkg/contracts/domain"
)

// RetentionPolicy holds the thresholds of the retention segmentation.
// A ratio at or above High is High, at or above Medium is Medium, anything
// else (missing included) is Low.
type RetentionPolicy struct {
	High   float64 `json:"high" yaml:"high"`
	Medium float64 `json:"medium" yaml:"medium"`
}

// DefaultRetentionPolicy is 0.8 / 0.5.
var DefaultRetentionPolicy = RetentionPolicy{High: 0.8, Medium: 0.5}

// Validate requires High > Medium.
func (p RetentionPolicy) Validate() error {
	if !(p.High > p.Medium) {
		return fmt.Errorf("retention thresholds: high (%v) must be greater than medium (%v)", p.High, p.Medium)
	}
	return nil
}

// Categorize buckets a retention ratio. NaN compares false and lands in Low.
func (p RetentionPolicy) Categorize(ratio float64) domain.RetentionLevel {
	switch {
	case ratio >= p.High:
		return domain.RetentionHigh
	case ratio >= p.Medium:
		return domain.RetentionMedium
	default:
		return domain.RetentionLow
	}
}

// Categorize buckets a record with the default policy.
func Categorize(rec domain.AgencyRecord) domain.RetentionLevel {
	return DefaultRetentionPolicy.Categorize(rec.RetentionRatio)
}

// Segment is GroupMean keyed by retention level. All three levels are
// always present, ordered High, Medium, Low, even when a level is empty.
func Segment(ds *Dataset, policy RetentionPolicy, fields []domain.Field) AggregateView {
	view := GroupMean(ds, ByRetentionLevel(policy), fields)
	view.Key = "retention_level"

	byKey := make(map[string]AggregateRow, len(view.Rows))
	for _, row := range view.Rows {
		byKey[row.Key] = row
	}

	rows := make([]AggregateRow, 0, len(domain.RetentionLevels))
	for _, level := range domain.RetentionLevels {
		row, ok := byKey[string(level)]
		if !ok {
			row = AggregateRow{Key: string(level), Values: nanValues(len(fields))}
		}
		rows = append(rows, row)
	}
	view.Rows = rows
	return view
}
