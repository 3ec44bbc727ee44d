package dataprocessing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agencypulse/pkg/contracts/domain"
)

func TestRetentionPolicy_Categorize(t *testing.T) {
	tests := []struct {
		ratio float64
		want  domain.RetentionLevel
	}{
		{1.2, domain.RetentionHigh},
		{0.9, domain.RetentionHigh},
		{0.8, domain.RetentionHigh},
		{0.7999, domain.RetentionMedium},
		{0.6, domain.RetentionMedium},
		{0.5, domain.RetentionMedium},
		{0.4999, domain.RetentionLow},
		{0, domain.RetentionLow},
		{-0.3, domain.RetentionLow},
		{math.Inf(1), domain.RetentionHigh},
		{math.Inf(-1), domain.RetentionLow},
		{math.NaN(), domain.RetentionLow},
	}

	for _, tt := range tests {
		got := DefaultRetentionPolicy.Categorize(tt.ratio)
		assert.Equal(t, tt.want, got, "ratio %v", tt.ratio)
		assert.Equal(t, got, DefaultRetentionPolicy.Categorize(tt.ratio), "deterministic")
	}
}

func TestRetentionPolicy_CustomThresholds(t *testing.T) {
	policy := RetentionPolicy{High: 0.9, Medium: 0.7}

	assert.Equal(t, domain.RetentionMedium, policy.Categorize(0.85))
	assert.Equal(t, domain.RetentionLow, policy.Categorize(0.6))
	assert.NoError(t, policy.Validate())
	assert.Error(t, RetentionPolicy{High: 0.5, Medium: 0.5}.Validate())
	assert.Error(t, RetentionPolicy{High: 0.4, Medium: 0.5}.Validate())
}

func TestCategorize_Scenario(t *testing.T) {
	records := []domain.AgencyRecord{
		{AgencyID: "1", RetentionRatio: 0.9, ActiveProducers: 5},
		{AgencyID: "2", RetentionRatio: 0.6, ActiveProducers: 5},
		{AgencyID: "3", RetentionRatio: 0.3, ActiveProducers: 5},
	}

	levels := make([]domain.RetentionLevel, 0, len(records))
	for _, rec := range records {
		levels = append(levels, Categorize(rec))
	}
	assert.Equal(t, []domain.RetentionLevel{domain.RetentionHigh, domain.RetentionMedium, domain.RetentionLow}, levels)

	view := GroupMean(NewDataset("t", records), ByRetentionLevel(DefaultRetentionPolicy),
		[]domain.Field{domain.FieldActiveProducers})
	for _, level := range domain.RetentionLevels {
		assert.Equal(t, 5.0, view.Value(string(level), domain.FieldActiveProducers), string(level))
	}
}

func TestSegment(t *testing.T) {
	view := Segment(sampleDataset(), DefaultRetentionPolicy,
		[]domain.Field{domain.FieldLossRatio, domain.FieldGrowthRate3Yr, domain.FieldActiveProducers})

	require.Len(t, view.Rows, 3)
	assert.Equal(t, "High", view.Rows[0].Key)
	assert.Equal(t, "Medium", view.Rows[1].Key)
	assert.Equal(t, "Low", view.Rows[2].Key)

	assert.InDelta(t, 0.40, view.Rows[0].Values[0], 1e-9)
	assert.InDelta(t, 0.75, view.Rows[1].Values[0], 1e-9)
	// Record 3 (0.35) plus record 4 whose retention is missing.
	assert.Equal(t, 2, view.Rows[2].Count)
	assert.InDelta(t, (1.20+0.55)/2, view.Rows[2].Values[0], 1e-9)
}

func TestSegment_EmptyLevelsStayPresent(t *testing.T) {
	view := Segment(NewDataset("t", nil), DefaultRetentionPolicy, []domain.Field{domain.FieldLossRatio})

	require.Len(t, view.Rows, 3)
	for _, row := range view.Rows {
		assert.Zero(t, row.Count)
		assert.True(t, math.IsNaN(row.Values[0]))
	}
}
