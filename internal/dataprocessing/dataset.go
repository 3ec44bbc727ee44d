package dataprocessing

import (
	"agencypulse/pkg/contracts/domain"
)

// Dataset is an ordered, immutable sequence of agency records.
// Records are handed out by value so no caller can mutate the source;
// every derived view (Filter) is a new Dataset.
type Dataset struct {
	source  string
	records []domain.AgencyRecord
}

// NewDataset builds a dataset from records. The slice is copied.
func NewDataset(source string, records []domain.AgencyRecord) *Dataset {
	cp := make([]domain.AgencyRecord, len(records))
	copy(cp, records)
	return &Dataset{source: source, records: cp}
}

// Source describes where the dataset was loaded from.
func (d *Dataset) Source() string {
	if d == nil {
		return ""
	}
	return d.source
}

// Len returns the number of records. A nil dataset is empty.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.records)
}

// At returns the i-th record.
func (d *Dataset) At(i int) domain.AgencyRecord {
	return d.records[i]
}

// Records returns a copy of all records in load order.
func (d *Dataset) Records() []domain.AgencyRecord {
	if d == nil {
		return nil
	}
	cp := make([]domain.AgencyRecord, len(d.records))
	copy(cp, d.records)
	return cp
}

// Values extracts one measure for every record, NaN where missing.
func (d *Dataset) Values(f domain.Field) []float64 {
	out := make([]float64, d.Len())
	for i := range out {
		out[i] = d.records[i].Measure(f)
	}
	return out
}
