package domain

import (
	"encoding/json"
	"math"
	"strconv"
)

// AgencyRecord is one row of the agency performance dataset: a single
// agency / appointment year / product line combination.
//
// Numeric measures use NaN as the missing-value marker. Sums treat NaN as 0,
// means and correlations skip it. AgencyAppointmentYear uses 0 for missing.
//
// Usage:
//
//	rec := AgencyRecord{
//	    AgencyID:              "3",
//	    AgencyAppointmentYear: 1998,
//	    ProdLine:              "CL",
//	    RetentionRatio:        0.82,
//	    LossRatio:             math.NaN(), // not reported
//	}
type AgencyRecord struct {
	AgencyID              string `json:"agency_id"`
	AgencyAppointmentYear int    `json:"agency_appointment_year"`
	ProdLine              string `json:"prod_line"`
	ProdAbbr              string `json:"prod_abbr"`

	RetentionRatio     float64 `json:"retention_ratio"`
	LossRatio          float64 `json:"loss_ratio"`
	GrowthRate3Yr      float64 `json:"growth_rate_3yr"`
	ActiveProducers    float64 `json:"active_producers"`
	PolyInforceQty     float64 `json:"poly_inforce_qty"`
	PrevPolyInforceQty float64 `json:"prev_poly_inforce_qty"`
	WrtnPremAmt        float64 `json:"wrtn_prem_amt"`
	NBWrtnPremAmt      float64 `json:"nb_wrtn_prem_amt"`
}

// Field names a numeric measure column of the dataset.
type Field string

// Measure columns, named as in the dataset header (case-insensitive there).
const (
	FieldRetentionRatio     Field = "retention_ratio"
	FieldLossRatio          Field = "loss_ratio"
	FieldGrowthRate3Yr      Field = "growth_rate_3yr"
	FieldActiveProducers    Field = "active_producers"
	FieldPolyInforceQty     Field = "poly_inforce_qty"
	FieldPrevPolyInforceQty Field = "prev_poly_inforce_qty"
	FieldWrtnPremAmt        Field = "wrtn_prem_amt"
	FieldNBWrtnPremAmt      Field = "nb_wrtn_prem_amt"
)

// Dimension names a categorical column of the dataset.
type Dimension string

// Categorical columns.
const (
	DimensionAgencyID              Dimension = "agency_id"
	DimensionAgencyAppointmentYear Dimension = "agency_appointment_year"
	DimensionProdLine              Dimension = "prod_line"
	DimensionProdAbbr              Dimension = "prod_abbr"
)

// MeasureFields lists every numeric measure in header order.
var MeasureFields = []Field{
	FieldRetentionRatio,
	FieldLossRatio,
	FieldGrowthRate3Yr,
	FieldActiveProducers,
	FieldPolyInforceQty,
	FieldPrevPolyInforceQty,
	FieldWrtnPremAmt,
	FieldNBWrtnPremAmt,
}

// Dimensions lists every categorical column in header order.
var Dimensions = []Dimension{
	DimensionAgencyID,
	DimensionAgencyAppointmentYear,
	DimensionProdLine,
	DimensionProdAbbr,
}

// Valid reports whether f is a known measure.
func (f Field) Valid() bool {
	for _, known := range MeasureFields {
		if f == known {
			return true
		}
	}
	return false
}

// Valid reports whether d is a known dimension.
func (d Dimension) Valid() bool {
	for _, known := range Dimensions {
		if d == known {
			return true
		}
	}
	return false
}

// Measure returns the value of a numeric field, NaN when the field is
// missing or unknown.
func (r AgencyRecord) Measure(f Field) float64 {
	switch f {
	case FieldRetentionRatio:
		return r.RetentionRatio
	case FieldLossRatio:
		return r.LossRatio
	case FieldGrowthRate3Yr:
		return r.GrowthRate3Yr
	case FieldActiveProducers:
		return r.ActiveProducers
	case FieldPolyInforceQty:
		return r.PolyInforceQty
	case FieldPrevPolyInforceQty:
		return r.PrevPolyInforceQty
	case FieldWrtnPremAmt:
		return r.WrtnPremAmt
	case FieldNBWrtnPremAmt:
		return r.NBWrtnPremAmt
	default:
		return math.NaN()
	}
}

// Dimension returns the string form of a categorical field. A missing
// appointment year and unknown dimensions yield "".
func (r AgencyRecord) Dimension(d Dimension) string {
	switch d {
	case DimensionAgencyID:
		return r.AgencyID
	case DimensionAgencyAppointmentYear:
		if r.AgencyAppointmentYear == 0 {
			return ""
		}
		return strconv.Itoa(r.AgencyAppointmentYear)
	case DimensionProdLine:
		return r.ProdLine
	case DimensionProdAbbr:
		return r.ProdAbbr
	default:
		return ""
	}
}

// RetentionLevel is the three-tier bucket derived from the retention ratio.
type RetentionLevel string

const (
	RetentionHigh   RetentionLevel = "High"
	RetentionMedium RetentionLevel = "Medium"
	RetentionLow    RetentionLevel = "Low"
)

// RetentionLevels lists the tiers from best to worst.
var RetentionLevels = []RetentionLevel{RetentionHigh, RetentionMedium, RetentionLow}

// Float is a float64 whose JSON form is null when the value is undefined
// (NaN or infinite).
type Float float64

// Defined reports whether f holds a finite value.
func (f Float) Defined() bool {
	v := float64(f)
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// MarshalJSON encodes undefined values as null.
func (f Float) MarshalJSON() ([]byte, error) {
	if !f.Defined() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(f))
}

// UnmarshalJSON decodes null as NaN.
func (f *Float) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = Float(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// String formats the value in its shortest form, "n/a" when undefined.
func (f Float) String() string {
	if !f.Defined() {
		return "n/a"
	}
	return strconv.FormatFloat(float64(f), 'f', -1, 64)
}
