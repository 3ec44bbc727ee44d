package dataprocessing

import (
	"encoding/json"
	"math"
	"sort"

	"agencypulse/pkg/contracts/domain"
)

// KeyFunc derives the group key of a record. Records whose key is ""
// (a missing year or product line) are not grouped.
type KeyFunc struct {
	Name string
	Of   func(domain.AgencyRecord) string
}

// ByDimension groups by a categorical column.
func ByDimension(dim domain.Dimension) KeyFunc {
	return KeyFunc{
		Name: string(dim),
		Of:   func(rec domain.AgencyRecord) string { return rec.Dimension(dim) },
	}
}

// ByRetentionLevel groups by the retention tier under policy.
func ByRetentionLevel(policy RetentionPolicy) KeyFunc {
	return KeyFunc{
		Name: "retention_level",
		Of: func(rec domain.AgencyRecord) string {
			return string(policy.Categorize(rec.RetentionRatio))
		},
	}
}

// Aggregation names how an AggregateView combined its values.
type Aggregation string

const (
	AggregationMean Aggregation = "mean"
	AggregationSum  Aggregation = "sum"
)

// AggregateView is a grouped table: one row per key, one value per field.
type AggregateView struct {
	Key         string         `json:"key"`
	Aggregation Aggregation    `json:"aggregation"`
	Fields      []domain.Field `json:"fields"`
	Rows        []AggregateRow `json:"rows"`
}

// AggregateRow is one group. Values line up with AggregateView.Fields;
// Count is the number of records in the group.
type AggregateRow struct {
	Key    string
	Count  int
	Values []float64
}

// MarshalJSON writes undefined values as null.
func (r AggregateRow) MarshalJSON() ([]byte, error) {
	values := make([]domain.Float, len(r.Values))
	for i, v := range r.Values {
		values[i] = domain.Float(v)
	}
	return json.Marshal(struct {
		Key    string         `json:"key"`
		Count  int            `json:"count"`
		Values []domain.Float `json:"values"`
	}{r.Key, r.Count, values})
}

// Value returns the aggregate of field for the row, NaN when the field
// was not aggregated.
func (v AggregateView) Value(key string, field domain.Field) float64 {
	for _, row := range v.Rows {
		if row.Key != key {
			continue
		}
		for i, f := range v.Fields {
			if f == field {
				return row.Values[i]
			}
		}
	}
	return math.NaN()
}

// Table flattens the view: key, one column per field, count.
func (v AggregateView) Table() domain.Table {
	headers := make([]string, 0, len(v.Fields)+2)
	headers = append(headers, v.Key)
	for _, f := range v.Fields {
		headers = append(headers, string(f))
	}
	headers = append(headers, "count")

	rows := make([][]domain.Cell, 0, len(v.Rows))
	for _, r := range v.Rows {
		cells := make([]domain.Cell, 0, len(headers))
		cells = append(cells, domain.TextCell(r.Key))
		for _, val := range r.Values {
			cells = append(cells, domain.NumberCell(val))
		}
		cells = append(cells, domain.NumberCell(float64(r.Count)))
		rows = append(rows, cells)
	}
	return domain.Table{Headers: headers, Rows: rows}
}

// GroupMean partitions ds by key and averages each field over the records
// of the group that have it. A field with no contributing value is NaN.
func GroupMean(ds *Dataset, key KeyFunc, fields []domain.Field) AggregateView {
	return aggregate(ds, key, fields, AggregationMean)
}

// GroupSum partitions ds by key and sums field; missing values add 0.
func GroupSum(ds *Dataset, key KeyFunc, field domain.Field) AggregateView {
	return aggregate(ds, key, []domain.Field{field}, AggregationSum)
}

type accumulator struct {
	count int
	sums  []float64
	seen  []int
}

func aggregate(ds *Dataset, key KeyFunc, fields []domain.Field, agg Aggregation) AggregateView {
	view := AggregateView{
		Key:         key.Name,
		Aggregation: agg,
		Fields:      append([]domain.Field(nil), fields...),
		Rows:        []AggregateRow{},
	}

	groups := map[string]*accumulator{}
	for i := 0; i < ds.Len(); i++ {
		rec := ds.records[i]
		k := key.Of(rec)
		if k == "" {
			continue
		}
		acc, ok := groups[k]
		if !ok {
			acc = &accumulator{sums: make([]float64, len(fields)), seen: make([]int, len(fields))}
			groups[k] = acc
		}
		acc.count++
		for j, f := range fields {
			if v := rec.Measure(f); !math.IsNaN(v) {
				acc.sums[j] += v
				acc.seen[j]++
			}
		}
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return lessKey(keys[i], keys[j]) })

	for _, k := range keys {
		acc := groups[k]
		values := make([]float64, len(fields))
		for j := range fields {
			switch {
			case agg == AggregationSum:
				values[j] = acc.sums[j]
			case acc.seen[j] == 0:
				values[j] = math.NaN()
			default:
				values[j] = acc.sums[j] / float64(acc.seen[j])
			}
		}
		view.Rows = append(view.Rows, AggregateRow{Key: k, Count: acc.count, Values: values})
	}
	return view
}

func nanValues(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
