package dataprocessing

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"agencypulse/pkg/contracts/domain"
)

// FilterSpec maps a dimension to the exact value it must equal. An empty
// spec constrains nothing. Values are compared case-sensitively.
type FilterSpec map[domain.Dimension]string

// Validate rejects dimensions the dataset does not have.
func (s FilterSpec) Validate() error {
	for dim := range s {
		if !dim.Valid() {
			return fmt.Errorf("unknown filter dimension %q", dim)
		}
	}
	return nil
}

// Matches reports whether rec satisfies every constraint. Unknown
// dimensions never match.
func (s FilterSpec) Matches(rec domain.AgencyRecord) bool {
	for dim, want := range s {
		if !dim.Valid() || rec.Dimension(dim) != want {
			return false
		}
	}
	return true
}

// Filter returns the records of ds that satisfy spec, in their original
// order. ds itself is never modified; an empty result is a valid dataset.
func Filter(ds *Dataset, spec FilterSpec) *Dataset {
	if ds == nil {
		return &Dataset{}
	}
	if len(spec) == 0 {
		return &Dataset{source: ds.source, records: ds.records[:len(ds.records):len(ds.records)]}
	}

	out := make([]domain.AgencyRecord, 0, len(ds.records))
	for _, rec := range ds.records {
		if spec.Matches(rec) {
			out = append(out, rec)
		}
	}
	return &Dataset{source: ds.source, records: out}
}

// AllValues is the picker choice that leaves a dimension unconstrained.
const AllValues = "All"

// Selection builds a FilterSpec from picker values keyed by dimension
// name. Empty values and AllValues are dropped; unknown dimensions are
// kept so Validate can reject them.
func Selection(values map[string]string) FilterSpec {
	spec := make(FilterSpec, len(values))
	for dim, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || v == AllValues {
			continue
		}
		spec[domain.Dimension(dim)] = v
	}
	return spec
}

// Options are the distinct values offered by filter pickers.
type Options struct {
	AppointmentYears []int    `json:"appointment_years"`
	ProdLines        []string `json:"prod_lines"`
	ProdAbbrs        []string `json:"prod_abbrs"`
}

// FilterOptions lists distinct appointment years (ascending) and product
// lines (sorted). Missing values are left out.
func FilterOptions(ds *Dataset) Options {
	years := map[int]struct{}{}
	lines := map[string]struct{}{}
	abbrs := map[string]struct{}{}
	for i := 0; i < ds.Len(); i++ {
		rec := ds.records[i]
		if rec.AgencyAppointmentYear != 0 {
			years[rec.AgencyAppointmentYear] = struct{}{}
		}
		if rec.ProdLine != "" {
			lines[rec.ProdLine] = struct{}{}
		}
		if rec.ProdAbbr != "" {
			abbrs[rec.ProdAbbr] = struct{}{}
		}
	}

	opts := Options{
		AppointmentYears: make([]int, 0, len(years)),
		ProdLines:        sortedKeys(lines),
		ProdAbbrs:        sortedKeys(abbrs),
	}
	for y := range years {
		opts.AppointmentYears = append(opts.AppointmentYears, y)
	}
	sort.Ints(opts.AppointmentYears)
	return opts
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return lessKey(keys[i], keys[j]) })
	return keys
}

// lessKey orders numeric keys numerically and everything else lexically,
// numbers first.
func lessKey(a, b string) bool {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	switch {
	case errA == nil && errB == nil:
		if fa != fb {
			return fa < fb
		}
		return a < b
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}
