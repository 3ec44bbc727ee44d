package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"agencypulse/internal/dashboard"
	"agencypulse/internal/dataprocessing"
	apierrors "agencypulse/internal/errors"
	"agencypulse/pkg/contracts/domain"
)

// defaultBins is used when a binned query omits bins.
const defaultBins = 20

// filterParams maps filter query parameters to dataset dimensions. When
// several parameters name one dimension the first one present wins, so
// the column name takes precedence over the short "year" alias.
var filterParams = []struct {
	param string
	dim   domain.Dimension
}{
	{"agency_appointment_year", domain.DimensionAgencyAppointmentYear},
	{"year", domain.DimensionAgencyAppointmentYear},
	{"prod_line", domain.DimensionProdLine},
	{"prod_abbr", domain.DimensionProdAbbr},
	{"agency_id", domain.DimensionAgencyID},
}

// filtersFromQuery reads the filter selection of a request. Empty values
// and "All" leave a dimension open.
func filtersFromQuery(q url.Values) dataprocessing.FilterSpec {
	values := make(map[string]string)
	for _, p := range filterParams {
		if _, set := values[string(p.dim)]; set {
			continue
		}
		if v := q.Get(p.param); v != "" {
			values[string(p.dim)] = v
		}
	}
	return dataprocessing.Selection(values)
}

type groupMeanQuery struct {
	By     string   `query:"by" validate:"required,dimension"`
	Fields []string `query:"fields" validate:"omitempty,dive,measure"`
}

type groupSumQuery struct {
	By    string `query:"by" validate:"required,dimension"`
	Field string `query:"field" validate:"required,measure"`
}

type histogramQuery struct {
	Field string `query:"field" validate:"required,measure"`
	Bins  int    `query:"bins" validate:"min=1,max=500"`
	Range string `query:"range" validate:"omitempty,oneof=filtered full"`
}

type binnedMeanQuery struct {
	Field string `query:"field" validate:"required,measure"`
	Value string `query:"value" validate:"required,measure"`
	Bins  int    `query:"bins" validate:"min=1,max=500"`
	Range string `query:"range" validate:"omitempty,oneof=filtered full"`
}

type fieldsQuery struct {
	Fields []string `query:"fields" validate:"omitempty,dive,measure"`
}

func parseGroupMean(r *http.Request) groupMeanQuery {
	q := r.URL.Query()
	return groupMeanQuery{By: q.Get("by"), Fields: listParam(q, "fields")}
}

func parseGroupSum(r *http.Request) groupSumQuery {
	q := r.URL.Query()
	return groupSumQuery{By: q.Get("by"), Field: q.Get("field")}
}

func parseHistogram(r *http.Request) (histogramQuery, error) {
	q := r.URL.Query()
	bins, err := binsParam(q)
	if err != nil {
		return histogramQuery{}, err
	}
	return histogramQuery{Field: q.Get("field"), Bins: bins, Range: rangeParam(q)}, nil
}

func parseBinnedMean(r *http.Request) (binnedMeanQuery, error) {
	q := r.URL.Query()
	bins, err := binsParam(q)
	if err != nil {
		return binnedMeanQuery{}, err
	}
	return binnedMeanQuery{Field: q.Get("field"), Value: q.Get("value"), Bins: bins, Range: rangeParam(q)}, nil
}

func parseFields(r *http.Request) fieldsQuery {
	return fieldsQuery{Fields: listParam(r.URL.Query(), "fields")}
}

// listParam accepts both repeated and comma separated values.
func listParam(q url.Values, name string) []string {
	var out []string
	for _, v := range q[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func binsParam(q url.Values) (int, error) {
	raw := q.Get("bins")
	if raw == "" {
		return defaultBins, nil
	}
	bins, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apierrors.NewParsingError("bins must be an integer", err).WithContext("field", "bins")
	}
	return bins, nil
}

func rangeParam(q url.Values) string {
	if v := q.Get("range"); v != "" {
		return v
	}
	return dashboard.RangeFiltered
}

func toFields(names []string) []domain.Field {
	if len(names) == 0 {
		return nil
	}
	fields := make([]domain.Field, len(names))
	for i, n := range names {
		fields[i] = domain.Field(n)
	}
	return fields
}
