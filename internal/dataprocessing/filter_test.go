package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agencypulse/pkg/contracts/domain"
)

func TestFilter(t *testing.T) {
	tests := []struct {
		name    string
		spec    FilterSpec
		wantIDs []string
	}{
		{
			name:    "no constraint keeps everything in order",
			spec:    FilterSpec{},
			wantIDs: []string{"1", "2", "3", "4"},
		},
		{
			name:    "nil spec",
			spec:    nil,
			wantIDs: []string{"1", "2", "3", "4"},
		},
		{
			name:    "single dimension",
			spec:    FilterSpec{domain.DimensionProdLine: "CL"},
			wantIDs: []string{"1", "3"},
		},
		{
			name: "dimensions combine with AND",
			spec: FilterSpec{
				domain.DimensionProdLine:              "PL",
				domain.DimensionAgencyAppointmentYear: "2005",
			},
			wantIDs: []string{"4"},
		},
		{
			name:    "case sensitive",
			spec:    FilterSpec{domain.DimensionProdLine: "cl"},
			wantIDs: []string{},
		},
		{
			name:    "unknown dimension matches nothing",
			spec:    FilterSpec{domain.Dimension("region"): "west"},
			wantIDs: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := sampleDataset()
			got := Filter(ds, tt.spec)

			ids := []string{}
			for _, rec := range got.Records() {
				ids = append(ids, rec.AgencyID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, 4, ds.Len(), "source dataset untouched")
		})
	}
}

func TestFilter_PartitionsDataset(t *testing.T) {
	ds := sampleDataset()
	specs := []FilterSpec{
		{domain.DimensionProdLine: "CL"},
		{domain.DimensionAgencyAppointmentYear: "1998"},
		{domain.DimensionProdAbbr: "HO", domain.DimensionProdLine: "PL"},
		{domain.DimensionAgencyID: "none"},
	}

	for _, spec := range specs {
		kept := Filter(ds, spec)
		keptIDs := map[string]bool{}
		for _, rec := range kept.Records() {
			assert.True(t, spec.Matches(rec))
			keptIDs[rec.AgencyID] = true
		}
		for _, rec := range ds.Records() {
			if !keptIDs[rec.AgencyID] {
				assert.False(t, spec.Matches(rec), "excluded record %s must violate a constraint", rec.AgencyID)
			}
		}
	}
}

func TestFilter_NilDataset(t *testing.T) {
	got := Filter(nil, FilterSpec{domain.DimensionProdLine: "CL"})
	require.NotNil(t, got)
	assert.Equal(t, 0, got.Len())
}

func TestFilterSpec_Validate(t *testing.T) {
	assert.NoError(t, FilterSpec{domain.DimensionProdLine: "CL"}.Validate())
	assert.Error(t, FilterSpec{domain.Dimension("region"): "west"}.Validate())
}

func TestFilterOptions(t *testing.T) {
	records := append(sampleRecords(), domain.AgencyRecord{AgencyID: "5", ProdLine: ""})
	opts := FilterOptions(NewDataset("sample", records))

	assert.Equal(t, []int{1998, 2005}, opts.AppointmentYears)
	assert.Equal(t, []string{"CL", "PL"}, opts.ProdLines)
	assert.Equal(t, []string{"BOP", "HO", "PA", "WC"}, opts.ProdAbbrs)
}

func TestSelection(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
		want   FilterSpec
	}{
		{"nil", nil, FilterSpec{}},
		{"all and blank dropped", map[string]string{"prod_line": "All", "prod_abbr": " ", "agency_appointment_year": "1998"},
			FilterSpec{domain.DimensionAgencyAppointmentYear: "1998"}},
		{"values trimmed", map[string]string{"prod_line": " CL "}, FilterSpec{domain.DimensionProdLine: "CL"}},
		{"unknown kept", map[string]string{"region": "west"}, FilterSpec{domain.Dimension("region"): "west"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Selection(tt.values)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Error(t, Selection(map[string]string{"region": "west"}).Validate())
}
