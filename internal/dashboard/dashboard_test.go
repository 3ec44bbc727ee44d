package dashboard

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agencypulse/internal/dataprocessing"
	"agencypulse/internal/shared/testutil"
	"agencypulse/pkg/contracts/domain"
)

func singlePanel(p PanelSpec) Layout {
	return Layout{Name: "t", Title: "Test", Tabs: []Tab{{Title: "Tab", Panels: []PanelSpec{p}}}}
}

func TestBuiltinLayouts(t *testing.T) {
	reg, err := NewRegistry(Builtin()...)
	require.NoError(t, err)

	layouts := reg.List()
	require.Len(t, layouts, 2)
	assert.Equal(t, "premium", layouts[0].Name)
	assert.Equal(t, "retention", layouts[1].Name)

	retention, ok := reg.Get("retention")
	require.True(t, ok)
	titles := make([]string, 0, len(retention.Tabs))
	for _, tab := range retention.Tabs {
		titles = append(titles, tab.Title)
	}
	assert.Equal(t, []string{"KPI Overview", "Retention Insights", "Loss & Growth Insights", "Correlation", "Scatter & Segments"}, titles)

	hist, ok := retention.Panel("retention_hist")
	require.True(t, ok)
	assert.Equal(t, 50, hist.Bins)

	_, ok = reg.Get("missing")
	assert.False(t, ok)
}

func TestLayoutValidate(t *testing.T) {
	tests := []struct {
		name    string
		layout  Layout
		wantErr string
	}{
		{"no tabs", Layout{Name: "x", Title: "X"}, "tabs"},
		{"unknown kind", singlePanel(PanelSpec{ID: "p", Kind: "pie_chart"}), "unknown kind"},
		{"histogram without bins", singlePanel(PanelSpec{ID: "p", Kind: KindHistogram, Field: domain.FieldLossRatio}), "bins"},
		{"histogram too many bins", singlePanel(PanelSpec{ID: "p", Kind: KindHistogram, Field: domain.FieldLossRatio, Bins: 501}), "bins"},
		{"trend without group", singlePanel(PanelSpec{ID: "p", Kind: KindTrend, Fields: []domain.Field{domain.FieldLossRatio}}), "group_by"},
		{"trend unknown dimension", singlePanel(PanelSpec{ID: "p", Kind: KindTrend, GroupBy: "region", Fields: []domain.Field{domain.FieldLossRatio}}), "unknown dimension"},
		{"scatter unknown measure", singlePanel(PanelSpec{ID: "p", Kind: KindScatter, X: domain.FieldLossRatio, Y: "premium"}), "unknown measure"},
		{"correlation one field", singlePanel(PanelSpec{ID: "p", Kind: KindCorrelation, Fields: []domain.Field{domain.FieldLossRatio}}), "at least 2"},
		{"segments without fields", singlePanel(PanelSpec{ID: "p", Kind: KindSegments}), "at least 1"},
		{"bad range", singlePanel(PanelSpec{ID: "p", Kind: KindHistogram, Field: domain.FieldLossRatio, Bins: 5, Range: "global"}), "range"},
		{"duplicate ids", Layout{Name: "x", Title: "X", Tabs: []Tab{
			{Title: "A", Panels: []PanelSpec{{ID: "p", Kind: KindKPI}}},
			{Title: "B", Panels: []PanelSpec{{ID: "p", Kind: KindKPI}}},
		}}, "duplicate panel id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.layout.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidLayout)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	assert.NoError(t, singlePanel(PanelSpec{ID: "p", Kind: KindCorrelation}).Validate(), "correlation defaults to every measure")
}

const layoutsYAML = `
layouts:
  - name: retention
    title: Slim retention
    tabs:
      - title: Only
        panels:
          - id: kpis
            kind: kpi
  - name: lines
    title: By product line
    tabs:
      - title: Lines
        panels:
          - id: loss_by_line
            kind: trend
            chart: bar
            group_by: prod_line
            fields: [loss_ratio, growth_rate_3yr]
`

func TestLoadRegistry_FileOverridesBuiltin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layouts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(layoutsYAML), 0o644))

	reg, err := LoadRegistry(path)
	require.NoError(t, err)

	assert.Len(t, reg.List(), 3)
	retention, _ := reg.Get("retention")
	assert.Equal(t, "Slim retention", retention.Title)

	lines, ok := reg.Get("lines")
	require.True(t, ok)
	assert.Equal(t, []domain.Field{domain.FieldLossRatio, domain.FieldGrowthRate3Yr}, lines.Tabs[0].Panels[0].Fields)
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	unknownKey := filepath.Join(dir, "unknown.yaml")
	require.NoError(t, os.WriteFile(unknownKey, []byte("layouts:\n  - name: x\n    colour: red\n"), 0o644))
	_, err = LoadFile(unknownKey)
	assert.Error(t, err)

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("layouts:\n  - name: x\n    title: X\n    tabs: []\n"), 0o644))
	_, err = LoadFile(invalid)
	assert.ErrorIs(t, err, ErrInvalidLayout)
}

func TestCompute(t *testing.T) {
	full := testutil.LoadDataset(t)
	src := Source{View: full, Full: full, Policy: dataprocessing.DefaultRetentionPolicy}

	t.Run("kpi", func(t *testing.T) {
		res, err := Compute(PanelSpec{ID: "k", Kind: KindKPI}, src)
		require.NoError(t, err)
		assert.Equal(t, testutil.AgencyRecordCount, res.(dataprocessing.Metrics).Records)
	})

	t.Run("histogram", func(t *testing.T) {
		res, err := Compute(PanelSpec{ID: "h", Kind: KindHistogram, Field: domain.FieldRetentionRatio, Bins: 50}, src)
		require.NoError(t, err)
		view := res.(dataprocessing.BinnedView)
		assert.Len(t, view.Bins, 50)
		assert.Equal(t, 5, view.Total())
		assert.Equal(t, 1, view.Missing)
	})

	t.Run("trend", func(t *testing.T) {
		res, err := Compute(PanelSpec{ID: "tr", Kind: KindTrend, GroupBy: domain.DimensionAgencyAppointmentYear,
			Fields: []domain.Field{domain.FieldRetentionRatio}}, src)
		require.NoError(t, err)
		view := res.(dataprocessing.AggregateView)
		assert.InDelta(t, (0.91+0.62+0.55)/3, view.Value("1998", domain.FieldRetentionRatio), 1e-9)
		assert.InDelta(t, (0.35+0.85)/2, view.Value("2005", domain.FieldRetentionRatio), 1e-9)
	})

	t.Run("group sum", func(t *testing.T) {
		res, err := Compute(PanelSpec{ID: "g", Kind: KindGroupSum, GroupBy: domain.DimensionProdLine,
			Field: domain.FieldWrtnPremAmt}, src)
		require.NoError(t, err)
		view := res.(dataprocessing.AggregateView)
		assert.Equal(t, 31500.0, view.Value("CL", domain.FieldWrtnPremAmt))
		assert.Equal(t, 20000.0, view.Value("PL", domain.FieldWrtnPremAmt))
	})

	t.Run("binned mean over full range", func(t *testing.T) {
		pl := dataprocessing.Filter(full, dataprocessing.FilterSpec{domain.DimensionProdLine: "PL"})
		spec := PanelSpec{ID: "b", Kind: KindBinnedMean, Field: domain.FieldLossRatio,
			Value: domain.FieldRetentionRatio, Bins: 3, Range: RangeFull}

		res, err := Compute(spec, Source{View: pl, Full: full})
		require.NoError(t, err)
		view := res.(dataprocessing.BinnedView)
		require.Len(t, view.Bins, 3)
		assert.InDelta(t, 0.30, view.Bins[0].Lo, 1e-9, "edges come from the unfiltered dataset")
		assert.InDelta(t, 1.20, view.Bins[2].Hi, 1e-9)
		assert.Equal(t, 3, view.Total())
	})

	t.Run("scatter", func(t *testing.T) {
		spec, ok := RetentionLayout().Panel("loss_vs_retention")
		require.True(t, ok)
		res, err := Compute(spec, src)
		require.NoError(t, err)
		scatter := res.(ScatterResult)
		assert.Len(t, scatter.Points, 5, "record without retention skipped")
		assert.Equal(t, []string{"agency_id", "prod_line", "loss_ratio", "retention_ratio", "active_producers", "growth_rate_3yr"},
			scatter.Table().Headers)
	})

	t.Run("correlation", func(t *testing.T) {
		res, err := Compute(PanelSpec{ID: "c", Kind: KindCorrelation}, src)
		require.NoError(t, err)
		m := res.(dataprocessing.Matrix)
		assert.Len(t, m.Fields, len(domain.MeasureFields))
		assert.InDelta(t, 1.0, m.At(domain.FieldLossRatio, domain.FieldLossRatio), 1e-9)
	})

	t.Run("segments", func(t *testing.T) {
		res, err := Compute(PanelSpec{ID: "s", Kind: KindSegments, Fields: []domain.Field{domain.FieldLossRatio}}, src)
		require.NoError(t, err)
		view := res.(dataprocessing.AggregateView)
		require.Len(t, view.Rows, 3)
		for _, row := range view.Rows {
			assert.Equal(t, 2, row.Count, row.Key)
		}
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := Compute(PanelSpec{ID: "x", Kind: "radar"}, src)
		assert.Error(t, err)
	})
}

func TestDashboardLookup(t *testing.T) {
	d := Dashboard{Tabs: []TabResult{
		{Title: "A", Panels: []PanelResult{{ID: "kpis", Title: "KPIs", Data: dataprocessing.Metrics{}}}},
		{Title: "B", Panels: []PanelResult{{ID: "seg", Title: "Segments", Data: dataprocessing.AggregateView{}}}},
	}}

	p, ok := d.Panel("seg")
	require.True(t, ok)
	assert.Equal(t, "Segments", p.Table().Title)
	assert.Len(t, d.Panels(), 2)

	_, ok = d.Panel("none")
	assert.False(t, ok)
}
