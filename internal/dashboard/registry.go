package dashboard

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"agencypulse/internal/config"
	"agencypulse/pkg/contracts/domain"
)

// Lookup errors.
var (
	ErrLayoutNotFound = errors.New("layout not found")
	ErrPanelNotFound  = errors.New("panel not found")
)

// Registry holds the layouts the server can build, by name.
type Registry struct {
	mu      sync.RWMutex
	layouts map[string]Layout
}

// NewRegistry validates layouts and registers them. A later layout with
// the same name replaces an earlier one, so file layouts can override the
// built-ins.
func NewRegistry(layouts ...Layout) (*Registry, error) {
	r := &Registry{layouts: make(map[string]Layout, len(layouts))}
	for _, l := range layouts {
		if err := r.Register(l); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register validates and adds a layout.
func (r *Registry) Register(l Layout) error {
	if err := l.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.layouts[l.Name] = l
	r.mu.Unlock()
	return nil
}

// Get returns the named layout.
func (r *Registry) Get(name string) (Layout, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.layouts[name]
	return l, ok
}

// List returns every layout sorted by name.
func (r *Registry) List() []Layout {
	r.mu.RLock()
	out := make([]Layout, 0, len(r.layouts))
	for _, l := range r.layouts {
		out = append(out, l)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LoadRegistry registers the built-in layouts and then those of
// layoutsFile, when given.
func LoadRegistry(layoutsFile string) (*Registry, error) {
	layouts := Builtin()
	if layoutsFile != "" {
		extra, err := LoadFile(layoutsFile)
		if err != nil {
			return nil, fmt.Errorf("load layouts: %w", err)
		}
		layouts = append(layouts, extra...)
	}
	return NewRegistry(layouts...)
}

// Builtin returns the retention and premium dashboards.
func Builtin() []Layout {
	return []Layout{RetentionLayout(), PremiumLayout()}
}

// RetentionLayout is the retention and policy performance dashboard.
func RetentionLayout() Layout {
	return Layout{
		Name:        "retention",
		Title:       "Insurance Retention & Policy Performance",
		Description: "Retention, loss and growth across agencies.",
		Tabs: []Tab{
			{Title: "KPI Overview", Panels: []PanelSpec{
				{ID: "kpis", Kind: KindKPI, Title: "Key Performance Indicators", Chart: "metric"},
			}},
			{Title: "Retention Insights", Panels: []PanelSpec{
				{ID: "retention_hist", Kind: KindHistogram, Title: "Distribution of Retention Ratios",
					Chart: "histogram", Field: domain.FieldRetentionRatio, Bins: config.RetentionHistogramBins},
				{ID: "retention_by_year", Kind: KindTrend, Title: "Retention Ratio by Agency Appointment Year",
					Chart: "line", GroupBy: domain.DimensionAgencyAppointmentYear,
					Fields: []domain.Field{domain.FieldRetentionRatio}},
			}},
			{Title: "Loss & Growth Insights", Panels: []PanelSpec{
				{ID: "loss_hist", Kind: KindHistogram, Title: "Loss Ratio Distribution",
					Chart: "histogram", Field: domain.FieldLossRatio, Bins: config.LossHistogramBins},
				{ID: "growth_hist", Kind: KindHistogram, Title: "3-Year Growth Rate Distribution",
					Chart: "histogram", Field: domain.FieldGrowthRate3Yr, Bins: config.GrowthHistogramBins},
				{ID: "loss_vs_retention", Kind: KindScatter, Title: "Loss Ratio vs Retention Ratio",
					Chart: "scatter", X: domain.FieldLossRatio, Y: domain.FieldRetentionRatio,
					Size: domain.FieldActiveProducers, Color: domain.FieldGrowthRate3Yr},
			}},
			{Title: "Correlation", Panels: []PanelSpec{
				{ID: "correlation", Kind: KindCorrelation, Title: "Correlation Heatmap", Chart: "heatmap"},
			}},
			{Title: "Scatter & Segments", Panels: []PanelSpec{
				{ID: "segments", Kind: KindSegments, Title: "Categorized Retention Segments", Chart: "bar",
					Fields: []domain.Field{domain.FieldLossRatio, domain.FieldGrowthRate3Yr, domain.FieldActiveProducers}},
			}},
		},
	}
}

// PremiumLayout is the written-premium dashboard.
func PremiumLayout() Layout {
	return Layout{
		Name:        "premium",
		Title:       "Written Premium Performance",
		Description: "Premium volume by product line and appointment year.",
		Tabs: []Tab{
			{Title: "KPI Overview", Panels: []PanelSpec{
				{ID: "kpis", Kind: KindKPI, Title: "Key Performance Indicators", Chart: "metric"},
			}},
			{Title: "Premium", Panels: []PanelSpec{
				{ID: "premium_by_line", Kind: KindGroupSum, Title: "Written Premium by Product Line",
					Chart: "bar", GroupBy: domain.DimensionProdLine, Field: domain.FieldWrtnPremAmt},
				{ID: "premium_share", Kind: KindGroupSum, Title: "Written Premium Share by Product",
					Chart: "pie", GroupBy: domain.DimensionProdAbbr, Field: domain.FieldWrtnPremAmt},
				{ID: "nb_premium_by_year", Kind: KindGroupSum, Title: "New Business Premium by Appointment Year",
					Chart: "line", GroupBy: domain.DimensionAgencyAppointmentYear, Field: domain.FieldNBWrtnPremAmt},
			}},
			{Title: "Retention vs Loss", Panels: []PanelSpec{
				{ID: "retention_by_loss", Kind: KindBinnedMean, Title: "Mean Retention by Loss Ratio Band",
					Chart: "bar", Field: domain.FieldLossRatio, Value: domain.FieldRetentionRatio,
					Bins: 10, Range: RangeFull},
				{ID: "segments", Kind: KindSegments, Title: "Premium by Retention Segment", Chart: "table",
					Fields: []domain.Field{domain.FieldWrtnPremAmt, domain.FieldNBWrtnPremAmt, domain.FieldLossRatio}},
			}},
		},
	}
}
