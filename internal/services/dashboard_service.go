package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"agencypulse/internal/access"
	"agencypulse/internal/config"
	"agencypulse/internal/dashboard"
	"agencypulse/internal/dataprocessing"
	apperrors "agencypulse/internal/errors"
	"agencypulse/internal/infrastructure"
	"agencypulse/pkg/contracts/domain"
)

// DashboardOptions tunes a DashboardService. Zero values take defaults.
type DashboardOptions struct {
	Policy     dataprocessing.RetentionPolicy
	MaxWorkers int
	Tracer     trace.Tracer
	Metrics    *infrastructure.BusinessMetrics
}

// DatasetInfo describes the loaded dataset and its filter choices.
type DatasetInfo struct {
	Source  string                         `json:"source"`
	Records int                            `json:"records"`
	Options dataprocessing.Options         `json:"options"`
	Policy  dataprocessing.RetentionPolicy `json:"retention_policy"`
}

// DashboardService answers every analytics request over the shared dataset.
// Each call filters its own view; the dataset is never modified.
type DashboardService struct {
	dataset    *dataprocessing.Dataset
	registry   *dashboard.Registry
	policy     dataprocessing.RetentionPolicy
	maxWorkers int
	tracer     trace.Tracer
	metrics    *infrastructure.BusinessMetrics
	logger     *slog.Logger
	now        func() time.Time
}

// NewDashboardService creates the service over ds and the layouts of reg.
func NewDashboardService(ds *dataprocessing.Dataset, reg *dashboard.Registry, opts DashboardOptions, logger *slog.Logger) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Policy == (dataprocessing.RetentionPolicy{}) {
		opts.Policy = dataprocessing.DefaultRetentionPolicy
	}
	if opts.MaxWorkers < 1 {
		opts.MaxWorkers = config.DefaultMaxPanelWorkers
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(infrastructure.MeterName)
	}

	logger = infrastructure.WithComponent(logger, "dashboard_service")
	logger.Info("DashboardService initialized",
		slog.String("source", ds.Source()),
		slog.Int("records", ds.Len()),
		slog.Int("layouts", len(reg.List())),
		slog.Int("max_workers", opts.MaxWorkers))

	return &DashboardService{
		dataset:    ds,
		registry:   reg,
		policy:     opts.Policy,
		maxWorkers: opts.MaxWorkers,
		tracer:     opts.Tracer,
		metrics:    opts.Metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// Policy returns the retention thresholds in use.
func (s *DashboardService) Policy() dataprocessing.RetentionPolicy {
	return s.policy
}

// Dataset returns the record count, source and filter options.
func (s *DashboardService) Dataset(ac access.Context) (DatasetInfo, error) {
	if err := authorize(ac); err != nil {
		return DatasetInfo{}, err
	}
	return DatasetInfo{
		Source:  s.dataset.Source(),
		Records: s.dataset.Len(),
		Options: dataprocessing.FilterOptions(s.dataset),
		Policy:  s.policy,
	}, nil
}

// Layouts lists the configured layouts.
func (s *DashboardService) Layouts(ac access.Context) ([]dashboard.Layout, error) {
	if err := authorize(ac); err != nil {
		return nil, err
	}
	return s.registry.List(), nil
}

// Layout returns one configured layout.
func (s *DashboardService) Layout(ac access.Context, name string) (dashboard.Layout, error) {
	if err := authorize(ac); err != nil {
		return dashboard.Layout{}, err
	}
	layout, ok := s.registry.Get(name)
	if !ok {
		return dashboard.Layout{}, apperrors.NewNotFoundError(fmt.Sprintf("layout %q", name), ErrLayoutNotFound).
			WithContext("layout", name)
	}
	return layout, nil
}

// Build computes every panel of the named layout over the filtered view.
// Panels are computed concurrently, at most maxWorkers at a time.
func (s *DashboardService) Build(ctx context.Context, ac access.Context, name string, filters dataprocessing.FilterSpec) (dashboard.Dashboard, error) {
	layout, err := s.Layout(ac, name)
	if err != nil {
		return dashboard.Dashboard{}, err
	}

	ctx, span := s.tracer.Start(ctx, "dashboard.build", trace.WithAttributes(
		attribute.String("layout", layout.Name),
		attribute.Int("filters", len(filters)),
	))
	defer span.End()

	start := time.Now()
	d, err := s.build(ctx, layout, filters)
	infrastructure.RecordDashboardBuild(ctx, s.metrics, layout.Name, time.Since(start), err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return dashboard.Dashboard{}, err
	}

	span.SetAttributes(attribute.Int("records", d.Records))
	s.logger.DebugContext(ctx, "dashboard built",
		slog.String("layout", layout.Name),
		slog.Int("records", d.Records),
		slog.Int("panels", len(layout.Panels())),
		slog.Duration("duration", time.Since(start)))
	return d, nil
}

func (s *DashboardService) build(ctx context.Context, layout dashboard.Layout, filters dataprocessing.FilterSpec) (dashboard.Dashboard, error) {
	view, err := s.view(filters)
	if err != nil {
		return dashboard.Dashboard{}, err
	}
	src := s.source(view)

	tabs := make([]dashboard.TabResult, len(layout.Tabs))
	for i, tab := range layout.Tabs {
		tabs[i] = dashboard.TabResult{Title: tab.Title, Panels: make([]dashboard.PanelResult, len(tab.Panels))}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxWorkers)
	for i, tab := range layout.Tabs {
		for j, spec := range tab.Panels {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				res, err := s.computePanel(gctx, spec, src)
				if err != nil {
					return err
				}
				tabs[i].Panels[j] = panelResult(spec, res)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		logServiceError(ctx, s.logger, "build", "dashboard build failed", err, slog.String("layout", layout.Name))
		return dashboard.Dashboard{}, err
	}

	return dashboard.Dashboard{
		Layout:     layout.Name,
		Title:      layout.Title,
		Filters:    normalizeFilters(filters),
		Records:    view.Len(),
		Tabs:       tabs,
		ComputedAt: s.now().UTC(),
	}, nil
}

// Panel computes a single panel of a layout, as used by panel exports.
func (s *DashboardService) Panel(ctx context.Context, ac access.Context, name, panelID string, filters dataprocessing.FilterSpec) (dashboard.PanelResult, error) {
	layout, err := s.Layout(ac, name)
	if err != nil {
		return dashboard.PanelResult{}, err
	}
	spec, ok := layout.Panel(panelID)
	if !ok {
		return dashboard.PanelResult{}, apperrors.NewNotFoundError(fmt.Sprintf("panel %q of layout %q", panelID, name), ErrPanelNotFound).
			WithContext("panel", panelID)
	}

	view, err := s.view(filters)
	if err != nil {
		return dashboard.PanelResult{}, err
	}
	res, err := s.computePanel(ctx, spec, s.source(view))
	if err != nil {
		return dashboard.PanelResult{}, err
	}
	return panelResult(spec, res), nil
}

// Summary computes the KPI metrics of the filtered view.
func (s *DashboardService) Summary(ctx context.Context, ac access.Context, filters dataprocessing.FilterSpec) (dataprocessing.Metrics, error) {
	res, err := s.query(ctx, ac, filters, dashboard.PanelSpec{ID: "summary", Kind: dashboard.KindKPI})
	if err != nil {
		return dataprocessing.Metrics{}, err
	}
	return res.(dataprocessing.Metrics), nil
}

// GroupMean averages fields per value of a dimension. No fields means
// every measure.
func (s *DashboardService) GroupMean(ctx context.Context, ac access.Context, filters dataprocessing.FilterSpec, by domain.Dimension, fields []domain.Field) (dataprocessing.AggregateView, error) {
	if len(fields) == 0 {
		fields = domain.MeasureFields
	}
	res, err := s.query(ctx, ac, filters, dashboard.PanelSpec{ID: "group_mean", Kind: dashboard.KindTrend, GroupBy: by, Fields: fields})
	if err != nil {
		return dataprocessing.AggregateView{}, err
	}
	return res.(dataprocessing.AggregateView), nil
}

// GroupSum totals a field per value of a dimension.
func (s *DashboardService) GroupSum(ctx context.Context, ac access.Context, filters dataprocessing.FilterSpec, by domain.Dimension, field domain.Field) (dataprocessing.AggregateView, error) {
	res, err := s.query(ctx, ac, filters, dashboard.PanelSpec{ID: "group_sum", Kind: dashboard.KindGroupSum, GroupBy: by, Field: field})
	if err != nil {
		return dataprocessing.AggregateView{}, err
	}
	return res.(dataprocessing.AggregateView), nil
}

// Histogram counts field values into equal-width bins. rng is
// dashboard.RangeFiltered or dashboard.RangeFull.
func (s *DashboardService) Histogram(ctx context.Context, ac access.Context, filters dataprocessing.FilterSpec, field domain.Field, bins int, rng string) (dataprocessing.BinnedView, error) {
	res, err := s.query(ctx, ac, filters, dashboard.PanelSpec{ID: "histogram", Kind: dashboard.KindHistogram, Field: field, Bins: bins, Range: rng})
	if err != nil {
		return dataprocessing.BinnedView{}, err
	}
	return res.(dataprocessing.BinnedView), nil
}

// BinnedMean bins field and averages value within each bin.
func (s *DashboardService) BinnedMean(ctx context.Context, ac access.Context, filters dataprocessing.FilterSpec, field, value domain.Field, bins int, rng string) (dataprocessing.BinnedView, error) {
	res, err := s.query(ctx, ac, filters, dashboard.PanelSpec{ID: "binned_mean", Kind: dashboard.KindBinnedMean, Field: field, Value: value, Bins: bins, Range: rng})
	if err != nil {
		return dataprocessing.BinnedView{}, err
	}
	return res.(dataprocessing.BinnedView), nil
}

// Correlation computes the Pearson matrix of fields, or of every measure
// when fields is empty.
func (s *DashboardService) Correlation(ctx context.Context, ac access.Context, filters dataprocessing.FilterSpec, fields []domain.Field) (dataprocessing.Matrix, error) {
	res, err := s.query(ctx, ac, filters, dashboard.PanelSpec{ID: "correlation", Kind: dashboard.KindCorrelation, Fields: fields})
	if err != nil {
		return dataprocessing.Matrix{}, err
	}
	return res.(dataprocessing.Matrix), nil
}

// Segments averages fields per retention level. No fields means every
// measure.
func (s *DashboardService) Segments(ctx context.Context, ac access.Context, filters dataprocessing.FilterSpec, fields []domain.Field) (dataprocessing.AggregateView, error) {
	if len(fields) == 0 {
		fields = domain.MeasureFields
	}
	res, err := s.query(ctx, ac, filters, dashboard.PanelSpec{ID: "segments", Kind: dashboard.KindSegments, Fields: fields})
	if err != nil {
		return dataprocessing.AggregateView{}, err
	}
	return res.(dataprocessing.AggregateView), nil
}

// query runs one ad hoc panel.
func (s *DashboardService) query(ctx context.Context, ac access.Context, filters dataprocessing.FilterSpec, spec dashboard.PanelSpec) (dashboard.Result, error) {
	if err := authorize(ac); err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("invalid %s query", spec.ID), err)
	}
	view, err := s.view(filters)
	if err != nil {
		return nil, err
	}
	return s.computePanel(ctx, spec, s.source(view))
}

func (s *DashboardService) computePanel(ctx context.Context, spec dashboard.PanelSpec, src dashboard.Source) (dashboard.Result, error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.panel", trace.WithAttributes(
		attribute.String("panel.id", spec.ID),
		attribute.String("panel.kind", string(spec.Kind)),
	))
	defer span.End()

	start := time.Now()
	res, err := dashboard.Compute(spec, src)
	infrastructure.RecordPanelCompute(ctx, s.metrics, string(spec.Kind), time.Since(start))
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, fmt.Errorf("panel %s: %w", spec.ID, err)
	}
	return res, nil
}

func (s *DashboardService) view(filters dataprocessing.FilterSpec) (*dataprocessing.Dataset, error) {
	if s.dataset == nil {
		return nil, apperrors.NewDatasetError("no dataset loaded", ErrDatasetNotLoaded)
	}
	if err := filters.Validate(); err != nil {
		return nil, apperrors.NewAppValidationError("invalid filters", err)
	}
	return dataprocessing.Filter(s.dataset, filters), nil
}

func (s *DashboardService) source(view *dataprocessing.Dataset) dashboard.Source {
	return dashboard.Source{View: view, Full: s.dataset, Policy: s.policy}
}

func panelResult(spec dashboard.PanelSpec, res dashboard.Result) dashboard.PanelResult {
	return dashboard.PanelResult{
		ID:    spec.ID,
		Kind:  spec.Kind,
		Title: spec.Title,
		Chart: spec.Chart,
		Data:  res,
	}
}

// normalizeFilters never returns nil so dashboards encode "filters": {}.
func normalizeFilters(filters dataprocessing.FilterSpec) dataprocessing.FilterSpec {
	out := make(dataprocessing.FilterSpec, len(filters))
	for k, v := range filters {
		out[k] = v
	}
	return out
}

func authorize(ac access.Context) error {
	if !ac.Authenticated {
		return apperrors.NewUnauthorizedError("a valid access token is required", ErrAccessDenied)
	}
	return nil
}
