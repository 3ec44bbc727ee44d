package http

import (
	"context"

	"agencypulse/internal/access"
	"agencypulse/internal/dashboard"
	"agencypulse/internal/dataprocessing"
	"agencypulse/internal/services"
	"agencypulse/pkg/contracts/domain"
)

// DashboardServiceInterface is what the dashboard and live handlers need
// from services.DashboardService.
type DashboardServiceInterface interface {
	Dataset(ac access.Context) (services.DatasetInfo, error)
	Layouts(ac access.Context) ([]dashboard.Layout, error)
	Layout(ac access.Context, name string) (dashboard.Layout, error)
	Build(ctx context.Context, ac access.Context, name string, filters dataprocessing.FilterSpec) (dashboard.Dashboard, error)
	Panel(ctx context.Context, ac access.Context, name, panelID string, filters dataprocessing.FilterSpec) (dashboard.PanelResult, error)

	Summary(ctx context.Context, ac access.Context, filters dataprocessing.FilterSpec) (dataprocessing.Metrics, error)
	GroupMean(ctx context.Context, ac access.Context, filters dataprocessing.FilterSpec, by domain.Dimension, fields []domain.Field) (dataprocessing.AggregateView, error)
	GroupSum(ctx context.Context, ac access.Context, filters dataprocessing.FilterSpec, by domain.Dimension, field domain.Field) (dataprocessing.AggregateView, error)
	Histogram(ctx context.Context, ac access.Context, filters dataprocessing.FilterSpec, field domain.Field, bins int, rng string) (dataprocessing.BinnedView, error)
	BinnedMean(ctx context.Context, ac access.Context, filters dataprocessing.FilterSpec, field, value domain.Field, bins int, rng string) (dataprocessing.BinnedView, error)
	Correlation(ctx context.Context, ac access.Context, filters dataprocessing.FilterSpec, fields []domain.Field) (dataprocessing.Matrix, error)
	Segments(ctx context.Context, ac access.Context, filters dataprocessing.FilterSpec, fields []domain.Field) (dataprocessing.AggregateView, error)
}

var _ DashboardServiceInterface = (*services.DashboardService)(nil)
