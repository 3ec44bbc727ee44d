package http

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"agencypulse/internal/access"
	"agencypulse/internal/dashboard"
	apierrors "agencypulse/internal/errors"
	"agencypulse/internal/exporter"
	mw "agencypulse/internal/middleware"
	"agencypulse/pkg/contracts/domain"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeCSV  = "text/csv; charset=utf-8"
)

// DashboardHandler serves the dataset, aggregate, dashboard and export
// endpoints. The access context comes from the AccessGate middleware.
type DashboardHandler struct {
	service      DashboardServiceInterface
	validator    *mw.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service DashboardServiceInterface, validator *mw.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DashboardHandler {
	if validator == nil {
		validator = mw.NewValidator()
	}
	return &DashboardHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("component", "dashboard_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the dashboard routes
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Get("/dataset", h.GetDataset)
		r.Get("/metrics/summary", h.GetSummary)

		r.Route("/aggregates", func(r chi.Router) {
			r.Get("/group-mean", h.GetGroupMean)
			r.Get("/group-sum", h.GetGroupSum)
			r.Get("/histogram", h.GetHistogram)
			r.Get("/binned-mean", h.GetBinnedMean)
			r.Get("/correlation", h.GetCorrelation)
			r.Get("/segments", h.GetSegments)
		})

		r.Get("/layouts", h.GetLayouts)
		r.Get("/dashboards/{layout}", h.GetDashboard)
	})

	r.Get("/dashboards/{layout}/export.xlsx", h.ExportWorkbook)
	r.Get("/dashboards/{layout}/panels/{panel}/export.csv", h.ExportPanel)

	return r
}

// GetDataset handles GET /api/dataset
func (h *DashboardHandler) GetDataset(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Dataset(access.FromContext(r.Context()))
	if err != nil {
		h.fail(w, r, "failed to describe dataset", err)
		return
	}
	render.JSON(w, r, info)
}

// GetSummary handles GET /api/metrics/summary
func (h *DashboardHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	metrics, err := h.service.Summary(ctx, access.FromContext(ctx), filtersFromQuery(r.URL.Query()))
	if err != nil {
		h.fail(w, r, "failed to compute summary", err)
		return
	}
	render.JSON(w, r, metrics)
}

// GetGroupMean handles GET /api/aggregates/group-mean
func (h *DashboardHandler) GetGroupMean(w http.ResponseWriter, r *http.Request) {
	q := parseGroupMean(r)
	if err := h.validator.ValidateStruct(q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	ctx := r.Context()
	view, err := h.service.GroupMean(ctx, access.FromContext(ctx), filtersFromQuery(r.URL.Query()),
		domain.Dimension(q.By), toFields(q.Fields))
	if err != nil {
		h.fail(w, r, "failed to compute group mean", err)
		return
	}
	render.JSON(w, r, view)
}

// GetGroupSum handles GET /api/aggregates/group-sum
func (h *DashboardHandler) GetGroupSum(w http.ResponseWriter, r *http.Request) {
	q := parseGroupSum(r)
	if err := h.validator.ValidateStruct(q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	ctx := r.Context()
	view, err := h.service.GroupSum(ctx, access.FromContext(ctx), filtersFromQuery(r.URL.Query()),
		domain.Dimension(q.By), domain.Field(q.Field))
	if err != nil {
		h.fail(w, r, "failed to compute group sum", err)
		return
	}
	render.JSON(w, r, view)
}

// GetHistogram handles GET /api/aggregates/histogram
func (h *DashboardHandler) GetHistogram(w http.ResponseWriter, r *http.Request) {
	q, err := parseHistogram(r)
	if err == nil {
		err = h.validator.ValidateStruct(q)
	}
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	ctx := r.Context()
	view, err := h.service.Histogram(ctx, access.FromContext(ctx), filtersFromQuery(r.URL.Query()),
		domain.Field(q.Field), q.Bins, q.Range)
	if err != nil {
		h.fail(w, r, "failed to compute histogram", err)
		return
	}
	render.JSON(w, r, view)
}

// GetBinnedMean handles GET /api/aggregates/binned-mean
func (h *DashboardHandler) GetBinnedMean(w http.ResponseWriter, r *http.Request) {
	q, err := parseBinnedMean(r)
	if err == nil {
		err = h.validator.ValidateStruct(q)
	}
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	ctx := r.Context()
	view, err := h.service.BinnedMean(ctx, access.FromContext(ctx), filtersFromQuery(r.URL.Query()),
		domain.Field(q.Field), domain.Field(q.Value), q.Bins, q.Range)
	if err != nil {
		h.fail(w, r, "failed to compute binned mean", err)
		return
	}
	render.JSON(w, r, view)
}

// GetCorrelation handles GET /api/aggregates/correlation
func (h *DashboardHandler) GetCorrelation(w http.ResponseWriter, r *http.Request) {
	q := parseFields(r)
	if err := h.validator.ValidateStruct(q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	ctx := r.Context()
	matrix, err := h.service.Correlation(ctx, access.FromContext(ctx), filtersFromQuery(r.URL.Query()), toFields(q.Fields))
	if err != nil {
		h.fail(w, r, "failed to compute correlation", err)
		return
	}
	render.JSON(w, r, matrix)
}

// GetSegments handles GET /api/aggregates/segments
func (h *DashboardHandler) GetSegments(w http.ResponseWriter, r *http.Request) {
	q := parseFields(r)
	if err := h.validator.ValidateStruct(q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	ctx := r.Context()
	view, err := h.service.Segments(ctx, access.FromContext(ctx), filtersFromQuery(r.URL.Query()), toFields(q.Fields))
	if err != nil {
		h.fail(w, r, "failed to compute segments", err)
		return
	}
	render.JSON(w, r, view)
}

// GetLayouts handles GET /api/layouts
func (h *DashboardHandler) GetLayouts(w http.ResponseWriter, r *http.Request) {
	layouts, err := h.service.Layouts(access.FromContext(r.Context()))
	if err != nil {
		h.fail(w, r, "failed to list layouts", err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   layouts,
		"count":  len(layouts),
	})
}

// GetDashboard handles GET /api/dashboards/{layout}
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.build(r)
	if err != nil {
		h.fail(w, r, "failed to build dashboard", err)
		return
	}
	render.JSON(w, r, d)
}

// ExportWorkbook handles GET /api/dashboards/{layout}/export.xlsx
func (h *DashboardHandler) ExportWorkbook(w http.ResponseWriter, r *http.Request) {
	d, err := h.build(r)
	if err != nil {
		h.fail(w, r, "failed to build dashboard", err)
		return
	}

	panels := d.Panels()
	tables := make([]domain.Table, len(panels))
	for i, p := range panels {
		tables[i] = p.Table()
	}

	var buf bytes.Buffer
	if err := exporter.WriteWorkbook(&buf, tables); err != nil {
		h.fail(w, r, "failed to export dashboard", apierrors.NewExportError("failed to write workbook", err))
		return
	}
	h.attach(w, contentTypeXLSX, fmt.Sprintf("%s-dashboard.xlsx", d.Layout), buf.Bytes())
}

// ExportPanel handles GET /api/dashboards/{layout}/panels/{panel}/export.csv
func (h *DashboardHandler) ExportPanel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	layout, panelID := chi.URLParam(r, "layout"), chi.URLParam(r, "panel")

	p, err := h.service.Panel(ctx, access.FromContext(ctx), layout, panelID, filtersFromQuery(r.URL.Query()))
	if err != nil {
		h.fail(w, r, "failed to compute panel", err)
		return
	}

	var buf bytes.Buffer
	if err := exporter.WriteTable(&buf, p.Table()); err != nil {
		h.fail(w, r, "failed to export panel", apierrors.NewExportError("failed to write csv", err))
		return
	}
	h.attach(w, contentTypeCSV, fmt.Sprintf("%s-%s.csv", layout, panelID), buf.Bytes())
}

func (h *DashboardHandler) build(r *http.Request) (dashboard.Dashboard, error) {
	ctx := r.Context()
	return h.service.Build(ctx, access.FromContext(ctx), chi.URLParam(r, "layout"), filtersFromQuery(r.URL.Query()))
}

func (h *DashboardHandler) attach(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// fail logs a failed request and writes its problem details.
func (h *DashboardHandler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.WarnContext(r.Context(), msg,
		slog.String("error", err.Error()),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("path", r.URL.Path),
	)
	h.errorHandler.HandleError(w, r, err)
}
