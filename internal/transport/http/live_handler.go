package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	gorillaws "github.com/gorilla/websocket"

	"agencypulse/internal/access"
	"agencypulse/internal/config"
	apierrors "agencypulse/internal/errors"
	"agencypulse/internal/infrastructure"
	mw "agencypulse/internal/middleware"
	"agencypulse/internal/websocket"
	"agencypulse/pkg/contracts/events"
)

// LiveHandler upgrades /ws/dashboards/{layout} into a live dashboard
// session that recomputes on every filter message.
type LiveHandler struct {
	service      DashboardServiceInterface
	hub          *websocket.Hub
	upgrader     gorillaws.Upgrader
	cfg          config.WebSocketConfig
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewLiveHandler creates the websocket handler. Origins outside
// allowedOrigins are refused; "*" allows any.
func NewLiveHandler(service DashboardServiceInterface, hub *websocket.Hub, cfg config.WebSocketConfig, allowedOrigins []string, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *LiveHandler {
	h := &LiveHandler{
		service:      service,
		hub:          hub,
		cfg:          cfg,
		logger:       logger.With(slog.String("component", "live_handler")),
		errorHandler: errorHandler,
	}
	h.upgrader = gorillaws.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     checkOrigin(allowedOrigins),
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			h.errorHandler.HandleError(w, r, apierrors.ErrWebSocketUpgrade.WithStatus(status).WithDetails(reason.Error()))
		},
	}
	return h
}

// Routes returns the websocket routes
func (h *LiveHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/dashboards/{layout}", h.ServeWS)
	return r
}

// ServeWS handles GET /ws/dashboards/{layout}. Access and the layout are
// checked before the upgrade so failures are plain problem responses.
func (h *LiveHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ac := access.FromContext(ctx)
	layout := chi.URLParam(r, "layout")
	logger := infrastructure.LoggerWithContext(ctx, h.logger)

	if _, err := h.service.Layout(ac, layout); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WarnContext(ctx, "websocket upgrade failed",
			slog.String("error", err.Error()),
			slog.String("layout", layout))
		return
	}

	session := websocket.NewSession(h.hub, websocket.NewConnectionWrapper(conn), h.service, websocket.SessionOptions{
		Layout:   layout,
		Access:   ac,
		TraceID:  mw.GetRequestID(ctx),
		Config:   h.cfg,
		Describe: h.describe(r),
	}, h.logger)

	if err := session.Serve(); err != nil {
		logger.WarnContext(ctx, "live session rejected",
			slog.String("error", err.Error()),
			slog.String("layout", layout))
		return
	}
	logger.InfoContext(ctx, "live session started",
		slog.String("session_id", session.ID()),
		slog.String("layout", layout),
		slog.String("subject", ac.Subject))
}

// describe maps build failures onto the same problem types the REST
// endpoints use. Failures a new filter cannot fix end the session.
func (h *LiveHandler) describe(r *http.Request) func(error) events.ErrorData {
	return func(err error) events.ErrorData {
		problem := h.errorHandler.ErrorToProblem(err, r)
		return events.ErrorData{
			Code:    problem.Type,
			Message: problem.Detail,
			Details: problem.Extensions,
			Fatal: problem.Status == http.StatusUnauthorized ||
				problem.Status == http.StatusNotFound ||
				problem.Status >= http.StatusInternalServerError,
		}
	}
}

// checkOrigin accepts same-host requests and the configured origins.
func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || slices.Contains(allowed, "*") || slices.Contains(allowed, origin) {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}
