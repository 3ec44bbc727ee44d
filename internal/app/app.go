package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"agencypulse/internal/access"
	"agencypulse/internal/config"
	"agencypulse/internal/dashboard"
	"agencypulse/internal/dataprocessing"
	apierrors "agencypulse/internal/errors"
	"agencypulse/internal/infrastructure"
	mw "agencypulse/internal/middleware"
	"agencypulse/internal/services"
	handlers "agencypulse/internal/transport/http"
	"agencypulse/internal/validation"
	ws "agencypulse/internal/websocket"
	"agencypulse/pkg/contracts"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics

	Dataset  *dataprocessing.Dataset
	Registry *dashboard.Registry
	Gate     access.Gate

	DashboardService *services.DashboardService
	HealthService    *services.HealthService
	WebSocketHub     *ws.Hub
	ErrorHandler     *apierrors.ErrorHandler

	Router *chi.Mux
	Server *http.Server

	startedAt time.Time
	listener  net.Listener
}

// NewApplication loads the configuration, initializes the global logger
// and builds the application.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.String("build", contracts.FullVersion()),
		slog.Bool("stable", contracts.IsStable()))

	paths, err := config.GetPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(cfg)

	return New(cfg, logger)
}

// New builds the application from an already loaded configuration. The
// dataset is read once here; a dataset that cannot be loaded is fatal.
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	otelProviders, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		startedAt:     time.Now(),
	}

	if err := app.initializeServices(); err != nil {
		_ = otelProviders.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices loads the dataset and layouts and wires the services
// over them.
func (a *Application) initializeServices() error {
	metrics, err := infrastructure.CreateBusinessMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create business metrics: %w", err)
	}
	a.Metrics = metrics

	files := validation.NewFileValidator(a.Logger)
	if err := files.ValidateDataset(a.Config.Data.Path); err != nil {
		return fmt.Errorf("failed to load dataset %s: %w", a.Config.Data.Path, err)
	}
	ds, err := dataprocessing.LoadFile(a.Config.Data.Path)
	if err != nil {
		return fmt.Errorf("failed to load dataset %s: %w", a.Config.Data.Path, err)
	}
	a.Dataset = ds
	a.Logger.Info("Dataset loaded",
		slog.String("source", ds.Source()),
		slog.Int("records", ds.Len()))

	if err := infrastructure.RegisterDatasetGauge(a.OTelProviders.Meter, ds.Source(), func() int64 {
		return int64(ds.Len())
	}); err != nil {
		return fmt.Errorf("failed to register dataset gauge: %w", err)
	}
	if err := infrastructure.RegisterRuntimeGauges(a.OTelProviders.Meter, a.startedAt); err != nil {
		return fmt.Errorf("failed to register runtime gauges: %w", err)
	}

	if a.Config.Data.LayoutsFile != "" {
		if err := files.ValidateLayoutsFile(a.Config.Data.LayoutsFile); err != nil {
			return fmt.Errorf("failed to load layouts: %w", err)
		}
	}
	reg, err := dashboard.LoadRegistry(a.Config.Data.LayoutsFile)
	if err != nil {
		return fmt.Errorf("failed to load layouts: %w", err)
	}
	a.Registry = reg

	gate, err := access.NewGate(a.Config.Security.Access, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create access gate: %w", err)
	}
	a.Gate = gate

	policy := dataprocessing.RetentionPolicy{
		High:   a.Config.Data.RetentionHigh,
		Medium: a.Config.Data.RetentionMedium,
	}
	if err := policy.Validate(); err != nil {
		return apierrors.NewConfigError("invalid retention thresholds", err)
	}

	a.DashboardService = services.NewDashboardService(ds, reg, services.DashboardOptions{
		Policy:     policy,
		MaxWorkers: a.Config.Data.MaxPanelWorkers,
		Tracer:     a.OTelProviders.Tracer,
		Metrics:    metrics,
	}, a.Logger)
	a.HealthService = services.NewHealthService(config.AppVersion, ds, reg, a.Logger)
	a.WebSocketHub = ws.NewHub(metrics, a.Logger)
	a.ErrorHandler = apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)

	a.Logger.Info("Services initialized",
		slog.Int("layouts", len(reg.List())),
		slog.Bool("access_gate", gate.Enabled()))
	return nil
}

// setupRouter builds the HTTP routes. Health and metrics stay outside the
// access gate; everything else resolves an access context first.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	r.Use(mw.RequestID)
	r.Use(mw.RealIP)
	r.Use(mw.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics).Handler)
	r.Use(apierrors.NewErrorMiddleware(a.ErrorHandler, a.Logger).Handler)
	r.Use(mw.SecurityHeaders)

	if a.Config.Security.EnableCORS {
		r.Use(mw.CORS(a.Config.Security))
	}

	if rl := a.Config.Security.RateLimit; rl.Enabled {
		r.Use(mw.NewRateLimiter(rl.RPS, rl.Burst, a.ErrorHandler, a.Logger).Handler)
	}

	validator := mw.NewValidator()

	r.Route("/api", func(r chi.Router) {
		r.Use(mw.Timeout(a.Config.Server.RequestTimeout))

		handlers.NewHealthHandler(a.HealthService, a.Logger).RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(mw.AccessGate(a.Gate, a.Metrics, a.Logger))
			r.Mount("/", handlers.NewDashboardHandler(a.DashboardService, validator, a.Logger, a.ErrorHandler).Routes())
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(mw.AccessGate(a.Gate, a.Metrics, a.Logger))
		r.Mount("/ws", handlers.NewLiveHandler(a.DashboardService, a.WebSocketHub, a.Config.WebSocket,
			a.Config.Security.AllowedOrigins, a.Logger, a.ErrorHandler).Routes())
	})

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start binds the listener and serves in the background. A serve failure
// calls cancel so Run can shut down.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	a.listener = ln

	a.WebSocketHub.Start()

	go func() {
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Application started",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.String("address", ln.Addr().String()),
		slog.Int("records", a.Dataset.Len()),
		slog.Bool("access_gate", a.Gate.Enabled()))
	return nil
}

// Addr returns the bound listen address once Start has run.
func (a *Application) Addr() string {
	if a.listener == nil {
		return a.Server.Addr
	}
	return a.listener.Addr().String()
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	// Hijacked websocket connections are not covered by Shutdown.
	a.WebSocketHub.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete",
		slog.Duration("uptime", time.Since(a.startedAt)))
	return errors.Join(errs...)
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	<-ctx.Done()
	a.Logger.Info("Received shutdown signal")

	// The signal context is done; shutdown gets a fresh one.
	return a.Stop(context.Background())
}
