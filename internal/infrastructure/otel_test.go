package infrastructure

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agencypulse/internal/config"
)

func testTelemetryConfig() config.TelemetryConfig {
	cfg := config.Default().Telemetry
	cfg.Environment = "test"
	return cfg
}

func TestOTelInitialization(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	providers, err := InitializeOTel(testTelemetryConfig(), logger)
	require.NoError(t, err)
	require.NotNil(t, providers)

	assert.Nil(t, providers.TracerProvider, "trace exporter defaults to none")
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.PrometheusHTTP)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestOTelInitialization_Disabled(t *testing.T) {
	cfg := testTelemetryConfig()
	cfg.MetricExporter = "none"

	providers, err := InitializeOTel(cfg, nil)
	require.NoError(t, err)

	assert.Nil(t, providers.MeterProvider)
	assert.Nil(t, providers.PrometheusHTTP)
	require.NotNil(t, providers.Meter, "no-op meter still usable")

	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)
	RecordDashboardBuild(context.Background(), metrics, "retention", time.Millisecond, nil)
}

func TestOTelInitialization_UnsupportedExporter(t *testing.T) {
	cfg := testTelemetryConfig()
	cfg.TraceExporter = "zipkin"

	_, err := InitializeOTel(cfg, nil)
	assert.Error(t, err)
}

func TestBusinessMetrics_Exposed(t *testing.T) {
	providers, err := InitializeOTel(testTelemetryConfig(), nil)
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)
	require.NoError(t, RegisterDatasetGauge(providers.Meter, "test.csv", func() int64 { return 42 }))

	ctx := context.Background()
	RecordDashboardBuild(ctx, metrics, "retention", 20*time.Millisecond, nil)
	RecordDashboardBuild(ctx, metrics, "retention", 5*time.Millisecond, errors.New("boom"))
	RecordPanelCompute(ctx, metrics, "histogram", time.Millisecond)
	RecordAccessDenied(ctx, metrics, "invalid_token")

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, "dashboard_builds_total")
	assert.Contains(t, text, "dashboard_build_duration_seconds")
	assert.Contains(t, text, "panel_compute_duration_seconds")
	assert.Contains(t, text, "access_denials_total")
	assert.Contains(t, text, "dataset_records")
	assert.Contains(t, text, `layout="retention"`)
}

func TestRecordHelpers_NilMetrics(t *testing.T) {
	ctx := context.Background()
	assert.NotPanics(t, func() {
		RecordDashboardBuild(ctx, nil, "x", time.Second, nil)
		RecordPanelCompute(ctx, nil, "kpi", time.Second)
		RecordAccessDenied(ctx, nil, "missing_token")
		RecordError(ctx, errors.New("not recording"))
	})
}

func TestRuntimeStats(t *testing.T) {
	start := time.Now().Add(-time.Minute)
	stats := CollectRuntimeStats(start)

	assert.Positive(t, stats.Goroutines)
	assert.Positive(t, stats.CPUCount)
	assert.GreaterOrEqual(t, stats.UptimeSeconds, 60.0)

	providers, err := InitializeOTel(testTelemetryConfig(), nil)
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())
	require.NoError(t, RegisterRuntimeGauges(providers.Meter, start))

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "system_goroutines")
}
