package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"golang.org/x/crypto/bcrypt"

	"agencypulse/internal/access"
	"agencypulse/internal/config"
	apperrors "agencypulse/internal/errors"
	"agencypulse/internal/infrastructure"
	"agencypulse/internal/shared/testutil"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRequestID(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"generated", ""},
		{"propagated", "req-123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen, traceID string
			h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = chimw.GetReqID(r.Context())
				traceID = infrastructure.GetTraceID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
			if tt.header != "" {
				req.Header.Set(RequestIDHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.NotEmpty(t, seen)
			assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
			assert.Equal(t, seen, traceID)
			if tt.header != "" {
				assert.Equal(t, tt.header, seen)
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	errHandler := apperrors.NewErrorHandler(logger, false)
	rl := NewRateLimiter(0.5, 1, errHandler, logger)
	h := rl.Handler(okHandler)

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/dataset", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/dataset", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "2", second.Header().Get("Retry-After"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &body))
	assert.Equal(t, apperrors.TypeRateLimit, body["type"])
	assert.True(t, handler.ContainsMessage("rate limit exceeded"))
}

func TestTimeout(t *testing.T) {
	var deadline time.Time
	var ok bool
	h := Timeout(time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok = r.Context().Deadline()
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
}

func TestCORS(t *testing.T) {
	cfg := config.Default().Security
	cfg.AllowedOrigins = []string{"http://dash.local"}
	h := CORS(cfg)(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/api/dataset", nil)
	req.Header.Set("Origin", "http://dash.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "http://dash.local", rec.Header().Get("Access-Control-Allow-Origin"))

	other := httptest.NewRequest(http.MethodGet, "/api/dataset", nil)
	other.Header.Set("Origin", "http://evil.local")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestAccessGate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	logger, handler := testutil.NewTestLogger(t)
	gate, err := access.NewTokenGate(string(hash), logger)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		query      string
		wantAuth   bool
		wantDenial string
	}{
		{"bearer header", "Bearer s3cret", "", true, ""},
		{"query token", "", "?token=s3cret", true, ""},
		{"wrong token", "Bearer nope", "", false, "invalid_token"},
		{"no token", "", "", false, "missing_token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler.Clear()
			var got access.Context
			h := AccessGate(gate, nil, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = access.FromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/dataset"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.wantAuth, got.Authenticated)
			if tt.wantDenial != "" {
				testutil.AssertLogContains(t, handler, slog.LevelWarn, "access denied")
				testutil.AssertLogAttr(t, handler, "reason", tt.wantDenial)
			} else {
				assert.Equal(t, access.MethodToken, got.Method)
				assert.False(t, handler.ContainsMessage("access denied"))
			}
		})
	}
}

func TestAccessGate_OpenGate(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	var got access.Context
	h := AccessGate(access.OpenGate{}, nil, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = access.FromContext(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/dataset", nil))

	assert.True(t, got.Authenticated)
	assert.Equal(t, access.MethodOpen, got.Method)
	assert.Zero(t, handler.Count())
}

func TestOTelMiddleware(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	providers, err := infrastructure.InitializeOTel(config.Default().Telemetry, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = providers.Shutdown(context.Background()) })
	metrics, err := infrastructure.CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)

	var traceID string
	r := chi.NewRouter()
	r.Use(NewOTelMiddleware(tp.Tracer("test"), metrics).Handler)
	r.Get("/api/dashboards/{layout}", func(w http.ResponseWriter, r *http.Request) {
		traceID = infrastructure.GetTraceID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboards/retention", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /api/dashboards/{layout}", spans[0].Name())
	assert.Equal(t, spans[0].SpanContext().TraceID().String(), traceID)

	scrape := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, scrape.Body.String(), `route="/api/dashboards/{layout}"`)
}

type rangeQuery struct {
	Field  string   `query:"field" validate:"required,measure"`
	By     string   `query:"by" validate:"omitempty,dimension"`
	Fields []string `query:"fields" validate:"omitempty,dive,measure"`
	Bins   int      `query:"bins" validate:"min=1,max=500"`
	Range  string   `query:"range" validate:"omitempty,oneof=filtered full"`
}

func TestValidator(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateStruct(rangeQuery{Field: "loss_ratio", By: "prod_line", Fields: []string{"retention_ratio"}, Bins: 10, Range: "full"}))

	err := v.ValidateStruct(rangeQuery{Field: "premium", By: "region", Fields: []string{"nope"}, Bins: 0, Range: "global"})
	require.Error(t, err)

	var apiErr *apperrors.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	details := apiErr.Details.(apperrors.ValidationErrors)

	fields := map[string]string{}
	for _, e := range details.Errors {
		fields[e.Field] = e.Message
	}
	assert.Contains(t, fields["field"], "measure column")
	assert.Contains(t, fields["by"], "prod_line")
	assert.Contains(t, fields["fields[0]"], "measure column")
	assert.Equal(t, "bins must be at least 1", fields["bins"])
	assert.Equal(t, "range must be one of: filtered, full", fields["range"])
}
