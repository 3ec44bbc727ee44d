package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"agencypulse/internal/dashboard"
	"agencypulse/internal/dataprocessing"
)

// Common error types following RFC 7807
const (
	TypeValidation   = "/errors/validation"
	TypeNotFound     = "/errors/not-found"
	TypeUnauthorized = "/errors/unauthorized"
	TypeRateLimit    = "/errors/rate-limit"
	TypeInternal     = "/errors/internal"
	TypeServiceDown  = "/errors/service-unavailable"
	TypeTimeout      = "/errors/timeout"
)

// Domain-specific error types
const (
	TypeDatasetUnavailable = "/errors/dataset/unavailable"
	TypeDatasetFormat      = "/errors/dataset/unsupported-format"
	TypeLayoutNotFound     = "/errors/dashboard/layout-not-found"
	TypeInvalidBins        = "/errors/dashboard/invalid-bins"
	TypeExportFailed       = "/errors/export/failed"
	TypeWebSocketUpgrade   = "/errors/websocket/upgrade-failed"
)

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := middleware.GetReqID(r.Context())
	problem := h.ErrorToProblem(err, r)

	level := slog.LevelWarn
	if problem.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "request failed",
		slog.String("error", err.Error()),
		slog.Int("status", problem.Status),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	problem.WithExtension("trace_id", reqID)
	if h.includeStack && problem.Status >= http.StatusInternalServerError {
		problem.WithExtension("stack", getStackTrace())
	}

	_ = render.Render(w, r, problem)
}

// ErrorToProblem converts an error to RFC 7807 Problem Details
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Timeout",
			"The request took too long to process and was cancelled",
			r.URL.Path,
		)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return h.apiErrorToProblem(apiErr, r)
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return h.appErrorToProblem(appErr, r)
	}

	var loadErr *dataprocessing.LoadError
	switch {
	case errors.Is(err, dataprocessing.ErrInvalidBins):
		return NewProblemDetails(http.StatusBadRequest, TypeInvalidBins,
			"Invalid Bin Specification", err.Error(), r.URL.Path)
	case errors.Is(err, dataprocessing.ErrUnsupportedFormat):
		return NewProblemDetails(http.StatusUnsupportedMediaType, TypeDatasetFormat,
			"Unsupported Dataset Format", err.Error(), r.URL.Path)
	case errors.As(err, &loadErr):
		return NewProblemDetails(ErrDatasetUnavailable.StatusCode, TypeDatasetUnavailable,
			"Dataset Unavailable", err.Error(), r.URL.Path).
			WithExtension("error_code", ErrDatasetUnavailable.ErrorCode).
			WithExtension("missing_columns", loadErr.Missing)
	}

	return NewProblemDetails(
		ErrInternalServer.StatusCode,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred while processing your request",
		r.URL.Path,
	)
}

// problemType maps an APIError code to its problem type URI.
func problemType(code string) string {
	switch code {
	case ErrValidationFailed.ErrorCode, ErrInvalidRequest.ErrorCode, ErrInvalidParameter.ErrorCode:
		return TypeValidation
	case ErrNotFound.ErrorCode:
		return TypeNotFound
	case ErrLayoutNotFound.ErrorCode:
		return TypeLayoutNotFound
	case ErrUnauthorized.ErrorCode:
		return TypeUnauthorized
	case ErrRateLimitExceeded.ErrorCode:
		return TypeRateLimit
	case ErrDatasetUnavailable.ErrorCode:
		return TypeDatasetUnavailable
	case ErrExportFailed.ErrorCode:
		return TypeExportFailed
	case ErrWebSocketUpgrade.ErrorCode:
		return TypeWebSocketUpgrade
	default:
		return TypeInternal
	}
}

// appErrorKinds gives each AppError type the predefined APIError it is
// answered with.
var appErrorKinds = map[ErrorType]*APIError{
	ErrTypeValidation:   ErrValidationFailed,
	ErrTypeParsing:      ErrInvalidParameter,
	ErrTypeNotFound:     ErrNotFound,
	ErrTypeUnauthorized: ErrUnauthorized,
	ErrTypeDataset:      ErrDatasetUnavailable,
	ErrTypeExport:       ErrExportFailed,
	ErrTypeConfig:       ErrInternalServer,
}

// apiErrorToProblem converts APIError to ProblemDetails
func (h *ErrorHandler) apiErrorToProblem(apiErr *APIError, r *http.Request) *ProblemDetails {
	problem := NewProblemDetails(
		apiErr.StatusCode,
		problemType(apiErr.ErrorCode),
		http.StatusText(apiErr.StatusCode),
		apiErr.Message,
		r.URL.Path,
	).WithExtension("error_code", apiErr.ErrorCode)

	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}

	return problem
}

// appErrorToProblem maps an AppError by its type. Internal causes are not
// echoed to the client.
func (h *ErrorHandler) appErrorToProblem(appErr *AppError, r *http.Request) *ProblemDetails {
	kind, ok := appErrorKinds[appErr.Type]
	if !ok {
		kind = ErrInternalServer
	}
	if kind == ErrNotFound && errors.Is(appErr.Cause, dashboard.ErrLayoutNotFound) {
		kind = ErrLayoutNotFound
	}

	detail := appErr.Message
	if kind.StatusCode == http.StatusBadRequest && appErr.Cause != nil {
		detail = fmt.Sprintf("%s: %v", appErr.Message, appErr.Cause)
	}

	status := kind.StatusCode
	problem := NewProblemDetails(status, problemType(kind.ErrorCode), http.StatusText(status), detail, r.URL.Path).
		WithExtension("error_code", kind.ErrorCode)
	for k, v := range appErr.Context {
		problem.WithExtension(k, v)
	}
	return problem
}

// HandlePanic recovers from panics and returns RFC 7807 error
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)

	problem := NewProblemDetails(
		ErrInternalServer.StatusCode,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred",
		r.URL.Path,
	).WithExtension("trace_id", reqID)

	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprintf("%v", recovered))
		problem.WithExtension("stack", getStackTrace())
	}

	_ = render.Render(w, r, problem)
}

// NotFound returns a standard 404 error
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		ErrNotFound.StatusCode,
		TypeNotFound,
		"Not Found",
		"The requested resource was not found",
		r.URL.Path,
	).
		WithExtension("error_code", ErrNotFound.ErrorCode).
		WithExtension("trace_id", middleware.GetReqID(r.Context()))

	_ = render.Render(w, r, problem)
}

// MethodNotAllowed returns a standard 405 error
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusMethodNotAllowed,
		TypeValidation,
		"Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method),
		r.URL.Path,
	).WithExtension("trace_id", middleware.GetReqID(r.Context()))

	_ = render.Render(w, r, problem)
}

// getStackTrace returns the current stack trace
func getStackTrace() string {
	buf := make([]byte, 1024*8)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
