// Package services implements the business logic layer of Agency Pulse.
// It sits between the HTTP handlers and the analytics pipeline so that
// access checks, filter validation and dashboard assembly live in one place.
//
// # Services
//
//	- DashboardService: builds dashboards and answers aggregate queries
//	- HealthService: health, readiness, liveness and version checks
//
// # Access
//
// Every DashboardService method takes the caller's access.Context
// explicitly. An unauthenticated context is rejected with ErrAccessDenied
// wrapped in an unauthorized AppError, before any data is touched:
//
//	d, err := svc.Build(ctx, access.FromContext(ctx), "retention", filters)
//	if errors.Is(err, services.ErrAccessDenied) {
//	    // 401
//	}
//
// # Concurrency
//
// The dataset is shared and immutable. Build filters one view per call and
// computes the panels of the layout concurrently with an errgroup bounded
// by the configured worker count. Each build and each panel gets its own
// span, and their durations are recorded as metrics.
//
// # Error Handling
//
// Services return internal/errors AppErrors that the HTTP layer maps to
// problem details:
//
//	- validation errors for unknown filter dimensions or bad query parameters
//	- not found errors for unknown layouts and panels
//	- unauthorized errors for rejected access contexts
package services
