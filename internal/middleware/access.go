package middleware

import (
	"log/slog"
	"net/http"

	"agencypulse/internal/access"
	"agencypulse/internal/infrastructure"
)

// AccessGate resolves the authorization context of every request and
// stores it on the request context. It never rejects: the services decide,
// so handlers and websocket sessions share one rule.
func AccessGate(gate access.Gate, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) func(next http.Handler) http.Handler {
	logger = infrastructure.WithComponent(logger, "access_gate")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ac := access.Resolve(gate, r)

			if !ac.Authenticated && gate.Enabled() {
				reason := "invalid_token"
				if access.Credential(r) == "" {
					reason = "missing_token"
				}
				infrastructure.RecordAccessDenied(ctx, metrics, reason)
				logger.WarnContext(ctx, "access denied",
					slog.String("reason", reason),
					slog.String("path", r.URL.Path),
					slog.String("request_id", GetRequestID(ctx)),
				)
			}

			next.ServeHTTP(w, r.WithContext(access.WithContext(ctx, ac)))
		})
	}
}
