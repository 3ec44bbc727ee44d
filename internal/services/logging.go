package services

import (
	"context"
	"log/slog"

	"agencypulse/internal/infrastructure"
)

// logServiceError logs a failed service operation with its action name.
func logServiceError(ctx context.Context, logger *slog.Logger, action, message string, err error, attrs ...slog.Attr) {
	allAttrs := append([]slog.Attr{slog.String("action", action)}, attrs...)
	infrastructure.WithError(logger, err).LogAttrs(ctx, slog.LevelError, message, allAttrs...)
}
