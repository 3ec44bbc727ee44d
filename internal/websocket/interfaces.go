package websocket

import (
	"context"
	"time"

	"agencypulse/internal/access"
	"agencypulse/internal/dashboard"
	"agencypulse/internal/dataprocessing"
)

// Connection is the part of a websocket connection a session uses. It
// lets tests drive sessions without a network.
type Connection interface {
	// WriteMessage writes a message with the given message type and payload
	WriteMessage(messageType int, data []byte) error

	// ReadMessage reads the next message from the connection
	ReadMessage() (messageType int, p []byte, err error)

	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(string) error)

	// RemoteAddr returns the remote network address
	RemoteAddr() string
}

// Builder computes a dashboard for one filter selection.
type Builder interface {
	Build(ctx context.Context, ac access.Context, layout string, filters dataprocessing.FilterSpec) (dashboard.Dashboard, error)
}
