package websocket

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"agencypulse/internal/infrastructure"
)

// ErrHubStopped is returned when a session registers after Stop.
var ErrHubStopped = errors.New("websocket hub stopped")

// Hub tracks the open live dashboard sessions. Each session computes its
// own dashboard; the hub owns registration, the live session gauge and
// shutdown.
type Hub struct {
	sessions map[*Session]struct{}

	register   chan *Session
	unregister chan *Session

	mu      sync.RWMutex
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics

	totalSessions int64

	quit     chan struct{}
	running  bool
	stopped  bool
	stopOnce sync.Once
}

// NewHub creates a hub. metrics may be nil.
func NewHub(metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	return &Hub{
		sessions:   make(map[*Session]struct{}),
		register:   make(chan *Session),
		unregister: make(chan *Session),
		logger:     infrastructure.WithComponent(logger, "websocket.hub"),
		metrics:    metrics,
		quit:       make(chan struct{}),
	}
}

// Start runs the hub loop once.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.Run()
}

// Run is the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			h.logger.Info("Hub shutting down")
			return

		case s := <-h.register:
			h.add(s)

		case s := <-h.unregister:
			h.mu.Lock()
			_, ok := h.sessions[s]
			delete(h.sessions, s)
			count := len(h.sessions)
			h.mu.Unlock()

			if !ok {
				continue
			}
			s.close()
			h.recordLive(s, -1)
			h.logger.InfoContext(s.ctx, "Session unregistered",
				slog.Int("active_sessions", count),
				slog.String("session_id", s.id),
				slog.Duration("connection_duration", time.Since(s.connectedAt)))
		}
	}
}

// add tracks s. A session that raced Stop through the register channel is
// closed instead, so its pumps exit.
func (h *Hub) add(s *Session) bool {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		s.close()
		h.logger.WarnContext(s.ctx, "Session registered after hub stop",
			slog.String("session_id", s.id))
		return false
	}
	h.sessions[s] = struct{}{}
	h.totalSessions++
	count := len(h.sessions)
	h.mu.Unlock()

	h.recordLive(s, 1)
	h.logger.InfoContext(s.ctx, "Session registered",
		slog.Int("active_sessions", count),
		slog.String("session_id", s.id),
		slog.String("layout", s.layout),
		slog.String("remote_addr", s.remoteAddr))
	return true
}

// Register adds a session. It fails once the hub is stopped.
func (h *Hub) Register(s *Session) error {
	select {
	case h.register <- s:
		return nil
	case <-h.quit:
		return ErrHubStopped
	}
}

// Unregister removes a session and closes it.
func (h *Hub) Unregister(s *Session) {
	select {
	case h.unregister <- s:
	case <-h.quit:
	}
}

// Count returns the number of open sessions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Stop ends the hub loop and closes every open session.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.quit)

		h.mu.Lock()
		defer h.mu.Unlock()
		h.running = false
		h.stopped = true
		for s := range h.sessions {
			s.close()
			h.recordLive(s, -1)
			delete(h.sessions, s)
		}
		h.logger.Info("Hub stopped", slog.Int64("total_sessions", h.totalSessions))
	})
}

func (h *Hub) recordLive(s *Session, delta int64) {
	if h.metrics == nil {
		return
	}
	h.metrics.LiveSessions.Add(context.Background(), delta,
		metric.WithAttributes(attribute.String("layout", s.layout)))
}
