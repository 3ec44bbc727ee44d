package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"agencypulse/internal/access"
	"agencypulse/internal/config"
	"agencypulse/internal/dataprocessing"
	"agencypulse/internal/infrastructure"
	"agencypulse/pkg/contracts/events"
)

// sendBuffer is the number of outbound messages a session queues before
// it starts dropping them.
const sendBuffer = 16

// SessionOptions configure one live dashboard session.
type SessionOptions struct {
	Layout  string
	Access  access.Context
	TraceID string
	Config  config.WebSocketConfig

	// Describe turns a build failure into an error message. Fatal errors
	// end the session after the message is written.
	Describe func(error) events.ErrorData
}

// Session is one live dashboard connection. Every filter message from the
// client recomputes the whole dashboard and sends it back.
type Session struct {
	hub     *Hub
	conn    Connection
	builder Builder

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	ctx    context.Context
	cancel context.CancelFunc

	id          string
	layout      string
	traceID     string
	remoteAddr  string
	access      access.Context
	cfg         config.WebSocketConfig
	describe    func(error) events.ErrorData
	connectedAt time.Time

	logger *slog.Logger

	messagesSent     int64
	messagesReceived int64
}

// NewSession creates a session on conn. Call Serve to start it.
func NewSession(hub *Hub, conn Connection, builder Builder, opts SessionOptions, logger *slog.Logger) *Session {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if opts.Describe == nil {
		opts.Describe = describeError
	}
	if opts.Config.PingPeriod <= 0 || opts.Config.PongWait <= 0 {
		opts.Config.PingPeriod = config.WebSocketPingPeriod
		opts.Config.PongWait = config.WebSocketPongWait
	}

	id := uuid.New().String()
	base := context.Background()
	if opts.TraceID != "" {
		base = infrastructure.WithTraceID(base, opts.TraceID)
	}
	base = infrastructure.EnsureTraceID(base)
	traceID := infrastructure.GetTraceID(base)
	ctx, cancel := context.WithCancel(base)

	return &Session{
		hub:         hub,
		conn:        conn,
		builder:     builder,
		send:        make(chan []byte, sendBuffer),
		done:        make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
		id:          id,
		layout:      opts.Layout,
		traceID:     traceID,
		remoteAddr:  conn.RemoteAddr(),
		access:      opts.Access,
		cfg:         opts.Config,
		describe:    opts.Describe,
		connectedAt: time.Now(),
		logger: infrastructure.LoggerWithContext(ctx, infrastructure.WithComponent(logger, "websocket.session")).With(
			slog.String("session_id", id),
			slog.String("layout", opts.Layout),
		),
	}
}

// ID returns the session identifier sent in the connect message.
func (s *Session) ID() string { return s.id }

// Serve registers the session, queues the connect message and starts the
// pumps.
func (s *Session) Serve() error {
	if err := s.hub.Register(s); err != nil {
		s.close()
		_ = s.conn.Close()
		return err
	}
	s.queueMessage(events.MessageTypeConnect, events.ConnectData{
		ClientID: s.id,
		Layout:   s.layout,
		Subject:  s.access.Subject,
	})

	go s.WritePump()
	go s.ReadPump()
	return nil
}

// ReadPump sends the unfiltered dashboard, then rebuilds it for every
// filter message until the connection ends.
func (s *Session) ReadPump() {
	defer func() {
		s.logger.InfoContext(s.ctx, "Session disconnected (readPump)",
			slog.Duration("connection_duration", time.Since(s.connectedAt)),
			slog.Int64("messages_received", s.messagesReceived))
		s.hub.Unregister(s)
		s.close()
	}()

	s.conn.SetReadLimit(config.WebSocketMaxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})

	if !s.refresh(nil) {
		return
	}

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.ErrorContext(s.ctx, "Unexpected WebSocket close error",
					slog.String("error", err.Error()))
			}
			return
		}
		s.messagesReceived++

		var req events.FilterRequest
		if err := json.Unmarshal(bytes.TrimSpace(message), &req); err != nil {
			s.queueMessage(events.MessageTypeError, events.ErrorData{
				Code:    events.CodeBadMessage,
				Message: "message is not a filter request",
				Details: err.Error(),
			})
			continue
		}

		switch req.Type {
		case events.MessageTypeHeartbeat:
			s.logger.DebugContext(s.ctx, "Heartbeat received")
		case "", events.MessageTypeFilters:
			if !s.refresh(req.Filters) {
				return
			}
		default:
			s.queueMessage(events.MessageTypeError, events.ErrorData{
				Code:    events.CodeUnknownType,
				Message: "unknown message type " + string(req.Type),
			})
		}
	}
}

// refresh rebuilds the dashboard for the given picker values and queues
// the result. It reports whether the session should stay open.
func (s *Session) refresh(values map[string]string) bool {
	filters := dataprocessing.Selection(values)

	d, err := s.builder.Build(s.ctx, s.access, s.layout, filters)
	if err != nil {
		if s.ctx.Err() != nil {
			return false
		}
		data := s.describe(err)
		s.logger.WarnContext(s.ctx, "Dashboard build failed",
			slog.String("code", data.Code),
			slog.Bool("fatal", data.Fatal),
			slog.String("error", err.Error()))
		s.queueMessage(events.MessageTypeError, data)
		return !data.Fatal
	}

	s.queueMessage(events.MessageTypeDashboard, d)
	return true
}

// WritePump writes queued messages and keeps the connection alive with
// pings. On close it flushes what is queued and sends a close frame.
func (s *Session) WritePump() {
	ticker := time.NewTicker(s.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		s.close()
		_ = s.conn.Close()
		s.logger.InfoContext(s.ctx, "WebSocket write pump stopped",
			slog.Int64("messages_sent", s.messagesSent))
	}()

	for {
		select {
		case message := <-s.send:
			if err := s.write(websocket.TextMessage, message); err != nil {
				s.logger.ErrorContext(s.ctx, "Error writing message to WebSocket",
					slog.String("error", err.Error()))
				return
			}

		case <-ticker.C:
			if err := s.write(websocket.PingMessage, nil); err != nil {
				s.logger.DebugContext(s.ctx, "Failed to send ping message",
					slog.String("error", err.Error()))
				return
			}

		case <-s.done:
		drain:
			for {
				select {
				case message := <-s.send:
					if err := s.write(websocket.TextMessage, message); err != nil {
						return
					}
				default:
					break drain
				}
			}
			_ = s.write(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (s *Session) write(messageType int, data []byte) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(config.WebSocketWriteWait))
	if err := s.conn.WriteMessage(messageType, data); err != nil {
		return err
	}
	if messageType == websocket.TextMessage {
		s.messagesSent++
	}
	return nil
}

// queueMessage marshals a server message and queues it without blocking.
func (s *Session) queueMessage(t events.MessageType, data interface{}) bool {
	msg := events.NewMessage(uuid.New().String(), t, s.traceID, data)
	payload, err := json.Marshal(msg)
	if err != nil {
		s.logger.ErrorContext(s.ctx, "Error marshaling message",
			slog.String("message_type", string(t)),
			slog.String("error", err.Error()))
		return false
	}

	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.send <- payload:
		return true
	case <-s.done:
		return false
	default:
		s.logger.WarnContext(s.ctx, "Session send buffer full, dropping message",
			slog.String("message_type", string(t)))
		return false
	}
}

// close ends the session once. Pumps notice through done and the context.
func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.cancel()
	})
}

func describeError(err error) events.ErrorData {
	if errors.Is(err, context.DeadlineExceeded) {
		return events.ErrorData{Code: events.CodeInternal, Message: "dashboard build timed out"}
	}
	return events.ErrorData{Code: events.CodeInternal, Message: err.Error()}
}
