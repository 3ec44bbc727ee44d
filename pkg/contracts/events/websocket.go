// Package events contains the message contracts of the live dashboard
// WebSocket.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Server messages
	MessageTypeConnect   MessageType = "connect"
	MessageTypeDashboard MessageType = "dashboard"
	MessageTypeError     MessageType = "error"

	// Client messages
	MessageTypeFilters   MessageType = "filters"
	MessageTypeHeartbeat MessageType = "heartbeat"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`       // Unique message ID
	Type      MessageType `json:"type"`               // Message type
	Timestamp time.Time   `json:"timestamp"`          // Message timestamp
	TraceID   string      `json:"trace_id,omitempty"` // Request trace ID
}

// WebSocketMessage represents a complete server message
type WebSocketMessage struct {
	BaseMessage
	Data interface{} `json:"data,omitempty"` // Message payload
}

// FilterRequest is sent by the client to recompute the dashboard. Keys are
// dimension names; an empty value or "All" leaves the dimension open.
type FilterRequest struct {
	Type    MessageType       `json:"type,omitempty"`
	Filters map[string]string `json:"filters"`
}

// ConnectData is the payload of the connect message.
type ConnectData struct {
	ClientID string `json:"client_id"`
	Layout   string `json:"layout"`
	Subject  string `json:"subject"`
}

// ErrorData is the payload of an error message. Fatal errors close the
// connection.
type ErrorData struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Fatal   bool        `json:"fatal"`
}

// Error codes carried by ErrorData that do not come from a problem type.
const (
	CodeBadMessage  = "bad_message"
	CodeUnknownType = "unknown_type"
	CodeInternal    = "internal"
)

// NewMessage builds a server message stamped with the current time.
func NewMessage(id string, t MessageType, traceID string, data interface{}) WebSocketMessage {
	return WebSocketMessage{
		BaseMessage: BaseMessage{
			ID:        id,
			Type:      t,
			Timestamp: time.Now().UTC(),
			TraceID:   traceID,
		},
		Data: data,
	}
}
