package websocket

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// MockConnection is an in-memory Connection. ReadMessage blocks until a
// message is pushed or the connection is closed.
type MockConnection struct {
	mu sync.Mutex

	WrittenMessages []MockMessage
	WriteErr        error

	reads     chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	ReadLimit     int64
	ReadDeadline  time.Time
	WriteDeadline time.Time
	PongHandler   func(string) error
	RemoteAddress string
}

// MockMessage is one written frame.
type MockMessage struct {
	Type int
	Data []byte
}

// wireMessage is the decoded form of a server message.
type wireMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func NewMockConnection() *MockConnection {
	return &MockConnection{
		reads:         make(chan []byte, 8),
		closed:        make(chan struct{}),
		RemoteAddress: "127.0.0.1:8080",
	}
}

func (m *MockConnection) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isClosed() {
		return errors.New("connection closed")
	}
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.WrittenMessages = append(m.WrittenMessages, MockMessage{Type: messageType, Data: data})
	return nil
}

func (m *MockConnection) ReadMessage() (int, []byte, error) {
	select {
	case data := <-m.reads:
		return websocket.TextMessage, data, nil
	case <-m.closed:
		return 0, nil, &websocket.CloseError{Code: websocket.CloseNormalClosure}
	}
}

func (m *MockConnection) Close() error {
	m.closeOnce.Do(func() { close(m.closed) })
	return nil
}

func (m *MockConnection) SetReadDeadline(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadDeadline = t
	return nil
}

func (m *MockConnection) SetWriteDeadline(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WriteDeadline = t
	return nil
}

func (m *MockConnection) SetReadLimit(limit int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadLimit = limit
}

func (m *MockConnection) SetPongHandler(h func(string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PongHandler = h
}

func (m *MockConnection) RemoteAddr() string {
	return m.RemoteAddress
}

// Push queues a client message for ReadMessage.
func (m *MockConnection) Push(data string) {
	m.reads <- []byte(data)
}

// Closed reports whether Close was called.
func (m *MockConnection) Closed() bool {
	return m.isClosed()
}

func (m *MockConnection) isClosed() bool {
	select {
	case <-m.closed:
		return true
	default:
		return false
	}
}

// Messages returns the text frames written so far, decoded.
func (m *MockConnection) Messages() []wireMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []wireMessage
	for _, msg := range m.WrittenMessages {
		if msg.Type != websocket.TextMessage {
			continue
		}
		var w wireMessage
		if err := json.Unmarshal(msg.Data, &w); err == nil {
			out = append(out, w)
		}
	}
	return out
}

// MessagesOfType returns the decoded text frames of one type.
func (m *MockConnection) MessagesOfType(t string) []wireMessage {
	var out []wireMessage
	for _, msg := range m.Messages() {
		if msg.Type == t {
			out = append(out, msg)
		}
	}
	return out
}

// Frames returns every written frame type in order.
func (m *MockConnection) Frames() []int {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]int, len(m.WrittenMessages))
	for i, msg := range m.WrittenMessages {
		out[i] = msg.Type
	}
	return out
}
