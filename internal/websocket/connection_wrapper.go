package websocket

import (
	"github.com/gorilla/websocket"
)

// ConnectionWrapper adapts a gorilla connection to Connection.
type ConnectionWrapper struct {
	*websocket.Conn
}

// NewConnectionWrapper wraps an upgraded connection.
func NewConnectionWrapper(conn *websocket.Conn) Connection {
	return &ConnectionWrapper{Conn: conn}
}

// RemoteAddr returns the peer address as a string.
func (c *ConnectionWrapper) RemoteAddr() string {
	if addr := c.Conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
