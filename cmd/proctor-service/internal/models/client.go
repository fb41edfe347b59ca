package models

import (
	"github.com/gorilla/websocket"
)

// Client represents one live WebSocket connection. The SID is assigned on
// connect and is the identity peers address each other by; a client belongs
// to at most one room at a time.
type Client struct {
	SID  string
	Conn *websocket.Conn
	Room *Room
	Send chan []byte
	Done chan struct{}
}

// Emit queues an event on the client's send channel without blocking.
// Returns false when the channel is full and the frame was dropped.
func (c *Client) Emit(message []byte) bool {
	if message == nil {
		return false
	}
	select {
	case c.Send <- message:
		return true
	default:
		return false
	}
}
