package signal

import (
	"sync"

	"github.com/gorilla/websocket"

	"interview/internal/ident"
	"interview/internal/models"
)

// Client is one live participant connection. Identity comes from the verified
// room token, never from message payloads.
type Client struct {
	ID       string
	UserID   string
	UserName string

	mu     sync.Mutex
	conn   *websocket.Conn
	hook   func(models.WSFrame)
	closed bool
}

func NewClient(conn *websocket.Conn, userID, userName string) *Client {
	return &Client{
		ID:       ident.ConnectionID(),
		UserID:   userID,
		UserName: userName,
		conn:     conn,
	}
}

// SetSendHook replaces the default WebSocket sender (used in tests).
func (c *Client) SetSendHook(fn func(models.WSFrame)) {
	c.mu.Lock()
	c.hook = fn
	c.mu.Unlock()
}

func (c *Client) Send(frame models.WSFrame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.hook != nil {
		c.hook(frame)
		return
	}
	if c.conn == nil {
		return
	}
	_ = c.conn.WriteJSON(frame)
}

// Close terminates the underlying connection. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Client) asRoomUser() models.RoomUser {
	return models.RoomUser{ConnectionID: c.ID, UserID: c.UserID, UserName: c.UserName}
}
