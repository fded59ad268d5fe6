package realtime

import (
	"context"
	"encoding/json"
	"time"

	ws "github.com/coder/websocket"
	"github.com/google/uuid"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
)

// inbound is a frame sent by the browser to manage room membership.
type inbound struct {
	Action  string `json:"action"`
	ShareID string `json:"share_id"`
}

// Client represents a single WebSocket session. Each connection gets
// its own session ID; one user with several tabs open holds several
// sessions.
type Client struct {
	hub       *Hub
	conn      *ws.Conn
	sessionID string
	userID    int64
	send      chan []byte
}

// NewClient creates a Client for an accepted connection, assigning it
// a fresh session ID.
func NewClient(hub *Hub, conn *ws.Conn, userID int64) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		sessionID: uuid.NewString(),
		userID:    userID,
		send:      make(chan []byte, sendBufferSize),
	}
}

// SessionID returns the identifier assigned to this connection.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Run registers the client, starts the write pump, and runs the read
// pump. It blocks until the connection closes, then unregisters, which
// removes the session from every share room it joined.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writePump(ctx)
	c.readPump(ctx)
}

// readPump consumes inbound frames and applies join/leave actions. It
// returns on read error (connection close or transport timeout), which
// triggers the disconnect cleanup in Run.
func (c *Client) readPump(ctx context.Context) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Action {
		case "join_share":
			c.hub.Join(c, msg.ShareID)
		case "leave_share":
			c.hub.Leave(c, msg.ShareID)
		}
	}
}

// writePump drains the send channel and writes messages to the
// WebSocket. It also sends periodic pings to detect stale connections.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				// Hub closed the channel — connection is done
				return
			}
			if err := c.conn.Write(ctx, ws.MessageText, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
