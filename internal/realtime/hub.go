package realtime

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Message is a realtime notification sent to share room members.
type Message struct {
	Type      string         `json:"type"`
	ShareID   string         `json:"share_id,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	Entity    string         `json:"entity,omitempty"`
	Action    string         `json:"action,omitempty"`
	ID        int64          `json:"id,omitempty"`
	Members   []string       `json:"members,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// NewEvent creates an entity change Message with the Type field derived
// from entity and action.
func NewEvent(shareID, entity, action string, id int64, extra map[string]any) Message {
	return Message{
		Type:    fmt.Sprintf("%s_%s", entity, action),
		ShareID: shareID,
		Entity:  entity,
		Action:  action,
		ID:      id,
		Extra:   extra,
	}
}

// Hub owns the set of connected clients and fans messages out to share
// rooms. Room membership itself lives in the Registry; the Hub maps
// session IDs back to connections.
type Hub struct {
	mu       sync.RWMutex
	registry *Registry
	clients  map[string]*Client
	logger   *slog.Logger
}

func NewHub(registry *Registry, logger *slog.Logger) *Hub {
	return &Hub{
		registry: registry,
		clients:  make(map[string]*Client),
		logger:   logger,
	}
}

// Register adds a connected client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.sessionID] = c
	h.mu.Unlock()
}

// Unregister removes a client, closes its send channel, and leaves
// every share room it had joined, notifying the remaining members.
// Safe to call more than once for the same client.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c.sessionID]
	if ok {
		delete(h.clients, c.sessionID)
		close(c.send)
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	for _, shareID := range h.registry.Disconnect(c.sessionID) {
		h.notifyRoom(shareID, Message{
			Type:      "member_left",
			ShareID:   shareID,
			SessionID: c.sessionID,
			Members:   h.registry.MembersOf(shareID),
		}, c.sessionID)
	}
}

// Join subscribes the client's session to a share room. The joining
// client gets an ack carrying the membership snapshot; the room's
// other members get a member_joined notice.
func (h *Hub) Join(c *Client, shareID string) {
	changed := h.registry.Join(shareID, c.sessionID)
	members := h.registry.MembersOf(shareID)

	h.sendTo(c.sessionID, Message{
		Type:      "share_joined",
		ShareID:   shareID,
		SessionID: c.sessionID,
		Members:   members,
	})
	if !changed {
		return
	}

	h.logger.Debug("session joined share", "share_id", shareID, "session_id", c.sessionID)
	h.notifyRoom(shareID, Message{
		Type:      "member_joined",
		ShareID:   shareID,
		SessionID: c.sessionID,
		Members:   members,
	}, c.sessionID)
}

// Leave unsubscribes the client's session from a share room and
// notifies the remaining members. No-op if it was not a member.
func (h *Hub) Leave(c *Client, shareID string) {
	if !h.registry.Leave(shareID, c.sessionID) {
		return
	}

	h.logger.Debug("session left share", "share_id", shareID, "session_id", c.sessionID)
	h.notifyRoom(shareID, Message{
		Type:      "member_left",
		ShareID:   shareID,
		SessionID: c.sessionID,
		Members:   h.registry.MembersOf(shareID),
	}, c.sessionID)
}

// BroadcastToShare sends a message to every session in the share's room.
func (h *Hub) BroadcastToShare(shareID string, msg Message) {
	h.notifyRoom(shareID, msg, "")
}

// notifyRoom delivers msg to every member of the room except the
// session named by exclude.
func (h *Hub) notifyRoom(shareID string, msg Message, exclude string) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal room message", "error", err)
		return
	}

	for _, sessionID := range h.registry.MembersOf(shareID) {
		if sessionID == exclude {
			continue
		}
		h.deliver(sessionID, data)
	}
}

func (h *Hub) sendTo(sessionID string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal message", "error", err)
		return
	}
	h.deliver(sessionID, data)
}

// deliver sends data to one session. The read lock is held across the
// send: Unregister closes c.send under the write lock, so the channel
// cannot be closed while we hold it.
func (h *Hub) deliver(sessionID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.clients[sessionID]
	if !ok {
		return
	}

	select {
	case c.send <- data:
	default:
		// Client buffer full, drop the message to avoid blocking
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
