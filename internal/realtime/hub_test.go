package realtime

import (
	"encoding/json"
	"log/slog"
	"testing"
	"time"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, sessionID string) *Client {
	return &Client{
		hub:       hub,
		conn:      nil,
		sessionID: sessionID,
		send:      make(chan []byte, sendBufferSize),
	}
}

func newTestHub() *Hub {
	return NewHub(NewRegistry(), slog.Default())
}

func recv(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data := <-c.send:
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return msg
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
		return Message{}
	}
}

func noMessage(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected message: %s", data)
	default:
	}
}

func TestJoinSendsAckAndNotifiesOthers(t *testing.T) {
	hub := newTestHub()

	c1 := mockClient(hub, "s1")
	c2 := mockClient(hub, "s2")
	hub.Register(c1)
	hub.Register(c2)

	hub.Join(c1, "share-a")
	ack := recv(t, c1)
	if ack.Type != "share_joined" {
		t.Errorf("type = %q, want share_joined", ack.Type)
	}
	noMessage(t, c2)

	hub.Join(c2, "share-a")
	ack = recv(t, c2)
	if ack.Type != "share_joined" {
		t.Errorf("type = %q, want share_joined", ack.Type)
	}
	if len(ack.Members) != 2 {
		t.Errorf("ack members = %v, want 2 sessions", ack.Members)
	}

	notice := recv(t, c1)
	if notice.Type != "member_joined" {
		t.Errorf("type = %q, want member_joined", notice.Type)
	}
	if notice.SessionID != "s2" {
		t.Errorf("session_id = %q, want s2", notice.SessionID)
	}
}

func TestDuplicateJoinDoesNotNotify(t *testing.T) {
	hub := newTestHub()

	c1 := mockClient(hub, "s1")
	c2 := mockClient(hub, "s2")
	hub.Register(c1)
	hub.Register(c2)

	hub.Join(c1, "share-a")
	hub.Join(c2, "share-a")
	recv(t, c1) // ack
	recv(t, c2) // ack
	recv(t, c1) // member_joined for s2

	hub.Join(c2, "share-a")
	recv(t, c2) // ack is always sent
	noMessage(t, c1)
}

func TestLeaveNotifiesRemainingMembers(t *testing.T) {
	hub := newTestHub()

	c1 := mockClient(hub, "s1")
	c2 := mockClient(hub, "s2")
	hub.Register(c1)
	hub.Register(c2)
	hub.Join(c1, "share-a")
	hub.Join(c2, "share-a")
	recv(t, c1)
	recv(t, c2)
	recv(t, c1)

	hub.Leave(c2, "share-a")
	notice := recv(t, c1)
	if notice.Type != "member_left" {
		t.Errorf("type = %q, want member_left", notice.Type)
	}
	if notice.SessionID != "s2" {
		t.Errorf("session_id = %q, want s2", notice.SessionID)
	}
	if len(notice.Members) != 1 {
		t.Errorf("members = %v, want only s1", notice.Members)
	}

	// Leaving again is a no-op.
	hub.Leave(c2, "share-a")
	noMessage(t, c1)
}

func TestUnregisterLeavesAllRooms(t *testing.T) {
	hub := newTestHub()

	c1 := mockClient(hub, "s1")
	c2 := mockClient(hub, "s2")
	hub.Register(c1)
	hub.Register(c2)
	hub.Join(c1, "A")
	hub.Join(c1, "B")
	hub.Join(c2, "A")
	hub.Join(c2, "B")
	for i := 0; i < 2; i++ {
		recv(t, c1) // acks
		recv(t, c2)
		recv(t, c1) // member_joined notices
	}

	hub.Unregister(c1)

	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("client count = %d, want 1", got)
	}
	for i := 0; i < 2; i++ {
		notice := recv(t, c2)
		if notice.Type != "member_left" || notice.SessionID != "s1" {
			t.Errorf("notice = %+v, want member_left for s1", notice)
		}
	}
}

func TestDoubleUnregister(t *testing.T) {
	hub := newTestHub()
	c := mockClient(hub, "s1")
	hub.Register(c)
	hub.Unregister(c)
	// Should not panic
	hub.Unregister(c)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("client count = %d, want 0", got)
	}
}

func TestBroadcastToShare(t *testing.T) {
	hub := newTestHub()

	c1 := mockClient(hub, "s1")
	c2 := mockClient(hub, "s2")
	c3 := mockClient(hub, "s3")
	hub.Register(c1)
	hub.Register(c2)
	hub.Register(c3)
	hub.Join(c1, "share-a")
	hub.Join(c2, "share-a")
	hub.Join(c3, "share-b")
	recv(t, c1)
	recv(t, c2)
	recv(t, c3)
	recv(t, c1)

	hub.BroadcastToShare("share-a", NewEvent("share-a", "message", "created", 42, nil))

	for _, c := range []*Client{c1, c2} {
		got := recv(t, c)
		if got.Type != "message_created" {
			t.Errorf("type = %q, want message_created", got.Type)
		}
		if got.ID != 42 {
			t.Errorf("id = %d, want 42", got.ID)
		}
	}
	noMessage(t, c3)
}

func TestBroadcastFullBufferDrops(t *testing.T) {
	hub := newTestHub()

	c := mockClient(hub, "s1")
	hub.Register(c)
	hub.Join(c, "share-a")

	// Fill the send buffer (the join ack already used one slot).
	for i := 0; i < sendBufferSize; i++ {
		hub.BroadcastToShare("share-a", NewEvent("share-a", "test", "fill", int64(i), nil))
	}

	// This should drop the message, not panic or block.
	hub.BroadcastToShare("share-a", NewEvent("share-a", "test", "dropped", 999, nil))

	count := 0
	for {
		select {
		case <-c.send:
			count++
		default:
			if count != sendBufferSize {
				t.Errorf("drained %d messages, want %d", count, sendBufferSize)
			}
			return
		}
	}
}

func TestDeliverDuringUnregister(t *testing.T) {
	hub := newTestHub()
	data := []byte(`{"type":"ping"}`)

	// Churn the same session through register/unregister while another
	// goroutine keeps delivering to it. A send that races the channel
	// close panics, so surviving the loop is the assertion.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			c := mockClient(hub, "s1")
			hub.Register(c)
			hub.Unregister(c)
		}
	}()

	for {
		select {
		case <-done:
			return
		default:
			hub.deliver("s1", data)
		}
	}
}

func TestNewEvent(t *testing.T) {
	msg := NewEvent("share-a", "schedule", "updated", 5, nil)
	if msg.Type != "schedule_updated" {
		t.Errorf("type = %q, want schedule_updated", msg.Type)
	}
	if msg.ShareID != "share-a" {
		t.Errorf("share_id = %q, want share-a", msg.ShareID)
	}
	if msg.Entity != "schedule" || msg.Action != "updated" || msg.ID != 5 {
		t.Errorf("unexpected event fields: %+v", msg)
	}
}
