package realtime

import (
	"sort"
	"sync"
)

// Registry tracks which live sessions are subscribed to which share's
// updates. Membership is session-scoped: one user with three open tabs
// holds three independent memberships. State is process-local and
// transient; clients rejoin on reconnect after a restart.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[string]map[string]struct{}
	sessions map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:    make(map[string]map[string]struct{}),
		sessions: make(map[string]map[string]struct{}),
	}
}

// Join adds sessionID to the share's room, creating the room on first
// join. It reports whether membership actually changed, so duplicate
// joins produce no notifications.
func (r *Registry) Join(shareID, sessionID string) bool {
	if shareID == "" || sessionID == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[shareID]
	if !ok {
		room = make(map[string]struct{})
		r.rooms[shareID] = room
	}
	if _, ok := room[sessionID]; ok {
		return false
	}
	room[sessionID] = struct{}{}

	shares, ok := r.sessions[sessionID]
	if !ok {
		shares = make(map[string]struct{})
		r.sessions[sessionID] = shares
	}
	shares[shareID] = struct{}{}

	return true
}

// Leave removes sessionID from the share's room. Unknown shares or
// sessions are a no-op. Empty rooms are dropped from the map.
func (r *Registry) Leave(shareID, sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(shareID, sessionID)
}

func (r *Registry) leaveLocked(shareID, sessionID string) bool {
	room, ok := r.rooms[shareID]
	if !ok {
		return false
	}
	if _, ok := room[sessionID]; !ok {
		return false
	}

	delete(room, sessionID)
	if len(room) == 0 {
		delete(r.rooms, shareID)
	}

	if shares, ok := r.sessions[sessionID]; ok {
		delete(shares, shareID)
		if len(shares) == 0 {
			delete(r.sessions, sessionID)
		}
	}

	return true
}

// Disconnect removes sessionID from every room it belongs to and
// returns the share IDs it left, so callers can notify each room.
// Called once when a session's connection terminates, whether by an
// explicit close or a transport timeout.
func (r *Registry) Disconnect(sessionID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	shares, ok := r.sessions[sessionID]
	if !ok {
		return nil
	}

	left := make([]string, 0, len(shares))
	for shareID := range shares {
		left = append(left, shareID)
	}
	sort.Strings(left)

	for _, shareID := range left {
		r.leaveLocked(shareID, sessionID)
	}

	return left
}

// MembersOf returns a snapshot of the session IDs currently in the
// share's room, sorted for deterministic iteration. Unknown shares
// return an empty slice.
func (r *Registry) MembersOf(shareID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room := r.rooms[shareID]
	members := make([]string, 0, len(room))
	for sessionID := range room {
		members = append(members, sessionID)
	}
	sort.Strings(members)
	return members
}

// RoomCount returns the number of non-empty rooms.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
