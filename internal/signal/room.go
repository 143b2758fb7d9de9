package signal

import (
	"sync"

	"interview/internal/models"
)

// Room holds the connected participants of one interview room.
type Room struct {
	ID      string
	mu      sync.Mutex
	members map[string]*Client // connection id -> client
}

func newRoom(id string) *Room {
	return &Room{ID: id, members: make(map[string]*Client)}
}

func (r *Room) join(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[c.ID] = c
}

func (r *Room) leave(connID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, connID)
	return len(r.members)
}

func (r *Room) has(connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.members[connID]
	return ok
}

// users lists current members, excluding the named connection.
func (r *Room) users(except string) []models.RoomUser {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.RoomUser, 0, len(r.members))
	for id, c := range r.members {
		if id == except {
			continue
		}
		out = append(out, c.asRoomUser())
	}
	return out
}

// broadcast sends the frame to every member except the named connection.
// Pass except="" to reach everyone.
func (r *Room) broadcast(frame models.WSFrame, except string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.members {
		if id == except {
			continue
		}
		c.Send(frame)
	}
}

// relay delivers the frame to exactly the named connection. Returns false if
// the target is no longer a member; the caller drops the message silently.
func (r *Room) relay(targetConnID string, frame models.WSFrame) bool {
	r.mu.Lock()
	target, ok := r.members[targetConnID]
	r.mu.Unlock()
	if !ok {
		return false
	}
	target.Send(frame)
	return true
}
