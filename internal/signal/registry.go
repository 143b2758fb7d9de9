// Package signal is the in-memory presence registry and message relay for
// interview rooms. All state is process-local and rebuilt from nothing on
// restart; a multi-instance deployment would need an external pub/sub to fan
// events across instances.
package signal

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"interview/internal/models"
)

// Registry owns every room and enforces the single-live-connection-per-user
// invariant. No global state: independent registries can coexist.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room
	users map[string]*Client // user id -> authoritative connection
	conns map[string]string  // connection id -> room id
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
		users: make(map[string]*Client),
		conns: make(map[string]string),
	}
}

// Join adds the connection to the room and returns the membership list the
// joiner should receive (itself excluded). If the user already has a live
// connection elsewhere, that connection is closed, removed from its room, and
// announced as departed before the new join is acknowledged. Re-joining the
// same room on the same connection only refreshes the membership list.
func (g *Registry) Join(roomID string, c *Client) []models.RoomUser {
	g.mu.Lock()
	defer g.mu.Unlock()

	if prev, ok := g.users[c.UserID]; ok && prev != c {
		g.evict(prev)
		log.Info().Str("userId", c.UserID).Str("oldConn", prev.ID).Str("newConn", c.ID).
			Msg("superseded previous connection")
	}
	g.users[c.UserID] = c

	room, ok := g.rooms[roomID]
	if !ok {
		room = newRoom(roomID)
		g.rooms[roomID] = room
	}
	if !room.has(c.ID) {
		room.join(c)
		g.conns[c.ID] = roomID
	}
	return room.users(c.ID)
}

// Announce tells the rest of the room a connection has joined.
func (g *Registry) Announce(c *Client) {
	g.mu.Lock()
	room := g.roomOf(c.ID)
	g.mu.Unlock()
	if room == nil {
		return
	}
	room.broadcast(models.WSFrame{Type: "user-joined", Data: c.asRoomUser()}, c.ID)
}

// Leave removes the connection from its room, announces the departure, and
// discards the room once empty.
func (g *Registry) Leave(c *Client) {
	g.mu.Lock()
	g.evict(c)
	g.mu.Unlock()
}

// evict must run with g.mu held.
func (g *Registry) evict(c *Client) {
	roomID, ok := g.conns[c.ID]
	if ok {
		delete(g.conns, c.ID)
		if room := g.rooms[roomID]; room != nil {
			if left := room.leave(c.ID); left == 0 {
				delete(g.rooms, roomID)
			} else {
				room.broadcast(models.WSFrame{Type: "user-left", Data: models.UserLeft{ConnectionID: c.ID}}, "")
			}
		}
	}
	if g.users[c.UserID] == c {
		delete(g.users, c.UserID)
	}
	c.Close()
}

// Relay forwards an opaque signaling payload to exactly one connection in the
// room, tagged with the sender's connection id. A missing target is dropped
// silently: renegotiation is the caller's responsibility.
func (g *Registry) Relay(roomID, targetConnID string, kind string, sender *Client, payload []byte) {
	g.mu.Lock()
	room := g.rooms[roomID]
	g.mu.Unlock()
	if room == nil {
		return
	}
	room.relay(targetConnID, models.WSFrame{
		Type: kind,
		Data: models.SignalRelay{ConnectionID: sender.ID, Payload: payload},
	})
}

// Chat broadcasts a message to every member of the room, sender included,
// tagged with a server-assigned delivery timestamp.
func (g *Registry) Chat(roomID string, sender *Client, message string) {
	g.mu.Lock()
	room := g.rooms[roomID]
	g.mu.Unlock()
	if room == nil {
		return
	}
	room.broadcast(models.WSFrame{
		Type: "chat-message",
		Data: models.ChatBroadcast{
			Message:   message,
			UserName:  sender.UserName,
			SenderID:  sender.ID,
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		},
	}, "")
}

// Broadcast fans a frame to every member of the room. Used by the lifecycle
// event bridge for informational status frames; the registry itself never
// reads interview status.
func (g *Registry) Broadcast(roomID string, frame models.WSFrame) {
	g.mu.Lock()
	room := g.rooms[roomID]
	g.mu.Unlock()
	if room == nil {
		return
	}
	room.broadcast(frame, "")
}

// Members returns the current membership of a room; empty if the room does
// not exist.
func (g *Registry) Members(roomID string) []models.RoomUser {
	g.mu.Lock()
	room := g.rooms[roomID]
	g.mu.Unlock()
	if room == nil {
		return nil
	}
	return room.users("")
}

func (g *Registry) roomOf(connID string) *Room {
	if roomID, ok := g.conns[connID]; ok {
		return g.rooms[roomID]
	}
	return nil
}
