package http

import (
	"sync"

	"livequiz-service/internal/domain"
)

// client is one websocket connection's seat in a room. Events are queued on
// a buffered channel drained by the connection's writer goroutine.
type client struct {
	sessionID string
	userID    string
	send      chan domain.Event
}

func newClient(sessionID, userID string) *client {
	return &client{
		sessionID: sessionID,
		userID:    userID,
		send:      make(chan domain.Event, 16),
	}
}

// deliver queues an event, dropping the client's oldest queued event when
// the buffer is full so a slow reader never blocks the room.
func (c *client) deliver(event domain.Event) {
	select {
	case c.send <- event:
	default:
		select {
		case <-c.send:
		default:
		}
		c.send <- event
	}
}

// Hub tracks rooms keyed by session id and fans events out to members. It
// implements app.RoomSender.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*client]struct{})}
}

func (h *Hub) join(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[c.sessionID]
	if !ok {
		room = make(map[*client]struct{})
		h.rooms[c.sessionID] = room
	}
	room[c] = struct{}{}
}

func (h *Hub) leave(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[c.sessionID]
	if !ok {
		return
	}
	if _, member := room[c]; !member {
		return
	}
	delete(room, c)
	close(c.send)
	if len(room) == 0 {
		delete(h.rooms, c.sessionID)
	}
}

// ToRoom delivers an event to every member of the session's room.
func (h *Hub) ToRoom(sessionID string, event domain.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[sessionID] {
		c.deliver(event)
	}
}
