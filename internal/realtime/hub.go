package realtime

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/log"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/metrics"
)

// Hub tracks connected sockets by user and by joined room. It is owned by
// the server and shut down with it.
type Hub struct {
	rooms  map[string]map[*Client]struct{}
	users  map[uuid.UUID]map[*Client]struct{}
	mu     sync.RWMutex
	closed bool
	logger zerolog.Logger
}

func NewHub() *Hub {
	return &Hub{
		rooms:  make(map[string]map[*Client]struct{}),
		users:  make(map[uuid.UUID]map[*Client]struct{}),
		logger: log.WithComponent("hub"),
	}
}

func (h *Hub) Register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	if h.users[c.UserID] == nil {
		h.users[c.UserID] = make(map[*Client]struct{})
	}
	h.users[c.UserID][c] = struct{}{}
	c.hub = h
	metrics.ConnectionOpened()
	h.logger.Debug().Str("client_id", c.ID).Str("user_id", c.UserID.String()).Msg("client registered")
	return true
}

// Unregister removes c from every room and closes its send buffer. It is
// safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	set, ok := h.users[c.UserID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.users, c.UserID)
	}
	for room := range c.rooms {
		if m := h.rooms[room]; m != nil {
			delete(m, c)
			if len(m) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	c.rooms = nil
	close(c.Send)
	metrics.ConnectionClosed()
	h.logger.Debug().Str("client_id", c.ID).Msg("client unregistered")
}

func (h *Hub) Join(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.users[c.UserID][c]; !ok {
		return
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][c] = struct{}{}
	if c.rooms == nil {
		c.rooms = make(map[string]struct{})
	}
	c.rooms[room] = struct{}{}
}

func (h *Hub) Leave(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m := h.rooms[room]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(c.rooms, room)
}

func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// BroadcastRoom delivers payload to every client in room.
func (h *Hub) BroadcastRoom(room string, payload []byte) {
	h.mu.RLock()
	slow := deliver(h.rooms[room], payload)
	h.mu.RUnlock()
	h.drop(slow)
}

// SendToUser delivers payload to every socket of userID.
func (h *Hub) SendToUser(userID uuid.UUID, payload []byte) {
	h.mu.RLock()
	slow := deliver(h.users[userID], payload)
	h.mu.RUnlock()
	h.drop(slow)
}

func (h *Hub) sendToClient(c *Client, payload []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.users[c.UserID][c]; !ok {
		return false
	}
	select {
	case c.Send <- payload:
		return true
	default:
		return false
	}
}

// deliver never blocks; clients whose buffer is full are returned.
func deliver(set map[*Client]struct{}, payload []byte) []*Client {
	var slow []*Client
	for c := range set {
		select {
		case c.Send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	return slow
}

func (h *Hub) drop(slow []*Client) {
	if len(slow) == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range slow {
		h.logger.Warn().Str("client_id", c.ID).Msg("dropping slow client")
		h.removeLocked(c)
	}
}

// Shutdown disconnects every client and refuses new registrations.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for _, set := range h.users {
		for c := range set {
			h.removeLocked(c)
		}
	}
}
