package realtime

import (
	"context"
	"sync"

	"urbansetu/utils"

	"github.com/goccy/go-json"
)

const (
	ForumRoom  = "forum"
	AdminsRoom = "admins"
)

func UserRoom(userID string) string       { return "user:" + userID }
func SessionRoom(sessionID string) string { return "session:" + sessionID }

// Message is the envelope in both directions. To is only set by clients
// for call signaling; From is always filled in by the server.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	To    string          `json:"to,omitempty"`
	From  string          `json:"from,omitempty"`
}

type outgoing struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
	From  string      `json:"from,omitempty"`
}

// Hub tracks connected clients and the rooms they joined.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client

	// done is closed once RunWithContext returns.
	done chan struct{}

	mu      sync.RWMutex
	clients map[*Client]bool
	rooms   map[string]map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
	}
}

// RunWithContext processes client lifecycle events until ctx is done, then
// closes every client.
func (h *Hub) RunWithContext(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			n := h.ClientCount()
			h.closeAll()
			utils.Info().Str("component", "realtime-hub").Int("clients_closed", n).Msg("realtime hub stopped")
			return ctx.Err()
		case c := <-h.Register:
			h.add(c)
			utils.Debug().Str("user_id", c.userID).Int("total_clients", h.ClientCount()).Msg("websocket client connected")
		case c := <-h.Unregister:
			h.remove(c)
			utils.Debug().Str("user_id", c.userID).Int("total_clients", h.ClientCount()).Msg("websocket client disconnected")
		}
	}
}

// join hands c to the run loop. It reports false when the hub has stopped.
func (h *Hub) join(c *Client) bool {
	select {
	case h.Register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
	for _, room := range c.rooms {
		members, ok := h.rooms[room]
		if !ok {
			members = make(map[*Client]bool)
			h.rooms[room] = members
		}
		members[c] = true
	}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c)
}

func (h *Hub) dropLocked(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for _, room := range c.rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	close(c.send)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.dropLocked(c)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func encode(event string, data interface{}, from string) ([]byte, bool) {
	payload, err := json.Marshal(outgoing{Event: event, Data: data, From: from})
	if err != nil {
		utils.Error().Err(err).Str("event", event).Msg("failed to encode realtime message")
		return nil, false
	}
	return payload, true
}

// EmitToRoom delivers to every member of room. Slow clients whose buffer is
// full are disconnected.
func (h *Hub) EmitToRoom(room, event string, data interface{}) {
	payload, ok := encode(event, data, "")
	if !ok {
		return
	}
	h.deliver(room, payload)
}

func (h *Hub) EmitToUser(userID, event string, data interface{}) {
	h.EmitToRoom(UserRoom(userID), event, data)
}

func (h *Hub) EmitToSession(sessionID, event string, data interface{}) {
	h.EmitToRoom(SessionRoom(sessionID), event, data)
}

func (h *Hub) EmitToAdmins(event string, data interface{}) {
	h.EmitToRoom(AdminsRoom, event, data)
}

func (h *Hub) Broadcast(event string, data interface{}) {
	payload, ok := encode(event, data, "")
	if !ok {
		return
	}
	h.deliver("", payload)
}

// deliver sends to a room, or to everyone when room is empty.
func (h *Hub) deliver(room string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	targets := h.clients
	if room != "" {
		targets = h.rooms[room]
	}

	var slow []*Client
	for c := range targets {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	for _, c := range slow {
		utils.Warn().Str("user_id", c.userID).Msg("realtime client buffer full, disconnecting")
		h.dropLocked(c)
	}
}
