package realtime

import (
	"sync/atomic"
	"time"

	"urbansetu/utils"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
)

var clientIDCounter atomic.Uint64

// Identity is what the authenticated upgrade request tells us about the peer.
type Identity struct {
	UserID    string
	SessionID string
	Staff     bool
}

type Client struct {
	id        uint64
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	userID    string
	sessionID string
	rooms     []string
}

func NewClient(hub *Hub, conn *websocket.Conn, ident Identity) *Client {
	rooms := []string{UserRoom(ident.UserID), ForumRoom}
	if ident.SessionID != "" {
		rooms = append(rooms, SessionRoom(ident.SessionID))
	}
	if ident.Staff {
		rooms = append(rooms, AdminsRoom)
	}
	return &Client{
		id:        clientIDCounter.Add(1),
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		userID:    ident.UserID,
		sessionID: ident.SessionID,
		rooms:     rooms,
	}
}

func (c *Client) ID() uint64 {
	return c.id
}

func (c *Client) trySend(payload []byte) {
	defer func() { _ = recover() }() // send may race with close on disconnect
	select {
	case c.send <- payload:
	default:
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		utils.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				utils.Warn().Err(err).Msg("unexpected websocket close error")
			}
			return
		}
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		c.hub.handleMessage(c, msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				utils.Debug().Err(err).Msg("failed to write websocket message")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start registers the client and runs its pumps. A stopped hub closes the
// connection instead.
func (c *Client) Start() {
	if !c.hub.join(c) {
		_ = c.conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}
