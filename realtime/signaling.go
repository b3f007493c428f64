package realtime

import "strings"

const (
	EventPing = "ping"
	EventPong = "pong"

	EventCallOffer        = "call:offer"
	EventCallAnswer       = "call:answer"
	EventCallICECandidate = "call:ice-candidate"
	EventCallEnd          = "call:end"
	EventCallReject       = "call:reject"
	EventCallUnavailable  = "call:unavailable"
)

var callEvents = map[string]bool{
	EventCallOffer:        true,
	EventCallAnswer:       true,
	EventCallICECandidate: true,
	EventCallEnd:          true,
	EventCallReject:       true,
}

// handleMessage answers pings and relays call signaling to the target user.
// The sender identity always comes from the authenticated connection.
func (h *Hub) handleMessage(c *Client, msg Message) {
	switch {
	case msg.Event == EventPing:
		if payload, ok := encode(EventPong, nil, ""); ok {
			c.trySend(payload)
		}

	case callEvents[msg.Event]:
		to := strings.TrimSpace(msg.To)
		if to == "" || to == c.userID {
			return
		}
		if h.RoomSize(UserRoom(to)) == 0 {
			if payload, ok := encode(EventCallUnavailable, map[string]string{"to": to}, ""); ok {
				c.trySend(payload)
			}
			return
		}
		var data interface{}
		if len(msg.Data) > 0 {
			data = msg.Data
		}
		payload, ok := encode(msg.Event, data, c.userID)
		if !ok {
			return
		}
		h.deliver(UserRoom(to), payload)
	}
}
