package handler

import (
	"net/http"

	"urbansetu/middleware"
	"urbansetu/realtime"
	"urbansetu/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
}

// NewWSHandler accepts upgrades from the allowed origins, or from any origin
// when the list is empty or holds "*".
func NewWSHandler(hub *realtime.Hub, allowedOrigins []string) *WSHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowed) == 0 || allowed["*"] || allowed[origin]
			},
		},
	}
}

// TokenFromQuery lets browsers, which cannot set headers on a websocket
// handshake, pass the access token as ?token=.
func TokenFromQuery() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tok := c.Query("token"); tok != "" && c.GetHeader("Authorization") == "" {
			c.Request.Header.Set("Authorization", "Bearer "+tok)
		}
		c.Next()
	}
}

// Connect upgrades an authenticated request and joins the client to its
// user, session and forum rooms, plus the admins room for staff.
func (h *WSHandler) Connect(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.TrackError("websocket", "upgrade")
		utils.Warn().Err(err).Str("user_id", actor.UserID).Msg("websocket upgrade failed")
		return
	}

	client := realtime.NewClient(h.hub, conn, realtime.Identity{
		UserID:    actor.UserID,
		SessionID: actor.SessionID,
		Staff:     actor.Role.IsStaff(),
	})
	client.Start()
}
