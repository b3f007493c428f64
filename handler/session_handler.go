package handler

import (
	"urbansetu/dto"
	"urbansetu/middleware"
	"urbansetu/model"
	"urbansetu/usecase"
	"urbansetu/utils"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	sessions *usecase.SessionManager
	cookies  CookieConfig
}

func NewSessionHandler(sessions *usecase.SessionManager, cookies CookieConfig) *SessionHandler {
	return &SessionHandler{sessions: sessions, cookies: cookies}
}

func (h *SessionHandler) List(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	sessions, err := h.sessions.ListUserSessions(c.Request.Context(), actor.UserID, actor.SessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{"sessions": sessions})
}

// Revoke signs out one of the caller's own sessions. Revoking the current
// one also clears the auth cookies.
func (h *SessionHandler) Revoke(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	sessionID := c.Param("id")

	action := model.ActionRevokeOthers
	if sessionID == actor.SessionID {
		action = model.ActionLogout
	}
	if err := h.sessions.RevokeSession(c.Request.Context(), actor, actor.UserID, sessionID, action); err != nil {
		respondError(c, err)
		return
	}
	if sessionID == actor.SessionID {
		h.cookies.clearAuth(c)
	}
	utils.TrackSessionEvent("revoke")
	utils.Success(c, gin.H{"message": "Session revoked"})
}

func (h *SessionHandler) RevokeOthers(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	n, err := h.sessions.RevokeSessions(c.Request.Context(), actor, actor.UserID, actor.SessionID, model.ActionRevokeOthers)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{
		"message": "Signed out of all other sessions",
		"revoked": n,
	})
}

func (h *SessionHandler) AdminList(c *gin.Context) {
	var q dto.PageQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.sessions.ListAllSessions(c.Request.Context(), middleware.ActorFrom(c), q.Page, q.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, page)
}

func (h *SessionHandler) ForceLogout(c *gin.Context) {
	var req dto.ForceLogoutRequest
	if !bindJSON(c, &req) {
		return
	}
	n, err := h.sessions.ForceLogout(c.Request.Context(), middleware.ActorFrom(c), req.UserID, req.SessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{
		"message": "User signed out",
		"revoked": n,
	})
}

func (h *SessionHandler) Audit(c *gin.Context) {
	var q dto.AuditQuery
	if !bindQuery(c, &q) {
		return
	}
	logs, err := h.sessions.ListAuditLogs(c.Request.Context(), middleware.ActorFrom(c), model.AuditFilter{
		UserID: q.UserID,
		Action: model.SessionAction(q.Action),
		Page:   q.Page,
		Limit:  q.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, logs)
}
