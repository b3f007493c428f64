package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"urbansetu/model"
	"urbansetu/services"
	"urbansetu/usecase"
	"urbansetu/utils"

	"github.com/gin-gonic/gin"
)

const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
	SessionCookie = "session_id"

	ctxUserID    = "user_id"
	ctxRole      = "role"
	ctxSessionID = "session_id"
	ctxToken     = "access_token"
)

// SessionValidator is the slice of the session manager the auth middleware needs.
type SessionValidator interface {
	ValidateSession(ctx context.Context, sessionID string) (*model.ActiveSession, error)
	TouchSession(ctx context.Context, sessionID string) error
}

type Blacklist interface {
	IsBlacklisted(ctx context.Context, token string) bool
}

// BearerOrCookie returns the access token from the Authorization header,
// falling back to the access_token cookie.
func BearerOrCookie(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if v, err := c.Cookie(AccessCookie); err == nil {
		return v
	}
	return ""
}

// AuthMiddleware authenticates the request and binds the caller's user id,
// role and session id to the gin context. The token's session must still be
// live in the session manager.
func AuthMiddleware(tokens *services.TokenService, blacklist Blacklist, sessions SessionValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := BearerOrCookie(c)
		if tokenString == "" {
			utils.Abort(c, http.StatusUnauthorized, "Missing or invalid token")
			return
		}

		if blacklist != nil && blacklist.IsBlacklisted(c.Request.Context(), tokenString) {
			utils.TokenUsage.WithLabelValues("access", "blacklisted").Inc()
			utils.Abort(c, http.StatusUnauthorized, "Token has been invalidated")
			return
		}

		claims, err := tokens.Parse(tokenString, services.AccessToken)
		if err != nil {
			utils.TrackAuthAttempt("failure", "token")
			utils.Abort(c, http.StatusUnauthorized, "Invalid token")
			return
		}

		session, err := sessions.ValidateSession(c.Request.Context(), claims.SessionID)
		if err != nil || session.UserID != claims.UserID {
			if err != nil && !errors.Is(err, model.ErrSessionInvalid) {
				utils.Error().Err(err).Str("session_id", claims.SessionID).Msg("session validation failed")
			}
			utils.Abort(c, http.StatusUnauthorized, "Session expired or signed out")
			return
		}
		if err := sessions.TouchSession(c.Request.Context(), session.SessionID); err != nil {
			utils.Debug().Err(err).Str("session_id", session.SessionID).Msg("failed to touch session")
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, claims.Role)
		c.Set(ctxSessionID, session.SessionID)
		c.Set(ctxToken, tokenString)
		c.Next()
	}
}

// OptionalAuth binds the caller when a valid token is present and lets
// anonymous requests through untouched.
func OptionalAuth(tokens *services.TokenService, blacklist Blacklist, sessions SessionValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := BearerOrCookie(c)
		if tokenString == "" || (blacklist != nil && blacklist.IsBlacklisted(c.Request.Context(), tokenString)) {
			c.Next()
			return
		}
		claims, err := tokens.Parse(tokenString, services.AccessToken)
		if err != nil {
			c.Next()
			return
		}
		if s, err := sessions.ValidateSession(c.Request.Context(), claims.SessionID); err == nil && s.UserID == claims.UserID {
			c.Set(ctxUserID, claims.UserID)
			c.Set(ctxRole, claims.Role)
			c.Set(ctxSessionID, s.SessionID)
			c.Set(ctxToken, tokenString)
		}
		c.Next()
	}
}

// ActorFrom returns the authenticated caller, or the zero Actor for
// anonymous requests.
func ActorFrom(c *gin.Context) usecase.Actor {
	role, _ := c.Get(ctxRole)
	r, _ := role.(model.Role)
	return usecase.Actor{
		UserID:    c.GetString(ctxUserID),
		Role:      r,
		SessionID: c.GetString(ctxSessionID),
	}
}

// AccessTokenFrom returns the token the request was authenticated with.
func AccessTokenFrom(c *gin.Context) string {
	return c.GetString(ctxToken)
}
