package middleware

import (
	"net/http"

	"urbansetu/model"
	"urbansetu/utils"

	"github.com/gin-gonic/gin"
)

// RequirePermission must run after AuthMiddleware.
func RequirePermission(p model.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorFrom(c)
		if actor.UserID == "" {
			utils.Abort(c, http.StatusUnauthorized, "Authentication required")
			return
		}
		if !actor.Can(p) {
			utils.Warn().
				Str("user_id", actor.UserID).
				Str("role", string(actor.Role)).
				Str("permission", string(p)).
				Msg("permission denied")
			utils.Abort(c, http.StatusForbidden, "Insufficient permissions")
			return
		}
		c.Next()
	}
}

// RequireStaff admits admin and rootadmin.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ActorFrom(c).Role.IsStaff() {
			utils.Abort(c, http.StatusForbidden, "Admin access required")
			return
		}
		c.Next()
	}
}
