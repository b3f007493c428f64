package handler

import (
	"net/http"
	"time"

	"urbansetu/config"
	"urbansetu/middleware"

	"github.com/gin-gonic/gin"
)

// CookieConfig controls the auth cookies. All of them are httpOnly.
type CookieConfig struct {
	Domain     string
	Secure     bool
	SameSite   http.SameSite
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	SessionTTL time.Duration
}

func NewCookieConfig(cfg config.AppConfig) CookieConfig {
	return CookieConfig{
		Secure:     cfg.Server.IsProduction(),
		SameSite:   cfg.Server.CookieSameSite(),
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
		SessionTTL: cfg.Session.TTL,
	}
}

func (cc CookieConfig) set(c *gin.Context, name, value string, ttl time.Duration) {
	c.SetSameSite(cc.SameSite)
	c.SetCookie(name, value, int(ttl.Seconds()), "/", cc.Domain, cc.Secure, true)
}

func (cc CookieConfig) setAuth(c *gin.Context, access, refresh, session string) {
	cc.set(c, middleware.AccessCookie, access, cc.AccessTTL)
	if refresh != "" {
		cc.set(c, middleware.RefreshCookie, refresh, cc.RefreshTTL)
	}
	if session != "" {
		cc.set(c, middleware.SessionCookie, session, cc.SessionTTL)
	}
}

func (cc CookieConfig) clearAuth(c *gin.Context) {
	for _, name := range []string{middleware.AccessCookie, middleware.RefreshCookie, middleware.SessionCookie} {
		c.SetSameSite(cc.SameSite)
		c.SetCookie(name, "", -1, "/", cc.Domain, cc.Secure, true)
	}
}
