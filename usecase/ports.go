package usecase

import (
	"context"
	"time"

	"urbansetu/model"
)

// Actor is whoever performs an operation. The zero Actor is the system.
type Actor struct {
	UserID    string
	Role      model.Role
	SessionID string
}

func (a Actor) Can(p model.Permission) bool { return a.Role.Can(p) }

// Notifier pushes events to connected clients. realtime.Hub implements it.
type Notifier interface {
	EmitToRoom(room, event string, data interface{})
	EmitToUser(userID, event string, data interface{})
	EmitToSession(sessionID, event string, data interface{})
	EmitToAdmins(event string, data interface{})
	Broadcast(event string, data interface{})
}

type nopNotifier struct{}

func (nopNotifier) EmitToRoom(string, string, interface{})    {}
func (nopNotifier) EmitToUser(string, string, interface{})    {}
func (nopNotifier) EmitToSession(string, string, interface{}) {}
func (nopNotifier) EmitToAdmins(string, interface{})          {}
func (nopNotifier) Broadcast(string, interface{})             {}

// NopNotifier drops every event.
var NopNotifier Notifier = nopNotifier{}

type Geolocator interface {
	Lookup(ctx context.Context, ip string) string
}

type SessionUserStore interface {
	FindByID(ctx context.Context, userID string) (*model.User, error)
	FindBySession(ctx context.Context, sessionID string) (*model.User, *model.ActiveSession, error)
	AddSession(ctx context.Context, userID string, s *model.ActiveSession) error
	RemoveSession(ctx context.Context, userID, sessionID string) error
	TouchSession(ctx context.Context, userID, sessionID string, at time.Time) error
	SetLastKnown(ctx context.Context, userID, ip, device string) error
	ListLiveSessions(ctx context.Context, now time.Time, idle time.Duration, page, limit int) ([]model.SessionOwner, int64, error)
	PruneStaleSessions(ctx context.Context, now time.Time, idle time.Duration) (int64, error)
}

type UserStore interface {
	SessionUserStore
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	UpdatePassword(ctx context.Context, userID, hashedPassword string) error
	UpdateRole(ctx context.Context, userID string, role model.Role) error
	UpdateTwoFactor(ctx context.Context, userID string, enabled bool, secret string, recoveryCodes []string) error
	UpdateRecoveryCodes(ctx context.Context, userID string, codes []string) error
	Delete(ctx context.Context, userID string) error
	Count(ctx context.Context) (int64, error)
}

type AuditStore interface {
	Insert(ctx context.Context, entry *model.SessionAuditLog) error
	List(ctx context.Context, f model.AuditFilter) ([]model.SessionAuditLog, int64, error)
}

type TokenBlacklist interface {
	Blacklist(ctx context.Context, tokens ...string) error
	IsBlacklisted(ctx context.Context, token string) bool
}

// AttemptLimiter counts failed confirmations per key.
type AttemptLimiter interface {
	Fail(ctx context.Context, key string) (int, error)
	Reset(ctx context.Context, key string) error
}

type UserLookup interface {
	FindByID(ctx context.Context, userID string) (*model.User, error)
}
