package model

import "time"

// ActiveSession is one login instance. It lives in the session registry and
// in User.ActiveSessions.
type ActiveSession struct {
	SessionID  string    `bson:"session_id" json:"session_id"`
	UserID     string    `bson:"user_id" json:"user_id"`
	Role       Role      `bson:"role" json:"role"`
	IP         string    `bson:"ip" json:"ip"`
	Device     string    `bson:"device" json:"device"`
	Name       string    `bson:"name" json:"name"`
	Location   string    `bson:"location" json:"location"`
	LoginTime  time.Time `bson:"login_time" json:"login_time"`
	LastActive time.Time `bson:"last_active" json:"last_active"`
	ExpiresAt  time.Time `bson:"expires_at" json:"expires_at"`
	IsActive   bool      `bson:"-" json:"is_active"`
}

func (s *ActiveSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// SessionOwner is one session row together with the account holding it.
type SessionOwner struct {
	UserID   string        `bson:"_id"`
	Username string        `bson:"username"`
	Email    string        `bson:"email"`
	Role     Role          `bson:"role"`
	Session  ActiveSession `bson:"active_sessions"`
}

type SessionAction string

const (
	ActionLogin           SessionAction = "login"
	ActionLogout          SessionAction = "logout"
	ActionForcedLogout    SessionAction = "forced_logout"
	ActionSuspiciousLogin SessionAction = "suspicious_login"
	ActionLimitEviction   SessionAction = "session_limit_eviction"
	ActionRevokeOthers    SessionAction = "revoke_other_sessions"
	ActionPasswordChange  SessionAction = "password_change"
	ActionExpired         SessionAction = "session_expired"
	ActionConfirmLockout  SessionAction = "confirmation_lockout"
)

// SessionAuditLog is append-only.
type SessionAuditLog struct {
	ID        string         `bson:"_id" json:"id"`
	Action    SessionAction  `bson:"action" json:"action"`
	ActorID   string         `bson:"actor_id,omitempty" json:"actor_id,omitempty"`
	ActorRole Role           `bson:"actor_role,omitempty" json:"actor_role,omitempty"`
	UserID    string         `bson:"user_id" json:"user_id"`
	Role      Role           `bson:"role,omitempty" json:"role,omitempty"`
	SessionID string         `bson:"session_id,omitempty" json:"session_id,omitempty"`
	IP        string         `bson:"ip,omitempty" json:"ip,omitempty"`
	Device    string         `bson:"device,omitempty" json:"device,omitempty"`
	Location  string         `bson:"location,omitempty" json:"location,omitempty"`
	Details   map[string]any `bson:"details,omitempty" json:"details,omitempty"`
	CreatedAt time.Time      `bson:"created_at" json:"created_at"`
}

type AuditFilter struct {
	UserID string
	Action SessionAction
	Page   int
	Limit  int
}
