package model

import "time"

type User struct {
	UserID             string          `bson:"_id" json:"id"`
	Username           string          `bson:"username" json:"username"`
	Email              string          `bson:"email" json:"email"`
	Password           string          `bson:"password" json:"-"`
	Role               Role            `bson:"role" json:"role"`
	Avatar             string          `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Phone              string          `bson:"phone,omitempty" json:"phone,omitempty"`
	CreatedAt          time.Time       `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `bson:"updated_at" json:"updated_at"`
	LastPasswordChange time.Time       `bson:"last_password_change,omitempty" json:"-"`
	IsActive           bool            `bson:"is_active" json:"is_active"`
	ActiveSessions     []ActiveSession `bson:"active_sessions" json:"-"`
	LastKnownIP        string          `bson:"last_known_ip,omitempty" json:"-"`
	LastKnownDevice    string          `bson:"last_known_device,omitempty" json:"-"`
	TwoFactorEnabled   bool            `bson:"two_factor_enabled" json:"two_factor_enabled"`
	TwoFactorSecret    string          `bson:"two_factor_secret,omitempty" json:"-"`
	RecoveryCodes      []string        `bson:"recovery_codes,omitempty" json:"-"`
}
