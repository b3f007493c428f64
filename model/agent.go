package model

import "time"

type AgentStatus string

const (
	AgentPending  AgentStatus = "pending"
	AgentApproved AgentStatus = "approved"
	AgentRejected AgentStatus = "rejected"
)

type Agent struct {
	ID              string      `bson:"_id" json:"id"`
	UserID          string      `bson:"user_id" json:"user_id"`
	Name            string      `bson:"name" json:"name"`
	Agency          string      `bson:"agency" json:"agency"`
	City            string      `bson:"city" json:"city"`
	ExperienceYears int         `bson:"experience_years" json:"experience_years"`
	Phone           string      `bson:"phone" json:"phone"`
	Email           string      `bson:"email" json:"email"`
	About           string      `bson:"about" json:"about"`
	Photo           string      `bson:"photo,omitempty" json:"photo,omitempty"`
	Status          AgentStatus `bson:"status" json:"status"`
	RejectionReason string      `bson:"rejection_reason,omitempty" json:"rejection_reason,omitempty"`
	ReviewedBy      string      `bson:"reviewed_by,omitempty" json:"reviewed_by,omitempty"`
	Rating          float64     `bson:"rating" json:"rating"`
	ReviewCount     int         `bson:"review_count" json:"review_count"`
	CreatedAt       time.Time   `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time   `bson:"updated_at" json:"updated_at"`
}
