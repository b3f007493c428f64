package model

import "time"

type ReviewTarget string

const (
	ReviewListing ReviewTarget = "listing"
	ReviewAgent   ReviewTarget = "agent"
)

type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

type Review struct {
	ID         string       `bson:"_id" json:"id"`
	TargetType ReviewTarget `bson:"target_type" json:"target_type"`
	TargetID   string       `bson:"target_id" json:"target_id"`
	UserID     string       `bson:"user_id" json:"user_id"`
	Username   string       `bson:"username" json:"username"`
	Rating     int          `bson:"rating" json:"rating"`
	Comment    string       `bson:"comment" json:"comment"`
	Status     ReviewStatus `bson:"status" json:"status"`
	ModNote    string       `bson:"mod_note,omitempty" json:"mod_note,omitempty"`
	CreatedAt  time.Time    `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time    `bson:"updated_at" json:"updated_at"`
}

// RatingSummary is the aggregate written back to the reviewed document.
type RatingSummary struct {
	Average float64 `bson:"average" json:"average"`
	Count   int     `bson:"count" json:"count"`
}
