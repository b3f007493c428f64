package model

import "time"

type Subscription struct {
	ID           string    `bson:"_id" json:"id"`
	Email        string    `bson:"email" json:"email"`
	Topic        string    `bson:"topic" json:"topic"`
	UserID       string    `bson:"user_id,omitempty" json:"user_id,omitempty"`
	Active       bool      `bson:"active" json:"active"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	Unsubscribed time.Time `bson:"unsubscribed_at,omitempty" json:"unsubscribed_at,omitempty"`
}
