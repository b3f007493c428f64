package model

import "time"

type PlatformUpdate struct {
	ID          string     `bson:"_id" json:"id"`
	Title       string     `bson:"title" json:"title"`
	Body        string     `bson:"body" json:"body"`
	Category    string     `bson:"category" json:"category"`
	Version     string     `bson:"version,omitempty" json:"version,omitempty"`
	Published   bool       `bson:"published" json:"published"`
	PublishedAt *time.Time `bson:"published_at,omitempty" json:"published_at,omitempty"`
	AuthorID    string     `bson:"author_id" json:"author_id"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
}
