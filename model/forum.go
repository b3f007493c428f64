package model

import (
	"slices"
	"time"
)

type ReactionKind string

const (
	ReactionLike    ReactionKind = "like"
	ReactionDislike ReactionKind = "dislike"
)

func (k ReactionKind) Valid() bool {
	return k == ReactionLike || k == ReactionDislike
}

// Reactions holds the user ids that liked or disliked a piece of content.
// A user id appears in at most one of the two lists.
type Reactions struct {
	Likes    []string `bson:"likes" json:"likes"`
	Dislikes []string `bson:"dislikes" json:"dislikes"`
}

func (r *Reactions) Has(userID string, kind ReactionKind) bool {
	if kind == ReactionLike {
		return slices.Contains(r.Likes, userID)
	}
	return slices.Contains(r.Dislikes, userID)
}

// ToggleReaction applies kind for userID. Repeating the same reaction removes
// it; switching moves the id to the other list. It reports whether the
// reaction is set afterwards.
func ToggleReaction(r *Reactions, userID string, kind ReactionKind) bool {
	had := r.Has(userID, kind)
	r.Likes = slices.DeleteFunc(r.Likes, func(id string) bool { return id == userID })
	r.Dislikes = slices.DeleteFunc(r.Dislikes, func(id string) bool { return id == userID })
	if had {
		return false
	}
	if kind == ReactionLike {
		r.Likes = append(r.Likes, userID)
	} else {
		r.Dislikes = append(r.Dislikes, userID)
	}
	return true
}

type ContentReport struct {
	UserID    string    `bson:"user_id" json:"user_id"`
	Reason    string    `bson:"reason" json:"reason"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

type ForumReply struct {
	ID        string `bson:"_id" json:"id"`
	AuthorID  string `bson:"author_id" json:"author_id"`
	Author    string `bson:"author" json:"author"`
	Content   string `bson:"content" json:"content"`
	Reactions `bson:",inline"`
	Reports   []ContentReport `bson:"reports" json:"reports,omitempty"`
	CreatedAt time.Time       `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time       `bson:"updated_at" json:"updated_at"`
}

type ForumComment struct {
	ID        string `bson:"_id" json:"id"`
	AuthorID  string `bson:"author_id" json:"author_id"`
	Author    string `bson:"author" json:"author"`
	Content   string `bson:"content" json:"content"`
	Reactions `bson:",inline"`
	Replies   []ForumReply    `bson:"replies" json:"replies"`
	Reports   []ContentReport `bson:"reports" json:"reports,omitempty"`
	Edited    bool            `bson:"edited" json:"edited"`
	CreatedAt time.Time       `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time       `bson:"updated_at" json:"updated_at"`
}

type ForumPost struct {
	ID        string   `bson:"_id" json:"id"`
	AuthorID  string   `bson:"author_id" json:"author_id"`
	Author    string   `bson:"author" json:"author"`
	Title     string   `bson:"title" json:"title"`
	Content   string   `bson:"content" json:"content"`
	Category  string   `bson:"category" json:"category"`
	Tags      []string `bson:"tags" json:"tags"`
	Reactions `bson:",inline"`
	Comments  []ForumComment  `bson:"comments" json:"comments"`
	Reports   []ContentReport `bson:"reports" json:"reports,omitempty"`
	Views     int64           `bson:"views" json:"views"`
	IsLocked  bool            `bson:"is_locked" json:"is_locked"`
	IsPinned  bool            `bson:"is_pinned" json:"is_pinned"`
	Version   int64           `bson:"version" json:"version"`
	CreatedAt time.Time       `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time       `bson:"updated_at" json:"updated_at"`
}

func (p *ForumPost) Comment(id string) *ForumComment {
	for i := range p.Comments {
		if p.Comments[i].ID == id {
			return &p.Comments[i]
		}
	}
	return nil
}

func (c *ForumComment) Reply(id string) *ForumReply {
	for i := range c.Replies {
		if c.Replies[i].ID == id {
			return &c.Replies[i]
		}
	}
	return nil
}

// ReportCount counts reports on the post and everything nested under it.
func (p *ForumPost) ReportCount() int {
	n := len(p.Reports)
	for _, c := range p.Comments {
		n += len(c.Reports)
		for _, r := range c.Replies {
			n += len(r.Reports)
		}
	}
	return n
}

type ForumFilter struct {
	Category string
	Search   string
	Sort     string // latest, popular, views
	Page     int
	Limit    int
}
