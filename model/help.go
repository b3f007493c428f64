package model

import "time"

type HelpArticle struct {
	ID         string    `bson:"_id" json:"id"`
	Slug       string    `bson:"slug" json:"slug"`
	Title      string    `bson:"title" json:"title"`
	Content    string    `bson:"content" json:"content"`
	Category   string    `bson:"category" json:"category"`
	Tags       []string  `bson:"tags" json:"tags"`
	Published  bool      `bson:"published" json:"published"`
	Views      int64     `bson:"views" json:"views"`
	HelpfulYes int64     `bson:"helpful_yes" json:"helpful_yes"`
	HelpfulNo  int64     `bson:"helpful_no" json:"helpful_no"`
	AuthorID   string    `bson:"author_id" json:"author_id"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at" json:"updated_at"`
}

// HelpArticleView dedups article views per viewer per day.
type HelpArticleView struct {
	ID        string    `bson:"_id" json:"id"`
	ArticleID string    `bson:"article_id" json:"article_id"`
	Viewer    string    `bson:"viewer" json:"viewer"`
	ViewDate  time.Time `bson:"view_date" json:"view_date"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

type HelpFilter struct {
	Category      string
	Search        string
	IncludeDrafts bool
	Page          int
	Limit         int
}
