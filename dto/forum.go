package dto

import (
	"urbansetu/model"
	"urbansetu/usecase"
)

type PostRequest struct {
	Title    string   `json:"title" binding:"required,max=200"`
	Content  string   `json:"content" binding:"required,max=20000"`
	Category string   `json:"category" binding:"max=50"`
	Tags     []string `json:"tags" binding:"max=20,dive,max=30"`
}

func (r PostRequest) ToInput() usecase.PostInput {
	return usecase.PostInput{Title: r.Title, Content: r.Content, Category: r.Category, Tags: r.Tags}
}

type ForumQuery struct {
	Category string `form:"category"`
	Search   string `form:"q"`
	Sort     string `form:"sort" binding:"omitempty,oneof=latest popular views"`
	Page     int    `form:"page,default=1" binding:"gte=1"`
	Limit    int    `form:"limit,default=20" binding:"gte=1,lte=100"`
}

func (q ForumQuery) ToFilter() model.ForumFilter {
	return model.ForumFilter{Category: q.Category, Search: q.Search, Sort: q.Sort, Page: q.Page, Limit: q.Limit}
}

type CommentRequest struct {
	Content string `json:"content" binding:"required,max=5000"`
}

type ReactionRequest struct {
	Kind      model.ReactionKind `json:"kind" binding:"required,oneof=like dislike"`
	CommentID string             `json:"comment_id"`
	ReplyID   string             `json:"reply_id"`
}

type ForumReportRequest struct {
	CommentID string `json:"comment_id"`
	ReplyID   string `json:"reply_id"`
	Reason    string `json:"reason" binding:"required,max=500"`
}

type ContentRefRequest struct {
	CommentID string `json:"comment_id"`
	ReplyID   string `json:"reply_id"`
}

type ToggleRequest struct {
	Value bool `json:"value"`
}
