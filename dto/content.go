package dto

import (
	"urbansetu/model"
	"urbansetu/usecase"
)

type TrackRequest struct {
	Source   string        `json:"source" binding:"max=100"`
	Referrer string        `json:"referrer" binding:"max=500"`
	Path     string        `json:"path" binding:"max=500"`
	Consent  model.ConsentUpdate `json:"consent"`
}

type HelpRequest struct {
	Slug      string   `json:"slug" binding:"max=120"`
	Title     string   `json:"title" binding:"required,max=200"`
	Content   string   `json:"content" binding:"required"`
	Category  string   `json:"category" binding:"max=50"`
	Tags      []string `json:"tags" binding:"max=20"`
	Published bool     `json:"published"`
}

func (r HelpRequest) ToInput() usecase.HelpInput {
	return usecase.HelpInput{
		Slug:      r.Slug,
		Title:     r.Title,
		Content:   r.Content,
		Category:  r.Category,
		Tags:      r.Tags,
		Published: r.Published,
	}
}

type HelpQuery struct {
	Category      string `form:"category"`
	Search        string `form:"q"`
	IncludeDrafts bool   `form:"drafts"`
	Page          int    `form:"page,default=1" binding:"gte=1"`
	Limit         int    `form:"limit,default=20" binding:"gte=1,lte=100"`
}

func (q HelpQuery) ToFilter() model.HelpFilter {
	return model.HelpFilter{
		Category:      q.Category,
		Search:        q.Search,
		IncludeDrafts: q.IncludeDrafts,
		Page:          q.Page,
		Limit:         q.Limit,
	}
}

type FeedbackRequest struct {
	Helpful *bool `json:"helpful" binding:"required"`
}

type ReportRequest struct {
	TargetType  model.ReportTarget `json:"target_type" binding:"required,oneof=message listing user review"`
	TargetID    string             `json:"target_id" binding:"required"`
	Reason      string             `json:"reason" binding:"required,max=200"`
	Description string             `json:"description" binding:"max=2000"`
}

func (r ReportRequest) ToInput() usecase.ReportInput {
	return usecase.ReportInput{
		TargetType:  r.TargetType,
		TargetID:    r.TargetID,
		Reason:      r.Reason,
		Description: r.Description,
	}
}

type CloseReportRequest struct {
	Status model.ReportStatus `json:"status" binding:"required,oneof=resolved dismissed"`
	Notes  string             `json:"notes" binding:"max=2000"`
}

type SubscriptionRequest struct {
	Email string `json:"email" binding:"required,email"`
	Topic string `json:"topic" binding:"max=50"`
}

type UpdateRequest struct {
	Title     string `json:"title" binding:"required,max=200"`
	Body      string `json:"body" binding:"required"`
	Category  string `json:"category" binding:"max=50"`
	Version   string `json:"version" binding:"max=20"`
	Published bool   `json:"published"`
}

func (r UpdateRequest) ToInput() usecase.UpdateInput {
	return usecase.UpdateInput{
		Title:     r.Title,
		Body:      r.Body,
		Category:  r.Category,
		Version:   r.Version,
		Published: r.Published,
	}
}

type RouteRequest struct {
	Name        string           `json:"name" binding:"required,max=100"`
	ListingID   string           `json:"listing_id"`
	Origin      model.GeoPoint   `json:"origin" binding:"required"`
	Destination model.GeoPoint   `json:"destination" binding:"required"`
	Waypoints   []model.GeoPoint `json:"waypoints" binding:"max=10,dive"`
	Mode        model.TravelMode `json:"mode" binding:"omitempty,oneof=driving walking cycling transit"`
}

func (r RouteRequest) ToInput() usecase.RouteInput {
	return usecase.RouteInput{
		Name:        r.Name,
		ListingID:   r.ListingID,
		Origin:      r.Origin,
		Destination: r.Destination,
		Waypoints:   r.Waypoints,
		Mode:        r.Mode,
	}
}
