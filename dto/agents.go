package dto

import (
	"urbansetu/model"
	"urbansetu/usecase"
)

type AgentRequest struct {
	Name            string `json:"name" binding:"required,max=100"`
	Agency          string `json:"agency" binding:"max=100"`
	City            string `json:"city" binding:"required"`
	ExperienceYears int    `json:"experience_years" binding:"gte=0,lte=70"`
	Phone           string `json:"phone" binding:"required,min=7,max=20"`
	Email           string `json:"email" binding:"required,email"`
	About           string `json:"about" binding:"max=2000"`
	Photo           string `json:"photo" binding:"omitempty,url"`
}

func (r AgentRequest) ToInput() usecase.AgentInput {
	return usecase.AgentInput{
		Name:            r.Name,
		Agency:          r.Agency,
		City:            r.City,
		ExperienceYears: r.ExperienceYears,
		Phone:           r.Phone,
		Email:           r.Email,
		About:           r.About,
		Photo:           r.Photo,
	}
}

type RejectRequest struct {
	Reason string `json:"reason" binding:"required,max=1000"`
}

type ReviewRequest struct {
	TargetType model.ReviewTarget `json:"target_type" binding:"required,oneof=listing agent"`
	TargetID   string             `json:"target_id" binding:"required"`
	Rating     int                `json:"rating" binding:"required,min=1,max=5"`
	Comment    string             `json:"comment" binding:"max=2000"`
}

func (r ReviewRequest) ToInput() usecase.ReviewInput {
	return usecase.ReviewInput{TargetType: r.TargetType, TargetID: r.TargetID, Rating: r.Rating, Comment: r.Comment}
}

type ModerationRequest struct {
	Note string `json:"note" binding:"max=1000"`
}
