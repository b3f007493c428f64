package dto

import (
	"time"

	"urbansetu/model"
	"urbansetu/usecase"
)

type ListingRequest struct {
	Name          string            `json:"name" binding:"required,max=200"`
	Description   string            `json:"description" binding:"max=10000"`
	Address       string            `json:"address" binding:"required"`
	City          string            `json:"city" binding:"required"`
	State         string            `json:"state"`
	Type          model.ListingType `json:"type" binding:"required,oneof=rent sale"`
	RegularPrice  float64           `json:"regular_price" binding:"required,gt=0"`
	DiscountPrice float64           `json:"discount_price" binding:"gte=0"`
	Offer         bool              `json:"offer"`
	Bedrooms      int               `json:"bedrooms" binding:"gte=0,lte=50"`
	Bathrooms     int               `json:"bathrooms" binding:"gte=0,lte=50"`
	Parking       bool              `json:"parking"`
	Furnished     bool              `json:"furnished"`
	ImageURLs     []string          `json:"image_urls" binding:"max=6,dive,url"`
	ESG           *model.ESGDetails `json:"esg"`
}

func (r ListingRequest) ToInput() usecase.ListingInput {
	return usecase.ListingInput{
		Name:          r.Name,
		Description:   r.Description,
		Address:       r.Address,
		City:          r.City,
		State:         r.State,
		Type:          r.Type,
		RegularPrice:  r.RegularPrice,
		DiscountPrice: r.DiscountPrice,
		Offer:         r.Offer,
		Bedrooms:      r.Bedrooms,
		Bathrooms:     r.Bathrooms,
		Parking:       r.Parking,
		Furnished:     r.Furnished,
		ImageURLs:     r.ImageURLs,
		ESG:           r.ESG,
	}
}

type ListingQuery struct {
	Search    string            `form:"q"`
	City      string            `form:"city"`
	Type      model.ListingType `form:"type" binding:"omitempty,oneof=rent sale"`
	MinPrice  float64           `form:"min_price" binding:"gte=0"`
	MaxPrice  float64           `form:"max_price" binding:"gte=0"`
	Bedrooms  int               `form:"bedrooms" binding:"gte=0"`
	Furnished *bool             `form:"furnished"`
	Parking   *bool             `form:"parking"`
	Offer     *bool             `form:"offer"`
	OwnerID   string            `form:"owner_id"`
	SortBy    string            `form:"sort" binding:"omitempty,oneof=created_at regular_price esg_score"`
	SortOrder string            `form:"order" binding:"omitempty,oneof=asc desc"`
	Page      int               `form:"page,default=1" binding:"gte=1"`
	Limit     int               `form:"limit,default=20" binding:"gte=1,lte=100"`
}

func (q ListingQuery) ToFilter() model.ListingFilter {
	return model.ListingFilter{
		Search:    q.Search,
		City:      q.City,
		Type:      q.Type,
		MinPrice:  q.MinPrice,
		MaxPrice:  q.MaxPrice,
		Bedrooms:  q.Bedrooms,
		Furnished: q.Furnished,
		Parking:   q.Parking,
		Offer:     q.Offer,
		OwnerID:   q.OwnerID,
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
		Page:      q.Page,
		Limit:     q.Limit,
	}
}

type ContractRequest struct {
	ListingID string    `json:"listing_id" binding:"required"`
	StartDate time.Time `json:"start_date" binding:"required"`
	EndDate   time.Time `json:"end_date" binding:"required,gtfield=StartDate"`
	Deposit   float64   `json:"deposit" binding:"gte=0"`
	Notes     string    `json:"notes" binding:"max=2000"`
}

func (r ContractRequest) ToInput() usecase.ContractInput {
	return usecase.ContractInput{
		ListingID: r.ListingID,
		StartDate: r.StartDate,
		EndDate:   r.EndDate,
		Deposit:   r.Deposit,
		Notes:     r.Notes,
	}
}
