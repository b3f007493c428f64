package model

import "time"

type ListingType string

const (
	ListingRent ListingType = "rent"
	ListingSale ListingType = "sale"
)

type Listing struct {
	ID               string      `bson:"_id" json:"id"`
	OwnerID          string      `bson:"owner_id" json:"owner_id"`
	Name             string      `bson:"name" json:"name"`
	Description      string      `bson:"description" json:"description"`
	Address          string      `bson:"address" json:"address"`
	City             string      `bson:"city" json:"city"`
	State            string      `bson:"state" json:"state"`
	Type             ListingType `bson:"type" json:"type"`
	RegularPrice     float64     `bson:"regular_price" json:"regular_price"`
	DiscountPrice    float64     `bson:"discount_price" json:"discount_price"`
	Offer            bool        `bson:"offer" json:"offer"`
	Bedrooms         int         `bson:"bedrooms" json:"bedrooms"`
	Bathrooms        int         `bson:"bathrooms" json:"bathrooms"`
	Parking          bool        `bson:"parking" json:"parking"`
	Furnished        bool        `bson:"furnished" json:"furnished"`
	ImageURLs        []string    `bson:"image_urls" json:"image_urls"`
	ESG              *ESGDetails `bson:"esg,omitempty" json:"esg,omitempty"`
	ESGScore         float64     `bson:"esg_score" json:"esg_score"`
	RentLocked       bool        `bson:"rent_locked" json:"rent_locked"`
	ActiveContractID string      `bson:"active_contract_id,omitempty" json:"active_contract_id,omitempty"`
	AverageRating    float64     `bson:"average_rating" json:"average_rating"`
	ReviewCount      int         `bson:"review_count" json:"review_count"`
	CreatedAt        time.Time   `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time   `bson:"updated_at" json:"updated_at"`
}

// EffectivePrice is the discount price when an offer is running.
func (l *Listing) EffectivePrice() float64 {
	if l.Offer && l.DiscountPrice > 0 && l.DiscountPrice < l.RegularPrice {
		return l.DiscountPrice
	}
	return l.RegularPrice
}

// ESGDetails are the raw inputs of the ESG score.
type ESGDetails struct {
	Environmental ESGEnvironmental `bson:"environmental" json:"environmental"`
	Social        ESGSocial        `bson:"social" json:"social"`
	Governance    ESGGovernance    `bson:"governance" json:"governance"`
}

type ESGEnvironmental struct {
	EnergyRating        string  `bson:"energy_rating" json:"energy_rating" binding:"omitempty,oneof=A B C D E F G"`
	SolarPanels         bool    `bson:"solar_panels" json:"solar_panels"`
	RainwaterHarvesting bool    `bson:"rainwater_harvesting" json:"rainwater_harvesting"`
	WasteManagement     bool    `bson:"waste_management" json:"waste_management"`
	GreenCertified      bool    `bson:"green_certified" json:"green_certified"`
	GreenSpacePercent   float64 `bson:"green_space_percent" json:"green_space_percent" binding:"gte=0,lte=100"`
}

type ESGSocial struct {
	Accessibility      bool    `bson:"accessibility" json:"accessibility"`
	CommunityAmenities int     `bson:"community_amenities" json:"community_amenities" binding:"gte=0"`
	SafetyFeatures     int     `bson:"safety_features" json:"safety_features" binding:"gte=0"`
	PublicTransportKm  float64 `bson:"public_transport_km" json:"public_transport_km" binding:"gte=0"`
}

type ESGGovernance struct {
	LegalCompliance   bool `bson:"legal_compliance" json:"legal_compliance"`
	ClearTitle        bool `bson:"clear_title" json:"clear_title"`
	RegisteredBuilder bool `bson:"registered_builder" json:"registered_builder"`
	Transparency      int  `bson:"transparency" json:"transparency" binding:"gte=0,lte=5"`
}

type ListingFilter struct {
	Search    string
	City      string
	Type      ListingType
	MinPrice  float64
	MaxPrice  float64
	Bedrooms  int
	Furnished *bool
	Parking   *bool
	Offer     *bool
	OwnerID   string
	SortBy    string // created_at, regular_price, esg_score
	SortOrder string // asc, desc
	Page      int
	Limit     int
}
