package model

import "time"

type ContractStatus string

const (
	ContractPending    ContractStatus = "pending"
	ContractActive     ContractStatus = "active"
	ContractRejected   ContractStatus = "rejected"
	ContractTerminated ContractStatus = "terminated"
	ContractCompleted  ContractStatus = "completed"
)

type RentalContract struct {
	ID           string         `bson:"_id" json:"id"`
	ListingID    string         `bson:"listing_id" json:"listing_id"`
	TenantID     string         `bson:"tenant_id" json:"tenant_id"`
	LandlordID   string         `bson:"landlord_id" json:"landlord_id"`
	StartDate    time.Time      `bson:"start_date" json:"start_date"`
	EndDate      time.Time      `bson:"end_date" json:"end_date"`
	MonthlyRent  float64        `bson:"monthly_rent" json:"monthly_rent"`
	Deposit      float64        `bson:"deposit" json:"deposit"`
	Status       ContractStatus `bson:"status" json:"status"`
	Notes        string         `bson:"notes,omitempty" json:"notes,omitempty"`
	TerminatedBy string         `bson:"terminated_by,omitempty" json:"terminated_by,omitempty"`
	CreatedAt    time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `bson:"updated_at" json:"updated_at"`
}

func (c *RentalContract) IsParty(userID string) bool {
	return c.TenantID == userID || c.LandlordID == userID
}
