package model

import "time"

type ReportTarget string

const (
	ReportTargetMessage ReportTarget = "message"
	ReportTargetListing ReportTarget = "listing"
	ReportTargetUser    ReportTarget = "user"
	ReportTargetReview  ReportTarget = "review"
)

type ReportStatus string

const (
	ReportOpen      ReportStatus = "open"
	ReportResolved  ReportStatus = "resolved"
	ReportDismissed ReportStatus = "dismissed"
)

type ReportMessage struct {
	ID          string       `bson:"_id" json:"id"`
	ReporterID  string       `bson:"reporter_id" json:"reporter_id"`
	TargetType  ReportTarget `bson:"target_type" json:"target_type"`
	TargetID    string       `bson:"target_id" json:"target_id"`
	Reason      string       `bson:"reason" json:"reason"`
	Description string       `bson:"description,omitempty" json:"description,omitempty"`
	Status      ReportStatus `bson:"status" json:"status"`
	ResolvedBy  string       `bson:"resolved_by,omitempty" json:"resolved_by,omitempty"`
	Notes       string       `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt   time.Time    `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `bson:"updated_at" json:"updated_at"`
}
