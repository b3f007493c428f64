package model

import "time"

type Consent struct {
	Analytics  bool `bson:"analytics" json:"analytics"`
	Marketing  bool `bson:"marketing" json:"marketing"`
	Functional bool `bson:"functional" json:"functional"`
}

// ConsentUpdate carries the flags a visitor sent. Nil flags keep their
// stored value.
type ConsentUpdate struct {
	Analytics  *bool `json:"analytics"`
	Marketing  *bool `json:"marketing"`
	Functional *bool `json:"functional"`
}

// Apply merges u into c flag by flag.
func (u ConsentUpdate) Apply(c Consent) Consent {
	if u.Analytics != nil {
		c.Analytics = *u.Analytics
	}
	if u.Marketing != nil {
		c.Marketing = *u.Marketing
	}
	if u.Functional != nil {
		c.Functional = *u.Functional
	}
	return c
}

// AllowsAnalytics is true only for an explicit opt-in.
func (u ConsentUpdate) AllowsAnalytics() bool {
	return u.Analytics != nil && *u.Analytics
}

type PageView struct {
	Path string    `bson:"path" json:"path"`
	At   time.Time `bson:"at" json:"at"`
}

// VisitorLog is one row per fingerprint per UTC day.
type VisitorLog struct {
	ID          string     `bson:"_id" json:"id"`
	Fingerprint string     `bson:"fingerprint" json:"fingerprint"`
	VisitDate   time.Time  `bson:"visit_date" json:"visit_date"`
	IP          string     `bson:"ip" json:"ip"`
	Device      string     `bson:"device" json:"device"`
	Browser     string     `bson:"browser" json:"browser"`
	OS          string     `bson:"os" json:"os"`
	Source      string     `bson:"source" json:"source"`
	Referrer    string     `bson:"referrer,omitempty" json:"referrer,omitempty"`
	UserID      string     `bson:"user_id,omitempty" json:"user_id,omitempty"`
	PageViews   []PageView `bson:"page_views" json:"page_views"`
	VisitCount  int        `bson:"visit_count" json:"visit_count"`
	Consent     Consent    `bson:"consent" json:"consent"`
	FirstSeen   time.Time  `bson:"first_seen" json:"first_seen"`
	LastSeen    time.Time  `bson:"last_seen" json:"last_seen"`
}

type DailyCount struct {
	Date  string `bson:"_id" json:"date"`
	Count int64  `bson:"count" json:"count"`
}

type BucketCount struct {
	Key   string `bson:"_id" json:"key"`
	Count int64  `bson:"count" json:"count"`
}

type VisitorStats struct {
	Days        int           `json:"days"`
	TotalUnique int64         `json:"total_unique"`
	Daily       []DailyCount  `json:"daily"`
	Devices     []BucketCount `json:"devices"`
	Browsers    []BucketCount `json:"browsers"`
	Sources     []BucketCount `json:"sources"`
}
