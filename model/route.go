package model

import "time"

type TravelMode string

const (
	ModeDriving TravelMode = "driving"
	ModeWalking TravelMode = "walking"
	ModeCycling TravelMode = "cycling"
	ModeTransit TravelMode = "transit"
)

type GeoPoint struct {
	Label string  `bson:"label,omitempty" json:"label,omitempty"`
	Lat   float64 `bson:"lat" json:"lat" binding:"gte=-90,lte=90"`
	Lng   float64 `bson:"lng" json:"lng" binding:"gte=-180,lte=180"`
}

// Route is a saved trip plan, typically from a listing to a point of interest.
type Route struct {
	ID          string     `bson:"_id" json:"id"`
	UserID      string     `bson:"user_id" json:"user_id"`
	Name        string     `bson:"name" json:"name"`
	ListingID   string     `bson:"listing_id,omitempty" json:"listing_id,omitempty"`
	Origin      GeoPoint   `bson:"origin" json:"origin"`
	Destination GeoPoint   `bson:"destination" json:"destination"`
	Waypoints   []GeoPoint `bson:"waypoints" json:"waypoints"`
	Mode        TravelMode `bson:"mode" json:"mode"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
}
