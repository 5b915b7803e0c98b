package models

import "time"

// LocationFix is a single GPS sample. Accuracy is the horizontal radius in meters.
type LocationFix struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"gps_accuracy"`
}

// LocationUpdate is one event of the location stream coming from the hosting environment.
type LocationUpdate struct {
	EntityID  string    `json:"entity_id" binding:"required"`
	Latitude  *float64  `json:"latitude" binding:"required"`
	Longitude *float64  `json:"longitude" binding:"required"`
	Accuracy  *float64  `json:"gps_accuracy" binding:"required"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Fix returns the sample carried by the update. It must only be called on validated updates.
func (u LocationUpdate) Fix() LocationFix {
	return LocationFix{
		Latitude:  *u.Latitude,
		Longitude: *u.Longitude,
		Accuracy:  *u.Accuracy,
	}
}
