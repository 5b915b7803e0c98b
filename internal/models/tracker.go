package models

import "time"

const (
	// LocationUnknown is reported until the tracker has seen its first fix.
	LocationUnknown = "unknown"
	// LocationAway is reported when no zone matches the last fix.
	LocationAway = "away"
)

// TrackerState is the externally visible state of a tracker, mirroring a device tracker entity.
type TrackerState struct {
	TrackerID          string    `json:"tracker_id"`
	SourceEntity       string    `json:"source_entity"`
	LocationName       string    `json:"location_name"`
	DistanceToCentroid *float64  `json:"distance_to_centroid,omitempty"`
	Latitude           float64   `json:"latitude"`
	Longitude          float64   `json:"longitude"`
	GPSAccuracy        float64   `json:"gps_accuracy"`
	UpdatedAt          time.Time `json:"updated_at"`
}
