package models

// ZoneMatch is the outcome of resolving a fix against a catalog.
type ZoneMatch struct {
	Name               string  `json:"name"`
	DistanceToCentroid float64 `json:"distance_to_centroid"`
}

// ZoneSummary is the reload response entry for a single zone.
type ZoneSummary struct {
	Name        string       `json:"name"`
	Priority    int          `json:"priority"`
	Coordinates [][2]float64 `json:"geometry"`
}
