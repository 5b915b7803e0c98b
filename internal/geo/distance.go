// Package geo holds the geometry and distance primitives shared by the catalog and the resolver.
// Geometries are orb values in (longitude, latitude) degree coordinates.
package geo

import (
	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
)

const (
	// EarthRadiusMeters is the mean Earth radius used for every great-circle distance.
	EarthRadiusMeters = 6371000.0

	// MetersPerDegree approximates one degree of latitude at the equator. Accuracy radii are
	// converted with it as if the Earth were flat, which only holds for city-scale fences away
	// from the poles.
	MetersPerDegree = 111320.0
)

// Haversine returns the great-circle distance in meters between two lat/lon pairs given in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	a := s2.LatLngFromDegrees(lat1, lon1)
	b := s2.LatLngFromDegrees(lat2, lon2)

	// s2.LatLng.Distance evaluates the haversine formula on the unit sphere.
	return a.Distance(b).Radians() * EarthRadiusMeters
}

// PointDistance is Haversine for two orb points in (lon, lat) order.
func PointDistance(a, b orb.Point) float64 {
	return Haversine(a.Lat(), a.Lon(), b.Lat(), b.Lon())
}

// AccuracyToDegrees converts an accuracy radius in meters into degree units.
func AccuracyToDegrees(meters float64) float64 {
	return meters / MetersPerDegree
}
