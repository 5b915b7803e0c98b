// Package resolver picks the zone a GPS fix belongs to.
//
// The accuracy radius is converted to degrees with a flat-earth factor (see geo.MetersPerDegree)
// and intersected with every zone. When several zones qualify, the ones with the lowest priority
// value are kept and the zone whose exterior boundary is closest to the fix wins. Equal distances
// go to the zone that comes first in the catalog. The reported distance is always the distance to
// the winner's centroid, not the boundary distance used to select it.
package resolver

import (
	"polygonal-zones/internal/catalog"
	"polygonal-zones/internal/geo"
	"polygonal-zones/internal/models"

	"github.com/paulmach/orb"
)

// Resolve returns the best matching zone for the fix, or nil when the fix is away from every zone.
// It does not modify the catalog and is safe for concurrent use.
func Resolve(fix models.LocationFix, c *catalog.Catalog) *models.ZoneMatch {
	if c == nil || c.Len() == 0 {
		return nil
	}

	point := orb.Point{fix.Longitude, fix.Latitude}
	radius := geo.AccuracyToDegrees(fix.Accuracy)

	candidates := Candidates(point, radius, c)
	switch len(candidates) {
	case 0:
		return nil
	case 1:
		return match(c.Zone(candidates[0]), point)
	}

	best := -1
	bestDistance := 0.0
	for _, i := range lowestPriority(candidates, c) {
		d := geo.BoundaryDistance(c.Zone(i).Geometry, point)
		if best == -1 || d < bestDistance {
			best = i
			bestDistance = d
		}
	}

	return match(c.Zone(best), point)
}

// Candidates returns, in catalog order, the positions of the zones intersecting the disc of the
// given radius in degrees around point.
func Candidates(point orb.Point, radius float64, c *catalog.Catalog) []int {
	var out []int
	for _, i := range c.Near(point.Bound().Pad(radius)) {
		if geo.BufferIntersects(c.Zone(i).Geometry, point, radius) {
			out = append(out, i)
		}
	}
	return out
}

func lowestPriority(candidates []int, c *catalog.Catalog) []int {
	lowest := c.Zone(candidates[0]).Priority
	for _, i := range candidates[1:] {
		if p := c.Zone(i).Priority; p < lowest {
			lowest = p
		}
	}

	out := make([]int, 0, len(candidates))
	for _, i := range candidates {
		if c.Zone(i).Priority == lowest {
			out = append(out, i)
		}
	}
	return out
}

func match(z catalog.Zone, point orb.Point) *models.ZoneMatch {
	return &models.ZoneMatch{
		Name:               z.Name,
		DistanceToCentroid: geo.PointDistance(point, geo.Centroid(z.Geometry)),
	}
}
