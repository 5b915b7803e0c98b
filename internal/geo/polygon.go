package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Supported reports whether matches against g are defined. Only areal geometries can contain a fix.
func Supported(g orb.Geometry) bool {
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon, orb.Bound:
		return true
	}
	return false
}

// BufferIntersects reports whether the disc of the given radius (in degrees) around center
// intersects the geometry. Holes are respected: a disc fully inside a hole does not intersect.
// Unsupported geometry types never intersect.
func BufferIntersects(g orb.Geometry, center orb.Point, radius float64) bool {
	switch g := g.(type) {
	case orb.Polygon:
		return polygonIntersects(g, center, radius)
	case orb.MultiPolygon:
		for _, p := range g {
			if polygonIntersects(p, center, radius) {
				return true
			}
		}
	case orb.Bound:
		return polygonIntersects(g.ToPolygon(), center, radius)
	}
	return false
}

func polygonIntersects(p orb.Polygon, center orb.Point, radius float64) bool {
	if len(p) == 0 {
		return false
	}
	if planar.PolygonContains(p, center) {
		return true
	}
	return planar.DistanceFrom(p, center) <= radius
}

// Centroid returns the area weighted centroid of g.
func Centroid(g orb.Geometry) orb.Point {
	c, _ := planar.CentroidArea(g)
	return c
}

// BoundaryDistance returns the great-circle distance in meters from p to the closest point of the
// exterior boundary of g. For a multipolygon the closest exterior of any member counts.
func BoundaryDistance(g orb.Geometry, p orb.Point) float64 {
	switch g := g.(type) {
	case orb.Polygon:
		if len(g) == 0 {
			return math.Inf(1)
		}
		return ringDistance(g[0], p)
	case orb.MultiPolygon:
		best := math.Inf(1)
		for _, poly := range g {
			if len(poly) == 0 {
				continue
			}
			if d := ringDistance(poly[0], p); d < best {
				best = d
			}
		}
		return best
	case orb.Bound:
		return ringDistance(g.ToRing(), p)
	}
	return math.Inf(1)
}

func ringDistance(r orb.Ring, p orb.Point) float64 {
	best := math.Inf(1)
	switch len(r) {
	case 0:
		return best
	case 1:
		return PointDistance(p, r[0])
	}

	for i := 0; i < len(r)-1; i++ {
		d := PointDistance(p, ClosestOnSegment(r[i], r[i+1], p))
		if d < best {
			best = d
		}
	}
	return best
}

// ClosestOnSegment projects p onto the segment a-b in the plane and clamps it to the segment.
func ClosestOnSegment(a, b, p orb.Point) orb.Point {
	dx := b[0] - a[0]
	dy := b[1] - a[1]

	length2 := dx*dx + dy*dy
	if length2 == 0 {
		return a
	}

	t := ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / length2
	switch {
	case t <= 0:
		return a
	case t >= 1:
		return b
	}
	return orb.Point{a[0] + t*dx, a[1] + t*dy}
}
