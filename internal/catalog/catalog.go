// Package catalog turns GeoJSON zone sources into an immutable, spatially indexed set of zones.
package catalog

import (
	"sort"

	"polygonal-zones/internal/geo"
	"polygonal-zones/internal/models"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// minExtent pads every side of the indexed and queried boxes. rtreego rejects zero sized
// rectangles and does not count touching rectangles as intersecting.
const minExtent = 1e-12

// Zone is a named geofence. Priority is the index of the source it came from, lower wins.
type Zone struct {
	Name       string
	Geometry   orb.Geometry
	Priority   int
	Properties geojson.Properties
}

// Catalog is the immutable set of zones of one build. It is safe for concurrent readers.
type Catalog struct {
	zones []Zone
	tree  *rtreego.Rtree
}

type entry struct {
	index int
	rect  rtreego.Rect
}

func (e *entry) Bounds() rtreego.Rect {
	return e.rect
}

// New indexes the zones. The catalog takes ownership of the slice.
func New(zones []Zone) *Catalog {
	c := &Catalog{
		zones: zones,
		tree:  rtreego.NewTree(2, 25, 50),
	}

	for i, z := range zones {
		if z.Geometry == nil || !geo.Supported(z.Geometry) {
			continue
		}
		c.tree.Insert(&entry{index: i, rect: boundToRect(z.Geometry.Bound())})
	}
	return c
}

// Empty returns a catalog without zones.
func Empty() *Catalog {
	return New(nil)
}

// Len returns the number of zones.
func (c *Catalog) Len() int {
	return len(c.zones)
}

// Zone returns the zone at position i in iteration order.
func (c *Catalog) Zone(i int) Zone {
	return c.zones[i]
}

// Zones returns the zones in iteration order. Callers must not modify the returned slice.
func (c *Catalog) Zones() []Zone {
	return c.zones
}

// Near returns, in iteration order, the positions of the zones whose bounding box intersects b.
func (c *Catalog) Near(b orb.Bound) []int {
	found := c.tree.SearchIntersect(boundToRect(b))
	if len(found) == 0 {
		return nil
	}

	idx := make([]int, 0, len(found))
	for _, s := range found {
		idx = append(idx, s.(*entry).index)
	}
	sort.Ints(idx)
	return idx
}

// Summaries lists every zone with its exterior ring coordinates.
func (c *Catalog) Summaries() []models.ZoneSummary {
	out := make([]models.ZoneSummary, 0, len(c.zones))
	for _, z := range c.zones {
		out = append(out, models.ZoneSummary{
			Name:        z.Name,
			Priority:    z.Priority,
			Coordinates: exterior(z.Geometry),
		})
	}
	return out
}

func exterior(g orb.Geometry) [][2]float64 {
	var ring orb.Ring
	switch g := g.(type) {
	case orb.Polygon:
		if len(g) > 0 {
			ring = g[0]
		}
	case orb.MultiPolygon:
		if len(g) > 0 && len(g[0]) > 0 {
			ring = g[0][0]
		}
	}

	coords := make([][2]float64, 0, len(ring))
	for _, p := range ring {
		coords = append(coords, [2]float64{p[0], p[1]})
	}
	return coords
}

func boundToRect(b orb.Bound) rtreego.Rect {
	width := b.Max[0] - b.Min[0] + 2*minExtent
	height := b.Max[1] - b.Min[1] + 2*minExtent

	rect, err := rtreego.NewRect(rtreego.Point{b.Min[0] - minExtent, b.Min[1] - minExtent}, []float64{width, height})
	if err != nil {
		// NewRect only rejects non-positive lengths, which the padding rules out.
		panic(err)
	}
	return rect
}
