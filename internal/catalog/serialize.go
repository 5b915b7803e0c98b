package catalog

import (
	"github.com/paulmach/orb/geojson"
)

// FeatureCollection renders zones back into the persisted GeoJSON shape. Priority is not written,
// it only exists relative to the source order of a build.
func FeatureCollection(zones []Zone) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, z := range zones {
		f := geojson.NewFeature(z.Geometry)
		for k, v := range z.Properties {
			f.Properties[k] = v
		}
		f.Properties["name"] = z.Name
		fc.Append(f)
	}
	return fc
}

// Serialize encodes the catalog as a GeoJSON FeatureCollection.
func (c *Catalog) Serialize() ([]byte, error) {
	return FeatureCollection(c.zones).MarshalJSON()
}
