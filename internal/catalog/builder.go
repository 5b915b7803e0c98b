package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"polygonal-zones/internal/geo"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ErrMalformedGeoJSON is returned when a source is not a valid zone FeatureCollection.
var ErrMalformedGeoJSON = errors.New("malformed geojson")

// Fetcher returns the raw content of a zone source.
type Fetcher interface {
	Fetch(ctx context.Context, source string) (string, error)
}

// Builder builds catalogs from an ordered list of sources.
type Builder struct {
	fetcher Fetcher
}

// NewBuilder creates a builder reading sources through f.
func NewBuilder(f Fetcher) *Builder {
	return &Builder{fetcher: f}
}

// Build fetches and parses every source. Zones of source i get priority i when prioritize is set
// and 0 otherwise. Any failing source fails the whole build.
func (b *Builder) Build(ctx context.Context, sources []string, prioritize bool) (*Catalog, error) {
	start := time.Now()

	texts := make([]string, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, source := range sources {
		g.Go(func() error {
			text, err := b.fetcher.Fetch(gctx, source)
			if err != nil {
				return err
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("catalog: failed to fetch sources: %w", err)
	}

	var zones []Zone
	for i, text := range texts {
		priority := 0
		if prioritize {
			priority = i
		}

		parsed, err := Parse([]byte(text), priority)
		if err != nil {
			return nil, fmt.Errorf("catalog: source %q: %w", sources[i], err)
		}
		zones = append(zones, parsed...)
	}

	log.Info().
		Int("sources", len(sources)).
		Int("zones", len(zones)).
		Bool("prioritize", prioritize).
		Dur("took", time.Since(start)).
		Msg("catalog built")

	return New(zones), nil
}

// Parse decodes one FeatureCollection into zones carrying the given priority.
func Parse(data []byte, priority int) ([]Zone, error) {
	fc, err := DecodeFeatureCollection(data)
	if err != nil {
		return nil, err
	}

	zones := make([]Zone, 0, len(fc.Features))
	for i, f := range fc.Features {
		z, err := zoneFromFeature(f, priority)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		zones = append(zones, z)
	}
	return zones, nil
}

// DecodeFeatureCollection parses data and checks the top level type.
func DecodeFeatureCollection(data []byte) (*geojson.FeatureCollection, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedGeoJSON, err)
	}
	if head.Type != "FeatureCollection" {
		return nil, fmt.Errorf("%w: expected type FeatureCollection, got %q", ErrMalformedGeoJSON, head.Type)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedGeoJSON, err)
	}
	return fc, nil
}

// DecodeFeature parses a single zone feature and returns it together with its name.
func DecodeFeature(data []byte) (*geojson.Feature, string, error) {
	f, err := geojson.UnmarshalFeature(data)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrMalformedGeoJSON, err)
	}

	z, err := zoneFromFeature(f, 0)
	if err != nil {
		return nil, "", err
	}
	return f, z.Name, nil
}

// FeatureName returns the name property of a feature, or "" when it has none.
func FeatureName(f *geojson.Feature) string {
	if f == nil || f.Properties == nil {
		return ""
	}
	name, _ := f.Properties["name"].(string)
	return name
}

func zoneFromFeature(f *geojson.Feature, priority int) (Zone, error) {
	if f == nil {
		return Zone{}, fmt.Errorf("%w: null feature", ErrMalformedGeoJSON)
	}
	if f.Geometry == nil {
		return Zone{}, fmt.Errorf("%w: feature has no geometry", ErrMalformedGeoJSON)
	}
	if f.Properties == nil {
		return Zone{}, fmt.Errorf("%w: feature has no properties", ErrMalformedGeoJSON)
	}

	name := FeatureName(f)
	if name == "" {
		return Zone{}, fmt.Errorf("%w: feature has no name", ErrMalformedGeoJSON)
	}

	if err := validateGeometry(f.Geometry); err != nil {
		return Zone{}, fmt.Errorf("zone %q: %w", name, err)
	}
	if !geo.Supported(f.Geometry) {
		log.Warn().
			Str("zone", name).
			Str("geometry", f.Geometry.GeoJSONType()).
			Msg("zone geometry is not a polygon, it will never match")
	}

	props := make(geojson.Properties, len(f.Properties))
	for k, v := range f.Properties {
		if k == "name" {
			continue
		}
		props[k] = v
	}

	return Zone{
		Name:       name,
		Geometry:   f.Geometry,
		Priority:   priority,
		Properties: props,
	}, nil
}

func validateGeometry(g orb.Geometry) error {
	switch g := g.(type) {
	case orb.Polygon:
		return validatePolygon(g)
	case orb.MultiPolygon:
		if len(g) == 0 {
			return fmt.Errorf("%w: empty multipolygon", ErrMalformedGeoJSON)
		}
		for _, p := range g {
			if err := validatePolygon(p); err != nil {
				return err
			}
		}
	}
	return nil
}

func validatePolygon(p orb.Polygon) error {
	if len(p) == 0 {
		return fmt.Errorf("%w: polygon without rings", ErrMalformedGeoJSON)
	}
	for _, r := range p {
		if len(r) < 4 {
			return fmt.Errorf("%w: polygon ring needs at least 4 positions, got %d", ErrMalformedGeoJSON, len(r))
		}
	}
	return nil
}
