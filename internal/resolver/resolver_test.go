package resolver

import (
	"math"
	"sync"
	"testing"

	"polygonal-zones/internal/catalog"
	"polygonal-zones/internal/models"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(minX, minY, maxX, maxY float64) orb.Polygon {
	return orb.Polygon{{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY}}}
}

// haversine is computed by hand so the expectations do not depend on the geo package.
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dlat := (lat2 - lat1) * rad
	dlon := (lon2 - lon1) * rad
	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dlon/2)*math.Sin(dlon/2)
	return 6371000 * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func TestResolve_OverlappingSquares(t *testing.T) {
	c := catalog.New([]catalog.Zone{
		{Name: "A", Priority: 0, Geometry: square(0, 0, 10, 10)},
		{Name: "B", Priority: 0, Geometry: square(5, 0, 15, 10)},
	})
	fix := models.LocationFix{Latitude: 5, Longitude: 7, Accuracy: 1}

	assert.Equal(t, []int{0, 1}, Candidates(orb.Point{7, 5}, 1.0/111320, c))

	got := Resolve(fix, c)
	require.NotNil(t, got)
	// B's west edge is 2 degrees away, A's east edge 3 degrees.
	assert.Equal(t, "B", got.Name)
	assert.InEpsilon(t, haversine(5, 7, 5, 10), got.DistanceToCentroid, 1e-6)
}

func TestResolve_NoMatch(t *testing.T) {
	c := catalog.New([]catalog.Zone{
		{Name: "A", Geometry: square(0, 0, 10, 10)},
		{Name: "B", Geometry: square(5, 0, 15, 10)},
	})

	tests := []struct {
		name string
		fix  models.LocationFix
	}{
		{name: "far away", fix: models.LocationFix{Latitude: 45, Longitude: 90, Accuracy: 10}},
		{name: "just outside the buffer", fix: models.LocationFix{Latitude: 5, Longitude: 15.001, Accuracy: 100}},
		{name: "zero accuracy outside", fix: models.LocationFix{Latitude: -1, Longitude: -1, Accuracy: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, Resolve(tt.fix, c))
		})
	}
}

func TestResolve_EmptyCatalog(t *testing.T) {
	fix := models.LocationFix{Latitude: 5, Longitude: 7, Accuracy: 1}
	assert.Nil(t, Resolve(fix, catalog.Empty()))
	assert.Nil(t, Resolve(fix, nil))
}

func TestResolve_SingleCandidate(t *testing.T) {
	c := catalog.New([]catalog.Zone{
		{Name: "home", Priority: 3, Geometry: square(4.89, 52.37, 4.91, 52.38)},
		{Name: "work", Priority: 0, Geometry: square(5.10, 52.08, 5.12, 52.10)},
	})

	tests := []struct {
		name string
		fix  models.LocationFix
	}{
		{name: "inside", fix: models.LocationFix{Latitude: 52.371, Longitude: 4.895, Accuracy: 5}},
		{name: "outside but within accuracy", fix: models.LocationFix{Latitude: 52.3695, Longitude: 4.9, Accuracy: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.fix, c)
			require.NotNil(t, got)
			assert.Equal(t, "home", got.Name)
			assert.InEpsilon(t, haversine(tt.fix.Latitude, tt.fix.Longitude, 52.375, 4.9), got.DistanceToCentroid, 1e-6)
		})
	}
}

func TestResolve_PriorityDominatesDistance(t *testing.T) {
	// The fix sits right next to the edge of "near" but deep inside "preferred".
	c := catalog.New([]catalog.Zone{
		{Name: "near", Priority: 1, Geometry: square(0, 0, 10, 10)},
		{Name: "preferred", Priority: 0, Geometry: square(-50, -50, 50, 50)},
	})

	for _, fix := range []models.LocationFix{
		{Latitude: 5, Longitude: 9.99, Accuracy: 1},
		{Latitude: 5, Longitude: 5, Accuracy: 1},
		{Latitude: 0.001, Longitude: 0.001, Accuracy: 1000},
	} {
		got := Resolve(fix, c)
		require.NotNil(t, got)
		assert.Equal(t, "preferred", got.Name)
	}
}

func TestResolve_PriorityFilterKeepsAllLowest(t *testing.T) {
	c := catalog.New([]catalog.Zone{
		{Name: "outer", Priority: 1, Geometry: square(-1, -1, 11, 11)},
		{Name: "left", Priority: 0, Geometry: square(0, 0, 6, 10)},
		{Name: "right", Priority: 0, Geometry: square(4, 0, 10, 10)},
	})

	got := Resolve(models.LocationFix{Latitude: 5, Longitude: 5.5, Accuracy: 1}, c)
	require.NotNil(t, got)
	// left's east edge is 0.5 away, right's west edge 1.5.
	assert.Equal(t, "left", got.Name)
}

func TestResolve_TieGoesToFirstInCatalog(t *testing.T) {
	for _, order := range [][]string{{"first", "second"}, {"second", "first"}} {
		c := catalog.New([]catalog.Zone{
			{Name: order[0], Geometry: square(0, 0, 10, 10)},
			{Name: order[1], Geometry: square(0, 0, 10, 10)},
		})

		got := Resolve(models.LocationFix{Latitude: 5, Longitude: 5, Accuracy: 1}, c)
		require.NotNil(t, got)
		assert.Equal(t, order[0], got.Name)
	}
}

func TestResolve_BoundaryCountsAsInside(t *testing.T) {
	c := catalog.New([]catalog.Zone{{Name: "A", Geometry: square(0, 0, 10, 10)}})

	tests := []struct {
		name     string
		lat, lon float64
		accuracy float64
	}{
		{name: "west edge", lat: 5, lon: 0},
		{name: "south edge", lat: 0, lon: 5},
		{name: "east edge", lat: 5, lon: 10},
		{name: "north edge", lat: 10, lon: 5},
		{name: "corner", lat: 10, lon: 10},
		{name: "buffer touching east edge", lat: 5, lon: 10.01, accuracy: 1113.2},
		{name: "buffer touching north edge", lat: 10.01, lon: 5, accuracy: 1113.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(models.LocationFix{Latitude: tt.lat, Longitude: tt.lon, Accuracy: tt.accuracy}, c)
			require.NotNil(t, got)
			assert.Equal(t, "A", got.Name)
		})
	}
}

func TestResolve_RespectsHoles(t *testing.T) {
	donut := orb.Polygon{square(0, 0, 10, 10)[0], square(4, 4, 6, 6)[0]}
	c := catalog.New([]catalog.Zone{{Name: "donut", Geometry: donut}})

	assert.Nil(t, Resolve(models.LocationFix{Latitude: 5, Longitude: 5, Accuracy: 10}, c))
	assert.NotNil(t, Resolve(models.LocationFix{Latitude: 2, Longitude: 2, Accuracy: 10}, c))
}

func TestResolve_MultiPolygon(t *testing.T) {
	c := catalog.New([]catalog.Zone{
		{Name: "campus", Geometry: orb.MultiPolygon{square(0, 0, 1, 1), square(3, 0, 4, 1)}},
	})

	got := Resolve(models.LocationFix{Latitude: 0.5, Longitude: 3.5, Accuracy: 1}, c)
	require.NotNil(t, got)
	assert.Equal(t, "campus", got.Name)
}

func TestResolve_IgnoresNonArealZones(t *testing.T) {
	c := catalog.New([]catalog.Zone{
		{Name: "pin", Geometry: orb.Point{5, 5}},
		{Name: "area", Geometry: square(0, 0, 10, 10)},
	})

	got := Resolve(models.LocationFix{Latitude: 5, Longitude: 5, Accuracy: 10}, c)
	require.NotNil(t, got)
	assert.Equal(t, "area", got.Name)
}

func TestResolve_Idempotent(t *testing.T) {
	c := catalog.New([]catalog.Zone{
		{Name: "A", Geometry: square(0, 0, 10, 10)},
		{Name: "B", Geometry: square(5, 0, 15, 10)},
	})
	fix := models.LocationFix{Latitude: 5, Longitude: 7, Accuracy: 1}

	assert.Equal(t, Resolve(fix, c), Resolve(fix, c))
}

func TestResolve_Concurrent(t *testing.T) {
	c := catalog.New([]catalog.Zone{
		{Name: "A", Geometry: square(0, 0, 10, 10)},
		{Name: "B", Geometry: square(5, 0, 15, 10)},
	})
	fix := models.LocationFix{Latitude: 5, Longitude: 7, Accuracy: 1}
	want := Resolve(fix, c)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, Resolve(fix, c))
		}()
	}
	wg.Wait()
}
