// Package tracker keeps one zone catalog per tracked entity and turns location updates into
// tracker states.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"polygonal-zones/internal/catalog"
	"polygonal-zones/internal/config"
	"polygonal-zones/internal/loader"
	"polygonal-zones/internal/metrics"
	"polygonal-zones/internal/models"
	"polygonal-zones/internal/resolver"

	"github.com/rs/zerolog/log"
)

var ErrTrackerNotFound = errors.New("tracker not found")

// CatalogBuilder builds a catalog from an ordered list of sources.
type CatalogBuilder interface {
	Build(ctx context.Context, sources []string, prioritize bool) (*catalog.Catalog, error)
}

// Tracker follows one source entity. Its catalog is swapped atomically on reload, so resolving
// never waits for a rebuild and never sees a partial catalog.
type Tracker struct {
	id         string
	entityID   string
	sources    []string
	prioritize bool
	editable   bool

	builder CatalogBuilder
	catalog atomic.Pointer[catalog.Catalog]

	reloadMu sync.Mutex

	mu      sync.Mutex
	state   models.TrackerState
	lastFix *models.LocationFix
	now     func() time.Time
}

// New creates a tracker with an empty catalog. Call Reload to load its zones.
func New(cfg config.Tracker, b CatalogBuilder) *Tracker {
	t := &Tracker{
		id:         cfg.ID,
		entityID:   cfg.EntityID,
		sources:    cfg.Sources(),
		prioritize: cfg.Prioritize,
		editable:   cfg.Editable,
		builder:    b,
		now:        time.Now,
	}
	t.catalog.Store(catalog.Empty())
	t.state = models.TrackerState{
		TrackerID:    t.id,
		SourceEntity: t.entityID,
		LocationName: models.LocationUnknown,
	}
	return t
}

func (t *Tracker) ID() string { return t.id }
func (t *Tracker) EntityID() string { return t.entityID }
func (t *Tracker) Sources() []string { return t.sources }
func (t *Tracker) Prioritize() bool { return t.prioritize }

// Catalog returns the active catalog snapshot.
func (t *Tracker) Catalog() *catalog.Catalog {
	return t.catalog.Load()
}

// EditableSource returns the source that zone mutations write to. Only the first source of an
// editable tracker qualifies, and only when it is a local file.
func (t *Tracker) EditableSource() (string, bool) {
	if !t.editable || len(t.sources) == 0 || loader.IsRemote(t.sources[0]) {
		return "", false
	}
	return t.sources[0], true
}

// State returns a copy of the current state.
func (t *Tracker) State() models.TrackerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Restore seeds the tracker with a previously persisted state. The restored position becomes the
// last seen fix, so an identical update does not trigger and a reload re-resolves it.
func (t *Tracker) Restore(s models.TrackerState) {
	if s.TrackerID != t.id || s.SourceEntity != t.entityID {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.state = s
	if s.LocationName != models.LocationUnknown {
		t.lastFix = &models.LocationFix{Latitude: s.Latitude, Longitude: s.Longitude, Accuracy: s.GPSAccuracy}
	}
}

// Reload rebuilds the catalog and re-evaluates the last known fix. On failure the previous
// catalog stays active.
func (t *Tracker) Reload(ctx context.Context) (models.TrackerState, error) {
	t.reloadMu.Lock()
	defer t.reloadMu.Unlock()

	c, err := t.builder.Build(ctx, t.sources, t.prioritize)
	metrics.CatalogBuildsTotal.WithLabelValues(t.id, metrics.Status(err)).Inc()
	if err != nil {
		log.Error().Err(err).Str("tracker", t.id).Msg("failed to reload zones, keeping previous catalog")
		return t.State(), fmt.Errorf("tracker %s: %w", t.id, err)
	}

	t.catalog.Store(c)
	metrics.CatalogZones.WithLabelValues(t.id).Set(float64(c.Len()))
	log.Info().Str("tracker", t.id).Int("zones", c.Len()).Msg("zones reloaded")

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastFix != nil {
		t.apply(*t.lastFix)
	}
	return t.state, nil
}

// ShouldTrigger reports whether the update is for this tracker's entity and changes at least one
// of latitude, longitude and accuracy.
func (t *Tracker) ShouldTrigger(u models.LocationUpdate) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.shouldTrigger(u)
}

func (t *Tracker) shouldTrigger(u models.LocationUpdate) bool {
	if u.EntityID != t.entityID {
		return false
	}
	if t.lastFix == nil {
		return true
	}
	return t.lastFix.Latitude != *u.Latitude ||
		t.lastFix.Longitude != *u.Longitude ||
		t.lastFix.Accuracy != *u.Accuracy
}

// HandleUpdate resolves the update when it triggers and returns the new state.
func (t *Tracker) HandleUpdate(u models.LocationUpdate) (models.TrackerState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.shouldTrigger(u) {
		return t.state, false
	}

	fix := u.Fix()
	t.lastFix = &fix
	t.apply(fix)
	if !u.Timestamp.IsZero() {
		t.state.UpdatedAt = u.Timestamp
	}
	return t.state, true
}

// Resolve matches a fix against the active catalog without touching the tracker state.
func (t *Tracker) Resolve(fix models.LocationFix) *models.ZoneMatch {
	start := time.Now()
	m := resolver.Resolve(fix, t.catalog.Load())
	metrics.ResolveDuration.Observe(time.Since(start).Seconds())

	result := "match"
	if m == nil {
		result = "away"
	}
	metrics.ResolveTotal.WithLabelValues(result).Inc()
	return m
}

// apply must be called with t.mu held.
func (t *Tracker) apply(fix models.LocationFix) {
	m := t.Resolve(fix)
	log.Debug().Str("tracker", t.id).Interface("zone", m).Msg("location resolved")

	t.state.Latitude = fix.Latitude
	t.state.Longitude = fix.Longitude
	t.state.GPSAccuracy = fix.Accuracy
	t.state.UpdatedAt = t.now().UTC()

	if m == nil {
		t.state.LocationName = models.LocationAway
		t.state.DistanceToCentroid = nil
		return
	}
	d := m.DistanceToCentroid
	t.state.LocationName = m.Name
	t.state.DistanceToCentroid = &d
}
