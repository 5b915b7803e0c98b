package tracker

import (
	"context"
	"errors"
	"fmt"

	"polygonal-zones/internal/models"
)

// Manager owns every configured tracker.
type Manager struct {
	trackers []*Tracker
	byID     map[string]*Tracker
}

// NewManager registers the trackers in the given order.
func NewManager(trackers ...*Tracker) *Manager {
	m := &Manager{byID: make(map[string]*Tracker, len(trackers))}
	for _, t := range trackers {
		m.trackers = append(m.trackers, t)
		m.byID[t.ID()] = t
	}
	return m
}

// Get returns the tracker with the given id.
func (m *Manager) Get(id string) (*Tracker, error) {
	t, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTrackerNotFound, id)
	}
	return t, nil
}

// List returns the trackers in registration order.
func (m *Manager) List() []*Tracker {
	return m.trackers
}

// Dispatch hands the update to every tracker following its entity and returns the states that
// were updated.
func (m *Manager) Dispatch(u models.LocationUpdate) []models.TrackerState {
	var changed []models.TrackerState
	for _, t := range m.trackers {
		if state, ok := t.HandleUpdate(u); ok {
			changed = append(changed, state)
		}
	}
	return changed
}

// ReloadAll reloads every tracker and returns the joined errors of the failing ones.
func (m *Manager) ReloadAll(ctx context.Context) error {
	var errs []error
	for _, t := range m.trackers {
		if _, err := t.Reload(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
