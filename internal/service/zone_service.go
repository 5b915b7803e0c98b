package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"polygonal-zones/internal/loader"
	"polygonal-zones/internal/metrics"
	"polygonal-zones/internal/models"
	"polygonal-zones/internal/tracker"
	"polygonal-zones/internal/zonefile"
)

// ZoneStore edits zone files on disk
type ZoneStore interface {
	Add(path string, feature []byte) error
	Edit(path, name string, feature []byte) error
	Delete(path, name string) error
	Replace(path string, document []byte) error
}

// ZoneService edits a tracker's zone file and reloads the tracker afterwards
type ZoneService struct {
	manager *tracker.Manager
	store   ZoneStore
	paths   func(source string) string
	sink    stateSink
}

// NewZoneService creates a new zone service. paths maps a local source to its file path.
func NewZoneService(m *tracker.Manager, store ZoneStore, paths func(source string) string, repo StateRepository, pub StatePublisher) *ZoneService {
	return &ZoneService{
		manager: m,
		store:   store,
		paths:   paths,
		sink:    stateSink{repo: repo, pub: pub},
	}
}

// AddZone appends a feature to the tracker's zone file
func (s *ZoneService) AddZone(ctx context.Context, trackerID string, feature []byte) ([]models.ZoneSummary, error) {
	return s.mutate(ctx, trackerID, "add", func(path string) error {
		return s.store.Add(path, feature)
	})
}

// EditZone replaces the zone called name with feature
func (s *ZoneService) EditZone(ctx context.Context, trackerID, name string, feature []byte) ([]models.ZoneSummary, error) {
	return s.mutate(ctx, trackerID, "edit", func(path string) error {
		return s.store.Edit(path, name, feature)
	})
}

// DeleteZone removes the zone called name
func (s *ZoneService) DeleteZone(ctx context.Context, trackerID, name string) ([]models.ZoneSummary, error) {
	return s.mutate(ctx, trackerID, "delete", func(path string) error {
		return s.store.Delete(path, name)
	})
}

// ReplaceZones overwrites the tracker's zone file with document
func (s *ZoneService) ReplaceZones(ctx context.Context, trackerID string, document []byte) ([]models.ZoneSummary, error) {
	return s.mutate(ctx, trackerID, "replace", func(path string) error {
		return s.store.Replace(path, document)
	})
}

// ReloadZones rebuilds the tracker's catalog and returns its zones
func (s *ZoneService) ReloadZones(ctx context.Context, trackerID string) ([]models.ZoneSummary, error) {
	t, err := s.manager.Get(trackerID)
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}

	state, err := t.Reload(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to reload zones: %w", err)
	}
	s.sink.record(ctx, state)
	return t.Catalog().Summaries(), nil
}

// Reload implements tracker.Reloader
func (s *ZoneService) Reload(ctx context.Context, trackerID string) error {
	_, err := s.ReloadZones(ctx, trackerID)
	return err
}

// ReloadFile reloads every tracker reading the local zone file at path and returns the joined
// errors of the failing ones.
func (s *ZoneService) ReloadFile(ctx context.Context, path string) error {
	target := filepath.Clean(path)

	var errs []error
	for _, t := range s.manager.List() {
		if !readsFile(t, target, s.paths) {
			continue
		}
		if err := s.Reload(ctx, t.ID()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func readsFile(t *tracker.Tracker, path string, paths func(string) string) bool {
	for _, source := range t.Sources() {
		if !loader.IsRemote(source) && filepath.Clean(paths(source)) == path {
			return true
		}
	}
	return false
}

func (s *ZoneService) mutate(ctx context.Context, trackerID, op string, apply func(path string) error) ([]models.ZoneSummary, error) {
	t, err := s.manager.Get(trackerID)
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}

	source, ok := t.EditableSource()
	if !ok {
		metrics.ZoneMutationsTotal.WithLabelValues(op, metrics.Status(zonefile.ErrZoneFileNotEditable)).Inc()
		return nil, fmt.Errorf("service: tracker %s: %w", trackerID, zonefile.ErrZoneFileNotEditable)
	}

	err = apply(s.paths(source))
	metrics.ZoneMutationsTotal.WithLabelValues(op, metrics.Status(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("service: failed to %s zone: %w", op, err)
	}

	return s.ReloadZones(ctx, trackerID)
}
