package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"polygonal-zones/internal/metrics"
	"polygonal-zones/internal/models"
	"polygonal-zones/internal/repository"
	"polygonal-zones/internal/tracker"

	"github.com/rs/zerolog/log"
)

// ErrInvalidLocation is returned for fixes outside the valid coordinate ranges.
var ErrInvalidLocation = errors.New("invalid location")

// StateRepository persists tracker states
type StateRepository interface {
	SaveState(ctx context.Context, state models.TrackerState) error
	GetState(ctx context.Context, trackerID string) (*models.TrackerState, error)
}

// StatePublisher announces tracker state changes
type StatePublisher interface {
	Publish(ctx context.Context, state models.TrackerState) error
}

// stateSink records changed states. Both sides are optional.
type stateSink struct {
	repo StateRepository
	pub  StatePublisher
}

func (s stateSink) record(ctx context.Context, state models.TrackerState) {
	if s.repo != nil {
		if err := s.repo.SaveState(ctx, state); err != nil {
			log.Warn().Err(err).Str("tracker", state.TrackerID).Msg("failed to persist tracker state")
		}
	}
	if s.pub != nil {
		if err := s.pub.Publish(ctx, state); err != nil {
			log.Warn().Err(err).Str("tracker", state.TrackerID).Msg("failed to publish tracker state")
		}
	}
}

// LocationService feeds location updates to the trackers
type LocationService struct {
	manager *tracker.Manager
	sink    stateSink
}

// NewLocationService creates a new location service. repo and pub may be nil.
func NewLocationService(m *tracker.Manager, repo StateRepository, pub StatePublisher) *LocationService {
	return &LocationService{manager: m, sink: stateSink{repo: repo, pub: pub}}
}

// Update validates the update, dispatches it and records every state it changed
func (s *LocationService) Update(ctx context.Context, u models.LocationUpdate) ([]models.TrackerState, error) {
	if u.EntityID == "" {
		return nil, fmt.Errorf("service: %w: entity id cannot be empty", ErrInvalidLocation)
	}
	if u.Latitude == nil || u.Longitude == nil || u.Accuracy == nil {
		return nil, fmt.Errorf("service: %w: latitude, longitude and gps_accuracy are required", ErrInvalidLocation)
	}
	if err := ValidateFix(u.Fix()); err != nil {
		return nil, err
	}

	changed := s.manager.Dispatch(u)
	metrics.LocationUpdatesTotal.WithLabelValues(strconv.FormatBool(len(changed) > 0)).Inc()
	log.Debug().Str("entity", u.EntityID).Int("changed", len(changed)).Msg("location update dispatched")

	for _, state := range changed {
		s.sink.record(ctx, state)
	}
	return changed, nil
}

// State returns the current state of a tracker
func (s *LocationService) State(trackerID string) (models.TrackerState, error) {
	t, err := s.manager.Get(trackerID)
	if err != nil {
		return models.TrackerState{}, fmt.Errorf("service: %w", err)
	}
	return t.State(), nil
}

// States returns the state of every tracker
func (s *LocationService) States() []models.TrackerState {
	trackers := s.manager.List()
	states := make([]models.TrackerState, 0, len(trackers))
	for _, t := range trackers {
		states = append(states, t.State())
	}
	return states
}

// Resolve matches a fix against a tracker's zones without changing its state
func (s *LocationService) Resolve(trackerID string, fix models.LocationFix) (*models.ZoneMatch, error) {
	if err := ValidateFix(fix); err != nil {
		return nil, err
	}
	t, err := s.manager.Get(trackerID)
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	return t.Resolve(fix), nil
}

// Restore seeds every tracker with its persisted state. Trackers without one keep "unknown".
func (s *LocationService) Restore(ctx context.Context) error {
	if s.sink.repo == nil {
		return nil
	}
	for _, t := range s.manager.List() {
		state, err := s.sink.repo.GetState(ctx, t.ID())
		if errors.Is(err, repository.ErrStateNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("service: failed to restore %s: %w", t.ID(), err)
		}
		t.Restore(*state)
	}
	return nil
}

// ValidateFix checks coordinate ranges and accuracy
func ValidateFix(fix models.LocationFix) error {
	if math.IsNaN(fix.Latitude) || fix.Latitude < -90 || fix.Latitude > 90 {
		return fmt.Errorf("service: %w: latitude %f", ErrInvalidLocation, fix.Latitude)
	}
	if math.IsNaN(fix.Longitude) || fix.Longitude < -180 || fix.Longitude > 180 {
		return fmt.Errorf("service: %w: longitude %f", ErrInvalidLocation, fix.Longitude)
	}
	if math.IsNaN(fix.Accuracy) || math.IsInf(fix.Accuracy, 0) || fix.Accuracy < 0 {
		return fmt.Errorf("service: %w: gps_accuracy %f", ErrInvalidLocation, fix.Accuracy)
	}
	return nil
}
