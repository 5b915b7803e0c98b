package repository

import (
	"context"
	"errors"
	"fmt"

	"polygonal-zones/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrStateNotFound is returned when no state was persisted for a tracker.
var ErrStateNotFound = errors.New("tracker state not found")

// Repository persists tracker states in PostgreSQL
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Migrate creates the tracker_states table when it does not exist
func (r *Repository) Migrate(ctx context.Context) error {
	sql := `
		CREATE TABLE IF NOT EXISTS tracker_states (
			tracker_id           TEXT PRIMARY KEY,
			source_entity        TEXT NOT NULL,
			location_name        TEXT NOT NULL,
			distance_to_centroid DOUBLE PRECISION,
			latitude             DOUBLE PRECISION NOT NULL,
			longitude            DOUBLE PRECISION NOT NULL,
			gps_accuracy         DOUBLE PRECISION NOT NULL,
			updated_at           TIMESTAMPTZ NOT NULL
		)
	`
	if _, err := r.db.Exec(ctx, sql); err != nil {
		return fmt.Errorf("repository: failed to create tracker_states: %w", err)
	}
	return nil
}

// SaveState upserts the state of a tracker
func (r *Repository) SaveState(ctx context.Context, state models.TrackerState) error {
	sql := `
		INSERT INTO tracker_states (
			tracker_id,
			source_entity,
			location_name,
			distance_to_centroid,
			latitude,
			longitude,
			gps_accuracy,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (tracker_id) DO UPDATE SET
			source_entity = EXCLUDED.source_entity,
			location_name = EXCLUDED.location_name,
			distance_to_centroid = EXCLUDED.distance_to_centroid,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			gps_accuracy = EXCLUDED.gps_accuracy,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.Exec(ctx, sql,
		state.TrackerID,
		state.SourceEntity,
		state.LocationName,
		state.DistanceToCentroid,
		state.Latitude,
		state.Longitude,
		state.GPSAccuracy,
		state.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to save state of %s: %w", state.TrackerID, err)
	}
	return nil
}

// GetState returns the persisted state of a tracker
func (r *Repository) GetState(ctx context.Context, trackerID string) (*models.TrackerState, error) {
	sql := `
		SELECT
			tracker_id,
			source_entity,
			location_name,
			distance_to_centroid,
			latitude,
			longitude,
			gps_accuracy,
			updated_at
		FROM tracker_states
		WHERE tracker_id = $1
	`

	state, err := scanState(r.db.QueryRow(ctx, sql, trackerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("repository: %w: %s", ErrStateNotFound, trackerID)
	}
	if err != nil {
		return nil, fmt.Errorf("repository: failed to get state of %s: %w", trackerID, err)
	}
	return state, nil
}

// ListStates returns every persisted state ordered by tracker id
func (r *Repository) ListStates(ctx context.Context) ([]models.TrackerState, error) {
	sql := `
		SELECT
			tracker_id,
			source_entity,
			location_name,
			distance_to_centroid,
			latitude,
			longitude,
			gps_accuracy,
			updated_at
		FROM tracker_states
		ORDER BY tracker_id
	`

	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to list states: %w", err)
	}
	defer rows.Close()

	states := []models.TrackerState{}
	for rows.Next() {
		state, err := scanState(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan state: %w", err)
		}
		states = append(states, *state)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating rows: %w", err)
	}
	return states, nil
}

func scanState(row pgx.Row) (*models.TrackerState, error) {
	var s models.TrackerState
	err := row.Scan(
		&s.TrackerID,
		&s.SourceEntity,
		&s.LocationName,
		&s.DistanceToCentroid,
		&s.Latitude,
		&s.Longitude,
		&s.GPSAccuracy,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.UpdatedAt = s.UpdatedAt.UTC()
	return &s, nil
}
