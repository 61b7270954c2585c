package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/neexbeast/tripwise/internal/trip"
)

// Querier abstracts the subset of pgxpool.Pool used by Repository.
// This allows injection of a mock in tests.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository archives generated itineraries so artifacts can be served by ID.
type Repository struct {
	q Querier
}

// NewRepository constructs a Repository backed by the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{q: pool}
}

// NewRepositoryWithQuerier constructs a Repository with a custom Querier (for tests).
func NewRepositoryWithQuerier(q Querier) *Repository {
	return &Repository{q: q}
}

const selectColumns = `
	SELECT id, cache_key, destination, trip_type, length_of_stay, budget, body, coordinates, created_at
	FROM itineraries
`

// scanItinerary reads one row in selectColumns order.
func scanItinerary(row pgx.Row) (*trip.Itinerary, error) {
	var it trip.Itinerary
	var coordsJSON []byte
	var createdAt time.Time

	if err := row.Scan(
		&it.ID,
		&it.Key,
		&it.Request.Destination,
		&it.Request.TripType,
		&it.Request.LengthOfStay,
		&it.Request.Budget,
		&it.Text,
		&coordsJSON,
		&createdAt,
	); err != nil {
		return nil, err
	}

	if len(coordsJSON) > 0 {
		if err := json.Unmarshal(coordsJSON, &it.Coordinates); err != nil {
			return nil, fmt.Errorf("unmarshaling coordinates for itinerary %s: %w", it.ID, err)
		}
	}

	it.GeneratedAt = createdAt
	it.Archived = true
	return &it, nil
}

// GetItinerary retrieves an archived itinerary by ID.
// Returns nil, nil when the ID is not found.
func (r *Repository) GetItinerary(ctx context.Context, id uuid.UUID) (*trip.Itinerary, error) {
	it, err := scanItinerary(r.q.QueryRow(ctx, selectColumns+`WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying itinerary %s: %w", id, err)
	}
	return it, nil
}

// UpsertItinerary inserts or refreshes an archived itinerary.
// On conflict (id), updates the body, coordinates, and updated_at.
func (r *Repository) UpsertItinerary(ctx context.Context, it *trip.Itinerary) error {
	coords := it.Coordinates
	if coords == nil {
		coords = []trip.Coordinate{}
	}
	coordsJSON, err := json.Marshal(coords)
	if err != nil {
		return fmt.Errorf("marshaling coordinates for itinerary %s: %w", it.ID, err)
	}

	const q = `
		INSERT INTO itineraries (id, cache_key, destination, trip_type, length_of_stay, budget, body, coordinates, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (id) DO UPDATE
		SET body        = EXCLUDED.body,
		    coordinates = EXCLUDED.coordinates,
		    updated_at  = EXCLUDED.updated_at
	`

	if _, err := r.q.Exec(ctx, q,
		it.ID,
		it.Key,
		it.Request.Destination,
		it.Request.TripType,
		it.Request.LengthOfStay,
		it.Request.Budget,
		it.Text,
		coordsJSON,
	); err != nil {
		return fmt.Errorf("upserting itinerary %s: %w", it.ID, err)
	}

	return nil
}

// ListRecent returns the most recently created itineraries, newest first.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]*trip.Itinerary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.q.Query(ctx, selectColumns+`ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent itineraries: %w", err)
	}
	defer rows.Close()

	var results []*trip.Itinerary
	for rows.Next() {
		it, err := scanItinerary(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning itinerary row: %w", err)
		}
		results = append(results, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating itinerary rows: %w", err)
	}

	return results, nil
}
