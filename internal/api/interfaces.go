package api

import (
	"context"

	"github.com/google/uuid"

	"github.com/neexbeast/tripwise/internal/cache"
	"github.com/neexbeast/tripwise/internal/trip"
)

// ItineraryPlanner defines the planning operation needed by handlers.
type ItineraryPlanner interface {
	Plan(ctx context.Context, req trip.Request) (*trip.Itinerary, error)
}

// ItineraryArchive defines the storage operations needed by handlers.
type ItineraryArchive interface {
	GetItinerary(ctx context.Context, id uuid.UUID) (*trip.Itinerary, error)
	ListRecent(ctx context.Context, limit int) ([]*trip.Itinerary, error)
}

// RateLimitAdmin defines the operator view of the global rate limit.
type RateLimitAdmin interface {
	Status(ctx context.Context) (cache.RateStatus, error)
	Reset(ctx context.Context) error
}

type pinger interface {
	Ping(ctx context.Context) error
}
