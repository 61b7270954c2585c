// Package planner turns a trip request into an itinerary: cache lookup,
// global rate limit, generation, clean-up and storage.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/neexbeast/tripwise/internal/trip"
)

// ErrGeneration wraps failures of the generative API call.
var ErrGeneration = errors.New("generating itinerary")

// itineraryCache is the interface satisfied by cache.ItineraryCache.
type itineraryCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, itinerary string) error
}

// rateGate is the interface satisfied by cache.RateLimiter.
type rateGate interface {
	Allow(ctx context.Context) error
}

// generator is the interface satisfied by gemini.Client.
type generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// archive is the interface satisfied by storage.Repository.
type archive interface {
	GetItinerary(ctx context.Context, id uuid.UUID) (*trip.Itinerary, error)
	UpsertItinerary(ctx context.Context, it *trip.Itinerary) error
}

// Planner produces itineraries, reusing cached ones when the same request was seen before.
type Planner struct {
	cache   itineraryCache
	limiter rateGate
	gen     generator
	archive archive
	log     *slog.Logger
	now     func() time.Time
}

// New constructs a Planner. archive may be nil to skip archiving.
func New(cache itineraryCache, limiter rateGate, gen generator, archive archive, log *slog.Logger) *Planner {
	return &Planner{
		cache:   cache,
		limiter: limiter,
		gen:     gen,
		archive: archive,
		log:     log,
		now:     time.Now,
	}
}

// Plan returns the itinerary for req.
// A cached itinerary is returned unchanged without touching the rate limit or
// the generator. Otherwise the global limit is checked first and
// cache.ErrRateLimited is returned when it is exhausted.
func (p *Planner) Plan(ctx context.Context, req trip.Request) (*trip.Itinerary, error) {
	key := req.Key()
	it := &trip.Itinerary{
		ID:      trip.IDForKey(key),
		Key:     key,
		Request: req,
	}

	text, hit, err := p.cache.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("looking up cached itinerary: %w", err)
	}
	if hit {
		p.log.Debug("itinerary cache hit", "key", key)
		it.Text = text
		it.Cached = true
		it.Coordinates = trip.ExtractCoordinates(text)
		p.ensureArchived(ctx, it)
		return it, nil
	}

	if err := p.limiter.Allow(ctx); err != nil {
		return nil, err
	}

	raw, err := p.gen.Generate(ctx, req.Prompt())
	if err != nil {
		return nil, fmt.Errorf("%w for %s: %w", ErrGeneration, req.Destination, err)
	}

	it.GeneratedAt = p.now().UTC()
	it.Text = trip.Clean(raw)
	it.Coordinates = trip.ExtractCoordinates(it.Text)

	if err := p.store(ctx, it); err != nil {
		return nil, err
	}

	p.log.Info("itinerary generated",
		"key", key,
		"id", it.ID,
		"coordinates", len(it.Coordinates),
	)
	return it, nil
}

// store writes the itinerary to the cache and the archive in parallel.
// Only a cache failure is fatal; the archive is best effort.
func (p *Planner) store(ctx context.Context, it *trip.Itinerary) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := p.cache.Set(gCtx, it.Key, it.Text); err != nil {
			return fmt.Errorf("caching itinerary: %w", err)
		}
		return nil
	})

	if p.archive != nil {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					p.log.Error("archive upsert panicked", "recover", r)
				}
			}()
			if archErr := p.archive.UpsertItinerary(gCtx, it); archErr != nil {
				p.log.Warn("archive upsert failed", "id", it.ID, "err", archErr)
				return nil
			}
			it.Archived = true
			return nil
		})
	}

	return g.Wait()
}

// ensureArchived makes a cached itinerary loadable by ID. It takes the
// generation time from an existing archive row and writes the row when a
// previous archive write was lost. Failures are logged and leave Archived false.
func (p *Planner) ensureArchived(ctx context.Context, it *trip.Itinerary) {
	if p.archive == nil {
		return
	}

	stored, err := p.archive.GetItinerary(ctx, it.ID)
	if err != nil {
		p.log.Warn("archive lookup failed", "id", it.ID, "err", err)
		return
	}
	if stored != nil {
		it.GeneratedAt = stored.GeneratedAt
		it.Archived = true
		return
	}

	if err := p.archive.UpsertItinerary(ctx, it); err != nil {
		p.log.Warn("archive upsert failed", "id", it.ID, "err", err)
		return
	}
	p.log.Info("cached itinerary re-archived", "id", it.ID)
	it.Archived = true
}
