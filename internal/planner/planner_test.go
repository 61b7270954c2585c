package planner_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/tripwise/internal/cache"
	"github.com/neexbeast/tripwise/internal/planner"
	"github.com/neexbeast/tripwise/internal/trip"
)

// ---- fakes ----

type fakeGenerator struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	text    string
	err     error
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	return f.text, f.err
}

type fakeArchive struct {
	mu     sync.Mutex
	saved  []*trip.Itinerary
	rows   map[uuid.UUID]trip.Itinerary
	err    error
	getErr error
}

func (f *fakeArchive) GetItinerary(_ context.Context, id uuid.UUID) (*trip.Itinerary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	row, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (f *fakeArchive) UpsertItinerary(_ context.Context, it *trip.Itinerary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, it)
	if f.err != nil {
		return f.err
	}
	if f.rows == nil {
		f.rows = make(map[uuid.UUID]trip.Itinerary)
	}
	f.rows[it.ID] = *it
	return nil
}

type failingCache struct {
	getErr error
	setErr error
}

func (f *failingCache) Get(_ context.Context, _ string) (string, bool, error) {
	return "", false, f.getErr
}
func (f *failingCache) Set(_ context.Context, _, _ string) error { return f.setErr }

// ---- helpers ----

const generated = "## Day 1\n**Morning:** Louvre\nCity center 48.8566° N, 2.3522° E"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleRequest() trip.Request {
	return trip.Request{Destination: "Paris", TripType: "Solo", LengthOfStay: 3, Budget: "1000"}
}

type fixture struct {
	planner *planner.Planner
	gen     *fakeGenerator
	archive *fakeArchive
	mr      *miniredis.Miniredis
}

func newFixture(t *testing.T, fallbackCeiling int64) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	gen := &fakeGenerator{text: generated}
	arch := &fakeArchive{}
	p := planner.New(
		cache.NewItineraryCache(client),
		cache.NewRateLimiter(client, fallbackCeiling),
		gen,
		arch,
		discardLogger(),
	)
	return &fixture{planner: p, gen: gen, archive: arch, mr: mr}
}

// ---- tests ----

func TestPlan_Miss_GeneratesCleansAndStores(t *testing.T) {
	f := newFixture(t, 0)
	req := sampleRequest()

	it, err := f.planner.Plan(context.Background(), req)
	require.NoError(t, err)

	assert.False(t, it.Cached)
	assert.Equal(t, "Paris3Solo1000", it.Key)
	assert.Equal(t, trip.IDForKey("Paris3Solo1000"), it.ID)
	assert.Equal(t, " Day 1\nMorning\n Louvre\nCity center 48.8566° N, 2.3522° E", it.Text)
	assert.Equal(t, []trip.Coordinate{{Lat: 48.8566, Lon: 2.3522}}, it.Coordinates)

	require.Len(t, f.gen.prompts, 1)
	assert.Equal(t, req.Prompt(), f.gen.prompts[0])

	stored, err := f.mr.Get("Paris3Solo1000")
	require.NoError(t, err)
	assert.Equal(t, it.Text, stored)
	assert.Equal(t, cache.ItineraryTTL, f.mr.TTL("Paris3Solo1000"))

	require.Len(t, f.archive.saved, 1)
	assert.Equal(t, it.ID, f.archive.saved[0].ID)
	assert.True(t, it.Archived)
	assert.False(t, it.GeneratedAt.IsZero())
}

func TestPlan_SecondRequestHitsCache(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	first, err := f.planner.Plan(ctx, sampleRequest())
	require.NoError(t, err)

	second, err := f.planner.Plan(ctx, sampleRequest())
	require.NoError(t, err)

	assert.Equal(t, 1, f.gen.calls, "generator must not be called on a cache hit")
	assert.True(t, second.Cached)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Coordinates, second.Coordinates)
	assert.Len(t, f.archive.saved, 1, "archived cache hits are not written again")
	assert.True(t, second.Archived)
	assert.Equal(t, first.GeneratedAt, second.GeneratedAt, "a cache hit reports when the itinerary was generated")
}

func TestPlan_CacheHitReturnsStoredValueUnchanged(t *testing.T) {
	f := newFixture(t, 0)
	require.NoError(t, f.mr.Set("Paris3Solo1000", "**kept: as is**"))

	it, err := f.planner.Plan(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "**kept: as is**", it.Text)
	assert.Zero(t, f.gen.calls)
}

func TestPlan_CacheHitSkipsRateLimit(t *testing.T) {
	f := newFixture(t, 0)
	require.NoError(t, f.mr.Set(cache.CeilingKey, "1"))
	require.NoError(t, f.mr.Set(cache.CounterKey, "5"))
	require.NoError(t, f.mr.Set("Paris3Solo1000", "cached plan"))

	it, err := f.planner.Plan(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.True(t, it.Cached)

	count, err := f.mr.Get(cache.CounterKey)
	require.NoError(t, err)
	assert.Equal(t, "5", count)
}

func TestPlan_RateLimited(t *testing.T) {
	f := newFixture(t, 0)
	require.NoError(t, f.mr.Set(cache.CeilingKey, "1"))
	ctx := context.Background()

	_, err := f.planner.Plan(ctx, sampleRequest())
	require.NoError(t, err)

	other := sampleRequest()
	other.Destination = "Lyon"
	_, err = f.planner.Plan(ctx, other)
	require.ErrorIs(t, err, cache.ErrRateLimited)
	assert.Equal(t, 1, f.gen.calls, "generator must not be called once the ceiling is exceeded")
	assert.False(t, f.mr.Exists(other.Key()))
}

func TestPlan_FallbackCeiling(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	_, err := f.planner.Plan(ctx, sampleRequest())
	require.NoError(t, err)

	other := sampleRequest()
	other.LengthOfStay = 5
	_, err = f.planner.Plan(ctx, other)
	assert.ErrorIs(t, err, cache.ErrRateLimited)
}

func TestPlan_GeneratorError(t *testing.T) {
	f := newFixture(t, 0)
	f.gen.err = errors.New("upstream unavailable")

	_, err := f.planner.Plan(context.Background(), sampleRequest())
	require.ErrorIs(t, err, planner.ErrGeneration)
	assert.Contains(t, err.Error(), "generating itinerary for Paris: upstream unavailable")
	assert.False(t, f.mr.Exists("Paris3Solo1000"), "failures are not cached")
	assert.Empty(t, f.archive.saved)
}

func TestPlan_ArchiveErrorIsNotFatal(t *testing.T) {
	f := newFixture(t, 0)
	f.archive.err = errors.New("db down")

	it, err := f.planner.Plan(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, it.Text)
	assert.False(t, it.Archived)
	assert.True(t, f.mr.Exists("Paris3Solo1000"))
}

func TestPlan_CacheHitRestoresLostArchiveRow(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	f.archive.err = errors.New("db down")

	first, err := f.planner.Plan(ctx, sampleRequest())
	require.NoError(t, err)
	require.False(t, first.Archived)

	f.archive.err = nil
	second, err := f.planner.Plan(ctx, sampleRequest())
	require.NoError(t, err)

	assert.True(t, second.Cached)
	assert.True(t, second.Archived)
	assert.Equal(t, 1, f.gen.calls)

	row, err := f.archive.GetItinerary(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, first.Text, row.Text)
	assert.Equal(t, first.Coordinates, row.Coordinates)
}

func TestPlan_CacheHitWithoutArchiveRowHasNoGenerationTime(t *testing.T) {
	f := newFixture(t, 0)
	require.NoError(t, f.mr.Set("Paris3Solo1000", "cached plan"))

	it, err := f.planner.Plan(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.True(t, it.Cached)
	assert.True(t, it.GeneratedAt.IsZero())
	assert.True(t, it.Archived)
	assert.Len(t, f.archive.saved, 1)
}

func TestPlan_CacheHitArchiveLookupErrorIsNotFatal(t *testing.T) {
	f := newFixture(t, 0)
	require.NoError(t, f.mr.Set("Paris3Solo1000", "cached plan"))
	f.archive.getErr = errors.New("db down")

	it, err := f.planner.Plan(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "cached plan", it.Text)
	assert.False(t, it.Archived)
	assert.Empty(t, f.archive.saved)
}

func TestPlan_NilArchive(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	gen := &fakeGenerator{text: "plan"}
	p := planner.New(cache.NewItineraryCache(client), cache.NewRateLimiter(client, 0), gen, nil, discardLogger())

	it, err := p.Plan(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "plan", it.Text)
}

func TestPlan_CacheErrors(t *testing.T) {
	gen := &fakeGenerator{text: "plan"}
	noLimit := gateFunc(func(context.Context) error { return nil })

	p := planner.New(&failingCache{getErr: errors.New("redis down")}, noLimit, gen, nil, discardLogger())
	_, err := p.Plan(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.Zero(t, gen.calls)

	p = planner.New(&failingCache{setErr: errors.New("redis down")}, noLimit, gen, nil, discardLogger())
	_, err = p.Plan(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "caching itinerary")
}

type gateFunc func(context.Context) error

func (g gateFunc) Allow(ctx context.Context) error { return g(ctx) }
