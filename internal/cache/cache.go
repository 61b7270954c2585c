package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ItineraryTTL is how long a generated itinerary stays cached.
const ItineraryTTL = 7 * 24 * time.Hour

// ItineraryCache stores cleaned itinerary text in Redis under the trip cache key.
type ItineraryCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewItineraryCache constructs an ItineraryCache with the 7-day TTL.
func NewItineraryCache(client redis.UniversalClient) *ItineraryCache {
	return &ItineraryCache{client: client, ttl: ItineraryTTL}
}

// Get returns the cached itinerary for key.
// A miss returns "", false, nil. An empty stored value also counts as a miss.
func (c *ItineraryCache) Get(ctx context.Context, key string) (string, bool, error) {
	n, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return "", false, fmt.Errorf("cache exists for key %q: %w", key, err)
	}
	if n == 0 {
		return "", false, nil
	}

	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		// Expired between EXISTS and GET.
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("cache get for key %q: %w", key, err)
	}
	if val == "" {
		return "", false, nil
	}

	return val, true, nil
}

// Set stores the itinerary for key with the configured TTL.
func (c *ItineraryCache) Set(ctx context.Context, key, itinerary string) error {
	if err := c.client.Set(ctx, key, itinerary, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set for key %q: %w", key, err)
	}
	return nil
}

// TTL reports the remaining lifetime of a cached itinerary.
func (c *ItineraryCache) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := c.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("cache ttl for key %q: %w", key, err)
	}
	return d, nil
}
