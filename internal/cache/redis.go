package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// connectTimeout bounds the start-up ping so a blackholed Redis fails fast.
const connectTimeout = 5 * time.Second

// Connect parses a redis:// or rediss:// URL and returns a client that has
// answered a ping. The same client backs the itinerary cache and the global
// rate limiter.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", opts.Addr, err)
	}

	return client, nil
}

// Pinger reports Redis reachability for health checks.
type Pinger struct {
	client redis.UniversalClient
}

// NewPinger wraps client for health checks.
func NewPinger(client redis.UniversalClient) *Pinger {
	return &Pinger{client: client}
}

// Ping sends PING and returns its error.
func (p *Pinger) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("pinging redis: %w", err)
	}
	return nil
}
