package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// HealthHandlerFunc returns an http.HandlerFunc that checks db and redis connectivity.
// Both pings run concurrently; 200 when both succeed, 503 otherwise.
func HealthHandlerFunc(db, redis pinger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		dbStatus, redisStatus := "ok", "ok"

		var g errgroup.Group
		g.Go(func() error {
			if err := db.Ping(ctx); err != nil {
				log.Error("health check: db ping failed", "err", err)
				dbStatus = "error"
			}
			return nil
		})
		g.Go(func() error {
			if err := redis.Ping(ctx); err != nil {
				log.Error("health check: redis ping failed", "err", err)
				redisStatus = "error"
			}
			return nil
		})
		_ = g.Wait()

		status, overall := http.StatusOK, "ok"
		if dbStatus != "ok" || redisStatus != "ok" {
			status, overall = http.StatusServiceUnavailable, "degraded"
		}

		writeJSON(w, status, map[string]string{
			"status": overall,
			"db":     dbStatus,
			"redis":  redisStatus,
		})
	}
}
