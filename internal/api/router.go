package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/cors"
)

// RouterOptions configures the HTTP surface.
type RouterOptions struct {
	AdminToken     string
	PerIPPerMinute int
	CORSOrigins    []string
}

// NewRouter builds and returns the Chi router with all routes configured.
// The form pages, the JSON API and health are public; rate-limit admin routes
// require the bearer token. Every route is limited per client IP.
func NewRouter(handlers *Handlers, opts RouterOptions, db, redis pinger, log *slog.Logger) *chi.Mux {
	if opts.PerIPPerMinute <= 0 {
		opts.PerIPPerMinute = 60
	}

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(httprate.LimitByIP(opts.PerIPPerMinute, time.Minute))

	r.Get("/", handlers.ShowForm)
	r.Post("/", handlers.SubmitForm)
	r.Get("/itineraries/{id}", handlers.ShowItinerary)

	apiCORS := cors.New(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apiCORS.Handler)

		r.Get("/health", HealthHandlerFunc(db, redis, log))

		r.Post("/itineraries", handlers.CreateItinerary)
		r.Get("/itineraries", handlers.ListItineraries)
		r.Get("/itineraries/{id}", handlers.GetItinerary)
		r.Get("/itineraries/{id}/pdf", handlers.DownloadPDF)
		r.Get("/itineraries/{id}/map", handlers.DownloadMap)

		r.Group(func(r chi.Router) {
			r.Use(BearerAuth(opts.AdminToken))
			r.Get("/admin/rate-limit", handlers.RateLimitStatus)
			r.Post("/admin/rate-limit/reset", handlers.ResetRateLimit)
		})
	})

	return r
}

// Ensure chi.Mux implements http.Handler.
var _ http.Handler = (*chi.Mux)(nil)
