package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/neexbeast/tripwise/internal/cache"
	"github.com/neexbeast/tripwise/internal/export"
	"github.com/neexbeast/tripwise/internal/planner"
	"github.com/neexbeast/tripwise/internal/trip"
)

// rateLimitedMessage is shown to users once the global ceiling is exceeded.
const rateLimitedMessage = "You have exceeded the maximum number of requests. Please try again tomorrow."

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	planner       ItineraryPlanner
	archive       ItineraryArchive
	limits        RateLimitAdmin
	publicBaseURL string
	log           *slog.Logger
}

// NewHandlers constructs Handlers with all required dependencies.
// publicBaseURL is used for share links; when empty it is derived from each request.
func NewHandlers(p ItineraryPlanner, archive ItineraryArchive, limits RateLimitAdmin, publicBaseURL string, log *slog.Logger) *Handlers {
	return &Handlers{
		planner:       p,
		archive:       archive,
		limits:        limits,
		publicBaseURL: publicBaseURL,
		log:           log,
	}
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// planStatus maps a Plan error to an HTTP status and a user-facing message.
func planStatus(err error) (int, string) {
	switch {
	case errors.Is(err, cache.ErrRateLimited):
		return http.StatusTooManyRequests, rateLimitedMessage
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "itinerary generation timed out"
	case errors.Is(err, planner.ErrGeneration):
		return http.StatusBadGateway, "failed to generate itinerary"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// baseURL returns the externally visible root of the service.
func (h *Handlers) baseURL(r *http.Request) string {
	if h.publicBaseURL != "" {
		return h.publicBaseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	return scheme + "://" + r.Host
}

// itineraryResponse is the JSON view of an itinerary with its artifact links.
// Links resolve through the archive, so they are omitted for an itinerary
// that is not archived.
type itineraryResponse struct {
	*trip.Itinerary
	Mailto   string `json:"mailto"`
	PDFURL   string `json:"pdf_url,omitempty"`
	MapURL   string `json:"map_url,omitempty"`
	ShareURL string `json:"share_url,omitempty"`
}

func (h *Handlers) present(r *http.Request, it *trip.Itinerary) itineraryResponse {
	resp := itineraryResponse{
		Itinerary: it,
		Mailto:    export.MailtoLink(it.Text),
	}
	if !it.Archived {
		return resp
	}

	base := h.baseURL(r)
	resp.PDFURL = base + "/api/v1/itineraries/" + it.ID.String() + "/pdf"
	resp.ShareURL = base + "/itineraries/" + it.ID.String()
	if len(it.Coordinates) > 0 {
		resp.MapURL = base + "/api/v1/itineraries/" + it.ID.String() + "/map"
	}
	return resp
}

// CreateItinerary handles POST /api/v1/itineraries.
// Cache hit → stored itinerary. Miss → rate limit, generate, cache.
func (h *Handlers) CreateItinerary(w http.ResponseWriter, r *http.Request) {
	var req trip.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	it, err := h.planner.Plan(r.Context(), req)
	if err != nil {
		status, msg := planStatus(err)
		if status == http.StatusTooManyRequests {
			h.log.Warn("itinerary rate limited", "key", req.Key())
		} else {
			h.log.Error("plan failed", "key", req.Key(), "err", err)
		}
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, h.present(r, it))
}

// loadItinerary resolves the {id} URL parameter against the archive.
// It writes the error response itself and returns nil when the caller should stop.
func (h *Handlers) loadItinerary(w http.ResponseWriter, r *http.Request) *trip.Itinerary {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid itinerary id")
		return nil
	}

	it, err := h.archive.GetItinerary(r.Context(), id)
	if err != nil {
		h.log.Error("archive get failed", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return nil
	}
	if it == nil {
		writeError(w, http.StatusNotFound, "itinerary not found")
		return nil
	}
	return it
}

// GetItinerary handles GET /api/v1/itineraries/{id}.
func (h *Handlers) GetItinerary(w http.ResponseWriter, r *http.Request) {
	it := h.loadItinerary(w, r)
	if it == nil {
		return
	}
	writeJSON(w, http.StatusOK, h.present(r, it))
}

// ListItineraries handles GET /api/v1/itineraries?limit=N.
func (h *Handlers) ListItineraries(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	items, err := h.archive.ListRecent(r.Context(), limit)
	if err != nil {
		h.log.Error("archive list failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	out := make([]itineraryResponse, 0, len(items))
	for _, it := range items {
		out = append(out, h.present(r, it))
	}
	writeJSON(w, http.StatusOK, map[string]any{"itineraries": out})
}

// DownloadPDF handles GET /api/v1/itineraries/{id}/pdf.
func (h *Handlers) DownloadPDF(w http.ResponseWriter, r *http.Request) {
	it := h.loadItinerary(w, r)
	if it == nil {
		return
	}

	var buf bytes.Buffer
	share := h.baseURL(r) + "/itineraries/" + it.ID.String()
	if err := export.WritePDF(&buf, it.Text, share); err != nil {
		h.log.Error("pdf render failed", "id", it.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.PDFFilename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}

// DownloadMap handles GET /api/v1/itineraries/{id}/map.
// ?download=1 adds an attachment disposition; otherwise the page renders inline.
func (h *Handlers) DownloadMap(w http.ResponseWriter, r *http.Request) {
	it := h.loadItinerary(w, r)
	if it == nil {
		return
	}
	if len(it.Coordinates) == 0 {
		writeError(w, http.StatusNotFound, "itinerary has no coordinates")
		return
	}

	var buf bytes.Buffer
	if err := export.WriteMapHTML(&buf, it.Request.Destination, it.Coordinates); err != nil {
		h.log.Error("map render failed", "id", it.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if r.URL.Query().Get("download") != "" {
		w.Header().Set("Content-Disposition", `attachment; filename="`+export.MapFilename+`"`)
	}
	_, _ = buf.WriteTo(w)
}

// RateLimitStatus handles GET /api/v1/admin/rate-limit.
func (h *Handlers) RateLimitStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.limits.Status(r.Context())
	if err != nil {
		h.log.Error("rate limit status failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ResetRateLimit handles POST /api/v1/admin/rate-limit/reset.
func (h *Handlers) ResetRateLimit(w http.ResponseWriter, r *http.Request) {
	if err := h.limits.Reset(r.Context()); err != nil {
		h.log.Error("rate limit reset failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	h.log.Info("global rate limit counter reset")
	w.WriteHeader(http.StatusNoContent)
}
