package api

import (
	"bufio"
	"bytes"
	"embed"
	"html/template"
	"math/rand"
	"net/http"
	"strconv"
	"strings"

	"github.com/neexbeast/tripwise/internal/trip"
)

const (
	minDays = 1
	maxDays = 10
)

//go:embed templates
var templateFS embed.FS

var (
	formPage   = template.Must(template.ParseFS(templateFS, "templates/form.html", "templates/base.html"))
	resultPage = template.Must(template.ParseFS(templateFS, "templates/result.html", "templates/base.html"))

	loadingMessages = readLines("templates/loading_messages.txt")
)

func readLines(name string) []string {
	raw, err := templateFS.ReadFile(name)
	if err != nil {
		panic(err)
	}
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(raw))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func randomLoadingMessage() string {
	if len(loadingMessages) == 0 {
		return "Planning your trip..."
	}
	return loadingMessages[rand.Intn(len(loadingMessages))]
}

type formView struct {
	Request        trip.Request
	Error          string
	LoadingMessage string
	MinDays        int
	MaxDays        int
}

func newFormView(req trip.Request, errMsg string) formView {
	if req.LengthOfStay == 0 {
		req.LengthOfStay = minDays
	}
	return formView{
		Request:        req,
		Error:          errMsg,
		LoadingMessage: randomLoadingMessage(),
		MinDays:        minDays,
		MaxDays:        maxDays,
	}
}

// render executes tmpl into a buffer first so a template error never leaves
// a half-written page behind.
func (h *Handlers) render(w http.ResponseWriter, status int, tmpl *template.Template, data any) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		h.log.Error("template render failed", "template", tmpl.Name(), "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// ShowForm handles GET /.
func (h *Handlers) ShowForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, formPage, newFormView(trip.Request{}, ""))
}

// SubmitForm handles POST /: plans the trip and renders the result page.
func (h *Handlers) SubmitForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := r.ParseForm(); err != nil {
		h.render(w, http.StatusBadRequest, formPage, newFormView(trip.Request{}, "Could not read the form."))
		return
	}

	req := trip.Request{
		Destination: r.PostForm.Get("destination"),
		TripType:    r.PostForm.Get("trip_type"),
		Budget:      r.PostForm.Get("budget"),
	}
	days, err := strconv.Atoi(r.PostForm.Get("length_of_stay"))
	if err != nil {
		h.render(w, http.StatusBadRequest, formPage, newFormView(req, "Length of stay must be a whole number of days."))
		return
	}
	req.LengthOfStay = days

	it, err := h.planner.Plan(r.Context(), req)
	if err != nil {
		status, msg := planStatus(err)
		if status == http.StatusTooManyRequests {
			h.log.Warn("itinerary rate limited", "key", req.Key())
		} else {
			h.log.Error("plan failed", "key", req.Key(), "err", err)
		}
		h.render(w, status, formPage, newFormView(req, msg))
		return
	}

	h.render(w, http.StatusOK, resultPage, h.present(r, it))
}

// ShowItinerary handles GET /itineraries/{id}, the shareable result page.
func (h *Handlers) ShowItinerary(w http.ResponseWriter, r *http.Request) {
	it := h.loadItinerary(w, r)
	if it == nil {
		return
	}
	h.render(w, http.StatusOK, resultPage, h.present(r, it))
}
