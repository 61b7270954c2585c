package trip

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Request holds the trip parameters collected from the form.
type Request struct {
	Destination  string `json:"destination"`
	TripType     string `json:"trip_type"`
	LengthOfStay int    `json:"length_of_stay"`
	Budget       string `json:"budget"`
}

// Coordinate is a latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Itinerary is the result of planning a single Request.
// GeneratedAt is zero when the generation time is unknown, which happens for
// a cached itinerary that had never reached the archive.
// Archived reports whether the itinerary can be loaded again by ID.
type Itinerary struct {
	ID          uuid.UUID    `json:"id"`
	Key         string       `json:"key"`
	Request     Request      `json:"request"`
	Text        string       `json:"itinerary"`
	Coordinates []Coordinate `json:"coordinates"`
	Cached      bool         `json:"cached"`
	GeneratedAt time.Time    `json:"generated_at,omitzero"`
	Archived    bool         `json:"-"`
}

// keyNamespace scopes the name-based UUIDs derived from cache keys.
var keyNamespace = uuid.MustParse("6f1d3c1e-58a4-4b7e-9a0e-2f1c7d9b3a55")

// Key returns the cache key for the request: the four fields concatenated
// in destination, length, type, budget order with no delimiter.
// Distinct requests can produce the same key (e.g. "Rome" + 10 vs "Rome1" + 0).
func (r Request) Key() string {
	return r.Destination + strconv.Itoa(r.LengthOfStay) + r.TripType + r.Budget
}

// IDForKey returns the archive ID for a cache key. The same key always maps
// to the same ID, so a cache hit can be linked to its archived copy.
func IDForKey(key string) uuid.UUID {
	return uuid.NewSHA1(keyNamespace, []byte(key))
}
