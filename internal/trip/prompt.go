package trip

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Prompt renders the generation prompt for the request.
func (r Request) Prompt() string {
	return fmt.Sprintf(
		"Generate a clean and well-formatted %d-day itinerary for a %s trip to %s with a budget of %s. "+
			"The itinerary should include activities, places to visit, and recommendations, but also "+
			"provide the central coordinates (latitude and longitude) for the destination city only. "+
			"The itinerary should be free from special characters like '**', '##', and formatted for clarity.",
		r.LengthOfStay, r.TripType, r.Destination, r.Budget,
	)
}

// Clean strips markdown emphasis and heading markers and breaks the text
// on every colon. Replacements run one after another, so "#**#" collapses
// completely.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "**", "")
	text = strings.ReplaceAll(text, "##", "")
	return strings.ReplaceAll(text, ":", "\n")
}

// coordPattern matches "40.7128° N, 74.0060° W". The hemisphere letters are
// matched but not captured, so southern and western values stay positive.
var coordPattern = regexp.MustCompile(`(\d+\.\d+)°\s*[NS],\s*(\d+\.\d+)°\s*[EW]`)

// ExtractCoordinates returns every coordinate pair found in text, in the
// order they appear. Duplicates are kept.
func ExtractCoordinates(text string) []Coordinate {
	matches := coordPattern.FindAllStringSubmatch(text, -1)
	coords := make([]Coordinate, 0, len(matches))
	for _, m := range matches {
		lat, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		lon, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		coords = append(coords, Coordinate{Lat: lat, Lon: lon})
	}
	return coords
}
