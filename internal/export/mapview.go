package export

import (
	"errors"
	"fmt"
	"html/template"
	"io"

	"github.com/neexbeast/tripwise/internal/trip"
)

// MapFilename is the suggested download name for the map page.
const MapFilename = "itinerary_map.html"

// MapZoom is the initial zoom level of the rendered map.
const MapZoom = 12

// ErrNoCoordinates is returned when there is nothing to put on a map.
var ErrNoCoordinates = errors.New("no coordinates to map")

var mapTemplate = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>html, body, #map { height: 100%; margin: 0; }</style>
</head>
<body>
<div id="map"></div>
<script>
  var center = {{.Center}};
  var markers = {{.Markers}};
  var map = L.map("map").setView([center.lat, center.lon], {{.Zoom}});
  L.tileLayer("https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png", {
    maxZoom: 19,
    attribution: "&copy; OpenStreetMap contributors"
  }).addTo(map);
  markers.forEach(function (m) { L.marker([m.lat, m.lon]).addTo(map); });
</script>
</body>
</html>
`))

type mapData struct {
	Title   string
	Center  trip.Coordinate
	Markers []trip.Coordinate
	Zoom    int
}

// WriteMapHTML writes a standalone Leaflet page centred on the first
// coordinate with one marker per coordinate.
func WriteMapHTML(w io.Writer, title string, coords []trip.Coordinate) error {
	if len(coords) == 0 {
		return ErrNoCoordinates
	}

	data := mapData{
		Title:   title,
		Center:  coords[0],
		Markers: coords,
		Zoom:    MapZoom,
	}
	if err := mapTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("rendering map: %w", err)
	}
	return nil
}
