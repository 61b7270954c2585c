package export_test

import (
	"bytes"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/tripwise/internal/export"
	"github.com/neexbeast/tripwise/internal/trip"
)

const sampleText = "Day 1\n Arrive in Paris\n\nCity center 48.8566° N, 2.3522° E\nDay 2\n Louvre"

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WritePDF(&buf, sampleText, ""))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")), "output should be a PDF document")
	assert.Contains(t, buf.String(), "%%EOF")
}

func TestWritePDF_WithShareQR(t *testing.T) {
	var plain, withQR bytes.Buffer
	require.NoError(t, export.WritePDF(&plain, sampleText, ""))
	require.NoError(t, export.WritePDF(&withQR, sampleText, "https://trips.example.com/itineraries/abc"))

	assert.True(t, bytes.HasPrefix(withQR.Bytes(), []byte("%PDF-")))
	assert.Greater(t, withQR.Len(), plain.Len(), "embedded QR image should grow the document")
	assert.Contains(t, withQR.String(), "/Subtype /Image")
}

func TestWritePDF_LongTextPaginates(t *testing.T) {
	text := strings.Repeat("A long itinerary line with plenty of words to wrap across the page width.\n", 200)

	var buf bytes.Buffer
	require.NoError(t, export.WritePDF(&buf, text, ""))
	assert.Greater(t, strings.Count(buf.String(), "/Type /Page\n"), 1)
}

func TestWritePDF_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WritePDF(&buf, "", ""))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestWriteMapHTML(t *testing.T) {
	coords := []trip.Coordinate{{Lat: 48.8566, Lon: 2.3522}, {Lat: 45.764, Lon: 4.8357}}

	var buf bytes.Buffer
	require.NoError(t, export.WriteMapHTML(&buf, "Paris trip", coords))

	html := buf.String()
	assert.Contains(t, html, "<title>Paris trip</title>")
	assert.Contains(t, html, `var center = {"lat":48.8566,"lon":2.3522};`)
	assert.Contains(t, html, `var markers = [{"lat":48.8566,"lon":2.3522},{"lat":45.764,"lon":4.8357}];`)
	assert.Regexp(t, `setView\(\[center\.lat, center\.lon\],\s*12\s*\)`, html)
}

func TestWriteMapHTML_EscapesTitle(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteMapHTML(&buf, "<script>x</script>", []trip.Coordinate{{Lat: 1, Lon: 2}}))
	assert.NotContains(t, buf.String(), "<script>x</script>")
}

func TestWriteMapHTML_NoCoordinates(t *testing.T) {
	var buf bytes.Buffer
	err := export.WriteMapHTML(&buf, "empty", nil)
	assert.ErrorIs(t, err, export.ErrNoCoordinates)
	assert.Zero(t, buf.Len())
}

func TestMailtoLink(t *testing.T) {
	link := export.MailtoLink("Day 1: Louvre & Orsay")

	assert.True(t, strings.HasPrefix(link, "mailto:?subject=Check%20out%20my%20travel%20itinerary%21&body="))
	assert.NotContains(t, link, "+")
	assert.NotContains(t, link, " ")

	u, err := url.Parse(link)
	require.NoError(t, err)
	q, err := url.ParseQuery(u.RawQuery)
	require.NoError(t, err)
	assert.Equal(t, "Check out my travel itinerary!", q.Get("subject"))
	assert.Equal(t, "Here is my travel itinerary:\n\nDay 1: Louvre & Orsay", q.Get("body"))
}

func TestMailtoLink_KeepsSlashes(t *testing.T) {
	link := export.MailtoLink("Budget 100/day, a+b")
	assert.Contains(t, link, "100/day")
	assert.Contains(t, link, "a%2Bb")
}
