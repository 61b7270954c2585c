package export

import (
	"net/url"
	"strings"
)

const (
	shareSubject    = "Check out my travel itinerary!"
	shareBodyPrefix = "Here is my travel itinerary:\n\n"
)

// MailtoLink builds a mail-client link that shares the itinerary.
func MailtoLink(itinerary string) string {
	return "mailto:?subject=" + quote(shareSubject) + "&body=" + quote(shareBodyPrefix+itinerary)
}

// quote percent-encodes s with spaces as %20 and slashes left as-is.
func quote(s string) string {
	q := url.QueryEscape(s)
	q = strings.ReplaceAll(q, "+", "%20")
	return strings.ReplaceAll(q, "%2F", "/")
}
