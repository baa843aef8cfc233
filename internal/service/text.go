package service

import (
	"regexp"
	"strings"
)

var (
	paragraphEnd = regexp.MustCompile(`</p>`)
	htmlTag      = regexp.MustCompile(`<[^>]+>`)
	htmlEntity   = regexp.MustCompile(`&\w+;`)
	anchorHref   = regexp.MustCompile(`<a href="([^"]+)"`)
)

// ScrapeHTMLTags turns an HTML description into plain text: paragraph ends
// become newlines, tags are removed, and entities such as &nbsp; become a
// single space.
func ScrapeHTMLTags(text string) string {
	text = paragraphEnd.ReplaceAllString(text, "\n")
	text = htmlTag.ReplaceAllString(text, "")
	return htmlEntity.ReplaceAllString(text, " ")
}

// MakeLink returns the target of the first anchor in text, or "" when there
// is none or it is not an http(s) URL.
func MakeLink(text string) string {
	m := anchorHref.FindStringSubmatch(text)
	if m == nil || !strings.Contains(m[1], "http") {
		return ""
	}
	return m[1]
}

// SanitizeCoords swaps latitude and longitude when they look transposed.
// Campus coordinates have a positive latitude and a negative longitude.
func SanitizeCoords(lat, lon float64) (float64, float64) {
	if lat < 0 && lon > 0 {
		return lon, lat
	}
	return lat, lon
}
