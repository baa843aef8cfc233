package domain

import (
	"fmt"
	"time"
)

// View selects which slice of the event store a caller wants.
type View string

const (
	ViewAll       View = "all"
	ViewFavorites View = "favorites"
	ViewFiltered  View = "filtered"
)

// ParseView maps a query value to a View. Empty means ViewAll.
func ParseView(s string) (View, error) {
	switch v := View(s); v {
	case "":
		return ViewAll, nil
	case ViewAll, ViewFavorites, ViewFiltered:
		return v, nil
	default:
		return "", fmt.Errorf("%w: view must be one of all, favorites, filtered", ErrValidation)
	}
}

// CalendarEntry identifies an event in the external calendar.
// Title, Start, and End together are the identity used for existence checks.
type CalendarEntry struct {
	Title string
	Start time.Time
	End   time.Time
}

// IngestReport counts the outcome of one batch of raw records.
type IngestReport struct {
	Admitted   int `json:"admitted"`
	Duplicates int `json:"duplicates"`
	Invalid    int `json:"invalid"`
}
