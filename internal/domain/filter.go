package domain

import (
	"fmt"
	"sort"
)

const (
	// MinWeeksDisplayed and MaxWeeksDisplayed bound SearchFilter.WeeksDisplayed.
	MinWeeksDisplayed = 1
	MaxWeeksDisplayed = 20

	// DefaultWeeksDisplayed is the window loaded when a session starts.
	DefaultWeeksDisplayed = 4

	DaysPerWeek = 7
)

// SearchFilter is the user's filter configuration.
// WeekdaysSelected is indexed 0=Sunday..6=Saturday.
type SearchFilter struct {
	WeeksDisplayed   int
	WeekdaysSelected [7]bool
	OnlyCultural     bool
	OnlyVirtual      bool
	EventTypeSet     map[string]struct{}
}

// NewSearchFilter returns a filter with every weekday and every given event
// type selected.
func NewSearchFilter(eventTypes []string) SearchFilter {
	f := SearchFilter{
		WeeksDisplayed: DefaultWeeksDisplayed,
		EventTypeSet:   make(map[string]struct{}, len(eventTypes)),
	}
	for i := range f.WeekdaysSelected {
		f.WeekdaysSelected[i] = true
	}
	for _, t := range eventTypes {
		f.EventTypeSet[t] = struct{}{}
	}
	return f
}

// Validate checks WeeksDisplayed is within bounds.
func (f SearchFilter) Validate() error {
	if f.WeeksDisplayed < MinWeeksDisplayed || f.WeeksDisplayed > MaxWeeksDisplayed {
		return fmt.Errorf("%w: weeksDisplayed must be between %d and %d",
			ErrValidation, MinWeeksDisplayed, MaxWeeksDisplayed)
	}
	return nil
}

// HasType reports whether t is selected.
func (f SearchFilter) HasType(t string) bool {
	_, ok := f.EventTypeSet[t]
	return ok
}

// TypeList returns the selected event types sorted.
func (f SearchFilter) TypeList() []string {
	out := make([]string, 0, len(f.EventTypeSet))
	for t := range f.EventTypeSet {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Clone returns a deep copy so callers can mutate the type set freely.
func (f SearchFilter) Clone() SearchFilter {
	c := f
	c.EventTypeSet = make(map[string]struct{}, len(f.EventTypeSet))
	for t := range f.EventTypeSet {
		c.EventTypeSet[t] = struct{}{}
	}
	return c
}
