// Package domain contains the core data types for the campus event engine.
// It has zero external dependencies and is imported by every other internal
// package (repo, service, source, calendar, handler).
package domain

// RawEvent is one untyped event record as delivered by the remote source.
type RawEvent = map[string]any

// VirtualLocation is the display location assigned to virtual events.
const VirtualLocation = "Virtual"

// EventRecord is one campus event.
//
// IsAttending is derived: it always equals IsFavorite || IsInCalendar and is
// only written by SetFlags.
type EventRecord struct {
	ID string `json:"id"`

	StartDate     string       `json:"start_date"`
	StartTime     string       `json:"start_time"`
	EndDate       string       `json:"end_date"`
	EndTime       string       `json:"end_time"`
	StartDateTime DateTimeInfo `json:"start_date_time"`
	EndDateTime   DateTimeInfo `json:"end_date_time"`
	DayOfYear     int          `json:"day_of_year"`

	Name         string `json:"name"`
	Location     string `json:"location"`
	Description  string `json:"description"`
	Summary      string `json:"summary"`
	URL          string `json:"url"`
	LinkText     string `json:"link_text,omitempty"`
	ContactName  string `json:"contact_name"`
	ContactPhone string `json:"contact_phone"`
	ContactEmail string `json:"contact_email"`
	Address      string `json:"address"`
	City         string `json:"city"`
	Zip          string `json:"zip"`

	MainEventType     string   `json:"main_event_type"`
	EventTypes        []string `json:"event_types"`
	SubLocations      []string `json:"sub_locations"`
	HasCulturalCredit bool     `json:"has_cultural_credit"`
	IsVirtual         bool     `json:"is_virtual"`
	AbsolutePosition  int      `json:"absolute_position"`

	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	NumberAttending int `json:"number_attending"`

	IsFavorite   bool `json:"is_favorite"`
	IsInCalendar bool `json:"is_in_calendar"`
	IsAttending  bool `json:"is_attending"`

	MatchesCurrentFilter bool `json:"matches_current_filter"`
}

// SetFlags assigns the favorite and calendar flags and recomputes IsAttending.
func (e *EventRecord) SetFlags(favorite, inCalendar bool) {
	e.IsFavorite = favorite
	e.IsInCalendar = inCalendar
	e.IsAttending = favorite || inCalendar
}

// Flags returns the record's user state as a PersistedFlags value.
func (e *EventRecord) Flags() PersistedFlags {
	return PersistedFlags{
		ID:           e.ID,
		IsFavorite:   e.IsFavorite,
		IsInCalendar: e.IsInCalendar,
		IsAttending:  e.IsAttending,
	}
}

// Types returns the main event type followed by the listed event types.
func (e *EventRecord) Types() []string {
	out := make([]string, 0, len(e.EventTypes)+1)
	out = append(out, e.MainEventType)
	return append(out, e.EventTypes...)
}

// HasZeroCoordinates reports whether the record carries the (0,0) sentinel.
func (e *EventRecord) HasZeroCoordinates() bool {
	return e.Latitude == 0 && e.Longitude == 0
}

// PersistedFlags is the durable per-event user state, keyed by event ID.
// A row exists only while at least one flag is true.
type PersistedFlags struct {
	ID           string
	IsFavorite   bool
	IsInCalendar bool
	IsAttending  bool
}

// Coordinates is a last-known latitude/longitude pair for a named location.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// CounterUpdate is one value from the live numberAttending subscription.
type CounterUpdate struct {
	ID              string `json:"id"`
	NumberAttending int    `json:"numberAttending"`
}

// Associations maps a parent name to the set of its children,
// e.g. "Elizabeth Hall" → {"Room 210", "Room 211"}.
type Associations map[string]map[string]string

// Parent returns the parent of child, or child itself if it has none.
func (a Associations) Parent(child string) string {
	for parent, children := range a {
		if _, ok := children[child]; ok {
			return parent
		}
	}
	return child
}

// Names returns every parent name in a.
func (a Associations) Names() []string {
	out := make([]string, 0, len(a))
	for k := range a {
		out = append(out, k)
	}
	return out
}
