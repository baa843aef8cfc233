package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// event or persisted record does not exist.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when caller input fails business rule validation
// (e.g. weeksDisplayed outside 1..20).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrInvalidRecord marks a raw event that cannot be admitted to the store:
// missing id or an unparseable start/end date-time. Such records are dropped
// and logged, never surfaced to the user.
var ErrInvalidRecord = errors.New("invalid event record")

// ErrConversion is returned when a numeric date or time segment fails to parse.
// It always arrives wrapped together with ErrInvalidRecord from the parser.
var ErrConversion = errors.New("conversion error")

// ErrRateLimited is returned when a favorite toggle arrives inside the
// debounce window. The toggle is dropped, not queued.
var ErrRateLimited = errors.New("rate limited")

// ErrAlreadyInCalendar is returned when the calendar already holds an event
// with the same title, start and end.
var ErrAlreadyInCalendar = errors.New("event already in calendar")

// ErrCalendarDenied is returned when the calendar refuses access.
var ErrCalendarDenied = errors.New("calendar access denied")
