// Package service contains the event engine: parsing raw records, the
// ordered event store, flag reconciliation, search, and the Session that
// serializes every mutation.
// No SQL lives here. Services depend on repo interfaces, not implementations.
package service

import (
	"slices"

	"github.com/stetsonscene/scene/backend/internal/domain"
)

// EventStore is the in-memory sequence of events ordered ascending by
// start date-time, with an id index for dedup.
//
// EventStore is not safe for concurrent use; Session guards it.
type EventStore struct {
	events []*domain.EventRecord
	ids    map[string]struct{}
}

// NewEventStore returns an empty store.
func NewEventStore() *EventStore {
	return &EventStore{ids: map[string]struct{}{}}
}

// InsertSorted places rec before the first stored event that starts later
// than it, or at the end. Events with identical start times keep arrival
// order. It returns false, leaving the store unchanged, if rec.ID is
// already present.
func (s *EventStore) InsertSorted(rec domain.EventRecord) bool {
	if s.Has(rec.ID) {
		return false
	}
	i := slices.IndexFunc(s.events, func(e *domain.EventRecord) bool {
		return e.StartDateTime.After(rec.StartDateTime)
	})
	if i < 0 {
		i = len(s.events)
	}
	s.events = slices.Insert(s.events, i, &rec)
	s.ids[rec.ID] = struct{}{}
	return true
}

// Has reports whether an event with id is stored.
func (s *EventStore) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Get returns the stored event for in-place mutation, or nil.
func (s *EventStore) Get(id string) *domain.EventRecord {
	if !s.Has(id) {
		return nil
	}
	for _, e := range s.events {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// RemoveByID deletes the event with id and reports whether it was present.
func (s *EventStore) RemoveByID(id string) bool {
	if !s.Has(id) {
		return false
	}
	s.events = slices.DeleteFunc(s.events, func(e *domain.EventRecord) bool { return e.ID == id })
	delete(s.ids, id)
	return true
}

// All returns a copy of the ordered sequence. Always non-nil.
func (s *EventStore) All() []domain.EventRecord {
	out := make([]domain.EventRecord, len(s.events))
	for i, e := range s.events {
		out[i] = *e
	}
	return out
}

// Each calls fn for every stored event in order.
func (s *EventStore) Each(fn func(*domain.EventRecord)) {
	for _, e := range s.events {
		fn(e)
	}
}

// Len returns the number of stored events.
func (s *EventStore) Len() int { return len(s.events) }

// Reset empties the store.
func (s *EventStore) Reset() {
	s.events = nil
	s.ids = map[string]struct{}{}
}
