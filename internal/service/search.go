package service

import (
	"time"

	"github.com/stetsonscene/scene/backend/internal/domain"
)

// SearchEngine classifies events against a SearchFilter.
// Event types match directly or through their parent in the event-type
// associations.
type SearchEngine struct {
	types domain.Associations
}

// NewSearchEngine returns an engine with no type associations.
func NewSearchEngine() *SearchEngine {
	return &SearchEngine{types: domain.Associations{}}
}

// SetAssociations replaces the event-type associations used for matching.
func (e *SearchEngine) SetAssociations(types domain.Associations) {
	if types == nil {
		types = domain.Associations{}
	}
	e.types = types
}

// Classify reports whether rec passes every criterion of f as of today.
func (e *SearchEngine) Classify(rec domain.EventRecord, f domain.SearchFilter, today time.Time) bool {
	if !inWindow(rec, f, today) {
		return false
	}
	if !f.WeekdaysSelected[rec.StartDateTime.Weekday()] {
		return false
	}
	if f.OnlyCultural && !rec.HasCulturalCredit {
		return false
	}
	if f.OnlyVirtual && !rec.IsVirtual {
		return false
	}
	return e.matchesType(rec, f)
}

// ClassifyTimeOnly applies the date window alone. It is used for the first
// load, before the user has touched the filter.
func (e *SearchEngine) ClassifyTimeOnly(rec domain.EventRecord, f domain.SearchFilter, today time.Time) bool {
	return inWindow(rec, f, today)
}

// Filter re-classifies every record in store, setting MatchesCurrentFilter,
// and returns how many matched.
func (e *SearchEngine) Filter(store *EventStore, f domain.SearchFilter, today time.Time, timeOnly bool) int {
	matched := 0
	store.Each(func(rec *domain.EventRecord) {
		if timeOnly {
			rec.MatchesCurrentFilter = e.ClassifyTimeOnly(*rec, f, today)
		} else {
			rec.MatchesCurrentFilter = e.Classify(*rec, f, today)
		}
		if rec.MatchesCurrentFilter {
			matched++
		}
	})
	return matched
}

// matchesType is false for an empty type set.
func (e *SearchEngine) matchesType(rec domain.EventRecord, f domain.SearchFilter) bool {
	for _, t := range rec.Types() {
		if f.HasType(t) || f.HasType(e.types.Parent(t)) {
			return true
		}
	}
	return false
}

// inWindow checks rec.DayOfYear against the closed range
// [today, today + weeks*7]. The window does not wrap into the next year.
func inWindow(rec domain.EventRecord, f domain.SearchFilter, today time.Time) bool {
	start := TodayDayOfYear(today)
	return rec.DayOfYear >= start && rec.DayOfYear <= start+f.WeeksDisplayed*domain.DaysPerWeek
}

// TodayDayOfYear returns today's day-of-year using the same leap rule as
// event records.
func TodayDayOfYear(today time.Time) int {
	return domain.DayOfYear(int(today.Month()), today.Day(), today.Year())
}

// NeedsWiderWindow reports whether f asks for more weeks than are loaded.
func NeedsWiderWindow(weeksStored int, f domain.SearchFilter) bool {
	return f.WeeksDisplayed > weeksStored
}

// FilterApplied reports whether f narrows anything beyond the date window:
// a deselected weekday, a category flag, or a type set other than allTypes.
func FilterApplied(f domain.SearchFilter, allTypes []string) bool {
	for _, on := range f.WeekdaysSelected {
		if !on {
			return true
		}
	}
	if f.OnlyCultural || f.OnlyVirtual {
		return true
	}
	if len(f.EventTypeSet) != len(allTypes) {
		return true
	}
	for _, t := range allTypes {
		if !f.HasType(t) {
			return true
		}
	}
	return false
}
