package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/stetsonscene/scene/backend/internal/domain"
	"github.com/stetsonscene/scene/backend/internal/repo"
)

// EventSource is the remote database that owns the events.
type EventSource interface {
	// FetchEvents returns every event whose daysIntoYear is at most maxDayOfYear.
	FetchEvents(ctx context.Context, maxDayOfYear int) ([]domain.RawEvent, error)

	// FetchEvent returns one event. Returns domain.ErrNotFound if it is gone.
	FetchEvent(ctx context.Context, id string) (domain.RawEvent, error)

	FetchEventTypeAssociations(ctx context.Context) (domain.Associations, error)
	FetchLocationAssociations(ctx context.Context) (domain.Associations, error)
}

// Calendar is the user's external calendar.
type Calendar interface {
	// Authorize returns domain.ErrCalendarDenied when access is refused.
	Authorize(ctx context.Context) error
	CalendarChecker
	// Insert adds entry, with a reminder 30 minutes before start when withAlert is set.
	Insert(ctx context.Context, entry domain.CalendarEntry, withAlert bool) error
}

// Feed is the live subscription side of the event source.
// A receive on Refreshes means the event list changed upstream.
// The two channels are independent; no ordering between them is assumed.
type Feed interface {
	Refreshes() <-chan struct{}
	Counters() <-chan domain.CounterUpdate
}

// SessionDeps holds everything a Session needs. Source, Flags, and
// Locations are required.
type SessionDeps struct {
	Source    EventSource
	Counter   AttendanceCounter
	Calendar  Calendar
	Flags     repo.FlagRepo
	Locations repo.LocationRepo

	// Location is the time zone for "today" and calendar entries. Defaults to UTC.
	Location *time.Location
	// Debounce is the favorite toggle lock window. Zero disables it.
	Debounce time.Duration
	// InitialWeeks is the window loaded by Start. Defaults to 4.
	InitialWeeks int
	// Now defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

// Session is the single owner of the event store, the persisted flags, and
// the user's filter. Every operation takes the same mutex, so snapshot
// arrivals, counter updates, and user actions never interleave.
type Session struct {
	mu sync.Mutex

	source   EventSource
	calendar Calendar
	loc      *time.Location
	now      func() time.Time
	log      *slog.Logger

	store      *EventStore
	reconciler *Reconciler
	coords     *LocationCache
	parser     *Parser
	search     *SearchEngine

	filter      domain.SearchFilter
	types       domain.Associations
	locations   domain.Associations
	weeksStored int
}

// NewSession wires a Session from deps. Call Start before serving.
func NewSession(deps SessionDeps) *Session {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	weeks := deps.InitialWeeks
	if weeks < domain.MinWeeksDisplayed || weeks > domain.MaxWeeksDisplayed {
		weeks = domain.DefaultWeeksDisplayed
	}

	var debounce *Debouncer
	if deps.Debounce > 0 {
		debounce = NewDebouncer(deps.Debounce, now)
	}
	reconciler := NewReconciler(deps.Flags, deps.Counter, debounce, log)
	coords := NewLocationCache(deps.Locations, log)

	filter := domain.NewSearchFilter(nil)
	filter.WeeksDisplayed = weeks

	return &Session{
		source:      deps.Source,
		calendar:    deps.Calendar,
		loc:         loc,
		now:         now,
		log:         log,
		store:       NewEventStore(),
		reconciler:  reconciler,
		coords:      coords,
		parser:      NewParser(coords, reconciler, deps.Calendar, loc, log),
		search:      NewSearchEngine(),
		filter:      filter,
		types:       domain.Associations{},
		locations:   domain.Associations{},
		weeksStored: weeks,
	}
}

// Start loads the durable state and the association tables, selects every
// known event type, and performs the initial load. Matches on the initial
// load are by date window only.
func (s *Session) Start(ctx context.Context) (domain.IngestReport, error) {
	types, err := s.source.FetchEventTypeAssociations(ctx)
	if err != nil {
		return domain.IngestReport{}, fmt.Errorf("service.Session.Start: %w", err)
	}
	locations, err := s.source.FetchLocationAssociations(ctx)
	if err != nil {
		return domain.IngestReport{}, fmt.Errorf("service.Session.Start: %w", err)
	}

	s.mu.Lock()
	if err := s.reconciler.Load(ctx); err != nil {
		s.mu.Unlock()
		return domain.IngestReport{}, fmt.Errorf("service.Session.Start: %w", err)
	}
	if err := s.coords.Load(ctx); err != nil {
		s.mu.Unlock()
		return domain.IngestReport{}, fmt.Errorf("service.Session.Start: %w", err)
	}
	s.setAssociationsLocked(types, locations)
	weeks := s.filter.WeeksDisplayed
	s.filter = domain.NewSearchFilter(s.types.Names())
	s.filter.WeeksDisplayed = weeks
	s.mu.Unlock()

	report, err := s.refresh(ctx, true)
	if err != nil {
		return report, fmt.Errorf("service.Session.Start: %w", err)
	}
	return report, nil
}

// Refresh replaces the store with a fresh bulk query covering the loaded
// window, then re-fetches persisted events the window does not cover.
func (s *Session) Refresh(ctx context.Context) (domain.IngestReport, error) {
	report, err := s.refresh(ctx, false)
	if err != nil {
		return report, fmt.Errorf("service.Session.Refresh: %w", err)
	}
	return report, nil
}

func (s *Session) refresh(ctx context.Context, timeOnly bool) (domain.IngestReport, error) {
	s.mu.Lock()
	maxDOY := TodayDayOfYear(s.today()) + s.weeksStored*domain.DaysPerWeek
	persisted := s.reconciler.IDs()
	s.mu.Unlock()

	raws, err := s.source.FetchEvents(ctx, maxDOY)
	if err != nil {
		return domain.IngestReport{}, err
	}

	// Favorites and calendar entries stay loaded even outside the window.
	seen := make(map[string]struct{}, len(raws))
	for _, raw := range raws {
		if id, ok := raw["guid"].(string); ok {
			seen[id] = struct{}{}
		}
	}
	for _, id := range persisted {
		if _, ok := seen[id]; ok {
			continue
		}
		raw, err := s.source.FetchEvent(ctx, id)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				s.log.WarnContext(ctx, "fetch persisted event", "event_id", id, "error", err)
			}
			continue
		}
		seen[id] = struct{}{}
		raws = append(raws, raw)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Flags set while the fetch was in flight may cover events the batch
	// lacks; carry the stored copies over the reset.
	snapshot := make(map[string]struct{}, len(persisted))
	for _, id := range persisted {
		snapshot[id] = struct{}{}
	}
	var carried []domain.EventRecord
	for _, id := range s.reconciler.IDs() {
		_, fetched := seen[id]
		_, known := snapshot[id]
		if fetched || known {
			continue
		}
		if rec := s.store.Get(id); rec != nil {
			carried = append(carried, *rec)
		}
	}

	s.store.Reset()
	report := s.ingestLocked(ctx, raws, timeOnly)
	for _, rec := range carried {
		s.store.InsertSorted(rec)
	}
	s.log.InfoContext(ctx, "events refreshed",
		"admitted", report.Admitted, "duplicates", report.Duplicates, "invalid", report.Invalid,
		"max_day_of_year", maxDOY)
	return report, nil
}

// Ingest parses raws into the store without clearing it. Records whose id
// is already stored are skipped. With timeOnly set, MatchesCurrentFilter
// reflects the date window alone.
func (s *Session) Ingest(ctx context.Context, raws []domain.RawEvent, timeOnly bool) domain.IngestReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ingestLocked(ctx, raws, timeOnly)
}

func (s *Session) ingestLocked(ctx context.Context, raws []domain.RawEvent, timeOnly bool) domain.IngestReport {
	var report domain.IngestReport
	today := s.today()
	for _, raw := range raws {
		res, err := s.parser.Parse(ctx, raw)
		if err != nil {
			report.Invalid++
			s.log.DebugContext(ctx, "dropped invalid event", "event_id", res.Record.ID, "error", err)
			continue
		}
		rec := res.Record
		if s.store.Has(rec.ID) {
			report.Duplicates++
			continue
		}
		if timeOnly {
			rec.MatchesCurrentFilter = s.search.ClassifyTimeOnly(rec, s.filter, today)
		} else {
			rec.MatchesCurrentFilter = s.search.Classify(rec, s.filter, today)
		}
		s.store.InsertSorted(rec)
		report.Admitted++

		if res.CalendarMismatch {
			if _, err := s.reconciler.ToggleCalendar(ctx, s.store.Get(rec.ID)); err != nil {
				s.log.WarnContext(ctx, "reconcile calendar flag", "event_id", rec.ID, "error", err)
			}
		}
	}
	return report
}

// ApplyFilter validates and installs f, reloading from the source first
// when f needs more weeks than are loaded.
func (s *Session) ApplyFilter(ctx context.Context, f domain.SearchFilter) (domain.SearchFilter, error) {
	if err := f.Validate(); err != nil {
		return domain.SearchFilter{}, fmt.Errorf("service.Session.ApplyFilter: %w", err)
	}
	f = f.Clone()

	s.mu.Lock()
	s.filter = f
	wider := NeedsWiderWindow(s.weeksStored, f)
	if wider {
		s.weeksStored = f.WeeksDisplayed
	} else {
		s.search.Filter(s.store, f, s.today(), false)
	}
	s.mu.Unlock()

	if wider {
		if _, err := s.refresh(ctx, false); err != nil {
			return f.Clone(), fmt.Errorf("service.Session.ApplyFilter: %w", err)
		}
	}
	return f.Clone(), nil
}

// Filter returns a copy of the current filter.
func (s *Session) Filter() domain.SearchFilter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter.Clone()
}

// FilterApplied reports whether the current filter narrows anything besides
// the date window.
func (s *Session) FilterApplied() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return FilterApplied(s.filter, s.types.Names())
}

// Events returns the ordered events for view. Always non-nil.
func (s *Session) Events(view domain.View) []domain.EventRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.store.All()
	if view == domain.ViewAll || view == "" {
		return all
	}
	out := make([]domain.EventRecord, 0, len(all))
	for _, rec := range all {
		if (view == domain.ViewFavorites && rec.IsFavorite) ||
			(view == domain.ViewFiltered && rec.MatchesCurrentFilter) {
			out = append(out, rec)
		}
	}
	return out
}

// Event returns one stored event.
// Returns domain.ErrNotFound if it is not loaded.
func (s *Session) Event(id string) (domain.EventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.store.Get(id)
	if rec == nil {
		return domain.EventRecord{}, fmt.Errorf("service.Session.Event: %w", domain.ErrNotFound)
	}
	return *rec, nil
}

// ToggleFavorite flips the favorite flag of a stored event and returns
// the resulting record. A toggle inside the debounce window returns the
// unchanged record with an error wrapping domain.ErrRateLimited.
func (s *Session) ToggleFavorite(ctx context.Context, id string) (domain.EventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.store.Get(id)
	if rec == nil {
		return domain.EventRecord{}, fmt.Errorf("service.Session.ToggleFavorite: %w", domain.ErrNotFound)
	}
	if _, err := s.reconciler.ToggleFavorite(ctx, rec); err != nil {
		return *rec, fmt.Errorf("service.Session.ToggleFavorite: %w", err)
	}
	return *rec, nil
}

// AddToCalendar inserts a stored event into the external calendar and sets
// its calendar flag.
// Returns domain.ErrAlreadyInCalendar without changes if the calendar
// already holds an entry with the same title, start, and end.
func (s *Session) AddToCalendar(ctx context.Context, id string, withAlert bool) (domain.EventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.store.Get(id)
	if rec == nil {
		return domain.EventRecord{}, fmt.Errorf("service.Session.AddToCalendar: %w", domain.ErrNotFound)
	}
	if s.calendar == nil {
		return *rec, fmt.Errorf("service.Session.AddToCalendar: %w", domain.ErrCalendarDenied)
	}
	if err := s.calendar.Authorize(ctx); err != nil {
		return *rec, fmt.Errorf("service.Session.AddToCalendar: %w", err)
	}

	entry := CalendarEntryFor(*rec, s.loc)
	exists, err := s.calendar.Exists(ctx, entry)
	if err != nil {
		return *rec, fmt.Errorf("service.Session.AddToCalendar: %w", err)
	}
	if exists {
		return *rec, fmt.Errorf("service.Session.AddToCalendar: %w", domain.ErrAlreadyInCalendar)
	}

	// The flag says yes but the calendar says no: clear the stale flag so the
	// insert below counts as a fresh addition.
	if rec.IsInCalendar {
		if _, err := s.reconciler.SetFlags(ctx, rec, FlagChange{Calendar: boolPtr(false)}); err != nil {
			return *rec, fmt.Errorf("service.Session.AddToCalendar: %w", err)
		}
	}

	if err := s.calendar.Insert(ctx, entry, withAlert); err != nil {
		return *rec, fmt.Errorf("service.Session.AddToCalendar: %w", err)
	}
	if _, err := s.reconciler.SetFlags(ctx, rec, FlagChange{Calendar: boolPtr(true)}); err != nil {
		return *rec, fmt.Errorf("service.Session.AddToCalendar: %w", err)
	}
	return *rec, nil
}

// ApplyCounter stores a live numberAttending value. Updates for events
// that are not loaded are ignored; it reports whether one was applied.
func (s *Session) ApplyCounter(u domain.CounterUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.store.Get(u.ID)
	if rec == nil {
		return false
	}
	rec.NumberAttending = u.NumberAttending
	return true
}

// Watch consumes feed until ctx is done or both channels are closed.
// Refresh failures are logged and do not stop the loop.
func (s *Session) Watch(ctx context.Context, feed Feed) error {
	refreshes := feed.Refreshes()
	counters := feed.Counters()
	for refreshes != nil || counters != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-refreshes:
			if !ok {
				refreshes = nil
				continue
			}
			if _, err := s.Refresh(ctx); err != nil {
				s.log.ErrorContext(ctx, "live refresh failed", "error", err)
			}
		case u, ok := <-counters:
			if !ok {
				counters = nil
				continue
			}
			s.ApplyCounter(u)
		}
	}
	return nil
}

// EventTypes returns the top-level event types, sorted.
func (s *Session) EventTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedNames(s.types)
}

// Locations returns the top-level locations, sorted.
func (s *Session) Locations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedNames(s.locations)
}

// FavoritesExist reports whether the user has favorited anything.
func (s *Session) FavoritesExist() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconciler.AnyFavorite()
}

func (s *Session) setAssociationsLocked(types, locations domain.Associations) {
	if types == nil {
		types = domain.Associations{}
	}
	if locations == nil {
		locations = domain.Associations{}
	}
	s.types = types
	s.locations = locations
	s.search.SetAssociations(types)
}

func (s *Session) today() time.Time {
	return s.now().In(s.loc)
}

func sortedNames(a domain.Associations) []string {
	out := a.Names()
	sort.Strings(out)
	return out
}

func boolPtr(b bool) *bool { return &b }
