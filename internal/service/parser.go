package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/stetsonscene/scene/backend/internal/domain"
)

// FlagLookup returns persisted flags by event id. *Reconciler satisfies it.
type FlagLookup interface {
	Lookup(id string) (domain.PersistedFlags, bool)
}

// CalendarChecker reports whether the external calendar holds an entry.
type CalendarChecker interface {
	Exists(ctx context.Context, entry domain.CalendarEntry) (bool, error)
}

// ParseResult is a validated record plus what the caller must reconcile.
type ParseResult struct {
	Record domain.EventRecord

	// CalendarMismatch is true when the record's persisted IsInCalendar
	// disagrees with the external calendar.
	CalendarMismatch bool
}

type fieldKind int

const (
	kindString fieldKind = iota
	kindInt
	kindBool
	kindCoord
	kindStrings
)

// field describes how one source key decodes into an EventRecord.
// A required field has no default: a missing or mistyped value makes the
// record invalid.
type field struct {
	kind     fieldKind
	def      any
	required bool
	set      func(e *domain.EventRecord, v any)
}

const defaultListItem = "Default string"

// eventSchema maps every recognized source key to its decoding rule.
var eventSchema = map[string]field{
	"guid":             {kind: kindString, required: true, set: func(e *domain.EventRecord, v any) { e.ID = v.(string) }},
	"name":             {kind: kindString, def: "Default name", set: func(e *domain.EventRecord, v any) { e.Name = v.(string) }},
	"date":             {kind: kindString, def: "Default date", set: func(e *domain.EventRecord, v any) { e.StartDate = v.(string) }},
	"time":             {kind: kindString, def: "Default time", set: func(e *domain.EventRecord, v any) { e.StartTime = v.(string) }},
	"endDate":          {kind: kindString, def: "Default end date", set: func(e *domain.EventRecord, v any) { e.EndDate = v.(string) }},
	"endTime":          {kind: kindString, def: "Default end time", set: func(e *domain.EventRecord, v any) { e.EndTime = v.(string) }},
	"daysIntoYear":     {kind: kindInt, def: 0, set: func(e *domain.EventRecord, v any) { e.DayOfYear = v.(int) }},
	"numberAttending":  {kind: kindInt, def: 0, set: func(e *domain.EventRecord, v any) { e.NumberAttending = v.(int) }},
	"absolutePosition": {kind: kindInt, def: 0, set: func(e *domain.EventRecord, v any) { e.AbsolutePosition = v.(int) }},
	"url":              {kind: kindString, def: "Default url", set: func(e *domain.EventRecord, v any) { e.URL = v.(string) }},
	"summary":          {kind: kindString, def: "Default summary", set: func(e *domain.EventRecord, v any) { e.Summary = v.(string) }},
	"description":      {kind: kindString, def: "Default description", set: func(e *domain.EventRecord, v any) { e.Description = v.(string) }},
	"contactName":      {kind: kindString, def: "Default contact name", set: func(e *domain.EventRecord, v any) { e.ContactName = v.(string) }},
	"contactPhone":     {kind: kindString, def: "Default contact phone", set: func(e *domain.EventRecord, v any) { e.ContactPhone = v.(string) }},
	"contactMail":      {kind: kindString, def: "Default contact mail", set: func(e *domain.EventRecord, v any) { e.ContactEmail = v.(string) }},
	"mainLocation":     {kind: kindString, def: "Default location", set: func(e *domain.EventRecord, v any) { e.Location = v.(string) }},
	"mainEventType":    {kind: kindString, def: "Default main event type", set: func(e *domain.EventRecord, v any) { e.MainEventType = v.(string) }},
	"address":          {kind: kindString, def: "Default address", set: func(e *domain.EventRecord, v any) { e.Address = v.(string) }},
	"city":             {kind: kindString, def: "Default city", set: func(e *domain.EventRecord, v any) { e.City = v.(string) }},
	"zip":              {kind: kindString, def: "Default zip", set: func(e *domain.EventRecord, v any) { e.Zip = v.(string) }},
	"lat":              {kind: kindCoord, def: 0.0, set: func(e *domain.EventRecord, v any) { e.Latitude = v.(float64) }},
	"lon":              {kind: kindCoord, def: 0.0, set: func(e *domain.EventRecord, v any) { e.Longitude = v.(float64) }},
	"hasCultural":      {kind: kindBool, def: false, set: func(e *domain.EventRecord, v any) { e.HasCulturalCredit = v.(bool) }},
	"subLocations":     {kind: kindStrings, set: func(e *domain.EventRecord, v any) { e.SubLocations = v.([]string) }},
	"eventTypes":       {kind: kindStrings, set: func(e *domain.EventRecord, v any) { e.EventTypes = v.([]string) }},
}

// Parser turns raw source maps into validated EventRecords.
// It reads the location cache and persisted flags, so it shares the
// Session's lock.
type Parser struct {
	coords *LocationCache
	flags  FlagLookup
	cal    CalendarChecker
	loc    *time.Location
	log    *slog.Logger
}

// NewParser constructs a Parser. cal may be nil to skip the calendar
// cross-check; loc nil means UTC.
func NewParser(coords *LocationCache, flags FlagLookup, cal CalendarChecker, loc *time.Location, log *slog.Logger) *Parser {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	return &Parser{coords: coords, flags: flags, cal: cal, loc: loc, log: log}
}

// Parse decodes raw into an EventRecord.
//
// Unknown keys are ignored and mistyped or absent optional keys take their
// default. A record without a guid or with an unparseable start or end
// date-time returns an error wrapping domain.ErrInvalidRecord together with
// the partial record.
func (p *Parser) Parse(ctx context.Context, raw domain.RawEvent) (ParseResult, error) {
	var rec domain.EventRecord
	for key, f := range eventSchema {
		v, ok := decode(f.kind, raw[key])
		if !ok || (f.required && v == "") {
			if f.required {
				return ParseResult{Record: rec}, fmt.Errorf("service.Parser.Parse: %w: missing %s", domain.ErrInvalidRecord, key)
			}
			v = f.def
			if f.kind == kindStrings {
				v = []string{defaultListItem}
			}
		}
		f.set(&rec, v)
	}

	rec.Latitude, rec.Longitude = SanitizeCoords(rec.Latitude, rec.Longitude)
	p.applyCoordinateCache(ctx, &rec)

	start, err := domain.ParseDateTime(rec.StartDate, rec.StartTime)
	if err != nil {
		return ParseResult{Record: rec}, fmt.Errorf("service.Parser.Parse: %w: start: %w", domain.ErrInvalidRecord, err)
	}
	end, err := domain.ParseDateTime(rec.EndDate, rec.EndTime)
	if err != nil {
		return ParseResult{Record: rec}, fmt.Errorf("service.Parser.Parse: %w: end: %w", domain.ErrInvalidRecord, err)
	}
	rec.StartDateTime, rec.EndDateTime = start, end
	if rec.DayOfYear <= 0 {
		rec.DayOfYear = start.DayOfYear()
	}

	if rec.HasZeroCoordinates() && (rec.Location == "" || strings.EqualFold(rec.Location, domain.VirtualLocation)) {
		rec.IsVirtual = true
		rec.Location = domain.VirtualLocation
	}

	rec.LinkText = MakeLink(rec.Description)
	rec.Description = ScrapeHTMLTags(rec.Description)

	res := ParseResult{Record: rec}
	if p.flags == nil {
		return res, nil
	}
	persisted, ok := p.flags.Lookup(rec.ID)
	if !ok {
		return res, nil
	}
	res.Record.SetFlags(persisted.IsFavorite, persisted.IsInCalendar)
	if p.cal != nil {
		exists, err := p.cal.Exists(ctx, CalendarEntryFor(res.Record, p.loc))
		if err != nil {
			p.log.WarnContext(ctx, "calendar cross-check", "event_id", rec.ID, "error", err)
			return res, nil
		}
		res.CalendarMismatch = exists != res.Record.IsInCalendar
	}
	return res, nil
}

// applyCoordinateCache records good coordinates for unseen locations and
// backfills missing coordinates from the cache.
func (p *Parser) applyCoordinateCache(ctx context.Context, rec *domain.EventRecord) {
	if p.coords == nil || rec.Location == "" {
		return
	}
	bad := badCoordinate(rec.Latitude)
	cached, ok := p.coords.Lookup(rec.Location)
	if !ok && !bad {
		p.coords.Remember(ctx, rec.Location, domain.Coordinates{Latitude: rec.Latitude, Longitude: rec.Longitude})
		return
	}
	if ok && bad && !strings.EqualFold(rec.Location, domain.VirtualLocation) {
		rec.Latitude, rec.Longitude = cached.Latitude, cached.Longitude
	}
}

// CalendarEntryFor builds the calendar identity of rec in loc.
func CalendarEntryFor(rec domain.EventRecord, loc *time.Location) domain.CalendarEntry {
	return domain.CalendarEntry{
		Title: rec.Name,
		Start: rec.StartDateTime.Time(loc),
		End:   rec.EndDateTime.Time(loc),
	}
}

// decode converts a JSON-decoded value to the Go type of kind.
// It reports false when v is absent or has the wrong type.
func decode(kind fieldKind, v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	switch kind {
	case kindString:
		s, ok := v.(string)
		return s, ok
	case kindBool:
		b, ok := v.(bool)
		return b, ok
	case kindInt:
		switch n := v.(type) {
		case int:
			return n, true
		case int64:
			if n >= math.MinInt32 && n <= math.MaxInt32 {
				return int(n), true
			}
		case float64:
			if n == math.Trunc(n) && n >= math.MinInt32 && n <= math.MaxInt32 {
				return int(n), true
			}
		}
		return nil, false
	case kindCoord:
		// Coordinates are published as strings; unparseable ones are 0.
		switch n := v.(type) {
		case float64:
			return n, true
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
			if err != nil {
				return 0.0, true
			}
			return f, true
		}
		return nil, false
	case kindStrings:
		switch l := v.(type) {
		case []string:
			return append([]string(nil), l...), true
		case []any:
			out := make([]string, 0, len(l))
			for _, item := range l {
				s, ok := item.(string)
				if !ok {
					return nil, false
				}
				out = append(out, s)
			}
			return out, true
		}
		return nil, false
	}
	return nil, false
}
