package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/stetsonscene/scene/backend/internal/domain"
	"github.com/stetsonscene/scene/backend/internal/repo"
)

// AttendanceDelta is the change sent to the shared numberAttending counter.
type AttendanceDelta int

const (
	DeltaDecrement AttendanceDelta = -1
	DeltaNone      AttendanceDelta = 0
	DeltaIncrement AttendanceDelta = 1
)

// AttendanceCounter adjusts the remote numberAttending value of an event.
type AttendanceCounter interface {
	AdjustAttending(ctx context.Context, id string, delta int) error
}

// FlagChange requests new flag values. A nil field leaves that flag alone.
type FlagChange struct {
	Favorite *bool
	Calendar *bool
}

// Reconciler keeps an in-memory copy of the persisted flags table, applies
// flag changes to records, and mirrors them to the durable store and the
// attendance counter.
//
// Reconciler is not safe for concurrent use; Session guards it.
type Reconciler struct {
	repo     repo.FlagRepo
	counter  AttendanceCounter
	debounce *Debouncer
	log      *slog.Logger
	flags    map[string]domain.PersistedFlags
}

// NewReconciler constructs a Reconciler. counter may be nil, in which case
// deltas are computed but not sent.
func NewReconciler(r repo.FlagRepo, counter AttendanceCounter, debounce *Debouncer, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{
		repo:     r,
		counter:  counter,
		debounce: debounce,
		log:      log,
		flags:    map[string]domain.PersistedFlags{},
	}
}

// Load reads the whole flags table into memory.
func (r *Reconciler) Load(ctx context.Context) error {
	rows, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("service.Reconciler.Load: %w", err)
	}
	flags := make(map[string]domain.PersistedFlags, len(rows))
	for _, f := range rows {
		flags[f.ID] = f
	}
	r.flags = flags
	return nil
}

// Lookup returns the persisted flags for id. A miss means the event is
// neither favorited nor in the calendar.
func (r *Reconciler) Lookup(id string) (domain.PersistedFlags, bool) {
	f, ok := r.flags[id]
	return f, ok
}

// IDs returns every event id with persisted flags, sorted.
func (r *Reconciler) IDs() []string {
	out := make([]string, 0, len(r.flags))
	for id := range r.flags {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// AnyFavorite reports whether at least one persisted row is a favorite.
func (r *Reconciler) AnyFavorite() bool {
	for _, f := range r.flags {
		if f.IsFavorite {
			return true
		}
	}
	return false
}

// ToggleFavorite flips rec's favorite flag unless a favorite toggle
// succeeded within the debounce window, in which case it returns
// domain.ErrRateLimited and changes nothing.
func (r *Reconciler) ToggleFavorite(ctx context.Context, rec *domain.EventRecord) (AttendanceDelta, error) {
	if r.debounce != nil && !r.debounce.Allow() {
		return DeltaNone, fmt.Errorf("service.Reconciler.ToggleFavorite: %w", domain.ErrRateLimited)
	}
	fav := !rec.IsFavorite
	return r.SetFlags(ctx, rec, FlagChange{Favorite: &fav})
}

// ToggleCalendar flips rec's calendar flag.
func (r *Reconciler) ToggleCalendar(ctx context.Context, rec *domain.EventRecord) (AttendanceDelta, error) {
	cal := !rec.IsInCalendar
	return r.SetFlags(ctx, rec, FlagChange{Calendar: &cal})
}

// SetFlags applies change to rec, persists the result, sends the attendance
// delta, and reloads the flags table.
//
// The record is only modified once the durable store accepted the change.
// Counter failures are logged and do not fail the call.
func (r *Reconciler) SetFlags(ctx context.Context, rec *domain.EventRecord, change FlagChange) (AttendanceDelta, error) {
	prev := rec.Flags()
	next := prev
	if change.Favorite != nil {
		next.IsFavorite = *change.Favorite
	}
	if change.Calendar != nil {
		next.IsInCalendar = *change.Calendar
	}
	next.IsAttending = next.IsFavorite || next.IsInCalendar

	if next == prev {
		return DeltaNone, nil
	}

	if err := r.persist(ctx, next); err != nil {
		return DeltaNone, fmt.Errorf("service.Reconciler.SetFlags: %w", err)
	}
	rec.SetFlags(next.IsFavorite, next.IsInCalendar)

	delta := attendanceDelta(prev, next)
	if delta != DeltaNone && r.counter != nil {
		if err := r.counter.AdjustAttending(ctx, rec.ID, int(delta)); err != nil {
			r.log.WarnContext(ctx, "adjust attendance counter", "event_id", rec.ID, "delta", int(delta), "error", err)
		}
	}

	if err := r.Load(ctx); err != nil {
		r.log.WarnContext(ctx, "reload persisted flags", "error", err)
	}
	return delta, nil
}

// persist creates, updates, or deletes the row for f and mirrors the change
// into memory.
func (r *Reconciler) persist(ctx context.Context, f domain.PersistedFlags) error {
	existing, ok := r.flags[f.ID]
	switch {
	case f.IsAttending && !ok:
		if err := r.repo.Create(ctx, f); err != nil {
			return err
		}
	case f.IsAttending && existing != f:
		if err := r.repo.Update(ctx, f); err != nil {
			return err
		}
	case !f.IsAttending && ok:
		if err := r.repo.Delete(ctx, f.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		delete(r.flags, f.ID)
		return nil
	default:
		return nil
	}
	r.flags[f.ID] = f
	return nil
}

// attendanceDelta implements the counter rule: becoming attending from not
// attending increments; turning off the only true flag decrements; any
// other change (one flag set while the other stays set) is none.
func attendanceDelta(prev, next domain.PersistedFlags) AttendanceDelta {
	switch {
	case !prev.IsAttending && next.IsAttending:
		return DeltaIncrement
	case prev.IsAttending && !next.IsAttending:
		return DeltaDecrement
	default:
		return DeltaNone
	}
}
