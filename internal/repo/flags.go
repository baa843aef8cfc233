// Package repo contains the local durable store for the event engine: the
// persisted favorite/calendar flags and the location coordinate cache.
// Each table has its own file with an interface and a Postgres implementation.
// No business logic lives here, only SQL and type mapping.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/stetsonscene/scene/backend/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// FlagRepo defines the persistence operations for PersistedFlags.
// The service layer depends on this interface so the reconciler can be
// unit-tested with a mock.
type FlagRepo interface {
	// Create inserts flags for an event that has none yet.
	Create(ctx context.Context, f domain.PersistedFlags) error

	// Get returns the flags for one event.
	// Returns domain.ErrNotFound if the event has no row.
	Get(ctx context.Context, id string) (domain.PersistedFlags, error)

	// Update overwrites the flags of an existing row.
	// Returns domain.ErrNotFound if the event has no row.
	Update(ctx context.Context, f domain.PersistedFlags) error

	// Delete removes the row for an event.
	// Returns domain.ErrNotFound if the event has no row.
	Delete(ctx context.Context, id string) error

	// List returns every row ordered by event id.
	List(ctx context.Context) ([]domain.PersistedFlags, error)
}

// pgFlagRepo is the Postgres implementation of FlagRepo.
type pgFlagRepo struct {
	db db
}

// NewFlagRepo constructs a FlagRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewFlagRepo(db db) FlagRepo {
	return &pgFlagRepo{db: db}
}

func (r *pgFlagRepo) Create(ctx context.Context, f domain.PersistedFlags) error {
	const q = `
		INSERT INTO persisted_flags (event_id, is_favorite, is_in_calendar, is_attending)
		VALUES (@event_id, @is_favorite, @is_in_calendar, @is_attending)`

	if _, err := r.db.Exec(ctx, q, flagArgs(f)); err != nil {
		return fmt.Errorf("repo.FlagRepo.Create: %w", err)
	}
	return nil
}

func (r *pgFlagRepo) Get(ctx context.Context, id string) (domain.PersistedFlags, error) {
	const q = `
		SELECT event_id, is_favorite, is_in_calendar, is_attending
		FROM persisted_flags
		WHERE event_id = @event_id`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"event_id": id})
	f, err := scanFlags(row)
	if err != nil {
		return domain.PersistedFlags{}, fmt.Errorf("repo.FlagRepo.Get: %w", err)
	}
	return f, nil
}

// Update also bumps updated_at so rows show when the user last changed them.
func (r *pgFlagRepo) Update(ctx context.Context, f domain.PersistedFlags) error {
	const q = `
		UPDATE persisted_flags
		SET is_favorite    = @is_favorite,
		    is_in_calendar = @is_in_calendar,
		    is_attending   = @is_attending,
		    updated_at     = now()
		WHERE event_id = @event_id`

	tag, err := r.db.Exec(ctx, q, flagArgs(f))
	if err != nil {
		return fmt.Errorf("repo.FlagRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.FlagRepo.Update: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *pgFlagRepo) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM persisted_flags WHERE event_id = @event_id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"event_id": id})
	if err != nil {
		return fmt.Errorf("repo.FlagRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.FlagRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *pgFlagRepo) List(ctx context.Context) ([]domain.PersistedFlags, error) {
	const q = `
		SELECT event_id, is_favorite, is_in_calendar, is_attending
		FROM persisted_flags
		ORDER BY event_id`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("repo.FlagRepo.List: %w", err)
	}
	defer rows.Close()

	out := []domain.PersistedFlags{}
	for rows.Next() {
		f, err := scanFlags(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.FlagRepo.List: scan: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.FlagRepo.List: rows: %w", err)
	}
	return out, nil
}

func flagArgs(f domain.PersistedFlags) pgx.NamedArgs {
	return pgx.NamedArgs{
		"event_id":       f.ID,
		"is_favorite":    f.IsFavorite,
		"is_in_calendar": f.IsInCalendar,
		"is_attending":   f.IsAttending,
	}
}

// scanFlags maps a single database row into a domain.PersistedFlags.
func scanFlags(s scanner) (domain.PersistedFlags, error) {
	var f domain.PersistedFlags
	err := s.Scan(&f.ID, &f.IsFavorite, &f.IsInCalendar, &f.IsAttending)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PersistedFlags{}, domain.ErrNotFound
		}
		return domain.PersistedFlags{}, err
	}
	return f, nil
}
