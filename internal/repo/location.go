package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/stetsonscene/scene/backend/internal/domain"
)

// LocationRepo persists the last known coordinates of each named location.
// The cache only grows: there is no delete.
type LocationRepo interface {
	// Get returns the cached coordinates for location.
	// Returns domain.ErrNotFound if the location was never cached.
	Get(ctx context.Context, location string) (domain.Coordinates, error)

	// Put stores coordinates for location. An existing entry is kept.
	Put(ctx context.Context, location string, c domain.Coordinates) error

	// List returns the full cache keyed by location name.
	List(ctx context.Context) (map[string]domain.Coordinates, error)
}

// pgLocationRepo is the Postgres implementation of LocationRepo.
type pgLocationRepo struct {
	db db
}

// NewLocationRepo constructs a LocationRepo backed by the provided db connection.
func NewLocationRepo(db db) LocationRepo {
	return &pgLocationRepo{db: db}
}

func (r *pgLocationRepo) Get(ctx context.Context, location string) (domain.Coordinates, error) {
	const q = `
		SELECT latitude, longitude
		FROM location_coordinates
		WHERE location = @location`

	var c domain.Coordinates
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"location": location}).Scan(&c.Latitude, &c.Longitude)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Coordinates{}, fmt.Errorf("repo.LocationRepo.Get: %w", domain.ErrNotFound)
		}
		return domain.Coordinates{}, fmt.Errorf("repo.LocationRepo.Get: %w", err)
	}
	return c, nil
}

// Put is idempotent via ON CONFLICT DO NOTHING: the first coordinates seen
// for a location win.
func (r *pgLocationRepo) Put(ctx context.Context, location string, c domain.Coordinates) error {
	const q = `
		INSERT INTO location_coordinates (location, latitude, longitude)
		VALUES (@location, @latitude, @longitude)
		ON CONFLICT (location) DO NOTHING`

	_, err := r.db.Exec(ctx, q, pgx.NamedArgs{
		"location":  location,
		"latitude":  c.Latitude,
		"longitude": c.Longitude,
	})
	if err != nil {
		return fmt.Errorf("repo.LocationRepo.Put: %w", err)
	}
	return nil
}

func (r *pgLocationRepo) List(ctx context.Context) (map[string]domain.Coordinates, error) {
	const q = `SELECT location, latitude, longitude FROM location_coordinates`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("repo.LocationRepo.List: %w", err)
	}
	defer rows.Close()

	out := map[string]domain.Coordinates{}
	for rows.Next() {
		var (
			name string
			c    domain.Coordinates
		)
		if err := rows.Scan(&name, &c.Latitude, &c.Longitude); err != nil {
			return nil, fmt.Errorf("repo.LocationRepo.List: scan: %w", err)
		}
		out[name] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.LocationRepo.List: rows: %w", err)
	}
	return out, nil
}
