package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/stetsonscene/scene/backend/internal/domain"
	"github.com/stetsonscene/scene/backend/internal/repo"
)

// LocationCache remembers the first valid coordinates seen for each named
// location so later records with missing coordinates can be backfilled.
// Entries are written through to the durable store and never removed.
type LocationCache struct {
	repo    repo.LocationRepo
	log     *slog.Logger
	entries map[string]domain.Coordinates
}

// NewLocationCache constructs an empty cache over r. Call Load to warm it.
func NewLocationCache(r repo.LocationRepo, log *slog.Logger) *LocationCache {
	if log == nil {
		log = slog.Default()
	}
	return &LocationCache{repo: r, log: log, entries: map[string]domain.Coordinates{}}
}

// Load replaces the in-memory cache with the durable one.
func (c *LocationCache) Load(ctx context.Context) error {
	entries, err := c.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("service.LocationCache.Load: %w", err)
	}
	c.entries = entries
	return nil
}

// Lookup returns the cached coordinates for location.
func (c *LocationCache) Lookup(location string) (domain.Coordinates, bool) {
	v, ok := c.entries[location]
	return v, ok
}

// Remember caches coords under location unless an entry already exists.
// A failed write is logged; the in-memory entry is kept either way.
func (c *LocationCache) Remember(ctx context.Context, location string, coords domain.Coordinates) {
	if _, ok := c.entries[location]; ok {
		return
	}
	c.entries[location] = coords
	if err := c.repo.Put(ctx, location, coords); err != nil {
		c.log.WarnContext(ctx, "persist location coordinates", "location", location, "error", err)
	}
}

// badCoordinate reports whether lat, formatted the way the source formats
// it, is one of the "no coordinates" sentinels.
func badCoordinate(lat float64) bool {
	if lat == 0 {
		return true
	}
	switch strconv.FormatFloat(lat, 'f', -1, 64) {
	case "", "0", "0.0":
		return true
	}
	return false
}
