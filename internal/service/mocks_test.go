package service_test

import (
	"context"
	"sort"

	"github.com/stetsonscene/scene/backend/internal/domain"
	"github.com/stetsonscene/scene/backend/internal/repo"
	"github.com/stetsonscene/scene/backend/internal/service"
)

// memFlagRepo is an in-memory repo.FlagRepo. Set fail to make every call
// return that error.
type memFlagRepo struct {
	rows  map[string]domain.PersistedFlags
	calls []string
	fail  error
}

func newMemFlagRepo(rows ...domain.PersistedFlags) *memFlagRepo {
	m := &memFlagRepo{rows: map[string]domain.PersistedFlags{}}
	for _, r := range rows {
		m.rows[r.ID] = r
	}
	return m
}

func (m *memFlagRepo) Create(_ context.Context, f domain.PersistedFlags) error {
	m.calls = append(m.calls, "create:"+f.ID)
	if m.fail != nil {
		return m.fail
	}
	m.rows[f.ID] = f
	return nil
}
func (m *memFlagRepo) Get(_ context.Context, id string) (domain.PersistedFlags, error) {
	f, ok := m.rows[id]
	if !ok {
		return domain.PersistedFlags{}, domain.ErrNotFound
	}
	return f, nil
}
func (m *memFlagRepo) Update(_ context.Context, f domain.PersistedFlags) error {
	m.calls = append(m.calls, "update:"+f.ID)
	if m.fail != nil {
		return m.fail
	}
	if _, ok := m.rows[f.ID]; !ok {
		return domain.ErrNotFound
	}
	m.rows[f.ID] = f
	return nil
}
func (m *memFlagRepo) Delete(_ context.Context, id string) error {
	m.calls = append(m.calls, "delete:"+id)
	if m.fail != nil {
		return m.fail
	}
	if _, ok := m.rows[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}
func (m *memFlagRepo) List(_ context.Context) ([]domain.PersistedFlags, error) {
	out := make([]domain.PersistedFlags, 0, len(m.rows))
	for _, f := range m.rows {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// compile-time check: memFlagRepo must satisfy repo.FlagRepo.
var _ repo.FlagRepo = (*memFlagRepo)(nil)

// mockLocationRepo is a hand-written test double for repo.LocationRepo.
type mockLocationRepo struct {
	entries map[string]domain.Coordinates
	puts    []string
}

func newMockLocationRepo() *mockLocationRepo {
	return &mockLocationRepo{entries: map[string]domain.Coordinates{}}
}

func (m *mockLocationRepo) Get(_ context.Context, location string) (domain.Coordinates, error) {
	c, ok := m.entries[location]
	if !ok {
		return domain.Coordinates{}, domain.ErrNotFound
	}
	return c, nil
}
func (m *mockLocationRepo) Put(_ context.Context, location string, c domain.Coordinates) error {
	m.puts = append(m.puts, location)
	if _, ok := m.entries[location]; !ok {
		m.entries[location] = c
	}
	return nil
}
func (m *mockLocationRepo) List(_ context.Context) (map[string]domain.Coordinates, error) {
	out := make(map[string]domain.Coordinates, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out, nil
}

// compile-time check: mockLocationRepo must satisfy repo.LocationRepo.
var _ repo.LocationRepo = (*mockLocationRepo)(nil)

// recordingCounter records every delta sent to it.
type recordingCounter struct {
	deltas []int
	fail   error
}

func (c *recordingCounter) AdjustAttending(_ context.Context, _ string, delta int) error {
	c.deltas = append(c.deltas, delta)
	return c.fail
}

var _ service.AttendanceCounter = (*recordingCounter)(nil)

// mockCalendar is a test double for service.Calendar.
// Set only the method fields your test needs; unset ones succeed.
type mockCalendar struct {
	authorize func(ctx context.Context) error
	exists    func(ctx context.Context, e domain.CalendarEntry) (bool, error)
	insert    func(ctx context.Context, e domain.CalendarEntry, withAlert bool) error
}

func (m *mockCalendar) Authorize(ctx context.Context) error {
	if m.authorize == nil {
		return nil
	}
	return m.authorize(ctx)
}
func (m *mockCalendar) Exists(ctx context.Context, e domain.CalendarEntry) (bool, error) {
	if m.exists == nil {
		return false, nil
	}
	return m.exists(ctx, e)
}
func (m *mockCalendar) Insert(ctx context.Context, e domain.CalendarEntry, withAlert bool) error {
	if m.insert == nil {
		return nil
	}
	return m.insert(ctx, e, withAlert)
}

// compile-time check: mockCalendar must satisfy service.Calendar.
var _ service.Calendar = (*mockCalendar)(nil)

// flagMap is a service.FlagLookup over a plain map.
type flagMap map[string]domain.PersistedFlags

func (m flagMap) Lookup(id string) (domain.PersistedFlags, bool) {
	f, ok := m[id]
	return f, ok
}
