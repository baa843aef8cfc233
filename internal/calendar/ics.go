// Package calendar stores the user's calendar as an iCalendar file.
package calendar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/stetsonscene/scene/backend/internal/domain"
)

const (
	productID = "-//Stetson Scene//Event Engine//EN"

	// alertTrigger fires the reminder 30 minutes before the event starts.
	alertTrigger = "-PT30M"
)

// ICSCalendar keeps VEVENTs in a single .ics file. Writes replace the file
// atomically.
type ICSCalendar struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// NewICSCalendar returns a calendar stored at path. The file is created on
// first use.
func NewICSCalendar(path string) *ICSCalendar {
	return &ICSCalendar{path: path, now: time.Now}
}

// Authorize checks that the calendar file can be opened for writing.
// Returns domain.ErrCalendarDenied when it cannot.
func (c *ICSCalendar) Authorize(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := os.OpenFile(c.path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("calendar.ICSCalendar.Authorize: %w: %w", domain.ErrCalendarDenied, err)
	}
	return f.Close()
}

// Exists reports whether an event with the same title, start, and end is stored.
func (c *ICSCalendar) Exists(_ context.Context, entry domain.CalendarEntry) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cal, err := c.load()
	if err != nil {
		return false, fmt.Errorf("calendar.ICSCalendar.Exists: %w", err)
	}
	for _, ev := range cal.Events() {
		if matches(ev, entry) {
			return true, nil
		}
	}
	return false, nil
}

// Insert appends entry as a new VEVENT, with a display alarm 30 minutes
// before start when withAlert is set.
func (c *ICSCalendar) Insert(_ context.Context, entry domain.CalendarEntry, withAlert bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cal, err := c.load()
	if err != nil {
		return fmt.Errorf("calendar.ICSCalendar.Insert: %w", err)
	}

	ev := cal.AddEvent(uuid.NewString())
	ev.SetDtStampTime(c.now())
	ev.SetSummary(entry.Title)
	ev.SetStartAt(entry.Start)
	ev.SetEndAt(entry.End)
	if withAlert {
		alarm := ev.AddAlarm()
		alarm.SetAction(ical.ActionDisplay)
		alarm.SetTrigger(alertTrigger)
		alarm.SetProperty(ical.ComponentPropertyDescription, entry.Title)
	}

	if err := c.write(cal); err != nil {
		return fmt.Errorf("calendar.ICSCalendar.Insert: %w", err)
	}
	return nil
}

// load returns the stored calendar, or a new one if the file is missing or empty.
func (c *ICSCalendar) load() (*ical.Calendar, error) {
	body, err := os.ReadFile(c.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		cal := ical.NewCalendar()
		cal.SetMethod(ical.MethodPublish)
		cal.SetProductId(productID)
		return cal, nil
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", c.path, err)
	}
	return cal, nil
}

func (c *ICSCalendar) write(cal *ical.Calendar) error {
	tmp, err := os.CreateTemp(filepath.Dir(c.path), ".calendar-*.ics")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(cal.Serialize()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), c.path)
}

func matches(ev *ical.VEvent, entry domain.CalendarEntry) bool {
	p := ev.GetProperty(ical.ComponentPropertySummary)
	if p == nil || p.Value != entry.Title {
		return false
	}
	start, err := ev.GetStartAt()
	if err != nil || !start.Equal(entry.Start) {
		return false
	}
	end, err := ev.GetEndAt()
	return err == nil && end.Equal(entry.End)
}
