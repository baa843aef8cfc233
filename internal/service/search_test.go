package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stetsonscene/scene/backend/internal/domain"
	"github.com/stetsonscene/scene/backend/internal/service"
)

// today is Monday, March 4 2024: day-of-year 64.
var today = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

// onDay builds a record starting on the given 2024 day-of-year.
func onDay(id string, doy int, eventType string) domain.EventRecord {
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, doy-1)
	return domain.EventRecord{
		ID:            id,
		DayOfYear:     doy,
		MainEventType: eventType,
		StartDateTime: domain.DateTimeInfo{
			Year: d.Year(), Month: int(d.Month()), Day: d.Day(), Hour: 7, Minute: 0, Meridiem: domain.PM,
		},
	}
}

func TestClassify_dateWindow(t *testing.T) {
	e := service.NewSearchEngine()
	f := domain.NewSearchFilter([]string{"Music"})
	start := service.TodayDayOfYear(today)
	assert.Equal(t, 64, start)

	for offset := 0; offset < 28; offset++ {
		assert.True(t, e.Classify(onDay("in", start+offset, "Music"), f, today), "offset %d", offset)
	}
	assert.False(t, e.Classify(onDay("late", start+29, "Music"), f, today))
	assert.False(t, e.Classify(onDay("past", start-1, "Music"), f, today))
}

func TestClassify_weekday(t *testing.T) {
	e := service.NewSearchEngine()
	f := domain.NewSearchFilter([]string{"Music"})
	f.WeekdaysSelected[1] = false // Monday

	assert.False(t, e.Classify(onDay("mon", 64, "Music"), f, today))
	assert.True(t, e.Classify(onDay("tue", 65, "Music"), f, today))
}

func TestClassify_categoryFlags(t *testing.T) {
	e := service.NewSearchEngine()
	f := domain.NewSearchFilter([]string{"Music"})
	rec := onDay("a", 66, "Music")

	f.OnlyCultural = true
	assert.False(t, e.Classify(rec, f, today))
	rec.HasCulturalCredit = true
	assert.True(t, e.Classify(rec, f, today))

	f.OnlyVirtual = true
	assert.False(t, e.Classify(rec, f, today))
	rec.IsVirtual = true
	assert.True(t, e.Classify(rec, f, today))
}

func TestClassify_eventTypes(t *testing.T) {
	e := service.NewSearchEngine()
	e.SetAssociations(domain.Associations{"Arts": {"Theatre": "", "Dance": ""}})
	rec := onDay("a", 66, "Theatre")

	assert.True(t, e.Classify(rec, domain.NewSearchFilter([]string{"Arts"}), today), "parent match")
	assert.False(t, e.Classify(rec, domain.NewSearchFilter([]string{"Sports"}), today))
	assert.False(t, e.Classify(rec, domain.NewSearchFilter(nil), today), "empty set matches nothing")

	rec.MainEventType = "Lecture"
	rec.EventTypes = []string{"Dance"}
	assert.True(t, e.Classify(rec, domain.NewSearchFilter([]string{"Arts"}), today), "listed type match")
}

func TestClassifyTimeOnly_ignoresOtherCriteria(t *testing.T) {
	e := service.NewSearchEngine()
	f := domain.NewSearchFilter(nil)
	f.OnlyCultural = true

	assert.True(t, e.ClassifyTimeOnly(onDay("a", 70, "Anything"), f, today))
	assert.False(t, e.ClassifyTimeOnly(onDay("b", 200, "Anything"), f, today))
}

func TestFilter_setsMatchesCurrentFilter(t *testing.T) {
	e := service.NewSearchEngine()
	s := service.NewEventStore()
	s.InsertSorted(onDay("in", 65, "Music"))
	s.InsertSorted(onDay("out", 150, "Music"))

	n := e.Filter(s, domain.NewSearchFilter([]string{"Music"}), today, false)

	assert.Equal(t, 1, n)
	assert.True(t, s.Get("in").MatchesCurrentFilter)
	assert.False(t, s.Get("out").MatchesCurrentFilter)
}

func TestNeedsWiderWindow(t *testing.T) {
	f := domain.NewSearchFilter(nil)
	f.WeeksDisplayed = 6

	assert.True(t, service.NeedsWiderWindow(4, f))
	assert.False(t, service.NeedsWiderWindow(6, f))
	assert.False(t, service.NeedsWiderWindow(10, f))
}

func TestFilterApplied(t *testing.T) {
	all := []string{"Arts", "Music"}

	f := domain.NewSearchFilter(all)
	assert.False(t, service.FilterApplied(f, all))

	f.WeeksDisplayed = 12
	assert.False(t, service.FilterApplied(f, all), "weeks alone is not a filter")

	g := f.Clone()
	g.WeekdaysSelected[0] = false
	assert.True(t, service.FilterApplied(g, all))

	g = f.Clone()
	g.OnlyVirtual = true
	assert.True(t, service.FilterApplied(g, all))

	g = f.Clone()
	delete(g.EventTypeSet, "Arts")
	assert.True(t, service.FilterApplied(g, all))
}
