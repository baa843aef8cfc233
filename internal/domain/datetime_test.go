package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stetsonscene/scene/backend/internal/domain"
)

func TestDayOfWeek(t *testing.T) {
	tests := []struct {
		name             string
		day, month, year int
		want             int
	}{
		{"new year 2024 is monday", 1, 1, 2024, 1},
		{"christmas 2023 is monday", 25, 12, 2023, 1},
		{"leap day 2024 is thursday", 29, 2, 2024, 4},
		{"2000-03-01 is wednesday", 1, 3, 2000, 3},
		{"2026-10-14 is wednesday", 14, 10, 2026, 3},
		{"2023-12-31 is sunday", 31, 12, 2023, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, domain.DayOfWeek(tc.day, tc.month, tc.year))
		})
	}
}

func TestDayOfWeek_matchesTimePackage(t *testing.T) {
	start := time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)
	for d := start; d.Year() < 2031; d = d.AddDate(0, 0, 1) {
		got := domain.DayOfWeek(d.Day(), int(d.Month()), d.Year())
		require.Equal(t, int(d.Weekday()), got, d.Format("2006-01-02"))
	}
}

func TestDayOfWeek_neverNegative(t *testing.T) {
	for _, year := range []int{-2024, -1, 0} {
		for month := 1; month <= 12; month++ {
			got := domain.DayOfWeek(10, month, year)
			require.GreaterOrEqual(t, got, 0, "%d/10/%d", month, year)
			require.Less(t, got, 7, "%d/10/%d", month, year)
		}
	}
}

func TestDayOfYear(t *testing.T) {
	assert.Equal(t, 1, domain.DayOfYear(1, 1, 2023))
	assert.Equal(t, 365, domain.DayOfYear(12, 31, 2023))
	assert.Equal(t, 366, domain.DayOfYear(12, 31, 2024))
	assert.Equal(t, 60, domain.DayOfYear(3, 1, 2023))
	assert.Equal(t, 61, domain.DayOfYear(3, 1, 2024))
}

// TestDayOfYear_centuryYearCountsAsLeap pins the year%4 leap rule: 2100 is
// not a Gregorian leap year but is treated as one.
func TestDayOfYear_centuryYearCountsAsLeap(t *testing.T) {
	assert.True(t, domain.IsLeapYear(2100))
	assert.Equal(t, 61, domain.DayOfYear(3, 1, 2100))
	assert.Equal(t, 29, domain.DaysInMonth(2, 2100))
}

func TestParseDateTime_OK(t *testing.T) {
	got, err := domain.ParseDateTime("03/14/2025", "7:05 PM")

	require.NoError(t, err)
	assert.Equal(t, domain.DateTimeInfo{Year: 2025, Month: 3, Day: 14, Hour: 7, Minute: 5, Meridiem: domain.PM}, got)
}

func TestParseDateTime_SingleDigitMonth(t *testing.T) {
	got, err := domain.ParseDateTime("3/4/2025", "11:59 AM")

	require.NoError(t, err)
	assert.Equal(t, 3, got.Month)
	assert.Equal(t, 4, got.Day)
	assert.Equal(t, domain.AM, got.Meridiem)
}

func TestParseDateTime_Invalid(t *testing.T) {
	tests := []struct {
		name, date, clock string
	}{
		{"month and day out of range", "13/45/2020", "1:00 PM"},
		{"february 30", "02/30/2023", "1:00 PM"},
		{"non-numeric day", "03/xx/2025", "1:00 PM"},
		{"missing year", "03/14", "1:00 PM"},
		{"default placeholder date", "Default date", "1:00 PM"},
		{"bad meridiem", "03/14/2025", "1:00 XM"},
		{"lowercase meridiem", "03/14/2025", "1:00 pm"},
		{"missing meridiem", "03/14/2025", "1:00"},
		{"non-numeric minute", "03/14/2025", "1:ab PM"},
		{"minute out of range", "03/14/2025", "1:75 PM"},
		{"hour out of range", "03/14/2025", "13:00 PM"},
		{"negative year", "03/10/-2024", "1:00 PM"},
		{"year zero", "03/10/0000", "1:00 PM"},
		{"signed month", "+3/10/2024", "1:00 PM"},
		{"padded day", "03/ 10/2024", "1:00 PM"},
		{"signed hour", "03/10/2024", "+1:00 PM"},
		{"negative minute", "03/10/2024", "1:-5 PM"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := domain.ParseDateTime(tc.date, tc.clock)
			require.ErrorIs(t, err, domain.ErrConversion)
		})
	}
}

func TestDateTimeInfo_After(t *testing.T) {
	base := domain.DateTimeInfo{Year: 2025, Month: 3, Day: 14, Hour: 9, Minute: 30, Meridiem: domain.AM}

	later := []domain.DateTimeInfo{
		{Year: 2026, Month: 1, Day: 1, Hour: 1, Minute: 0, Meridiem: domain.AM},
		{Year: 2025, Month: 4, Day: 1, Hour: 1, Minute: 0, Meridiem: domain.AM},
		{Year: 2025, Month: 3, Day: 15, Hour: 1, Minute: 0, Meridiem: domain.AM},
		{Year: 2025, Month: 3, Day: 14, Hour: 1, Minute: 0, Meridiem: domain.PM},
		{Year: 2025, Month: 3, Day: 14, Hour: 10, Minute: 0, Meridiem: domain.AM},
		{Year: 2025, Month: 3, Day: 14, Hour: 9, Minute: 31, Meridiem: domain.AM},
	}
	for _, l := range later {
		assert.True(t, l.After(base), "%s should be after %s", l, base)
		assert.False(t, base.After(l), "%s should not be after %s", base, l)
	}
	assert.False(t, base.After(base))
}

// TestDateTimeInfo_EqualIgnoresTimeOfDay pins the equality/ordering asymmetry:
// same-day values are Equal while one is still After the other.
func TestDateTimeInfo_EqualIgnoresTimeOfDay(t *testing.T) {
	morning := domain.DateTimeInfo{Year: 2025, Month: 3, Day: 14, Hour: 9, Minute: 0, Meridiem: domain.AM}
	evening := domain.DateTimeInfo{Year: 2025, Month: 3, Day: 14, Hour: 7, Minute: 45, Meridiem: domain.PM}
	nineFifteen := domain.DateTimeInfo{Year: 2025, Month: 3, Day: 14, Hour: 9, Minute: 15, Meridiem: domain.AM}

	assert.True(t, morning.Equal(evening))
	assert.True(t, evening.After(morning))

	assert.True(t, morning.Equal(nineFifteen))
	assert.True(t, nineFifteen.After(morning))
	assert.False(t, morning.After(nineFifteen))

	nextDay := morning
	nextDay.Day++
	assert.False(t, morning.Equal(nextDay))
}

func TestDateTimeInfo_Time(t *testing.T) {
	loc := time.UTC
	noon := domain.DateTimeInfo{Year: 2025, Month: 3, Day: 14, Hour: 12, Minute: 0, Meridiem: domain.PM}
	midnight := domain.DateTimeInfo{Year: 2025, Month: 3, Day: 14, Hour: 12, Minute: 0, Meridiem: domain.AM}
	evening := domain.DateTimeInfo{Year: 2025, Month: 3, Day: 14, Hour: 7, Minute: 30, Meridiem: domain.PM}

	assert.Equal(t, time.Date(2025, 3, 14, 12, 0, 0, 0, loc), noon.Time(loc))
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, loc), midnight.Time(loc))
	assert.Equal(t, time.Date(2025, 3, 14, 19, 30, 0, 0, loc), evening.Time(loc))
}
