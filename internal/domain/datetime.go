package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Meridiem is the AM/PM half of a 12-hour clock time.
// AM orders before PM.
type Meridiem int

const (
	AM Meridiem = 1
	PM Meridiem = 2
)

// String returns "AM" or "PM".
func (m Meridiem) String() string {
	if m == AM {
		return "AM"
	}
	return "PM"
}

// DateTimeInfo is a calendar date plus a 12-hour clock time as published by
// the event source.
//
// Ordering (After) is lexicographic over (year, month, day, meridiem, hour,
// minute). Equality (Equal) only looks at (year, month, day): two values on
// the same calendar day are Equal even when neither is After the other
// and their times differ.
type DateTimeInfo struct {
	Year     int      `json:"year"`
	Month    int      `json:"month"`
	Day      int      `json:"day"`
	Hour     int      `json:"hour"`
	Minute   int      `json:"minute"`
	Meridiem Meridiem `json:"meridiem"`
}

// After reports whether d is strictly later than other.
func (d DateTimeInfo) After(other DateTimeInfo) bool {
	pairs := [...][2]int{
		{d.Year, other.Year},
		{d.Month, other.Month},
		{d.Day, other.Day},
		{int(d.Meridiem), int(other.Meridiem)},
		{d.Hour, other.Hour},
		{d.Minute, other.Minute},
	}
	for _, p := range pairs {
		if p[0] > p[1] {
			return true
		}
		if p[0] < p[1] {
			return false
		}
	}
	return false
}

// Equal reports whether d and other fall on the same calendar day.
// Time of day is ignored.
func (d DateTimeInfo) Equal(other DateTimeInfo) bool {
	return d.Year == other.Year && d.Month == other.Month && d.Day == other.Day
}

// DayOfYear returns the 1-based ordinal of d's date within its year.
func (d DateTimeInfo) DayOfYear() int {
	return DayOfYear(d.Month, d.Day, d.Year)
}

// Weekday returns d's day of week, 0=Sunday..6=Saturday.
func (d DateTimeInfo) Weekday() int {
	return DayOfWeek(d.Day, d.Month, d.Year)
}

// Time converts d to a wall-clock time in loc.
// 12 AM is midnight and 12 PM is noon.
func (d DateTimeInfo) Time(loc *time.Location) time.Time {
	hour := d.Hour % 12
	if d.Meridiem == PM {
		hour += 12
	}
	return time.Date(d.Year, time.Month(d.Month), d.Day, hour, d.Minute, 0, 0, loc)
}

// String formats d as "MM/DD/YYYY H:MM AM".
func (d DateTimeInfo) String() string {
	return fmt.Sprintf("%02d/%02d/%04d %d:%02d %s", d.Month, d.Day, d.Year, d.Hour, d.Minute, d.Meridiem)
}

var daysInMonths = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// IsLeapYear uses the year%4 rule only; century years such as 2100 count
// as leap years.
func IsLeapYear(year int) bool {
	return year%4 == 0
}

// DaysInMonth returns the number of days in month (1..12) of year,
// or 0 for an out-of-range month.
func DaysInMonth(month, year int) int {
	if month < 1 || month > 12 {
		return 0
	}
	if month == 2 && IsLeapYear(year) {
		return 29
	}
	return daysInMonths[month-1]
}

// DayOfYear returns the 1-based ordinal day of (month, day) within year.
func DayOfYear(month, day, year int) int {
	total := 0
	for m := 1; m < month && m <= 12; m++ {
		total += DaysInMonth(m, year)
	}
	return total + day
}

// sakamoto holds the month offsets of Tomohiko Sakamoto's algorithm.
var sakamoto = [12]int{0, 3, 2, 5, 0, 3, 5, 1, 4, 6, 2, 4}

// DayOfWeek returns the weekday of a Gregorian date, 0=Sunday..6=Saturday.
func DayOfWeek(day, month, year int) int {
	y := year
	if month < 3 {
		y--
	}
	w := (y + y/4 - y/100 + y/400 + sakamoto[month-1] + day) % 7
	return (w + 7) % 7
}

// ParseDateTime parses a "MM/DD/YYYY" date and an "H:MM AM|PM" time.
// Every failure wraps ErrConversion.
func ParseDateTime(date, clock string) (DateTimeInfo, error) {
	dateParts := strings.Split(date, "/")
	if len(dateParts) != 3 {
		return DateTimeInfo{}, fmt.Errorf("%w: date %q is not MM/DD/YYYY", ErrConversion, date)
	}
	month, err := atoi(dateParts[0])
	if err != nil {
		return DateTimeInfo{}, err
	}
	day, err := atoi(dateParts[1])
	if err != nil {
		return DateTimeInfo{}, err
	}
	year, err := atoi(dateParts[2])
	if err != nil {
		return DateTimeInfo{}, err
	}
	if year < 1 || month < 1 || month > 12 || day < 1 || day > DaysInMonth(month, year) {
		return DateTimeInfo{}, fmt.Errorf("%w: date %q out of range", ErrConversion, date)
	}

	clockParts := strings.Split(clock, " ")
	if len(clockParts) != 2 {
		return DateTimeInfo{}, fmt.Errorf("%w: time %q is not H:MM AM|PM", ErrConversion, clock)
	}
	hm := strings.Split(clockParts[0], ":")
	if len(hm) != 2 {
		return DateTimeInfo{}, fmt.Errorf("%w: time %q is not H:MM AM|PM", ErrConversion, clock)
	}
	hour, err := atoi(hm[0])
	if err != nil {
		return DateTimeInfo{}, err
	}
	minute, err := atoi(hm[1])
	if err != nil {
		return DateTimeInfo{}, err
	}
	if hour < 0 || hour > 12 || minute < 0 || minute > 59 {
		return DateTimeInfo{}, fmt.Errorf("%w: time %q out of range", ErrConversion, clock)
	}

	var meridiem Meridiem
	switch clockParts[1] {
	case "AM":
		meridiem = AM
	case "PM":
		meridiem = PM
	default:
		return DateTimeInfo{}, fmt.Errorf("%w: meridiem %q", ErrConversion, clockParts[1])
	}

	return DateTimeInfo{
		Year:     year,
		Month:    month,
		Day:      day,
		Hour:     hour,
		Minute:   minute,
		Meridiem: meridiem,
	}, nil
}

// atoi accepts unsigned decimal digits only; strconv.Atoi alone would let
// "+3" and "-2024" through.
func atoi(s string) (int, error) {
	if s == "" || strings.TrimLeft(s, "0123456789") != "" {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrConversion, s)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrConversion, s)
	}
	return n, nil
}
