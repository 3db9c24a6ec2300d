package schedule

import (
	"fmt"
	"time"
)

// Date is a calendar date with no time-of-day component. All recurrence
// arithmetic operates on Date values so that midnight boundaries and
// time zone offsets cannot leak into firing decisions. The engine runs in
// a single configured zone; Date itself is zone-agnostic.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate builds a Date, normalizing out-of-range values the same way
// time.Date does (e.g. February 31 becomes March 2 or 3).
func NewDate(year int, month time.Month, day int) Date {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// DateOf extracts the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// MustParseDate parses a YYYY-MM-DD string and panics on failure.
// Intended for tests and fixtures only.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Time returns midnight of d in the given location.
func (d Date) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) String() string {
	return d.Time(time.UTC).Format("2006-01-02")
}

func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) Weekday() time.Weekday {
	return d.Time(time.UTC).Weekday()
}

func (d Date) Equal(other Date) bool {
	return d == other
}

func (d Date) Before(other Date) bool {
	return d.Time(time.UTC).Before(other.Time(time.UTC))
}

func (d Date) After(other Date) bool {
	return other.Before(d)
}

// AddDays returns d shifted by n calendar days (n may be negative).
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time(time.UTC).AddDate(0, 0, n))
}

// AddMonths returns d shifted by n calendar months. Day-of-month overflow
// normalizes forward per time.AddDate (Jan 31 + 1 month = Mar 2/3).
func (d Date) AddMonths(n int) Date {
	return DateOf(d.Time(time.UTC).AddDate(0, n, 0))
}

// DaysBetween returns the number of whole days from a to b
// (negative when b precedes a).
func DaysBetween(a, b Date) int {
	return int(b.Time(time.UTC).Sub(a.Time(time.UTC)) / (24 * time.Hour))
}

// WeeksBetween returns the number of whole weeks from a to b.
func WeeksBetween(a, b Date) int {
	return DaysBetween(a, b) / 7
}

// MonthsBetween returns the calendar-month difference from a to b,
// ignoring the day-of-month of either endpoint.
func MonthsBetween(a, b Date) int {
	return (b.Year-a.Year)*12 + int(b.Month) - int(a.Month)
}
