package domain

import "time"

// LoadLocation resolves an IANA timezone name, falling back to UTC when the
// name is empty or unknown.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CalendarDay returns the calendar date of t as seen in loc, encoded as
// midnight UTC so that dates from different zones compare by day number.
func CalendarDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from a to b, both already
// produced by CalendarDay.
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// StartOfWeek returns the Monday of t's ISO week as a CalendarDay in UTC.
func StartOfWeek(t time.Time) time.Time {
	day := CalendarDay(t, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
