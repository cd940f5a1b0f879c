package recurrence

import (
	"fmt"
	"time"
)

// AddUnits advances date by n steps of the given frequency. Month and year
// steps clamp the day-of-month to the last valid day of the target month
// (Jan 31 + 1 month lands on Feb 28/29). Dates are treated as naive local
// dates; no timezone conversion happens here.
func AddUnits(date time.Time, freq Frequency, n int) time.Time {
	switch freq {
	case FreqDay:
		return date.AddDate(0, 0, n)
	case FreqWeek:
		return date.AddDate(0, 0, 7*n)
	case FreqMonth:
		return addMonths(date, n)
	case FreqYear:
		return addMonths(date, 12*n)
	}
	return date
}

// addMonths shifts via the first of the month so time.AddDate cannot spill
// over into the following month, then restores the clamped day.
func addMonths(date time.Time, n int) time.Time {
	year, month, day := date.Date()
	hour, minute, sec := date.Clock()

	first := time.Date(year, month, 1, hour, minute, sec, date.Nanosecond(), date.Location())
	shifted := first.AddDate(0, n, 0)

	if last := daysInMonth(shifted.Month(), shifted.Year()); day > last {
		day = last
	}
	return time.Date(shifted.Year(), shifted.Month(), day, hour, minute, sec, date.Nanosecond(), date.Location())
}

func daysInMonth(month time.Month, year int) int {
	// Move to next month, roll back a day.
	firstOfMonth := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	firstOfNextMonth := firstOfMonth.AddDate(0, 1, 0)
	lastOfMonth := firstOfNextMonth.AddDate(0, 0, -1)
	return lastOfMonth.Day()
}

// IsWeekend reports whether the date falls on Saturday or Sunday.
func IsWeekend(date time.Time) bool {
	wd := date.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// NextBusinessDay advances forward, never backward, to the next Mon-Fri date.
// A weekday is returned unchanged.
func NextBusinessDay(date time.Time) time.Time {
	for IsWeekend(date) {
		date = date.AddDate(0, 0, 1)
	}
	return date
}

// SameCalendarDay reports whether a and b fall on the same calendar date,
// ignoring the time of day.
func SameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// AtTimeOfDay returns the instant on date's calendar day at the given
// HH:MM clock time, in date's location.
func AtTimeOfDay(date time.Time, clock string) (time.Time, error) {
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time of day %q: %w", clock, err)
	}
	year, month, day := date.Date()
	return time.Date(year, month, day, parsed.Hour(), parsed.Minute(), 0, 0, date.Location()), nil
}
