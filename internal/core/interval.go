package core

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidPayday = errors.New("invalid payday")

// Interval is the payday-anchored pay period backing a nominal month.
// Both bounds are midnight-UTC dates and the range is inclusive.
type Interval struct {
	Start time.Time
	End   time.Time
}

// ResolveInterval maps a month key and a payday (the day of the month
// salary arrives, 1-31) to the concrete pay period for that month: it
// starts on the payday of the preceding calendar month and ends the day
// before the next payday. Paydays past the end of a short month clamp to
// that month's last day, so payday 31 in February starts on Feb 28 or 29.
func ResolveInterval(month MonthKey, payday int) (Interval, error) {
	if !month.Valid() {
		return Interval{}, fmt.Errorf("%w: %q", ErrInvalidMonthKey, month)
	}
	if payday < 1 || payday > 31 {
		return Interval{}, fmt.Errorf("%w: %d (must be 1-31)", ErrInvalidPayday, payday)
	}

	start := paydayOf(month.Prev(), payday)
	next := paydayOf(month, payday)
	return Interval{Start: start, End: next.AddDate(0, 0, -1)}, nil
}

// paydayOf returns the payday-th day of the given month, clamped to the
// month's last day.
func paydayOf(month MonthKey, payday int) time.Time {
	first := month.Time()
	lastDay := first.AddDate(0, 1, -1).Day()
	day := payday
	if day > lastDay {
		day = lastDay
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

// Days returns the number of calendar days in the interval.
func (iv Interval) Days() int {
	return int(iv.End.Sub(iv.Start).Hours()/24) + 1
}

// Contains reports whether the date of t falls within the interval.
func (iv Interval) Contains(t time.Time) bool {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return !d.Before(iv.Start) && !d.After(iv.End)
}

// WeekdayCount returns how many days of the interval fall on a weekday
// in the given set.
func (iv Interval) WeekdayCount(days WeekdaySet) int {
	if days.Empty() {
		return 0
	}
	count := 0
	for d := iv.Start; !d.After(iv.End); d = d.AddDate(0, 0, 1) {
		if days.Has(d.Weekday()) {
			count++
		}
	}
	return count
}

// ISOStart returns the start date formatted as an ISO date string.
func (iv Interval) ISOStart() string {
	return iv.Start.Format("2006-01-02")
}

// ISOEnd returns the end date formatted as an ISO date string.
func (iv Interval) ISOEnd() string {
	return iv.End.Format("2006-01-02")
}

// Label returns a short human-readable range label, e.g. "25 Dec - 24 Jan".
func (iv Interval) Label() string {
	return fmt.Sprintf("%d %s - %d %s",
		iv.Start.Day(), iv.Start.Format("Jan"),
		iv.End.Day(), iv.End.Format("Jan"))
}

// WeekdaySet is a set of weekdays stored as a bitmask indexed by
// time.Weekday (Sunday = bit 0).
type WeekdaySet uint8

// Weekdays builds a set from the given days.
func Weekdays(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s = s.Add(d)
	}
	return s
}

// WorkWeek is Monday through Friday.
var WorkWeek = Weekdays(time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday)

// Add returns the set with d included.
func (s WeekdaySet) Add(d time.Weekday) WeekdaySet {
	return s | 1<<uint(d)
}

// Has reports whether d is in the set.
func (s WeekdaySet) Has(d time.Weekday) bool {
	return s&(1<<uint(d)) != 0
}

// Empty reports whether the set contains no days.
func (s WeekdaySet) Empty() bool {
	return s == 0
}

// Days lists the members of the set in Sunday-first order.
func (s WeekdaySet) Days() []time.Weekday {
	var out []time.Weekday
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Has(d) {
			out = append(out, d)
		}
	}
	return out
}
