// Package core implements the budget resolution engine: payday-anchored
// month intervals, backward inheritance of sparse monthly data, template
// and override layering, bucket cost models, and deletion scopes.
//
// Everything in this package is pure and synchronous. Callers hand in
// in-memory collections and get values (or updated copies) back; no I/O
// happens here.
package core

import (
	"errors"
	"fmt"
	"time"
)

// MonthKey identifies a nominal calendar month as a "YYYY-MM" string.
// String ordering equals chronological ordering, which every resolver
// in this package relies on.
type MonthKey string

var ErrInvalidMonthKey = errors.New("invalid month key")

// ParseMonthKey validates s as a "YYYY-MM" string and returns it as a MonthKey.
func ParseMonthKey(s string) (MonthKey, error) {
	k := MonthKey(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	return k, nil
}

// MonthKeyOf returns the MonthKey of the calendar month containing t.
func MonthKeyOf(t time.Time) MonthKey {
	return MonthKey(t.Format("2006-01"))
}

// Valid reports whether the key is a well-formed "YYYY-MM" string with a
// month between 01 and 12.
func (k MonthKey) Valid() bool {
	if len(k) != 7 || k[4] != '-' {
		return false
	}
	for i, r := range k {
		if i == 4 {
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	month := int(k[5]-'0')*10 + int(k[6]-'0')
	return month >= 1 && month <= 12
}

// Time returns midnight UTC on the first day of the month.
// The zero time is returned for invalid keys.
func (k MonthKey) Time() time.Time {
	if !k.Valid() {
		return time.Time{}
	}
	t, _ := time.Parse("2006-01", string(k))
	return t
}

// Year returns the calendar year of the key.
func (k MonthKey) Year() int {
	return k.Time().Year()
}

// Month returns the calendar month of the key (1-12).
func (k MonthKey) Month() int {
	return int(k.Time().Month())
}

// Next returns the key of the following calendar month.
func (k MonthKey) Next() MonthKey {
	return MonthKeyOf(k.Time().AddDate(0, 1, 0))
}

// Prev returns the key of the preceding calendar month.
func (k MonthKey) Prev() MonthKey {
	return MonthKeyOf(k.Time().AddDate(0, -1, 0))
}

// Before reports whether k is chronologically before other.
func (k MonthKey) Before(other MonthKey) bool {
	return k < other
}

// Compare orders two keys chronologically, returning -1, 0 or +1.
func (k MonthKey) Compare(other MonthKey) int {
	switch {
	case k < other:
		return -1
	case k > other:
		return 1
	default:
		return 0
	}
}

// MonthsUntil returns the number of whole months from k to other, inclusive
// of both endpoints. Returns 0 when other precedes k.
func (k MonthKey) MonthsUntil(other MonthKey) int {
	if other < k {
		return 0
	}
	a, b := k.Time(), other.Time()
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month()) + 1
}
