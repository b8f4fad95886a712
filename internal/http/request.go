package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"busta/internal/core"
)

// decodeJSON parses the request body into v. Unknown fields are rejected so
// a typo'd payload fails loudly instead of silently dropping a value.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// monthFromPath parses the {month} path segment.
func monthFromPath(r *http.Request) (core.MonthKey, error) {
	return core.ParseMonthKey(r.PathValue("month"))
}

// monthFromQuery parses the month query parameter, defaulting to the
// current calendar month when absent.
func monthFromQuery(r *http.Request) (core.MonthKey, error) {
	v := strings.TrimSpace(r.URL.Query().Get("month"))
	if v == "" {
		return core.MonthKeyOf(time.Now()), nil
	}
	return core.ParseMonthKey(v)
}

// paydayFromQuery parses the payday query parameter. Zero means "use the
// configured default"; the service fills it in.
func paydayFromQuery(r *http.Request) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get("payday"))
	if v == "" {
		return 0, nil
	}
	payday, err := strconv.Atoi(v)
	if err != nil || payday < 1 || payday > 31 {
		return 0, fmt.Errorf("%w: %q (must be 1-31)", core.ErrInvalidPayday, v)
	}
	return payday, nil
}

// parseAmount converts a decimal euro string to Money. Empty means zero.
func parseAmount(s string) (core.Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Money{}, nil
	}
	cents, err := core.ParseDecimalToCents(s)
	if err != nil {
		return core.Money{}, fmt.Errorf("%w: %q", core.ErrInvalidAmount, s)
	}
	return core.Money{Cents: cents}, nil
}

// parseSignedAmount is parseAmount for values that may carry a sign, such
// as reimbursement-adjusted transaction amounts.
func parseSignedAmount(s string) (core.Money, error) {
	s = strings.TrimSpace(s)
	negative := strings.HasPrefix(s, "-")
	if negative {
		s = s[1:]
	}
	m, err := parseAmount(s)
	if err != nil {
		return core.Money{}, err
	}
	if negative {
		m.Cents = -m.Cents
	}
	return m, nil
}

// parseDate parses an optional ISO date string. Empty returns nil.
func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return &t, nil
}

// bucketDataRequest is the wire form of a bucket's per-month data. Amounts
// travel as decimal euro strings; active days as time.Weekday numbers
// (0 = Sunday).
type bucketDataRequest struct {
	Amount      string `json:"amount,omitempty"`
	DailyAmount string `json:"daily_amount,omitempty"`
	ActiveDays  []int  `json:"active_days,omitempty"`
	Deleted     bool   `json:"deleted,omitempty"`
}

func (req bucketDataRequest) toBucketData() (core.BucketData, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return core.BucketData{}, err
	}
	daily, err := parseAmount(req.DailyAmount)
	if err != nil {
		return core.BucketData{}, err
	}
	days, err := parseWeekdays(req.ActiveDays)
	if err != nil {
		return core.BucketData{}, err
	}
	return core.BucketData{
		Amount:            amount,
		DailyAmount:       daily,
		ActiveDays:        days,
		ExplicitlyDeleted: req.Deleted,
	}, nil
}

func parseWeekdays(days []int) (core.WeekdaySet, error) {
	var set core.WeekdaySet
	for _, d := range days {
		if d < 0 || d > 6 {
			return 0, fmt.Errorf("invalid weekday %d: must be 0 (Sunday) to 6 (Saturday)", d)
		}
		set = set.Add(time.Weekday(d))
	}
	return set, nil
}
