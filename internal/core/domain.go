package core

import (
	"errors"
	"strings"
	"time"
)

// BucketType selects the cost model of a bucket.
type BucketType string

const (
	FixedBucket BucketType = "fixed"
	DailyBucket BucketType = "daily"
	GoalBucket  BucketType = "goal"
)

// PaymentSource says where a bucket's money comes from.
type PaymentSource string

const (
	SourceIncome  PaymentSource = "income"
	SourceSavings PaymentSource = "savings"
)

// ForecastType classifies a budget group for forecasting views.
type ForecastType string

const (
	ForecastFixed    ForecastType = "fixed"
	ForecastVariable ForecastType = "variable"
	ForecastSavings  ForecastType = "savings"
)

var (
	ErrInvalidBucketType = errors.New("invalid bucket type")
	ErrEmptyName         = errors.New("empty name")
	ErrInvalidGoalTarget = errors.New("goal target must be positive for income-funded goals")
)

type (
	// BucketData is the per-month materialized value of a bucket. An entry
	// with ExplicitlyDeleted set means "stop here, value is zero for this
	// month" and is never skipped during backward resolution.
	BucketData struct {
		Amount            Money
		DailyAmount       Money
		ActiveDays        WeekdaySet
		ExplicitlyDeleted bool
	}

	// GroupData is the per-month materialized spending limit of a group.
	GroupData struct {
		Limit             Money
		ExplicitlyDeleted bool
	}

	// Bucket is a recurring or one-off financial commitment: a fixed bill,
	// a daily allowance, or a savings/project goal. MonthlyData is sparse;
	// a missing month inherits backward from the nearest earlier entry.
	Bucket struct {
		ID            string
		AccountID     string
		Name          string
		Type          BucketType
		IsSavings     bool
		PaymentSource PaymentSource
		BudgetGroupID string

		MonthlyData map[MonthKey]BucketData

		// Goal fields.
		TargetAmount    Money
		TargetDate      *time.Time
		StartSavingDate *time.Time
		EventStartDate  *time.Time
		EventEndDate    *time.Time

		// ArchivedDate soft-retires the bucket from the given date on.
		ArchivedDate *time.Time
	}

	// BudgetGroup is a spending envelope aggregating sub-categories and/or
	// linked buckets.
	BudgetGroup struct {
		ID              string
		Name            string
		ForecastType    ForecastType
		IsCatchAll      bool
		LinkedBucketIDs []string

		MonthlyData map[MonthKey]GroupData
	}

	// SubCategory has no time series of its own; its budget comes only from
	// the template/month-config layer.
	SubCategory struct {
		ID             string
		Name           string
		MainCategoryID string
		BudgetGroupID  string
		IsSavings      bool
	}

	// Transaction is the minimal slice of an imported transaction the cost
	// calculator needs. Amount is already reimbursement-adjusted by the
	// import pipeline.
	Transaction struct {
		ID       string
		BucketID string
		Date     time.Time
		Amount   Money
	}
)

// Deleted implements TemporalEntry.
func (d BucketData) Deleted() bool { return d.ExplicitlyDeleted }

// Deleted implements TemporalEntry.
func (d GroupData) Deleted() bool { return d.ExplicitlyDeleted }

// Zeroed returns a copy with both amounts cleared.
func (d BucketData) Zeroed() BucketData {
	d.Amount = Money{}
	d.DailyAmount = Money{}
	return d
}

// Validate checks the user-editable fields of a bucket.
func (b Bucket) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	switch b.Type {
	case FixedBucket, DailyBucket, GoalBucket:
	default:
		return ErrInvalidBucketType
	}
	if b.Type == GoalBucket && b.PaymentSource == SourceIncome && b.TargetAmount.Cents <= 0 {
		return ErrInvalidGoalTarget
	}
	return nil
}

// ArchivedAsOf reports whether the bucket is archived at or before the
// start of the given month.
func (b Bucket) ArchivedAsOf(month MonthKey) bool {
	if b.ArchivedDate == nil {
		return false
	}
	return MonthKeyOf(*b.ArchivedDate) <= month
}

// Clone returns a deep copy of the bucket, including its month map.
func (b Bucket) Clone() Bucket {
	out := b
	out.MonthlyData = make(map[MonthKey]BucketData, len(b.MonthlyData))
	for k, v := range b.MonthlyData {
		out.MonthlyData[k] = v
	}
	out.copyDates()
	return out
}

// copyDates re-points the optional date fields at fresh copies so a clone
// cannot alias the original's pointers.
func (b *Bucket) copyDates() {
	copyDate := func(t *time.Time) *time.Time {
		if t == nil {
			return nil
		}
		d := *t
		return &d
	}
	b.TargetDate = copyDate(b.TargetDate)
	b.StartSavingDate = copyDate(b.StartSavingDate)
	b.EventStartDate = copyDate(b.EventStartDate)
	b.EventEndDate = copyDate(b.EventEndDate)
	b.ArchivedDate = copyDate(b.ArchivedDate)
}
