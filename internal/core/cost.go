// Bucket cost models. Each bucket type has its own calculator behind a
// common interface, registered by type the same way recurrence checks are
// usually done: one strategy per kind, O(1) dispatch.

package core

import (
	"fmt"
)

// CostInputs carries everything a cost calculation may need besides the
// bucket itself. Transactions must already be reimbursement-adjusted and
// filtered to the bucket in question.
type CostInputs struct {
	Payday       int
	Plan         Plan
	Transactions []Transaction
}

// CostCalculator computes the monetary cost of one bucket for one month.
type CostCalculator interface {
	Cost(b Bucket, month MonthKey, in CostInputs) (Money, error)
}

// FixedCalculator costs fixed-bill buckets: the effective amount for the
// month, no interval math.
type FixedCalculator struct{}

func (FixedCalculator) Cost(b Bucket, month MonthKey, in CostInputs) (Money, error) {
	if !month.Valid() {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidMonthKey, month)
	}
	data, _ := in.Plan.BucketValue(b, month)
	return data.Amount, nil
}

// DailyCalculator costs daily-allowance buckets: the number of active
// weekdays inside the resolved pay period times the daily amount. The
// enumeration runs over the pay interval, not the calendar month.
type DailyCalculator struct{}

func (DailyCalculator) Cost(b Bucket, month MonthKey, in CostInputs) (Money, error) {
	iv, err := ResolveInterval(month, in.Payday)
	if err != nil {
		return Money{}, err
	}
	data, _ := in.Plan.BucketValue(b, month)
	days := iv.WeekdayCount(data.ActiveDays)
	return Money{Cents: data.DailyAmount.Cents * int64(days)}, nil
}

// GoalCalculator costs goal/project buckets: an amortized saving
// contribution (income-funded goals only) plus the spending the goal still
// has available, or its real spend once the target is gone.
type GoalCalculator struct{}

func (GoalCalculator) Cost(b Bucket, month MonthKey, in CostInputs) (Money, error) {
	iv, err := ResolveInterval(month, in.Payday)
	if err != nil {
		return Money{}, err
	}

	var total Money
	if b.PaymentSource == SourceIncome {
		contribution, err := goalContribution(b, month)
		if err != nil {
			return Money{}, err
		}
		total = total.Add(contribution)
	}
	total = total.Add(goalConsumption(b, month, iv, in.Transactions))
	return total, nil
}

// goalContribution spreads the target amount evenly across the months of
// the saving window. Zero outside the window or when no window is set.
func goalContribution(b Bucket, month MonthKey) (Money, error) {
	if b.TargetAmount.Cents <= 0 {
		return Money{}, fmt.Errorf("%w: bucket %s", ErrInvalidGoalTarget, b.ID)
	}
	if b.StartSavingDate == nil || b.TargetDate == nil {
		return Money{}, nil
	}
	start := MonthKeyOf(*b.StartSavingDate)
	end := MonthKeyOf(*b.TargetDate)
	if month < start || month > end {
		return Money{}, nil
	}
	months := start.MonthsUntil(end)
	if months == 0 {
		return Money{}, nil
	}
	return Money{Cents: b.TargetAmount.Cents / int64(months)}, nil
}

// goalConsumption computes the spending component for the month. remaining
// is the target minus everything spent before the month's interval began.
// An active goal reports what it can still consume; an inactive one still
// reports real spend from the interval, so a fully-spent goal does not
// vanish from the month it was spent in. Archived goals never report
// phantom unspent budget.
func goalConsumption(b Bucket, month MonthKey, iv Interval, txns []Transaction) Money {
	var spentBefore, spentWithin int64
	for _, t := range txns {
		if t.BucketID != b.ID {
			continue
		}
		switch {
		case t.Date.Before(iv.Start):
			spentBefore += t.Amount.Abs().Cents
		case iv.Contains(t.Date):
			spentWithin += t.Amount.Abs().Cents
		}
	}

	remaining := b.TargetAmount.Cents - spentBefore
	if remaining < 0 {
		remaining = 0
	}

	if b.ArchivedAsOf(month) {
		if spentWithin < remaining {
			return Money{Cents: spentWithin}
		}
		return Money{Cents: remaining}
	}

	if remaining > 0 && goalActiveIn(b, month) {
		return Money{Cents: remaining}
	}
	if spentWithin > 0 {
		return Money{Cents: spentWithin}
	}
	return Money{}
}

// goalActiveIn reports whether the month falls inside the goal's saving
// window, or inside the event window when one is set.
func goalActiveIn(b Bucket, month MonthKey) bool {
	if b.EventStartDate != nil && b.EventEndDate != nil {
		return month >= MonthKeyOf(*b.EventStartDate) && month <= MonthKeyOf(*b.EventEndDate)
	}
	if b.StartSavingDate != nil && b.TargetDate != nil {
		return month >= MonthKeyOf(*b.StartSavingDate) && month <= MonthKeyOf(*b.TargetDate)
	}
	return false
}

// costStrategies maps bucket types to their calculators.
var costStrategies = map[BucketType]CostCalculator{
	FixedBucket: FixedCalculator{},
	DailyBucket: DailyCalculator{},
	GoalBucket:  GoalCalculator{},
}

// BucketCost computes one monetary figure for a (bucket, month) pair,
// dispatching on the bucket type.
func BucketCost(b Bucket, month MonthKey, in CostInputs) (Money, error) {
	calc, ok := costStrategies[b.Type]
	if !ok {
		return Money{}, fmt.Errorf("%w: %s", ErrInvalidBucketType, b.Type)
	}
	return calc.Cost(b, month, in)
}
