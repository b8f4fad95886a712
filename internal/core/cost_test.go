package core

import (
	"errors"
	"testing"
	"time"
)

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestFixedBucketCost(t *testing.T) {
	b := Bucket{
		ID:   "rent",
		Type: FixedBucket,
		MonthlyData: map[MonthKey]BucketData{
			"2024-01": {Amount: Money{Cents: 95000}},
		},
	}

	tests := []struct {
		name  string
		month MonthKey
		want  int64
	}{
		{name: "materialized month", month: "2024-01", want: 95000},
		{name: "inherited month", month: "2024-09", want: 95000},
		{name: "before first entry", month: "2023-06", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BucketCost(b, tt.month, CostInputs{Payday: 1})
			if err != nil {
				t.Fatalf("BucketCost error = %v", err)
			}
			if got.Cents != tt.want {
				t.Errorf("cost = %d, want %d", got.Cents, tt.want)
			}
		})
	}
}

func TestDailyBucketCost(t *testing.T) {
	// dailyAmount 135 cents on workdays, payday 25: the 2024-02 interval
	// runs Jan 25 through Feb 24 and contains 22 workdays.
	b := Bucket{
		ID:   "lunch",
		Type: DailyBucket,
		MonthlyData: map[MonthKey]BucketData{
			"2023-11": {
				DailyAmount: Money{Cents: 135},
				ActiveDays:  WorkWeek,
			},
		},
	}

	got, err := BucketCost(b, "2024-02", CostInputs{Payday: 25})
	if err != nil {
		t.Fatalf("BucketCost error = %v", err)
	}
	if want := int64(135 * 22); got.Cents != want {
		t.Errorf("cost = %d, want %d", got.Cents, want)
	}
}

func TestDailyBucketCostNoActiveDays(t *testing.T) {
	b := Bucket{
		ID:   "idle",
		Type: DailyBucket,
		MonthlyData: map[MonthKey]BucketData{
			"2024-01": {DailyAmount: Money{Cents: 500}},
		},
	}
	got, err := BucketCost(b, "2024-02", CostInputs{Payday: 1})
	if err != nil {
		t.Fatal(err)
	}
	if got.Cents != 0 {
		t.Errorf("cost with empty active-day set = %d, want 0", got.Cents)
	}
}

func TestGoalBucketContribution(t *testing.T) {
	// 1200.00 over a 12-month window: 100.00 per month while inside it.
	b := Bucket{
		ID:              "holiday",
		Type:            GoalBucket,
		PaymentSource:   SourceIncome,
		TargetAmount:    Money{Cents: 120000},
		StartSavingDate: datePtr(2024, time.January, 1),
		TargetDate:      datePtr(2024, time.December, 31),
	}

	tests := []struct {
		name  string
		month MonthKey
		want  int64
	}{
		{name: "first month of window", month: "2024-01", want: 10000},
		{name: "mid window", month: "2024-06", want: 10000},
		{name: "last month of window", month: "2024-12", want: 10000},
		{name: "before window", month: "2023-12", want: 0},
		{name: "after window", month: "2025-01", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BucketCost(b, tt.month, CostInputs{Payday: 1})
			if err != nil {
				t.Fatalf("BucketCost error = %v", err)
			}
			// Inside the saving window the consumption component also
			// reports the untouched remaining target.
			want := tt.want
			if tt.month >= "2024-01" && tt.month <= "2024-12" {
				want += 120000
			}
			if got.Cents != want {
				t.Errorf("cost = %d, want %d", got.Cents, want)
			}
		})
	}
}

func TestGoalBucketConsumption(t *testing.T) {
	target := Money{Cents: 50000}
	base := Bucket{
		ID:             "reno",
		Type:           GoalBucket,
		PaymentSource:  SourceSavings,
		TargetAmount:   target,
		EventStartDate: datePtr(2024, time.March, 1),
		EventEndDate:   datePtr(2024, time.May, 31),
	}

	tests := []struct {
		name    string
		bucket  Bucket
		month   MonthKey
		txns    []Transaction
		want    int64
		payday  int
		archive *time.Time
	}{
		{
			name:   "active month reports remaining",
			bucket: base,
			month:  "2024-03",
			payday: 1,
			want:   50000,
		},
		{
			name:   "spend before the interval reduces remaining",
			bucket: base,
			month:  "2024-05",
			payday: 1,
			txns: []Transaction{
				{ID: "t1", BucketID: "reno", Date: date(2024, time.March, 10), Amount: Money{Cents: -20000}},
			},
			// The 2024-05 payday-1 interval is Apr 1 - Apr 30; the March
			// spend happened before it.
			want: 30000,
		},
		{
			name:   "fully spent goal still reports interval spend",
			bucket: base,
			month:  "2024-05",
			payday: 1,
			txns: []Transaction{
				{ID: "t1", BucketID: "reno", Date: date(2024, time.March, 10), Amount: Money{Cents: -50000}},
				{ID: "t2", BucketID: "reno", Date: date(2024, time.April, 20), Amount: Money{Cents: -7000}},
			},
			// Remaining hit zero before the month began; real spend in
			// the interval (Apr 1 - Apr 30 is the 2024-05 payday-1
			// interval) is still reported.
			want: 7000,
		},
		{
			name:   "outside window with no spend is zero",
			bucket: base,
			month:  "2024-08",
			payday: 1,
			want:   0,
		},
		{
			name:    "archived goal caps at actual spend",
			bucket:  base,
			month:   "2024-04",
			payday:  1,
			archive: datePtr(2024, time.April, 1),
			txns: []Transaction{
				{ID: "t1", BucketID: "reno", Date: date(2024, time.February, 5), Amount: Money{Cents: -10000}},
				{ID: "t2", BucketID: "reno", Date: date(2024, time.February, 20), Amount: Money{Cents: -2500}},
			},
			// Remaining is 50000-12500=37500 but the archived goal only
			// reports what was actually spent in the interval: nothing.
			want: 0,
		},
		{
			name:    "archived goal with interval spend reports the lesser",
			bucket:  base,
			month:   "2024-04",
			payday:  1,
			archive: datePtr(2024, time.April, 1),
			txns: []Transaction{
				{ID: "t1", BucketID: "reno", Date: date(2024, time.March, 10), Amount: Money{Cents: -2500}},
			},
			// The 2024-04 payday-1 interval is Mar 1 - Mar 31; spend in it
			// is 2500, remaining is 50000. Report the lesser.
			want: 2500,
		},
		{
			name:   "other buckets' transactions are ignored",
			bucket: base,
			month:  "2024-03",
			payday: 1,
			txns: []Transaction{
				{ID: "t1", BucketID: "other", Date: date(2024, time.February, 10), Amount: Money{Cents: -40000}},
			},
			want: 50000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.bucket
			b.ArchivedDate = tt.archive
			got, err := BucketCost(b, tt.month, CostInputs{Payday: tt.payday, Transactions: tt.txns})
			if err != nil {
				t.Fatalf("BucketCost error = %v", err)
			}
			if got.Cents != tt.want {
				t.Errorf("cost = %d, want %d", got.Cents, tt.want)
			}
		})
	}
}

func TestGoalBucketInvalidTarget(t *testing.T) {
	b := Bucket{
		ID:            "broken",
		Type:          GoalBucket,
		PaymentSource: SourceIncome,
		TargetAmount:  Money{Cents: 0},
	}
	_, err := BucketCost(b, "2024-01", CostInputs{Payday: 1})
	if !errors.Is(err, ErrInvalidGoalTarget) {
		t.Errorf("error = %v, want ErrInvalidGoalTarget", err)
	}

	// Savings-funded goals have no contribution, so the same target is fine.
	b.PaymentSource = SourceSavings
	if _, err := BucketCost(b, "2024-01", CostInputs{Payday: 1}); err != nil {
		t.Errorf("savings-funded goal: unexpected error %v", err)
	}
}

func TestBucketCostUnknownType(t *testing.T) {
	b := Bucket{ID: "x", Type: "mystery"}
	if _, err := BucketCost(b, "2024-01", CostInputs{Payday: 1}); !errors.Is(err, ErrInvalidBucketType) {
		t.Errorf("error = %v, want ErrInvalidBucketType", err)
	}
}

func TestBucketCostUsesLayeredValue(t *testing.T) {
	// A bucket with no monthly data of its own costs what the template
	// says it should.
	p := testPlan()
	b := Bucket{ID: "b1", Type: FixedBucket}
	got, err := BucketCost(b, "2024-02", CostInputs{Payday: 1, Plan: p})
	if err != nil {
		t.Fatal(err)
	}
	if got.Cents != 8000 {
		t.Errorf("cost = %d, want 8000 from template", got.Cents)
	}
}
