package core

import (
	"testing"
)

func TestResolveEffective(t *testing.T) {
	monthly := map[MonthKey]BucketData{
		"2024-01": {Amount: Money{Cents: 10000}},
		"2024-04": {Amount: Money{Cents: 12000}},
		"2024-07": {ExplicitlyDeleted: true},
	}

	tests := []struct {
		name          string
		query         MonthKey
		wantFound     bool
		wantInherited bool
		wantStopped   bool
		wantCents     int64
	}{
		{
			name:      "exact match is not inherited",
			query:     "2024-01",
			wantFound: true,
			wantCents: 10000,
		},
		{
			name:          "later month inherits nearest earlier entry",
			query:         "2024-03",
			wantFound:     true,
			wantInherited: true,
			wantCents:     10000,
		},
		{
			name:          "inheritance picks the greatest key below",
			query:         "2024-06",
			wantFound:     true,
			wantInherited: true,
			wantCents:     12000,
		},
		{
			name:        "deleted entry is an explicit stop",
			query:       "2024-07",
			wantStopped: true,
		},
		{
			name:        "backward scan lands on deleted entry",
			query:       "2024-09",
			wantStopped: true,
		},
		{
			name:  "before first entry has no value",
			query: "2023-12",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ResolveEffective(monthly, tt.query)
			if r.Found != tt.wantFound {
				t.Errorf("Found = %v, want %v", r.Found, tt.wantFound)
			}
			if r.Inherited != tt.wantInherited {
				t.Errorf("Inherited = %v, want %v", r.Inherited, tt.wantInherited)
			}
			if r.Stopped != tt.wantStopped {
				t.Errorf("Stopped = %v, want %v", r.Stopped, tt.wantStopped)
			}
			if r.Value.Amount.Cents != tt.wantCents {
				t.Errorf("Amount = %d, want %d", r.Value.Amount.Cents, tt.wantCents)
			}
		})
	}
}

func TestResolveEffectiveEmptyMap(t *testing.T) {
	r := ResolveEffective(map[MonthKey]BucketData{}, "2024-01")
	if r.Found || r.Stopped || r.Inherited {
		t.Errorf("empty map: got %+v, want zero resolution", r)
	}

	var nilMap map[MonthKey]GroupData
	rg := ResolveEffective(nilMap, "2024-01")
	if rg.Found || rg.Stopped {
		t.Errorf("nil map: got %+v, want zero resolution", rg)
	}
}

func TestLatestEntry(t *testing.T) {
	monthly := map[MonthKey]BucketData{
		"2024-01": {},
		"2024-06": {},
		"2023-12": {},
	}
	k, ok := LatestEntry(monthly)
	if !ok || k != "2024-06" {
		t.Errorf("LatestEntry = %v, %v, want 2024-06, true", k, ok)
	}
	if _, ok := LatestEntry(map[MonthKey]BucketData{}); ok {
		t.Error("LatestEntry on empty map reported an entry")
	}
}

func TestBucketConfirmMonth(t *testing.T) {
	b := Bucket{
		ID:   "b1",
		Type: FixedBucket,
		MonthlyData: map[MonthKey]BucketData{
			"2024-01": {Amount: Money{Cents: 5000}},
		},
	}

	if ok := b.ConfirmMonth("2024-05"); !ok {
		t.Fatal("ConfirmMonth returned false with an effective value present")
	}

	// The value is now materialized at the confirmed month.
	r := ResolveEffective(b.MonthlyData, "2024-05")
	if !r.Found || r.Inherited {
		t.Fatalf("after confirm: got %+v, want found, not inherited", r)
	}
	if r.Value.Amount.Cents != 5000 {
		t.Errorf("confirmed amount = %d, want 5000", r.Value.Amount.Cents)
	}

	// Confirming again changes nothing.
	if ok := b.ConfirmMonth("2024-05"); !ok {
		t.Fatal("second ConfirmMonth returned false")
	}
	r2 := ResolveEffective(b.MonthlyData, "2024-05")
	if r2.Inherited || r2.Value.Amount.Cents != 5000 {
		t.Errorf("confirm is not idempotent: got %+v", r2)
	}

	// Editing the earlier month no longer cascades past the pin.
	b.MonthlyData["2024-01"] = BucketData{Amount: Money{Cents: 9999}}
	r3 := ResolveEffective(b.MonthlyData, "2024-06")
	if r3.Value.Amount.Cents != 5000 {
		t.Errorf("pin did not hold: resolved %d, want 5000", r3.Value.Amount.Cents)
	}
}

func TestBucketConfirmMonthNoValue(t *testing.T) {
	b := Bucket{ID: "b1", Type: FixedBucket}
	if ok := b.ConfirmMonth("2024-01"); ok {
		t.Error("ConfirmMonth succeeded with nothing to confirm")
	}
	if len(b.MonthlyData) != 0 {
		t.Errorf("ConfirmMonth materialized %d entries with nothing to confirm", len(b.MonthlyData))
	}
}

func TestGroupConfirmMonth(t *testing.T) {
	g := BudgetGroup{
		ID:           "g1",
		ForecastType: ForecastVariable,
		MonthlyData: map[MonthKey]GroupData{
			"2024-02": {Limit: Money{Cents: 40000}},
		},
	}
	if ok := g.ConfirmMonth("2024-08"); !ok {
		t.Fatal("ConfirmMonth returned false")
	}
	r := ResolveEffective(g.MonthlyData, "2024-08")
	if !r.Found || r.Inherited || r.Value.Limit.Cents != 40000 {
		t.Errorf("after confirm: got %+v", r)
	}
}
