package core

import (
	"errors"
	"testing"
)

func TestDeleteThisMonthWritesFencePost(t *testing.T) {
	b := Bucket{
		ID:   "gym",
		Type: FixedBucket,
		MonthlyData: map[MonthKey]BucketData{
			"2024-01": {Amount: Money{Cents: 10000}},
		},
	}

	got, err := ApplyDeletionScope(b, "2024-01", DeleteThisMonth)
	if err != nil {
		t.Fatalf("ApplyDeletionScope error = %v", err)
	}

	// The deleted month resolves to no value.
	r := ResolveEffective(got.MonthlyData, "2024-01")
	if r.Found || !r.Stopped {
		t.Errorf("deleted month: got %+v, want explicit stop", r)
	}

	// The fence post bounds the deletion to exactly one month.
	r = ResolveEffective(got.MonthlyData, "2024-02")
	if !r.Found || r.Inherited {
		t.Fatalf("fence month: got %+v, want found, not inherited", r)
	}
	if r.Value.Amount.Cents != 10000 {
		t.Errorf("fence amount = %d, want 10000", r.Value.Amount.Cents)
	}

	// Months after the fence inherit the clone, not the stop.
	r = ResolveEffective(got.MonthlyData, "2024-07")
	if !r.Found || !r.Inherited || r.Value.Amount.Cents != 10000 {
		t.Errorf("later month: got %+v, want inherited 10000", r)
	}

	// The input bucket is untouched.
	if len(b.MonthlyData) != 1 {
		t.Errorf("input bucket mutated: %d entries", len(b.MonthlyData))
	}
}

func TestDeleteThisMonthKeepsExistingNextEntry(t *testing.T) {
	b := Bucket{
		ID:   "gym",
		Type: FixedBucket,
		MonthlyData: map[MonthKey]BucketData{
			"2024-01": {Amount: Money{Cents: 10000}},
			"2024-02": {Amount: Money{Cents: 11111}},
		},
	}

	got, err := ApplyDeletionScope(b, "2024-01", DeleteThisMonth)
	if err != nil {
		t.Fatal(err)
	}

	// An existing next-month entry is never overwritten by the fence.
	r := ResolveEffective(got.MonthlyData, "2024-02")
	if r.Value.Amount.Cents != 11111 {
		t.Errorf("next month = %d, want untouched 11111", r.Value.Amount.Cents)
	}
}

func TestDeleteThisMonthWithoutPriorData(t *testing.T) {
	b := Bucket{ID: "new", Type: FixedBucket}

	got, err := ApplyDeletionScope(b, "2024-03", DeleteThisMonth)
	if err != nil {
		t.Fatal(err)
	}

	// Nothing to clone: only the stop entry is written.
	if _, ok := got.MonthlyData["2024-04"]; ok {
		t.Error("fence post written with no pre-deletion data")
	}
	r := ResolveEffective(got.MonthlyData, "2024-03")
	if !r.Stopped {
		t.Errorf("deleted month: got %+v, want stop", r)
	}
}

func TestDeleteThisAndFuture(t *testing.T) {
	b := Bucket{
		ID:   "streaming",
		Type: FixedBucket,
		MonthlyData: map[MonthKey]BucketData{
			"2023-10": {Amount: Money{Cents: 900}},
			"2024-03": {Amount: Money{Cents: 1200}},
			"2024-06": {Amount: Money{Cents: 1500}},
		},
	}

	got, err := ApplyDeletionScope(b, "2024-01", DeleteThisAndFuture)
	if err != nil {
		t.Fatal(err)
	}

	// Every month at or after the cutoff resolves to no value, including
	// months that previously had their own entries.
	for _, m := range []MonthKey{"2024-01", "2024-02", "2024-03", "2024-06", "2024-09"} {
		r := ResolveEffective(got.MonthlyData, m)
		if r.Found {
			t.Errorf("month %v: got %+v, want no value", m, r)
		}
	}

	// Months before the cutoff still resolve.
	r := ResolveEffective(got.MonthlyData, "2023-12")
	if !r.Found || r.Value.Amount.Cents != 900 {
		t.Errorf("month before cutoff: got %+v, want 900", r)
	}

	// A new entry added after the cutoff restarts the series.
	got.MonthlyData["2024-08"] = BucketData{Amount: Money{Cents: 2000}}
	r = ResolveEffective(got.MonthlyData, "2024-10")
	if !r.Found || r.Value.Amount.Cents != 2000 {
		t.Errorf("restarted series: got %+v, want 2000", r)
	}
}

func TestApplyDeletionScopeErrors(t *testing.T) {
	b := Bucket{ID: "x", Type: FixedBucket}

	if _, err := ApplyDeletionScope(b, "2024-1", DeleteThisMonth); !errors.Is(err, ErrInvalidMonthKey) {
		t.Errorf("bad month: error = %v, want ErrInvalidMonthKey", err)
	}
	if _, err := ApplyDeletionScope(b, "2024-01", "sideways"); !errors.Is(err, ErrInvalidDeletionScope) {
		t.Errorf("bad scope: error = %v, want ErrInvalidDeletionScope", err)
	}
	if _, err := ApplyDeletionScope(b, "2024-01", DeleteAll); !errors.Is(err, ErrInvalidDeletionScope) {
		t.Errorf("delete all: error = %v, want ErrInvalidDeletionScope", err)
	}
}

func TestUnlinkBucket(t *testing.T) {
	txns := []Transaction{
		{ID: "t1", BucketID: "a"},
		{ID: "t2", BucketID: "b"},
		{ID: "t3", BucketID: "a"},
	}

	got := UnlinkBucket(txns, "a")

	if got[0].BucketID != "" || got[2].BucketID != "" {
		t.Error("references to the deleted bucket were not cleared")
	}
	if got[1].BucketID != "b" {
		t.Error("unrelated reference was cleared")
	}
	if txns[0].BucketID != "a" {
		t.Error("input slice mutated")
	}
}
