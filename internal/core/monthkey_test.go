package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseMonthKey(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    MonthKey
		wantErr bool
	}{
		{name: "valid key", input: "2024-01", want: "2024-01"},
		{name: "valid december", input: "1999-12", want: "1999-12"},
		{name: "month zero", input: "2024-00", wantErr: true},
		{name: "month thirteen", input: "2024-13", wantErr: true},
		{name: "missing dash", input: "202401", wantErr: true},
		{name: "too short", input: "2024-1", wantErr: true},
		{name: "full date", input: "2024-01-15", wantErr: true},
		{name: "letters", input: "20x4-01", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMonthKey(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseMonthKey(%q) = %v, want error", tt.input, got)
				}
				if !errors.Is(err, ErrInvalidMonthKey) {
					t.Errorf("ParseMonthKey(%q) error = %v, want ErrInvalidMonthKey", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMonthKey(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseMonthKey(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestMonthKeyNextPrev(t *testing.T) {
	tests := []struct {
		key  MonthKey
		next MonthKey
		prev MonthKey
	}{
		{key: "2024-01", next: "2024-02", prev: "2023-12"},
		{key: "2024-12", next: "2025-01", prev: "2024-11"},
		{key: "2000-02", next: "2000-03", prev: "2000-01"},
	}

	for _, tt := range tests {
		if got := tt.key.Next(); got != tt.next {
			t.Errorf("%v.Next() = %v, want %v", tt.key, got, tt.next)
		}
		if got := tt.key.Prev(); got != tt.prev {
			t.Errorf("%v.Prev() = %v, want %v", tt.key, got, tt.prev)
		}
	}
}

func TestMonthKeyOrderingIsChronological(t *testing.T) {
	// String ordering must equal chronological ordering across year
	// boundaries; every resolver depends on it.
	k := MonthKey("2023-11")
	for i := 0; i < 30; i++ {
		next := k.Next()
		if !(k < next) {
			t.Fatalf("ordering broken: %v not < %v", k, next)
		}
		k = next
	}
}

func TestMonthKeyCompare(t *testing.T) {
	tests := []struct {
		a, b MonthKey
		want int
	}{
		{a: "2023-12", b: "2024-01", want: -1},
		{a: "2024-01", b: "2024-01", want: 0},
		{a: "2024-02", b: "2024-01", want: 1},
	}

	for _, tt := range tests {
		if got := tt.a.Compare(tt.b); got != tt.want {
			t.Errorf("%v.Compare(%v) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestMonthKeyOf(t *testing.T) {
	got := MonthKeyOf(time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC))
	if got != "2024-02" {
		t.Errorf("MonthKeyOf(leap day) = %v, want 2024-02", got)
	}
}

func TestMonthsUntil(t *testing.T) {
	tests := []struct {
		from MonthKey
		to   MonthKey
		want int
	}{
		{from: "2024-01", to: "2024-01", want: 1},
		{from: "2024-01", to: "2024-12", want: 12},
		{from: "2023-11", to: "2024-02", want: 4},
		{from: "2024-05", to: "2024-01", want: 0},
	}

	for _, tt := range tests {
		if got := tt.from.MonthsUntil(tt.to); got != tt.want {
			t.Errorf("%v.MonthsUntil(%v) = %d, want %d", tt.from, tt.to, got, tt.want)
		}
	}
}
