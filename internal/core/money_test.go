package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{name: "dot separator", input: "12.34", want: 1234},
		{name: "comma separator", input: "12,34", want: 1234},
		{name: "no fraction", input: "120", want: 12000},
		{name: "single fractional digit", input: "5.5", want: 550},
		{name: "third digit rounds down", input: "12.344", want: 1234},
		{name: "third digit rounds up", input: "12.346", want: 1235},
		{name: "zero", input: "0", want: 0},
		{name: "leading dot", input: ".75", want: 75},
		{name: "whitespace trimmed", input: " 9.99 ", want: 999},
		{name: "negative rejected", input: "-5", wantErr: true},
		{name: "plus sign rejected", input: "+5", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "two dots", input: "1.2.3", wantErr: true},
		{name: "letters", input: "12a", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDecimalToCents(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseDecimalToCents(%q) = %d, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDecimalToCents(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseDecimalToCents(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestMoneyHelpers(t *testing.T) {
	if got := (Money{Cents: -250}).Abs(); got.Cents != 250 {
		t.Errorf("Abs() = %d, want 250", got.Cents)
	}
	if got := (Money{Cents: 100}).Add(Money{Cents: 23}); got.Cents != 123 {
		t.Errorf("Add() = %d, want 123", got.Cents)
	}
	if !(Money{}).IsZero() {
		t.Error("IsZero() on zero = false")
	}
	if got := (Money{Cents: 1234}).Euros(); got != 12.34 {
		t.Errorf("Euros() = %v, want 12.34", got)
	}
}
