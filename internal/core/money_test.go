package core

import (
	"math"
	"testing"
)

func TestRound2(t *testing.T) {
	cases := []struct {
		in, out float64
	}{
		{10.005, 10.01},
		{500.555, 500.56},
		{1.004, 1},
		{2.5, 2.5},
		{-1.005, -1.01},
		{1000, 1000},
		{0.125, 0.13},
	}
	for _, tc := range cases {
		if got := Round2(tc.in); got != tc.out {
			t.Fatalf("Round2(%v) expected %v, got %v", tc.in, tc.out, got)
		}
	}
	if !math.IsNaN(Round2(math.NaN())) {
		t.Fatalf("expected NaN to pass through")
	}
}

func TestSumRounded(t *testing.T) {
	if got := SumRounded(0.1, 0.2); got != 0.3 {
		t.Fatalf("expected 0.3, got %v", got)
	}
	if got := SumRounded(); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
	if got := SumRounded(1, math.Inf(1), 2); got != 3 {
		t.Fatalf("expected non-finite values to be skipped, got %v", got)
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out float64
		ok  bool
	}{
		{"1", 1, true},
		{"1.23", 1.23, true},
		{"1,250.50", 1250.5, true},
		{"₹ 99", 99, true},
		{" 2.50 ", 2.5, true},
		{"-1", -1, true},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}
