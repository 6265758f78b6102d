package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"300.00", 30000, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneySplitEven(t *testing.T) {
	cases := []struct {
		cents int64
		n     int
		want  []int64
	}{
		{30000, 3, []int64{10000, 10000, 10000}},
		{10000, 3, []int64{3334, 3333, 3333}},
		{100, 7, []int64{15, 15, 14, 14, 14, 14, 14}},
		{5, 2, []int64{3, 2}},
	}
	for i, tc := range cases {
		parts := Money{Cents: tc.cents}.SplitEven(tc.n)
		if len(parts) != tc.n {
			t.Fatalf("case %d expected %d parts, got %d", i, tc.n, len(parts))
		}
		for j, p := range parts {
			if p.Cents != tc.want[j] {
				t.Fatalf("case %d part %d expected %d, got %d", i, j, tc.want[j], p.Cents)
			}
		}
	}
}

func TestMoneySplitEvenSumsExactly(t *testing.T) {
	for n := 2; n <= 24; n++ {
		total := Money{Cents: 99999}
		parts := total.SplitEven(n)
		var sum int64
		var min, max int64 = 1 << 62, 0
		for _, p := range parts {
			sum += p.Cents
			if p.Cents < min {
				min = p.Cents
			}
			if p.Cents > max {
				max = p.Cents
			}
		}
		if sum != total.Cents {
			t.Fatalf("n=%d parts sum to %d, expected %d", n, sum, total.Cents)
		}
		if max-min > 1 {
			t.Fatalf("n=%d parts differ by more than one cent (min=%d max=%d)", n, min, max)
		}
	}
}

func TestMoneyDecimal(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{1234, "12.34"},
		{100, "1.00"},
		{5, "0.05"},
		{0, "0.00"},
		{-50, "-0.50"},
		{-12345, "-123.45"},
	}
	for i, tc := range cases {
		if got := (Money{Cents: tc.cents}).Decimal(); got != tc.want {
			t.Fatalf("case %d expected %q, got %q", i, tc.want, got)
		}
	}
}
