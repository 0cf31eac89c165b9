package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"25", "25.00"},
		{"25.5", "25.50"},
		{" 10.05 ", "10.05"},
		{"+3.10", "3.10"},
		{"0", "0.00"},
		{".75", "0.75"},
		{"7,25", "7.25"},
		{"99999999.99", "99999999.99"},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.input)
		if err != nil {
			t.Fatalf("ParseAmount(%q) unexpected error: %v", tc.input, err)
		}
		if Format(got) != tc.want {
			t.Fatalf("ParseAmount(%q) = %s, want %s", tc.input, Format(got), tc.want)
		}
	}
}

func TestParseAmountRejects(t *testing.T) {
	cases := map[string]error{
		"":             ErrInvalidAmount,
		"abc":          ErrInvalidAmount,
		"1.2.3":        ErrInvalidAmount,
		".":            ErrInvalidAmount,
		"-1.00":        ErrNegativeAmount,
		"1.999":        ErrTooManyDecimals,
		"100000000.00": ErrAmountTooLarge,
	}
	for input, want := range cases {
		if _, err := ParseAmount(input); err != want {
			t.Fatalf("ParseAmount(%q) error = %v, want %v", input, err, want)
		}
	}
}

func TestFormatKeepsTwoDecimals(t *testing.T) {
	if got := Format(decimal.NewFromInt(15)); got != "15.00" {
		t.Fatalf("unexpected format: %s", got)
	}
	if got := Format(decimal.RequireFromString("-0.5")); got != "-0.50" {
		t.Fatalf("unexpected format: %s", got)
	}
}
