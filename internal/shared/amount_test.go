package shared

import (
	"errors"
	"math"
	"testing"
)

func TestUSDToMicro(t *testing.T) {
	t.Run("Valid Amounts", func(t *testing.T) {
		tc := []struct {
			in   string
			want int64
		}{
			{"10.50", 10_500_000},
			{"100", 100_000_000},
			{"0.000001", 1},
			{"1.234567", 1_234_567},
			{"  25.00 ", 25_000_000},
			{"0", 0},
			{"0.1", 100_000},
			{"19.99", 19_990_000},
			{"+2.5", 2_500_000},
			{".5", 500_000},
			{"12345678901.123457", 12_345_678_901_123_457},
			{"9223372036854.775807", math.MaxInt64},
		}

		for _, tt := range tc {
			t.Run(tt.in, func(t *testing.T) {
				got, err := USDToMicro(tt.in)
				if err != nil {
					t.Fatalf("USDToMicro(%q) error = %v", tt.in, err)
				}
				if got != tt.want {
					t.Errorf("USDToMicro(%q) = %d, want %d", tt.in, got, tt.want)
				}
			})
		}
	})

	t.Run("Invalid Amounts", func(t *testing.T) {
		for _, in := range []string{"10.1234567", "1.0000001", "-10", "-0.5", "abc", "", "NaN", "Inf", "1e300",
			"0x1p-2", "1e-7", "1E2", "1.", ".", "+", "1,000", "1.2.3", "9223372036854.775808", "99999999999999999999"} {
			t.Run(in, func(t *testing.T) {
				_, err := USDToMicro(in)
				if !errors.Is(err, ErrInvalidAmount) {
					t.Errorf("USDToMicro(%q) error = %v, want ErrInvalidAmount", in, err)
				}
			})
		}
	})

	t.Run("Reasons", func(t *testing.T) {
		tests := []struct{ in, reason string }{
			{"10.1234567", "Maximum 6 decimal places allowed (got 7)"},
			{"-10", "Amount cannot be negative"},
			{"abc", "Invalid number format"},
			{"1e-7", "Invalid number format"},
			{"0x1p-2", "Invalid number format"},
			{"9223372036854.775808", "Amount is too large"},
		}
		for _, tt := range tests {
			_, err := USDToMicro(tt.in)
			var amountErr *AmountError
			if !errors.As(err, &amountErr) {
				t.Fatalf("USDToMicro(%q) error = %v, want AmountError", tt.in, err)
			}
			if amountErr.Reason != tt.reason {
				t.Errorf("USDToMicro(%q) reason = %q, want %q", tt.in, amountErr.Reason, tt.reason)
			}
		}
	})
}

func TestFormatAmount(t *testing.T) {
	tc := []struct {
		in   int64
		want string
	}{
		{0, "0.000000"},
		{1, "0.000001"},
		{1_000_000, "1.000000"},
		{1_234_567_890, "1,234.567890"},
		{123_456_789_000_000, "123,456,789.000000"},
		{-10_500_000, "-10.500000"},
		{math.MinInt64, "-9,223,372,036,854.775808"},
	}

	for _, tt := range tc {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatAmount(tt.in); got != tt.want {
				t.Errorf("FormatAmount(%d) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
