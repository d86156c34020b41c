package shared

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// MicroUnits is the scale of an amount: 6 implied decimals.
const MicroUnits = 1_000_000

// MaxAmountDecimals is the number of decimal places an amount may carry.
const MaxAmountDecimals = 6

// AmountError explains why amount text was rejected.
type AmountError struct {
	Reason string
}

func (e *AmountError) Error() string { return "invalid amount: " + e.Reason }

func (e *AmountError) Unwrap() error { return ErrInvalidAmount }

// amountPattern matches plain non-negative decimal text: digits, an optional fraction, and an
// optional leading plus sign. Exponents, hex floats, NaN and Inf do not match.
var amountPattern = regexp.MustCompile(`^\+?(\d*)(?:\.(\d+))?$`)

// USDToMicro converts USD decimal text such as "10.50" to micro-units (10500000).
//
// At most six digits may follow the decimal point; negative and non-numeric values are rejected
// with an [*AmountError]. The conversion is exact.
func USDToMicro(text string) (int64, error) {
	trimmed := strings.TrimSpace(text)

	if rest, ok := strings.CutPrefix(trimmed, "-"); ok && isAmountText(rest) {
		return 0, &AmountError{Reason: "Amount cannot be negative"}
	}

	m := amountPattern.FindStringSubmatch(trimmed)
	if m == nil || (m[1] == "" && m[2] == "") {
		return 0, &AmountError{Reason: "Invalid number format"}
	}

	integer, fraction := m[1], m[2]
	if len(fraction) > MaxAmountDecimals {
		return 0, &AmountError{Reason: fmt.Sprintf("Maximum %d decimal places allowed (got %d)", MaxAmountDecimals, len(fraction))}
	}

	var whole int64
	if integer != "" {
		v, err := strconv.ParseInt(integer, 10, 64)
		if err != nil {
			return 0, &AmountError{Reason: "Amount is too large"}
		}
		whole = v
	}

	var micro int64
	if fraction != "" {
		// at most 6 digits, always fits
		micro, _ = strconv.ParseInt(fraction+strings.Repeat("0", MaxAmountDecimals-len(fraction)), 10, 64)
	}

	if whole > (math.MaxInt64-micro)/MicroUnits {
		return 0, &AmountError{Reason: "Amount is too large"}
	}
	return whole*MicroUnits + micro, nil
}

func isAmountText(s string) bool {
	m := amountPattern.FindStringSubmatch(s)
	return m != nil && (m[1] != "" || m[2] != "")
}

// FormatAmount renders micro-units with thousands separators and six decimals.
//
//	1000000    -> "1.000000"
//	1234567890 -> "1,234.567890"
func FormatAmount(amount int64) string {
	sign := ""
	abs := uint64(amount)
	if amount < 0 {
		sign = "-"
		abs = uint64(-(amount + 1)) + 1
	}

	integer := strconv.FormatUint(abs/MicroUnits, 10)
	decimal := abs % MicroUnits

	var b strings.Builder
	for i, c := range integer {
		if i > 0 && (len(integer)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}

	return fmt.Sprintf("%s%s.%06d", sign, b.String(), decimal)
}
