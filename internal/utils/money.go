package utils

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrInvalidMoney = errors.New("invalid money amount")

// ParseMoney converts a decimal amount in major units (e.g. "12.50") into
// minor units for the given number of currency decimals. Amounts carrying more
// precision than the currency allows are rejected rather than rounded.
func ParseMoney(raw string, decimals int32) (int64, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMoney, raw)
	}
	return MoneyFromDecimal(d, decimals)
}

// MoneyFromDecimal converts a major-unit decimal into minor units.
func MoneyFromDecimal(d decimal.Decimal, decimals int32) (int64, error) {
	minor := d.Shift(decimals)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, fmt.Errorf("%w: %s has more than %d decimals", ErrInvalidMoney, d, decimals)
	}
	if minor.Abs().GreaterThan(decimal.NewFromInt(1<<62)) {
		return 0, fmt.Errorf("%w: %s out of range", ErrInvalidMoney, d)
	}
	return minor.IntPart(), nil
}

// FormatMoney renders minor units as a fixed-point major-unit string.
func FormatMoney(minor int64, decimals int32) string {
	return decimal.New(minor, -decimals).StringFixed(decimals)
}
