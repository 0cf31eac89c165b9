package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrNegativeAmount  = errors.New("amount must not be negative")
	ErrTooManyDecimals = errors.New("amount has too many decimal places")
	ErrAmountTooLarge  = errors.New("amount is too large")
)

// Scale is the number of fractional digits stored for every money column.
const Scale = 2

// maxWholeDigits matches NUMERIC(10,2).
const maxWholeDigits = 8

// ParseAmount parses a non-negative decimal string such as "12", "12.5" or
// "12.50". Comma is accepted as the decimal separator.
func ParseAmount(input string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	trimmed = strings.ReplaceAll(trimmed, ",", ".")
	switch trimmed[0] {
	case '-':
		return decimal.Zero, ErrNegativeAmount
	case '+':
		trimmed = trimmed[1:]
	}
	parts := strings.SplitN(trimmed, ".", 2)
	wholePart := strings.TrimLeft(parts[0], "0")
	if parts[0] != "" && !isDigits(parts[0]) {
		return decimal.Zero, ErrInvalidAmount
	}
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if parts[0] == "" && fracPart == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if fracPart != "" && !isDigits(fracPart) {
		return decimal.Zero, ErrInvalidAmount
	}
	if len(fracPart) > Scale {
		return decimal.Zero, ErrTooManyDecimals
	}
	if len(wholePart) > maxWholeDigits {
		return decimal.Zero, ErrAmountTooLarge
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return amount.Round(Scale), nil
}

// Format renders an amount with exactly two fractional digits.
func Format(amount decimal.Decimal) string {
	return amount.StringFixed(Scale)
}

func isDigits(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
