package coerce

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Parse errors.
var (
	ErrGroupedNumber = errors.New("digit grouping is not accepted")
	ErrNotBoolean    = errors.New("not a boolean")
)

// ParseNumber parses a locale-agnostic decimal. Grouped forms such as
// "1,234" are rejected.
func ParseNumber(s string) (decimal.Decimal, error) {
	if strings.ContainsAny(s, ", _'") {
		return decimal.Decimal{}, ErrGroupedNumber
	}
	return decimal.NewFromString(s)
}

// ParseBool accepts true/false, yes/no, y/n, 1/0 and on/off in any case.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1", "on":
		return true, nil
	case "false", "no", "n", "0", "off":
		return false, nil
	default:
		return false, ErrNotBoolean
	}
}
