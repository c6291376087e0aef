package extract

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/Veraticus/guild-ledger/internal/model"
)

// Year-first layouts the date transform understands. Day-first and
// month-first forms are ambiguous and left alone.
var dateLayouts = []string{
	model.DateLayout,
	"2006/01/02",
	"2006.01.02",
	"20060102",
	"2006-1-2",
	"2006/1/2",
	"2006.1.2",
}

func applyTransform(t model.Transform, v string) (string, error) {
	switch t {
	case model.TransformNone:
		return v, nil
	case model.TransformTrim:
		return strings.TrimSpace(v), nil
	case model.TransformUpper:
		return strings.ToUpper(v), nil
	case model.TransformLower:
		return strings.ToLower(v), nil
	case model.TransformDigits:
		digits := strings.Map(func(r rune) rune {
			if unicode.IsDigit(r) {
				return r
			}
			return -1
		}, v)
		if digits == "" {
			return v, fmt.Errorf("digits: no digits in %q", v)
		}
		return digits, nil
	case model.TransformDate:
		return normalizeDate(v)
	default:
		return v, fmt.Errorf("unknown transform %q", t)
	}
}

func normalizeDate(v string) (string, error) {
	s := strings.TrimSpace(v)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(model.DateLayout), nil
		}
	}
	return v, fmt.Errorf("date: %q is not a year-first date", v)
}
