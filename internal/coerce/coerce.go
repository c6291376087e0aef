// Package coerce converts raw extracted values to their declared field types
// and enforces each field's validation rules.
package coerce

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/guild-ledger/internal/common"
	"github.com/Veraticus/guild-ledger/internal/extract"
	"github.com/Veraticus/guild-ledger/internal/model"
)

// Value is one coerced field value. Valid is false for an optional value
// that failed coercion or validation and had no default to fall back on;
// the slot is kept so list rows stay aligned.
type Value struct {
	Date   model.Date
	Number decimal.Decimal
	Type   model.FieldType
	Raw    string
	Text   string
	Bool   bool
	Valid  bool
}

// Int returns the integer part of a number value.
func (v Value) Int() int {
	return int(v.Number.IntPart())
}

// IsInteger reports whether a number value has no fractional part.
func (v Value) IsInteger() bool {
	return v.Number.Equal(v.Number.Truncate(0))
}

// String returns the canonical text of the value.
func (v Value) String() string {
	if !v.Valid {
		return ""
	}
	switch v.Type {
	case model.FieldNumber:
		return v.Number.String()
	case model.FieldBoolean:
		if v.Bool {
			return "true"
		}
		return "false"
	case model.FieldDate:
		return v.Date.String()
	default:
		return v.Text
	}
}

// Fields is the coerced form of an extraction result.
type Fields struct {
	Values     map[string][]Value
	Unresolved []string
	// Defaulted holds the fields that were not extracted and took their
	// declared default as their single value.
	Defaulted map[string]bool
	Warnings  []extract.Warning
}

// First returns the first valid value of a field.
func (f *Fields) First(key string) (Value, bool) {
	for _, v := range f.Values[key] {
		if v.Valid {
			return v, true
		}
	}
	return Value{}, false
}

// Coercer converts raw values. The zero value is not usable; use New.
type Coercer struct {
	dateLayout string
}

// Option configures a Coercer.
type Option func(*Coercer)

// WithDateLayout sets the layout date fields are parsed with.
func WithDateLayout(layout string) Option {
	return func(c *Coercer) {
		if layout != "" {
			c.dateLayout = layout
		}
	}
}

// New creates a Coercer that parses dates as model.DateLayout unless
// configured otherwise.
func New(opts ...Option) *Coercer {
	c := &Coercer{dateLayout: model.DateLayout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Coerce converts every raw value of res according to the template's field
// mapping. A failing value of a required field rejects the whole result. A
// failing value of an optional field falls back to the field's default, or is
// invalidated, and a warning is recorded. Unresolved optional fields take
// their default when one is declared.
func (c *Coercer) Coerce(tmpl *model.Template, res *extract.Result) (*Fields, error) {
	out := &Fields{
		Values:    make(map[string][]Value, len(tmpl.FieldMapping)),
		Defaulted: make(map[string]bool),
		Warnings:  append([]extract.Warning(nil), res.Warnings...),
	}

	keys := make([]string, 0, len(tmpl.FieldMapping))
	for k := range tmpl.FieldMapping {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		fc := tmpl.FieldMapping[key]
		raw := res.Values[key]
		checks := newRules(fc.Validation)

		if len(raw) == 0 {
			if fc.DefaultValue == nil {
				out.Unresolved = append(out.Unresolved, key)
				continue
			}
			v, err := c.value(key, fc, *fc.DefaultValue, checks)
			if err != nil {
				return nil, err
			}
			out.Values[key] = []Value{v}
			out.Defaulted[key] = true
			continue
		}

		vals := make([]Value, len(raw))
		for i, r := range raw {
			v, err := c.value(key, fc, r, checks)
			if err == nil {
				vals[i] = v
				continue
			}
			if fc.Required {
				return nil, err
			}

			out.Warnings = append(out.Warnings, extract.Warning{Field: key, Message: err.Error()})
			slog.Debug("optional field value dropped", "field", key, "raw", r, "error", err)

			vals[i] = Value{Type: fc.Type, Raw: r}
			if fc.DefaultValue != nil {
				if dv, derr := c.value(key, fc, *fc.DefaultValue, checks); derr == nil {
					vals[i] = dv
				}
			}
		}
		out.Values[key] = vals
	}
	return out, nil
}

// Value coerces and validates one raw value of a field.
func (c *Coercer) Value(key string, fc model.FieldConfig, raw string) (Value, error) {
	return c.value(key, fc, raw, newRules(fc.Validation))
}

// rules is a validation rule with its pattern compiled once.
type rules struct {
	*model.ValidationRule
	re    *regexp.Regexp
	reErr error
}

func newRules(rule *model.ValidationRule) *rules {
	if rule == nil {
		return nil
	}
	r := &rules{ValidationRule: rule}
	if rule.Pattern != "" {
		r.re, r.reErr = regexp.Compile(rule.Pattern)
	}
	return r
}

func (c *Coercer) value(key string, fc model.FieldConfig, raw string, rule *rules) (Value, error) {
	s := strings.TrimSpace(raw)
	v := Value{Type: fc.Type, Raw: raw}

	if s == "" {
		return v, &common.Error{
			Kind:   common.KindValidationFailed,
			Field:  key,
			Rule:   "required",
			Detail: "empty value",
		}
	}

	switch fc.Type {
	case model.FieldString, "":
		v.Type = model.FieldString
		v.Text = s
	case model.FieldNumber:
		n, err := ParseNumber(s)
		if err != nil {
			return v, common.NewError(common.KindTypeCoercion, key, fmt.Sprintf("%q is not a number", raw), err)
		}
		v.Number = n
	case model.FieldBoolean:
		b, err := ParseBool(s)
		if err != nil {
			return v, common.NewError(common.KindTypeCoercion, key, fmt.Sprintf("%q is not a boolean", raw), err)
		}
		v.Bool = b
	case model.FieldDate:
		d, err := model.ParseDateLayout(c.dateLayout, s)
		if err != nil {
			return v, common.NewError(common.KindTypeCoercion, key, fmt.Sprintf("%q is not a %s date", raw, c.dateLayout), err)
		}
		v.Date = d
	default:
		return v, common.NewError(common.KindTypeCoercion, key, fmt.Sprintf("unknown type %q", fc.Type), nil)
	}
	v.Valid = true

	if rule != nil {
		if err := check(key, v, rule); err != nil {
			return Value{Type: fc.Type, Raw: raw}, err
		}
	}
	return v, nil
}

func check(key string, v Value, rule *rules) error {
	fail := func(name, detail string) error {
		return &common.Error{Kind: common.KindValidationFailed, Field: key, Rule: name, Detail: detail}
	}

	var measure decimal.Decimal
	measured := true
	switch v.Type {
	case model.FieldNumber:
		measure = v.Number
	case model.FieldString:
		measure = decimal.NewFromInt(int64(utf8.RuneCountInString(v.Text)))
	default:
		measured = false
	}
	if measured {
		if rule.Min != nil && measure.LessThan(decimal.NewFromFloat(*rule.Min)) {
			return fail("min", fmt.Sprintf("%s is below %v", measure, *rule.Min))
		}
		if rule.Max != nil && measure.GreaterThan(decimal.NewFromFloat(*rule.Max)) {
			return fail("max", fmt.Sprintf("%s is above %v", measure, *rule.Max))
		}
	}

	if rule.Pattern != "" && v.Type == model.FieldString {
		if rule.reErr != nil {
			return fail("pattern", rule.reErr.Error())
		}
		if !rule.re.MatchString(v.Text) {
			return fail("pattern", fmt.Sprintf("%q does not match %s", v.Text, rule.Pattern))
		}
	}

	if len(rule.Enum) > 0 {
		text := v.String()
		for _, allowed := range rule.Enum {
			if allowed == text {
				return nil
			}
		}
		return fail("enum", fmt.Sprintf("%q is not one of %s", text, strings.Join(rule.Enum, ", ")))
	}
	return nil
}
