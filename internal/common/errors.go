// Package common provides shared utilities and types used across the application.
package common

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Common application errors.
var (
	// Storage errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Kind classifies a failure of the import pipeline.
type Kind string

// Pipeline failure kinds.
const (
	KindInvalidTemplate         Kind = "invalid_template"
	KindRuleExecutionFailure    Kind = "rule_execution_failure"
	KindUnresolvedRequiredField Kind = "unresolved_required_field"
	KindTypeCoercion            Kind = "type_coercion"
	KindValidationFailed        Kind = "validation_failed"
	KindAssemblyCardinality     Kind = "assembly_cardinality_mismatch"
	KindStoreUnavailable        Kind = "store_unavailable"
	KindUnmatchedName           Kind = "unmatched_name"
)

// Sentinels for errors.Is checks against a Kind.
var (
	ErrInvalidTemplate         = errors.New("invalid template")
	ErrRuleExecutionFailure    = errors.New("rule execution failure")
	ErrUnresolvedRequiredField = errors.New("unresolved required field")
	ErrTypeCoercion            = errors.New("type coercion failed")
	ErrValidationFailed        = errors.New("validation failed")
	ErrAssemblyCardinality     = errors.New("assembly cardinality mismatch")
	ErrStoreUnavailable        = errors.New("store unavailable")
	ErrUnmatchedName           = errors.New("unmatched name")
)

var kindSentinels = map[Kind]error{
	KindInvalidTemplate:         ErrInvalidTemplate,
	KindRuleExecutionFailure:    ErrRuleExecutionFailure,
	KindUnresolvedRequiredField: ErrUnresolvedRequiredField,
	KindTypeCoercion:            ErrTypeCoercion,
	KindValidationFailed:        ErrValidationFailed,
	KindAssemblyCardinality:     ErrAssemblyCardinality,
	KindStoreUnavailable:        ErrStoreUnavailable,
	KindUnmatchedName:           ErrUnmatchedName,
}

// Error is a classified pipeline failure. Field and Rule are set when the
// failure can be attributed to one field or one parse rule.
type Error struct {
	Err    error
	Kind   Kind
	Field  string
	Rule   string
	Detail string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Rule != "" {
		fmt.Fprintf(&b, " [rule %s]", e.Rule)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " [field %s]", e.Field)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *Error) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

// NewError builds a classified error.
func NewError(kind Kind, field, detail string, err error) *Error {
	return &Error{Kind: kind, Field: field, Detail: detail, Err: err}
}

// RuleError builds a classified error attributed to a parse rule.
func RuleError(kind Kind, rule, detail string, err error) *Error {
	return &Error{Kind: kind, Rule: rule, Detail: detail, Err: err}
}

// KindOf returns the kind of a classified error, or "" when err carries none.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return KindStoreUnavailable
	}
	return ""
}

// MarkUnavailable tags a collaborator failure as StoreUnavailable while
// keeping the original error and message intact.
func MarkUnavailable(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrStoreUnavailable)
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}
