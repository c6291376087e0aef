package common

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_IsMatchesKindSentinel(t *testing.T) {
	err := NewError(KindValidationFailed, "rank", "max 100", nil)

	assert.True(t, errors.Is(err, ErrValidationFailed))
	assert.False(t, errors.Is(err, ErrTypeCoercion))
	assert.Equal(t, KindValidationFailed, KindOf(err))

	wrapped := fmt.Errorf("record 2024-03-01: %w", err)
	assert.True(t, errors.Is(wrapped, ErrValidationFailed))
	assert.Equal(t, KindValidationFailed, KindOf(wrapped))
}

func TestError_Message(t *testing.T) {
	err := RuleError(KindRuleExecutionFailure, "names", "bad pattern", errors.New("missing )"))
	assert.Equal(t, "rule_execution_failure [rule names]: bad pattern: missing )", err.Error())

	err = NewError(KindUnresolvedRequiredField, "rank", "", nil)
	assert.Equal(t, "unresolved_required_field [field rank]", err.Error())
}

func TestMarkUnavailable(t *testing.T) {
	assert.NoError(t, MarkUnavailable(nil))

	base := errors.New("disk I/O error")
	err := MarkUnavailable(base)

	assert.Equal(t, "disk I/O error", err.Error())
	assert.True(t, errors.Is(err, ErrStoreUnavailable))
	assert.True(t, errors.Is(err, base))
	assert.Equal(t, KindStoreUnavailable, KindOf(err))
}

func TestUserError(t *testing.T) {
	err := NewUserError("could not import", errors.New("boom"))
	assert.Equal(t, "could not import: boom", err.Error())

	var ue *UserError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "could not import", ue.UserMessage)
}

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, setupLogger(&buf, "debug", "json"))
	LogDebug("hello", Fields{"k": "v"})
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	assert.ErrorIs(t, setupLogger(&buf, "loud", "json"), ErrInvalidConfig)
	assert.ErrorIs(t, setupLogger(&buf, "info", "xml"), ErrInvalidConfig)
}
