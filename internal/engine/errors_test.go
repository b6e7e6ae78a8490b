package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleError_Error(t *testing.T) {
	err := NewNoSuchRequestError(1, 2)
	assert.Equal(t, "NO_SUCH_REQUEST: grant attempted with no pending request (process=P1, resource=R2)", err.Error())

	bare := &RuleError{Code: ErrCodeMalformedStatement, Message: "unparsable", Process: -1, Resource: -1}
	assert.Equal(t, "MALFORMED_STATEMENT: unparsable", bare.Error())
}

func TestRuleError_Fatal(t *testing.T) {
	assert.False(t, NewNoSuchRequestError(0, 0).Fatal())
	assert.False(t, NewResourceUnavailableError(0, 0).Fatal())
	assert.False(t, NewNotHeldError(0, 0).Fatal())
	assert.True(t, (&RuleError{Code: ErrCodeIndexOutOfRange}).Fatal())
}

func TestAsRuleError(t *testing.T) {
	inner := NewNotHeldError(0, 1)
	wrapped := fmt.Errorf("applying statement: %w", inner)

	re, ok := AsRuleError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeNotHeld, re.Code)

	_, ok = AsRuleError(errors.New("plain"))
	assert.False(t, ok)
}
