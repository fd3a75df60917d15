package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeInternal, "append audit record")

	assert.True(t, HasCode(err, CodeInternal))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "append audit record: connection refused", err.Error())
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, CodeInternal, "noop"))
}

func TestOutermostCodeWins(t *testing.T) {
	inner := New(CodeValidation, "actor_id is required")
	outer := fmt.Errorf("create record: %w", inner)

	assert.True(t, Is(outer, CodeValidation))
	assert.False(t, Is(outer, CodeInternal))
	assert.Equal(t, CodeValidation, CodeOf(outer))
}

func TestCodeOfUncoded(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
}
