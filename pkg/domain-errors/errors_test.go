package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	err := New(CodeValidation, "waiting period not elapsed")
	assert.True(t, HasCode(err, CodeValidation))
	assert.False(t, HasCode(err, CodeNotFound))
	assert.False(t, HasCode(nil, CodeValidation))
	assert.False(t, HasCode(errors.New("plain"), CodeValidation))
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeInternal, "failed to persist review")

	assert.True(t, HasCode(err, CodeInternal))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "failed to persist review")

	assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
}

func TestHasCode_ThroughFmtWrapping(t *testing.T) {
	inner := New(CodeConflict, "voucher already redeemed")
	outer := fmt.Errorf("redeem: %w", inner)
	assert.True(t, HasCode(outer, CodeConflict))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeForbidden, CodeOf(New(CodeForbidden, "not the managing guardian")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}
