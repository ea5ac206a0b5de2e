package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitErr(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, exitErr(nil))
	})

	t.Run("context cancellation is a clean stop", func(t *testing.T) {
		assert.NoError(t, exitErr(context.Canceled))
		assert.NoError(t, exitErr(fmt.Errorf("worker: %w", context.Canceled)))
	})

	t.Run("real failures propagate", func(t *testing.T) {
		cause := errors.New("listen tcp :8080: address already in use")
		assert.Equal(t, cause, exitErr(cause))
	})
}
