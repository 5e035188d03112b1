package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsConflictError(t *testing.T) {
	assert.False(t, isConflictError(nil))
	assert.True(t, isConflictError(errors.New("database is locked (5) (SQLITE_BUSY)")))
	assert.True(t, isConflictError(errors.New("database is locked")))
	assert.False(t, isConflictError(errors.New("no such table: sessions")))
}

func TestWithBusyRetry(t *testing.T) {
	ctx := context.Background()

	calls := 0
	err := withBusyRetry(ctx, "op", func() error {
		calls++
		if calls < 2 {
			return errors.New("SQLITE_BUSY")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	calls = 0
	permanent := errors.New("constraint failed")
	err = withBusyRetry(ctx, "op", func() error {
		calls++
		return permanent
	})
	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)

	calls = 0
	err = withBusyRetry(ctx, "op", func() error {
		calls++
		return errors.New("database is locked")
	})
	require.Error(t, err)
	assert.Equal(t, busyMaxRetries, calls)
}
