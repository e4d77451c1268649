package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		backend := newFakeBackend(KindRelational)
		var seen Transaction
		err := RunTransaction(ctx, backend, func(txCtx context.Context) error {
			seen = TransactionFrom(txCtx)
			return nil
		})
		require.NoError(t, err)
		assert.Same(t, backend.tx, seen)
		assert.True(t, backend.tx.committed)
		assert.False(t, backend.tx.rolledBack)
	})

	t.Run("rollback", func(t *testing.T) {
		backend := newFakeBackend(KindRelational)
		boom := errors.New("boom")
		err := RunTransaction(ctx, backend, func(context.Context) error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.False(t, backend.tx.committed)
		assert.True(t, backend.tx.rolledBack)
	})

	t.Run("no transaction outside", func(t *testing.T) {
		assert.Nil(t, TransactionFrom(ctx))
	})
}

func TestRunTransaction_PanicRollsBack(t *testing.T) {
	backend := newFakeBackend(KindRelational)
	assert.PanicsWithValue(t, "boom", func() {
		_ = RunTransaction(context.Background(), backend, func(context.Context) error {
			panic("boom")
		})
	})
	assert.True(t, backend.tx.rolledBack)
	assert.False(t, backend.tx.committed)
}
