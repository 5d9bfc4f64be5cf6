package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLockerExclusivity(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	a := NewFileLocker(dir)
	b := NewFileLocker(dir)

	require.NoError(t, a.Lock(ctx))

	ok, err := b.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "second locker must not acquire while first holds the lock")

	require.NoError(t, a.Unlock())

	ok, err = b.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, b.Unlock())
}

func TestFileLockerUnlockWithoutLockIsNoop(t *testing.T) {
	l := NewFileLocker(t.TempDir())
	assert.NoError(t, l.Unlock())
}
