package memrepo

import (
	"context"
	"testing"
	"time"

	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockManager_Reentrant(t *testing.T) {
	m := newLockManager()
	ctx := t.Context()

	require.NoError(t, m.acquire(ctx, 1, "user:1"))
	require.NoError(t, m.acquire(ctx, 1, "user:1"))
	assert.Equal(t, 1, m.heldCount())

	m.releaseAll(1)
	assert.Equal(t, 0, m.heldCount())
}

func TestLockManager_WaitsForRelease(t *testing.T) {
	m := newLockManager()
	ctx := t.Context()

	require.NoError(t, m.acquire(ctx, 1, "movie:1"))

	acquired := make(chan error, 1)
	go func() {
		acquired <- m.acquire(ctx, 2, "movie:1")
	}()

	select {
	case <-acquired:
		t.Fatal("lock acquired while held by another transaction")
	case <-time.After(50 * time.Millisecond):
	}

	m.releaseAll(1)
	select {
	case err := <-acquired:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("lock was not acquired after release")
	}
}

func TestLockManager_DetectsCycle(t *testing.T) {
	m := newLockManager()
	ctx := t.Context()

	require.NoError(t, m.acquire(ctx, 1, "user:1"))
	require.NoError(t, m.acquire(ctx, 2, "cart_items:1"))

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- m.acquire(ctx, 1, "cart_items:1")
	}()

	// ждем, пока первая транзакция встанет в ожидание.
	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		_, waiting := m.waits[1]
		return waiting
	}, time.Second, time.Millisecond)

	err := m.acquire(ctx, 2, "user:1")
	require.ErrorIs(t, err, domain.ErrDeadlock)

	// жертва откатывается, первая транзакция получает блокировку.
	m.releaseAll(2)
	select {
	case firstErr := <-firstDone:
		require.NoError(t, firstErr)
	case <-time.After(time.Second):
		t.Fatal("surviving transaction did not get the lock")
	}
}

func TestLockManager_ContextCanceled(t *testing.T) {
	m := newLockManager()
	require.NoError(t, m.acquire(t.Context(), 1, "order:1"))

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()

	err := m.acquire(ctx, 2, "order:1")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	m.mu.Lock()
	_, waiting := m.waits[2]
	m.mu.Unlock()
	assert.False(t, waiting)
}
