package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var testConn = ConnectionInfo{Driver: "sqlite", DSN: "/tmp/shop.db", Timeout: 5}

func TestMemoryStoreGetSet(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	ctx := context.Background()
	sess := NewSession("s1", testConn, time.Hour)
	sess.RemoteAddr = "10.0.0.1:5000"

	require.NoError(t, store.Set(ctx, "s1", sess, time.Hour))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)
	assert.Equal(t, testConn, got.Connection)
	assert.Equal(t, "10.0.0.1:5000", got.RemoteAddr)

	// the store hands out copies
	got.RemoteAddr = "changed"
	again, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1:5000", again.RemoteAddr)
}

func TestMemoryStoreErrors(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, store.Set(ctx, "old", NewSession("old", testConn, time.Hour), -time.Second))
	_, err = store.Get(ctx, "old")
	assert.ErrorIs(t, err, ErrSessionExpired)

	// expired entries are dropped on read
	_, err = store.Get(ctx, "old")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStoreSetExtendsDelete(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	sess := NewSession("s1", testConn, time.Hour)
	require.NoError(t, store.Set(ctx, "s1", sess, time.Millisecond))
	require.NoError(t, store.Set(ctx, "s1", sess, time.Hour))
	time.Sleep(5 * time.Millisecond)

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err, "a second Set should replace the ttl")
	assert.True(t, got.ExpiresAt.After(time.Now().Add(30*time.Minute)))

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStoreJanitor(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	store := NewMemoryStoreWithInterval(5 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "gone", NewSession("gone", testConn, time.Hour), -time.Second))
	require.NoError(t, store.Set(ctx, "kept", NewSession("kept", testConn, time.Hour), time.Hour))

	assert.Eventually(t, func() bool { return store.Count() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, store.Close())
	require.NoError(t, store.Close(), "second close is a no-op")
	assert.Equal(t, 0, store.Count())
}
