package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbmeta/pkg/config"
)

func TestManagerLifecycle(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, "test-secret", time.Hour)
	defer m.Shutdown()
	ctx := context.Background()

	sess, token, err := m.Open(ctx, testConn, "127.0.0.1:1234")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, "127.0.0.1:1234", sess.RemoteAddr)
	assert.Equal(t, testConn.Key(), sess.ConnectionKey())

	time.Sleep(2 * time.Millisecond)
	got, err := m.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.True(t, got.LastAccess.After(sess.LastAccess), "resolve should record the access")
	assert.False(t, got.IsExpired())

	require.NoError(t, m.Close(ctx, token))
	_, err = m.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.True(t, IsInvalid(err))
}

func TestManagerRejectsBadTokens(t *testing.T) {
	m := NewManager(NewMemoryStore(), "test-secret", time.Hour)
	defer m.Shutdown()
	other := NewManager(NewMemoryStore(), "other-secret", time.Hour)
	defer other.Shutdown()
	ctx := context.Background()

	_, foreign, err := other.Open(ctx, testConn, "")
	require.NoError(t, err)

	var tests = []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{"other secret", foreign},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Resolve(ctx, tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.True(t, IsInvalid(err))
		})
	}
}

func TestManagerExpiredSession(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, "test-secret", time.Hour)
	defer m.Shutdown()
	ctx := context.Background()

	sess, token, err := m.Open(ctx, testConn, "")
	require.NoError(t, err)

	// overwrite with an entry that is already past its ttl
	require.NoError(t, store.Set(ctx, sess.ID, sess, -time.Second))
	_, err = m.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestManagerRandomSecret(t *testing.T) {
	m := NewManager(NewMemoryStore(), "", time.Minute)
	defer m.Shutdown()

	assert.NotEmpty(t, m.secret)
	assert.Equal(t, DefaultMaxLifetime, m.maxLifetime)
	assert.Equal(t, time.Minute, m.TTL())
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	var tests = []struct {
		name     string
		session  config.SessionConfig
		redis    config.RedisConfig
		errIsNil bool
	}{
		{"memory", config.SessionConfig{Store: "memory"}, config.RedisConfig{}, true},
		{"redis", config.SessionConfig{Store: "redis"}, config.RedisConfig{Addr: mr.Addr()}, true},
		{"unknown", config.SessionConfig{Store: "etcd"}, config.RedisConfig{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewStore(ctx, config.AppConfig{Session: tt.session, Redis: tt.redis})

			if (err == nil) != tt.errIsNil {
				if tt.errIsNil {
					t.Errorf("\ngot unexpected error: \"%v\"", err)
				} else {
					t.Errorf("\nexpected an error, did not receive one")
				}
			}
			if store != nil {
				store.Close()
			}
		})
	}
}
