package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"dbmeta/internal/logger"
	"dbmeta/pkg/config"
)

// DefaultMaxLifetime bounds how long a token stays valid, however often
// the session is used.
const DefaultMaxLifetime = 24 * time.Hour

// Manager opens, resolves and closes sessions. Clients hold a signed
// token; the session itself lives in the Store.
type Manager struct {
	store       Store
	secret      []byte
	ttl         time.Duration
	maxLifetime time.Duration
}

// NewManager creates a manager. An empty secret is replaced by a random
// one, which invalidates tokens on restart.
func NewManager(store Store, secret string, ttl time.Duration) *Manager {
	if secret == "" {
		logger.Warn("session secret not configured, using a random one")
		secret = uuid.NewString() + uuid.NewString()
	}
	maxLifetime := DefaultMaxLifetime
	if ttl > maxLifetime {
		maxLifetime = ttl
	}
	return &Manager{store: store, secret: []byte(secret), ttl: ttl, maxLifetime: maxLifetime}
}

// NewStore builds the store selected by cfg.Session.Store.
func NewStore(ctx context.Context, cfg config.AppConfig) (Store, error) {
	switch cfg.Session.Store {
	case "redis":
		rs := NewRedisStore(cfg.Redis, cfg.Session.Secret)
		if err := rs.Ping(ctx); err != nil {
			rs.Close()
			return nil, fmt.Errorf("redis %s: %w", cfg.Redis.Addr, err)
		}
		return rs, nil
	case "memory", "":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Session.Store)
	}
}

// TTL is the idle timeout of a session.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Open creates a session for conn and returns it with its token.
func (m *Manager) Open(ctx context.Context, conn ConnectionInfo, remoteAddr string) (*Session, string, error) {
	sess := NewSession(uuid.NewString(), conn, m.ttl)
	sess.RemoteAddr = remoteAddr

	token, err := signToken(m.secret, sess.ID, sess.CreatedAt, m.maxLifetime)
	if err != nil {
		return nil, "", fmt.Errorf("sign token: %w", err)
	}
	if err := m.store.Set(ctx, sess.ID, sess, m.ttl); err != nil {
		return nil, "", fmt.Errorf("store session: %w", err)
	}
	logger.Info("session %s opened for %s connection %s", sess.ID, conn.Driver, conn.Key())
	return sess, token, nil
}

// Resolve verifies token and returns its session with the expiry pushed
// forward by the TTL.
func (m *Manager) Resolve(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	id, err := parseToken(m.secret, token)
	if err != nil {
		return nil, err
	}
	sess, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.Touch(m.ttl)
	if err := m.store.Set(ctx, id, sess, m.ttl); err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	return sess, nil
}

// Close deletes the session named by token.
func (m *Manager) Close(ctx context.Context, token string) error {
	id, err := parseToken(m.secret, token)
	if err != nil {
		return err
	}
	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}
	logger.Info("session %s closed", id)
	return nil
}

// Shutdown closes the underlying store.
func (m *Manager) Shutdown() error {
	return m.store.Close()
}
