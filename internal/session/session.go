// Package session keeps the server-side state of a client connection to
// one database: which driver and DSN it uses and when it expires.
package session

import (
	"context"
	"errors"
	"time"

	"dbmeta/internal/db"
)

// ErrSessionNotFound is returned when a session is not found
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionExpired is returned when a session has expired
var ErrSessionExpired = errors.New("session expired")

// ErrInvalidToken is returned when a session token fails verification
var ErrInvalidToken = errors.New("invalid session token")

// IsInvalid reports whether err means the caller has no usable session.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrInvalidToken)
}

// Store defines the interface for session storage backends
type Store interface {
	// Get retrieves a session by ID
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Set stores a session with the given TTL
	Set(ctx context.Context, sessionID string, session *Session, ttl time.Duration) error

	// Delete removes a session
	Delete(ctx context.Context, sessionID string) error

	// Close cleans up any resources used by the store
	Close() error
}

// ConnectionInfo identifies the database a session talks to.
type ConnectionInfo struct {
	Driver  string `json:"driver"`
	DSN     string `json:"dsn"`
	Timeout int    `json:"timeout"` // connect timeout, seconds
}

// Key is the connection fingerprint shared with db.Pool and navigator nodes.
func (c ConnectionInfo) Key() string {
	return db.ConnectionKey(c.Driver, c.DSN)
}

// Session represents one client's connection session
type Session struct {
	ID         string         `json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	ExpiresAt  time.Time      `json:"expires_at"`
	LastAccess time.Time      `json:"last_access"`
	Connection ConnectionInfo `json:"connection"`
	RemoteAddr string         `json:"remote_addr,omitempty"`
}

// NewSession creates a new session with the given ID and TTL
func NewSession(id string, conn ConnectionInfo, ttl time.Duration) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
		LastAccess: now,
		Connection: conn,
	}
}

// IsExpired reports whether the session is past its expiry.
func (s *Session) IsExpired() bool {
	return !s.ExpiresAt.After(time.Now())
}

// Touch records an access and pushes the expiry ttl into the future.
func (s *Session) Touch(ttl time.Duration) {
	now := time.Now()
	s.LastAccess = now
	s.ExpiresAt = now.Add(ttl)
}

// ConnectionKey returns the fingerprint of the session's database connection.
func (s *Session) ConnectionKey() string {
	return s.Connection.Key()
}

func (s *Session) clone() *Session {
	cp := *s
	return &cp
}
