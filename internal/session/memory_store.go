package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process. A janitor goroutine drops expired
// entries until Close is called.
type MemoryStore struct {
	sessions sync.Map
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type sessionEntry struct {
	session   *Session
	expiresAt time.Time
}

// NewMemoryStore creates a store that sweeps expired sessions every minute.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithInterval(time.Minute)
}

// NewMemoryStoreWithInterval creates a store with the given sweep interval.
func NewMemoryStoreWithInterval(interval time.Duration) *MemoryStore {
	store := &MemoryStore{
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanup(interval)

	return store
}

// Get returns a copy of the stored session.
func (s *MemoryStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	value, ok := s.sessions.Load(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}

	entry := value.(*sessionEntry)
	if !entry.expiresAt.After(time.Now()) {
		s.sessions.Delete(sessionID)
		return nil, ErrSessionExpired
	}

	return entry.session.clone(), nil
}

// Set stores a copy of session.
func (s *MemoryStore) Set(ctx context.Context, sessionID string, session *Session, ttl time.Duration) error {
	entry := &sessionEntry{
		session:   session.clone(),
		expiresAt: time.Now().Add(ttl),
	}
	s.sessions.Store(sessionID, entry)
	return nil
}

// Delete removes a session from memory
func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.sessions.Delete(sessionID)
	return nil
}

// Close stops the janitor and clears all sessions. It is safe to call twice.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
	s.sessions.Range(func(key, value any) bool {
		s.sessions.Delete(key)
		return true
	})
	return nil
}

func (s *MemoryStore) cleanup(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sweep(time.Now())
		}
	}
}

func (s *MemoryStore) sweep(now time.Time) {
	s.sessions.Range(func(key, value any) bool {
		entry := value.(*sessionEntry)
		if !entry.expiresAt.After(now) {
			s.sessions.Delete(key)
		}
		return true
	})
}

// Count returns the number of stored sessions, expired ones included until swept.
func (s *MemoryStore) Count() int {
	count := 0
	s.sessions.Range(func(key, value any) bool {
		count++
		return true
	})
	return count
}
