package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/nacl/secretbox"

	"dbmeta/pkg/config"
)

// DefaultKeyPrefix is used when no prefix is configured.
const DefaultKeyPrefix = "dbmeta:session:"

// ErrSealedValue is returned when a stored value cannot be opened, e.g.
// after the secret changed.
var ErrSealedValue = errors.New("session value cannot be opened")

const nonceSize = 24

// RedisStore is a Redis-backed session store. Sessions are JSON values,
// sealed with secretbox since they carry DSNs, whose Redis TTL tracks the
// session expiry.
type RedisStore struct {
	client *redis.Client
	prefix string
	key    [32]byte
}

// NewRedisStore creates a store from the redis section of the configuration.
// Values are sealed with a key derived from secret; an empty secret gives a
// random key, so sessions do not survive a restart.
func NewRedisStore(cfg config.RedisConfig, secret string) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	return NewRedisStoreFromClient(client, cfg.KeyPrefix, secret)
}

// NewRedisStoreFromClient creates a new Redis store from an existing client
func NewRedisStoreFromClient(client *redis.Client, keyPrefix, secret string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	s := &RedisStore{
		client: client,
		prefix: keyPrefix,
	}
	if secret == "" {
		if _, err := rand.Read(s.key[:]); err != nil {
			panic(fmt.Sprintf("session: read random key: %v", err))
		}
	} else {
		s.key = sha256.Sum256([]byte("dbmeta session store\x00" + secret))
	}
	return s
}

// Get retrieves a session from Redis
func (s *RedisStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	key := s.redisKey(sessionID)

	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	plain, err := s.open(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionNotFound, err)
	}

	var sess Session
	if err := json.Unmarshal(plain, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}

	if sess.IsExpired() {
		s.client.Del(ctx, key)
		return nil, ErrSessionExpired
	}

	return &sess, nil
}

// Set stores a session in Redis
func (s *RedisStore) Set(ctx context.Context, sessionID string, session *Session, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	sealed, err := s.seal(data)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.redisKey(sessionID), sealed, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes a session from Redis
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.redisKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) redisKey(sessionID string) string {
	return s.prefix + sessionID
}

// seal prepends a random nonce to the secretbox of data.
func (s *RedisStore) seal(data []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("session nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], data, &nonce, &s.key), nil
}

func (s *RedisStore) open(sealed []byte) ([]byte, error) {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return nil, ErrSealedValue
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &s.key)
	if !ok {
		return nil, ErrSealedValue
	}
	return plain, nil
}
