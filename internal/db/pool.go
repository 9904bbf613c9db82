package db

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"dbmeta/internal/logger"
	"dbmeta/pkg/config"
)

// Handle is a live connection to one database together with its dialect catalog.
// Callers that got it from Pool.Acquire hand it back with Pool.Release.
type Handle struct {
	Key     string // connection fingerprint, see ConnectionKey
	Dialect string
	Catalog Catalog
	DB      *sql.DB

	// guarded by the owning Pool's mu
	refs     int
	lastUsed time.Time
}

// ConnectionKey fingerprints a driver/DSN pair without exposing the DSN.
func ConnectionKey(driver, dsn string) string {
	sum := sha256.Sum256([]byte(config.NormalizeDriver(driver) + "\x00" + dsn))
	return hex.EncodeToString(sum[:16])
}

// ErrPoolClosed is returned by Acquire after Close.
var ErrPoolClosed = errors.New("pool is closed")

// PoolConfig holds *sql.DB tuning applied to every opened connection.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// IdleTimeout closes handles nobody has acquired for this long.
	// Zero keeps handles until Close.
	IdleTimeout time.Duration
}

// DefaultPoolConfig returns conservative pool settings for catalog reads.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    8,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 10 * time.Minute,
		IdleTimeout:     30 * time.Minute,
	}
}

// Pool shares one *sql.DB per connection key across sessions. Connects
// run outside the lock, one per key at a time.
type Pool struct {
	mu      sync.Mutex
	cfg     PoolConfig
	handles map[string]*Handle
	closed  bool

	dials singleflight.Group

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewPool creates an empty pool. With a positive IdleTimeout a janitor
// goroutine evicts idle handles until Close.
func NewPool(cfg PoolConfig) *Pool {
	p := &Pool{
		cfg:      cfg,
		handles:  make(map[string]*Handle),
		stopChan: make(chan struct{}),
	}
	if cfg.IdleTimeout > 0 {
		interval := cfg.IdleTimeout / 2
		if interval < time.Second {
			interval = time.Second
		}
		p.wg.Add(1)
		go p.cleanup(interval)
	}
	return p
}

// Acquire returns the handle for driver/dsn, opening and pinging it on first use.
// timeoutSec bounds the initial connect. The handle stays open at least
// until the matching Release.
func (p *Pool) Acquire(ctx context.Context, driver, dsn string, timeoutSec int) (*Handle, error) {
	driver = config.NormalizeDriver(driver)
	key := ConnectionKey(driver, dsn)

	for {
		if h, err := p.take(key); h != nil || err != nil {
			return h, err
		}
		if _, err, _ := p.dials.Do(key, func() (any, error) {
			return nil, p.dial(ctx, key, driver, dsn, timeoutSec)
		}); err != nil {
			return nil, err
		}
		// the dialed handle is in the map unless it was evicted meanwhile
	}
}

// take returns the cached handle for key with its reference taken.
func (p *Pool) take(key string) (*Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPoolClosed
	}
	h, ok := p.handles[key]
	if !ok {
		return nil, nil
	}
	h.refs++
	h.lastUsed = time.Now()
	return h, nil
}

func (p *Pool) dial(ctx context.Context, key, driver, dsn string, timeoutSec int) error {
	catalog, ok := Lookup(driver)
	if !ok {
		return fmt.Errorf("dialect not registered: %q (available: %v)", driver, RegisteredDialects())
	}
	if timeoutSec <= 0 {
		timeoutSec = 10
	}
	cctx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSec)*time.Second)
	defer cancel()
	dbConn, err := Open(cctx, driver, dsn)
	if err != nil {
		return err
	}
	dbConn.SetMaxOpenConns(p.cfg.MaxOpenConns)
	dbConn.SetMaxIdleConns(p.cfg.MaxIdleConns)
	dbConn.SetConnMaxLifetime(p.cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(p.cfg.ConnMaxIdleTime)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		dbConn.Close()
		return ErrPoolClosed
	}
	if _, ok := p.handles[key]; ok {
		dbConn.Close()
		return nil
	}
	p.handles[key] = &Handle{Key: key, Dialect: driver, Catalog: catalog, DB: dbConn, lastUsed: time.Now()}
	logger.Info("opened %s connection %s (%s)", driver, key, logger.Mask(dsn))
	return nil
}

// Release hands back a handle from Acquire.
func (p *Pool) Release(h *Handle) {
	if h == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if h.refs > 0 {
		h.refs--
	}
	h.lastUsed = time.Now()
}

// Len returns the number of open handles.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.handles)
}

func (p *Pool) cleanup(interval time.Duration) {
	defer p.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopChan:
			return
		case <-ticker.C:
			p.evictIdle(time.Now())
		}
	}
}

// evictIdle closes unreferenced handles unused since before now-IdleTimeout
// and returns how many it closed.
func (p *Pool) evictIdle(now time.Time) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for key, h := range p.handles {
		if h.refs > 0 || now.Sub(h.lastUsed) < p.cfg.IdleTimeout {
			continue
		}
		if err := h.DB.Close(); err != nil {
			logger.Warn("close idle connection %s: %v", key, err)
		}
		delete(p.handles, key)
		logger.Info("closed idle %s connection %s", h.Dialect, key)
		n++
	}
	return n
}

// Close stops the janitor and closes every handle. Acquire fails afterwards.
func (p *Pool) Close() error {
	p.stopOnce.Do(func() {
		close(p.stopChan)
	})
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for key, h := range p.handles {
		if err := h.DB.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close %s: %w", key, err)
		}
	}
	p.handles = map[string]*Handle{}
	p.closed = true
	return firstErr
}
