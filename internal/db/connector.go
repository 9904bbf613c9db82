package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"dbmeta/internal/introspect"
	"dbmeta/pkg/config"
)

// ErrNotFound is returned by a Catalog when the requested object does not exist.
var ErrNotFound = errors.New("object not found")

// Catalog reads object metadata for one SQL dialect. Listings are sorted by name.
type Catalog interface {
	Schemas(ctx context.Context, conn *sql.DB) ([]string, error)
	Tables(ctx context.Context, conn *sql.DB, schema string) ([]string, error)
	Views(ctx context.Context, conn *sql.DB, schema string) ([]string, error)

	// Table loads columns, constraints and indexes of schema.name.
	Table(ctx context.Context, conn *sql.DB, schema, name string) (*introspect.Table, error)
	View(ctx context.Context, conn *sql.DB, schema, name string) (*introspect.View, error)
}

var (
	dialectsMu sync.RWMutex
	dialects   = map[string]Catalog{}
)

// Register makes a Catalog available under name.
func Register(name string, c Catalog) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	dialects[strings.ToLower(name)] = c
}

// Lookup returns the Catalog registered for driver (aliases are normalized).
func Lookup(driver string) (Catalog, bool) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	c, ok := dialects[config.NormalizeDriver(driver)]
	return c, ok
}

// RegisteredDialects returns the registered dialect keys, sorted.
func RegisteredDialects() []string {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	keys := make([]string, 0, len(dialects))
	for k := range dialects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Contains reports whether name is in the sorted or unsorted list names.
func Contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// Open connects to the database and checks it answers within the context deadline.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	driver = config.NormalizeDriver(driver)
	if _, ok := Lookup(driver); !ok {
		return nil, fmt.Errorf("dialect not registered: %q (available: %v)", driver, RegisteredDialects())
	}
	dbConn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := dbConn.PingContext(ctx); err != nil {
		dbConn.Close()
		return nil, err
	}
	return dbConn, nil
}
