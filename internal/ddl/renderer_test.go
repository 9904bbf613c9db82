package ddl

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbmeta/internal/db"
	_ "dbmeta/internal/db/extractors"
	"dbmeta/internal/navigator"
)

const shopSchema = `
CREATE TABLE customers (
    id INTEGER PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    name TEXT DEFAULT 'anon'
);
CREATE TABLE orders (
    id INTEGER PRIMARY KEY,
    customer_id INTEGER NOT NULL REFERENCES customers(id) ON DELETE CASCADE,
    total REAL
);
CREATE INDEX idx_orders_customer ON orders(customer_id);
CREATE VIEW big_orders AS SELECT id, total FROM orders WHERE total > 100;
`

const customersDDL = `-- customers definition

CREATE TABLE customers (
	id INTEGER,
	email TEXT NOT NULL,
	name TEXT DEFAULT 'anon',
	PRIMARY KEY (id),
	UNIQUE (email)
);`

const ordersDDL = `-- orders definition

CREATE TABLE orders (
	id INTEGER,
	customer_id INTEGER NOT NULL,
	total REAL,
	PRIMARY KEY (id),
	FOREIGN KEY (customer_id) REFERENCES customers (id) ON DELETE CASCADE
);
CREATE INDEX idx_orders_customer ON orders(customer_id);`

const bigOrdersDDL = `-- big_orders definition

CREATE VIEW big_orders AS SELECT id, total FROM orders WHERE total > 100;`

func shopHandle(t *testing.T) *db.Handle {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shop.db")

	pool := db.NewPool(db.DefaultPoolConfig())
	t.Cleanup(func() { pool.Close() })
	h, err := pool.Acquire(ctx, "sqlite", path, 5)
	require.NoError(t, err)
	_, err = h.DB.ExecContext(ctx, shopSchema)
	require.NoError(t, err)
	return h
}

func TestRendererSqlite(t *testing.T) {
	h := shopHandle(t)
	ctx := context.Background()

	var tests = []struct {
		name string
		id   string
		opts Options
		want string
	}{
		{"table", "main/tables/customers", DefaultOptions(), customersDDL},
		{"table with fk and index", "main/tables/orders", DefaultOptions(), ordersDDL},
		{"view", "main/views/big_orders", DefaultOptions(), bigOrdersDDL},
		{"index", "main/tables/orders/indexes/idx_orders_customer", Options{},
			"CREATE INDEX idx_orders_customer ON orders(customer_id);"},
		{"indexes folder", "main/tables/orders/indexes", Options{Drop: true},
			"DROP INDEX idx_orders_customer;\n\nCREATE INDEX idx_orders_customer ON orders(customer_id);"},
		{"tables folder", "main/tables", DefaultOptions(), customersDDL + "\n\n" + ordersDDL},
		{"views folder", "main/views", DefaultOptions(), bigOrdersDDL},
		{"schema", "main", DefaultOptions(), "-- schema main\n\n" + customersDDL + "\n\n" + ordersDDL + "\n\n" + bigOrdersDDL},
		{"schema not nested", "main", Options{Comments: true}, "-- schema main"},
		{"database", "", DefaultOptions(), "-- schema main\n\n" + customersDDL + "\n\n" + ordersDDL + "\n\n" + bigOrdersDDL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := navigator.Resolve(ctx, h, tt.id)
			require.NoError(t, err)

			got, err := NewRenderer(h, tt.opts).Render(ctx, n)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRendererDeterministic(t *testing.T) {
	h := shopHandle(t)
	ctx := context.Background()
	n, err := navigator.Resolve(ctx, h, "")
	require.NoError(t, err)

	first, err := NewRenderer(h, DefaultOptions()).Render(ctx, n)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := NewRenderer(h, DefaultOptions()).Render(ctx, n)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRendererVanishedObject(t *testing.T) {
	h := shopHandle(t)
	ctx := context.Background()

	table, err := navigator.Resolve(ctx, h, "main/tables/orders")
	require.NoError(t, err)
	index, err := navigator.Resolve(ctx, h, "main/tables/orders/indexes/idx_orders_customer")
	require.NoError(t, err)

	_, err = h.DB.ExecContext(ctx, "DROP INDEX idx_orders_customer")
	require.NoError(t, err)
	_, err = NewRenderer(h, DefaultOptions()).Render(ctx, index)
	assert.True(t, errors.Is(err, db.ErrNotFound), "got %v", err)

	_, err = h.DB.ExecContext(ctx, "DROP TABLE orders")
	require.NoError(t, err)
	_, err = NewRenderer(h, DefaultOptions()).Render(ctx, table)
	assert.True(t, errors.Is(err, db.ErrNotFound), "got %v", err)
}
