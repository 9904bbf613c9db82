package extractors

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbmeta/internal/db"
	"dbmeta/internal/introspect"
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

// openShop creates a small sqlite database in a temp dir.
func openShop(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shop.db")
	conn, err := db.Open(context.Background(), "sqlite", path)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_, err = conn.Exec(shopSchema)
	require.NoError(t, err)
	return conn
}

func TestSqliteListings(t *testing.T) {
	conn := openShop(t)
	ctx := context.Background()
	c := sqliteCatalog{}

	schemas, err := c.Schemas(ctx, conn)
	require.NoError(t, err)
	assert.Equal(t, []string{"main"}, schemas)

	tables, err := c.Tables(ctx, conn, "main")
	require.NoError(t, err)
	assert.Equal(t, []string{"customers", "orders"}, tables)

	views, err := c.Views(ctx, conn, "main")
	require.NoError(t, err)
	assert.Equal(t, []string{"big_orders"}, views)
}

func TestSqliteTable(t *testing.T) {
	conn := openShop(t)
	ctx := context.Background()
	c := sqliteCatalog{}

	t.Run("customers", func(t *testing.T) {
		tbl, err := c.Table(ctx, conn, "main", "customers")
		require.NoError(t, err)
		require.Len(t, tbl.Columns, 3)

		assert.Equal(t, "id", tbl.Columns[0].Name)
		assert.Equal(t, "INTEGER", tbl.Columns[0].Type)
		assert.True(t, tbl.Columns[0].PK)
		assert.False(t, tbl.Columns[1].Nullable, "email is NOT NULL")
		require.NotNil(t, tbl.Columns[2].Default)
		assert.Equal(t, "'anon'", *tbl.Columns[2].Default)

		require.Len(t, tbl.Constraints, 2)
		assert.Equal(t, introspect.PrimaryKey, tbl.Constraints[0].Kind)
		assert.Equal(t, []string{"id"}, tbl.Constraints[0].Columns)
		assert.Equal(t, introspect.Unique, tbl.Constraints[1].Kind)
		assert.Equal(t, []string{"email"}, tbl.Constraints[1].Columns)
		assert.Empty(t, tbl.Indexes)
	})

	t.Run("orders", func(t *testing.T) {
		tbl, err := c.Table(ctx, conn, "main", "orders")
		require.NoError(t, err)

		var fk *introspect.Constraint
		for i := range tbl.Constraints {
			if tbl.Constraints[i].Kind == introspect.ForeignKey {
				fk = &tbl.Constraints[i]
			}
		}
		require.NotNil(t, fk, "foreign key not found in %v", tbl.Constraints)
		assert.Equal(t, "customers", fk.RefTable)
		assert.Equal(t, []string{"customer_id"}, fk.Columns)
		assert.Equal(t, []string{"id"}, fk.RefColumns)
		assert.Equal(t, "CASCADE", fk.OnDelete)
		assert.Empty(t, fk.OnUpdate)

		require.Len(t, tbl.Indexes, 1)
		ix := tbl.Indexes[0]
		assert.Equal(t, "idx_orders_customer", ix.Name)
		assert.False(t, ix.Unique)
		assert.Equal(t, []string{"customer_id"}, ix.Columns)
		assert.Equal(t, "CREATE INDEX idx_orders_customer ON orders(customer_id)", ix.Definition)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := c.Table(ctx, conn, "main", "nope")
		assert.True(t, errors.Is(err, db.ErrNotFound), "got %v", err)
	})
}

func TestSqliteView(t *testing.T) {
	conn := openShop(t)
	ctx := context.Background()
	c := sqliteCatalog{}

	v, err := c.View(ctx, conn, "main", "big_orders")
	require.NoError(t, err)
	assert.Equal(t, "CREATE VIEW big_orders AS SELECT id, total FROM orders WHERE total > 100", v.Source)
	assert.Empty(t, v.Definition)

	_, err = c.View(ctx, conn, "main", "customers")
	assert.ErrorIs(t, err, db.ErrNotFound)
}
