package extractors

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbmeta/internal/db"
	"dbmeta/internal/introspect"
)

func TestPostgresTable(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectQuery(`SELECT obj_description\(c\.oid, 'pg_class'\)`).
		WithArgs("public", "orders").
		WillReturnRows(sqlmock.NewRows([]string{"comment"}).AddRow("customer orders"))
	mock.ExpectQuery(`FROM pg_attribute a`).
		WithArgs("public", "orders").
		WillReturnRows(sqlmock.NewRows([]string{"attname", "type", "nullable", "default", "comment"}).
			AddRow("id", "integer", false, "nextval('orders_id_seq'::regclass)", nil).
			AddRow("customer_id", "integer", false, nil, "owner").
			AddRow("note", "text", true, nil, nil))
	mock.ExpectQuery(`FROM pg_constraint con`).
		WithArgs("public", "orders").
		WillReturnRows(sqlmock.NewRows([]string{"conname", "contype", "def"}).
			AddRow("orders_pkey", "p", "PRIMARY KEY (id)").
			AddRow("orders_customer_fk", "f", "FOREIGN KEY (customer_id) REFERENCES customers(id) ON DELETE CASCADE"))
	mock.ExpectQuery(`FROM pg_index ix`).
		WithArgs("public", "orders").
		WillReturnRows(sqlmock.NewRows([]string{"relname", "indisunique", "def"}).
			AddRow("orders_note_idx", false, "CREATE INDEX orders_note_idx ON public.orders USING btree (note)"))

	tbl, err := pgCatalog{}.Table(context.Background(), conn, "public", "orders")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.NotNil(t, tbl.Comment)
	assert.Equal(t, "customer orders", *tbl.Comment)

	require.Len(t, tbl.Columns, 3)
	assert.True(t, tbl.Columns[0].PK)
	assert.False(t, tbl.Columns[1].PK)
	require.NotNil(t, tbl.Columns[0].Default)
	assert.Equal(t, "nextval('orders_id_seq'::regclass)", *tbl.Columns[0].Default)
	assert.Nil(t, tbl.Columns[1].Default)
	require.NotNil(t, tbl.Columns[1].Comment)
	assert.Equal(t, "owner", *tbl.Columns[1].Comment)
	assert.True(t, tbl.Columns[2].Nullable)

	require.Len(t, tbl.Constraints, 2)
	assert.Equal(t, introspect.PrimaryKey, tbl.Constraints[0].Kind)
	assert.Equal(t, []string{"id"}, tbl.Constraints[0].Columns)
	assert.Equal(t, introspect.ForeignKey, tbl.Constraints[1].Kind)
	assert.Contains(t, tbl.Constraints[1].Definition, "REFERENCES customers(id)")

	require.Len(t, tbl.Indexes, 1)
	assert.Equal(t, "orders_note_idx", tbl.Indexes[0].Name)
}

func TestPostgresTableNotFound(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectQuery(`SELECT obj_description`).
		WithArgs("public", "ghost").
		WillReturnError(sql.ErrNoRows)

	_, err = pgCatalog{}.Table(context.Background(), conn, "public", "ghost")
	assert.ErrorIs(t, err, db.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresView(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectQuery(`pg_get_viewdef`).
		WithArgs("public", "active_customers").
		WillReturnRows(sqlmock.NewRows([]string{"def", "comment"}).
			AddRow(" SELECT customers.id\n   FROM customers;", nil))

	v, err := pgCatalog{}.View(context.Background(), conn, "public", "active_customers")
	require.NoError(t, err)
	assert.Equal(t, "SELECT customers.id\n   FROM customers", v.Definition)
	assert.Nil(t, v.Comment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSchemas(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectQuery(`FROM pg_catalog.pg_namespace`).
		WillReturnRows(sqlmock.NewRows([]string{"nspname"}).AddRow("public").AddRow("sales"))

	got, err := pgCatalog{}.Schemas(context.Background(), conn)
	require.NoError(t, err)
	assert.Equal(t, []string{"public", "sales"}, got)
}

func TestParseColumnList(t *testing.T) {
	var tests = []struct {
		name string
		def  string
		want []string
	}{
		{"single", "PRIMARY KEY (id)", []string{"id"}},
		{"composite", "PRIMARY KEY (order_id, line_no)", []string{"order_id", "line_no"}},
		{"quoted", `PRIMARY KEY ("Order Id")`, []string{"Order Id"}},
		{"no parens", "PRIMARY KEY", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseColumnList(tt.def))
		})
	}
}
