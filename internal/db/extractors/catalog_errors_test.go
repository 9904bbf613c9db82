package extractors

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbmeta/internal/db"
)

var errTimeout = errors.New("canceling statement due to statement timeout")

var keyColumns = []string{"name", "kind", "column", "ref_schema", "ref_table", "ref_column", "update_rule", "delete_rule"}

func expectPgTable(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(`SELECT obj_description\(c\.oid, 'pg_class'\)`).
		WillReturnRows(sqlmock.NewRows([]string{"comment"}).AddRow(nil))
	mock.ExpectQuery(`FROM pg_attribute a`).
		WillReturnRows(sqlmock.NewRows([]string{"attname", "type", "nullable", "default", "comment"}).
			AddRow("id", "integer", false, nil, nil))
	mock.ExpectQuery(`FROM pg_constraint con`).
		WillReturnRows(sqlmock.NewRows([]string{"conname", "contype", "def"}))
}

func expectMysqlTable(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(`SELECT table_comment, engine, table_collation`).
		WillReturnRows(sqlmock.NewRows([]string{"comment", "engine", "collation"}).AddRow("", "InnoDB", nil))
	mock.ExpectQuery(`FROM information_schema\.columns`).
		WillReturnRows(sqlmock.NewRows([]string{"name", "type", "nullable", "default", "extra", "comment"}).
			AddRow("id", "int", false, nil, "auto_increment", ""))
	mock.ExpectQuery(`FROM information_schema\.table_constraints`).
		WillReturnRows(sqlmock.NewRows(keyColumns))
}

func expectMssqlTable(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(`sys\.extended_properties`).
		WillReturnRows(sqlmock.NewRows([]string{"comment"}).AddRow(nil))
	mock.ExpectQuery(`FROM INFORMATION_SCHEMA\.COLUMNS`).
		WillReturnRows(sqlmock.NewRows([]string{"name", "type", "len", "prec", "scale", "nullable", "default", "identity"}).
			AddRow("id", "int", nil, 10, 0, 0, nil, 1))
	mock.ExpectQuery(`INFORMATION_SCHEMA\.TABLE_CONSTRAINTS`).
		WillReturnRows(sqlmock.NewRows(keyColumns))
}

func expectSqliteTable(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(`SELECT count\(\*\) FROM .*sqlite_master`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`PRAGMA .*table_info`).
		WillReturnRows(sqlmock.NewRows([]string{"cid", "name", "type", "notnull", "dflt", "pk"}).
			AddRow(0, "id", "INTEGER", 0, nil, 1))
}

// A failing catalog query after the table was found must fail the whole
// read: a table missing its indexes or foreign keys is wrong DDL.
func TestTableCatalogQueryFailures(t *testing.T) {
	var tests = []struct {
		name    string
		catalog db.Catalog
		expect  func(mock sqlmock.Sqlmock)
	}{
		{"postgres indexes", pgCatalog{}, func(mock sqlmock.Sqlmock) {
			expectPgTable(mock)
			mock.ExpectQuery(`FROM pg_index ix`).WillReturnError(errTimeout)
		}},
		{"mysql indexes", myCatalog{}, func(mock sqlmock.Sqlmock) {
			expectMysqlTable(mock)
			mock.ExpectQuery(`FROM information_schema\.statistics`).WillReturnError(errTimeout)
		}},
		{"mssql foreign keys", mssqlCatalog{}, func(mock sqlmock.Sqlmock) {
			expectMssqlTable(mock)
			mock.ExpectQuery(`FROM sys\.foreign_keys`).WillReturnError(errTimeout)
		}},
		{"mssql indexes", mssqlCatalog{}, func(mock sqlmock.Sqlmock) {
			expectMssqlTable(mock)
			mock.ExpectQuery(`FROM sys\.foreign_keys`).WillReturnRows(sqlmock.NewRows(keyColumns))
			mock.ExpectQuery(`FROM sys\.indexes`).WillReturnError(errTimeout)
		}},
		{"sqlite index list", sqliteCatalog{}, func(mock sqlmock.Sqlmock) {
			expectSqliteTable(mock)
			mock.ExpectQuery(`PRAGMA .*index_list`).WillReturnError(errTimeout)
		}},
		{"sqlite index sql", sqliteCatalog{}, func(mock sqlmock.Sqlmock) {
			expectSqliteTable(mock)
			mock.ExpectQuery(`PRAGMA .*index_list`).
				WillReturnRows(sqlmock.NewRows([]string{"seq", "name", "unique", "origin", "partial"}).
					AddRow(0, "idx_t_id", 0, "c", 0))
			mock.ExpectQuery(`SELECT sql FROM .*sqlite_master WHERE type = 'index'`).WillReturnError(errTimeout)
		}},
		{"sqlite index columns", sqliteCatalog{}, func(mock sqlmock.Sqlmock) {
			expectSqliteTable(mock)
			mock.ExpectQuery(`PRAGMA .*index_list`).
				WillReturnRows(sqlmock.NewRows([]string{"seq", "name", "unique", "origin", "partial"}).
					AddRow(0, "sqlite_autoindex_t_1", 1, "u", 0))
			mock.ExpectQuery(`PRAGMA .*index_info`).WillReturnError(errTimeout)
		}},
		{"sqlite foreign keys", sqliteCatalog{}, func(mock sqlmock.Sqlmock) {
			expectSqliteTable(mock)
			mock.ExpectQuery(`PRAGMA .*index_list`).
				WillReturnRows(sqlmock.NewRows([]string{"seq", "name", "unique", "origin", "partial"}))
			mock.ExpectQuery(`PRAGMA .*foreign_key_list`).WillReturnError(errTimeout)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer conn.Close()

			tt.expect(mock)

			tbl, err := tt.catalog.Table(context.Background(), conn, "main", "t")
			assert.Nil(t, tbl)
			assert.ErrorIs(t, err, errTimeout)
			assert.NotErrorIs(t, err, db.ErrNotFound)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
