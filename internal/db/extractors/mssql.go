package extractors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"dbmeta/internal/db"
	"dbmeta/internal/introspect"
)

// mssqlCatalog implements db.Catalog for Microsoft SQL Server.
type mssqlCatalog struct{}

func (mssqlCatalog) Schemas(ctx context.Context, conn *sql.DB) ([]string, error) {
	return queryNames(ctx, conn, `
        SELECT s.name
        FROM sys.schemas AS s
        WHERE s.schema_id < 16384
          AND s.name NOT IN ('sys', 'INFORMATION_SCHEMA', 'guest')
        ORDER BY s.name`)
}

func (mssqlCatalog) Tables(ctx context.Context, conn *sql.DB, schema string) ([]string, error) {
	return queryNames(ctx, conn, `
        SELECT t.name
        FROM sys.tables AS t
        JOIN sys.schemas AS s ON s.schema_id = t.schema_id
        WHERE s.name = @schema
        ORDER BY t.name`, sql.Named("schema", schema))
}

func (mssqlCatalog) Views(ctx context.Context, conn *sql.DB, schema string) ([]string, error) {
	return queryNames(ctx, conn, `
        SELECT v.name
        FROM sys.views AS v
        JOIN sys.schemas AS s ON s.schema_id = v.schema_id
        WHERE s.name = @schema
        ORDER BY v.name`, sql.Named("schema", schema))
}

func (mssqlCatalog) Table(ctx context.Context, conn *sql.DB, schema, name string) (*introspect.Table, error) {
	t := &introspect.Table{Schema: schema, Name: name}
	args := []any{sql.Named("schema", schema), sql.Named("table", name)}

	var comment sql.NullString
	err := conn.QueryRowContext(ctx, `
        SELECT CAST(sep.value AS nvarchar(4000))
        FROM sys.tables AS t
        JOIN sys.schemas AS s ON s.schema_id = t.schema_id
        LEFT JOIN sys.extended_properties AS sep
          ON t.object_id = sep.major_id
         AND sep.minor_id = 0
         AND sep.name = 'MS_Description'
        WHERE s.name = @schema AND t.name = @table`, args...).Scan(&comment)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query table %s.%s: %w", schema, name, err)
	}
	if comment.Valid {
		t.Comment = &comment.String
	}

	cr, err := conn.QueryContext(ctx, `
        SELECT c.COLUMN_NAME, c.DATA_TYPE, c.CHARACTER_MAXIMUM_LENGTH, c.NUMERIC_PRECISION, c.NUMERIC_SCALE,
               CASE WHEN c.IS_NULLABLE = 'YES' THEN 1 ELSE 0 END,
               c.COLUMN_DEFAULT,
               COLUMNPROPERTY(OBJECT_ID(QUOTENAME(c.TABLE_SCHEMA) + '.' + QUOTENAME(c.TABLE_NAME)), c.COLUMN_NAME, 'IsIdentity')
        FROM INFORMATION_SCHEMA.COLUMNS AS c
        WHERE c.TABLE_SCHEMA = @schema AND c.TABLE_NAME = @table
        ORDER BY c.ORDINAL_POSITION`, args...)
	if err != nil {
		return nil, fmt.Errorf("query columns for %s.%s: %w", schema, name, err)
	}
	for cr.Next() {
		var col introspect.Column
		var dataType string
		var maxLen, precision, scale, identity sql.NullInt64
		var nullableInt int
		var dflt sql.NullString
		if err := cr.Scan(&col.Name, &dataType, &maxLen, &precision, &scale, &nullableInt, &dflt, &identity); err != nil {
			cr.Close()
			return nil, fmt.Errorf("scan column for %s.%s: %w", schema, name, err)
		}
		col.Type = mssqlType(dataType, maxLen, precision, scale)
		col.Nullable = nullableInt == 1
		if dflt.Valid {
			d := dflt.String
			col.Default = &d
		}
		if identity.Valid && identity.Int64 == 1 {
			col.Extra = "IDENTITY(1,1)"
		}
		t.Columns = append(t.Columns, col)
	}
	cr.Close()
	if err := cr.Err(); err != nil {
		return nil, fmt.Errorf("read columns for %s.%s: %w", schema, name, err)
	}

	// primary key and unique constraints
	kr, err := conn.QueryContext(ctx, `
        SELECT tc.CONSTRAINT_NAME, tc.CONSTRAINT_TYPE, k.COLUMN_NAME,
               NULL, NULL, NULL, NULL, NULL
        FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS AS tc
        JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE AS k
          ON tc.CONSTRAINT_NAME = k.CONSTRAINT_NAME AND tc.TABLE_SCHEMA = k.TABLE_SCHEMA
        WHERE tc.CONSTRAINT_TYPE IN ('PRIMARY KEY', 'UNIQUE')
          AND tc.TABLE_SCHEMA = @schema AND tc.TABLE_NAME = @table
        ORDER BY CASE tc.CONSTRAINT_TYPE WHEN 'PRIMARY KEY' THEN 0 ELSE 1 END, tc.CONSTRAINT_NAME, k.ORDINAL_POSITION`, args...)
	if err != nil {
		return nil, fmt.Errorf("query constraints for %s.%s: %w", schema, name, err)
	}
	keys, err := scanKeyRows(kr)
	if err != nil {
		return nil, fmt.Errorf("scan constraint for %s.%s: %w", schema, name, err)
	}

	// foreign keys with schema information
	fkr, err := conn.QueryContext(ctx, `
        SELECT fk.name, 'FOREIGN KEY', c.name,
               OBJECT_SCHEMA_NAME(fkc.referenced_object_id), OBJECT_NAME(fkc.referenced_object_id), rc.name,
               fk.update_referential_action_desc, fk.delete_referential_action_desc
        FROM sys.foreign_keys AS fk
        JOIN sys.foreign_key_columns AS fkc ON fk.object_id = fkc.constraint_object_id
        JOIN sys.columns AS c ON fkc.parent_object_id = c.object_id AND fkc.parent_column_id = c.column_id
        JOIN sys.columns AS rc ON fkc.referenced_object_id = rc.object_id AND fkc.referenced_column_id = rc.column_id
        WHERE OBJECT_SCHEMA_NAME(fk.parent_object_id) = @schema AND OBJECT_NAME(fk.parent_object_id) = @table
        ORDER BY fk.name, fkc.constraint_column_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query foreign keys for %s.%s: %w", schema, name, err)
	}
	fks, err := scanKeyRows(fkr)
	if err != nil {
		return nil, fmt.Errorf("scan foreign key for %s.%s: %w", schema, name, err)
	}
	keys = append(keys, fks...)
	t.Constraints = groupConstraints(keys)
	for _, con := range t.Constraints {
		if con.Kind == introspect.PrimaryKey {
			markPK(t, con.Columns)
		}
	}

	ir, err := conn.QueryContext(ctx, `
        SELECT i.name, i.is_unique, c.name
        FROM sys.indexes AS i
        JOIN sys.index_columns AS ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
        JOIN sys.columns AS c ON c.object_id = ic.object_id AND c.column_id = ic.column_id
        WHERE i.object_id = OBJECT_ID(QUOTENAME(@schema) + '.' + QUOTENAME(@table))
          AND i.is_primary_key = 0 AND i.is_unique_constraint = 0 AND i.type > 0
          AND ic.is_included_column = 0
        ORDER BY i.name, ic.key_ordinal`, args...)
	if err != nil {
		return nil, fmt.Errorf("query indexes for %s.%s: %w", schema, name, err)
	}
	idx, err := scanIndexRows(ir, nil)
	if err != nil {
		return nil, fmt.Errorf("scan index for %s.%s: %w", schema, name, err)
	}
	t.Indexes = groupIndexes(idx)

	return t, nil
}

func (mssqlCatalog) View(ctx context.Context, conn *sql.DB, schema, name string) (*introspect.View, error) {
	v := &introspect.View{Schema: schema, Name: name}
	var src sql.NullString
	err := conn.QueryRowContext(ctx, `
        SELECT OBJECT_DEFINITION(v.object_id)
        FROM sys.views AS v
        JOIN sys.schemas AS s ON s.schema_id = v.schema_id
        WHERE s.name = @schema AND v.name = @view`, sql.Named("schema", schema), sql.Named("view", name)).Scan(&src)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query view %s.%s: %w", schema, name, err)
	}
	v.Source = strings.TrimSpace(src.String)
	return v, nil
}

// mssqlType rebuilds the declared type from INFORMATION_SCHEMA.COLUMNS parts.
func mssqlType(dataType string, maxLen, precision, scale sql.NullInt64) string {
	switch strings.ToLower(dataType) {
	case "varchar", "nvarchar", "char", "nchar", "varbinary", "binary":
		if !maxLen.Valid {
			return dataType
		}
		if maxLen.Int64 == -1 {
			return dataType + "(max)"
		}
		return fmt.Sprintf("%s(%d)", dataType, maxLen.Int64)
	case "decimal", "numeric":
		if precision.Valid {
			return fmt.Sprintf("%s(%d,%d)", dataType, precision.Int64, scale.Int64)
		}
	}
	return dataType
}

func init() {
	db.Register("sqlserver", mssqlCatalog{})
}
