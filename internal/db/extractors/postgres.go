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

// pgCatalog implements db.Catalog using information_schema + pg_catalog queries.
type pgCatalog struct{}

func (pgCatalog) Schemas(ctx context.Context, conn *sql.DB) ([]string, error) {
	return queryNames(ctx, conn, `
        SELECT nspname
        FROM pg_catalog.pg_namespace
        WHERE nspname NOT IN ('pg_catalog','information_schema','pg_toast')
          AND nspname NOT LIKE 'pg_temp_%'
          AND nspname NOT LIKE 'pg_toast_temp_%'
        ORDER BY nspname`)
}

func (pgCatalog) Tables(ctx context.Context, conn *sql.DB, schema string) ([]string, error) {
	return queryNames(ctx, conn, `
        SELECT table_name
        FROM information_schema.tables
        WHERE table_schema = $1 AND table_type = 'BASE TABLE'
        ORDER BY table_name`, schema)
}

func (pgCatalog) Views(ctx context.Context, conn *sql.DB, schema string) ([]string, error) {
	return queryNames(ctx, conn, `
        SELECT table_name
        FROM information_schema.views
        WHERE table_schema = $1
        ORDER BY table_name`, schema)
}

func (pgCatalog) Table(ctx context.Context, conn *sql.DB, schema, name string) (*introspect.Table, error) {
	t := &introspect.Table{Schema: schema, Name: name}

	err := conn.QueryRowContext(ctx, `
        SELECT obj_description(c.oid, 'pg_class')
        FROM pg_class c
        JOIN pg_namespace n ON n.oid = c.relnamespace
        WHERE n.nspname = $1 AND c.relname = $2 AND c.relkind IN ('r','p')`, schema, name).Scan(&t.Comment)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query table %s.%s: %w", schema, name, err)
	}

	cr, err := conn.QueryContext(ctx, `
        SELECT a.attname,
               pg_catalog.format_type(a.atttypid, a.atttypmod),
               NOT a.attnotnull,
               pg_catalog.pg_get_expr(d.adbin, d.adrelid),
               col_description(c.oid, a.attnum)
        FROM pg_attribute a
        JOIN pg_class c ON a.attrelid = c.oid
        JOIN pg_namespace n ON c.relnamespace = n.oid
        LEFT JOIN pg_attrdef d ON d.adrelid = c.oid AND d.adnum = a.attnum
        WHERE n.nspname = $1 AND c.relname = $2 AND a.attnum > 0 AND NOT a.attisdropped
        ORDER BY a.attnum`, schema, name)
	if err != nil {
		return nil, fmt.Errorf("query columns for %s.%s: %w", schema, name, err)
	}
	for cr.Next() {
		var col introspect.Column
		if err := cr.Scan(&col.Name, &col.Type, &col.Nullable, &col.Default, &col.Comment); err != nil {
			cr.Close()
			return nil, fmt.Errorf("scan column for %s.%s: %w", schema, name, err)
		}
		t.Columns = append(t.Columns, col)
	}
	cr.Close()
	if err := cr.Err(); err != nil {
		return nil, fmt.Errorf("read columns for %s.%s: %w", schema, name, err)
	}

	// p, u, f, c sort into the order they are rendered in
	kr, err := conn.QueryContext(ctx, `
        SELECT con.conname, con.contype::text, pg_catalog.pg_get_constraintdef(con.oid, true)
        FROM pg_constraint con
        JOIN pg_class c ON c.oid = con.conrelid
        JOIN pg_namespace n ON n.oid = c.relnamespace
        WHERE n.nspname = $1 AND c.relname = $2 AND con.contype IN ('p','u','f','c')
        ORDER BY CASE con.contype WHEN 'p' THEN 0 WHEN 'u' THEN 1 WHEN 'c' THEN 2 ELSE 3 END, con.conname`, schema, name)
	if err != nil {
		return nil, fmt.Errorf("query constraints for %s.%s: %w", schema, name, err)
	}
	for kr.Next() {
		var con introspect.Constraint
		var kind string
		if err := kr.Scan(&con.Name, &kind, &con.Definition); err != nil {
			kr.Close()
			return nil, fmt.Errorf("scan constraint for %s.%s: %w", schema, name, err)
		}
		switch kind {
		case "p":
			con.Kind = introspect.PrimaryKey
		case "u":
			con.Kind = introspect.Unique
		case "f":
			con.Kind = introspect.ForeignKey
		default:
			con.Kind = introspect.Check
		}
		if con.Kind == introspect.PrimaryKey {
			con.Columns = parseColumnList(con.Definition)
			markPK(t, con.Columns)
		}
		t.Constraints = append(t.Constraints, con)
	}
	kr.Close()
	if err := kr.Err(); err != nil {
		return nil, fmt.Errorf("read constraints for %s.%s: %w", schema, name, err)
	}

	ir, err := conn.QueryContext(ctx, `
        SELECT i.relname, ix.indisunique, pg_catalog.pg_get_indexdef(ix.indexrelid)
        FROM pg_index ix
        JOIN pg_class i ON i.oid = ix.indexrelid
        JOIN pg_class c ON c.oid = ix.indrelid
        JOIN pg_namespace n ON n.oid = c.relnamespace
        WHERE n.nspname = $1 AND c.relname = $2
          AND NOT EXISTS (SELECT 1 FROM pg_constraint con WHERE con.conindid = ix.indexrelid)
        ORDER BY i.relname`, schema, name)
	if err != nil {
		return nil, fmt.Errorf("query indexes for %s.%s: %w", schema, name, err)
	}
	for ir.Next() {
		var ix introspect.Index
		if err := ir.Scan(&ix.Name, &ix.Unique, &ix.Definition); err != nil {
			ir.Close()
			return nil, fmt.Errorf("scan index for %s.%s: %w", schema, name, err)
		}
		t.Indexes = append(t.Indexes, ix)
	}
	ir.Close()
	if err := ir.Err(); err != nil {
		return nil, fmt.Errorf("read indexes for %s.%s: %w", schema, name, err)
	}

	return t, nil
}

func (pgCatalog) View(ctx context.Context, conn *sql.DB, schema, name string) (*introspect.View, error) {
	v := &introspect.View{Schema: schema, Name: name}
	err := conn.QueryRowContext(ctx, `
        SELECT pg_catalog.pg_get_viewdef(c.oid, true), obj_description(c.oid, 'pg_class')
        FROM pg_class c
        JOIN pg_namespace n ON n.oid = c.relnamespace
        WHERE n.nspname = $1 AND c.relname = $2 AND c.relkind = 'v'`, schema, name).Scan(&v.Definition, &v.Comment)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query view %s.%s: %w", schema, name, err)
	}
	v.Definition = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v.Definition), ";"))
	return v, nil
}

// parseColumnList extracts the column names of "PRIMARY KEY (a, b)".
func parseColumnList(def string) []string {
	open := strings.Index(def, "(")
	end := strings.LastIndex(def, ")")
	if open < 0 || end <= open {
		return nil
	}
	var cols []string
	for _, c := range strings.Split(def[open+1:end], ",") {
		c = strings.Trim(strings.TrimSpace(c), `"`)
		if c != "" {
			cols = append(cols, c)
		}
	}
	return cols
}

func init() {
	db.Register("postgres", pgCatalog{})
	db.Register("pgx", pgCatalog{})
}
