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

// myCatalog implements db.Catalog for MySQL and MariaDB (information_schema).
type myCatalog struct{}

func (myCatalog) Schemas(ctx context.Context, conn *sql.DB) ([]string, error) {
	return queryNames(ctx, conn, `
        SELECT schema_name
        FROM information_schema.schemata
        WHERE schema_name NOT IN ('mysql','information_schema','performance_schema','sys')
        ORDER BY schema_name`)
}

func (myCatalog) Tables(ctx context.Context, conn *sql.DB, schema string) ([]string, error) {
	return queryNames(ctx, conn, `
        SELECT table_name
        FROM information_schema.tables
        WHERE table_schema = ? AND table_type = 'BASE TABLE'
        ORDER BY table_name`, schema)
}

func (myCatalog) Views(ctx context.Context, conn *sql.DB, schema string) ([]string, error) {
	return queryNames(ctx, conn, `
        SELECT table_name
        FROM information_schema.views
        WHERE table_schema = ?
        ORDER BY table_name`, schema)
}

func (myCatalog) Table(ctx context.Context, conn *sql.DB, schema, name string) (*introspect.Table, error) {
	t := &introspect.Table{Schema: schema, Name: name}

	var comment, engine, collation sql.NullString
	err := conn.QueryRowContext(ctx, `
        SELECT table_comment, engine, table_collation
        FROM information_schema.tables
        WHERE table_schema = ? AND table_name = ? AND table_type = 'BASE TABLE'`, schema, name).Scan(&comment, &engine, &collation)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query table %s.%s: %w", schema, name, err)
	}
	if comment.Valid && comment.String != "" {
		t.Comment = &comment.String
	}
	if engine.Valid && engine.String != "" {
		t.Options = "ENGINE=" + engine.String
	}
	if collation.Valid && collation.String != "" {
		if t.Options != "" {
			t.Options += " "
		}
		t.Options += "COLLATE=" + collation.String
	}

	cr, err := conn.QueryContext(ctx, `
        SELECT column_name, column_type, is_nullable = 'YES', column_default, extra, column_comment
        FROM information_schema.columns
        WHERE table_schema = ? AND table_name = ?
        ORDER BY ordinal_position`, schema, name)
	if err != nil {
		return nil, fmt.Errorf("query columns for %s.%s: %w", schema, name, err)
	}
	for cr.Next() {
		var col introspect.Column
		var dflt, extra, ccomment sql.NullString
		if err := cr.Scan(&col.Name, &col.Type, &col.Nullable, &dflt, &extra, &ccomment); err != nil {
			cr.Close()
			return nil, fmt.Errorf("scan column for %s.%s: %w", schema, name, err)
		}
		if dflt.Valid {
			d := mysqlDefault(dflt.String, extra.String)
			col.Default = &d
		}
		col.Extra = mysqlExtra(extra.String)
		if ccomment.Valid && ccomment.String != "" {
			col.Comment = &ccomment.String
		}
		t.Columns = append(t.Columns, col)
	}
	cr.Close()
	if err := cr.Err(); err != nil {
		return nil, fmt.Errorf("read columns for %s.%s: %w", schema, name, err)
	}

	kr, err := conn.QueryContext(ctx, `
        SELECT tc.constraint_name, tc.constraint_type, k.column_name,
               k.referenced_table_schema, k.referenced_table_name, k.referenced_column_name,
               rc.update_rule, rc.delete_rule
        FROM information_schema.table_constraints tc
        JOIN information_schema.key_column_usage k
          ON k.constraint_schema = tc.constraint_schema
         AND k.constraint_name = tc.constraint_name
         AND k.table_name = tc.table_name
        LEFT JOIN information_schema.referential_constraints rc
          ON rc.constraint_schema = tc.constraint_schema
         AND rc.constraint_name = tc.constraint_name
        WHERE tc.table_schema = ? AND tc.table_name = ?
          AND tc.constraint_type IN ('PRIMARY KEY','UNIQUE','FOREIGN KEY')
        ORDER BY FIELD(tc.constraint_type, 'PRIMARY KEY','UNIQUE','FOREIGN KEY'), tc.constraint_name, k.ordinal_position`, schema, name)
	if err != nil {
		return nil, fmt.Errorf("query constraints for %s.%s: %w", schema, name, err)
	}
	keys, err := scanKeyRows(kr)
	if err != nil {
		return nil, fmt.Errorf("scan constraint for %s.%s: %w", schema, name, err)
	}
	t.Constraints = groupConstraints(keys)
	constraintNames := map[string]bool{}
	for _, con := range t.Constraints {
		constraintNames[con.Name] = true
		if con.Kind == introspect.PrimaryKey {
			markPK(t, con.Columns)
		}
	}

	ir, err := conn.QueryContext(ctx, `
        SELECT index_name, non_unique = 0, column_name
        FROM information_schema.statistics
        WHERE table_schema = ? AND table_name = ?
        ORDER BY index_name, seq_in_index`, schema, name)
	if err != nil {
		return nil, fmt.Errorf("query indexes for %s.%s: %w", schema, name, err)
	}
	// PRIMARY, unique constraints and FK backing indexes are already rendered
	idx, err := scanIndexRows(ir, func(r indexRow) bool {
		return r.name != "PRIMARY" && !constraintNames[r.name]
	})
	if err != nil {
		return nil, fmt.Errorf("scan index for %s.%s: %w", schema, name, err)
	}
	t.Indexes = groupIndexes(idx)

	return t, nil
}

func (myCatalog) View(ctx context.Context, conn *sql.DB, schema, name string) (*introspect.View, error) {
	v := &introspect.View{Schema: schema, Name: name}
	err := conn.QueryRowContext(ctx, `
        SELECT view_definition
        FROM information_schema.views
        WHERE table_schema = ? AND table_name = ?`, schema, name).Scan(&v.Definition)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query view %s.%s: %w", schema, name, err)
	}
	return v, nil
}

// mysqlDefault quotes literal defaults; information_schema reports them bare.
func mysqlDefault(d, extra string) string {
	if d == "NULL" || isNumeric(d) || isSQLExpression(d) {
		return d
	}
	// MySQL 8 marks expression defaults in extra
	if containsFold(extra, "DEFAULT_GENERATED") {
		return d
	}
	return quoteLiteral(d)
}

// mysqlExtra keeps the parts of information_schema.columns.extra that belong in DDL.
func mysqlExtra(extra string) string {
	switch {
	case containsFold(extra, "auto_increment"):
		return "AUTO_INCREMENT"
	case containsFold(extra, "on update"):
		i := indexFold(extra, "on update")
		return "ON UPDATE " + strings.TrimSpace(extra[i+len("on update"):])
	default:
		return ""
	}
}

func init() {
	db.Register("mysql", myCatalog{})
}
