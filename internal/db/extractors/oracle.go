//go:build oracle
// +build oracle

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

// oracleCatalog implements db.Catalog for Oracle. Users are schemas.
type oracleCatalog struct{}

func (oracleCatalog) Schemas(ctx context.Context, conn *sql.DB) ([]string, error) {
	return queryNames(ctx, conn, `
        SELECT username FROM all_users
        WHERE oracle_maintained = 'N'
        ORDER BY username`)
}

func (oracleCatalog) Tables(ctx context.Context, conn *sql.DB, schema string) ([]string, error) {
	return queryNames(ctx, conn, `
        SELECT table_name FROM all_tables
        WHERE owner = :1
        ORDER BY table_name`, schema)
}

func (oracleCatalog) Views(ctx context.Context, conn *sql.DB, schema string) ([]string, error) {
	return queryNames(ctx, conn, `
        SELECT view_name FROM all_views
        WHERE owner = :1
        ORDER BY view_name`, schema)
}

func (oracleCatalog) Table(ctx context.Context, conn *sql.DB, schema, name string) (*introspect.Table, error) {
	t := &introspect.Table{Schema: schema, Name: name}

	var comment sql.NullString
	err := conn.QueryRowContext(ctx, `
        SELECT acom.comments
        FROM all_tables atab
        LEFT JOIN all_tab_comments acom
          ON acom.owner = atab.owner
         AND acom.table_name = atab.table_name
        WHERE atab.owner = :1 AND atab.table_name = :2`, schema, name).Scan(&comment)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query table %s.%s: %w", schema, name, err)
	}
	if comment.Valid && comment.String != "" {
		t.Comment = &comment.String
	}

	cr, err := conn.QueryContext(ctx, `
        SELECT c.column_name, c.data_type, c.char_length, c.data_precision, c.data_scale,
               c.nullable, c.data_default, cc.comments
        FROM all_tab_columns c
        LEFT JOIN all_col_comments cc
          ON cc.owner = c.owner AND cc.table_name = c.table_name AND cc.column_name = c.column_name
        WHERE c.owner = :1 AND c.table_name = :2
        ORDER BY c.column_id`, schema, name)
	if err != nil {
		return nil, fmt.Errorf("query columns for %s.%s: %w", schema, name, err)
	}
	for cr.Next() {
		var col introspect.Column
		var dataType, nullable string
		var charLen, precision, scale sql.NullInt64
		var dflt, ccomment sql.NullString
		if err := cr.Scan(&col.Name, &dataType, &charLen, &precision, &scale, &nullable, &dflt, &ccomment); err != nil {
			cr.Close()
			return nil, fmt.Errorf("scan column for %s.%s: %w", schema, name, err)
		}
		col.Type = oracleType(dataType, charLen, precision, scale)
		col.Nullable = (nullable == "Y")
		if dflt.Valid {
			d := strings.TrimSpace(dflt.String)
			col.Default = &d
		}
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
        SELECT ac.constraint_name,
               DECODE(ac.constraint_type, 'P', 'PRIMARY KEY', 'U', 'UNIQUE', 'R', 'FOREIGN KEY'),
               acc.column_name,
               rcc.owner, rcc.table_name, rcc.column_name,
               NULL, ac.delete_rule
        FROM all_constraints ac
        JOIN all_cons_columns acc
          ON ac.owner = acc.owner
         AND ac.constraint_name = acc.constraint_name
        LEFT JOIN all_cons_columns rcc
          ON ac.r_owner = rcc.owner
         AND ac.r_constraint_name = rcc.constraint_name
         AND nvl(acc.position, 0) = nvl(rcc.position, 0)
        WHERE ac.owner = :1 AND ac.table_name = :2 AND ac.constraint_type IN ('P', 'U', 'R')
        ORDER BY DECODE(ac.constraint_type, 'P', 0, 'U', 1, 2), ac.constraint_name, acc.position`, schema, name)
	if err != nil {
		return nil, fmt.Errorf("query constraints for %s.%s: %w", schema, name, err)
	}
	keys, err := scanKeyRows(kr)
	if err != nil {
		return nil, fmt.Errorf("scan constraint for %s.%s: %w", schema, name, err)
	}
	t.Constraints = groupConstraints(keys)
	for _, con := range t.Constraints {
		if con.Kind == introspect.PrimaryKey {
			markPK(t, con.Columns)
		}
	}

	ir, err := conn.QueryContext(ctx, `
        SELECT ai.index_name, DECODE(ai.uniqueness, 'UNIQUE', 1, 0), aic.column_name
        FROM all_indexes ai
        JOIN all_ind_columns aic
          ON aic.index_owner = ai.owner AND aic.index_name = ai.index_name
        WHERE ai.table_owner = :1 AND ai.table_name = :2
          AND NOT EXISTS (
              SELECT 1 FROM all_constraints ac
              WHERE ac.owner = ai.table_owner AND ac.index_name = ai.index_name)
        ORDER BY ai.index_name, aic.column_position`, schema, name)
	if err != nil {
		return nil, fmt.Errorf("query indexes for %s.%s: %w", schema, name, err)
	}
	var idx []indexRow
	for ir.Next() {
		var r indexRow
		var unique int
		if err := ir.Scan(&r.name, &unique, &r.column); err != nil {
			ir.Close()
			return nil, fmt.Errorf("scan index for %s.%s: %w", schema, name, err)
		}
		r.unique = unique == 1
		idx = append(idx, r)
	}
	ir.Close()
	if err := ir.Err(); err != nil {
		return nil, fmt.Errorf("read indexes for %s.%s: %w", schema, name, err)
	}
	t.Indexes = groupIndexes(idx)

	return t, nil
}

func (oracleCatalog) View(ctx context.Context, conn *sql.DB, schema, name string) (*introspect.View, error) {
	v := &introspect.View{Schema: schema, Name: name}
	var comment sql.NullString
	err := conn.QueryRowContext(ctx, `
        SELECT av.text, acom.comments
        FROM all_views av
        LEFT JOIN all_tab_comments acom
          ON acom.owner = av.owner AND acom.table_name = av.view_name
        WHERE av.owner = :1 AND av.view_name = :2`, schema, name).Scan(&v.Definition, &comment)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query view %s.%s: %w", schema, name, err)
	}
	if comment.Valid && comment.String != "" {
		v.Comment = &comment.String
	}
	v.Definition = strings.TrimSpace(v.Definition)
	return v, nil
}

// oracleType rebuilds the declared type from all_tab_columns parts.
func oracleType(dataType string, charLen, precision, scale sql.NullInt64) string {
	switch dataType {
	case "VARCHAR2", "NVARCHAR2", "CHAR", "NCHAR", "RAW":
		if charLen.Valid && charLen.Int64 > 0 {
			return fmt.Sprintf("%s(%d)", dataType, charLen.Int64)
		}
	case "NUMBER":
		if precision.Valid {
			if scale.Valid && scale.Int64 != 0 {
				return fmt.Sprintf("NUMBER(%d,%d)", precision.Int64, scale.Int64)
			}
			return fmt.Sprintf("NUMBER(%d)", precision.Int64)
		}
	}
	return dataType
}

func init() {
	db.Register("godror", oracleCatalog{})
}
