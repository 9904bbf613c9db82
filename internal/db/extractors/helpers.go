package extractors

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"dbmeta/internal/introspect"
)

// queryNames runs a single-column query and returns the values in order.
func queryNames(ctx context.Context, conn *sql.DB, query string, args ...any) ([]string, error) {
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan name: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// markPK flags the primary key columns of t.
func markPK(t *introspect.Table, cols []string) {
	for _, pkcol := range cols {
		for j := range t.Columns {
			if t.Columns[j].Name == pkcol {
				t.Columns[j].PK = true
			}
		}
	}
}

// keyRow is one column of a constraint as returned by key_column_usage style views.
type keyRow struct {
	name       string
	kind       string
	column     string
	refSchema  sql.NullString
	refTable   sql.NullString
	refColumn  sql.NullString
	updateRule sql.NullString
	deleteRule sql.NullString
}

// scanKeyRows reads eight-column constraint rows and closes rows.
func scanKeyRows(rows *sql.Rows) ([]keyRow, error) {
	defer rows.Close()
	var out []keyRow
	for rows.Next() {
		var r keyRow
		if err := rows.Scan(&r.name, &r.kind, &r.column, &r.refSchema, &r.refTable, &r.refColumn, &r.updateRule, &r.deleteRule); err != nil {
			return out, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// scanIndexRows reads (name, unique, column) rows, keeping those keep accepts,
// and closes rows.
func scanIndexRows(rows *sql.Rows, keep func(indexRow) bool) ([]indexRow, error) {
	defer rows.Close()
	var out []indexRow
	for rows.Next() {
		var r indexRow
		if err := rows.Scan(&r.name, &r.unique, &r.column); err != nil {
			return nil, err
		}
		if keep == nil || keep(r) {
			out = append(out, r)
		}
	}
	return out, rows.Err()
}

// groupConstraints folds per-column rows into constraints, keeping first-seen order.
func groupConstraints(rows []keyRow) []introspect.Constraint {
	var out []introspect.Constraint
	index := map[string]int{}
	for _, r := range rows {
		i, ok := index[r.name]
		if !ok {
			con := introspect.Constraint{
				Name:      r.name,
				Kind:      introspect.ConstraintKind(r.kind),
				RefSchema: r.refSchema.String,
				RefTable:  r.refTable.String,
			}
			if con.Kind == introspect.ForeignKey {
				con.OnUpdate = referentialAction(r.updateRule.String)
				con.OnDelete = referentialAction(r.deleteRule.String)
			}
			out = append(out, con)
			i = len(out) - 1
			index[r.name] = i
		}
		out[i].Columns = append(out[i].Columns, r.column)
		if r.refColumn.Valid {
			out[i].RefColumns = append(out[i].RefColumns, r.refColumn.String)
		}
	}
	return out
}

// referentialAction drops the implicit default so it is not rendered.
func referentialAction(rule string) string {
	rule = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(rule), "_", " "))
	if rule == "NO ACTION" {
		return ""
	}
	return rule
}

// indexRow is one column of an index.
type indexRow struct {
	name   string
	unique bool
	column string
}

// groupIndexes folds per-column index rows, keeping first-seen order.
func groupIndexes(rows []indexRow) []introspect.Index {
	var out []introspect.Index
	index := map[string]int{}
	for _, r := range rows {
		i, ok := index[r.name]
		if !ok {
			out = append(out, introspect.Index{Name: r.name, Unique: r.unique})
			i = len(out) - 1
			index[r.name] = i
		}
		out[i].Columns = append(out[i].Columns, r.column)
	}
	return out
}

func containsFold(s, sub string) bool {
	return indexFold(s, sub) >= 0
}

func indexFold(s, sub string) int {
	return strings.Index(strings.ToLower(s), strings.ToLower(sub))
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// isSQLExpression reports whether a bare default looks like an expression
// rather than a string literal.
func isSQLExpression(s string) bool {
	u := strings.ToUpper(strings.TrimSpace(s))
	if strings.HasPrefix(u, "(") || strings.HasPrefix(u, "'") || strings.HasSuffix(u, ")") {
		return true
	}
	switch u {
	case "CURRENT_TIMESTAMP", "CURRENT_DATE", "CURRENT_TIME", "NULL", "TRUE", "FALSE":
		return true
	}
	return strings.HasPrefix(u, "CURRENT_TIMESTAMP")
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
