package extractors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"dbmeta/internal/db"
	"dbmeta/internal/introspect"
)

// sqliteCatalog implements db.Catalog for SQLite. Attached databases are schemas.
type sqliteCatalog struct{}

// sqliteIdent double-quotes an identifier for use in PRAGMA statements.
func sqliteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func (sqliteCatalog) Schemas(ctx context.Context, conn *sql.DB) ([]string, error) {
	rows, err := conn.QueryContext(ctx, `PRAGMA database_list`)
	if err != nil {
		return nil, fmt.Errorf("database list: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var seq int
		var name, file sql.NullString
		if err := rows.Scan(&seq, &name, &file); err != nil {
			return nil, fmt.Errorf("scan database list: %w", err)
		}
		if name.Valid && name.String != "temp" {
			names = append(names, name.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

func (sqliteCatalog) objects(ctx context.Context, conn *sql.DB, schema, kind string) ([]string, error) {
	q := fmt.Sprintf(`
        SELECT name FROM %s.sqlite_master
        WHERE type = ? AND name NOT LIKE 'sqlite_%%'
        ORDER BY name`, sqliteIdent(schema))
	return queryNames(ctx, conn, q, kind)
}

func (c sqliteCatalog) Tables(ctx context.Context, conn *sql.DB, schema string) ([]string, error) {
	return c.objects(ctx, conn, schema, "table")
}

func (c sqliteCatalog) Views(ctx context.Context, conn *sql.DB, schema string) ([]string, error) {
	return c.objects(ctx, conn, schema, "view")
}

func (sqliteCatalog) Table(ctx context.Context, conn *sql.DB, schema, name string) (*introspect.Table, error) {
	t := &introspect.Table{Schema: schema, Name: name}
	qs := sqliteIdent(schema)
	qt := quoteLiteral(name)

	var found int
	err := conn.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT count(*) FROM %s.sqlite_master WHERE type = 'table' AND name = ?`, qs), name).Scan(&found)
	if err != nil {
		return nil, fmt.Errorf("query table %s.%s: %w", schema, name, err)
	}
	if found == 0 {
		return nil, db.ErrNotFound
	}

	pr, err := conn.QueryContext(ctx, fmt.Sprintf("PRAGMA %s.table_info(%s)", qs, qt))
	if err != nil {
		return nil, fmt.Errorf("query columns for %s.%s: %w", schema, name, err)
	}
	type pkCol struct {
		seq  int
		name string
	}
	var pks []pkCol
	for pr.Next() {
		var cid int
		var cname, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := pr.Scan(&cid, &cname, &ctype, &notnull, &dflt, &pk); err != nil {
			pr.Close()
			return nil, fmt.Errorf("scan column for %s.%s: %w", schema, name, err)
		}
		col := introspect.Column{
			Name:     cname,
			Type:     ctype,
			Nullable: notnull == 0,
			PK:       pk != 0,
		}
		if dflt.Valid {
			d := dflt.String
			col.Default = &d
		}
		if pk != 0 {
			pks = append(pks, pkCol{pk, cname})
		}
		t.Columns = append(t.Columns, col)
	}
	pr.Close()
	if err := pr.Err(); err != nil {
		return nil, fmt.Errorf("read columns for %s.%s: %w", schema, name, err)
	}
	if len(pks) > 0 {
		sort.Slice(pks, func(i, j int) bool { return pks[i].seq < pks[j].seq })
		con := introspect.Constraint{Kind: introspect.PrimaryKey}
		for _, p := range pks {
			con.Columns = append(con.Columns, p.name)
		}
		t.Constraints = append(t.Constraints, con)
	}

	// index_list reports origin: c = CREATE INDEX, u = UNIQUE constraint, pk = primary key
	type idxInfo struct {
		name   string
		unique bool
		origin string
	}
	var idxs []idxInfo
	ilr, err := conn.QueryContext(ctx, fmt.Sprintf("PRAGMA %s.index_list(%s)", qs, qt))
	if err != nil {
		return nil, fmt.Errorf("query index list for %s.%s: %w", schema, name, err)
	}
	for ilr.Next() {
		var seq, unique, partial int
		var iname, origin string
		if err := ilr.Scan(&seq, &iname, &unique, &origin, &partial); err != nil {
			ilr.Close()
			return nil, fmt.Errorf("scan index list for %s.%s: %w", schema, name, err)
		}
		idxs = append(idxs, idxInfo{iname, unique != 0, origin})
	}
	ilr.Close()
	if err := ilr.Err(); err != nil {
		return nil, fmt.Errorf("read index list for %s.%s: %w", schema, name, err)
	}
	sort.Slice(idxs, func(i, j int) bool { return idxs[i].name < idxs[j].name })

	for _, ix := range idxs {
		switch ix.origin {
		case "u":
			cols, err := sqliteIndexColumns(ctx, conn, qs, ix.name)
			if err != nil {
				return nil, fmt.Errorf("columns of index %s: %w", ix.name, err)
			}
			t.Constraints = append(t.Constraints, introspect.Constraint{Kind: introspect.Unique, Columns: cols})
		case "c":
			var stmt sql.NullString
			err := conn.QueryRowContext(ctx, fmt.Sprintf(
				`SELECT sql FROM %s.sqlite_master WHERE type = 'index' AND name = ?`, qs), ix.name).Scan(&stmt)
			if err != nil {
				return nil, fmt.Errorf("query sql of index %s: %w", ix.name, err)
			}
			cols, err := sqliteIndexColumns(ctx, conn, qs, ix.name)
			if err != nil {
				return nil, fmt.Errorf("columns of index %s: %w", ix.name, err)
			}
			t.Indexes = append(t.Indexes, introspect.Index{
				Name:       ix.name,
				Unique:     ix.unique,
				Columns:    cols,
				Definition: stmt.String,
			})
		}
	}

	fkRows, err := conn.QueryContext(ctx, fmt.Sprintf("PRAGMA %s.foreign_key_list(%s)", qs, qt))
	if err != nil {
		return nil, fmt.Errorf("query foreign keys for %s.%s: %w", schema, name, err)
	}
	byID := map[int]int{}
	for fkRows.Next() {
		var id, seq int
		var table, from, onUpdate, onDelete, match string
		var to sql.NullString
		if err := fkRows.Scan(&id, &seq, &table, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			fkRows.Close()
			return nil, fmt.Errorf("scan foreign key for %s.%s: %w", schema, name, err)
		}
		i, ok := byID[id]
		if !ok {
			t.Constraints = append(t.Constraints, introspect.Constraint{
				Kind:     introspect.ForeignKey,
				RefTable: table,
				OnUpdate: referentialAction(onUpdate),
				OnDelete: referentialAction(onDelete),
			})
			i = len(t.Constraints) - 1
			byID[id] = i
		}
		t.Constraints[i].Columns = append(t.Constraints[i].Columns, from)
		if to.Valid {
			t.Constraints[i].RefColumns = append(t.Constraints[i].RefColumns, to.String)
		}
	}
	fkRows.Close()
	if err := fkRows.Err(); err != nil {
		return nil, fmt.Errorf("read foreign keys for %s.%s: %w", schema, name, err)
	}

	return t, nil
}

func sqliteIndexColumns(ctx context.Context, conn *sql.DB, qs, index string) ([]string, error) {
	rows, err := conn.QueryContext(ctx, fmt.Sprintf("PRAGMA %s.index_info(%s)", qs, quoteLiteral(index)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var cols []string
	for rows.Next() {
		var seqno, cid int
		var cname sql.NullString
		if err := rows.Scan(&seqno, &cid, &cname); err != nil {
			return nil, err
		}
		cols = append(cols, cname.String)
	}
	return cols, rows.Err()
}

func (sqliteCatalog) View(ctx context.Context, conn *sql.DB, schema, name string) (*introspect.View, error) {
	v := &introspect.View{Schema: schema, Name: name}
	err := conn.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT sql FROM %s.sqlite_master WHERE type = 'view' AND name = ?`, sqliteIdent(schema)), name).Scan(&v.Source)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query view %s.%s: %w", schema, name, err)
	}
	return v, nil
}

func init() {
	db.Register("sqlite", sqliteCatalog{})
}
