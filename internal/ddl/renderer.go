// Package ddl renders catalog objects as DDL text.
package ddl

import (
	"context"
	"fmt"

	"dbmeta/internal/db"
	"dbmeta/internal/navigator"
)

// Renderer produces the DDL of navigator nodes from one connection.
// Errors from the catalog are wrapped, so db.ErrNotFound stays detectable.
type Renderer struct {
	h    *db.Handle
	d    Dialect
	opts Options
}

func NewRenderer(h *db.Handle, opts Options) *Renderer {
	return &Renderer{h: h, d: DialectFor(h.Dialect), opts: opts}
}

// Render returns the DDL of n.
func (r *Renderer) Render(ctx context.Context, n *navigator.Node) (string, error) {
	p := n.Path()
	switch p.Kind {
	case navigator.KindDatabase:
		return r.database(ctx)
	case navigator.KindSchema:
		return r.schema(ctx, p.Schema)
	case navigator.KindFolder:
		switch p.Folder {
		case navigator.FolderTables:
			return r.tables(ctx, p.Schema)
		case navigator.FolderViews:
			return r.views(ctx, p.Schema)
		case navigator.FolderIndexes:
			return r.indexes(ctx, p.Schema, p.Object)
		}
	case navigator.KindTable:
		return r.table(ctx, p.Schema, p.Object)
	case navigator.KindView:
		return r.view(ctx, p.Schema, p.Object)
	case navigator.KindIndex:
		return r.index(ctx, p.Schema, p.Object, p.Index)
	}
	return "", fmt.Errorf("cannot render node %q of kind %s", n.ID, n.Kind)
}

func (r *Renderer) database(ctx context.Context) (string, error) {
	schemas, err := r.h.Catalog.Schemas(ctx, r.h.DB)
	if err != nil {
		return "", fmt.Errorf("list schemas: %w", err)
	}
	parts := make([]string, 0, len(schemas))
	for _, s := range schemas {
		out, err := r.schema(ctx, s)
		if err != nil {
			return "", err
		}
		parts = append(parts, out)
	}
	return join(parts...), nil
}

func (r *Renderer) schema(ctx context.Context, schema string) (string, error) {
	head := SchemaDDL(r.d, schema, r.opts)
	if !r.opts.Nested {
		return head, nil
	}
	tables, err := r.tables(ctx, schema)
	if err != nil {
		return "", err
	}
	views, err := r.views(ctx, schema)
	if err != nil {
		return "", err
	}
	return join(head, tables, views), nil
}

func (r *Renderer) tables(ctx context.Context, schema string) (string, error) {
	names, err := r.h.Catalog.Tables(ctx, r.h.DB, schema)
	if err != nil {
		return "", fmt.Errorf("list tables of %s: %w", schema, err)
	}
	parts := make([]string, 0, len(names))
	for _, name := range names {
		out, err := r.table(ctx, schema, name)
		if err != nil {
			return "", err
		}
		parts = append(parts, out)
	}
	return join(parts...), nil
}

func (r *Renderer) views(ctx context.Context, schema string) (string, error) {
	names, err := r.h.Catalog.Views(ctx, r.h.DB, schema)
	if err != nil {
		return "", fmt.Errorf("list views of %s: %w", schema, err)
	}
	parts := make([]string, 0, len(names))
	for _, name := range names {
		out, err := r.view(ctx, schema, name)
		if err != nil {
			return "", err
		}
		parts = append(parts, out)
	}
	return join(parts...), nil
}

func (r *Renderer) table(ctx context.Context, schema, name string) (string, error) {
	t, err := r.h.Catalog.Table(ctx, r.h.DB, schema, name)
	if err != nil {
		return "", fmt.Errorf("load table %s.%s: %w", schema, name, err)
	}
	return TableDDL(r.d, t, r.opts), nil
}

func (r *Renderer) view(ctx context.Context, schema, name string) (string, error) {
	v, err := r.h.Catalog.View(ctx, r.h.DB, schema, name)
	if err != nil {
		return "", fmt.Errorf("load view %s.%s: %w", schema, name, err)
	}
	return ViewDDL(r.d, v, r.opts)
}

func (r *Renderer) indexes(ctx context.Context, schema, table string) (string, error) {
	t, err := r.h.Catalog.Table(ctx, r.h.DB, schema, table)
	if err != nil {
		return "", fmt.Errorf("load table %s.%s: %w", schema, table, err)
	}
	parts := make([]string, 0, len(t.Indexes))
	for _, ix := range t.Indexes {
		parts = append(parts, IndexDDL(r.d, t, ix, r.opts))
	}
	return join(parts...), nil
}

func (r *Renderer) index(ctx context.Context, schema, table, name string) (string, error) {
	t, err := r.h.Catalog.Table(ctx, r.h.DB, schema, table)
	if err != nil {
		return "", fmt.Errorf("load table %s.%s: %w", schema, table, err)
	}
	ix, ok := t.Index(name)
	if !ok {
		return "", fmt.Errorf("index %s on %s.%s: %w", name, schema, table, db.ErrNotFound)
	}
	return IndexDDL(r.d, t, ix, r.opts), nil
}
