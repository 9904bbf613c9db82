// Package navigator maps node IDs onto catalog objects and lists the
// children of a node.
package navigator

import (
	"context"
	"errors"
	"fmt"

	"dbmeta/internal/db"
)

// Node is a reference to one object in the catalog tree of a connection.
type Node struct {
	ID          string `json:"id"`
	Kind        Kind   `json:"kind"`
	Name        string `json:"name"`
	Schema      string `json:"schema,omitempty"`
	Table       string `json:"table,omitempty"` // owning table of an index or indexes folder, or the table/view itself
	Folder      string `json:"folder,omitempty"`
	HasChildren bool   `json:"hasChildren"`

	// Connection is the key of the connection the node was resolved in.
	Connection string `json:"-"`
}

// Path returns the parsed form of the node ID.
func (n *Node) Path() Path {
	p := Path{Kind: n.Kind, Schema: n.Schema, Folder: n.Folder, Object: n.Table}
	if n.Kind == KindIndex {
		p.Index = n.Name
	}
	return p
}

func newNode(key string, p Path) *Node {
	n := &Node{
		ID:         p.String(),
		Kind:       p.Kind,
		Name:       p.Name(),
		Schema:     p.Schema,
		Table:      p.Object,
		Folder:     p.Folder,
		Connection: key,
	}
	switch p.Kind {
	case KindDatabase, KindSchema, KindFolder, KindTable:
		n.HasChildren = true
	}
	return n
}

// Resolve checks that every level of id exists in h's catalog and returns the node.
func Resolve(ctx context.Context, h *db.Handle, id string) (*Node, error) {
	p, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	if err := exists(ctx, h, p); err != nil {
		return nil, err
	}
	return newNode(h.Key, p), nil
}

func exists(ctx context.Context, h *db.Handle, p Path) error {
	if p.Kind == KindDatabase {
		return nil
	}
	schemas, err := h.Catalog.Schemas(ctx, h.DB)
	if err != nil {
		return fmt.Errorf("list schemas: %w", err)
	}
	if !db.Contains(schemas, p.Schema) {
		return fmt.Errorf("%w: schema %q", ErrNodeNotFound, p.Schema)
	}

	switch p.Kind {
	case KindTable:
		return member(ctx, h, p.Schema, FolderTables, p.Object)
	case KindView:
		return member(ctx, h, p.Schema, FolderViews, p.Object)
	case KindFolder:
		if p.Folder == FolderIndexes {
			return member(ctx, h, p.Schema, FolderTables, p.Object)
		}
	case KindIndex:
		t, err := h.Catalog.Table(ctx, h.DB, p.Schema, p.Object)
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("%w: table %q", ErrNodeNotFound, p.Object)
		}
		if err != nil {
			return fmt.Errorf("load table %s: %w", p.Object, err)
		}
		if _, ok := t.Index(p.Index); !ok {
			return fmt.Errorf("%w: index %q", ErrNodeNotFound, p.Index)
		}
	}
	return nil
}

func member(ctx context.Context, h *db.Handle, schema, folder, name string) error {
	var names []string
	var err error
	if folder == FolderTables {
		names, err = h.Catalog.Tables(ctx, h.DB, schema)
	} else {
		names, err = h.Catalog.Views(ctx, h.DB, schema)
	}
	if err != nil {
		return fmt.Errorf("list %s of %s: %w", folder, schema, err)
	}
	if !db.Contains(names, name) {
		return fmt.Errorf("%w: %s %q", ErrNodeNotFound, folder, name)
	}
	return nil
}

// Children lists the direct children of n in catalog order.
func Children(ctx context.Context, h *db.Handle, n *Node) ([]*Node, error) {
	if n == nil || n.Connection != h.Key {
		return nil, ErrNodeNotFound
	}
	p := n.Path()
	children := []*Node{}

	switch p.Kind {
	case KindDatabase:
		schemas, err := h.Catalog.Schemas(ctx, h.DB)
		if err != nil {
			return nil, fmt.Errorf("list schemas: %w", err)
		}
		for _, s := range schemas {
			children = append(children, newNode(h.Key, Path{Kind: KindSchema, Schema: s}))
		}
	case KindSchema:
		children = append(children,
			newNode(h.Key, Path{Kind: KindFolder, Schema: p.Schema, Folder: FolderTables}),
			newNode(h.Key, Path{Kind: KindFolder, Schema: p.Schema, Folder: FolderViews}))
	case KindTable:
		children = append(children, newNode(h.Key, Path{Kind: KindFolder, Schema: p.Schema, Folder: FolderIndexes, Object: p.Object}))
	case KindFolder:
		switch p.Folder {
		case FolderTables:
			names, err := h.Catalog.Tables(ctx, h.DB, p.Schema)
			if err != nil {
				return nil, fmt.Errorf("list tables of %s: %w", p.Schema, err)
			}
			for _, name := range names {
				children = append(children, newNode(h.Key, Path{Kind: KindTable, Schema: p.Schema, Object: name}))
			}
		case FolderViews:
			names, err := h.Catalog.Views(ctx, h.DB, p.Schema)
			if err != nil {
				return nil, fmt.Errorf("list views of %s: %w", p.Schema, err)
			}
			for _, name := range names {
				children = append(children, newNode(h.Key, Path{Kind: KindView, Schema: p.Schema, Object: name}))
			}
		case FolderIndexes:
			t, err := h.Catalog.Table(ctx, h.DB, p.Schema, p.Object)
			if errors.Is(err, db.ErrNotFound) {
				return nil, fmt.Errorf("%w: table %q", ErrNodeNotFound, p.Object)
			}
			if err != nil {
				return nil, fmt.Errorf("load table %s: %w", p.Object, err)
			}
			for _, ix := range t.Indexes {
				children = append(children, newNode(h.Key, Path{Kind: KindIndex, Schema: p.Schema, Object: p.Object, Index: ix.Name}))
			}
		}
	}
	return children, nil
}
