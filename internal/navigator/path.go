package navigator

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrNodeNotFound is returned when an ID is malformed or names an object
// that does not exist in the catalog.
var ErrNodeNotFound = errors.New("node not found")

// Kind is the type of object a node refers to.
type Kind string

const (
	KindDatabase Kind = "database"
	KindSchema   Kind = "schema"
	KindFolder   Kind = "folder"
	KindTable    Kind = "table"
	KindView     Kind = "view"
	KindIndex    Kind = "index"
)

// Folder names as they appear in node IDs.
const (
	FolderTables  = "tables"
	FolderViews   = "views"
	FolderIndexes = "indexes"
)

// Path is a parsed node ID.
//
//	""                          database
//	s                           schema
//	s/tables, s/views           folder
//	s/tables/t                  table
//	s/tables/t/indexes          folder
//	s/tables/t/indexes/i        index
//	s/views/v                   view
type Path struct {
	Kind   Kind
	Schema string
	Folder string // tables, views or indexes
	Object string // table or view name
	Index  string
}

// ParseID splits id into a Path. Segments are path-unescaped.
func ParseID(id string) (Path, error) {
	id = strings.Trim(strings.TrimSpace(id), "/")
	if id == "" {
		return Path{Kind: KindDatabase}, nil
	}

	raw := strings.Split(id, "/")
	seg := make([]string, len(raw))
	for i, s := range raw {
		u, err := url.PathUnescape(s)
		if err != nil || u == "" {
			return Path{}, fmt.Errorf("%w: malformed id %q", ErrNodeNotFound, id)
		}
		seg[i] = u
	}

	p := Path{Schema: seg[0]}
	switch {
	case len(seg) == 1:
		p.Kind = KindSchema
	case len(seg) == 2 && (seg[1] == FolderTables || seg[1] == FolderViews):
		p.Kind, p.Folder = KindFolder, seg[1]
	case len(seg) == 3 && seg[1] == FolderTables:
		p.Kind, p.Object = KindTable, seg[2]
	case len(seg) == 3 && seg[1] == FolderViews:
		p.Kind, p.Object = KindView, seg[2]
	case len(seg) == 4 && seg[1] == FolderTables && seg[3] == FolderIndexes:
		p.Kind, p.Object, p.Folder = KindFolder, seg[2], FolderIndexes
	case len(seg) == 5 && seg[1] == FolderTables && seg[3] == FolderIndexes:
		p.Kind, p.Object, p.Index = KindIndex, seg[2], seg[4]
	default:
		return Path{}, fmt.Errorf("%w: malformed id %q", ErrNodeNotFound, id)
	}
	return p, nil
}

// String renders p back into its ID.
func (p Path) String() string {
	esc := url.PathEscape
	switch p.Kind {
	case KindSchema:
		return esc(p.Schema)
	case KindFolder:
		if p.Folder == FolderIndexes {
			return esc(p.Schema) + "/" + FolderTables + "/" + esc(p.Object) + "/" + FolderIndexes
		}
		return esc(p.Schema) + "/" + p.Folder
	case KindTable:
		return esc(p.Schema) + "/" + FolderTables + "/" + esc(p.Object)
	case KindView:
		return esc(p.Schema) + "/" + FolderViews + "/" + esc(p.Object)
	case KindIndex:
		return esc(p.Schema) + "/" + FolderTables + "/" + esc(p.Object) + "/" + FolderIndexes + "/" + esc(p.Index)
	default:
		return ""
	}
}

// Name is the display name of the object p refers to.
func (p Path) Name() string {
	switch p.Kind {
	case KindDatabase:
		return "database"
	case KindSchema:
		return p.Schema
	case KindFolder:
		return p.Folder
	case KindIndex:
		return p.Index
	default:
		return p.Object
	}
}
