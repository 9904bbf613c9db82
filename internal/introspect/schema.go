package introspect

// Column represents a table column.
type Column struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Nullable bool    `json:"nullable"`
	PK       bool    `json:"pk"`
	Default  *string `json:"default,omitempty"`
	Extra    string  `json:"extra,omitempty"` // auto_increment, IDENTITY(1,1), ...
	Comment  *string `json:"comment,omitempty"`
}

// ConstraintKind is the kind of a table constraint.
type ConstraintKind string

const (
	PrimaryKey ConstraintKind = "PRIMARY KEY"
	Unique     ConstraintKind = "UNIQUE"
	ForeignKey ConstraintKind = "FOREIGN KEY"
	Check      ConstraintKind = "CHECK"
)

// Constraint is a table-level constraint. When Definition is set it holds
// the body as reported by the server (e.g. pg_get_constraintdef) and the
// structured fields are informational.
type Constraint struct {
	Name       string         `json:"name,omitempty"`
	Kind       ConstraintKind `json:"kind"`
	Columns    []string       `json:"columns,omitempty"`
	RefSchema  string         `json:"ref_schema,omitempty"`
	RefTable   string         `json:"ref_table,omitempty"`
	RefColumns []string       `json:"ref_columns,omitempty"`
	OnDelete   string         `json:"on_delete,omitempty"`
	OnUpdate   string         `json:"on_update,omitempty"`
	Definition string         `json:"definition,omitempty"`
}

// Index is a secondary index not backing a constraint. Definition, when
// set, is the complete CREATE INDEX statement reported by the server.
type Index struct {
	Name       string   `json:"name"`
	Unique     bool     `json:"unique"`
	Columns    []string `json:"columns,omitempty"`
	Definition string   `json:"definition,omitempty"`
}

// Table represents a database table and everything needed to render it.
type Table struct {
	Schema      string       `json:"schema,omitempty"`
	Name        string       `json:"name"`
	Columns     []Column     `json:"columns"`
	Constraints []Constraint `json:"constraints,omitempty"`
	Indexes     []Index      `json:"indexes,omitempty"`
	Comment     *string      `json:"comment,omitempty"` // optional table comment
	Options     string       `json:"options,omitempty"` // trailing table options, e.g. ENGINE=InnoDB
}

// Index returns the named index, if present.
func (t *Table) Index(name string) (Index, bool) {
	for _, ix := range t.Indexes {
		if ix.Name == name {
			return ix, true
		}
	}
	return Index{}, false
}

// View represents a database view. Source, when set, is the complete
// stored CREATE VIEW statement; otherwise Definition holds the query.
type View struct {
	Schema     string  `json:"schema,omitempty"`
	Name       string  `json:"name"`
	Definition string  `json:"definition,omitempty"`
	Source     string  `json:"source,omitempty"`
	Comment    *string `json:"comment,omitempty"`
}
