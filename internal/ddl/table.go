package ddl

import (
	"strings"

	"dbmeta/internal/introspect"
)

// join drops empty blocks and separates the rest with a blank line.
func join(blocks ...string) string {
	out := blocks[:0:0]
	for _, b := range blocks {
		if b != "" {
			out = append(out, b)
		}
	}
	return strings.Join(out, "\n\n")
}

// header is the leading comment block of an object.
func header(d Dialect, name string, comment *string, o Options) string {
	if !o.Comments {
		return ""
	}
	lines := []string{"-- " + name + " definition"}
	// dialects without COMMENT syntax keep the object comment here
	if comment != nil && *comment != "" && !d.commentStatements() && !d.mysql() {
		for _, l := range strings.Split(*comment, "\n") {
			lines = append(lines, "-- "+l)
		}
	}
	return strings.Join(lines, "\n")
}

// TableDDL renders t as CREATE TABLE followed by its indexes and comments.
func TableDDL(d Dialect, t *introspect.Table, o Options) string {
	name := d.Qualify(t.Schema, t.Name, o.FullNames)

	var drop string
	if o.Drop {
		drop = "DROP TABLE " + name + ";"
	}

	var lines []string
	for _, c := range t.Columns {
		lines = append(lines, "\t"+columnDef(d, c, o))
	}
	for _, con := range t.Constraints {
		if def := constraintDef(d, con, o); def != "" {
			lines = append(lines, "\t"+def)
		}
	}

	var b strings.Builder
	b.WriteString("CREATE TABLE " + name + " (\n")
	b.WriteString(strings.Join(lines, ",\n"))
	b.WriteString("\n)")
	if d.mysql() {
		opts := t.Options
		if o.Comments && t.Comment != nil && *t.Comment != "" {
			opts = strings.TrimSpace(opts + " COMMENT=" + literal(*t.Comment))
		}
		if opts != "" {
			b.WriteString(" " + opts)
		}
	}
	b.WriteString(";")
	if o.Nested {
		for _, ix := range t.Indexes {
			b.WriteString("\n" + indexStatement(d, t, ix, o))
		}
	}

	return join(header(d, name, t.Comment, o), drop, b.String(), commentOn(d, "TABLE", name, t, o))
}

func columnDef(d Dialect, c introspect.Column, o Options) string {
	s := d.Quote(c.Name)
	if c.Type != "" {
		s += " " + c.Type
	}
	if c.Default != nil {
		s += " DEFAULT " + *c.Default
	}
	if !c.Nullable {
		s += " NOT NULL"
	}
	if c.Extra != "" {
		s += " " + c.Extra
	}
	if d.mysql() && o.Comments && c.Comment != nil && *c.Comment != "" {
		s += " COMMENT " + literal(*c.Comment)
	}
	return s
}

// constraintDef renders one table constraint, or "" when it is skipped.
func constraintDef(d Dialect, con introspect.Constraint, o Options) string {
	if con.Kind == introspect.ForeignKey && !o.Nested {
		return ""
	}
	body := con.Definition
	if body == "" {
		switch con.Kind {
		case introspect.PrimaryKey:
			body = "PRIMARY KEY (" + d.QuoteList(con.Columns) + ")"
		case introspect.Unique:
			body = "UNIQUE (" + d.QuoteList(con.Columns) + ")"
		case introspect.ForeignKey:
			body = "FOREIGN KEY (" + d.QuoteList(con.Columns) + ") REFERENCES " + d.Qualify(con.RefSchema, con.RefTable, o.FullNames)
			if len(con.RefColumns) > 0 {
				body += " (" + d.QuoteList(con.RefColumns) + ")"
			}
			if con.OnDelete != "" {
				body += " ON DELETE " + con.OnDelete
			}
			if con.OnUpdate != "" {
				body += " ON UPDATE " + con.OnUpdate
			}
		default:
			return ""
		}
	}
	// MySQL primary keys are always named PRIMARY
	if con.Name == "" || (d.mysql() && con.Kind == introspect.PrimaryKey) {
		return body
	}
	return "CONSTRAINT " + d.Quote(con.Name) + " " + body
}

func indexStatement(d Dialect, t *introspect.Table, ix introspect.Index, o Options) string {
	if ix.Definition != "" {
		def := strings.TrimSuffix(strings.TrimSpace(ix.Definition), ";") + ";"
		if !o.FullNames {
			// stored definitions name the table schema-qualified
			full, short := d.Qualify(t.Schema, t.Name, true), d.Qualify(t.Schema, t.Name, false)
			def = strings.Replace(def, " ON "+full+" ", " ON "+short+" ", 1)
			def = strings.Replace(def, " ON ONLY "+full+" ", " ON ONLY "+short+" ", 1)
		}
		return def
	}
	s := "CREATE "
	if ix.Unique {
		s += "UNIQUE "
	}
	return s + "INDEX " + d.Quote(ix.Name) + " ON " + d.Qualify(t.Schema, t.Name, o.FullNames) +
		" (" + d.QuoteList(ix.Columns) + ");"
}

func dropIndex(d Dialect, t *introspect.Table, ix introspect.Index, o Options) string {
	switch d.Name {
	case "mysql", "sqlserver":
		return "DROP INDEX " + d.Quote(ix.Name) + " ON " + d.Qualify(t.Schema, t.Name, o.FullNames) + ";"
	default:
		return "DROP INDEX " + d.Qualify(t.Schema, ix.Name, o.FullNames) + ";"
	}
}

// IndexDDL renders the CREATE INDEX statement of ix on t.
func IndexDDL(d Dialect, t *introspect.Table, ix introspect.Index, o Options) string {
	var drop string
	if o.Drop {
		drop = dropIndex(d, t, ix, o)
	}
	return join(header(d, d.Quote(ix.Name), nil, o), drop, indexStatement(d, t, ix, o))
}

// commentOn renders COMMENT ON statements for dialects that have them.
func commentOn(d Dialect, kind, name string, t *introspect.Table, o Options) string {
	if !o.Comments || !d.commentStatements() {
		return ""
	}
	var stmts []string
	if t.Comment != nil {
		stmts = append(stmts, "COMMENT ON "+kind+" "+name+" IS "+literal(*t.Comment)+";")
	}
	for _, c := range t.Columns {
		if c.Comment != nil {
			stmts = append(stmts, "COMMENT ON COLUMN "+name+"."+d.Quote(c.Name)+" IS "+literal(*c.Comment)+";")
		}
	}
	return strings.Join(stmts, "\n")
}
