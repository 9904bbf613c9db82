package ddl

import (
	"fmt"
	"strings"

	"dbmeta/internal/introspect"
)

// ViewDDL renders v. A stored source statement is returned verbatim,
// otherwise the query is wrapped in CREATE OR REPLACE VIEW.
func ViewDDL(d Dialect, v *introspect.View, o Options) (string, error) {
	name := d.Qualify(v.Schema, v.Name, o.FullNames)

	var drop string
	if o.Drop {
		drop = "DROP VIEW " + name + ";"
	}

	var body string
	switch {
	case strings.TrimSpace(v.Source) != "":
		body = strings.TrimSuffix(strings.TrimSpace(v.Source), ";") + ";"
	case strings.TrimSpace(v.Definition) != "":
		def := strings.TrimSuffix(strings.TrimSpace(v.Definition), ";")
		body = "CREATE OR REPLACE VIEW " + name + " AS\n" + def + ";"
	default:
		return "", fmt.Errorf("view %s has no stored definition", name)
	}

	var comment string
	if o.Comments && d.commentStatements() && v.Comment != nil {
		// Oracle comments on views through COMMENT ON TABLE
		kind := "VIEW"
		if d.Name == "godror" {
			kind = "TABLE"
		}
		comment = "COMMENT ON " + kind + " " + name + " IS " + literal(*v.Comment) + ";"
	}

	return join(header(d, name, v.Comment, o), drop, body, comment), nil
}

// SchemaDDL renders the statement creating schema. Dialects where a
// schema is not created with DDL get a comment line instead.
func SchemaDDL(d Dialect, schema string, o Options) string {
	name := d.Quote(schema)
	switch d.Name {
	case "postgres", "pgx", "sqlserver":
		var drop string
		if o.Drop {
			drop = "DROP SCHEMA " + name + ";"
		}
		return join(header(d, name, nil, o), drop, "CREATE SCHEMA "+name+";")
	case "mysql":
		var drop string
		if o.Drop {
			drop = "DROP DATABASE " + name + ";"
		}
		return join(header(d, name, nil, o), drop, "CREATE DATABASE "+name+";")
	default:
		if !o.Comments {
			return ""
		}
		return "-- schema " + name
	}
}
