package ddl

import (
	"regexp"
	"strings"

	"dbmeta/pkg/config"
)

var plainIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// reserved words that force quoting in every dialect
var reserved = map[string]bool{
	"ALL": true, "AND": true, "AS": true, "ASC": true, "BY": true, "CHECK": true,
	"COLUMN": true, "CONSTRAINT": true, "CREATE": true, "DATABASE": true, "DEFAULT": true,
	"DELETE": true, "DESC": true, "DROP": true, "FROM": true, "GROUP": true, "IN": true,
	"INDEX": true, "INSERT": true, "KEY": true, "LIMIT": true, "NOT": true, "NULL": true,
	"OR": true, "ORDER": true, "PRIMARY": true, "REFERENCES": true, "SCHEMA": true,
	"SELECT": true, "TABLE": true, "TO": true, "UNIQUE": true, "UPDATE": true,
	"USER": true, "VIEW": true, "WHERE": true,
}

// Dialect holds the identifier rules of one SQL dialect.
type Dialect struct {
	Name     string
	open     string
	close    string
	fold     func(string) string // case of unquoted identifiers as stored
	implicit string              // schema never used as a qualifier
}

// DialectFor returns the rules for a registered driver name.
func DialectFor(driver string) Dialect {
	d := config.NormalizeDriver(driver)
	same := func(s string) string { return s }
	switch d {
	case "postgres", "pgx":
		return Dialect{Name: d, open: `"`, close: `"`, fold: strings.ToLower}
	case "godror":
		return Dialect{Name: d, open: `"`, close: `"`, fold: strings.ToUpper}
	case "mysql":
		return Dialect{Name: d, open: "`", close: "`", fold: same}
	case "sqlserver":
		return Dialect{Name: d, open: "[", close: "]", fold: same}
	case "sqlite":
		return Dialect{Name: d, open: `"`, close: `"`, fold: same, implicit: "main"}
	default:
		return Dialect{Name: d, open: `"`, close: `"`, fold: same}
	}
}

// Quote returns ident, quoted only when it would not survive unquoted.
func (d Dialect) Quote(ident string) string {
	if plainIdent.MatchString(ident) && d.fold(ident) == ident && !reserved[strings.ToUpper(ident)] {
		return ident
	}
	return d.open + strings.ReplaceAll(ident, d.close, d.close+d.close) + d.close
}

// Qualify joins schema and name when full is set and schema is not implicit.
func (d Dialect) Qualify(schema, name string, full bool) string {
	if !full || schema == "" || schema == d.implicit {
		return d.Quote(name)
	}
	return d.Quote(schema) + "." + d.Quote(name)
}

// QuoteList quotes and comma-joins identifiers.
func (d Dialect) QuoteList(idents []string) string {
	q := make([]string, len(idents))
	for i, s := range idents {
		q[i] = d.Quote(s)
	}
	return strings.Join(q, ", ")
}

// commentStatements reports whether the dialect has COMMENT ON.
func (d Dialect) commentStatements() bool {
	switch d.Name {
	case "postgres", "pgx", "godror":
		return true
	}
	return false
}

func (d Dialect) mysql() bool { return d.Name == "mysql" }

// literal renders s as a string literal.
func literal(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
