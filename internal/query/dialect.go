package query

import (
	"fmt"
	"strings"
)

// Dialect formats identifiers and literals for one warehouse flavour. All
// identifier text that reaches a query passes through a Dialect.
type Dialect interface {
	Name() string
	// Ident formats a column or alias name.
	Ident(name string) string
	// Table formats a fully qualified table reference.
	Table(dataset, table string) string
	// String formats a string literal.
	String(s string) string
	// Bool formats a boolean literal.
	Bool(b bool) string
}

// BigQuery is the GoogleSQL dialect used by the orbit warehouse.
type BigQuery struct{}

func (BigQuery) Name() string { return "bigquery" }

func (BigQuery) Ident(name string) string { return name }

func (BigQuery) Table(dataset, table string) string {
	return "`" + dataset + "." + table + "`"
}

func (BigQuery) String(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}

func (BigQuery) Bool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// Postgres quotes identifiers so mixed-case column names survive.
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) Ident(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (p Postgres) Table(dataset, table string) string {
	return p.Ident(dataset) + "." + p.Ident(table)
}

func (Postgres) String(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (Postgres) Bool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

// DialectByName resolves a configured dialect name.
func DialectByName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "", "bigquery":
		return BigQuery{}, nil
	case "postgres", "postgresql":
		return Postgres{}, nil
	default:
		return nil, fmt.Errorf("unknown query dialect %q", name)
	}
}
