package store

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"
)

// Supported driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

//go:embed schema/sqlite.sql
var sqliteSchema string

//go:embed schema/postgres.sql
var postgresSchema string

// dialect captures the per-backend differences: driver registration name,
// schema DDL and placeholder style.
type dialect struct {
	name     string
	driver   string
	schema   string
	numbered bool // $1, $2, ... instead of ?
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case "", DriverSQLite:
		return dialect{name: DriverSQLite, driver: "sqlite3", schema: sqliteSchema}, nil
	case DriverPostgres:
		return dialect{name: DriverPostgres, driver: "pgx", schema: postgresSchema, numbered: true}, nil
	default:
		return dialect{}, fmt.Errorf("unsupported driver %q", driver)
	}
}

// rebind rewrites "?" placeholders for dialects that number them.
// Queries in this package never contain a literal "?".
func (d dialect) rebind(query string) string {
	if !d.numbered || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
