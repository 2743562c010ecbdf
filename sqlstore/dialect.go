package sqlstore

import (
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect selects driver name, placeholder style and column types.
type Dialect uint8

const (
	// Postgres uses $n placeholders and BYTEA blobs.
	Postgres Dialect = iota
	// SQLite uses ? placeholders and BLOB columns.
	SQLite
)

// String returns the dialect name.
func (d Dialect) String() string {
	switch d {
	case Postgres:
		return "postgres"
	case SQLite:
		return "sqlite"
	default:
		return "unknown"
	}
}

// ParseDialect maps a driver or dialect name to a [Dialect].
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql", "pq":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return 0, fmt.Errorf("sqlstore: unknown dialect %q", name)
	}
}

func (d Dialect) driverName() string {
	if d == SQLite {
		return "sqlite"
	}
	return "postgres"
}

func (d Dialect) blobType() string {
	if d == SQLite {
		return "BLOB"
	}
	return "BYTEA"
}

// rebind rewrites ? placeholders into the dialect's style.
func (d Dialect) rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
