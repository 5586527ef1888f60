package dbx

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// Dialect selects placeholder style, driver and migration set. Repositories
// write queries with '?' placeholders and pass them through Rebind.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

// ParseDialect maps a configured driver name to a Dialect. "postgres" is
// accepted as an alias of the pgx stdlib driver name.
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "pgx", "postgres", "postgresql":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return 0, fmt.Errorf("unsupported database driver: %q", driver)
	}
}

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	if d == Postgres {
		return "pgx"
	}
	return "sqlite"
}

// MigrationsDir is the directory of the embedded migration set.
func (d Dialect) MigrationsDir() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// GooseDialect is the dialect name understood by goose.
func (d Dialect) GooseDialect() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite3"
}

func (d Dialect) String() string {
	return d.DriverName()
}

// Rebind rewrites '?' placeholders into '$1, $2, ...' for Postgres. Question
// marks inside single-quoted literals are left alone.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ReplaceTxOptions are the options of transactions that replace a whole vault.
// Postgres runs them serializable so a concurrent insert aborts the replace
// instead of leaving records under two keys. SQLite already serializes
// writers on the database lock. Open it with _txlock=immediate so that lock
// is taken at BEGIN, before the replace reads anything.
func (d Dialect) ReplaceTxOptions() *sql.TxOptions {
	if d == Postgres {
		return &sql.TxOptions{Isolation: sql.LevelSerializable}
	}
	return nil
}

// LockClause is appended to a row read that must block concurrent writers
// until the transaction ends.
func (d Dialect) LockClause() string {
	if d == Postgres {
		return " FOR UPDATE"
	}
	return ""
}

// Collate is appended to ORDER BY on text columns so results come back in
// byte order. SQLite's default BINARY collation already is.
func (d Dialect) Collate() string {
	if d == Postgres {
		return ` COLLATE "C"`
	}
	return ""
}

// FoldCase lowercases s the way the dialect's LOWER() does. SQLite's
// built-in LOWER only folds ASCII letters, so other runes stay as they are.
func (d Dialect) FoldCase(s string) string {
	if d == Postgres {
		return strings.ToLower(s)
	}
	return strings.Map(func(r rune) rune {
		if 'A' <= r && r <= 'Z' {
			return r + 'a' - 'A'
		}
		return r
	}, s)
}
