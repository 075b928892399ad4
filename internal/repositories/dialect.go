package repositories

import (
	"fmt"
	"strings"
)

// Dialect captures the few SQL differences between the supported databases.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite3"
)

// ParseDialect maps a database/sql driver name to its dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch Dialect(driver) {
	case Postgres, SQLite:
		return Dialect(driver), nil
	}
	return "", fmt.Errorf("unsupported dialect %q", driver)
}

// lockClause returns the row lock suffix for SELECTs inside a sale transaction.
// SQLite has no row locks; its transactions already hold the write lock from BEGIN IMMEDIATE.
func (d Dialect) lockClause() string {
	if d == Postgres {
		return " FOR UPDATE"
	}
	return ""
}

// shareLockClause returns the row lock suffix for reads that must keep a row from
// being deleted or changed until the transaction ends, while other readers proceed.
func (d Dialect) shareLockClause() string {
	if d == Postgres {
		return " FOR SHARE"
	}
	return ""
}

// placeholders returns "$start, $start+1, ..." for n arguments.
func placeholders(start, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", start+i)
	}
	return strings.Join(parts, ", ")
}
