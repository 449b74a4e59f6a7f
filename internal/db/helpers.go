package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
)

// Dialect names the SQL flavour behind the shared connection.
type Dialect string

const (
	MySQL    Dialect = "mysql"
	Postgres Dialect = "postgres"
)

var current atomic.Value

func init() { current.Store(MySQL) }

// SetDialect is called once the connection is opened.
func SetDialect(d Dialect) { current.Store(d) }

func CurrentDialect() Dialect { return current.Load().(Dialect) }

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Rebind rewrites '?' placeholders to $n for postgres. Queries are written
// MySQL-style; literals in them never contain '?'.
func Rebind(query string) string {
	if CurrentDialect() != Postgres {
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

// WithTx runs fn inside a transaction, committing on nil and rolling back
// otherwise.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// NullIfEmpty helps store optional strings.
func NullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func schemaExpr() string {
	if CurrentDialect() == Postgres {
		return "current_schema()"
	}
	return "DATABASE()"
}

func HasTable(ctx context.Context, q Querier, table string) bool {
	var name sql.NullString
	err := q.QueryRowContext(ctx, Rebind(`
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = `+schemaExpr()+`
		  AND table_name = ?
		LIMIT 1
	`), table).Scan(&name)
	if err != nil {
		return false
	}
	return name.Valid && name.String != ""
}

// MissingTables returns the tables from want that do not exist.
func MissingTables(ctx context.Context, q Querier, want ...string) []string {
	missing := []string{}
	for _, t := range want {
		if !HasTable(ctx, q, t) {
			missing = append(missing, t)
		}
	}
	return missing
}
