// Package sqlstore implements the repository interfaces on top of database/sql.
//
// Two dialects are supported and share every query:
//
//   - sqlite   (modernc.org/sqlite, pure Go, no CGo) for single-node deployments and tests
//   - postgres (github.com/lib/pq) for deployments that already run a Postgres server
//
// Queries are written once with "?" placeholders. For postgres, rebind rewrites
// them to "$1, $2, ..." before they reach the driver.
//
// DATABASE/SQL OVERVIEW:
//   - sql.DB   is a connection pool, not a single connection
//   - sql.Tx   is a transaction pinned to one connection
//   - sql.Rows must always be closed, or the connection never returns to the pool
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/sakif/recipebox/internal/repository"
)

var _ repository.Store = (*DB)(nil)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

func (d dialect) String() string {
	if d == dialectPostgres {
		return "postgres"
	}
	return "sqlite"
}

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn    *sql.DB
	dialect dialect
}

// NewSQLite opens (or creates) a SQLite database and runs migrations.
//
// dbPath examples:
//   - "data/recipebox.db" → file-based database (persistent)
//   - ":memory:"          → in-memory database (tests; lost on close)
//
// Pragmas are passed in the DSN so they apply to every connection the pool
// opens, not just the first one.
func NewSQLite(dbPath string) (*DB, error) {
	pragmas := []string{"_pragma=foreign_keys(1)", "_pragma=busy_timeout(5000)"}
	if dbPath != ":memory:" {
		pragmas = append(pragmas, "_pragma=journal_mode(WAL)")
	}
	dsn := dbPath + "?" + strings.Join(pragmas, "&")

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: opening sqlite database: %w", err)
	}

	// SQLite allows one writer at a time, and every connection to ":memory:"
	// gets its own empty database. One connection keeps both cases correct.
	conn.SetMaxOpenConns(1)

	return open(conn, dialectSQLite)
}

// NewPostgres connects to Postgres using a lib/pq connection string and runs
// migrations.
func NewPostgres(dsn string) (*DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: opening postgres database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(25)
	conn.SetConnMaxLifetime(5 * time.Minute)

	return open(conn, dialectPostgres)
}

func open(conn *sql.DB, d dialect) (*DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlstore: pinging %s database: %w", d, err)
	}

	db := &DB{conn: conn, dialect: d}
	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlstore: running %s migrations: %w", d, err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the database is reachable. Used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// rebind converts "?" placeholders to the dialect's native form.
func (db *DB) rebind(query string) string {
	if db.dialect != dialectPostgres {
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

// withTx runs fn inside a transaction, committing on success and rolling back
// on any error.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlstore: committing transaction: %w", err)
	}
	return nil
}

// now returns the timestamp stored on new rows. UTC keeps SQLite's text
// timestamps lexically ordered.
func now() time.Time {
	return time.Now().UTC()
}
