// Package sqlstore provides a database/sql storage implementation for
// SQLite (modernc.org/sqlite) and PostgreSQL (pgx).
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver

	"github.com/mcoot/tourney/internal/storage"
)

// Dialect selects the SQL flavour a Store speaks
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func (d Dialect) driverName() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

func (d Dialect) placeholder() sq.PlaceholderFormat {
	if d == DialectPostgres {
		return sq.Dollar
	}
	return sq.Question
}

// lockSuffix is appended to SELECTs that must hold a row for the rest of a
// transaction. SQLite runs on a single connection, so every transaction
// already excludes all others.
func (d Dialect) lockSuffix() string {
	if d == DialectPostgres {
		return "FOR UPDATE"
	}
	return ""
}

// Config holds SQL connection settings
type Config struct {
	Dialect Dialect

	// DSN is a file path (or ":memory:") for SQLite and a connection URL for PostgreSQL
	DSN string

	// MaxOpenConns applies to PostgreSQL only
	MaxOpenConns int
}

// Store persists tournament state in a SQL database
type Store struct {
	db      *sql.DB
	dialect Dialect
	sb      sq.StatementBuilderType
}

// Ensure Store implements the interface
var _ storage.Storage = (*Store)(nil)

// Open connects to the database and applies embedded migrations
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("storage dsn is required")
	}

	dsn := cfg.DSN
	switch cfg.Dialect {
	case DialectSQLite:
		dsn = "file:" + cfg.DSN + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	case DialectPostgres:
	default:
		return nil, fmt.Errorf("unknown sql dialect %q", cfg.Dialect)
	}

	db, err := sql.Open(cfg.Dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", cfg.Dialect, err)
	}

	if cfg.Dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s db: %w", cfg.Dialect, err)
	}

	s := NewWithDB(db, cfg.Dialect)
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// NewWithDB wraps an existing handle without migrating it (for testing)
func NewWithDB(db *sql.DB, dialect Dialect) *Store {
	return &Store{
		db:      db,
		dialect: dialect,
		sb:      sq.StatementBuilder.PlaceholderFormat(dialect.placeholder()),
	}
}

// Close closes the database handle
func (s *Store) Close() error {
	return s.db.Close()
}

// runner is satisfied by both *sql.DB and *sql.Tx
type runner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func qExec(ctx context.Context, r runner, q sq.Sqlizer) (sql.Result, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	return r.ExecContext(ctx, query, args...)
}

func qQuery(ctx context.Context, r runner, q sq.SelectBuilder) (*sql.Rows, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	return r.QueryContext(ctx, query, args...)
}

func qRow(ctx context.Context, r runner, q sq.SelectBuilder) (*sql.Row, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	return r.QueryRowContext(ctx, query, args...), nil
}

// qCount runs a COUNT(*) query
func qCount(ctx context.Context, r runner, q sq.SelectBuilder) (int, error) {
	row, err := qRow(ctx, r, q)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// withTx runs fn in a transaction, committing only if fn succeeds
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// locked adds the dialect's row lock to q
func (s *Store) locked(q sq.SelectBuilder) sq.SelectBuilder {
	if suffix := s.dialect.lockSuffix(); suffix != "" {
		return q.Suffix(suffix)
	}
	return q
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func nullMillis(value *time.Time) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*value), Valid: true}
}

func fromNullMillis(value sql.NullInt64) *time.Time {
	if !value.Valid {
		return nil
	}
	t := fromMillis(value.Int64)
	return &t
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
