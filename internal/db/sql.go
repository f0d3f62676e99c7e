package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" for database/sql
	_ "modernc.org/sqlite"             // registers "sqlite" for database/sql
)

const kvTableDDL = `CREATE TABLE IF NOT EXISTS kv_records (
	record_key TEXT PRIMARY KEY,
	payload    TEXT NOT NULL
)`

// SQLStore keeps records in a two-column table. It serves both SQLite and
// PostgreSQL; only the placeholder syntax differs.
type SQLStore struct {
	db          *sql.DB
	driver      Driver
	getQuery    string
	setQuery    string
	removeQuery string
}

// NewSQLiteStore opens (or creates) a SQLite database at path.
func NewSQLiteStore(ctx context.Context, path string) (*SQLStore, error) {
	if path == "" {
		return nil, fmt.Errorf("open sqlite: empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("open sqlite: create db dir: %w", err)
	}
	dsn := "file:" + path + "?mode=rwc&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serializes writers; SQLite would otherwise report SQLITE_BUSY.
	conn.SetMaxOpenConns(1)
	return newSQLStore(ctx, conn, DriverSQLite,
		`SELECT payload FROM kv_records WHERE record_key = ?`,
		`INSERT INTO kv_records(record_key, payload) VALUES(?, ?) ON CONFLICT(record_key) DO UPDATE SET payload = excluded.payload`,
		`DELETE FROM kv_records WHERE record_key = ?`,
	)
}

// NewPostgresStore connects to PostgreSQL using dsn.
func NewPostgresStore(ctx context.Context, dsn string) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("open postgres: empty dsn")
	}
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return newSQLStore(ctx, conn, DriverPostgres,
		`SELECT payload FROM kv_records WHERE record_key = $1`,
		`INSERT INTO kv_records(record_key, payload) VALUES($1, $2) ON CONFLICT(record_key) DO UPDATE SET payload = EXCLUDED.payload`,
		`DELETE FROM kv_records WHERE record_key = $1`,
	)
}

func newSQLStore(ctx context.Context, conn *sql.DB, driver Driver, getQuery, setQuery, removeQuery string) (*SQLStore, error) {
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open %s: ping: %w", driver, err)
	}
	if _, err := conn.ExecContext(ctx, kvTableDDL); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open %s: migrate: %w", driver, err)
	}
	return &SQLStore{
		db:          conn,
		driver:      driver,
		getQuery:    getQuery,
		setQuery:    setQuery,
		removeQuery: removeQuery,
	}, nil
}

// DB exposes the underlying handle.
func (s *SQLStore) DB() *sql.DB { return s.db }

// Driver reports whether this is a SQLite or PostgreSQL store.
func (s *SQLStore) Driver() Driver { return s.driver }

// Get returns the payload stored under key.
func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, s.getQuery, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%s get %s: %w", s.driver, key, err)
	}
	return payload, true, nil
}

// Set upserts the payload under key.
func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if _, err := s.db.ExecContext(ctx, s.setQuery, key, value); err != nil {
		return fmt.Errorf("%s set %s: %w", s.driver, key, err)
	}
	return nil
}

// Remove deletes the row for key.
func (s *SQLStore) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.removeQuery, key); err != nil {
		return fmt.Errorf("%s remove %s: %w", s.driver, key, err)
	}
	return nil
}

// Close closes the database handle.
func (s *SQLStore) Close(context.Context) error {
	return s.db.Close()
}
