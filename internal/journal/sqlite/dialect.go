package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/loykin/webstep/internal/constants"
	_ "modernc.org/sqlite"
)

// Dialect implements the journal SQL dialect for SQLite.
type Dialect struct{}

func NewDialect() *Dialect {
	return &Dialect{}
}

// Placeholder returns SQLite-style placeholders (?)
func (d *Dialect) Placeholder(int) string {
	return "?"
}

// BoolToStorage stores booleans as integer 0/1
func (d *Dialect) BoolToStorage(b bool) interface{} {
	if b {
		return 1
	}
	return 0
}

// TimeToStorage stores times as RFC3339Nano text in UTC
func (d *Dialect) TimeToStorage(t time.Time) interface{} {
	return t.UTC().Format(time.RFC3339Nano)
}

func (d *Dialect) BoolFromStorage(val interface{}) bool {
	switch v := val.(type) {
	case int64:
		return v != 0
	case int:
		return v != 0
	case bool:
		return v
	}
	return false
}

func (d *Dialect) TimeFromStorage(val interface{}) time.Time {
	switch v := val.(type) {
	case string:
		t, _ := time.Parse(time.RFC3339Nano, v)
		return t
	case time.Time:
		return v.UTC()
	}
	return time.Time{}
}

// Connect opens the database. SQLite allows a single writer, so the pool is
// capped at one connection.
func (d *Dialect) Connect(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(constants.DefaultSQLiteLifetime)
	db.SetConnMaxIdleTime(constants.DefaultSQLiteIdleTime)
	return db, nil
}

// EnsureStatements creates the runs table and its step index.
func (d *Dialect) EnsureStatements(table string) []string {
	return []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id INTEGER PRIMARY KEY AUTOINCREMENT, step TEXT NOT NULL, invocation TEXT NOT NULL, method TEXT NOT NULL, url TEXT NOT NULL, status_code INTEGER NOT NULL, failed INTEGER NOT NULL DEFAULT 0, error TEXT NULL, body TEXT NULL, duration_ms INTEGER NOT NULL, ran_at TEXT NOT NULL)", table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_step_idx ON %s (step, id)", table, table),
	}
}

func (d *Dialect) DriverName() string {
	return "sqlite"
}
