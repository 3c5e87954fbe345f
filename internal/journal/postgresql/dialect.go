package postgresql

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/loykin/webstep/internal/constants"
)

// Dialect implements the journal SQL dialect for PostgreSQL.
type Dialect struct{}

func NewDialect() *Dialect {
	return &Dialect{}
}

// Placeholder returns PostgreSQL-style placeholders ($1, $2, etc.)
func (d *Dialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

func (d *Dialect) BoolToStorage(b bool) interface{} {
	return b
}

func (d *Dialect) TimeToStorage(t time.Time) interface{} {
	return t.UTC()
}

func (d *Dialect) BoolFromStorage(val interface{}) bool {
	if b, ok := val.(bool); ok {
		return b
	}
	return false
}

func (d *Dialect) TimeFromStorage(val interface{}) time.Time {
	switch v := val.(type) {
	case time.Time:
		return v.UTC()
	case *time.Time:
		if v != nil {
			return v.UTC()
		}
	}
	return time.Time{}
}

// Connect opens a pgx-backed pool and verifies it with a ping.
func (d *Dialect) Connect(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL connection: %w", err)
	}
	db.SetMaxOpenConns(constants.DefaultPostgresMaxConnections)
	db.SetMaxIdleConns(constants.DefaultPostgresMaxIdleConns)
	db.SetConnMaxLifetime(constants.DefaultMaxConnLife)
	db.SetConnMaxIdleTime(constants.DefaultMaxIdleTime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL database: %w", err)
	}
	return db, nil
}

func (d *Dialect) EnsureStatements(table string) []string {
	return []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id BIGSERIAL PRIMARY KEY, step TEXT NOT NULL, invocation TEXT NOT NULL, method TEXT NOT NULL, url TEXT NOT NULL, status_code INTEGER NOT NULL, failed BOOLEAN NOT NULL DEFAULT FALSE, error TEXT NULL, body TEXT NULL, duration_ms BIGINT NOT NULL, ran_at TIMESTAMPTZ NOT NULL)", table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_step_idx ON %s (step, id)", table, table),
	}
}

func (d *Dialect) DriverName() string {
	return "postgresql"
}
