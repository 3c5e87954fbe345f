// Package journal records every request a web step executes in sqlite or
// postgres so runs can be inspected later.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/loykin/webstep/internal/common"
	"github.com/loykin/webstep/internal/constants"
	"github.com/loykin/webstep/internal/journal/postgresql"
	"github.com/loykin/webstep/internal/journal/sqlite"
	"github.com/loykin/webstep/internal/retry"
	"github.com/loykin/webstep/internal/util"
)

const (
	DriverSqlite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	ErrUnknownDriver = errors.New("journal: unknown driver")
	ErrInvalidTable  = errors.New("journal: invalid table name")
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Run is one executed request.
type Run struct {
	ID         int64
	Step       string
	Invocation string
	Method     string
	URL        string
	StatusCode int
	Failed     bool
	Error      string
	Body       *string
	Duration   time.Duration
	RanAt      time.Time
}

// Recorder receives runs from a step.
type Recorder interface {
	Record(ctx context.Context, run Run) error
}

// Dialect hides the SQL differences between the supported databases.
type Dialect interface {
	Placeholder(index int) string
	BoolToStorage(b bool) interface{}
	TimeToStorage(t time.Time) interface{}
	BoolFromStorage(val interface{}) bool
	TimeFromStorage(val interface{}) time.Time
	Connect(dsn string) (*sql.DB, error)
	EnsureStatements(table string) []string
	DriverName() string
}

type Config struct {
	Driver   string            `mapstructure:"driver" yaml:"driver"`
	Table    string            `mapstructure:"table" yaml:"table"`
	SaveBody bool              `mapstructure:"save_body" yaml:"save_body"`
	SQLite   sqlite.Config     `mapstructure:"sqlite" yaml:"sqlite"`
	Postgres postgresql.Config `mapstructure:"postgres" yaml:"postgres"`
	Retry    *retry.Config     `mapstructure:"-" yaml:"-"`
}

// Store is a Recorder backed by a SQL database.
type Store struct {
	db       *sql.DB
	dialect  Dialect
	table    string
	saveBody bool
	retry    *retry.Config
	logger   *common.Logger
}

// Open connects to the configured database and ensures the schema. The
// driver defaults to sqlite.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	table := util.TrimWithDefault(cfg.Table, constants.DefaultJournalTable)
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}

	var (
		dialect Dialect
		dsn     string
	)
	switch driver := util.TrimAndLower(cfg.Driver); driver {
	case "", DriverSqlite:
		dialect, dsn = sqlite.NewDialect(), cfg.SQLite.DSN()
	case DriverPostgres, "postgresql", "pgx":
		dsn = cfg.Postgres.ConnString()
		if dsn == "" {
			return nil, errors.New("journal: postgres requires dsn or host")
		}
		dialect = postgresql.NewDialect()
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, cfg.Driver)
	}

	logger := common.GetLogger().WithStore(dialect.DriverName())
	db, err := dialect.Connect(dsn)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, dialect: dialect, table: table, saveBody: cfg.SaveBody, retry: cfg.Retry, logger: logger}
	if err := s.ensure(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("journal ready", "table", table)
	return s, nil
}

func (s *Store) ensure(ctx context.Context) error {
	for i, q := range s.dialect.EnsureStatements(s.table) {
		s.logger.Debug("executing schema statement", "index", i+1, "sql", q)
		if err := retry.Do(ctx, s.retry, func() error {
			_, err := s.db.ExecContext(ctx, q)
			return err
		}); err != nil {
			return fmt.Errorf("journal: ensure schema (statement %d): %w", i+1, err)
		}
	}
	return nil
}

// Record inserts run. Bodies are only kept when SaveBody is set.
func (s *Store) Record(ctx context.Context, run Run) error {
	if s == nil || s.db == nil {
		return nil
	}
	if run.RanAt.IsZero() {
		run.RanAt = time.Now()
	}
	var body interface{}
	if s.saveBody && run.Body != nil {
		body = *run.Body
	}
	var errText interface{}
	if run.Error != "" {
		errText = common.MaskSensitiveData(run.Error)
	}

	ph := make([]string, 10)
	for i := range ph {
		ph[i] = s.dialect.Placeholder(i + 1)
	}
	q := fmt.Sprintf("INSERT INTO %s(step, invocation, method, url, status_code, failed, error, body, duration_ms, ran_at) VALUES(%s)",
		s.table, strings.Join(ph, ", "))

	_, err := retry.Value(ctx, s.retry, func() (sql.Result, error) {
		return s.db.ExecContext(ctx, q,
			run.Step, run.Invocation, run.Method, common.MaskSensitiveData(run.URL), run.StatusCode,
			s.dialect.BoolToStorage(run.Failed), errText, body, run.Duration.Milliseconds(),
			s.dialect.TimeToStorage(run.RanAt))
	})
	if err != nil {
		return fmt.Errorf("journal: record run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first. An empty step lists all
// steps; limit <= 0 uses the default history size.
func (s *Store) ListRuns(ctx context.Context, step string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = constants.DefaultHistoryLimit
	}
	cols := "id, step, invocation, method, url, status_code, failed, error, body, duration_ms, ran_at"
	var (
		q    string
		args []interface{}
	)
	if step == "" {
		q = fmt.Sprintf("SELECT %s FROM %s ORDER BY id DESC LIMIT %s", cols, s.table, s.dialect.Placeholder(1))
		args = []interface{}{limit}
	} else {
		q = fmt.Sprintf("SELECT %s FROM %s WHERE step = %s ORDER BY id DESC LIMIT %s", cols, s.table,
			s.dialect.Placeholder(1), s.dialect.Placeholder(2))
		args = []interface{}{step, limit}
	}

	rows, err := retry.Value(ctx, s.retry, func() (*sql.Rows, error) {
		return s.db.QueryContext(ctx, q, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("journal: list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Run
	for rows.Next() {
		var (
			r          Run
			failed     interface{}
			ranAt      interface{}
			errText    sql.NullString
			body       sql.NullString
			durationMS int64
		)
		if err := rows.Scan(&r.ID, &r.Step, &r.Invocation, &r.Method, &r.URL, &r.StatusCode,
			&failed, &errText, &body, &durationMS, &ranAt); err != nil {
			return nil, fmt.Errorf("journal: scan run: %w", err)
		}
		r.Failed = s.dialect.BoolFromStorage(failed)
		r.RanAt = s.dialect.TimeFromStorage(ranAt)
		r.Error = errText.String
		if body.Valid {
			b := body.String
			r.Body = &b
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
