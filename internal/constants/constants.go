package constants

import (
	"time"
)

// Step setting defaults
const (
	DefaultCharset  = "UTF-8"
	DefaultBodyFrom = BodyFromMessage
	DefaultRunWhen  = RunPerMessage

	BodyFromMessage = "Message"

	RunPerMessage    = "PER_MESSAGE"
	RunPerUnitOfWork = "PER_UNIT_OF_WORK"
)

// HTTP header names
const (
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"
)

// Journal store defaults
const (
	DefaultPostgresPort    = 5432
	DefaultPostgresSSLMode = "disable"

	DefaultPostgresMaxConnections = 25
	DefaultPostgresMaxIdleConns   = 5

	DefaultJournalTable   = "webstep_request_runs"
	DefaultJournalDBFile  = "webstep.db"
	DefaultHistoryLimit   = 50
	DefaultMaxConnLife    = 5 * time.Minute
	DefaultMaxIdleTime    = 1 * time.Minute
	DefaultSQLiteLifetime = 10 * time.Minute
	DefaultSQLiteIdleTime = 5 * time.Minute
)

// Server defaults
const (
	DefaultServerAddr      = ":8089"
	DefaultShutdownTimeout = 10 * time.Second
)
