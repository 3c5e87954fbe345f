// Package webstep is the library entry point for embedding a web request
// step in another program.
package webstep

import (
	"context"

	"github.com/loykin/webstep/internal/common"
	"github.com/loykin/webstep/internal/httpc"
	"github.com/loykin/webstep/internal/journal"
	"github.com/loykin/webstep/internal/journal/postgresql"
	"github.com/loykin/webstep/internal/journal/sqlite"
	"github.com/loykin/webstep/internal/metrics"
	"github.com/loykin/webstep/internal/step"
	"github.com/loykin/webstep/pkg/endpoint"
	"github.com/loykin/webstep/pkg/message"
	"github.com/prometheus/client_golang/prometheus"
)

// Re-export commonly used types for public API

type Step = step.Step

type StepConfig = step.Config

type Flow = step.Flow

type StepOption = step.Option

type Endpoint = endpoint.Endpoint

type Message = message.Message

type Sink = message.Sink

// RemoteError is returned by Handle when the endpoint answers outside 2xx or
// cannot be reached.
type RemoteError = httpc.RemoteError

var (
	ErrRemoteCall      = httpc.ErrRemoteCall
	ErrMissingEndpoint = step.ErrMissingEndpoint
	ErrMissingMethod   = step.ErrMissingMethod
)

// NewStep creates an idle step; call Start before Handle.
func NewStep(name string, cfg StepConfig, ep *Endpoint, opts ...StepOption) *Step {
	return step.New(name, cfg, ep, opts...)
}

// DecodeStepConfig reads step settings keyed like "relative.path" and "http.method".
func DecodeStepConfig(settings map[string]interface{}) (StepConfig, error) {
	return step.DecodeConfig(settings)
}

func DecodeEndpoint(settings map[string]interface{}) (*Endpoint, error) {
	return endpoint.Decode(settings)
}

func WithFlow(f Flow) StepOption { return step.WithFlow(f) }

func WithLogger(l *Logger) StepOption { return step.WithLogger(l) }

// WithJournal records every executed request in j. A nil journal disables
// recording.
func WithJournal(j *Journal) StepOption {
	if j == nil {
		return func(*step.Step) {}
	}
	return step.WithRecorder(j)
}

// WithMetrics registers step metrics on reg and attaches them to the step.
func WithMetrics(reg prometheus.Registerer) (StepOption, error) {
	m, err := metrics.New(reg)
	if err != nil {
		return nil, err
	}
	return step.WithMetrics(m), nil
}

func NewData(headers map[string]string, payload ...string) Message {
	return message.NewData(headers, payload...)
}

func NewControl(headers map[string]string) Message { return message.NewControl(headers) }

// Journal

type Journal = journal.Store

type JournalConfig = journal.Config

type JournalRun = journal.Run

type SqliteConfig = sqlite.Config

type PostgresConfig = postgresql.Config

const (
	DriverSqlite   = journal.DriverSqlite
	DriverPostgres = journal.DriverPostgres
)

func OpenJournal(ctx context.Context, cfg JournalConfig) (*Journal, error) {
	return journal.Open(ctx, cfg)
}

// Logging

type Logger = common.Logger

type LogLevel = common.LogLevel

const (
	LogLevelError = common.LogLevelError
	LogLevelWarn  = common.LogLevelWarn
	LogLevelInfo  = common.LogLevelInfo
	LogLevelDebug = common.LogLevelDebug
)

func NewLogger(level LogLevel) *Logger { return common.NewLogger(level) }

func NewJSONLogger(level LogLevel) *Logger { return common.NewJSONLogger(level) }

func NewColorLogger(level LogLevel) *Logger { return common.NewColorLogger(level) }

func SetDefaultLogger(l *Logger) { common.SetDefaultLogger(l) }

func GetLogger() *Logger { return common.GetLogger() }

// EnableMasking toggles masking of credentials in log output.
func EnableMasking(enabled bool) { common.EnableMasking(enabled) }

func MaskSensitiveData(s string) string { return common.MaskSensitiveData(s) }
