package common

import (
	"io"
	"log/slog"
	"os"
)

// LogLevel represents logging verbosity levels
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LogLevelError:
		return "error"
	case LogLevelWarn:
		return "warn"
	case LogLevelDebug:
		return "debug"
	default:
		return "info"
	}
}

// ToSlogLevel converts LogLevel to slog.Level
func (l LogLevel) ToSlogLevel() slog.Level {
	switch l {
	case LogLevelError:
		return slog.LevelError
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelDebug:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// Logger provides a centralized logging interface for webstep.
// Output goes to stderr so stdout stays reserved for emitted messages.
type Logger struct {
	*slog.Logger
	level  LogLevel
	masker *Masker
}

// logOutput is the writer used by the constructors; tests swap it.
var logOutput io.Writer = os.Stderr

// NewLogger creates a new structured text logger with the specified level
func NewLogger(level LogLevel) *Logger {
	m := NewMasker()
	opts := &slog.HandlerOptions{Level: level.ToSlogLevel(), ReplaceAttr: maskReplacer(m)}
	return &Logger{Logger: slog.New(slog.NewTextHandler(logOutput, opts)), level: level, masker: m}
}

// NewJSONLogger creates a structured logger with JSON output
func NewJSONLogger(level LogLevel) *Logger {
	m := NewMasker()
	opts := &slog.HandlerOptions{Level: level.ToSlogLevel(), ReplaceAttr: maskReplacer(m)}
	return &Logger{Logger: slog.New(slog.NewJSONHandler(logOutput, opts)), level: level, masker: m}
}

// NewColorLogger creates a logger with colorized, human oriented output
func NewColorLogger(level LogLevel) *Logger {
	h := NewColorHandler(logOutput, &slog.HandlerOptions{Level: level.ToSlogLevel()})
	return &Logger{Logger: slog.New(h), level: level, masker: h.masker}
}

// maskReplacer masks attribute values whose key or content looks sensitive.
func maskReplacer(m *Masker) func(groups []string, a slog.Attr) slog.Attr {
	return func(_ []string, a slog.Attr) slog.Attr {
		if a.Value.Kind() != slog.KindString {
			return a
		}
		if v, ok := m.MaskValue(a.Key, a.Value.String()).(string); ok {
			a.Value = slog.StringValue(v)
		}
		return a
	}
}

// Level returns the current log level
func (l *Logger) Level() LogLevel {
	return l.level
}

// EnableMasking toggles masking of sensitive values for this logger
func (l *Logger) EnableMasking(enabled bool) {
	if l.masker != nil {
		l.masker.SetEnabled(enabled)
	}
}

func (l *Logger) with(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), level: l.level, masker: l.masker}
}

// WithComponent returns a logger with component context
func (l *Logger) WithComponent(component string) *Logger {
	return l.with("component", component)
}

// WithStep returns a logger with pipeline step context
func (l *Logger) WithStep(name string) *Logger {
	return l.with("step", name)
}

// WithInvocation returns a logger tagged with a single Handle invocation id
func (l *Logger) WithInvocation(id string) *Logger {
	return l.with("invocation", id)
}

// WithStore returns a logger with journal store context
func (l *Logger) WithStore(storeType string) *Logger {
	return l.with("store", storeType)
}

// WithRequest returns a logger with HTTP request context
func (l *Logger) WithRequest(method, url string) *Logger {
	return l.with("method", method, "url", MaskSensitiveData(url))
}

// Global default logger instance
var defaultLogger = NewLogger(LogLevelInfo)

// SetDefaultLogger sets the global default logger
func SetDefaultLogger(logger *Logger) {
	if logger != nil {
		defaultLogger = logger
	}
}

// GetLogger returns the default logger
func GetLogger() *Logger {
	return defaultLogger
}
