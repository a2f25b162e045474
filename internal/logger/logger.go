// Package logger provides structured logging for mapdone using zap.
//
// Entries always go to stderr so that list and export output on stdout stays
// clean. An optional file sink receives a copy.
package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Output formats
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Field names shared by every component, so daemon and CLI logs can be
// filtered the same way.
const (
	FieldPath      = "path"
	FieldItemID    = "item_id"
	FieldPhase     = "phase"
	FieldOperation = "operation"
	FieldError     = "error"
)

// Logger is a zap.SugaredLogger with mapdone's field helpers
type Logger struct {
	*zap.SugaredLogger
}

// Config holds logger configuration options
type Config struct {
	// Level is the minimum level: debug, info, warn or error
	Level string

	// Format is FormatConsole or FormatJSON
	Format string

	// OutputPath is an extra file sink; empty means stderr only
	OutputPath string

	EnableCaller     bool
	EnableStacktrace bool
}

var (
	defaultMu     sync.Mutex
	defaultLogger *Logger
)

// DefaultConfig is used when New is given nil
func DefaultConfig() *Config {
	return &Config{
		Level:            "info",
		Format:           FormatConsole,
		EnableStacktrace: true,
	}
}

// New creates a logger from cfg
func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	sink, err := openSink(cfg.OutputPath)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(newEncoder(cfg.Format), sink, level)

	var opts []zap.Option
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if cfg.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	return &Logger{SugaredLogger: zap.New(core, opts...).Sugar()}, nil
}

// NewNop returns a logger that discards everything
func NewNop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// Get returns the process-wide logger, creating a default one on first use.
// Components fall back to it when no logger is injected.
func Get() *Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultLogger == nil {
		l, err := New(nil)
		if err != nil {
			l = NewNop()
		}
		defaultLogger = l
	}
	return defaultLogger
}

func newEncoder(format string) zapcore.Encoder {
	if format == FormatJSON {
		return zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}

	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewConsoleEncoder(ec)
}

func openSink(path string) (zapcore.WriteSyncer, error) {
	stderr := zapcore.AddSync(os.Stderr)
	if path == "" {
		return stderr, nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return zapcore.NewMultiWriteSyncer(stderr, zapcore.AddSync(f)), nil
}

func parseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("invalid log level %q", level)
}

// WithFields returns a logger with key/value pairs attached
func (l *Logger) WithFields(fields ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.With(fields...)}
}

// WithPath attaches a map or audio file path
func (l *Logger) WithPath(path string) *Logger {
	return l.WithFields(FieldPath, path)
}

// WithItem attaches a library item's id and map path
func (l *Logger) WithItem(id, path string) *Logger {
	return l.WithFields(FieldItemID, id, FieldPath, path)
}

// WithOperation attaches the running operation (scan, sync, prune)
func (l *Logger) WithOperation(operation string) *Logger {
	return l.WithFields(FieldOperation, operation)
}

// WithError attaches err
func (l *Logger) WithError(err error) *Logger {
	return l.WithFields(FieldError, err)
}

// WithFailure describes a map file that could not be processed. phase is
// the step that failed, "stat" or "parse".
func (l *Logger) WithFailure(path, phase string, err error) *Logger {
	return l.WithFields(FieldPath, path, FieldPhase, phase, FieldError, err)
}
