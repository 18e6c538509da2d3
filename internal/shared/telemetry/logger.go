package telemetry

import (
	"sort"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var current atomic.Pointer[zap.Logger]

func init() {
	logger, err := build("dev", "info")
	if err != nil {
		logger = zap.NewNop()
	}
	current.Store(logger)
}

// Init replaces the process logger. Production environments log JSON at the
// requested level; everything else logs JSON in development mode.
func Init(env, level string) error {
	logger, err := build(env, level)
	if err != nil {
		return err
	}
	old := current.Swap(logger)
	if old != nil {
		_ = old.Sync()
	}
	return nil
}

// SetLogger installs an already-built logger, mainly for tests.
func SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	current.Store(logger)
}

// L returns the process logger.
func L() *zap.Logger {
	return current.Load()
}

// Sync flushes buffered log entries.
func Sync() {
	_ = L().Sync()
}

// Info writes an info-level log line with the given fields.
func Info(msg string, fields map[string]any) {
	L().Info(msg, toFields(fields)...)
}

// Warn writes a warn-level log line with the given fields.
func Warn(msg string, fields map[string]any) {
	L().Warn(msg, toFields(fields)...)
}

// Error writes an error-level log line with the given fields.
func Error(msg string, fields map[string]any) {
	L().Error(msg, toFields(fields)...)
}

func build(env, level string) (*zap.Logger, error) {
	return buildConfig(env, level).Build()
}

// buildConfig never attaches stack traces; panics are logged with their own
// stack by the recovery middleware.
func buildConfig(env, level string) zap.Config {
	cfg := zap.NewProductionConfig()
	if env != "production" {
		cfg.Development = true
	}
	cfg.DisableStacktrace = true
	cfg.OutputPaths = []string{"stdout"}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg
}

func toFields(fields map[string]any) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		if err, ok := fields[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}
