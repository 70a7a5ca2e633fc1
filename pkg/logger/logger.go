// Package logger provides a zap-based application logger.
package logger

import (
	"context"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is the minimum severity a Logger writes.
type Level zapcore.Level

const (
	LevelDebug = Level(zapcore.DebugLevel)
	LevelInfo  = Level(zapcore.InfoLevel)
	LevelWarn  = Level(zapcore.WarnLevel)
	LevelError = Level(zapcore.ErrorLevel)
)

// ParseLevel maps "debug", "info", "warn" or "error" to a Level.
func ParseLevel(s string) (Level, error) {
	l, err := zapcore.ParseLevel(s)
	if err != nil {
		return LevelInfo, err
	}
	return Level(l), nil
}

// TraceIDFn extracts a trace id from a request context.
type TraceIDFn func(ctx context.Context) string

// Logger writes JSON log lines tagged with the service name and, when one is
// present in the context, the current trace id.
type Logger struct {
	z       *zap.SugaredLogger
	traceID TraceIDFn
}

// New builds a Logger writing to w.
func New(w io.Writer, minLevel Level, service string, traceID TraceIDFn) *Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(w), zapcore.Level(minLevel))
	z := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).With(zap.String("service", service))

	return &Logger{z: z.Sugar(), traceID: traceID}
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	return &Logger{z: zap.NewNop().Sugar()}
}

func (l *Logger) Debug(ctx context.Context, msg string, keysAndValues ...any) {
	l.with(ctx).Debugw(msg, keysAndValues...)
}

func (l *Logger) Info(ctx context.Context, msg string, keysAndValues ...any) {
	l.with(ctx).Infow(msg, keysAndValues...)
}

func (l *Logger) Warn(ctx context.Context, msg string, keysAndValues ...any) {
	l.with(ctx).Warnw(msg, keysAndValues...)
}

func (l *Logger) Error(ctx context.Context, msg string, keysAndValues ...any) {
	l.with(ctx).Errorw(msg, keysAndValues...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.z.Sync()
}

func (l *Logger) with(ctx context.Context) *zap.SugaredLogger {
	if l.traceID == nil || ctx == nil {
		return l.z
	}
	if id := l.traceID(ctx); id != "" {
		return l.z.With("trace_id", id)
	}
	return l.z
}
