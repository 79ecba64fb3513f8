package logger

import (
	"context"
	"fmt"
	"log/slog"
)

type ctxKey struct{}

var defaultLogger Logger = NewLogger()

// WithLogger attaches l to ctx, retrievable with From.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From returns the Logger attached to ctx, or a default stdout logger if
// none was attached.
func From(ctx context.Context) Logger {
	if l, ok := ctx.Value(ctxKey{}).(Logger); ok {
		return l
	}
	return defaultLogger
}

func Debug(ctx context.Context, msg string, args ...any) { logAt(From(ctx), slog.LevelDebug, msg, args...) }
func Info(ctx context.Context, msg string, args ...any)  { logAt(From(ctx), slog.LevelInfo, msg, args...) }
func Warn(ctx context.Context, msg string, args ...any)  { logAt(From(ctx), slog.LevelWarn, msg, args...) }
func Error(ctx context.Context, msg string, args ...any) { logAt(From(ctx), slog.LevelError, msg, args...) }

func Debugf(ctx context.Context, format string, args ...any) {
	logAt(From(ctx), slog.LevelDebug, fmt.Sprintf(format, args...))
}
func Infof(ctx context.Context, format string, args ...any) {
	logAt(From(ctx), slog.LevelInfo, fmt.Sprintf(format, args...))
}
func Warnf(ctx context.Context, format string, args ...any) {
	logAt(From(ctx), slog.LevelWarn, fmt.Sprintf(format, args...))
}
func Errorf(ctx context.Context, format string, args ...any) {
	logAt(From(ctx), slog.LevelError, fmt.Sprintf(format, args...))
}

// logAt captures the caller's PC directly when l is this package's own
// implementation, so context-based logging reports the real call site
// instead of a frame in this file.
func logAt(l Logger, level slog.Level, msg string, args ...any) {
	if lg, ok := l.(*logger); ok {
		lg.logWithSkip(3, level, msg, args...)
		return
	}
	switch level {
	case slog.LevelDebug:
		l.Debug(msg, args...)
	case slog.LevelWarn:
		l.Warn(msg, args...)
	case slog.LevelError:
		l.Error(msg, args...)
	default:
		l.Info(msg, args...)
	}
}
