// Package logger wraps log/slog with caller-accurate source locations: a
// call to Info/Debug/etc. reports the file and line of the code that made
// the call, never a frame inside this package.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	slogmulti "github.com/samber/slog-multi"
)

// Logger is the logging contract the engine and CLI depend on. Nothing
// outside this package constructs a concrete implementation directly.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)

	With(args ...any) Logger
	WithGroup(name string) Logger
}

type logger struct {
	handler slog.Handler
	debug   bool
}

// NewLogger builds a Logger from Options. With no options it writes
// human-readable text to stdout at info level.
func NewLogger(opts ...Option) Logger {
	o := &options{format: "text", writer: os.Stdout}
	for _, opt := range opts {
		opt(o)
	}

	level := slog.LevelInfo
	if o.debug {
		level = slog.LevelDebug
	}
	hOpts := &slog.HandlerOptions{Level: level, AddSource: o.debug}

	primary := newHandler(o.format, o.writer, hOpts)

	handlers := []slog.Handler{primary}
	if !o.quiet && o.writer != os.Stdout {
		handlers = append(handlers, slog.NewTextHandler(os.Stdout, hOpts))
	}
	if o.runLog != nil {
		handlers = append(handlers, slog.NewTextHandler(o.runLog, hOpts))
	}

	handler := handlers[0]
	if len(handlers) > 1 {
		handler = slogmulti.Fanout(handlers...)
	}

	return &logger{handler: handler, debug: o.debug}
}

func newHandler(format string, w io.Writer, hOpts *slog.HandlerOptions) slog.Handler {
	if format == "json" {
		return slog.NewJSONHandler(w, hOpts)
	}
	return slog.NewTextHandler(w, hOpts)
}

func (l *logger) handle(pc uintptr, level slog.Level, msg string, args ...any) {
	ctx := context.Background()
	if !l.handler.Enabled(ctx, level) {
		return
	}
	r := slog.NewRecord(time.Now(), level, msg, pc)
	r.Add(args...)
	_ = l.handler.Handle(ctx, r)
}

// logWithSkip captures the caller's program counter. skip counts the stack
// frames between this function and the user call site: 2 when a Logger
// method calls it directly, one more for every wrapper frame in between.
func (l *logger) logWithSkip(skip int, level slog.Level, msg string, args ...any) {
	var pcs [1]uintptr
	runtime.Callers(skip+1, pcs[:])
	l.handle(pcs[0], level, msg, args...)
}

func (l *logger) Debug(msg string, args ...any) { l.logWithSkip(2, slog.LevelDebug, msg, args...) }
func (l *logger) Info(msg string, args ...any)  { l.logWithSkip(2, slog.LevelInfo, msg, args...) }
func (l *logger) Warn(msg string, args ...any)  { l.logWithSkip(2, slog.LevelWarn, msg, args...) }
func (l *logger) Error(msg string, args ...any) { l.logWithSkip(2, slog.LevelError, msg, args...) }

func (l *logger) Debugf(format string, args ...any) {
	l.logWithSkip(2, slog.LevelDebug, fmt.Sprintf(format, args...))
}
func (l *logger) Infof(format string, args ...any) {
	l.logWithSkip(2, slog.LevelInfo, fmt.Sprintf(format, args...))
}
func (l *logger) Warnf(format string, args ...any) {
	l.logWithSkip(2, slog.LevelWarn, fmt.Sprintf(format, args...))
}
func (l *logger) Errorf(format string, args ...any) {
	l.logWithSkip(2, slog.LevelError, fmt.Sprintf(format, args...))
}

func (l *logger) With(args ...any) Logger {
	return &logger{handler: l.handler.WithAttrs(argsToAttrs(args)), debug: l.debug}
}

func (l *logger) WithGroup(name string) Logger {
	return &logger{handler: l.handler.WithGroup(name), debug: l.debug}
}

// argsToAttrs reuses slog.Record's own key/value-pair parsing so this
// package doesn't reimplement it.
func argsToAttrs(args []any) []slog.Attr {
	r := slog.NewRecord(time.Time{}, slog.LevelInfo, "", 0)
	r.Add(args...)
	attrs := make([]slog.Attr, 0, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)
		return true
	})
	return attrs
}
