// Package log builds the slog.Logger of a protogen run.
//
// Without a log file, records below error go to stdout and errors go to
// stderr, so a batch run can redirect failures separately. With a log
// file, records go to stderr and to the file.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// LevelTrace is below Debug and enables artifact tracing on stdout.
const LevelTrace slog.Level = -8

// ParseLevel maps a level name. The empty name is info.
func ParseLevel(s string) (slog.Level, error) {
	switch s {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// MultiHandler fans out records to several handlers.
type MultiHandler []slog.Handler

func (m MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m {
		if h.Enabled(ctx, r.Level) {
			_ = h.Handle(ctx, r.Clone())
		}
	}
	return nil
}

func (m MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(MultiHandler, len(m))
	for i, h := range m {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (m MultiHandler) WithGroup(name string) slog.Handler {
	out := make(MultiHandler, len(m))
	for i, h := range m {
		out[i] = h.WithGroup(name)
	}
	return out
}

// LevelFilter passes to h only the records whose level satisfies pass.
type LevelFilter struct {
	pass func(slog.Level) bool
	h    slog.Handler
}

// Below passes records under level.
func Below(level slog.Level, h slog.Handler) LevelFilter {
	return LevelFilter{pass: func(l slog.Level) bool { return l < level }, h: h}
}

// AtLeast passes records at or above level.
func AtLeast(level slog.Level, h slog.Handler) LevelFilter {
	return LevelFilter{pass: func(l slog.Level) bool { return l >= level }, h: h}
}

func (f LevelFilter) Enabled(ctx context.Context, level slog.Level) bool {
	return f.pass(level) && f.h.Enabled(ctx, level)
}

func (f LevelFilter) Handle(ctx context.Context, r slog.Record) error {
	if !f.pass(r.Level) {
		return nil
	}
	return f.h.Handle(ctx, r)
}

func (f LevelFilter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return LevelFilter{pass: f.pass, h: f.h.WithAttrs(attrs)}
}

func (f LevelFilter) WithGroup(name string) slog.Handler {
	return LevelFilter{pass: f.pass, h: f.h.WithGroup(name)}
}

// NewLogger builds the console handlers writing to stdout and stderr plus
// an optional file handler.
func NewLogger(level slog.Level, stdout, stderr, file io.Writer) *slog.Logger {
	var hs MultiHandler
	if file == nil {
		hs = append(hs,
			Below(slog.LevelError, slog.NewTextHandler(stdout, &slog.HandlerOptions{Level: level})),
			AtLeast(slog.LevelError, slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelError})),
		)
	} else {
		hs = append(hs,
			slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}),
			slog.NewTextHandler(file, &slog.HandlerOptions{Level: level}),
		)
	}
	return slog.New(hs)
}

// SetupLogger builds the logger of the process. The returned closers
// must be closed on exit.
func SetupLogger(logLevel, logFile string) (*slog.Logger, []io.Closer, error) {
	level, err := ParseLevel(logLevel)
	if err != nil {
		return nil, nil, err
	}
	if logFile == "" {
		return NewLogger(level, os.Stdout, os.Stderr, nil), nil, nil
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return NewLogger(level, os.Stdout, os.Stderr, f), []io.Closer{f}, nil
}
