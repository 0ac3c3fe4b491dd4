// Package logging wraps log/slog the way the teacher's pkg/logger does:
// a small Config loaded alongside the rest of the service configuration,
// a handler chain built once at startup, and a TraceHandler decorator that
// stamps trace/span ids onto records when a span is active. The ring
// runtime itself never reaches for a global logger — it only ever receives
// a *slog.Logger at construction, or an event.Sink built on top of one.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Config controls the process logger, driven directly by spec.md §6's
// --log-level/--log-console/--log-file/--log-date flags (internal/config.Config).
type Config struct {
	Level   int    // 0=trace 1=debug 2=info 3=warn 4=error 5=critical
	Console bool   // write to stdout
	File    string // non-empty: write JSON lines here (console too only if Console is set)
	Date    bool   // include the timestamp attribute
}

// Trace and Critical extend slog's four built-in levels so internal/event's
// six-level ordering (Trace/Debug/Info/Warn/Error/Critical) maps onto slog
// without collapsing any level into another.
const (
	LevelTrace    = slog.Level(-8)
	LevelCritical = slog.Level(12)
)

func levelFromNumber(n int) slog.Level {
	switch n {
	case 0:
		return LevelTrace
	case 1:
		return slog.LevelDebug
	case 2:
		return slog.LevelInfo
	case 3:
		return slog.LevelWarn
	case 4:
		return slog.LevelError
	case 5:
		return LevelCritical
	default:
		return slog.LevelInfo
	}
}

// New builds a *slog.Logger from cfg and installs it as the slog default.
// It always logs to the console unless a log file was configured and
// --log-console was not also given, matching spec.md §6's "at least one
// sink always exists" expectation. The returned io.Closer closes the log
// file, if one was opened; it is always safe to defer Close() on it.
func New(cfg Config) (*slog.Logger, io.Closer, error) {
	opts := &slog.HandlerOptions{
		Level:       levelFromNumber(cfg.Level),
		ReplaceAttr: dateReplacer(cfg.Date),
	}

	var handlers []slog.Handler
	closer := io.Closer(noopCloser{})

	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file %q: %w", cfg.File, err)
		}
		handlers = append(handlers, slog.NewJSONHandler(f, opts))
		closer = f
	}
	if cfg.Console || len(handlers) == 0 {
		handlers = append(handlers, slog.NewTextHandler(os.Stdout, opts))
	}

	var handler slog.Handler
	if len(handlers) == 1 {
		handler = handlers[0]
	} else {
		handler = newFanoutHandler(handlers...)
	}

	logger := slog.New(NewTraceHandler(handler))
	slog.SetDefault(logger)
	return logger, closer, nil
}

func dateReplacer(includeDate bool) func([]string, slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		if a.Key == slog.TimeKey {
			if !includeDate {
				return slog.Attr{}
			}
			a.Value = slog.StringValue(a.Value.Time().Format(time.RFC3339))
		}
		return a
	}
}

type noopCloser struct{}

func (noopCloser) Close() error { return nil }

// fanoutHandler forwards every record to each wrapped handler, cloning the
// record per slog's documented guidance for handlers that pass a Record to
// more than one downstream consumer.
type fanoutHandler struct {
	handlers []slog.Handler
}

func newFanoutHandler(handlers ...slog.Handler) *fanoutHandler {
	return &fanoutHandler{handlers: handlers}
}

func (f *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range f.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (f *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: next}
}

func (f *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithGroup(name)
	}
	return &fanoutHandler{handlers: next}
}

// TraceHandler adds trace_id/span_id attributes to every record when a
// span is active in the record's context.
type TraceHandler struct {
	next slog.Handler
}

func NewTraceHandler(next slog.Handler) *TraceHandler {
	return &TraceHandler{next: next}
}

func (h *TraceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *TraceHandler) Handle(ctx context.Context, r slog.Record) error {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		r.AddAttrs(
			slog.String("trace_id", span.SpanContext().TraceID().String()),
			slog.String("span_id", span.SpanContext().SpanID().String()),
		)
	}
	return h.next.Handle(ctx, r)
}

func (h *TraceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TraceHandler{next: h.next.WithAttrs(attrs)}
}

func (h *TraceHandler) WithGroup(name string) slog.Handler {
	return &TraceHandler{next: h.next.WithGroup(name)}
}
