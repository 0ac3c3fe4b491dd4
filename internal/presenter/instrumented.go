package presenter

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/bastig2001/ring-election/internal/event"
	"github.com/bastig2001/ring-election/internal/logging"
)

// Instrumented wraps a Sink with structured logging and tracing, mirroring
// the teacher's InstrumentedBus (pkg/events/instrumented.go) and
// InstrumentedLocker (pkg/concurrency/distlock/instrumented.go) decorators.
// It is itself a Sink, so it composes with Console, Nats, or Hooked.
type Instrumented struct {
	next   event.Sink
	log    *slog.Logger
	tracer trace.Tracer
}

// NewInstrumented wraps next with tracing and logging via log.
func NewInstrumented(next event.Sink, log *slog.Logger) *Instrumented {
	return &Instrumented{
		next:   next,
		log:    log,
		tracer: otel.Tracer("internal/presenter"),
	}
}

func (s *Instrumented) Show(e event.Event) {
	_, span := s.tracer.Start(context.Background(), "event.Show", trace.WithAttributes(
		attribute.Int("event.kind", int(e.Kind)),
		attribute.Int64("event.worker_id", int64(e.WorkerID)),
		attribute.Int("event.position", e.Position),
	))
	defer span.End()

	s.log.Log(context.Background(), slogLevel(e.Level), e.String(),
		"kind", int(e.Kind),
		"position", e.Position,
		"worker_id", e.WorkerID,
	)

	s.next.Show(e)
}

func slogLevel(l event.Level) slog.Level {
	switch l {
	case event.LevelTrace:
		return logging.LevelTrace
	case event.LevelDebug:
		return slog.LevelDebug
	case event.LevelWarn:
		return slog.LevelWarn
	case event.LevelError:
		return slog.LevelError
	case event.LevelCritical:
		return logging.LevelCritical
	default:
		return slog.LevelInfo
	}
}
