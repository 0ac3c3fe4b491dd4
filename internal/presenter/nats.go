package presenter

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/bastig2001/ring-election/internal/event"
)

// NatsConfig configures the optional remote event sink, modeled after the
// connection options in pkg/messaging/adapters/nats.Config — trimmed to
// what a fire-and-forget event fan-out needs, since ring events are an
// observational export, not a work queue (no JetStream, no consumers).
type NatsConfig struct {
	URL     string `env:"NATS_URL" env-default:"nats://localhost:4222"`
	Subject string `env:"NATS_SUBJECT" env-default:"ring.events"`
}

// wireEvent is the JSON payload published for each event.Event.
type wireEvent struct {
	ID            string `json:"id"`
	Kind          int    `json:"kind"`
	Level         string `json:"level"`
	Position      int    `json:"position"`
	WorkerID      uint64 `json:"worker_id"`
	OtherID       uint64 `json:"other_id,omitempty"`
	OtherPosition int    `json:"other_position,omitempty"`
	Text          string `json:"text,omitempty"`
	Timestamp     string `json:"timestamp"`
}

// Nats publishes every event as JSON on a single NATS subject, for
// operators who want to watch a ring from outside the process. It never
// subscribes back — per spec.md §9, a Sink is a pure observer.
type Nats struct {
	conn    *nats.Conn
	subject string
	log     *slog.Logger
}

// NewNats connects to cfg.URL and returns a Nats sink. The caller owns
// the returned sink's lifetime and should call Close when done.
func NewNats(cfg NatsConfig, log *slog.Logger) (*Nats, error) {
	conn, err := nats.Connect(cfg.URL, nats.Name("ring-election"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, err
	}
	return &Nats{conn: conn, subject: cfg.Subject, log: log}, nil
}

func (s *Nats) Show(e event.Event) {
	w := wireEvent{
		ID:            uuid.NewString(),
		Kind:          int(e.Kind),
		Level:         e.Level.String(),
		Position:      e.Position,
		WorkerID:      e.WorkerID,
		OtherID:       e.OtherID,
		OtherPosition: e.OtherPosition,
		Text:          e.String(),
		Timestamp:     time.Now().Format(time.RFC3339Nano),
	}

	data, err := json.Marshal(w)
	if err != nil {
		s.log.Error("failed to marshal event for nats", "error", err)
		return
	}

	if err := s.conn.Publish(s.subject, data); err != nil {
		s.log.Error("failed to publish event to nats", "error", err)
	}
}

// Close flushes and closes the NATS connection.
func (s *Nats) Close() error {
	s.conn.Close()
	return nil
}
