package presenter

import "github.com/bastig2001/ring-election/internal/event"

// Multi fans a single event out to every wrapped Sink, in order. Used by
// cmd/ring to feed both the console/CommandLine chain and the optional
// Nats sink from one Ring/Worker event stream.
type Multi struct {
	sinks []event.Sink
}

// NewMulti combines sinks into one. A nil entry is skipped.
func NewMulti(sinks ...event.Sink) *Multi {
	m := &Multi{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

func (m *Multi) Show(e event.Event) {
	for _, s := range m.sinks {
		s.Show(e)
	}
}
