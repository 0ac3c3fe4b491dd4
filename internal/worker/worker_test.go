package worker_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bastig2001/ring-election/internal/buffer"
	"github.com/bastig2001/ring-election/internal/event"
	"github.com/bastig2001/ring-election/internal/message"
	"github.com/bastig2001/ring-election/internal/worker"
)

// fakeDirectory wires a fixed slice of workers together, standing in for
// a ring.Ring in isolation.
type fakeDirectory struct {
	workers []*worker.Worker
}

func (d *fakeDirectory) BufferFor(idx int) *buffer.Buffer { return d.workers[idx].Buffer() }
func (d *fakeDirectory) IDFor(idx int) uint64              { return d.workers[idx].ID() }
func (d *fakeDirectory) PositionFor(idx int) int           { return d.workers[idx].Position() }

type recordingSink struct {
	mu     sync.Mutex
	events []event.Event
}

func (s *recordingSink) Show(e event.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) snapshot() []event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]event.Event, len(s.events))
	copy(out, s.events)
	return out
}

func countKind(events []event.Event, kind event.Kind) int {
	n := 0
	for _, e := range events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func countKindForWorker(events []event.Event, kind event.Kind, id uint64) int {
	n := 0
	for _, e := range events {
		if e.Kind == kind && e.WorkerID == id {
			n++
		}
	}
	return n
}

// buildRing constructs len(ids) workers with colleagues wired in
// send-distance order (colleagues[0] = direct successor), mirroring
// ring.Ring's construction rule without depending on that package.
func buildRing(ids []uint64, sleep time.Duration, sink event.Sink) []*worker.Worker {
	n := len(ids)
	dir := &fakeDirectory{}
	workers := make([]*worker.Worker, n)
	for i := 0; i < n; i++ {
		workers[i] = worker.New(ids[i], i, i, sleep, dir, sink)
	}
	dir.workers = workers

	for i := range workers {
		colleagues := make([]int, 0, n-1)
		for offset := 1; offset < n; offset++ {
			colleagues = append(colleagues, (i+offset)%n)
		}
		workers[i].SetColleagues(colleagues)
	}
	return workers
}

func TestElectionElectsTheHighestID(t *testing.T) {
	sink := &recordingSink{}
	ids := []uint64{5, 42, 7, 13, 9}
	workers := buildRing(ids, 5*time.Millisecond, sink)

	for _, w := range workers {
		go w.Run()
	}
	t.Cleanup(func() {
		for _, w := range workers {
			w.Buffer().Assign(message.Stop())
		}
	})

	workers[0].Buffer().Assign(message.StartElection())

	require.Eventually(t, func() bool {
		return countKind(sink.snapshot(), event.KindElectionFinished) == 1
	}, 2*time.Second, 10*time.Millisecond, "election never finished")

	events := sink.snapshot()
	assert.Equal(t, 1, countKindForWorker(events, event.KindIsElected, 42))
	assert.Equal(t, 1, countKind(events, event.KindElectionFinished))
	for _, id := range ids {
		if id == 42 {
			continue
		}
		assert.Zero(t, countKindForWorker(events, event.KindIsElected, id))
	}
}

func TestElectionOfThreeTraversesTheFullRing(t *testing.T) {
	sink := &recordingSink{}
	ids := []uint64{10, 20, 30}
	workers := buildRing(ids, 5*time.Millisecond, sink)

	for _, w := range workers {
		go w.Run()
	}
	t.Cleanup(func() {
		for _, w := range workers {
			w.Buffer().Assign(message.Stop())
		}
	})

	workers[0].Buffer().Assign(message.StartElection())

	require.Eventually(t, func() bool {
		return countKind(sink.snapshot(), event.KindElectionFinished) == 1
	}, 2*time.Second, 10*time.Millisecond)

	events := sink.snapshot()
	assert.Equal(t, 1, countKindForWorker(events, event.KindIsElected, 30))
	assert.GreaterOrEqual(t, countKind(events, event.KindProposalForwarded), 1)
}

func TestDeadNeighbourIsDetectedAndRemoved(t *testing.T) {
	sink := &recordingSink{}
	ids := []uint64{1, 2, 3, 4}
	sleep := 5 * time.Millisecond
	workers := buildRing(ids, sleep, sink)

	// Every worker runs except index 2 (position 2), which is left
	// un-started to simulate a dead node: nothing will ever Take from
	// its buffer, so a delivery to it must eventually time out.
	for i, w := range workers {
		if i == 2 {
			continue
		}
		go w.Run()
	}
	t.Cleanup(func() {
		for i, w := range workers {
			if i == 2 {
				continue
			}
			w.Buffer().Assign(message.Stop())
		}
	})

	// Worker 1's direct successor is worker 2 (the dead one). The first
	// StartElection's forward to it will time out; per spec.md §4.2 the
	// failure is only discovered on the *next* send, so a second
	// StartElection is needed to surface it.
	workers[1].Buffer().Assign(message.StartElection())
	time.Sleep(1200 * time.Millisecond) // past the 1s rendezvous floor
	workers[1].Buffer().Assign(message.StartElection())

	require.Eventually(t, func() bool {
		return countKind(sink.snapshot(), event.KindDeadNeighbourRecognized) == 1
	}, 3*time.Second, 20*time.Millisecond, "dead neighbour was never recognized")

	require.Eventually(t, func() bool {
		return countKind(sink.snapshot(), event.KindColleagueRemoved) == 3
	}, 3*time.Second, 20*time.Millisecond, "DeadWorker did not traverse all 3 survivors")
}
