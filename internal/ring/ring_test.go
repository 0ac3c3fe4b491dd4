package ring_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bastig2001/ring-election/internal/event"
	"github.com/bastig2001/ring-election/internal/ring"
)

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

func TestNewRejectsNonPositiveSize(t *testing.T) {
	_, err := ring.New(0, time.Millisecond, nil)
	require.Error(t, err)
}

func TestNewAssignsDistinctIDsAndPositions(t *testing.T) {
	r, err := ring.New(7, time.Millisecond, nil)
	require.NoError(t, err)

	list := r.WorkerList()
	require.Len(t, list, 7)

	ids := make(map[uint64]bool)
	positions := make(map[int]bool)
	for _, w := range list {
		assert.False(t, ids[w.ID], "duplicate id %d", w.ID)
		ids[w.ID] = true
		assert.False(t, positions[w.Position], "duplicate position %d", w.Position)
		positions[w.Position] = true
	}
	for p := 0; p < 7; p++ {
		assert.True(t, positions[p], "position %d missing", p)
	}
}

func TestStartElectionAtOutOfRangeFails(t *testing.T) {
	r, err := ring.New(3, 5*time.Millisecond, nil)
	require.NoError(t, err)

	r.Start()
	defer r.Stop()

	err = r.StartElectionAt(7)
	assert.Error(t, err)
}

func TestStartAndStopDriveAnElection(t *testing.T) {
	sink := &recordingSink{}
	r, err := ring.New(5, 5*time.Millisecond, sink)
	require.NoError(t, err)

	r.Start()
	require.NoError(t, r.StartElectionAt(0))

	require.Eventually(t, func() bool {
		for _, e := range sink.snapshot() {
			if e.Kind == event.KindElectionFinished {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	r.Stop()
	assert.False(t, r.IsRunning())

	for _, w := range r.WorkerList() {
		assert.Equal(t, "stopped", w.Status)
	}
}

func TestStopWorkerAtThenStartWorkerAtRecovers(t *testing.T) {
	r, err := ring.New(4, 5*time.Millisecond, nil)
	require.NoError(t, err)
	r.Start()
	defer r.Stop()

	require.NoError(t, r.StopWorkerAt(2))

	require.Eventually(t, func() bool {
		for _, w := range r.WorkerList() {
			if w.Position == 2 {
				return w.Status == "stopped"
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)

	// Once stopped, it's no longer a valid election target by position...
	assert.Error(t, r.StartElectionAt(2))

	// ...but it can be explicitly restarted.
	require.NoError(t, r.StartWorkerAt(2))
	require.Eventually(t, func() bool {
		for _, w := range r.WorkerList() {
			if w.Position == 2 {
				return w.Status == "running"
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}
