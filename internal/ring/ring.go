// Package ring implements spec.md §4.3's Ring: it owns the worker arena,
// allocates unique ids and positions, wires each worker's colleague list,
// and drives start/stop and operator-initiated elections. It is the
// worker.Directory every Worker resolves its colleagues through.
package ring

import (
	"fmt"
	"math/rand/v2"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bastig2001/ring-election/internal/apperr"
	"github.com/bastig2001/ring-election/internal/buffer"
	"github.com/bastig2001/ring-election/internal/event"
	"github.com/bastig2001/ring-election/internal/message"
	"github.com/bastig2001/ring-election/internal/worker"
)

// WorkerInfo is one row of Ring.WorkerList, per spec.md §4.3's
// get_worker_list.
type WorkerInfo struct {
	ID       uint64
	Position int
	Status   string
}

// Ring owns a fixed arena of workers. The arena never shrinks or grows
// after New: a worker removed from the ring topology by its neighbours
// (via DeadWorker) still occupies its slot, just stopped, so WorkerList
// keeps reporting it, and StartWorkerAt can bring it back.
type Ring struct {
	workers   []*worker.Worker
	sleepTime time.Duration
	sink      event.Sink
	running   atomic.Bool
	wg        sync.WaitGroup
}

// New builds a ring of size distinct workers, each with its colleague
// list pre-wired per spec.md §4.3's construction rule: colleagues rotate
// starting at the direct successor and ending at the predecessor. It returns
// an apperr.InvalidArgument for size < 1, and for size 1, whose lone worker
// would have an empty colleague set.
func New(size int, sleepTime time.Duration, sink event.Sink) (*Ring, error) {
	if size < 1 {
		return nil, apperr.InvalidArgument(fmt.Sprintf("ring size must be at least 1, got %d", size), nil)
	}
	if size == 1 {
		return nil, apperr.InvalidArgument("a ring of size 1 leaves its worker with an empty colleague set", nil)
	}

	ids := uniqueIDs(size)

	r := &Ring{
		sleepTime: sleepTime,
		sink:      sink,
		workers:   make([]*worker.Worker, size),
	}
	for i := 0; i < size; i++ {
		r.workers[i] = worker.New(ids[i], i, i, sleepTime, r, sink)
	}
	for i := range r.workers {
		r.workers[i].SetColleagues(colleaguesFor(i, size))
	}
	return r, nil
}

// uniqueIDs draws size distinct values from [0, max(999, 10*size)] by
// rejection sampling, per spec.md §4.3.
func uniqueIDs(size int) []uint64 {
	upper := 999
	if size*10 > upper {
		upper = size * 10
	}

	seen := make(map[uint64]bool, size)
	ids := make([]uint64, 0, size)
	for len(ids) < size {
		id := uint64(rand.IntN(upper + 1))
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// colleaguesFor returns arena index i's colleague list: every other index
// in send-distance order, starting at the direct successor (i+1 mod n).
func colleaguesFor(i, n int) []int {
	colleagues := make([]int, 0, n-1)
	for offset := 1; offset < n; offset++ {
		colleagues = append(colleagues, (i+offset)%n)
	}
	return colleagues
}

// --- worker.Directory ---

func (r *Ring) BufferFor(idx int) *buffer.Buffer { return r.workers[idx].Buffer() }
func (r *Ring) IDFor(idx int) uint64              { return r.workers[idx].ID() }
func (r *Ring) PositionFor(idx int) int           { return r.workers[idx].Position() }

func (r *Ring) publish(e event.Event) {
	if r.sink == nil {
		return
	}
	e.Level = e.Kind.DefaultLevel()
	r.sink.Show(e)
}

// Start spawns one goroutine per worker and marks the ring running, per
// spec.md §4.3.
func (r *Ring) Start() {
	r.publish(event.Event{Kind: event.KindRingStarts})

	for _, w := range r.workers {
		w := w
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			w.Run()
		}()
		r.publish(event.Event{Kind: event.KindWorkerStarted, Position: w.Position(), WorkerID: w.ID()})
	}

	// Wait until every Run loop has marked its worker running, so that a
	// position-based call made right after Start finds its target.
	for _, w := range r.workers {
		for !w.IsRunning() {
			runtime.Gosched()
		}
	}

	r.publish(event.Event{Kind: event.KindRingStarted})
	r.running.Store(true)
}

// Stop delivers Stop to every running worker and waits for their
// goroutines to return before reporting the ring stopped. Stop is enqueued
// at each worker in turn and all goroutines are then joined together,
// rather than each worker being joined before the next is signalled, since nothing
// in spec.md §4.3 requires the original's sequential teardown order and
// joining in a loop would needlessly serialize a shutdown that each
// worker's own sleep/take cycle already paces.
func (r *Ring) Stop() {
	r.publish(event.Event{Kind: event.KindRingStops})

	for _, w := range r.workers {
		if w.IsRunning() {
			w.Buffer().Assign(message.Stop())
		}
	}
	r.wg.Wait()

	for _, w := range r.workers {
		r.publish(event.Event{Kind: event.KindWorkerStopped, Position: w.Position(), WorkerID: w.ID()})
	}
	r.running.Store(false)
}

// IsRunning reports whether Start has run without a matching Stop.
func (r *Ring) IsRunning() bool { return r.running.Load() }

// StartElection targets position 0, per spec.md §4.3's zero-argument form.
func (r *Ring) StartElection() error {
	return r.StartElectionAt(0)
}

// StartElectionAt enqueues a StartElection message at the worker currently
// holding pos, or reports an apperr.NotFound if no running worker does.
func (r *Ring) StartElectionAt(pos int) error {
	idx := r.indexForPosition(pos)
	if idx < 0 {
		return apperr.NotFound(fmt.Sprintf("no worker on position %d", pos), nil)
	}
	r.workers[idx].Buffer().Assign(message.StartElection())
	return nil
}

// indexForPosition resolves an operator-facing position to an arena index,
// considering only running workers: a stopped worker's Position is frozen
// at whatever it last held and may now coincide with a live worker's
// renumbered position, so it must not shadow a legitimate target.
func (r *Ring) indexForPosition(pos int) int {
	for i, w := range r.workers {
		if w.IsRunning() && w.Position() == pos {
			return i
		}
	}
	return -1
}

// WorkerList snapshots every arena slot, sorted by position, per
// spec.md §4.3's get_worker_list.
func (r *Ring) WorkerList() []WorkerInfo {
	list := make([]WorkerInfo, len(r.workers))
	for i, w := range r.workers {
		list[i] = WorkerInfo{ID: w.ID(), Position: w.Position(), Status: w.Status()}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Position < list[j].Position })
	return list
}

// Size returns the arena's worker count.
func (r *Ring) Size() int { return len(r.workers) }

// StopWorkerAt simulates a node failure: it enqueues Stop at the worker
// currently holding pos and returns. The original repository's
// stop_worker/start_worker command handlers (executor.cpp) were left
// empty stubs; spec.md's "ring of 4 workers; stop position 2's execution
// context" scenario is exactly this operation, so it is implemented here
// rather than left a no-op. Once the targeted worker's Run loop returns,
// its buffer stops being drained, so its neighbour's next delivery times
// out and the ring's own dead-neighbour detection takes over from there.
func (r *Ring) StopWorkerAt(pos int) error {
	idx := r.indexForPosition(pos)
	if idx < 0 {
		return apperr.NotFound(fmt.Sprintf("no worker on position %d", pos), nil)
	}
	r.workers[idx].Buffer().Assign(message.Stop())
	return nil
}

// StartWorkerAt restarts a previously stopped worker, re-spawning its Run
// loop with whatever colleagues and position it held when it stopped. It
// does not re-run NewWorker insertion: the worker never left the arena or
// its neighbours' colleague lists, it simply stopped consuming them.
func (r *Ring) StartWorkerAt(pos int) error {
	idx := r.indexForStoppedPosition(pos)
	if idx < 0 {
		return apperr.NotFound(fmt.Sprintf("no stopped worker on position %d", pos), nil)
	}

	w := r.workers[idx]
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		w.Run()
	}()
	r.publish(event.Event{Kind: event.KindWorkerStarted, Position: w.Position(), WorkerID: w.ID()})
	return nil
}

func (r *Ring) indexForStoppedPosition(pos int) int {
	for i, w := range r.workers {
		if !w.IsRunning() && w.Position() == pos {
			return i
		}
	}
	return -1
}
