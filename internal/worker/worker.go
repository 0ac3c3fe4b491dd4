// Package worker implements the per-node state machine of spec.md §4.2:
// the Chang-Roberts election, dead-neighbour detection, and membership
// repair (worker insertion/removal). Per spec.md §9's design notes, the
// ring topology is modeled as an arena: a Worker never holds a pointer to
// another Worker. Instead it holds integer indices into the owning Ring's
// worker slice (its "colleagues", in send-distance order, colleagues[0]
// being the direct successor) and reaches other workers' buffers through
// a small Directory capability the Ring implements. This sidesteps the
// reference-cycle concerns that drove the original's raw-pointer design,
// without needing equality-by-id for anything but election tie-breaking.
package worker

import (
	"sync/atomic"
	"time"

	"github.com/bastig2001/ring-election/internal/buffer"
	"github.com/bastig2001/ring-election/internal/event"
	"github.com/bastig2001/ring-election/internal/message"
)

// Directory resolves an arena index to the collaborators a Worker needs to
// reach another worker: its inbox buffer, its immutable id, and its
// current (mutable) ring position. The Ring implements this.
type Directory interface {
	BufferFor(idx int) *buffer.Buffer
	IDFor(idx int) uint64
	PositionFor(idx int) int
}

// Worker is one node's election/membership state machine. All fields that
// can be read from another goroutine (position, is_leader, participation,
// running) are atomics; colleagues is mutated only by this Worker's own
// Run goroutine, per spec.md §5 ("Ring membership is edited only by
// workers themselves").
type Worker struct {
	id  uint64
	idx int // this worker's fixed arena index

	position     atomic.Int64
	isLeader     atomic.Bool
	participates atomic.Bool
	running      atomic.Bool

	sleepTime time.Duration

	colleagues []int // arena indices, send-distance order; [0] = direct successor

	buf *buffer.Buffer
	dir Directory
	sink event.Sink

	// previousSend is the pending result of the last rendezvous delivery
	// to colleagues[0], joined on the NEXT call to sendToNeighbour. This
	// is the goroutine+channel equivalent of spec.md §4.2's
	// "previous_send: pending-future<bool>".
	previousSend <-chan bool
}

// New creates a Worker. Colleagues are set separately via SetColleagues
// once the full arena exists, since the Ring must finish allocating every
// Worker before any of them can be wired to each other.
func New(id uint64, idx, position int, sleepTime time.Duration, dir Directory, sink event.Sink) *Worker {
	w := &Worker{
		id:        id,
		idx:       idx,
		sleepTime: sleepTime,
		dir:       dir,
		sink:      sink,
		buf:       buffer.New(),
	}
	w.position.Store(int64(position))
	return w
}

// SetColleagues installs this worker's colleague list. Must only be called
// before the ring starts running.
func (w *Worker) SetColleagues(colleagues []int) {
	w.colleagues = colleagues
}

func (w *Worker) ID() uint64         { return w.id }
func (w *Worker) Index() int         { return w.idx }
func (w *Worker) Position() int      { return int(w.position.Load()) }
func (w *Worker) IsLeader() bool     { return w.isLeader.Load() }
func (w *Worker) Participates() bool { return w.participates.Load() }
func (w *Worker) IsRunning() bool    { return w.running.Load() }
func (w *Worker) Buffer() *buffer.Buffer { return w.buf }

// Status returns "running" or "stopped", as consumed by Ring.WorkerList.
func (w *Worker) Status() string {
	if w.IsRunning() {
		return "running"
	}
	return "stopped"
}

func (w *Worker) publish(e event.Event) {
	if w.sink == nil {
		return
	}
	e.Position = w.Position()
	e.WorkerID = w.id
	e.Level = e.Kind.DefaultLevel()
	w.sink.Show(e)
}

// Run is the worker's main loop, per spec.md §4.2. It returns once a Stop
// message has been processed.
func (w *Worker) Run() {
	w.running.Store(true)
	for w.running.Load() {
		time.Sleep(w.sleepTime)
		msg := w.buf.Take()
		w.publish(event.Event{Kind: event.KindGotMessage})

		switch msg.Kind {
		case message.KindStop:
			w.running.Store(false)
		case message.KindStartElection:
			w.handleStartElection()
		case message.KindElectionProposal:
			w.handleElectionProposal(msg.ID)
		case message.KindElected:
			w.handleElected(msg.ID)
		case message.KindDeadWorker:
			w.handleDeadWorker(msg.Position)
		case message.KindNewWorker:
			w.handleNewWorker(msg.Position, msg.Ref)
		case message.KindLog:
			w.publish(event.Event{Kind: event.KindLogMessage, Text: msg.Content})
		case message.KindNone:
			// no-op
		}
	}
}

func (w *Worker) handleStartElection() {
	w.participates.Store(true)
	w.publish(event.Event{Kind: event.KindElectionStarted})
	w.publish(event.Event{Kind: event.KindProposedThemselves})
	w.sendToNeighbour(message.ElectionProposal(w.id))
}

func (w *Worker) handleElectionProposal(p uint64) {
	if w.isLeader.Load() {
		w.publish(event.Event{Kind: event.KindResigned})
		w.isLeader.Store(false)
	}

	wasParticipating := w.participates.Load()
	if !wasParticipating {
		w.participates.Store(true)
		w.publish(event.Event{Kind: event.KindParticipates})
	}

	switch {
	case p > w.id:
		w.sendToNeighbour(message.ElectionProposal(p))
		w.publish(event.Event{Kind: event.KindProposalForwarded, OtherID: p})

	case p == w.id:
		w.isLeader.Store(true)
		w.participates.Store(false)
		w.publish(event.Event{Kind: event.KindParticipationStopped})
		w.sendToNeighbour(message.Elected(w.id))
		w.publish(event.Event{Kind: event.KindIsElected})

	default: // p < w.id
		if wasParticipating {
			w.publish(event.Event{Kind: event.KindProposalDiscarded, OtherID: p})
		} else {
			w.publish(event.Event{Kind: event.KindProposedThemselves})
			w.sendToNeighbour(message.ElectionProposal(w.id))
		}
	}
}

func (w *Worker) handleElected(e uint64) {
	if e == w.id {
		w.publish(event.Event{Kind: event.KindElectionFinished})
		return
	}
	w.participates.Store(false)
	w.sendToNeighbour(message.Elected(e))
}

// handleDeadWorker implements spec.md §4.2's handle_dead_worker: only the
// predecessor of a dead node originates its DeadWorker, so once it
// circulates back to that predecessor (pos == direct successor position)
// the repair round is complete and the message is dropped.
func (w *Worker) handleDeadWorker(pos int) {
	if len(w.colleagues) == 0 {
		return
	}
	directSuccessorPos := w.dir.PositionFor(w.colleagues[0])
	if pos != directSuccessorPos {
		w.removeDeadWorker(pos)
	}
}

func (w *Worker) removeDeadWorker(pos int) {
	w.publish(event.Event{Kind: event.KindColleagueRemoved, OtherPosition: pos})

	idx := w.neighbourIndexForPosition(pos)
	w.colleagues = append(w.colleagues[:idx], w.colleagues[idx+1:]...)

	if pos < w.Position() {
		w.position.Add(-1)
	}

	w.sendToNeighbour(message.DeadWorker(pos))
}

// handleNewWorker implements spec.md §4.2's add_new_worker. The colleague
// at the would-be index is only the incoming worker once this worker has
// already absorbed the insertion on an earlier pass of the same message,
// which makes repeated delivery idempotent.
func (w *Worker) handleNewWorker(pos, ref int) {
	idx := w.neighbourIndexForPosition(pos)
	if idx < len(w.colleagues) && w.colleagues[idx] == ref {
		return
	}

	w.publish(event.Event{Kind: event.KindColleagueAdded, OtherPosition: pos})

	w.colleagues = insertAt(w.colleagues, idx, ref)
	if pos <= w.Position() {
		w.position.Add(1)
	}

	w.sendToNeighbour(message.NewWorker(pos, ref))
}

// neighbourIndexForPosition maps a target ring position to this worker's
// colleague-slice index, per spec.md §4.2. Colleagues are kept in
// send-distance order starting from the direct successor, so the formula
// wraps modulo the current ring size (colleagues plus self).
func (w *Worker) neighbourIndexForPosition(p int) int {
	n := len(w.colleagues) + 1
	idx := (p - w.Position() - 1) % n
	if idx < 0 {
		idx += n
	}
	return idx
}

func insertAt(s []int, idx, v int) []int {
	s = append(s, 0)
	copy(s[idx+1:], s[idx:])
	s[idx] = v
	return s
}

// sendToNeighbour is spec.md §4.2's send_to_neighbour: it joins the
// previous delivery's pending result (declaring the direct successor dead
// on failure) before dispatching msg to whatever colleagues[0] is now.
func (w *Worker) sendToNeighbour(msg message.Message) {
	w.checkPreviousSend()
	w.dispatch(msg)
}

func (w *Worker) checkPreviousSend() {
	prev := w.previousSend
	if prev == nil {
		return
	}
	w.previousSend = nil

	if ok := <-prev; !ok {
		deadIdx := w.colleagues[0]
		deadPos := w.dir.PositionFor(deadIdx)
		deadID := w.dir.IDFor(deadIdx)
		w.publish(event.Event{
			Kind:          event.KindDeadNeighbourRecognized,
			OtherID:       deadID,
			OtherPosition: deadPos,
		})
		w.removeDeadWorker(deadPos)
	}
}

func (w *Worker) dispatch(msg message.Message) {
	target := w.colleagues[0]
	buf := w.dir.BufferFor(target)
	timeout := w.rendezvousTimeout()

	result := make(chan bool, 1)
	go func() {
		result <- buf.AssignAndWait(msg, timeout)
	}()
	w.previousSend = result
}

// rendezvousTimeout is spec.md §4.2's max(1000ms, 2.5 * sleeptime).
func (w *Worker) rendezvousTimeout() time.Duration {
	t := time.Duration(float64(w.sleepTime) * 2.5)
	if t < time.Second {
		return time.Second
	}
	return t
}
