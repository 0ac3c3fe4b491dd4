// Package buffer implements the single-slot rendezvous channel described
// in spec.md §4.1. Two mutexes are used exactly as spec.md §5 requires:
// buffer_mtx (here, mu, via a sync.Cond for the blocking Assign/Take pair)
// protects the slot itself, and a separate rendezvousMu serializes
// concurrent assign_and_wait callers without blocking a concurrent plain
// Assign from a different goroutine.
package buffer

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/bastig2001/ring-election/internal/message"
)

// Buffer is a single-slot rendezvous MessageBuffer.
type Buffer struct {
	mu       sync.Mutex
	cond     *sync.Cond
	occupied atomic.Bool
	slot     message.Message

	// takenCh is closed by Take when it consumes the currently occupying
	// message, waking up any AssignAndWait caller still waiting on it.
	// It is nil whenever the slot is empty.
	takenCh chan struct{}

	// rendezvousMu admits one assign_and_wait caller at a time, per
	// spec.md §4.1's "rendezvous lock".
	rendezvousMu sync.Mutex
}

// New creates an empty MessageBuffer.
func New() *Buffer {
	b := &Buffer{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// IsEmpty reports whether the slot is currently unoccupied. It does not
// block on the buffer's internal lock beyond an atomic load.
func (b *Buffer) IsEmpty() bool {
	return !b.occupied.Load()
}

// Assign blocks until the slot is empty, then stores msg and wakes any
// Take waiter. It does not wait for the message to be consumed.
func (b *Buffer) Assign(msg message.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.assignLocked(msg)
	b.cond.Broadcast()
}

// assignLocked stores msg into the slot. Caller must hold mu.
func (b *Buffer) assignLocked(msg message.Message) chan struct{} {
	for b.occupied.Load() {
		b.cond.Wait()
	}
	b.slot = msg
	b.occupied.Store(true)
	ch := make(chan struct{})
	b.takenCh = ch
	return ch
}

// Take blocks until the slot is occupied, clears it, and returns the
// message. It wakes any Assign waiter and, if the taken message was placed
// by AssignAndWait, that caller's rendezvous wait.
func (b *Buffer) Take() message.Message {
	b.mu.Lock()
	for !b.occupied.Load() {
		b.cond.Wait()
	}
	msg := b.slot
	b.slot = message.Message{}
	b.occupied.Store(false)
	ch := b.takenCh
	b.takenCh = nil
	b.cond.Broadcast()
	b.mu.Unlock()

	if ch != nil {
		close(ch)
	}
	return msg
}

// AssignAndWait performs an assign, then waits up to timeout for the
// message to be taken. It returns true iff a Take consumed the message
// before the timeout elapsed. At most one goroutine may be inside
// AssignAndWait on a given Buffer at a time; a concurrent plain Assign
// from another sender is still admitted while this one waits.
func (b *Buffer) AssignAndWait(msg message.Message, timeout time.Duration) bool {
	b.rendezvousMu.Lock()
	defer b.rendezvousMu.Unlock()

	b.mu.Lock()
	ch := b.assignLocked(msg)
	b.cond.Broadcast()
	b.mu.Unlock()

	select {
	case <-ch:
		return true
	case <-time.After(timeout):
		return false
	}
}
