package buffer_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bastig2001/ring-election/internal/buffer"
	"github.com/bastig2001/ring-election/internal/message"
)

func TestNewBufferIsEmpty(t *testing.T) {
	b := buffer.New()
	assert.True(t, b.IsEmpty())
}

func TestAssignThenTakeRoundTrips(t *testing.T) {
	b := buffer.New()
	b.Assign(message.Log("hello"))
	assert.False(t, b.IsEmpty())

	got := b.Take()
	assert.Equal(t, message.KindLog, got.Kind)
	assert.Equal(t, "hello", got.Content)
	assert.True(t, b.IsEmpty())
}

func TestTakeBlocksUntilAssign(t *testing.T) {
	b := buffer.New()
	done := make(chan message.Message, 1)

	go func() {
		done <- b.Take()
	}()

	select {
	case <-done:
		t.Fatal("Take returned before any Assign")
	case <-time.After(50 * time.Millisecond):
	}

	b.Assign(message.StartElection())

	select {
	case msg := <-done:
		assert.Equal(t, message.KindStartElection, msg.Kind)
	case <-time.After(time.Second):
		t.Fatal("Take never unblocked after Assign")
	}
}

func TestSecondAssignBlocksUntilFirstIsTaken(t *testing.T) {
	b := buffer.New()
	b.Assign(message.Log("first"))

	assigned := make(chan struct{})
	go func() {
		b.Assign(message.Log("second"))
		close(assigned)
	}()

	select {
	case <-assigned:
		t.Fatal("second Assign returned before the slot was freed")
	case <-time.After(50 * time.Millisecond):
	}

	first := b.Take()
	assert.Equal(t, "first", first.Content)

	select {
	case <-assigned:
	case <-time.After(time.Second):
		t.Fatal("second Assign never unblocked after Take")
	}

	second := b.Take()
	assert.Equal(t, "second", second.Content)
}

func TestAssignAndWaitReturnsTrueWhenTakenInTime(t *testing.T) {
	b := buffer.New()

	var wg sync.WaitGroup
	wg.Add(1)
	var result bool
	go func() {
		defer wg.Done()
		result = b.AssignAndWait(message.Log("ping"), 200*time.Millisecond)
	}()

	time.Sleep(10 * time.Millisecond)
	msg := b.Take()
	require.Equal(t, "ping", msg.Content)

	wg.Wait()
	assert.True(t, result)
}

func TestAssignAndWaitReturnsFalseOnTimeoutAndLeavesMessageInPlace(t *testing.T) {
	b := buffer.New()

	result := b.AssignAndWait(message.Log("stuck"), 30*time.Millisecond)
	assert.False(t, result)

	// The message is still there for a later Take: timeout does not
	// discard it.
	assert.False(t, b.IsEmpty())
	msg := b.Take()
	assert.Equal(t, "stuck", msg.Content)
}

func TestAssignAndWaitCompletesForEachSuccessiveRendezvousCaller(t *testing.T) {
	b := buffer.New()
	var order []int
	var mu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.AssignAndWait(message.Log("x"), 500*time.Millisecond)
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}()
		time.Sleep(5 * time.Millisecond)
		b.Take()
	}
	wg.Wait()

	assert.Len(t, order, 3)
}
