package commandline

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bastig2001/ring-election/internal/apperr"
	"github.com/bastig2001/ring-election/internal/ring"
)

// fakeRing is a white-box test double for the Ring collaborator interface.
type fakeRing struct {
	startElectionErr    error
	startElectionCalled bool
	startAtErr          map[int]error
	startAtCalled       []int
	stopAtErr           map[int]error
	startWorkerErr      map[int]error
	list                []ring.WorkerInfo
}

func (f *fakeRing) StartElection() error {
	f.startElectionCalled = true
	return f.startElectionErr
}

func (f *fakeRing) StartElectionAt(pos int) error {
	f.startAtCalled = append(f.startAtCalled, pos)
	return f.startAtErr[pos]
}

func (f *fakeRing) StopWorkerAt(pos int) error  { return f.stopAtErr[pos] }
func (f *fakeRing) StartWorkerAt(pos int) error { return f.startWorkerErr[pos] }
func (f *fakeRing) WorkerList() []ring.WorkerInfo { return f.list }

func newTestCommandLine(r Ring) (*CommandLine, *bytes.Buffer) {
	var out bytes.Buffer
	cl := New(r, nil, &out, "> ")
	return cl, &out
}

func TestDispatchHelp(t *testing.T) {
	cl, out := newTestCommandLine(&fakeRing{})
	cl.dispatch("help")
	assert.Contains(t, out.String(), "Following commands are available")
}

func TestDispatchListRendersWorkers(t *testing.T) {
	fr := &fakeRing{list: []ring.WorkerInfo{
		{ID: 10, Position: 0, Status: "running"},
		{ID: 20, Position: 1, Status: "stopped"},
	}}
	cl, out := newTestCommandLine(fr)
	cl.dispatch("ls")

	s := out.String()
	assert.Contains(t, s, "Workers:")
	assert.Contains(t, s, "Position 0: Worker 10, Status: running")
	assert.Contains(t, s, "Position 1: Worker 20, Status: stopped")
}

func TestDispatchStartElectionWithoutPosition(t *testing.T) {
	fr := &fakeRing{}
	cl, _ := newTestCommandLine(fr)
	cl.dispatch("start-election")
	assert.True(t, fr.startElectionCalled)
}

func TestDispatchStartElectionAtOutOfRangeReportsError(t *testing.T) {
	fr := &fakeRing{startAtErr: map[int]error{7: apperr.NotFound("no worker on position 7", nil)}}
	cl, out := newTestCommandLine(fr)
	cl.dispatch("start-election 7")
	assert.Contains(t, out.String(), "no worker on position 7")
}

func TestDispatchStopMultiplePositions(t *testing.T) {
	fr := &fakeRing{stopAtErr: map[int]error{}}
	cl, out := newTestCommandLine(fr)
	cl.dispatch("stop 1 2 3")

	s := out.String()
	assert.Contains(t, s, "Stopping worker at position 1")
	assert.Contains(t, s, "Stopping worker at position 2")
	assert.Contains(t, s, "Stopping worker at position 3")
}

func TestDispatchUnknownCommandPrintsParseError(t *testing.T) {
	cl, out := newTestCommandLine(&fakeRing{})
	cl.dispatch("bogus")
	assert.Contains(t, out.String(), "Run 'help' for more information.")
}

func TestHistoryNavigationRestoresOriginalInput(t *testing.T) {
	cl, _ := newTestCommandLine(&fakeRing{})
	cl.addHistory("first")
	cl.addHistory("second")

	cl.currentInput = []rune("typing")
	cl.cursorPos = len(cl.currentInput)

	cl.historyUp()
	require.Equal(t, "second", string(cl.currentInput))
	cl.historyUp()
	require.Equal(t, "first", string(cl.currentInput))
	cl.historyDown()
	require.Equal(t, "second", string(cl.currentInput))
	cl.historyDown()
	require.Equal(t, "typing", string(cl.currentInput))
}

func TestAddHistoryDoesNotDuplicateAdjacentEntries(t *testing.T) {
	cl, _ := newTestCommandLine(&fakeRing{})
	cl.addHistory("ls")
	cl.addHistory("ls")
	assert.Len(t, cl.history, 1)
}
