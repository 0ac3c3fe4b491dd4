// Package commandline implements spec.md §4.4's interactive operator
// console: a raw-mode terminal reader with an edit buffer and history,
// a grammar-driven command dispatcher, and the pre/post output hooks that
// let a live event stream interleave with the prompt without corrupting
// the line the operator is typing.
package commandline

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/term"

	"github.com/bastig2001/ring-election/internal/apperr"
	"github.com/bastig2001/ring-election/internal/commandline/grammar"
	"github.com/bastig2001/ring-election/internal/ring"
)

const maxHistory = 100

// Ring is the subset of *ring.Ring the command line drives. Declaring it
// here (rather than depending on the concrete type everywhere) keeps
// commandline testable against a fake.
type Ring interface {
	StartElection() error
	StartElectionAt(pos int) error
	StopWorkerAt(pos int) error
	StartWorkerAt(pos int) error
	WorkerList() []ring.WorkerInfo
}

// CommandLine owns the terminal while running. It must be injected with a
// Ring before Start, per spec.md §4.4's lifecycle note.
type CommandLine struct {
	ring   Ring
	in     *os.File
	out    io.Writer
	prompt string

	outMu sync.Mutex

	currentInput []rune
	cursorPos    int

	history      []string
	historyIndex int // -1 means "not currently navigating"
	originalLine string

	running     atomic.Bool
	exitCh      chan struct{}
	restoreTerm func() error
}

// New creates a CommandLine. r may be nil and supplied later via SetRing,
// but Start requires it to be non-nil.
func New(r Ring, in *os.File, out io.Writer, prompt string) *CommandLine {
	return &CommandLine{
		ring:         r,
		in:           in,
		out:          out,
		prompt:       prompt,
		historyIndex: -1,
		exitCh:       make(chan struct{}),
	}
}

// SetRing injects the Ring this command line drives. It must be called
// before Start; it exists separately from New because the Sink a Ring is
// constructed with (via presenter.NewHooked) typically wraps this very
// CommandLine's PreOutput/PostOutput, so the CommandLine has to exist
// before the Ring can be built.
func (cl *CommandLine) SetRing(r Ring) {
	cl.ring = r
}

// Start switches the terminal to raw mode, draws the initial prompt, and
// spawns the reader goroutine. It returns an apperr.InvalidArgument if no
// Ring was injected, per spec.md §4.4 ("requires the Ring to have been
// injected").
func (cl *CommandLine) Start() error {
	if cl.ring == nil {
		return apperr.InvalidArgument("a ring must be injected before the command line starts", nil)
	}

	state, err := term.MakeRaw(int(cl.in.Fd()))
	if err != nil {
		return apperr.Internal("failed to switch terminal to raw mode", err)
	}
	fd := int(cl.in.Fd())
	cl.restoreTerm = func() error { return term.Restore(fd, state) }

	cl.running.Store(true)

	cl.outMu.Lock()
	cl.redrawPromptLocked()
	cl.outMu.Unlock()

	go cl.readLoop()
	return nil
}

// Exit clears running, restores the terminal, and signals Wait's waiters.
// Safe to call more than once.
func (cl *CommandLine) Exit() {
	if !cl.running.CompareAndSwap(true, false) {
		return
	}
	if cl.restoreTerm != nil {
		cl.restoreTerm()
	}
	fmt.Fprintln(cl.out)
	close(cl.exitCh)
}

// Wait blocks until Exit has run.
func (cl *CommandLine) Wait() {
	<-cl.exitCh
}

// PreOutput and PostOutput are the hooks spec.md §4.4 says the Presenter
// must call around rendering an event while the command line is running:
// clear the in-progress line, let the event print, then redraw the
// prompt. They bracket a single critical section, so they are meant to be
// installed as a matched pair (e.g. via presenter.NewHooked).
func (cl *CommandLine) PreOutput() {
	cl.outMu.Lock()
	fmt.Fprint(cl.out, "\x1b[2K\r")
}

func (cl *CommandLine) PostOutput() {
	cl.redrawPromptLocked()
	cl.outMu.Unlock()
}

func (cl *CommandLine) redrawPromptLocked() {
	fmt.Fprint(cl.out, "\r"+cl.prompt+string(cl.currentInput))
	if trailing := len(cl.currentInput) - cl.cursorPos; trailing > 0 {
		fmt.Fprintf(cl.out, "\x1b[%dD", trailing)
	}
}

// println prints a line of command output, observing the same
// clear/redraw discipline as an event render.
func (cl *CommandLine) println(s string) {
	cl.outMu.Lock()
	defer cl.outMu.Unlock()
	fmt.Fprint(cl.out, "\x1b[2K\r")
	fmt.Fprintln(cl.out, s)
	cl.redrawPromptLocked()
}

func (cl *CommandLine) readLoop() {
	buf := make([]byte, 1)
	escState := 0
	var escSeq []byte

	for cl.running.Load() {
		n, err := cl.in.Read(buf)
		if err != nil {
			return
		}
		if n == 0 {
			continue
		}
		b := buf[0]

		switch {
		case escState == 0 && b == 0x1b:
			escState = 1
			escSeq = escSeq[:0]
		case escState == 1:
			if b == '[' {
				escState = 2
			} else {
				escState = 0
			}
		case escState == 2:
			escSeq = append(escSeq, b)
			if cl.handleEscape(escSeq) {
				escState = 0
			}
		case b == 0x04:
			cl.Exit()
		case b == 0x7f:
			cl.backspace()
		case b == '\r' || b == '\n':
			cl.submit()
		default:
			cl.insert(rune(b))
		}
	}
}

// handleEscape interprets the bytes following ESC '[', per spec.md §4.4's
// recognized sequences. It returns true once the sequence is resolved
// (matched or abandoned).
func (cl *CommandLine) handleEscape(seq []byte) bool {
	switch {
	case len(seq) == 1 && seq[0] == 'A':
		cl.historyUp()
		return true
	case len(seq) == 1 && seq[0] == 'B':
		cl.historyDown()
		return true
	case len(seq) == 1 && seq[0] == 'C':
		cl.cursorRight()
		return true
	case len(seq) == 1 && seq[0] == 'D':
		cl.cursorLeft()
		return true
	case len(seq) == 1 && seq[0] == '3':
		return false // wait for the trailing '~'
	case len(seq) == 2 && seq[0] == '3' && seq[1] == '~':
		cl.deleteAtCursor()
		return true
	default:
		return true // unrecognized sequence, drop it
	}
}

func (cl *CommandLine) insert(r rune) {
	cl.outMu.Lock()
	defer cl.outMu.Unlock()
	tail := append([]rune{r}, cl.currentInput[cl.cursorPos:]...)
	cl.currentInput = append(cl.currentInput[:cl.cursorPos], tail...)
	cl.cursorPos++
	cl.redrawPromptLocked()
}

func (cl *CommandLine) backspace() {
	cl.outMu.Lock()
	defer cl.outMu.Unlock()
	if cl.cursorPos == 0 {
		return
	}
	cl.currentInput = append(cl.currentInput[:cl.cursorPos-1], cl.currentInput[cl.cursorPos:]...)
	cl.cursorPos--
	cl.redrawPromptLocked()
}

func (cl *CommandLine) deleteAtCursor() {
	cl.outMu.Lock()
	defer cl.outMu.Unlock()
	if cl.cursorPos >= len(cl.currentInput) {
		return
	}
	cl.currentInput = append(cl.currentInput[:cl.cursorPos], cl.currentInput[cl.cursorPos+1:]...)
	cl.redrawPromptLocked()
}

func (cl *CommandLine) cursorLeft() {
	cl.outMu.Lock()
	defer cl.outMu.Unlock()
	if cl.cursorPos > 0 {
		cl.cursorPos--
	}
	cl.redrawPromptLocked()
}

func (cl *CommandLine) cursorRight() {
	cl.outMu.Lock()
	defer cl.outMu.Unlock()
	if cl.cursorPos < len(cl.currentInput) {
		cl.cursorPos++
	}
	cl.redrawPromptLocked()
}

func (cl *CommandLine) historyUp() {
	cl.outMu.Lock()
	defer cl.outMu.Unlock()
	if cl.historyIndex+1 >= len(cl.history) {
		return
	}
	if cl.historyIndex == -1 {
		cl.originalLine = string(cl.currentInput)
	}
	cl.historyIndex++
	cl.setInputLocked(cl.history[cl.historyIndex])
}

func (cl *CommandLine) historyDown() {
	cl.outMu.Lock()
	defer cl.outMu.Unlock()
	if cl.historyIndex <= -1 {
		return
	}
	cl.historyIndex--
	if cl.historyIndex == -1 {
		cl.setInputLocked(cl.originalLine)
	} else {
		cl.setInputLocked(cl.history[cl.historyIndex])
	}
}

func (cl *CommandLine) setInputLocked(s string) {
	cl.currentInput = []rune(s)
	cl.cursorPos = len(cl.currentInput)
	cl.redrawPromptLocked()
}

func (cl *CommandLine) addHistory(line string) {
	if line == "" {
		return
	}
	if len(cl.history) > 0 && cl.history[0] == line {
		cl.historyIndex = -1
		return
	}
	cl.history = append([]string{line}, cl.history...)
	if len(cl.history) > maxHistory {
		cl.history = cl.history[:maxHistory]
	}
	cl.historyIndex = -1
}

func (cl *CommandLine) submit() {
	cl.outMu.Lock()
	line := string(cl.currentInput)
	cl.currentInput = cl.currentInput[:0]
	cl.cursorPos = 0
	fmt.Fprint(cl.out, "\r\n")
	cl.addHistory(line)
	cl.redrawPromptLocked()
	cl.outMu.Unlock()

	cl.dispatch(line)
}

func (cl *CommandLine) dispatch(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}

	cmd, err := grammar.Parse(line)
	if err != nil {
		cl.printParseError(err)
		return
	}

	switch {
	case cmd.Help != nil:
		cl.printHelp()
	case cmd.List != nil:
		cl.printWorkerList()
	case cmd.Exit != nil:
		cl.Exit()
	case cmd.StartElection != nil:
		cl.runStartElection(cmd.StartElection)
	case cmd.Stop != nil:
		cl.runStop(cmd.Stop)
	case cmd.Start != nil:
		cl.runStart(cmd.Start)
	}
}

func (cl *CommandLine) printParseError(err error) {
	message := err.Error()
	column := 1
	var pe *grammar.ParseError
	if errors.As(err, &pe) {
		message = pe.Message
		column = pe.Column
	}

	offset := len(cl.prompt) + column - 1
	cl.println(strings.Repeat(" ", offset) + "^")
	cl.println(message)
	cl.println("Run 'help' for more information.")
}

func (cl *CommandLine) printHelp() {
	cl.println("Following commands are available:")
	cl.println("  h, help               outputs this help message")
	cl.println("  ls, list, show        lists all workers in the ring")
	cl.println("  q, quit, exit         exits the program")
	cl.println("  start-election [POS]  starts an election at the given position, or at position 0")
	cl.println("  stop POS ...          stops the workers at the given positions")
	cl.println("  start POS ...         starts the workers at the given positions")
	cl.println("")
	cl.println("  POS  is an unsigned integer")
}

func (cl *CommandLine) printWorkerList() {
	cl.println("Workers:")
	for _, w := range cl.ring.WorkerList() {
		cl.println(fmt.Sprintf("  Position %d: Worker %d, Status: %s", w.Position, w.ID, w.Status))
	}
}

func (cl *CommandLine) runStartElection(se *grammar.StartElection) {
	if se.Position == nil {
		if err := cl.ring.StartElection(); err != nil {
			cl.println(operatorMessage(err))
			return
		}
		cl.println("Starting Election...")
		return
	}

	if err := cl.ring.StartElectionAt(*se.Position); err != nil {
		cl.println(operatorMessage(err))
		return
	}
	cl.println("Starting Election...")
}

func (cl *CommandLine) runStop(s *grammar.Stop) {
	for _, pos := range s.Positions {
		if err := cl.ring.StopWorkerAt(pos); err != nil {
			cl.println(operatorMessage(err))
			continue
		}
		cl.println(fmt.Sprintf("Stopping worker at position %d...", pos))
	}
}

func (cl *CommandLine) runStart(s *grammar.Start) {
	for _, pos := range s.Positions {
		if err := cl.ring.StartWorkerAt(pos); err != nil {
			cl.println(operatorMessage(err))
			continue
		}
		cl.println(fmt.Sprintf("Starting worker at position %d...", pos))
	}
}

// operatorMessage strips the internal AppError code from an error,
// leaving the plain, human-facing message spec.md's test scenarios match
// against (e.g. "no worker on position 7").
func operatorMessage(err error) string {
	var ae *apperr.AppError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}
