// Package event defines the Event sum type and Sink interface of spec.md
// §3/§6: the capability Ring and Worker publish to, and which the
// CommandLine and concrete presenters in internal/presenter consume. The
// core never calls back into a Sink for anything but Show — it is a pure
// observer, per spec.md §9 ("Presenter / event sink").
package event

import "fmt"

// Level is the logging level spec.md §6 says every Event carries.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Kind discriminates an Event's variant. The names match spec.md §4.2/§4.3.
type Kind int

const (
	KindRingStarts Kind = iota
	KindWorkerStarted
	KindRingStarted
	KindRingStops
	KindWorkerStopped

	KindGotMessage
	KindElectionStarted
	KindProposedThemselves
	KindParticipates
	KindProposalForwarded
	KindIsElected
	KindParticipationStopped
	KindProposalDiscarded
	KindElectionFinished
	KindResigned

	KindDeadNeighbourRecognized
	KindColleagueRemoved
	KindColleagueAdded

	KindLogMessage
	KindParseError
	KindOperatorNotice
)

// Event is a single published occurrence. Only the fields relevant to Kind
// are meaningful.
type Event struct {
	Kind  Kind
	Level Level

	// Position identifies the worker that published the event, where
	// applicable.
	Position int
	// WorkerID is that worker's immutable id, where applicable.
	WorkerID uint64

	// OtherID carries a second id: the proposal/elected id in election
	// events, or the dead neighbour's id in DeadNeighbourRecognized.
	OtherID uint64
	// OtherPosition carries a second position, e.g. the dead/added
	// colleague's position.
	OtherPosition int

	// Text carries free-form content: log lines, parse error messages,
	// operator notices.
	Text string
	// Column is the 0-based caret column of a parse error.
	Column int
}

// DefaultLevel returns the severity spec.md §6 assigns each Kind, matching
// original_source/src/presenters/console_writer.cpp's mapping: routine
// chatter is trace/info, recognizing a dead neighbour is a warning, parse
// failures are errors.
func (k Kind) DefaultLevel() Level {
	switch k {
	case KindGotMessage:
		return LevelTrace
	case KindDeadNeighbourRecognized:
		return LevelWarn
	case KindParseError:
		return LevelError
	default:
		return LevelInfo
	}
}

// Sink is the capability Ring and Worker publish events to. Show must
// accept every Kind above without blocking the caller indefinitely; a
// concrete Sink that does I/O should buffer or spawn as needed.
type Sink interface {
	Show(Event)
}

// String renders a human-readable line for an Event, used by the plain
// Console sink and tests.
func (e Event) String() string {
	switch e.Kind {
	case KindRingStarts:
		return "ring is starting"
	case KindWorkerStarted:
		return fmt.Sprintf("worker at position %d (id %d) started", e.Position, e.WorkerID)
	case KindRingStarted:
		return "ring started"
	case KindRingStops:
		return "ring is stopping"
	case KindWorkerStopped:
		return fmt.Sprintf("worker at position %d (id %d) stopped", e.Position, e.WorkerID)
	case KindGotMessage:
		return fmt.Sprintf("worker %d got a message", e.WorkerID)
	case KindElectionStarted:
		return fmt.Sprintf("worker %d started an election", e.WorkerID)
	case KindProposedThemselves:
		return fmt.Sprintf("worker %d proposed themselves", e.WorkerID)
	case KindParticipates:
		return fmt.Sprintf("worker %d is now participating in the election", e.WorkerID)
	case KindProposalForwarded:
		return fmt.Sprintf("worker %d forwarded proposal %d", e.WorkerID, e.OtherID)
	case KindIsElected:
		return fmt.Sprintf("worker %d is elected", e.WorkerID)
	case KindParticipationStopped:
		return fmt.Sprintf("worker %d stopped participating in the election", e.WorkerID)
	case KindProposalDiscarded:
		return fmt.Sprintf("worker %d discarded proposal %d", e.WorkerID, e.OtherID)
	case KindElectionFinished:
		return fmt.Sprintf("election finished, worker %d is the leader", e.WorkerID)
	case KindResigned:
		return fmt.Sprintf("worker %d resigned leadership", e.WorkerID)
	case KindDeadNeighbourRecognized:
		return fmt.Sprintf("worker %d recognized their neighbour (id %d) as dead", e.WorkerID, e.OtherID)
	case KindColleagueRemoved:
		return fmt.Sprintf("worker %d removed colleague at position %d", e.WorkerID, e.OtherPosition)
	case KindColleagueAdded:
		return fmt.Sprintf("worker %d added colleague at position %d", e.WorkerID, e.OtherPosition)
	case KindLogMessage:
		return e.Text
	case KindParseError:
		return e.Text
	case KindOperatorNotice:
		return e.Text
	default:
		return "unknown event"
	}
}
