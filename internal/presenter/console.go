// Package presenter provides the concrete event.Sink implementations
// spec.md §6 calls external collaborators: a colored console writer, a
// tracing/logging decorator in the style of the teacher's InstrumentedBus,
// a pre/post hook wrapper, a fan-out combinator, and an optional NATS
// fan-out. None of
// them are called back into by the core — they only ever receive Show.
package presenter

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/bastig2001/ring-election/internal/event"
)

// Console prints each event as a single colored line, matching
// original_source/src/presenters/console_writer.cpp's severity → color
// mapping (grey trace/debug, plain info, yellow warn, red error/critical).
type Console struct {
	out io.Writer
}

// NewConsole creates a Console writing to w. Pass os.Stdout for normal use.
func NewConsole(w io.Writer) *Console {
	return &Console{out: w}
}

func severityColor(level event.Level) *color.Color {
	switch level {
	case event.LevelTrace, event.LevelDebug:
		return color.New(color.FgHiBlack)
	case event.LevelWarn:
		return color.New(color.FgYellow)
	case event.LevelError, event.LevelCritical:
		return color.New(color.FgRed)
	default:
		return color.New(color.Reset)
	}
}

func (c *Console) Show(e event.Event) {
	line := severityColor(e.Level).Sprintf("[%s] %s", e.Level, e.String())
	fmt.Fprintln(c.out, line)
}

// Default is a Console writing to os.Stdout, handy for cmd/ring wiring.
func Default() *Console {
	return NewConsole(os.Stdout)
}
