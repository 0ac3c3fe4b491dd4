package presenter

import "github.com/bastig2001/ring-election/internal/event"

// Hooked wraps a Sink with pre/post hooks run around every Show, letting
// the CommandLine (internal/commandline) interleave its prompt with the
// live event stream without visual corruption, per spec.md §4.4/§9
// ("Presenter plumbing through CommandLine"). It is not polymorphism over
// the wrapped Sink's behavior — it shares the CommandLine's output mutex
// by construction, since Pre/Post are themselves the CommandLine's
// clear-line/redraw-prompt closures.
type Hooked struct {
	next event.Sink
	pre  func()
	post func()
}

// NewHooked wraps next so that pre runs immediately before, and post
// immediately after, every Show call.
func NewHooked(next event.Sink, pre, post func()) *Hooked {
	return &Hooked{next: next, pre: pre, post: post}
}

func (s *Hooked) Show(e event.Event) {
	if s.pre != nil {
		s.pre()
	}
	s.next.Show(e)
	if s.post != nil {
		s.post()
	}
}
