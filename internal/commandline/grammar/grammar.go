// Package grammar parses operator command lines against spec.md §4.4's
// PEG grammar, using alecthomas/participle/v2 as the Go-native stand-in
// for the original's cpp-peglib parser (original_source's
// concrete_presenter/executor.cpp defines the same grammar textually).
package grammar

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var commandLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Ident", Pattern: `[A-Za-z][A-Za-z0-9-]*`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Whitespace", Pattern: `[ \t]+`},
})

// Command is the Procedure production: exactly one of Help, List, Exit,
// StartElection, Stop or Start matches a given line.
type Command struct {
	Help          *Help          `  @@`
	List          *List          `| @@`
	Exit          *Exit          `| @@`
	StartElection *StartElection `| @@`
	Stop          *Stop          `| @@`
	Start         *Start         `| @@`
}

// Help matches "help" or "h".
type Help struct {
	Keyword string `"help" | "h"`
}

// List matches "show", "list" or "ls".
type List struct {
	Keyword string `"show" | "list" | "ls"`
}

// Exit matches "quit", "q" or "exit".
type Exit struct {
	Keyword string `"quit" | "q" | "exit"`
}

// StartElection matches "start-election" with an optional target position.
type StartElection struct {
	Keyword  string `"start-election"`
	Position *int   `@Int?`
}

// Stop matches "stop" followed by one or more target positions.
type Stop struct {
	Keyword   string `"stop"`
	Positions []int  `@Int+`
}

// Start matches "start" followed by one or more target positions.
type Start struct {
	Keyword   string `"start"`
	Positions []int  `@Int+`
}

var parser = participle.MustBuild[Command](
	participle.Lexer(commandLexer),
	participle.CaseInsensitive("Ident"),
	participle.Elide("Whitespace"),
)

// ParseError is returned by Parse on a malformed line. Column is the
// 1-based offending column, matching participle's own convention and
// spec.md §4.4's caret-marker rendering.
type ParseError struct {
	Message string
	Column  int
}

func (e *ParseError) Error() string { return e.Message }

// Parse parses a single operator-entered line into a Command.
func Parse(line string) (*Command, error) {
	cmd, err := parser.ParseString("", line)
	if err != nil {
		column := 1
		if pe, ok := err.(participle.Error); ok {
			column = pe.Position().Column
		}
		return nil, &ParseError{Message: err.Error(), Column: column}
	}
	return cmd, nil
}
