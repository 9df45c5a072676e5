package protocol

import (
	"fmt"
	"strings"
)

// Inputs named by ParseError.Input.
const (
	InputMAC         = "MAC address"
	InputMagicPacket = "magic packet"
)

// Labels used in diagnostic notes.
const (
	LabelEndOfInput  = "end of input"
	LabelHexDigit    = "hexadecimal digit"
	LabelHeader      = "magic packet header"
	LabelMAC         = "MAC address"
	LabelRepeatedMAC = "repeated MAC address"
	LabelEndOfPacket = "end of packet"
)

// NoteKind classifies a single diagnostic note.
type NoteKind int

const (
	// NoteUnexpected names the element found at the failure position.
	NoteUnexpected NoteKind = iota
	// NoteExpected names an element that would have been accepted.
	NoteExpected
	// NoteRepetitions reports how many more occurrences of a pattern were required.
	NoteRepetitions
)

// Note is one elementary failure note of a ParseError.
//
// Exactly one of Token and Label is set. Token holds a rendered literal
// (a quoted character such as ':' or a byte such as 0xFE); Label holds a
// description such as "end of input". Count is only meaningful for
// NoteRepetitions.
type Note struct {
	Kind  NoteKind
	Token string
	Label string
	Count int
}

func (n Note) element() string {
	if n.Token != "" {
		return n.Token
	}
	return n.Label
}

func (n Note) String() string {
	switch n.Kind {
	case NoteUnexpected:
		return "unexpected " + n.element()
	case NoteRepetitions:
		return fmt.Sprintf("expected %d more repetitions of %s", n.Count, n.element())
	default:
		return "expected " + n.element()
	}
}

func unexpectedRune(r rune) Note { return Note{Kind: NoteUnexpected, Token: fmt.Sprintf("%q", r)} }
func unexpectedByte(b byte) Note { return Note{Kind: NoteUnexpected, Token: fmt.Sprintf("0x%02X", b)} }
func unexpectedLabel(l string) Note { return Note{Kind: NoteUnexpected, Label: l} }
func expectedRune(r rune) Note { return Note{Kind: NoteExpected, Token: fmt.Sprintf("%q", r)} }
func expectedLabel(l string) Note { return Note{Kind: NoteExpected, Label: l} }

func expectedRepetitions(n int, l string) Note {
	return Note{Kind: NoteRepetitions, Label: l, Count: n}
}

// ParseError is the diagnostic produced when ParseMAC or ParseMagicPacket
// fails to match its grammar. Position is the zero-based offset (characters
// for text, bytes for packets) of the first element that did not match.
type ParseError struct {
	Input    string
	Position int
	Notes    []Note
}

func (e *ParseError) Error() string {
	notes := make([]string, len(e.Notes))
	for i, n := range e.Notes {
		notes[i] = n.String()
	}
	return fmt.Sprintf("invalid %s at position %d: %s", e.Input, e.Position, strings.Join(notes, ", "))
}

// Unwrap lets callers match the diagnostic with errors.Is against
// ErrInvalidMAC or ErrInvalidMagicPacket.
func (e *ParseError) Unwrap() error {
	if e.Input == InputMagicPacket {
		return ErrInvalidMagicPacket
	}
	return ErrInvalidMAC
}

// Expects reports whether the diagnostic carries an expected-note for label.
func (e *ParseError) Expects(label string) bool {
	for _, n := range e.Notes {
		if n.Kind == NoteExpected && n.Label == label {
			return true
		}
	}
	return false
}

// RemainingRepetitions returns the outstanding repetition count carried by
// the diagnostic, or 0 if it has none.
func (e *ParseError) RemainingRepetitions() int {
	for _, n := range e.Notes {
		if n.Kind == NoteRepetitions {
			return n.Count
		}
	}
	return 0
}
