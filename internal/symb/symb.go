// Package symb provides named variables and source positions for the
// query compiler.
//
// A Symbol is a variable name plus the source span it was written at.
// Two symbols are the same variable iff their names are equal; spans are
// carried only for diagnostics and never participate in equality.
//
// Names are normalized to Unicode NFC on construction so that visually
// identical variables written in different normal forms compare equal.
package symb

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// SourceSpan locates a construct in the source script.
// A zero span means "no position available".
type SourceSpan struct {
	Start  int `json:"start"`
	Length int `json:"length"`
}

// IsZero reports whether the span carries no position information.
func (s SourceSpan) IsZero() bool {
	return s.Start == 0 && s.Length == 0
}

func (s SourceSpan) String() string {
	if s.IsZero() {
		return "<unknown>"
	}
	return fmt.Sprintf("%d..%d", s.Start, s.Start+s.Length)
}

// Symbol is a named variable with a source location.
// Equality and ordering are by Name only.
type Symbol struct {
	Name string     `json:"name"`
	Span SourceSpan `json:"span"`
}

// New creates a Symbol with an NFC-normalized name.
func New(name string, span SourceSpan) Symbol {
	return Symbol{Name: norm.NFC.String(name), Span: span}
}

func (s Symbol) String() string {
	return s.Name
}

// Equal reports whether the two symbols name the same variable.
func (s Symbol) Equal(other Symbol) bool {
	return s.Name == other.Name
}

// IsGenerated reports whether the symbol was synthesized by the compiler
// rather than written by the user. Generated join stand-ins are prefixed
// with "**"; generated don't-care placeholders with "~".
func (s Symbol) IsGenerated() bool {
	return strings.HasPrefix(s.Name, "**") || strings.HasPrefix(s.Name, "~")
}

// IsIgnored reports whether the symbol is a don't-care placeholder whose
// binding position will never be read.
func (s Symbol) IsIgnored() bool {
	return s.Name == "_" || strings.HasPrefix(s.Name, "~")
}

// Generator hands out fresh synthetic symbols for join stand-ins.
// The zero value is ready to use. Not safe for concurrent use; each
// rule-body compilation owns its own Generator.
type Generator struct {
	next uint64
}

// Fresh returns a new synthetic symbol located at span. Names follow the
// "**<n>" scheme with a monotonically increasing counter, so they can
// never collide with user variables.
func (g *Generator) Fresh(span SourceSpan) Symbol {
	s := Symbol{Name: fmt.Sprintf("**%d", g.next), Span: span}
	g.next++
	return s
}
