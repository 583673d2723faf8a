package compile

import (
	"errors"
	"fmt"

	"github.com/roach88/stratum/internal/symb"
)

// Compilation error codes (E200-E299).
const (
	CodeRuleNotFound           = "E201" // rule application targets an unknown derived relation
	CodeArityMismatch          = "E202" // call-site argument count disagrees with declared arity
	CodeUnboundSymbolInHead    = "E203" // head variable not bound by any body atom
	CodeStoredRelationNotFound = "E204" // lookup of an undeclared stored relation
	CodeRelNameConflict        = "E205" // relation declared twice
	CodeStoreRelationConflict  = "E206" // query output targets an existing relation
	CodeUnresolvedBinding      = "E207" // expression variable missing from the tuple layout
	CodeNegationUnsupported    = "E208" // negated atom in a rule body
	CodeJoinOnReorder          = "E209" // reorder node on the consuming side of a join
)

// Error is a structured compilation error. All compilation failures are
// synchronous and abort the whole script; Span locates the offending
// construct for user-facing diagnostics.
type Error struct {
	Code    string
	Message string
	Span    symb.SourceSpan
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Span.IsZero() {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s (at %s)", e.Code, e.Message, e.Span)
}

// CodeOf returns the compilation error code carried by err, or "" if err
// is not a compilation error. Uses errors.As to handle wrapped errors.
func CodeOf(err error) string {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

func errRuleNotFound(name string, span symb.SourceSpan) *Error {
	return &Error{
		Code:    CodeRuleNotFound,
		Message: fmt.Sprintf("requested rule %s not found", name),
		Span:    span,
	}
}

func errArityMismatch(name string, required, given int, span symb.SourceSpan) *Error {
	return &Error{
		Code:    CodeArityMismatch,
		Message: fmt.Sprintf("arity mismatch for application of %s: required arity %d, number of arguments given %d", name, required, given),
		Span:    span,
	}
}

func errUnboundSymbolInHead(name string, span symb.SourceSpan) *Error {
	return &Error{
		Code:    CodeUnboundSymbolInHead,
		Message: fmt.Sprintf("symbol %q in rule head is unbound; note that symbols occurring only in negated positions are not considered bound", name),
		Span:    span,
	}
}

func errStoredRelationNotFound(name string) *Error {
	return &Error{
		Code:    CodeStoredRelationNotFound,
		Message: fmt.Sprintf("cannot find requested stored relation %q", name),
	}
}

func errRelNameConflict(name string) *Error {
	return &Error{
		Code:    CodeRelNameConflict,
		Message: fmt.Sprintf("cannot create relation %q as one with the same name already exists", name),
	}
}

func errStoreRelationConflict(name string) *Error {
	return &Error{
		Code:    CodeStoreRelationConflict,
		Message: fmt.Sprintf("stored relation %q conflicts with an existing one", name),
	}
}

func errNegationUnsupported(span symb.SourceSpan) *Error {
	return &Error{
		Code:    CodeNegationUnsupported,
		Message: "negated atoms are not supported by the plan compiler",
		Span:    span,
	}
}

func errJoinOnReorder(span symb.SourceSpan) *Error {
	return &Error{
		Code:    CodeJoinOnReorder,
		Message: "reorder node cannot appear on the consuming side of a join",
		Span:    span,
	}
}

func errUnresolvedBinding(name string, span symb.SourceSpan) *Error {
	return &Error{
		Code:    CodeUnresolvedBinding,
		Message: fmt.Sprintf("binding %q cannot be resolved to a tuple position", name),
		Span:    span,
	}
}
