// Package fixedrule defines the capability interface for built-in
// algorithms that are invoked as if they were derived relations.
//
// The query compiler never executes a fixed rule; it only needs the rule's
// option initialization hook and its declared output arity. Implementations
// live with the evaluator.
package fixedrule

import (
	"github.com/roach88/stratum/internal/expr"
	"github.com/roach88/stratum/internal/symb"
)

// FixedRule is implemented by built-in algorithms and utilities.
type FixedRule interface {
	// InitOptions is called exactly once, before anything else, and may
	// normalize or default the option map in place.
	InitOptions(options map[string]expr.Expr, span symb.SourceSpan) error

	// Arity returns the row width of the relation the rule produces.
	// It must be accurate and may be called multiple times.
	Arity(options map[string]expr.Expr, ruleHead []symb.Symbol, span symb.SourceSpan) (int, error)
}

// Handle names a registered fixed rule.
type Handle struct {
	Name symb.Symbol
}

// NewHandle creates a handle for the named fixed rule.
func NewHandle(name string, span symb.SourceSpan) Handle {
	return Handle{Name: symb.New(name, span)}
}

// SimpleFixedRule is a fixed rule with a constant arity and no option
// handling. It gives less control than implementing FixedRule directly but
// covers utility rules whose shape is fixed up front.
type SimpleFixedRule struct {
	ReturnArity int
}

// NewSimple constructs a SimpleFixedRule with the given return arity.
func NewSimple(returnArity int) *SimpleFixedRule {
	return &SimpleFixedRule{ReturnArity: returnArity}
}

// InitOptions implements FixedRule. It accepts any options unchanged.
func (*SimpleFixedRule) InitOptions(map[string]expr.Expr, symb.SourceSpan) error {
	return nil
}

// Arity implements FixedRule.
func (r *SimpleFixedRule) Arity(map[string]expr.Expr, []symb.Symbol, symb.SourceSpan) (int, error) {
	return r.ReturnArity, nil
}
