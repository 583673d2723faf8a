// Package expr provides the expression trees embedded in plan nodes:
// filter conditions and unification right-hand sides.
//
// Expr is a sealed interface in the marker-method style. Variable
// references start out symbolic (a Binding with no tuple position) and are
// resolved to positional offsets by the compiler's binding-index pass once
// the shape of the owning plan node's input tuple is final.
package expr

import (
	"fmt"
	"strings"

	"github.com/roach88/stratum/internal/symb"
	"github.com/roach88/stratum/internal/value"
)

// Operator names understood by the evaluator. The compiler only ever
// synthesizes these three; anything else comes from the upstream parser.
const (
	OpAnd  = "and"
	OpEq   = "eq"
	OpIsIn = "is_in"
)

// Expr is a sealed interface representing an expression over the bindings
// of a plan node. Only Const, Binding, and Apply implement it.
type Expr interface {
	exprNode() // Sealed - only these types implement it
	Span() symb.SourceSpan
}

// Const is a literal value.
type Const struct {
	Val    value.Value
	AtSpan symb.SourceSpan
}

func (*Const) exprNode() {}

// Span returns the source location of the literal.
func (c *Const) Span() symb.SourceSpan { return c.AtSpan }

// Binding is a reference to a variable bound by the enclosing plan.
// TuplePos is nil until the binding-index resolution pass assigns the
// positional offset into the owning node's input tuple.
type Binding struct {
	Var      symb.Symbol
	TuplePos *int
}

func (*Binding) exprNode() {}

// Span returns the source location of the variable occurrence.
func (b *Binding) Span() symb.SourceSpan { return b.Var.Span }

// Apply is the application of a named operator to argument expressions.
type Apply struct {
	Op     string
	Args   []Expr
	AtSpan symb.SourceSpan
}

func (*Apply) exprNode() {}

// Span returns the source location of the application.
func (a *Apply) Span() symb.SourceSpan { return a.AtSpan }

// Eq builds an equality test between two expressions.
func Eq(left, right Expr, span symb.SourceSpan) *Apply {
	return &Apply{Op: OpEq, Args: []Expr{left, right}, AtSpan: span}
}

// IsIn builds a set-membership test of left in right.
func IsIn(left, right Expr, span symb.SourceSpan) *Apply {
	return &Apply{Op: OpIsIn, Args: []Expr{left, right}, AtSpan: span}
}

// Bindings collects the variables referenced anywhere in e, keyed by name.
func Bindings(e Expr) map[string]symb.Symbol {
	out := make(map[string]symb.Symbol)
	collectBindings(e, out)
	return out
}

func collectBindings(e Expr, out map[string]symb.Symbol) {
	switch ex := e.(type) {
	case *Const:
	case *Binding:
		out[ex.Var.Name] = ex.Var
	case *Apply:
		for _, arg := range ex.Args {
			collectBindings(arg, out)
		}
	}
}

// Conjunction splits a top-level AND into its clauses. Any other
// expression is a single clause. Nested ANDs below other operators are
// left intact.
func Conjunction(e Expr) []Expr {
	if app, ok := e.(*Apply); ok && app.Op == OpAnd {
		return app.Args
	}
	return []Expr{e}
}

// UnresolvedBindingError reports a variable reference that cannot be
// mapped to a tuple position of the owning plan node.
type UnresolvedBindingError struct {
	Var symb.Symbol
}

func (e *UnresolvedBindingError) Error() string {
	return fmt.Sprintf("binding %q cannot be resolved to a tuple position", e.Var.Name)
}

// FillBindingIndices resolves every Binding in e against the given
// name-to-offset map, mutating TuplePos in place. The map must be built
// from the owning node's post-elimination binding order.
func FillBindingIndices(e Expr, offsets map[string]int) error {
	switch ex := e.(type) {
	case *Const:
		return nil
	case *Binding:
		pos, ok := offsets[ex.Var.Name]
		if !ok {
			return &UnresolvedBindingError{Var: ex.Var}
		}
		ex.TuplePos = &pos
		return nil
	case *Apply:
		for _, arg := range ex.Args {
			if err := FillBindingIndices(arg, offsets); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown expression type: %T", e)
	}
}

// Render returns the diagnostic rendering of an expression for explain
// output and error messages.
func Render(e Expr) string {
	switch ex := e.(type) {
	case *Const:
		return value.Render(ex.Val)
	case *Binding:
		return ex.Var.Name
	case *Apply:
		parts := make([]string, len(ex.Args))
		for i, arg := range ex.Args {
			parts[i] = Render(arg)
		}
		return fmt.Sprintf("%s(%s)", ex.Op, strings.Join(parts, ", "))
	default:
		return fmt.Sprintf("<unknown %T>", e)
	}
}
