package compile

import (
	"errors"

	"github.com/roach88/stratum/internal/expr"
	"github.com/roach88/stratum/internal/symb"
)

// ResolveIndices runs the binding-index resolution pass: every variable
// reference inside filter expressions and unification right-hand sides is
// converted from a symbolic name to a positional offset into the tuple
// the owning node receives at runtime.
//
// Offsets for Filtered and Unification nodes are computed from the
// parent's post-elimination binding order; scans resolve their push-down
// filters against their own binding list. Must only run after
// EliminateTempVars has completed over the whole tree.
func ResolveIndices(ra RelAlgebra) error {
	switch node := ra.(type) {
	case *InlineFixed:
		return nil
	case *TempStoreScan:
		return resolveFilters(node.Filters, node.Bindings)
	case *StoredScan:
		return resolveFilters(node.Filters, node.Bindings)
	case *Reorder:
		return ResolveIndices(node.Relation)
	case *Filtered:
		if err := ResolveIndices(node.Parent); err != nil {
			return err
		}
		return resolveFilters(node.Filters, BindingsAfterEliminate(node.Parent))
	case *Unification:
		if err := ResolveIndices(node.Parent); err != nil {
			return err
		}
		return resolveExpr(node.Expr, BindingsAfterEliminate(node.Parent))
	case *InnerJoin:
		if err := ResolveIndices(node.Left); err != nil {
			return err
		}
		return ResolveIndices(node.Right)
	default:
		return nil
	}
}

func resolveFilters(filters []expr.Expr, bindings []symb.Symbol) error {
	if len(filters) == 0 {
		return nil
	}
	offsets := offsetMap(bindings)
	for _, filter := range filters {
		if err := expr.FillBindingIndices(filter, offsets); err != nil {
			return wrapUnresolved(err)
		}
	}
	return nil
}

func resolveExpr(e expr.Expr, bindings []symb.Symbol) error {
	if err := expr.FillBindingIndices(e, offsetMap(bindings)); err != nil {
		return wrapUnresolved(err)
	}
	return nil
}

func offsetMap(bindings []symb.Symbol) map[string]int {
	offsets := make(map[string]int, len(bindings))
	for i, sym := range bindings {
		offsets[sym.Name] = i
	}
	return offsets
}

func wrapUnresolved(err error) error {
	var unresolved *expr.UnresolvedBindingError
	if errors.As(err, &unresolved) {
		return errUnresolvedBinding(unresolved.Var.Name, unresolved.Var.Span)
	}
	return err
}
