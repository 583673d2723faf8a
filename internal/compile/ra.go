package compile

import (
	"fmt"

	"github.com/roach88/stratum/internal/expr"
	"github.com/roach88/stratum/internal/program"
	"github.com/roach88/stratum/internal/symb"
	"github.com/roach88/stratum/internal/value"
)

// RelAlgebra is a sealed interface over the relational-algebra plan nodes.
//
// Node types:
//   - InlineFixed: inline materialized tuples (unit relation, constant data)
//   - TempStoreScan: scan of an in-memory rule result from the same run
//   - StoredScan: scan of a durable stored relation
//   - InnerJoin: equijoin of two subtrees (empty key list = cartesian product)
//   - Reorder: permutation view enforcing a head's declared binding order
//   - Filtered: boolean filters over a child's output
//   - Unification: introduces a binding computed from the child's bindings
//
// Composite nodes exclusively own their children; a plan is a single-owner
// tree, never a DAG and never cyclic. Nodes are mutated only by the two
// compiler passes (dead-binding elimination and binding-index resolution);
// after resolution the tree is immutable and may be shared read-only.
type RelAlgebra interface {
	relAlgebra() // Sealed - only types in this package implement it

	// Span returns the source location the node was compiled from.
	Span() symb.SourceSpan
}

// InlineFixed is an inline materialized tuple set with its bindings.
// Every tuple in Data has exactly len(Bindings) entries.
type InlineFixed struct {
	Bindings    []symb.Symbol
	Data        [][]value.Value
	ToEliminate symbolSet
	AtSpan      symb.SourceSpan
}

func (*InlineFixed) relAlgebra() {}

// Span implements RelAlgebra.
func (f *InlineFixed) Span() symb.SourceSpan { return f.AtSpan }

// TempStoreScan scans an in-memory intermediate relation produced by a
// sibling or earlier rule in the same evaluation, identified by its
// storage key. Filters are pushed down into the scan.
type TempStoreScan struct {
	Bindings   []symb.Symbol
	StorageKey program.MagicSymbol
	Filters    []expr.Expr
	AtSpan     symb.SourceSpan
}

func (*TempStoreScan) relAlgebra() {}

// Span implements RelAlgebra.
func (t *TempStoreScan) Span() symb.SourceSpan { return t.AtSpan }

// IndexPositionUse classifies how one argument position of a stored-
// relation scan participates in index selection.
type IndexPositionUse int

const (
	// PositionJoin marks a position used as a join key.
	PositionJoin IndexPositionUse = iota
	// PositionBindForLater marks a position that introduces a binding
	// consumed further up the plan.
	PositionBindForLater
	// PositionIgnored marks a generated don't-care placeholder.
	PositionIgnored
)

// StoredScan scans a durable stored relation by name. Filters are pushed
// down into the scan.
type StoredScan struct {
	Bindings []symb.Symbol
	Filters  []expr.Expr
	Name     string
	// PositionUse has one entry per binding position, recorded at
	// construction for index selection.
	PositionUse []IndexPositionUse
	AtSpan      symb.SourceSpan
}

func (*StoredScan) relAlgebra() {}

// Span implements RelAlgebra.
func (s *StoredScan) Span() symb.SourceSpan { return s.AtSpan }

// Joiner holds the equijoin key pairs of an InnerJoin.
// Invariant: LeftKeys and RightKeys have the same length.
type Joiner struct {
	LeftKeys  []symb.Symbol
	RightKeys []symb.Symbol
}

// InnerJoin joins two subtrees on the Joiner's key pairs. A zero-length
// key list denotes a cartesian product.
type InnerJoin struct {
	Left        RelAlgebra
	Right       RelAlgebra
	Joiner      Joiner
	ToEliminate symbolSet
	AtSpan      symb.SourceSpan
}

func (*InnerJoin) relAlgebra() {}

// Span implements RelAlgebra.
func (j *InnerJoin) Span() symb.SourceSpan { return j.AtSpan }

// Reorder is a permutation view over its child enforcing NewOrder as the
// output binding order. It has no elimination set of its own.
type Reorder struct {
	Relation RelAlgebra
	NewOrder []symb.Symbol
}

func (*Reorder) relAlgebra() {}

// Span implements RelAlgebra.
func (r *Reorder) Span() symb.SourceSpan { return r.Relation.Span() }

// Filtered applies boolean expressions to its child's output.
type Filtered struct {
	Parent      RelAlgebra
	Filters     []expr.Expr
	ToEliminate symbolSet
	AtSpan      symb.SourceSpan
}

func (*Filtered) relAlgebra() {}

// Span implements RelAlgebra.
func (f *Filtered) Span() symb.SourceSpan { return f.AtSpan }

// Unification introduces a new binding equal to (or, when IsMulti, drawn
// from the elements of) an expression over the child's bindings.
type Unification struct {
	Parent      RelAlgebra
	Binding     symb.Symbol
	Expr        expr.Expr
	IsMulti     bool
	ToEliminate symbolSet
	AtSpan      symb.SourceSpan
}

func (*Unification) relAlgebra() {}

// Span implements RelAlgebra.
func (u *Unification) Span() symb.SourceSpan { return u.AtSpan }

// Unit returns the empty relation containing a single zero-width tuple,
// the identity of the join fold.
func Unit(span symb.SourceSpan) *InlineFixed {
	return &InlineFixed{
		Bindings:    nil,
		Data:        [][]value.Value{{}},
		ToEliminate: make(symbolSet),
		AtSpan:      span,
	}
}

// IsUnit reports whether ra is the unit relation.
func IsUnit(ra RelAlgebra) bool {
	f, ok := ra.(*InlineFixed)
	return ok && len(f.Bindings) == 0 && len(f.Data) == 1
}

// Derived builds a scan over the in-memory result of another rule.
func Derived(bindings []symb.Symbol, storageKey program.MagicSymbol, span symb.SourceSpan) *TempStoreScan {
	return &TempStoreScan{
		Bindings:   bindings,
		StorageKey: storageKey,
		AtSpan:     span,
	}
}

// Relation builds a scan over the named stored relation.
func Relation(bindings []symb.Symbol, name string, positionUse []IndexPositionUse, span symb.SourceSpan) *StoredScan {
	return &StoredScan{
		Bindings:    bindings,
		Name:        name,
		PositionUse: positionUse,
		AtSpan:      span,
	}
}

// Join builds an inner equijoin of left and right on the given key pairs.
// leftKeys and rightKeys must have equal length; each left key names a
// binding exposed by left and each right key a binding exposed by right.
// A keyless join whose left side is the unit relation is the identity of
// the body fold and collapses to the right side.
func Join(left, right RelAlgebra, leftKeys, rightKeys []symb.Symbol, span symb.SourceSpan) RelAlgebra {
	if len(leftKeys) == 0 && IsUnit(left) {
		return right
	}
	return &InnerJoin{
		Left:        left,
		Right:       right,
		Joiner:      Joiner{LeftKeys: leftKeys, RightKeys: rightKeys},
		ToEliminate: make(symbolSet),
		AtSpan:      span,
	}
}

// CartesianJoin joins left and right with no key pairs.
func CartesianJoin(left, right RelAlgebra, span symb.SourceSpan) RelAlgebra {
	return Join(left, right, nil, nil, span)
}

// Unify wraps ra with a unification introducing binding.
func Unify(ra RelAlgebra, binding symb.Symbol, e expr.Expr, isMulti bool, span symb.SourceSpan) *Unification {
	return &Unification{
		Parent:      ra,
		Binding:     binding,
		Expr:        e,
		IsMulti:     isMulti,
		ToEliminate: make(symbolSet),
		AtSpan:      span,
	}
}

// NewReorder wraps ra with a permutation view exposing newOrder.
func NewReorder(ra RelAlgebra, newOrder []symb.Symbol) *Reorder {
	return &Reorder{Relation: ra, NewOrder: newOrder}
}

// ApplyFilter attaches a filter expression to ra, pushing it as far down
// the tree as is structurally valid:
//
//   - scans absorb the filter into their own push-down list;
//   - an existing Filtered node appends it;
//   - for a join, the filter's top-level conjuncts are routed into
//     whichever side exposes all of a clause's variables, and only the
//     clauses spanning both sides remain above the join;
//   - everything else is wrapped in a new Filtered node.
func ApplyFilter(ra RelAlgebra, filter expr.Expr) (RelAlgebra, error) {
	switch node := ra.(type) {
	case *InlineFixed, *Reorder, *Unification:
		return &Filtered{
			Parent:      ra,
			Filters:     []expr.Expr{filter},
			ToEliminate: make(symbolSet),
			AtSpan:      filter.Span(),
		}, nil
	case *Filtered:
		node.Filters = append(node.Filters, filter)
		return node, nil
	case *TempStoreScan:
		node.Filters = append(node.Filters, filter)
		return node, nil
	case *StoredScan:
		node.Filters = append(node.Filters, filter)
		return node, nil
	case *InnerJoin:
		leftBindings := newSymbolSet(bindingsBeforeEliminate(node.Left)...)
		rightBindings := newSymbolSet(bindingsBeforeEliminate(node.Right)...)
		var remaining []expr.Expr
		for _, clause := range expr.Conjunction(filter) {
			vars := expr.Bindings(clause)
			switch {
			case subsetOf(vars, leftBindings):
				left, err := ApplyFilter(node.Left, clause)
				if err != nil {
					return nil, err
				}
				node.Left = left
			case subsetOf(vars, rightBindings):
				right, err := ApplyFilter(node.Right, clause)
				if err != nil {
					return nil, err
				}
				node.Right = right
			default:
				remaining = append(remaining, clause)
			}
		}
		if len(remaining) == 0 {
			return node, nil
		}
		return &Filtered{
			Parent:      node,
			Filters:     remaining,
			ToEliminate: make(symbolSet),
			AtSpan:      node.AtSpan,
		}, nil
	default:
		return nil, fmt.Errorf("unknown plan node type %T", ra)
	}
}

func subsetOf(vars map[string]symb.Symbol, set symbolSet) bool {
	for name := range vars {
		if !set.hasName(name) {
			return false
		}
	}
	return true
}

// BindingsAfterEliminate returns the bindings the node exposes to its
// consumer: the pre-elimination bindings minus the node's elimination set.
// The result never contains duplicate names for a well-formed plan.
func BindingsAfterEliminate(ra RelAlgebra) []symb.Symbol {
	before := bindingsBeforeEliminate(ra)
	elim := eliminateSet(ra)
	if len(elim) == 0 {
		return before
	}
	out := make([]symb.Symbol, 0, len(before))
	for _, sym := range before {
		if !elim.has(sym) {
			out = append(out, sym)
		}
	}
	return out
}

func bindingsBeforeEliminate(ra RelAlgebra) []symb.Symbol {
	switch node := ra.(type) {
	case *InlineFixed:
		return node.Bindings
	case *TempStoreScan:
		return node.Bindings
	case *StoredScan:
		return node.Bindings
	case *InnerJoin:
		return node.bindings()
	case *Reorder:
		return node.NewOrder
	case *Filtered:
		return BindingsAfterEliminate(node.Parent)
	case *Unification:
		out := BindingsAfterEliminate(node.Parent)
		out = append(out[:len(out):len(out)], node.Binding)
		return out
	default:
		return nil
	}
}

// bindings of a join are the concatenation of both children's exposed
// bindings. The compiler guarantees the two sides are disjoint by
// renaming repeated variables to fresh synthetic join keys.
func (j *InnerJoin) bindings() []symb.Symbol {
	left := BindingsAfterEliminate(j.Left)
	right := BindingsAfterEliminate(j.Right)
	out := make([]symb.Symbol, 0, len(left)+len(right))
	out = append(out, left...)
	out = append(out, right...)
	return out
}

func eliminateSet(ra RelAlgebra) symbolSet {
	switch node := ra.(type) {
	case *InlineFixed:
		return node.ToEliminate
	case *InnerJoin:
		return node.ToEliminate
	case *Filtered:
		return node.ToEliminate
	case *Unification:
		return node.ToEliminate
	default:
		// Scans and reorders never eliminate; their binding list is
		// authoritative.
		return nil
	}
}
