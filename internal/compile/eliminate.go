package compile

import "github.com/roach88/stratum/internal/expr"

// EliminateTempVars runs the dead-binding elimination pass over the plan:
// given the set of variables genuinely needed beyond this subtree, each
// node marks which of its own exposed bindings may be dropped from its
// output, then recurses with the set of variables it consumes itself
// added to the needed set.
//
// The pass must run exactly once, before binding-index resolution,
// because resolution reads BindingsAfterEliminate and the offsets it
// assigns are only valid against the post-elimination ordering.
func EliminateTempVars(ra RelAlgebra, used symbolSet) error {
	switch node := ra.(type) {
	case *InlineFixed:
		for _, binding := range node.Bindings {
			if !used.has(binding) {
				node.ToEliminate.add(binding)
			}
		}
		return nil
	case *TempStoreScan, *StoredScan:
		// Scan binding lists are authoritative; nothing to drop here.
		return nil
	case *InnerJoin:
		return node.eliminate(used)
	case *Reorder:
		return EliminateTempVars(node.Relation, used)
	case *Filtered:
		return node.eliminate(used)
	case *Unification:
		return node.eliminate(used)
	default:
		return nil
	}
}

func (j *InnerJoin) eliminate(used symbolSet) error {
	for _, binding := range j.bindings() {
		if !used.has(binding) {
			j.ToEliminate.add(binding)
		}
	}
	left := used.clone()
	left.addAll(j.Joiner.LeftKeys)
	// A temp-store scan on the right may carry push-down filters whose
	// variables resolve against the joined tuple; the left side must not
	// prune them away.
	if scan, ok := j.Right.(*TempStoreScan); ok {
		for _, filter := range scan.Filters {
			left.addNames(expr.Bindings(filter))
		}
	}
	if err := EliminateTempVars(j.Left, left); err != nil {
		return err
	}
	right := used.clone()
	right.addAll(j.Joiner.RightKeys)
	return EliminateTempVars(j.Right, right)
}

func (f *Filtered) eliminate(used symbolSet) error {
	for _, binding := range bindingsBeforeEliminate(f.Parent) {
		if !used.has(binding) {
			f.ToEliminate.add(binding)
		}
	}
	next := used.clone()
	for _, filter := range f.Filters {
		next.addNames(expr.Bindings(filter))
	}
	return EliminateTempVars(f.Parent, next)
}

func (u *Unification) eliminate(used symbolSet) error {
	for _, binding := range bindingsBeforeEliminate(u.Parent) {
		if !used.has(binding) {
			u.ToEliminate.add(binding)
		}
	}
	next := used.clone()
	next.addNames(expr.Bindings(u.Expr))
	return EliminateTempVars(u.Parent, next)
}
