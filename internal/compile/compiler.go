// Package compile turns a stratified, magic-sets-rewritten logic program
// into executable relational-algebra plans over stored and in-memory
// relations.
//
// For each rule clause the compiler folds the ordered body atoms into a
// left-deep tree of RelAlgebra operators, then runs two whole-tree
// passes: dead-binding elimination (EliminateTempVars) followed by
// binding-index resolution (ResolveIndices). The passes must run in that
// order; resolution assigns tuple offsets against post-elimination
// binding layouts.
//
// Compilation of a single program is single-threaded and synchronous.
// The Compiler's relation registry is owned by one compilation session
// and never shared across concurrent compilations. Compiled plan trees
// are immutable after resolution and may be shared read-only.
package compile

import (
	"errors"

	"github.com/roach88/stratum/internal/expr"
	"github.com/roach88/stratum/internal/program"
	"github.com/roach88/stratum/internal/symb"
)

// Compiler compiles stratified programs and owns the registry of stored
// relations declared in the session.
type Compiler struct {
	relations map[string]*RelationHandle
	nextRelID uint16
}

// NewCompiler creates a compiler with an empty relation registry.
func NewCompiler() *Compiler {
	return &Compiler{relations: make(map[string]*RelationHandle)}
}

// AggrKind classifies the aggregation shape of a rule set.
type AggrKind int

const (
	// AggrKindNone means no head position aggregates.
	AggrKindNone AggrKind = iota
	// AggrKindNormal means at least one non-meet aggregation is present.
	AggrKindNormal
	// AggrKindMeet means all aggregations are meet aggregations in
	// trailing head positions.
	AggrKindMeet
)

// CompiledRule is the final artifact for one clause of a derived
// relation: its per-head-position aggregation, the resolved plan tree,
// and the derived relations the clause depends on.
type CompiledRule struct {
	Aggr           []*program.AggrSpec
	Relation       RelAlgebra
	ContainedRules map[string]program.ContainedRule
}

// CompiledRuleSet is either a list of compiled clauses sharing one arity,
// or a fixed-rule application opaque to the compiler. Exactly one of the
// fields is set.
type CompiledRuleSet struct {
	Rules []*CompiledRule
	Fixed *program.FixedRuleApply
}

// Arity returns the output arity of the rule set.
func (rs *CompiledRuleSet) Arity() int {
	if rs.Fixed != nil {
		return rs.Fixed.Arity
	}
	return len(rs.Rules[0].Aggr)
}

// AggrKind classifies the rule set's aggregations. Meet aggregations
// only count as meet when no non-meet aggregation occurs and none is
// followed by an unaggregated position.
func (rs *CompiledRuleSet) AggrKind() AggrKind {
	if rs.Fixed != nil {
		return AggrKindNone
	}
	hasAggr := false
	hasNonMeet := false
	for _, spec := range rs.Rules[0].Aggr {
		if spec == nil {
			// Meet aggregations must all be at the last positions.
			if hasAggr {
				hasNonMeet = true
			}
			continue
		}
		hasAggr = true
		if !spec.IsMeet {
			hasNonMeet = true
		}
	}
	switch {
	case !hasAggr:
		return AggrKindNone
	case hasNonMeet:
		return AggrKindNormal
	default:
		return AggrKindMeet
	}
}

// CompiledEntry pairs a derived relation's magic symbol with its compiled
// rule set.
type CompiledEntry struct {
	Symbol  program.MagicSymbol
	RuleSet *CompiledRuleSet
}

// CompiledProgram is the ordered map of compiled rule sets for one
// evaluation stratum. Entry order follows the input stratum and is
// deterministic.
type CompiledProgram struct {
	Entries []CompiledEntry
}

// Get returns the rule set compiled for the given symbol.
func (p *CompiledProgram) Get(sym program.MagicSymbol) (*CompiledRuleSet, bool) {
	for _, entry := range p.Entries {
		if entry.Symbol.Equal(sym) {
			return entry.RuleSet, true
		}
	}
	return nil, false
}

// CompileStratified compiles the whole rewritten program, one
// CompiledProgram per evaluation stratum. Strata arrive entry-first and
// are compiled in reverse, so the returned slice is in evaluation order
// with dependencies preceding their dependents. The arity of every
// derived relation is recorded up front so forward references resolve.
func (c *Compiler) CompileStratified(prog *program.StratifiedProgram) ([]*CompiledProgram, error) {
	arities := make(map[string]int)
	for _, stratum := range prog.Strata {
		for _, entry := range stratum.Prog {
			arities[entry.Symbol.Key()] = entry.RuleSet.Arity()
		}
	}

	out := make([]*CompiledProgram, 0, len(prog.Strata))
	for i := len(prog.Strata) - 1; i >= 0; i-- {
		stratum := prog.Strata[i]
		compiled := &CompiledProgram{Entries: make([]CompiledEntry, 0, len(stratum.Prog))}
		for _, entry := range stratum.Prog {
			ruleSet, err := c.compileRuleSet(entry.Symbol, entry.RuleSet, arities)
			if err != nil {
				return nil, err
			}
			compiled.Entries = append(compiled.Entries, CompiledEntry{Symbol: entry.Symbol, RuleSet: ruleSet})
		}
		out = append(out, compiled)
	}
	return out, nil
}

func (c *Compiler) compileRuleSet(name program.MagicSymbol, rs program.RuleSet, arities map[string]int) (*CompiledRuleSet, error) {
	if rs.Fixed != nil {
		return &CompiledRuleSet{Fixed: rs.Fixed}, nil
	}
	collected := make([]*CompiledRule, 0, len(rs.Rules))
	for _, rule := range rs.Rules {
		relation, err := c.compileRuleBody(rule, name, arities, rule.Head)
		if err != nil {
			return nil, err
		}
		if err := ResolveIndices(relation); err != nil {
			return nil, err
		}
		collected = append(collected, &CompiledRule{
			Aggr:           rule.Aggr,
			Relation:       relation,
			ContainedRules: rule.ContainedRules(),
		})
	}
	return &CompiledRuleSet{Rules: collected}, nil
}

// compileRuleBody folds one rule's ordered atoms into a plan whose final
// exposed bindings are exactly retVars, in declared order.
func (c *Compiler) compileRuleBody(
	rule *program.InlineRule,
	ruleName program.MagicSymbol,
	arities map[string]int,
	retVars []symb.Symbol,
) (RelAlgebra, error) {
	var ret RelAlgebra = Unit(ruleName.Symbol().Span)
	seen := make(symbolSet)
	var gen symb.Generator

	for _, atom := range rule.Body {
		switch a := atom.(type) {
		case *program.RuleApplyAtom:
			arity, ok := arities[a.Name.Key()]
			if !ok {
				return nil, errRuleNotFound(a.Name.Symbol().Name, a.Name.Symbol().Span)
			}
			if arity != len(a.Args) {
				return nil, errArityMismatch(a.Name.Symbol().Name, arity, len(a.Args), a.Span)
			}
			var prevJoiner, rightJoiner, rightVars []symb.Symbol
			for _, arg := range a.Args {
				if seen.has(arg) {
					prevJoiner = append(prevJoiner, arg)
					stand := gen.Fresh(arg.Span)
					rightVars = append(rightVars, stand)
					rightJoiner = append(rightJoiner, stand)
				} else {
					seen.add(arg)
					rightVars = append(rightVars, arg)
				}
			}
			right := Derived(rightVars, a.Name, a.Span)
			ret = Join(ret, right, prevJoiner, rightJoiner, a.Span)

		case *program.RelationApplyAtom:
			handle, err := c.GetRelation(a.Name.Name)
			if err != nil {
				var ce *Error
				if errors.As(err, &ce) && ce.Span.IsZero() {
					ce.Span = a.Span
				}
				return nil, err
			}
			if handle.Arity != len(a.Args) {
				return nil, errArityMismatch(a.Name.Name, handle.Arity, len(a.Args), a.Span)
			}
			var prevJoiner, rightJoiner, rightVars []symb.Symbol
			positionUse := make([]IndexPositionUse, 0, len(a.Args))
			for _, arg := range a.Args {
				if seen.has(arg) {
					prevJoiner = append(prevJoiner, arg)
					stand := gen.Fresh(arg.Span)
					rightVars = append(rightVars, stand)
					rightJoiner = append(rightJoiner, stand)
					positionUse = append(positionUse, PositionJoin)
				} else {
					seen.add(arg)
					rightVars = append(rightVars, arg)
					if arg.IsIgnored() {
						positionUse = append(positionUse, PositionIgnored)
					} else {
						positionUse = append(positionUse, PositionBindForLater)
					}
				}
			}
			right := Relation(rightVars, handle.Name, positionUse, a.Span)
			ret = Join(ret, right, prevJoiner, rightJoiner, a.Span)

		case *program.PredicateAtom:
			next, err := ApplyFilter(ret, a.Expr)
			if err != nil {
				return nil, err
			}
			ret = next

		case *program.UnificationAtom:
			if seen.has(a.Binding) {
				// The variable is already bound: the unification becomes
				// an equality (or membership) filter instead.
				existing := &expr.Binding{Var: a.Binding}
				var test expr.Expr
				if a.OneMany {
					test = expr.IsIn(existing, a.Expr, a.Span)
				} else {
					test = expr.Eq(existing, a.Expr, a.Span)
				}
				next, err := ApplyFilter(ret, test)
				if err != nil {
					return nil, err
				}
				ret = next
			} else {
				seen.add(a.Binding)
				ret = Unify(ret, a.Binding, a.Expr, a.OneMany, a.Span)
			}

		case *program.NegatedRuleApplyAtom:
			return nil, errNegationUnsupported(a.Span)
		case *program.NegatedRelationApplyAtom:
			return nil, errNegationUnsupported(a.Span)
		}
	}

	retSet := newSymbolSet(retVars...)
	if err := EliminateTempVars(ret, retSet); err != nil {
		return nil, err
	}
	current := newSymbolSet(BindingsAfterEliminate(ret)...)
	if !current.equal(retSet) {
		// The last operator may be a scan-like shape that cannot
		// eliminate on its own; a cartesian join against unit gives the
		// pass a node that can.
		span := ret.Span()
		ret = CartesianJoin(ret, Unit(span), span)
		if err := EliminateTempVars(ret, retSet); err != nil {
			return nil, err
		}
		current = newSymbolSet(BindingsAfterEliminate(ret)...)
	}
	if !current.equal(retSet) {
		for _, head := range retVars {
			if !current.has(head) {
				return nil, errUnboundSymbolInHead(head.Name, head.Span)
			}
		}
		// All head variables are present, so the plan exposes extras
		// that elimination could not drop; report against the rule.
		return nil, errUnboundSymbolInHead(ruleName.Symbol().Name, rule.Span)
	}

	exposed := BindingsAfterEliminate(ret)
	if !sameOrder(exposed, retVars) {
		ret = NewReorder(ret, retVars)
	}
	return ret, nil
}

func sameOrder(a, b []symb.Symbol) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name {
			return false
		}
	}
	return true
}
