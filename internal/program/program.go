// Package program defines the input consumed by the plan compiler: a
// stratified, magic-sets-rewritten logic program.
//
// The types here are produced upstream (parser, stratifier, magic-sets
// rewriter) and are read-only as far as the compiler is concerned. Atom is
// a sealed interface in the marker-method style so the compiler's fold over
// a rule body can type-switch exhaustively.
package program

import (
	"strings"

	"github.com/roach88/stratum/internal/expr"
	"github.com/roach88/stratum/internal/fixedrule"
	"github.com/roach88/stratum/internal/symb"
	"github.com/roach88/stratum/internal/value"
)

// MagicSymbol is the magic-sets-rewritten identity of a derived relation:
// either a muggle (unrewritten) name, or a rewritten name carrying an
// adornment marking which argument positions are bound at call sites.
type MagicSymbol struct {
	Inner symb.Symbol
	// Adornment is nil for muggle symbols. For rewritten symbols each
	// entry marks the corresponding argument position as bound (true) or
	// free (false).
	Adornment []bool
}

// Muggle creates an unrewritten symbol.
func Muggle(inner symb.Symbol) MagicSymbol {
	return MagicSymbol{Inner: inner}
}

// Magic creates a rewritten symbol with the given adornment.
func Magic(inner symb.Symbol, adornment []bool) MagicSymbol {
	return MagicSymbol{Inner: inner, Adornment: adornment}
}

// IsMuggle reports whether the symbol was left unrewritten.
func (m MagicSymbol) IsMuggle() bool {
	return m.Adornment == nil
}

// Symbol returns the underlying relation name.
func (m MagicSymbol) Symbol() symb.Symbol {
	return m.Inner
}

// Key returns the canonical string identity used for map keys and ordered
// iteration. Adornments render as 'b'/'f' per position, e.g. "reach|bf".
func (m MagicSymbol) Key() string {
	if m.IsMuggle() {
		return m.Inner.Name
	}
	var sb strings.Builder
	sb.WriteString(m.Inner.Name)
	sb.WriteByte('|')
	for _, bound := range m.Adornment {
		if bound {
			sb.WriteByte('b')
		} else {
			sb.WriteByte('f')
		}
	}
	return sb.String()
}

func (m MagicSymbol) String() string {
	return m.Key()
}

// Equal reports identity of name and adornment.
func (m MagicSymbol) Equal(other MagicSymbol) bool {
	return m.Key() == other.Key()
}

// Atom is a sealed interface over the body atoms of a rewritten rule.
// Only RuleApplyAtom, RelationApplyAtom, NegatedRuleApplyAtom,
// NegatedRelationApplyAtom, PredicateAtom, and UnificationAtom implement it.
type Atom interface {
	atomNode() // Sealed - only these types implement it
}

// RuleApplyAtom references another derived relation by its magic symbol.
type RuleApplyAtom struct {
	Name MagicSymbol
	Args []symb.Symbol
	Span symb.SourceSpan
}

func (*RuleApplyAtom) atomNode() {}

// RelationApplyAtom references a stored relation by name.
type RelationApplyAtom struct {
	Name symb.Symbol
	Args []symb.Symbol
	Span symb.SourceSpan
}

func (*RelationApplyAtom) atomNode() {}

// NegatedRuleApplyAtom is a negated derived-relation reference.
// The compiler rejects it; see compile.CodeNegationUnsupported.
type NegatedRuleApplyAtom struct {
	Name MagicSymbol
	Args []symb.Symbol
	Span symb.SourceSpan
}

func (*NegatedRuleApplyAtom) atomNode() {}

// NegatedRelationApplyAtom is a negated stored-relation reference.
// The compiler rejects it; see compile.CodeNegationUnsupported.
type NegatedRelationApplyAtom struct {
	Name symb.Symbol
	Args []symb.Symbol
	Span symb.SourceSpan
}

func (*NegatedRelationApplyAtom) atomNode() {}

// PredicateAtom applies a boolean expression to the bindings accumulated
// so far.
type PredicateAtom struct {
	Expr expr.Expr
}

func (*PredicateAtom) atomNode() {}

// UnificationAtom binds a variable to an expression (`var = expr`), or in
// one-to-many mode draws the variable from the expression's elements
// (`var in expr`).
type UnificationAtom struct {
	Binding symb.Symbol
	Expr    expr.Expr
	OneMany bool
	Span    symb.SourceSpan
}

func (*UnificationAtom) atomNode() {}

// AggrSpec describes the aggregation applied at one head position.
type AggrSpec struct {
	Name   string
	IsMeet bool
	Args   []value.Value
}

// InlineRule is one clause of a derived relation after rewriting: the head
// variables, the optional per-head-position aggregation, and the ordered
// body atoms.
type InlineRule struct {
	Head []symb.Symbol
	// Aggr has one entry per head position; nil entries carry no
	// aggregation.
	Aggr []*AggrSpec
	Body []Atom
	Span symb.SourceSpan
}

// Multiplicity marks how many times a dependency is consumed by one rule,
// which the evaluator uses for semi-naive delta selection.
type Multiplicity int

const (
	// Once means the dependency appears exactly once in the rule body.
	Once Multiplicity = iota
	// Many means the dependency appears more than once.
	Many
)

// ContainedRule pairs a dependency with its multiplicity.
type ContainedRule struct {
	Symbol       MagicSymbol
	Multiplicity Multiplicity
}

// ContainedRules returns the derived relations this rule depends on,
// keyed by canonical symbol key.
func (r *InlineRule) ContainedRules() map[string]ContainedRule {
	counts := make(map[string]int)
	syms := make(map[string]MagicSymbol)
	for _, atom := range r.Body {
		if app, ok := atom.(*RuleApplyAtom); ok {
			counts[app.Name.Key()]++
			syms[app.Name.Key()] = app.Name
		}
	}
	out := make(map[string]ContainedRule, len(counts))
	for key, n := range counts {
		mult := Once
		if n > 1 {
			mult = Many
		}
		out[key] = ContainedRule{Symbol: syms[key], Multiplicity: mult}
	}
	return out
}

// FixedRuleArg is a sealed interface over the relation arguments of a
// fixed-rule application: either an in-memory rule result or a stored
// relation.
type FixedRuleArg interface {
	fixedRuleArg() // Sealed - only these types implement it
}

// InMemArg references the result of another rule by magic symbol.
type InMemArg struct {
	Name MagicSymbol
	Span symb.SourceSpan
}

func (*InMemArg) fixedRuleArg() {}

// StoredArg references a stored relation by name.
type StoredArg struct {
	Name symb.Symbol
	Span symb.SourceSpan
}

func (*StoredArg) fixedRuleArg() {}

// FixedRuleApply is the opaque descriptor for a fixed-rule application.
// The compiler only reads Arity; everything else is passed through to the
// evaluator.
type FixedRuleApply struct {
	Handle  fixedrule.Handle
	Args    []FixedRuleArg
	Options map[string]expr.Expr
	Head    []symb.Symbol
	Arity   int
	Span    symb.SourceSpan
	Impl    fixedrule.FixedRule
}

// RuleSet is the body of one derived relation in a stratum: either a list
// of inline rule clauses (all sharing one arity) or a fixed-rule
// application. Exactly one of the two fields is set.
type RuleSet struct {
	Rules []*InlineRule
	Fixed *FixedRuleApply
}

// Arity returns the declared arity of the rule set.
func (rs *RuleSet) Arity() int {
	if rs.Fixed != nil {
		return rs.Fixed.Arity
	}
	return len(rs.Rules[0].Head)
}

// Entry is one named rule set inside a stratum. Strata preserve entry
// order so compilation output is deterministic.
type Entry struct {
	Symbol  MagicSymbol
	RuleSet RuleSet
}

// Stratum is one dependency layer of the rewritten program.
type Stratum struct {
	Prog []Entry
}

// StratifiedProgram is the ordered sequence of strata handed to the
// compiler. Strata are ordered so that later strata depend only on
// earlier ones; the compiler walks them in reverse.
type StratifiedProgram struct {
	Strata []Stratum
}
