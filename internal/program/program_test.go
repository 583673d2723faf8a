package program

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/stratum/internal/fixedrule"
	"github.com/roach88/stratum/internal/symb"
)

func sym(name string) symb.Symbol {
	return symb.New(name, symb.SourceSpan{})
}

func TestMagicSymbolKey(t *testing.T) {
	assert.Equal(t, "reach", Muggle(sym("reach")).Key())
	assert.Equal(t, "reach|bf", Magic(sym("reach"), []bool{true, false}).Key())
	assert.Equal(t, "m|f", Magic(sym("m"), []bool{false}).Key())

	assert.True(t, Muggle(sym("reach")).IsMuggle())
	assert.False(t, Magic(sym("reach"), []bool{true}).IsMuggle())
	assert.True(t, Magic(sym("a"), []bool{true}).Equal(Magic(sym("a"), []bool{true})))
	assert.False(t, Magic(sym("a"), []bool{true}).Equal(Magic(sym("a"), []bool{false})))
}

func TestContainedRulesMultiplicity(t *testing.T) {
	fib := Muggle(sym("fibo"))
	other := Muggle(sym("nodes"))
	rule := &InlineRule{
		Head: []symb.Symbol{sym("n"), sym("x")},
		Aggr: []*AggrSpec{nil, nil},
		Body: []Atom{
			&RuleApplyAtom{Name: fib, Args: []symb.Symbol{sym("n1"), sym("a")}},
			&RuleApplyAtom{Name: fib, Args: []symb.Symbol{sym("n2"), sym("b")}},
			&RuleApplyAtom{Name: other, Args: []symb.Symbol{sym("n")}},
			&PredicateAtom{},
		},
	}

	deps := rule.ContainedRules()
	assert.Len(t, deps, 2)
	assert.Equal(t, Many, deps["fibo"].Multiplicity)
	assert.Equal(t, Once, deps["nodes"].Multiplicity)
	assert.True(t, deps["fibo"].Symbol.Equal(fib))
}

func TestRuleSetArity(t *testing.T) {
	rules := &RuleSet{Rules: []*InlineRule{{
		Head: []symb.Symbol{sym("a"), sym("b"), sym("c")},
		Aggr: []*AggrSpec{nil, nil, nil},
	}}}
	assert.Equal(t, 3, rules.Arity())

	fixed := &RuleSet{Fixed: &FixedRuleApply{
		Handle: fixedrule.NewHandle("pagerank", symb.SourceSpan{}),
		Arity:  2,
		Impl:   fixedrule.NewSimple(2),
	}}
	assert.Equal(t, 2, fixed.Arity())
}
