package explain

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stratum/internal/compile"
	"github.com/roach88/stratum/internal/program"
	"github.com/roach88/stratum/internal/symb"
)

func syms(names ...string) []symb.Symbol {
	out := make([]symb.Symbol, len(names))
	for i, name := range names {
		out[i] = symb.New(name, symb.SourceSpan{})
	}
	return out
}

func muggle(name string) program.MagicSymbol {
	return program.Muggle(symb.New(name, symb.SourceSpan{}))
}

func inline(head []symb.Symbol, body ...program.Atom) program.RuleSet {
	return program.RuleSet{Rules: []*program.InlineRule{{
		Head: head,
		Aggr: make([]*program.AggrSpec, len(head)),
		Body: body,
	}}}
}

func ruleAtom(name string, args ...string) *program.RuleApplyAtom {
	return &program.RuleApplyAtom{Name: muggle(name), Args: syms(args...)}
}

func relAtom(name string, args ...string) *program.RelationApplyAtom {
	return &program.RelationApplyAtom{Name: symb.New(name, symb.SourceSpan{}), Args: syms(args...)}
}

// compileAncestry compiles the three-relation mutation-ancestry program
// used across the explain tests.
func compileAncestry(t *testing.T) []*compile.CompiledProgram {
	t.Helper()
	c := compile.NewCompiler()
	for _, rel := range []struct {
		name  string
		arity int
	}{{"mutations", 1}, {"has_added", 2}, {"has_target", 2}} {
		_, err := c.CreateRelation(rel.name, rel.arity)
		require.NoError(t, err)
	}

	prog := &program.StratifiedProgram{Strata: []program.Stratum{
		{Prog: []program.Entry{{
			Symbol:  muggle("?"),
			RuleSet: inline(syms("x", "y"), ruleAtom("is_parent", "x", "y")),
		}}},
		{Prog: []program.Entry{{
			Symbol: muggle("is_parent"),
			RuleSet: inline(syms("p", "c"),
				ruleAtom("mutations", "m"),
				ruleAtom("has_added", "m", "c"),
				ruleAtom("has_target", "m", "p"),
			),
		}}},
		{Prog: []program.Entry{
			{Symbol: muggle("mutations"), RuleSet: inline(syms("m"), relAtom("mutations", "m"))},
			{Symbol: muggle("has_added"), RuleSet: inline(syms("m", "n"), relAtom("has_added", "m", "n"))},
			{Symbol: muggle("has_target"), RuleSet: inline(syms("m", "n"), relAtom("has_target", "m", "n"))},
		}},
	}}

	strata, err := c.CompileStratified(prog)
	require.NoError(t, err)
	return strata
}

func TestProgram_MutationAncestryGolden(t *testing.T) {
	rows, err := Program(compileAncestry(t))
	require.NoError(t, err)

	data, err := json.MarshalIndent(rows, "", "  ")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "mutation_ancestry", append(data, '\n'))
}

func TestProgram_RowShape(t *testing.T) {
	rows, err := Program(compileAncestry(t))
	require.NoError(t, err)
	require.Len(t, rows, 15)

	// Every clause block starts with its head summary row.
	assert.Equal(t, "out", rows[0].Op)
	assert.Equal(t, 0, rows[0].AtomIdx)
	assert.Equal(t, "mutations", rows[0].Rule)

	// The entry rule reads is_parent from the in-memory store.
	last := rows[len(rows)-1]
	assert.Equal(t, "load_mem", last.Op)
	assert.Equal(t, "is_parent", last.Ref)
	assert.Equal(t, []string{"x", "y"}, last.OutRelation)

	// Stored scans are prefixed with a colon.
	assert.Equal(t, ":mutations", rows[1].Ref)

	// The combining rule joins twice and reorders once.
	var joins, reorders int
	for _, row := range rows {
		if row.Rule != "is_parent" {
			continue
		}
		switch row.Op {
		case "mem_prefix_join":
			joins++
		case "reorder":
			reorders++
		}
	}
	assert.Equal(t, 2, joins)
	assert.Equal(t, 1, reorders)
}

func TestProgram_FixedRuleRendersAsAlgo(t *testing.T) {
	strata := []*compile.CompiledProgram{{
		Entries: []compile.CompiledEntry{{
			Symbol: muggle("pagerank"),
			RuleSet: &compile.CompiledRuleSet{Fixed: &program.FixedRuleApply{
				Arity: 2,
			}},
		}},
	}}

	rows, err := Program(strata)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "algo", rows[0].Op)
	assert.Equal(t, "pagerank", rows[0].Rule)
	assert.Empty(t, rows[0].OutRelation)
}

func TestRender_AlignsColumnsUnderHeader(t *testing.T) {
	rows, err := Program(compileAncestry(t))
	require.NoError(t, err)

	table := Render(rows)
	lines := splitLines(table)
	require.Len(t, lines, 16)
	assert.Contains(t, lines[0], "stratum")
	assert.Contains(t, lines[0], "out_relation")
	assert.Contains(t, table, "mem_prefix_join")
	assert.Contains(t, table, "m=**0")
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
