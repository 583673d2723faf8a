package symb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSymbolEqualityIgnoresSpan(t *testing.T) {
	a := New("x", SourceSpan{Start: 3, Length: 1})
	b := New("x", SourceSpan{Start: 17, Length: 1})
	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Name, b.Name)
}

func TestSymbolNameNormalization(t *testing.T) {
	// "é" as a precomposed rune vs. "e" + combining acute.
	composed := New("caf\u00e9", SourceSpan{})
	decomposed := New("cafe\u0301", SourceSpan{})
	assert.True(t, composed.Equal(decomposed))
}

func TestGeneratorFreshNames(t *testing.T) {
	var g Generator
	first := g.Fresh(SourceSpan{Start: 1, Length: 2})
	second := g.Fresh(SourceSpan{})
	assert.Equal(t, "**0", first.Name)
	assert.Equal(t, "**1", second.Name)
	assert.True(t, first.IsGenerated())
	assert.False(t, first.IsIgnored())
}

func TestIgnoredSymbols(t *testing.T) {
	cases := []struct {
		name    string
		ignored bool
	}{
		{"_", true},
		{"~placeholder_0", true},
		{"x", false},
		{"**0", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ignored, Symbol{Name: tc.name}.IsIgnored(), tc.name)
	}
}

func TestSourceSpanString(t *testing.T) {
	assert.Equal(t, "<unknown>", SourceSpan{}.String())
	assert.Equal(t, "4..9", SourceSpan{Start: 4, Length: 5}.String())
}
