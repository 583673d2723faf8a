package compile

import "github.com/roach88/stratum/internal/symb"

// symbolSet is a set of variable names. Symbols compare by name, so the
// set deliberately drops spans.
type symbolSet map[string]struct{}

func newSymbolSet(syms ...symb.Symbol) symbolSet {
	s := make(symbolSet, len(syms))
	s.addAll(syms)
	return s
}

func (s symbolSet) has(sym symb.Symbol) bool {
	_, ok := s[sym.Name]
	return ok
}

func (s symbolSet) hasName(name string) bool {
	_, ok := s[name]
	return ok
}

func (s symbolSet) add(sym symb.Symbol) {
	s[sym.Name] = struct{}{}
}

func (s symbolSet) addAll(syms []symb.Symbol) {
	for _, sym := range syms {
		s[sym.Name] = struct{}{}
	}
}

func (s symbolSet) addNames(names map[string]symb.Symbol) {
	for name := range names {
		s[name] = struct{}{}
	}
}

func (s symbolSet) clone() symbolSet {
	out := make(symbolSet, len(s))
	for name := range s {
		out[name] = struct{}{}
	}
	return out
}

func (s symbolSet) equal(other symbolSet) bool {
	if len(s) != len(other) {
		return false
	}
	for name := range s {
		if _, ok := other[name]; !ok {
			return false
		}
	}
	return true
}
