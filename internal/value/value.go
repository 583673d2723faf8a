// Package value provides the constant value types that appear in plan
// expressions and inline fixed relations.
//
// Value is a sealed interface using the marker method pattern: only types
// in this package implement it, which enables exhaustive type switches in
// the expression and explain layers.
package value

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is a sealed interface representing a constant datum.
// Only Null, Bool, Int, Float, String, and List implement it.
type Value interface {
	value() // Sealed - only these types implement it
}

// Null represents the absent value.
type Null struct{}

func (Null) value() {}

// Bool represents a boolean constant.
type Bool bool

func (Bool) value() {}

// Int represents a 64-bit integer constant.
type Int int64

func (Int) value() {}

// Float represents a 64-bit floating point constant.
type Float float64

func (Float) value() {}

// String represents a string constant.
type String string

func (String) value() {}

// List represents an ordered collection of values.
type List []Value

func (List) value() {}

// Render returns the diagnostic rendering of a value, as shown in explain
// output and error messages.
func Render(v Value) string {
	switch val := v.(type) {
	case Null:
		return "null"
	case Bool:
		return strconv.FormatBool(bool(val))
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case String:
		return strconv.Quote(string(val))
	case List:
		parts := make([]string, len(val))
		for i, e := range val {
			parts[i] = Render(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("<unknown %T>", v)
	}
}

// Equal reports deep equality of two values.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Float:
		bv, ok := b.(Float)
		return ok && av == bv
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
