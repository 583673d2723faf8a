package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	cases := []struct {
		in   Value
		want string
	}{
		{Null{}, "null"},
		{Bool(true), "true"},
		{Int(-42), "-42"},
		{Float(1.5), "1.5"},
		{String("hi"), `"hi"`},
		{List{Int(1), String("a")}, `[1, "a"]`},
		{List{}, "[]"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Render(tc.in))
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(Int(3), Int(3)))
	assert.False(t, Equal(Int(3), Float(3)))
	assert.True(t, Equal(List{Int(1), List{String("x")}}, List{Int(1), List{String("x")}}))
	assert.False(t, Equal(List{Int(1)}, List{Int(1), Int(2)}))
	assert.True(t, Equal(Null{}, Null{}))
	assert.False(t, Equal(Null{}, Bool(false)))
}
