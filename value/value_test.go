package value_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cbarrick/rant/value"
)

func TestTruthiness(t *testing.T) {
	cases := []struct {
		name string
		v    value.Value
		want bool
	}{
		{"empty", value.Empty(), false},
		{"zero int", value.Int(0), false},
		{"nonzero int", value.Int(1), true},
		{"false bool", value.Bool(false), false},
		{"true bool", value.Bool(true), true},
		{"nan float", value.Float(math.NaN()), false},
		{"nonzero float", value.Float(0.5), true},
		{"empty string", value.String(""), false},
		{"nonempty string", value.String("x"), true},
		{"nonempty list", value.ListVal(value.NewList(value.Int(1))), true},
		{"empty list", value.ListVal(value.NewList()), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, c.v.ToBool())
		})
	}
}

func TestConcatEmptyIdentity(t *testing.T) {
	v := value.Int(42)
	assert.True(t, value.Equal(value.Add(value.Empty(), v), v))
	assert.True(t, value.Equal(value.Add(v, value.Empty()), v))
}

func TestDoubleNegation(t *testing.T) {
	v := value.Int(7)
	assert.True(t, value.Equal(value.Neg(value.Neg(v)), v))
}

func TestDivideByZero(t *testing.T) {
	_, err := value.Div(value.Int(1), value.Int(0))
	require := &value.ValueError{}
	assert.ErrorAs(t, err, &require)
	assert.Equal(t, value.ErrDivideByZero, require.Kind)
}

func TestIndexBoundaries(t *testing.T) {
	l := value.ListVal(value.NewList(value.Int(1), value.Int(2), value.Int(3)))
	last, err := l.IndexGet(-1)
	assert.NoError(t, err)
	assert.True(t, value.Equal(last, value.Int(3)))

	_, err = l.IndexGet(-4)
	assert.Error(t, err)
}

func TestListEqualityStructuralMapIdentity(t *testing.T) {
	a := value.ListVal(value.NewList(value.Int(1)))
	b := value.ListVal(value.NewList(value.Int(1)))
	assert.True(t, value.Equal(a, b), "lists compare structurally")

	m1 := value.MapVal(value.NewMap())
	m2 := value.MapVal(value.NewMap())
	assert.False(t, value.Equal(m1, m2), "maps compare by handle identity")
	assert.True(t, value.Equal(m1, m1))
}

func TestSliceRoundTrip(t *testing.T) {
	l := value.ListVal(value.NewList(value.Int(1), value.Int(2), value.Int(3)))
	full, err := l.SliceGet(value.Bounds{})
	assert.NoError(t, err)
	n, _ := full.Len()
	orig, _ := l.Len()
	assert.Equal(t, orig, n)
}
