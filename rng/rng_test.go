package rng_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cbarrick/rant/rng"
)

func TestNewDeterministic(t *testing.T) {
	a := rng.New(42)
	b := rng.New(42)
	for i := 0; i < 20; i++ {
		assert.Equal(t, a.NextUnweighted(100), b.NextUnweighted(100))
	}
}

func TestNextUnweightedRange(t *testing.T) {
	r := rng.New(1)
	for i := 0; i < 100; i++ {
		n := r.NextUnweighted(5)
		assert.GreaterOrEqual(t, n, 0)
		assert.Less(t, n, 5)
	}
}

func TestNextUnweightedZero(t *testing.T) {
	r := rng.New(1)
	assert.Equal(t, 0, r.NextUnweighted(0))
}

func TestNextWeightedAllZeroFallsBackToUniform(t *testing.T) {
	r := rng.New(1)
	for i := 0; i < 50; i++ {
		idx := r.NextWeighted([]float64{0, 0, 0})
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, 3)
	}
}

func TestNextWeightedPicksOnlyPositive(t *testing.T) {
	r := rng.New(1)
	for i := 0; i < 50; i++ {
		idx := r.NextWeighted([]float64{0, 5, 0})
		assert.Equal(t, 1, idx)
	}
}

func TestNextWeightedEmpty(t *testing.T) {
	r := rng.New(1)
	assert.Equal(t, 0, r.NextWeighted(nil))
}
