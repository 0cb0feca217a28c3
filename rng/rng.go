// Package rng supplies a default vm.RantRng (spec.md §6, SPEC_FULL.md
// §10.3). spec.md fixes the interface surface but not the statistical
// policy; this implementation is only one valid choice among many.
package rng

import "math/rand/v2"

// Default is a math/rand/v2-backed RantRng: uniform pick among
// unweighted elements, weighted pick via cumulative-weight binary
// search among weighted ones.
type Default struct {
	src *rand.Rand
}

// New seeds a Default RNG. Two Defaults seeded identically produce
// identical pick sequences, matching spec.md's "seed" stdlib hook.
func New(seed uint64) *Default {
	return &Default{src: rand.New(rand.NewPCG(seed, seed))}
}

func (d *Default) NextUnweighted(n int) int {
	if n <= 0 {
		return 0
	}
	return d.src.IntN(n)
}

// NextWeighted picks an index proportional to weight via cumulative-sum
// binary search. Non-positive weights never win unless every weight is
// non-positive, in which case the pick falls back to uniform.
func (d *Default) NextWeighted(weights []float64) int {
	if len(weights) == 0 {
		return 0
	}
	cum := make([]float64, len(weights))
	total := 0.0
	for i, w := range weights {
		if w > 0 {
			total += w
		}
		cum[i] = total
	}
	if total <= 0 {
		return d.NextUnweighted(len(weights))
	}
	target := d.src.Float64() * total
	lo, hi := 0, len(cum)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if cum[mid] < target {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
