package vm

import (
	"github.com/cbarrick/rant/internal/collections"
	"github.com/cbarrick/rant/rst"
	"github.com/cbarrick/rant/value"
)

// RantRng is the pluggable random-number source consumed only by the
// resolver (spec.md §6). Its statistical policy is unspecified here —
// package rng ships a default implementation.
type RantRng interface {
	// NextUnweighted picks an index in [0, n).
	NextUnweighted(n int) int
	// NextWeighted picks an index in [0, len(weights)) proportional to
	// weight.
	NextWeighted(weights []float64) int
}

// ElementAction is the result of the resolver's next_element: either an
// element to evaluate, a piped element, a separator value, or
// completion (spec.md §4.5).
type ElementActionKind int

const (
	ActionElement ElementActionKind = iota
	ActionPipedElement
	ActionSeparator
	ActionNone
)

type ElementAction struct {
	Kind       ElementActionKind
	Body       *rst.Sequence
	ElemFunc   value.Value
	PipeFunc   value.Value
	Separator  value.Value
	IsRepeater bool
}

// blockState is one active block on the resolver's stack.
type blockState struct {
	block      *rst.Block
	weights    []float64
	order      []int
	next       int
	isRepeater bool
	repeatN    int // -1 for an unbounded repeater relying on 'break'
	stepIndex  int
	stopped    bool
}

// Resolver maintains the stack of active blocks (spec.md §4.5), plus
// the attribute stack surrounding code uses to configure the next
// block.
type Resolver struct {
	blocks     collections.Stack[*blockState]
	attrs      collections.Stack[value.Value]
}

func NewResolver() *Resolver {
	return &Resolver{}
}

// PushBlock activates a block (spec.md §4.6's push_block).
func (r *Resolver) PushBlock(b *rst.Block, weights []float64) {
	st := &blockState{block: b, weights: weights, isRepeater: b.IsRepeater, repeatN: -1}
	if b.IsRepeater && b.RepeatExpr == nil {
		st.repeatN = -1
	}
	r.blocks.Push(st)
}

// PushRepeater activates a repeater block with a resolved iteration
// count (n < 0 means unbounded, relying on 'break').
func (r *Resolver) PushRepeater(b *rst.Block, n int) {
	st := &blockState{block: b, isRepeater: true, repeatN: n}
	r.blocks.Push(st)
}

func (r *Resolver) Len() int { return r.blocks.Len() }

func (r *Resolver) PopBlock() {
	r.blocks.Pop()
}

func (r *Resolver) Active() (*blockState, bool) {
	return r.blocks.Peek()
}

// NextElement advances the top block and reports what the VM should do
// next (spec.md §4.5).
func (r *Resolver) NextElement(rng RantRng) ElementAction {
	st, ok := r.blocks.Peek()
	if !ok {
		return ElementAction{Kind: ActionNone}
	}
	if st.isRepeater {
		if st.repeatN >= 0 && st.stepIndex >= st.repeatN {
			return ElementAction{Kind: ActionNone}
		}
		if st.stopped {
			return ElementAction{Kind: ActionNone}
		}
	}
	// A plain block evaluates exactly one element.
	if len(st.block.Elements) == 0 || (!st.isRepeater && st.stepIndex > 0) {
		return ElementAction{Kind: ActionNone}
	}

	idx := r.pickIndex(st, rng)
	elem := st.block.Elements[idx]
	st.stepIndex++

	return ElementAction{Kind: ActionElement, Body: elem.Body, IsRepeater: st.isRepeater}
}

func (r *Resolver) pickIndex(st *blockState, rng RantRng) int {
	if st.block.Weighted && len(st.weights) == len(st.block.Elements) {
		return rng.NextWeighted(st.weights)
	}
	return rng.NextUnweighted(len(st.block.Elements))
}

// StopRepeater force-stops the active repeater (spec.md §4.6's
// interrupt_repeater, "!should_continue").
func (r *Resolver) StopRepeater() {
	if st, ok := r.blocks.Peek(); ok {
		st.stopped = true
	}
}

// StepIndex / StepCount report a block's progress: elements started so
// far, and the repeat count (-1 when unbounded). No stdlib native reads
// them.
func (st *blockState) StepIndex() int { return st.stepIndex }
func (st *blockState) StepCount() int { return st.repeatN }

// Attribute stack (spec.md §4.5).
func (r *Resolver) PushAttr(v value.Value)  { r.attrs.Push(v) }
func (r *Resolver) PopAttr() (value.Value, bool) { return r.attrs.Pop() }
func (r *Resolver) AttrCount() int          { return r.attrs.Len() }
func (r *Resolver) ResetAttrs()             { r.attrs.Truncate(0) }
