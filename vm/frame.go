// Package vm implements the intent-driven virtual machine: a
// continuation-style tree interpreter that evaluates an rst.Program
// without recursing on the host stack (spec.md §4.6).
//
// The tick-loop algorithm is grounded directly on
// original_source/src/runtime/mod.rs's VM::tick/run_inner (there is no
// teacher analogue: cbarrick-ripl's WAM recurses on the host stack via
// Go function calls, which is exactly the shape spec.md §1's Non-goals
// rule out reusing). Struct layout conventions (small structs, explicit
// field comments) follow cbarrick-ripl/wam/program.go's style.
package vm

import (
	"strings"

	"github.com/cbarrick/rant/internal/collections"
	"github.com/cbarrick/rant/rst"
	"github.com/cbarrick/rant/value"
)

// Flavor classifies a frame for control-flow interruption (spec.md
// §4.4, §4.6): func_return/interrupt_repeater scan the call stack
// looking for a frame with a specific Flavor.
type Flavor int

const (
	Original Flavor = iota
	FunctionBody
	BlockElementFlavor
	RepeaterElementFlavor
	DynamicKeyExpression
	ArgumentExpression
	NativeCall
)

func (f Flavor) String() string {
	switch f {
	case FunctionBody:
		return "function"
	case BlockElementFlavor:
		return "block element"
	case RepeaterElementFlavor:
		return "repeater element"
	case DynamicKeyExpression:
		return "dynamic key"
	case ArgumentExpression:
		return "argument"
	case NativeCall:
		return "native call"
	default:
		return "top level"
	}
}

// MaxStackSize is spec.md §4.4's overflow guard.
const MaxStackSize = 20000

// Frame is one call-stack entry (spec.md §4.4): the sequence being
// executed, a cursor into it, an output buffer, an intent deque, a
// local-variable environment chained to its parent for descope/global
// lookups, a use-output flag, debug info, and a flavor tag.
type Frame struct {
	Seq        *rst.Sequence
	Cursor     int
	Output     strings.Builder
	Intents    []Intent // front = index 0; PushIntentFront/PopIntent treat it as a deque
	Locals     map[string]*value.Cell
	Parent     *Frame // lexical parent, for descope('^')/global lookups
	UseOutput  bool    // false = value-return frame
	Value      value.Value // result of a value-return frame (UseOutput == false)
	Sink       bool    // true if this frame's normal completion result is discarded (spec.md §4.1's '!' flag)
	Flavor     Flavor
	DebugLine  int
	DebugCol   int
}

func NewFrame(seq *rst.Sequence, parent *Frame, flavor Flavor, useOutput bool) *Frame {
	return &Frame{
		Seq:       seq,
		Locals:    make(map[string]*value.Cell),
		Parent:    parent,
		UseOutput: useOutput,
		Flavor:    flavor,
	}
}

// PushIntentFront queues an intent to be the *next* thing drained,
// ahead of anything already queued — this is how a tick re-queues its
// own continuation before pushing a child frame (spec.md §9's ordering
// warning).
func (f *Frame) PushIntentFront(i Intent) {
	f.Intents = append([]Intent{i}, f.Intents...)
}

func (f *Frame) PopIntent() (Intent, bool) {
	if len(f.Intents) == 0 {
		return nil, false
	}
	i := f.Intents[0]
	f.Intents = f.Intents[1:]
	return i, true
}

// NextNode advances the cursor and returns the next sequence element,
// or nil if the sequence is exhausted.
func (f *Frame) NextNode() rst.Node {
	if f.Cursor >= len(f.Seq.Nodes) {
		return nil
	}
	n := f.Seq.Nodes[f.Cursor]
	f.Cursor++
	return n
}

// WriteValue appends a value's display form to this frame's output
// (spec.md §6's "write results via... cur_frame_mut().write_value(...)").
func (f *Frame) WriteValue(v value.Value) {
	f.Output.WriteString(v.String())
}

// Result returns the frame's produced value: for an output frame this
// is its accumulated text; a value-return frame instead surfaces
// whatever was last Emit'd into it.
func (f *Frame) Result() value.Value {
	if !f.UseOutput {
		return f.Value
	}
	return value.String(f.Output.String())
}

// Emit records a node's result appropriately for this frame's kind: an
// output frame appends its display form, a value-return frame just
// remembers it (overwriting any prior Emit, matching "a sequence's value
// is its last evaluated expression").
func (f *Frame) Emit(v value.Value) {
	if f.UseOutput {
		f.WriteValue(v)
		return
	}
	f.Value = v
}

// resolveCell looks up a local by name, walking Parent links for
// descope/global access (spec.md §3's "chained to parent frames by
// lexical link").
func (f *Frame) resolveCell(name string, descopeN int) (*value.Cell, bool) {
	frame := f
	for i := 0; i < descopeN && frame != nil; i++ {
		frame = frame.Parent
	}
	for frame != nil {
		if c, ok := frame.Locals[name]; ok {
			return c, true
		}
		frame = frame.Parent
	}
	return nil, false
}

func (f *Frame) rootFrame() *Frame {
	frame := f
	for frame.Parent != nil {
		frame = frame.Parent
	}
	return frame
}

// CallStack is the VM's frame stack, built on the shared generic Stack
// container (internal/collections, adapted from
// its-hmny-nand2tetris/code/pkg/utils/stack.go).
type CallStack struct {
	collections.Stack[*Frame]
}
