package vm

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/cbarrick/rant/internal/collections"
	"github.com/cbarrick/rant/rst"
	"github.com/cbarrick/rant/value"
)

// ModulesCacheKey is the well-known global under which imported modules
// are cached (spec.md §6).
const ModulesCacheKey = "MODULES_CACHE_KEY"

// Startup constants (spec.md §6).
var StartupConstants = map[string]value.Value{
	"RANT_VERSION":  value.String("4.0.0"),
	"BUILD_VERSION": value.String("dev"),
	"INFINITY":      value.Float(math.Inf(1)),
	"NEG_INFINITY":  value.Float(math.Inf(-1)),
	"NAN":           value.Nan(),
}

// VM is the intent-driven virtual machine (spec.md §4.6). It owns the
// call stack, the value stack, the block resolver, an RNG stack, and an
// unwind stack, all for the duration of one program run (spec.md §3's
// "Lifecycle & ownership").
type VM struct {
	calls    CallStack
	values   collections.Stack[value.Value]
	resolver *Resolver
	rngStack collections.Stack[RantRng]
	unwinds  collections.Stack[unwindState]

	globals *Frame // the bottom frame; global consts live here
	log     *logrus.Entry

	pipevals collections.Stack[value.Value] // innermost active pipe value, for PipeValueRef
}

// New creates a VM ready to Run a program.
func New(log *logrus.Entry) *VM {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &VM{resolver: NewResolver(), log: log}
}

// Run compiles nothing — it evaluates an already-parsed program
// (spec.md §6's "VM input"): a compiled program, an RNG handle, and an
// optional map of initial global bindings bound as local consts of the
// top frame. Returns the program's result value plus accumulated
// output.
func (vm *VM) Run(prog *rst.Program, rng RantRng, initialGlobals map[string]value.Value) (value.Value, string, error) {
	vm.rngStack.Push(rng)

	root := NewFrame(prog.Root, nil, Original, true)
	for name, v := range StartupConstants {
		root.Locals[name] = &value.Cell{Value: v, IsConst: true}
	}
	for name, v := range initialGlobals {
		root.Locals[name] = &value.Cell{Value: v, IsConst: true}
	}
	vm.globals = root
	vm.calls.Push(root)

	for vm.calls.Len() > 0 {
		if err := vm.tick(); err != nil {
			if handled, herr := vm.handleRuntimeError(err); handled {
				if herr != nil {
					return value.Empty(), "", vm.attachTrace(herr)
				}
				continue
			}
			return value.Empty(), "", vm.attachTrace(err)
		}
	}

	result, _ := vm.values.Pop()
	out := ""
	if f, ok := interface{}(root).(*Frame); ok {
		out = f.Output.String()
	}
	return result, out, nil
}

func (vm *VM) attachTrace(err error) error {
	re, ok := err.(*RuntimeError)
	if !ok {
		re = wrapRuntimeError(ErrInternalError, err)
	}
	for i, f := range vm.calls.All() {
		_ = i
		re.StackTrace = append(re.StackTrace, StackFrame{Flavor: f.Flavor, Line: f.DebugLine, Col: f.DebugCol})
	}
	vm.log.WithError(re).Error("rant: unhandled runtime error")
	return re
}

// tick is the VM's only scheduler: pop the top frame, drain one intent
// (or, if empty, one sequence element), maybe push a new frame, return
// (spec.md §4.6). It never recurses.
func (vm *VM) tick() error {
	frame, ok := vm.calls.Peek()
	if !ok {
		return nil
	}

	if intent, ok := frame.PopIntent(); ok {
		return vm.dispatchIntent(frame, intent)
	}

	node := frame.NextNode()
	if node == nil {
		return vm.completeFrame(frame)
	}
	return vm.dispatchNode(frame, node)
}

// completeFrame runs when a frame's sequence is exhausted with no more
// intents: its value becomes available to the caller and the frame is
// popped.
func (vm *VM) completeFrame(frame *Frame) error {
	vm.calls.Pop()

	if frame.Flavor == BlockElementFlavor || frame.Flavor == RepeaterElementFlavor {
		// The resolver's block state is popped only once NextElement
		// reports exhaustion (spec.md §4.5) — that happens inside
		// CheckBlockIntent's own dispatch, not here. A plain block and a
		// repeater both just ask for another element.
		st, hasBlock := vm.resolver.Active()
		sink := hasBlock && st.block.Flag == rst.FlagSink
		if parent, ok := vm.calls.Peek(); ok {
			if !sink {
				parent.WriteValue(frame.Result())
			}
			parent.PushIntentFront(&CheckBlockIntent{})
		}
		return nil
	}

	if !frame.UseOutput {
		// a value frame from pushContinuation: its parent's
		// ResumeWithValueIntent pops this result.
		vm.values.Push(frame.Result())
		return nil
	}
	if frame.Sink {
		return nil
	}
	vm.deliverResult(frame.Result())
	return nil
}

// pushContinuation evaluates child as a value-producing sub-expression
// and arranges for resume to run against its result once it completes —
// this is the VM's general mechanism for suspending mid-node to evaluate
// a nested expression (dynamic indices, weights, setter sources, call
// arguments) without recursing on the host stack (spec.md §4.6).
func (vm *VM) pushContinuation(frame *Frame, child *rst.Sequence, flavor Flavor, resume func(vm *VM, v value.Value) error) error {
	frame.PushIntentFront(&ResumeWithValueIntent{Fn: resume})
	return vm.pushFrame(NewFrame(child, frame, flavor, false))
}

func (vm *VM) pushFrame(f *Frame) error {
	if vm.calls.Len() >= MaxStackSize {
		return newRuntimeError(ErrStackOverflow, "call stack exceeded %d frames", MaxStackSize)
	}
	vm.calls.Push(f)
	return nil
}

func (vm *VM) currentRng() RantRng {
	r, _ := vm.rngStack.Peek()
	return r
}

func (vm *VM) PushRng(r RantRng) { vm.rngStack.Push(r) }
func (vm *VM) PopRng()           { vm.rngStack.Pop() }

// PushValue / PopValue back the stdlib seam (spec.md §6: "writing
// results via push_val").
func (vm *VM) PushValue(v value.Value) { vm.values.Push(v) }

func (vm *VM) PopValue() (value.Value, error) {
	v, ok := vm.values.Pop()
	if !ok {
		return value.Value{}, newRuntimeError(ErrStackUnderflow, "value stack underflow")
	}
	return v, nil
}

func (vm *VM) popValues(n int) ([]value.Value, error) {
	out := make([]value.Value, n)
	for i := n - 1; i >= 0; i-- {
		v, err := vm.PopValue()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
