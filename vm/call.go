package vm

import (
	"github.com/cbarrick/rant/rst"
	"github.com/cbarrick/rant/value"
)

// callFunction implements spec.md §4.6's "Function calling" algorithm:
// validate arity, split variadic args, push a FunctionBody frame,
// install captures by reference, bind parameters, and queue default-arg
// evaluation if needed.
func (vm *VM) callFunction(fn *value.Function, args []value.Value, flag rst.CallFlag) error {
	if fn.Native != nil {
		return vm.callNative(fn, args, flag)
	}

	if err := checkArity(fn, len(args)); err != nil {
		return err
	}

	required, variadic := splitArgs(fn, args)

	body, _ := fn.Body.(*rst.Sequence)
	frame := NewFrame(body, vm.globals, FunctionBody, true)
	frame.Sink = flag == rst.CallSink

	for name, cell := range fn.Captured {
		frame.Locals[name] = cell // by reference, not by value (spec.md Invariant 8)
	}

	var defaults []defaultArgSlot
	argIdx := 0
	for _, p := range fn.Params {
		switch p.Varity {
		case value.Required:
			frame.Locals[p.Name] = &value.Cell{Value: required[argIdx]}
			argIdx++
		case value.Optional:
			if argIdx < len(required) {
				frame.Locals[p.Name] = &value.Cell{Value: required[argIdx]}
				argIdx++
			} else {
				def, _ := p.Default.(*rst.Sequence)
				defaults = append(defaults, defaultArgSlot{Name: p.Name, Expr: def})
			}
		case value.VariadicStar, value.VariadicPlus:
			frame.Locals[p.Name] = &value.Cell{Value: value.ListVal(value.NewList(variadic...)), IsConst: true}
		}
	}

	if err := vm.pushFrame(frame); err != nil {
		return err
	}

	if len(defaults) > 0 {
		frame.PushIntentFront(&CreateDefaultArgsIntent{Context: frame, DefaultArgExprs: defaults})
	}

	return nil
}

func (vm *VM) callNative(fn *value.Function, args []value.Value, flag rst.CallFlag) error {
	if err := fn.Native(vm, args); err != nil {
		return err
	}
	v, err := vm.PopValue()
	if err != nil {
		return err
	}
	if flag == rst.CallSink {
		return nil
	}
	vm.deliverResult(v)
	return nil
}

// checkArity implements spec.md §4.6 step 1: variadic functions require
// at least MinArgs; non-variadic require exactly within [min, len(params)].
func checkArity(fn *value.Function, argc int) error {
	if fn.VariadicFrom < len(fn.Params) {
		if argc < fn.MinArgs {
			return newRuntimeError(ErrArgumentMismatch, "%s expects at least %d arguments, got %d", fn.Name, fn.MinArgs, argc)
		}
		return nil
	}
	if argc < fn.MinArgs || argc > len(fn.Params) {
		return newRuntimeError(ErrArgumentMismatch, "%s expects between %d and %d arguments, got %d", fn.Name, fn.MinArgs, len(fn.Params), argc)
	}
	return nil
}

// splitArgs implements spec.md §4.6 step 2: split into the
// non-variadic positional portion and the variadic tail.
func splitArgs(fn *value.Function, args []value.Value) (required []value.Value, variadic []value.Value) {
	if fn.VariadicFrom >= len(args) {
		return args, nil
	}
	return args[:fn.VariadicFrom], args[fn.VariadicFrom:]
}

// funcReturn implements spec.md §4.6's func_return: find the nearest
// FunctionBody frame, pop frames up to and including it (popping
// resolver block state for any intermediate BlockElement/RepeaterElement
// frame along the way), and surface v (or the popped frame's own
// output) as the caller's result.
func (vm *VM) funcReturn(v value.Value, hasValue bool) error {
	depth := vm.findFlavor(FunctionBody)
	if depth < 0 {
		return newRuntimeError(ErrControlFlowError, "return outside of a function body")
	}
	var result value.Value
	var sink bool
	for i := 0; i <= depth; i++ {
		frame, _ := vm.calls.Pop()
		if frame.Flavor == BlockElementFlavor || frame.Flavor == RepeaterElementFlavor {
			vm.resolver.PopBlock()
		}
		if i == depth {
			sink = frame.Sink
			if hasValue {
				result = v
			} else {
				result = frame.Result()
			}
		}
	}
	if !sink {
		vm.deliverResult(result)
	}
	vm.dropStaleUnwinds()
	return nil
}

// interruptRepeater implements spec.md §4.6's interrupt_repeater: find
// the nearest RepeaterElement frame. Any block frames strictly between
// the point of the continue/break and the repeater are abandoned (their
// resolver state is popped here, since they will never complete
// normally). The repeater's own resolver state is left alone on
// 'continue' (so the next CheckBlockIntent just asks for another
// element) and force-stopped on 'break' (so the next CheckBlockIntent
// sees it exhausted and pops it) — this is the asymmetry with
// func_return, which unconditionally pops every intermediate block.
func (vm *VM) interruptRepeater(v value.Value, hasValue, shouldContinue bool) error {
	depth := vm.findFlavor(RepeaterElementFlavor)
	if depth < 0 {
		return newRuntimeError(ErrControlFlowError, "continue/break outside of a repeater")
	}
	var result value.Value
	for i := 0; i < depth; i++ {
		frame, _ := vm.calls.Pop()
		if frame.Flavor == BlockElementFlavor || frame.Flavor == RepeaterElementFlavor {
			vm.resolver.PopBlock()
		}
	}
	frame, _ := vm.calls.Pop()
	if hasValue {
		result = v
	} else {
		result = frame.Result()
	}
	if !shouldContinue {
		vm.resolver.StopRepeater()
	}
	if parent, ok := vm.calls.Peek(); ok {
		if st, ok := vm.resolver.Active(); ok && st.block.Flag != rst.FlagSink {
			parent.WriteValue(result)
		}
		parent.PushIntentFront(&CheckBlockIntent{})
	}
	return nil
}

// findFlavor returns the 0-based depth (0 == top of stack) of the
// nearest frame with the given flavor, or -1 if none exists. All()
// already iterates top-to-bottom, so depth is just the iteration count.
func (vm *VM) findFlavor(flavor Flavor) int {
	depth := 0
	for _, f := range vm.calls.All() {
		if f.Flavor == flavor {
			return depth
		}
		depth++
	}
	return -1
}

// deliverResult Emits a value into the now-current frame (written to
// the output of an output frame, recorded as the result of a
// value-return frame), or pushes it onto the value stack when no frame
// is left.
func (vm *VM) deliverResult(v value.Value) {
	if parent, ok := vm.calls.Peek(); ok {
		parent.Emit(v)
		return
	}
	vm.values.Push(v)
}
