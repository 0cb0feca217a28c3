package vm

import (
	"github.com/cbarrick/rant/rst"
	"github.com/cbarrick/rant/value"
)

// unwindState snapshots stack sizes so the VM can restore itself after
// a runtime error (spec.md §4.6).
type unwindState struct {
	callSize   int
	valueSize  int
	blockSize  int
	attrSize   int
	handler    *value.Function
}

// PushUnwindState registers a handler to run on the next runtime error
// that reaches this point in the call stack (spec.md §4.6's
// push_unwind_state).
func (vm *VM) PushUnwindState(handler *value.Function) {
	vm.unwinds.Push(unwindState{
		callSize:  vm.calls.Len(),
		valueSize: vm.values.Len(),
		blockSize: vm.resolver.Len(),
		attrSize:  vm.resolver.AttrCount(),
		handler:   handler,
	})
}

// handleRuntimeError implements spec.md §4.6's unwind: pop the last
// unwind state and truncate each stack back to its recorded size. If a
// handler is present, it is invoked with the error's stringified
// message and the error is considered handled (handled=true, err=nil).
// Runtime errors without an unwind state propagate (handled=false).
func (vm *VM) handleRuntimeError(cause error) (handled bool, err error) {
	st, ok := vm.unwinds.Pop()
	if !ok {
		return false, nil
	}
	vm.calls.Truncate(st.callSize)
	vm.values.Truncate(st.valueSize)
	for vm.resolver.Len() > st.blockSize {
		vm.resolver.PopBlock()
	}
	for vm.resolver.AttrCount() > st.attrSize {
		vm.resolver.PopAttr()
	}
	if st.handler == nil {
		return true, nil
	}
	return true, vm.callHandler(st.handler, cause)
}

// callHandler invokes an unwind handler with the error's stringified
// message, the same way any other call is made (spec.md §4.6) — a
// Rant-defined handler is pushed as an ordinary frame for the tick loop
// to drain, not special-cased to natives only.
func (vm *VM) callHandler(handler *value.Function, cause error) error {
	msg := value.String(cause.Error())
	return vm.callFunction(handler, []value.Value{msg}, rst.CallPrint)
}

// dropStaleUnwinds discards unwind records whose call-stack size now
// exceeds the current depth (their frames have already been popped by
// an ordinary return) — spec.md §4.6's DropStaleUnwinds intent.
func (vm *VM) dropStaleUnwinds() {
	for {
		st, ok := vm.unwinds.Peek()
		if !ok || st.callSize <= vm.calls.Len() {
			return
		}
		vm.unwinds.Pop()
	}
}
