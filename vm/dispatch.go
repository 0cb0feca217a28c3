package vm

import (
	"github.com/cbarrick/rant/rst"
	"github.com/cbarrick/rant/value"
)

// dispatchNode evaluates one sequence element (spec.md §4.6's node
// dispatch, run only when a frame's intent queue is empty). Most
// variants either write/emit immediately or kick off a chain of
// intents that eventually do.
func (vm *VM) dispatchNode(frame *Frame, node rst.Node) error {
	switch n := node.(type) {
	case *rst.Literal:
		frame.Output.WriteString(n.Text)
		return nil
	case *rst.Whitespace:
		frame.Output.WriteString(n.Text)
		return nil
	case *rst.IntLiteral:
		frame.Emit(value.Int(n.Value))
		return nil
	case *rst.FloatLiteral:
		frame.Emit(value.Float(n.Value))
		return nil
	case *rst.BoolLiteral:
		frame.Emit(value.Bool(n.Value))
		return nil
	case *rst.Noop:
		return nil
	case *rst.DebugCursor:
		frame.DebugLine, frame.DebugCol = n.Line, n.Col
		return nil
	case *rst.Block:
		return vm.dispatchBlock(frame, n)
	case *rst.Getter:
		return vm.dispatchGetter(frame, n)
	case *rst.Setter:
		return vm.dispatchSetter(frame, n)
	case *rst.VarDef:
		return vm.dispatchVarDef(frame, n)
	case *rst.Depth:
		return vm.dispatchDepth(frame, n)
	case *rst.Function:
		return vm.dispatchFunctionDef(frame, n)
	case *rst.FuncCall:
		return vm.dispatchFuncCall(frame, n)
	case *rst.PipedCall:
		return vm.dispatchPipedCall(frame, n)
	case *rst.PipeValueRef:
		v, _ := vm.pipevals.Peek()
		frame.Emit(v)
		return nil
	case *rst.ListInit:
		frame.PushIntentFront(&BuildListIntent{Elements: n.Elements})
		return nil
	case *rst.MapInit:
		frame.PushIntentFront(&BuildMapIntent{Entries: n.Entries})
		return nil
	case *rst.Return:
		return vm.dispatchReturn(frame, n)
	case *rst.Continue:
		return vm.dispatchContinue(frame, n)
	case *rst.Break:
		return vm.dispatchBreakNode(frame, n)
	case *rst.ImportModule:
		return vm.dispatchImportNode(frame, n)
	default:
		return newRuntimeError(ErrInternalError, "unhandled node %s", node.DisplayName())
	}
}

// dispatchIntent drains one queued intent (spec.md §4.6).
func (vm *VM) dispatchIntent(frame *Frame, intent Intent) error {
	switch it := intent.(type) {
	case *PrintLastIntent:
		v, err := vm.PopValue()
		if err != nil {
			return err
		}
		frame.Emit(v)
		return nil
	case *ReturnLastIntent:
		v, err := vm.PopValue()
		if err != nil {
			return err
		}
		return vm.funcReturn(v, true)
	case *ContinueLastIntent:
		v, err := vm.PopValue()
		if err != nil {
			return err
		}
		return vm.interruptRepeater(v, true, true)
	case *BreakLastIntent:
		v, err := vm.PopValue()
		if err != nil {
			return err
		}
		return vm.interruptRepeater(v, true, false)
	case *CheckBlockIntent:
		return vm.stepCheckBlock(frame)
	case *BuildWeightedBlockIntent:
		return vm.stepBuildWeightedBlock(frame, it)
	case *SetVarIntent:
		return vm.performSet(frame, simplePath(it.Name, it.AccessKind, it.DescopeN), nil, rst.SetOnly, value.Empty())
	case *DefVarIntent:
		mode := rst.Define
		if it.IsConst {
			mode = rst.DefineConst
		}
		return vm.performSet(frame, simplePath(it.Name, it.AccessKind, it.DescopeN), nil, mode, value.Empty())
	case *BuildDynamicGetterIntent:
		return vm.stepBuildDynamicGetter(frame, it)
	case *GetValueIntent:
		return vm.stepGetValue(frame, it)
	case *BuildDynamicSetterIntent:
		return vm.stepBuildDynamicSetter(frame, it)
	case *SetValueIntent:
		return vm.stepSetValue(frame, it)
	case *InvokeIntent:
		return vm.stepInvoke(frame, it)
	case *CallTemporalIntent:
		return vm.stepCallTemporal(frame, it)
	case *InvokePipeStepIntent:
		return vm.stepInvokePipeStep(frame, it)
	case *CallIntent:
		return vm.stepCall(frame, it)
	case *BuildListIntent:
		return vm.stepBuildList(frame, it)
	case *BuildMapIntent:
		return vm.stepBuildMap(frame, it)
	case *CreateDefaultArgsIntent:
		return vm.stepCreateDefaultArgs(it)
	case *ImportLastAsModuleIntent:
		return vm.stepImportLastAsModule(frame, it)
	case *RuntimeCallIntent:
		return it.Native(vm, it.Args)
	case *DropStaleUnwindsIntent:
		vm.dropStaleUnwinds()
		return nil
	case *ResumeWithValueIntent:
		v, err := vm.PopValue()
		if err != nil {
			return err
		}
		return it.Fn(vm, v)
	case *ResumeIntent:
		return it.Fn(vm)
	default:
		return newRuntimeError(ErrInternalError, "unhandled intent %T", intent)
	}
}

// pushContinuation evaluates child as a value-producing sub-expression
// and arranges for resume to run against its result once it completes.
// See vm.go's pushContinuation for the mechanism; this wraps it with the
// ResumeWithValueIntent delivery contract (child's Result() lands on
// vm.values via completeFrame, ResumeWithValueIntent hands it to resume).
func (vm *VM) evalThen(frame *Frame, child *rst.Sequence, flavor Flavor, resume func(vm *VM, v value.Value) error) error {
	return vm.pushContinuation(frame, child, flavor, resume)
}

// --- Blocks ---

func (vm *VM) dispatchBlock(frame *Frame, b *rst.Block) error {
	if len(b.Elements) == 0 {
		return nil
	}
	if b.Weighted {
		return vm.stepBuildWeightedBlock(frame, &BuildWeightedBlockIntent{Block: b, Weights: make([]float64, len(b.Elements))})
	}
	if b.IsRepeater {
		if b.RepeatExpr == nil {
			vm.resolver.PushRepeater(b, -1)
			frame.PushIntentFront(&CheckBlockIntent{})
			return nil
		}
		return vm.evalThen(frame, b.RepeatExpr, ArgumentExpression, func(vm *VM, v value.Value) error {
			vm.resolver.PushRepeater(b, int(v.AsInt()))
			frame.PushIntentFront(&CheckBlockIntent{})
			return nil
		})
	}
	vm.resolver.PushBlock(b, nil)
	frame.PushIntentFront(&CheckBlockIntent{})
	return nil
}

func (vm *VM) stepBuildWeightedBlock(frame *Frame, it *BuildWeightedBlockIntent) error {
	for it.PendingIndex < len(it.Block.Elements) {
		elem := it.Block.Elements[it.PendingIndex]
		switch {
		case elem.WeightConst != nil:
			it.Weights[it.PendingIndex] = *elem.WeightConst
			it.PendingIndex++
		case elem.WeightExpr == nil:
			it.Weights[it.PendingIndex] = 1
			it.PendingIndex++
		default:
			idx := it.PendingIndex
			return vm.evalThen(frame, elem.WeightExpr, ArgumentExpression, func(vm *VM, v value.Value) error {
				w, err := coerceFloat(v)
				if err != nil {
					return err
				}
				it.Weights[idx] = w
				it.PendingIndex++
				frame.PushIntentFront(it)
				return nil
			})
		}
	}
	vm.resolver.PushBlock(it.Block, it.Weights)
	frame.PushIntentFront(&CheckBlockIntent{})
	return nil
}

func (vm *VM) stepCheckBlock(frame *Frame) error {
	action := vm.resolver.NextElement(vm.currentRng())
	switch action.Kind {
	case ActionNone:
		vm.resolver.PopBlock()
		return nil
	case ActionElement:
		flavor := BlockElementFlavor
		if action.IsRepeater {
			flavor = RepeaterElementFlavor
		}
		return vm.pushFrame(NewFrame(action.Body, frame, flavor, true))
	default:
		return nil
	}
}

func coerceFloat(v value.Value) (float64, error) {
	switch v.Kind() {
	case value.KindInt:
		return float64(v.AsInt()), nil
	case value.KindFloat:
		return v.AsFloat(), nil
	default:
		return 0, newRuntimeError(ErrValueError, "weight must be numeric, got %s", v.TypeName())
	}
}

// --- Access paths (getters/setters) ---

func simplePath(name string, kind AccessKind, descopeN int) *rst.AccessPath {
	pk := rst.Local
	switch kind {
	case AccessGlobal:
		pk = rst.ExplicitGlobal
	case AccessDescope:
		pk = rst.Descope
	}
	return &rst.AccessPath{Kind: pk, DescopeN: descopeN, Components: []rst.PathComponent{{Kind: rst.CompName, Name: name}}}
}

func (vm *VM) dispatchGetter(frame *Frame, g *rst.Getter) error {
	exprs := g.Path.DynamicExprs()
	if len(exprs) == 0 {
		frame.PushIntentFront(&GetValueIntent{Path: g.Path, Fallback: g.Fallback, OverridePrint: g.OverridePrint})
		return nil
	}
	frame.PushIntentFront(&BuildDynamicGetterIntent{Path: g.Path, PendingExprs: exprs, Fallback: g.Fallback, OverridePrint: g.OverridePrint})
	return nil
}

func (vm *VM) stepBuildDynamicGetter(frame *Frame, it *BuildDynamicGetterIntent) error {
	if len(it.Values) >= len(it.PendingExprs) {
		frame.PushIntentFront(&GetValueIntent{Path: it.Path, DynamicValues: it.Values, Fallback: it.Fallback, OverridePrint: it.OverridePrint})
		return nil
	}
	idx := len(it.Values)
	return vm.evalThen(frame, it.PendingExprs[idx], DynamicKeyExpression, func(vm *VM, v value.Value) error {
		it.Values = append(it.Values, v)
		frame.PushIntentFront(it)
		return nil
	})
}

func (vm *VM) stepGetValue(frame *Frame, it *GetValueIntent) error {
	v, err := vm.evaluateGetter(frame, it.Path, it.DynamicValues)
	if err != nil {
		if it.Fallback != nil {
			return vm.evalThen(frame, it.Fallback, ArgumentExpression, func(vm *VM, v value.Value) error {
				frame.Emit(v)
				return nil
			})
		}
		return err
	}
	if it.OverridePrint && frame.UseOutput {
		return nil
	}
	frame.Emit(v)
	return nil
}

func (vm *VM) evaluateGetter(frame *Frame, path *rst.AccessPath, dyn []value.Value) (value.Value, error) {
	if len(path.Components) == 0 {
		return value.Empty(), nil
	}
	dynIdx := 0
	nextDyn := func() value.Value {
		v := dyn[dynIdx]
		dynIdx++
		return v
	}

	cur, err := vm.resolveRoot(frame, path, path.Components[0], nextDyn)
	if err != nil {
		return value.Value{}, err
	}
	for _, comp := range path.Components[1:] {
		cur, err = vm.applyPathComponent(cur, comp, nextDyn)
		if err != nil {
			return value.Value{}, wrapValueErr(err)
		}
	}
	return cur, nil
}

func (vm *VM) resolveRoot(frame *Frame, path *rst.AccessPath, first rst.PathComponent, nextDyn func() value.Value) (value.Value, error) {
	switch first.Kind {
	case rst.CompAnonymousValue:
		return nextDyn(), nil
	case rst.CompName:
		cell, ok := vm.pathCell(frame, path, first.Name)
		if !ok {
			return value.Value{}, newRuntimeError(ErrValueError, "undefined variable %q", first.Name)
		}
		return cell.Value, nil
	default:
		return value.Value{}, newRuntimeError(ErrInternalError, "access path root cannot be an index or slice")
	}
}

func (vm *VM) pathCell(frame *Frame, path *rst.AccessPath, name string) (*value.Cell, bool) {
	switch path.Kind {
	case rst.ExplicitGlobal:
		root := frame.rootFrame()
		c, ok := root.Locals[name]
		return c, ok
	case rst.Descope:
		return frame.resolveCell(name, path.DescopeN)
	default:
		return frame.resolveCell(name, 0)
	}
}

func (vm *VM) bindingFrame(frame *Frame, path *rst.AccessPath) *Frame {
	switch path.Kind {
	case rst.ExplicitGlobal:
		return frame.rootFrame()
	case rst.Descope:
		target := frame
		for i := 0; i < path.DescopeN && target.Parent != nil; i++ {
			target = target.Parent
		}
		return target
	default:
		return frame
	}
}

func (vm *VM) applyPathComponent(cur value.Value, comp rst.PathComponent, nextDyn func() value.Value) (value.Value, error) {
	switch comp.Kind {
	case rst.CompName:
		return cur.KeyGet(comp.Name)
	case rst.CompIndex:
		idx := comp.Index
		if comp.IndexExpr != nil {
			idx = nextDyn().AsInt()
		}
		return cur.IndexGet(idx)
	case rst.CompDynamicKey:
		return cur.KeyGet(nextDyn().String())
	case rst.CompSlice:
		b, err := vm.resolveSliceBounds(comp.Slice, nextDyn)
		if err != nil {
			return value.Value{}, err
		}
		return cur.SliceGet(b)
	default:
		return value.Value{}, newRuntimeError(ErrInternalError, "invalid access path component")
	}
}

func (vm *VM) resolveSliceBounds(s rst.SliceExpr, nextDyn func() value.Value) (value.Bounds, error) {
	var b value.Bounds
	switch s.Kind {
	case rst.SliceFrom:
		b.From = boundVal(s.From, nextDyn)
	case rst.SliceTo:
		b.To = boundVal(s.To, nextDyn)
	case rst.SliceBetween:
		b.From = boundVal(s.From, nextDyn)
		b.To = boundVal(s.To, nextDyn)
	}
	return b, nil
}

func boundVal(sb rst.SliceBound, nextDyn func() value.Value) *int64 {
	if sb.Static != nil {
		return sb.Static
	}
	if sb.Dynamic != nil {
		n := nextDyn().AsInt()
		return &n
	}
	return nil
}

func wrapValueErr(err error) error {
	if err == nil {
		return nil
	}
	switch err.(type) {
	case *value.IndexError:
		return wrapRuntimeError(ErrIndexError, err)
	case *value.KeyError:
		return wrapRuntimeError(ErrKeyError, err)
	case *value.SliceError:
		return wrapRuntimeError(ErrSliceError, err)
	case *value.ValueError:
		return wrapRuntimeError(ErrValueError, err)
	default:
		return wrapRuntimeError(ErrInternalError, err)
	}
}

func (vm *VM) dispatchSetter(frame *Frame, s *rst.Setter) error {
	exprs := s.Path.DynamicExprs()
	if len(exprs) == 0 {
		frame.PushIntentFront(&SetValueIntent{Path: s.Path, Mode: s.Mode, Source: s.Source})
		return nil
	}
	frame.PushIntentFront(&BuildDynamicSetterIntent{Path: s.Path, PendingExprs: exprs, Mode: s.Mode, Source: s.Source})
	return nil
}

func (vm *VM) stepBuildDynamicSetter(frame *Frame, it *BuildDynamicSetterIntent) error {
	if len(it.Values) >= len(it.PendingExprs) {
		frame.PushIntentFront(&SetValueIntent{Path: it.Path, DynamicValues: it.Values, Mode: it.Mode, Source: it.Source})
		return nil
	}
	idx := len(it.Values)
	return vm.evalThen(frame, it.PendingExprs[idx], DynamicKeyExpression, func(vm *VM, v value.Value) error {
		it.Values = append(it.Values, v)
		frame.PushIntentFront(it)
		return nil
	})
}

func (vm *VM) stepSetValue(frame *Frame, it *SetValueIntent) error {
	if it.Source.Kind == rst.Consumed {
		v, err := vm.PopValue()
		if err != nil {
			return err
		}
		return vm.performSet(frame, it.Path, it.DynamicValues, it.Mode, v)
	}
	if it.Source.Expr == nil {
		return vm.performSet(frame, it.Path, it.DynamicValues, it.Mode, value.Empty())
	}
	return vm.evalThen(frame, it.Source.Expr, ArgumentExpression, func(vm *VM, v value.Value) error {
		return vm.performSet(frame, it.Path, it.DynamicValues, it.Mode, v)
	})
}

func (vm *VM) performSet(frame *Frame, path *rst.AccessPath, dyn []value.Value, mode rst.SetMode, v value.Value) error {
	if len(path.Components) == 0 {
		return newRuntimeError(ErrInternalError, "empty access path")
	}
	dynIdx := 0
	nextDyn := func() value.Value {
		val := dyn[dynIdx]
		dynIdx++
		return val
	}

	first := path.Components[0]
	if len(path.Components) == 1 && first.Kind == rst.CompName {
		switch mode {
		case rst.Define, rst.DefineConst:
			target := vm.bindingFrame(frame, path)
			target.Locals[first.Name] = &value.Cell{Value: v, IsConst: mode == rst.DefineConst}
		default:
			cell, ok := vm.pathCell(frame, path, first.Name)
			if !ok {
				return newRuntimeError(ErrValueError, "undefined variable %q", first.Name)
			}
			if cell.IsConst {
				return newRuntimeError(ErrValueError, "cannot assign to const %q", first.Name)
			}
			cell.Value = v
		}
		return nil
	}

	cur, err := vm.resolveRoot(frame, path, first, nextDyn)
	if err != nil {
		return err
	}
	for _, comp := range path.Components[1 : len(path.Components)-1] {
		cur, err = vm.applyPathComponent(cur, comp, nextDyn)
		if err != nil {
			return wrapValueErr(err)
		}
	}
	last := path.Components[len(path.Components)-1]
	return vm.applySetComponent(cur, last, nextDyn, v)
}

func (vm *VM) applySetComponent(container value.Value, comp rst.PathComponent, nextDyn func() value.Value, v value.Value) error {
	switch comp.Kind {
	case rst.CompName:
		return wrapValueErr(container.KeySet(comp.Name, v))
	case rst.CompIndex:
		idx := comp.Index
		if comp.IndexExpr != nil {
			idx = nextDyn().AsInt()
		}
		return wrapValueErr(container.IndexSet(idx, v))
	case rst.CompDynamicKey:
		return wrapValueErr(container.KeySet(nextDyn().String(), v))
	case rst.CompSlice:
		b, err := vm.resolveSliceBounds(comp.Slice, nextDyn)
		if err != nil {
			return err
		}
		return wrapValueErr(container.SliceSet(b, v))
	default:
		return newRuntimeError(ErrInternalError, "invalid set target")
	}
}

func (vm *VM) dispatchVarDef(frame *Frame, n *rst.VarDef) error {
	path := &rst.AccessPath{Kind: n.Kind, DescopeN: n.DescopeN, Components: []rst.PathComponent{{Kind: rst.CompName, Name: n.Name}}}
	mode := rst.Define
	if n.IsConst {
		mode = rst.DefineConst
	}
	frame.PushIntentFront(&SetValueIntent{Path: path, Mode: mode, Source: rst.ValueSource{Kind: rst.FromExpression, Expr: n.Init}})
	return nil
}

func (vm *VM) dispatchDepth(frame *Frame, n *rst.Depth) error {
	depth := 0
	for f := frame; f != nil; f = f.Parent {
		if _, ok := f.Locals[n.Name]; ok {
			frame.Emit(value.Int(int64(depth)))
			return nil
		}
		depth++
	}
	frame.Emit(value.Int(-1))
	return nil
}

// --- Functions & calls ---

func (vm *VM) dispatchFunctionDef(frame *Frame, n *rst.Function) error {
	fn := vm.buildFunctionValue(frame, n)
	if n.Name != "" {
		frame.Locals[n.Name] = &value.Cell{Value: value.Func(fn), IsConst: n.IsConst}
		return nil
	}
	frame.Emit(value.Func(fn))
	return nil
}

func (vm *VM) buildFunctionValue(frame *Frame, n *rst.Function) *value.Function {
	params := make([]value.Param, len(n.Params))
	minArgs := 0
	variadicFrom := len(n.Params)
	for i, p := range n.Params {
		params[i] = value.Param{Name: p.Name, Varity: value.Varity(p.Varity), Default: p.Default}
		switch p.Varity {
		case rst.Required:
			minArgs++
		case rst.VariadicPlus:
			variadicFrom = i
			minArgs++
		case rst.VariadicStar:
			variadicFrom = i
		}
	}
	captured := make(map[string]*value.Cell, len(n.Captures))
	for _, name := range n.Captures {
		if cell, ok := frame.resolveCell(name, 0); ok {
			captured[name] = cell
		}
	}
	return &value.Function{
		Name:         n.Name,
		MinArgs:      minArgs,
		VariadicFrom: variadicFrom,
		Params:       params,
		Body:         n.Body,
		Captured:     captured,
	}
}

func (vm *VM) dispatchFuncCall(frame *Frame, call *rst.FuncCall) error {
	it := &InvokeIntent{Target: call.Target, ArgExprs: call.Args, Flag: call.Flag}
	for _, a := range call.Args {
		if a.Spread == rst.SpreadTemporal {
			it.IsTemporal = true
			break
		}
	}
	frame.PushIntentFront(it)
	return nil
}

func (vm *VM) stepInvoke(frame *Frame, it *InvokeIntent) error {
	if !it.HasTarget {
		return vm.evalThen(frame, it.Target, ArgumentExpression, func(vm *VM, v value.Value) error {
			it.HasTarget = true
			it.TargetValue = v
			frame.PushIntentFront(it)
			return nil
		})
	}
	// Arguments evaluate right-to-left (spec.md §4.6, Design Notes §9;
	// original_source/src/runtime/mod.rs's Intent::Invoke picks
	// arg_exprs[len - arg_eval_count - 1]) so that side effects in
	// argument expressions (block picks, prints) run in the same order
	// as the original, even though the final positional order in
	// it.Args is still left-to-right.
	if it.ArgEvalIndex < len(it.ArgExprs) {
		idx := len(it.ArgExprs) - 1 - it.ArgEvalIndex
		arg := it.ArgExprs[idx]
		return vm.evalThen(frame, arg.Expr, ArgumentExpression, func(vm *VM, v value.Value) error {
			switch arg.Spread {
			case rst.SpreadParametric:
				if v.Kind() == value.KindList {
					it.Args = append(append([]value.Value{}, v.AsList().Items()...), it.Args...)
				} else {
					it.Args = append([]value.Value{v}, it.Args...)
				}
			default:
				it.Args = append([]value.Value{v}, it.Args...)
			}
			it.ArgEvalIndex++
			frame.PushIntentFront(it)
			return nil
		})
	}
	if !it.TargetValue.IsCallable() {
		return newRuntimeError(ErrCannotInvokeValue, "cannot invoke a value of type %s", it.TargetValue.TypeName())
	}
	if it.IsTemporal {
		return vm.beginTemporalCall(frame, it)
	}
	return vm.callFunction(it.TargetValue.AsFunction(), it.Args, it.Flag)
}

func (vm *VM) beginTemporalCall(frame *Frame, it *InvokeIntent) error {
	temporalArgs := map[int]int{}
	var lengths []int64
	var labels []string
	labelSlot := map[string]int{}
	for i, arg := range it.ArgExprs {
		if arg.Spread != rst.SpreadTemporal {
			continue
		}
		n, ok := it.Args[i].Len()
		if !ok {
			n = 1
		}
		label := arg.TemporalTag
		slot, exists := labelSlot[label]
		if label == "" || !exists {
			slot = len(lengths)
			lengths = append(lengths, n)
			labels = append(labels, label)
			if label != "" {
				labelSlot[label] = slot
			}
		}
		temporalArgs[i] = slot
	}
	state := &TemporalSpreadState{Lengths: lengths, Counters: make([]int64, len(lengths)), Labels: labels}
	frame.PushIntentFront(&CallTemporalIntent{Func: it.TargetValue, Args: it.Args, TemporalArgs: temporalArgs, State: state, Flag: it.Flag})
	return nil
}

func (vm *VM) stepCallTemporal(frame *Frame, it *CallTemporalIntent) error {
	total := it.State.Len()
	if total == 0 || it.Done >= total {
		return nil
	}
	args := make([]value.Value, len(it.Args))
	copy(args, it.Args)
	for argIdx, slot := range it.TemporalArgs {
		src := it.Args[argIdx]
		idx := it.State.Get(slot)
		switch src.Kind() {
		case value.KindList:
			args[argIdx] = src.AsList().Get(int(idx))
		case value.KindString, value.KindRange:
			args[argIdx], _ = src.IndexGet(idx)
		}
	}
	it.State.Increment()
	it.Done++
	if it.Done < total {
		frame.PushIntentFront(it)
	}
	if !it.Func.IsCallable() {
		return newRuntimeError(ErrCannotInvokeValue, "cannot invoke a value of type %s", it.Func.TypeName())
	}
	return vm.callFunction(it.Func.AsFunction(), args, it.Flag)
}

func (vm *VM) dispatchPipedCall(frame *Frame, pc *rst.PipedCall) error {
	frame.PushIntentFront(&InvokePipeStepIntent{Steps: pc.Steps, Flag: pc.Flag})
	return nil
}

func (vm *VM) stepInvokePipeStep(frame *Frame, it *InvokePipeStepIntent) error {
	if it.StepIndex >= len(it.Steps) {
		if it.Flag != rst.CallSink {
			frame.Emit(it.Pipeval)
		}
		return nil
	}
	step := it.Steps[it.StepIndex]
	switch it.State {
	case EvaluatingFunc:
		return vm.evalThen(frame, step.Target, ArgumentExpression, func(vm *VM, v value.Value) error {
			it.EvaluatedFunc = v
			it.EvaluatedArgs = nil
			it.ArgIndex = 0
			it.State = EvaluatingArgs
			frame.PushIntentFront(it)
			return nil
		})
	case EvaluatingArgs:
		if it.ArgIndex >= len(step.Args) {
			it.State = PreCall
			frame.PushIntentFront(it)
			return nil
		}
		arg := step.Args[it.ArgIndex]
		vm.pipevals.Push(it.Pipeval)
		return vm.evalThen(frame, arg.Expr, ArgumentExpression, func(vm *VM, v value.Value) error {
			vm.pipevals.Pop()
			it.EvaluatedArgs = append(it.EvaluatedArgs, v)
			it.ArgIndex++
			frame.PushIntentFront(it)
			return nil
		})
	case PreCall:
		args := it.EvaluatedArgs
		if !step.UsesPipeval {
			args = append([]value.Value{it.Pipeval}, args...)
		}
		return vm.callAndCapture(frame, it.EvaluatedFunc, args, func(vm *VM, v value.Value) error {
			it.Pipeval = v
			it.StepIndex++
			it.State = EvaluatingFunc
			frame.PushIntentFront(it)
			return nil
		})
	}
	return nil
}

// callAndCapture calls fnVal with args, routing its printed/returned
// result to resume instead of letting it land in frame's own output —
// this is how pipe steps thread an intermediate result forward without
// prematurely emitting it (spec.md §4.1's piped calls).
func (vm *VM) callAndCapture(frame *Frame, fnVal value.Value, args []value.Value, resume func(vm *VM, v value.Value) error) error {
	if !fnVal.IsCallable() {
		return newRuntimeError(ErrCannotInvokeValue, "cannot invoke a value of type %s", fnVal.TypeName())
	}
	wrapper := NewFrame(&rst.Sequence{}, frame, NativeCall, true)
	wrapper.PushIntentFront(&ResumeIntent{Fn: func(vm *VM) error {
		vm.calls.Pop()
		return resume(vm, wrapper.Result())
	}})
	if err := vm.pushFrame(wrapper); err != nil {
		return err
	}
	return vm.callFunction(fnVal.AsFunction(), args, rst.CallPrint)
}

func (vm *VM) stepCall(frame *Frame, it *CallIntent) error {
	args, err := vm.popValues(it.Argc)
	if err != nil {
		return err
	}
	fn, err := vm.PopValue()
	if err != nil {
		return err
	}
	if !fn.IsCallable() {
		return newRuntimeError(ErrCannotInvokeValue, "cannot invoke a value of type %s", fn.TypeName())
	}
	return vm.callFunction(fn.AsFunction(), args, it.Flag)
}

// --- Control flow ---

func (vm *VM) dispatchReturn(frame *Frame, n *rst.Return) error {
	if n.Value == nil {
		return vm.funcReturn(value.Empty(), false)
	}
	return vm.evalThen(frame, n.Value, ArgumentExpression, func(vm *VM, v value.Value) error {
		return vm.funcReturn(v, true)
	})
}

func (vm *VM) dispatchContinue(frame *Frame, n *rst.Continue) error {
	if n.Value == nil {
		return vm.interruptRepeater(value.Empty(), false, true)
	}
	return vm.evalThen(frame, n.Value, ArgumentExpression, func(vm *VM, v value.Value) error {
		return vm.interruptRepeater(v, true, true)
	})
}

func (vm *VM) dispatchBreakNode(frame *Frame, n *rst.Break) error {
	if n.Value == nil {
		return vm.interruptRepeater(value.Empty(), false, false)
	}
	return vm.evalThen(frame, n.Value, ArgumentExpression, func(vm *VM, v value.Value) error {
		return vm.interruptRepeater(v, true, false)
	})
}

// --- Collections ---

func (vm *VM) stepBuildList(frame *Frame, it *BuildListIntent) error {
	if it.PendingIndex >= len(it.Elements) {
		frame.Emit(value.ListVal(value.NewList(it.Items...)))
		return nil
	}
	elem := it.Elements[it.PendingIndex]
	return vm.evalThen(frame, elem, ArgumentExpression, func(vm *VM, v value.Value) error {
		it.Items = append(it.Items, v)
		it.PendingIndex++
		frame.PushIntentFront(it)
		return nil
	})
}

func (vm *VM) stepBuildMap(frame *Frame, it *BuildMapIntent) error {
	if it.Result == nil {
		it.Result = value.NewMap()
	}
	if it.PendingIndex >= len(it.Entries) {
		frame.Emit(value.MapVal(it.Result))
		return nil
	}
	entry := it.Entries[it.PendingIndex]
	if !it.OnValue {
		return vm.evalThen(frame, entry.Key, ArgumentExpression, func(vm *VM, v value.Value) error {
			it.PendingKey = v.String()
			it.OnValue = true
			frame.PushIntentFront(it)
			return nil
		})
	}
	return vm.evalThen(frame, entry.Value, ArgumentExpression, func(vm *VM, v value.Value) error {
		it.Result.Set(it.PendingKey, v)
		it.PendingIndex++
		it.OnValue = false
		frame.PushIntentFront(it)
		return nil
	})
}

func (vm *VM) stepCreateDefaultArgs(it *CreateDefaultArgsIntent) error {
	if it.EvalIndex >= len(it.DefaultArgExprs) {
		return nil
	}
	slot := it.DefaultArgExprs[it.EvalIndex]
	if slot.Expr == nil {
		it.Context.Locals[slot.Name] = &value.Cell{Value: value.Empty()}
		it.EvalIndex++
		it.Context.PushIntentFront(it)
		return nil
	}
	return vm.evalThen(it.Context, slot.Expr, ArgumentExpression, func(vm *VM, v value.Value) error {
		it.Context.Locals[slot.Name] = &value.Cell{Value: v}
		it.EvalIndex++
		it.Context.PushIntentFront(it)
		return nil
	})
}

// --- Modules ---

func (vm *VM) dispatchImportNode(frame *Frame, n *rst.ImportModule) error {
	return vm.evalThen(frame, n.Source, ArgumentExpression, func(vm *VM, v value.Value) error {
		vm.values.Push(v)
		frame.PushIntentFront(&ImportLastAsModuleIntent{ModuleName: n.Name, Descope: n.DescopeKind, DescopeN: n.DescopeN})
		return nil
	})
}

func (vm *VM) stepImportLastAsModule(frame *Frame, it *ImportLastAsModuleIntent) error {
	v, err := vm.PopValue()
	if err != nil {
		return err
	}
	cache := vm.moduleCache()
	result := v
	if cached, ok := cache.Get(it.ModuleName); ok {
		result = cached
	} else {
		cache.Set(it.ModuleName, v)
	}
	target := frame
	for i := 0; i < it.DescopeN && target.Parent != nil; i++ {
		target = target.Parent
	}
	if it.Descope == rst.ExplicitGlobal {
		target = frame.rootFrame()
	}
	target.Locals[it.ModuleName] = &value.Cell{Value: result}
	return nil
}

func (vm *VM) moduleCache() *value.Map {
	root, _ := vm.calls.PeekAt(vm.calls.Len() - 1)
	cell, ok := root.Locals[ModulesCacheKey]
	if !ok {
		m := value.NewMap()
		cell = &value.Cell{Value: value.MapVal(m), IsConst: true}
		root.Locals[ModulesCacheKey] = cell
	}
	return cell.Value.AsMap()
}
