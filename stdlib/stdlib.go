// Package stdlib is a reference set of Rant native functions, grounded
// on original_source/src/stdlib/mod.rs's registration shape: each
// native receives the VM and an argument vector and writes its result
// via vm.PushValue, never returning a Go value directly (spec.md §6).
//
// This is a starter set, not the specified component (spec.md §6: "Not
// specified here except that each native function receives the VM and
// its argument vector..."). Embedders are free to replace or extend it;
// Load just returns a name -> function-value map suitable for merging
// into vm.Run's initialGlobals.
package stdlib

import (
	"fmt"
	"strings"

	"github.com/cbarrick/rant/rng"
	"github.com/cbarrick/rant/value"
	"github.com/cbarrick/rant/vm"
)

type spec struct {
	minArgs      int
	variadicFrom int
	fn           value.NativeFunc
}

// Load returns the reference native registrations, keyed by their
// Rant-visible (kebab-case) names, ready to merge into vm.Run's
// initialGlobals.
func Load() map[string]value.Value {
	specs := map[string]spec{
		"add":   {2, 2, nativeAdd},
		"sub":   {2, 2, nativeSub},
		"mul":   {2, 2, nativeMul},
		"div":   {2, 2, nativeDiv},
		"mod":   {2, 2, nativeMod},
		"sum":   {1, 1, nativeSum},
		"len":   {1, 1, nativeLen},
		"rev":   {1, 1, nativeRev},
		"upper": {1, 1, nativeUpper},
		"lower": {1, 1, nativeLower},
		"seed":  {1, 1, nativeSeed},
		"num":   {1, 1, nativeNum},
		"str":   {1, 1, nativeStr},
	}
	out := make(map[string]value.Value, len(specs))
	for name, s := range specs {
		out[name] = value.Func(&value.Function{
			Name:         name,
			MinArgs:      s.minArgs,
			VariadicFrom: s.variadicFrom,
			Native:       s.fn,
		})
	}
	return out
}

func runnerOf(vmArg interface{}) *vm.VM { return vmArg.(*vm.VM) }

func nativeAdd(vmArg interface{}, args []value.Value) error {
	runnerOf(vmArg).PushValue(value.Add(args[0], args[1]))
	return nil
}

func nativeSub(vmArg interface{}, args []value.Value) error {
	v, err := value.Sub(args[0], args[1])
	if err != nil {
		return err
	}
	runnerOf(vmArg).PushValue(v)
	return nil
}

func nativeMul(vmArg interface{}, args []value.Value) error {
	v, err := value.Mul(args[0], args[1])
	if err != nil {
		return err
	}
	runnerOf(vmArg).PushValue(v)
	return nil
}

func nativeDiv(vmArg interface{}, args []value.Value) error {
	v, err := value.Div(args[0], args[1])
	if err != nil {
		return err
	}
	runnerOf(vmArg).PushValue(v)
	return nil
}

func nativeMod(vmArg interface{}, args []value.Value) error {
	v, err := value.Mod(args[0], args[1])
	if err != nil {
		return err
	}
	runnerOf(vmArg).PushValue(v)
	return nil
}

// nativeSum folds add over a list's elements, grounded on spec.md §8's
// end-to-end scenario 4 (`[sum:<xs>]` over a numeric list).
func nativeSum(vmArg interface{}, args []value.Value) error {
	v := args[0]
	if v.Kind() != value.KindList {
		return fmt.Errorf("sum: argument must be a list, got %s", v.TypeName())
	}
	total := value.Int(0)
	for _, item := range v.AsList().Items() {
		total = value.Add(total, item)
	}
	runnerOf(vmArg).PushValue(total)
	return nil
}

func nativeLen(vmArg interface{}, args []value.Value) error {
	n, ok := args[0].Len()
	if !ok {
		return fmt.Errorf("len: %s has no length", args[0].TypeName())
	}
	runnerOf(vmArg).PushValue(value.Int(n))
	return nil
}

func nativeRev(vmArg interface{}, args []value.Value) error {
	runnerOf(vmArg).PushValue(args[0].Reversed())
	return nil
}

func nativeUpper(vmArg interface{}, args []value.Value) error {
	runnerOf(vmArg).PushValue(value.String(strings.ToUpper(args[0].String())))
	return nil
}

func nativeLower(vmArg interface{}, args []value.Value) error {
	runnerOf(vmArg).PushValue(value.String(strings.ToLower(args[0].String())))
	return nil
}

// nativeSeed swaps the VM's active RNG for a freshly seeded one,
// grounded on original_source/src/stdlib/mod.rs's `seed` native and
// spec.md §6's push_rng/pop_rng stack.
func nativeSeed(vmArg interface{}, args []value.Value) error {
	runnerOf(vmArg).PushRng(rng.New(uint64(args[0].AsInt())))
	runnerOf(vmArg).PushValue(value.Empty())
	return nil
}

func nativeNum(vmArg interface{}, args []value.Value) error {
	v := args[0]
	switch v.Kind() {
	case value.KindInt, value.KindFloat:
		runnerOf(vmArg).PushValue(v)
		return nil
	case value.KindString:
		var f float64
		if _, err := fmt.Sscanf(v.AsString(), "%g", &f); err != nil {
			return fmt.Errorf("num: cannot parse %q as a number", v.AsString())
		}
		runnerOf(vmArg).PushValue(value.Float(f))
		return nil
	default:
		return fmt.Errorf("num: cannot convert %s to a number", v.TypeName())
	}
}

func nativeStr(vmArg interface{}, args []value.Value) error {
	runnerOf(vmArg).PushValue(value.String(args[0].String()))
	return nil
}
