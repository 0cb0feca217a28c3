// Package value implements Rant's dynamic value model: a tagged union
// over String, Int, Float, Bool, Function, List, Map, Range, Special and
// Empty, with arithmetic, indexing, slicing, truthiness and equality
// rules.
//
// Grounded on cbarrick-ripl/lang/value/values.go and lang/types/{types.go,
// number.go,interface.go}, which model a similar small value hierarchy
// as a Value interface with a handful of concrete kinds (Functor,
// Number, Variable). This repo instead closes the union per spec.md §3:
// Rant's value set is fixed, so a single struct with a Kind tag and one
// typed payload field per kind is a better fit than an open interface — it
// avoids a type-switch boundary leaking into every caller while still
// letting Kind-specific accessors stay small, matching the teacher's
// one-accessor-per-kind style.
//
// Exact arithmetic/indexing/slicing semantics are grounded on
// original_source/src/value.rs.
package value

import (
	"fmt"
	"math"
)

// Kind tags the active member of the Value union.
type Kind int

const (
	KindEmpty Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindFunction
	KindList
	KindMap
	KindRange
	KindSpecial
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindFunction:
		return "function"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindRange:
		return "range"
	case KindSpecial:
		return "special"
	default:
		return "unknown"
	}
}

// Value is Rant's dynamic value. The zero Value is Empty.
type Value struct {
	kind    Kind
	str     string
	i       int64
	f       float64
	b       bool
	fn      *Function
	list    *List
	m       *Map
	rng     Range
	special *Special
}

func Empty() Value                 { return Value{kind: KindEmpty} }
func String(s string) Value        { return Value{kind: KindString, str: s} }
func Int(i int64) Value            { return Value{kind: KindInt, i: i} }
func Float(f float64) Value        { return Value{kind: KindFloat, f: f} }
func Bool(b bool) Value            { return Value{kind: KindBool, b: b} }
func Func(f *Function) Value       { return Value{kind: KindFunction, fn: f} }
func ListVal(l *List) Value        { return Value{kind: KindList, list: l} }
func MapVal(m *Map) Value          { return Value{kind: KindMap, m: m} }
func RangeVal(r Range) Value       { return Value{kind: KindRange, rng: r} }
func SpecialVal(s *Special) Value  { return Value{kind: KindSpecial, special: s} }

// Nan returns a Float NaN, used as the result of undefined binary
// operations (spec.md §3).
func Nan() Value { return Float(math.NaN()) }

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsEmpty() bool { return v.kind == KindEmpty }

func (v Value) IsNan() bool {
	return v.kind == KindFloat && math.IsNaN(v.f)
}

func (v Value) IsCallable() bool { return v.kind == KindFunction }

// AsString returns the raw payload for KindString; callers must check
// Kind() first, matching the teacher's unchecked-accessor idiom.
func (v Value) AsString() string     { return v.str }
func (v Value) AsInt() int64         { return v.i }
func (v Value) AsFloat() float64     { return v.f }
func (v Value) AsBool() bool         { return v.b }
func (v Value) AsFunction() *Function { return v.fn }
func (v Value) AsList() *List        { return v.list }
func (v Value) AsMap() *Map          { return v.m }
func (v Value) AsRange() Range       { return v.rng }
func (v Value) AsSpecial() *Special  { return v.special }

// ToBool implements Rant's truthiness rules (spec.md §3): Bool itself;
// Int true iff nonzero; Float true iff normal (nonzero, non-NaN, and
// non-infinite, per original_source/src/value.rs's to_bool using
// is_normal); Empty false; collections true iff non-empty;
// Function/Special always true.
func (v Value) ToBool() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i != 0
	case KindFloat:
		return !math.IsNaN(v.f) && !math.IsInf(v.f, 0) && v.f != 0
	case KindEmpty:
		return false
	case KindString:
		return len(v.str) > 0
	case KindList:
		return v.list.Len() > 0
	case KindMap:
		return v.m.Len() > 0
	case KindRange:
		return v.rng.Len() > 0
	case KindFunction, KindSpecial:
		return true
	default:
		return false
	}
}

// TypeName returns the Rant-visible type name, used in diagnostics.
func (v Value) TypeName() string { return v.kind.String() }

func (v Value) String() string {
	switch v.kind {
	case KindEmpty:
		return ""
	case KindString:
		return v.str
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindFunction:
		return fmt.Sprintf("<function %s>", v.fn.Name)
	case KindList:
		return v.list.String()
	case KindMap:
		return v.m.String()
	case KindRange:
		return v.rng.String()
	case KindSpecial:
		return fmt.Sprintf("<special %s>", v.special.Label)
	default:
		return "<?>"
	}
}

// ShallowCopy clones a value. Collection clones copy the handle only
// (spec.md §3): identity of collection handles stays observable after a
// ShallowCopy, matching original_source/src/value.rs's shallow_copy.
func (v Value) ShallowCopy() Value {
	return v
}
