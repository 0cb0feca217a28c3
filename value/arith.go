package value

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

// ErrKind identifies the variant of a ValueError, matching spec.md §7's
// runtime error taxonomy (`ValueError(ValueError)`).
type ErrKind int

const (
	ErrDivideByZero ErrKind = iota
	ErrOverflow
	ErrUnsupportedOperation
)

// ValueError is a runtime error produced by arithmetic or type-coercion
// failures in this package. The VM wraps it in a RuntimeError.
type ValueError struct {
	Kind ErrKind
	Msg  string
}

func (e *ValueError) Error() string { return e.Msg }

func valueErr(kind ErrKind, format string, args ...interface{}) error {
	return &ValueError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// saturatingAdd adds a and b, clamping to the type's bounds rather than
// wrapping on overflow (spec.md §3: "integer overflow saturates for
// + - *").
func saturatingAdd[T constraints.Integer](a, b T) T {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		if b > 0 {
			return maxOf[T]()
		}
		return minOf[T]()
	}
	return sum
}

func saturatingSub[T constraints.Integer](a, b T) T {
	diff := a - b
	if (b < 0 && diff < a) || (b > 0 && diff > a) {
		if b < 0 {
			return maxOf[T]()
		}
		return minOf[T]()
	}
	return diff
}

func saturatingMul[T constraints.Integer](a, b T) T {
	if a == 0 || b == 0 {
		return 0
	}
	p := a * b
	if p/b != a {
		if (a > 0) == (b > 0) {
			return maxOf[T]()
		}
		return minOf[T]()
	}
	return p
}

// maxOf/minOf report the bounds of T. Rant only saturates int64 in
// practice, but these stay generic over constraints.Integer so the
// helpers above aren't tied to a single width.
func maxOf[T constraints.Integer]() T {
	var bound int64
	switch any(T(0)).(type) {
	case int8:
		bound = math.MaxInt8
	case int16:
		bound = math.MaxInt16
	case int32:
		bound = math.MaxInt32
	default:
		bound = math.MaxInt64
	}
	return T(bound)
}

func minOf[T constraints.Integer]() T {
	var bound int64
	switch any(T(0)).(type) {
	case int8:
		bound = math.MinInt8
	case int16:
		bound = math.MinInt16
	case int32:
		bound = math.MinInt32
	default:
		bound = math.MinInt64
	}
	return T(bound)
}

// saturatingNeg negates a, clamping to the type's bounds rather than
// wrapping when a is the minimum representable value (spec.md §3's
// saturating-arithmetic rule applies to unary negation too).
func saturatingNeg[T constraints.Signed](a T) T {
	if a == minOf[T]() {
		return maxOf[T]()
	}
	return -a
}

// bi64 converts a Bool to its arithmetic value, matching
// original_source/src/value.rs's bi64 helper (booleans participate in
// arithmetic as 0/1, not as logical operators).
func bi64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// Add implements Rant's '+' operator.
//
// Concatenation prefers numeric addition where both sides are numeric,
// stringification where one side is a string, list concatenation where
// both are lists, and falls back to stringified concatenation for any
// other mixed pairing — it never fails (spec.md §4.3). Empty absorbs on
// either side (spec.md §3).
func Add(a, b Value) Value {
	if a.IsEmpty() {
		return b
	}
	if b.IsEmpty() {
		return a
	}
	switch {
	case a.kind == KindInt && b.kind == KindInt:
		return Int(saturatingAdd(a.i, b.i))
	case isNumeric(a) && isNumeric(b):
		return Float(asFloat(a) + asFloat(b))
	case a.kind == KindBool && b.kind == KindBool:
		// Booleans participate in arithmetic as 0/1, per
		// original_source/src/value.rs's bi64 helper, not as logical OR.
		return Int(saturatingAdd(bi64(a.b), bi64(b.b)))
	case a.kind == KindInt && b.kind == KindBool:
		return Int(saturatingAdd(a.i, bi64(b.b)))
	case a.kind == KindBool && b.kind == KindInt:
		return Int(saturatingAdd(bi64(a.b), b.i))
	case a.kind == KindFloat && b.kind == KindBool:
		return Float(a.f + float64(bi64(b.b)))
	case a.kind == KindBool && b.kind == KindFloat:
		return Float(float64(bi64(a.b)) + b.f)
	case a.kind == KindList && b.kind == KindList:
		items := make([]Value, 0, a.list.Len()+b.list.Len())
		items = append(items, a.list.items...)
		items = append(items, b.list.items...)
		return ListVal(&List{items: items})
	case a.kind == KindString || b.kind == KindString:
		return String(a.String() + b.String())
	default:
		return String(a.String() + b.String())
	}
}

// Sub implements '-'. Empty is the additive identity on either side
// (original_source/src/value.rs: `(lhs, Empty) => lhs`, `(Empty, rhs) =>
// -rhs`, `(Empty, Empty) => Empty`); division-family rules don't apply.
func Sub(a, b Value) (Value, error) {
	switch {
	case a.IsEmpty() && b.IsEmpty():
		return Empty(), nil
	case b.IsEmpty():
		return a, nil
	case a.IsEmpty():
		return Neg(b), nil
	case a.kind == KindInt && b.kind == KindInt:
		return Int(saturatingSub(a.i, b.i)), nil
	case isNumeric(a) && isNumeric(b):
		return Float(asFloat(a) - asFloat(b)), nil
	default:
		return Nan(), nil
	}
}

// Mul implements '*'. Empty absorbs on either side
// (original_source/src/value.rs: `(Empty, _) | (_, Empty) => Empty`).
func Mul(a, b Value) (Value, error) {
	switch {
	case a.IsEmpty() || b.IsEmpty():
		return Empty(), nil
	case a.kind == KindInt && b.kind == KindInt:
		return Int(saturatingMul(a.i, b.i)), nil
	case isNumeric(a) && isNumeric(b):
		return Float(asFloat(a) * asFloat(b)), nil
	case a.kind == KindBool && b.kind == KindBool:
		// Booleans participate in arithmetic as 0/1, per
		// original_source/src/value.rs's bi64 helper, not as logical AND.
		return Int(saturatingMul(bi64(a.b), bi64(b.b))), nil
	case a.kind == KindInt && b.kind == KindBool:
		return Int(saturatingMul(a.i, bi64(b.b))), nil
	case a.kind == KindBool && b.kind == KindInt:
		return Int(saturatingMul(bi64(a.b), b.i)), nil
	case a.kind == KindFloat && b.kind == KindBool:
		return Float(a.f * float64(bi64(b.b))), nil
	case a.kind == KindBool && b.kind == KindFloat:
		return Float(float64(bi64(a.b)) * b.f), nil
	case a.kind == KindString && b.kind == KindInt:
		return repeatString(a.str, b.i), nil
	default:
		return Nan(), nil
	}
}

func repeatString(s string, n int64) Value {
	if n <= 0 {
		return String("")
	}
	out := make([]byte, 0, len(s)*int(n))
	for i := int64(0); i < n; i++ {
		out = append(out, s...)
	}
	return String(string(out))
}

// Div implements '/'. Empty absorbs on either side
// (original_source/src/value.rs: `(Empty, _) | (_, Empty) => Empty`),
// checked before the zero-division guard. Division by 0 or false raises
// DivideByZero (spec.md §3).
func Div(a, b Value) (Value, error) {
	if a.IsEmpty() || b.IsEmpty() {
		return Empty(), nil
	}
	if isZero(b) {
		return Value{}, valueErr(ErrDivideByZero, "division by zero")
	}
	if a.kind == KindInt && b.kind == KindInt {
		return Int(a.i / b.i), nil
	}
	return Float(asFloat(a) / asFloat(b)), nil
}

// Mod implements '%'. Modulo by 0 or false raises DivideByZero.
func Mod(a, b Value) (Value, error) {
	if isZero(b) {
		return Value{}, valueErr(ErrDivideByZero, "modulo by zero")
	}
	if a.kind == KindInt && b.kind == KindInt {
		return Int(a.i % b.i), nil
	}
	return Float(math.Mod(asFloat(a), asFloat(b))), nil
}

// Pow implements exponentiation. Integer overflow fails with Overflow
// rather than saturating (spec.md §3: "fails with Overflow for pow").
func Pow(a, b Value) (Value, error) {
	if a.kind == KindInt && b.kind == KindInt && b.i >= 0 {
		result := int64(1)
		base := a.i
		exp := b.i
		for exp > 0 {
			if exp&1 == 1 {
				next := result * base
				if base != 0 && next/base != result {
					return Value{}, valueErr(ErrOverflow, "integer overflow in pow")
				}
				result = next
			}
			exp >>= 1
			if exp > 0 {
				next := base * base
				if base != 0 && next/base != base {
					return Value{}, valueErr(ErrOverflow, "integer overflow in pow")
				}
				base = next
			}
		}
		return Int(result), nil
	}
	return Float(math.Pow(asFloat(a), asFloat(b))), nil
}

// Neg implements unary '-'. Negating Empty yields 0 (spec.md §3:
// "negation flips to 0 where defined"); Int negation saturates rather
// than wraps at the minimum representable value, and Bool negates as
// its arithmetic value per original_source/src/value.rs's bi64 helper.
func Neg(a Value) Value {
	switch a.kind {
	case KindEmpty:
		return Int(0)
	case KindInt:
		return Int(saturatingNeg(a.i))
	case KindFloat:
		return Float(-a.f)
	case KindBool:
		return Int(-bi64(a.b))
	default:
		return Nan()
	}
}

// Not implements logical negation, based on ToBool.
func Not(a Value) Value {
	return Bool(!a.ToBool())
}

func isNumeric(v Value) bool {
	return v.kind == KindInt || v.kind == KindFloat
}

func isZero(v Value) bool {
	switch v.kind {
	case KindInt:
		return v.i == 0
	case KindFloat:
		return v.f == 0
	case KindBool:
		return !v.b
	default:
		return false
	}
}

func asFloat(v Value) float64 {
	switch v.kind {
	case KindInt:
		return float64(v.i)
	case KindFloat:
		return v.f
	case KindBool:
		if v.b {
			return 1
		}
		return 0
	default:
		return math.NaN()
	}
}
