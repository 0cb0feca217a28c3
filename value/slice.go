package value

import "fmt"

// SliceErrKind matches spec.md §7's SliceError taxonomy.
type SliceErrKind int

const (
	SliceOutOfRange SliceErrKind = iota
	SliceUnsupportedSource
	SliceCannotSetOnType
	SliceInvalidBound
)

type SliceError struct {
	Kind SliceErrKind
	Msg  string
}

func (e *SliceError) Error() string { return e.Msg }

// Bounds is an already-evaluated, not-yet-normalized slice range. Nil
// From/To means an open bound (spec.md §3's Full/From/To/Between).
type Bounds struct {
	From, To *int64
}

// resolve normalizes negative bounds and orders (from, to) as
// (min, max) only when both bounds are present, matching spec.md §4.3:
// "min/max-normalization is applied to fully-bounded ranges."
func (b Bounds) resolve(length int64) (from, to int64, err error) {
	from = 0
	to = length
	if b.From != nil {
		from, err = normalizeIndex(*b.From, length, true)
		if err != nil {
			return 0, 0, &SliceError{Kind: SliceOutOfRange, Msg: err.Error()}
		}
	}
	if b.To != nil {
		to, err = normalizeIndex(*b.To, length, true)
		if err != nil {
			return 0, 0, &SliceError{Kind: SliceOutOfRange, Msg: err.Error()}
		}
	}
	if b.From != nil && b.To != nil && from > to {
		from, to = to, from
	}
	return from, to, nil
}

// SliceGet returns a shallow copy of the addressed span (spec.md §8's
// round-trip: "Slice `:` over any indexable value returns a shallow
// copy of equal length").
func (v Value) SliceGet(b Bounds) (Value, error) {
	switch v.kind {
	case KindList:
		from, to, err := b.resolve(int64(v.list.Len()))
		if err != nil {
			return Value{}, err
		}
		items := make([]Value, to-from)
		copy(items, v.list.items[from:to])
		return ListVal(&List{items: items}), nil
	case KindString:
		runes := []rune(v.str)
		from, to, err := b.resolve(int64(len(runes)))
		if err != nil {
			return Value{}, err
		}
		return String(string(runes[from:to])), nil
	case KindRange:
		from, to, err := b.resolve(v.rng.Len())
		if err != nil {
			return Value{}, err
		}
		start, _ := v.rng.Get(from)
		return RangeVal(Range{Start: start, End: start + (to-from)*v.rng.Step, Step: v.rng.Step}), nil
	default:
		return Value{}, &SliceError{Kind: SliceUnsupportedSource, Msg: fmt.Sprintf("cannot slice %s", v.TypeName())}
	}
}

// SliceSet splices src into dst at the resolved bounds (spec.md §4.3's
// "Slice assignment"). Only List supports splicing as a destination;
// only List and Range are valid sources.
func (v Value) SliceSet(b Bounds, src Value) error {
	if v.kind != KindList {
		return &SliceError{Kind: SliceCannotSetOnType, Msg: fmt.Sprintf("cannot set slice on %s", v.TypeName())}
	}
	var srcItems []Value
	switch src.kind {
	case KindList:
		srcItems = src.list.items
	case KindRange:
		srcItems = src.rng.ToList().items
	default:
		return &SliceError{Kind: SliceUnsupportedSource, Msg: fmt.Sprintf("cannot splice %s into a list", src.TypeName())}
	}
	from, to, err := b.resolve(int64(v.list.Len()))
	if err != nil {
		return err
	}
	head := append([]Value{}, v.list.items[:from]...)
	tail := append([]Value{}, v.list.items[to:]...)
	v.list.items = append(append(head, srcItems...), tail...)
	return nil
}
