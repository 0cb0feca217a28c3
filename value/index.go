package value

import "fmt"

// IndexErrKind matches spec.md §7's IndexError taxonomy.
type IndexErrKind int

const (
	IndexOutOfRange IndexErrKind = iota
	IndexNotIndexable
)

type IndexError struct {
	Kind IndexErrKind
	Msg  string
}

func (e *IndexError) Error() string { return e.Msg }

// normalizeIndex implements spec.md §4.3's "Normalization of indices":
// negative indices add len; result must lie in [0, len) for gets (bound
// == len) and [0, len] for slice bounds (bound == sliceBound).
func normalizeIndex(i, length int64, forSlice bool) (int64, error) {
	n := i
	if n < 0 {
		n += length
	}
	upper := length
	if forSlice {
		upper = length + 1
	}
	if n < 0 || n >= upper {
		return 0, &IndexError{Kind: IndexOutOfRange, Msg: fmt.Sprintf("index %d out of range for length %d", i, length)}
	}
	return n, nil
}

// IsIndexable reports whether a value supports Get/Set by integer
// index.
func (v Value) IsIndexable() bool {
	switch v.kind {
	case KindList, KindString, KindRange:
		return true
	default:
		return false
	}
}

// IndexGet implements integer indexing (spec.md §4.3).
func (v Value) IndexGet(i int64) (Value, error) {
	switch v.kind {
	case KindList:
		idx, err := normalizeIndex(i, int64(v.list.Len()), false)
		if err != nil {
			return Value{}, err
		}
		return v.list.Get(int(idx)), nil
	case KindString:
		runes := []rune(v.str)
		idx, err := normalizeIndex(i, int64(len(runes)), false)
		if err != nil {
			return Value{}, err
		}
		return String(string(runes[idx])), nil
	case KindRange:
		idx, err := normalizeIndex(i, v.rng.Len(), false)
		if err != nil {
			return Value{}, err
		}
		n, _ := v.rng.Get(idx)
		return Int(n), nil
	default:
		return Value{}, &IndexError{Kind: IndexNotIndexable, Msg: fmt.Sprintf("cannot index into %s", v.TypeName())}
	}
}

// IndexSet implements integer-indexed assignment. Only List supports
// in-place element assignment.
func (v Value) IndexSet(i int64, val Value) error {
	if v.kind != KindList {
		return &IndexError{Kind: IndexNotIndexable, Msg: fmt.Sprintf("cannot set index on %s", v.TypeName())}
	}
	idx, err := normalizeIndex(i, int64(v.list.Len()), false)
	if err != nil {
		return err
	}
	v.list.Set(int(idx), val)
	return nil
}

// KeyErrKind matches spec.md §7's KeyError taxonomy.
type KeyErrKind int

const (
	KeyNotFound KeyErrKind = iota
	KeyNotKeyable
)

type KeyError struct {
	Kind KeyErrKind
	Msg  string
}

func (e *KeyError) Error() string { return e.Msg }

// KeyGet implements map-style key access.
func (v Value) KeyGet(key string) (Value, error) {
	if v.kind != KindMap {
		return Value{}, &KeyError{Kind: KeyNotKeyable, Msg: fmt.Sprintf("cannot key into %s", v.TypeName())}
	}
	val, ok := v.m.Get(key)
	if !ok {
		return Value{}, &KeyError{Kind: KeyNotFound, Msg: fmt.Sprintf("no such key %q", key)}
	}
	return val, nil
}

func (v Value) KeySet(key string, val Value) error {
	if v.kind != KindMap {
		return &KeyError{Kind: KeyNotKeyable, Msg: fmt.Sprintf("cannot key into %s", v.TypeName())}
	}
	v.m.Set(key, val)
	return nil
}

// Len returns the collection length, matching
// original_source/src/value.rs's len().
func (v Value) Len() (int64, bool) {
	switch v.kind {
	case KindString:
		return int64(len([]rune(v.str))), true
	case KindList:
		return int64(v.list.Len()), true
	case KindMap:
		return int64(v.m.Len()), true
	case KindRange:
		return v.rng.Len(), true
	default:
		return 0, false
	}
}

// Reversed mirrors original_source/src/value.rs's reversed(): String,
// List and Range reverse; every other kind is a no-op shallow copy.
func (v Value) Reversed() Value {
	switch v.kind {
	case KindString:
		runes := []rune(v.str)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return String(string(runes))
	case KindList:
		return ListVal(v.list.Reversed())
	case KindRange:
		return RangeVal(v.rng.Reversed())
	default:
		return v.ShallowCopy()
	}
}
