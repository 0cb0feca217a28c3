package rst

// PathKind selects how an AccessPath's root is resolved (spec.md §3).
type PathKind int

const (
	Local PathKind = iota
	ExplicitGlobal
	Descope // AccessPath.DescopeN holds the descope count
)

// PathComponentKind tags the variant of one AccessPath segment.
type PathComponentKind int

const (
	CompName PathComponentKind = iota
	CompIndex
	CompSlice
	CompDynamicKey
	CompAnonymousValue
)

// PathComponent is one segment of an AccessPath. Exactly one of the
// fields matching Kind is meaningful; the invariant that AnonymousValue
// may only be the first component, and that Slice/Index may never be
// the first component, is enforced by the parser (spec.md §3, §4.1),
// not by this type.
type PathComponent struct {
	Kind PathComponentKind

	Name       string    // CompName
	Index      int64     // CompIndex, when static
	IndexExpr  *Sequence // CompIndex, when dynamic (nil if static)
	Slice      SliceExpr // CompSlice
	DynamicKey *Sequence // CompDynamicKey
	Anon       *Sequence // CompAnonymousValue
}

// SliceExprKind tags the variant of a slice expression's bounds.
type SliceExprKind int

const (
	SliceFull SliceExprKind = iota
	SliceFrom
	SliceTo
	SliceBetween
)

// SliceBound is either a static integer or a dynamic expression.
type SliceBound struct {
	Static  *int64
	Dynamic *Sequence
}

// SliceExpr mirrors spec.md §3: Full (':'), From(i), To(i), or
// Between(i, j), each bound static-or-dynamic.
type SliceExpr struct {
	Kind SliceExprKind
	From SliceBound
	To   SliceBound
}

// AccessPath is an ordered list of PathComponents plus a Kind
// (spec.md §3).
type AccessPath struct {
	Kind        PathKind
	DescopeN    int
	Components  []PathComponent
}

// DynamicExprs enumerates, in reader order (left-to-right, including
// both bounds of a dynamic slice), every dynamic sub-expression of the
// path. The VM evaluates them in this order and pops the value stack in
// reverse (spec.md §4.2, Invariant 3).
//
// Grounded on original_source/src/lang.rs's AccessPath::dynamic_exprs().
func (p *AccessPath) DynamicExprs() []*Sequence {
	var out []*Sequence
	for _, c := range p.Components {
		switch c.Kind {
		case CompAnonymousValue:
			if c.Anon != nil {
				out = append(out, c.Anon)
			}
		case CompIndex:
			if c.IndexExpr != nil {
				out = append(out, c.IndexExpr)
			}
		case CompDynamicKey:
			if c.DynamicKey != nil {
				out = append(out, c.DynamicKey)
			}
		case CompSlice:
			if c.Slice.From.Dynamic != nil {
				out = append(out, c.Slice.From.Dynamic)
			}
			if c.Slice.To.Dynamic != nil {
				out = append(out, c.Slice.To.Dynamic)
			}
		}
	}
	return out
}

// Getter reads a value addressed by an AccessPath, with an optional
// fallback sequence evaluated on failure (spec.md §4.6's GetValue
// intent).
type Getter struct {
	base
	Path             *AccessPath
	Fallback         *Sequence
	OverridePrint    bool
}

func (Getter) DisplayName() string { return "getter" }

// SetMode selects how a Setter's target variable is bound.
type SetMode int

const (
	SetOnly SetMode = iota
	Define
	DefineConst
)

// ValueSourceKind tags a Setter's value source.
type ValueSourceKind int

const (
	FromExpression ValueSourceKind = iota
	FromValueLit
	Consumed
)

// ValueSource is one of FromExpression(seq), FromValue(v) or Consumed
// (spec.md §4.6's BuildDynamicSetter/SetValue).
type ValueSource struct {
	Kind ValueSourceKind
	Expr *Sequence
}

// Setter writes a value to an AccessPath.
type Setter struct {
	base
	Path   *AccessPath
	Mode   SetMode
	Source ValueSource
}

func (Setter) DisplayName() string { return "setter" }

// VarDef declares a local/global/descoped variable, optionally with an
// initializer.
type VarDef struct {
	base
	Name    string
	Kind    PathKind
	DescopeN int
	IsConst bool
	Init    *Sequence // nil if uninitialized
}

func (VarDef) DisplayName() string { return "variable definition" }

// Depth queries the current nesting depth of a variable's scope chain
// (spec.md §4.1: "appending '&' to a variable path... produces a Depth
// node").
type Depth struct {
	base
	Name string
}

func (Depth) DisplayName() string { return "depth query" }
