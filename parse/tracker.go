package parse

import (
	"sort"

	"github.com/cbarrick/rant/rst"
	"github.com/cbarrick/rant/token"
)

// VarRole classifies a tracked variable (spec.md §3).
type VarRole int

const (
	RoleNormal VarRole = iota
	RoleFunction
	RoleArgument
	RoleFallibleOptionalArgument
	RolePipeValue
)

// varEntry is spec.md §3's "Variable tracker entry": definition span,
// read/write counts, const-ness, role, and the fallible-read flag.
type varEntry struct {
	name            string
	defSpan         token.Span
	reads           int
	writes          int
	isConst         bool
	role            VarRole
	hasFallibleRead bool
}

// scopeLayer holds the variables defined directly in one lexical layer
// (one sequence parse or one function body), matching
// its-hmny-nand2tetris/code/pkg/jack/scopes.go's Scope/ScopeTable shape,
// generalized from a fixed set of variable categories to Rant's single
// flat namespace per layer.
type scopeLayer struct {
	vars map[string]*varEntry
}

func newScopeLayer() *scopeLayer {
	return &scopeLayer{vars: make(map[string]*varEntry)}
}

// captureFrame records the scope depth active when a function body
// began parsing, and accumulates the names read from shallower depths
// (spec.md §4.1's capture pass).
type captureFrame struct {
	depthAtEntry int
	captured     map[string]bool
}

// Tracker is the compile-time variable tracker (spec.md §4.1/§3). It
// mirrors block/function nesting with a scope stack and runs the
// capture pass inline with parsing, as spec.md §9 requires ("do not
// defer this to the runtime").
type Tracker struct {
	layers   []*scopeLayer
	captures []*captureFrame
	diags    *Diagnostics
}

func NewTracker(diags *Diagnostics) *Tracker {
	return &Tracker{diags: diags}
}

// PushScope mirrors a new sequence or function-body nesting level.
func (t *Tracker) PushScope() {
	t.layers = append(t.layers, newScopeLayer())
}

// PopScope runs unused-variable analysis (spec.md §4.1: "sorted by
// def-span start, roles Normal/Argument/Function only") and discards
// the layer. Every PushScope must be matched by exactly one PopScope
// (spec.md §8 Invariant 6).
func (t *Tracker) PopScope() {
	n := len(t.layers)
	layer := t.layers[n-1]
	t.layers = t.layers[:n-1]

	entries := make([]*varEntry, 0, len(layer.vars))
	for _, e := range layer.vars {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].defSpan.StartByte < entries[j].defSpan.StartByte
	})
	for _, e := range entries {
		if e.reads > 0 {
			continue
		}
		switch e.role {
		case RoleNormal:
			t.diags.Warn(UnusedVariable, e.defSpan, "unused variable %q", e.name)
		case RoleArgument:
			t.diags.Warn(UnusedParameter, e.defSpan, "unused parameter %q", e.name)
		case RoleFunction:
			t.diags.Warn(UnusedFunction, e.defSpan, "unused function %q", e.name)
		}
	}
}

// PushCaptureFrame begins a function body's capture pass (spec.md
// §4.1: "a capture frame is pushed recording the current scope depth").
func (t *Tracker) PushCaptureFrame() {
	t.captures = append(t.captures, &captureFrame{
		depthAtEntry: len(t.layers),
		captured:     make(map[string]bool),
	})
}

// PopCaptureFrame returns the accumulated capture set and ends the
// function body's capture pass. Every PushCaptureFrame must be matched
// by exactly one PopCaptureFrame, with the set attached to the produced
// function value (spec.md §8 Invariant 7).
func (t *Tracker) PopCaptureFrame() []string {
	n := len(t.captures)
	frame := t.captures[n-1]
	t.captures = t.captures[:n-1]
	names := make([]string, 0, len(frame.captured))
	for name := range frame.captured {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TrackVariable inserts a definition into the current layer (spec.md
// §4.1). Redefining a constant in the same layer is reported as
// ConstantRedefinition (spec.md §8 Invariant 5).
func (t *Tracker) TrackVariable(name string, isConst bool, role VarRole, span token.Span) {
	layer := t.currentLayer()
	if existing, ok := layer.vars[name]; ok && existing.isConst {
		t.diags.Error(ConstantRedefinition, span, "cannot redefine constant %q", name)
		return
	}
	layer.vars[name] = &varEntry{
		name:    name,
		defSpan: span,
		isConst: isConst,
		role:    role,
	}
}

// TrackAccess updates read/write counts for a variable reference,
// searching outward from the innermost layer (spec.md §4.1). Writing to
// a const is reported as ConstantReassignment. Reading a fallible
// optional argument without a fallback flips its has_fallible_read flag
// and is warned about at the point of the read.
func (t *Tracker) TrackAccess(name string, isWrite bool, hasFallback bool, span token.Span) {
	entry, depth := t.lookup(name)
	if entry == nil {
		return // undeclared globals/descopes resolve at runtime, not here
	}
	if isWrite {
		if entry.isConst {
			t.diags.Error(ConstantReassignment, span, "cannot assign to constant %q", name)
			return
		}
		entry.writes++
		return
	}
	entry.reads++
	if entry.role == RoleFallibleOptionalArgument && !hasFallback {
		entry.hasFallibleRead = true
		t.diags.Warn(FallibleOptionalArgAccess, span, "optional argument %q read without a fallback", name)
	}
	t.markCapture(name, depth)
}

// markCapture implements spec.md §4.1's capture pass: any local read of
// an identifier defined at a shallower depth than the active capture
// frame's entry depth is a capture.
func (t *Tracker) markCapture(name string, defDepth int) {
	if len(t.captures) == 0 {
		return
	}
	frame := t.captures[len(t.captures)-1]
	if defDepth < frame.depthAtEntry {
		frame.captured[name] = true
	}
}

func (t *Tracker) currentLayer() *scopeLayer {
	return t.layers[len(t.layers)-1]
}

// lookup searches layers from innermost to outermost, returning the
// entry and the depth (index into t.layers) it was found at.
func (t *Tracker) lookup(name string) (*varEntry, int) {
	for i := len(t.layers) - 1; i >= 0; i-- {
		if e, ok := t.layers[i].vars[name]; ok {
			return e, i
		}
	}
	return nil, -1
}

// pathKindOf maps a parser-local access mode name ("global", "descope",
// anything else for local) to the shared rst.PathKind; kept here so
// package parse owns the mapping from its own bookkeeping to rst types.
func pathKindOf(mode string) rst.PathKind {
	switch mode {
	case "global":
		return rst.ExplicitGlobal
	case "descope":
		return rst.Descope
	default:
		return rst.Local
	}
}
