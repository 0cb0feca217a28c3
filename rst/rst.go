// Package rst defines the Rant Syntax Tree: the immutable, freely
// shareable post-parse representation consumed by package vm.
//
// Grounded on cbarrick-ripl/lang/term/{term.go,compound.go,list.go,
// variable.go}'s sum-type-as-interface-plus-small-structs idiom (there,
// a Prolog Term; here, a Rant Rst node) and on
// original_source/src/lang.rs's Rst enum for the exact variant set.
package rst

import "github.com/google/uuid"

// Node is implemented by every RST variant. DisplayName is used in
// diagnostics and stack traces, mirroring original_source/src/lang.rs's
// Rst::display_name().
type Node interface {
	DisplayName() string
	isNode()
}

type base struct{}

func (base) isNode() {}

// Sequence is an ordered list of RST nodes forming a lexical unit: a
// program, a block element body, a function body, an argument
// expression, and so on (spec.md §3).
type Sequence struct {
	base
	Name    string
	Nodes   []Node
	Origin  *ProgramInfo
}

func (s *Sequence) DisplayName() string { return "sequence" }

// ProgramInfo carries compiled-program metadata. The UUID field is a
// supplement (SPEC_FULL.md §10.4): spec.md only requires "program-info
// metadata" exist, not its exact shape.
type ProgramInfo struct {
	ID                uuid.UUID
	Name              string
	SourceDescription string
}

// Program is the top-level compiled artifact returned by the parser.
type Program struct {
	Root *Sequence
	Info *ProgramInfo
}

// Literal is a literal text fragment.
type Literal struct {
	base
	Text string
}

func (Literal) DisplayName() string { return "fragment" }

// Whitespace is a run of preserved whitespace (printing tokens flush
// pending whitespace; see spec.md §4.1).
type Whitespace struct {
	base
	Text string
}

func (Whitespace) DisplayName() string { return "whitespace" }

// IntLiteral, FloatLiteral and BoolLiteral hold numeric/boolean literal
// values directly, so the VM can push them without re-parsing text.
type IntLiteral struct {
	base
	Value int64
}

func (IntLiteral) DisplayName() string { return "integer" }

type FloatLiteral struct {
	base
	Value float64
}

func (FloatLiteral) DisplayName() string { return "float" }

type BoolLiteral struct {
	base
	Value bool
}

func (BoolLiteral) DisplayName() string { return "boolean" }

// Noop is an explicit no-op; the parser produces one in place of an
// accessor it could not parse (a missing name or an invalid depth query).
type Noop struct{ base }

func (Noop) DisplayName() string { return "no-op" }

// DebugCursor attaches a source position to a point in the tree for
// runtime stack traces, without otherwise affecting evaluation.
type DebugCursor struct {
	base
	Line, Col int
}

func (DebugCursor) DisplayName() string { return "debug cursor" }
