package parse

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/cbarrick/rant/token"
)

// Severity mirrors spec.md §6's CompilerMessage.severity.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Code enumerates spec.md §7's compile-time diagnostic taxonomy.
type Code int

const (
	UnexpectedToken Code = iota
	ExpectedToken
	InvalidKeyword
	InvalidIdentifier
	InvalidHint
	InvalidSink
	InvalidHintOn
	InvalidSinkOn
	WeightNotAllowed
	UnclosedStringLiteral
	UnclosedBlock
	UnclosedList
	UnclosedMap
	UnclosedFunctionBody
	UnclosedFunctionSignature
	UnclosedFunctionCall
	UnclosedVariableAccess
	MissingIdentifier
	MissingFunctionBody
	DuplicateParameter
	MultipleVariadicParams
	InvalidParamOrder
	DynamicKeyBlockMultiElement
	FunctionBodyBlockMultiElement
	AccessPathStartsWithIndex
	AccessPathStartsWithSlice
	InvalidSliceBound
	DynamicDepth
	InvalidDepthUsage
	DepthAssignment
	NothingToPipe
	AnonValueAssignment
	ConstantRedefinition
	ConstantReassignment
	NestedFunctionDefMarkedConstant // warning
	FallibleOptionalArgAccess       // warning
	UnusedVariable                  // warning
	UnusedParameter                 // warning
	UnusedFunction                  // warning
)

// IsWarning reports whether a Code is one of the warning-level
// diagnostics named in spec.md §7.
func (c Code) IsWarning() bool {
	switch c {
	case NestedFunctionDefMarkedConstant, FallibleOptionalArgAccess,
		UnusedVariable, UnusedParameter, UnusedFunction:
		return true
	default:
		return false
	}
}

// Position carries a (line, col, byte-range), per spec.md §6.
type Position struct {
	Line, Col   int
	StartByte   int
	EndByte     int
}

func positionOf(span token.Span) Position {
	return Position{Line: span.Line, Col: span.Col, StartByte: span.StartByte, EndByte: span.EndByte}
}

// CompilerMessage is one accumulated diagnostic (spec.md §6).
type CompilerMessage struct {
	Severity       Severity
	Code           Code
	Message        string
	InlineMessage  string
	Position       Position
}

func (m *CompilerMessage) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", m.Severity, m.Position.Line, m.Position.Col, m.Message)
}

// Diagnostics accumulates CompilerMessages, matching spec.md §7's
// propagation policy: "parser errors are accumulated; any error causes
// the final compile result to be a failure, but parsing continues past
// recoverable errors."
//
// Grounded on rami3l-golox's *multierror.Error accumulator
// (p.errors = multierror.Append(p.errors, err)).
type Diagnostics struct {
	errs     *multierror.Error
	hadError bool
	log      *logrus.Entry
}

func (d *Diagnostics) report(sev Severity, code Code, span token.Span, inline string, format string, args ...interface{}) {
	msg := &CompilerMessage{
		Severity:      sev,
		Code:          code,
		Message:       fmt.Sprintf(format, args...),
		InlineMessage: inline,
		Position:      positionOf(span),
	}
	d.errs = multierror.Append(d.errs, msg)
	if sev == SeverityError {
		d.hadError = true
	}
	if d.log != nil {
		entry := d.log.WithField("pos", fmt.Sprintf("%d:%d", span.Line, span.Col))
		if sev == SeverityWarning {
			entry.Warn(msg.Message)
		} else {
			entry.Debug(msg.Message)
		}
	}
}

func (d *Diagnostics) Error(code Code, span token.Span, format string, args ...interface{}) {
	d.report(SeverityError, code, span, "", format, args...)
}

func (d *Diagnostics) ErrorInline(code Code, span token.Span, inline, format string, args ...interface{}) {
	d.report(SeverityError, code, span, inline, format, args...)
}

func (d *Diagnostics) Warn(code Code, span token.Span, format string, args ...interface{}) {
	d.report(SeverityWarning, code, span, "", format, args...)
}

func (d *Diagnostics) HadError() bool { return d.hadError }

// Messages returns every accumulated diagnostic in report order.
func (d *Diagnostics) Messages() []*CompilerMessage {
	if d.errs == nil {
		return nil
	}
	out := make([]*CompilerMessage, 0, len(d.errs.Errors))
	for _, e := range d.errs.Errors {
		if m, ok := e.(*CompilerMessage); ok {
			out = append(out, m)
		}
	}
	return out
}

// AsError returns the accumulated diagnostics as a single error value
// suitable for a compile failure, or nil if there were none.
func (d *Diagnostics) AsError() error {
	if d.errs == nil {
		return nil
	}
	return d.errs.ErrorOrNil()
}
