// Package parse implements Rant's parser/semantic analyzer: a
// recursive-descent parser re-entered through a single mode-
// parameterized routine, parseSequence, plus the compile-time variable
// tracker described in spec.md §4.1.
//
// Grounded on cbarrick-ripl/lang/parse/parser.go's buffered-token-stream
// state machine (peek/read/push/pop/skipWhite over a Lexer), generalized
// from Prolog's single readTerm(maxprec) entry point to Rant's
// parseSequence(mode) mode table.
package parse

import (
	"strconv"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cbarrick/rant/rst"
	"github.com/cbarrick/rant/token"
)

const pipeValueName = "__RANT_PIPE_VALUE__" // PIPE_VALUE_NAME, spec.md §4.1

// Parser holds all state for one compile: the buffered token reader,
// the diagnostic sink, the variable tracker, and the small amount of
// pending state (print flag, whitespace buffer, pipe-value-usage marker)
// that crosses a single parseSequence call boundary.
type Parser struct {
	r       *token.Reader
	diags   *Diagnostics
	tracker *Tracker

	pendingFlag  rst.PrintFlag
	pendingFlagSpan token.Span
	pendingWS    string

	// pipevalUsed is copied onto each PipeStep's UsesPipeval and reset
	// by parseCallOrPipe. No parser path sets it to true, so every step
	// is recorded as not reading the pipe value.
	pipevalUsed bool
	inPipeStep  int // > 0 while parsing inside a pipe step's argument list
}

// New creates a Parser reading tokens from src.
func New(src token.Stream, log *logrus.Entry) *Parser {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	diags := &Diagnostics{log: log}
	return &Parser{
		r:       token.NewReader(src),
		diags:   diags,
		tracker: NewTracker(diags),
	}
}

// Compile parses a full program: a single TopLevel sequence.
func Compile(name string, src token.Stream, log *logrus.Entry) (*rst.Program, error) {
	prog, _, err := CompileDiagnostics(name, src, log)
	return prog, err
}

// CompileDiagnostics is Compile plus every accumulated CompilerMessage
// (errors and warnings alike), for callers that report diagnostics
// rather than just failing (cmd/rant's check subcommand, spec.md §6).
func CompileDiagnostics(name string, src token.Stream, log *logrus.Entry) (*rst.Program, []*CompilerMessage, error) {
	p := New(src, log)
	p.tracker.PushScope()
	seq := p.parseSequence(TopLevel)
	p.tracker.PopScope()
	msgs := p.diags.Messages()
	if p.diags.HadError() {
		return nil, msgs, p.diags.AsError()
	}
	info := &rst.ProgramInfo{ID: uuid.New(), Name: name}
	root := &rst.Sequence{Name: "main", Nodes: seq.Nodes, Origin: info}
	return &rst.Program{Root: root, Info: info}, msgs, p.diags.AsError()
}

// parseSequence is the single re-entry point described in spec.md
// §4.1, dispatching each token to the construct it begins and stopping
// when mode's terminator set is hit (or, for SingleItem, after one
// node).
func (p *Parser) parseSequence(mode Mode) ParsedSequence {
	p.tracker.PushScope()
	defer p.tracker.PopScope()

	var nodes []rst.Node
	isText := true
	terms := terminators[mode]

	flushWhitespace := func() {
		if p.pendingWS != "" {
			nodes = append(nodes, &rst.Whitespace{Text: p.pendingWS})
			p.pendingWS = ""
		}
	}

	for {
		tok := p.r.Peek()

		if end, ok := terms[tok.Type]; ok {
			if tok.Type != token.EOF {
				p.r.Advance()
			}
			return ParsedSequence{Nodes: nodes, EndType: end, IsText: isText}
		}
		if tok.Type == token.EOF {
			return ParsedSequence{Nodes: nodes, EndType: EndEOF, IsText: isText}
		}

		switch tok.Type {
		case token.WHITESPACE:
			p.r.Advance()
			switch p.pendingFlag {
			case rst.FlagSink:
				// dropped
			default:
				p.pendingWS += tok.Value
			}

		case token.COMMENT:
			p.r.Advance()

		case token.TILDE, token.BANG:
			p.r.Advance()
			p.setPendingFlag(tok)

		case token.FRAGMENT, token.ESCAPE, token.IDENT:
			p.r.Advance()
			flushWhitespace()
			nodes = append(nodes, &rst.Literal{Text: tok.Value})
			p.clearPendingFlag(tok.Span, "text")

		case token.STRING:
			p.r.Advance()
			flushWhitespace()
			nodes = append(nodes, &rst.Literal{Text: unquote(tok.Value)})
			p.clearPendingFlag(tok.Span, "string literal")

		case token.INT:
			p.r.Advance()
			flushWhitespace()
			n, _ := strconv.ParseInt(tok.Value, 10, 64)
			nodes = append(nodes, &rst.IntLiteral{Value: n})
			p.clearPendingFlag(tok.Span, "integer")

		case token.FLOAT:
			p.r.Advance()
			flushWhitespace()
			f, _ := strconv.ParseFloat(tok.Value, 64)
			nodes = append(nodes, &rst.FloatLiteral{Value: f})
			p.clearPendingFlag(tok.Span, "float")

		case token.TRUE, token.FALSE:
			p.r.Advance()
			flushWhitespace()
			nodes = append(nodes, &rst.BoolLiteral{Value: tok.Type == token.TRUE})
			p.clearPendingFlag(tok.Span, "boolean")

		case token.LBRACE:
			flushWhitespace()
			node := p.parseBlock()
			nodes = append(nodes, node)
			isText = false

		case token.LANGLE:
			flushWhitespace()
			accessorNodes := p.parseAccessor()
			nodes = append(nodes, accessorNodes...)
			isText = false

		case token.LBRACKET:
			flushWhitespace()
			node := p.parseFunctionAccess()
			nodes = append(nodes, node)
			isText = false
			p.clearPendingFlag(tok.Span, "function result")

		case token.LPAREN:
			flushWhitespace()
			nodes = append(nodes, p.parseListInit())
			isText = false

		case token.AT:
			p.r.Advance()
			if _, ok := p.r.TakeIf(token.LPAREN); ok {
				flushWhitespace()
				nodes = append(nodes, p.parseMapInit())
				isText = false
			} else {
				p.diags.Error(UnexpectedToken, tok.Span, "expected '(' after '@'")
			}

		default:
			p.r.Advance()
			p.diags.Error(UnexpectedToken, tok.Span, "unexpected token %s", tok.Type)
		}

		if mode == SingleItem && len(nodes) > 0 {
			return ParsedSequence{Nodes: nodes, EndType: EndSingleItem, IsText: isText}
		}
	}
}

// setPendingFlag records a '~' (Hint) or '!' (Sink) as pending state
// for the next element (spec.md §4.1).
func (p *Parser) setPendingFlag(tok token.Token) {
	if p.pendingFlag != rst.FlagNone {
		p.diags.Error(UnexpectedToken, tok.Span, "only one print flag may precede an element")
		return
	}
	if tok.Type == token.TILDE {
		p.pendingFlag = rst.FlagHint
	} else {
		p.pendingFlag = rst.FlagSink
	}
	p.pendingFlagSpan = tok.Span
}

// clearPendingFlag reports InvalidHint/InvalidSink (or the *On variants,
// naming what the flag was attached to) when a flag was pending but the
// following element can't accept one — spec.md §4.1. Blocks and
// function calls accept a flag directly (see parseBlock,
// parseFunctionAccess) and clear it there instead.
func (p *Parser) clearPendingFlag(span token.Span, onWhat string) {
	switch p.pendingFlag {
	case rst.FlagHint:
		p.diags.ErrorInline(InvalidHintOn, p.pendingFlagSpan, onWhat, "hint flag not valid on %s", onWhat)
	case rst.FlagSink:
		p.diags.ErrorInline(InvalidSinkOn, p.pendingFlagSpan, onWhat, "sink flag not valid on %s", onWhat)
	}
	p.pendingFlag = rst.FlagNone
}

// takePendingFlag consumes the pending flag for a construct that can
// legally carry one (block, function call), defaulting to FlagNone.
func (p *Parser) takePendingFlag() rst.PrintFlag {
	f := p.pendingFlag
	p.pendingFlag = rst.FlagNone
	return f
}

func unquote(raw string) string {
	if len(raw) >= 2 {
		return raw[1 : len(raw)-1]
	}
	return raw
}

// isValidIdent mirrors original_source/src/lang.rs's is_valid_ident: a
// non-empty identifier starting with a letter or underscore.
func isValidIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
