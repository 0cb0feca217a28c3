package parse

import (
	"github.com/cbarrick/rant/rst"
	"github.com/cbarrick/rant/token"
)

// parseAccessor parses the inside of `<...>`: one or more statements
// separated by ';', each a definition, a getter, or a setter, executed
// left-to-right (spec.md §4.1).
func (p *Parser) parseAccessor() []rst.Node {
	open := p.r.Advance() // '<'
	var nodes []rst.Node

	for {
		tok := p.r.Peek()
		if tok.Type == token.RANGLE {
			p.r.Advance()
			return nodes
		}
		if tok.Type == token.EOF {
			p.diags.Error(UnclosedVariableAccess, open.Span, "unclosed variable access")
			return nodes
		}

		switch tok.Type {
		case token.KW_VAR, token.KW_CONST:
			nodes = append(nodes, p.parseVarDef(tok.Type == token.KW_CONST))
		default:
			nodes = append(nodes, p.parseGetterOrSetter())
		}

		if _, ok := p.r.TakeIf(token.SEMI); !ok {
			if p.r.Peek().Type != token.RANGLE {
				p.diags.Error(ExpectedToken, p.r.Peek().Span, "expected ';' or '>'")
			}
		}
	}
}

// parseVarDef parses `$name` / `%name` optionally `= expr`.
func (p *Parser) parseVarDef(isConst bool) rst.Node {
	p.r.Advance() // '$' or '%'
	nameTok := p.r.Peek()
	if nameTok.Type != token.IDENT && nameTok.Type != token.FRAGMENT {
		p.diags.Error(MissingIdentifier, nameTok.Span, "expected a variable name")
		return &rst.Noop{}
	}
	p.r.Advance()
	if !isValidIdent(nameTok.Value) {
		p.diags.Error(InvalidIdentifier, nameTok.Span, "invalid identifier %q", nameTok.Value)
	}

	def := &rst.VarDef{Name: nameTok.Value, IsConst: isConst}
	if _, ok := p.r.TakeIf(token.EQUALS); ok {
		seq := p.parseSequence(VariableAssignment)
		def.Init = &rst.Sequence{Nodes: seq.Nodes}
	}
	p.tracker.TrackVariable(nameTok.Value, isConst, RoleNormal, nameTok.Span)
	return def
}

// parseGetterOrSetter parses a bare access path, an access path
// followed by '?' (fallback), '=' (setter), or '&' (depth query).
func (p *Parser) parseGetterOrSetter() rst.Node {
	path := p.parseAccessPath(true)
	if path == nil || len(path.Components) == 0 {
		p.diags.Error(MissingIdentifier, p.r.Peek().Span, "expected a variable path")
		return &rst.Noop{}
	}

	switch p.r.Peek().Type {
	case token.AMP:
		p.r.Advance()
		if len(path.Components) != 1 || path.Components[0].Kind != rst.CompName {
			p.diags.Error(InvalidDepthUsage, p.r.Peek().Span, "depth query requires a plain variable path")
			return &rst.Noop{}
		}
		p.tracker.TrackAccess(path.Components[0].Name, false, true, p.r.Peek().Span)
		return &rst.Depth{Name: path.Components[0].Name}

	case token.EQUALS:
		p.r.Advance()
		val := p.parseSequence(VariableAssignment)
		if leafName, ok := soleName(path); ok {
			p.tracker.TrackAccess(leafName, true, false, p.r.Peek().Span)
		}
		return &rst.Setter{
			Path:   path,
			Mode:   rst.SetOnly,
			Source: rst.ValueSource{Kind: rst.FromExpression, Expr: &rst.Sequence{Nodes: val.Nodes}},
		}

	case token.QUESTION:
		p.r.Advance()
		fb := p.parseSequence(AccessorFallbackValue)
		if leafName, ok := soleName(path); ok {
			p.tracker.TrackAccess(leafName, false, true, p.r.Peek().Span)
		}
		return &rst.Getter{Path: path, Fallback: &rst.Sequence{Nodes: fb.Nodes}}

	default:
		if leafName, ok := soleName(path); ok {
			p.tracker.TrackAccess(leafName, false, false, p.r.Peek().Span)
		}
		return &rst.Getter{Path: path}
	}
}

func soleName(path *rst.AccessPath) (string, bool) {
	if len(path.Components) == 1 && path.Components[0].Kind == rst.CompName {
		return path.Components[0].Name, true
	}
	return "", false
}
