package parse

import (
	"github.com/cbarrick/rant/rst"
	"github.com/cbarrick/rant/token"
)

// parseBlock parses `{ elem | elem | ... }`, possibly with weights
// (`elem:w`) and a leading print flag (spec.md §3, §4.1).
func (p *Parser) parseBlock() rst.Node {
	open := p.r.Advance() // consume '{'
	flag := p.takePendingFlag()

	var elements []rst.BlockElement
	for {
		body := p.parseSequence(BlockElement)
		elem := rst.BlockElement{Body: &rst.Sequence{Nodes: body.Nodes}}

		switch body.EndType {
		case EndColon:
			weight := p.parseSequence(SingleItem)
			if lit, ok := soleIntLiteral(weight.Nodes); ok {
				w := float64(lit)
				elem.WeightConst = &w
			} else {
				elem.WeightExpr = &rst.Sequence{Nodes: weight.Nodes}
			}
			elements = append(elements, elem)
			// the weight's SingleItem parse stops after one node, so the
			// element's own terminator (| or }) still follows it.
			switch next := p.r.Peek(); next.Type {
			case token.PIPE:
				p.r.Advance()
				continue
			case token.RBRACE:
				p.r.Advance()
			case token.EOF:
				p.diags.Error(UnclosedBlock, open.Span, "unclosed block")
			default:
				p.diags.Error(UnexpectedToken, next.Span, "expected '|' or '}' after block weight")
			}
			return p.finishBlock(flag, elements)
		case EndPipe:
			elements = append(elements, elem)
			continue
		case EndRBrace, EndEOF:
			elements = append(elements, elem)
			if body.EndType == EndEOF {
				p.diags.Error(UnclosedBlock, open.Span, "unclosed block")
			}
			return p.finishBlock(flag, elements)
		}
	}
}

func (p *Parser) finishBlock(flag rst.PrintFlag, elements []rst.BlockElement) rst.Node {
	weighted := false
	for _, e := range elements {
		if e.WeightConst != nil || e.WeightExpr != nil {
			weighted = true
		}
	}
	if flag == rst.FlagNone {
		// FlagNone is kept as given; nothing here looks at the
		// block's contents to pick a flag.
	}
	return &rst.Block{Flag: flag, Weighted: weighted, Elements: elements}
}

func soleIntLiteral(nodes []rst.Node) (int64, bool) {
	if len(nodes) != 1 {
		return 0, false
	}
	if lit, ok := nodes[0].(*rst.IntLiteral); ok {
		return lit.Value, true
	}
	return 0, false
}

// parseListInit parses `(a; b; c)`. A trailing ';' is tolerated by
// dropping the final empty sequence (spec.md §4.1).
func (p *Parser) parseListInit() rst.Node {
	open := p.r.Advance() // '('
	var elements []*rst.Sequence
	for {
		item := p.parseSequence(CollectionInit)
		if len(item.Nodes) > 0 || item.EndType != EndRParen {
			elements = append(elements, &rst.Sequence{Nodes: item.Nodes})
		}
		switch item.EndType {
		case EndSemi:
			continue
		case EndRParen:
			return &rst.ListInit{Elements: elements}
		case EndEOF:
			p.diags.Error(UnclosedList, open.Span, "unclosed list")
			return &rst.ListInit{Elements: elements}
		}
	}
}

// parseMapInit parses `@(k = v; k2 = v2)`. Per spec.md §9's Open
// Question decision, a trailing ';' is rejected unless a key follows.
func (p *Parser) parseMapInit() rst.Node {
	open := p.r.Peek() // '(' already consumed by caller
	var entries []rst.MapEntry
	for {
		if _, ok := p.r.TakeIf(token.RPAREN); ok {
			return &rst.MapInit{Entries: entries}
		}
		key, keyIsDynamic := p.parseMapKey()
		if _, ok := p.r.TakeIf(token.EQUALS); !ok {
			p.diags.Error(ExpectedToken, p.r.Peek().Span, "expected '=' after map key")
		}
		val := p.parseSequence(CollectionInit)
		entries = append(entries, rst.MapEntry{Key: key, KeyIsDynamic: keyIsDynamic, Value: &rst.Sequence{Nodes: val.Nodes}})
		switch val.EndType {
		case EndSemi:
			if p.r.Peek().Type == token.RPAREN {
				p.diags.Error(UnexpectedToken, p.r.Peek().Span, "trailing ';' not allowed in map initializer")
				p.r.Advance()
				return &rst.MapInit{Entries: entries}
			}
			continue
		case EndRParen:
			return &rst.MapInit{Entries: entries}
		case EndEOF:
			p.diags.Error(UnclosedMap, open.Span, "unclosed map")
			return &rst.MapInit{Entries: entries}
		}
	}
}

// parseMapKey parses a static identifier fragment, a string literal, or
// a dynamic `{...}` key block (spec.md §4.1).
func (p *Parser) parseMapKey() (*rst.Sequence, bool) {
	tok := p.r.Peek()
	switch tok.Type {
	case token.IDENT, token.FRAGMENT:
		p.r.Advance()
		if !isValidIdent(tok.Value) {
			p.diags.Error(InvalidIdentifier, tok.Span, "invalid map key %q", tok.Value)
		}
		return &rst.Sequence{Nodes: []rst.Node{&rst.Literal{Text: tok.Value}}}, false
	case token.STRING:
		p.r.Advance()
		return &rst.Sequence{Nodes: []rst.Node{&rst.Literal{Text: unquote(tok.Value)}}}, false
	case token.LBRACE:
		p.r.Advance()
		key := p.parseSequence(DynamicKey)
		return &rst.Sequence{Nodes: key.Nodes}, true
	default:
		p.diags.Error(MissingIdentifier, tok.Span, "expected a map key")
		return &rst.Sequence{}, false
	}
}
