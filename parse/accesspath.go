package parse

import (
	"github.com/cbarrick/rant/rst"
	"github.com/cbarrick/rant/token"
)

// parseAccessPath implements spec.md §4.1's parse_access_path(allow_anonymous).
func (p *Parser) parseAccessPath(allowAnonymous bool) *rst.AccessPath {
	path := &rst.AccessPath{Kind: rst.Local}

	if _, ok := p.r.TakeIf(token.SLASH); ok {
		path.Kind = rst.ExplicitGlobal
	} else {
		n := 0
		for {
			if _, ok := p.r.TakeIf(token.CARET); ok {
				n++
				continue
			}
			break
		}
		if n > 0 {
			path.Kind = rst.Descope
			path.DescopeN = n
		}
	}

	first := true
	for {
		if !first {
			if _, ok := p.r.TakeIf(token.SLASH); !ok {
				break
			}
		}

		if first && allowAnonymous {
			if _, ok := p.r.TakeIf(token.BANG); ok {
				expr := p.parseSequence(SingleItem)
				path.Components = append(path.Components, rst.PathComponent{
					Kind: rst.CompAnonymousValue,
					Anon: &rst.Sequence{Nodes: expr.Nodes},
				})
				first = false
				continue
			}
		}

		comp, err := p.parsePathComponent(first)
		if err != nil {
			break
		}
		path.Components = append(path.Components, comp)
		first = false
	}

	return path
}

// parsePathComponent parses one segment after the leading qualifiers.
// Roots that are slices or integer indices are rejected (spec.md §3,
// §4.1): "no component type may appear as the first component of a
// path if it represents a slice or index."
func (p *Parser) parsePathComponent(isRoot bool) (rst.PathComponent, error) {
	tok := p.r.Peek()
	switch tok.Type {
	case token.IDENT, token.FRAGMENT:
		p.r.Advance()
		if !isValidIdent(tok.Value) {
			p.diags.Error(InvalidIdentifier, tok.Span, "invalid identifier %q", tok.Value)
		}
		return rst.PathComponent{Kind: rst.CompName, Name: tok.Value}, nil

	case token.INT:
		if isRoot {
			p.diags.Error(AccessPathStartsWithIndex, tok.Span, "a path cannot start with an index")
		}
		p.r.Advance()
		idx := parseIntLiteral(tok.Value)
		if _, ok := p.r.TakeIf(token.COLON); ok {
			return p.finishSliceFromStatic(idx), nil
		}
		return rst.PathComponent{Kind: rst.CompIndex, Index: idx}, nil

	case token.COLON:
		if isRoot {
			p.diags.Error(AccessPathStartsWithSlice, tok.Span, "a path cannot start with a slice")
		}
		p.r.Advance()
		return p.finishSliceFull(), nil

	case token.LBRACE:
		p.r.Advance()
		key := p.parseSequence(DynamicKey)
		keySeq := &rst.Sequence{Nodes: key.Nodes}
		if _, ok := p.r.TakeIf(token.COLON); ok {
			return rst.PathComponent{
				Kind: rst.CompSlice,
				Slice: rst.SliceExpr{
					Kind: rst.SliceFrom,
					From: rst.SliceBound{Dynamic: keySeq},
				},
			}, nil
		}
		return rst.PathComponent{Kind: rst.CompDynamicKey, DynamicKey: keySeq}, nil

	default:
		return rst.PathComponent{}, errNoComponent
	}
}

var errNoComponent = &parseSentinel{"no path component"}

type parseSentinel struct{ msg string }

func (e *parseSentinel) Error() string { return e.msg }

func (p *Parser) finishSliceFromStatic(from int64) rst.PathComponent {
	if to, ok := p.tryParseStaticBound(); ok {
		return rst.PathComponent{Kind: rst.CompSlice, Slice: rst.SliceExpr{
			Kind: rst.SliceBetween,
			From: rst.SliceBound{Static: &from},
			To:   to,
		}}
	}
	return rst.PathComponent{Kind: rst.CompSlice, Slice: rst.SliceExpr{
		Kind: rst.SliceFrom,
		From: rst.SliceBound{Static: &from},
	}}
}

func (p *Parser) finishSliceFull() rst.PathComponent {
	if to, ok := p.tryParseStaticBound(); ok {
		return rst.PathComponent{Kind: rst.CompSlice, Slice: rst.SliceExpr{Kind: rst.SliceTo, To: to}}
	}
	return rst.PathComponent{Kind: rst.CompSlice, Slice: rst.SliceExpr{Kind: rst.SliceFull}}
}

// tryParseStaticBound peeks for a static integer bound following a
// ':' without consuming anything else; returns ok=false if the next
// token is not an integer (i.e. the slice bound is open or dynamic).
func (p *Parser) tryParseStaticBound() (rst.SliceBound, bool) {
	tok := p.r.Peek()
	if tok.Type == token.INT {
		p.r.Advance()
		n := parseIntLiteral(tok.Value)
		return rst.SliceBound{Static: &n}, true
	}
	if tok.Type == token.LBRACE {
		p.r.Advance()
		key := p.parseSequence(DynamicKey)
		return rst.SliceBound{Dynamic: &rst.Sequence{Nodes: key.Nodes}}, true
	}
	return rst.SliceBound{}, false
}

func parseIntLiteral(s string) int64 {
	var n int64
	neg := false
	for i, r := range s {
		if i == 0 && r == '-' {
			neg = true
			continue
		}
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int64(r-'0')
	}
	if neg {
		n = -n
	}
	return n
}
