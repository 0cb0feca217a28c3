package parse

import (
	"github.com/cbarrick/rant/rst"
	"github.com/cbarrick/rant/token"
)

// parseFunctionAccess parses everything between '[' and ']': a function
// definition (`$name`/`%name`), a lambda (`?`), or a call/pipe chain
// (spec.md §4.1).
func (p *Parser) parseFunctionAccess() rst.Node {
	open := p.r.Advance() // '['
	tok := p.r.Peek()

	switch tok.Type {
	case token.KW_VAR, token.KW_CONST:
		return p.parseFunctionDef(open, tok.Type == token.KW_CONST, false)
	case token.QUESTION:
		p.r.Advance()
		return p.parseFunctionDef(open, false, true)
	default:
		return p.parseCallOrPipe(open)
	}
}

// parseFunctionDef parses `[$name:params]{body}` / `[%name:params]{body}`
// / `[?:params]{body}` (spec.md §4.1).
func (p *Parser) parseFunctionDef(open token.Token, isConst, isLambda bool) rst.Node {
	var name string
	if !isLambda {
		p.r.Advance() // '$' or '%'
		nameTok := p.r.Peek()
		if nameTok.Type != token.IDENT && nameTok.Type != token.FRAGMENT {
			p.diags.Error(MissingIdentifier, nameTok.Span, "expected a function name")
		} else {
			p.r.Advance()
			name = nameTok.Value
			if !isValidIdent(name) {
				p.diags.Error(InvalidIdentifier, nameTok.Span, "invalid identifier %q", name)
			}
		}
	}

	var params []rst.Param
	if _, ok := p.r.TakeIf(token.COLON); ok {
		params = p.parseSignature(open)
	}
	if _, ok := p.r.TakeIf(token.RBRACKET); !ok {
		p.diags.Error(UnclosedFunctionSignature, open.Span, "unclosed function signature")
	}

	fn := &rst.Function{Name: name, IsConst: isConst, IsLambda: isLambda, Params: params}
	fn.MinArgs, fn.VariadicFrom = signatureArity(params)

	if p.r.Peek().Type != token.LBRACE {
		p.diags.Error(MissingFunctionBody, p.r.Peek().Span, "expected a function body")
		fn.Body = &rst.Sequence{}
		if !isLambda && name != "" {
			p.tracker.TrackVariable(name, isConst, RoleFunction, open.Span)
		}
		return fn
	}
	bodyOpen := p.r.Advance() // '{'

	p.tracker.PushCaptureFrame()
	p.tracker.PushScope() // the function body's own layer, holding its parameters
	for _, prm := range params {
		role := RoleArgument
		if prm.Varity == rst.Optional {
			role = RoleFallibleOptionalArgument
		}
		p.tracker.TrackVariable(prm.Name, false, role, bodyOpen.Span)
	}
	body := p.parseSequence(FunctionBodyBlock)
	fn.Captures = p.tracker.PopCaptureFrame()
	p.tracker.PopScope()
	if body.EndType == EndEOF {
		p.diags.Error(UnclosedFunctionBody, bodyOpen.Span, "unclosed function body")
	}
	fn.Body = &rst.Sequence{Nodes: body.Nodes}

	if !isLambda && name != "" {
		p.tracker.TrackVariable(name, isConst, RoleFunction, open.Span)
	}
	return fn
}

// parseSignature parses the parameter list between ':' and ']',
// enforcing spec.md §3's varity ordering and rejecting duplicate names
// and multiple variadic parameters (spec.md §4.1).
func (p *Parser) parseSignature(open token.Token) []rst.Param {
	var params []rst.Param
	seen := map[string]bool{}
	sawVariadic := false
	var prevVarity rst.ParamVarity
	first := true

	for {
		tok := p.r.Peek()
		if tok.Type == token.RBRACKET || tok.Type == token.EOF {
			return params
		}
		if !first {
			if _, ok := p.r.TakeIf(token.SEMI); !ok {
				p.diags.Error(ExpectedToken, tok.Span, "expected ';' between parameters")
			}
		}
		first = false

		nameTok := p.r.Peek()
		if nameTok.Type != token.IDENT && nameTok.Type != token.FRAGMENT {
			p.diags.Error(MissingIdentifier, nameTok.Span, "expected a parameter name")
			return params
		}
		p.r.Advance()
		if !isValidIdent(nameTok.Value) {
			p.diags.Error(InvalidIdentifier, nameTok.Span, "invalid parameter name %q", nameTok.Value)
		}
		if seen[nameTok.Value] {
			p.diags.Error(DuplicateParameter, nameTok.Span, "duplicate parameter %q", nameTok.Value)
		}
		seen[nameTok.Value] = true

		varity := rst.Required
		switch p.r.Peek().Type {
		case token.QUESTION:
			p.r.Advance()
			varity = rst.Optional
		case token.STAR:
			p.r.Advance()
			varity = rst.VariadicStar
		case token.PLUS:
			p.r.Advance()
			varity = rst.VariadicPlus
		}

		if varity == rst.VariadicStar || varity == rst.VariadicPlus {
			if sawVariadic {
				p.diags.Error(MultipleVariadicParams, nameTok.Span, "at most one variadic parameter is allowed")
			}
			sawVariadic = true
		}
		if len(params) > 0 && !rst.ValidTransition(prevVarity, varity) {
			p.diags.Error(InvalidParamOrder, nameTok.Span, "invalid parameter order")
		}
		prevVarity = varity

		param := rst.Param{Name: nameTok.Value, Varity: varity}
		if varity == rst.Optional {
			if _, ok := p.r.TakeIf(token.EQUALS); ok {
				def := p.parseSequence(ParamDefaultValue)
				param.Default = &rst.Sequence{Nodes: def.Nodes}
				params = append(params, param)
				if def.EndType == EndSemi {
					continue
				}
				return params
			}
		}
		params = append(params, param)
	}
}

// signatureArity computes (min required count, index of first variadic
// parameter) from a validated parameter list (spec.md §3).
func signatureArity(params []rst.Param) (min int, variadicFrom int) {
	variadicFrom = len(params)
	for i, prm := range params {
		switch prm.Varity {
		case rst.Required:
			min++
		case rst.VariadicStar, rst.VariadicPlus:
			if variadicFrom == len(params) {
				variadicFrom = i
			}
			if prm.Varity == rst.VariadicPlus {
				min++
			}
		}
	}
	return min, variadicFrom
}

// parseCallOrPipe parses a call or pipe chain: `[target:args]`,
// `[target!:args]` (anonymous), `[a|>b:args|>c:args]` (spec.md §4.1).
func (p *Parser) parseCallOrPipe(open token.Token) rst.Node {
	var steps []rst.PipeStep
	flag := rst.CallPrint

	for {
		target := p.parseSequence(SingleItem)
		isAnon := false
		if _, ok := p.r.TakeIf(token.BANG); ok {
			isAnon = true
		}
		var args []rst.Argument
		if _, ok := p.r.TakeIf(token.COLON); ok {
			args = p.parseArgList()
		}
		step := rst.PipeStep{Target: &rst.Sequence{Nodes: target.Nodes}, Args: args}
		step.UsesPipeval = p.pipevalUsed
		p.pipevalUsed = false
		steps = append(steps, step)
		_ = isAnon

		tok := p.r.Peek()
		switch tok.Type {
		case token.PIPE_CALL:
			p.r.Advance()
			continue
		case token.RBRACKET:
			p.r.Advance()
			return p.finishCall(steps, flag)
		case token.EOF:
			p.diags.Error(UnclosedFunctionCall, open.Span, "unclosed function call")
			return p.finishCall(steps, flag)
		default:
			p.diags.Error(UnexpectedToken, tok.Span, "unexpected token in function call")
			p.r.Advance()
			return p.finishCall(steps, flag)
		}
	}
}

func (p *Parser) finishCall(steps []rst.PipeStep, flag rst.CallFlag) rst.Node {
	if len(steps) == 1 {
		return &rst.FuncCall{Target: steps[0].Target, Args: steps[0].Args, Flag: p.callFlagFromPending(flag)}
	}
	return &rst.PipedCall{Steps: steps, Flag: p.callFlagFromPending(flag)}
}

func (p *Parser) callFlagFromPending(flag rst.CallFlag) rst.CallFlag {
	pf := p.takePendingFlag()
	if pf == rst.FlagSink {
		return rst.CallSink
	}
	return flag
}

// parseArgList parses the arguments between ':' and a terminator
// ('|>', ';', ']'), handling parametric ('*') and temporal ('@'/'@label')
// spreads (spec.md §4.1, §4.6).
func (p *Parser) parseArgList() []rst.Argument {
	var args []rst.Argument
	p.inPipeStep++
	defer func() { p.inPipeStep-- }()

	for {
		tok := p.r.Peek()
		if tok.Type == token.PIPE_CALL || tok.Type == token.RBRACKET || tok.Type == token.EOF {
			return args
		}
		spread := rst.SpreadNone
		label := ""
		switch tok.Type {
		case token.STAR:
			p.r.Advance()
			spread = rst.SpreadParametric
		case token.AT:
			p.r.Advance()
			spread = rst.SpreadTemporal
			if nameTok := p.r.Peek(); nameTok.Type == token.IDENT {
				p.r.Advance()
				label = nameTok.Value
			}
		}
		expr := p.parseSequence(FunctionArg)
		args = append(args, rst.Argument{Expr: &rst.Sequence{Nodes: expr.Nodes}, Spread: spread, TemporalTag: label})
		switch expr.EndType {
		case EndSemi:
			continue
		case EndPipeCall, EndRBracket, EndEOF:
			return args
		}
	}
}
