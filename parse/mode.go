package parse

import (
	"github.com/cbarrick/rant/rst"
	"github.com/cbarrick/rant/token"
)

// Mode parameterizes parseSequence, fixing which tokens terminate the
// sequence and what structural role it plays (spec.md §4.1). The mode
// carries the context sensitivity that a token-level grammar can't.
type Mode int

const (
	TopLevel Mode = iota
	BlockElement
	FunctionArg
	FunctionBodyBlock
	DynamicKey
	AnonFunctionExpr
	VariableAssignment
	AccessorFallbackValue
	ParamDefaultValue
	CollectionInit
	SingleItem
)

// EndType identifies which terminator actually stopped a parseSequence
// call, letting the caller dispatch on it (spec.md §4.1's "uniform
// protocol").
type EndType int

const (
	EndEOF EndType = iota
	EndPipe
	EndColon
	EndRBrace
	EndSemi
	EndPipeCall
	EndRBracket
	EndRAngle
	EndRParen
	EndSingleItem
)

// terminators maps each Mode to the set of token types that end it
// (spec.md §4.1's mode table).
var terminators = map[Mode]map[token.Type]EndType{
	TopLevel: {
		token.EOF: EndEOF,
	},
	BlockElement: {
		token.PIPE:   EndPipe,
		token.COLON:  EndColon,
		token.RBRACE: EndRBrace,
	},
	FunctionArg: {
		token.SEMI:      EndSemi,
		token.PIPE_CALL: EndPipeCall,
		token.RBRACKET:  EndRBracket,
	},
	FunctionBodyBlock: {
		token.RBRACE: EndRBrace,
	},
	DynamicKey: {
		token.RBRACE: EndRBrace,
	},
	AnonFunctionExpr: {
		token.COLON:     EndColon,
		token.RBRACKET:  EndRBracket,
		token.PIPE_CALL: EndPipeCall,
	},
	VariableAssignment: {
		token.RANGLE: EndRAngle,
		token.SEMI:   EndSemi,
	},
	AccessorFallbackValue: {
		token.RANGLE: EndRAngle,
		token.SEMI:   EndSemi,
	},
	ParamDefaultValue: {
		token.RBRACKET: EndRBracket,
		token.SEMI:     EndSemi,
	},
	CollectionInit: {
		token.SEMI:   EndSemi,
		token.RPAREN: EndRParen,
	},
	// SingleItem has no token-based terminator: it ends after parsing
	// exactly one item or on EOF, handled specially in parseSequence.
	SingleItem: {
		token.EOF: EndEOF,
	},
}

// ParsedSequence is the uniform result of one parseSequence call
// (spec.md §4.1).
type ParsedSequence struct {
	Nodes   []rst.Node
	EndType EndType
	IsText  bool // true if the sequence contains only printing content
	Extras  map[string]interface{}
}
