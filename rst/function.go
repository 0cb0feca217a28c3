package rst

// ParamVarity mirrors value.Varity but lives in package rst to avoid an
// import cycle between rst and value (value.Function embeds rst data
// via an interface{} payload).
type ParamVarity int

const (
	Required ParamVarity = iota
	Optional
	VariadicStar
	VariadicPlus
)

// ValidTransition implements spec.md §3's varity ordering table:
// Required -> {Required, Optional, VariadicStar, VariadicPlus},
// Optional -> {Optional, VariadicStar}. Any other transition is a
// compile error.
//
// Grounded on original_source/src/lang.rs's Varity::is_valid_order.
func ValidTransition(prev, next ParamVarity) bool {
	switch prev {
	case Required:
		return true // any next is fine after Required
	case Optional:
		return next == Optional || next == VariadicStar
	default:
		return false // no parameter may follow a variadic parameter
	}
}

// Param is one function-signature parameter.
type Param struct {
	Name    string
	Varity  ParamVarity
	Default *Sequence // nil unless Varity == Optional and a default was given
}

// Function is a compiled function definition: a body sequence, arity
// bookkeeping and its capture set (spec.md §3).
type Function struct {
	base
	Name         string
	IsConst      bool
	IsLambda     bool
	Body         *Sequence
	Params       []Param
	MinArgs      int
	VariadicFrom int // == len(Params) if there is no variadic parameter
	Captures     []string
}

func (Function) DisplayName() string { return "function definition" }

// SpreadKind tags how a call argument is expanded (spec.md §4.1).
type SpreadKind int

const (
	SpreadNone SpreadKind = iota
	SpreadParametric       // '*arg': expand a list into positional args
	SpreadTemporal         // '@arg' or '@label arg': temporal spread
)

// Argument is one function-call argument.
type Argument struct {
	Expr        *Sequence
	Spread      SpreadKind
	TemporalTag string // the label after '@', "" for an unlabeled temporal spread
}

// CallFlag mirrors a block's print flag but scoped to a call
// (`!` = anonymous/sink print, spec.md §4.1).
type CallFlag int

const (
	CallPrint CallFlag = iota
	CallSink
)

// FuncCall is a direct call `[name:args]`.
type FuncCall struct {
	base
	Target    *Sequence // the callee expression (usually a Getter)
	Args      []Argument
	Flag      CallFlag
	IsAnon    bool
}

func (FuncCall) DisplayName() string { return "function call" }

// PipeStep is one stage of a `[a|>b|>c:args]` pipe chain.
type PipeStep struct {
	Target      *Sequence
	Args        []Argument
	UsesPipeval bool // set by the parser; when false the VM inserts the
	                 // previous step's result as the first positional arg
}

// PipedCall chains function calls, threading each step's result into
// the next as an implicit or explicit pipe value.
type PipedCall struct {
	base
	Steps []PipeStep
	Flag  CallFlag
}

func (PipedCall) DisplayName() string { return "piped call" }

// PipeValueRef reads the implicit pipe value inside a pipe step.
type PipeValueRef struct{ base }

func (PipeValueRef) DisplayName() string { return "pipe value" }
