package vm

import (
	"github.com/cbarrick/rant/rst"
	"github.com/cbarrick/rant/value"
)

// Intent is a resumable micro-operation attached to a frame, popped and
// executed by the tick loop (spec.md §4.6's "complete set").
type Intent interface {
	isIntent()
}

type intentBase struct{}

func (intentBase) isIntent() {}

type PrintLastIntent struct{ intentBase }

type ReturnLastIntent struct{ intentBase }
type ContinueLastIntent struct{ intentBase }
type BreakLastIntent struct{ intentBase }

type CheckBlockIntent struct{ intentBase }

type BuildWeightedBlockIntent struct {
	intentBase
	Block         *rst.Block
	Weights       []float64
	PendingIndex  int // index of the next dynamic weight to evaluate
}

type AccessKind int

const (
	AccessLocal AccessKind = iota
	AccessGlobal
	AccessDescope
)

type SetVarIntent struct {
	intentBase
	Name       string
	AccessKind AccessKind
	DescopeN   int
}

type DefVarIntent struct {
	intentBase
	Name       string
	AccessKind AccessKind
	DescopeN   int
	IsConst    bool
}

type BuildDynamicGetterIntent struct {
	intentBase
	Path         *rst.AccessPath
	PendingExprs []*rst.Sequence
	Values       []value.Value // accumulates DynamicExprs() results, in order
	Fallback     *rst.Sequence
	OverridePrint bool
}

type GetValueIntent struct {
	intentBase
	Path          *rst.AccessPath
	DynamicValues []value.Value
	Fallback      *rst.Sequence
	OverridePrint bool
}

type BuildDynamicSetterIntent struct {
	intentBase
	Path         *rst.AccessPath
	PendingExprs []*rst.Sequence
	Values       []value.Value
	Mode         rst.SetMode
	Source       rst.ValueSource
}

type SetValueIntent struct {
	intentBase
	Path          *rst.AccessPath
	DynamicValues []value.Value
	Mode          rst.SetMode
	Source        rst.ValueSource
}

type InvokeIntent struct {
	intentBase
	Target        *rst.Sequence
	ArgExprs      []rst.Argument
	ArgEvalIndex  int
	Flag          rst.CallFlag
	IsTemporal    bool
	HasTarget     bool
	TargetValue   value.Value
	Args          []value.Value
}

type TemporalSpreadState struct {
	// Counters tracks, per temporal argument (in first-appearance
	// order), the current iteration index. Arguments sharing a label
	// share a counter slot (spec.md §4.6, §4.1).
	Lengths  []int64
	Counters []int64
	Labels   []string // "" for unlabeled
}

// Len returns the total number of call iterations: the max of the
// per-slot lengths, or 0 if any slot has length 0 (spec.md §8 Boundary:
// "Temporal spread with one iteration-length-0 argument produces zero
// calls").
func (s *TemporalSpreadState) Len() int64 {
	if len(s.Lengths) == 0 {
		return 1
	}
	max := int64(0)
	for _, l := range s.Lengths {
		if l == 0 {
			return 0
		}
		if l > max {
			max = l
		}
	}
	return max
}

func (s *TemporalSpreadState) IsEmpty() bool { return s.Len() == 0 }

// Get returns the current value of slot i: the shared step count
// wrapped at that slot's own length.
func (s *TemporalSpreadState) Get(i int) int64 {
	if s.Lengths[i] == 0 {
		return 0
	}
	return s.Counters[i] % s.Lengths[i]
}

// Increment advances every slot by one step (grounded on
// original_source/src/lang.rs's TemporalSpreadState::increment, an
// odometer increment across all slots in lockstep, not a carry chain —
// Rant's temporal spread iterates slots together, not combinatorially).
func (s *TemporalSpreadState) Increment() {
	for i := range s.Counters {
		s.Counters[i]++
	}
}

type CallTemporalIntent struct {
	intentBase
	Func          value.Value
	Args          []value.Value
	TemporalArgs  map[int]int // positional arg index -> temporal slot index
	State         *TemporalSpreadState
	Flag          rst.CallFlag
	Done          int64 // number of iterations already called
}

type PipeStepState int

const (
	EvaluatingFunc PipeStepState = iota
	EvaluatingArgs
	PreCall
	PreTemporalCall
	PostCall
	PostTemporalCall
)

type InvokePipeStepIntent struct {
	intentBase
	Steps      []rst.PipeStep
	StepIndex  int
	State      PipeStepState
	ArgIndex   int
	Pipeval    value.Value
	Flag       rst.CallFlag
	EvaluatedFunc value.Value
	EvaluatedArgs []value.Value
}

type CallIntent struct {
	intentBase
	Argc          int
	Flag          rst.CallFlag
	OverridePrint bool
}

type BuildListIntent struct {
	intentBase
	Elements     []*rst.Sequence
	PendingIndex int
	Items        []value.Value
}

type BuildMapIntent struct {
	intentBase
	Entries      []rst.MapEntry
	PendingIndex int
	Result       *value.Map
	PendingKey   string
	OnValue      bool // false: about to evaluate the key (if dynamic); true: about to evaluate the value
}

type CreateDefaultArgsIntent struct {
	intentBase
	Context          *Frame
	DefaultArgExprs  []defaultArgSlot
	EvalIndex        int
}

type defaultArgSlot struct {
	Name string
	Expr *rst.Sequence
}

type ImportLastAsModuleIntent struct {
	intentBase
	ModuleName string
	Descope    rst.PathKind
	DescopeN   int
}

type RuntimeCallIntent struct {
	intentBase
	Native    value.NativeFunc
	Args      []value.Value
}

type DropStaleUnwindsIntent struct{ intentBase }

// ResumeWithValueIntent is the VM's generic "evaluate a nested
// expression, then continue" glue: pushContinuation queues one of these
// ahead of a freshly-pushed value frame so that, once that frame
// completes, its value is handed to Fn to resume the suspended
// computation (spec.md §4.6's intent queue is explicitly open-ended;
// this is not itself one of the named intents but the mechanism several
// of them — BuildDynamicGetter, BuildWeightedBlock, InvokePipeStep,
// CreateDefaultArgs — are specializations of).
type ResumeWithValueIntent struct {
	intentBase
	Fn func(vm *VM, v value.Value) error
}

// ResumeIntent is ResumeWithValueIntent's sibling for continuations that
// take nothing from the value stack: callAndCapture queues one on its
// wrapper frame and reads the wrapper's output once the call above it
// completes.
type ResumeIntent struct {
	intentBase
	Fn func(vm *VM) error
}
