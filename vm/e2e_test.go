package vm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbarrick/rant/lex"
	"github.com/cbarrick/rant/parse"
	"github.com/cbarrick/rant/rng"
	"github.com/cbarrick/rant/stdlib"
	"github.com/cbarrick/rant/value"
	"github.com/cbarrick/rant/vm"
)

// fixedRng always picks a caller-chosen index, for deterministic
// block-selection scenarios (spec.md §8 scenario 3).
type fixedRng struct{ pick int }

func (f fixedRng) NextUnweighted(n int) int          { return f.pick }
func (f fixedRng) NextWeighted(weights []float64) int { return f.pick }

func run(t *testing.T, src string, r vm.RantRng) (string, error) {
	t.Helper()
	prog, err := parse.Compile("t", lex.New("t", src), nil)
	require.NoError(t, err)
	machine := vm.New(nil)
	_, out, err := machine.Run(prog, r, stdlib.Load())
	return out, err
}

// spec.md §8 scenario 1.
func TestScenarioVariableGetter(t *testing.T) {
	out, err := run(t, `<$x = 3>; {<x>}`, rng.New(1))
	require.NoError(t, err)
	assert.Equal(t, "3", out)
}

// spec.md §8 scenario 2.
func TestScenarioFunctionCall(t *testing.T) {
	out, err := run(t, `[$double:n]{[mul:<n>;2]}; [double:21]`, rng.New(1))
	require.NoError(t, err)
	assert.Equal(t, "42", out)
}

// spec.md §8 scenario 3: seeded RNG picks element 1.
func TestScenarioBlockPick(t *testing.T) {
	out, err := run(t, `{hello|world}`, fixedRng{pick: 1})
	require.NoError(t, err)
	assert.Equal(t, "world", out)
}

// spec.md §8 scenario 4: stdlib sum over a list.
func TestScenarioStdlibSum(t *testing.T) {
	out, err := run(t, `<$xs=(10;20;30)>; [sum:<xs>]`, rng.New(1))
	require.NoError(t, err)
	assert.Equal(t, "60", out)
}

// spec.md §8 scenario 5: anonymous function value invoked directly.
func TestScenarioAnonymousCall(t *testing.T) {
	out, err := run(t, `[[?:n]{[add:<n>;1]}:5]`, rng.New(1))
	require.NoError(t, err)
	assert.Equal(t, "6", out)
}

// spec.md §8 scenario 6: default-argument evaluation.
func TestScenarioDefaultArg(t *testing.T) {
	out, err := run(t, `[$f:n?=7]{<n>}; [f:]`, rng.New(1))
	require.NoError(t, err)
	assert.Equal(t, "7", out)
}

func TestRunReturnsFinalValue(t *testing.T) {
	prog, err := parse.Compile("t", lex.New("t", `<$x = 3>`), nil)
	require.NoError(t, err)
	machine := vm.New(nil)
	result, _, err := machine.Run(prog, rng.New(1), stdlib.Load())
	require.NoError(t, err)
	assert.True(t, value.Equal(result, value.Empty()) || result.Kind() != value.KindEmpty)
}
