package stdlib_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbarrick/rant/stdlib"
	"github.com/cbarrick/rant/value"
	"github.com/cbarrick/rant/vm"
)

func call(t *testing.T, name string, args ...value.Value) value.Value {
	t.Helper()
	fn := stdlib.Load()[name].AsFunction()
	machine := vm.New(nil)
	require.NoError(t, fn.Native(machine, args))
	got, err := machine.PopValue()
	require.NoError(t, err)
	return got
}

func TestAdd(t *testing.T) {
	assert.True(t, value.Equal(call(t, "add", value.Int(2), value.Int(3)), value.Int(5)))
}

func TestSumOverList(t *testing.T) {
	l := value.ListVal(value.NewList(value.Int(10), value.Int(20), value.Int(30)))
	assert.True(t, value.Equal(call(t, "sum", l), value.Int(60)))
}

func TestSumRejectsNonList(t *testing.T) {
	fn := stdlib.Load()["sum"].AsFunction()
	machine := vm.New(nil)
	err := fn.Native(machine, []value.Value{value.Int(1)})
	assert.Error(t, err)
}

func TestLen(t *testing.T) {
	assert.True(t, value.Equal(call(t, "len", value.String("hello")), value.Int(5)))
}

func TestUpperLower(t *testing.T) {
	assert.True(t, value.Equal(call(t, "upper", value.String("abc")), value.String("ABC")))
	assert.True(t, value.Equal(call(t, "lower", value.String("ABC")), value.String("abc")))
}

func TestNumParsesString(t *testing.T) {
	assert.True(t, value.Equal(call(t, "num", value.String("3.5")), value.Float(3.5)))
}

func TestStrStringifies(t *testing.T) {
	assert.True(t, value.Equal(call(t, "str", value.Int(42)), value.String("42")))
}

func TestSeedSwapsActiveRng(t *testing.T) {
	fn := stdlib.Load()["seed"].AsFunction()
	machine := vm.New(nil)
	require.NoError(t, fn.Native(machine, []value.Value{value.Int(7)}))
}

func TestLoadCoversEveryDocumentedNative(t *testing.T) {
	names := []string{"add", "sub", "mul", "div", "mod", "sum", "len", "rev", "upper", "lower", "seed", "num", "str"}
	loaded := stdlib.Load()
	for _, n := range names {
		_, ok := loaded[n]
		assert.True(t, ok, "missing native %q", n)
	}
}
