package parse_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbarrick/rant/lex"
	"github.com/cbarrick/rant/parse"
)

func compile(t *testing.T, src string) (*parse.CompilerMessage, error) {
	t.Helper()
	_, msgs, err := parse.CompileDiagnostics("t", lex.New("t", src), nil)
	if len(msgs) > 0 {
		return msgs[0], err
	}
	return nil, err
}

func TestCompileValidProgram(t *testing.T) {
	_, err := parse.Compile("t", lex.New("t", `<$x = 3>; {<x>}`), nil)
	require.NoError(t, err)
}

func TestCompileUnclosedBlockIsError(t *testing.T) {
	msg, err := compile(t, `{hello`)
	require.Error(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, parse.UnclosedBlock, msg.Code)
	assert.Equal(t, parse.SeverityError, msg.Severity)
}

func TestCompileUnusedVariableIsWarning(t *testing.T) {
	_, msgs, err := parse.CompileDiagnostics("t", lex.New("t", `<$unused = 1>`), nil)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, parse.UnusedVariable, msgs[0].Code)
	assert.True(t, msgs[0].Code.IsWarning())
}

func TestCompileConstantReassignmentIsError(t *testing.T) {
	_, _, err := parse.CompileDiagnostics("t", lex.New("t", `<%c = 1>; <c = 2>`), nil)
	assert.Error(t, err)
}

func TestCompileTrailingSemiInMapRejected(t *testing.T) {
	_, msgs, err := parse.CompileDiagnostics("t", lex.New("t", `@(a=1;)`), nil)
	require.Error(t, err)
	found := false
	for _, m := range msgs {
		if m.Code == parse.UnexpectedToken {
			found = true
		}
	}
	assert.True(t, found)
}
