package patchlang

import (
	"testing"

	"github.com/ekg/phonon/internal/compiler"
	"github.com/stretchr/testify/require"
)

func TestJSONParserDecodesProgram(t *testing.T) {
	src := []byte(`{
		"statements": [
			{"kind": "tempo", "cps": {"kind": "number", "value": 0.5}},
			{"kind": "macro", "name": "speed", "source": "1 2 3 4"},
			{"kind": "bus", "name": "osc1", "expr": {"kind": "call", "func": "sine", "args": [{"kind": "number", "value": 440}]}},
			{"kind": "output", "name": "out", "expr": {"kind": "call", "func": "fast", "args": [{"kind": "macroref", "name": "speed"}, {"kind": "busref", "name": "osc1"}]}}
		]
	}`)

	prog, err := JSONParser{}.Parse(src)
	require.NoError(t, err)
	require.Len(t, prog.Statements, 4)

	tempo, ok := prog.Statements[0].(compiler.TempoStmt)
	require.True(t, ok)
	require.Equal(t, compiler.NumberExpr{Value: 0.5}, tempo.CPS)

	macro, ok := prog.Statements[1].(compiler.PatternMacro)
	require.True(t, ok)
	require.Equal(t, "speed", macro.Name)
	require.Equal(t, "1 2 3 4", macro.Source)

	bus, ok := prog.Statements[2].(compiler.BusDef)
	require.True(t, ok)
	call, ok := bus.Expr.(compiler.CallExpr)
	require.True(t, ok)
	require.Equal(t, "sine", call.Func)

	out, ok := prog.Statements[3].(compiler.OutputStmt)
	require.True(t, ok)
	require.Equal(t, "out", out.Name)
	outCall, ok := out.Expr.(compiler.CallExpr)
	require.True(t, ok)
	require.Equal(t, "fast", outCall.Func)
	require.Len(t, outCall.Args, 2)
	_, ok = outCall.Args[0].(compiler.MacroRefExpr)
	require.True(t, ok)
}

func TestJSONParserRejectsUnknownKind(t *testing.T) {
	_, err := JSONParser{}.Parse([]byte(`{"statements": [{"kind": "bogus"}]}`))
	require.Error(t, err)
}
