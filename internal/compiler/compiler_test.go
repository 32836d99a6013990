package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ekg/phonon/internal/graph"
	"github.com/ekg/phonon/internal/pattern"
	"github.com/ekg/phonon/internal/samplebank"
	"github.com/ekg/phonon/internal/timefrac"
	"github.com/ekg/phonon/internal/voice"
)

func TestCompileSineToOutput(t *testing.T) {
	prog := Program{Statements: []Statement{
		OutputStmt{Name: "out", Expr: CallExpr{Func: "sine", Args: []Expr{NumberExpr{Value: 440}}}},
	}}
	c := New(44100, nil, nil)
	g, err := c.Compile(prog)
	require.NoError(t, err)
	require.Contains(t, g.OutputNames(), "out")
	require.Greater(t, g.NodeCount(), 0)

	// A sine at 440Hz should move away from 0 within a handful of samples.
	var sawNonzero bool
	for i := 0; i < 32; i++ {
		if g.TickSample("out") != 0 {
			sawNonzero = true
		}
	}
	require.True(t, sawNonzero)
}

func TestCompileBusReferenceAndFilter(t *testing.T) {
	prog := Program{Statements: []Statement{
		BusDef{Name: "osc", Expr: CallExpr{Func: "saw", Args: []Expr{NumberExpr{Value: 220}}}},
		OutputStmt{Name: "out", Expr: CallExpr{Func: "lpf", Args: []Expr{
			BusRefExpr{Name: "osc"}, NumberExpr{Value: 800}, NumberExpr{Value: 0.7},
		}}},
	}}
	c := New(44100, nil, nil)
	g, err := c.Compile(prog)
	require.NoError(t, err)
	for i := 0; i < 16; i++ {
		g.TickSample("out")
	}
}

func TestCompileUnknownBusErrors(t *testing.T) {
	prog := Program{Statements: []Statement{
		OutputStmt{Name: "out", Expr: BusRefExpr{Name: "nope"}},
	}}
	c := New(44100, nil, nil)
	_, err := c.Compile(prog)
	require.Error(t, err)
	var ce *graph.CompileError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, graph.UnknownBus, ce.Kind)
}

func TestCompileCyclicBusErrors(t *testing.T) {
	prog := Program{Statements: []Statement{
		BusDef{Name: "a", Expr: BusRefExpr{Name: "b"}},
		BusDef{Name: "b", Expr: BusRefExpr{Name: "a"}},
		OutputStmt{Name: "out", Expr: BusRefExpr{Name: "a"}},
	}}
	c := New(44100, nil, nil)
	_, err := c.Compile(prog)
	require.Error(t, err)
	var ce *graph.CompileError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, graph.CyclicBusGraph, ce.Kind)
}

func TestCompileTempoRejectsNonConstant(t *testing.T) {
	prog := Program{Statements: []Statement{
		TempoStmt{CPS: BusRefExpr{Name: "x"}},
	}}
	c := New(44100, nil, nil)
	_, err := c.Compile(prog)
	require.Error(t, err)
	var ce *graph.CompileError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, graph.PatternRefNotAllowedHere, ce.Kind)
}

func TestCompilePatternMacroAndTransform(t *testing.T) {
	prog := Program{Statements: []Statement{
		PatternMacro{Name: "beat", Source: "bd sn"},
		OutputStmt{Name: "out", Expr: CallExpr{Func: "pat", Args: []Expr{
			CallExpr{Func: "fast", Args: []Expr{NumberExpr{Value: 2}, MacroRefExpr{Name: "beat"}}},
		}}},
	}}
	c := New(44100, nil, nil)
	g, err := c.Compile(prog)
	require.NoError(t, err)
	require.NotNil(t, g)
}

func TestTriggerPatternPlaysSampleThroughVoiceManager(t *testing.T) {
	bank := samplebank.New("")
	bank.Put("bd", []samplebank.Data{{Frames: []float32{1, 1, 1, 1}, Channels: 1}})
	vm := voice.NewManager(44100)

	prog := Program{Statements: []Statement{
		OutputStmt{Name: "out", Expr: CallExpr{Func: "voices"}},
		BusDef{Name: "trig", Expr: CallExpr{Func: "s", Args: []Expr{PatternExpr{Source: "bd"}}}},
	}}
	c := New(44100, bank, vm)
	g, err := c.Compile(prog)
	require.NoError(t, err)

	var heardSound bool
	for i := 0; i < 44100*2; i++ {
		if g.TickSample("out") != 0 {
			heardSound = true
			break
		}
	}
	require.True(t, heardSound, "expected the sample trigger to produce audible output within two cycles")
}

// TestFastWithPatternValuedRate covers a macro-driven rate ("%speed = '1 2 3
// 4'" feeding "fast %speed"): each cycle's event count should track that
// cycle's resolved rate rather than requiring a constant.
func TestFastWithPatternValuedRate(t *testing.T) {
	prog := Program{Statements: []Statement{
		PatternMacro{Name: "speed", Source: "1 2 3 4"},
		OutputStmt{Name: "out", Expr: CallExpr{Func: "pat", Args: []Expr{
			CallExpr{Func: "fast", Args: []Expr{MacroRefExpr{Name: "speed"}, PatternExpr{Source: "bd"}}},
		}}},
	}}
	c := New(44100, nil, nil)
	g, err := c.Compile(prog)
	require.NoError(t, err)
	require.NotNil(t, g)

	p, err := compilePatternForTest("fast", "speed", "1 2 3 4", "bd")
	require.NoError(t, err)

	for cyc := int64(0); cyc < 4; cyc++ {
		haps := p.QuerySpan(timefrac.FromInt(cyc), timefrac.FromInt(cyc+1))
		require.Len(t, haps, int(cyc+1), "cycle %d should carry %d events", cyc, cyc+1)
	}
}

// compilePatternForTest builds fast(%macroName, base) standalone, bypassing
// the graph so the per-cycle event count can be inspected directly.
func compilePatternForTest(fn, macroName, macroSrc, base string) (pattern.Pattern[string], error) {
	c := &Compiler{macros: map[string]string{macroName: macroSrc}}
	call := CallExpr{Func: fn, Args: []Expr{MacroRefExpr{Name: macroName}, PatternExpr{Source: base}}}
	return c.compilePatternTransform(call)
}
