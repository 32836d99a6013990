package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ekg/phonon/internal/graph"
	"github.com/ekg/phonon/internal/notefreq"
	"github.com/ekg/phonon/internal/pattern"
	"github.com/ekg/phonon/internal/samplebank"
	"github.com/ekg/phonon/internal/timefrac"
	"github.com/ekg/phonon/internal/voice"
)

// Compiler builds a graph.Graph from a Program. Grounded on player.go's
// buildEffectChain/createEffect (string-keyed dispatch from a parsed
// directive to a concrete constructor, with a getParam-style default-filled
// positional-argument reader) as the model for compiling a CallExpr to a
// graph.Node, and on scoreUsedModules/engineForModule (name resolved once,
// up front, memoized by name) as the model for bus-table resolution.
type Compiler struct {
	g          *graph.Graph
	bank       *samplebank.Bank
	vm         *voice.Manager
	sampleRate float64

	macros    map[string]string
	busDef    map[string]BusDef
	busID     map[string]graph.NodeId
	resolving map[string]bool
}

// New creates a Compiler targeting a fresh graph at the given sample rate,
// wired to bank for sample-name trigger resolution and vm for voice
// playback (both may be nil if the program has no `s(...)` trigger sinks).
func New(sampleRate float64, bank *samplebank.Bank, vm *voice.Manager) *Compiler {
	return &Compiler{
		g:          graph.NewGraph(sampleRate, 1.0),
		bank:       bank,
		vm:         vm,
		sampleRate: sampleRate,
		macros:     make(map[string]string),
		busDef:     make(map[string]BusDef),
		busID:      make(map[string]graph.NodeId),
		resolving:  make(map[string]bool),
	}
}

// Compile builds prog into a graph, wiring buses, pattern macros, and
// output routing. Returns the first CompileError or parse error encountered.
func (c *Compiler) Compile(prog Program) (*graph.Graph, error) {
	if err := c.collectDefs(prog.Statements); err != nil {
		return nil, err
	}
	for name := range c.busDef {
		if _, err := c.resolveBus(name); err != nil {
			return nil, err
		}
	}
	if err := c.execOutputs(prog.Statements); err != nil {
		return nil, err
	}
	return c.g, nil
}

func (c *Compiler) collectDefs(stmts []Statement) error {
	for _, s := range stmts {
		switch v := s.(type) {
		case PatternMacro:
			c.macros[v.Name] = v.Source
		case BusDef:
			c.busDef[v.Name] = v
		case ForStmt:
			for i := v.From; i <= v.To; i++ {
				if err := c.collectDefs(v.Body); err != nil {
					return err
				}
			}
		case IfStmt:
			branch := v.Then
			if !v.Cond {
				branch = v.Else
			}
			if err := c.collectDefs(branch); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Compiler) execOutputs(stmts []Statement) error {
	for _, s := range stmts {
		switch v := s.(type) {
		case TempoStmt:
			cps, err := evalConstNumber(v.CPS)
			if err != nil {
				return err
			}
			c.g.SetCPS(cps)
		case OutputStmt:
			id, err := c.compileExpr(v.Expr)
			if err != nil {
				return err
			}
			outID := c.g.AddNode(&graph.OutputNode{In: id})
			c.g.SetOutput(v.Name, outID)
		case ForStmt:
			for i := v.From; i <= v.To; i++ {
				if err := c.execOutputs(v.Body); err != nil {
					return err
				}
			}
		case IfStmt:
			branch := v.Then
			if !v.Cond {
				branch = v.Else
			}
			if err := c.execOutputs(branch); err != nil {
				return err
			}
		}
	}
	return nil
}

// evalConstNumber requires e to be a literal — used anywhere the spec
// treats a value as compile-time-only (tempo, pattern-transform numeric
// parameters), matching the real implementation's rule that only a bare
// literal is accepted there.
func evalConstNumber(e Expr) (float64, error) {
	if n, ok := e.(NumberExpr); ok {
		return n.Value, nil
	}
	return 0, &graph.CompileError{Kind: graph.PatternRefNotAllowedHere}
}

func (c *Compiler) resolveBus(name string) (graph.NodeId, error) {
	if id, ok := c.busID[name]; ok {
		return id, nil
	}
	def, ok := c.busDef[name]
	if !ok {
		return 0, &graph.CompileError{Kind: graph.UnknownBus, Name: name}
	}
	if c.resolving[name] {
		return 0, &graph.CompileError{Kind: graph.CyclicBusGraph, Name: name}
	}
	c.resolving[name] = true
	id, err := c.compileExpr(def.Expr)
	delete(c.resolving, name)
	if err != nil {
		return 0, err
	}
	c.busID[name] = id
	c.g.SetBus(name, id)
	return id, nil
}

// compileExpr compiles e into a signal-rate node and returns its id. Pattern
// literals and macro references compile to a non-trigger PatternNode here —
// the mechanism that makes a pattern a first-class audio-rate control
// signal wherever a scalar would otherwise go (spec §4.2.2).
func (c *Compiler) compileExpr(e Expr) (graph.NodeId, error) {
	switch v := e.(type) {
	case NumberExpr:
		return c.g.AddNode(&graph.ConstNode{Value: float32(v.Value)}), nil
	case BusRefExpr:
		return c.resolveBus(v.Name)
	case PatternExpr:
		pat, err := pattern.ParseMini(v.Source)
		if err != nil {
			return 0, err
		}
		return c.g.AddNode(&graph.PatternNode{Pattern: pat, Resolve: resolveToken}), nil
	case MacroRefExpr:
		src, ok := c.macros[v.Name]
		if !ok {
			return 0, fmt.Errorf("compiler: unknown pattern macro %%%s", v.Name)
		}
		pat, err := pattern.ParseMini(src)
		if err != nil {
			return 0, err
		}
		return c.g.AddNode(&graph.PatternNode{Pattern: pat, Resolve: resolveToken}), nil
	case CallExpr:
		return c.compileCall(v)
	case StringExpr:
		return 0, fmt.Errorf("compiler: bareword %q used where a value is expected", v.Value)
	}
	return 0, fmt.Errorf("compiler: unknown expr %T", e)
}

// resolveToken turns a Hap's raw token into the numeric value a Pattern
// node emits as a control signal: a plain number, else a note name, else 0
// (silence) for anything else (e.g. a sample name used in a control
// context, which has no numeric meaning).
func resolveToken(tok string) float32 {
	if tok == "" {
		return 0
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return float32(f)
	}
	if hz, err := notefreq.ParseNote(tok); err == nil {
		return float32(hz)
	}
	return 0
}

// isPatternValuedArg reports whether e names a pattern (a macro reference or
// an inline mini-notation literal) rather than a bare number — the
// distinction "fast %speed" vs. "fast 2" needs before picking FastByPattern
// over the constant-rate Fast.
func isPatternValuedArg(e Expr) bool {
	switch e.(type) {
	case MacroRefExpr, PatternExpr:
		return true
	}
	return false
}

// numericPatternValue compiles e as a pattern and maps each hap's token
// through resolveToken, turning a macro like `%speed = "1 2 3 4"` into the
// Pattern[float64] that pattern.FastByPattern/DegradeByPattern require.
func (c *Compiler) numericPatternValue(e Expr) (pattern.Pattern[float64], error) {
	p, err := c.compilePatternValue(e)
	if err != nil {
		return pattern.Pattern[float64]{}, err
	}
	return pattern.Pattern[float64]{Query: func(st pattern.State) []pattern.Hap[float64] {
		haps := p.Query(st)
		out := make([]pattern.Hap[float64], len(haps))
		for i, h := range haps {
			out[i] = pattern.Hap[float64]{Whole: h.Whole, Part: h.Part, Value: float64(resolveToken(h.Value))}
		}
		return out
	}}, nil
}

// invertRatePattern maps a rate pattern's values through 1/v, the per-event
// equivalent of Slow(r, p) == Fast(1/r, p) for a pattern-valued rate.
func invertRatePattern(p pattern.Pattern[float64]) pattern.Pattern[float64] {
	return pattern.Pattern[float64]{Query: func(st pattern.State) []pattern.Hap[float64] {
		haps := p.Query(st)
		out := make([]pattern.Hap[float64], len(haps))
		for i, h := range haps {
			v := h.Value
			if v == 0 {
				v = 1
			}
			out[i] = pattern.Hap[float64]{Whole: h.Whole, Part: h.Part, Value: 1 / v}
		}
		return out
	}}
}

var waveformByName = map[string]graph.Waveform{
	"sine": graph.WaveSine, "saw": graph.WaveSaw, "square": graph.WaveSquare,
	"triangle": graph.WaveTriangle, "pulse": graph.WavePulse,
}

var filterKindByName = map[string]graph.FilterKind{
	"lpf": graph.FilterLowPass, "hpf": graph.FilterHighPass, "bpf": graph.FilterBandPass,
	"notch": graph.FilterNotch, "allpass": graph.FilterAllpass, "peak": graph.FilterPeaking,
	"lowshelf": graph.FilterLowShelf, "highshelf": graph.FilterHighShelf,
}

// compileCall dispatches a CallExpr to a concrete graph.Node constructor,
// the same string-keyed-switch-with-positional-defaults shape as
// createEffect. argNum/argNode read a positional argument as a constant or
// a compiled signal-rate node respectively, defaulting when absent.
func (c *Compiler) compileCall(call CallExpr) (graph.NodeId, error) {
	argNum := func(i int, def float64) float64 {
		if i < len(call.Args) {
			if n, ok := call.Args[i].(NumberExpr); ok {
				return n.Value
			}
		}
		return def
	}
	argNode := func(i int) (graph.NodeId, bool, error) {
		if i >= len(call.Args) {
			return 0, false, nil
		}
		id, err := c.compileExpr(call.Args[i])
		if err != nil {
			return 0, false, err
		}
		return id, true, nil
	}

	switch call.Func {
	case "sine", "saw", "square", "triangle", "pulse":
		osc := graph.NewOscillator(c.sampleRate, waveformByName[call.Func])
		if id, ok, err := argNode(0); err != nil {
			return 0, err
		} else if ok {
			osc.FreqIn = id
		} else {
			osc.FreqHz = argNum(0, 440)
		}
		return c.g.AddNode(osc), nil

	case "noise", "pink", "brown":
		kind := map[string]graph.NoiseKind{"noise": graph.NoiseWhite, "pink": graph.NoisePink, "brown": graph.NoiseBrown}[call.Func]
		return c.g.AddNode(graph.NewNoise(kind, uint64(argNum(0, 0)))), nil

	case "lpf", "hpf", "bpf", "notch", "allpass", "peak", "lowshelf", "highshelf":
		in, _, err := argNode(0)
		if err != nil {
			return 0, err
		}
		f := graph.NewFilter(filterKindByName[call.Func], in)
		if id, ok, err := argNode(1); err != nil {
			return 0, err
		} else if ok {
			f.CutoffIn = id
		} else {
			f.CutoffHz = argNum(1, 1000)
		}
		if id, ok, err := argNode(2); err != nil {
			return 0, err
		} else if ok {
			f.QIn = id
		} else {
			f.Q = argNum(2, 0.707)
		}
		f.GainDB = argNum(3, 0)
		return c.g.AddNode(f), nil

	case "env", "adsr":
		gate, _, err := argNode(0)
		if err != nil {
			return 0, err
		}
		e := graph.NewEnvelope(gate)
		e.AttackSec = argNum(1, 0.01)
		e.DecaySec = argNum(2, 0.1)
		e.Sustain = argNum(3, 0.7)
		e.ReleaseSec = argNum(4, 0.3)
		return c.g.AddNode(e), nil

	case "delay":
		in, _, err := argNode(0)
		if err != nil {
			return 0, err
		}
		d := graph.NewDelay(c.sampleRate, 2.0, in)
		if id, ok, err := argNode(1); err != nil {
			return 0, err
		} else if ok {
			d.TimeIn = id
		} else {
			d.TimeSec = argNum(1, 0.3)
		}
		if id, ok, err := argNode(2); err != nil {
			return 0, err
		} else if ok {
			d.FeedbackIn = id
		} else {
			d.Feedback = argNum(2, 0.4)
		}
		return c.g.AddNode(d), nil

	case "chorus":
		in, _, err := argNode(0)
		if err != nil {
			return 0, err
		}
		return c.g.AddNode(graph.NewChorus(c.sampleRate, in)), nil

	case "phaser":
		in, _, err := argNode(0)
		if err != nil {
			return 0, err
		}
		return c.g.AddNode(graph.NewPhaser(in)), nil

	case "reverb":
		in, _, err := argNode(0)
		if err != nil {
			return 0, err
		}
		r := graph.NewReverb(c.sampleRate, in)
		r.RoomSize = argNum(1, 0.5)
		r.Mix = argNum(2, 0.3)
		return c.g.AddNode(r), nil

	case "tremolo":
		in, _, err := argNode(0)
		if err != nil {
			return 0, err
		}
		return c.g.AddNode(&graph.TremoloNode{In: in, RateHz: argNum(1, 5), Depth: argNum(2, 0.5)}), nil

	case "gate":
		in, _, err := argNode(0)
		if err != nil {
			return 0, err
		}
		return c.g.AddNode(&graph.GateNode{In: in, Threshold: float32(argNum(1, 0.05))}), nil

	case "compress":
		in, _, err := argNode(0)
		if err != nil {
			return 0, err
		}
		comp := graph.NewCompress(in)
		comp.ThresholdDB = argNum(1, -18)
		comp.Ratio = argNum(2, 4)
		return c.g.AddNode(comp), nil

	case "distort":
		in, _, err := argNode(0)
		if err != nil {
			return 0, err
		}
		return c.g.AddNode(&graph.DistortNode{In: in, Drive: argNum(1, 2)}), nil

	case "bitcrush":
		in, _, err := argNode(0)
		if err != nil {
			return 0, err
		}
		return c.g.AddNode(&graph.BitcrushNode{In: in, Bits: int(argNum(1, 8)), DownsampleN: int(argNum(2, 1))}), nil

	case "mul":
		a, _, err := argNode(0)
		if err != nil {
			return 0, err
		}
		b, _, err := argNode(1)
		if err != nil {
			return 0, err
		}
		return c.g.AddNode(&graph.MultiplyNode{A: a, B: b}), nil

	case "add":
		a, _, err := argNode(0)
		if err != nil {
			return 0, err
		}
		b, _, err := argNode(1)
		if err != nil {
			return 0, err
		}
		return c.g.AddNode(&graph.AddNode{A: a, B: b}), nil

	case "pan":
		in, _, err := argNode(0)
		if err != nil {
			return 0, err
		}
		return c.g.AddNode(&graph.PanPairNode{In: in, Pan: argNum(1, 0)}), nil

	case "s", "sound":
		if len(call.Args) < 1 {
			return 0, fmt.Errorf("compiler: s() needs a pattern argument")
		}
		pat, err := c.compilePatternValue(call.Args[0])
		if err != nil {
			return 0, err
		}
		node := &graph.PatternNode{Pattern: pat, Resolve: resolveToken, Trigger: c.makeTrigger()}
		return c.g.AddNode(node), nil

	case "pat", "n", "note":
		if len(call.Args) < 1 {
			return 0, fmt.Errorf("compiler: %s() needs a pattern argument", call.Func)
		}
		pat, err := c.compilePatternValue(call.Args[0])
		if err != nil {
			return 0, err
		}
		return c.g.AddNode(&graph.PatternNode{Pattern: pat, Resolve: resolveToken}), nil

	case "voices":
		return c.g.AddNode(&graph.VoiceSinkNode{VM: c.vm}), nil
	}
	return 0, fmt.Errorf("compiler: unknown function %q", call.Func)
}

// compilePatternValue reduces e to a pattern.Pattern[string] via pure
// pattern-algebra composition (no graph nodes created) — the compile-time
// side of the split spec §4.1/§4.2 draws between the pattern algebra
// (function composition over Query) and the signal graph (per-sample DSP).
func (c *Compiler) compilePatternValue(e Expr) (pattern.Pattern[string], error) {
	switch v := e.(type) {
	case PatternExpr:
		return pattern.ParseMini(v.Source)
	case MacroRefExpr:
		src, ok := c.macros[v.Name]
		if !ok {
			return pattern.Pattern[string]{}, fmt.Errorf("compiler: unknown pattern macro %%%s", v.Name)
		}
		return pattern.ParseMini(src)
	case CallExpr:
		return c.compilePatternTransform(v)
	}
	return pattern.Pattern[string]{}, fmt.Errorf("compiler: %T is not a pattern expression", e)
}

func transformByName(name string) (func(pattern.Pattern[string]) pattern.Pattern[string], bool) {
	switch name {
	case "rev":
		return pattern.Rev[string], true
	case "palindrome":
		return pattern.Palindrome[string], true
	case "loopFirst":
		return pattern.LoopFirst[string], true
	case "hush":
		return func(pattern.Pattern[string]) pattern.Pattern[string] { return pattern.Silence[string]() }, true
	}
	return nil, false
}

// compilePatternTransform handles the pattern-algebra transform calls:
// numeric parameters must be constants (evalConstNumber), except that the
// first argument of fast/slow/degradeBy may also be a pattern
// (isPatternValuedArg), the base pattern
// argument recurses through compilePatternValue so transforms nest
// (`fast(2, degradeBy(0.3, "bd*8"))`), and "which transform" parameters
// (every/sometimes/...) are named via StringExpr against transformByName.
func (c *Compiler) compilePatternTransform(call CallExpr) (pattern.Pattern[string], error) {
	need := func(n int) error {
		if len(call.Args) < n {
			return fmt.Errorf("compiler: %s wants %d args, got %d", call.Func, n, len(call.Args))
		}
		return nil
	}
	switch call.Func {
	case "fast", "slow":
		if err := need(2); err != nil {
			return pattern.Pattern[string]{}, err
		}
		base, err := c.compilePatternValue(call.Args[1])
		if err != nil {
			return pattern.Pattern[string]{}, err
		}
		if isPatternValuedArg(call.Args[0]) {
			ratePat, err := c.numericPatternValue(call.Args[0])
			if err != nil {
				return pattern.Pattern[string]{}, err
			}
			if call.Func == "fast" {
				return pattern.FastByPattern(ratePat, base), nil
			}
			return pattern.FastByPattern(invertRatePattern(ratePat), base), nil
		}
		rate, err := evalConstNumber(call.Args[0])
		if err != nil {
			return pattern.Pattern[string]{}, err
		}
		fr := timefrac.FromFloat(rate, 1<<20)
		if call.Func == "fast" {
			return pattern.Fast(fr, base), nil
		}
		return pattern.Slow(fr, base), nil

	case "early", "late", "rotL", "rotR", "offset":
		if err := need(2); err != nil {
			return pattern.Pattern[string]{}, err
		}
		t, err := evalConstNumber(call.Args[0])
		if err != nil {
			return pattern.Pattern[string]{}, err
		}
		base, err := c.compilePatternValue(call.Args[1])
		if err != nil {
			return pattern.Pattern[string]{}, err
		}
		fr := timefrac.FromFloat(t, 1<<20)
		switch call.Func {
		case "early":
			return pattern.Early(fr, base), nil
		case "rotL":
			return pattern.RotL(fr, base), nil
		case "rotR":
			return pattern.RotR(fr, base), nil
		default:
			return pattern.Late(fr, base), nil
		}

	case "every":
		if err := need(3); err != nil {
			return pattern.Pattern[string]{}, err
		}
		n, err := evalConstNumber(call.Args[0])
		if err != nil {
			return pattern.Pattern[string]{}, err
		}
		name, ok := call.Args[1].(StringExpr)
		if !ok {
			return pattern.Pattern[string]{}, fmt.Errorf("compiler: every's 2nd arg must name a transform")
		}
		f, ok := transformByName(name.Value)
		if !ok {
			return pattern.Pattern[string]{}, fmt.Errorf("compiler: unknown transform %q", name.Value)
		}
		base, err := c.compilePatternValue(call.Args[2])
		if err != nil {
			return pattern.Pattern[string]{}, err
		}
		return pattern.Every(int64(n), f, base), nil

	case "degradeBy":
		if err := need(2); err != nil {
			return pattern.Pattern[string]{}, err
		}
		base, err := c.compilePatternValue(call.Args[1])
		if err != nil {
			return pattern.Pattern[string]{}, err
		}
		if isPatternValuedArg(call.Args[0]) {
			probPat, err := c.numericPatternValue(call.Args[0])
			if err != nil {
				return pattern.Pattern[string]{}, err
			}
			return pattern.DegradeByPattern(0, probPat, base), nil
		}
		prob, err := evalConstNumber(call.Args[0])
		if err != nil {
			return pattern.Pattern[string]{}, err
		}
		return pattern.DegradeBy(0, prob, base), nil

	case "sometimes", "often", "rarely":
		if err := need(2); err != nil {
			return pattern.Pattern[string]{}, err
		}
		name, ok := call.Args[0].(StringExpr)
		if !ok {
			return pattern.Pattern[string]{}, fmt.Errorf("compiler: %s's 1st arg must name a transform", call.Func)
		}
		f, ok := transformByName(name.Value)
		if !ok {
			return pattern.Pattern[string]{}, fmt.Errorf("compiler: unknown transform %q", name.Value)
		}
		base, err := c.compilePatternValue(call.Args[1])
		if err != nil {
			return pattern.Pattern[string]{}, err
		}
		switch call.Func {
		case "sometimes":
			return pattern.Sometimes(0, f, base), nil
		case "often":
			return pattern.Often(0, f, base), nil
		default:
			return pattern.Rarely(0, f, base), nil
		}

	case "ply", "stutter":
		if err := need(2); err != nil {
			return pattern.Pattern[string]{}, err
		}
		n, err := evalConstNumber(call.Args[0])
		if err != nil {
			return pattern.Pattern[string]{}, err
		}
		base, err := c.compilePatternValue(call.Args[1])
		if err != nil {
			return pattern.Pattern[string]{}, err
		}
		return pattern.Ply(int64(n), base), nil

	case "palindrome", "loopFirst":
		if err := need(1); err != nil {
			return pattern.Pattern[string]{}, err
		}
		base, err := c.compilePatternValue(call.Args[0])
		if err != nil {
			return pattern.Pattern[string]{}, err
		}
		f, _ := transformByName(call.Func)
		return f(base), nil
	}
	return pattern.Pattern[string]{}, fmt.Errorf("compiler: %q is not a pattern transform", call.Func)
}

// busGenSpec inspects a `~name`'s definition to recover the waveform/
// frequency a bus-trigger voice should replay, defaulting to a 440Hz sine
// when the bus isn't a plain oscillator call — see graph.SynthVoiceSource's
// doc comment for why this is a deliberate simplification rather than a
// full subgraph clone.
func (c *Compiler) busGenSpec(busName string) (graph.Waveform, float64) {
	def, ok := c.busDef[busName]
	if !ok {
		return graph.WaveSine, 440
	}
	call, ok := def.Expr.(CallExpr)
	if !ok {
		return graph.WaveSine, 440
	}
	wf, ok := waveformByName[call.Func]
	if !ok {
		return graph.WaveSine, 440
	}
	freq := 440.0
	if len(call.Args) > 0 {
		if n, ok := call.Args[0].(NumberExpr); ok {
			freq = n.Value
		}
	}
	return wf, freq
}

// makeTrigger builds the TriggerFunc a `s(...)` PatternNode fires on every
// onset: sample-bank tokens ("bd:2") play through the voice manager as
// SampleVoiceSource, "~name" tokens replay the named bus's oscillator shape
// as a one-shot SynthVoiceSource. An unresolvable name renders silently
// (spec §6.5), matching samplebank.Bank.Get's own miss behavior.
func (c *Compiler) makeTrigger() graph.TriggerFunc {
	return func(token string, cycleBegin timefrac.Fraction, sampleIndex uint64) {
		if c.vm == nil {
			return
		}
		if strings.HasPrefix(token, "~") {
			wf, freq := c.busGenSpec(strings.TrimPrefix(token, "~"))
			c.vm.Trigger(graph.NewSynthVoiceSource(c.sampleRate, wf, freq), sampleIndex)
			return
		}
		if c.bank == nil {
			return
		}
		name, variant := samplebank.ParseNameVariant(token)
		data, ok := c.bank.Get(name, variant)
		if !ok {
			return
		}
		c.vm.Trigger(graph.NewSampleVoiceSource(data.Frames, 1.0, 1.0, c.sampleRate, 5), sampleIndex)
	}
}
