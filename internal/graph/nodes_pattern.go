package graph

import (
	"github.com/ekg/phonon/internal/pattern"
	"github.com/ekg/phonon/internal/timefrac"
)

// TriggerFunc is called once per onset hap a trigger-sink PatternNode
// observes, with the hap's token value and the cycle position/sample index
// it began at. The compiler supplies the closure that turns a token into a
// voice.Source and calls VoiceManager.Trigger — PatternNode itself knows
// nothing about sample banks or bus generators, only about pattern query
// timing, per spec §4.2.2's Pattern node contract.
type TriggerFunc func(token string, cycleBegin timefrac.Fraction, sampleIndex uint64)

// PatternNode holds a compiled Pattern[string] and gives it audio-rate
// continuity: each tick it queries the half-open window since the previous
// tick and, on any hap with an onset in that window, updates LastValue (via
// Resolve) and — if it is a trigger sink — fires Trigger. Between haps it
// keeps emitting its last resolved value, which is what makes a pattern
// usable as a control signal (cutoff, pitch) rather than just an event
// sequencer. Grounded on sequencer.Sequencer's per-tick "has a new event
// started since the last sample" test, generalized from integer ticks to
// the pattern algebra's rational cycle time.
type PatternNode struct {
	Pattern pattern.Pattern[string]
	// Resolve turns a hap's string token into the numeric control value
	// this node emits as a signal (e.g. parsing "440" or a note name);
	// nil means this node is trigger-only and always emits 0.
	Resolve func(token string) float32
	// Trigger, if set, makes this a trigger sink: every onset enqueues a
	// voice. An empty token ("" — the Open Question #1 structure-
	// preserving degrade outcome) never triggers, matching §6.5's "missing
	// names render as silence" rule.
	Trigger TriggerFunc

	lastValue float32
	lastToken string
	lastCycle timefrac.Fraction
	started   bool
}

func cycleNow(c Ctx) timefrac.Fraction {
	return timefrac.FromFloat(c.CPS()*float64(c.SampleIndex())/c.SampleRate(), 1<<30)
}

func (n *PatternNode) Tick(c Ctx) float32 {
	cur := cycleNow(c)
	if !n.started {
		n.lastCycle = cur
		n.started = true
		return n.lastValue
	}
	if cur.Gt(n.lastCycle) {
		st := timefrac.NewState(timefrac.NewSpan(n.lastCycle, cur))
		for _, h := range n.Pattern.Query(st) {
			if !h.HasOnset() {
				continue
			}
			n.lastToken = h.Value
			if n.Resolve != nil {
				n.lastValue = n.Resolve(h.Value)
			}
			if n.Trigger != nil && h.Value != "" {
				n.Trigger(h.Value, h.Part.Begin, c.SampleIndex())
			}
		}
	}
	n.lastCycle = cur
	return n.lastValue
}

func (n *PatternNode) Reset() {
	n.lastValue = 0
	n.lastToken = ""
	n.started = false
}

// LastToken exposes the most recently observed raw token, used by tests and
// diagnostics to verify event-count vs onset behavior without re-querying.
func (n *PatternNode) LastToken() string { return n.lastToken }

// VoiceSinkNode sums the voice manager's active voices into the graph as an
// ordinary signal-rate node, the mixer tap spec §2's control-flow summary
// describes ("the mixer sums active voices plus all signal-rate outputs").
type VoiceSinkNode struct {
	VM interface {
		ProcessSample() float32
		Reset()
	}
}

func (n *VoiceSinkNode) Tick(c Ctx) float32 { return n.VM.ProcessSample() }
func (n *VoiceSinkNode) Reset()             { n.VM.Reset() }

// SampleNode plays a sample-bank entry directly as a graph node (rather
// than through the voice manager), for the "used directly" case spec
// §4.2.2 calls out: a mono buffer read at fractional Position with linear
// interpolation, looping is the caller's responsibility (SampleNode itself
// stops, emitting 0, once Position exhausts the buffer).
type SampleNode struct {
	Frames   []float32
	Speed    float64
	position float64
}

func (n *SampleNode) Tick(c Ctx) float32 {
	if len(n.Frames) < 2 {
		return 0
	}
	i0 := int(n.position)
	if i0 >= len(n.Frames)-1 {
		return 0
	}
	frac := float32(n.position - float64(i0))
	v := n.Frames[i0]*(1-frac) + n.Frames[i0+1]*frac
	n.position += n.Speed
	return v
}

func (n *SampleNode) Reset() { n.position = 0 }
