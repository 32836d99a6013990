package graph

// EnvStage mirrors the teacher's fm.envState machine (envAttack -> envDecay
// -> envSustain -> envRelease -> envOff), generalized from a per-FM-operator
// field into a standalone graph node any other node can read as a gain.
type EnvStage int

const (
	EnvIdle EnvStage = iota
	EnvAttack
	EnvDecay
	EnvSustain
	EnvRelease
)

// EnvelopeNode implements an ADSR (or, with DecayIsRelease, a simple AD)
// envelope gated by GateIn crossing from <=0 to >0 (trigger) and back to
// <=0 (release). Segment times are clamped to a minimum of one sample so a
// zero-length stage never produces a divide-by-zero step.
type EnvelopeNode struct {
	GateIn                         NodeId
	AttackSec, DecaySec, ReleaseSec float64
	Sustain                        float64 // 0..1
	DecayIsRelease                 bool    // AD envelope: decay goes straight to 0, ignores sustain/release

	stage      EnvStage
	level      float64
	prevGate   float32
}

func NewEnvelope(gateIn NodeId) *EnvelopeNode {
	return &EnvelopeNode{GateIn: gateIn, AttackSec: 0.01, DecaySec: 0.1, Sustain: 0.7, ReleaseSec: 0.3}
}

func minSamples(sec, sr float64) float64 {
	n := sec * sr
	if n < 1 {
		n = 1
	}
	return n
}

func (e *EnvelopeNode) Tick(c Ctx) float32 {
	gate := c.In(e.GateIn)
	if e.prevGate <= 0 && gate > 0 {
		e.stage = EnvAttack
	} else if e.prevGate > 0 && gate <= 0 && !e.DecayIsRelease {
		e.stage = EnvRelease
	}
	e.prevGate = gate

	sr := c.SampleRate()
	switch e.stage {
	case EnvAttack:
		step := 1.0 / minSamples(e.AttackSec, sr)
		e.level += step
		if e.level >= 1 {
			e.level = 1
			e.stage = EnvDecay
		}
	case EnvDecay:
		target := e.Sustain
		if e.DecayIsRelease {
			target = 0
		}
		step := (1 - target) / minSamples(e.DecaySec, sr)
		e.level -= step
		if e.level <= target {
			e.level = target
			if e.DecayIsRelease {
				e.stage = EnvIdle
			} else {
				e.stage = EnvSustain
			}
		}
	case EnvSustain:
		e.level = e.Sustain
	case EnvRelease:
		step := e.Sustain / minSamples(e.ReleaseSec, sr)
		if step <= 0 {
			step = e.level / minSamples(e.ReleaseSec, sr)
		}
		e.level -= step
		if e.level <= 0 {
			e.level = 0
			e.stage = EnvIdle
		}
	case EnvIdle:
		e.level = 0
	}
	return float32(e.level)
}

func (e *EnvelopeNode) Reset() {
	e.stage = EnvIdle
	e.level = 0
	e.prevGate = 0
}

func (e *EnvelopeNode) Stage() EnvStage { return e.stage }
func (e *EnvelopeNode) Active() bool    { return e.stage != EnvIdle }
