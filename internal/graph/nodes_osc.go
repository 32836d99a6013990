package graph

import "math"

// Waveform enumerates the oscillator shapes, matching the set the teacher's
// fm.Engine.waveformSample switches over (sine/saw/square/triangle), plus
// pulse with a width parameter for additional timbral variety.
type Waveform int

const (
	WaveSine Waveform = iota
	WaveSaw
	WaveSquare
	WaveTriangle
	WavePulse
)

// OscillatorNode is a phase-accumulator oscillator whose frequency is read
// fresh every sample from FreqIn (a signal-rate input, per the per-sample
// evaluation contract), so an Envelope or Pattern node can FM/vibrato it at
// audio rate with no extra plumbing.
type OscillatorNode struct {
	FreqIn   NodeId
	FreqHz   float64 // used when FreqIn is unset (invalidID)
	Waveform Waveform
	PulseW   float64

	phase float64
	sr    float64
}

func NewOscillator(sampleRate float64, wf Waveform) *OscillatorNode {
	return &OscillatorNode{FreqIn: invalidID, Waveform: wf, PulseW: 0.5, sr: sampleRate}
}

func (o *OscillatorNode) Tick(c Ctx) float32 {
	freq := o.FreqHz
	if o.FreqIn != invalidID {
		freq = float64(c.In(o.FreqIn))
	}
	out := waveformSample(o.Waveform, o.phase, o.PulseW)
	o.phase += freq / c.SampleRate()
	_, frac := math.Modf(o.phase)
	if frac < 0 {
		frac += 1
	}
	o.phase = frac
	return out
}

func (o *OscillatorNode) Reset() { o.phase = 0 }

func (o *OscillatorNode) ResetPhase()    { o.phase = 0 }
func (o *OscillatorNode) Phase() float64 { return o.phase }

func waveformSample(wf Waveform, phase, pulseW float64) float32 {
	switch wf {
	case WaveSine:
		return float32(math.Sin(2 * math.Pi * phase))
	case WaveSaw:
		return float32(2*phase - 1)
	case WaveSquare:
		if phase < 0.5 {
			return 1
		}
		return -1
	case WaveTriangle:
		return float32(2*math.Abs(2*phase-1) - 1)
	case WavePulse:
		if phase < pulseW {
			return 1
		}
		return -1
	default:
		return 0
	}
}

// NoiseKind enumerates the noise colors spec requires.
type NoiseKind int

const (
	NoiseWhite NoiseKind = iota
	NoisePink
	NoiseBrown
)

// NoiseNode generates white/pink/brown noise from a deterministic xorshift
// PRNG (seeded at construction, not from wall-clock entropy, so offline
// renders stay bit-identical across invocations) — pink uses the
// Paul Kellet filter bank, brown a leaky integrator clamped to [-1, 1]
// (the leak keeps it from drifting; there is no separate DC-blocking stage).
type NoiseNode struct {
	Kind NoiseKind
	seed uint64

	// Paul Kellet pink noise filter state.
	b0, b1, b2, b3, b4, b5, b6 float64
	brown                      float64
}

func NewNoise(kind NoiseKind, seed uint64) *NoiseNode {
	if seed == 0 {
		seed = 0x9e3779b97f4a7c15
	}
	return &NoiseNode{Kind: kind, seed: seed}
}

func (n *NoiseNode) nextWhite() float64 {
	n.seed ^= n.seed << 13
	n.seed ^= n.seed >> 7
	n.seed ^= n.seed << 17
	return (float64(n.seed>>11) / float64(1<<53))*2 - 1
}

func (n *NoiseNode) Tick(c Ctx) float32 {
	white := n.nextWhite()
	switch n.Kind {
	case NoisePink:
		n.b0 = 0.99886*n.b0 + white*0.0555179
		n.b1 = 0.99332*n.b1 + white*0.0750759
		n.b2 = 0.96900*n.b2 + white*0.1538520
		n.b3 = 0.86650*n.b3 + white*0.3104856
		n.b4 = 0.55000*n.b4 + white*0.5329522
		n.b5 = -0.7616*n.b5 - white*0.0168980
		out := n.b0 + n.b1 + n.b2 + n.b3 + n.b4 + n.b5 + n.b6 + white*0.5362
		n.b6 = white * 0.115926
		return float32(out * 0.11)
	case NoiseBrown:
		n.brown = n.brown*0.998 + white*0.02
		if n.brown > 1 {
			n.brown = 1
		}
		if n.brown < -1 {
			n.brown = -1
		}
		return float32(n.brown)
	default:
		return float32(white)
	}
}

func (n *NoiseNode) Reset() {
	n.b0, n.b1, n.b2, n.b3, n.b4, n.b5, n.b6, n.brown = 0, 0, 0, 0, 0, 0, 0, 0
}

// ImpulseNode emits a single sample of 1 at the start of every 1/freq
// seconds and 0 otherwise — the audio-rate trigger primitive other nodes
// (envelopes, sample-and-hold) key off.
type ImpulseNode struct {
	FreqHz float64
	phase  float64
}

func NewImpulse(freqHz float64) *ImpulseNode { return &ImpulseNode{FreqHz: freqHz} }

func (n *ImpulseNode) Tick(c Ctx) float32 {
	n.phase += n.FreqHz / c.SampleRate()
	if n.phase >= 1 {
		n.phase -= math.Floor(n.phase)
		return 1
	}
	return 0
}

func (n *ImpulseNode) Reset() { n.phase = 0 }

// LagNode is a one-pole smoother (portamento/slew limiter) over its input.
type LagNode struct {
	In        NodeId
	TimeConst float64 // seconds
	value     float32
}

func NewLag(in NodeId, timeConst float64) *LagNode {
	return &LagNode{In: in, TimeConst: timeConst}
}

func (n *LagNode) Tick(c Ctx) float32 {
	target := c.In(n.In)
	if n.TimeConst <= 0 {
		n.value = target
		return n.value
	}
	coeff := float32(math.Exp(-1.0 / (n.TimeConst * c.SampleRate())))
	n.value = target + coeff*(n.value-target)
	return n.value
}

func (n *LagNode) Reset() { n.value = 0 }
