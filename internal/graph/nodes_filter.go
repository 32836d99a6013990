package graph

import "math"

// FilterKind enumerates the biquad filter types spec requires. Coefficients
// follow the RBJ Audio EQ Cookbook formulas, chosen over the teacher's
// one-pole fm.Engine filter because a resonant (Q-controlled) peak cannot be
// built from a single pole — the cookbook biquad is the standard idiomatic
// replacement and is still "the teacher's way" in spirit: one state struct,
// coefficients recomputed from the current params every Tick, Tick advances
// two state vars.
type FilterKind int

const (
	FilterLowPass FilterKind = iota
	FilterHighPass
	FilterBandPass
	FilterNotch
	FilterAllpass
	FilterPeaking
	FilterLowShelf
	FilterHighShelf
)

// FilterNode is a biquad filter whose cutoff and Q are themselves signal
// inputs, letting a Pattern or audio-rate oscillator modulate either at
// full sample rate.
type FilterNode struct {
	In       NodeId
	CutoffIn NodeId
	CutoffHz float64 // used when CutoffIn is unset
	QIn      NodeId
	Q        float64 // used when QIn is unset, clamped to [0.1, 30]
	Kind     FilterKind
	GainDB   float64 // for peaking/shelf kinds

	x1, x2, y1, y2 float32
}

func NewFilter(kind FilterKind, in NodeId) *FilterNode {
	return &FilterNode{In: in, CutoffIn: invalidID, QIn: invalidID, Kind: kind, Q: 0.707, CutoffHz: 1000}
}

func clampQ(q float64) float64 {
	if q < 0.1 {
		return 0.1
	}
	if q > 30 {
		return 30
	}
	return q
}

func (f *FilterNode) Tick(c Ctx) float32 {
	cutoff := f.CutoffHz
	if f.CutoffIn != invalidID {
		cutoff = float64(c.In(f.CutoffIn))
	}
	if cutoff <= 0 {
		cutoff = 1
	}
	nyquist := c.SampleRate() / 2
	if cutoff > nyquist*0.999 {
		cutoff = nyquist * 0.999
	}
	q := f.Q
	if f.QIn != invalidID {
		q = float64(c.In(f.QIn))
	}
	q = clampQ(q)

	b0, b1, b2, a0, a1, a2 := biquadCoeffs(f.Kind, cutoff, q, f.GainDB, c.SampleRate())

	x0 := c.In(f.In)
	y0 := (b0/a0)*x0 + (b1/a0)*f.x1 + (b2/a0)*f.x2 - (a1/a0)*f.y1 - (a2/a0)*f.y2

	f.x2, f.x1 = f.x1, x0
	f.y2, f.y1 = f.y1, float32(y0)
	return float32(y0)
}

func (f *FilterNode) Reset() { f.x1, f.x2, f.y1, f.y2 = 0, 0, 0, 0 }

func biquadCoeffs(kind FilterKind, freq, q, gainDB, sampleRate float64) (b0, b1, b2, a0, a1, a2 float32) {
	w0 := 2 * math.Pi * freq / sampleRate
	cosW0 := math.Cos(w0)
	sinW0 := math.Sin(w0)
	alpha := sinW0 / (2 * q)
	A := math.Pow(10, gainDB/40)

	var B0, B1, B2, A0, A1, A2 float64
	switch kind {
	case FilterLowPass:
		B0 = (1 - cosW0) / 2
		B1 = 1 - cosW0
		B2 = (1 - cosW0) / 2
		A0 = 1 + alpha
		A1 = -2 * cosW0
		A2 = 1 - alpha
	case FilterHighPass:
		B0 = (1 + cosW0) / 2
		B1 = -(1 + cosW0)
		B2 = (1 + cosW0) / 2
		A0 = 1 + alpha
		A1 = -2 * cosW0
		A2 = 1 - alpha
	case FilterBandPass:
		B0 = alpha
		B1 = 0
		B2 = -alpha
		A0 = 1 + alpha
		A1 = -2 * cosW0
		A2 = 1 - alpha
	case FilterNotch:
		B0 = 1
		B1 = -2 * cosW0
		B2 = 1
		A0 = 1 + alpha
		A1 = -2 * cosW0
		A2 = 1 - alpha
	case FilterAllpass:
		B0 = 1 - alpha
		B1 = -2 * cosW0
		B2 = 1 + alpha
		A0 = 1 + alpha
		A1 = -2 * cosW0
		A2 = 1 - alpha
	case FilterPeaking:
		B0 = 1 + alpha*A
		B1 = -2 * cosW0
		B2 = 1 - alpha*A
		A0 = 1 + alpha/A
		A1 = -2 * cosW0
		A2 = 1 - alpha/A
	case FilterLowShelf:
		sq := math.Sqrt(A)
		B0 = A * ((A + 1) - (A-1)*cosW0 + 2*sq*alpha)
		B1 = 2 * A * ((A - 1) - (A+1)*cosW0)
		B2 = A * ((A + 1) - (A-1)*cosW0 - 2*sq*alpha)
		A0 = (A + 1) + (A-1)*cosW0 + 2*sq*alpha
		A1 = -2 * ((A - 1) + (A+1)*cosW0)
		A2 = (A + 1) + (A-1)*cosW0 - 2*sq*alpha
	case FilterHighShelf:
		sq := math.Sqrt(A)
		B0 = A * ((A + 1) + (A-1)*cosW0 + 2*sq*alpha)
		B1 = -2 * A * ((A - 1) + (A+1)*cosW0)
		B2 = A * ((A + 1) + (A-1)*cosW0 - 2*sq*alpha)
		A0 = (A + 1) - (A-1)*cosW0 + 2*sq*alpha
		A1 = 2 * ((A - 1) - (A+1)*cosW0)
		A2 = (A + 1) - (A-1)*cosW0 - 2*sq*alpha
	}
	return float32(B0), float32(B1), float32(B2), float32(A0), float32(A1), float32(A2)
}

// FormantNode sums three resonant bandpass peaks (via FilterNode in
// FilterBandPass mode) to approximate a vowel formant, the same
// three-band-split structure as the teacher's effects.EQ3Band but tuned as
// resonant peaks instead of crossover bands.
type FormantNode struct {
	In                 NodeId
	F1, F2, F3         float64
	Q1, Q2, Q3         float64
	filt1, filt2, filt3 FilterNode
}

func NewFormant(in NodeId) *FormantNode {
	return &FormantNode{
		In: in,
		F1: 700, F2: 1220, F3: 2600,
		Q1: 10, Q2: 12, Q3: 14,
	}
}

func (f *FormantNode) Tick(c Ctx) float32 {
	f.filt1 = FilterNode{In: f.In, Kind: FilterBandPass, CutoffHz: f.F1, Q: f.Q1, CutoffIn: invalidID, QIn: invalidID,
		x1: f.filt1.x1, x2: f.filt1.x2, y1: f.filt1.y1, y2: f.filt1.y2}
	f.filt2 = FilterNode{In: f.In, Kind: FilterBandPass, CutoffHz: f.F2, Q: f.Q2, CutoffIn: invalidID, QIn: invalidID,
		x1: f.filt2.x1, x2: f.filt2.x2, y1: f.filt2.y1, y2: f.filt2.y2}
	f.filt3 = FilterNode{In: f.In, Kind: FilterBandPass, CutoffHz: f.F3, Q: f.Q3, CutoffIn: invalidID, QIn: invalidID,
		x1: f.filt3.x1, x2: f.filt3.x2, y1: f.filt3.y1, y2: f.filt3.y2}
	out := f.filt1.Tick(c) + f.filt2.Tick(c) + f.filt3.Tick(c)
	return out / 3
}

func (f *FormantNode) Reset() { f.filt1.Reset(); f.filt2.Reset(); f.filt3.Reset() }

// ParametricEQNode cascades N peaking bands, each with independently
// modulatable center frequency, Q and gain — generalizing the teacher's
// fixed-band EQ3Band/EQ5Band into an arbitrary-band graph node.
type ParametricEQNode struct {
	In    NodeId
	Bands []EQBandParams
	state []FilterNode
}

// EQBandParams describes one peaking band of a ParametricEQNode.
type EQBandParams struct {
	FreqHz, Q, GainDB float64
}

func NewParametricEQ(in NodeId, bands []EQBandParams) *ParametricEQNode {
	return &ParametricEQNode{In: in, Bands: bands, state: make([]FilterNode, len(bands))}
}

func (eq *ParametricEQNode) Tick(c Ctx) float32 {
	v := c.In(eq.In)
	for i, b := range eq.Bands {
		eq.state[i].In = invalidID
		eq.state[i].Kind = FilterPeaking
		eq.state[i].CutoffHz = b.FreqHz
		eq.state[i].Q = clampQ(b.Q)
		eq.state[i].GainDB = b.GainDB
		eq.state[i].CutoffIn = invalidID
		eq.state[i].QIn = invalidID
		v = eq.state[i].tickValue(c, v)
	}
	return v
}

// tickValue processes an explicit input value rather than reading In, used
// by ParametricEQNode to cascade bands without N separate arena nodes.
func (f *FilterNode) tickValue(c Ctx, x0 float32) float32 {
	cutoff := f.CutoffHz
	nyquist := c.SampleRate() / 2
	if cutoff > nyquist*0.999 {
		cutoff = nyquist * 0.999
	}
	b0, b1, b2, a0, a1, a2 := biquadCoeffs(f.Kind, cutoff, f.Q, f.GainDB, c.SampleRate())
	y0 := (b0/a0)*x0 + (b1/a0)*f.x1 + (b2/a0)*f.x2 - (a1/a0)*f.y1 - (a2/a0)*f.y2
	f.x2, f.x1 = f.x1, x0
	f.y2, f.y1 = f.y1, float32(y0)
	return float32(y0)
}

func (eq *ParametricEQNode) Reset() {
	for i := range eq.state {
		eq.state[i].Reset()
	}
}
