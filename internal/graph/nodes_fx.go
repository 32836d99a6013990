package graph

import "math"

// DelayNode is a circular-buffer delay line whose time and feedback are
// signal-rate inputs, generalizing the teacher's effects.Delay (which fixes
// its buffer length at construction) to support the audio-rate delay-time
// modulation spec requires: the read position becomes a fractional index
// into the buffer, linearly interpolated between the two nearest samples.
type DelayNode struct {
	In           NodeId
	TimeIn       NodeId
	TimeSec      float64 // used when TimeIn is unset
	FeedbackIn   NodeId
	Feedback     float64 // used when FeedbackIn is unset, clamped [0, 0.98]
	MaxDelaySec  float64

	buf      []float32
	writePos int
	sr       float64
}

func NewDelay(sampleRate, maxDelaySec float64, in NodeId) *DelayNode {
	n := int(maxDelaySec*sampleRate) + 1
	if n < 2 {
		n = 2
	}
	return &DelayNode{
		In: in, TimeIn: invalidID, FeedbackIn: invalidID,
		TimeSec: 0.3, Feedback: 0.4, MaxDelaySec: maxDelaySec,
		buf: make([]float32, n), sr: sampleRate,
	}
}

func (d *DelayNode) Tick(c Ctx) float32 {
	timeSec := d.TimeSec
	if d.TimeIn != invalidID {
		timeSec = float64(c.In(d.TimeIn))
	}
	if timeSec < 0 {
		timeSec = 0
	}
	if timeSec > d.MaxDelaySec {
		timeSec = d.MaxDelaySec
	}
	fb := d.Feedback
	if d.FeedbackIn != invalidID {
		fb = float64(c.In(d.FeedbackIn))
	}
	if fb < 0 {
		fb = 0
	}
	if fb > 0.98 {
		fb = 0.98
	}

	delaySamples := timeSec * d.sr
	n := len(d.buf)
	readPosF := float64(d.writePos) - delaySamples
	for readPosF < 0 {
		readPosF += float64(n)
	}
	i0 := int(readPosF) % n
	i1 := (i0 + 1) % n
	frac := readPosF - math.Floor(readPosF)
	delayed := d.buf[i0]*float32(1-frac) + d.buf[i1]*float32(frac)

	x := c.In(d.In)
	d.buf[d.writePos] = x + delayed*float32(fb)
	d.writePos = (d.writePos + 1) % n
	return delayed
}

func (d *DelayNode) Reset() {
	for i := range d.buf {
		d.buf[i] = 0
	}
	d.writePos = 0
}

// ChorusNode modulates a short delay line with an LFO, matching the
// teacher's effects.Chorus technique (modulated delay + dry/wet mix).
type ChorusNode struct {
	In        NodeId
	RateHz    float64
	DepthSec  float64
	BaseSec   float64
	Mix       float64

	buf      []float32
	writePos int
	phase    float64
	sr       float64
}

func NewChorus(sampleRate float64, in NodeId) *ChorusNode {
	n := int(0.05*sampleRate) + 1
	return &ChorusNode{In: in, RateHz: 0.5, DepthSec: 0.003, BaseSec: 0.015, Mix: 0.5, buf: make([]float32, n), sr: sampleRate}
}

func (n *ChorusNode) Tick(c Ctx) float32 {
	lfo := math.Sin(2 * math.Pi * n.phase)
	n.phase += n.RateHz / c.SampleRate()
	_, frac := math.Modf(n.phase)
	if frac < 0 {
		frac += 1
	}
	n.phase = frac

	delaySec := n.BaseSec + n.DepthSec*lfo
	delaySamples := delaySec * n.sr
	bl := len(n.buf)
	readPosF := float64(n.writePos) - delaySamples
	for readPosF < 0 {
		readPosF += float64(bl)
	}
	i0 := int(readPosF) % bl
	i1 := (i0 + 1) % bl
	f := readPosF - math.Floor(readPosF)
	delayed := n.buf[i0]*float32(1-f) + n.buf[i1]*float32(f)

	x := c.In(n.In)
	n.buf[n.writePos] = x
	n.writePos = (n.writePos + 1) % bl
	return x*float32(1-n.Mix) + delayed*float32(n.Mix)
}

func (n *ChorusNode) Reset() {
	for i := range n.buf {
		n.buf[i] = 0
	}
	n.writePos, n.phase = 0, 0
}

// PhaserNode cascades allpass stages modulated by a shared LFO, the
// standard phaser topology (an allpass-cascade variant of the teacher's
// chorus technique, using FilterNode in FilterAllpass mode per stage).
type PhaserNode struct {
	In       NodeId
	Stages   int
	RateHz   float64
	Depth    float64
	BaseHz   float64
	Mix      float64

	phase  float64
	allp   []FilterNode
}

func NewPhaser(in NodeId) *PhaserNode {
	return &PhaserNode{In: in, Stages: 4, RateHz: 0.3, Depth: 800, BaseHz: 600, Mix: 0.5}
}

func (p *PhaserNode) Tick(c Ctx) float32 {
	if p.allp == nil {
		p.allp = make([]FilterNode, p.Stages)
		for i := range p.allp {
			p.allp[i] = FilterNode{Kind: FilterAllpass, Q: 0.5}
		}
	}
	lfo := math.Sin(2 * math.Pi * p.phase)
	p.phase += p.RateHz / c.SampleRate()
	_, frac := math.Modf(p.phase)
	if frac < 0 {
		frac += 1
	}
	p.phase = frac

	freq := p.BaseHz + p.Depth*lfo
	if freq < 20 {
		freq = 20
	}
	v := c.In(p.In)
	dry := v
	for i := range p.allp {
		p.allp[i].CutoffHz = freq
		v = p.allp[i].tickValue(c, v)
	}
	return dry*float32(1-p.Mix) + v*float32(p.Mix)
}

func (p *PhaserNode) Reset() {
	for i := range p.allp {
		p.allp[i].Reset()
	}
}

// TremoloNode amplitude-modulates its input with a sine LFO.
type TremoloNode struct {
	In     NodeId
	RateHz float64
	Depth  float64 // 0..1
	phase  float64
}

func (n *TremoloNode) Tick(c Ctx) float32 {
	lfo := (math.Sin(2*math.Pi*n.phase) + 1) / 2
	n.phase += n.RateHz / c.SampleRate()
	_, frac := math.Modf(n.phase)
	if frac < 0 {
		frac += 1
	}
	n.phase = frac
	gain := 1 - n.Depth + n.Depth*lfo
	return c.In(n.In) * float32(gain)
}
func (n *TremoloNode) Reset() { n.phase = 0 }

// ReverbNode is a Schroeder-topology reverb: four parallel comb filters
// summed into two series allpass stages, ported from the teacher's
// effects.Reverb structure into a mono signal-rate node.
type ReverbNode struct {
	In       NodeId
	RoomSize float64 // 0..1, controls comb feedback
	Mix      float64

	combs   [4]combState
	allps   [2]allpState
	initd   bool
	sr      float64
}

type combState struct {
	buf      []float32
	pos      int
	feedback float32
}

type allpState struct {
	buf []float32
	pos int
}

var combTunesMs = [4]float64{29.7, 37.1, 41.1, 43.7}
var allpTunesMs = [2]float64{5.0, 1.7}

func NewReverb(sampleRate float64, in NodeId) *ReverbNode {
	return &ReverbNode{In: in, RoomSize: 0.5, Mix: 0.3, sr: sampleRate}
}

func (r *ReverbNode) ensureInit() {
	if r.initd {
		return
	}
	for i, ms := range combTunesMs {
		n := int(ms * r.sr / 1000)
		if n < 1 {
			n = 1
		}
		r.combs[i] = combState{buf: make([]float32, n)}
	}
	for i, ms := range allpTunesMs {
		n := int(ms * r.sr / 1000)
		if n < 1 {
			n = 1
		}
		r.allps[i] = allpState{buf: make([]float32, n)}
	}
	r.initd = true
}

func (r *ReverbNode) Tick(c Ctx) float32 {
	r.ensureInit()
	x := c.In(r.In)
	fb := float32(0.7 + 0.28*r.RoomSize)

	var sum float32
	for i := range r.combs {
		cs := &r.combs[i]
		out := cs.buf[cs.pos]
		cs.buf[cs.pos] = x + out*fb
		cs.pos++
		if cs.pos >= len(cs.buf) {
			cs.pos = 0
		}
		sum += out
	}
	sum /= 4

	for i := range r.allps {
		as := &r.allps[i]
		bufOut := as.buf[as.pos]
		vn := sum + bufOut*0.5
		as.buf[as.pos] = vn
		as.pos++
		if as.pos >= len(as.buf) {
			as.pos = 0
		}
		sum = bufOut - vn*0.5
	}

	return x*float32(1-r.Mix) + sum*float32(r.Mix)
}

func (r *ReverbNode) Reset() {
	for i := range r.combs {
		for j := range r.combs[i].buf {
			r.combs[i].buf[j] = 0
		}
	}
	for i := range r.allps {
		for j := range r.allps[i].buf {
			r.allps[i].buf[j] = 0
		}
	}
}
