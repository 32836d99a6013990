package graph

import "math"

// AddNode sums two signal inputs.
type AddNode struct{ A, B NodeId }

func (n *AddNode) Tick(c Ctx) float32 { return c.In(n.A) + c.In(n.B) }
func (n *AddNode) Reset()             {}

// MultiplyNode multiplies two signal inputs (also used for simple
// amplitude-envelope application: Multiply(osc, env)).
type MultiplyNode struct{ A, B NodeId }

func (n *MultiplyNode) Tick(c Ctx) float32 { return c.In(n.A) * c.In(n.B) }
func (n *MultiplyNode) Reset()             {}

// ExpNode raises e to the power of its input, useful for converting a
// linear control signal into an exponential envelope/curve.
type ExpNode struct{ In NodeId }

func (n *ExpNode) Tick(c Ctx) float32 { return float32(math.Exp(float64(c.In(n.In)))) }
func (n *ExpNode) Reset()             {}

// PowerNode raises A to the power B, both signal-rate.
type PowerNode struct{ A, B NodeId }

func (n *PowerNode) Tick(c Ctx) float32 {
	return float32(math.Pow(float64(c.In(n.A)), float64(c.In(n.B))))
}
func (n *PowerNode) Reset() {}

// ConstNode outputs a fixed value every tick — used to wire a literal
// number from the compiler into any signal-rate input slot.
type ConstNode struct{ Value float32 }

func (n *ConstNode) Tick(c Ctx) float32 { return n.Value }
func (n *ConstNode) Reset()             {}

// GateNode passes its input through unchanged while |in| exceeds Threshold,
// and outputs 0 otherwise — a hard noise gate, the simpler sibling of
// CompressNode's ratio-based gain computer.
type GateNode struct {
	In        NodeId
	Threshold float32
	open      bool
}

func (n *GateNode) Tick(c Ctx) float32 {
	v := c.In(n.In)
	mag := v
	if mag < 0 {
		mag = -mag
	}
	n.open = mag > n.Threshold
	if n.open {
		return v
	}
	return 0
}
func (n *GateNode) Reset() { n.open = false }

// CompressNode is an envelope-follower + ratio gain computer, adapted from
// the teacher's effects.Compressor: an attack/release-smoothed envelope
// drives a gain reduction applied above Threshold at 1/Ratio.
type CompressNode struct {
	In                        NodeId
	ThresholdDB, Ratio        float64
	AttackSec, ReleaseSec     float64
	envDB                     float64
}

func NewCompress(in NodeId) *CompressNode {
	return &CompressNode{In: in, ThresholdDB: -18, Ratio: 4, AttackSec: 0.005, ReleaseSec: 0.05}
}

func linearToDB(v float32) float64 {
	mag := math.Abs(float64(v))
	if mag < 1e-9 {
		mag = 1e-9
	}
	return 20 * math.Log10(mag)
}

func (n *CompressNode) Tick(c Ctx) float32 {
	in := c.In(n.In)
	inDB := linearToDB(in)
	sr := c.SampleRate()
	var coeff float64
	if inDB > n.envDB {
		coeff = math.Exp(-1.0 / (n.AttackSec * sr))
	} else {
		coeff = math.Exp(-1.0 / (n.ReleaseSec * sr))
	}
	n.envDB = inDB + coeff*(n.envDB-inDB)

	gainDB := 0.0
	if n.envDB > n.ThresholdDB {
		over := n.envDB - n.ThresholdDB
		gainDB = over/n.Ratio - over
	}
	gain := math.Pow(10, gainDB/20)
	return float32(float64(in) * gain)
}

func (n *CompressNode) Reset() { n.envDB = -120 }

// BitcrushNode reduces amplitude resolution (bit depth) and sample rate
// (sample-and-hold decimation) of its input.
type BitcrushNode struct {
	In           NodeId
	Bits         int
	DownsampleN  int

	holdVal float32
	counter int
}

func (n *BitcrushNode) Tick(c Ctx) float32 {
	if n.DownsampleN < 1 {
		n.DownsampleN = 1
	}
	if n.counter%n.DownsampleN == 0 {
		v := c.In(n.In)
		if n.Bits > 0 && n.Bits < 24 {
			steps := float32(int(1) << uint(n.Bits))
			v = float32(math.Round(float64(v)*float64(steps))) / steps
		}
		n.holdVal = v
	}
	n.counter++
	return n.holdVal
}
func (n *BitcrushNode) Reset() { n.holdVal = 0; n.counter = 0 }

// DistortNode applies tanh waveshaping with pre-gain drive, matching the
// teacher's effects.Distortion technique (tanh soft clip + post one-pole
// smoothing) generalized to a mono signal-rate node.
type DistortNode struct {
	In    NodeId
	Drive float64
	lpf   float32
}

func (n *DistortNode) Tick(c Ctx) float32 {
	drive := n.Drive
	if drive <= 0 {
		drive = 1
	}
	shaped := float32(math.Tanh(float64(c.In(n.In)) * drive))
	n.lpf += 0.3 * (shaped - n.lpf)
	return n.lpf
}
func (n *DistortNode) Reset() { n.lpf = 0 }

// OutputNode is a pass-through marker node registered via Graph.SetOutput;
// it exists as its own arena entry so multiple outputs can share an
// upstream mix node while still being individually addressable.
type OutputNode struct{ In NodeId }

func (n *OutputNode) Tick(c Ctx) float32 { return c.In(n.In) }
func (n *OutputNode) Reset()             {}

// PanPairNode carries a mono input and a pan position (-1 left .. 0 center
// .. 1 right). It has a single output, which is its input unchanged: Pan is
// stored but not applied, and no right-channel output exists.
type PanPairNode struct {
	In  NodeId
	Pan float64
}

func (n *PanPairNode) Tick(c Ctx) float32 { return c.In(n.In) }
func (n *PanPairNode) Reset()             {}

// PanGainLeft/PanGainRight compute the equal-power gain coefficients for a
// given pan position. Nothing in this module calls them; the compiler's
// `pan` builds a bare PanPairNode.
func PanGainLeft(pan float64) float32 {
	theta := (pan + 1) * math.Pi / 4
	return float32(math.Cos(theta))
}

func PanGainRight(pan float64) float32 {
	theta := (pan + 1) * math.Pi / 4
	return float32(math.Sin(theta))
}
