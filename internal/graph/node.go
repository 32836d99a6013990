// Package graph implements the unified signal graph: a typed DAG of audio
// and control nodes evaluated one sample at a time, with node order fixed
// at insertion time so evaluation is always a single forward pass — the
// same "build once, tick many times" shape every voice engine in the
// teacher repo (fm.Engine, nesapu.Engine, wavetable.Engine) already follows
// at the single-voice level, generalized here to an arbitrary node graph.
package graph

import "math"

// NodeId indexes into a Graph's node arena. Because nodes are only ever
// appended, a NodeId is valid for the lifetime of the Graph that produced it
// and always refers to a node earlier in (or equal to) topological order
// than any node created after it — so a feed-forward graph never needs an
// explicit sort, only a feedback (one-sample-delay) read needs the
// LastSample facility below.
type NodeId int

const invalidID NodeId = -1

// Ctx carries the per-sample context a node's Tick needs: where to read its
// own and other nodes' current/previous output, plus transport info.
type Ctx struct {
	g *Graph
}

// In reads node id's freshly computed sample this tick. id must be a node
// earlier in the arena; AddNode does not check this, and a read of a later
// node returns its previous tick's value. Feedback reads use InLast instead.
func (c Ctx) In(id NodeId) float32 {
	if id < 0 {
		return 0
	}
	return c.g.cur[id]
}

// InLast reads node id's output as of the previous tick — the mechanism
// that makes one-sample-delay feedback loops (e.g. a comb filter whose
// input depends on a node later in the arena) well-defined without a cycle
// in evaluation order.
func (c Ctx) InLast(id NodeId) float32 {
	if id < 0 {
		return 0
	}
	return c.g.last[id]
}

// SampleRate returns the graph's configured sample rate in Hz.
func (c Ctx) SampleRate() float64 { return c.g.sampleRate }

// CPS returns the current cycles-per-second (tempo) of the graph.
func (c Ctx) CPS() float64 { return c.g.cps }

// SampleIndex returns the graph's monotonic sample counter.
func (c Ctx) SampleIndex() uint64 { return c.g.sampleIndex }

// Node is one signal-graph vertex: given the current context, compute this
// sample's output. Implementations must be allocation-free in Tick.
type Node interface {
	Tick(c Ctx) float32
	Reset()
}

// clampFinite replaces NaN/Inf with 0 and reports whether a replacement was
// needed, the mechanism behind the Runtime DSP fault counter: a fault never
// aborts rendering, it is only ever counted.
func clampFinite(v float32) (float32, bool) {
	if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
		return 0, true
	}
	return v, false
}
