package graph

import "sync/atomic"

// Graph is the unified signal graph: a node arena in insertion (hence
// topological) order, a bus table mapping `~name` to the NodeId that
// produces it, and the per-sample transport state (cps, sample index, wall
// clock flag). A node's Tick reads the sample rate, cps and sample index via
// Ctx; the wall clock flag is exposed only through Graph.WallClock.
type Graph struct {
	nodes []Node
	cur   []float32
	last  []float32

	buses map[string]NodeId
	// outputs names the nodes that feed the final mix, one per output bus
	// (oN) plus the implicit `out`; each entry is a single NodeId since a
	// multi-channel output is modeled as N separate Output nodes.
	outputs map[string]NodeId

	sampleRate  float64
	cps         float64
	sampleIndex uint64
	wallClock   bool

	faultCount uint64
}

// NewGraph creates an empty graph at the given sample rate and initial cps.
func NewGraph(sampleRate float64, cps float64) *Graph {
	return &Graph{
		buses:      make(map[string]NodeId),
		outputs:    make(map[string]NodeId),
		sampleRate: sampleRate,
		cps:        cps,
	}
}

// AddNode appends n to the arena and returns its NodeId. Nodes may only
// reference ids less than their own via Ctx.In (current-sample reads);
// later ids must go through Ctx.InLast (previous-sample, for feedback).
func (g *Graph) AddNode(n Node) NodeId {
	g.nodes = append(g.nodes, n)
	g.cur = append(g.cur, 0)
	g.last = append(g.last, 0)
	return NodeId(len(g.nodes) - 1)
}

// SetBus binds name to id, making it resolvable by BusID from a Pattern or
// Bus-reference node. Rebinding an existing name overwrites it — the
// compiler is responsible for CyclicBusGraph detection before wiring.
func (g *Graph) SetBus(name string, id NodeId) {
	g.buses[name] = id
}

// BusID resolves name to a NodeId, returning UnknownBus if unbound.
func (g *Graph) BusID(name string) (NodeId, error) {
	id, ok := g.buses[name]
	if !ok {
		return invalidID, &CompileError{Kind: UnknownBus, Name: name}
	}
	return id, nil
}

// SetOutput registers id as the source of output bus name (`out`, `o1`...).
func (g *Graph) SetOutput(name string, id NodeId) {
	g.outputs[name] = id
}

// OutputNames returns the registered output bus names.
func (g *Graph) OutputNames() []string {
	names := make([]string, 0, len(g.outputs))
	for n := range g.outputs {
		names = append(names, n)
	}
	return names
}

// SetCPS updates the graph's cycles-per-second; carried across graph
// handoffs by the driver so tempo changes don't reset pattern phase.
func (g *Graph) SetCPS(cps float64) { g.cps = cps }

func (g *Graph) CPS() float64 { return g.cps }

// SetSampleIndex seeds the monotonic sample counter, used by the driver when
// swapping graphs mid-stream so the new graph continues the same timeline.
func (g *Graph) SetSampleIndex(n uint64) { g.sampleIndex = n }

func (g *Graph) SampleIndex() uint64 { return g.sampleIndex }

func (g *Graph) SetWallClock(on bool) { g.wallClock = on }

func (g *Graph) WallClock() bool { return g.wallClock }

// FaultCount returns the number of NaN/Inf samples clamped to zero so far.
func (g *Graph) FaultCount() uint64 { return atomic.LoadUint64(&g.faultCount) }

// TickSample evaluates every node once, in arena order, and returns the
// sample for the named output bus (0 if unresolved). This is the hot path:
// no allocation, a single forward pass over the arena.
func (g *Graph) TickSample(output string) float32 {
	ctx := Ctx{g: g}
	for i, n := range g.nodes {
		v := n.Tick(ctx)
		clamped, faulted := clampFinite(v)
		if faulted {
			atomic.AddUint64(&g.faultCount, 1)
		}
		g.cur[i] = clamped
	}
	copy(g.last, g.cur)
	g.sampleIndex++
	if id, ok := g.outputs[output]; ok {
		return g.cur[id]
	}
	return 0
}

// ProcessBuffer fills dst (interleaved by channel count len(outputNames))
// with consecutive samples, one TickSample per frame per named output.
func (g *Graph) ProcessBuffer(dst []float32, outputNames []string) {
	channels := len(outputNames)
	if channels == 0 {
		return
	}
	frames := len(dst) / channels
	for f := 0; f < frames; f++ {
		ctx := Ctx{g: g}
		for i, n := range g.nodes {
			v := n.Tick(ctx)
			clamped, faulted := clampFinite(v)
			if faulted {
				atomic.AddUint64(&g.faultCount, 1)
			}
			g.cur[i] = clamped
		}
		copy(g.last, g.cur)
		g.sampleIndex++
		for ch, name := range outputNames {
			id, ok := g.outputs[name]
			val := float32(0)
			if ok {
				val = g.cur[id]
			}
			dst[f*channels+ch] = val
		}
	}
}

// NodeCount returns the number of nodes in the arena (test/diagnostic use).
func (g *Graph) NodeCount() int { return len(g.nodes) }

// ResetAll calls Reset on every node in arena order — the "Panic"/"Hush"
// operation (§5's Cancellation clause): the voice pool's VoiceSinkNode
// clears all 64 slots, oscillators/filters/envelopes return to their idle
// state, but the graph itself is not discarded (a fresh SwapGraph is a
// separate, unrelated operation).
func (g *Graph) ResetAll() {
	for _, n := range g.nodes {
		n.Reset()
	}
	for i := range g.cur {
		g.cur[i] = 0
		g.last[i] = 0
	}
}

// LastSample returns node id's previous-tick output without going through
// Ctx, for diagnostics and tests.
func (g *Graph) LastSample(id NodeId) float32 {
	if int(id) < 0 || int(id) >= len(g.last) {
		return 0
	}
	return g.last[id]
}
