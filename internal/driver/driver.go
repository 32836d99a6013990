// Package driver implements the real-time audio driver contract of §4.5:
// lock-free handoff of a freshly compiled graph.Graph from a control thread
// to an audio callback thread, wall-clock/sample-index timing modes, and a
// rolling per-callback latency distribution for underrun detection.
//
// Grounded on the teacher's concurrency house style — plain sync/atomic for
// cross-thread scalar/pointer handoff (fm.Engine.masterGain,
// effects.EQ5Band.gains) rather than any third-party lock-free library; no
// pack repo imports one, so atomic.Pointer[T] (stdlib since Go 1.19) is the
// direct, idiomatic analog of the spec's "single-slot atomic pointer"
// requirement.
package driver

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/ekg/phonon/internal/bufferpool"
	"github.com/ekg/phonon/internal/graph"
)

// Driver owns the current graph pointer, the drop queue for retired
// graphs, and the timing/underrun metrics described in §4.5.4. It
// implements audiobackend.FrameSource so it can be handed directly to
// either playback backend.
type Driver struct {
	current     atomic.Pointer[graph.Graph]
	outputNames []string
	dropQueue   chan *graph.Graph

	sampleRate float64
	bufferSize int

	wallClock bool
	t0        time.Time

	underruns   atomic.Uint64
	budget      time.Duration
	latencies   []time.Duration
	latHead     int
	latFull     bool
	metricsSize int

	pools map[int]bufferpool.Pool
}

// New creates a driver for the given sample rate and buffer size (frames
// per callback), with no graph installed yet — Process emits silence
// until SwapGraph is called at least once.
func New(sampleRate float64, bufferSize int) *Driver {
	d := &Driver{
		sampleRate:  sampleRate,
		bufferSize:  bufferSize,
		dropQueue:   make(chan *graph.Graph, 8),
		budget:      time.Duration(float64(bufferSize) / sampleRate * float64(time.Second)),
		metricsSize: 1024,
		pools:       make(map[int]bufferpool.Pool),
	}
	d.latencies = make([]time.Duration, d.metricsSize)
	return d
}

// SwapGraph installs g as the current graph, called from the control
// thread. cps and sample_index are carried forward from the previously
// installed graph (if any) so a patch edit doesn't reset pattern timing —
// §4.5.2's "consequences" clause. The old graph (if any) goes to the drop
// queue rather than being freed here, so destruction never runs on the
// audio thread. If multiple swaps happen between two callbacks, only the
// most recently installed graph is ever read — intermediate ones are
// immediately superseded in `current` and the old one evicted to the drop
// queue by the next swap, matching §4.5.2's coalescing requirement.
func (d *Driver) SwapGraph(g *graph.Graph, outputNames []string) {
	if prev := d.current.Load(); prev != nil {
		g.SetCPS(prev.CPS())
		g.SetSampleIndex(prev.SampleIndex())
	}
	old := d.current.Swap(g)
	d.outputNames = outputNames
	if old != nil {
		select {
		case d.dropQueue <- old:
		default:
			// drop queue full: control thread is behind on draining; the
			// retired graph is simply dropped by the GC instead of blocking
			// the swap (never the audio thread's problem).
		}
	}
}

// DrainDropped returns all graphs retired since the last call, for the
// control thread to inspect/discard. Safe to ignore the return value —
// its only purpose is to keep `Drop` off the audio thread.
func (d *Driver) DrainDropped() []*graph.Graph {
	var out []*graph.Graph
	for {
		select {
		case g := <-d.dropQueue:
			out = append(out, g)
		default:
			return out
		}
	}
}

// SetWallClock enables or disables wall-clock mode (§4.5.3). Disabled by
// default; offline render and phonon-perf never enable it, for
// determinism (§8 property 10).
func (d *Driver) SetWallClock(on bool) {
	d.wallClock = on
	if on {
		d.t0 = time.Now()
	}
}

// Process fills dst (interleaved across len(outputNames) channels) by
// ticking the current graph, timing the call for the underrun/latency
// metrics. This is the method the audio callback (via either
// audiobackend.FrameSource implementation) invokes every buffer; it
// performs no allocation beyond the one-time buffer sized at New.
func (d *Driver) Process(dst []float32) {
	start := time.Now()
	g := d.current.Load()
	if g == nil {
		for i := range dst {
			dst[i] = 0
		}
		return
	}
	if d.wallClock {
		cyclePos := time.Since(d.t0).Seconds() * g.CPS()
		g.SetSampleIndex(uint64(cyclePos * d.sampleRate / g.CPS()))
	}
	g.ProcessBuffer(dst, d.outputNames)
	elapsed := time.Since(start)
	d.recordLatency(elapsed)
}

func (d *Driver) recordLatency(elapsed time.Duration) {
	d.latencies[d.latHead] = elapsed
	d.latHead++
	if d.latHead >= d.metricsSize {
		d.latHead = 0
		d.latFull = true
	}
	if elapsed > d.budget {
		d.underruns.Add(1)
	}
}

// UnderrunCount returns the number of callbacks that exceeded the
// N/sample_rate budget so far.
func (d *Driver) UnderrunCount() uint64 { return d.underruns.Load() }

// Budget returns the per-callback time budget (N frames / sample rate).
func (d *Driver) Budget() time.Duration { return d.budget }

// Metrics is the §4.5.4 snapshot a `phonon perf`-style consumer reads:
// min/avg/median/P95/P99/max callback latency plus the underrun count.
type Metrics struct {
	Min, Avg, Median, P95, P99, Max time.Duration
	Underruns                       uint64
	Samples                         int
}

// Snapshot computes the rolling-window Metrics from whatever callback
// latencies have been recorded so far. Sorts a (bounded, metricsSize-long)
// copy — this is a diagnostics-path operation, never called from the audio
// callback itself.
func (d *Driver) Snapshot() Metrics {
	n := d.latHead
	if d.latFull {
		n = d.metricsSize
	}
	if n == 0 {
		return Metrics{Underruns: d.underruns.Load()}
	}
	sorted := make([]time.Duration, n)
	copy(sorted, d.latencies[:n])
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, v := range sorted {
		sum += v
	}
	pct := func(p float64) time.Duration {
		idx := int(p * float64(n-1))
		return sorted[idx]
	}
	return Metrics{
		Min:       sorted[0],
		Avg:       sum / time.Duration(n),
		Median:    pct(0.5),
		P95:       pct(0.95),
		P99:       pct(0.99),
		Max:       sorted[n-1],
		Underruns: d.underruns.Load(),
		Samples:   n,
	}
}

// CurrentGraph returns the installed graph, or nil if none has been
// swapped in yet. Used by Hush/Panic handling to reach the voice manager
// node without the driver needing its own reference to it.
func (d *Driver) CurrentGraph() *graph.Graph { return d.current.Load() }

// Hush resets every node in the current graph (including the voice pool)
// without discarding or replacing the graph itself, per §5's "Panic/Hush
// messages cause voice_manager.reset() on the next callback boundary; the
// graph itself is not discarded". Callers apply this at a callback
// boundary (never mid-buffer) by calling it between Process invocations.
func (d *Driver) Hush() {
	if g := d.current.Load(); g != nil {
		g.ResetAll()
	}
}

// AcquireBuffer returns a scratch interleaved buffer sized BufferSize()*
// channels, reused from an internal bufferpool.Pool keyed by channel count
// (fixed once a program's output list is compiled, so this never thrashes
// in practice) rather than allocated fresh every callback — the §4.5.1
// "audio thread borrows from a pool instead of allocating" policy, applied
// here to whichever loop is driving Process (offline render, phonon-perf,
// or a future buffer-size-aware backend).
func (d *Driver) AcquireBuffer(channels int) []float32 {
	p, ok := d.pools[channels]
	if !ok {
		p = bufferpool.New(d.bufferSize*channels, 4)
		d.pools[channels] = p
	}
	return p.Acquire()
}

// ReleaseBuffer returns buf (previously obtained from AcquireBuffer with the
// same channels count) to its pool for reuse.
func (d *Driver) ReleaseBuffer(channels int, buf []float32) {
	if p, ok := d.pools[channels]; ok {
		p.Release(buf)
	}
}

// BufferSize returns the configured frames-per-callback.
func (d *Driver) BufferSize() int { return d.bufferSize }

// SampleRate returns the configured sample rate.
func (d *Driver) SampleRate() float64 { return d.sampleRate }
