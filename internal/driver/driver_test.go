package driver

import (
	"testing"

	"github.com/ekg/phonon/internal/graph"
)

func constGraph(value float32) (*graph.Graph, []string) {
	g := graph.NewGraph(44100, 1.0)
	id := g.AddNode(&graph.ConstNode{Value: value})
	g.SetOutput("out", id)
	return g, g.OutputNames()
}

func TestProcessEmitsSilenceBeforeFirstSwap(t *testing.T) {
	d := New(44100, 64)
	buf := make([]float32, 64)
	for i := range buf {
		buf[i] = 99
	}
	d.Process(buf)
	for i, v := range buf {
		if v != 0 {
			t.Fatalf("buf[%d] = %v, want 0 before any graph is installed", i, v)
		}
	}
}

func TestSwapGraphCarriesForwardTransportState(t *testing.T) {
	d := New(44100, 64)
	g1, names := constGraph(0.5)
	g1.SetCPS(2.0)
	g1.SetSampleIndex(1000)
	d.SwapGraph(g1, names)

	buf := make([]float32, 64)
	d.Process(buf)

	g2, names2 := constGraph(0.25)
	d.SwapGraph(g2, names2)

	if got := g2.CPS(); got != 2.0 {
		t.Fatalf("g2.CPS() = %v, want 2.0 carried forward from g1", got)
	}
	if got := g2.SampleIndex(); got < 1000 {
		t.Fatalf("g2.SampleIndex() = %d, want >= 1000 carried forward from g1", got)
	}
}

func TestSwapGraphRetiresOldGraphToDropQueue(t *testing.T) {
	d := New(44100, 64)
	g1, names1 := constGraph(1)
	d.SwapGraph(g1, names1)
	g2, names2 := constGraph(2)
	d.SwapGraph(g2, names2)

	dropped := d.DrainDropped()
	if len(dropped) != 1 || dropped[0] != g1 {
		t.Fatalf("expected g1 to be retired to the drop queue, got %v", dropped)
	}
}

func TestProcessFillsBufferFromCurrentGraph(t *testing.T) {
	d := New(44100, 8)
	g, names := constGraph(0.75)
	d.SwapGraph(g, names)

	buf := make([]float32, 8)
	d.Process(buf)
	for i, v := range buf {
		if v != 0.75 {
			t.Fatalf("buf[%d] = %v, want 0.75", i, v)
		}
	}
}

func TestSnapshotReportsNoUnderrunsUnderBudget(t *testing.T) {
	d := New(44100, 64)
	g, names := constGraph(0)
	d.SwapGraph(g, names)

	buf := make([]float32, 64)
	for i := 0; i < 16; i++ {
		d.Process(buf)
	}
	m := d.Snapshot()
	if m.Samples != 16 {
		t.Fatalf("Samples = %d, want 16", m.Samples)
	}
	if m.Underruns != 0 {
		t.Fatalf("Underruns = %d, want 0 for a trivial constant graph", m.Underruns)
	}
	if m.Min > m.Median || m.Median > m.Max {
		t.Fatalf("latency percentiles out of order: min=%v median=%v max=%v", m.Min, m.Median, m.Max)
	}
}

func TestAcquireReleaseBufferSizesAndRoundTrips(t *testing.T) {
	d := New(44100, 32)
	want := 32 * 2
	for i := 0; i < 8; i++ {
		buf := d.AcquireBuffer(2)
		if len(buf) != want {
			t.Fatalf("iteration %d: len(buf) = %d, want %d", i, len(buf), want)
		}
		d.ReleaseBuffer(2, buf)
	}
}

func TestHushResetsCurrentGraphWithoutDiscardingIt(t *testing.T) {
	d := New(44100, 64)
	g, names := constGraph(1)
	d.SwapGraph(g, names)
	d.Hush()
	if d.CurrentGraph() != g {
		t.Fatal("Hush must reset the installed graph in place, not discard it")
	}
}
