// Command phonon is the offline-render / editor / perf-simulation CLI of
// §6.6. Flag parsing follows the teacher's play_mml CLI's dispatch shape,
// moved onto spf13/pflag (per-subcommand FlagSet, grounded on the pack's
// doismellburning-samoyed atest.go pflag usage) instead of the stdlib flag
// package the teacher used.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/ekg/phonon/internal/compiler"
	"github.com/ekg/phonon/internal/config"
	"github.com/ekg/phonon/internal/diagnostics"
	"github.com/ekg/phonon/internal/driver"
	"github.com/ekg/phonon/internal/graph"
	"github.com/ekg/phonon/internal/patchlang"
	"github.com/ekg/phonon/internal/samplebank"
	"github.com/ekg/phonon/internal/tui"
	"github.com/ekg/phonon/internal/voice"
	"github.com/ekg/phonon/internal/wavwriter"
)

var _ tui.Editor = (*fileEditor)(nil)

// fileEditor is the non-interactive implementation of tui.Editor that
// `phonon edit` drives: a real modal editor would embed this same
// load/evaluate/status cycle underneath its terminal rendering, which this
// build doesn't ship.
type fileEditor struct {
	path    string
	buf     string
	cfg     *config.Config
	lastErr error
}

func (e *fileEditor) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	e.path = path
	e.buf = string(data)
	return nil
}

func (e *fileEditor) Buffer() string { return e.buf }

func (e *fileEditor) Evaluate() error {
	prog, err := patchlang.JSONParser{}.Parse([]byte(e.buf))
	if err != nil {
		e.lastErr = err
		return err
	}
	_, _, err = buildGraph(e.cfg, prog)
	e.lastErr = err
	return err
}

func (e *fileEditor) LastError() error { return e.lastErr }

const (
	exitOK           = 0
	exitCompileError = 1
	exitIOError      = 2
	exitUnderrun     = 3
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return exitIOError
	}
	log := diagnostics.New()
	switch args[0] {
	case "render":
		return cmdRender(log, args[1:])
	case "edit":
		return cmdEdit(log, args[1:])
	case "perf":
		return cmdPerf(log, args[1:])
	default:
		usage()
		return exitIOError
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: phonon <render|edit|perf> ...")
}

func loadProgram(path string) (compiler.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return compiler.Program{}, err
	}
	return patchlang.JSONParser{}.Parse(data)
}

func buildGraph(cfg *config.Config, prog compiler.Program) (*graph.Graph, []string, error) {
	bank := samplebank.New(cfg.SampleDir)
	vm := voice.NewManager(cfg.SampleRate)
	comp := compiler.New(cfg.SampleRate, bank, vm)
	g, err := comp.Compile(prog)
	if err != nil {
		return nil, nil, err
	}
	return g, g.OutputNames(), nil
}

// cmdRender implements `phonon render <file.ph> <out.wav> [--duration S |
// --cycles N]`: sample-index mode throughout (never wall clock), so two
// invocations on the same input yield bit-identical output (§8 property
// 10).
func cmdRender(log *diagnostics.Logger, args []string) int {
	fs := pflag.NewFlagSet("render", pflag.ContinueOnError)
	duration := fs.Float64("duration", 0, "render length in seconds")
	cycles := fs.Float64("cycles", 0, "render length in cycles (at the program's cps)")
	if err := fs.Parse(args); err != nil {
		return exitIOError
	}
	rest := fs.Args()
	if len(rest) != 2 {
		fmt.Fprintln(os.Stderr, "usage: phonon render <file.ph> <out.wav> [--duration S | --cycles N]")
		return exitIOError
	}
	inPath, outPath := rest[0], rest[1]

	cfg, err := config.Load(os.Getenv("PHONON_CONFIG"))
	if err != nil {
		log.Error("loading config", "err", err)
		return exitIOError
	}

	prog, err := loadProgram(inPath)
	if err != nil {
		log.Error("reading patch file", "path", inPath, "err", err)
		return exitIOError
	}
	g, outputs, err := buildGraph(cfg, prog)
	if err != nil {
		log.Error("compile failed", "err", err)
		return exitCompileError
	}
	if len(outputs) == 0 {
		outputs = []string{"out"}
	}

	d := driver.New(cfg.SampleRate, cfg.BufferSize)
	d.SwapGraph(g, outputs)
	d.SetWallClock(false) // offline render is always sample-index mode

	secs := *duration
	if *cycles > 0 {
		secs = *cycles / g.CPS()
	}
	if secs <= 0 {
		secs = 4.0
	}
	totalFrames := int(secs * cfg.SampleRate)
	channels := len(outputs)
	samples := make([]float32, 0, totalFrames*channels)
	buf := d.AcquireBuffer(channels)
	defer d.ReleaseBuffer(channels, buf)
	for rendered := 0; rendered < totalFrames; rendered += cfg.BufferSize {
		d.Process(buf)
		samples = append(samples, buf...)
	}
	samples = samples[:totalFrames*channels]

	wav := wavwriter.EncodeFloat32LE(samples, int(cfg.SampleRate), channels)
	if err := os.WriteFile(outPath, wav, 0o644); err != nil {
		log.Error("writing wav", "path", outPath, "err", err)
		return exitIOError
	}
	return exitOK
}

// cmdEdit validates the patch file and reports that live modal editing is
// not implemented in this build — the TUI is an external collaborator
// (internal/tui.Editor is its boundary type only).
func cmdEdit(log *diagnostics.Logger, args []string) int {
	fs := pflag.NewFlagSet("edit", pflag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return exitIOError
	}
	rest := fs.Args()
	if len(rest) != 1 {
		fmt.Fprintln(os.Stderr, "usage: phonon edit <file.ph>")
		return exitIOError
	}
	cfg, err := config.Load(os.Getenv("PHONON_CONFIG"))
	if err != nil {
		log.Error("loading config", "err", err)
		return exitIOError
	}
	ed := &fileEditor{cfg: cfg}
	if err := ed.Load(rest[0]); err != nil {
		log.Error("reading patch file", "path", rest[0], "err", err)
		return exitIOError
	}
	if err := ed.Evaluate(); err != nil {
		log.Error("compile failed", "err", err)
		return exitCompileError
	}
	fmt.Println("phonon edit: patch file is valid; modal editor not implemented in this build")
	return exitOK
}

// cmdPerf implements `phonon perf <file.ph> [seconds]`: runs the driver's
// Process loop without any audio backend attached, in sample-index mode
// (matching render/tests per §8 property 10), and reports the §4.5.4
// latency distribution.
func cmdPerf(log *diagnostics.Logger, args []string) int {
	fs := pflag.NewFlagSet("perf", pflag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return exitIOError
	}
	rest := fs.Args()
	if len(rest) < 1 {
		fmt.Fprintln(os.Stderr, "usage: phonon perf <file.ph> [seconds]")
		return exitIOError
	}
	secs := 4.0
	if len(rest) >= 2 {
		var parsed float64
		if _, err := fmt.Sscanf(rest[1], "%f", &parsed); err == nil && parsed > 0 {
			secs = parsed
		}
	}

	cfg, err := config.Load(os.Getenv("PHONON_CONFIG"))
	if err != nil {
		log.Error("loading config", "err", err)
		return exitIOError
	}
	prog, err := loadProgram(rest[0])
	if err != nil {
		log.Error("reading patch file", "path", rest[0], "err", err)
		return exitIOError
	}
	g, outputs, err := buildGraph(cfg, prog)
	if err != nil {
		log.Error("compile failed", "err", err)
		return exitCompileError
	}
	if len(outputs) == 0 {
		outputs = []string{"out"}
	}

	d := driver.New(cfg.SampleRate, cfg.BufferSize)
	d.SwapGraph(g, outputs)
	d.SetWallClock(false)

	channels := len(outputs)
	buf := d.AcquireBuffer(channels)
	defer d.ReleaseBuffer(channels, buf)
	totalCallbacks := int(secs * cfg.SampleRate / float64(cfg.BufferSize))
	for i := 0; i < totalCallbacks; i++ {
		d.Process(buf)
	}

	m := d.Snapshot()
	fmt.Printf("samples=%d min=%s avg=%s median=%s p95=%s p99=%s max=%s underruns=%d\n",
		m.Samples, m.Min, m.Avg, m.Median, m.P95, m.P99, m.Max, m.Underruns)
	if m.Underruns > 0 {
		return exitUnderrun
	}
	return exitOK
}
