// Command phonon-audio is the headless engine of §6.6: no TUI, just a
// real-time audio callback and the Unix-domain-socket control channel
// (§6.3) an editor process talks to. Grounded on the teacher's player.go
// Play flow (construct engine, open a stream, block until stopped) adapted
// to the compiler/driver/audiobackend pipeline and the portaudio backend
// rather than ebiten's event-loop-hosted player, since this binary has no
// event loop of its own.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/ekg/phonon/internal/audiobackend"
	"github.com/ekg/phonon/internal/compiler"
	"github.com/ekg/phonon/internal/config"
	"github.com/ekg/phonon/internal/diagnostics"
	"github.com/ekg/phonon/internal/driver"
	"github.com/ekg/phonon/internal/ipc"
	"github.com/ekg/phonon/internal/osc"
	"github.com/ekg/phonon/internal/patchlang"
	"github.com/ekg/phonon/internal/samplebank"
	"github.com/ekg/phonon/internal/voice"
)

// liveEvaluator already satisfies osc.Evaluator: an OSC front end (not
// wired here, its transport being out of scope) would share this exact
// compile entry point with the IPC path below, per §6.4.
var _ osc.Evaluator = (*liveEvaluator)(nil)

func main() {
	log := diagnostics.New()
	cfg, err := config.Load(os.Getenv("PHONON_CONFIG"))
	if err != nil {
		log.Error("loading config", "err", err)
		os.Exit(2)
	}

	bank := samplebank.New(cfg.SampleDir)
	vm := voice.NewManager(cfg.SampleRate)
	comp := compiler.New(cfg.SampleRate, bank, vm)

	d := driver.New(cfg.SampleRate, cfg.BufferSize)
	d.SetWallClock(true) // live session: real-time pattern timing, not sample-index mode

	stream, err := audiobackend.OpenPortaudioStream(cfg.SampleRate, cfg.Channels, cfg.BufferSize, d)
	if err != nil {
		log.Error("opening audio stream", "err", err)
		os.Exit(2)
	}
	if err := stream.Start(); err != nil {
		log.Error("starting audio stream", "err", err)
		os.Exit(2)
	}
	defer stream.Close()

	ln, err := ipc.Listen(cfg.SocketPath)
	if err != nil {
		log.Error("opening control socket", "path", cfg.SocketPath, "err", err)
		os.Exit(2)
	}
	defer ln.Close()
	log.Info("phonon-audio ready", "socket", cfg.SocketPath, "sample_rate", cfg.SampleRate)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)

	evaluator := &liveEvaluator{driver: d, compiler: comp}

	go acceptLoop(log, ln, evaluator)

	<-sigc
	log.Info("phonon-audio shutting down")
}

// liveEvaluator implements the single "compile source, install as the next
// graph" operation both the IPC UpdateGraph path and (were it wired) an OSC
// front end reduce to — the one compile entry point §6.4 requires two
// transports to share.
type liveEvaluator struct {
	driver   *driver.Driver
	compiler *compiler.Compiler
}

func (e *liveEvaluator) EvaluatePatch(source string) error {
	prog, err := patchlang.JSONParser{}.Parse([]byte(source))
	if err != nil {
		return err
	}
	g, err := e.compiler.Compile(prog)
	if err != nil {
		return err
	}
	outputs := g.OutputNames()
	if len(outputs) == 0 {
		outputs = []string{"out"}
	}
	e.driver.SwapGraph(g, outputs)
	return nil
}

func acceptLoop(log *diagnostics.Logger, ln *ipc.Listener, ev *liveEvaluator) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			log.Error("accept", "err", err)
			return
		}
		go handleConn(log, conn, ev)
	}
}

func handleConn(log *diagnostics.Logger, conn *ipc.Conn, ev *liveEvaluator) {
	defer conn.Close()
	log.Info("client connected", "session", conn.ID())
	if err := conn.Send(ipc.Message{Kind: ipc.KindReady}); err != nil {
		log.Error("send ready", "err", err)
		return
	}
	for {
		msg, err := conn.Receive()
		if err != nil {
			log.Info("client disconnected", "session", conn.ID(), "err", err)
			return
		}
		switch msg.Kind {
		case ipc.KindUpdateGraph:
			if err := ev.EvaluatePatch(msg.Code); err != nil {
				log.Error("compile failed", "session", conn.ID(), "err", err)
			}
		case ipc.KindHush, ipc.KindPanic:
			ev.driver.Hush()
		case ipc.KindSetTempo:
			if g := ev.driver.CurrentGraph(); g != nil {
				g.SetCPS(msg.CPS)
			}
		case ipc.KindShutdown:
			return
		default:
			log.Error("unexpected message kind", "kind", msg.Kind)
		}
		underruns := ev.driver.UnderrunCount()
		if underruns > 0 {
			_ = conn.Send(ipc.Message{Kind: ipc.KindUnderrun, Count: underruns})
		}
	}
}
