// Package diagnostics collects spec §7's error taxonomy into typed errors
// plus the structured logging every control-thread-only component (compile
// errors, IPC disconnects, sample bank misses) reports through. Grounded on
// original_source/src/error_diagnostics.rs, which groups diagnostics into
// named kinds with source-line context rather than one ad hoc error type
// per package; folded here into Go's errors.As-friendly typed-error style
// instead of inventing a parallel hierarchy per package.
package diagnostics

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
)

// ParseErrorKind enumerates the mini-notation/patch-language syntax
// failures the parser layer (out of scope here) would surface; named so
// an external front-end's errors can still be classified consistently.
type ParseErrorKind int

const (
	UnexpectedToken ParseErrorKind = iota
	UnterminatedGroup
	InvalidNumber
)

func (k ParseErrorKind) String() string {
	switch k {
	case UnexpectedToken:
		return "unexpected token"
	case UnterminatedGroup:
		return "unterminated group"
	case InvalidNumber:
		return "invalid number"
	default:
		return "unknown parse error"
	}
}

// ParseError reports a syntax fault at a source position, mirroring the
// "at %d" style internal/pattern.ParseError and the teacher's mml.Parser
// already use.
type ParseError struct {
	Kind ParseErrorKind
	Pos  int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse: %s at %d: %s", e.Kind, e.Pos, e.Msg)
}

// RuntimeFaultKind enumerates the §7 runtime-fault row: conditions counted
// rather than fatal, matching graph.Graph.FaultCount's "never abort
// rendering, only count" contract.
type RuntimeFaultKind int

const (
	NaNOrInfSample RuntimeFaultKind = iota
	VoicePoolSaturated
	SampleBankMiss
	AudioUnderrun
)

func (k RuntimeFaultKind) String() string {
	switch k {
	case NaNOrInfSample:
		return "non-finite sample clamped"
	case VoicePoolSaturated:
		return "voice pool saturated (stole oldest)"
	case SampleBankMiss:
		return "sample bank miss"
	case AudioUnderrun:
		return "audio callback underrun"
	default:
		return "unknown runtime fault"
	}
}

// Logger wraps charmbracelet/log for control-thread-only use. It must never
// be called from the audio callback: per spec §5, a synchronous log sink is
// one of the explicitly forbidden blocking operations on that thread.
type Logger struct {
	*log.Logger
}

// New creates a text-handler logger for interactive CLI use.
func New() *Logger {
	return &Logger{Logger: log.NewWithOptions(log.Default().Writer(), log.Options{
		ReportTimestamp: true,
		Prefix:          "phonon",
	})}
}

// Discard creates a logger that writes nowhere, for tests.
func Discard() *Logger {
	l := log.New(discardWriter{})
	return &Logger{Logger: l}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
