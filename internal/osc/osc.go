// Package osc defines the §6.4 OSC control surface's contract: a parallel
// evaluation endpoint that accepts the same patch-language text as the IPC
// UpdateGraph path and must produce identical behavior. Per spec §1, the
// OSC transport itself (UDP packet framing, OSC address-pattern/type-tag
// wire format) is an external collaborator — out of scope for this
// design — so this package only types the boundary: an Evaluator an OSC
// server implementation would call into, and the message shape it expects.
package osc

// Evaluator is what an OSC (or any other future control-surface) transport
// calls once it has decoded a message down to patch-language source text.
// cmd/phonon-audio's ipc.Conn handling and a hypothetical OSC listener both
// reduce to this same call, which is what "produces identical behavior to
// the IPC UpdateGraph path" (§6.4) means in practice: one compile entry
// point, reached by two transports.
type Evaluator interface {
	// EvaluatePatch compiles and installs source as the next graph. An
	// error here is a parse/compile error (§7) and leaves the previously
	// installed graph running.
	EvaluatePatch(source string) error
}

// Message mirrors the subset of ipc.Message an OSC transport would need to
// produce after decoding an incoming packet: a patch program's source text
// addressed at a well-known OSC path such as /phonon/eval.
type Message struct {
	Address string
	Code    string
}

// Address is the conventional OSC address pattern for patch evaluation.
const Address = "/phonon/eval"
