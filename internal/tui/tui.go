// Package tui types the boundary to the modal text editor, explicitly out
// of scope for this design per spec §1 ("the modal text editor / TUI...
// their contracts appear in §6 but their implementation is not
// specified"). `phonon edit` (cmd/phonon) uses this interface to validate
// and re-evaluate a buffer without embedding real terminal rendering.
package tui

// Editor is what `phonon edit` needs from a real modal editor: load a
// buffer from disk, re-evaluate it on demand (Ctrl-X per §6.6), and report
// the last evaluation's error, if any, for status-line display. No
// terminal rendering ships with this module.
type Editor interface {
	Load(path string) error
	Buffer() string
	// Evaluate re-compiles Buffer() and installs the result; returns the
	// compile error, if any, without discarding the previous graph.
	Evaluate() error
	LastError() error
}
