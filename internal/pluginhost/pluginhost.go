// Package pluginhost types the boundary to the VST/CLAP plugin host
// bridge, explicitly out of scope for this design per spec §1 ("the
// VST/CLAP plugin host bridge... their contracts appear in §6 but their
// implementation is not specified"). Grounded on
// original_source/src/plugin_host/{types,vst2_plugin}.rs for the shape of
// the contract a real bridge would need to satisfy: parameter discovery,
// sample-accurate MIDI delivery, and block processing.
package pluginhost

// Plugin is what a compiled bus referencing an external instrument/effect
// would need to talk to. No implementation ships with this module; a real
// bridge (VST2/VST3/CLAP) would adapt its SDK's callback surface to this.
type Plugin interface {
	Name() string
	ParameterCount() int
	SetParameter(index int, value float64)
	// ProcessBlock renders numFrames of audio into out (interleaved by
	// channel count), consuming any pending MIDI events queued via
	// midirecorder.Event.
	ProcessBlock(out []float32, numFrames int)
}

// Host is the minimal registry a compiler's bus resolution would query
// when a bus expression names an external plugin instead of a built-in
// SignalNode — absent here since no plugin bridge ships.
type Host interface {
	Load(path string) (Plugin, error)
	Unload(p Plugin) error
}
