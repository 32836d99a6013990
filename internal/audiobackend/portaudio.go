package audiobackend

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// PortaudioStream drives a true OS audio output callback for the headless
// `phonon-audio` daemon (§6.6), since that binary has no ebiten-style event
// loop to host a Player. Grounded on doismellburning-samoyed's
// portaudio.OpenStream/StreamParameters usage (client-audio.go): open a
// default output device at a fixed sample rate and buffer size, with a
// callback that is handed a []float32 slice to fill each round.
type PortaudioStream struct {
	stream *portaudio.Stream
	source FrameSource
	buf    []float32
}

// OpenPortaudioStream opens the default output device at sampleRate with
// channels-interleaved f32 output, framesPerBuffer frames per callback. The
// callback itself only calls source.Process — no allocation once running.
func OpenPortaudioStream(sampleRate float64, channels, framesPerBuffer int, source FrameSource) (*PortaudioStream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("audiobackend: portaudio init: %w", err)
	}
	ps := &PortaudioStream{source: source, buf: make([]float32, framesPerBuffer*channels)}
	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   portaudio.DefaultOutputDevice,
			Channels: channels,
		},
		SampleRate:      sampleRate,
		FramesPerBuffer: framesPerBuffer,
	}
	stream, err := portaudio.OpenStream(params, ps.callback)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("audiobackend: open stream: %w", err)
	}
	ps.stream = stream
	return ps, nil
}

func (ps *PortaudioStream) callback(out []float32) {
	if len(out) != len(ps.buf) {
		ps.buf = make([]float32, len(out))
	}
	ps.source.Process(ps.buf)
	copy(out, ps.buf)
}

func (ps *PortaudioStream) Start() error { return ps.stream.Start() }
func (ps *PortaudioStream) Stop() error  { return ps.stream.Stop() }

func (ps *PortaudioStream) Close() error {
	err := ps.stream.Close()
	portaudio.Terminate()
	return err
}
