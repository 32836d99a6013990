// Package audiobackend adapts a graph.Graph into a playable audio stream
// for live sessions (`phonon-audio` uses the portaudio backend). Grounded on the
// teacher's internal/audio/stream.go (StreamReader wrapping a SampleSource
// into an io.Reader the ebiten audio context can play), generalized from a
// mono-or-stereo interleaved SampleSource to the driver's graph.ProcessBuffer
// call, which is what the rest of this package actually feeds it.
package audiobackend

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// FrameSource is anything that can fill an interleaved f32 buffer on demand
// — in this codebase, always driver.Driver.Process. Kept as a small
// interface (rather than importing internal/driver directly) so this
// package has no dependency on the driver's graph-handoff machinery.
type FrameSource interface {
	// Process fills dst with len(dst) consecutive interleaved f32 samples.
	Process(dst []float32)
}

// StreamReader adapts a FrameSource into an io.Reader of interleaved stereo
// f32 PCM bytes, the format ebitengine/audio's NewPlayerF32 expects.
type StreamReader struct {
	mu     sync.Mutex
	source FrameSource
	buf    []float32
}

func NewStreamReader(source FrameSource) *StreamReader {
	return &StreamReader{source: source}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := len(p) / 8 // 2 channels * 4 bytes/float32
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]
	r.source.Process(r.buf)
	for i := 0; i < need; i++ {
		u := math.Float32bits(r.buf[i])
		binary.LittleEndian.PutUint32(p[i*4:], u)
	}
	return frames * 8, nil
}

func (r *StreamReader) Close() error { return nil }

// Player wraps an ebitengine audio player driving a StreamReader, for a host
// process that already runs an ebiten-style event loop. No command in this
// build constructs one: `phonon edit` plays no audio and `phonon-audio`
// uses PortaudioStream.
type Player struct {
	player *ebitaudio.Player
	reader io.ReadCloser
}

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioContextErr  error
	audioSampleRate  int
)

func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioContextErr != nil {
		return nil, audioContextErr
	}
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

func NewPlayer(sampleRate int, source FrameSource) (*Player, error) {
	ctx, err := sharedAudioContext(sampleRate)
	if err != nil {
		return nil, err
	}
	reader := NewStreamReader(source)
	pl, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, err
	}
	return &Player{player: pl, reader: reader}, nil
}

func (p *Player) Play()  { p.player.Play() }
func (p *Player) Pause() { p.player.Pause() }
func (p *Player) IsPlaying() bool {
	return p.player.IsPlaying()
}

// Position returns the current playback position (what the listener
// actually hears, lagging the driver's sample_index by the host's buffer
// latency).
func (p *Player) Position() time.Duration {
	return p.player.Position()
}

func (p *Player) Stop() error {
	p.player.Pause()
	p.player.Close()
	return p.reader.Close()
}
