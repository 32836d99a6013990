package graph

import "math"

// SampleVoiceSource renders one playthrough of a sample-bank buffer as a
// voice.Source: linear-interpolated read at Speed, with a short release
// ramp applied once Release is called (by the voice manager, on steal) so a
// stolen sample voice fades rather than clicks. Grounded on the same
// fractional-position-plus-linear-interpolation read nodes_pattern.go's
// SampleNode uses directly, wrapped to additionally honor Release/Done so it
// can live in the 64-slot voice pool instead of as a standalone graph node.
type SampleVoiceSource struct {
	Frames []float32
	Speed  float64
	Gain   float32

	pos        float64
	released   bool
	relGain    float32
	relStep    float32
}

// NewSampleVoiceSource builds a voice.Source that plays frames once at the
// given speed and gain, releasing over releaseMs once stolen.
func NewSampleVoiceSource(frames []float32, speed float64, gain float32, sampleRate float64, releaseMs float64) *SampleVoiceSource {
	step := float32(1.0 / (releaseMs / 1000 * sampleRate))
	if math.IsInf(float64(step), 0) || step <= 0 {
		step = 1
	}
	return &SampleVoiceSource{Frames: frames, Speed: speed, Gain: gain, relGain: 1, relStep: step}
}

func (s *SampleVoiceSource) Render() float32 {
	if len(s.Frames) < 2 {
		return 0
	}
	i0 := int(s.pos)
	if i0 >= len(s.Frames)-1 {
		return 0
	}
	frac := float32(s.pos - float64(i0))
	v := s.Frames[i0]*(1-frac) + s.Frames[i0+1]*frac
	s.pos += s.Speed
	out := v * s.Gain
	if s.released {
		out *= s.relGain
		s.relGain -= s.relStep
		if s.relGain < 0 {
			s.relGain = 0
		}
	}
	return out
}

func (s *SampleVoiceSource) Done() bool {
	exhausted := len(s.Frames) < 2 || int(s.pos) >= len(s.Frames)-1
	return exhausted || (s.released && s.relGain <= 0)
}

func (s *SampleVoiceSource) Release() { s.released = true }

// SynthVoiceSource is the bus-trigger one-shot voice: an oscillator gated by
// a self-contained ADSR, used when a pattern's trigger token names a `~bus`
// rather than a sample. The compiler captures the bus's configured waveform
// and literal frequency at trigger time (440 Hz when the frequency argument
// is not a number literal) and builds one of these per onset — a deliberate
// simplification of "clone the bus's full
// subgraph per voice" (the signal graph has no generic node-cloning
// facility) down to "replay the bus's oscillator+envelope shape", recorded
// as an Open Question resolution in DESIGN.md. Grounded on EnvelopeNode's
// ADSR stage machine, inlined here since voice.Source has no Ctx to Tick
// EnvelopeNode through.
type SynthVoiceSource struct {
	Waveform                             Waveform
	FreqHz                               float64
	AttackSec, DecaySec, ReleaseSec      float64
	Sustain                              float64
	sampleRate                           float64

	phase    float64
	level    float64
	stage    EnvStage
	released bool
}

// NewSynthVoiceSource builds a one-shot ADSR-gated oscillator voice at the
// given frequency, with sensible defaults matching NewEnvelope's.
func NewSynthVoiceSource(sampleRate float64, wf Waveform, freqHz float64) *SynthVoiceSource {
	return &SynthVoiceSource{
		Waveform: wf, FreqHz: freqHz, sampleRate: sampleRate,
		AttackSec: 0.01, DecaySec: 0.1, Sustain: 0.7, ReleaseSec: 0.3,
		stage: EnvAttack,
	}
}

func (s *SynthVoiceSource) Render() float32 {
	out := waveformSample(s.Waveform, s.phase, 0.5)
	s.phase += s.FreqHz / s.sampleRate
	_, frac := math.Modf(s.phase)
	if frac < 0 {
		frac += 1
	}
	s.phase = frac

	switch s.stage {
	case EnvAttack:
		s.level += 1.0 / minSamples(s.AttackSec, s.sampleRate)
		if s.level >= 1 {
			s.level = 1
			s.stage = EnvDecay
		}
	case EnvDecay:
		s.level -= (1 - s.Sustain) / minSamples(s.DecaySec, s.sampleRate)
		if s.level <= s.Sustain {
			s.level = s.Sustain
			s.stage = EnvSustain
		}
	case EnvSustain:
		s.level = s.Sustain
		if s.released {
			s.stage = EnvRelease
		}
	case EnvRelease:
		s.level -= s.Sustain / minSamples(s.ReleaseSec, s.sampleRate)
		if s.level <= 0 {
			s.level = 0
			s.stage = EnvIdle
		}
	case EnvIdle:
		s.level = 0
	}
	return out * float32(s.level)
}

func (s *SynthVoiceSource) Done() bool { return s.stage == EnvIdle }

func (s *SynthVoiceSource) Release() {
	s.released = true
	if s.stage == EnvAttack || s.stage == EnvDecay {
		s.stage = EnvRelease
	}
}
