package voice

import "testing"

type constSource struct {
	val      float32
	released bool
	done     bool
}

func (s *constSource) Render() float32 { return s.val }
func (s *constSource) Done() bool      { return s.done }
func (s *constSource) Release()        { s.released = true }

func TestTriggerFillsFreeSlotsFirst(t *testing.T) {
	m := NewManager(44100)
	for i := 0; i < MaxVoices; i++ {
		m.Trigger(&constSource{val: 1}, uint64(i))
	}
	if got := m.ActiveVoiceCount(); got != MaxVoices {
		t.Fatalf("got %d active voices, want %d", got, MaxVoices)
	}
}

func TestTriggerAtSaturationStealsOldest(t *testing.T) {
	m := NewManager(44100)
	sources := make([]*constSource, MaxVoices)
	for i := 0; i < MaxVoices; i++ {
		sources[i] = &constSource{val: 1}
		m.Trigger(sources[i], uint64(i))
	}
	newest := &constSource{val: 2}
	m.Trigger(newest, uint64(1000))

	if got := m.ActiveVoiceCount(); got != MaxVoices {
		t.Fatalf("got %d active voices after steal, want %d", got, MaxVoices)
	}
	if !sources[0].released {
		t.Fatal("expected the oldest voice (start index 0) to be released when stolen")
	}
	found := false
	for i := range m.slots {
		if m.slots[i].src == newest {
			found = true
		}
	}
	if !found {
		t.Fatal("expected the newest trigger to occupy a slot")
	}
}

func TestVoiceFreedWhenDone(t *testing.T) {
	m := NewManager(44100)
	s := &constSource{val: 1}
	m.Trigger(s, 0)
	if m.ActiveVoiceCount() != 1 {
		t.Fatal("expected one active voice")
	}
	s.done = true
	m.ProcessSample()
	if m.ActiveVoiceCount() != 0 {
		t.Fatal("expected voice to be freed once Done")
	}
}

func TestProcessSampleSumsActiveVoices(t *testing.T) {
	m := NewManager(44100)
	m.Trigger(&constSource{val: 0.5}, 0)
	m.Trigger(&constSource{val: 0.25}, 1)
	got := m.ProcessSample()
	if got != 0.75 {
		t.Fatalf("got %v, want 0.75", got)
	}
}

func TestResetClearsAllSlots(t *testing.T) {
	m := NewManager(44100)
	for i := 0; i < 10; i++ {
		m.Trigger(&constSource{val: 1}, uint64(i))
	}
	m.Reset()
	if m.ActiveVoiceCount() != 0 {
		t.Fatal("expected no active voices after Reset")
	}
}

func TestWorkerPoolMatchesSerialSum(t *testing.T) {
	serial := NewManager(44100)
	batched := NewManager(44100)
	for i := 0; i < 20; i++ {
		serial.Trigger(&constSource{val: float32(i) * 0.01}, uint64(i))
		batched.Trigger(&constSource{val: float32(i) * 0.01}, uint64(i))
	}
	want := serial.ProcessSample()
	pool := NewWorkerPool(8, 4)
	got := pool.ProcessBatched(batched)
	if diff := got - want; diff > 1e-6 || diff < -1e-6 {
		t.Fatalf("batched sum %v != serial sum %v", got, want)
	}
}
