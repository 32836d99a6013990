// Package samplebank is the read-mostly store of decoded PCM samples keyed
// by symbolic name ("bd", "sn", "hh", ...), per spec §3.5/§6.5. It is
// exercised from the control thread (loads) and read from the audio thread
// (playback); an entry's data slice is swapped atomically so a hot reload
// never torn-reads a buffer mid-decode, the Go analog of the spec's
// "atomic-Arc-style swap" requirement in §5's shared-resource table.
//
// There is no teacher analog (fm/chiptune/nesapu/wavetable are pure
// synthesis engines with no sample-playback path) so this package is new,
// grounded directly on spec §3.5/§6.5's contract.
package samplebank

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// Data is one decoded sample: interleaved float32 PCM at Channels channels.
type Data struct {
	Frames   []float32
	Channels int
}

// Decoder turns a file on disk into Data. Real audio-file parsing (WAV/MP3/
// OGG) is out of spec §1's scope ("sample-bank disk loading" is named as an
// external collaborator); RawPCMDecoder below is the one trivial decoder we
// ship so the bank is exercisable end-to-end without a full audio-file
// library dependency.
type Decoder interface {
	Decode(path string) (Data, error)
}

// RawPCMDecoder reads a file of little-endian float32 mono samples — no
// header, no format negotiation. It exists purely so tests and examples can
// populate a bank without pulling in a WAV/FLAC parser.
type RawPCMDecoder struct{}

func (RawPCMDecoder) Decode(path string) (Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Data{}, err
	}
	if len(raw)%4 != 0 {
		return Data{}, fmt.Errorf("samplebank: %s length %d is not a multiple of 4 bytes", path, len(raw))
	}
	frames := make([]float32, len(raw)/4)
	for i := range frames {
		bits := binary.LittleEndian.Uint32(raw[i*4 : i*4+4])
		frames[i] = math.Float32frombits(bits)
	}
	return Data{Frames: frames, Channels: 1}, nil
}

// entry holds variants of one symbolic name behind an atomic pointer, so a
// control-thread reload publishes to the audio thread without a lock.
type entry struct {
	variants atomic.Pointer[[]Data]
}

// Bank maps symbolic sample names to their decoded variants, loading lazily
// from SampleDir (or PHONON_SAMPLE_DIR if SampleDir is empty) on first use.
type Bank struct {
	mu       sync.Mutex
	entries  map[string]*entry
	SampleDir string
	Decoder  Decoder

	missCount uint64
}

// New creates an empty bank. sampleDir is the search path for on-disk
// samples (one file per name, optionally suffixed _0, _1, ... for variants);
// if empty, PHONON_SAMPLE_DIR is consulted per spec §6.6.
func New(sampleDir string) *Bank {
	if sampleDir == "" {
		sampleDir = os.Getenv("PHONON_SAMPLE_DIR")
	}
	return &Bank{
		entries:   make(map[string]*entry),
		SampleDir: sampleDir,
		Decoder:   RawPCMDecoder{},
	}
}

// ParseNameVariant splits a mini-notation sample token ("bd:2") into its
// base name and the requested variant index (0 if absent).
func ParseNameVariant(tok string) (name string, variant int) {
	if i := strings.LastIndexByte(tok, ':'); i >= 0 {
		if n, err := strconv.Atoi(tok[i+1:]); err == nil {
			return tok[:i], n
		}
	}
	return tok, 0
}

// Put installs variants for name directly (used by tests and by any future
// loader that decodes off the control thread then publishes here).
func (b *Bank) Put(name string, variants []Data) {
	b.mu.Lock()
	e, ok := b.entries[name]
	if !ok {
		e = &entry{}
		b.entries[name] = e
	}
	b.mu.Unlock()
	cp := append([]Data(nil), variants...)
	e.variants.Store(&cp)
}

// Get returns the requested variant of name (modulo the number of loaded
// variants), lazily decoding from SampleDir on first reference. Returns
// ok=false (render as silence, per §6.5) if the name is unknown and cannot
// be decoded from disk.
func (b *Bank) Get(name string, variant int) (Data, bool) {
	e := b.lookupOrLoad(name)
	if e == nil {
		atomic.AddUint64(&b.missCount, 1)
		return Data{}, false
	}
	variants := e.variants.Load()
	if variants == nil || len(*variants) == 0 {
		atomic.AddUint64(&b.missCount, 1)
		return Data{}, false
	}
	idx := ((variant % len(*variants)) + len(*variants)) % len(*variants)
	return (*variants)[idx], true
}

// MissCount returns how many Get calls found no data for their name —
// surfaced by diagnostics as the "missing sample" counter.
func (b *Bank) MissCount() uint64 { return atomic.LoadUint64(&b.missCount) }

func (b *Bank) lookupOrLoad(name string) *entry {
	b.mu.Lock()
	e, ok := b.entries[name]
	if ok {
		b.mu.Unlock()
		return e
	}
	e = &entry{}
	b.entries[name] = e
	b.mu.Unlock()

	if b.SampleDir == "" {
		return nil
	}
	variants := b.decodeVariants(name)
	if len(variants) == 0 {
		return nil
	}
	e.variants.Store(&variants)
	return e
}

// decodeVariants looks for name, name_0, name_1, ... in SampleDir, stopping
// at the first gap, so a bank with "bd_0.raw".."bd_3.raw" exposes exactly
// four variants selectable via the `:n` mini-notation suffix.
func (b *Bank) decodeVariants(name string) []Data {
	var out []Data
	if d, err := b.Decoder.Decode(filepath.Join(b.SampleDir, name+".raw")); err == nil {
		out = append(out, d)
	}
	for i := 0; ; i++ {
		path := filepath.Join(b.SampleDir, fmt.Sprintf("%s_%d.raw", name, i))
		d, err := b.Decoder.Decode(path)
		if err != nil {
			break
		}
		out = append(out, d)
	}
	return out
}
