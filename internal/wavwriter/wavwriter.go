// Package wavwriter encodes float32 PCM as a minimal 32-bit-float WAV file,
// for `phonon render`'s offline output (§6.6). Adapted near-verbatim from
// the teacher's offline.go EncodeWAVFloat32LE — an 18-line RIFF header
// writer with nothing meaningfully teacher-specific to generalize beyond
// the rename.
package wavwriter

import (
	"encoding/binary"
	"math"
)

// EncodeFloat32LE builds a complete WAV file (IEEE float format tag 3) from
// interleaved samples at the given sample rate and channel count.
func EncodeFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	dataSize := len(samples) * 4
	byteRate := sampleRate * channels * 4
	blockAlign := channels * 4
	chunkSize := 36 + dataSize
	out := make([]byte, 44+dataSize)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(chunkSize))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 3)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 32)
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}
