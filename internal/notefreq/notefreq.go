// Package notefreq converts note-name tokens ("c4", "c#4", "df4") into
// frequencies via 12-TET with A4 = 440 Hz, grounded on the teacher's
// fm.Engine.midiToFreq (same 440*2^((note-69)/12) formula), generalized
// from a MIDI note number input to parsing the note-name spelling spec §6.1
// requires ("#" sharp, "f" flat, octave digit, default octave 4 if absent).
package notefreq

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

var semitoneFromLetter = map[byte]int{
	'c': 0, 'd': 2, 'e': 4, 'f': 5, 'g': 7, 'a': 9, 'b': 11,
}

// MidiToFreq converts a MIDI note number to Hz, A4 (69) = 440.
func MidiToFreq(note int) float64 {
	return 440 * math.Pow(2, float64(note-69)/12)
}

// ParseNote converts a note-name token such as "c4", "c#4", "df4", "a" (bare
// letter defaults to octave 4) into its frequency in Hz. Returns an error
// for tokens that aren't valid note names, never panicking. The compiler's
// numeric resolver (resolveToken) tries a plain number first, calls this
// only when that fails, and maps a token that is neither to 0.
func ParseNote(tok string) (float64, error) {
	s := strings.ToLower(strings.TrimSpace(tok))
	if s == "" {
		return 0, fmt.Errorf("notefreq: empty note")
	}
	letter := s[0]
	base, ok := semitoneFromLetter[letter]
	if !ok {
		return 0, fmt.Errorf("notefreq: %q is not a note letter", tok)
	}
	i := 1
	semitone := base
	for i < len(s) && (s[i] == '#' || s[i] == 'f' || s[i] == 's') {
		switch s[i] {
		case '#', 's':
			semitone++
		case 'f':
			semitone--
		}
		i++
	}
	octave := 4
	if i < len(s) {
		rest := s[i:]
		n, err := strconv.Atoi(rest)
		if err != nil {
			return 0, fmt.Errorf("notefreq: %q has invalid octave %q", tok, rest)
		}
		octave = n
	}
	midi := (octave+1)*12 + semitone
	return MidiToFreq(midi), nil
}
