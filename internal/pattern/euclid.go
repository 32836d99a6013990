package pattern

import "github.com/ekg/phonon/internal/timefrac"

// Bjorklund computes the Euclidean rhythm of k pulses over n steps, using
// the standard bucket-based construction (Bjorklund's algorithm /
// E(k,n)) rather than the recursive version, since the bucket form is both
// simpler to verify and exactly k pulses by construction for any 0<=k<=n.
func Bjorklund(k, n int) []bool {
	if n <= 0 {
		return nil
	}
	if k <= 0 {
		return make([]bool, n)
	}
	if k >= n {
		out := make([]bool, n)
		for i := range out {
			out[i] = true
		}
		return out
	}
	out := make([]bool, n)
	bucket := 0
	for i := 0; i < n; i++ {
		bucket += k
		if bucket >= n {
			bucket -= n
			out[i] = true
		}
	}
	return out
}

// Euclid builds the pattern E(k,n,rotation) over hits/misses of onVal/offVal,
// one step per 1/n of a cycle, rotated left by `rotation` steps.
func Euclid[T any](k, n, rotation int, onVal, offVal T) Pattern[T] {
	if n <= 0 {
		return Silence[T]()
	}
	bits := Bjorklund(absInt(k), n)
	if k < 0 {
		for i := range bits {
			bits[i] = !bits[i]
		}
	}
	rotation = ((rotation % n) + n) % n
	rotated := make([]bool, n)
	for i := 0; i < n; i++ {
		rotated[i] = bits[(i+rotation)%n]
	}
	vals := make([]T, n)
	for i, b := range rotated {
		if b {
			vals[i] = onVal
		} else {
			vals[i] = offVal
		}
	}
	return FromList(vals)
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// EuclidFull is like Euclid but takes two full patterns (rather than plain
// values) to place at hit/miss positions, matching mini-notation's
// `a(k,n)` applying to an arbitrary sub-pattern, not just a literal.
func EuclidFull[T any](k, n, rotation int, onPat, offPat Pattern[T]) Pattern[T] {
	if n <= 0 {
		return Silence[T]()
	}
	bits := Bjorklund(absInt(k), n)
	if k < 0 {
		for i := range bits {
			bits[i] = !bits[i]
		}
	}
	rotation = ((rotation % n) + n) % n
	weighted := make([]WeightedPattern[T], n)
	for i := 0; i < n; i++ {
		b := bits[(i+rotation)%n]
		pat := offPat
		if b {
			pat = onPat
		}
		weighted[i] = WeightedPattern[T]{Pattern: pat, Weight: timefrac.FromInt(1)}
	}
	return TimeCat(weighted)
}
