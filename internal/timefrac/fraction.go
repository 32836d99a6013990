// Package timefrac implements the exact rational time arithmetic the
// pattern algebra and signal graph share: cycle positions, half-open
// timespans, and the query state threaded through a pattern query.
package timefrac

import "fmt"

// Fraction is an exact rational number, always kept in lowest terms with a
// positive denominator. Pattern boundaries are never represented as floats:
// float comparison at a cycle edge is exactly the kind of off-by-epsilon bug
// that turns a deterministic pattern engine into a flaky one.
type Fraction struct {
	Num, Den int64
}

// FromInt returns the Fraction n/1.
func FromInt(n int64) Fraction { return Fraction{Num: n, Den: 1} }

// New returns num/den reduced to lowest terms with Den > 0.
func New(num, den int64) Fraction {
	if den == 0 {
		panic("timefrac: zero denominator")
	}
	if den < 0 {
		num, den = -num, -den
	}
	g := gcd(abs(num), den)
	if g == 0 {
		g = 1
	}
	return Fraction{Num: num / g, Den: den / g}
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func (f Fraction) Add(g Fraction) Fraction {
	return New(f.Num*g.Den+g.Num*f.Den, f.Den*g.Den)
}

func (f Fraction) Sub(g Fraction) Fraction {
	return New(f.Num*g.Den-g.Num*f.Den, f.Den*g.Den)
}

func (f Fraction) Mul(g Fraction) Fraction {
	return New(f.Num*g.Num, f.Den*g.Den)
}

func (f Fraction) Div(g Fraction) Fraction {
	if g.Num == 0 {
		panic("timefrac: division by zero")
	}
	return New(f.Num*g.Den, f.Den*g.Num)
}

func (f Fraction) Neg() Fraction { return Fraction{Num: -f.Num, Den: f.Den} }

// Cmp returns -1, 0, or 1 as f is less than, equal to, or greater than g.
func (f Fraction) Cmp(g Fraction) int {
	l := f.Num * g.Den
	r := g.Num * f.Den
	switch {
	case l < r:
		return -1
	case l > r:
		return 1
	default:
		return 0
	}
}

func (f Fraction) Lt(g Fraction) bool  { return f.Cmp(g) < 0 }
func (f Fraction) Lte(g Fraction) bool { return f.Cmp(g) <= 0 }
func (f Fraction) Gt(g Fraction) bool  { return f.Cmp(g) > 0 }
func (f Fraction) Gte(g Fraction) bool { return f.Cmp(g) >= 0 }
func (f Fraction) Eq(g Fraction) bool  { return f.Cmp(g) == 0 }

// Floor returns the greatest integer <= f, i.e. the cycle number f falls in.
func (f Fraction) Floor() int64 {
	q := f.Num / f.Den
	if f.Num%f.Den != 0 && (f.Num < 0) != (f.Den < 0) {
		q--
	}
	return q
}

// Ceil returns the least integer >= f.
func (f Fraction) Ceil() int64 {
	q := f.Floor()
	if f.Eq(FromInt(q)) {
		return q
	}
	return q + 1
}

// CyclePos returns f's position within its cycle, i.e. f - f.Floor(), always
// in [0, 1).
func (f Fraction) CyclePos() Fraction {
	return f.Sub(FromInt(f.Floor()))
}

// SampleCycle returns floor(f), the cycle that contains f — named
// distinctly from Floor for call sites that mean "which cycle", not "round
// down".
func (f Fraction) SampleCycle() int64 { return f.Floor() }

// Min returns the lesser of f and g.
func (f Fraction) Min(g Fraction) Fraction {
	if f.Lte(g) {
		return f
	}
	return g
}

// Max returns the greater of f and g.
func (f Fraction) Max(g Fraction) Fraction {
	if f.Gte(g) {
		return f
	}
	return g
}

func (f Fraction) Float64() float64 { return float64(f.Num) / float64(f.Den) }

// FromFloat approximates x as num/denom reduced to lowest terms, rounding to
// the nearest 1/denom — used at the boundary where a floating-point control
// value (a pattern macro's numeric rate, a UI slider) must become an exact
// Fraction for time arithmetic. denom should be a power of two large enough
// for the needed precision (1<<20 is plenty for audio-rate use).
func FromFloat(x float64, denom int64) Fraction {
	if denom <= 0 {
		denom = 1
	}
	num := int64(x*float64(denom) + 0.5*sign(x))
	return New(num, denom)
}

func sign(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}

func (f Fraction) String() string {
	if f.Den == 1 {
		return fmt.Sprintf("%d", f.Num)
	}
	return fmt.Sprintf("%d/%d", f.Num, f.Den)
}
