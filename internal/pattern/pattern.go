// Package pattern implements the lazy, cyclic, query-based pattern algebra:
// a Pattern[T] is nothing but a function from a queried TimeSpan to the Haps
// active within it. Composition is function composition over Query, which
// is what makes every transform below compose losslessly with every other.
package pattern

import (
	"sort"

	"github.com/ekg/phonon/internal/timefrac"
)

type (
	Fraction = timefrac.Fraction
	TimeSpan = timefrac.TimeSpan
	State    = timefrac.State
	Hap[T any] = timefrac.Hap[T]
)

// Pattern is a query: given a State (principally the span to evaluate),
// return the Haps active over that span, each hap's Part clipped within it.
type Pattern[T any] struct {
	Query func(State) []Hap[T]
}

// QuerySpan is a convenience wrapper for querying a single [begin, end) span.
func (p Pattern[T]) QuerySpan(begin, end Fraction) []Hap[T] {
	return p.Query(timefrac.NewState(timefrac.NewSpan(begin, end)))
}

// WithValue re-exports timefrac.WithValue under the pattern package so
// transforms that retag a Hap's value don't need a second import alias.
func WithValue[T, U any](h Hap[T], v U) Hap[U] {
	return timefrac.WithValue(h, v)
}

// Silence is the pattern with no events, ever.
func Silence[T any]() Pattern[T] {
	return Pattern[T]{Query: func(State) []Hap[T] { return nil }}
}

// Pure repeats a single value once per cycle, forever.
func Pure[T any](v T) Pattern[T] {
	return Pattern[T]{Query: func(st State) []Hap[T] {
		var out []Hap[T]
		for _, cyc := range st.Span.SpanCycles() {
			whole := timefrac.CycleSpan(cyc.Begin)
			out = append(out, Hap[T]{Whole: &whole, Part: cyc, Value: v})
		}
		return out
	}}
}

// Signal builds a continuous (Whole == nil) pattern from a function of
// cycle-position time — the analog-signal counterpart of Pure, used for
// audio-rate or control-rate sources that have no discrete onset.
func Signal[T any](f func(Fraction) T) Pattern[T] {
	return Pattern[T]{Query: func(st State) []Hap[T] {
		mid := st.Span.Begin.Add(st.Span.End).Div(timefrac.FromInt(2))
		return []Hap[T]{{Part: st.Span, Value: f(mid)}}
	}}
}

// FromList places each element of vs in its own 1/len(vs) slice of a single
// cycle, repeating every cycle — the semantics of "a b c" in mini-notation.
func FromList[T any](vs []T) Pattern[T] {
	if len(vs) == 0 {
		return Silence[T]()
	}
	return FastCat(mapSlice(vs, Pure[T])...)
}

func mapSlice[T, U any](vs []T, f func(T) U) []U {
	out := make([]U, len(vs))
	for i, v := range vs {
		out[i] = f(v)
	}
	return out
}

// Stack plays all given patterns simultaneously.
func Stack[T any](ps ...Pattern[T]) Pattern[T] {
	return Pattern[T]{Query: func(st State) []Hap[T] {
		var out []Hap[T]
		for _, p := range ps {
			out = append(out, p.Query(st)...)
		}
		return out
	}}
}

// SlowCat concatenates patterns, one per cycle, cycling through the list.
func SlowCat[T any](ps ...Pattern[T]) Pattern[T] {
	if len(ps) == 0 {
		return Silence[T]()
	}
	n := int64(len(ps))
	return Pattern[T]{Query: func(st State) []Hap[T] {
		var out []Hap[T]
		for _, cyc := range st.Span.SpanCycles() {
			cycleNum := cyc.Begin.Floor()
			idx := ((cycleNum % n) + n) % n
			// Shift query time so pattern idx sees its own local cycle count:
			// cycle `cycleNum` of the slowcat is cycle `cycleNum/n` (floor div)
			// of the underlying pattern.
			offsetCycles := cycleNum - divFloor(cycleNum, n)
			offset := timefrac.FromInt(offsetCycles)
			shifted := cyc.WithTime(func(f Fraction) Fraction { return f.Sub(offset) })
			for _, h := range ps[idx].Query(st.WithSpan(shifted)) {
				out = append(out, h.WithSpan(func(f TimeSpan) TimeSpan {
					return f.WithTime(func(fr Fraction) Fraction { return fr.Add(offset) })
				}))
			}
		}
		return out
	}}
}

func divFloor(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// FastCat squeezes all given patterns into a single cycle, each taking an
// equal 1/n share, then repeats every cycle — the semantics of "[a b c]".
func FastCat[T any](ps ...Pattern[T]) Pattern[T] {
	if len(ps) == 0 {
		return Silence[T]()
	}
	n := timefrac.FromInt(int64(len(ps)))
	return Fast(n, SlowCat(ps...))
}

// TimeCat places patterns within one cycle with explicit relative weights
// (the semantics of "a@2 b" — a takes 2/3 of the cycle, b takes 1/3).
func TimeCat[T any](weighted []WeightedPattern[T]) Pattern[T] {
	if len(weighted) == 0 {
		return Silence[T]()
	}
	total := timefrac.FromInt(0)
	for _, w := range weighted {
		total = total.Add(w.Weight)
	}
	var parts []Pattern[T]
	begin := timefrac.FromInt(0)
	var spans []TimeSpan
	for _, w := range weighted {
		end := begin.Add(w.Weight.Div(total))
		spans = append(spans, timefrac.NewSpan(begin, end))
		parts = append(parts, w.Pattern)
		begin = end
	}
	return Pattern[T]{Query: func(st State) []Hap[T] {
		var out []Hap[T]
		for _, cyc := range st.Span.SpanCycles() {
			cycBase := timefrac.FromInt(cyc.Begin.Floor())
			for i, sp := range spans {
				abs := timefrac.NewSpan(cycBase.Add(sp.Begin), cycBase.Add(sp.End))
				clipped, ok := abs.Intersection(cyc)
				if !ok {
					continue
				}
				compressed := compressSpanInto(parts[i], sp, cycBase)
				out = append(out, compressed.Query(st.WithSpan(clipped))...)
			}
		}
		return out
	}}
}

// WeightedPattern pairs a pattern with its relative share of a TimeCat cycle.
type WeightedPattern[T any] struct {
	Pattern Pattern[T]
	Weight  Fraction
}

// compressSpanInto maps cycle cycBase of pattern p onto the sub-span
// [cycBase+sp.Begin, cycBase+sp.End) of that same cycle, so cycle-dependent
// inner patterns (alternation, every) advance with the outer cycle.
func compressSpanInto[T any](p Pattern[T], sp TimeSpan, cycBase Fraction) Pattern[T] {
	dur := sp.Duration()
	if dur.Num == 0 {
		return Silence[T]()
	}
	toInner := func(f Fraction) Fraction {
		return f.Sub(cycBase).Sub(sp.Begin).Div(dur).Add(cycBase)
	}
	toOuter := func(f Fraction) Fraction {
		return f.Sub(cycBase).Mul(dur).Add(sp.Begin).Add(cycBase)
	}
	return Pattern[T]{Query: func(st State) []Hap[T] {
		innerSpan := st.Span.WithTime(toInner)
		var out []Hap[T]
		for _, h := range p.Query(st.WithSpan(innerSpan)) {
			out = append(out, h.WithSpan(func(s TimeSpan) TimeSpan { return s.WithTime(toOuter) }))
		}
		return out
	}}
}

// SortHaps orders haps by part-begin then part-end, the canonical order
// tests and the compiler expect when comparing two query results.
func SortHaps[T any](haps []Hap[T]) []Hap[T] {
	out := make([]Hap[T], len(haps))
	copy(out, haps)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Part.Begin.Eq(out[j].Part.Begin) {
			return out[i].Part.Begin.Lt(out[j].Part.Begin)
		}
		return out[i].Part.End.Lt(out[j].Part.End)
	})
	return out
}
