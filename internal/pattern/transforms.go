package pattern

import (
	"math"

	"github.com/ekg/phonon/internal/timefrac"
)

// minRate is the clamp floor applied to fast/slow rates: a rate of zero or
// negative would otherwise divide by zero or reverse time, so any rate below
// minRate (negative rates included) becomes exactly 1/1024, i.e. the
// effective rate is max(r, minRate). Slow clamps its argument the same way
// before inverting it.
const minRate = 1.0 / 1024.0

func clampRate(r Fraction) Fraction {
	if r.Float64() < minRate {
		return timefrac.New(1, 1024)
	}
	return r
}

// Fast speeds up p by factor r (r cycles of p per one cycle of output).
func Fast[T any](r Fraction, p Pattern[T]) Pattern[T] {
	r = clampRate(r)
	if r.Num == 0 {
		return Silence[T]()
	}
	return withTime(p, func(f Fraction) Fraction { return f.Mul(r) }, func(f Fraction) Fraction { return f.Div(r) })
}

// Slow stretches p out by factor r (one cycle of p per r cycles of output).
func Slow[T any](r Fraction, p Pattern[T]) Pattern[T] {
	r = clampRate(r)
	return Fast(timefrac.New(1, 1).Div(r), p)
}

// withTime maps query time through `query` before querying p, and maps
// result haps back through `result` — the shared machinery behind every
// "reparameterize time" transform (fast/slow/early/late/rotate...).
func withTime[T any](p Pattern[T], query, result func(Fraction) Fraction) Pattern[T] {
	return Pattern[T]{Query: func(st State) []Hap[T] {
		qs := st.Span.WithTime(query)
		var out []Hap[T]
		for _, h := range p.Query(st.WithSpan(qs)) {
			out = append(out, h.WithSpan(func(s TimeSpan) TimeSpan { return s.WithTime(result) }))
		}
		return out
	}}
}

// Rev reverses each cycle of p in place.
func Rev[T any](p Pattern[T]) Pattern[T] {
	return Pattern[T]{Query: func(st State) []Hap[T] {
		var out []Hap[T]
		for _, cyc := range st.Span.SpanCycles() {
			cycStart := timefrac.FromInt(cyc.Begin.Floor())
			cycNext := cycStart.Add(timefrac.FromInt(1))
			reflect := func(f Fraction) Fraction { return cycStart.Add(cycNext).Sub(f) }
			reflectedSpan := timefrac.NewSpan(reflect(cyc.End), reflect(cyc.Begin))
			for _, h := range p.Query(st.WithSpan(reflectedSpan)) {
				out = append(out, h.WithSpan(func(s TimeSpan) TimeSpan {
					return timefrac.NewSpan(reflect(s.End), reflect(s.Begin))
				}))
			}
		}
		return out
	}}
}

// Early shifts p earlier in time by amount t (i.e. plays ahead of schedule).
func Early[T any](t Fraction, p Pattern[T]) Pattern[T] {
	return withTime(p, func(f Fraction) Fraction { return f.Add(t) }, func(f Fraction) Fraction { return f.Sub(t) })
}

// Late shifts p later in time by amount t.
func Late[T any](t Fraction, p Pattern[T]) Pattern[T] {
	return Early(t.Neg(), p)
}

// RotL is an alias of Early by cycles (rotate pattern content left).
func RotL[T any](t Fraction, p Pattern[T]) Pattern[T] { return Early(t, p) }

// RotR is an alias of Late by cycles.
func RotR[T any](t Fraction, p Pattern[T]) Pattern[T] { return Late(t, p) }

// Offset is an alias for Late, matching common mini-notation naming.
func Offset[T any](t Fraction, p Pattern[T]) Pattern[T] { return Late(t, p) }

// Every applies f to p once every n cycles (on cycle 0, n, 2n, ...), and
// passes p through unchanged otherwise.
func Every[T any](n int64, f func(Pattern[T]) Pattern[T], p Pattern[T]) Pattern[T] {
	return EveryOffset(n, 0, f, p)
}

// EveryOffset applies f on cycles where (cycle mod n) == offset.
func EveryOffset[T any](n, offset int64, f func(Pattern[T]) Pattern[T], p Pattern[T]) Pattern[T] {
	if n <= 0 {
		return p
	}
	transformed := f(p)
	return Pattern[T]{Query: func(st State) []Hap[T] {
		var out []Hap[T]
		for _, cyc := range st.Span.SpanCycles() {
			cycleNum := cyc.Begin.Floor()
			m := ((cycleNum % n) + n) % n
			src := p
			if m == offset {
				src = transformed
			}
			out = append(out, src.Query(st.WithSpan(cyc))...)
		}
		return out
	}}
}

// Within applies f only to the portion of each cycle inside [begin, end),
// leaving the rest of p unaffected.
func Within[T any](begin, end Fraction, f func(Pattern[T]) Pattern[T], p Pattern[T]) Pattern[T] {
	transformed := f(p)
	inWindow := func(frac Fraction) bool {
		return frac.Gte(begin) && frac.Lt(end)
	}
	return Pattern[T]{Query: func(st State) []Hap[T] {
		var out []Hap[T]
		for _, h := range p.Query(st) {
			if !inWindow(h.Part.Begin.CyclePos()) {
				out = append(out, h)
			}
		}
		for _, h := range transformed.Query(st) {
			if inWindow(h.Part.Begin.CyclePos()) {
				out = append(out, h)
			}
		}
		return out
	}}
}

// degradeHash is the single deterministic pseudo-random source every
// probabilistic transform uses: a sine-based hash of an integer seed and an
// event's onset time, mirroring the "multiply a sine and take the fractional
// part" technique used for deterministic LFO-like randomness. Re-querying
// the same span always yields the same hash for the same event.
func degradeHash(seed int64, t Fraction) float64 {
	x := t.Float64()*12.9898 + float64(seed)*78.233
	s := math.Sin(x) * 43758.5453
	_, frac := math.Modf(s)
	if frac < 0 {
		frac += 1
	}
	return frac
}

// DegradeBy removes each event with probability prob (keeps with 1-prob),
// using the deterministic per-event hash so repeated queries are stable.
func DegradeBy[T any](seed int64, prob float64, p Pattern[T]) Pattern[T] {
	return Pattern[T]{Query: func(st State) []Hap[T] {
		var out []Hap[T]
		for _, h := range p.Query(st) {
			if degradeHash(seed, h.WholeOrPart().Begin) >= prob {
				out = append(out, h)
			}
		}
		return out
	}}
}

// UndegradeBy is DegradeBy's complement: keeps events with probability prob.
func UndegradeBy[T any](seed int64, prob float64, p Pattern[T]) Pattern[T] {
	return Pattern[T]{Query: func(st State) []Hap[T] {
		var out []Hap[T]
		for _, h := range p.Query(st) {
			if degradeHash(seed, h.WholeOrPart().Begin) < prob {
				out = append(out, h)
			}
		}
		return out
	}}
}

// Sometimes applies f to roughly half the events of p, Often to ~75%, Rarely
// to ~25%, each chosen by the same deterministic hash as DegradeBy so the
// selection is stable across requeries.
func Sometimes[T any](seed int64, f func(Pattern[T]) Pattern[T], p Pattern[T]) Pattern[T] {
	return SometimesBy(seed, 0.5, f, p)
}

func Often[T any](seed int64, f func(Pattern[T]) Pattern[T], p Pattern[T]) Pattern[T] {
	return SometimesBy(seed, 0.75, f, p)
}

func Rarely[T any](seed int64, f func(Pattern[T]) Pattern[T], p Pattern[T]) Pattern[T] {
	return SometimesBy(seed, 0.25, f, p)
}

// SometimesBy applies f to each event with probability prob, chosen by the
// per-event deterministic hash; the other events pass through unmodified.
func SometimesBy[T any](seed int64, prob float64, f func(Pattern[T]) Pattern[T], p Pattern[T]) Pattern[T] {
	transformed := f(p)
	return Pattern[T]{Query: func(st State) []Hap[T] {
		var out []Hap[T]
		for _, h := range p.Query(st) {
			if degradeHash(seed, h.WholeOrPart().Begin) < prob {
				continue
			}
			out = append(out, h)
		}
		for _, h := range transformed.Query(st) {
			if degradeHash(seed, h.WholeOrPart().Begin) < prob {
				out = append(out, h)
			}
		}
		return out
	}}
}

// Ply repeats each event n times within its own span.
func Ply[T any](n int64, p Pattern[T]) Pattern[T] {
	if n <= 1 {
		return p
	}
	return Pattern[T]{Query: func(st State) []Hap[T] {
		var out []Hap[T]
		for _, h := range p.Query(st) {
			whole := h.WholeOrPart()
			dur := whole.Duration().Div(timefrac.FromInt(n))
			for i := int64(0); i < n; i++ {
				begin := whole.Begin.Add(dur.Mul(timefrac.FromInt(i)))
				end := begin.Add(dur)
				sub := timefrac.NewSpan(begin, end)
				clipped, ok := sub.Intersection(st.Span)
				if !ok {
					continue
				}
				w := sub
				out = append(out, Hap[T]{Whole: &w, Part: clipped, Value: h.Value})
			}
		}
		return out
	}}
}

// Stutter is an alias of Ply (both names appear in live-coding dialects).
func Stutter[T any](n int64, p Pattern[T]) Pattern[T] { return Ply(n, p) }

// Chop subdivides each sample-triggering event into n equal consecutive
// slices, tagging each with its slice index/count via the given tagger —
// used for chopping a sample into grains.
func Chop[T any](n int64, p Pattern[T], tag func(v T, idx, of int64) T) Pattern[T] {
	if n <= 1 {
		return p
	}
	return Pattern[T]{Query: func(st State) []Hap[T] {
		var out []Hap[T]
		for _, h := range p.Query(st) {
			whole := h.WholeOrPart()
			dur := whole.Duration().Div(timefrac.FromInt(n))
			for i := int64(0); i < n; i++ {
				begin := whole.Begin.Add(dur.Mul(timefrac.FromInt(i)))
				end := begin.Add(dur)
				sub := timefrac.NewSpan(begin, end)
				clipped, ok := sub.Intersection(h.Part)
				if !ok {
					continue
				}
				w := sub
				out = append(out, Hap[T]{Whole: &w, Part: clipped, Value: tag(h.Value, i, n)})
			}
		}
		return out
	}}
}

// Striate is Chop's cross-cycle sibling: instead of chopping every event,
// it chops the whole pattern into n repeats across n cycles, each picking a
// different 1/n slice — approximated here as per-cycle slice selection
// driven by cycle number mod n.
func Striate[T any](n int64, p Pattern[T], tag func(v T, idx, of int64) T) Pattern[T] {
	if n <= 1 {
		return p
	}
	return Pattern[T]{Query: func(st State) []Hap[T] {
		var out []Hap[T]
		for _, h := range p.Query(st) {
			idx := ((h.WholeOrPart().Begin.Floor() % n) + n) % n
			out = append(out, WithValue[T, T](h, tag(h.Value, idx, n)))
		}
		return out
	}}
}

// Chunk divides the cycle into n parts and applies f to a different 1/n
// chunk each cycle, cycling through all n chunks over n cycles.
func Chunk[T any](n int64, f func(Pattern[T]) Pattern[T], p Pattern[T]) Pattern[T] {
	if n <= 0 {
		return p
	}
	parts := make([]Pattern[T], n)
	for i := int64(0); i < n; i++ {
		begin := timefrac.New(i, n)
		end := timefrac.New(i+1, n)
		parts[i] = Within(begin, end, f, p)
	}
	return Pattern[T]{Query: func(st State) []Hap[T] {
		var out []Hap[T]
		for _, cyc := range st.Span.SpanCycles() {
			cycleNum := cyc.Begin.Floor()
			idx := ((cycleNum % n) + n) % n
			out = append(out, parts[idx].Query(st.WithSpan(cyc))...)
		}
		return out
	}}
}

// Linger plays only the first t fraction of each cycle, repeated to fill
// the whole cycle.
func Linger[T any](t Fraction, p Pattern[T]) Pattern[T] {
	if t.Num == 0 {
		return Silence[T]()
	}
	if t.Float64() < 0 {
		return Linger(t.Neg(), Rev(p))
	}
	return Fast(timefrac.New(1, 1).Div(t), zoomSpan[T](timefrac.FromInt(0), t, p))
}

func zoomSpan[T any](begin, end Fraction, p Pattern[T]) Pattern[T] {
	dur := end.Sub(begin)
	if dur.Num == 0 {
		return Silence[T]()
	}
	return Pattern[T]{Query: func(st State) []Hap[T] {
		qSpan := st.Span.WithTime(func(f Fraction) Fraction { return f.Mul(dur).Add(begin) })
		var out []Hap[T]
		for _, h := range p.Query(st.WithSpan(qSpan)) {
			out = append(out, h.WithSpan(func(s TimeSpan) TimeSpan {
				return s.WithTime(func(f Fraction) Fraction { return f.Sub(begin).Div(dur) })
			}))
		}
		return out
	}}
}

// LoopFirst repeats cycle 0 of p forever (the `loop_` transform).
func LoopFirst[T any](p Pattern[T]) Pattern[T] {
	return Pattern[T]{Query: func(st State) []Hap[T] {
		var out []Hap[T]
		for _, cyc := range st.Span.SpanCycles() {
			cycleNum := cyc.Begin.Floor()
			offset := timefrac.FromInt(cycleNum)
			shifted := cyc.WithTime(func(f Fraction) Fraction { return f.Sub(offset) })
			for _, h := range p.Query(st.WithSpan(shifted)) {
				out = append(out, h.WithSpan(func(s TimeSpan) TimeSpan {
					return s.WithTime(func(f Fraction) Fraction { return f.Add(offset) })
				}))
			}
		}
		return out
	}}
}

// Iter shifts the pattern by 1/n of a cycle further each cycle, cycling back
// after n cycles (so over n cycles every rotation has been shown once).
func Iter[T any](n int64, p Pattern[T]) Pattern[T] {
	if n <= 0 {
		return p
	}
	return Pattern[T]{Query: func(st State) []Hap[T] {
		var out []Hap[T]
		for _, cyc := range st.Span.SpanCycles() {
			cycleNum := cyc.Begin.Floor()
			k := ((cycleNum % n) + n) % n
			shift := timefrac.New(k, n)
			out = append(out, RotL(shift, p).Query(st.WithSpan(cyc))...)
		}
		return out
	}}
}

// IterBack is Iter in the opposite rotation direction.
func IterBack[T any](n int64, p Pattern[T]) Pattern[T] {
	if n <= 0 {
		return p
	}
	return Pattern[T]{Query: func(st State) []Hap[T] {
		var out []Hap[T]
		for _, cyc := range st.Span.SpanCycles() {
			cycleNum := cyc.Begin.Floor()
			k := ((cycleNum % n) + n) % n
			shift := timefrac.New(k, n)
			out = append(out, RotR(shift, p).Query(st.WithSpan(cyc))...)
		}
		return out
	}}
}

// Palindrome alternates a forward cycle with a reversed cycle.
func Palindrome[T any](p Pattern[T]) Pattern[T] {
	return SlowCat(p, Rev(p))
}

// FastGap squeezes p into the first 1/r of each cycle, leaving the rest
// silent (unlike Fast, which repeats p r times per cycle).
func FastGap[T any](r Fraction, p Pattern[T]) Pattern[T] {
	r = clampRate(r)
	if r.Float64() <= 0 {
		return Silence[T]()
	}
	return Pattern[T]{Query: func(st State) []Hap[T] {
		var out []Hap[T]
		for _, cyc := range st.Span.SpanCycles() {
			cycStart := timefrac.FromInt(cyc.Begin.Floor())
			munge := func(f Fraction) Fraction { return f.Sub(cycStart).Mul(r).Add(cycStart) }
			unmunge := func(f Fraction) Fraction { return f.Sub(cycStart).Div(r).Add(cycStart) }
			qBegin := munge(cyc.Begin)
			qEnd := munge(cyc.End).Min(cycStart.Add(timefrac.FromInt(1)))
			if qBegin.Gte(qEnd) {
				continue
			}
			for _, h := range p.Query(st.WithSpan(timefrac.NewSpan(qBegin, qEnd))) {
				mapped := h.WithSpan(func(s TimeSpan) TimeSpan { return s.WithTime(unmunge) })
				clippedPart, ok := mapped.Part.Intersection(cyc)
				if !ok {
					continue
				}
				mapped.Part = clippedPart
				out = append(out, mapped)
			}
		}
		return out
	}}
}

// CompressSpan squeezes p into [begin,end) of every cycle, leaving the rest
// of the cycle silent.
func CompressSpan[T any](begin, end Fraction, p Pattern[T]) Pattern[T] {
	if begin.Gt(end) || begin.Float64() < 0 || end.Float64() > 1 {
		return Silence[T]()
	}
	dur := end.Sub(begin)
	if dur.Num == 0 {
		return Silence[T]()
	}
	return Late(begin, FastGap(timefrac.FromInt(1).Div(dur), p))
}

// Discretise samples a continuous (analog) pattern at n evenly spaced points
// per cycle, turning it into a discrete event pattern with one Hap per slice.
func Discretise[T any](n int64, p Pattern[T]) Pattern[T] {
	if n <= 0 {
		return Silence[T]()
	}
	return Pattern[T]{Query: func(st State) []Hap[T] {
		var out []Hap[T]
		for _, cyc := range st.Span.SpanCycles() {
			cycStart := timefrac.FromInt(cyc.Begin.Floor())
			for i := int64(0); i < n; i++ {
				begin := cycStart.Add(timefrac.New(i, n))
				end := cycStart.Add(timefrac.New(i+1, n))
				slice := timefrac.NewSpan(begin, end)
				clipped, ok := slice.Intersection(cyc)
				if !ok {
					continue
				}
				samples := p.Query(st.WithSpan(timefrac.NewSpan(begin, begin)))
				if len(samples) == 0 {
					samples = p.Query(st.WithSpan(slice))
				}
				if len(samples) == 0 {
					continue
				}
				w := slice
				out = append(out, Hap[T]{Whole: &w, Part: clipped, Value: samples[0].Value})
			}
		}
		return out
	}}
}

// Humanize nudges each event's onset by a small deterministic jitter in
// [-amount/2, amount/2] cycles, derived from the same hash as DegradeBy so
// the jitter is stable across requeries.
func Humanize[T any](seed int64, amount Fraction, p Pattern[T]) Pattern[T] {
	return Pattern[T]{Query: func(st State) []Hap[T] {
		var out []Hap[T]
		for _, h := range p.Query(st) {
			jitterF := degradeHash(seed+1, h.WholeOrPart().Begin) - 0.5
			jitter := amount.Mul(timefrac.New(int64(jitterF*1e6), 1e6))
			out = append(out, h.WithSpan(func(s TimeSpan) TimeSpan {
				return s.WithTime(func(f Fraction) Fraction { return f.Add(jitter) })
			}))
		}
		return out
	}}
}

// Chew is Striate with the additional per-slice playback-rate tag a sample
// player needs to pitch each grain to fit its new duration; the rate
// computation itself is left to the caller via the tag function, consistent
// with chop/striate's existing tag-callback shape.
func Chew[T any](n int64, p Pattern[T], tag func(v T, idx, of int64) T) Pattern[T] {
	return Striate(n, p, tag)
}

// Fold flattens analog values outside [-1,1] back into range via reflection,
// matching a wavefolder's behavior; used as a pattern-of-float transform.
func Fold(p Pattern[float64]) Pattern[float64] {
	return Pattern[float64]{Query: func(st State) []Hap[float64] {
		var out []Hap[float64]
		for _, h := range p.Query(st) {
			out = append(out, WithValue[float64, float64](h, foldValue(h.Value)))
		}
		return out
	}}
}

func foldValue(v float64) float64 {
	for v > 1 || v < -1 {
		if v > 1 {
			v = 2 - v
		}
		if v < -1 {
			v = -2 - v
		}
	}
	return v
}

// FastByPattern is Fast with a pattern-valued rate ("a $ fast %speed"): the
// rate pattern is queried once per cycle touched by the query, its haps for
// that cycle are put in onset order, and for cycle c the value of hap
// number c mod k (k being how many haps that cycle holds; the rate falls
// back to 1 when the rate pattern is silent over that cycle) becomes the
// Fast rate applied to p for just that cycle. A rate pattern with one event
// per cycle thus supplies its own value each cycle, and `%speed = "1 2 3 4"`
// steps through 1, 2, 3, 4 over four consecutive cycles, driving a
// different event count on each per spec §4.1.2's "r may itself be a pattern"
// clause, without requiring sub-cycle rate changes (the compiler only ever
// drives this from a pattern macro resolved at compile time, not an
// arbitrary audio-rate signal).
func FastByPattern[T any](rateP Pattern[float64], p Pattern[T]) Pattern[T] {
	return Pattern[T]{Query: func(st State) []Hap[T] {
		var out []Hap[T]
		for _, cyc := range st.Span.SpanCycles() {
			rate := 1.0
			cycStart := timefrac.FromInt(cyc.Begin.Floor())
			cycEnd := cycStart.Add(timefrac.FromInt(1))
			rhaps := SortHaps(rateP.QuerySpan(cycStart, cycEnd))
			if len(rhaps) > 0 {
				k := int64(len(rhaps))
				rate = rhaps[((cyc.Begin.Floor()%k)+k)%k].Value
			}
			r := timefrac.FromFloat(rate, 1<<20)
			out = append(out, Fast(r, p).Query(st.WithSpan(cyc))...)
		}
		return out
	}}
}

// DegradeByPattern is DegradeBy with a pattern-valued probability, resolved
// once per cycle like FastByPattern but always from the first hap the
// probability pattern returns for that cycle (0.5 when it is silent there).
func DegradeByPattern[T any](seed int64, probP Pattern[float64], p Pattern[T]) Pattern[T] {
	return Pattern[T]{Query: func(st State) []Hap[T] {
		var out []Hap[T]
		for _, cyc := range st.Span.SpanCycles() {
			prob := 0.5
			cycStart := timefrac.FromInt(cyc.Begin.Floor())
			cycEnd := cycStart.Add(timefrac.FromInt(1))
			phaps := probP.QuerySpan(cycStart, cycEnd)
			if len(phaps) > 0 {
				prob = phaps[0].Value
			}
			out = append(out, DegradeBy(seed, prob, p).Query(st.WithSpan(cyc))...)
		}
		return out
	}}
}
