package pattern

import (
	"testing"

	"github.com/ekg/phonon/internal/timefrac"
	"pgregory.net/rapid"
)

// genSmallPattern builds an arbitrary small FromList pattern of single
// letters, enough variety to exercise the algebra laws below without the
// generator itself becoming the bottleneck.
func genSmallPattern(t *rapid.T) Pattern[string] {
	n := rapid.IntRange(1, 5).Draw(t, "n")
	vs := make([]string, n)
	for i := range vs {
		vs[i] = rapid.SampledFrom([]string{"a", "b", "c", "d"}).Draw(t, "v")
	}
	return FromList(vs)
}

// TestRapidFastOneIsIdentity checks fast(1) == identity for arbitrary
// patterns over an arbitrary whole cycle (cycles 0..8), the universal form
// of the fixed example in pattern_test.go.
func TestRapidFastOneIsIdentity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := genSmallPattern(t)
		cyc := rapid.Int64Range(0, 8).Draw(t, "cyc")
		lhs := SortHaps(p.QuerySpan(timefrac.FromInt(cyc), timefrac.FromInt(cyc+1)))
		rhs := SortHaps(Fast(timefrac.FromInt(1), p).QuerySpan(timefrac.FromInt(cyc), timefrac.FromInt(cyc+1)))
		if len(lhs) != len(rhs) {
			t.Fatalf("length mismatch: %d vs %d", len(lhs), len(rhs))
		}
		for i := range lhs {
			if lhs[i].Value != rhs[i].Value || !lhs[i].Part.Begin.Eq(rhs[i].Part.Begin) {
				t.Fatalf("hap %d differs: %v vs %v", i, lhs[i], rhs[i])
			}
		}
	})
}

// TestRapidFastComposesMultiplicatively checks fast(a).fast(b) == fast(a*b)
// for arbitrary small positive integer rates.
func TestRapidFastComposesMultiplicatively(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := genSmallPattern(t)
		a := rapid.Int64Range(1, 4).Draw(t, "a")
		b := rapid.Int64Range(1, 4).Draw(t, "b")
		lhs := Fast(timefrac.FromInt(b), Fast(timefrac.FromInt(a), p))
		rhs := Fast(timefrac.FromInt(a*b), p)
		l := SortHaps(lhs.QuerySpan(timefrac.FromInt(0), timefrac.FromInt(1)))
		r := SortHaps(rhs.QuerySpan(timefrac.FromInt(0), timefrac.FromInt(1)))
		if len(l) != len(r) {
			t.Fatalf("length mismatch: %d vs %d", len(l), len(r))
		}
		for i := range l {
			if !l[i].Part.Begin.Eq(r[i].Part.Begin) || !l[i].Part.End.Eq(r[i].Part.End) || l[i].Value != r[i].Value {
				t.Fatalf("hap %d differs: %v vs %v", i, l[i], r[i])
			}
		}
	})
}

// TestRapidRevRevIsIdentity checks rev(rev(p)) == p for arbitrary patterns.
func TestRapidRevRevIsIdentity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := genSmallPattern(t)
		cyc := rapid.Int64Range(0, 8).Draw(t, "cyc")
		lhs := SortHaps(p.QuerySpan(timefrac.FromInt(cyc), timefrac.FromInt(cyc+1)))
		rhs := SortHaps(Rev(Rev(p)).QuerySpan(timefrac.FromInt(cyc), timefrac.FromInt(cyc+1)))
		if len(lhs) != len(rhs) {
			t.Fatalf("length mismatch: %d vs %d", len(lhs), len(rhs))
		}
		for i := range lhs {
			if lhs[i].Value != rhs[i].Value {
				t.Fatalf("hap %d differs: %v vs %v", i, lhs[i], rhs[i])
			}
		}
	})
}

// TestRapidDegradeByIsDeterministic checks that re-querying the same span
// twice always yields the same number of haps with identical onsets, the core determinism
// guarantee every "random" transform must uphold.
func TestRapidDegradeByIsDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.Int64Range(0, 1000).Draw(t, "seed")
		prob := rapid.Float64Range(0, 1).Draw(t, "prob")
		p := Fast(timefrac.FromInt(16), Pure("x"))
		degraded := DegradeBy(seed, prob, p)
		a := degraded.QuerySpan(timefrac.FromInt(0), timefrac.FromInt(1))
		b := degraded.QuerySpan(timefrac.FromInt(0), timefrac.FromInt(1))
		if len(a) != len(b) {
			t.Fatalf("requery length differs: %d vs %d", len(a), len(b))
		}
		for i := range a {
			if !a[i].Part.Begin.Eq(b[i].Part.Begin) {
				t.Fatalf("requery onset differs at %d", i)
			}
		}
	})
}

// TestRapidEuclidAlwaysEmitsExactlyKHits checks E(k,n,r) emits exactly k
// hits for any valid 0<=k<=n, any rotation.
func TestRapidEuclidAlwaysEmitsExactlyKHits(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 16).Draw(t, "n")
		k := rapid.IntRange(0, n).Draw(t, "k")
		r := rapid.IntRange(0, n).Draw(t, "r")
		p := Euclid(k, n, r, "x", "")
		haps := p.QuerySpan(timefrac.FromInt(0), timefrac.FromInt(1))
		count := 0
		for _, h := range haps {
			if h.Value == "x" {
				count++
			}
		}
		if count != k {
			t.Fatalf("E(%d,%d,%d) emitted %d hits, want %d", k, n, r, count, k)
		}
	})
}

// TestRapidEarlyLateAreInverses checks early(t) then late(t) round-trips to
// the original pattern for arbitrary small rational shifts.
func TestRapidEarlyLateAreInverses(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := genSmallPattern(t)
		num := rapid.Int64Range(-4, 4).Draw(t, "num")
		den := rapid.Int64Range(1, 4).Draw(t, "den")
		shift := timefrac.New(num, den)
		roundTripped := Late(shift, Early(shift, p))
		lhs := SortHaps(p.QuerySpan(timefrac.FromInt(0), timefrac.FromInt(1)))
		rhs := SortHaps(roundTripped.QuerySpan(timefrac.FromInt(0), timefrac.FromInt(1)))
		if len(lhs) != len(rhs) {
			t.Fatalf("length mismatch: %d vs %d", len(lhs), len(rhs))
		}
		for i := range lhs {
			if !lhs[i].Part.Begin.Eq(rhs[i].Part.Begin) || lhs[i].Value != rhs[i].Value {
				t.Fatalf("hap %d differs: %v vs %v", i, lhs[i], rhs[i])
			}
		}
	})
}
