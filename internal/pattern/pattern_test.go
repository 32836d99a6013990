package pattern

import (
	"testing"

	"github.com/ekg/phonon/internal/timefrac"
)

func values(haps []Hap[string]) []string {
	out := make([]string, len(haps))
	for i, h := range haps {
		out[i] = h.Value
	}
	return out
}

func TestPureOnePerCycle(t *testing.T) {
	p := Pure("bd")
	haps := p.QuerySpan(timefrac.FromInt(0), timefrac.FromInt(3))
	if len(haps) != 3 {
		t.Fatalf("got %d haps, want 3", len(haps))
	}
	for _, h := range haps {
		if h.Value != "bd" {
			t.Fatalf("got value %q", h.Value)
		}
		if !h.HasOnset() {
			t.Fatal("expected onset")
		}
	}
}

func TestFromListSlicesOneCycle(t *testing.T) {
	p := FromList([]string{"a", "b", "c"})
	haps := SortHaps(p.QuerySpan(timefrac.FromInt(0), timefrac.FromInt(1)))
	got := values(haps)
	want := []string{"a", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if !haps[0].Part.Begin.Eq(timefrac.FromInt(0)) || !haps[0].Part.End.Eq(timefrac.New(1, 3)) {
		t.Fatalf("slice 0 span = %v", haps[0].Part)
	}
}

func TestFastDoublesDensity(t *testing.T) {
	p := Fast(timefrac.FromInt(2), Pure("x"))
	haps := p.QuerySpan(timefrac.FromInt(0), timefrac.FromInt(1))
	if len(haps) != 2 {
		t.Fatalf("got %d haps, want 2", len(haps))
	}
}

func TestFastOneIsIdentity(t *testing.T) {
	base := FromList([]string{"a", "b", "c"})
	fast1 := Fast(timefrac.FromInt(1), base)
	a := SortHaps(base.QuerySpan(timefrac.FromInt(0), timefrac.FromInt(1)))
	b := SortHaps(fast1.QuerySpan(timefrac.FromInt(0), timefrac.FromInt(1)))
	if len(a) != len(b) {
		t.Fatalf("length mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Value != b[i].Value || !a[i].Part.Begin.Eq(b[i].Part.Begin) {
			t.Fatalf("hap %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestFastAThenFastBEqualsFastAB(t *testing.T) {
	base := FromList([]string{"a", "b"})
	lhs := Fast(timefrac.FromInt(3), Fast(timefrac.FromInt(2), base))
	rhs := Fast(timefrac.FromInt(6), base)
	a := SortHaps(lhs.QuerySpan(timefrac.FromInt(0), timefrac.FromInt(1)))
	b := SortHaps(rhs.QuerySpan(timefrac.FromInt(0), timefrac.FromInt(1)))
	if len(a) != len(b) {
		t.Fatalf("length mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if !a[i].Part.Begin.Eq(b[i].Part.Begin) || !a[i].Part.End.Eq(b[i].Part.End) || a[i].Value != b[i].Value {
			t.Fatalf("hap %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestRevRevIsIdentity(t *testing.T) {
	base := FromList([]string{"a", "b", "c", "d"})
	doubled := Rev(Rev(base))
	a := SortHaps(base.QuerySpan(timefrac.FromInt(0), timefrac.FromInt(1)))
	b := SortHaps(doubled.QuerySpan(timefrac.FromInt(0), timefrac.FromInt(1)))
	if len(a) != len(b) {
		t.Fatalf("length mismatch")
	}
	for i := range a {
		if a[i].Value != b[i].Value {
			t.Fatalf("hap %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestEuclidThreeEightHasThreeHits(t *testing.T) {
	p := Euclid(3, 8, 0, "x", "")
	haps := p.QuerySpan(timefrac.FromInt(0), timefrac.FromInt(1))
	count := 0
	for _, h := range haps {
		if h.Value == "x" {
			count++
		}
	}
	if count != 3 {
		t.Fatalf("got %d hits, want 3", count)
	}
}

func TestBjorklundKGreaterEqualNIsAllHits(t *testing.T) {
	bits := Bjorklund(8, 8)
	for i, b := range bits {
		if !b {
			t.Fatalf("index %d: expected hit", i)
		}
	}
}

func TestDegradeByDeterministic(t *testing.T) {
	base := Fast(timefrac.FromInt(16), Pure("x"))
	degraded := DegradeBy(42, 0.5, base)
	a := degraded.QuerySpan(timefrac.FromInt(0), timefrac.FromInt(1))
	b := degraded.QuerySpan(timefrac.FromInt(0), timefrac.FromInt(1))
	if len(a) != len(b) {
		t.Fatalf("requery produced different count: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if !a[i].Part.Begin.Eq(b[i].Part.Begin) {
			t.Fatalf("requery produced different onset at %d", i)
		}
	}
}

func TestEveryAppliesOnMatchingCyclesOnly(t *testing.T) {
	base := Pure("x")
	p := Every(3, func(p Pattern[string]) Pattern[string] { return Fast(timefrac.FromInt(2), p) }, base)
	for cyc := int64(0); cyc < 6; cyc++ {
		want := 1
		if cyc%3 == 0 {
			want = 2
		}
		haps := p.QuerySpan(timefrac.FromInt(cyc), timefrac.FromInt(cyc+1))
		if len(haps) != want {
			t.Fatalf("cycle %d: got %d haps, want %d", cyc, len(haps), want)
		}
	}
}

func TestParseMiniSimpleSequence(t *testing.T) {
	p, err := ParseMini("bd sn hh")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	haps := SortHaps(p.QuerySpan(timefrac.FromInt(0), timefrac.FromInt(1)))
	got := values(haps)
	want := []string{"bd", "sn", "hh"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestParseMiniEuclid(t *testing.T) {
	p, err := ParseMini("bd(3,8)")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	haps := p.QuerySpan(timefrac.FromInt(0), timefrac.FromInt(1))
	count := 0
	for _, h := range haps {
		if h.Value == "bd" {
			count++
		}
	}
	if count != 3 {
		t.Fatalf("got %d hits, want 3", count)
	}
}

func TestParseMiniRest(t *testing.T) {
	p, err := ParseMini("bd ~ sn")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	haps := SortHaps(p.QuerySpan(timefrac.FromInt(0), timefrac.FromInt(1)))
	if len(haps) != 2 {
		t.Fatalf("got %d haps, want 2 (rest produces no hap)", len(haps))
	}
}

func TestParseMiniAlternation(t *testing.T) {
	p, err := ParseMini("<bd sn>")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	c0 := p.QuerySpan(timefrac.FromInt(0), timefrac.FromInt(1))
	c1 := p.QuerySpan(timefrac.FromInt(1), timefrac.FromInt(2))
	if len(c0) != 1 || c0[0].Value != "bd" {
		t.Fatalf("cycle 0 = %v, want bd", c0)
	}
	if len(c1) != 1 || c1[0].Value != "sn" {
		t.Fatalf("cycle 1 = %v, want sn", c1)
	}
}

func TestParseMiniDegradeKeepsStructure(t *testing.T) {
	p, err := ParseMini("bd? sn? hh? cp?")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	haps := SortHaps(p.QuerySpan(timefrac.FromInt(0), timefrac.FromInt(1)))
	if len(haps) != 4 {
		t.Fatalf("got %d haps, want 4 slots preserved regardless of value", len(haps))
	}
}
