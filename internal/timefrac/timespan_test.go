package timefrac

import (
	"reflect"
	"testing"
)

func TestTimeSpanSpanCycles(t *testing.T) {
	s := NewSpan(New(1, 2), New(5, 2))
	got := s.SpanCycles()
	want := []TimeSpan{
		NewSpan(New(1, 2), FromInt(1)),
		NewSpan(FromInt(1), FromInt(2)),
		NewSpan(FromInt(2), New(5, 2)),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTimeSpanSpanCyclesSingleCycle(t *testing.T) {
	s := NewSpan(New(1, 4), New(3, 4))
	got := s.SpanCycles()
	if len(got) != 1 || !got[0].Begin.Eq(New(1, 4)) || !got[0].End.Eq(New(3, 4)) {
		t.Fatalf("got %v", got)
	}
}

func TestTimeSpanIntersection(t *testing.T) {
	a := NewSpan(FromInt(0), New(1, 2))
	b := NewSpan(New(1, 4), FromInt(1))
	got, ok := a.Intersection(b)
	if !ok {
		t.Fatal("expected overlap")
	}
	want := NewSpan(New(1, 4), New(1, 2))
	if !got.Begin.Eq(want.Begin) || !got.End.Eq(want.End) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTimeSpanIntersectionTouchingIsEmpty(t *testing.T) {
	a := NewSpan(FromInt(0), FromInt(1))
	b := NewSpan(FromInt(1), FromInt(2))
	_, ok := a.Intersection(b)
	if ok {
		t.Fatal("touching spans should not intersect")
	}
}
