package timefrac

// TimeSpan is a half-open interval [Begin, End) in cycle time. Patterns are
// queried over a TimeSpan and emit Haps whose Part always lies within it.
type TimeSpan struct {
	Begin, End Fraction
}

func NewSpan(begin, end Fraction) TimeSpan { return TimeSpan{Begin: begin, End: end} }

// Duration returns End - Begin.
func (s TimeSpan) Duration() Fraction { return s.End.Sub(s.Begin) }

// Intersection returns the overlap of s and o, and whether they overlap at
// all. A zero-width overlap (touching endpoints) counts as no intersection,
// consistent with the half-open interval semantics every span carries.
func (s TimeSpan) Intersection(o TimeSpan) (TimeSpan, bool) {
	begin := s.Begin.Max(o.Begin)
	end := s.End.Min(o.End)
	if begin.Gte(end) {
		return TimeSpan{}, false
	}
	return TimeSpan{Begin: begin, End: end}, true
}

// WithTime maps both endpoints of s through f, e.g. for fast/slow/early/late.
func (s TimeSpan) WithTime(f func(Fraction) Fraction) TimeSpan {
	return TimeSpan{Begin: f(s.Begin), End: f(s.End)}
}

// SpanCycles splits s at every cycle boundary it crosses, returning one
// TimeSpan per cycle touched. Most pattern constructors query one cycle at a
// time internally; this is how a multi-cycle query gets decomposed.
func (s TimeSpan) SpanCycles() []TimeSpan {
	if s.Begin.Gte(s.End) {
		if s.Begin.Eq(s.End) {
			return []TimeSpan{s}
		}
		return nil
	}
	var out []TimeSpan
	begin := s.Begin
	for begin.Lt(s.End) {
		nextCycle := FromInt(begin.Floor() + 1)
		end := nextCycle.Min(s.End)
		out = append(out, TimeSpan{Begin: begin, End: end})
		begin = end
	}
	return out
}

// CycleSpan returns the whole-cycle span containing f: [floor(f), floor(f)+1).
func CycleSpan(f Fraction) TimeSpan {
	c := FromInt(f.Floor())
	return TimeSpan{Begin: c, End: c.Add(FromInt(1))}
}
