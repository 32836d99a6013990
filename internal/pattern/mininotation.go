package pattern

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ekg/phonon/internal/timefrac"
)

// ParseError reports a mini-notation syntax problem with its byte offset,
// mirroring the teacher's "at %d" positional error style used throughout
// its own hand-rolled recursive-descent parser.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("mini-notation: %s at %d", e.Msg, e.Pos)
}

// miniParser tracks the parse position; its seedN counter assigns a distinct
// deterministic seed to every `?` site encountered during a single parse, so that two `?` marks in
// the same string hash independently instead of colliding on seed 0.
type miniParser struct {
	src   string
	pos   int
	seedN int64
}

// ParseMini compiles a mini-notation string into a Pattern[string], the
// token type every downstream compiler stage (graph/compiler package)
// resolves further (into note numbers, sample names, or numeric params).
func ParseMini(src string) (Pattern[string], error) {
	mp := &miniParser{src: src}
	mp.skipSpace()
	seq, err := mp.parseSequence(0)
	if err != nil {
		return Pattern[string]{}, err
	}
	mp.skipSpace()
	if mp.pos != len(mp.src) {
		return Pattern[string]{}, &ParseError{Pos: mp.pos, Msg: "unexpected trailing input"}
	}
	return seq, nil
}

func (mp *miniParser) skipSpace() {
	for mp.pos < len(mp.src) && mp.src[mp.pos] == ' ' {
		mp.pos++
	}
}

func (mp *miniParser) peek() byte {
	if mp.pos >= len(mp.src) {
		return 0
	}
	return mp.src[mp.pos]
}

// parseSequence parses a space-separated run of terms until it hits `end`
// (one of `]`, `)`, `>`, `,` or end of input), returning the weighted
// TimeCat of all terms found.
func (mp *miniParser) parseSequence(depth int) (Pattern[string], error) {
	var terms []WeightedPattern[string]
	for {
		mp.skipSpace()
		c := mp.peek()
		if c == 0 || c == ']' || c == ')' || c == '>' || c == ',' {
			break
		}
		term, weight, err := mp.parseModified(depth)
		if err != nil {
			return Pattern[string]{}, err
		}
		terms = append(terms, WeightedPattern[string]{Pattern: term, Weight: weight})
	}
	if len(terms) == 0 {
		return Silence[string](), nil
	}
	return TimeCat(terms), nil
}

// parseModified parses one base term (atom, group, alternation, stack)
// followed by any of the postfix modifiers: `*n` `/n` `?` `@d` `_` `:n`.
// There is no `!` replication modifier: a `!` after a term is a parse error.
func (mp *miniParser) parseModified(depth int) (Pattern[string], Fraction, error) {
	base, err := mp.parseAtomOrGroup(depth)
	if err != nil {
		return Pattern[string]{}, Fraction{}, err
	}
	weight := timefrac.FromInt(1)
	for {
		switch mp.peek() {
		case '*':
			mp.pos++
			n, err := mp.parseNumber()
			if err != nil {
				return Pattern[string]{}, Fraction{}, err
			}
			base = Fast(n, base)
		case '/':
			mp.pos++
			n, err := mp.parseNumber()
			if err != nil {
				return Pattern[string]{}, Fraction{}, err
			}
			base = Slow(n, base)
		case '?':
			mp.pos++
			mp.seedN++
			base = degradeStructurePreserving(mp.seedN, 0.5, base)
		case '@':
			mp.pos++
			w, err := mp.parseNumber()
			if err != nil {
				return Pattern[string]{}, Fraction{}, err
			}
			weight = w
		case '_':
			mp.pos++
			weight = weight.Add(timefrac.FromInt(1))
		case ':':
			mp.pos++
			n, err := mp.parseNumber()
			if err != nil {
				return Pattern[string]{}, Fraction{}, err
			}
			base = Pattern[string]{Query: func(st State) []Hap[string] {
				var out []Hap[string]
				for _, h := range base.Query(st) {
					out = append(out, WithValue[string, string](h, h.Value+":"+n.String()))
				}
				return out
			}}
		default:
			return base, weight, nil
		}
	}
}

// degradeStructurePreserving implements Open Question #1's chosen semantics
// for `a?`: the event slot is always emitted, but on the hash-chosen half of
// occurrences its value is blanked to the empty string, which every
// downstream trigger consumer (graph/samplebank) already treats as silence.
func degradeStructurePreserving(seed int64, prob float64, p Pattern[string]) Pattern[string] {
	return Pattern[string]{Query: func(st State) []Hap[string] {
		var out []Hap[string]
		for _, h := range p.Query(st) {
			if degradeHash(seed, h.WholeOrPart().Begin) < prob {
				out = append(out, WithValue[string, string](h, ""))
			} else {
				out = append(out, h)
			}
		}
		return out
	}}
}

func (mp *miniParser) parseNumber() (Fraction, error) {
	start := mp.pos
	if mp.pos < len(mp.src) && mp.src[mp.pos] == '-' {
		mp.pos++
	}
	for mp.pos < len(mp.src) && (isDigit(mp.src[mp.pos]) || mp.src[mp.pos] == '.') {
		mp.pos++
	}
	if mp.pos == start {
		return Fraction{}, &ParseError{Pos: mp.pos, Msg: "expected number"}
	}
	text := mp.src[start:mp.pos]
	if strings.Contains(text, ".") {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Fraction{}, &ParseError{Pos: start, Msg: "invalid number " + text}
		}
		return timefrac.New(int64(f*1000000), 1000000), nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return Fraction{}, &ParseError{Pos: start, Msg: "invalid integer " + text}
	}
	return timefrac.FromInt(n), nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isWordChar(b byte) bool {
	return b == '-' || b == '.' || b == '#' || isDigit(b) ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '\''
}

// parseAtomOrGroup dispatches on the next significant character: `[...]`
// fast-sequence group, `<...>` alternation (one choice per cycle), `(a b, c)`
// comma-separated sequences stacked together, `~` rest, or a bare word; any
// of these may then carry a `(k,n[,r])` euclidean postfix (maybeEuclid).
func (mp *miniParser) parseAtomOrGroup(depth int) (Pattern[string], error) {
	mp.skipSpace()
	switch mp.peek() {
	case '[':
		mp.pos++
		groups, err := mp.parseStackedOrSequence(depth + 1)
		if err != nil {
			return Pattern[string]{}, err
		}
		if mp.peek() != ']' {
			return Pattern[string]{}, &ParseError{Pos: mp.pos, Msg: "expected ]"}
		}
		mp.pos++
		return mp.maybeEuclid(groups)
	case '<':
		mp.pos++
		var alts []Pattern[string]
		for {
			mp.skipSpace()
			if mp.peek() == '>' {
				break
			}
			term, _, err := mp.parseModified(depth + 1)
			if err != nil {
				return Pattern[string]{}, err
			}
			alts = append(alts, term)
		}
		if mp.peek() != '>' {
			return Pattern[string]{}, &ParseError{Pos: mp.pos, Msg: "expected >"}
		}
		mp.pos++
		return mp.maybeEuclid(SlowCat(alts...))
	case '(':
		mp.pos++
		var parts []Pattern[string]
		first, err := mp.parseSequence(depth + 1)
		if err != nil {
			return Pattern[string]{}, err
		}
		parts = append(parts, first)
		for mp.peek() == ',' {
			mp.pos++
			next, err := mp.parseSequence(depth + 1)
			if err != nil {
				return Pattern[string]{}, err
			}
			parts = append(parts, next)
		}
		if mp.peek() != ')' {
			return Pattern[string]{}, &ParseError{Pos: mp.pos, Msg: "expected )"}
		}
		mp.pos++
		return mp.maybeEuclid(Stack(parts...))
	case '~':
		mp.pos++
		return mp.maybeEuclid(Silence[string]())
	case 0:
		return Pattern[string]{}, &ParseError{Pos: mp.pos, Msg: "unexpected end of input"}
	default:
		start := mp.pos
		for mp.pos < len(mp.src) && isWordChar(mp.src[mp.pos]) {
			mp.pos++
		}
		if mp.pos == start {
			return Pattern[string]{}, &ParseError{Pos: mp.pos, Msg: fmt.Sprintf("unexpected character %q", mp.src[mp.pos])}
		}
		word := mp.src[start:mp.pos]
		return mp.maybeEuclid(Pure(word))
	}
}

// parseStackedOrSequence parses the inside of `[...]`: either a single
// sequence or comma-separated stacked sequences `(a,b,c)`-in-brackets form —
// the common subset of TidalCycles-style bracket grouping. There is no
// polymeter form: a `%` inside brackets is a parse error.
func (mp *miniParser) parseStackedOrSequence(depth int) (Pattern[string], error) {
	first, err := mp.parseSequence(depth)
	if err != nil {
		return Pattern[string]{}, err
	}
	mp.skipSpace()
	if mp.peek() != ',' {
		return first, nil
	}
	stacked := []Pattern[string]{first}
	for mp.peek() == ',' {
		mp.pos++
		next, err := mp.parseSequence(depth)
		if err != nil {
			return Pattern[string]{}, err
		}
		stacked = append(stacked, next)
	}
	return Stack(stacked...), nil
}

// maybeEuclid checks for a trailing `(k,n[,r])` euclidean postfix applied to
// the just-parsed atom, e.g. `bd(3,8)` or `bd(3,8,2)`.
func (mp *miniParser) maybeEuclid(base Pattern[string]) (Pattern[string], error) {
	if mp.peek() != '(' {
		return base, nil
	}
	mp.pos++
	k, err := mp.parseNumber()
	if err != nil {
		return Pattern[string]{}, err
	}
	mp.skipSpace()
	if mp.peek() != ',' {
		return Pattern[string]{}, &ParseError{Pos: mp.pos, Msg: "expected , in euclidean pattern"}
	}
	mp.pos++
	mp.skipSpace()
	n, err := mp.parseNumber()
	if err != nil {
		return Pattern[string]{}, err
	}
	rotation := int64(0)
	mp.skipSpace()
	if mp.peek() == ',' {
		mp.pos++
		mp.skipSpace()
		r, err := mp.parseNumber()
		if err != nil {
			return Pattern[string]{}, err
		}
		rotation = r.Num / r.Den
	}
	mp.skipSpace()
	if mp.peek() != ')' {
		return Pattern[string]{}, &ParseError{Pos: mp.pos, Msg: "expected )"}
	}
	mp.pos++
	return EuclidFull(int(k.Num/k.Den), int(n.Num/n.Den), int(rotation), base, Silence[string]()), nil
}
