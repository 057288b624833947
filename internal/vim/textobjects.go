package vim

import (
	"github.com/zjrosen/modal/internal/cursor"
	"github.com/zjrosen/modal/internal/grapheme"
)

// Text objects select a range around the cursor. They apply only with an
// operator pending or in a visual mode.

func registerTextObjects(r *Registry) {
	r.Register(
		wordObject("textobject.inner_word", "i", "w", false, false),
		wordObject("textobject.a_word", "a", "w", false, true),
		wordObject("textobject.inner_bigword", "i", "W", true, false),
		wordObject("textobject.a_bigword", "a", "W", true, true),
	)
	for _, b := range []struct {
		name         string
		open, closer string
		aliases      []string
	}{
		{"paren", "(", ")", []string{"(", ")", "b"}},
		{"brace", "{", "}", []string{"{", "}", "B"}},
		{"bracket", "[", "]", []string{"[", "]"}},
		{"angle", "<", ">", []string{"<", ">"}},
	} {
		r.Register(
			bracketObject("textobject.inner_"+b.name, "i", b.open, b.closer, b.aliases, false),
			bracketObject("textobject.a_"+b.name, "a", b.open, b.closer, b.aliases, true),
		)
	}
	for name, q := range map[string]string{"double_quote": `"`, "single_quote": "'", "backtick": "`"} {
		r.Register(
			quoteObject("textobject.inner_"+name, "i", q, false),
			quoteObject("textobject.a_"+name, "a", q, true),
		)
	}
}

// objectRange turns an inclusive [start, end] selection into the motion
// result the caller needs: inclusive in visual modes, exclusive otherwise.
func objectRange(s *State, start, end cursor.Position) Movement {
	if s.mode.IsVisual() {
		return rangeMovement(start, end)
	}
	return rangeMovement(start, s.doc.right(end))
}

func wordObject(name, prefix, key string, big, around bool) *Motion {
	return &Motion{
		actionBase: actionBase{name: name, keys: keys(prefix, key), modes: normalAndVisual, when: withOperatorOrVisual},
		exec: func(s *State, p cursor.Position) Movement {
			if s.doc.lineLen(p.Line) == 0 {
				return failedAt(p)
			}
			start := s.doc.currentWordStart(p, big)
			end := s.doc.currentWordEnd(p, big)
			if s.doc.isBlankAt(p) {
				start, end = blankRun(s.doc, p)
				if around && end.Col+1 < s.doc.lineLen(p.Line) {
					end = s.doc.currentWordEnd(cursor.At(p.Line, end.Col+1), big)
				}
				return objectRange(s, start, end)
			}
			if around {
				if n := cursor.At(p.Line, end.Col+1); end.Col+1 < s.doc.lineLen(p.Line) && s.doc.isBlankAt(n) {
					_, end = blankRun(s.doc, n)
				} else if start.Col > 0 && s.doc.isBlankAt(cursor.At(p.Line, start.Col-1)) {
					start, _ = blankRun(s.doc, cursor.At(p.Line, start.Col-1))
				}
			}
			return objectRange(s, start, end)
		},
	}
}

// blankRun is the run of whitespace around p on its line, inclusive.
func blankRun(d *document, p cursor.Position) (cursor.Position, cursor.Position) {
	clusters := grapheme.Split(d.line(p.Line))
	lo, hi := p.Col, p.Col
	for lo > 0 && grapheme.IsBlank(clusters[lo-1]) {
		lo--
	}
	for hi+1 < len(clusters) && grapheme.IsBlank(clusters[hi+1]) {
		hi++
	}
	return cursor.At(p.Line, lo), cursor.At(p.Line, hi)
}

func bracketObject(name, prefix, open, closer string, aliases []string, around bool) *Motion {
	seqs := make([][]string, 0, len(aliases))
	for _, a := range aliases {
		seqs = append(seqs, seq(prefix, a))
	}
	return &Motion{
		actionBase: actionBase{name: name, keys: seqs, modes: normalAndVisual, when: withOperatorOrVisual},
		exec: func(s *State, p cursor.Position) Movement {
			start, ok := p, s.doc.charAt(p) == open
			if !ok {
				if s.doc.charAt(p) == closer {
					start, ok = s.doc.matchingBracket(p)
				} else {
					start, ok = s.doc.enclosingBracket(p, open, closer, false)
				}
			}
			if !ok {
				return failedAt(p)
			}
			end, ok := s.doc.matchingBracket(start)
			if !ok {
				return failedAt(p)
			}
			if around {
				return objectRange(s, start, end)
			}
			inner := s.doc.rightThroughLineBreaks(start)
			if inner == end {
				// Nothing between the brackets.
				return rangeMovement(inner, inner)
			}
			last := s.doc.leftThroughLineBreaks(end, false)
			if end.Col == 0 {
				last = s.doc.leftThroughLineBreaks(end, true)
			}
			return objectRange(s, inner, last)
		},
	}
}

func quoteObject(name, prefix, quote string, around bool) *Motion {
	return &Motion{
		actionBase: actionBase{name: name, keys: keys(prefix, quote), modes: normalAndVisual, when: withOperatorOrVisual},
		exec: func(s *State, p cursor.Position) Movement {
			open, closer, ok := quotePair(grapheme.Split(s.doc.line(p.Line)), p.Col, quote)
			if !ok {
				return failedAt(p)
			}
			start, end := cursor.At(p.Line, open), cursor.At(p.Line, closer)
			if !around {
				if closer == open+1 {
					return rangeMovement(cursor.At(p.Line, closer), cursor.At(p.Line, closer))
				}
				start, end = cursor.At(p.Line, open+1), cursor.At(p.Line, closer-1)
			} else if n := cursor.At(p.Line, closer+1); closer+1 < s.doc.lineLen(p.Line) && s.doc.isBlankAt(n) {
				_, end = blankRun(s.doc, n)
			}
			if start.After(p) && s.operatorPending() {
				d := start.Sub(p)
				s.recorded.operatorPositionDiff = &d
			}
			return objectRange(s, start, end)
		},
	}
}

// quotePair finds the quotes around col, or the first pair after it.
func quotePair(clusters []string, col int, quote string) (int, int, bool) {
	var quotes []int
	for i, c := range clusters {
		if c == quote && (i == 0 || clusters[i-1] != `\`) {
			quotes = append(quotes, i)
		}
	}
	for i := 0; i+1 < len(quotes); i += 2 {
		if col <= quotes[i+1] {
			return quotes[i], quotes[i+1], true
		}
	}
	return 0, 0, false
}
