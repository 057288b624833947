package vim

import (
	"strings"

	"github.com/zjrosen/modal/internal/buffer"
	"github.com/zjrosen/modal/internal/cursor"
	"github.com/zjrosen/modal/internal/grapheme"
)

// document answers positional questions about the host's text. Columns are
// grapheme indices; a column equal to the line length is the end-of-line
// position, where insert mode and pending operators may place the cursor.
type document struct {
	r       buffer.Reader
	keyword string
}

func (d *document) lineCount() int {
	return max(1, d.r.LineCount())
}

func (d *document) lastLine() int {
	return d.lineCount() - 1
}

func (d *document) line(l int) string {
	if l < 0 || l >= d.r.LineCount() {
		return ""
	}
	return d.r.LineAt(l)
}

func (d *document) lineLen(l int) int {
	return grapheme.Count(d.line(l))
}

func (d *document) lineBegin(l int) cursor.Position {
	return cursor.At(l, 0)
}

func (d *document) lineEnd(l int) cursor.Position {
	return cursor.At(l, d.lineLen(l))
}

// lastCharOf is the rightmost column normal mode allows on l.
func (d *document) lastCharOf(l int) cursor.Position {
	return cursor.At(l, max(0, d.lineLen(l)-1))
}

func (d *document) firstNonBlank(l int) cursor.Position {
	text := d.line(l)
	lead := grapheme.Count(grapheme.LeadingWhitespace(text))
	return cursor.At(l, min(lead, max(0, grapheme.Count(text)-1)))
}

func (d *document) docEnd() cursor.Position {
	return d.lineEnd(d.lastLine())
}

func (d *document) isLineEnd(p cursor.Position) bool {
	return p.Col >= d.lineLen(p.Line)
}

func (d *document) isDocEnd(p cursor.Position) bool {
	return p.Line >= d.lastLine() && d.isLineEnd(p)
}

func (d *document) clamp(p cursor.Position) cursor.Position {
	p.Line = max(0, min(p.Line, d.lastLine()))
	p.Col = max(0, min(p.Col, d.lineLen(p.Line)))
	return p
}

func (d *document) charAt(p cursor.Position) string {
	return grapheme.At(d.line(p.Line), p.Col)
}

func (d *document) classAt(p cursor.Position) grapheme.Class {
	return grapheme.Classify(d.charAt(p), d.keyword)
}

func (d *document) text(start, stop cursor.Position) string {
	if stop.Before(start) {
		start, stop = stop, start
	}
	if start.Line == stop.Line {
		return grapheme.Slice(d.line(start.Line), start.Col, stop.Col)
	}
	var b strings.Builder
	first := d.line(start.Line)
	b.WriteString(grapheme.Slice(first, start.Col, grapheme.Count(first)))
	for l := start.Line + 1; l < stop.Line; l++ {
		b.WriteByte('\n')
		b.WriteString(d.line(l))
	}
	b.WriteByte('\n')
	b.WriteString(grapheme.Slice(d.line(stop.Line), 0, stop.Col))
	return b.String()
}

func (d *document) left(p cursor.Position) cursor.Position {
	return cursor.At(p.Line, max(0, p.Col-1))
}

func (d *document) right(p cursor.Position) cursor.Position {
	return cursor.At(p.Line, min(p.Col+1, d.lineLen(p.Line)))
}

func (d *document) rightThroughLineBreaks(p cursor.Position) cursor.Position {
	if d.isDocEnd(p) {
		return p
	}
	if d.isLineEnd(p) {
		return cursor.At(p.Line+1, 0)
	}
	return d.right(p)
}

// leftThroughLineBreaks steps one column left, wrapping to the previous line.
// With includeEOL the wrap lands on the end-of-line position, otherwise on
// the last character.
func (d *document) leftThroughLineBreaks(p cursor.Position, includeEOL bool) cursor.Position {
	if p.Col > 0 {
		return cursor.At(p.Line, min(p.Col, d.lineLen(p.Line))-1)
	}
	if p.Line == 0 {
		return p
	}
	if includeEOL {
		return d.lineEnd(p.Line - 1)
	}
	return d.lastCharOf(p.Line - 1)
}

// next steps forward over every position including line ends.
func (d *document) next(p cursor.Position) (cursor.Position, bool) {
	if !d.isLineEnd(p) {
		return cursor.At(p.Line, p.Col+1), true
	}
	if p.Line >= d.lastLine() {
		return p, false
	}
	return cursor.At(p.Line+1, 0), true
}

// prev steps backward over every position including line ends.
func (d *document) prev(p cursor.Position) (cursor.Position, bool) {
	if p.Col > 0 {
		return cursor.At(p.Line, min(p.Col, d.lineLen(p.Line))-1), true
	}
	if p.Line == 0 {
		return p, false
	}
	return d.lineEnd(p.Line - 1), true
}

// isBlankAt treats line ends as whitespace.
func (d *document) isBlankAt(p cursor.Position) bool {
	return d.isLineEnd(p) || d.classAt(p) == grapheme.Whitespace
}

func (d *document) isEmptyLine(l int) bool {
	return d.lineLen(l) == 0
}

func (d *document) sameClass(a, b cursor.Position, big bool) bool {
	if d.isBlankAt(a) || d.isBlankAt(b) {
		return d.isBlankAt(a) == d.isBlankAt(b)
	}
	return big || d.classAt(a) == d.classAt(b)
}

// nextWordStart is w/W. At the last word of the buffer it stops at the end.
func (d *document) nextWordStart(p cursor.Position, big bool) cursor.Position {
	q := p
	if !d.isBlankAt(q) {
		start := q
		for !d.isLineEnd(q) && d.sameClass(q, start, big) {
			q.Col++
		}
	}
	for {
		if d.isLineEnd(q) {
			if q.Line >= d.lastLine() {
				return q
			}
			q = cursor.At(q.Line+1, 0)
			if d.isEmptyLine(q.Line) {
				return q
			}
			continue
		}
		if !d.isBlankAt(q) {
			return q
		}
		q.Col++
	}
}

// prevWordStart is b/B. Empty lines count as words.
func (d *document) prevWordStart(p cursor.Position, big bool) cursor.Position {
	q, ok := d.prev(p)
	if !ok {
		return p
	}
	for d.isBlankAt(q) {
		if d.isEmptyLine(q.Line) && q != p {
			return q
		}
		if q, ok = d.prev(q); !ok {
			return q
		}
	}
	for q.Col > 0 {
		r := cursor.At(q.Line, q.Col-1)
		if !d.sameClass(q, r, big) {
			break
		}
		q = r
	}
	return q
}

// wordEnd is e/E.
func (d *document) wordEnd(p cursor.Position, big bool) cursor.Position {
	q, ok := d.next(p)
	if !ok {
		return p
	}
	for d.isBlankAt(q) {
		if q, ok = d.next(q); !ok {
			return d.lastCharOf(q.Line)
		}
	}
	for {
		r := cursor.At(q.Line, q.Col+1)
		if d.isLineEnd(r) || !d.sameClass(q, r, big) {
			return q
		}
		q = r
	}
}

// prevWordEnd is ge/gE.
func (d *document) prevWordEnd(p cursor.Position, big bool) cursor.Position {
	q := p
	if !d.isBlankAt(q) {
		for q.Col > 0 && d.sameClass(q, cursor.At(q.Line, q.Col-1), big) {
			q.Col--
		}
	}
	var ok bool
	if q, ok = d.prev(q); !ok {
		return cursor.At(0, 0)
	}
	for d.isBlankAt(q) {
		if d.isEmptyLine(q.Line) {
			return q
		}
		if q, ok = d.prev(q); !ok {
			return q
		}
	}
	return q
}

// currentWordStart walks back to the first grapheme of the run containing p.
func (d *document) currentWordStart(p cursor.Position, big bool) cursor.Position {
	for p.Col > 0 && d.sameClass(p, cursor.At(p.Line, p.Col-1), big) {
		p.Col--
	}
	return p
}

// currentWordEnd walks forward to the last grapheme of the run containing p.
func (d *document) currentWordEnd(p cursor.Position, big bool) cursor.Position {
	for {
		r := cursor.At(p.Line, p.Col+1)
		if d.isLineEnd(r) || !d.sameClass(p, r, big) {
			return p
		}
		p = r
	}
}

func (d *document) nextParagraph(p cursor.Position) cursor.Position {
	l := p.Line
	for l < d.lastLine() && d.isEmptyLine(l) {
		l++
	}
	for l < d.lastLine() && !d.isEmptyLine(l) {
		l++
	}
	if l == d.lastLine() && !d.isEmptyLine(l) {
		return d.lastCharOf(l)
	}
	return cursor.At(l, 0)
}

func (d *document) prevParagraph(p cursor.Position) cursor.Position {
	l := p.Line
	for l > 0 && d.isEmptyLine(l) {
		l--
	}
	for l > 0 && !d.isEmptyLine(l) {
		l--
	}
	return cursor.At(l, 0)
}

// findInLine returns the count-th occurrence of char after (forward) or
// before p on p's line.
func (d *document) findInLine(p cursor.Position, char string, count int, forward bool) (cursor.Position, bool) {
	clusters := grapheme.Split(d.line(p.Line))
	col := p.Col
	for count > 0 {
		if forward {
			col++
			if col >= len(clusters) {
				return p, false
			}
		} else {
			col--
			if col < 0 {
				return p, false
			}
		}
		if clusters[col] == char {
			count--
		}
	}
	return cursor.At(p.Line, col), true
}

var bracketPairs = map[string]struct {
	match   string
	forward bool
}{
	"(": {")", true}, ")": {"(", false},
	"[": {"]", true}, "]": {"[", false},
	"{": {"}", true}, "}": {"{", false},
	"<": {">", true}, ">": {"<", false},
}

// matchingBracket finds the partner of the bracket at p, honouring nesting.
func (d *document) matchingBracket(p cursor.Position) (cursor.Position, bool) {
	open := d.charAt(p)
	pair, ok := bracketPairs[open]
	if !ok {
		return p, false
	}
	depth := 0
	step := d.next
	if !pair.forward {
		step = d.prev
	}
	for q, ok := step(p); ok; q, ok = step(q) {
		switch d.charAt(q) {
		case open:
			depth++
		case pair.match:
			if depth == 0 {
				return q, true
			}
			depth--
		}
	}
	return p, false
}

// enclosingBracket finds the unmatched open (or, forward, close) bracket
// around p. A bracket at p itself counts when it is the one searched for.
func (d *document) enclosingBracket(p cursor.Position, open, closer string, forward bool) (cursor.Position, bool) {
	target, other := open, closer
	step := d.prev
	if forward {
		target, other = closer, open
		step = d.next
	}
	depth := 0
	for q, ok := step(p); ok; q, ok = step(q) {
		switch d.charAt(q) {
		case other:
			depth++
		case target:
			if depth == 0 {
				return q, true
			}
			depth--
		}
	}
	return p, false
}

// bracketMotionTarget finds the first bracket at or after p on its line,
// the position % jumps from.
func (d *document) bracketMotionTarget(p cursor.Position) (cursor.Position, bool) {
	clusters := grapheme.Split(d.line(p.Line))
	for col := p.Col; col < len(clusters); col++ {
		if _, ok := bracketPairs[clusters[col]]; ok && clusters[col] != "<" && clusters[col] != ">" {
			return cursor.At(p.Line, col), true
		}
	}
	return p, false
}

func splitLines(s string) []string {
	return strings.Split(s, "\n")
}

func graphemeLen(s string) int {
	return grapheme.Count(s)
}
