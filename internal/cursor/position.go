// Package cursor models editor positions, cursor ranges, and the multi-cursor set.
//
// Columns are grapheme indices, never byte offsets. A Position past the end of a
// line is legal (it denotes the line end or, one further, the line break) and is
// clamped by whoever reads the text.
package cursor

import "fmt"

// Position is an immutable (line, column) pair ordered by line, then column.
type Position struct {
	Line int
	Col  int
}

// At is shorthand for Position{Line: line, Col: col}.
func At(line, col int) Position {
	return Position{Line: line, Col: col}
}

// Compare returns -1, 0 or 1 depending on whether p sorts before, equal to, or after o.
func (p Position) Compare(o Position) int {
	switch {
	case p.Line < o.Line:
		return -1
	case p.Line > o.Line:
		return 1
	case p.Col < o.Col:
		return -1
	case p.Col > o.Col:
		return 1
	default:
		return 0
	}
}

func (p Position) Before(o Position) bool        { return p.Compare(o) < 0 }
func (p Position) After(o Position) bool         { return p.Compare(o) > 0 }
func (p Position) BeforeOrEqual(o Position) bool { return p.Compare(o) <= 0 }
func (p Position) AfterOrEqual(o Position) bool  { return p.Compare(o) >= 0 }

// Add applies a position delta. A BOL diff treats Col as an absolute column
// on the resulting line. Negative results are clamped to 0.
func (p Position) Add(d Diff) Position {
	out := Position{Line: p.Line + d.Line, Col: p.Col + d.Col}
	if d.BOL {
		out.Col = d.Col
	}
	if out.Line < 0 {
		out.Line = 0
	}
	if out.Col < 0 {
		out.Col = 0
	}
	return out
}

// Sub returns the delta that takes o to p.
func (p Position) Sub(o Position) Diff {
	return Diff{Line: p.Line - o.Line, Col: p.Col - o.Col}
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Line, p.Col)
}

// Earlier returns whichever of a and b sorts first.
func Earlier(a, b Position) Position {
	if b.Before(a) {
		return b
	}
	return a
}

// Later returns whichever of a and b sorts last.
func Later(a, b Position) Position {
	if b.After(a) {
		return b
	}
	return a
}

// Diff is a relative position delta applied after an edit.
type Diff struct {
	Line int
	Col  int
	// BOL makes Col absolute: the column is measured from the beginning of
	// the line reached after applying Line.
	BOL bool
}

// BOLDiff returns a delta that only moves to the beginning of the line.
func BOLDiff() Diff {
	return Diff{BOL: true}
}

// IsZero reports whether applying d leaves a position unchanged.
func (d Diff) IsZero() bool {
	return d.Line == 0 && d.Col == 0 && !d.BOL
}
