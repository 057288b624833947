package vim

import (
	"context"

	"github.com/zjrosen/modal/internal/cursor"
	"github.com/zjrosen/modal/internal/log"
)

// executeOperator applies the pending operator to every cursor's range, or
// to the lines of a visual block.
func (s *Session) executeOperator(ctx context.Context) error {
	st := s.st
	rs := st.recorded
	op := rs.Operator()

	var resulting []cursor.Range
	if st.mode == ModeVisualBlock {
		var err error
		if resulting, err = s.executeBlockOperator(op); err != nil {
			return err
		}
	} else {
		for i, c := range st.cursors {
			st.cur, st.curIndex = cursor.Collapsed(c.Stop), i
			start, stop := c.Start, c.Stop
			if stop.Before(start) {
				start, stop = stop, start
			}

			if rs.isOperatorDoubled() {
				if err := op.repeat(st, c.Stop, rs.MotionCount()); err != nil {
					return err
				}
				resulting = append(resulting, st.cur)
				continue
			}

			charwise := !st.mode.IsVisual() && st.currentRegisterMode != RegisterLineWise
			if charwise && start == stop {
				// An empty motion leaves nothing to act on; change still
				// enters insert mode where the range would have been.
				if op.Name() == operatorChange {
					st.mode = ModeInsert
					st.cur = cursor.Collapsed(start)
				}
				resulting = append(resulting, st.cur)
				continue
			}
			if charwise {
				stop = st.doc.leftThroughLineBreaks(stop, true)
			}
			if st.mode == ModeVisualLine {
				start = st.doc.lineBegin(start.Line)
				stop = st.doc.lineEnd(stop.Line)
				st.currentRegisterMode = RegisterLineWise
			}
			if err := op.run(st, start, stop); err != nil {
				return err
			}
			resulting = append(resulting, st.cur)
		}
	}
	log.Debug(log.CatDispatch, "operator ran", "operator", op.Name(), "cursors", len(resulting))

	rs = st.recorded
	if len(rs.transformations) == 0 {
		st.cursors = cursor.Unique(resulting)
		if d := rs.operatorPositionDiff; d != nil {
			for i := range st.cursors {
				st.cursors[i] = st.cursors[i].Add(*d)
			}
			rs.operatorPositionDiff = nil
		}
		st.host.SetSelections(st.cursors)
		return nil
	}

	manual := rs.transformations[0].ManuallySetCursorPositions
	st.cursors = resulting
	if err := s.executeTransformations(ctx); err != nil {
		return err
	}
	if manual {
		st.cursors = cursor.Unique(resulting)
	}
	return nil
}

// blockLines splits a visual block selection into one inclusive range per
// line, skipping lines too short to reach the block.
func (s *State) blockLines() []cursor.Range {
	c := s.cursors[0]
	top, bottom := min(c.Start.Line, c.Stop.Line), max(c.Start.Line, c.Stop.Line)
	left, right := min(c.Start.Col, c.Stop.Col), max(c.Start.Col, c.Stop.Col)
	if s.desiredColumn == desiredColumnEOL {
		right = desiredColumnEOL
	}

	var lines []cursor.Range
	for l := top; l <= bottom; l++ {
		n := s.doc.lineLen(l)
		if left >= n {
			continue
		}
		lines = append(lines, cursor.NewRange(cursor.At(l, left), cursor.At(l, min(right, n-1))))
	}
	return lines
}

func (s *Session) executeBlockOperator(op *Operator) ([]cursor.Range, error) {
	st := s.st
	lines := st.blockLines()
	top := st.cursors[0].Start
	if st.cursors[0].Stop.Before(top) {
		top = st.cursors[0].Stop
	}
	top.Col = min(st.cursors[0].Start.Col, st.cursors[0].Stop.Col)

	if len(lines) == 0 {
		st.mode = ModeNormal
		return []cursor.Range{cursor.Collapsed(top)}, nil
	}
	if op.runBlock != nil {
		st.cur, st.curIndex = cursor.Collapsed(top), 0
		if err := op.runBlock(st, lines); err != nil {
			return nil, err
		}
		return slicesOrCur(st), nil
	}

	var resulting []cursor.Range
	for i, r := range lines {
		st.cur, st.curIndex = cursor.Collapsed(r.Start), i
		if err := op.run(st, r.Start, r.Stop); err != nil {
			return nil, err
		}
		resulting = append(resulting, st.cur)
	}
	if st.mode != ModeInsert {
		resulting = resulting[:1]
	}
	return resulting, nil
}

// slicesOrCur returns the cursors a block operator chose, falling back to
// the single cursor it left in s.cur.
func slicesOrCur(st *State) []cursor.Range {
	if len(st.blockCursors) > 0 {
		out := st.blockCursors
		st.blockCursors = nil
		return out
	}
	return []cursor.Range{st.cur}
}

// cursorToRangeStart parks the cursor on start once the operator's edits
// land, unless a text object already asked for the cursor to be shifted.
func (s *State) cursorToRangeStart(start cursor.Position) {
	if s.recorded.operatorPositionDiff != nil {
		return
	}
	s.cur = cursor.Collapsed(start)
}
