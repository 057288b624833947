package vim

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/modal/internal/cursor"
	"github.com/zjrosen/modal/internal/log"
	"github.com/zjrosen/modal/internal/tracing"
)

// executeMovement runs m for every cursor. A failed range result abandons
// the whole command and leaves the cursors untouched.
func (s *Session) executeMovement(ctx context.Context, m *Motion) error {
	st := s.st
	rs := st.recorded
	count := rs.MotionCount()
	st.lastMovementFailed = false

	resulting := make([]cursor.Range, len(st.cursors))
	var last Movement
	for i, c := range st.cursors {
		st.cur, st.curIndex = c, i
		result := m.execWithCount(st, c.Stop, count)
		last = result

		if !result.isRange {
			if st.mode.IsVisual() || st.operatorPending() {
				st.cur = st.cur.WithStop(result.Stop)
			} else {
				st.cur = cursor.Collapsed(result.Stop)
			}
			resulting[i] = st.cur
			continue
		}

		if result.Failed {
			st.resetRecorded()
			st.lastMovementFailed = true
			trace.SpanFromContext(ctx).AddEvent(tracing.EventMovementFailed,
				trace.WithAttributes(attribute.String(tracing.AttrAction, m.Name())))
			log.Debug(log.CatDispatch, "movement failed", "motion", m.Name(), "at", c.Stop)
			return nil
		}
		st.cur = cursor.NewRange(result.Start, result.Stop)
		if result.RegisterMode != RegisterFigureItOut {
			st.currentRegisterMode = result.RegisterMode
		}
		resulting[i] = st.cur
	}
	st.cursors = resulting

	if m.semicolon != nil && m.semicolon(st, last) {
		st.global.setLastCharSearch(m)
	}
	st.recorded.count = 0

	if st.mode != ModeNormal || st.operatorPending() {
		for i, c := range st.cursors {
			if n := st.doc.lineLen(c.Stop.Line); c.Stop.Col > n {
				st.cursors[i].Stop.Col = n
			}
		}
	}
	return nil
}
