package vim

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/modal/internal/cursor"
	"github.com/zjrosen/modal/internal/log"
	"github.com/zjrosen/modal/internal/tracing"
)

// handleSelectionChange reconciles a selection the host changed on its own,
// typically with the mouse.
func (s *Session) handleSelectionChange(ctx context.Context, sel []cursor.Range) {
	st := s.st
	ctx, span := s.tracer.Start(ctx, tracing.SpanSelection, trace.WithAttributes(
		attribute.String(tracing.AttrSessionID, s.id),
		attribute.Int(tracing.AttrCursorCount, len(sel)),
		attribute.String(tracing.AttrMode, st.mode.String()),
	))
	defer span.End()

	if len(sel) == 0 || st.mode == ModeSearchInProgress || st.mode == ModeEasyMotion {
		return
	}
	for i := range sel {
		sel[i] = cursor.NewRange(st.doc.clamp(sel[i].Start), st.doc.clamp(sel[i].Stop))
	}

	if len(sel) != len(st.cursors) || len(st.cursors) > 1 {
		st.cursors = cursor.Unique(sel)
		if st.mode != ModeInsert && !st.mode.IsVisual() {
			for _, r := range st.cursors {
				if !r.IsEmpty() {
					st.mode = ModeVisual
					break
				}
			}
		}
		log.Debug(log.CatDispatch, "cursor set replaced", "session", s.id, "cursors", len(st.cursors))
		s.settleSelection(ctx)
		return
	}

	r := sel[0]
	if r.IsEmpty() {
		p := r.Stop
		if st.mode != ModeInsert {
			if n := st.doc.lineLen(p.Line); n > 0 && p.Col >= n {
				p.Col = n - 1
			}
			st.mode = ModeNormal
		}
		st.cursors = []cursor.Range{cursor.Collapsed(p)}
	} else {
		start := r.Start
		if start.After(r.Stop) {
			start = st.doc.left(start)
		}
		st.cursors = []cursor.Range{cursor.NewRange(start, r.Stop)}
		if !st.mode.IsVisual() {
			st.mode = ModeVisual
		}
	}
	if st.mode != ModeInsert {
		st.resetRecorded()
	}
	s.settleSelection(ctx)
}

func (s *Session) settleSelection(ctx context.Context) {
	st := s.st
	st.desiredColumn = st.cursors[0].Stop.Col
	if st.mode.IsVisual() {
		st.lastVisual = VisualSelection{Mode: st.mode, Start: st.cursors[0].Start, Stop: st.cursors[0].Stop}
	}
	s.commitMode()
	s.updateView(ctx)
}
