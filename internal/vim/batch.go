package vim

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/modal/internal/buffer"
	"github.com/zjrosen/modal/internal/cursor"
	"github.com/zjrosen/modal/internal/log"
	"github.com/zjrosen/modal/internal/notation"
	"github.com/zjrosen/modal/internal/pubsub"
	"github.com/zjrosen/modal/internal/tracing"
)

// plannedEdit is a host edit and the cursor it belongs to.
type plannedEdit struct {
	edit  buffer.Edit
	index int
}

// executeTransformations applies the queued transformations: every text
// edit goes to the host in one atomic batch, then the non-text effects
// (dot-repeat, macros, the command line) run in order.
func (s *Session) executeTransformations(ctx context.Context) error {
	st := s.st
	ts := st.recorded.transformations
	if len(ts) == 0 {
		return nil
	}
	st.recorded.transformations = nil

	ctx, span := s.tracer.Start(ctx, tracing.SpanBatchApply, trace.WithAttributes(
		attribute.String(tracing.AttrSessionID, s.id),
	))
	defer span.End()

	st.host.SetSelections(st.cursors)

	var textual, other []Transformation
	for _, t := range ts {
		if t.isTextTransformation() || t.Kind == contentChange {
			textual = append(textual, t)
		} else {
			other = append(other, t)
		}
	}

	manual := ts[0].ManuallySetCursorPositions
	diffs := make(map[int][]cursor.Diff)
	collapse := make(map[int]cursor.Position)

	if len(textual) > 0 {
		planned := s.planEdits(textual, diffs, collapse)
		span.SetAttributes(attribute.Int(tracing.AttrEditCount, len(planned)))
		if len(planned) > 0 {
			st.history.BeforeEdit(len(planned))
			if err := s.applyEdits(ctx, planned, span); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return err
			}
		}
	}

	for _, t := range other {
		stop, err := s.runEffect(ctx, t)
		if err != nil {
			return err
		}
		if stop {
			break
		}
	}

	if st.mode == ModeVisualBlock || manual {
		return nil
	}

	sel := st.host.Selections()
	cursors := make([]cursor.Range, len(sel))
	for i, r := range sel {
		if p, ok := collapse[i]; ok {
			r = cursor.Collapsed(p)
		}
		for _, d := range diffs[i] {
			r = r.Add(d)
		}
		if d := st.recorded.operatorPositionDiff; d != nil {
			r = r.Add(*d)
		}
		cursors[i] = r
	}
	st.recorded.operatorPositionDiff = nil
	st.cursors = cursor.Unique(cursors)
	return nil
}

// planEdits turns text transformations into host edits in pre-edit
// coordinates and collects the per-cursor position deltas.
func (s *Session) planEdits(ts []Transformation, diffs map[int][]cursor.Diff, collapse map[int]cursor.Position) []plannedEdit {
	st := s.st
	var out []plannedEdit
	add := func(e buffer.Edit, index int) {
		out = append(out, plannedEdit{edit: e, index: index})
	}

	for _, t := range ts {
		switch t.Kind {
		case InsertText:
			add(buffer.Insert(t.Position, t.Text), t.CursorIndex)
		case ReplaceText:
			add(buffer.Replace(t.Range, t.Text), t.CursorIndex)
		case DeleteText:
			if t.Position == (cursor.Position{}) {
				continue
			}
			from := st.doc.leftThroughLineBreaks(t.Position, true)
			add(buffer.Delete(cursor.NewRange(from, t.Position)), t.CursorIndex)
		case DeleteRange:
			add(buffer.Delete(t.Range), t.CursorIndex)
			if t.CollapseRange {
				start, stop := t.Range.Normalized()
				collapse[t.CursorIndex] = cursor.At(stop.Line, start.Col)
			}
		case MoveCursorBy:
		case contentChange:
			for i, c := range st.cursors {
				p := c.Stop
				left, right := p, p
				for n := 0; n < t.Change.DeleteLeft; n++ {
					left = st.doc.leftThroughLineBreaks(left, true)
				}
				for n := 0; n < t.Change.DeleteRight; n++ {
					right = st.doc.rightThroughLineBreaks(right)
				}
				if left != p {
					add(buffer.Delete(cursor.NewRange(left, p)), i)
				}
				if right != p {
					add(buffer.Delete(cursor.NewRange(p, right)), i)
				}
				if t.Change.Text != "" {
					add(buffer.Insert(p, t.Change.Text), i)
				}
				diffs[i] = append(diffs[i], diffAfterInsert(t.Change.Text))
			}
			continue
		}
		if t.Diff != nil && t.CursorIndex >= 0 {
			diffs[t.CursorIndex] = append(diffs[t.CursorIndex], *t.Diff)
		}
	}
	return out
}

// applyEdits sends the edits as one batch. Overlapping edits cannot be
// batched; they are applied one at a time, in order, with a warning.
func (s *Session) applyEdits(ctx context.Context, planned []plannedEdit, span trace.Span) error {
	st := s.st
	edits := make([]buffer.Edit, len(planned))
	for i, p := range planned {
		edits[i] = p.edit
	}

	if !overlapping(edits) {
		if err := st.host.Apply(ctx, edits); err != nil {
			return fmt.Errorf("apply %d edits: %w", len(edits), err)
		}
		return nil
	}

	span.SetAttributes(attribute.Bool(tracing.AttrOverlapping, true))
	log.Warn(log.CatBatch, "overlapping edits applied one at a time", "session", s.id, "edits", len(edits))
	for _, e := range edits {
		if err := st.host.Apply(ctx, []buffer.Edit{e}); err != nil {
			return fmt.Errorf("apply %s edit at %s: %w", editKindName(e.Kind), e.Range.Start, err)
		}
	}
	return nil
}

func overlapping(edits []buffer.Edit) bool {
	for i := range edits {
		for j := i + 1; j < len(edits); j++ {
			if edits[i].Span().Overlaps(edits[j].Span()) {
				return true
			}
		}
	}
	return false
}

func editKindName(k buffer.EditKind) string {
	switch k {
	case buffer.EditInsert:
		return "insert"
	case buffer.EditReplace:
		return "replace"
	default:
		return "delete"
	}
}

// runEffect runs one non-text transformation. It reports whether the rest
// of the batch should be skipped, as when a macro's motion fails.
func (s *Session) runEffect(ctx context.Context, t Transformation) (bool, error) {
	st := s.st
	switch t.Kind {
	case InvokeCommandLine:
		opener, ok := st.host.(buffer.CommandLineOpener)
		if !ok {
			log.Debug(log.CatDispatch, "host has no command line", "session", s.id)
			return false, nil
		}
		if err := opener.OpenCommandLine(ctx, t.InitialPrompt); err != nil {
			return false, fmt.Errorf("open command line: %w", err)
		}
		s.publish(pubsub.CommandLineEvent)

	case InvokeDotRepeat:
		prev, ok := s.global.PreviousFullAction().Get()
		if !ok {
			log.Debug(log.CatDispatch, "dot repeat ignored", "error", ErrNoPreviousAction)
			return true, nil
		}
		saved := prev.Clone()
		if err := s.rerunRecordedState(ctx, prev); err != nil {
			return false, err
		}
		s.global.setPreviousFullAction(saved)

	case InvokeMacro:
		reg, ok := s.global.Registers().Get(t.Register).Get()
		if !ok {
			log.Debug(log.CatDispatch, "macro ignored", "register", t.Register, "error", ErrRegisterEmpty)
			return true, nil
		}
		ctx, span := s.tracer.Start(ctx, tracing.SpanMacroReplay, trace.WithAttributes(
			attribute.String(tracing.AttrRegister, t.Register),
		))
		err := s.replayRegister(ctx, reg, t.Replay)
		span.End()
		if err != nil {
			return false, err
		}
		st.lastInvokedRegister = t.Register
		st.history.FinishCurrentStep()
		if st.lastMovementFailed {
			st.lastMovementFailed = false
			return true, nil
		}
	}
	return false, nil
}

func (s *Session) replayRegister(ctx context.Context, reg Register, kind ReplayKind) error {
	st := s.st
	st.isReplayingMacro = true
	defer func() { st.isReplayingMacro = false }()

	if reg.Macro != nil && kind == ReplayContentChange {
		return s.runMacro(ctx, reg.Macro)
	}

	var keys []string
	if reg.Macro != nil {
		for _, a := range reg.Macro.actionsRun {
			keys = append(keys, a.KeysPressed()...)
		}
	} else {
		keys = s.normalizer.Split(strings.ReplaceAll(reg.Text, "\n", notation.CR))
	}
	for _, k := range keys {
		s.handleKeyEvent(ctx, k)
		if st.lastMovementFailed {
			break
		}
	}
	return nil
}
