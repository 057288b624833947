package vim

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/modal/internal/buffer"
	"github.com/zjrosen/modal/internal/cursor"
	"github.com/zjrosen/modal/internal/log"
	"github.com/zjrosen/modal/internal/pubsub"
	"github.com/zjrosen/modal/internal/tracing"
)

const (
	// maxKeyHistory bounds the keys kept for remap stripping.
	maxKeyHistory = 1000
	// maxRemapDepth stops recursive remappings that never bottom out.
	maxRemapDepth = 100

	selectionPolls    = 10
	selectionPollWait = 5 * time.Millisecond
)

// handleKeyEvent runs one dispatch cycle. Any failure restores the mode and
// cursors the cycle started with; nothing escapes to the caller.
func (s *Session) handleKeyEvent(ctx context.Context, key string) {
	st := s.st
	ctx, span := s.tracer.Start(ctx, tracing.SpanDispatchKey, trace.WithAttributes(
		attribute.String(tracing.AttrSessionID, s.id),
		attribute.String(tracing.AttrKey, key),
		attribute.String(tracing.AttrMode, st.mode.String()),
	))
	defer span.End()

	prevCtx := st.ctx
	st.ctx = ctx
	defer func() { st.ctx = prevCtx }()

	modeBefore := st.mode
	cursorsBefore := slices.Clone(st.cursors)

	if err := s.guard(func() error { return s.dispatchKey(ctx, key) }); err != nil {
		log.ErrorErr(log.CatDispatch, "dispatch failed", err, "session", s.id, "key", key, "mode", st.mode)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		st.mode = modeBefore
		st.cursors = cursorsBefore
		st.resetRecorded()
		st.host.SetSelections(cursorsBefore)
		s.commitMode()
		s.publishErr(pubsub.DispatchFailureEvent, err)
	}

	if s.cfg.Timeout > 0 {
		s.window.Set(ctx, lastKeyWindow, time.Now(), s.cfg.Timeout)
	}
	span.SetAttributes(
		attribute.String(tracing.AttrModeAfter, st.mode.String()),
		attribute.Int(tracing.AttrCursorCount, len(st.cursors)),
	)
	s.refreshView()
}

// guard converts a panic in fn into an error.
func (s *Session) guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action panicked: %v", r)
		}
	}()
	return fn()
}

func (s *Session) dispatchKey(ctx context.Context, key string) error {
	st := s.st
	st.recorded.commandList = append(st.recorded.commandList, key)
	keys := st.recorded.CurrentCommandWithoutCountPrefix()

	_, withinWindow := s.window.Get(ctx, lastKeyWindow)
	if !s.isCurrentlyPerformingRemapping && len(keys) > 0 && (withinWindow || len(keys) == 1) {
		s.couldRemappingApply = false
		for _, r := range s.remappers {
			handled, err := s.sendKeyToRemapper(ctx, r, keys)
			if err != nil {
				return err
			}
			if handled {
				st.recorded.commandList = nil
				return nil
			}
		}
	}
	return s.handleKeyEventHelper(ctx, key)
}

func (s *Session) handleKeyEventHelper(ctx context.Context, key string) error {
	st := s.st
	rs := st.recorded
	rs.actionKeys = append(rs.actionKeys, key)
	st.keyHistory = append(st.keyHistory, key)
	if n := len(st.keyHistory); n > maxKeyHistory {
		st.keyHistory = slices.Clone(st.keyHistory[n-maxKeyHistory:])
	}

	span := trace.SpanFromContext(ctx)
	action, result := s.registry.RelevantAction(st, rs.actionKeys)
	switch result {
	case NoPossibleMatch:
		span.AddEvent(tracing.EventNoMatch)
		log.Debug(log.CatDispatch, "no action", "keys", rs.actionKeys, "mode", st.mode)
		if !s.couldRemappingApply {
			if st.mode == ModeInsert {
				// Keep the insertion being typed; only drop the unknown key.
				rs.actionKeys = nil
				rs.commandList = rs.commandList[:len(rs.commandList)-1]
			} else {
				st.resetRecorded()
			}
		}
		return nil
	case WaitingOnKeys:
		span.AddEvent(tracing.EventWaitingForKeys)
		return nil
	}
	span.SetAttributes(attribute.String(tracing.AttrAction, action.Name()))

	if rs.hasRunSurround {
		rs.surroundKeys = append(rs.surroundKeys, key)
	}

	s.recordAction(action)

	if err := s.runAction(ctx, action); err != nil {
		return err
	}
	if st.mode == ModeInsert {
		st.recorded.isInsertion = true
	}
	s.updateView(ctx)
	return nil
}

// recordAction appends action to the recorded state. Consecutive typing in
// insert mode collapses into one content change, captured by diffing the
// buffer once the typing ends.
func (s *Session) recordAction(action Action) {
	st := s.st
	rs := st.recorded
	typing := isTyping(action)

	if cc, ok := rs.lastAction().(*ContentChangeAction); ok {
		if typing {
			cc.keysPressed = append(cc.keysPressed, action.KeysPressed()...)
		} else {
			cc.changes = append(cc.changes, st.history.CaptureContentChanges()...)
			rs.actionsRun = append(rs.actionsRun, action)
		}
	} else if typing {
		st.history.MarkContent()
		cc := newContentChangeAction()
		cc.keysPressed = slices.Clone(action.KeysPressed())
		rs.actionsRun = append(rs.actionsRun, cc)
	} else {
		rs.actionsRun = append(rs.actionsRun, action)
	}

	if st.isRecordingMacro && action.Name() != commandMacroStop {
		m := st.recordedMacro
		if last := rs.lastAction(); m.lastAction() != last {
			m.actionsRun = append(m.actionsRun, last)
		}
	}
}

func isTyping(a Action) bool {
	c, ok := a.(*Command)
	return ok && c.typing
}

// runAction executes one matched action and settles the cycle: operators
// fire once they have a range, completed commands start a fresh recorded
// state, and repeatable changes become the dot-repeat target.
func (s *Session) runAction(ctx context.Context, action Action) error {
	st := s.st
	rs := st.recorded
	ranRepeatable := false
	ranAction := false

	if _, ok := action.(*Operator); ok && rs.count > 0 {
		rs.operatorCount = max(rs.operatorCount, 1) * rs.count
		rs.count = 0
	}

	prevRunning := st.running
	st.running = action
	defer func() { st.running = prevRunning }()

	switch a := action.(type) {
	case *Motion:
		if err := s.executeMovement(ctx, a); err != nil {
			return err
		}
		ranAction = true
	case *Command:
		if err := s.runCommand(ctx, a); err != nil {
			return err
		}
		ranAction = a.isCompleteAction()
		ranRepeatable = a.CanBeRepeatedWithDot()
	case *ContentChangeAction:
		for _, c := range a.changes {
			st.pushTransformation(Transformation{Kind: contentChange, Change: c, CursorIndex: -1})
		}
		if err := s.executeTransformations(ctx); err != nil {
			return err
		}
	}

	if s.commitMode() {
		ranRepeatable = true
	}

	rs = st.recorded
	if rs.OperatorReadyToExecute(st.mode) {
		if err := s.executeOperator(ctx); err != nil {
			return err
		}
		rs.hasRunOperator = true
		ranRepeatable = rs.Operator().CanBeRepeatedWithDot()
		ranAction = true
	}

	if s.commitMode() {
		ranRepeatable = true
	}

	rs = st.recorded
	if ranAction && st.mode != ModeInsert {
		rs.commandList = nil
	}
	ranRepeatable = ranRepeatable && st.mode == ModeNormal && len(rs.actionsRun) > 0
	ranAction = ranAction && (st.mode == ModeNormal || st.mode.IsVisual())

	if ranRepeatable {
		s.global.setPreviousFullAction(rs)
		if rs.isInsertion {
			s.global.Registers().putInsertion(st.history.InsertedText())
		}
	}

	if m, ok := action.(*Motion); ok {
		if !m.keepsDesiredColumn {
			if m.desiredColumnToEOL && rs.Operator() == nil {
				st.desiredColumn = desiredColumnEOL
			} else {
				st.desiredColumn = st.cursors[0].Stop.Col
			}
		}
	} else if st.mode != ModeVisualBlock {
		st.desiredColumn = st.cursors[0].Stop.Col
	}

	if ranAction {
		st.resetRecorded()
	}
	if ranRepeatable && !st.isReplayingMacro {
		st.history.FinishCurrentStep()
	}
	st.recorded.actionKeys = nil
	st.currentRegisterMode = RegisterFigureItOut

	s.normalizeCursors()
	if st.mode.IsVisual() {
		st.lastVisual = VisualSelection{Mode: st.mode, Start: st.cursors[0].Start, Stop: st.cursors[0].Stop}
	}
	return nil
}

// normalizeCursors clamps every cursor into the buffer, collapses them in
// normal mode and keeps them off the end-of-line position where that mode
// forbids it.
func (s *Session) normalizeCursors() {
	st := s.st
	for i, c := range st.cursors {
		c.Start = st.doc.clamp(c.Start)
		c.Stop = st.doc.clamp(c.Stop)
		if st.mode == ModeNormal || st.mode.IsVisual() {
			if n := st.doc.lineLen(c.Stop.Line); n > 0 && c.Stop.Col >= n {
				c.Stop.Col = n - 1
			}
		}
		if st.mode == ModeNormal {
			c.Start = c.Stop
		}
		st.cursors[i] = c
	}
	st.cursors = cursor.Unique(st.cursors)
}

// runCommand runs c for every cursor, or once via execAll, then applies the
// transformations it queued.
func (s *Session) runCommand(ctx context.Context, c *Command) error {
	st := s.st
	if c.execAll != nil {
		if err := c.execAll(st); err != nil {
			return err
		}
		return s.executeTransformations(ctx)
	}

	n := 1
	if c.perCount {
		n = st.count()
	}
	resulting := make([]cursor.Range, 0, len(st.cursors))
	for i, cur := range st.cursors {
		st.cur, st.curIndex = cur, i
		for j := 0; j < n; j++ {
			if err := c.exec(st, st.cur.Stop); err != nil {
				return err
			}
		}
		resulting = append(resulting, st.cur)
	}
	st.cursors = resulting
	return s.executeTransformations(ctx)
}

// commitMode publishes a mode change made during the cycle. It reports
// whether the change ended an edit, which makes the command repeatable.
func (s *Session) commitMode() bool {
	prev, cur := s.activeMode, s.st.mode
	if prev == cur {
		return false
	}
	s.activeMode = cur
	if cur != ModeSearchInProgress {
		s.st.searchInput = nil
	}
	log.Debug(log.CatDispatch, "mode changed", "session", s.id, "from", prev, "to", cur)
	s.publish(pubsub.ModeChangedEvent)
	return cur == ModeNormal && (prev == ModeInsert || prev == ModeReplace || prev == ModeSurroundInput)
}

// rerunRecordedState replays a completed command for dot-repeat.
func (s *Session) rerunRecordedState(ctx context.Context, rs *RecordedState) error {
	st := s.st
	ctx, span := s.tracer.Start(ctx, tracing.SpanDotRepeat, trace.WithAttributes(
		attribute.String(tracing.AttrSessionID, s.id),
		attribute.String(tracing.AttrKey, rs.CommandString()),
	))
	defer span.End()

	st.isRunningDotCommand = true
	defer func() { st.isRunningDotCommand = false }()

	if rs.hasRunSurround {
		st.resetRecorded()
		for _, k := range rs.surroundKeys {
			s.handleKeyEvent(ctx, k)
		}
		return nil
	}

	actions := rs.Clone().actionsRun
	st.resetRecorded()
	for i, a := range actions {
		st.recorded.actionsRun = slices.Clone(actions[:i+1])
		if err := s.runAction(ctx, a); err != nil {
			return err
		}
		if st.lastMovementFailed {
			return nil
		}
		s.updateView(ctx)
	}
	return nil
}

// runMacro replays the actions recorded into a macro register.
func (s *Session) runMacro(ctx context.Context, macro *RecordedState) error {
	st := s.st
	ctx, span := s.tracer.Start(ctx, tracing.SpanMacroReplay, trace.WithAttributes(
		attribute.String(tracing.AttrSessionID, s.id),
		attribute.Int("macro.actions", len(macro.actionsRun)),
	))
	defer span.End()

	st.lastMovementFailed = false
	st.resetRecorded()
	for _, a := range macro.Clone().actionsRun {
		st.recorded.actionsRun = append(st.recorded.actionsRun, a)
		st.keyHistory = append(st.keyHistory, a.KeysPressed()...)
		if err := s.runAction(ctx, a); err != nil {
			return err
		}
		if st.lastMovementFailed {
			span.AddEvent(tracing.EventMovementFailed)
			break
		}
		s.updateView(ctx)
	}
	return nil
}

// updateView pushes the cursors to the host and announces the new view.
func (s *Session) updateView(ctx context.Context) {
	st := s.st
	st.host.SetSelections(st.cursors)
	s.waitForSelections(ctx)
	st.host.Reveal(st.cursors[0].Stop)
	s.publish(pubsub.ViewChangedEvent)
}

// waitForSelections polls hosts that apply selections asynchronously.
func (s *Session) waitForSelections(ctx context.Context) {
	settler, ok := s.st.host.(buffer.SelectionSettler)
	if !ok || settler.SelectionsSettled() {
		return
	}
	ticker := time.NewTicker(selectionPollWait)
	defer ticker.Stop()
	for i := 0; i < selectionPolls; i++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if settler.SelectionsSettled() {
				return
			}
		}
	}
	log.Warn(log.CatDispatch, "host selections did not settle", "session", s.id)
}
