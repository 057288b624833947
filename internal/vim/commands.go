package vim

import (
	"context"
	"fmt"
	"strings"

	"github.com/zjrosen/modal/internal/cursor"
	"github.com/zjrosen/modal/internal/grapheme"
	"github.com/zjrosen/modal/internal/log"
	"github.com/zjrosen/modal/internal/notation"
	"github.com/zjrosen/modal/internal/pubsub"
)

const (
	commandMacroStop = "macro.stop"
	commandUndo      = "history.undo"
)

// notKey rejects the single key given, for wildcard commands that must not
// swallow it.
func notKey(key string) func(s *State, keys []string) bool {
	return func(_ *State, k []string) bool {
		return len(k) == 0 || k[len(k)-1] != key
	}
}

func registerCommands(r *Registry) {
	registerPrefixCommands(r)
	registerModeCommands(r)
	registerEditCommands(r)
	registerMacroCommands(r)
	registerSearchCommands(r)
	registerInsertCommands(r)
	registerReplaceCommands(r)
	registerSurroundCommands(r)
}

// registerPrefixCommands adds the count and register selections that
// prefix another command.
func registerPrefixCommands(r *Registry) {
	r.Register(
		&Command{
			actionBase: actionBase{
				name: "prefix.count", keys: keys(keyNumber), modes: normalAndVisual,
				when: func(s *State, k []string) bool {
					return k[0] != "0" || s.recorded.count > 0
				},
			},
			execAll: func(s *State) error {
				digit := int(s.typed(0)[0] - '0')
				s.recorded.count = min(s.recorded.count*10+digit, s.maxCount())
				return nil
			},
			incomplete: true,
		},
		&Command{
			actionBase: actionBase{name: "prefix.register", keys: keys(`"`, keyCharacter), modes: normalAndVisual},
			execAll: func(s *State) error {
				name := s.typed(1)
				if !IsValidRegister(name) {
					log.Debug(log.CatDispatch, "register selection ignored", "register", name, "error", ErrInvalidRegister)
					return nil
				}
				s.recorded.registerName = name
				return nil
			},
			incomplete: true,
		},
	)
}

func registerModeCommands(r *Registry) {
	enterInsert := func(name, key string, at func(s *State, p cursor.Position) cursor.Position) *Command {
		return &Command{
			actionBase: actionBase{name: name, keys: keys(key), modes: onlyNormal, mustBeFirstKey: true},
			exec: func(s *State, p cursor.Position) error {
				s.cur = cursor.Collapsed(at(s, p))
				s.mode = ModeInsert
				return nil
			},
		}
	}

	r.Register(
		enterInsert("insert.before", "i", func(_ *State, p cursor.Position) cursor.Position {
			return p
		}),
		enterInsert("insert.after", "a", func(s *State, p cursor.Position) cursor.Position {
			return cursor.At(p.Line, min(p.Col+1, s.doc.lineLen(p.Line)))
		}),
		enterInsert("insert.line_start", "I", func(s *State, p cursor.Position) cursor.Position {
			return cursor.At(p.Line, graphemeLen(grapheme.LeadingWhitespace(s.doc.line(p.Line))))
		}),
		enterInsert("insert.line_end", "A", func(s *State, p cursor.Position) cursor.Position {
			return s.doc.lineEnd(p.Line)
		}),
		&Command{
			actionBase: actionBase{name: "insert.line_below", keys: keys("o"), modes: onlyNormal, mustBeFirstKey: true},
			exec: func(s *State, p cursor.Position) error {
				indent := s.indentOf(p.Line)
				n := graphemeLen(indent)
				s.pushTransformation(insertTextAt(s.doc.lineEnd(p.Line), "\n"+indent, diffOf(cursor.Diff{Line: 1, Col: n, BOL: true})))
				s.mode = ModeInsert
				return nil
			},
		},
		&Command{
			actionBase: actionBase{name: "insert.line_above", keys: keys("O"), modes: onlyNormal, mustBeFirstKey: true},
			exec: func(s *State, p cursor.Position) error {
				indent := s.indentOf(p.Line)
				at := s.doc.lineBegin(p.Line)
				s.cur = cursor.Collapsed(at)
				s.pushTransformation(insertTextAt(at, indent+"\n", diffOf(cursor.Diff{Col: graphemeLen(indent), BOL: true})))
				s.mode = ModeInsert
				return nil
			},
		},
		&Command{
			actionBase: actionBase{name: "visual_block.insert", keys: keys("I"), modes: []Mode{ModeVisualBlock}},
			execAll: func(s *State) error {
				s.blockInsert(func(r cursor.Range) cursor.Position {
					return r.Start
				})
				return nil
			},
		},
		&Command{
			actionBase: actionBase{name: "visual_block.append", keys: keys("A"), modes: []Mode{ModeVisualBlock}},
			execAll: func(s *State) error {
				s.blockInsert(func(r cursor.Range) cursor.Position {
					return cursor.At(r.Stop.Line, min(r.Stop.Col+1, s.doc.lineLen(r.Stop.Line)))
				})
				return nil
			},
		},
		visualToggle("visual.charwise", "v", ModeVisual),
		visualToggle("visual.linewise", "V", ModeVisualLine),
		visualToggle("visual.blockwise", notation.CtrlV, ModeVisualBlock),
		&Command{
			actionBase: actionBase{name: "visual.swap_ends", keys: alt(seq("o"), seq("O")), modes: visualModes},
			exec: func(s *State, _ cursor.Position) error {
				s.cur = cursor.NewRange(s.cur.Stop, s.cur.Start)
				return nil
			},
		},
		&Command{
			actionBase: actionBase{name: "visual.restore", keys: keys("g", "v"), modes: onlyNormal, mustBeFirstKey: true},
			execAll: func(s *State) error {
				last := s.lastVisual
				if !last.Mode.IsVisual() {
					return nil
				}
				s.mode = last.Mode
				s.cursors = []cursor.Range{cursor.NewRange(s.doc.clamp(last.Start), s.doc.clamp(last.Stop))}
				return nil
			},
		},
		&Command{
			actionBase: actionBase{name: "visual.escape", keys: alt(seq(notation.Esc), seq(notation.CtrlBr)), modes: visualModes},
			exec: func(s *State, p cursor.Position) error {
				s.cur = cursor.Collapsed(p)
				s.mode = ModeNormal
				return nil
			},
		},
		&Command{
			actionBase: actionBase{name: "normal.escape", keys: alt(seq(notation.Esc), seq(notation.CtrlBr)), modes: onlyNormal},
			execAll: func(s *State) error {
				if len(s.cursors) > 1 {
					s.cursors = s.cursors[:1]
				}
				return nil
			},
		},
		&Command{
			actionBase: actionBase{name: "command_line.open", keys: keys(":"), modes: normalAndVisual, mustBeFirstKey: true},
			execAll: func(s *State) error {
				prompt := ""
				if s.mode.IsVisual() {
					prompt = "'<,'>"
				}
				s.mode = ModeNormal
				s.pushTransformation(Transformation{Kind: InvokeCommandLine, InitialPrompt: prompt, CursorIndex: -1})
				return nil
			},
		},
	)
}

// visualToggle enters mode, or leaves it for normal mode when already there.
func visualToggle(name, key string, mode Mode) *Command {
	return &Command{
		actionBase: actionBase{name: name, keys: keys(key), modes: normalAndVisual, mustBeFirstKey: true},
		execAll: func(s *State) error {
			from := s.mode
			s.mode = mode
			if from == mode {
				s.mode = ModeNormal
			}
			if from == mode || from == ModeNormal {
				for i, c := range s.cursors {
					s.cursors[i] = cursor.Collapsed(c.Stop)
				}
			}
			return nil
		},
	}
}

// blockInsert leaves one insert cursor per line the visual block reaches.
func (s *State) blockInsert(at func(r cursor.Range) cursor.Position) {
	var out []cursor.Range
	for _, r := range s.blockLines() {
		out = append(out, cursor.Collapsed(at(r)))
	}
	if len(out) == 0 {
		start, _ := s.cursors[0].Normalized()
		out = []cursor.Range{cursor.Collapsed(start)}
	}
	s.cursors = out
	s.mode = ModeInsert
}

func (s *State) indentOf(line int) string {
	if !s.cfg.AutoIndent {
		return ""
	}
	return grapheme.LeadingWhitespace(s.doc.line(line))
}

func registerEditCommands(r *Registry) {
	r.Register(
		&Command{
			actionBase: actionBase{name: "edit.delete_char", keys: alt(seq("x"), seq(notation.Del)), modes: onlyNormal, mustBeFirstKey: true, repeatable: true},
			exec: func(s *State, p cursor.Position) error {
				s.deleteChars(p, s.count())
				return nil
			},
		},
		&Command{
			actionBase: actionBase{name: "edit.delete_char_before", keys: keys("X"), modes: onlyNormal, mustBeFirstKey: true, repeatable: true},
			exec: func(s *State, p cursor.Position) error {
				if p.Col == 0 {
					return nil
				}
				start := cursor.At(p.Line, max(0, p.Col-s.count()))
				s.putRegister(s.doc.text(start, p), RegisterCharacterWise, false)
				s.pushTransformation(deleteRangeOf(cursor.NewRange(start, p), nil))
				return nil
			},
		},
		&Command{
			actionBase: actionBase{name: "edit.substitute", keys: keys("s"), modes: onlyNormal, mustBeFirstKey: true, repeatable: true},
			exec: func(s *State, p cursor.Position) error {
				s.deleteChars(p, s.count())
				s.mode = ModeInsert
				return nil
			},
		},
		&Command{
			actionBase: actionBase{name: "edit.substitute_line", keys: keys("S"), modes: onlyNormal, mustBeFirstKey: true, repeatable: true},
			exec: func(s *State, p cursor.Position) error {
				s.currentRegisterMode = RegisterLineWise
				return changeRun(s, s.doc.lineBegin(p.Line), s.doc.lineEnd(s.countedLine(p)))
			},
		},
		&Command{
			actionBase: actionBase{name: "edit.delete_to_eol", keys: keys("D"), modes: onlyNormal, mustBeFirstKey: true, repeatable: true},
			exec: func(s *State, p cursor.Position) error {
				s.deleteToEOL(p)
				return nil
			},
		},
		&Command{
			actionBase: actionBase{name: "edit.change_to_eol", keys: keys("C"), modes: onlyNormal, mustBeFirstKey: true, repeatable: true},
			exec: func(s *State, p cursor.Position) error {
				s.deleteToEOL(p)
				s.mode = ModeInsert
				return nil
			},
		},
		&Command{
			actionBase: actionBase{name: "edit.yank_line", keys: keys("Y"), modes: onlyNormal, mustBeFirstKey: true},
			exec: func(s *State, p cursor.Position) error {
				s.currentRegisterMode = RegisterLineWise
				s.yankSpan(s.doc.lineBegin(p.Line), s.doc.lineEnd(s.countedLine(p)))
				return nil
			},
		},
		&Command{
			actionBase: actionBase{name: "edit.replace_char", keys: keys("r", keyCharacter), modes: onlyNormal, mustBeFirstKey: true, repeatable: true},
			exec: func(s *State, p cursor.Position) error {
				n := s.count()
				if p.Col+n > s.doc.lineLen(p.Line) {
					return nil
				}
				r := cursor.NewRange(p, cursor.At(p.Line, p.Col+n))
				text := notation.Text(s.typed(1))
				if text == "\n" {
					s.pushTransformation(replaceTextIn(r, "\n", diffOf(cursor.Diff{Line: 1, BOL: true})))
					return nil
				}
				s.pushTransformation(replaceTextIn(r, strings.Repeat(text, n), diffOf(cursor.Diff{Col: n - 1})))
				return nil
			},
		},
		&Command{
			actionBase: actionBase{name: "edit.toggle_case_char", keys: keys("~"), modes: onlyNormal, mustBeFirstKey: true, repeatable: true},
			exec: func(s *State, p cursor.Position) error {
				n := min(s.count(), s.doc.lineLen(p.Line)-p.Col)
				if n <= 0 {
					return nil
				}
				end := cursor.At(p.Line, p.Col+n)
				s.pushTransformation(replaceTextIn(cursor.NewRange(p, end), toggleCase(s.doc.text(p, end)), diffOf(cursor.Diff{Col: n})))
				return nil
			},
		},
		&Command{
			actionBase: actionBase{name: "edit.join_lines", keys: keys("J"), modes: onlyNormal, mustBeFirstKey: true, repeatable: true},
			exec: func(s *State, p cursor.Position) error {
				last := min(p.Line+max(1, s.count()-1), s.doc.lastLine())
				for l := p.Line; l < last; l++ {
					s.joinLine(l)
				}
				s.cur = cursor.Collapsed(s.doc.lineEnd(p.Line))
				return nil
			},
		},
		&Command{
			actionBase: actionBase{name: "paste.after", keys: keys("p"), modes: onlyNormal, mustBeFirstKey: true, repeatable: true},
			exec: func(s *State, p cursor.Position) error {
				s.paste(p, false)
				return nil
			},
		},
		&Command{
			actionBase: actionBase{name: "paste.before", keys: keys("P"), modes: onlyNormal, mustBeFirstKey: true, repeatable: true},
			exec: func(s *State, p cursor.Position) error {
				s.paste(p, true)
				return nil
			},
		},
		&Command{
			actionBase: actionBase{name: "paste.visual", keys: alt(seq("p"), seq("P")), modes: visualModes},
			execAll: func(s *State) error {
				linewise := s.mode == ModeVisualLine
				for i, c := range s.cursors {
					s.cur, s.curIndex = c, i
					s.pasteOverSelection(linewise, s.typed(0) == "P")
					s.cursors[i] = s.cur
				}
				s.curIndex = 0
				s.mode = ModeNormal
				return nil
			},
		},
		&Command{
			actionBase: actionBase{name: commandUndo, keys: keys("u"), modes: onlyNormal, mustBeFirstKey: true},
			execAll: func(s *State) error {
				return s.stepHistory("undo", s.host.Undo)
			},
		},
		&Command{
			actionBase: actionBase{name: "history.redo", keys: keys(notation.CtrlR), modes: onlyNormal, mustBeFirstKey: true},
			execAll: func(s *State) error {
				return s.stepHistory("redo", s.host.Redo)
			},
		},
		&Command{
			actionBase: actionBase{name: "repeat.dot", keys: keys("."), modes: onlyNormal, mustBeFirstKey: true},
			execAll: func(s *State) error {
				for i := 0; i < s.count(); i++ {
					s.pushTransformation(Transformation{Kind: InvokeDotRepeat, CursorIndex: -1})
				}
				return nil
			},
		},
	)
}

// countedLine is the last line a line-wise command with a count reaches.
func (s *State) countedLine(p cursor.Position) int {
	return min(p.Line+s.count()-1, s.doc.lastLine())
}

func (s *State) deleteChars(p cursor.Position, n int) {
	length := s.doc.lineLen(p.Line)
	if length == 0 {
		return
	}
	end := cursor.At(p.Line, min(p.Col+n, length))
	s.putRegister(s.doc.text(p, end), RegisterCharacterWise, false)
	s.pushTransformation(deleteRangeOf(cursor.NewRange(p, end), nil))
}

func (s *State) deleteToEOL(p cursor.Position) {
	end := s.doc.lineEnd(s.countedLine(p))
	if end == p {
		return
	}
	s.putRegister(s.doc.text(p, end), RegisterCharacterWise, false)
	s.pushTransformation(deleteRangeOf(cursor.NewRange(p, end), nil))
}

// joinLine joins line l with the next one, dropping the next line's
// indentation and separating the two with a space.
func (s *State) joinLine(l int) {
	cur, next := s.doc.line(l), s.doc.line(l+1)
	lead := grapheme.LeadingWhitespace(next)
	sep := " "
	if cur == "" || strings.HasSuffix(cur, " ") || strings.TrimSpace(next) == "" || strings.HasPrefix(strings.TrimSpace(next), ")") {
		sep = ""
	}
	t := replaceTextIn(cursor.NewRange(s.doc.lineEnd(l), cursor.At(l+1, graphemeLen(lead))), sep, nil)
	t.ManuallySetCursorPositions = true
	s.pushTransformation(t)
}

// paste puts the selected register after (or, with before, at) p, count
// times.
func (s *State) paste(p cursor.Position, before bool) {
	reg, ok := s.global.Registers().Get(s.registerName()).Get()
	if !ok {
		log.Debug(log.CatDispatch, "nothing to paste", "register", s.registerName(), "error", ErrRegisterEmpty)
		return
	}
	n := s.count()
	switch reg.Mode {
	case RegisterLineWise:
		text := strings.TrimSuffix(strings.Repeat(reg.Text+"\n", n), "\n")
		indent := graphemeLen(grapheme.LeadingWhitespace(splitLines(reg.Text)[0]))
		if before {
			at := s.doc.lineBegin(p.Line)
			s.cur = cursor.Collapsed(at)
			s.pushTransformation(insertTextAt(at, text+"\n", diffOf(cursor.Diff{Col: indent, BOL: true})))
			return
		}
		s.pushTransformation(insertTextAt(s.doc.lineEnd(p.Line), "\n"+text, diffOf(cursor.Diff{Line: 1, Col: indent, BOL: true})))

	case RegisterBlockWise:
		col := p.Col
		if !before && s.doc.lineLen(p.Line) > 0 {
			col++
		}
		s.pasteBlock(p, col, splitLines(reg.Text))

	default:
		text := strings.Repeat(reg.Text, n)
		at := p
		if !before && s.doc.lineLen(p.Line) > 0 {
			at = s.doc.right(p)
		}
		lines := splitLines(text)
		d := cursor.Diff{Col: at.Col - p.Col}
		if len(lines) == 1 {
			d.Col += graphemeLen(text) - 1
		}
		s.pushTransformation(insertTextAt(at, text, &d))
	}
}

// pasteBlock inserts each block line at col on successive lines, padding
// short lines and appending lines past the end of the buffer.
func (s *State) pasteBlock(p cursor.Position, col int, lines []string) {
	var extra strings.Builder
	for i, text := range lines {
		l := p.Line + i
		if l > s.doc.lastLine() {
			extra.WriteString("\n" + strings.Repeat(" ", col) + text)
			continue
		}
		c := min(col, s.doc.lineLen(l))
		var diff *cursor.Diff
		if i == 0 {
			diff = diffOf(cursor.Diff{Col: col - p.Col})
		}
		s.pushTransformation(insertTextAt(cursor.At(l, c), strings.Repeat(" ", col-c)+text, diff))
	}
	if extra.Len() > 0 {
		s.pushTransformation(insertTextAt(s.doc.docEnd(), extra.String(), nil))
	}
}

// pasteOverSelection replaces the selection in s.cur with the register.
// Unless keep is set, the replaced text then takes the register's place.
func (s *State) pasteOverSelection(linewise, keep bool) {
	start, stop := s.cur.Normalized()
	s.cur = cursor.Collapsed(start)
	reg, ok := s.global.Registers().Get(s.registerName()).Get()
	if !ok {
		return
	}
	d := s.doc
	r := cursor.NewRange(start, d.right(stop))
	mode := RegisterCharacterWise
	text := reg.Text
	switch {
	case linewise:
		r = cursor.NewRange(d.lineBegin(start.Line), d.lineEnd(stop.Line))
		mode = RegisterLineWise
		s.cur = cursor.Collapsed(r.Start)
	case reg.Mode == RegisterLineWise:
		text = "\n" + reg.Text + "\n"
	}
	replaced := d.text(r.Start, r.Stop)
	s.pushTransformation(replaceTextIn(r, text, nil))
	if !keep {
		s.putRegister(replaced, mode, false)
	}
}

// stepHistory undoes or redoes count steps on the host and adopts the
// cursor the host restores.
func (s *State) stepHistory(what string, step func(ctx context.Context) (bool, error)) error {
	for i := 0; i < s.count(); i++ {
		ok, err := step(s.ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", what, err)
		}
		if !ok {
			log.Debug(log.CatHistory, "nothing to "+what)
			break
		}
	}
	s.history.snapshots = nil
	s.cursors = cursor.Unique(s.host.Selections())
	s.mode = ModeNormal
	return nil
}

func registerMacroCommands(r *Registry) {
	r.Register(
		&Command{
			actionBase: actionBase{
				name: commandMacroStop, keys: keys("q"), modes: normalAndVisual, mustBeFirstKey: true,
				when: func(s *State, _ []string) bool { return s.isRecordingMacro },
			},
			execAll: func(s *State) error {
				s.isRecordingMacro = false
				macro := s.recordedMacro
				s.recordedMacro = nil
				var typed []string
				for _, a := range macro.actionsRun {
					typed = append(typed, a.KeysPressed()...)
				}
				reg := Register{Text: notation.Join(typed), Mode: RegisterCharacterWise, Macro: macro}
				if err := s.global.Registers().Put(s.macroRegister, reg); err != nil {
					return fmt.Errorf("store macro in %q: %w", s.macroRegister, err)
				}
				log.Info(log.CatHistory, "macro recorded", "register", s.macroRegister, "actions", len(macro.actionsRun))
				s.publish(pubsub.RecordingEvent)
				return nil
			},
		},
		&Command{
			actionBase: actionBase{
				name: "macro.record", keys: keys("q", keyCharacter), modes: normalAndVisual, mustBeFirstKey: true,
				when: func(s *State, _ []string) bool { return !s.isRecordingMacro },
			},
			execAll: func(s *State) error {
				name := s.typed(1)
				if !IsValidRegister(name) || name == RegisterInsertion || name == RegisterBlackHole {
					log.Debug(log.CatHistory, "macro register rejected", "register", name, "error", ErrInvalidRegister)
					return nil
				}
				s.isRecordingMacro = true
				s.recordedMacro = NewRecordedState()
				s.macroRegister = name
				log.Info(log.CatHistory, "macro recording started", "register", name)
				s.publish(pubsub.RecordingEvent)
				return nil
			},
		},
		&Command{
			actionBase: actionBase{name: "macro.play_last", keys: keys("@", "@"), modes: onlyNormal, mustBeFirstKey: true},
			execAll: func(s *State) error {
				if s.lastInvokedRegister == "" {
					return nil
				}
				s.playMacro(s.lastInvokedRegister)
				return nil
			},
		},
		&Command{
			actionBase: actionBase{name: "macro.play", keys: keys("@", keyCharacter), modes: onlyNormal, mustBeFirstKey: true},
			execAll: func(s *State) error {
				s.playMacro(s.typed(1))
				return nil
			},
		},
	)
}

func (s *State) playMacro(name string) {
	for i := 0; i < s.count(); i++ {
		s.pushTransformation(Transformation{Kind: InvokeMacro, Register: name, Replay: ReplayContentChange, CursorIndex: -1})
	}
}
