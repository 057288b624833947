package vim

import (
	"strings"
	"unicode"

	"github.com/zjrosen/modal/internal/cursor"
	"github.com/zjrosen/modal/internal/grapheme"
)

// Operator names referenced outside the catalog.
const (
	operatorDelete      = "operator.delete"
	operatorChange      = "operator.change"
	operatorYank        = "operator.yank"
	operatorSurroundAdd = "operator.surround_add"
)

// visualOnly narrows an alias key such as x to the visual modes.
func visualOnlyKey(key string) func(s *State, keys []string) bool {
	return func(s *State, k []string) bool {
		return len(k) == 0 || k[0] != key || s.mode.IsVisual()
	}
}

func registerOperators(r *Registry) {
	r.Register(
		&Operator{
			actionBase: actionBase{
				name: operatorDelete, keys: alt(seq("d"), seq("x")), modes: normalAndVisual,
				repeatable: true, when: visualOnlyKey("x"),
			},
			run: func(s *State, start, stop cursor.Position) error {
				s.deleteSpan(start, stop, false)
				s.mode = ModeNormal
				return nil
			},
			runBlock: deleteBlock,
		},
		&Operator{
			actionBase: actionBase{name: operatorChange, keys: keys("c"), modes: normalAndVisual, repeatable: true},
			run:        changeRun,
			runRepeat: func(s *State, p cursor.Position, count int) error {
				s.currentRegisterMode = RegisterLineWise
				return changeRun(s, s.doc.lineBegin(p.Line), s.doc.lineEnd(min(p.Line+max(0, count-1), s.doc.lastLine())))
			},
			runBlock: changeBlock,
		},
		&Operator{
			actionBase: actionBase{name: operatorYank, keys: keys("y"), modes: normalAndVisual},
			run: func(s *State, start, stop cursor.Position) error {
				s.yankSpan(start, stop)
				s.cursorToRangeStart(start)
				s.mode = ModeNormal
				return nil
			},
			runRepeat: func(s *State, p cursor.Position, count int) error {
				s.currentRegisterMode = RegisterLineWise
				s.yankSpan(s.doc.lineBegin(p.Line), s.doc.lineEnd(min(p.Line+max(0, count-1), s.doc.lastLine())))
				s.mode = ModeNormal
				return nil
			},
			runBlock: yankBlock,
		},
		&Operator{
			actionBase: actionBase{name: "operator.indent", keys: keys(">"), modes: normalAndVisual, repeatable: true},
			run: func(s *State, start, stop cursor.Position) error {
				return s.shiftLines(start.Line, stop.Line, 1)
			},
		},
		&Operator{
			actionBase: actionBase{name: "operator.outdent", keys: keys("<"), modes: normalAndVisual, repeatable: true},
			run: func(s *State, start, stop cursor.Position) error {
				return s.shiftLines(start.Line, stop.Line, -1)
			},
		},
		caseOperator("operator.lowercase", "u", strings.ToLower),
		caseOperator("operator.uppercase", "U", strings.ToUpper),
		caseOperator("operator.toggle_case", "~", toggleCase),
	)
	registerSurroundOperator(r)
}

// deleteSpan removes the inclusive span [start, stop] and stores it in the
// selected register. Line-wise deletion removes whole lines and leaves the
// cursor at the start of the line that takes their place.
func (s *State) deleteSpan(start, stop cursor.Position, yank bool) {
	d := s.doc
	mode := s.effectiveRegisterMode()
	if mode == RegisterLineWise {
		start, stop = d.lineBegin(start.Line), d.lineEnd(stop.Line)
	}

	end := cursor.At(stop.Line, stop.Col+1)
	if end.Col > d.lineLen(stop.Line) {
		end = cursor.At(stop.Line+1, 0)
	}
	text := d.text(start, end)
	if mode == RegisterLineWise {
		text = d.text(start, stop)
	}
	if end.Line > d.lastLine() {
		end = d.docEnd()
	}

	var diff *cursor.Diff
	if mode == RegisterLineWise {
		if stop.Line == d.lastLine() && start.Line != 0 {
			start = d.lineEnd(start.Line - 1)
		}
		bol := cursor.BOLDiff()
		diff = &bol
	}

	s.cursorToRangeStart(start)
	s.pushTransformation(deleteRangeOf(cursor.NewRange(start, end), diff))
	s.putRegister(text, mode, yank)
}

// yankSpan copies the inclusive span [start, stop] into the selected register.
func (s *State) yankSpan(start, stop cursor.Position) {
	d := s.doc
	mode := s.effectiveRegisterMode()
	var text string
	if mode == RegisterLineWise {
		text = d.text(d.lineBegin(start.Line), d.lineEnd(stop.Line))
	} else {
		text = d.text(start, d.right(stop))
		if stop.Col >= d.lineLen(stop.Line) && stop.Line < d.lastLine() {
			text += "\n"
		}
	}
	s.putRegister(text, mode, true)
}

func changeRun(s *State, start, stop cursor.Position) error {
	d := s.doc
	mode := s.effectiveRegisterMode()
	s.mode = ModeInsert

	if mode == RegisterLineWise {
		indent := ""
		if s.cfg.AutoIndent {
			indent = grapheme.LeadingWhitespace(d.line(start.Line))
		}
		s.putRegister(d.text(d.lineBegin(start.Line), d.lineEnd(stop.Line)), mode, false)
		at := cursor.At(start.Line, graphemeLen(indent))
		s.cur = cursor.Collapsed(at)
		s.pushTransformation(replaceTextIn(cursor.NewRange(d.lineBegin(start.Line), d.lineEnd(stop.Line)), indent, diffOf(cursor.Diff{Col: graphemeLen(indent), BOL: true})))
		return nil
	}

	end := cursor.At(stop.Line, min(stop.Col+1, d.lineLen(stop.Line)))
	if stop.Col >= d.lineLen(stop.Line) && stop.Line < d.lastLine() {
		end = cursor.At(stop.Line+1, 0)
	}
	s.putRegister(d.text(start, end), mode, false)
	s.cursorToRangeStart(start)
	if start != end {
		s.pushTransformation(deleteRangeOf(cursor.NewRange(start, end), nil))
	}
	return nil
}

func (s *State) blockText(lines []cursor.Range) string {
	parts := make([]string, len(lines))
	for i, r := range lines {
		parts[i] = s.doc.text(r.Start, s.doc.right(r.Stop))
	}
	return strings.Join(parts, "\n")
}

func yankBlock(s *State, lines []cursor.Range) error {
	s.putRegister(s.blockText(lines), RegisterBlockWise, true)
	s.cur = cursor.Collapsed(lines[0].Start)
	s.mode = ModeNormal
	return nil
}

func deleteBlock(s *State, lines []cursor.Range) error {
	s.putRegister(s.blockText(lines), RegisterBlockWise, false)
	for i, r := range lines {
		s.curIndex = i
		t := deleteRangeOf(cursor.NewRange(r.Start, s.doc.right(r.Stop)), nil)
		t.ManuallySetCursorPositions = true
		s.pushTransformation(t)
	}
	s.curIndex = 0
	s.cur = cursor.Collapsed(lines[0].Start)
	s.mode = ModeNormal
	return nil
}

// changeBlock deletes the block and leaves one insert cursor per line.
func changeBlock(s *State, lines []cursor.Range) error {
	if err := deleteBlock(s, lines); err != nil {
		return err
	}
	s.blockCursors = make([]cursor.Range, len(lines))
	for i, r := range lines {
		s.blockCursors[i] = cursor.Collapsed(r.Start)
	}
	s.mode = ModeInsert
	return nil
}

// shiftLines indents (dir > 0) or outdents lines first..last by one
// shiftwidth. The cursor lands on the first non-blank of the first line.
func (s *State) shiftLines(first, last, dir int) error {
	if last < first {
		first, last = last, first
	}
	width := max(1, s.cfg.ShiftWidth)

	cursorCol := 0
	for l := first; l <= last; l++ {
		text := s.doc.line(l)
		lead := grapheme.LeadingWhitespace(text)
		newLead := graphemeLen(lead)
		var t Transformation
		if dir > 0 {
			if text == "" {
				continue
			}
			t = insertTextAt(cursor.At(l, 0), strings.Repeat(" ", width), nil)
			newLead += width
		} else {
			remove := removableIndent(lead, width)
			if remove == 0 {
				if l == first {
					cursorCol = newLead
				}
				continue
			}
			t = deleteRangeOf(cursor.NewRange(cursor.At(l, 0), cursor.At(l, remove)), nil)
			newLead -= remove
		}
		t.ManuallySetCursorPositions = true
		s.pushTransformation(t)
		if l == first {
			cursorCol = newLead
		}
	}
	s.cur = cursor.Collapsed(cursor.At(first, cursorCol))
	if len(s.recorded.transformations) > 0 {
		s.recorded.transformations[0].ManuallySetCursorPositions = true
	}
	s.mode = ModeNormal
	return nil
}

// removableIndent counts the leading graphemes an outdent by width strips:
// spaces up to width, or a single tab.
func removableIndent(lead string, width int) int {
	n := 0
	for _, c := range grapheme.Split(lead) {
		if n >= width {
			break
		}
		if c == "\t" {
			if n == 0 {
				return 1
			}
			break
		}
		n++
	}
	return n
}

// caseOperator is gu, gU or g~. Doubling accepts both the full form (gUgU)
// and the short one (gUU).
func caseOperator(name, key string, fn func(string) string) *Operator {
	return &Operator{
		actionBase: actionBase{
			name:       name,
			keys:       alt(seq("g", key), seq(key)),
			modes:      normalAndVisual,
			repeatable: true,
			when: func(s *State, k []string) bool {
				if len(k) > 0 && k[0] == "g" {
					return true
				}
				op := s.recorded.Operator()
				return s.mode.IsVisual() || (op != nil && op.Name() == name && !s.recorded.hasRunOperator)
			},
		},
		run: func(s *State, start, stop cursor.Position) error {
			d := s.doc
			mode := s.effectiveRegisterMode()
			if mode == RegisterLineWise {
				start, stop = d.lineBegin(start.Line), d.lineEnd(stop.Line)
			} else {
				stop = d.right(stop)
			}
			text := d.text(start, stop)
			if changed := fn(text); changed != text {
				t := replaceTextIn(cursor.NewRange(start, stop), changed, nil)
				t.ManuallySetCursorPositions = true
				s.pushTransformation(t)
			}
			s.cur = cursor.Collapsed(start)
			s.mode = ModeNormal
			return nil
		},
	}
}

func toggleCase(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsUpper(r) {
			return unicode.ToLower(r)
		}
		return unicode.ToUpper(r)
	}, s)
}
