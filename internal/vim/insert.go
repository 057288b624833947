package vim

import (
	"github.com/zjrosen/modal/internal/cursor"
	"github.com/zjrosen/modal/internal/grapheme"
	"github.com/zjrosen/modal/internal/notation"
)

// replaceState remembers, per cursor, the characters Replace mode typed
// over so backspace can put them back. An empty entry marks a character
// that was appended past the end of the line.
type replaceState struct {
	overwritten map[int][]string
}

func (r *replaceState) push(index int, orig string) {
	r.overwritten[index] = append(r.overwritten[index], orig)
}

func (r *replaceState) pop(index int) (string, bool) {
	stack := r.overwritten[index]
	if len(stack) == 0 {
		return "", false
	}
	r.overwritten[index] = stack[:len(stack)-1]
	return stack[len(stack)-1], true
}

// typeText inserts text at p and leaves the cursor after it.
func (s *State) typeText(p cursor.Position, text string) {
	if text == "" {
		return
	}
	s.pushTransformation(insertTextAt(p, text, diffOf(diffAfterInsert(text))))
}

// registerInsertCommands adds insert mode. The specific keys come before
// the catch-all typing command, whose <character> would match them too.
func registerInsertCommands(r *Registry) {
	r.Register(
		&Command{
			actionBase: actionBase{name: "insert.escape", keys: alt(seq(notation.Esc), seq(notation.CtrlBr)), modes: onlyInsert},
			exec: func(s *State, p cursor.Position) error {
				s.cur = cursor.Collapsed(s.doc.left(p))
				s.mode = ModeNormal
				return nil
			},
		},
		&Command{
			actionBase: actionBase{name: "insert.backspace", keys: alt(seq(notation.BS), seq(notation.ShiftBS)), modes: onlyInsert},
			exec: func(s *State, p cursor.Position) error {
				if p != (cursor.Position{}) {
					s.pushTransformation(backspaceAt(p))
				}
				return nil
			},
			typing: true,
		},
		&Command{
			actionBase: actionBase{name: "insert.delete", keys: keys(notation.Del), modes: onlyInsert},
			exec: func(s *State, p cursor.Position) error {
				if !s.doc.isDocEnd(p) {
					s.pushTransformation(deleteRangeOf(cursor.NewRange(p, s.doc.rightThroughLineBreaks(p)), nil))
				}
				return nil
			},
			typing: true,
		},
		&Command{
			actionBase: actionBase{name: "insert.newline", keys: keys(notation.CR), modes: onlyInsert},
			exec: func(s *State, p cursor.Position) error {
				indent := s.indentOf(p.Line)
				if graphemeLen(indent) > p.Col {
					indent = grapheme.Slice(indent, 0, p.Col)
				}
				s.typeText(p, "\n"+indent)
				return nil
			},
			typing: true,
		},
		&Command{
			actionBase: actionBase{name: "insert.delete_word", keys: keys("<C-w>"), modes: onlyInsert},
			exec: func(s *State, p cursor.Position) error {
				if p.Col == 0 {
					if p.Line > 0 {
						s.pushTransformation(backspaceAt(p))
					}
					return nil
				}
				from := s.doc.prevWordStart(p, false)
				if from.Line != p.Line {
					from = s.doc.lineBegin(p.Line)
				}
				s.pushTransformation(deleteRangeOf(cursor.NewRange(from, p), nil))
				return nil
			},
			typing: true,
		},
		&Command{
			actionBase: actionBase{name: "insert.paste_register", keys: keys(notation.CtrlR, keyCharacter), modes: onlyInsert},
			exec: func(s *State, p cursor.Position) error {
				if reg, ok := s.global.Registers().Get(s.typed(1)).Get(); ok {
					s.typeText(p, reg.Text)
				}
				return nil
			},
			typing: true,
		},
		insertArrow("insert.left", notation.Left, func(s *State, p cursor.Position) cursor.Position {
			return s.doc.left(p)
		}),
		insertArrow("insert.right", notation.Right, func(s *State, p cursor.Position) cursor.Position {
			return s.doc.right(p)
		}),
		insertArrow("insert.up", notation.Up, func(s *State, p cursor.Position) cursor.Position {
			return s.doc.clamp(cursor.At(max(0, p.Line-1), p.Col))
		}),
		insertArrow("insert.down", notation.Down, func(s *State, p cursor.Position) cursor.Position {
			return s.doc.clamp(cursor.At(min(s.doc.lastLine(), p.Line+1), p.Col))
		}),
		&Command{
			actionBase: actionBase{name: "insert.type", keys: keys(keyCharacter), modes: onlyInsert},
			exec: func(s *State, p cursor.Position) error {
				s.typeText(p, notation.Text(s.typed(0)))
				return nil
			},
			typing: true,
		},
	)
}

func insertArrow(name, key string, to func(s *State, p cursor.Position) cursor.Position) *Command {
	return &Command{
		actionBase: actionBase{name: name, keys: keys(key), modes: onlyInsert},
		exec: func(s *State, p cursor.Position) error {
			s.cur = cursor.Collapsed(to(s, p))
			return nil
		},
	}
}

func registerReplaceCommands(r *Registry) {
	inReplace := []Mode{ModeReplace}
	r.Register(
		&Command{
			actionBase: actionBase{name: "replace.start", keys: keys("R"), modes: onlyNormal, mustBeFirstKey: true},
			execAll: func(s *State) error {
				s.replace = &replaceState{overwritten: make(map[int][]string)}
				s.mode = ModeReplace
				return nil
			},
		},
		&Command{
			actionBase: actionBase{name: "replace.escape", keys: alt(seq(notation.Esc), seq(notation.CtrlBr)), modes: inReplace},
			exec: func(s *State, p cursor.Position) error {
				s.cur = cursor.Collapsed(s.doc.left(p))
				s.mode = ModeNormal
				s.replace = nil
				return nil
			},
		},
		&Command{
			actionBase: actionBase{name: "replace.backspace", keys: alt(seq(notation.BS), seq(notation.ShiftBS)), modes: inReplace},
			exec: func(s *State, p cursor.Position) error {
				orig, ok := s.replace.pop(s.curIndex)
				if !ok || p.Col == 0 {
					s.cur = cursor.Collapsed(s.doc.left(p))
					return nil
				}
				prev := s.doc.left(p)
				if orig == "" {
					s.pushTransformation(deleteRangeOf(cursor.NewRange(prev, p), nil))
					return nil
				}
				s.pushTransformation(replaceTextIn(cursor.NewRange(prev, p), orig, diffOf(cursor.Diff{Col: -1})))
				return nil
			},
		},
		&Command{
			actionBase: actionBase{name: "replace.type", keys: keys(keyCharacter), modes: inReplace},
			exec: func(s *State, p cursor.Position) error {
				text := notation.Text(s.typed(0))
				if text == "\n" {
					s.typeText(p, text)
					return nil
				}
				if p.Col >= s.doc.lineLen(p.Line) {
					s.replace.push(s.curIndex, "")
					s.typeText(p, text)
					return nil
				}
				s.replace.push(s.curIndex, s.doc.charAt(p))
				next := cursor.At(p.Line, p.Col+1)
				s.pushTransformation(replaceTextIn(cursor.NewRange(p, next), text, diffOf(cursor.Diff{Col: graphemeLen(text)})))
				return nil
			},
		},
	)
}
