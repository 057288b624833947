package vim

import (
	"slices"

	"github.com/zjrosen/modal/internal/cursor"
	"github.com/zjrosen/modal/internal/grapheme"
	"github.com/zjrosen/modal/internal/notation"
)

type surroundKind int

const (
	surroundAdd surroundKind = iota
	surroundDelete
	// surroundChange waits for the pair to replace, surroundChangeTo for
	// its replacement.
	surroundChange
	surroundChangeTo
)

// surroundState is a surround operation waiting in SurroundInput for the
// characters that complete it.
type surroundState struct {
	kind surroundKind
	// ranges are the inclusive spans to wrap, per cursor index.
	ranges map[int]cursor.Range
	from   string
}

var surroundAliases = map[string]string{"b": ")", "B": "}", "r": "]", "a": ">"}

// surroundPair returns the text placed around a span for ch. Opening
// brackets pad the content with a space; closing ones do not.
func surroundPair(ch string) (string, string) {
	if alias, ok := surroundAliases[ch]; ok {
		ch = alias
	}
	pair, ok := bracketPairs[ch]
	switch {
	case !ok:
		return ch, ch
	case pair.forward:
		return ch + " ", " " + pair.match
	default:
		return pair.match, ch
	}
}

// surroundingPair finds the pair named by ch around p.
func (d *document) surroundingPair(p cursor.Position, ch string) (cursor.Position, cursor.Position, bool) {
	if alias, ok := surroundAliases[ch]; ok {
		ch = alias
	}
	pair, ok := bracketPairs[ch]
	if !ok {
		open, closer, ok := quotePair(grapheme.Split(d.line(p.Line)), p.Col, ch)
		return cursor.At(p.Line, open), cursor.At(p.Line, closer), ok
	}
	open, closer := ch, pair.match
	if !pair.forward {
		open, closer = pair.match, ch
	}

	start, found := p, d.charAt(p) == open
	if !found {
		if d.charAt(p) == closer {
			start, found = d.matchingBracket(p)
		} else {
			start, found = d.enclosingBracket(p, open, closer, false)
		}
	}
	if !found {
		return p, p, false
	}
	end, found := d.matchingBracket(start)
	return start, end, found
}

func isOpeningBracket(ch string) bool {
	pair, ok := bracketPairs[ch]
	return ok && pair.forward
}

func registerSurroundCommands(r *Registry) {
	inSurround := []Mode{ModeSurroundInput}
	pending := func(names ...string) func(s *State, _ []string) bool {
		return func(s *State, _ []string) bool {
			return s.cfg.Surround && s.operatorPending() && slices.Contains(names, s.recorded.Operator().Name())
		}
	}

	r.Register(
		&Command{
			actionBase: actionBase{name: "surround.line", keys: keys("s"), modes: onlyNormal, when: pending(operatorSurroundAdd)},
			execAll: func(s *State) error {
				for i, c := range s.cursors {
					l := c.Stop.Line
					s.surround.ranges[i] = cursor.NewRange(s.doc.firstNonBlank(l), s.doc.lastCharOf(l))
				}
				s.recorded.hasRunOperator = true
				s.mode = ModeSurroundInput
				return nil
			},
			incomplete: true,
		},
		&Command{
			actionBase: actionBase{name: "surround.start", keys: keys("s"), modes: onlyNormal, when: pending(operatorYank, operatorDelete, operatorChange)},
			execAll: func(s *State) error {
				rs := s.recorded
				rs.hasRunSurround = true
				rs.surroundKeys = slices.Clone(rs.commandList)
				s.surround = &surroundState{ranges: make(map[int]cursor.Range)}

				op := rs.Operator()
				switch op.Name() {
				case operatorYank:
					s.surround.kind = surroundAdd
					i := slices.IndexFunc(rs.actionsRun, func(a Action) bool { return a == Action(op) })
					rs.actionsRun[i] = s.registry.mustLookup(operatorSurroundAdd).instantiate(op.KeysPressed())
					return nil
				case operatorDelete:
					s.surround.kind = surroundDelete
				default:
					s.surround.kind = surroundChange
				}
				rs.hasRunOperator = true
				s.mode = ModeSurroundInput
				return nil
			},
			incomplete: true,
		},
		&Command{
			actionBase: actionBase{name: "surround.cancel", keys: alt(seq(notation.Esc), seq(notation.CtrlBr)), modes: inSurround},
			execAll: func(s *State) error {
				s.surround = nil
				s.resetRecorded()
				s.mode = ModeNormal
				return nil
			},
		},
		&Command{
			actionBase: actionBase{name: "surround.input", keys: keys(keyCharacter), modes: inSurround},
			execAll: func(s *State) error {
				sur := s.surround
				ch := notation.Text(s.typed(0))
				if sur == nil {
					s.mode = ModeNormal
					return nil
				}
				if sur.kind == surroundChange {
					sur.from = ch
					sur.kind = surroundChangeTo
					return nil
				}

				for i, c := range s.cursors {
					s.cur, s.curIndex = c, i
					switch sur.kind {
					case surroundAdd:
						if r, ok := sur.ranges[i]; ok {
							s.addSurround(r, ch)
						}
					case surroundDelete:
						s.replaceSurround(c.Stop, ch, "", "")
					case surroundChangeTo:
						open, closer := surroundPair(ch)
						s.replaceSurround(c.Stop, sur.from, open, closer)
					}
					s.cursors[i] = s.cur
				}
				s.curIndex = 0
				s.surround = nil
				s.mode = ModeNormal
				return nil
			},
		},
	)
}

// registerSurroundOperator adds the operator ys swaps in for y, which is
// also visual mode's S.
func registerSurroundOperator(r *Registry) {
	r.Register(&Operator{
		actionBase: actionBase{
			name: operatorSurroundAdd, keys: keys("S"), modes: []Mode{ModeVisual, ModeVisualLine},
			when: func(s *State, _ []string) bool { return s.cfg.Surround },
		},
		run: func(s *State, start, stop cursor.Position) error {
			if s.surround == nil {
				s.surround = &surroundState{kind: surroundAdd, ranges: make(map[int]cursor.Range)}
			}
			s.surround.ranges[s.curIndex] = cursor.NewRange(start, stop)
			s.cur = cursor.Collapsed(start)
			s.mode = ModeSurroundInput
			return nil
		},
	})
}

// addSurround wraps the inclusive span r.
func (s *State) addSurround(r cursor.Range, ch string) {
	open, closer := surroundPair(ch)
	start, stop := r.Normalized()
	after := s.doc.right(stop)
	if s.doc.lineLen(stop.Line) == 0 {
		after = stop
	}
	if after == start {
		s.pushTransformation(insertTextAt(start, open+closer, nil))
	} else {
		s.pushTransformation(insertTextAt(after, closer, nil))
		s.pushTransformation(insertTextAt(start, open, nil))
	}
	s.cur = cursor.Collapsed(start)
}

// replaceSurround swaps the pair named by target around p for open and
// closer; empty strings delete it. Naming the pair by its opening bracket
// also removes the padding inside it.
func (s *State) replaceSurround(p cursor.Position, target, open, closer string) {
	d := s.doc
	start, end, ok := d.surroundingPair(p, target)
	if !ok {
		return
	}
	openEnd := d.rightThroughLineBreaks(start)
	closeStart := end
	if isOpeningBracket(target) {
		for openEnd.Before(closeStart) && d.isBlankAt(openEnd) && !d.isLineEnd(openEnd) {
			openEnd = d.right(openEnd)
		}
		for closeStart.Col > 0 && openEnd.Before(closeStart) && d.isBlankAt(cursor.At(closeStart.Line, closeStart.Col-1)) {
			closeStart = d.left(closeStart)
		}
	}
	s.pushTransformation(replaceTextIn(cursor.NewRange(closeStart, d.rightThroughLineBreaks(end)), closer, nil))
	s.pushTransformation(replaceTextIn(cursor.NewRange(start, openEnd), open, nil))
	s.cur = cursor.Collapsed(start)
}
