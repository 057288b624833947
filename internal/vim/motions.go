package vim

import (
	"github.com/zjrosen/modal/internal/cursor"
	"github.com/zjrosen/modal/internal/grapheme"
	"github.com/zjrosen/modal/internal/notation"
)

// Motion names referenced outside the catalog.
const (
	motionFindForward   = "motion.find_forward"
	motionFindBackward  = "motion.find_backward"
	motionTillForward   = "motion.till_forward"
	motionTillBackward  = "motion.till_backward"
	motionMatchBracket  = "motion.match_bracket"
	motionSearchCommit  = "search.commit"
	motionLineBeginZero = "motion.line_begin"
)

func withOperatorOrVisual(s *State, _ []string) bool {
	return s.operatorPending() || s.mode.IsVisual()
}

// inclusiveUnderOperator extends a position result by one column so the
// operator's exclusive end still covers the character reached.
func inclusiveUnderOperator(s *State, m Movement) Movement {
	if m.isRange || m.Failed {
		return m
	}
	p := s.doc.right(m.Stop)
	return moveTo(p)
}

// lineWiseRange covers whole lines from a to b for operators.
func lineWiseRange(a, b cursor.Position) Movement {
	m := rangeMovement(a, b)
	m.RegisterMode = RegisterLineWise
	return m
}

func registerMotions(r *Registry) {
	r.Register(
		&Motion{
			actionBase: actionBase{name: "motion.left", keys: alt(seq("h"), seq(notation.Left)), modes: normalAndVisual},
			exec: func(s *State, p cursor.Position) Movement {
				return moveTo(s.doc.left(p))
			},
		},
		&Motion{
			actionBase: actionBase{name: "motion.right", keys: alt(seq("l"), seq(notation.Right)), modes: normalAndVisual},
			exec: func(s *State, p cursor.Position) Movement {
				if s.operatorPending() {
					return moveTo(s.doc.right(p))
				}
				return moveTo(cursor.At(p.Line, min(p.Col+1, max(0, s.doc.lineLen(p.Line)-1))))
			},
		},
		&Motion{
			actionBase: actionBase{name: "motion.backspace", keys: keys(notation.BS), modes: normalAndVisual},
			exec: func(s *State, p cursor.Position) Movement {
				if p.Col == 0 {
					return moveTo(s.doc.leftThroughLineBreaks(p, false))
				}
				return moveTo(s.doc.left(p))
			},
		},
		&Motion{
			actionBase: actionBase{name: "motion.space", keys: keys(notation.Space), modes: normalAndVisual},
			exec: func(s *State, p cursor.Position) Movement {
				if p.Col+1 >= s.doc.lineLen(p.Line) && p.Line < s.doc.lastLine() && !s.operatorPending() {
					return moveTo(cursor.At(p.Line+1, 0))
				}
				return moveTo(s.doc.right(p))
			},
		},
		verticalMotion("motion.down", alt(seq("j"), seq(notation.Down)), 1),
		verticalMotion("motion.up", alt(seq("k"), seq(notation.Up)), -1),

		wordMotion("motion.word_forward", "w", false),
		wordMotion("motion.bigword_forward", "W", true),
		&Motion{
			actionBase: actionBase{name: "motion.word_backward", keys: keys("b"), modes: normalAndVisual},
			exec: func(s *State, p cursor.Position) Movement {
				return moveTo(s.doc.prevWordStart(p, false))
			},
		},
		&Motion{
			actionBase: actionBase{name: "motion.bigword_backward", keys: keys("B"), modes: normalAndVisual},
			exec: func(s *State, p cursor.Position) Movement {
				return moveTo(s.doc.prevWordStart(p, true))
			},
		},
		wordEndMotion("motion.word_end", "e", false),
		wordEndMotion("motion.bigword_end", "E", true),
		&Motion{
			actionBase: actionBase{name: "motion.word_end_backward", keys: keys("g", "e"), modes: normalAndVisual},
			exec: func(s *State, p cursor.Position) Movement {
				return moveTo(s.doc.prevWordEnd(p, false))
			},
		},
		&Motion{
			actionBase: actionBase{name: "motion.bigword_end_backward", keys: keys("g", "E"), modes: normalAndVisual},
			exec: func(s *State, p cursor.Position) Movement {
				return moveTo(s.doc.prevWordEnd(p, true))
			},
		},

		&Motion{
			actionBase: actionBase{
				name: motionLineBeginZero, keys: keys("0"), modes: normalAndVisual,
				when: func(s *State, _ []string) bool { return s.recorded.count == 0 },
			},
			exec: func(s *State, p cursor.Position) Movement {
				return moveTo(s.doc.lineBegin(p.Line))
			},
		},
		&Motion{
			actionBase: actionBase{name: "motion.home", keys: keys("<home>"), modes: normalAndVisual},
			exec: func(s *State, p cursor.Position) Movement {
				return moveTo(s.doc.lineBegin(p.Line))
			},
		},
		&Motion{
			actionBase: actionBase{name: "motion.first_non_blank", keys: keys("^"), modes: normalAndVisual},
			exec: func(s *State, p cursor.Position) Movement {
				return moveTo(s.doc.firstNonBlank(p.Line))
			},
		},
		&Motion{
			actionBase:         actionBase{name: "motion.line_end", keys: alt(seq("$"), seq("<end>")), modes: normalAndVisual},
			desiredColumnToEOL: true,
			execCount: func(s *State, p cursor.Position, count int) Movement {
				line := min(p.Line+max(count, 1)-1, s.doc.lastLine())
				if s.operatorPending() {
					return moveTo(s.doc.lineEnd(line))
				}
				if s.mode.IsVisual() {
					return moveTo(s.doc.lastCharOf(line))
				}
				return moveTo(s.doc.lastCharOf(line))
			},
		},
		&Motion{
			actionBase: actionBase{name: "motion.column", keys: keys("|"), modes: normalAndVisual},
			execCount: func(s *State, p cursor.Position, count int) Movement {
				text := s.doc.line(p.Line)
				col := grapheme.IndexAtWidth(text, max(count, 1)-1)
				return moveTo(cursor.At(p.Line, col))
			},
		},
		&Motion{
			actionBase: actionBase{name: "motion.file_begin", keys: keys("g", "g"), modes: normalAndVisual},
			execCount: func(s *State, p cursor.Position, count int) Movement {
				line := 0
				if count > 0 {
					line = min(count-1, s.doc.lastLine())
				}
				if s.operatorPending() {
					return lineWiseRange(s.doc.lineBegin(p.Line), s.doc.lineEnd(line))
				}
				return moveTo(s.doc.firstNonBlank(line))
			},
		},
		&Motion{
			actionBase: actionBase{name: "motion.file_end", keys: keys("G"), modes: normalAndVisual},
			execCount: func(s *State, p cursor.Position, count int) Movement {
				line := s.doc.lastLine()
				if count > 0 {
					line = min(count-1, line)
				}
				if s.operatorPending() {
					return lineWiseRange(s.doc.lineBegin(p.Line), s.doc.lineEnd(line))
				}
				return moveTo(s.doc.firstNonBlank(line))
			},
		},
		&Motion{
			actionBase: actionBase{name: "motion.paragraph_forward", keys: keys("}"), modes: normalAndVisual},
			exec: func(s *State, p cursor.Position) Movement {
				return moveTo(s.doc.nextParagraph(p))
			},
		},
		&Motion{
			actionBase: actionBase{name: "motion.paragraph_backward", keys: keys("{"), modes: normalAndVisual},
			exec: func(s *State, p cursor.Position) Movement {
				return moveTo(s.doc.prevParagraph(p))
			},
		},

		charSearchMotion(motionFindForward, "f"),
		charSearchMotion(motionFindBackward, "F"),
		charSearchMotion(motionTillForward, "t"),
		charSearchMotion(motionTillBackward, "T"),
		repeatCharSearchMotion("motion.repeat_char_search", ";", false),
		repeatCharSearchMotion("motion.repeat_char_search_reverse", ",", true),

		&Motion{
			actionBase: actionBase{name: motionMatchBracket, keys: keys("%"), modes: normalAndVisual},
			execCount:  matchBracketOrPercent,
		},
		unmatchedBracketMotion("motion.unmatched_paren_backward", "[", "(", ")", false),
		unmatchedBracketMotion("motion.unmatched_paren_forward", "]", "(", ")", true),
		unmatchedBracketMotion("motion.unmatched_brace_backward", "[", "{", "}", false),
		unmatchedBracketMotion("motion.unmatched_brace_forward", "]", "{", "}", true),
	)
	registerTextObjects(r)
	registerSearchMotions(r)
}

func verticalMotion(name string, k [][]string, dir int) *Motion {
	return &Motion{
		actionBase:         actionBase{name: name, keys: k, modes: normalAndVisual},
		keepsDesiredColumn: true,
		execCount: func(s *State, p cursor.Position, count int) Movement {
			count = max(1, min(count, s.maxCount()))
			if (dir > 0 && p.Line >= s.doc.lastLine()) || (dir < 0 && p.Line == 0) {
				return failedAt(p)
			}
			line := max(0, min(p.Line+dir*count, s.doc.lastLine()))
			if s.operatorPending() {
				return lineWiseRange(s.doc.lineBegin(p.Line), s.doc.lineEnd(line))
			}
			limit := s.doc.lineLen(line)
			if s.mode == ModeNormal || s.mode.IsVisual() {
				limit = max(0, limit-1)
			}
			return moveTo(cursor.At(line, min(s.desiredColumn, limit)))
		},
	}
}

func wordMotion(name, key string, big bool) *Motion {
	return &Motion{
		actionBase: actionBase{name: name, keys: keys(key), modes: normalAndVisual},
		exec: func(s *State, p cursor.Position) Movement {
			return moveTo(s.doc.nextWordStart(p, big))
		},
		execOp: func(s *State, p cursor.Position) Movement {
			if op := s.recorded.Operator(); op != nil && op.Name() == operatorChange && !s.doc.isBlankAt(p) {
				return moveTo(s.doc.right(s.doc.currentWordEnd(p, big)))
			}
			q := s.doc.nextWordStart(p, big)
			if q.Line > p.Line {
				return moveTo(s.doc.lineEnd(p.Line))
			}
			return moveTo(q)
		},
	}
}

func wordEndMotion(name, key string, big bool) *Motion {
	return &Motion{
		actionBase: actionBase{name: name, keys: keys(key), modes: normalAndVisual},
		exec: func(s *State, p cursor.Position) Movement {
			return moveTo(s.doc.wordEnd(p, big))
		},
		execOp: func(s *State, p cursor.Position) Movement {
			return inclusiveUnderOperator(s, moveTo(s.doc.wordEnd(p, big)))
		},
	}
}

// charSearchMotion is f, F, t or T followed by the character to find.
func charSearchMotion(name, key string) *Motion {
	return &Motion{
		actionBase: actionBase{name: name, keys: keys(key, keyCharacter), modes: normalAndVisual},
		execCount: func(s *State, p cursor.Position, count int) Movement {
			return findChar(s, p, key, notation.Text(s.typed(1)), count)
		},
		semicolon: func(s *State, m Movement) bool {
			return !(m.Failed && s.operatorPending())
		},
	}
}

func findChar(s *State, p cursor.Position, kind, char string, count int) Movement {
	count = max(1, min(count, s.maxCount()))
	forward := kind == "f" || kind == "t"
	q, ok := s.doc.findInLine(p, char, count, forward)
	if !ok {
		return failedAt(p)
	}
	switch kind {
	case "t":
		q.Col--
	case "T":
		q.Col++
	}
	if forward && s.operatorPending() {
		return inclusiveUnderOperator(s, moveTo(q))
	}
	return moveTo(q)
}

var reversedCharSearch = map[string]string{"f": "F", "F": "f", "t": "T", "T": "t"}

// repeatCharSearchMotion is ; and , over the last f/F/t/T.
func repeatCharSearchMotion(name, key string, reverse bool) *Motion {
	return &Motion{
		actionBase: actionBase{name: name, keys: keys(key), modes: normalAndVisual},
		execCount: func(s *State, p cursor.Position, count int) Movement {
			last := s.global.lastCharSearch()
			if last == nil || len(last.keysPressed) < 2 {
				return failedAt(p)
			}
			kind, char := last.keysPressed[0], notation.Text(last.keysPressed[1])
			if reverse {
				kind = reversedCharSearch[kind]
			}
			m := findChar(s, p, kind, char, count)
			if !m.Failed && m.Stop == p && count <= 1 && (kind == "t" || kind == "T") {
				m = findChar(s, p, kind, char, 2)
			}
			return m
		},
	}
}

// matchBracketOrPercent is %: with a count it jumps to that percentage of
// the buffer, otherwise to the bracket matching the next one on the line.
func matchBracketOrPercent(s *State, p cursor.Position, count int) Movement {
	if count > 0 {
		if count > 100 {
			return failedAt(p)
		}
		line := max(0, (count*s.doc.lineCount()+99)/100-1)
		if s.operatorPending() {
			return lineWiseRange(s.doc.lineBegin(p.Line), s.doc.lineEnd(line))
		}
		return moveTo(s.doc.firstNonBlank(line))
	}

	target, ok := s.doc.bracketMotionTarget(p)
	if !ok {
		return failedAt(p)
	}
	match, ok := s.doc.matchingBracket(target)
	if !ok {
		return failedAt(p)
	}
	if s.operatorPending() {
		return rangeMovement(cursor.Earlier(p, match), s.doc.right(cursor.Later(target, match)))
	}
	return moveTo(match)
}

func unmatchedBracketMotion(name, prefix, open, closer string, forward bool) *Motion {
	key := open
	if forward {
		key = closer
	}
	return &Motion{
		actionBase: actionBase{name: name, keys: keys(prefix, key), modes: normalAndVisual},
		exec: func(s *State, p cursor.Position) Movement {
			q, ok := s.doc.enclosingBracket(p, open, closer, forward)
			if !ok {
				return failedAt(p)
			}
			if forward && s.operatorPending() {
				return inclusiveUnderOperator(s, moveTo(q))
			}
			return moveTo(q)
		},
	}
}
