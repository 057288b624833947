package vim

import (
	"slices"

	"github.com/zjrosen/modal/internal/cursor"
)

// Action is anything a key sequence can resolve to: a motion, an operator,
// a command, or a recorded content change.
//
// Registered actions are prototypes. Matching returns a fresh instance whose
// KeysPressed holds the keys that selected it, so per-dispatch state never
// leaks between uses.
type Action interface {
	Name() string
	Keys() [][]string
	Modes() []Mode
	KeysPressed() []string
	CanBeRepeatedWithDot() bool

	base() *actionBase
	instantiate(keysPressed []string) Action
}

type actionBase struct {
	name string
	// keys holds the alternative key sequences. Each alternative may use the
	// wildcards <any>, <number>, <character> and <leader>.
	keys           [][]string
	modes          []Mode
	mustBeFirstKey bool
	repeatable     bool
	// when narrows applicability beyond mode and keys.
	when func(s *State, keys []string) bool

	keysPressed []string
}

func (a *actionBase) Name() string               { return a.name }
func (a *actionBase) Keys() [][]string           { return a.keys }
func (a *actionBase) Modes() []Mode              { return a.modes }
func (a *actionBase) KeysPressed() []string      { return a.keysPressed }
func (a *actionBase) CanBeRepeatedWithDot() bool { return a.repeatable }
func (a *actionBase) base() *actionBase          { return a }

func (a *actionBase) appliesInMode(m Mode) bool {
	return slices.Contains(a.modes, m)
}

// keys builds a single-alternative key list.
func keys(k ...string) [][]string {
	return [][]string{k}
}

// alt builds a key list from several alternatives.
func alt(seqs ...[]string) [][]string {
	return seqs
}

func seq(k ...string) []string {
	return k
}

// ============================================================================
// Motions
// ============================================================================

// Movement is the result of a motion: either a plain destination (Stop) or,
// when IsRange, an explicit range with an optional register mode.
type Movement struct {
	Start        cursor.Position
	Stop         cursor.Position
	Failed       bool
	RegisterMode RegisterMode
	isRange      bool
}

func moveTo(p cursor.Position) Movement {
	return Movement{Start: p, Stop: p}
}

func rangeMovement(start, stop cursor.Position) Movement {
	return Movement{Start: start, Stop: stop, isRange: true}
}

func failedAt(p cursor.Position) Movement {
	return Movement{Start: p, Stop: p, Failed: true, isRange: true}
}

// IsRange reports whether the motion produced an explicit range.
func (m Movement) IsRange() bool {
	return m.isRange
}

// Motion moves the cursor. Under a pending operator the motion defines the
// range the operator acts on.
type Motion struct {
	actionBase

	exec func(s *State, p cursor.Position) Movement
	// execOp replaces exec on the last iteration when an operator is pending.
	execOp func(s *State, p cursor.Position) Movement
	// execCount replaces count iteration entirely.
	execCount func(s *State, p cursor.Position, count int) Movement

	keepsDesiredColumn bool
	desiredColumnToEOL bool
	// semicolon reports whether the result should be remembered for ; and ,.
	semicolon func(s *State, m Movement) bool
}

func (m *Motion) instantiate(kp []string) Action {
	c := *m
	c.keysPressed = slices.Clone(kp)
	return &c
}

func (m *Motion) execForOperator(s *State, p cursor.Position) Movement {
	if m.execOp != nil {
		return m.execOp(s, p)
	}
	return m.exec(s, p)
}

// execWithCount runs the motion count times, feeding each result into the
// next iteration. Range results combine the first start with the last stop.
func (m *Motion) execWithCount(s *State, p cursor.Position, count int) Movement {
	if m.execCount != nil {
		return m.execCount(s, p, count)
	}
	count = max(1, min(count, s.maxCount()))

	var result Movement
	for i := 0; i < count; i++ {
		last := i == count-1
		var step Movement
		if last && s.recorded.Operator() != nil {
			step = m.execForOperator(s, p)
		} else {
			step = m.exec(s, p)
		}

		if !step.isRange {
			result = step
			p = step.Stop
			continue
		}

		if i == 0 {
			result = step
		} else {
			result.Stop = step.Stop
			result.Failed = result.Failed || step.Failed
			if step.RegisterMode != RegisterFigureItOut {
				result.RegisterMode = step.RegisterMode
			}
		}
		p = s.doc.rightThroughLineBreaks(step.Stop)
	}
	return result
}

// ============================================================================
// Operators
// ============================================================================

// Operator acts on the range produced by a motion or a visual selection.
type Operator struct {
	actionBase

	run func(s *State, start, stop cursor.Position) error
	// runBlock handles a visual block selection in one go. Nil means run is
	// applied to each line of the block.
	runBlock func(s *State, lines []cursor.Range) error
	// runRepeat handles the doubled form (dd, yy, >>). Nil means line-wise
	// run over count lines.
	runRepeat func(s *State, p cursor.Position, count int) error
}

func (o *Operator) instantiate(kp []string) Action {
	c := *o
	c.keysPressed = slices.Clone(kp)
	return &c
}

func (o *Operator) repeat(s *State, p cursor.Position, count int) error {
	if o.runRepeat != nil {
		return o.runRepeat(s, p, count)
	}
	s.currentRegisterMode = RegisterLineWise
	stop := s.doc.lineEnd(min(p.Line+max(0, count-1), s.doc.lastLine()))
	return o.run(s, s.doc.lineBegin(p.Line), stop)
}

// ============================================================================
// Commands
// ============================================================================

// Command runs once per cursor (exec) or once overall (execAll).
type Command struct {
	actionBase

	// exec runs with s.cur holding the cursor being processed; it leaves the
	// resulting cursor in s.cur.
	exec    func(s *State, p cursor.Position) error
	execAll func(s *State) error

	// perCount repeats exec once per unit of count.
	perCount bool
	// incomplete commands (count digits, register selection) keep the
	// recorded state alive for the keys that follow.
	incomplete bool
	// typing marks insert-mode edits that are recorded as content changes
	// rather than as the keys that produced them.
	typing bool
}

func (c *Command) instantiate(kp []string) Action {
	cp := *c
	cp.keysPressed = slices.Clone(kp)
	return &cp
}

func (c *Command) isCompleteAction() bool {
	return !c.incomplete
}

// ============================================================================
// Content changes
// ============================================================================

// ContentChange is one net edit typed in insert mode: DeleteLeft graphemes
// removed before the cursor and DeleteRight after it, then Text inserted.
type ContentChange struct {
	Text        string
	DeleteLeft  int
	DeleteRight int
}

// ContentChangeAction replays a run of insert-mode typing as its net effect.
// It is synthesised by the dispatcher, never matched from keys.
type ContentChangeAction struct {
	actionBase
	changes []ContentChange
}

func newContentChangeAction() *ContentChangeAction {
	return &ContentChangeAction{actionBase: actionBase{
		name:       "insert.content_change",
		modes:      []Mode{ModeInsert},
		repeatable: true,
	}}
}

func (c *ContentChangeAction) instantiate(kp []string) Action {
	cp := *c
	cp.keysPressed = slices.Clone(kp)
	cp.changes = slices.Clone(c.changes)
	return &cp
}

// Changes returns the recorded net edits.
func (c *ContentChangeAction) Changes() []ContentChange {
	return slices.Clone(c.changes)
}
