package vim

import (
	"context"
	"math"
	"slices"

	"github.com/zjrosen/modal/internal/buffer"
	"github.com/zjrosen/modal/internal/config"
	"github.com/zjrosen/modal/internal/cursor"
	"github.com/zjrosen/modal/internal/notation"
	"github.com/zjrosen/modal/internal/pubsub"
)

// desiredColumnEOL keeps vertical motions glued to the end of the line.
const desiredColumnEOL = math.MaxInt

// VisualSelection remembers the last visual selection for gv.
type VisualSelection struct {
	Mode  Mode
	Start cursor.Position
	Stop  cursor.Position
}

// State is the editing state of one session. Every field is owned by the
// session's task queue worker; nothing here is safe for concurrent use.
type State struct {
	ctx context.Context

	host     buffer.Host
	doc      *document
	global   *GlobalState
	registry *Registry
	cfg      *config.Config
	history  *HistoryTracker

	mode    Mode
	cursors []cursor.Range
	// cur and curIndex are the cursor an action is currently running for.
	cur      cursor.Range
	curIndex int
	// running is the action being executed.
	running Action
	// blockCursors are the cursors a visual block operator asks for.
	blockCursors []cursor.Range

	desiredColumn       int
	currentRegisterMode RegisterMode
	recorded            *RecordedState
	lastMovementFailed  bool
	keyHistory          []string

	isRecordingMacro    bool
	recordedMacro       *RecordedState
	macroRegister       string
	isReplayingMacro    bool
	isRunningDotCommand bool
	lastInvokedRegister string

	lastVisual VisualSelection
	// modeBeforeSearch is restored when a search commits or cancels.
	modeBeforeSearch Mode
	searchInput      *searchInput
	replace          *replaceState
	surround         *surroundState

	publish func(pubsub.EventType)
}

func newState(host buffer.Host, global *GlobalState, registry *Registry, cfg *config.Config) *State {
	s := &State{
		ctx:      context.Background(),
		host:     host,
		doc:      &document{r: host, keyword: cfg.IsKeyword},
		global:   global,
		registry: registry,
		cfg:      cfg,
		mode:     ModeNormal,
		cursors:  cursor.Unique(host.Selections()),
		recorded: NewRecordedState(),
		publish:  func(pubsub.EventType) {},
	}
	s.history = newHistoryTracker(s)
	if cfg.StartInInsertMode {
		s.mode = ModeInsert
	}
	s.cur = s.cursors[0]
	return s
}

func (s *State) leader() string {
	if s.cfg.Leader == "" {
		return notation.DefaultLeader
	}
	return s.cfg.Leader
}

func (s *State) maxCount() int {
	if s.cfg.MaxCount <= 0 {
		return 99999
	}
	return s.cfg.MaxCount
}

// Mode returns the current mode.
func (s *State) Mode() Mode {
	return s.mode
}

// Cursors returns a copy of the cursor set.
func (s *State) Cursors() []cursor.Range {
	return slices.Clone(s.cursors)
}

// Recorded returns the command being typed.
func (s *State) Recorded() *RecordedState {
	return s.recorded
}

// typed returns the i-th key that selected the running action.
func (s *State) typed(i int) string {
	if s.running == nil {
		return ""
	}
	kp := s.running.KeysPressed()
	if i < 0 || i >= len(kp) {
		return ""
	}
	return kp[i]
}

// count returns the typed count, at least 1.
func (s *State) count() int {
	return max(1, min(s.recorded.count, s.maxCount()))
}

func (s *State) resetRecorded() {
	s.recorded = NewRecordedState()
}

func (s *State) operatorPending() bool {
	return s.recorded.Operator() != nil && !s.recorded.hasRunOperator
}

// setCursorStop moves the cursor being processed, keeping the anchor in
// visual modes and collapsing it otherwise.
func (s *State) setCursorStop(p cursor.Position) {
	if s.mode.IsVisual() {
		s.cur = s.cur.WithStop(p)
		return
	}
	s.cur = cursor.Collapsed(p)
}

func (s *State) setAllCursors(p cursor.Position) {
	s.cursors = []cursor.Range{cursor.Collapsed(p)}
	s.cur = s.cursors[0]
	s.curIndex = 0
}

func (s *State) registerName() string {
	return s.recorded.registerName
}

// putRegister writes text for a yank or delete into the selected register,
// the unnamed register and, for yanks, register 0.
func (s *State) putRegister(text string, mode RegisterMode, yank bool) {
	name := s.registerName()
	regs := s.global.Registers()
	if name == RegisterBlackHole {
		return
	}
	reg := Register{Text: text, Mode: mode}
	if name != RegisterUnnamed {
		_ = regs.Put(name, reg)
		if r, ok := regs.Get(name).Get(); ok {
			reg = r
		}
	}
	_ = regs.Put(RegisterUnnamed, reg)
	if yank {
		_ = regs.Put(RegisterLastYank, reg)
	}
}

// effectiveRegisterMode resolves FigureItOut from the current mode.
func (s *State) effectiveRegisterMode() RegisterMode {
	switch {
	case s.currentRegisterMode != RegisterFigureItOut:
		return s.currentRegisterMode
	case s.mode == ModeVisualLine:
		return RegisterLineWise
	case s.mode == ModeVisualBlock:
		return RegisterBlockWise
	default:
		return RegisterCharacterWise
	}
}

func (s *State) pushTransformation(t Transformation) {
	if t.isTextTransformation() && t.CursorIndex < 0 {
		t.CursorIndex = s.curIndex
	}
	s.recorded.pushTransformation(t)
}
