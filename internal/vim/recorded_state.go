package vim

import (
	"slices"

	"github.com/zjrosen/modal/internal/cursor"
	"github.com/zjrosen/modal/internal/notation"
)

// RecordedState accumulates one compound command (such as "3d2w") while it
// is being typed. It is replaced with a fresh value whenever the command
// completes, fails or is abandoned.
type RecordedState struct {
	// commandList is every key typed for this command, count included.
	commandList []string
	// actionKeys are the keys typed since the last matched action.
	actionKeys []string
	actionsRun []Action

	hasRunOperator bool
	hasRunSurround bool
	surroundKeys   []string
	isInsertion    bool

	transformations []Transformation

	count         int
	operatorCount int
	registerName  string

	// operatorPositionDiff shifts every cursor after the operator's edits
	// land. Text objects that start after the cursor set it.
	operatorPositionDiff *cursor.Diff
}

// NewRecordedState returns an empty state targeting the unnamed register.
func NewRecordedState() *RecordedState {
	return &RecordedState{registerName: RegisterUnnamed}
}

// Clone returns a deep copy safe to replay later.
func (r *RecordedState) Clone() *RecordedState {
	c := *r
	c.commandList = slices.Clone(r.commandList)
	c.actionKeys = slices.Clone(r.actionKeys)
	c.surroundKeys = slices.Clone(r.surroundKeys)
	c.transformations = slices.Clone(r.transformations)
	c.actionsRun = make([]Action, len(r.actionsRun))
	for i, a := range r.actionsRun {
		c.actionsRun[i] = a.instantiate(a.KeysPressed())
	}
	if r.operatorPositionDiff != nil {
		d := *r.operatorPositionDiff
		c.operatorPositionDiff = &d
	}
	return &c
}

// Actions returns the actions run so far.
func (r *RecordedState) Actions() []Action {
	return slices.Clone(r.actionsRun)
}

// CommandString renders the keys typed so far.
func (r *RecordedState) CommandString() string {
	return notation.Join(r.commandList)
}

// Count returns the pending count, 0 when none was typed.
func (r *RecordedState) Count() int {
	return r.count
}

// RegisterName returns the register the command targets.
func (r *RecordedState) RegisterName() string {
	return r.registerName
}

// CurrentCommandWithoutCountPrefix drops the leading count digits and
// register selections, so "2\"a3p" reads as "p".
func (r *RecordedState) CurrentCommandWithoutCountPrefix() []string {
	i := 0
	for i < len(r.commandList) {
		switch {
		case isDigitKey(r.commandList[i]):
			i++
		case r.commandList[i] == `"` && i+1 < len(r.commandList):
			i += 2
		default:
			return slices.Clone(r.commandList[i:])
		}
	}
	return nil
}

// dropRemappedKeys forgets the last n typed keys, which a remap replaces
// with its own. When the remap consumed the count, the count digits go too;
// register selections stay so the replayed keys still target them.
func (r *RecordedState) dropRemappedKeys(n int, dropCount bool) {
	keys := r.commandList[:max(0, len(r.commandList)-n)]
	if !dropCount {
		r.commandList = keys
		return
	}
	out := make([]string, 0, len(keys))
	i := 0
	for i < len(keys) {
		switch {
		case isDigitKey(keys[i]):
			i++
			continue
		case keys[i] == `"` && i+1 < len(keys):
			out = append(out, keys[i], keys[i+1])
			i += 2
			continue
		}
		break
	}
	r.commandList = append(out, keys[i:]...)
}

func isDigitKey(k string) bool {
	return len(k) == 1 && k[0] >= '0' && k[0] <= '9'
}

// Operators returns every operator run in this command, oldest first.
func (r *RecordedState) Operators() []*Operator {
	var ops []*Operator
	for _, a := range r.actionsRun {
		if o, ok := a.(*Operator); ok {
			ops = append(ops, o)
		}
	}
	return ops
}

// Operator returns the most recent operator, or nil.
func (r *RecordedState) Operator() *Operator {
	for i := len(r.actionsRun) - 1; i >= 0; i-- {
		if o, ok := r.actionsRun[i].(*Operator); ok {
			return o
		}
	}
	return nil
}

// Command returns the most recent command, or nil.
func (r *RecordedState) Command() *Command {
	for i := len(r.actionsRun) - 1; i >= 0; i-- {
		if c, ok := r.actionsRun[i].(*Command); ok {
			return c
		}
	}
	return nil
}

// HasRunAMovement reports whether a motion ran in this command.
func (r *RecordedState) HasRunAMovement() bool {
	return slices.ContainsFunc(r.actionsRun, func(a Action) bool {
		_, ok := a.(*Motion)
		return ok
	})
}

// isOperatorDoubled reports whether the last two operators are the same one,
// as in dd or >>.
func (r *RecordedState) isOperatorDoubled() bool {
	ops := r.Operators()
	n := len(ops)
	return n >= 2 && ops[n-1].Name() == ops[n-2].Name()
}

// OperatorReadyToExecute reports whether the pending operator has its range.
func (r *RecordedState) OperatorReadyToExecute(mode Mode) bool {
	if r.Operator() == nil || r.hasRunOperator || mode == ModeSearchInProgress {
		return false
	}
	return r.HasRunAMovement() || mode.IsVisual() || r.isOperatorDoubled()
}

// MotionCount is the effective repeat count: a count typed before the
// operator multiplies the one typed before the motion.
func (r *RecordedState) MotionCount() int {
	if r.operatorCount > 0 {
		return r.operatorCount * max(r.count, 1)
	}
	return r.count
}

func (r *RecordedState) lastAction() Action {
	if len(r.actionsRun) == 0 {
		return nil
	}
	return r.actionsRun[len(r.actionsRun)-1]
}

func (r *RecordedState) pushTransformation(t Transformation) {
	r.transformations = append(r.transformations, t)
}
