package vim

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"unicode"

	"github.com/samber/mo"
)

// Register names with special behaviour.
const (
	RegisterUnnamed   = `"`
	RegisterLastYank  = "0"
	RegisterBlackHole = "_"
	RegisterInsertion = "."
)

var (
	// ErrRegisterEmpty is returned when reading a register that holds nothing.
	ErrRegisterEmpty = errors.New("register is empty")
	// ErrReadOnlyRegister is returned when writing to ".".
	ErrReadOnlyRegister = errors.New("register is read-only")
	// ErrInvalidRegister is returned for names outside the supported set.
	ErrInvalidRegister = errors.New("invalid register name")
)

// Register is the content of one named register. Macro is set for registers
// filled by q recording.
type Register struct {
	Text  string
	Mode  RegisterMode
	Macro *RecordedState
}

// Registers is the process-wide register file.
type Registers struct {
	mu   sync.RWMutex
	regs map[string]Register
}

// NewRegisters returns an empty register file.
func NewRegisters() *Registers {
	return &Registers{regs: make(map[string]Register)}
}

// IsValidRegister reports whether name can be selected with ".
func IsValidRegister(name string) bool {
	if len(name) != 1 {
		return false
	}
	r := rune(name[0])
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return name == RegisterUnnamed || name == RegisterBlackHole || name == RegisterInsertion
}

// Get returns the content of name. Uppercase names read their lowercase register.
func (r *Registers) Get(name string) mo.Option[Register] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.regs[strings.ToLower(name)]
	if !ok {
		return mo.None[Register]()
	}
	return mo.Some(reg)
}

// Put stores reg under name. Uppercase names append to their lowercase
// register; the black hole register discards.
func (r *Registers) Put(name string, reg Register) error {
	if !IsValidRegister(name) {
		return fmt.Errorf("%w: %q", ErrInvalidRegister, name)
	}
	if name == RegisterInsertion {
		return ErrReadOnlyRegister
	}
	if name == RegisterBlackHole {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if unicode.IsUpper(rune(name[0])) {
		lower := strings.ToLower(name)
		if prev, ok := r.regs[lower]; ok {
			reg = appendRegister(prev, reg)
		}
		name = lower
	}
	r.regs[name] = reg
	return nil
}

func appendRegister(prev, next Register) Register {
	out := Register{Text: prev.Text + next.Text, Mode: prev.Mode}
	if prev.Mode == RegisterLineWise || next.Mode == RegisterLineWise {
		out.Text = strings.TrimSuffix(prev.Text, "\n") + "\n" + next.Text
		out.Mode = RegisterLineWise
	}
	switch {
	case prev.Macro != nil && next.Macro != nil:
		m := prev.Macro.Clone()
		m.actionsRun = append(m.actionsRun, next.Macro.Clone().actionsRun...)
		out.Macro = m
	case next.Macro != nil:
		out.Macro = next.Macro
	default:
		out.Macro = prev.Macro
	}
	return out
}

// putInsertion fills the read-only "." register.
func (r *Registers) putInsertion(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.regs[RegisterInsertion] = Register{Text: text, Mode: RegisterCharacterWise}
}

// Names returns the sorted names currently holding content.
func (r *Registers) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.regs))
	for name := range r.regs {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}
