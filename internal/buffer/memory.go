package buffer

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/zjrosen/modal/internal/cursor"
	"github.com/zjrosen/modal/internal/grapheme"
)

// Memory is a Host backed by a slice of lines. It is what the headless replay
// command and the tests drive the engine against.
type Memory struct {
	mu         sync.RWMutex
	lines      []string
	selections []cursor.Range

	// base is the content at the last undo checkpoint.
	base []string
	undo [][]string
	redo [][]string

	revealed     cursor.Position
	commandLines []string
	commands     []string
}

var (
	_ Host              = (*Memory)(nil)
	_ CommandLineOpener = (*Memory)(nil)
	_ CommandRunner     = (*Memory)(nil)
)

// NewMemory returns a host holding text, split on "\n".
func NewMemory(text string) *Memory {
	return NewMemoryLines(strings.Split(text, "\n")...)
}

// NewMemoryLines returns a host holding the given lines.
func NewMemoryLines(lines ...string) *Memory {
	if len(lines) == 0 {
		lines = []string{""}
	}
	return &Memory{
		lines:      slices.Clone(lines),
		base:       slices.Clone(lines),
		selections: []cursor.Range{cursor.Collapsed(cursor.Position{})},
	}
}

func (m *Memory) LineCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.lines)
}

func (m *Memory) LineAt(line int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if line < 0 || line >= len(m.lines) {
		return ""
	}
	return m.lines[line]
}

// Lines returns a copy of the current lines.
func (m *Memory) Lines() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.lines)
}

// Text returns the buffer contents joined with "\n".
func (m *Memory) Text() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return strings.Join(m.lines, "\n")
}

// SetText replaces the whole buffer and resets undo history.
func (m *Memory) SetText(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = strings.Split(text, "\n")
	m.base = slices.Clone(m.lines)
	m.undo, m.redo = nil, nil
	m.selections = []cursor.Range{cursor.Collapsed(cursor.Position{})}
}

type span struct {
	start, end int
	text       string
}

// Apply performs every edit against the pre-edit text in one step.
func (m *Memory) Apply(ctx context.Context, edits []Edit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(edits) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	doc := strings.Join(m.lines, "\n")
	spans := make([]span, len(edits))
	for i, e := range edits {
		r := e.Span()
		spans[i] = span{start: m.offset(r.Start), end: m.offset(r.Stop), text: e.Text}
		if e.Kind == EditDelete {
			spans[i].text = ""
		}
	}
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end < spans[j].end
	})
	for i := 1; i < len(spans); i++ {
		prev, cur := spans[i-1], spans[i]
		if cur.start < prev.end || (cur.start == prev.start && cur.start == cur.end && prev.start == prev.end) {
			return ErrOverlappingEdits
		}
	}

	var b strings.Builder
	last := 0
	for _, sp := range spans {
		b.WriteString(doc[last:sp.start])
		b.WriteString(sp.text)
		last = sp.end
	}
	b.WriteString(doc[last:])

	offsets := make([][2]int, len(m.selections))
	for i, sel := range m.selections {
		offsets[i] = [2]int{mapOffset(spans, m.offset(sel.Start)), mapOffset(spans, m.offset(sel.Stop))}
	}

	m.lines = strings.Split(b.String(), "\n")
	for i, o := range offsets {
		m.selections[i] = cursor.NewRange(m.positionAt(o[0]), m.positionAt(o[1]))
	}
	return nil
}

// mapOffset carries a pre-edit byte offset through sorted, non-overlapping spans.
func mapOffset(spans []span, off int) int {
	shift := 0
	for _, sp := range spans {
		if off <= sp.start {
			break
		}
		if off >= sp.end {
			shift += len(sp.text) - (sp.end - sp.start)
			continue
		}
		return sp.start + shift
	}
	return off + shift
}

// offset converts p into a byte offset of the joined text, clamping to bounds.
func (m *Memory) offset(p cursor.Position) int {
	if p.Line < 0 {
		return 0
	}
	off := 0
	for i := 0; i < p.Line && i < len(m.lines); i++ {
		off += len(m.lines[i]) + 1
	}
	if p.Line >= len(m.lines) {
		return off - 1
	}
	return off + grapheme.ToByteOffset(m.lines[p.Line], p.Col)
}

func (m *Memory) positionAt(off int) cursor.Position {
	start := 0
	for i, line := range m.lines {
		if off <= start+len(line) {
			return cursor.At(i, grapheme.FromByteOffset(line, off-start))
		}
		start += len(line) + 1
	}
	last := len(m.lines) - 1
	return cursor.At(last, grapheme.Count(m.lines[last]))
}

func (m *Memory) Selections() []cursor.Range {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.selections)
}

func (m *Memory) SetSelections(sel []cursor.Range) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selections = slices.Clone(sel)
}

func (m *Memory) FinishUndoStep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkpoint()
}

func (m *Memory) checkpoint() {
	if slices.Equal(m.lines, m.base) {
		return
	}
	m.undo = append(m.undo, m.base)
	m.base = slices.Clone(m.lines)
	m.redo = nil
}

func (m *Memory) Undo(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.checkpoint()
	if len(m.undo) == 0 {
		return false, nil
	}
	prev := m.undo[len(m.undo)-1]
	m.undo = m.undo[:len(m.undo)-1]
	m.redo = append(m.redo, slices.Clone(m.lines))
	m.restore(prev)
	return true, nil
}

func (m *Memory) Redo(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.redo) == 0 {
		return false, nil
	}
	next := m.redo[len(m.redo)-1]
	m.redo = m.redo[:len(m.redo)-1]
	m.undo = append(m.undo, slices.Clone(m.lines))
	m.restore(next)
	return true, nil
}

// restore swaps in lines and parks the cursor where the content first differs.
func (m *Memory) restore(lines []string) {
	old := strings.Join(m.lines, "\n")
	m.lines = slices.Clone(lines)
	m.base = slices.Clone(lines)
	cur := strings.Join(m.lines, "\n")

	n := 0
	for n < len(old) && n < len(cur) && old[n] == cur[n] {
		n++
	}
	m.selections = []cursor.Range{cursor.Collapsed(m.positionAt(n))}
}

// UndoDepth returns the number of undo steps available.
func (m *Memory) UndoDepth() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := len(m.undo)
	if !slices.Equal(m.lines, m.base) {
		n++
	}
	return n
}

func (m *Memory) Reveal(p cursor.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revealed = p
}

// Revealed returns the position last passed to Reveal.
func (m *Memory) Revealed() cursor.Position {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.revealed
}

func (m *Memory) OpenCommandLine(_ context.Context, initial string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commandLines = append(m.commandLines, initial)
	return nil
}

// CommandLines returns the initial text of every command line opened so far.
func (m *Memory) CommandLines() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.commandLines)
}

func (m *Memory) RunCommand(_ context.Context, name string, args ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, strings.TrimSpace(name+" "+strings.Join(args, " ")))
	return nil
}

// Commands returns every host command run so far.
func (m *Memory) Commands() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.commands)
}
