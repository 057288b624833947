package vim

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/zjrosen/modal/internal/buffer"
	"github.com/zjrosen/modal/internal/cursor"
	"github.com/zjrosen/modal/internal/grapheme"
	"github.com/zjrosen/modal/internal/log"
)

// maxSnapshots bounds the per-step snapshot stack used to take back
// provisionally typed keys.
const maxSnapshots = 256

type historySnapshot struct {
	text       string
	selections []cursor.Range
	edits      int
}

type contentMark struct {
	text   string
	offset int
}

// HistoryTracker groups edits into undo steps and derives content changes
// (the net effect of insert-mode typing) by diffing buffer snapshots.
type HistoryTracker struct {
	s         *State
	dmp       *diffmatchpatch.DiffMatchPatch
	snapshots []historySnapshot
	mark      *contentMark
}

func newHistoryTracker(s *State) *HistoryTracker {
	return &HistoryTracker{s: s, dmp: diffmatchpatch.New()}
}

// BeforeEdit snapshots the buffer ahead of a batch of edits text edits.
func (h *HistoryTracker) BeforeEdit(edits int) {
	h.snapshots = append(h.snapshots, historySnapshot{
		text:       buffer.Text(h.s.host),
		selections: h.s.host.Selections(),
		edits:      edits,
	})
	if n := len(h.snapshots); n > maxSnapshots {
		h.snapshots = slices.Clone(h.snapshots[n-maxSnapshots:])
	}
}

// FinishCurrentStep closes the host undo step.
func (h *HistoryTracker) FinishCurrentStep() {
	h.s.host.FinishUndoStep()
	h.snapshots = nil
	log.Debug(log.CatHistory, "undo step finished")
}

// UndoAndRemoveChanges reverts the last n text edits of the current step,
// restoring the text and selections from before them.
func (h *HistoryTracker) UndoAndRemoveChanges(ctx context.Context, n int) error {
	if n <= 0 || len(h.snapshots) == 0 {
		return nil
	}
	i := len(h.snapshots)
	for removed := 0; removed < n && i > 0; {
		i--
		removed += h.snapshots[i].edits
	}
	target := h.snapshots[i]
	h.snapshots = h.snapshots[:i]

	current := buffer.Text(h.s.host)
	edits := h.editsBetween(current, target.text)
	if len(edits) > 0 {
		if err := h.s.host.Apply(ctx, edits); err != nil {
			return fmt.Errorf("undo %d changes: %w", n, err)
		}
	}
	h.s.host.SetSelections(target.selections)
	h.s.cursors = cursor.Unique(target.selections)
	log.Debug(log.CatHistory, "removed changes", "count", n, "edits", len(edits))
	return nil
}

// editsBetween turns the diff from current to target into host edits
// against current. A deletion followed by an insertion becomes a replace.
func (h *HistoryTracker) editsBetween(current, target string) []buffer.Edit {
	lines := strings.Split(current, "\n")
	diffs := h.dmp.DiffMain(current, target, false)

	var edits []buffer.Edit
	off := 0
	for i := 0; i < len(diffs); i++ {
		d := diffs[i]
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			off += len(d.Text)
		case diffmatchpatch.DiffDelete:
			r := cursor.NewRange(positionIn(lines, off), positionIn(lines, off+len(d.Text)))
			off += len(d.Text)
			if i+1 < len(diffs) && diffs[i+1].Type == diffmatchpatch.DiffInsert {
				edits = append(edits, buffer.Replace(r, diffs[i+1].Text))
				i++
				continue
			}
			edits = append(edits, buffer.Delete(r))
		case diffmatchpatch.DiffInsert:
			edits = append(edits, buffer.Insert(positionIn(lines, off), d.Text))
		}
	}
	return edits
}

// MarkContent remembers the buffer so a later capture can compute what
// insert-mode typing changed.
func (h *HistoryTracker) MarkContent() {
	lines := buffer.Lines(h.s.host)
	first := h.s.cursors[0].Stop
	for _, c := range h.s.cursors[1:] {
		first = cursor.Earlier(first, c.Stop)
	}
	h.mark = &contentMark{text: strings.Join(lines, "\n"), offset: offsetIn(lines, first)}
}

// CaptureContentChanges returns the net edit made around the first cursor
// since MarkContent, and clears the mark.
func (h *HistoryTracker) CaptureContentChanges() []ContentChange {
	mark := h.mark
	h.mark = nil
	if mark == nil {
		return nil
	}
	diffs := h.dmp.DiffMain(mark.text, buffer.Text(h.s.host), false)

	off := 0
	i := 0
	for i < len(diffs) && diffs[i].Type == diffmatchpatch.DiffEqual {
		off += len(diffs[i].Text)
		i++
	}
	if i == len(diffs) {
		return nil
	}

	var deleted, inserted strings.Builder
	for ; i < len(diffs) && diffs[i].Type != diffmatchpatch.DiffEqual; i++ {
		if diffs[i].Type == diffmatchpatch.DiffDelete {
			deleted.WriteString(diffs[i].Text)
		} else {
			inserted.WriteString(diffs[i].Text)
		}
	}

	del := deleted.String()
	before := 0
	if mark.offset > off {
		before = min(mark.offset-off, len(del))
	}
	return []ContentChange{{
		Text:        inserted.String(),
		DeleteLeft:  grapheme.Count(del[:before]),
		DeleteRight: grapheme.Count(del[before:]),
	}}
}

// InsertedText returns the text typed by the content changes of the
// current command, the value of the "." register.
func (h *HistoryTracker) InsertedText() string {
	var b strings.Builder
	for _, a := range h.s.recorded.actionsRun {
		if cc, ok := a.(*ContentChangeAction); ok {
			for _, c := range cc.changes {
				b.WriteString(c.Text)
			}
		}
	}
	return b.String()
}

func offsetIn(lines []string, p cursor.Position) int {
	off := 0
	for i := 0; i < p.Line && i < len(lines); i++ {
		off += len(lines[i]) + 1
	}
	if p.Line < len(lines) {
		off += grapheme.ToByteOffset(lines[p.Line], p.Col)
	}
	return off
}

func positionIn(lines []string, off int) cursor.Position {
	start := 0
	for i, line := range lines {
		if off <= start+len(line) {
			return cursor.At(i, grapheme.FromByteOffset(line, off-start))
		}
		start += len(line) + 1
	}
	last := len(lines) - 1
	return cursor.At(last, grapheme.Count(lines[last]))
}
