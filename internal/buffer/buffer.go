// Package buffer defines the host editor surface the engine drives and an
// in-memory implementation of it.
package buffer

import (
	"context"
	"errors"
	"strings"

	"github.com/zjrosen/modal/internal/cursor"
)

// ErrOverlappingEdits is returned by Apply when two edits of one batch overlap.
var ErrOverlappingEdits = errors.New("overlapping edits in one batch")

// Reader exposes read access to the host's lines.
type Reader interface {
	LineCount() int
	LineAt(line int) string
}

// EditKind tags an Edit.
type EditKind int

const (
	// EditInsert inserts Text at Range.Start.
	EditInsert EditKind = iota
	// EditReplace replaces Range with Text.
	EditReplace
	// EditDelete removes Range.
	EditDelete
)

// Edit is one primitive text change. Ranges are half-open.
type Edit struct {
	Kind  EditKind
	Range cursor.Range
	Text  string
}

// Insert returns an edit inserting text at p.
func Insert(p cursor.Position, text string) Edit {
	return Edit{Kind: EditInsert, Range: cursor.Collapsed(p), Text: text}
}

// Replace returns an edit replacing r with text.
func Replace(r cursor.Range, text string) Edit {
	return Edit{Kind: EditReplace, Range: r.Sorted(), Text: text}
}

// Delete returns an edit removing r.
func Delete(r cursor.Range) Edit {
	return Edit{Kind: EditDelete, Range: r.Sorted()}
}

// Span returns the half-open range the edit covers in the pre-edit text.
func (e Edit) Span() cursor.Range {
	if e.Kind == EditInsert {
		return cursor.Collapsed(e.Range.Start)
	}
	return e.Range.Sorted()
}

// Host is the editor surface the engine drives. Apply must be atomic: either
// every edit lands or none does. Selections are mapped through applied edits;
// a selection end sitting exactly at an insertion point stays before the
// inserted text.
type Host interface {
	Reader
	Apply(ctx context.Context, edits []Edit) error
	Selections() []cursor.Range
	SetSelections(sel []cursor.Range)
	FinishUndoStep()
	Undo(ctx context.Context) (bool, error)
	Redo(ctx context.Context) (bool, error)
	Reveal(p cursor.Position)
}

// CommandLineOpener is implemented by hosts that can prompt for an ex command.
type CommandLineOpener interface {
	OpenCommandLine(ctx context.Context, initial string) error
}

// CommandRunner is implemented by hosts that can execute named editor commands
// bound through key remappings.
type CommandRunner interface {
	RunCommand(ctx context.Context, name string, args ...string) error
}

// SelectionSettler is implemented by hosts that apply selection changes
// asynchronously. The engine polls SelectionsSettled after SetSelections.
type SelectionSettler interface {
	SelectionsSettled() bool
}

// Lines returns every line of r.
func Lines(r Reader) []string {
	out := make([]string, r.LineCount())
	for i := range out {
		out[i] = r.LineAt(i)
	}
	return out
}

// Text returns the full text of r joined with "\n".
func Text(r Reader) string {
	return strings.Join(Lines(r), "\n")
}
