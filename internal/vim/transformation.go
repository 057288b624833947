package vim

import (
	"github.com/zjrosen/modal/internal/cursor"
)

// TransformationKind tags a Transformation.
type TransformationKind int

const (
	InsertText TransformationKind = iota
	ReplaceText
	// DeleteText is a backspace: it removes the character left of Position.
	DeleteText
	DeleteRange
	MoveCursorBy
	InvokeMacro
	InvokeDotRepeat
	InvokeCommandLine
	// contentChange replays one recorded insert-mode edit at every cursor.
	contentChange
)

func (k TransformationKind) String() string {
	switch k {
	case InsertText:
		return "insertText"
	case ReplaceText:
		return "replaceText"
	case DeleteText:
		return "deleteText"
	case DeleteRange:
		return "deleteRange"
	case MoveCursorBy:
		return "moveCursorBy"
	case InvokeMacro:
		return "invokeMacro"
	case InvokeDotRepeat:
		return "invokeDotRepeat"
	case InvokeCommandLine:
		return "invokeCommandLine"
	case contentChange:
		return "contentChange"
	default:
		return "unknown"
	}
}

// Transformation is one queued effect of a dispatch cycle. Text variants
// carry the index of the cursor they belong to.
type Transformation struct {
	Kind TransformationKind

	Text     string
	Position cursor.Position
	Range    cursor.Range

	// Diff moves the owning cursor after the edit, relative to where the
	// host leaves it.
	Diff *cursor.Diff
	// CursorIndex is -1 until the operator executor fills it in.
	CursorIndex int
	// CollapseRange parks the cursor at the range's start column on its
	// stop line after a deletion.
	CollapseRange bool
	// ManuallySetCursorPositions means the action already decided where
	// the cursors go.
	ManuallySetCursorPositions bool

	Register      string
	Replay        ReplayKind
	Change        ContentChange
	InitialPrompt string
}

// ReplayKind says how a macro register is replayed.
type ReplayKind int

const (
	ReplayContentChange ReplayKind = iota
	ReplayKeystrokes
)

func (t Transformation) isTextTransformation() bool {
	switch t.Kind {
	case InsertText, ReplaceText, DeleteText, DeleteRange, MoveCursorBy:
		return true
	}
	return false
}

func insertTextAt(p cursor.Position, text string, diff *cursor.Diff) Transformation {
	return Transformation{Kind: InsertText, Position: p, Text: text, Diff: diff, CursorIndex: -1}
}

func replaceTextIn(r cursor.Range, text string, diff *cursor.Diff) Transformation {
	return Transformation{Kind: ReplaceText, Range: r, Text: text, Diff: diff, CursorIndex: -1}
}

func deleteRangeOf(r cursor.Range, diff *cursor.Diff) Transformation {
	return Transformation{Kind: DeleteRange, Range: r, Diff: diff, CursorIndex: -1}
}

func backspaceAt(p cursor.Position) Transformation {
	return Transformation{Kind: DeleteText, Position: p, CursorIndex: -1}
}

func moveCursorBy(d cursor.Diff) Transformation {
	return Transformation{Kind: MoveCursorBy, Diff: &d, CursorIndex: -1}
}

func diffOf(d cursor.Diff) *cursor.Diff {
	return &d
}

// diffAfterInsert is the delta from an insertion point to the end of text.
func diffAfterInsert(text string) cursor.Diff {
	lines := splitLines(text)
	if len(lines) == 1 {
		return cursor.Diff{Col: graphemeLen(text)}
	}
	return cursor.Diff{Line: len(lines) - 1, Col: graphemeLen(lines[len(lines)-1]), BOL: true}
}
