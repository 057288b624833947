package buffer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zjrosen/modal/internal/cursor"
)

var ctx = context.Background()

func rng(l1, c1, l2, c2 int) cursor.Range {
	return cursor.NewRange(cursor.At(l1, c1), cursor.At(l2, c2))
}

// ============================================================================
// Apply
// ============================================================================

func TestApply_Insert(t *testing.T) {
	m := NewMemory("hello\nworld")
	require.NoError(t, m.Apply(ctx, []Edit{Insert(cursor.At(0, 5), "!")}))
	assert.Equal(t, "hello!\nworld", m.Text())
}

func TestApply_DeleteAcrossLines(t *testing.T) {
	m := NewMemory("abc def\nghi")
	require.NoError(t, m.Apply(ctx, []Edit{Delete(rng(0, 0, 1, 0))}))
	assert.Equal(t, []string{"ghi"}, m.Lines())
}

func TestApply_MultipleEditsUsePreEditCoordinates(t *testing.T) {
	m := NewMemory("aaa\nbbb")
	edits := []Edit{
		Insert(cursor.At(1, 0), "X"),
		Insert(cursor.At(0, 0), "Y"),
		Replace(rng(0, 1, 0, 2), "Z"),
	}
	require.NoError(t, m.Apply(ctx, edits))
	assert.Equal(t, "YaZa\nXbbb", m.Text())
}

func TestApply_OverlapRejected(t *testing.T) {
	m := NewMemory("abcdef")
	err := m.Apply(ctx, []Edit{Delete(rng(0, 0, 0, 3)), Delete(rng(0, 2, 0, 4))})
	require.ErrorIs(t, err, ErrOverlappingEdits)
	assert.Equal(t, "abcdef", m.Text(), "a rejected batch leaves the text untouched")

	err = m.Apply(ctx, []Edit{Insert(cursor.At(0, 1), "x"), Insert(cursor.At(0, 1), "y")})
	require.ErrorIs(t, err, ErrOverlappingEdits)
}

func TestApply_ColumnsPastLineEndClamp(t *testing.T) {
	m := NewMemory("abc\ndef")
	require.NoError(t, m.Apply(ctx, []Edit{Delete(rng(0, 1, 0, 9))}))
	assert.Equal(t, "a\ndef", m.Text())
}

func TestApply_GraphemeColumns(t *testing.T) {
	m := NewMemory("a😀b")
	require.NoError(t, m.Apply(ctx, []Edit{Delete(rng(0, 1, 0, 2))}))
	assert.Equal(t, "ab", m.Text())
}

func TestApply_CanceledContext(t *testing.T) {
	m := NewMemory("abc")
	cctx, cancel := context.WithCancel(ctx)
	cancel()
	require.Error(t, m.Apply(cctx, []Edit{Insert(cursor.At(0, 0), "x")}))
	assert.Equal(t, "abc", m.Text())
}

// ============================================================================
// Selection mapping
// ============================================================================

func TestApply_SelectionAtInsertionPointStaysBefore(t *testing.T) {
	m := NewMemory("abc")
	m.SetSelections([]cursor.Range{cursor.Collapsed(cursor.At(0, 1))})
	require.NoError(t, m.Apply(ctx, []Edit{Insert(cursor.At(0, 1), "xy")}))
	assert.Equal(t, []cursor.Range{cursor.Collapsed(cursor.At(0, 1))}, m.Selections())
}

func TestApply_SelectionAfterEditShifts(t *testing.T) {
	m := NewMemory("abc def")
	m.SetSelections([]cursor.Range{cursor.Collapsed(cursor.At(0, 5))})
	require.NoError(t, m.Apply(ctx, []Edit{Insert(cursor.At(0, 0), "\n")}))
	assert.Equal(t, []cursor.Range{cursor.Collapsed(cursor.At(1, 5))}, m.Selections())
}

func TestApply_SelectionInsideDeletionCollapses(t *testing.T) {
	m := NewMemory("abc def")
	m.SetSelections([]cursor.Range{rng(0, 0, 0, 4)})
	require.NoError(t, m.Apply(ctx, []Edit{Delete(rng(0, 0, 0, 4))}))
	assert.Equal(t, []cursor.Range{cursor.Collapsed(cursor.At(0, 0))}, m.Selections())
}

func TestApply_MultiCursorSameLine(t *testing.T) {
	m := NewMemory("ab")
	m.SetSelections([]cursor.Range{cursor.Collapsed(cursor.At(0, 0)), cursor.Collapsed(cursor.At(0, 1))})
	require.NoError(t, m.Apply(ctx, []Edit{Insert(cursor.At(0, 0), "x"), Insert(cursor.At(0, 1), "x")}))
	assert.Equal(t, "xaxb", m.Text())
	assert.Equal(t, []cursor.Range{
		cursor.Collapsed(cursor.At(0, 0)),
		cursor.Collapsed(cursor.At(0, 2)),
	}, m.Selections())
}

// ============================================================================
// Undo
// ============================================================================

func TestUndoRedo(t *testing.T) {
	m := NewMemory("one")
	require.NoError(t, m.Apply(ctx, []Edit{Insert(cursor.At(0, 3), " two")}))
	m.FinishUndoStep()
	require.NoError(t, m.Apply(ctx, []Edit{Insert(cursor.At(0, 7), " three")}))
	m.FinishUndoStep()
	assert.Equal(t, 2, m.UndoDepth())

	ok, err := m.Undo(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "one two", m.Text())
	assert.Equal(t, cursor.At(0, 7), m.Selections()[0].Stop)

	ok, _ = m.Undo(ctx)
	assert.True(t, ok)
	assert.Equal(t, "one", m.Text())

	ok, _ = m.Undo(ctx)
	assert.False(t, ok)

	ok, _ = m.Redo(ctx)
	assert.True(t, ok)
	assert.Equal(t, "one two", m.Text())
}

func TestUndo_CommitsPendingChanges(t *testing.T) {
	m := NewMemory("abc")
	require.NoError(t, m.Apply(ctx, []Edit{Delete(rng(0, 0, 0, 1))}))
	ok, _ := m.Undo(ctx)
	assert.True(t, ok)
	assert.Equal(t, "abc", m.Text())
}

func TestFinishUndoStep_NoChangeNoStep(t *testing.T) {
	m := NewMemory("abc")
	m.FinishUndoStep()
	assert.Equal(t, 0, m.UndoDepth())
}

func TestCommandRecorders(t *testing.T) {
	m := NewMemory("")
	require.NoError(t, m.OpenCommandLine(ctx, "'<,'>"))
	require.NoError(t, m.RunCommand(ctx, "workbench.save"))
	m.Reveal(cursor.At(3, 1))
	assert.Equal(t, []string{"'<,'>"}, m.CommandLines())
	assert.Equal(t, []string{"workbench.save"}, m.Commands())
	assert.Equal(t, cursor.At(3, 1), m.Revealed())
}

func TestApply_InsertThenDeleteRestores(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lines := rapid.SliceOfN(rapid.StringMatching(`[a-z ]{0,8}`), 1, 4).Draw(t, "lines")
		m := NewMemoryLines(lines...)
		line := rapid.IntRange(0, len(lines)-1).Draw(t, "line")
		col := rapid.IntRange(0, len(lines[line])).Draw(t, "col")
		text := rapid.StringMatching(`[A-Z]{1,5}`).Draw(t, "text")

		require.NoError(t, m.Apply(ctx, []Edit{Insert(cursor.At(line, col), text)}))
		require.NoError(t, m.Apply(ctx, []Edit{Delete(rng(line, col, line, col+len(text)))}))
		require.Equal(t, lines, m.Lines())
	})
}
