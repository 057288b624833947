package editor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/modal/internal/config"
	"github.com/zjrosen/modal/internal/cursor"
	"github.com/zjrosen/modal/internal/vim"
)

func TestMain(m *testing.M) {
	zone.NewGlobal()
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

func newTestEditor(t *testing.T, cfg Config) Model {
	t.Helper()
	if cfg.Engine.Leader == "" {
		cfg.Engine = config.Defaults()
	}
	m := New(cfg)
	t.Cleanup(m.Close)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 40, Height: 10})
	return next.(Model)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// typeKeys feeds each message through Update and returns the last command.
func typeKeys(m Model, msgs ...tea.KeyMsg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(Model)
	}
	return m, cmd
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

// ============================================================================
// Key handling
// ============================================================================

func TestEditor_TypesIntoBuffer(t *testing.T) {
	m := newTestEditor(t, Config{Text: "world"})
	m, _ = typeKeys(m, runes("i"), runes("hello"), tea.KeyMsg{Type: tea.KeySpace}, tea.KeyMsg{Type: tea.KeyEsc})

	assert.Equal(t, "hello world", m.Host().Text())
	assert.Equal(t, vim.ModeNormal, m.Session().Mode())
	assert.True(t, m.Modified())
}

func TestEditor_OperatorsReachEngine(t *testing.T) {
	m := newTestEditor(t, Config{Text: "one two three"})
	m, _ = typeKeys(m, runes("d"), runes("w"))
	assert.Equal(t, "two three", m.Host().Text())
}

func TestEditor_QuitKeyAlwaysQuits(t *testing.T) {
	m := newTestEditor(t, Config{Text: "abc"})
	m, _ = typeKeys(m, runes("i"))
	_, cmd := typeKeys(m, tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.True(t, isQuit(cmd))
}

func TestKeyNames(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.KeyMsg
		want []string
	}{
		{"rune", runes("x"), []string{"x"}},
		{"paste", runes("ab"), []string{"a", "b"}},
		{"alt rune", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x"), Alt: true}, []string{"alt+x"}},
		{"space", tea.KeyMsg{Type: tea.KeySpace}, []string{" "}},
		{"tab", tea.KeyMsg{Type: tea.KeyTab}, []string{"tab"}},
		{"escape", tea.KeyMsg{Type: tea.KeyEsc}, []string{"esc"}},
		{"enter", tea.KeyMsg{Type: tea.KeyEnter}, []string{"enter"}},
		{"ctrl", tea.KeyMsg{Type: tea.KeyCtrlR}, []string{"ctrl+r"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, keyNames(tt.msg))
		})
	}
}

// ============================================================================
// Command line
// ============================================================================

func TestEditor_WriteCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.txt")
	m := newTestEditor(t, Config{Path: path, Text: "abc", TrailingNewline: true})

	m, _ = typeKeys(m, runes("x"), runes(":"))
	require.True(t, m.promptOpen)
	m, cmd := typeKeys(m, runes("w"), tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, isQuit(cmd))
	assert.False(t, m.promptOpen)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "bc\n", string(data))
	assert.False(t, m.Modified())
}

func TestEditor_QuitRefusesUnsavedChanges(t *testing.T) {
	m := newTestEditor(t, Config{Text: "abc"})
	m, _ = typeKeys(m, runes("x"), runes(":"), runes("q"))
	m, cmd := typeKeys(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, isQuit(cmd))

	status, isErr := m.Status()
	assert.True(t, isErr)
	assert.Equal(t, ErrUnsaved.Error(), status)

	_, cmd = typeKeys(m, runes(":"), runes("q!"), tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, isQuit(cmd))
}

func TestEditor_WriteWithoutNameFails(t *testing.T) {
	m := newTestEditor(t, Config{Text: "abc"})
	m, _ = typeKeys(m, runes(":"), runes("w"), tea.KeyMsg{Type: tea.KeyEnter})
	status, isErr := m.Status()
	assert.True(t, isErr)
	assert.Equal(t, ErrNoFileName.Error(), status)
}

func TestEditor_VisualCommandLineHasRange(t *testing.T) {
	m := newTestEditor(t, Config{Text: "a\nb"})
	m, _ = typeKeys(m, runes("V"), runes(":"))
	require.True(t, m.promptOpen)
	assert.Equal(t, "'<,'>", m.prompt.Value())
	assert.Equal(t, vim.ModeNormal, m.Session().Mode())
}

func TestEditor_GotoLine(t *testing.T) {
	m := newTestEditor(t, Config{Text: "a\n  b\nc"})
	m, _ = typeKeys(m, runes(":"), runes("2"), tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, []cursor.Range{cursor.Collapsed(cursor.At(1, 2))}, m.Session().Cursors())
}

func TestEditor_PromptHistory(t *testing.T) {
	m := newTestEditor(t, Config{Text: "a\nb\nc"})
	m, _ = typeKeys(m, runes(":"), runes("3"), tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = typeKeys(m, runes(":"), tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, "3", m.prompt.Value())
	m, _ = typeKeys(m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, "", m.prompt.Value())
	m, _ = typeKeys(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.promptOpen)
}

func TestEditor_RemapRunsHostCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	cfg := config.Defaults()
	cfg.OtherModesKeyBindings = []config.KeyBinding{{
		Before:   []string{"<leader>", "w"},
		Commands: []config.CommandBinding{{Command: "write"}},
	}}
	m := newTestEditor(t, Config{Path: path, Text: "abc", Engine: cfg})

	m, _ = typeKeys(m, runes(`\`), runes("w"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))
	assert.Equal(t, "abc", m.Host().Text())
}

// ============================================================================
// Configuration reload
// ============================================================================

func TestEditor_ReloadRebuildsRemaps(t *testing.T) {
	reloaded := config.Defaults()
	reloaded.OtherModesKeyBindingsNonRecursive = []config.KeyBinding{{Before: []string{"Q"}, After: []string{"x"}}}
	m := newTestEditor(t, Config{
		Text:   "abc",
		Reload: func() (config.Config, error) { return reloaded, nil },
	})

	m, _ = typeKeys(m, runes("Q"))
	assert.Equal(t, "abc", m.Host().Text())

	next, _ := m.Update(configChangedMsg{})
	m = next.(Model)
	m, _ = typeKeys(m, runes("Q"))
	assert.Equal(t, "bc", m.Host().Text())
}

func TestEditor_ReloadRejectsInvalidConfig(t *testing.T) {
	bad := config.Defaults()
	bad.Timeout = 0
	m := newTestEditor(t, Config{
		Text:   "abc",
		Reload: func() (config.Config, error) { return bad, nil },
	})
	next, _ := m.Update(configChangedMsg{})
	_, isErr := next.(Model).Status()
	assert.True(t, isErr)
}

// ============================================================================
// Rendering
// ============================================================================

func TestEditor_ViewShowsTextAndMode(t *testing.T) {
	m := newTestEditor(t, Config{Path: "notes.txt", Text: "hello\nworld"})
	m, _ = typeKeys(m, runes("i"))
	view := m.View()

	assert.Contains(t, view, "1 hello")
	assert.Contains(t, view, "2 world")
	assert.Contains(t, view, "-- INSERT --")
	assert.Contains(t, view, "notes.txt")
	assert.Contains(t, view, "~")
}

func TestEditor_ViewShowsSearchPrompt(t *testing.T) {
	m := newTestEditor(t, Config{Text: "foo"})
	m, _ = typeKeys(m, runes("/"), runes("fo"))
	lines := strings.Split(m.View(), "\n")
	assert.Equal(t, "/fo", strings.TrimSpace(lines[len(lines)-1]))
}

func TestEditor_ViewScrollsToCursor(t *testing.T) {
	text := strings.Repeat("line\n", 30) + "last"
	m := newTestEditor(t, Config{Text: text})
	m, _ = typeKeys(m, runes("G"))
	assert.Contains(t, m.View(), "31 last")
	assert.Positive(t, m.top)
}

func TestInSelection(t *testing.T) {
	sel := cursor.NewRange(cursor.At(0, 2), cursor.At(1, 1))
	assert.True(t, inSelection(cursor.At(0, 5), sel, vim.ModeVisual))
	assert.True(t, inSelection(cursor.At(1, 1), sel, vim.ModeVisual))
	assert.False(t, inSelection(cursor.At(1, 2), sel, vim.ModeVisual))
	assert.True(t, inSelection(cursor.At(1, 9), sel, vim.ModeVisualLine))
	assert.False(t, inSelection(cursor.At(0, 0), sel, vim.ModeVisualBlock))
	assert.True(t, inSelection(cursor.At(0, 1), sel, vim.ModeVisualBlock))
}

func TestColumnAtWidth(t *testing.T) {
	assert.Equal(t, 0, columnAtWidth("abc", 0, 4))
	assert.Equal(t, 2, columnAtWidth("abc", 2, 4))
	assert.Equal(t, 3, columnAtWidth("abc", 10, 4), "past the end maps to the line length")
	assert.Equal(t, 0, columnAtWidth("\tx", 3, 4))
	assert.Equal(t, 1, columnAtWidth("\tx", 4, 4))
	assert.Equal(t, 1, columnAtWidth("日本", 2, 4))
}
