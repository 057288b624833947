package keys

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/key"
	"github.com/stretchr/testify/require"
)

func TestDefaultKeyMap_Assignments(t *testing.T) {
	km := DefaultKeyMap()
	tests := []struct {
		name     string
		binding  key.Binding
		expected []string
	}{
		{"quit", km.Quit, []string{"ctrl+c"}},
		{"submit", km.Submit, []string{"enter"}},
		{"cancel", km.Cancel, []string{"esc", "ctrl+["}},
		{"history up", km.HistoryUp, []string{"up"}},
		{"history down", km.HistoryDown, []string{"down"}},
		{"toggle log", km.ToggleLog, []string{"ctrl+g"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, tt.binding.Keys())
			require.NotEmpty(t, tt.binding.Help().Desc)
		})
	}
}

func TestDefaultKeyMap_MatchesTeaKeys(t *testing.T) {
	km := DefaultKeyMap()
	require.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyCtrlC}, km.Quit))
	require.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyEnter}, km.Submit))
	require.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyEsc}, km.Cancel))
	require.False(t, key.Matches(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}, km.Quit))
}

func TestHelpGroups(t *testing.T) {
	km := DefaultKeyMap()
	require.Len(t, km.ShortHelp(), 2)
	total := 0
	for _, group := range km.FullHelp() {
		total += len(group)
	}
	require.Equal(t, 6, total)
}
