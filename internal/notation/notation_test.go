package notation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNormalize(t *testing.T) {
	n := New("\\")
	tests := []struct {
		in   string
		want string
	}{
		{"a", "a"},
		{"A", "A"},
		{"é", "é"},
		{" ", Space},
		{"<space>", Space},
		{"<SPACE>", Space},
		{"space", Space},
		{"<esc>", Esc},
		{"<Escape>", Esc},
		{"escape", Esc},
		{"<bs>", BS},
		{"backspace", BS},
		{"<shift+bs>", ShiftBS},
		{"<delete>", Del},
		{"<enter>", CR},
		{"<return>", CR},
		{"enter", CR},
		{"<tab>", Tab},
		{"<UP>", Up},
		{"<Down>", Down},
		{"<ctrl+r>", CtrlR},
		{"<c-r>", CtrlR},
		{"ctrl+v", CtrlV},
		{"<C-[>", CtrlBr},
		{"<cmd+a>", "<D-a>"},
		{"<leader>", "\\"},
		{"<Leader>", "\\"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, n.Normalize(tc.in))
		})
	}
}

func TestNormalize_CustomLeader(t *testing.T) {
	n := New(",")
	assert.Equal(t, ",", n.Normalize("<leader>"))
	assert.Equal(t, ",", n.Leader())
	assert.Equal(t, DefaultLeader, New("").Leader())
}

func TestNormalize_Idempotent(t *testing.T) {
	n := New("\\")
	keys := []string{"a", " ", "<esc>", "ctrl+r", "<c-v>", "<shift+bs>", "enter", "<leader>", "<up>"}
	for _, k := range keys {
		once := n.Normalize(k)
		assert.Equal(t, once, n.Normalize(once), "normalizing %q twice", k)
	}
}

func TestIsControlKey(t *testing.T) {
	assert.False(t, IsControlKey("a"))
	assert.False(t, IsControlKey("<"))
	assert.False(t, IsControlKey(BS))
	assert.False(t, IsControlKey(ShiftBS))
	assert.False(t, IsControlKey(Tab))
	assert.False(t, IsControlKey(Space))
	assert.False(t, IsControlKey(CR))
	assert.True(t, IsControlKey(Esc))
	assert.True(t, IsControlKey(CtrlR))
	assert.True(t, IsControlKey(Del))
}

func TestText(t *testing.T) {
	assert.Equal(t, " ", Text(Space))
	assert.Equal(t, "\t", Text(Tab))
	assert.Equal(t, "\n", Text(CR))
	assert.Equal(t, "x", Text("x"))
}

func TestFromText(t *testing.T) {
	assert.Equal(t, []string{"a", Space, "b", CR, Tab, "😀"}, FromText("a b\n\t😀"))
	assert.Empty(t, FromText(""))
}

func TestSplit(t *testing.T) {
	n := New("\\")
	assert.Equal(t, []string{"d", "2", "w", Esc}, n.Split("d2w<Esc>"))
	assert.Equal(t, []string{"i", "<", "b", Esc}, n.Split("i<b<esc>"))
	assert.Equal(t, []string{"\\", "x"}, n.Split("<leader>x"))
	assert.Equal(t, []string{"a", Space, "<"}, n.Split("a <"))
}

func TestSplitJoinRoundTrip(t *testing.T) {
	n := New("\\")
	rapid.Check(t, func(t *rapid.T) {
		keys := rapid.SliceOf(rapid.SampledFrom([]string{
			"a", "b", "x", "0", "9", "$", Esc, CtrlR, CR, Tab, BS, Del, Up,
		})).Draw(t, "keys")
		require.Equal(t, len(keys), len(n.Split(Join(keys))))
		for i, k := range n.Split(Join(keys)) {
			require.Equal(t, keys[i], k)
		}
	})
}
