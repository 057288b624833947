package grapheme

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var unicodeCases = []struct {
	name      string
	input     string
	graphemes int
	width     int
}{
	{"ASCII", "hello", 5, 5},
	{"combining accent", "héllo", 5, 5},
	{"simple emoji", "h😀llo", 5, 6},
	{"ZWJ family", "👨‍👩‍👧‍👦", 1, 2},
	{"flag", "🇺🇸", 1, 1},
	{"empty", "", 0, 0},
}

func TestCount(t *testing.T) {
	for _, tc := range unicodeCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.graphemes, Count(tc.input))
			assert.Len(t, Split(tc.input), tc.graphemes)
		})
	}
}

func TestWidth(t *testing.T) {
	for _, tc := range unicodeCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.width, Width(tc.input))
		})
	}
}

func TestAt(t *testing.T) {
	s := "a😀b"
	assert.Equal(t, "a", At(s, 0))
	assert.Equal(t, "😀", At(s, 1))
	assert.Equal(t, "b", At(s, 2))
	assert.Equal(t, "", At(s, 3))
	assert.Equal(t, "", At(s, -1))
}

func TestByteOffsets(t *testing.T) {
	s := "a😀b"
	assert.Equal(t, 0, ToByteOffset(s, 0))
	assert.Equal(t, 1, ToByteOffset(s, 1))
	assert.Equal(t, 5, ToByteOffset(s, 2))
	assert.Equal(t, len(s), ToByteOffset(s, 10))

	assert.Equal(t, 1, FromByteOffset(s, 3), "offset inside the emoji maps to it")
	assert.Equal(t, 2, FromByteOffset(s, 5))
	assert.Equal(t, 3, FromByteOffset(s, len(s)))
}

func TestSliceInsertDelete(t *testing.T) {
	s := "héllo"
	assert.Equal(t, "él", Slice(s, 1, 3))
	assert.Equal(t, "", Slice(s, 3, 3))
	assert.Equal(t, "hXéllo", Insert(s, 1, "X"))
	assert.Equal(t, "hlo", Delete(s, 1, 3))
	assert.Equal(t, s, Delete(s, 2, 1))
}

func TestIndexAtWidth(t *testing.T) {
	s := "a😀b"
	assert.Equal(t, 0, IndexAtWidth(s, 0))
	assert.Equal(t, 1, IndexAtWidth(s, 1))
	assert.Equal(t, 1, IndexAtWidth(s, 2))
	assert.Equal(t, 2, IndexAtWidth(s, 3))
	assert.Equal(t, 2, IndexAtWidth(s, 40))
	assert.Equal(t, 0, IndexAtWidth("", 4))
}

func TestClassify(t *testing.T) {
	kw := "/\\()\"':,.;<>~!@#$%^&*|+=[]{}`?-"
	assert.Equal(t, Whitespace, Classify(" ", kw))
	assert.Equal(t, Whitespace, Classify("\t", kw))
	assert.Equal(t, Word, Classify("a", kw))
	assert.Equal(t, Word, Classify("_", kw))
	assert.Equal(t, Word, Classify("é", kw))
	assert.Equal(t, Punctuation, Classify(".", kw))
	assert.Equal(t, Punctuation, Classify("😀", kw))
	assert.Equal(t, Word, Classify(".", ""), "characters outside iskeyword are word characters")
}

func TestLeadingWhitespace(t *testing.T) {
	assert.Equal(t, "  \t", LeadingWhitespace("  \tfoo "))
	assert.Equal(t, "", LeadingWhitespace("foo"))
	assert.True(t, IsBlank(" \t"))
	assert.False(t, IsBlank(" x"))
}

func TestInsertDeleteRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.StringMatching(`[a-z😀é ]{0,12}`).Draw(t, "s")
		ins := rapid.StringMatching(`[a-z]{1,4}`).Draw(t, "ins")
		idx := rapid.IntRange(0, Count(s)).Draw(t, "idx")

		out := Insert(s, idx, ins)
		require.Equal(t, Count(s)+Count(ins), Count(out))
		require.Equal(t, s, Delete(out, idx, idx+Count(ins)))
	})
}
