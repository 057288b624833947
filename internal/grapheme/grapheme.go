// Package grapheme provides grapheme cluster helpers for Unicode-aware text operations.
//
// Three units of text measurement show up across the engine:
//
//  1. Bytes: the storage unit of Go strings. A single grapheme can be 1-25+ bytes.
//  2. Graphemes: what a user perceives as one character. Every column the engine
//     stores (cursor.Position.Col) is a grapheme index.
//  3. Display columns: the terminal cells a grapheme occupies. ASCII = 1, CJK and
//     most emoji = 2. Only the renderer and the `|` motion care about these.
package grapheme

import (
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// Class is the word-motion classification of a grapheme.
type Class int

const (
	Whitespace Class = iota
	Word
	Punctuation
)

// Count returns the number of grapheme clusters in s.
func Count(s string) int {
	return uniseg.GraphemeClusterCount(s)
}

// Split returns the grapheme clusters of s in order.
func Split(s string) []string {
	out := make([]string, 0, len(s))
	state := -1
	for len(s) > 0 {
		var cluster string
		cluster, s, _, state = uniseg.StepString(s, state)
		out = append(out, cluster)
	}
	return out
}

// At returns the grapheme cluster at index idx, or "" when idx is out of bounds.
func At(s string, idx int) string {
	if idx < 0 {
		return ""
	}
	i := 0
	state := -1
	for len(s) > 0 {
		var cluster string
		cluster, s, _, state = uniseg.StepString(s, state)
		if i == idx {
			return cluster
		}
		i++
	}
	return ""
}

// ToByteOffset converts a grapheme index to a byte offset.
// Indices past the end map to len(s); non-positive indices map to 0.
func ToByteOffset(s string, idx int) int {
	if idx <= 0 {
		return 0
	}
	i := 0
	state := -1
	rest := s
	for len(rest) > 0 {
		_, rest, _, state = uniseg.StepString(rest, state)
		i++
		if i == idx {
			return len(s) - len(rest)
		}
	}
	return len(s)
}

// FromByteOffset converts a byte offset to the index of the grapheme containing it.
func FromByteOffset(s string, off int) int {
	if off <= 0 {
		return 0
	}
	if off >= len(s) {
		return Count(s)
	}
	i := 0
	pos := 0
	state := -1
	rest := s
	for len(rest) > 0 {
		var cluster string
		cluster, rest, _, state = uniseg.StepString(rest, state)
		pos += len(cluster)
		if off < pos {
			return i
		}
		i++
	}
	return i
}

// Slice returns the graphemes in [start, end) of s.
func Slice(s string, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end <= start {
		return ""
	}
	return s[ToByteOffset(s, start):ToByteOffset(s, end)]
}

// Insert inserts text before grapheme idx.
func Insert(s string, idx int, text string) string {
	off := ToByteOffset(s, idx)
	return s[:off] + text + s[off:]
}

// Delete removes the graphemes in [start, end).
func Delete(s string, start, end int) string {
	if end <= start {
		return s
	}
	return s[:ToByteOffset(s, start)] + s[ToByteOffset(s, end):]
}

// Width returns the display width of s in terminal cells.
func Width(s string) int {
	return runewidth.StringWidth(s)
}

// IndexAtWidth returns the index of the grapheme that covers display column col.
// Columns past the end of s map to the last grapheme.
func IndexAtWidth(s string, col int) int {
	if col <= 0 {
		return 0
	}
	clusters := Split(s)
	w := 0
	for i, c := range clusters {
		w += Width(c)
		if w > col {
			return i
		}
	}
	if len(clusters) == 0 {
		return 0
	}
	return len(clusters) - 1
}

// Classify sorts a grapheme into whitespace, word or punctuation. Any grapheme
// whose base rune appears in keywordChars counts as punctuation; the remaining
// non-blank graphemes are word characters.
func Classify(cluster, keywordChars string) Class {
	if cluster == "" {
		return Whitespace
	}
	for _, r := range cluster {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			return Whitespace
		case strings.ContainsRune(keywordChars, r):
			return Punctuation
		case unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_':
			return Word
		case r < 0x80:
			return Word
		default:
			return Punctuation
		}
	}
	return Punctuation
}

// IsBlank reports whether s consists only of spaces and tabs.
func IsBlank(s string) bool {
	return strings.TrimLeft(s, " \t") == ""
}

// LeadingWhitespace returns the run of spaces and tabs that starts s.
func LeadingWhitespace(s string) string {
	return s[:len(s)-len(strings.TrimLeft(s, " \t"))]
}
