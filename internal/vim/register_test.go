package vim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisters_PutGet(t *testing.T) {
	r := NewRegisters()
	assert.True(t, r.Get("a").IsAbsent())

	require.NoError(t, r.Put("a", Register{Text: "foo", Mode: RegisterCharacterWise}))
	reg, ok := r.Get("a").Get()
	require.True(t, ok)
	assert.Equal(t, "foo", reg.Text)

	reg, ok = r.Get("A").Get()
	require.True(t, ok, "uppercase names read the lowercase register")
	assert.Equal(t, "foo", reg.Text)
}

func TestRegisters_UppercaseAppends(t *testing.T) {
	r := NewRegisters()
	require.NoError(t, r.Put("a", Register{Text: "foo", Mode: RegisterCharacterWise}))
	require.NoError(t, r.Put("A", Register{Text: "bar", Mode: RegisterCharacterWise}))
	assert.Equal(t, "foobar", r.Get("a").MustGet().Text)

	require.NoError(t, r.Put("A", Register{Text: "baz", Mode: RegisterLineWise}))
	reg := r.Get("a").MustGet()
	assert.Equal(t, "foobar\nbaz", reg.Text)
	assert.Equal(t, RegisterLineWise, reg.Mode)
}

func TestRegisters_UppercaseOnEmptyStores(t *testing.T) {
	r := NewRegisters()
	require.NoError(t, r.Put("B", Register{Text: "x"}))
	assert.Equal(t, "x", r.Get("b").MustGet().Text)
	assert.Equal(t, []string{"b"}, r.Names())
}

func TestRegisters_SpecialNames(t *testing.T) {
	r := NewRegisters()

	assert.ErrorIs(t, r.Put(RegisterInsertion, Register{Text: "x"}), ErrReadOnlyRegister)
	require.NoError(t, r.Put(RegisterBlackHole, Register{Text: "gone"}))
	assert.True(t, r.Get(RegisterBlackHole).IsAbsent())
	assert.ErrorIs(t, r.Put("+", Register{Text: "x"}), ErrInvalidRegister)
	assert.ErrorIs(t, r.Put("ab", Register{Text: "x"}), ErrInvalidRegister)

	r.putInsertion("typed")
	assert.Equal(t, "typed", r.Get(RegisterInsertion).MustGet().Text)
}

func TestIsValidRegister(t *testing.T) {
	for _, name := range []string{"a", "Z", "0", "9", `"`, "_", "."} {
		assert.True(t, IsValidRegister(name), name)
	}
	for _, name := range []string{"", "+", "*", "ab", "é"} {
		assert.False(t, IsValidRegister(name), name)
	}
}

func TestGlobalState_SearchHistory(t *testing.T) {
	g := NewGlobalState()
	g.pushSearchHistory("a", 3)
	g.pushSearchHistory("b", 3)
	g.pushSearchHistory("", 3)
	g.pushSearchHistory("a", 3)
	assert.Equal(t, []string{"b", "a"}, g.SearchHistory(), "a repeated pattern moves to the end")

	g.pushSearchHistory("c", 3)
	g.pushSearchHistory("d", 3)
	assert.Equal(t, []string{"a", "c", "d"}, g.SearchHistory())
}

func TestGlobalState_PreviousFullActionStartsEmpty(t *testing.T) {
	g := NewGlobalState()
	assert.True(t, g.PreviousFullAction().IsAbsent())
	assert.True(t, g.Search().IsAbsent())
}
