package cursor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestPosition_Compare(t *testing.T) {
	tests := []struct {
		name string
		a, b Position
		want int
	}{
		{"equal", At(1, 2), At(1, 2), 0},
		{"earlier line", At(0, 9), At(1, 0), -1},
		{"later line", At(2, 0), At(1, 9), 1},
		{"earlier col", At(1, 1), At(1, 2), -1},
		{"later col", At(1, 3), At(1, 2), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Compare(tt.b))
			assert.Equal(t, -tt.want, tt.b.Compare(tt.a))
		})
	}
}

func TestPosition_Add(t *testing.T) {
	assert.Equal(t, At(3, 5), At(2, 3).Add(Diff{Line: 1, Col: 2}))
	assert.Equal(t, At(3, 4), At(2, 9).Add(Diff{Line: 1, Col: 4, BOL: true}))
	assert.Equal(t, At(0, 0), At(1, 1).Add(Diff{Line: -5, Col: -5}))
	assert.Equal(t, At(2, 0), At(2, 7).Add(BOLDiff()))
}

func TestPosition_SubRoundTrips(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := At(rapid.IntRange(0, 100).Draw(t, "al"), rapid.IntRange(0, 100).Draw(t, "ac"))
		b := At(rapid.IntRange(0, 100).Draw(t, "bl"), rapid.IntRange(0, 100).Draw(t, "bc"))
		if got := b.Add(a.Sub(b)); got != a {
			t.Fatalf("%v + (%v - %v) = %v", b, a, b, got)
		}
	})
}

func TestEarlierLater(t *testing.T) {
	a, b := At(0, 4), At(1, 0)
	assert.Equal(t, a, Earlier(a, b))
	assert.Equal(t, a, Earlier(b, a))
	assert.Equal(t, b, Later(a, b))
	assert.Equal(t, b, Later(b, a))
}

func TestDiff_IsZero(t *testing.T) {
	assert.True(t, Diff{}.IsZero())
	assert.False(t, BOLDiff().IsZero())
	assert.False(t, Diff{Col: 1}.IsZero())
}

func TestRange_Normalized(t *testing.T) {
	r := NewRange(At(2, 1), At(0, 3))
	s, e := r.Normalized()
	assert.Equal(t, At(0, 3), s)
	assert.Equal(t, At(2, 1), e)
	assert.Equal(t, NewRange(At(0, 3), At(2, 1)), r.Sorted())
	assert.False(t, r.IsEmpty())
	assert.True(t, Collapsed(At(1, 1)).IsEmpty())
}

func TestRange_Overlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Range
		want bool
	}{
		{"disjoint", NewRange(At(0, 0), At(0, 2)), NewRange(At(0, 3), At(0, 5)), false},
		{"touching", NewRange(At(0, 0), At(0, 3)), NewRange(At(0, 3), At(0, 5)), false},
		{"crossing", NewRange(At(0, 0), At(0, 4)), NewRange(At(0, 3), At(0, 5)), true},
		{"backwards", NewRange(At(0, 4), At(0, 0)), NewRange(At(0, 2), At(0, 2)), true},
		{"same empty", Collapsed(At(1, 1)), Collapsed(At(1, 1)), true},
		{"different empty", Collapsed(At(1, 1)), Collapsed(At(1, 2)), false},
		{"empty at end", NewRange(At(0, 0), At(0, 3)), Collapsed(At(0, 3)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a))
		})
	}
}

func TestRange_Contains(t *testing.T) {
	r := NewRange(At(0, 5), At(0, 2))
	assert.True(t, r.Contains(At(0, 2)))
	assert.True(t, r.Contains(At(0, 4)))
	assert.False(t, r.Contains(At(0, 5)))
}

func TestRange_AddAndWith(t *testing.T) {
	r := NewRange(At(0, 1), At(0, 2)).Add(Diff{Line: 1})
	assert.Equal(t, NewRange(At(1, 1), At(1, 2)), r)
	assert.Equal(t, NewRange(At(5, 5), At(1, 2)), r.WithStart(At(5, 5)))
	assert.Equal(t, NewRange(At(1, 1), At(7, 0)), r.WithStop(At(7, 0)))
}

func TestUnique(t *testing.T) {
	a := Collapsed(At(0, 1))
	b := Collapsed(At(2, 0))
	got := Unique([]Range{a, b, a})
	require.Len(t, got, 2)
	assert.Equal(t, []Range{a, b}, got)

	assert.Equal(t, []Range{Collapsed(At(0, 0))}, Unique(nil))
	assert.Equal(t, []Position{At(0, 1), At(2, 0)}, Stops(got))
}
