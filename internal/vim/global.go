package vim

import (
	"slices"
	"sync"

	"github.com/samber/mo"
)

// GlobalState is shared by every session of a process: registers, the last
// repeatable command, the last character search and search state.
type GlobalState struct {
	mu sync.Mutex

	registers              *Registers
	previousFullAction     *RecordedState
	lastRepeatableMovement *Motion
	search                 mo.Option[SearchState]
	searchHistory          []string
}

// NewGlobalState returns empty global state.
func NewGlobalState() *GlobalState {
	return &GlobalState{registers: NewRegisters()}
}

// Registers returns the shared register file.
func (g *GlobalState) Registers() *Registers {
	return g.registers
}

// PreviousFullAction returns a copy of the command dot-repeat replays.
func (g *GlobalState) PreviousFullAction() mo.Option[*RecordedState] {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.previousFullAction == nil {
		return mo.None[*RecordedState]()
	}
	return mo.Some(g.previousFullAction.Clone())
}

func (g *GlobalState) setPreviousFullAction(rs *RecordedState) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.previousFullAction = rs
}

func (g *GlobalState) lastCharSearch() *Motion {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastRepeatableMovement
}

func (g *GlobalState) setLastCharSearch(m *Motion) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastRepeatableMovement = m
}

// Search returns the last committed search.
func (g *GlobalState) Search() mo.Option[SearchState] {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.search
}

func (g *GlobalState) setSearch(s SearchState) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.search = mo.Some(s)
}

// SearchHistory returns committed patterns, oldest first.
func (g *GlobalState) SearchHistory() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.searchHistory)
}

// pushSearchHistory appends pattern, moving an existing copy to the end and
// keeping at most limit entries.
func (g *GlobalState) pushSearchHistory(pattern string, limit int) {
	if pattern == "" || limit <= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.searchHistory = slices.DeleteFunc(g.searchHistory, func(p string) bool { return p == pattern })
	g.searchHistory = append(g.searchHistory, pattern)
	if n := len(g.searchHistory); n > limit {
		g.searchHistory = slices.Clone(g.searchHistory[n-limit:])
	}
}
