package vim

import (
	"github.com/zjrosen/modal/internal/notation"
)

// Wildcards usable in action key sequences.
const (
	keyAny       = "<any>"
	keyNumber    = "<number>"
	keyCharacter = "<character>"
)

// KeypressState is the outcome of matching pressed keys against the registry.
type KeypressState int

const (
	// KeypressMatched means an action applies to exactly the keys pressed.
	KeypressMatched KeypressState = iota
	// WaitingOnKeys means the keys are a prefix of at least one action.
	WaitingOnKeys
	// NoPossibleMatch means no action can apply, now or with more keys.
	NoPossibleMatch
)

func (k KeypressState) String() string {
	switch k {
	case KeypressMatched:
		return "matched"
	case WaitingOnKeys:
		return "waiting"
	default:
		return "no_match"
	}
}

// compareKeypressSequence reports whether keys matches any alternative of patterns.
func compareKeypressSequence(patterns [][]string, keys []string, leader string) bool {
	for _, p := range patterns {
		if compareSequence(p, keys, leader) {
			return true
		}
	}
	return false
}

func compareSequence(pattern, keys []string, leader string) bool {
	if len(pattern) != len(keys) {
		return false
	}
	for i := range pattern {
		if !compareKey(pattern[i], keys[i], leader) {
			return false
		}
	}
	return true
}

func compareKey(p, k, leader string) bool {
	switch {
	case p == keyAny || k == keyAny:
		return true
	case p == keyNumber || k == keyNumber:
		other := k
		if k == keyNumber {
			other = p
		}
		return len(other) == 1 && other[0] >= '0' && other[0] <= '9'
	case p == keyCharacter || k == keyCharacter:
		other := k
		if k == keyCharacter {
			other = p
		}
		return !notation.IsControlKey(other)
	case p == notation.Leader:
		return k == leader || k == notation.Leader
	case k == notation.Leader:
		return p == leader
	case p == leader || k == leader:
		return false
	default:
		return p == k
	}
}

// doesActionApply reports whether a matches the pressed keys in the current state.
func doesActionApply(s *State, a Action, keys []string) bool {
	b := a.base()
	if !b.appliesInMode(s.mode) {
		return false
	}
	if !compareKeypressSequence(b.keys, keys, s.leader()) {
		return false
	}
	if b.mustBeFirstKey && len(s.recorded.CurrentCommandWithoutCountPrefix())-len(keys) > 0 {
		return false
	}
	return b.when == nil || b.when(s, keys)
}

// couldActionApply reports whether keys is a prefix of one of a's sequences.
func couldActionApply(s *State, a Action, keys []string) bool {
	b := a.base()
	if !b.appliesInMode(s.mode) {
		return false
	}
	if b.mustBeFirstKey && len(s.recorded.CurrentCommandWithoutCountPrefix())-len(keys) > 0 {
		return false
	}
	for _, p := range b.keys {
		if len(keys) <= len(p) && compareSequence(p[:len(keys)], keys, s.leader()) {
			if b.when == nil || b.when(s, keys) {
				return true
			}
		}
	}
	return false
}
