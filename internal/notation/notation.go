// Package notation canonicalises key names so that every key reaching the
// dispatcher has a single spelling.
//
// Single-character keys pass through untouched. Anything longer is a bracketed
// key such as <Esc>, <C-r> or <space>. Aliases from different front ends
// ("escape", "ctrl+r", "enter", a literal " ") all fold onto one form.
package notation

import (
	"strings"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// Canonical names of the keys the engine binds.
const (
	Esc     = "<Esc>"
	BS      = "<BS>"
	ShiftBS = "<SHIFT+BS>"
	Del     = "<Del>"
	CR      = "<CR>"
	Tab     = "<TAB>"
	Space   = "<space>"
	Up      = "<up>"
	Down    = "<down>"
	Left    = "<left>"
	Right   = "<right>"
	CtrlV   = "<C-v>"
	CtrlR   = "<C-r>"
	CtrlBr  = "<C-[>"
	Leader  = "<leader>"
)

// DefaultLeader is the leader key used when none is configured.
const DefaultLeader = "\\"

var namedKeys = map[string]string{
	"escape":    "Esc",
	"esc":       "Esc",
	"backspace": "BS",
	"bs":        "BS",
	"delete":    "Del",
	"del":       "Del",
	"enter":     "CR",
	"return":    "CR",
	"cr":        "CR",
	"tab":       "TAB",
	"space":     "space",
	"up":        "up",
	"down":      "down",
	"left":      "left",
	"right":     "right",
	"home":      "home",
	"end":       "end",
}

var modifiers = []struct {
	alias string
	canon string
}{
	{"ctrl+", "C-"},
	{"c-", "C-"},
	{"cmd+", "D-"},
	{"d-", "D-"},
	{"shift+", "SHIFT+"},
	{"alt+", "A-"},
	{"a-", "A-"},
}

// Normalizer rewrites key names into canonical notation.
type Normalizer struct {
	leader string
}

// New returns a Normalizer that expands <leader> to leader.
func New(leader string) *Normalizer {
	if leader == "" {
		leader = DefaultLeader
	}
	return &Normalizer{leader: leader}
}

// Leader returns the configured leader key.
func (n *Normalizer) Leader() string {
	return n.leader
}

// Normalize returns the canonical spelling of key.
func (n *Normalizer) Normalize(key string) string {
	if key == " " {
		return Space
	}
	if key == "" || uniseg.GraphemeClusterCount(key) == 1 && !isBracketed(key) {
		return key
	}
	if !isBracketed(key) {
		key = "<" + strings.ToLower(key) + ">"
	}

	inner := key[1 : len(key)-1]
	if inner == "" {
		return key
	}
	if strings.EqualFold(inner, "leader") {
		return n.leader
	}

	var prefix strings.Builder
	for {
		matched := false
		for _, m := range modifiers {
			if len(inner) > len(m.alias) && strings.EqualFold(inner[:len(m.alias)], m.alias) {
				prefix.WriteString(m.canon)
				inner = inner[len(m.alias):]
				matched = true
				break
			}
		}
		if !matched {
			break
		}
	}

	if named, ok := namedKeys[strings.ToLower(inner)]; ok {
		inner = named
	}
	if prefix.Len() == 0 && inner == "space" {
		return Space
	}
	return "<" + prefix.String() + inner + ">"
}

// NormalizeAll normalizes every key in keys into a new slice.
func (n *Normalizer) NormalizeAll(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = n.Normalize(k)
	}
	return out
}

// Normalize is a convenience wrapper using the default leader.
func Normalize(key string) string {
	return New(DefaultLeader).Normalize(key)
}

func isBracketed(key string) bool {
	return utf8.RuneCountInString(key) > 2 && strings.HasPrefix(key, "<") && strings.HasSuffix(key, ">")
}

// IsControlKey reports whether key names a non-printing key. Backspace, tab,
// enter and space still count as characters for matching purposes.
func IsControlKey(key string) bool {
	switch key {
	case BS, ShiftBS, Tab, CR, Space:
		return false
	}
	return len(key) > 1 && strings.HasPrefix(key, "<")
}

// Text returns the text a key inserts when typed.
func Text(key string) string {
	switch key {
	case Space:
		return " "
	case Tab:
		return "\t"
	case CR:
		return "\n"
	}
	return key
}

// FromText splits literal text into the keys that would type it.
func FromText(s string) []string {
	var out []string
	state := -1
	for len(s) > 0 {
		var cluster string
		cluster, s, _, state = uniseg.StepString(s, state)
		switch cluster {
		case " ":
			out = append(out, Space)
		case "\n", "\r\n":
			out = append(out, CR)
		case "\t":
			out = append(out, Tab)
		default:
			out = append(out, cluster)
		}
	}
	return out
}

// Join renders keys back into a display string, the inverse of Split.
func Join(keys []string) string {
	return strings.Join(keys, "")
}

// Split parses a key string like "d2w<Esc>" into individual keys. A "<"
// starts a bracketed key only when a closing ">" follows; otherwise it is a
// literal character.
func (n *Normalizer) Split(s string) []string {
	var out []string
	for len(s) > 0 {
		if s[0] == '<' {
			if end := strings.IndexByte(s, '>'); end > 1 && !strings.ContainsAny(s[1:end], "< ") {
				out = append(out, n.Normalize(s[:end+1]))
				s = s[end+1:]
				continue
			}
		}
		cluster, rest, _, _ := uniseg.FirstGraphemeClusterInString(s, -1)
		out = append(out, n.Normalize(cluster))
		s = rest
	}
	return out
}
