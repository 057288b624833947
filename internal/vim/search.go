package vim

import (
	"context"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dlclark/regexp2"

	"github.com/zjrosen/modal/internal/cachemanager"
	"github.com/zjrosen/modal/internal/cursor"
	"github.com/zjrosen/modal/internal/grapheme"
	"github.com/zjrosen/modal/internal/log"
	"github.com/zjrosen/modal/internal/notation"
)

// SearchState is the last committed search.
type SearchState struct {
	Pattern string
	Forward bool
}

// searchInput is the pattern being typed in SearchInProgress.
type searchInput struct {
	pattern string
	forward bool
	// histIdx walks the search history; len(history) means the typed pattern.
	histIdx int
	typed   string
}

func (in *searchInput) prompt() string {
	if in.forward {
		return "/" + in.pattern
	}
	return "?" + in.pattern
}

type compileInput struct {
	pattern    string
	ignoreCase bool
}

// patternCache holds compiled patterns; committing the same search or
// repeating it with n never recompiles.
var patternCache = cachemanager.NewReadThroughCache[string, *regexp2.Regexp, compileInput](
	cachemanager.NewInMemoryCacheManager[string, *regexp2.Regexp]("search-patterns", 10*time.Minute, time.Minute),
	func(_ context.Context, in compileInput) (*regexp2.Regexp, error) {
		return compilePattern(in.pattern, in.ignoreCase), nil
	},
	10*time.Minute,
)

// compilePattern compiles a search pattern, translating the word-boundary
// atoms \< and \>. A pattern that is not a valid expression is searched
// for literally.
func compilePattern(pattern string, ignoreCase bool) *regexp2.Regexp {
	opts := regexp2.None
	if ignoreCase {
		opts |= regexp2.IgnoreCase
	}
	expr := strings.NewReplacer(`\<`, `\b`, `\>`, `\b`).Replace(pattern)
	re, err := regexp2.Compile(expr, opts)
	if err != nil {
		log.Debug(log.CatDispatch, "search pattern is literal", "pattern", pattern, "error", err)
		re = regexp2.MustCompile(regexp2.Escape(pattern), opts)
	}
	re.MatchTimeout = time.Second
	return re
}

func (s *State) searchRegexp(pattern string) *regexp2.Regexp {
	ignore := s.cfg.IgnoreCase
	if ignore && s.cfg.SmartCase && strings.IndexFunc(pattern, unicode.IsUpper) >= 0 {
		ignore = false
	}
	key := pattern
	if ignore {
		key = "i:" + pattern
	} else {
		key = "c:" + pattern
	}
	re, _ := patternCache.Get(s.ctx, key, compileInput{pattern: pattern, ignoreCase: ignore})
	return re
}

// lineMatches returns the grapheme column ranges of every match on line.
func lineMatches(re *regexp2.Regexp, line string) [][2]int {
	var out [][2]int
	m, err := re.FindStringMatch(line)
	for err == nil && m != nil {
		start := runeToGrapheme(line, m.Index)
		end := runeToGrapheme(line, m.Index+m.Length)
		out = append(out, [2]int{start, end})
		m, err = re.FindNextMatch(m)
	}
	return out
}

// runeToGrapheme converts a rune index, which regexp2 reports, into a
// grapheme column.
func runeToGrapheme(line string, runes int) int {
	off := 0
	for i := 0; i < runes && off < len(line); i++ {
		_, size := utf8.DecodeRuneInString(line[off:])
		off += size
	}
	return grapheme.FromByteOffset(line, off)
}

// findMatch returns the start of the count-th match after (forward) or
// before p, wrapping around the buffer.
func (s *State) findMatch(p cursor.Position, pattern string, forward bool, count int) (cursor.Position, bool) {
	if pattern == "" {
		return p, false
	}
	re := s.searchRegexp(pattern)
	for ; count > 0; count-- {
		q, ok := s.findOne(re, p, forward)
		if !ok {
			return p, false
		}
		p = q
	}
	return p, true
}

func (s *State) findOne(re *regexp2.Regexp, p cursor.Position, forward bool) (cursor.Position, bool) {
	n := s.doc.lineCount()
	for i := 0; i <= n; i++ {
		l := (p.Line + i) % n
		if !forward {
			l = ((p.Line-i)%n + n) % n
		}
		matches := lineMatches(re, s.doc.line(l))
		if forward {
			for _, m := range matches {
				if i == 0 && m[0] <= p.Col {
					continue
				}
				if i == n && m[0] > p.Col {
					continue
				}
				return cursor.At(l, m[0]), true
			}
			continue
		}
		for j := len(matches) - 1; j >= 0; j-- {
			m := matches[j]
			if i == 0 && m[0] >= p.Col {
				continue
			}
			if i == n && m[0] < p.Col {
				continue
			}
			return cursor.At(l, m[0]), true
		}
	}
	return p, false
}

// SearchHighlights returns the ranges matching the last search when
// highlighting is enabled.
func (s *Session) SearchHighlights(ctx context.Context) []cursor.Range {
	var out []cursor.Range
	_ = s.queue.Run(ctx, true, func(ctx context.Context) error {
		st := s.st
		search, ok := s.global.Search().Get()
		if !ok || !s.cfg.HLSearch || search.Pattern == "" {
			return nil
		}
		st.ctx = ctx
		re := st.searchRegexp(search.Pattern)
		for l := 0; l < st.doc.lineCount(); l++ {
			for _, m := range lineMatches(re, st.doc.line(l)) {
				out = append(out, cursor.NewRange(cursor.At(l, m[0]), cursor.At(l, m[1])))
			}
		}
		return nil
	})
	return out
}

func (s *State) startSearch(forward bool) {
	s.modeBeforeSearch = s.mode
	s.searchInput = &searchInput{forward: forward, histIdx: len(s.global.SearchHistory())}
	s.mode = ModeSearchInProgress
}

func (s *State) cancelSearch() {
	s.mode = s.modeBeforeSearch
	s.searchInput = nil
	if s.operatorPending() {
		s.resetRecorded()
	}
}

func registerSearchMotions(r *Registry) {
	r.Register(
		&Motion{
			actionBase: actionBase{name: motionSearchCommit, keys: keys(notation.CR), modes: []Mode{ModeSearchInProgress}},
			execCount: func(s *State, p cursor.Position, count int) Movement {
				in := s.searchInput
				if in == nil {
					return failedAt(p)
				}
				s.mode = s.modeBeforeSearch
				pattern := in.pattern
				if pattern == "" {
					if last, ok := s.global.Search().Get(); ok {
						pattern = last.Pattern
					}
				}
				s.global.pushSearchHistory(pattern, s.cfg.SearchHistory)
				s.global.setSearch(SearchState{Pattern: pattern, Forward: in.forward})

				q, ok := s.findMatch(p, pattern, in.forward, max(1, count))
				if !ok {
					return failedAt(p)
				}
				return moveTo(q)
			},
		},
		searchRepeatMotion("search.next", "n", false),
		searchRepeatMotion("search.previous", "N", true),
		wordSearchMotion("search.word_forward", "*", true),
		wordSearchMotion("search.word_backward", "#", false),
	)
}

func searchRepeatMotion(name, key string, reverse bool) *Motion {
	return &Motion{
		actionBase: actionBase{name: name, keys: keys(key), modes: normalAndVisual},
		execCount: func(s *State, p cursor.Position, count int) Movement {
			last, ok := s.global.Search().Get()
			if !ok {
				return failedAt(p)
			}
			forward := last.Forward != reverse
			q, ok := s.findMatch(p, last.Pattern, forward, max(1, count))
			if !ok {
				return failedAt(p)
			}
			return moveTo(q)
		},
	}
}

func wordSearchMotion(name, key string, forward bool) *Motion {
	return &Motion{
		actionBase: actionBase{name: name, keys: keys(key), modes: normalAndVisual},
		execCount: func(s *State, p cursor.Position, count int) Movement {
			if s.doc.isBlankAt(p) {
				return failedAt(p)
			}
			start := s.doc.currentWordStart(p, false)
			end := s.doc.right(s.doc.currentWordEnd(p, false))
			pattern := `\b` + regexp2.Escape(s.doc.text(start, end)) + `\b`
			s.global.pushSearchHistory(pattern, s.cfg.SearchHistory)
			s.global.setSearch(SearchState{Pattern: pattern, Forward: forward})

			from := start
			if forward {
				from = cursor.At(start.Line, end.Col-1)
			}
			q, ok := s.findMatch(from, pattern, forward, max(1, count))
			if !ok {
				return failedAt(p)
			}
			return moveTo(q)
		},
	}
}

func registerSearchCommands(r *Registry) {
	inSearch := []Mode{ModeSearchInProgress}
	r.Register(
		&Command{
			actionBase: actionBase{name: "search.start_forward", keys: keys("/"), modes: normalAndVisual},
			execAll: func(s *State) error {
				s.startSearch(true)
				return nil
			},
			incomplete: true,
		},
		&Command{
			actionBase: actionBase{name: "search.start_backward", keys: keys("?"), modes: normalAndVisual},
			execAll: func(s *State) error {
				s.startSearch(false)
				return nil
			},
			incomplete: true,
		},
		&Command{
			actionBase: actionBase{name: "search.cancel", keys: alt(seq(notation.Esc), seq(notation.CtrlBr)), modes: inSearch},
			execAll: func(s *State) error {
				s.cancelSearch()
				return nil
			},
			incomplete: true,
		},
		&Command{
			actionBase: actionBase{name: "search.backspace", keys: alt(seq(notation.BS), seq(notation.ShiftBS)), modes: inSearch},
			execAll: func(s *State) error {
				in := s.searchInput
				if in == nil || in.pattern == "" {
					s.cancelSearch()
					return nil
				}
				in.pattern = grapheme.Slice(in.pattern, 0, grapheme.Count(in.pattern)-1)
				return nil
			},
			incomplete: true,
		},
		&Command{
			actionBase: actionBase{name: "search.history_previous", keys: keys(notation.Up), modes: inSearch},
			execAll: func(s *State) error {
				s.walkSearchHistory(-1)
				return nil
			},
			incomplete: true,
		},
		&Command{
			actionBase: actionBase{name: "search.history_next", keys: keys(notation.Down), modes: inSearch},
			execAll: func(s *State) error {
				s.walkSearchHistory(1)
				return nil
			},
			incomplete: true,
		},
		&Command{
			actionBase: actionBase{name: "search.type", keys: keys(keyCharacter), modes: inSearch, when: notKey(notation.CR)},
			execAll: func(s *State) error {
				if in := s.searchInput; in != nil {
					in.pattern += notation.Text(s.typed(0))
				}
				return nil
			},
			incomplete: true,
		},
	)
}

// walkSearchHistory steps through committed patterns; stepping past the
// newest restores what was typed.
func (s *State) walkSearchHistory(step int) {
	in := s.searchInput
	if in == nil {
		return
	}
	history := s.global.SearchHistory()
	if in.histIdx == len(history) {
		in.typed = in.pattern
	}
	in.histIdx = max(0, min(in.histIdx+step, len(history)))
	if in.histIdx == len(history) {
		in.pattern = in.typed
		return
	}
	in.pattern = history[in.histIdx]
}
