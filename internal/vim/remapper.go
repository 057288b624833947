package vim

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/modal/internal/buffer"
	"github.com/zjrosen/modal/internal/config"
	"github.com/zjrosen/modal/internal/log"
	"github.com/zjrosen/modal/internal/notation"
	"github.com/zjrosen/modal/internal/tracing"
)

// Remapper rewrites key sequences configured by the user. There are four:
// insert and other modes, each recursive and non-recursive.
type Remapper struct {
	name      string
	insert    bool
	recursive bool
	bindings  []config.KeyBinding
	longest   int
}

func newRemapper(name string, insert, recursive bool, bindings []config.KeyBinding, n *notation.Normalizer) *Remapper {
	r := &Remapper{name: name, insert: insert, recursive: recursive}
	for _, b := range bindings {
		nb := config.KeyBinding{
			Before:   normalizeKeys(n, b.Before),
			After:    normalizeKeys(n, b.After),
			Commands: b.Commands,
		}
		if len(nb.Before) == 0 {
			continue
		}
		r.bindings = append(r.bindings, nb)
		r.longest = max(r.longest, len(nb.Before))
	}
	return r
}

// normalizeKeys accepts both one key per entry and entries written in key
// notation ("<leader>w").
func normalizeKeys(n *notation.Normalizer, keys []string) []string {
	var out []string
	for _, k := range keys {
		if len(k) > 1 && !(strings.HasPrefix(k, "<") && strings.HasSuffix(k, ">") && strings.Count(k, "<") == 1) {
			out = append(out, n.Split(k)...)
			continue
		}
		out = append(out, n.Normalize(k))
	}
	return out
}

// Name returns the configuration key the remapper was built from.
func (r *Remapper) Name() string {
	return r.name
}

func (r *Remapper) appliesIn(m Mode) bool {
	if r.insert {
		return m == ModeInsert
	}
	return m == ModeNormal || m.IsVisual()
}

// find returns the binding matching keys. Outside insert mode the whole
// sequence must match; in insert mode any trailing slice may, so text can
// be typed before the mapping completes.
func (r *Remapper) find(keys []string) (config.KeyBinding, bool) {
	if !r.insert {
		for _, b := range r.bindings {
			if slices.Equal(b.Before, keys) {
				return b, true
			}
		}
		return config.KeyBinding{}, false
	}
	for n := 1; n <= min(r.longest, len(keys)); n++ {
		tail := keys[len(keys)-n:]
		for _, b := range r.bindings {
			if slices.Equal(b.Before, tail) {
				return b, true
			}
		}
	}
	return config.KeyBinding{}, false
}

// isPrefix reports whether keys could still grow into a binding.
func (r *Remapper) isPrefix(keys []string) bool {
	for _, b := range r.bindings {
		if len(keys) < len(b.Before) && slices.Equal(b.Before[:len(keys)], keys) {
			return true
		}
	}
	return false
}

func (s *Session) buildRemappers() {
	n := s.normalizer
	s.remappers = []*Remapper{
		newRemapper("insert_mode_key_bindings", true, true, s.cfg.InsertModeKeyBindings, n),
		newRemapper("other_modes_key_bindings", false, true, s.cfg.OtherModesKeyBindings, n),
		newRemapper("insert_mode_key_bindings_non_recursive", true, false, s.cfg.InsertModeKeyBindingsNonRecursive, n),
		newRemapper("other_modes_key_bindings_non_recursive", false, false, s.cfg.OtherModesKeyBindingsNonRecursive, n),
	}
}

// sendKeyToRemapper reports whether r consumed keys. When it only might,
// once more keys arrive, couldRemappingApply is raised instead.
func (s *Session) sendKeyToRemapper(ctx context.Context, r *Remapper, keys []string) (bool, error) {
	st := s.st
	if !r.appliesIn(st.mode) || len(r.bindings) == 0 {
		return false, nil
	}

	b, ok := r.find(keys)
	if !ok {
		if r.isPrefix(keys) {
			s.couldRemappingApply = true
		}
		return false, nil
	}

	s.remapDepth++
	defer func() { s.remapDepth-- }()
	if s.remapDepth > maxRemapDepth {
		return true, fmt.Errorf("remap %s: recursion deeper than %d", notation.Join(b.Before), maxRemapDepth)
	}

	ctx, span := s.tracer.Start(ctx, tracing.SpanRemapReplay, trace.WithAttributes(
		attribute.String(tracing.AttrSessionID, s.id),
		attribute.String(tracing.AttrRemapBefore, notation.Join(b.Before)),
		attribute.String(tracing.AttrRemapAfter, notation.Join(b.After)),
		attribute.Bool(tracing.AttrRecursive, r.recursive),
	))
	defer span.End()
	log.Debug(log.CatRemap, "remapping", "remapper", r.name, "before", b.Before, "after", b.After)

	provisional := len(b.Before) - 1
	if r.insert && provisional > 0 {
		if err := st.history.UndoAndRemoveChanges(ctx, provisional*len(st.cursors)); err != nil {
			return true, fmt.Errorf("remap %s: %w", notation.Join(b.Before), err)
		}
		s.dropProvisionalTyping(provisional)
	}
	rs := st.recorded
	rs.actionKeys = rs.actionKeys[:max(0, len(rs.actionKeys)-provisional)]
	st.keyHistory = st.keyHistory[:max(0, len(st.keyHistory)-provisional)]

	if !r.recursive {
		s.isCurrentlyPerformingRemapping = true
		defer func() { s.isCurrentlyPerformingRemapping = false }()
	}

	count := 1
	if !r.insert {
		count = max(1, rs.count)
		rs.count = 0
	}
	rs.dropRemappedKeys(len(b.Before), !r.insert)
	for i := 0; i < count; i++ {
		for _, k := range b.After {
			s.handleKeyEvent(ctx, k)
		}
	}
	for _, c := range b.Commands {
		if err := s.runBoundCommand(ctx, c); err != nil {
			return true, err
		}
	}
	return true, nil
}

// dropProvisionalTyping forgets the keys a content change recorded for
// the characters the remap just took back.
func (s *Session) dropProvisionalTyping(n int) {
	cc, ok := s.st.recorded.lastAction().(*ContentChangeAction)
	if !ok {
		return
	}
	cc.keysPressed = cc.keysPressed[:max(0, len(cc.keysPressed)-n)]
	if len(cc.keysPressed) == 0 {
		rs := s.st.recorded
		rs.actionsRun = rs.actionsRun[:len(rs.actionsRun)-1]
		if m := s.st.recordedMacro; s.st.isRecordingMacro && m.lastAction() == Action(cc) {
			m.actionsRun = m.actionsRun[:len(m.actionsRun)-1]
		}
		s.st.history.mark = nil
	}
}

// runBoundCommand runs a command bound by a remapping. ":" opens the
// command line; anything else goes to the host.
func (s *Session) runBoundCommand(ctx context.Context, c config.CommandBinding) error {
	host := s.st.host
	if prompt, ok := strings.CutPrefix(c.Command, ":"); ok {
		opener, ok := host.(buffer.CommandLineOpener)
		if !ok {
			log.Warn(log.CatRemap, "host cannot open a command line", "command", c.Command)
			return nil
		}
		if err := opener.OpenCommandLine(ctx, prompt); err != nil {
			return fmt.Errorf("open command line %q: %w", prompt, err)
		}
		return nil
	}
	runner, ok := host.(buffer.CommandRunner)
	if !ok {
		log.Warn(log.CatRemap, "host cannot run commands", "command", c.Command)
		return nil
	}
	if err := runner.RunCommand(ctx, c.Command, c.Args...); err != nil {
		return fmt.Errorf("run command %q: %w", c.Command, err)
	}
	return nil
}
