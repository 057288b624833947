package vim

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/modal/internal/buffer"
	"github.com/zjrosen/modal/internal/cachemanager"
	"github.com/zjrosen/modal/internal/config"
	"github.com/zjrosen/modal/internal/cursor"
	"github.com/zjrosen/modal/internal/log"
	"github.com/zjrosen/modal/internal/notation"
	"github.com/zjrosen/modal/internal/pubsub"
	"github.com/zjrosen/modal/internal/tracing"
)

var (
	// ErrSessionClosed is returned by entry points after Close.
	ErrSessionClosed = errors.New("session closed")
	// ErrNoPreviousAction is reported when dot-repeat has nothing to replay.
	ErrNoPreviousAction = errors.New("no previous action to repeat")
)

// lastKeyWindow is present in the key window cache while a multi-key
// remap may still complete.
const lastKeyWindow = "last-key"

// SessionEvent is the payload of every event a session publishes.
type SessionEvent struct {
	SessionID string
	Mode      Mode
	Cursors   []cursor.Range
	// Pending is the partially typed command.
	Pending       string
	Recording     bool
	MacroRegister string
	CommandLine   string
	Err           error
}

// Option configures a Session.
type Option func(*Session)

// WithConfig sets the configuration. Defaults apply otherwise.
func WithConfig(cfg config.Config) Option {
	return func(s *Session) {
		s.cfg = cfg
	}
}

// WithGlobalState shares registers, dot-repeat and search state with other sessions.
func WithGlobalState(g *GlobalState) Option {
	return func(s *Session) {
		s.global = g
	}
}

// WithRegistry replaces the built-in action catalog.
func WithRegistry(r *Registry) Option {
	return func(s *Session) {
		s.registry = r
	}
}

// WithTracer sets the tracing provider.
func WithTracer(p *tracing.Provider) Option {
	return func(s *Session) {
		s.tracer = p.Tracer()
	}
}

// WithBroker publishes session events on b instead of a private broker.
func WithBroker(b *pubsub.Broker[SessionEvent]) Option {
	return func(s *Session) {
		s.broker = b
		s.ownsBroker = false
	}
}

// WithKeyWindow replaces the cache holding the remap timeout window.
func WithKeyWindow(c cachemanager.CacheManager[string, time.Time]) Option {
	return func(s *Session) {
		s.window = c
	}
}

// WithSessionID overrides the generated session id.
func WithSessionID(id string) Option {
	return func(s *Session) {
		s.id = id
	}
}

// Session is one editing session bound to a host buffer. Key events and
// selection changes are serialized on a task queue; selection changes use
// its priority lane.
type Session struct {
	id       string
	cfg      config.Config
	global   *GlobalState
	registry *Registry
	tracer   trace.Tracer

	broker     *pubsub.Broker[SessionEvent]
	ownsBroker bool

	st         *State
	queue      *TaskQueue
	normalizer *notation.Normalizer
	window     cachemanager.CacheManager[string, time.Time]
	remappers  []*Remapper

	activeMode                     Mode
	isCurrentlyPerformingRemapping bool
	couldRemappingApply            bool
	remapDepth                     int

	closed atomic.Bool

	viewMu sync.RWMutex
	view   SessionEvent
}

// NewSession starts a session editing host.
func NewSession(host buffer.Host, opts ...Option) *Session {
	s := &Session{
		id:         uuid.NewString(),
		cfg:        config.Defaults(),
		ownsBroker: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.global == nil {
		s.global = NewGlobalState()
	}
	if s.registry == nil {
		s.registry = DefaultRegistry()
	}
	if s.tracer == nil {
		s.tracer = tracing.Noop().Tracer()
	}
	if s.broker == nil {
		s.broker = pubsub.NewBroker[SessionEvent]()
	}
	if s.window == nil {
		s.window = cachemanager.NewInMemoryCacheManager[string, time.Time]("remap-window", s.cfg.Timeout, time.Minute)
	}

	s.normalizer = notation.New(s.cfg.Leader)
	s.st = newState(host, s.global, s.registry, &s.cfg)
	s.st.publish = s.publish
	s.activeMode = s.st.mode
	s.queue = NewTaskQueue()
	s.buildRemappers()
	s.refreshView()

	log.Info(log.CatDispatch, "session started", "session", s.id, "mode", s.st.mode)
	return s
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// HandleKeyEvent dispatches one key and returns once the cycle, including
// any host edits, has completed. Action failures are absorbed; only queue
// and context errors are returned.
func (s *Session) HandleKeyEvent(ctx context.Context, key string) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	key = s.normalizer.Normalize(key)
	return s.queue.Run(ctx, false, func(ctx context.Context) error {
		s.handleKeyEvent(ctx, key)
		return nil
	})
}

// HandleKeys dispatches keys written in key notation, such as "d2w<Esc>".
func (s *Session) HandleKeys(ctx context.Context, keys string) error {
	for _, k := range s.normalizer.Split(keys) {
		if err := s.HandleKeyEvent(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

// HandleSelectionChange reconciles a selection change made by the host,
// such as a mouse click. It jumps ahead of queued key events.
func (s *Session) HandleSelectionChange(ctx context.Context, selections []cursor.Range) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	sel := slices.Clone(selections)
	return s.queue.Run(ctx, true, func(ctx context.Context) error {
		s.handleSelectionChange(ctx, sel)
		return nil
	})
}

// ReloadRemappers applies a new configuration and rebuilds the remappers.
func (s *Session) ReloadRemappers(ctx context.Context, cfg config.Config) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	return s.queue.Run(ctx, false, func(ctx context.Context) error {
		_, span := s.tracer.Start(ctx, tracing.SpanConfigReloaded,
			trace.WithAttributes(attribute.String(tracing.AttrSessionID, s.id)))
		defer span.End()

		s.cfg = cfg
		s.st.doc.keyword = cfg.IsKeyword
		s.normalizer = notation.New(cfg.Leader)
		s.buildRemappers()
		log.Info(log.CatConfig, "remappers rebuilt", "session", s.id, "remappers", len(s.remappers))
		s.publish(pubsub.ConfigReloadedEvent)
		return nil
	})
}

// Close tears the session down after queued work finishes.
func (s *Session) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.queue.Close()
	s.publish(pubsub.SessionClosedEvent)
	if s.ownsBroker {
		s.broker.Close()
	}
	log.Info(log.CatDispatch, "session closed", "session", s.id)
}

// Events returns the broker session events are published on.
func (s *Session) Events() pubsub.Subscriber[SessionEvent] {
	return s.broker
}

// Registers returns the shared register file.
func (s *Session) Registers() *Registers {
	return s.global.Registers()
}

// Global returns the shared global state.
func (s *Session) Global() *GlobalState {
	return s.global
}

// Mode returns the mode as of the last completed cycle.
func (s *Session) Mode() Mode {
	s.viewMu.RLock()
	defer s.viewMu.RUnlock()
	return s.view.Mode
}

// Cursors returns the cursors as of the last completed cycle.
func (s *Session) Cursors() []cursor.Range {
	s.viewMu.RLock()
	defer s.viewMu.RUnlock()
	return slices.Clone(s.view.Cursors)
}

// Pending returns the partially typed command.
func (s *Session) Pending() string {
	s.viewMu.RLock()
	defer s.viewMu.RUnlock()
	return s.view.Pending
}

// CommandLine returns the search prompt being typed, such as "/foo", or "".
func (s *Session) CommandLine() string {
	s.viewMu.RLock()
	defer s.viewMu.RUnlock()
	return s.view.CommandLine
}

// MacroRegister returns the register a macro is being recorded into.
func (s *Session) MacroRegister() string {
	s.viewMu.RLock()
	defer s.viewMu.RUnlock()
	return s.view.MacroRegister
}

// IsRecording reports whether a macro is being recorded.
func (s *Session) IsRecording() bool {
	s.viewMu.RLock()
	defer s.viewMu.RUnlock()
	return s.view.Recording
}

// LastVisualSelection returns the most recent visual selection.
func (s *Session) LastVisualSelection() VisualSelection {
	var out VisualSelection
	_ = s.queue.Run(context.Background(), true, func(context.Context) error {
		out = s.st.lastVisual
		return nil
	})
	return out
}

func (s *Session) refreshView() {
	st := s.st
	v := SessionEvent{
		SessionID:     s.id,
		Mode:          st.mode,
		Cursors:       slices.Clone(st.cursors),
		Pending:       st.recorded.CommandString(),
		Recording:     st.isRecordingMacro,
		MacroRegister: st.macroRegister,
	}
	if st.searchInput != nil {
		v.CommandLine = st.searchInput.prompt()
	}
	s.viewMu.Lock()
	s.view = v
	s.viewMu.Unlock()
}

// publish refreshes the view and publishes it. It must run on the queue
// worker or after the queue has stopped.
func (s *Session) publish(t pubsub.EventType) {
	s.refreshView()
	s.viewMu.RLock()
	v := s.view
	s.viewMu.RUnlock()
	v.Cursors = slices.Clone(v.Cursors)
	s.broker.Publish(t, v)
}

func (s *Session) publishErr(t pubsub.EventType, err error) {
	s.viewMu.RLock()
	v := s.view
	s.viewMu.RUnlock()
	v.Err = err
	s.broker.Publish(t, v)
}
