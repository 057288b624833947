package vim

import (
	"fmt"
	"slices"
	"sync"
)

// Registry is the ordered catalog of action prototypes. Registration order is
// significant: when several actions match, the earliest wins.
type Registry struct {
	mu      sync.RWMutex
	actions []Action
	byName  map[string]Action
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Action)}
}

// Register appends actions. Names only need to be unique for lookups; the
// last registration under a name wins there.
func (r *Registry) Register(actions ...Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range actions {
		r.actions = append(r.actions, a)
		r.byName[a.Name()] = a
	}
}

// All returns the prototypes in registration order.
func (r *Registry) All() []Action {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.actions)
}

// Lookup returns the prototype registered under name.
func (r *Registry) Lookup(name string) (Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byName[name]
	return a, ok
}

func (r *Registry) mustLookup(name string) Action {
	a, ok := r.Lookup(name)
	if !ok {
		panic(fmt.Sprintf("vim: action %q is not registered", name))
	}
	return a
}

// RelevantAction resolves the pressed keys. On KeypressMatched the returned
// action is a fresh instance carrying keys as KeysPressed.
func (r *Registry) RelevantAction(s *State, keys []string) (Action, KeypressState) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	waiting := false
	for _, a := range r.actions {
		if doesActionApply(s, a, keys) {
			return a.instantiate(keys), KeypressMatched
		}
		if !waiting && couldActionApply(s, a, keys) {
			waiting = true
		}
	}
	if waiting {
		return nil, WaitingOnKeys
	}
	return nil, NoPossibleMatch
}

var (
	defaultRegistryOnce sync.Once
	defaultRegistry     *Registry
)

// DefaultRegistry returns the built-in action catalog, shared by all sessions.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		r := NewRegistry()
		registerCommands(r)
		registerMotions(r)
		registerOperators(r)
		defaultRegistry = r
	})
	return defaultRegistry
}
