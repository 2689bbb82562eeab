package breaker

import "sync"

// Registry is the process-wide, lazily-populated map of named breakers
// (§4.2 Lifecycle, §9 "Global breaker registry"). Breakers are created on
// first use and live for the process's duration; they are never removed.
type Registry struct {
	mu       sync.RWMutex
	breakers map[string]*Breaker
	overrides map[string]Config
}

func NewRegistry() *Registry {
	return &Registry{breakers: make(map[string]*Breaker)}
}

// WithOverrides attaches per-name config overrides (typically loaded from
// a YAML file, see LoadOverridesYAML) applied the first time a breaker
// name is created. It does not affect breakers already created.
func (r *Registry) WithOverrides(overrides map[string]Config) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides = overrides
	return r
}

// Get returns the named breaker, creating it with its default (or
// overridden) config if this is the first reference.
func (r *Registry) Get(name string) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[name]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[name]; ok {
		return b
	}
	cfg := DefaultConfig(name)
	if override, ok := r.overrides[name]; ok {
		cfg = override
	}
	b = New(name, cfg)
	r.breakers[name] = b
	return b
}

// List returns the status of every breaker created so far, for the admin
// surface's "list circuit breakers" operation.
func (r *Registry) List() []Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Status, 0, len(r.breakers))
	for _, b := range r.breakers {
		out = append(out, b.Status())
	}
	return out
}

// Lookup returns the named breaker without creating it.
func (r *Registry) Lookup(name string) (*Breaker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.breakers[name]
	return b, ok
}
