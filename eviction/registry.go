package eviction

import (
	"sort"
	"strings"
	"sync"
)

// Factory builds a fresh Policy instance.
type Factory func() Policy

// Registry maps policy names to factories. Names are case-insensitive.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a registry holding the built-in lfru and none policies.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register(NameLFRU, func() Policy { return NewLFRU() })
	r.Register(NameNone, func() Policy { return NewNone() })
	return r
}

// Register adds or replaces the factory for name.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[normalize(name)] = factory
}

// Lookup returns a new policy for name and reports whether name was registered.
// Unknown names resolve to the none policy.
func (r *Registry) Lookup(name string) (Policy, bool) {
	r.mu.RLock()
	factory, ok := r.factories[normalize(name)]
	r.mu.RUnlock()

	if !ok {
		return NewNone(), false
	}
	return factory(), true
}

// New is Lookup without the found flag.
func (r *Registry) New(name string) Policy {
	p, _ := r.Lookup(name)
	return p
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
