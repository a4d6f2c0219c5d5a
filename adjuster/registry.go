package adjuster

import (
	"sort"
	"strings"
	"sync"
)

// Registry maps adjuster names to implementations. Names are case-insensitive.
type Registry struct {
	mu        sync.RWMutex
	adjusters map[string]Adjuster
}

// NewRegistry returns a registry holding the Default adjuster.
func NewRegistry() *Registry {
	r := &Registry{adjusters: make(map[string]Adjuster)}
	r.Register(NameDefault, Default{})
	return r
}

// Register adds or replaces the adjuster for name.
func (r *Registry) Register(name string, a Adjuster) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adjusters[strings.ToLower(strings.TrimSpace(name))] = a
}

// Lookup returns the adjuster for name and reports whether it was registered.
// Unknown names resolve to Default.
func (r *Registry) Lookup(name string) (Adjuster, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adjusters[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Default{}, false
	}
	return a, true
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.adjusters))
	for name := range r.adjusters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
