package collector

import (
	"sort"
	"sync"

	"github.com/newthinker/fxlab/internal/core"
)

// Registry manages history providers by name
type Registry struct {
	mu        sync.RWMutex
	providers map[string]HistoryProvider
}

// NewRegistry creates a new provider registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]HistoryProvider),
	}
}

// Register adds a provider to the registry, replacing one of the same name
func (r *Registry) Register(p HistoryProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get retrieves a provider by name
func (r *Registry) Get(name string) (HistoryProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// MustGet is Get with a CollectorNotFound error for unknown names.
func (r *Registry) MustGet(name string) (HistoryProvider, error) {
	p, ok := r.Get(name)
	if !ok {
		return nil, core.Errorf(core.ErrCollectorNotFound, "no collector named %q (have %v)", name, r.Names())
	}
	return p, nil
}

// Names returns the registered names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
