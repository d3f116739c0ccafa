package provider

import (
	"sort"
	"sync"

	"nekodl/pkg/config"
	errs "nekodl/pkg/errors"
)

// Entry describes one registered provider
type Entry struct {
	Name           string
	New            Constructor
	RequiresExtras bool
	Description    string
}

// Registry maps provider names to constructors
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register adds an entry. Registering a name twice replaces the earlier entry.
func (r *Registry) Register(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[e.Name] = e
}

// Lookup returns the entry for name
func (r *Registry) Lookup(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// Names returns the registered names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Entries returns all entries sorted by name
func (r *Registry) Entries() []Entry {
	names := r.Names()
	out := make([]Entry, 0, len(names))
	for _, name := range names {
		e, _ := r.Lookup(name)
		out = append(out, e)
	}
	return out
}

// RequiresExtras reports whether the named provider needs an extras file
func (r *Registry) RequiresExtras(name string) bool {
	e, ok := r.Lookup(name)
	return ok && e.RequiresExtras
}

// New constructs the named provider. Providers that require extras are
// rejected when none are given.
func (r *Registry) New(name string, deps Deps, extras config.Extras) (Provider, error) {
	e, ok := r.Lookup(name)
	if !ok {
		return nil, errs.New(errs.ErrorTypeUnsupported, "unknown provider %q", name)
	}
	if extras == nil {
		extras = config.Extras{}
	}
	if e.RequiresExtras && extras.IsEmpty() {
		return nil, errs.Config("provider %q requires an extras file", name)
	}
	return e.New(deps, extras)
}
