package strategy

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds scoring modules in evaluation order. It is safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	modules []Module
	byName  map[string]int
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// NewDefaultRegistry registers the nine standard modules in scoring order.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(Structure{})
	r.Register(FairValueGap{})
	r.Register(RSIBollinger{})
	r.Register(Liquidity{})
	r.Register(VolumeProfile{})
	r.Register(OrderBlock{})
	r.Register(PDArray{})
	r.Register(OTE{})
	r.Register(KillZone{})
	return r
}

// Register appends a module. A module with the same name is replaced in
// place, keeping its position.
func (r *Registry) Register(m Module) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.byName[m.Name()]; ok {
		r.modules[i] = m
		return
	}
	r.byName[m.Name()] = len(r.modules)
	r.modules = append(r.modules, m)
}

// Get retrieves a module by name.
func (r *Registry) Get(name string) (Module, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("module %q: not registered", name)
	}
	return r.modules[i], nil
}

// List returns the names of all registered modules in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.modules))
	for _, m := range r.modules {
		names = append(names, m.Name())
	}
	sort.Strings(names)
	return names
}

// Modules returns the modules in evaluation order, excluding disabled names.
func (r *Registry) Modules(disabled ...string) []Module {
	off := make(map[string]bool, len(disabled))
	for _, d := range disabled {
		off[d] = true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Module, 0, len(r.modules))
	for _, m := range r.modules {
		if !off[m.Name()] {
			out = append(out, m)
		}
	}
	return out
}
