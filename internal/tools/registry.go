package tools

import (
	"sort"
	"sync"

	"unityrunner/internal/version"
)

// Registry maps versions to installation paths. Iteration follows insertion
// order; adding an existing version replaces its path in place.
type Registry struct {
	mu    sync.RWMutex
	order []version.Version
	items map[version.Version]Installation
}

func NewRegistry(installs ...Installation) *Registry {
	r := &Registry{items: map[version.Version]Installation{}}
	for _, in := range installs {
		r.Add(in)
	}
	return r
}

func (r *Registry) Add(in Installation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[in.Version]; !ok {
		r.order = append(r.order, in.Version)
	}
	r.items[in.Version] = in
}

func (r *Registry) Get(v version.Version) (Installation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	in, ok := r.items[v]
	return in, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Installations returns entries in insertion order.
func (r *Registry) Installations() []Installation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Installation, 0, len(r.order))
	for _, v := range r.order {
		out = append(out, r.items[v])
	}
	return out
}

// Sorted returns entries ordered by version, ascending.
func (r *Registry) Sorted() []Installation {
	out := r.Installations()
	sortInstallations(out)
	return out
}

// Latest returns the greatest version present.
func (r *Registry) Latest() (Installation, bool) {
	sorted := r.Sorted()
	if len(sorted) == 0 {
		return Installation{}, false
	}
	return sorted[len(sorted)-1], true
}

func sortInstallations(in []Installation) {
	sort.SliceStable(in, func(i, j int) bool { return in[i].Version.Less(in[j].Version) })
}
