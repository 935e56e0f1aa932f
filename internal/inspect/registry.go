package inspect

import "sync"

// Registry owns one Inspector per tracked project, created lazily on first
// access. Inspectors for different projects share nothing.
//
// There is no idle eviction: a long-running server that accumulates many
// distinct project identifiers should bound this externally.
type Registry struct {
	mu         sync.RWMutex
	inspectors map[string]*Inspector
	opts       []Option
}

// NewRegistry returns an empty registry. opts are applied to every
// inspector the registry creates.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		inspectors: make(map[string]*Inspector),
		opts:       opts,
	}
}

// Get returns the project's inspector, creating a Disconnected one on first
// access.
func (r *Registry) Get(projectID string) *Inspector {
	r.mu.RLock()
	insp, ok := r.inspectors[projectID]
	r.mu.RUnlock()
	if ok {
		return insp
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if insp, ok := r.inspectors[projectID]; ok {
		return insp
	}
	insp = New(r.opts...)
	r.inspectors[projectID] = insp
	return insp
}

// Clear disposes the project's inspector, dropping its config and cache.
// A later Get creates a fresh Disconnected instance.
func (r *Registry) Clear(projectID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if insp, ok := r.inspectors[projectID]; ok {
		insp.Clear()
		delete(r.inspectors, projectID)
	}
}

// Len returns the number of tracked projects.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.inspectors)
}
