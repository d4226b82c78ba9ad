package poolbridge

import (
	"fmt"
	"sync"
)

// Registry tracks which targets are configured, keyed by [TargetConfig.ID].
//
// A Registry is an explicit value owned by whoever creates it; there is no
// process-wide registry. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	targets map[string]TargetConfig
	order   []string
}

// NewRegistry creates an empty [Registry].
func NewRegistry() *Registry {
	return &Registry{targets: make(map[string]TargetConfig)}
}

// Add registers cfg.
//
// Returns an error wrapping [ErrDuplicateTarget] if a target with the same
// host and path is already registered.
func (r *Registry) Add(cfg TargetConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := cfg.ID()
	if _, exists := r.targets[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTarget, id)
	}
	r.targets[id] = cfg
	r.order = append(r.order, id)
	return nil
}

// Remove unregisters the target with the given ID.
// Returns false if it was not registered.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.targets[id]; !exists {
		return false
	}
	delete(r.targets, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Contains reports whether a target with the given ID is registered.
func (r *Registry) Contains(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.targets[id]
	return ok
}

// Get returns the target registered under id.
func (r *Registry) Get(id string) (TargetConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.targets[id]
	return cfg, ok
}

// Len returns the number of registered targets.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.targets)
}

// Targets returns the registered targets in registration order.
func (r *Registry) Targets() []TargetConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]TargetConfig, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.targets[id])
	}
	return out
}
