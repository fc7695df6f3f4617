// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package harness

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry manages named evaluation specs and dataset loaders.
//
// Description:
//
//	The Registry is the central lookup table the CLI and server use to
//	find evaluations by name and to resolve ground-truth loaders by
//	dataset identifier.
//
// Thread Safety: Safe for concurrent use via read-write mutex.
type Registry struct {
	mu      sync.RWMutex
	specs   map[string]Spec
	loaders map[string]DatasetLoader
	hooks   []RegistrationHook
}

// RegistrationHook is called when a spec is registered or
// unregistered.
type RegistrationHook func(name string, spec Spec, registered bool)

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		specs:   make(map[string]Spec),
		loaders: make(map[string]DatasetLoader),
	}
}

// Register adds a spec under its Name(). The name must be unique.
//
// Outputs:
//   - error: nil on success, ErrNilSpec for nil input,
//     ErrAlreadyRegistered for a duplicate name.
func (r *Registry) Register(spec Spec) error {
	if spec == nil {
		return ErrNilSpec
	}
	name := spec.Name()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.specs[name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}
	r.specs[name] = spec

	for _, hook := range r.hooks {
		hook(name, spec, true)
	}
	return nil
}

// MustRegister registers a spec and panics on error. Intended for
// init-time registration only.
func (r *Registry) MustRegister(spec Spec) {
	if err := r.Register(spec); err != nil {
		panic(fmt.Sprintf("harness: failed to register %v: %v", spec.Name(), err))
	}
}

// Unregister removes a spec by name.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	spec, exists := r.specs[name]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	delete(r.specs, name)

	for _, hook := range r.hooks {
		hook(name, spec, false)
	}
	return nil
}

// Get returns the spec with the given name.
func (r *Registry) Get(name string) (Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[name]
	return spec, ok
}

// List returns the registered spec names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered specs.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.specs)
}

// AddHook attaches a registration hook. Hooks run synchronously under
// the registry lock; keep them fast.
func (r *Registry) AddHook(hook RegistrationHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, hook)
}

// RegisterLoader binds a dataset loader to a dataset identifier.
func (r *Registry) RegisterLoader(dataset string, loader DatasetLoader) error {
	if loader == nil {
		return ErrNilSpec
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.loaders[dataset]; exists {
		return fmt.Errorf("%w: loader for %s", ErrAlreadyRegistered, dataset)
	}
	r.loaders[dataset] = loader
	return nil
}

// Loader returns the loader bound to a dataset identifier.
func (r *Registry) Loader(dataset string) (DatasetLoader, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	loader, ok := r.loaders[dataset]
	return loader, ok
}

// Load dispatches to the loader registered for the dataset, which
// makes *Registry usable directly as the Runner's DatasetLoader.
func (r *Registry) Load(ctx context.Context, dataset string) ([]any, error) {
	loader, ok := r.Loader(dataset)
	if !ok {
		return nil, fmt.Errorf("%w: loader for %s", ErrNotFound, dataset)
	}
	return loader.Load(ctx, dataset)
}

// Clear removes all specs and loaders. Intended for tests.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs = make(map[string]Spec)
	r.loaders = make(map[string]DatasetLoader)
}

// -----------------------------------------------------------------------------
// Default Registry
// -----------------------------------------------------------------------------

// DefaultRegistry is the process-wide registry used by the
// package-level functions.
var DefaultRegistry = NewRegistry()

// Register adds a spec to the default registry.
func Register(spec Spec) error { return DefaultRegistry.Register(spec) }

// MustRegister adds a spec to the default registry, panicking on
// error.
func MustRegister(spec Spec) { DefaultRegistry.MustRegister(spec) }

// Get looks up a spec in the default registry.
func Get(name string) (Spec, bool) { return DefaultRegistry.Get(name) }

// List returns the default registry's spec names.
func List() []string { return DefaultRegistry.List() }

var _ DatasetLoader = (*Registry)(nil)
