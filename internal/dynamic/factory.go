/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package dynamic

import (
	"fmt"
	"sort"
	"sync"
)

// Factory creates biases of one persisted type.
type Factory interface {
	Name() string
	I18nName() string
	Description() string
	New(env Env) Bias
}

// Factories is a registry of bias factories keyed by type name.
type Factories struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewFactories creates an empty registry.
func NewFactories() *Factories {
	return &Factories{factories: make(map[string]Factory)}
}

// DefaultFactories returns a registry holding the built-in bias types.
func DefaultFactories() *Factories {
	f := NewFactories()
	f.Register(TagMatchFactory{})
	return f
}

// Register adds or replaces a factory.
func (f *Factories) Register(factory Factory) {
	f.mu.Lock()
	f.factories[factory.Name()] = factory
	f.mu.Unlock()
}

// Lookup returns the factory registered for name.
func (f *Factories) Lookup(name string) (Factory, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	factory, ok := f.factories[name]
	return factory, ok
}

// Names returns the registered type names in sorted order.
func (f *Factories) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.factories))
	for name := range f.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates a bias of the named type.
func (f *Factories) New(name string, env Env) (Bias, error) {
	factory, ok := f.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownBias)
	}
	return factory.New(env), nil
}

// TagMatchFactory creates TagMatch biases.
type TagMatchFactory struct{}

func (TagMatchFactory) Name() string     { return TagMatchName }
func (TagMatchFactory) I18nName() string { return "Match meta tag" }
func (TagMatchFactory) Description() string {
	return "The \"TagMatch\" bias adds tracks that\nfulfill a specific condition."
}
func (TagMatchFactory) New(env Env) Bias { return NewTagMatch(env) }
