/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package dynamic

import (
	"sort"
	"sync"
)

// Group holds long-lived biases by name so their results survive between
// evaluations. Invalidating the group invalidates every member.
type Group struct {
	mu     sync.RWMutex
	biases map[string]Bias
}

// NewGroup creates an empty group.
func NewGroup() *Group {
	return &Group{biases: make(map[string]Bias)}
}

// Put adds or replaces the bias stored under name.
func (g *Group) Put(name string, b Bias) {
	g.mu.Lock()
	g.biases[name] = b
	g.mu.Unlock()
}

// Get returns the bias stored under name.
func (g *Group) Get(name string) (Bias, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	b, ok := g.biases[name]
	return b, ok
}

// Remove drops the bias stored under name.
func (g *Group) Remove(name string) {
	g.mu.Lock()
	delete(g.biases, name)
	g.mu.Unlock()
}

// Names returns the member names in sorted order.
func (g *Group) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, 0, len(g.biases))
	for name := range g.biases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invalidate implements Invalidator.
func (g *Group) Invalidate() {
	g.mu.RLock()
	members := make([]Bias, 0, len(g.biases))
	for _, b := range g.biases {
		members = append(members, b)
	}
	g.mu.RUnlock()

	for _, b := range members {
		b.Invalidate()
	}
}
