package environment

import (
	"slices"
	"sync"

	"github.com/anvil-platform/provisioner/internal/resource"
)

// Environment is the working set of resources considered present for solving.
type Environment interface {
	// Install adds resources. Installing a resource twice is a no-op.
	Install(res ...*resource.Resource)

	// Resources returns installed resources exposing a capability in any of the
	// given namespaces, or every installed resource when none are given.
	Resources(ns ...resource.Namespace) []*resource.Resource

	// Contains reports whether res is installed.
	Contains(res *resource.Resource) bool

	// FindProviders returns installed capabilities matching req.
	FindProviders(req *resource.Requirement) []*resource.Capability

	// Clone returns an independent copy. Installing into the copy does not
	// affect the original and vice versa.
	Clone() Environment
}

// Memory is an in-memory Environment that is safe for concurrent use.
type Memory struct {
	mu        sync.RWMutex
	resources []*resource.Resource
	index     map[*resource.Resource]struct{}
}

var _ Environment = (*Memory)(nil)

func NewMemory(res ...*resource.Resource) *Memory {
	m := &Memory{index: make(map[*resource.Resource]struct{})}
	m.Install(res...)
	return m
}

func (m *Memory) Install(res ...*resource.Resource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range res {
		if r == nil {
			continue
		}
		if _, ok := m.index[r]; ok {
			continue
		}
		m.index[r] = struct{}{}
		m.resources = append(m.resources, r)
	}
}

func (m *Memory) Resources(ns ...resource.Namespace) []*resource.Resource {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(ns) == 0 {
		return slices.Clone(m.resources)
	}
	out := make([]*resource.Resource, 0, len(m.resources))
	for _, r := range m.resources {
		if len(r.Capabilities(ns...)) > 0 {
			out = append(out, r)
		}
	}
	return out
}

func (m *Memory) Contains(res *resource.Resource) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.index[res]
	return ok
}

func (m *Memory) FindProviders(req *resource.Requirement) []*resource.Capability {
	if req == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*resource.Capability
	for _, r := range m.resources {
		for _, c := range r.Capabilities(req.Namespace()) {
			if req.Matches(c) {
				out = append(out, c)
			}
		}
	}
	return out
}

func (m *Memory) Clone() Environment {
	return NewMemory(m.Resources()...)
}

// Copy returns a Memory holding the resources of env. It is how foreign
// Environment implementations are cloned.
func Copy(env Environment) *Memory {
	return NewMemory(env.Resources()...)
}
