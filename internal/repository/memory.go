package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/anvil-platform/provisioner/internal/resource"
)

// Memory is a thread-safe in-memory provider index.
type Memory struct {
	mu        sync.RWMutex
	resources []*resource.Resource
	byKey     map[identityKey]*resource.Resource
}

type identityKey struct {
	name    string
	version string
}

var _ Repository = (*Memory)(nil)

func NewMemory(res ...*resource.Resource) *Memory {
	m := &Memory{byKey: make(map[identityKey]*resource.Resource)}
	m.Add(res...)
	return m
}

func keyOf(res *resource.Resource) identityKey {
	return identityKey{name: res.Name(), version: res.Version().String()}
}

// Add indexes resources. A resource whose identity (name and version) is
// already indexed is ignored.
func (m *Memory) Add(res ...*resource.Resource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range res {
		if r == nil || r.Query() {
			continue
		}
		k := keyOf(r)
		if _, ok := m.byKey[k]; ok {
			continue
		}
		m.byKey[k] = r
		m.resources = append(m.resources, r)
	}
}

// Remove drops res from the index. It reports whether res was indexed.
func (m *Memory) Remove(res *resource.Resource) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := slices.Index(m.resources, res)
	if i < 0 {
		return false
	}
	m.resources = slices.Delete(m.resources, i, i+1)
	delete(m.byKey, keyOf(res))
	return true
}

// Resources returns the indexed resources in insertion order.
func (m *Memory) Resources() []*resource.Resource {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.resources)
}

func (m *Memory) FindProviders(ctx context.Context, req *resource.Requirement) ([]*resource.Capability, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
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
	return out, nil
}
