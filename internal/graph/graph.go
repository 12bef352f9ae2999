// Package graph orders resources so that providers are installed before the
// resources that consume them.
package graph

import (
	"github.com/anvil-platform/provisioner/internal/environment"
	"github.com/anvil-platform/provisioner/internal/resource"
)

// Edge points from a consumer to the provider of one of its mandatory requirements.
type Edge struct {
	Consumer    *resource.Resource
	Provider    *resource.Resource
	Requirement *resource.Requirement
}

// DependencyGraph is a dependency graph over a fixed set of resources.
type DependencyGraph struct {
	nodes []*resource.Resource
	index map[*resource.Resource]int
	edges []Edge
}

// Build links every node to the other nodes providing its mandatory
// requirements. Requirements already satisfied by env produce no edge; env may be nil.
func Build(resources []*resource.Resource, env environment.Environment) *DependencyGraph {
	g := &DependencyGraph{index: make(map[*resource.Resource]int, len(resources))}
	for _, res := range resources {
		if _, dup := g.index[res]; dup || res == nil {
			continue
		}
		g.index[res] = len(g.nodes)
		g.nodes = append(g.nodes, res)
	}

	for _, consumer := range g.nodes {
		for _, req := range consumer.Requirements() {
			if req.Optional() {
				continue
			}
			if env != nil && len(env.FindProviders(req)) > 0 {
				continue
			}
			for _, provider := range g.nodes {
				if provider == consumer {
					continue
				}
				if provides(provider, req) {
					g.edges = append(g.edges, Edge{Consumer: consumer, Provider: provider, Requirement: req})
				}
			}
		}
	}
	return g
}

func provides(res *resource.Resource, req *resource.Requirement) bool {
	for _, c := range res.Capabilities(req.Namespace()) {
		if req.Matches(c) {
			return true
		}
	}
	return false
}

// Nodes returns the resources in input order.
func (g *DependencyGraph) Nodes() []*resource.Resource {
	out := make([]*resource.Resource, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Edges returns the dependency edges in discovery order.
func (g *DependencyGraph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// InstallOrder returns the nodes with providers ahead of consumers. Among
// ready nodes, input order wins. When only cycles remain, the first node that
// another remaining node depends on is released.
func (g *DependencyGraph) InstallOrder() []*resource.Resource {
	pending := make([]int, len(g.nodes))
	consumers := make([][]int, len(g.nodes))
	seen := make(map[[2]int]bool)
	for _, e := range g.edges {
		c, p := g.index[e.Consumer], g.index[e.Provider]
		if seen[[2]int{c, p}] {
			continue
		}
		seen[[2]int{c, p}] = true
		pending[c]++
		consumers[p] = append(consumers[p], c)
	}

	done := make([]bool, len(g.nodes))
	order := make([]*resource.Resource, 0, len(g.nodes))
	emit := func(i int) {
		done[i] = true
		order = append(order, g.nodes[i])
		for _, c := range consumers[i] {
			pending[c]--
		}
	}

	for len(order) < len(g.nodes) {
		progressed := false
		for i := range g.nodes {
			if !done[i] && pending[i] <= 0 {
				emit(i)
				progressed = true
				break
			}
		}
		if progressed {
			continue
		}
		emit(g.cycleBreaker(done, consumers))
	}
	return order
}

// cycleBreaker picks the first remaining node that a remaining node depends on.
func (g *DependencyGraph) cycleBreaker(done []bool, consumers [][]int) int {
	first := -1
	for i := range g.nodes {
		if done[i] {
			continue
		}
		if first < 0 {
			first = i
		}
		for _, c := range consumers[i] {
			if !done[c] {
				return i
			}
		}
	}
	return first
}
