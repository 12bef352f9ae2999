package provision

import (
	"github.com/anvil-platform/provisioner/internal/environment"
	"github.com/anvil-platform/provisioner/internal/resource"
)

// closure is the search state of a single Resolve call.
type closure struct {
	clone environment.Environment

	requested []*resource.Requirement
	// seeds are owners of requested requirements that were not installed.
	seeds []*resource.Resource
	// installedOwners are owners of requested requirements already installed.
	installedOwners []*resource.Resource

	mapping     map[*resource.Requirement]*resource.Resource
	unsatisfied *requirementSet
	results     []*resource.Resource
}

func newClosure(clone environment.Environment, reqs []*resource.Requirement) *closure {
	c := &closure{
		clone:       clone,
		requested:   reqs,
		mapping:     make(map[*resource.Requirement]*resource.Resource),
		unsatisfied: newRequirementSet(),
	}
	seen := make(map[*resource.Resource]bool)
	for _, req := range reqs {
		c.unsatisfied.add(req)
		owner := req.Resource()
		if seen[owner] {
			continue
		}
		seen[owner] = true
		if clone.Contains(owner) {
			c.installedOwners = append(c.installedOwners, owner)
			continue
		}
		clone.Install(owner)
		c.seeds = append(c.seeds, owner)
	}
	return c
}

// installed reports whether res is already part of the clone, either because
// the caller's environment had it or because an earlier pass installed it.
func (c *closure) installed(res *resource.Resource) bool {
	return c.clone.Contains(res)
}

func (c *closure) result() *Result {
	out := &Result{
		mapping:     c.mapping,
		unsatisfied: c.unsatisfied.list(),
	}
	for _, res := range c.results {
		if !res.Abstract() {
			out.resources = append(out.resources, res)
		}
	}
	return out
}

// requirementSet is an insertion-ordered set of requirements.
type requirementSet struct {
	order   []*resource.Requirement
	members map[*resource.Requirement]bool
	size    int
}

func newRequirementSet() *requirementSet {
	return &requirementSet{members: make(map[*resource.Requirement]bool)}
}

func (s *requirementSet) add(req *resource.Requirement) {
	present, seen := s.members[req]
	if present {
		return
	}
	if !seen {
		s.order = append(s.order, req)
	}
	s.members[req] = true
	s.size++
}

func (s *requirementSet) remove(req *resource.Requirement) {
	if s.members[req] {
		s.members[req] = false
		s.size--
	}
}

func (s *requirementSet) len() int {
	return s.size
}

func (s *requirementSet) empty() bool {
	return s.size == 0
}

func (s *requirementSet) list() []*resource.Requirement {
	out := make([]*resource.Requirement, 0, s.size)
	for _, req := range s.order {
		if s.members[req] {
			out = append(out, req)
		}
	}
	return out
}
