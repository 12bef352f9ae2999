package provision

import (
	"maps"
	"slices"

	"github.com/anvil-platform/provisioner/internal/resource"
)

// Result is the outcome of one Resolve call. It is immutable.
type Result struct {
	mapping     map[*resource.Requirement]*resource.Resource
	resources   []*resource.Resource
	unsatisfied []*resource.Requirement
}

// Mapping returns a copy of the requirement to provider mapping. Only requested
// requirements that the solver wired appear as keys.
func (r *Result) Mapping() map[*resource.Requirement]*resource.Resource {
	return maps.Clone(r.mapping)
}

// Provider returns the provider wired to req.
func (r *Result) Provider(req *resource.Requirement) (*resource.Resource, bool) {
	res, ok := r.mapping[req]
	return res, ok
}

// Resources returns the concrete resources to install, in discovery order.
func (r *Result) Resources() []*resource.Resource {
	return slices.Clone(r.resources)
}

// Unsatisfied returns the requirements nobody could satisfy, in the order they
// were first tracked.
func (r *Result) Unsatisfied() []*resource.Requirement {
	return slices.Clone(r.unsatisfied)
}

// Satisfied reports whether nothing remained unsatisfied.
func (r *Result) Satisfied() bool {
	return len(r.unsatisfied) == 0
}
