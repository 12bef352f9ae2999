package solver

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/anvil-platform/provisioner/internal/environment"
	"github.com/anvil-platform/provisioner/internal/resource"
)

// Solver wires the requirements of a set of resources to capabilities
// available in an environment.
type Solver interface {
	// NewContext describes one resolution. Mandatory resources must resolve;
	// optional resources are wired when possible and dropped otherwise.
	NewContext(env environment.Environment, mandatory, optional []*resource.Resource) *Context

	// Resolve computes the wiring for rc. When some mandatory resource cannot be
	// resolved the returned error is an *UnresolvedError and the Wiring still
	// holds every resource that did resolve.
	Resolve(ctx context.Context, rc *Context) (Wiring, error)
}

// Context is the input of a single resolution.
type Context struct {
	Environment environment.Environment
	Mandatory   []*resource.Resource
	Optional    []*resource.Resource
}

// Wire links a requirement to the capability that satisfies it.
type Wire struct {
	Requirement *resource.Requirement
	Capability  *resource.Capability
	Provider    *resource.Resource
}

func (w Wire) String() string {
	return fmt.Sprintf("%s -> %s", w.Requirement, w.Provider)
}

// Wiring maps each resolved resource to the wires of its requirements.
type Wiring map[*resource.Resource][]Wire

// Provider returns the resource wired to req, if any.
func (w Wiring) Provider(req *resource.Requirement) (*resource.Resource, bool) {
	if req == nil {
		return nil, false
	}
	for _, wire := range w[req.Resource()] {
		if wire.Requirement == req {
			return wire.Provider, true
		}
	}
	return nil, false
}

// UnresolvedError lists the mandatory requirements that could not be wired.
type UnresolvedError struct {
	Requirements []*resource.Requirement
}

func (e *UnresolvedError) Error() string {
	parts := make([]string, 0, len(e.Requirements))
	for _, req := range e.Requirements {
		parts = append(parts, fmt.Sprintf("%s [%s]", req, req.Resource()))
	}
	return "unresolved requirements: " + strings.Join(parts, ", ")
}

func newContext(env environment.Environment, mandatory, optional []*resource.Resource) *Context {
	return &Context{
		Environment: env,
		Mandatory:   slices.Clone(mandatory),
		Optional:    slices.Clone(optional),
	}
}
