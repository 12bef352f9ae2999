package resource

import (
	"errors"
	"fmt"
	"slices"

	"github.com/anvil-platform/provisioner/internal/semver"
)

// Resource is an immutable bundle of capabilities and requirements.
//
// Resources are compared by identity: two resources built from the same
// description are still different resources.
type Resource struct {
	capabilities []*Capability
	requirements []*Requirement
	abstract     bool
	query        bool
}

// IdentityCapability returns the resource's self-capability, or nil for queries.
func (r *Resource) IdentityCapability() *Capability {
	for _, c := range r.capabilities {
		if c.namespace == NamespaceIdentity {
			return c
		}
	}
	return nil
}

// Name is the identity value, or a description of the query for query resources.
func (r *Resource) Name() string {
	if icap := r.IdentityCapability(); icap != nil {
		return icap.value
	}
	if r.query && len(r.requirements) > 0 {
		return "query(" + r.requirements[0].String() + ")"
	}
	return "<anonymous>"
}

// Version is the identity capability version.
func (r *Resource) Version() semver.Version {
	if icap := r.IdentityCapability(); icap != nil {
		return icap.version
	}
	return semver.Version{}
}

// Abstract reports whether the resource only models a group or an alias.
// Abstract resources are never part of a provisioning result.
func (r *Resource) Abstract() bool {
	return r.abstract
}

// Query reports whether the resource is the synthetic owner of a top-level query.
func (r *Resource) Query() bool {
	return r.query
}

// Capabilities returns the capabilities in any of the given namespaces, or all
// of them when none are given.
func (r *Resource) Capabilities(ns ...Namespace) []*Capability {
	out := make([]*Capability, 0, len(r.capabilities))
	for _, c := range r.capabilities {
		if len(ns) == 0 || slices.Contains(ns, c.namespace) {
			out = append(out, c)
		}
	}
	return out
}

// Requirements returns the requirements in any of the given namespaces, or all
// of them when none are given.
func (r *Resource) Requirements(ns ...Namespace) []*Requirement {
	out := make([]*Requirement, 0, len(r.requirements))
	for _, req := range r.requirements {
		if len(ns) == 0 || slices.Contains(ns, req.namespace) {
			out = append(out, req)
		}
	}
	return out
}

func (r *Resource) String() string {
	if r.IdentityCapability() == nil {
		return r.Name()
	}
	return fmt.Sprintf("%s:%s", r.Name(), r.Version())
}

// Builder assembles a Resource. Errors are collected and reported by Build.
type Builder struct {
	caps     []capabilityEntry
	reqs     []requirementEntry
	abstract bool
	query    bool
}

type capabilityEntry struct {
	namespace Namespace
	value     string
	spec      capabilitySpec
}

type requirementEntry struct {
	namespace Namespace
	value     string
	spec      requirementSpec
}

func NewBuilder() *Builder {
	return &Builder{}
}

// AddIdentity is a shorthand for an identity capability with a version.
func (b *Builder) AddIdentity(name, version string, opts ...CapabilityOption) *Builder {
	return b.AddCapability(NamespaceIdentity, name, append([]CapabilityOption{WithVersion(version)}, opts...)...)
}

func (b *Builder) AddCapability(ns Namespace, value string, opts ...CapabilityOption) *Builder {
	spec := capabilitySpec{
		attributes: map[string]string{},
		directives: map[string]string{},
	}
	for _, opt := range opts {
		opt(&spec)
	}
	b.caps = append(b.caps, capabilityEntry{namespace: ns, value: value, spec: spec})
	return b
}

func (b *Builder) AddRequirement(ns Namespace, value string, opts ...RequirementOption) *Builder {
	spec := requirementSpec{
		attributes: map[string]string{},
		resolution: ResolutionMandatory,
	}
	for _, opt := range opts {
		opt(&spec)
	}
	b.reqs = append(b.reqs, requirementEntry{namespace: ns, value: value, spec: spec})
	return b
}

// Abstract marks the resource as a named group of other resources.
func (b *Builder) Abstract() *Builder {
	b.abstract = true
	return b
}

func (b *Builder) Build() (*Resource, error) {
	res := &Resource{abstract: b.abstract, query: b.query}
	var errs []error

	for _, e := range b.caps {
		if e.namespace == "" {
			errs = append(errs, fmt.Errorf("capability %q: %w", e.value, ErrEmptyNamespace))
			continue
		}
		v, err := semver.ParseLenient(e.spec.version)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s=%s: %w", ErrInvalidVersion, e.namespace, e.value, err))
			continue
		}
		res.capabilities = append(res.capabilities, &Capability{
			resource:   res,
			namespace:  e.namespace,
			value:      e.value,
			version:    v,
			attributes: e.spec.attributes,
			directives: e.spec.directives,
			kind:       e.spec.kind,
		})
	}

	for _, e := range b.reqs {
		if e.namespace == "" {
			errs = append(errs, fmt.Errorf("requirement %q: %w", e.value, ErrEmptyNamespace))
			continue
		}
		resolution, err := ParseResolution(string(e.spec.resolution))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		var c semver.Constraint
		if e.spec.constraint != "" {
			c, err = semver.ParseConstraint(e.spec.constraint)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s=%s: %w", ErrInvalidConstraint, e.namespace, e.value, err))
				continue
			}
		}
		res.requirements = append(res.requirements, &Requirement{
			resource:   res,
			namespace:  e.namespace,
			value:      e.value,
			constraint: c,
			attributes: e.spec.attributes,
			resolution: resolution,
		})
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	icap := res.IdentityCapability()
	if icap == nil && !res.query {
		return nil, ErrNoIdentity
	}
	if icap != nil && !icap.kind.IsConcrete() {
		res.abstract = true
	}
	return res, nil
}

// MustBuild is Build for fixtures; it panics on error.
func (b *Builder) MustBuild() *Resource {
	res, err := b.Build()
	if err != nil {
		panic(err)
	}
	return res
}

// NewQuery returns a top-level requirement owned by a synthetic query resource.
func NewQuery(ns Namespace, value string, opts ...RequirementOption) (*Requirement, error) {
	b := &Builder{query: true}
	b.AddRequirement(ns, value, opts...)
	res, err := b.Build()
	if err != nil {
		return nil, err
	}
	return res.requirements[0], nil
}

// MustQuery is NewQuery for fixtures; it panics on error.
func MustQuery(ns Namespace, value string, opts ...RequirementOption) *Requirement {
	req, err := NewQuery(ns, value, opts...)
	if err != nil {
		panic(err)
	}
	return req
}
