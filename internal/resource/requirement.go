package resource

import (
	"fmt"
	"maps"
	"sort"
	"strings"

	"github.com/anvil-platform/provisioner/internal/semver"
)

// Requirement is a named, filtered fact a resource needs.
type Requirement struct {
	resource   *Resource
	namespace  Namespace
	value      string
	constraint semver.Constraint
	attributes map[string]string
	resolution Resolution
}

// RequirementOption configures a requirement added through Builder.AddRequirement.
type RequirementOption func(*requirementSpec)

type requirementSpec struct {
	constraint string
	attributes map[string]string
	resolution Resolution
}

// WithConstraint restricts matching capabilities to versions satisfying raw.
func WithConstraint(raw string) RequirementOption {
	return func(s *requirementSpec) { s.constraint = raw }
}

// WithMatchAttribute requires matching capabilities to carry key=value.
func WithMatchAttribute(key, value string) RequirementOption {
	return func(s *requirementSpec) { s.attributes[key] = value }
}

// WithResolution sets the resolution directive.
func WithResolution(r Resolution) RequirementOption {
	return func(s *requirementSpec) { s.resolution = r }
}

// Resource returns the resource that needs this requirement. For top-level
// queries this is a synthetic query resource.
func (r *Requirement) Resource() *Resource {
	return r.resource
}

func (r *Requirement) Namespace() Namespace {
	return r.namespace
}

func (r *Requirement) Value() string {
	return r.value
}

func (r *Requirement) Constraint() semver.Constraint {
	return r.constraint
}

func (r *Requirement) Attributes() map[string]string {
	return maps.Clone(r.attributes)
}

func (r *Requirement) Resolution() Resolution {
	return r.resolution
}

// Optional reports whether the requirement is satisfied by absence, which is
// the case for both optional and dynamic resolution.
func (r *Requirement) Optional() bool {
	return r.resolution == ResolutionOptional || r.resolution == ResolutionDynamic
}

// Matches reports whether c satisfies the requirement's filter.
func (r *Requirement) Matches(c *Capability) bool {
	if c == nil || c.namespace != r.namespace {
		return false
	}
	if r.value != "" && c.value != r.value {
		return false
	}
	for k, v := range r.attributes {
		if got, ok := c.attributes[k]; !ok || got != v {
			return false
		}
	}
	return semver.Satisfies(c.version, r.constraint)
}

func (r *Requirement) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s=%s", r.namespace, r.value)
	if !r.constraint.IsZero() {
		fmt.Fprintf(&b, ";version=%q", r.constraint)
	}
	if r.resolution != ResolutionMandatory {
		fmt.Fprintf(&b, ";resolution:=%s", r.resolution)
	}
	keys := make([]string, 0, len(r.attributes))
	for k := range r.attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, ";%s=%q", k, r.attributes[k])
	}
	return b.String()
}
