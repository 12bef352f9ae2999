// Package manifest converts ResourceManifest and ProvisionRequest objects into
// the resource model and builds catalogs from the manifests of a namespace.
package manifest

import (
	"errors"
	"fmt"
	"strings"

	provisionv1alpha1 "github.com/anvil-platform/provisioner/api/v1alpha1"
	"github.com/anvil-platform/provisioner/internal/resource"
)

var (
	// ErrMissingIdentity indicates a manifest without spec.identity.name.
	ErrMissingIdentity = errors.New("manifest has no identity name")
	// ErrDelegateNamespace indicates spec.delegatesTo names the identity namespace.
	ErrDelegateNamespace = errors.New("manifest cannot delegate to the identity namespace")
)

// ToResource converts a manifest. Errors of every capability and requirement
// are reported together.
func ToResource(m *provisionv1alpha1.ResourceManifest) (*resource.Resource, error) {
	spec := m.Spec
	name := strings.TrimSpace(spec.Identity.Name)
	if name == "" {
		return nil, fmt.Errorf("%s: %w", m.Name, ErrMissingIdentity)
	}

	b := resource.NewBuilder()
	var identityOpts []resource.CapabilityOption
	if ns := strings.TrimSpace(spec.DelegatesTo); ns != "" {
		if resource.Namespace(ns) == resource.NamespaceIdentity {
			return nil, fmt.Errorf("%s: %w", m.Name, ErrDelegateNamespace)
		}
		identityOpts = append(identityOpts, resource.WithKind(resource.DelegatesTo(resource.Namespace(ns))))
	}
	b.AddIdentity(name, strings.TrimSpace(spec.Identity.Version), identityOpts...)
	if spec.Abstract {
		b.Abstract()
	}

	for _, c := range spec.Capabilities {
		opts := []resource.CapabilityOption{resource.WithVersion(strings.TrimSpace(c.Version))}
		for k, v := range c.Attributes {
			opts = append(opts, resource.WithAttribute(k, v))
		}
		b.AddCapability(resource.Namespace(c.Namespace), c.Value, opts...)
	}
	for _, r := range spec.Requirements {
		b.AddRequirement(resource.Namespace(r.Namespace), r.Value, requirementOptions(r)...)
	}

	res, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.Name, err)
	}
	return res, nil
}

// ToRequirement converts a requested requirement into a top-level query.
func ToRequirement(spec provisionv1alpha1.RequirementSpec) (*resource.Requirement, error) {
	return resource.NewQuery(resource.Namespace(spec.Namespace), spec.Value, requirementOptions(spec)...)
}

// ToRequirements converts every requested requirement, failing on the first
// invalid one.
func ToRequirements(specs []provisionv1alpha1.RequirementSpec) ([]*resource.Requirement, error) {
	out := make([]*resource.Requirement, 0, len(specs))
	for i, spec := range specs {
		req, err := ToRequirement(spec)
		if err != nil {
			return nil, fmt.Errorf("requirement %d (%s): %w", i, spec, err)
		}
		out = append(out, req)
	}
	return out, nil
}

func requirementOptions(spec provisionv1alpha1.RequirementSpec) []resource.RequirementOption {
	opts := []resource.RequirementOption{resource.WithResolution(resource.Resolution(spec.Resolution))}
	if c := strings.TrimSpace(spec.VersionConstraint); c != "" {
		opts = append(opts, resource.WithConstraint(c))
	}
	for k, v := range spec.Attributes {
		opts = append(opts, resource.WithMatchAttribute(k, v))
	}
	return opts
}
