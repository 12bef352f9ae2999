package manifest

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	provisionv1alpha1 "github.com/anvil-platform/provisioner/api/v1alpha1"
	"github.com/anvil-platform/provisioner/internal/resource"
)

const (
	LabelManagedBy = "provision.platform/managed-by"
	LabelIdentity  = "provision.platform/identity"
)

var reNonDNS = regexp.MustCompile(`[^a-z0-9-]+`)

// StableName derives a DNS-safe object name for a resource that has no
// manifest yet. The same identity and version always yield the same name.
func StableName(res *resource.Resource) string {
	base := fmt.Sprintf("rm-%s-%s", res.Name(), res.Version())
	base = strings.ToLower(base)
	base = reNonDNS.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-")
	if base == "" {
		base = "rm"
	}
	if len(base) <= 253 {
		return base
	}

	h := sha1.Sum([]byte(base))
	suffix := "-" + hex.EncodeToString(h[:])[:8]
	base = strings.Trim(base[:253-len(suffix)], "-")
	return base + suffix
}

// FromResource renders res as a manifest named StableName(res). It is the
// inverse of ToResource for everything ToResource understands.
func FromResource(res *resource.Resource, namespace, managedBy string) *provisionv1alpha1.ResourceManifest {
	m := &provisionv1alpha1.ResourceManifest{
		ObjectMeta: metav1.ObjectMeta{
			Name:      StableName(res),
			Namespace: namespace,
			Labels: map[string]string{
				LabelManagedBy: managedBy,
				LabelIdentity:  truncateLabel(reNonDNS.ReplaceAllString(strings.ToLower(res.Name()), "-")),
			},
		},
		Spec: provisionv1alpha1.ResourceManifestSpec{
			Identity: provisionv1alpha1.ResourceIdentity{Name: res.Name()},
		},
	}
	if icap := res.IdentityCapability(); icap != nil {
		if !icap.Version().IsZero() {
			m.Spec.Identity.Version = icap.Version().String()
		}
		if ns, ok := icap.Kind().Delegate(); ok {
			m.Spec.DelegatesTo = string(ns)
		} else {
			m.Spec.Abstract = res.Abstract()
		}
	}

	for _, c := range res.Capabilities() {
		if c == res.IdentityCapability() {
			continue
		}
		spec := provisionv1alpha1.CapabilitySpec{Namespace: string(c.Namespace()), Value: c.Value()}
		if !c.Version().IsZero() {
			spec.Version = c.Version().String()
		}
		if attrs := c.Attributes(); len(attrs) > 0 {
			spec.Attributes = attrs
		}
		m.Spec.Capabilities = append(m.Spec.Capabilities, spec)
	}
	for _, r := range res.Requirements() {
		spec := provisionv1alpha1.RequirementSpec{
			Namespace:         string(r.Namespace()),
			Value:             r.Value(),
			VersionConstraint: r.Constraint().String(),
		}
		if r.Resolution() != resource.ResolutionMandatory {
			spec.Resolution = provisionv1alpha1.Resolution(r.Resolution())
		}
		if attrs := r.Attributes(); len(attrs) > 0 {
			spec.Attributes = attrs
		}
		m.Spec.Requirements = append(m.Spec.Requirements, spec)
	}
	return m
}

func truncateLabel(v string) string {
	v = strings.Trim(v, "-")
	if len(v) > 63 {
		v = strings.Trim(v[:63], "-")
	}
	return v
}
