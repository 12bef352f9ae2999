package v1alpha1

import "sort"

// Namespaces understood by the provisioner. Other namespaces are allowed and
// matched verbatim.
const (
	NamespaceIdentity = "identity"
	NamespaceArtifact = "artifact"
	NamespaceModule   = "module"
)

// +kubebuilder:validation:Enum=mandatory;optional;dynamic
type Resolution string

const (
	ResolutionMandatory Resolution = "mandatory"
	ResolutionOptional  Resolution = "optional"
	ResolutionDynamic   Resolution = "dynamic"
)

// CapabilitySpec is something a ResourceManifest provides.
type CapabilitySpec struct {
	Namespace  string            `json:"namespace"`
	Value      string            `json:"value"`
	Version    string            `json:"version,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// RequirementSpec is something a ResourceManifest or ProvisionRequest needs.
type RequirementSpec struct {
	Namespace         string            `json:"namespace"`
	Value             string            `json:"value"`
	VersionConstraint string            `json:"versionConstraint,omitempty"`
	Resolution        Resolution        `json:"resolution,omitempty"`
	Attributes        map[string]string `json:"attributes,omitempty"`
}

// String renders the requirement the way it appears in status fields.
func (r RequirementSpec) String() string {
	s := r.Namespace + "=" + r.Value
	if r.VersionConstraint != "" {
		s += ";version=\"" + r.VersionConstraint + "\""
	}
	if r.Resolution != "" && r.Resolution != ResolutionMandatory {
		s += ";resolution:=" + string(r.Resolution)
	}
	keys := make([]string, 0, len(r.Attributes))
	for k := range r.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s += ";" + k + "=\"" + r.Attributes[k] + "\""
	}
	return s
}
