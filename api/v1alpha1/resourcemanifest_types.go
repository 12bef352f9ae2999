package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	ManifestPhaseAvailable = "Available"
	ManifestPhaseInstalled = "Installed"
	ManifestPhaseInvalid   = "Invalid"
)

// ResourceManifest describes an installable resource: its identity, what it
// provides and what it requires.
//
// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:scope=Namespaced,shortName=rm
// +kubebuilder:printcolumn:name="Phase",type=string,JSONPath=`.status.phase`
// +kubebuilder:printcolumn:name="Identity",type=string,JSONPath=`.spec.identity.name`
// +kubebuilder:printcolumn:name="Version",type=string,JSONPath=`.spec.identity.version`
// +kubebuilder:printcolumn:name="Abstract",type=boolean,JSONPath=`.spec.abstract`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`
type ResourceManifest struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   ResourceManifestSpec   `json:"spec"`
	Status ResourceManifestStatus `json:"status,omitempty"`
}

type ResourceManifestSpec struct {
	Identity ResourceIdentity `json:"identity"`
	// Abstract resources model a named group of other resources and are never
	// installed themselves.
	Abstract bool `json:"abstract,omitempty"`
	// DelegatesTo turns the identity into an alias for whatever the single
	// requirement in this namespace resolves to.
	DelegatesTo  string            `json:"delegatesTo,omitempty"`
	Capabilities []CapabilitySpec  `json:"capabilities,omitempty"`
	Requirements []RequirementSpec `json:"requirements,omitempty"`
}

type ResourceIdentity struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

type ResourceManifestStatus struct {
	ObservedGeneration int64              `json:"observedGeneration,omitempty"`
	Phase              string             `json:"phase,omitempty"`
	Message            string             `json:"message,omitempty"`
	InstalledBy        string             `json:"installedBy,omitempty"`
	InstalledTime      *metav1.Time       `json:"installedTime,omitempty"`
	Conditions         []metav1.Condition `json:"conditions,omitempty"`
}

// +kubebuilder:object:root=true
type ResourceManifestList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []ResourceManifest `json:"items"`
}

func init() {
	SchemeBuilder.Register(&ResourceManifest{}, &ResourceManifestList{})
}
