package v1alpha1

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	RequestPhaseResolved    = "Resolved"
	RequestPhaseUnsatisfied = "Unsatisfied"
	RequestPhaseInstalled   = "Installed"
	RequestPhaseError       = "Error"
)

// ProvisionRequest asks for a set of requirements to be resolved against the
// ResourceManifests of its namespace, and optionally installed.
//
// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:scope=Namespaced,shortName=pr
// +kubebuilder:printcolumn:name="Phase",type=string,JSONPath=`.status.phase`
// +kubebuilder:printcolumn:name="Install",type=boolean,JSONPath=`.spec.install`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`
type ProvisionRequest struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   ProvisionRequestSpec   `json:"spec"`
	Status ProvisionRequestStatus `json:"status,omitempty"`
}

type ProvisionRequestSpec struct {
	Requirements []RequirementSpec `json:"requirements"`
	// Install marks the resolved manifests as installed once nothing is unsatisfied.
	Install bool `json:"install,omitempty"`
}

type ProvisionRequestStatus struct {
	ObservedGeneration int64                         `json:"observedGeneration,omitempty"`
	Phase              string                        `json:"phase,omitempty"`
	Message            string                        `json:"message,omitempty"`
	Resources          []corev1.LocalObjectReference `json:"resources,omitempty"`
	Mapping            []RequirementMapping          `json:"mapping,omitempty"`
	Unsatisfied        []string                      `json:"unsatisfied,omitempty"`
	LastResolvedTime   *metav1.Time                  `json:"lastResolvedTime,omitempty"`
	Conditions         []metav1.Condition            `json:"conditions,omitempty"`
}

// RequirementMapping records which manifest satisfied a requested requirement.
type RequirementMapping struct {
	Requirement string `json:"requirement"`
	Provider    string `json:"provider"`
}

// +kubebuilder:object:root=true
type ProvisionRequestList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []ProvisionRequest `json:"items"`
}

func init() {
	SchemeBuilder.Register(&ProvisionRequest{}, &ProvisionRequestList{})
}
