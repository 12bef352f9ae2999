package controllers

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	provisionv1alpha1 "github.com/anvil-platform/provisioner/api/v1alpha1"
)

const (
	ManifestConditionValid = "Valid"

	RequestConditionResolved  = "Resolved"
	RequestConditionInstalled = "Installed"
)

func setManifestCondition(m *provisionv1alpha1.ResourceManifest, condition metav1.Condition) {
	if m == nil {
		return
	}
	condition.ObservedGeneration = m.Generation
	meta.SetStatusCondition(&m.Status.Conditions, condition)
}

func setRequestCondition(pr *provisionv1alpha1.ProvisionRequest, condition metav1.Condition) {
	if pr == nil {
		return
	}
	condition.ObservedGeneration = pr.Generation
	meta.SetStatusCondition(&pr.Status.Conditions, condition)
}

// summarizeUnsatisfied keeps status messages human-readable and bounded.
func summarizeUnsatisfied(reqs []string) string {
	if len(reqs) == 0 {
		return ""
	}
	max := 4
	parts := make([]string, 0, min(len(reqs), max))
	for i := 0; i < len(reqs) && i < max; i++ {
		parts = append(parts, reqs[i])
	}
	if len(reqs) > max {
		parts = append(parts, fmt.Sprintf("...and %d more", len(reqs)-max))
	}
	return "Unsatisfied: " + strings.Join(parts, "; ")
}
