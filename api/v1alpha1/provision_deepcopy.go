package v1alpha1

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

func copyStringMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyConditions(in []metav1.Condition) []metav1.Condition {
	if in == nil {
		return nil
	}
	out := make([]metav1.Condition, len(in))
	for i := range in {
		in[i].DeepCopyInto(&out[i])
	}
	return out
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *CapabilitySpec) DeepCopyInto(out *CapabilitySpec) {
	*out = *in
	out.Attributes = copyStringMap(in.Attributes)
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *RequirementSpec) DeepCopyInto(out *RequirementSpec) {
	*out = *in
	out.Attributes = copyStringMap(in.Attributes)
}

func copyRequirements(in []RequirementSpec) []RequirementSpec {
	if in == nil {
		return nil
	}
	out := make([]RequirementSpec, len(in))
	for i := range in {
		in[i].DeepCopyInto(&out[i])
	}
	return out
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *ResourceManifest) DeepCopyInto(out *ResourceManifest) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ObjectMeta.DeepCopyInto(&out.ObjectMeta)
	in.Spec.DeepCopyInto(&out.Spec)
	in.Status.DeepCopyInto(&out.Status)
}

// DeepCopy copies the receiver, creating a new ResourceManifest.
func (in *ResourceManifest) DeepCopy() *ResourceManifest {
	if in == nil {
		return nil
	}
	out := new(ResourceManifest)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject copies the receiver, creating a new runtime.Object.
func (in *ResourceManifest) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *ResourceManifestList) DeepCopyInto(out *ResourceManifestList) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ListMeta.DeepCopyInto(&out.ListMeta)
	if in.Items != nil {
		out.Items = make([]ResourceManifest, len(in.Items))
		for i := range in.Items {
			in.Items[i].DeepCopyInto(&out.Items[i])
		}
	}
}

// DeepCopy copies the receiver, creating a new ResourceManifestList.
func (in *ResourceManifestList) DeepCopy() *ResourceManifestList {
	if in == nil {
		return nil
	}
	out := new(ResourceManifestList)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject copies the receiver, creating a new runtime.Object.
func (in *ResourceManifestList) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *ResourceManifestSpec) DeepCopyInto(out *ResourceManifestSpec) {
	*out = *in
	if in.Capabilities != nil {
		out.Capabilities = make([]CapabilitySpec, len(in.Capabilities))
		for i := range in.Capabilities {
			in.Capabilities[i].DeepCopyInto(&out.Capabilities[i])
		}
	}
	out.Requirements = copyRequirements(in.Requirements)
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *ResourceManifestStatus) DeepCopyInto(out *ResourceManifestStatus) {
	*out = *in
	if in.InstalledTime != nil {
		out.InstalledTime = in.InstalledTime.DeepCopy()
	}
	out.Conditions = copyConditions(in.Conditions)
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *ProvisionRequest) DeepCopyInto(out *ProvisionRequest) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ObjectMeta.DeepCopyInto(&out.ObjectMeta)
	in.Spec.DeepCopyInto(&out.Spec)
	in.Status.DeepCopyInto(&out.Status)
}

// DeepCopy copies the receiver, creating a new ProvisionRequest.
func (in *ProvisionRequest) DeepCopy() *ProvisionRequest {
	if in == nil {
		return nil
	}
	out := new(ProvisionRequest)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject copies the receiver, creating a new runtime.Object.
func (in *ProvisionRequest) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *ProvisionRequestList) DeepCopyInto(out *ProvisionRequestList) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ListMeta.DeepCopyInto(&out.ListMeta)
	if in.Items != nil {
		out.Items = make([]ProvisionRequest, len(in.Items))
		for i := range in.Items {
			in.Items[i].DeepCopyInto(&out.Items[i])
		}
	}
}

// DeepCopy copies the receiver, creating a new ProvisionRequestList.
func (in *ProvisionRequestList) DeepCopy() *ProvisionRequestList {
	if in == nil {
		return nil
	}
	out := new(ProvisionRequestList)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject copies the receiver, creating a new runtime.Object.
func (in *ProvisionRequestList) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *ProvisionRequestSpec) DeepCopyInto(out *ProvisionRequestSpec) {
	*out = *in
	out.Requirements = copyRequirements(in.Requirements)
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *ProvisionRequestStatus) DeepCopyInto(out *ProvisionRequestStatus) {
	*out = *in
	if in.Resources != nil {
		out.Resources = make([]corev1.LocalObjectReference, len(in.Resources))
		copy(out.Resources, in.Resources)
	}
	if in.Mapping != nil {
		out.Mapping = make([]RequirementMapping, len(in.Mapping))
		copy(out.Mapping, in.Mapping)
	}
	if in.Unsatisfied != nil {
		out.Unsatisfied = make([]string, len(in.Unsatisfied))
		copy(out.Unsatisfied, in.Unsatisfied)
	}
	if in.LastResolvedTime != nil {
		out.LastResolvedTime = in.LastResolvedTime.DeepCopy()
	}
	out.Conditions = copyConditions(in.Conditions)
}
