package resource

import "fmt"

// Namespace identifies the kind of fact a capability provides or a requirement
// asks for. Requirements only ever match capabilities in the same namespace.
type Namespace string

const (
	// NamespaceIdentity is the namespace of a resource's own self-capability.
	NamespaceIdentity Namespace = "identity"
	// NamespaceArtifact holds artifact coordinates ("group:name:version").
	NamespaceArtifact Namespace = "artifact"
	// NamespaceModule holds module coordinates ("name:slot").
	NamespaceModule Namespace = "module"
)

// Resolution is the resolution directive of a requirement.
type Resolution string

const (
	ResolutionMandatory Resolution = "mandatory"
	ResolutionOptional  Resolution = "optional"
	ResolutionDynamic   Resolution = "dynamic"
)

// ParseResolution maps the empty string to ResolutionMandatory and rejects
// unknown directives.
func ParseResolution(raw string) (Resolution, error) {
	switch Resolution(raw) {
	case "", ResolutionMandatory:
		return ResolutionMandatory, nil
	case ResolutionOptional:
		return ResolutionOptional, nil
	case ResolutionDynamic:
		return ResolutionDynamic, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidResolution, raw)
}

// Kind tags a capability as either concrete or an alias that stands in for
// whatever a single requirement of its resource in another namespace resolves to.
type Kind struct {
	delegate Namespace
}

// Concrete is the kind of an ordinary capability.
func Concrete() Kind {
	return Kind{}
}

// DelegatesTo is the kind of an alias capability. The owning resource is
// expected to carry exactly one requirement in ns.
func DelegatesTo(ns Namespace) Kind {
	return Kind{delegate: ns}
}

// Delegate returns the namespace an alias delegates to.
func (k Kind) Delegate() (Namespace, bool) {
	return k.delegate, k.delegate != ""
}

func (k Kind) IsConcrete() bool {
	return k.delegate == ""
}

func (k Kind) String() string {
	if k.delegate == "" {
		return "concrete"
	}
	return "delegates-to:" + string(k.delegate)
}
