package resource

import (
	"fmt"
	"maps"
	"sort"
	"strings"

	"github.com/anvil-platform/provisioner/internal/semver"
)

// Capability is a named, attributed fact a resource provides.
type Capability struct {
	resource   *Resource
	namespace  Namespace
	value      string
	version    semver.Version
	attributes map[string]string
	directives map[string]string
	kind       Kind
}

// CapabilityOption configures a capability added through Builder.AddCapability.
type CapabilityOption func(*capabilitySpec)

type capabilitySpec struct {
	version    string
	attributes map[string]string
	directives map[string]string
	kind       Kind
}

// WithVersion sets the capability version. Dotted qualifiers are accepted.
func WithVersion(v string) CapabilityOption {
	return func(s *capabilitySpec) { s.version = v }
}

// WithAttribute sets an additional matching attribute.
func WithAttribute(key, value string) CapabilityOption {
	return func(s *capabilitySpec) { s.attributes[key] = value }
}

// WithDirective sets a capability directive.
func WithDirective(key, value string) CapabilityOption {
	return func(s *capabilitySpec) { s.directives[key] = value }
}

// WithKind tags the capability as concrete or as an alias.
func WithKind(k Kind) CapabilityOption {
	return func(s *capabilitySpec) { s.kind = k }
}

func (c *Capability) Resource() *Resource {
	return c.resource
}

func (c *Capability) Namespace() Namespace {
	return c.namespace
}

// Value is the attribute keyed by the capability's namespace, e.g. the
// symbolic name for identity capabilities.
func (c *Capability) Value() string {
	return c.value
}

func (c *Capability) Version() semver.Version {
	return c.version
}

func (c *Capability) Kind() Kind {
	return c.kind
}

// Attribute returns a matching attribute.
func (c *Capability) Attribute(key string) (string, bool) {
	v, ok := c.attributes[key]
	return v, ok
}

// Attributes returns a copy of the matching attributes.
func (c *Capability) Attributes() map[string]string {
	return maps.Clone(c.attributes)
}

// Directive returns a capability directive.
func (c *Capability) Directive(key string) (string, bool) {
	v, ok := c.directives[key]
	return v, ok
}

func (c *Capability) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s=%s", c.namespace, c.value)
	if !c.version.IsZero() {
		fmt.Fprintf(&b, ";version=%s", c.version)
	}
	if !c.kind.IsConcrete() {
		fmt.Fprintf(&b, ";kind=%s", c.kind)
	}
	keys := make([]string, 0, len(c.attributes))
	for k := range c.attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, ";%s=%s", k, c.attributes[k])
	}
	return b.String()
}
