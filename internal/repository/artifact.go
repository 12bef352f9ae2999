package repository

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/anvil-platform/provisioner/internal/resource"
)

// DefaultArtifactBaseURL is where artifact locations point unless configured otherwise.
const DefaultArtifactBaseURL = "https://repo1.maven.org/maven2"

// LocationAttribute is the artifact capability attribute holding the download URL.
const LocationAttribute = "location"

// Coordinate identifies an artifact as group:name:version.
type Coordinate struct {
	Group   string
	Name    string
	Version string
}

// ParseCoordinate parses "group:name:version". Every part must be non-empty.
func ParseCoordinate(raw string) (Coordinate, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 3 {
		return Coordinate{}, fmt.Errorf("%w: %q", ErrInvalidCoordinate, raw)
	}
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return Coordinate{}, fmt.Errorf("%w: %q", ErrInvalidCoordinate, raw)
		}
	}
	return Coordinate{Group: parts[0], Name: parts[1], Version: parts[2]}, nil
}

func (c Coordinate) String() string {
	return c.Group + ":" + c.Name + ":" + c.Version
}

// Identity is the symbolic name of the resource synthesised for c.
func (c Coordinate) Identity() string {
	return c.Group + "." + c.Name
}

// Artifact answers artifact requirements by synthesising one concrete resource
// per coordinate. Synthesised resources are cached so repeated lookups return
// the same resource.
type Artifact struct {
	baseURL string

	mu    sync.Mutex
	cache map[string]*resource.Resource
}

// ArtifactOption configures an Artifact repository.
type ArtifactOption func(*Artifact)

// WithBaseURL sets the URL artifact locations are derived from.
func WithBaseURL(base string) ArtifactOption {
	return func(a *Artifact) { a.baseURL = strings.TrimRight(base, "/") }
}

var _ Repository = (*Artifact)(nil)

func NewArtifact(opts ...ArtifactOption) *Artifact {
	a := &Artifact{
		baseURL: DefaultArtifactBaseURL,
		cache:   make(map[string]*resource.Resource),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// FindProviders ignores requirements outside the artifact namespace and
// requirement values that are not coordinates.
func (a *Artifact) FindProviders(ctx context.Context, req *resource.Requirement) ([]*resource.Capability, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Namespace() != resource.NamespaceArtifact {
		return nil, nil
	}
	coord, err := ParseCoordinate(req.Value())
	if err != nil {
		return nil, nil
	}
	res, err := a.resourceFor(coord)
	if err != nil {
		return nil, err
	}
	var out []*resource.Capability
	for _, c := range res.Capabilities(resource.NamespaceArtifact) {
		if req.Matches(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (a *Artifact) resourceFor(coord Coordinate) (*resource.Resource, error) {
	key := coord.String()
	a.mu.Lock()
	defer a.mu.Unlock()
	if res, ok := a.cache[key]; ok {
		return res, nil
	}
	location, err := a.Location(coord)
	if err != nil {
		return nil, err
	}
	res, err := resource.NewBuilder().
		AddIdentity(coord.Identity(), coord.Version).
		AddCapability(resource.NamespaceArtifact, key,
			resource.WithVersion(coord.Version),
			resource.WithAttribute(LocationAttribute, location)).
		Build()
	if err != nil {
		return nil, fmt.Errorf("synthesise artifact %s: %w", key, err)
	}
	a.cache[key] = res
	return res, nil
}

// Location returns <base>/<group path>/<name>/<version>/<name>-<version>.jar.
func (a *Artifact) Location(coord Coordinate) (string, error) {
	elems := append(strings.Split(coord.Group, "."), coord.Name, coord.Version, coord.Name+"-"+coord.Version+".jar")
	return url.JoinPath(a.baseURL, elems...)
}
