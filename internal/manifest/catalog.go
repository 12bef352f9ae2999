package manifest

import (
	"context"
	"fmt"
	"sort"

	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	provisionv1alpha1 "github.com/anvil-platform/provisioner/api/v1alpha1"
	"github.com/anvil-platform/provisioner/internal/environment"
	"github.com/anvil-platform/provisioner/internal/repository"
	"github.com/anvil-platform/provisioner/internal/resource"
)

// Catalog is the resource view of the manifests in one namespace.
type Catalog struct {
	// Repository indexes every valid manifest.
	Repository *repository.Memory
	// Environment holds the manifests whose phase is Installed.
	Environment *environment.Memory
	// Invalid maps manifest names to the reason they could not be converted.
	Invalid map[string]error

	names     map[*resource.Resource]string
	manifests map[string]*provisionv1alpha1.ResourceManifest
}

// Load lists the ResourceManifests of namespace and converts them.
func Load(ctx context.Context, c client.Reader, namespace string) (*Catalog, error) {
	var list provisionv1alpha1.ResourceManifestList
	if err := c.List(ctx, &list, client.InNamespace(namespace)); err != nil {
		return nil, fmt.Errorf("list resourcemanifests in %q: %w", namespace, err)
	}
	return NewCatalog(ctx, list.Items), nil
}

// NewCatalog converts manifests, ordered by name.
func NewCatalog(ctx context.Context, manifests []provisionv1alpha1.ResourceManifest) *Catalog {
	logger := log.FromContext(ctx)

	items := make([]provisionv1alpha1.ResourceManifest, len(manifests))
	copy(items, manifests)
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })

	cat := &Catalog{
		Repository:  repository.NewMemory(),
		Environment: environment.NewMemory(),
		Invalid:     make(map[string]error),
		names:       make(map[*resource.Resource]string, len(items)),
		manifests:   make(map[string]*provisionv1alpha1.ResourceManifest, len(items)),
	}
	for i := range items {
		m := &items[i]
		res, err := ToResource(m)
		if err != nil {
			logger.V(1).Info("skipping invalid manifest", "resourceManifest", m.Name, "error", err.Error())
			cat.Invalid[m.Name] = err
			continue
		}
		cat.names[res] = m.Name
		cat.manifests[m.Name] = m
		cat.Repository.Add(res)
		if m.Status.Phase == provisionv1alpha1.ManifestPhaseInstalled {
			cat.Environment.Install(res)
		}
	}
	return cat
}

// NameOf returns the manifest a resource was converted from.
func (c *Catalog) NameOf(res *resource.Resource) (string, bool) {
	name, ok := c.names[res]
	return name, ok
}

// ObjectName returns the manifest name of res, or the name a manifest created
// for it would get.
func (c *Catalog) ObjectName(res *resource.Resource) string {
	if name, ok := c.names[res]; ok {
		return name
	}
	return StableName(res)
}

// Describe renders an unsatisfied requirement, naming the manifest that
// declared it unless it was requested directly.
func (c *Catalog) Describe(req *resource.Requirement) string {
	owner := req.Resource()
	if owner == nil || owner.Query() {
		return req.String()
	}
	return fmt.Sprintf("%s (required by %s)", req.String(), c.ObjectName(owner))
}

// Manifest returns the manifest with the given name as it was loaded.
func (c *Catalog) Manifest(name string) (*provisionv1alpha1.ResourceManifest, bool) {
	m, ok := c.manifests[name]
	return m, ok
}

// Chain returns the catalog repository followed by extra repositories.
func (c *Catalog) Chain(extra ...repository.Repository) repository.Repository {
	if len(extra) == 0 {
		return c.Repository
	}
	return repository.NewAggregate(append([]repository.Repository{c.Repository}, extra...)...)
}
