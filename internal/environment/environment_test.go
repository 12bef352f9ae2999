package environment

import (
	"sync"
	"testing"

	"github.com/anvil-platform/provisioner/internal/resource"
)

func TestMemory_EmptyEnvironment(t *testing.T) {
	env := NewMemory()
	if got := len(env.Resources()); got != 0 {
		t.Fatalf("expected empty environment, got %d resources", got)
	}
}

func TestMemory_InstallIsIdempotent(t *testing.T) {
	res := resource.NewBuilder().AddIdentity("res1", "1.0.0").MustBuild()
	env := NewMemory()
	env.Install(res, res)
	env.Install(res, nil)

	if got := len(env.Resources()); got != 1 {
		t.Fatalf("expected 1 resource, got %d", got)
	}
	if !env.Contains(res) {
		t.Fatalf("expected resource to be installed")
	}
}

func TestMemory_ResourcesFilteredByNamespace(t *testing.T) {
	plain := resource.NewBuilder().AddIdentity("plain", "1.0.0").MustBuild()
	module := resource.NewBuilder().
		AddIdentity("mod", "1.0.0").
		AddCapability(resource.NamespaceModule, "org.example.mod:main").
		MustBuild()
	env := NewMemory(plain, module)

	got := env.Resources(resource.NamespaceModule)
	if len(got) != 1 || got[0] != module {
		t.Fatalf("expected only the module resource, got %v", got)
	}
	if got := len(env.Resources(resource.NamespaceIdentity)); got != 2 {
		t.Fatalf("expected 2 identity resources, got %d", got)
	}
}

func TestMemory_FindProviders(t *testing.T) {
	v1 := resource.NewBuilder().AddIdentity("res1", "1.0.0").MustBuild()
	v2 := resource.NewBuilder().AddIdentity("res1", "2.0.0").MustBuild()
	other := resource.NewBuilder().AddIdentity("res2", "1.0.0").MustBuild()
	env := NewMemory(v1, v2, other)

	caps := env.FindProviders(resource.MustQuery(resource.NamespaceIdentity, "res1"))
	if len(caps) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(caps))
	}
	caps = env.FindProviders(resource.MustQuery(resource.NamespaceIdentity, "res1", resource.WithConstraint(">=2.0.0")))
	if len(caps) != 1 || caps[0].Resource() != v2 {
		t.Fatalf("expected only res1:2.0.0, got %v", caps)
	}
	if caps := env.FindProviders(nil); caps != nil {
		t.Fatalf("expected no providers for nil requirement")
	}
}

func TestMemory_CloneIsIndependent(t *testing.T) {
	a := resource.NewBuilder().AddIdentity("a", "1.0.0").MustBuild()
	b := resource.NewBuilder().AddIdentity("b", "1.0.0").MustBuild()
	c := resource.NewBuilder().AddIdentity("c", "1.0.0").MustBuild()

	env := NewMemory(a)
	clone := env.Clone()
	clone.Install(b)
	env.Install(c)

	if env.Contains(b) {
		t.Fatalf("install into clone leaked into original")
	}
	if clone.Contains(c) {
		t.Fatalf("install into original leaked into clone")
	}
	if !clone.Contains(a) {
		t.Fatalf("clone lost pre-existing resource")
	}
}

func TestMemory_ConcurrentInstallAndRead(t *testing.T) {
	env := NewMemory()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			env.Install(resource.NewBuilder().AddIdentity("res", "1.0.0").MustBuild())
		}()
		go func() {
			defer wg.Done()
			_ = env.FindProviders(resource.MustQuery(resource.NamespaceIdentity, "res"))
		}()
	}
	wg.Wait()
	if got := len(env.Resources()); got != 8 {
		t.Fatalf("expected 8 distinct resources, got %d", got)
	}
}
