package provision

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/testr"
	"github.com/google/go-cmp/cmp"

	"github.com/anvil-platform/provisioner/internal/environment"
	"github.com/anvil-platform/provisioner/internal/repository"
	"github.com/anvil-platform/provisioner/internal/resource"
	"github.com/anvil-platform/provisioner/internal/solver"
)

func newEngine(repo repository.Repository, opts ...Option) *Engine {
	return New(solver.NewGreedy(), repo, opts...)
}

func testContext(t *testing.T) context.Context {
	return logr.NewContext(context.Background(), testr.New(t))
}

func identity(name string) *resource.Requirement {
	return resource.MustQuery(resource.NamespaceIdentity, name)
}

func resourceNames(res []*resource.Resource) []string {
	out := make([]string, 0, len(res))
	for _, r := range res {
		out = append(out, r.String())
	}
	return out
}

func TestResolve_CapabilityInEnvironment(t *testing.T) {
	res1 := resource.NewBuilder().AddIdentity("res1", "1.0.0").MustBuild()
	env := environment.NewMemory(res1)
	req := identity("res1")

	result, err := newEngine(repository.NewMemory()).Resolve(testContext(t), env, []*resource.Requirement{req})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if got, ok := result.Provider(req); !ok || got != res1 {
		t.Fatalf("expected req to map to the installed resource, got %v", got)
	}
	if len(result.Resources()) != 0 {
		t.Fatalf("expected nothing new to install, got %v", result.Resources())
	}
	if !result.Satisfied() {
		t.Fatalf("expected no unsatisfied requirements, got %v", result.Unsatisfied())
	}
}

func TestResolve_CapabilityInRepository(t *testing.T) {
	res1 := resource.NewBuilder().AddIdentity("res1", "1.0.0").MustBuild()
	req := identity("res1")

	result, err := newEngine(repository.NewMemory(res1)).Resolve(testContext(t), environment.NewMemory(), []*resource.Requirement{req})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if diff := cmp.Diff([]string{"res1:1.0.0"}, resourceNames(result.Resources())); diff != "" {
		t.Fatalf("unexpected resources (-want +got):\n%s", diff)
	}
	if got, _ := result.Provider(req); got != res1 {
		t.Fatalf("expected mapping to res1, got %v", got)
	}
	if !result.Satisfied() {
		t.Fatalf("expected no unsatisfied requirements, got %v", result.Unsatisfied())
	}
}

func TestResolve_CascadingRequirement(t *testing.T) {
	a := resource.NewBuilder().
		AddIdentity("res1", "1.0.0").
		AddRequirement(resource.NamespaceIdentity, "res2").
		MustBuild()
	b := resource.NewBuilder().AddIdentity("res2", "1.0.0").MustBuild()
	req := identity("res1")

	result, err := newEngine(repository.NewMemory(a, b)).Resolve(testContext(t), environment.NewMemory(), []*resource.Requirement{req})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if diff := cmp.Diff([]string{"res1:1.0.0", "res2:1.0.0"}, resourceNames(result.Resources())); diff != "" {
		t.Fatalf("unexpected resources (-want +got):\n%s", diff)
	}
	if got, _ := result.Provider(req); got != a {
		t.Fatalf("expected mapping to res1, got %v", got)
	}
	if len(result.Mapping()) != 1 {
		t.Fatalf("expected only the requested requirement in the mapping, got %d entries", len(result.Mapping()))
	}
	if !result.Satisfied() {
		t.Fatalf("expected no unsatisfied requirements, got %v", result.Unsatisfied())
	}
}

func TestResolve_PreferHigherVersion(t *testing.T) {
	v1 := resource.NewBuilder().AddIdentity("res1", "1.0.0").MustBuild()
	v2 := resource.NewBuilder().AddIdentity("res1", "2.0.0").MustBuild()
	req := identity("res1")

	result, err := newEngine(repository.NewMemory(v1, v2)).Resolve(testContext(t), environment.NewMemory(), []*resource.Requirement{req})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if got, _ := result.Provider(req); got != v2 {
		t.Fatalf("expected mapping to res1:2.0.0, got %v", got)
	}
	if diff := cmp.Diff([]string{"res1:2.0.0"}, resourceNames(result.Resources())); diff != "" {
		t.Fatalf("unexpected resources (-want +got):\n%s", diff)
	}
}

func TestResolve_NoProvider(t *testing.T) {
	req := identity("missing")

	result, err := newEngine(repository.NewMemory()).Resolve(testContext(t), environment.NewMemory(), []*resource.Requirement{req})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if len(result.Resources()) != 0 {
		t.Fatalf("expected no resources, got %v", result.Resources())
	}
	unsatisfied := result.Unsatisfied()
	if len(unsatisfied) != 1 || unsatisfied[0] != req {
		t.Fatalf("expected the requirement to be unsatisfied, got %v", unsatisfied)
	}
	if len(result.Mapping()) != 0 {
		t.Fatalf("expected empty mapping, got %v", result.Mapping())
	}
}

func TestResolve_AbstractFeature(t *testing.T) {
	feature := resource.NewBuilder().
		AddIdentity("eventadmin-feature", "1.0.0").
		AddRequirement(resource.NamespaceIdentity, "eventadmin").
		AddRequirement(resource.NamespaceIdentity, "logging").
		Abstract().
		MustBuild()
	eventadmin := resource.NewBuilder().AddIdentity("eventadmin", "1.2.0").MustBuild()
	logging := resource.NewBuilder().AddIdentity("logging", "1.0.0").MustBuild()
	engine := newEngine(repository.NewMemory(feature, eventadmin, logging))
	env := environment.NewMemory()
	req := identity("eventadmin-feature")

	result, err := engine.Resolve(testContext(t), env, []*resource.Requirement{req})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if diff := cmp.Diff([]string{"eventadmin:1.2.0", "logging:1.0.0"}, resourceNames(result.Resources())); diff != "" {
		t.Fatalf("unexpected resources (-want +got):\n%s", diff)
	}
	if !result.Satisfied() {
		t.Fatalf("expected no unsatisfied requirements, got %v", result.Unsatisfied())
	}

	InstallResources(env, result.Resources())

	again, err := engine.Resolve(testContext(t), env, []*resource.Requirement{req})
	if err != nil {
		t.Fatalf("second Resolve error: %v", err)
	}
	if len(again.Resources()) != 0 {
		t.Fatalf("expected nothing to install the second time, got %v", again.Resources())
	}
	if !again.Satisfied() {
		t.Fatalf("expected no unsatisfied requirements the second time, got %v", again.Unsatisfied())
	}
}

func TestResolve_CycleThroughFailingProviderIsUnsatisfied(t *testing.T) {
	a := resource.NewBuilder().
		AddIdentity("a", "1.0.0").
		AddRequirement(resource.NamespaceIdentity, "b").
		AddRequirement(resource.NamespaceIdentity, "c").
		MustBuild()
	b := resource.NewBuilder().AddIdentity("b", "1.0.0").AddRequirement(resource.NamespaceIdentity, "a").MustBuild()
	qa, qb := identity("a"), identity("b")

	result, err := newEngine(repository.NewMemory()).Resolve(testContext(t), environment.NewMemory(a, b), []*resource.Requirement{qa, qb})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if got, ok := result.Provider(qb); ok {
		t.Fatalf("expected b to stay unmapped, got %v", got)
	}
	unsatisfied := result.Unsatisfied()
	if len(unsatisfied) != 2 || unsatisfied[0] != qa || unsatisfied[1] != qb {
		t.Fatalf("expected both requirements to be unsatisfied, got %v", unsatisfied)
	}
}

// verifyFailingSolver fails every solve over target and records the resources
// it was asked to verify.
type verifyFailingSolver struct {
	solver.Greedy
	target   environment.Environment
	verified []*resource.Resource
}

func (s *verifyFailingSolver) Resolve(ctx context.Context, rc *solver.Context) (solver.Wiring, error) {
	if rc.Environment == s.target {
		s.verified = append(s.verified, rc.Mandatory...)
		return nil, errors.New("inconsistent environment")
	}
	return s.Greedy.Resolve(ctx, rc)
}

func TestResolve_VerificationFailureIsOnlyLogged(t *testing.T) {
	feature := resource.NewBuilder().
		AddIdentity("eventadmin-feature", "1.0.0").
		AddRequirement(resource.NamespaceIdentity, "eventadmin").
		Abstract().
		MustBuild()
	eventadmin := resource.NewBuilder().AddIdentity("eventadmin", "1.2.0").MustBuild()
	env := environment.NewMemory()
	s := &verifyFailingSolver{target: env}
	req := identity("eventadmin-feature")

	result, err := New(s, repository.NewMemory(feature, eventadmin)).Resolve(testContext(t), env, []*resource.Requirement{req})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if !result.Satisfied() {
		t.Fatalf("expected no unsatisfied requirements, got %v", result.Unsatisfied())
	}
	if diff := cmp.Diff([]string{"eventadmin:1.2.0"}, resourceNames(result.Resources())); diff != "" {
		t.Fatalf("unexpected resources (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"eventadmin:1.2.0"}, resourceNames(s.verified)); diff != "" {
		t.Fatalf("expected only concrete resources to be verified (-want +got):\n%s", diff)
	}
}

func TestResolve_Idempotence(t *testing.T) {
	a := resource.NewBuilder().AddIdentity("res1", "1.0.0").AddRequirement(resource.NamespaceIdentity, "res2").MustBuild()
	b := resource.NewBuilder().AddIdentity("res2", "1.0.0").MustBuild()
	engine := newEngine(repository.NewMemory(a, b))
	env := environment.NewMemory()
	req := identity("res1")

	first, err := engine.Resolve(testContext(t), env, []*resource.Requirement{req})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	InstallResources(env, first.Resources())

	second, err := engine.Resolve(testContext(t), env, []*resource.Requirement{req})
	if err != nil {
		t.Fatalf("second Resolve error: %v", err)
	}
	if len(second.Resources()) != 0 || !second.Satisfied() {
		t.Fatalf("expected empty result, got resources=%v unsatisfied=%v", second.Resources(), second.Unsatisfied())
	}
	if got, _ := second.Provider(req); got != a {
		t.Fatalf("expected mapping to the installed res1, got %v", got)
	}
}

func TestResolve_ArtifactCoordinates(t *testing.T) {
	alias := resource.NewBuilder().
		AddIdentity("tx-api", "1.0.1", resource.WithKind(resource.DelegatesTo(resource.NamespaceArtifact))).
		AddRequirement(resource.NamespaceArtifact, "org.jboss.spec:tx-api:1.0.1.Final").
		MustBuild()
	repo := repository.NewAggregate(repository.NewMemory(alias), repository.NewArtifact())
	req := identity("tx-api")

	result, err := newEngine(repo).Resolve(testContext(t), environment.NewMemory(), []*resource.Requirement{req})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	resources := result.Resources()
	if len(resources) != 1 {
		t.Fatalf("expected exactly one resource, got %v", resources)
	}
	if resources[0].Name() != "org.jboss.spec.tx-api" || resources[0].Abstract() {
		t.Fatalf("expected the concrete artifact resource, got %s", resources[0])
	}
	if !result.Satisfied() {
		t.Fatalf("expected no unsatisfied requirements, got %v", result.Unsatisfied())
	}
}

func TestResolve_RequestedArtifactIsMapped(t *testing.T) {
	req := resource.MustQuery(resource.NamespaceArtifact, "org.example:widget:2.1.0")

	result, err := newEngine(repository.NewArtifact()).Resolve(testContext(t), environment.NewMemory(), []*resource.Requirement{req})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	resources := result.Resources()
	if len(resources) != 1 {
		t.Fatalf("expected exactly one resource, got %v", resources)
	}
	if got, _ := result.Provider(req); got != resources[0] {
		t.Fatalf("expected mapping to the artifact resource, got %v", got)
	}
	if !result.Satisfied() {
		t.Fatalf("expected no unsatisfied requirements, got %v", result.Unsatisfied())
	}
}

func TestResolve_AliasWithoutDelegateProviderIsDropped(t *testing.T) {
	alias := resource.NewBuilder().
		AddIdentity("tx-api", "1.0.1", resource.WithKind(resource.DelegatesTo(resource.NamespaceArtifact))).
		AddRequirement(resource.NamespaceArtifact, "org.jboss.spec:tx-api:1.0.1.Final").
		MustBuild()
	req := identity("tx-api")

	result, err := newEngine(repository.NewMemory(alias)).Resolve(testContext(t), environment.NewMemory(), []*resource.Requirement{req})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if len(result.Resources()) != 0 {
		t.Fatalf("expected no resources, got %v", result.Resources())
	}
	if u := result.Unsatisfied(); len(u) != 1 || u[0] != req {
		t.Fatalf("expected the requirement to stay unsatisfied, got %v", u)
	}
}

func TestResolve_AmbiguousAliasKeepsAbstractWinner(t *testing.T) {
	alias := resource.NewBuilder().
		AddIdentity("tx-api", "1.0.1", resource.WithKind(resource.DelegatesTo(resource.NamespaceArtifact))).
		MustBuild()
	req := identity("tx-api")

	result, err := newEngine(repository.NewMemory(alias)).Resolve(testContext(t), environment.NewMemory(), []*resource.Requirement{req})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if len(result.Resources()) != 0 {
		t.Fatalf("expected the abstract alias to be excluded, got %v", result.Resources())
	}
	if got, _ := result.Provider(req); got != alias {
		t.Fatalf("expected mapping to the alias, got %v", got)
	}
}

func TestResolve_ConcreteCandidateBeatsAbstract(t *testing.T) {
	feature := resource.NewBuilder().AddIdentity("res1", "9.0.0").Abstract().MustBuild()
	concrete := resource.NewBuilder().AddIdentity("res1", "1.0.0").MustBuild()
	req := identity("res1")

	result, err := newEngine(repository.NewMemory(feature, concrete)).Resolve(testContext(t), environment.NewMemory(), []*resource.Requirement{req})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if diff := cmp.Diff([]string{"res1:1.0.0"}, resourceNames(result.Resources())); diff != "" {
		t.Fatalf("unexpected resources (-want +got):\n%s", diff)
	}
}

func TestResolve_NestedRequirementFilters(t *testing.T) {
	provided := resource.NewBuilder().AddIdentity("log", "1.0.0").MustBuild()
	app := resource.NewBuilder().
		AddIdentity("app", "1.0.0").
		AddRequirement(resource.NamespaceIdentity, "log").
		AddRequirement(resource.NamespaceIdentity, "metrics", resource.WithResolution(resource.ResolutionOptional)).
		AddRequirement(resource.NamespaceIdentity, "tracing", resource.WithResolution(resource.ResolutionDynamic)).
		MustBuild()
	unused := resource.NewBuilder().AddIdentity("log", "2.0.0").MustBuild()
	req := identity("app")

	result, err := newEngine(repository.NewMemory(app, unused)).Resolve(testContext(t), environment.NewMemory(provided), []*resource.Requirement{req})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if diff := cmp.Diff([]string{"app:1.0.0"}, resourceNames(result.Resources())); diff != "" {
		t.Fatalf("unexpected resources (-want +got):\n%s", diff)
	}
	if !result.Satisfied() {
		t.Fatalf("expected no unsatisfied requirements, got %v", result.Unsatisfied())
	}
}

func TestResolve_NestedNamespacesOption(t *testing.T) {
	app := resource.NewBuilder().
		AddIdentity("app", "1.0.0").
		AddRequirement(resource.NamespaceModule, "org.example.log:main").
		MustBuild()
	logModule := resource.NewBuilder().
		AddIdentity("log", "1.0.0").
		AddCapability(resource.NamespaceModule, "org.example.log:main").
		MustBuild()
	repo := repository.NewMemory(app, logModule)
	req := identity("app")

	withoutModules, err := newEngine(repo).Resolve(testContext(t), environment.NewMemory(), []*resource.Requirement{req})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if diff := cmp.Diff([]string{"app:1.0.0"}, resourceNames(withoutModules.Resources())); diff != "" {
		t.Fatalf("unexpected resources without module namespace (-want +got):\n%s", diff)
	}

	engine := newEngine(repo, WithNestedNamespaces(resource.NamespaceIdentity, resource.NamespaceModule))
	withModules, err := engine.Resolve(testContext(t), environment.NewMemory(), []*resource.Requirement{req})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if diff := cmp.Diff([]string{"app:1.0.0", "log:1.0.0"}, resourceNames(withModules.Resources())); diff != "" {
		t.Fatalf("unexpected resources with module namespace (-want +got):\n%s", diff)
	}
	if !withModules.Satisfied() {
		t.Fatalf("expected no unsatisfied requirements, got %v", withModules.Unsatisfied())
	}
}

func TestResolve_InstalledOwner(t *testing.T) {
	owner := resource.NewBuilder().
		AddIdentity("app", "1.0.0").
		AddRequirement(resource.NamespaceIdentity, "log").
		MustBuild()
	logRes := resource.NewBuilder().AddIdentity("log", "1.0.0").MustBuild()
	env := environment.NewMemory(owner)
	req := owner.Requirements()[0]

	result, err := newEngine(repository.NewMemory(logRes)).Resolve(testContext(t), env, []*resource.Requirement{req})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if got, _ := result.Provider(req); got != logRes {
		t.Fatalf("expected mapping to log, got %v", got)
	}
	if diff := cmp.Diff([]string{"log:1.0.0"}, resourceNames(result.Resources())); diff != "" {
		t.Fatalf("unexpected resources (-want +got):\n%s", diff)
	}
}

func TestResolve_DoesNotModifyEnvironment(t *testing.T) {
	res1 := resource.NewBuilder().AddIdentity("res1", "1.0.0").MustBuild()
	env := environment.NewMemory()

	if _, err := newEngine(repository.NewMemory(res1)).Resolve(testContext(t), env, []*resource.Requirement{identity("res1")}); err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if got := len(env.Resources()); got != 0 {
		t.Fatalf("expected caller environment to stay empty, got %d resources", got)
	}
}

type failingRepository struct{}

func (failingRepository) FindProviders(context.Context, *resource.Requirement) ([]*resource.Capability, error) {
	return nil, errors.New("index unavailable")
}

func TestResolve_RepositoryErrorsAreAbsorbed(t *testing.T) {
	req := identity("res1")
	result, err := newEngine(failingRepository{}).Resolve(testContext(t), environment.NewMemory(), []*resource.Requirement{req})
	if err != nil {
		t.Fatalf("expected repository errors to be absorbed, got %v", err)
	}
	if u := result.Unsatisfied(); len(u) != 1 || u[0] != req {
		t.Fatalf("expected the requirement to be unsatisfied, got %v", u)
	}
}

func TestResolve_InvalidArguments(t *testing.T) {
	engine := newEngine(repository.NewMemory())
	ctx := context.Background()

	tests := []struct {
		name string
		env  environment.Environment
		reqs []*resource.Requirement
	}{
		{"nil environment", nil, []*resource.Requirement{identity("a")}},
		{"nil requirements", environment.NewMemory(), nil},
		{"nil entry", environment.NewMemory(), []*resource.Requirement{identity("a"), nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Resolve(ctx, tt.env, tt.reqs)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}

	result, err := engine.Resolve(ctx, environment.NewMemory(), []*resource.Requirement{})
	if err != nil || !result.Satisfied() || len(result.Resources()) != 0 {
		t.Fatalf("expected empty result for empty requirements, got %v (err=%v)", result, err)
	}
}

func TestResolve_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newEngine(repository.NewMemory()).Resolve(ctx, environment.NewMemory(), []*resource.Requirement{identity("a")})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestResolve_ConcurrentCalls(t *testing.T) {
	a := resource.NewBuilder().AddIdentity("res1", "1.0.0").AddRequirement(resource.NamespaceIdentity, "res2").MustBuild()
	b := resource.NewBuilder().AddIdentity("res2", "1.0.0").MustBuild()
	engine := newEngine(repository.NewMemory(a, b))
	env := environment.NewMemory()

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := engine.Resolve(context.Background(), env, []*resource.Requirement{identity("res1")})
			if err != nil {
				errs <- err
				return
			}
			if len(result.Resources()) != 2 || !result.Satisfied() {
				errs <- errors.New("unexpected result " + cmp.Diff([]string{"res1:1.0.0", "res2:1.0.0"}, resourceNames(result.Resources())))
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}

func TestProvision_InstallsInDependencyOrder(t *testing.T) {
	a := resource.NewBuilder().AddIdentity("res1", "1.0.0").AddRequirement(resource.NamespaceIdentity, "res2").MustBuild()
	b := resource.NewBuilder().AddIdentity("res2", "1.0.0").MustBuild()
	env := environment.NewMemory()

	result, err := newEngine(repository.NewMemory(a, b)).Provision(testContext(t), env, []*resource.Requirement{identity("res1")})
	if err != nil {
		t.Fatalf("Provision error: %v", err)
	}
	if len(result.Resources()) != 2 {
		t.Fatalf("expected 2 resources, got %v", result.Resources())
	}
	if diff := cmp.Diff([]string{"res2:1.0.0", "res1:1.0.0"}, resourceNames(env.Resources())); diff != "" {
		t.Fatalf("unexpected install order (-want +got):\n%s", diff)
	}
}

func TestProvision_Unsatisfied(t *testing.T) {
	a := resource.NewBuilder().AddIdentity("res1", "1.0.0").AddRequirement(resource.NamespaceIdentity, "missing").MustBuild()
	env := environment.NewMemory()

	_, err := newEngine(repository.NewMemory(a)).Provision(testContext(t), env, []*resource.Requirement{identity("res1")})
	var unsatisfied *UnsatisfiedError
	if !errors.As(err, &unsatisfied) {
		t.Fatalf("expected UnsatisfiedError, got %v", err)
	}
	if reqs := unsatisfied.Requirements(); len(reqs) == 0 {
		t.Fatalf("expected unsatisfied requirements to be reported")
	}
	if got := len(env.Resources()); got != 0 {
		t.Fatalf("expected nothing installed, got %d resources", got)
	}
}
