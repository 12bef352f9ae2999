package provision

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/go-logr/logr"

	"github.com/anvil-platform/provisioner/internal/environment"
	"github.com/anvil-platform/provisioner/internal/graph"
	"github.com/anvil-platform/provisioner/internal/repository"
	"github.com/anvil-platform/provisioner/internal/resource"
	"github.com/anvil-platform/provisioner/internal/solver"
)

// Provisioner computes the resources needed to satisfy a set of requirements.
type Provisioner interface {
	Resolve(ctx context.Context, env environment.Environment, reqs []*resource.Requirement) (*Result, error)
}

// Engine alternates solving what is present with fetching what is missing
// from a repository until no more progress can be made.
//
// An Engine holds no per-call state and may be shared between goroutines.
// Each Resolve works on a private clone of the environment it is given.
type Engine struct {
	solver solver.Solver
	repo   repository.Repository
	nested []resource.Namespace
	verify bool
}

var _ Provisioner = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithNestedNamespaces sets the requirement namespaces of newly installed
// resources that the closure follows. Requirements in other namespaces are left
// to the solver.
func WithNestedNamespaces(ns ...resource.Namespace) Option {
	return func(e *Engine) { e.nested = slices.Clone(ns) }
}

// WithVerification toggles the final consistency solve over the caller's
// environment. Failures are only logged.
func WithVerification(enabled bool) Option {
	return func(e *Engine) { e.verify = enabled }
}

func New(s solver.Solver, repo repository.Repository, opts ...Option) *Engine {
	e := &Engine{
		solver: s,
		repo:   repo,
		nested: []resource.Namespace{resource.NamespaceIdentity, resource.NamespaceArtifact},
		verify: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Resolve computes the closure of reqs against env. env is never modified.
//
// Requirements that cannot be satisfied are reported in the result rather than
// as an error. Errors are returned for invalid arguments and cancellation only.
func (e *Engine) Resolve(ctx context.Context, env environment.Environment, reqs []*resource.Requirement) (*Result, error) {
	if env == nil {
		return nil, fmt.Errorf("%w: environment is nil", ErrInvalidArgument)
	}
	if reqs == nil {
		return nil, fmt.Errorf("%w: requirements are nil", ErrInvalidArgument)
	}
	for i, req := range reqs {
		if req == nil {
			return nil, fmt.Errorf("%w: requirement %d is nil", ErrInvalidArgument, i)
		}
	}

	log := logr.FromContextOrDiscard(ctx).WithName("provision")
	ctx = logr.NewContext(ctx, log)

	c := newClosure(env.Clone(), reqs)
	for pass := 1; ; pass++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e.solvePass(ctx, c)
		if c.unsatisfied.empty() {
			log.V(1).Info("closure complete", "pass", pass, "resources", len(c.results))
			break
		}
		installable := e.repositoryPass(ctx, c)
		if !e.installPass(c, installable) {
			log.V(1).Info("no further progress", "pass", pass, "unsatisfied", c.unsatisfied.len())
			break
		}
		log.V(1).Info("installed candidates", "pass", pass, "count", len(installable))
	}

	result := c.result()
	if e.verify && result.Satisfied() {
		e.verifyResult(ctx, env, result.Resources())
	}
	return result, nil
}

// Provision resolves reqs and installs the result into env with providers
// ahead of their consumers. Nothing is installed when a requirement remains
// unsatisfied; the error is then an *UnsatisfiedError.
func (e *Engine) Provision(ctx context.Context, env environment.Environment, reqs []*resource.Requirement) (*Result, error) {
	result, err := e.Resolve(ctx, env, reqs)
	if err != nil {
		return nil, err
	}
	if !result.Satisfied() {
		return result, &UnsatisfiedError{Result: result}
	}
	InstallResources(env, graph.Build(result.Resources(), env).InstallOrder())
	return result, nil
}

// InstallResources installs resources into env one at a time, in order.
func InstallResources(env environment.Environment, resources []*resource.Resource) {
	for _, res := range resources {
		env.Install(res)
	}
}

// solvePass records the wires the solver found for tracked requirements. A
// failed solve still contributes the wiring of the resources that resolved.
func (e *Engine) solvePass(ctx context.Context, c *closure) {
	mandatory := append(slices.Clone(c.seeds), c.results...)
	wiring, err := e.solver.Resolve(ctx, e.solver.NewContext(c.clone, mandatory, c.installedOwners))
	if err != nil {
		var unresolved *solver.UnresolvedError
		if !errors.As(err, &unresolved) {
			logr.FromContextOrDiscard(ctx).Error(err, "solver failed")
			return
		}
		logr.FromContextOrDiscard(ctx).V(2).Info("partial wiring", "unresolved", len(unresolved.Requirements))
	}

	for _, req := range c.requested {
		if _, ok := c.mapping[req]; ok {
			continue
		}
		if provider, ok := wiring.Provider(req); ok {
			c.mapping[req] = provider
			c.unsatisfied.remove(req)
		}
	}
	for _, req := range c.unsatisfied.list() {
		if _, ok := wiring.Provider(req); ok {
			c.unsatisfied.remove(req)
		}
	}
}

// repositoryPass picks one installable resource for every unsatisfied
// requirement the repository can serve.
func (e *Engine) repositoryPass(ctx context.Context, c *closure) []*resource.Resource {
	log := logr.FromContextOrDiscard(ctx)
	var installable []*resource.Resource

	for _, req := range c.unsatisfied.list() {
		if len(c.clone.FindProviders(req)) > 0 {
			continue
		}
		caps, err := e.repo.FindProviders(ctx, req)
		if err != nil {
			log.Error(err, "repository lookup failed", "requirement", req.String())
			continue
		}
		winner := resource.Best(caps)
		if winner == nil {
			log.V(1).Info("no provider", "requirement", req.String())
			continue
		}

		res := winner.Resource()
		consumed := req.Namespace() == resource.NamespaceArtifact
		if ns, ok := winner.Kind().Delegate(); ok {
			delegate, outcome := e.indirect(ctx, res, ns)
			switch outcome {
			case delegateFound:
				log.V(1).Info("substituted alias", "alias", res.String(), "delegate", delegate.String())
				res = delegate
				consumed = true
			case delegateMissing:
				log.V(1).Info("alias delegate has no provider", "alias", res.String(), "namespace", string(ns))
				continue
			case delegateAmbiguous:
				log.V(1).Info("alias delegate is ambiguous", "alias", res.String(), "namespace", string(ns))
			}
		}
		if consumed {
			c.unsatisfied.remove(req)
		}
		if c.installed(res) || slices.Contains(installable, res) {
			continue
		}
		installable = append(installable, res)
	}
	return installable
}

type delegateOutcome int

const (
	delegateFound delegateOutcome = iota
	delegateMissing
	delegateAmbiguous
)

// indirect resolves one level of alias indirection: the alias must carry
// exactly one requirement in ns, and the best repository provider for it
// replaces the alias.
func (e *Engine) indirect(ctx context.Context, alias *resource.Resource, ns resource.Namespace) (*resource.Resource, delegateOutcome) {
	reqs := alias.Requirements(ns)
	if len(reqs) != 1 {
		return nil, delegateAmbiguous
	}
	caps, err := e.repo.FindProviders(ctx, reqs[0])
	if err != nil {
		logr.FromContextOrDiscard(ctx).Error(err, "repository lookup failed", "requirement", reqs[0].String())
		return nil, delegateMissing
	}
	best := resource.Best(caps)
	if best == nil {
		return nil, delegateMissing
	}
	return best.Resource(), delegateFound
}

// installPass installs candidates into the clone and starts tracking their
// nested requirements. It reports whether anything was installed.
func (e *Engine) installPass(c *closure, installable []*resource.Resource) bool {
	progressed := false
	for _, res := range installable {
		if c.installed(res) {
			continue
		}
		for _, req := range res.Requirements(e.nested...) {
			if req.Optional() || len(c.clone.FindProviders(req)) > 0 {
				continue
			}
			c.unsatisfied.add(req)
		}
		c.clone.Install(res)
		c.results = append(c.results, res)
		progressed = true
	}
	return progressed
}

func (e *Engine) verifyResult(ctx context.Context, env environment.Environment, results []*resource.Resource) {
	if len(results) == 0 {
		return
	}
	_, err := e.solver.Resolve(ctx, e.solver.NewContext(env, results, nil))
	if err != nil {
		logr.FromContextOrDiscard(ctx).Info("result failed verification", "error", err.Error())
	}
}
