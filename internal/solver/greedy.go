package solver

import (
	"context"
	"math"
	"slices"

	"github.com/go-logr/logr"

	"github.com/anvil-platform/provisioner/internal/environment"
	"github.com/anvil-platform/provisioner/internal/resource"
)

// Greedy is a depth-first solver. For every requirement it tries candidates in
// order of preference (already part of the resolution, then concrete before
// abstract, then highest version) and keeps the first whose own mandatory
// requirements resolve. It never backtracks over a choice once made.
type Greedy struct{}

var _ Solver = Greedy{}

func NewGreedy() Greedy {
	return Greedy{}
}

func (Greedy) NewContext(env environment.Environment, mandatory, optional []*resource.Resource) *Context {
	return newContext(env, mandatory, optional)
}

func (Greedy) Resolve(ctx context.Context, rc *Context) (Wiring, error) {
	if rc == nil || rc.Environment == nil {
		return nil, ErrNoEnvironment
	}
	log := logr.FromContextOrDiscard(ctx).WithName("solver")

	s := &search{
		rc:      rc,
		state:   make(map[*resource.Resource]state),
		depth:   make(map[*resource.Resource]int),
		low:     make(map[*resource.Resource]int),
		missing: make(map[*resource.Resource][]*resource.Requirement),
		wiring:  make(Wiring),
	}

	var unresolved []*resource.Requirement
	for _, res := range rc.Mandatory {
		if err := ctx.Err(); err != nil {
			return s.wiring, err
		}
		if ok, _ := s.resolve(res); !ok {
			unresolved = append(unresolved, s.missing[res]...)
		}
	}
	for _, res := range rc.Optional {
		if err := ctx.Err(); err != nil {
			return s.wiring, err
		}
		if ok, _ := s.resolve(res); !ok {
			log.V(2).Info("dropping optional resource", "resource", res.String())
		}
	}

	if len(unresolved) > 0 {
		log.V(1).Info("resolution incomplete", "unresolved", len(unresolved))
		return s.wiring, &UnresolvedError{Requirements: unresolved}
	}
	return s.wiring, nil
}

type state int

const (
	unvisited state = iota
	resolving
	resolved
	failed
)

// settled is the low mark of a result that relies on no unfinished resource.
const settled = math.MaxInt

type search struct {
	rc    *Context
	state map[*resource.Resource]state
	// depth is the stack position of every resource being resolved.
	depth map[*resource.Resource]int
	// low holds, for tentative successes, the shallowest unfinished resource
	// they relied on.
	low       map[*resource.Resource]int
	tentative []*resource.Resource
	missing   map[*resource.Resource][]*resource.Requirement
	wiring    Wiring
}

// resolve reports whether res can be wired. A resource that is still being
// resolved higher up the stack counts as resolvable so that cycles terminate;
// successes that relied on it stay tentative and are discarded if it fails.
//
// The second result is the stack depth of the shallowest unfinished resource
// the answer relied on, or settled.
func (s *search) resolve(res *resource.Resource) (bool, int) {
	switch s.state[res] {
	case resolving:
		return true, s.depth[res]
	case resolved:
		if low, ok := s.low[res]; ok {
			return true, low
		}
		return true, settled
	case failed:
		return false, settled
	}
	d := len(s.depth)
	s.depth[res] = d
	s.state[res] = resolving
	mark := len(s.tentative)
	low := settled

	var wires []Wire
	var missing []*resource.Requirement
	for _, req := range res.Requirements() {
		var chosen *resource.Capability
		for _, c := range s.candidates(req) {
			if ok, l := s.resolve(c.Resource()); ok {
				chosen = c
				low = min(low, l)
				break
			}
		}
		switch {
		case chosen != nil:
			wires = append(wires, Wire{Requirement: req, Capability: chosen, Provider: chosen.Resource()})
		case !req.Optional():
			missing = append(missing, req)
		}
	}
	delete(s.depth, res)

	if len(missing) > 0 {
		s.state[res] = failed
		s.missing[res] = missing
		s.discard(mark)
		return false, settled
	}
	s.state[res] = resolved
	s.wiring[res] = wires
	if low < d {
		s.low[res] = low
		s.tentative = append(s.tentative, res)
		return true, low
	}
	s.confirm(mark)
	return true, settled
}

// discard forgets the tentative successes recorded since mark so that they are
// searched again without the assumption that failed.
func (s *search) discard(mark int) {
	for _, res := range s.tentative[mark:] {
		s.state[res] = unvisited
		delete(s.wiring, res)
		delete(s.low, res)
	}
	s.tentative = s.tentative[:mark]
}

// confirm makes the tentative successes recorded since mark final.
func (s *search) confirm(mark int) {
	for _, res := range s.tentative[mark:] {
		delete(s.low, res)
	}
	s.tentative = s.tentative[:mark]
}

// candidates returns the capabilities matching req among the environment and
// the resources of the context, most preferred first.
func (s *search) candidates(req *resource.Requirement) []*resource.Capability {
	caps := s.rc.Environment.FindProviders(req)
	for _, group := range [][]*resource.Resource{s.rc.Mandatory, s.rc.Optional} {
		for _, res := range group {
			if s.rc.Environment.Contains(res) {
				continue
			}
			for _, c := range res.Capabilities(req.Namespace()) {
				if req.Matches(c) && !slices.Contains(caps, c) {
					caps = append(caps, c)
				}
			}
		}
	}
	slices.SortStableFunc(caps, func(a, b *resource.Capability) int {
		ai, bi := s.inResolution(a.Resource()), s.inResolution(b.Resource())
		if ai != bi {
			if ai {
				return -1
			}
			return 1
		}
		return resource.ComparePreference(a, b)
	})
	return caps
}

func (s *search) inResolution(res *resource.Resource) bool {
	st := s.state[res]
	return st == resolving || st == resolved
}
