package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/anvil-platform/provisioner/internal/resource"
)

// Aggregate chains repositories. Providers of every delegate are concatenated
// in delegate order.
type Aggregate struct {
	delegates []Repository
}

var _ Repository = (*Aggregate)(nil)

func NewAggregate(delegates ...Repository) *Aggregate {
	return &Aggregate{delegates: delegates}
}

// FindProviders skips failing delegates as long as one succeeds. When all of
// them fail, the joined errors are returned.
func (a *Aggregate) FindProviders(ctx context.Context, req *resource.Requirement) ([]*resource.Capability, error) {
	if len(a.delegates) == 0 {
		return nil, ErrNoDelegates
	}
	log := logr.FromContextOrDiscard(ctx)

	var out []*resource.Capability
	var errs []error
	for i, d := range a.delegates {
		caps, err := d.FindProviders(ctx, req)
		if err != nil {
			log.V(1).Info("repository lookup failed", "delegate", i, "requirement", req.String(), "error", err.Error())
			errs = append(errs, fmt.Errorf("delegate %d: %w", i, err))
			continue
		}
		out = append(out, caps...)
	}
	if len(errs) == len(a.delegates) {
		return nil, errors.Join(errs...)
	}
	return out, nil
}
