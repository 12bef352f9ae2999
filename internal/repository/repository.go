package repository

import (
	"context"

	"github.com/anvil-platform/provisioner/internal/resource"
)

// Repository is an index of resources that are available but not installed.
type Repository interface {
	// FindProviders returns capabilities anywhere in the index that match req.
	// The result may be empty and may include capabilities of abstract resources.
	// Order is not significant.
	FindProviders(ctx context.Context, req *resource.Requirement) ([]*resource.Capability, error)
}
