package solver

import "errors"

var (
	// ErrNoEnvironment is returned when a resolution context carries no environment.
	ErrNoEnvironment = errors.New("solver: resolution context has no environment")
)
