package resource

import "errors"

var (
	// ErrNoIdentity is returned when a non-query resource is built without an identity capability.
	ErrNoIdentity = errors.New("resource has no identity capability")

	// ErrInvalidVersion is returned for capability versions that cannot be parsed.
	ErrInvalidVersion = errors.New("invalid capability version")

	// ErrInvalidConstraint is returned for requirement version constraints that cannot be parsed.
	ErrInvalidConstraint = errors.New("invalid version constraint")

	// ErrInvalidResolution is returned for unknown resolution directives.
	ErrInvalidResolution = errors.New("invalid resolution directive")

	// ErrEmptyNamespace is returned for capabilities or requirements without a namespace.
	ErrEmptyNamespace = errors.New("namespace must not be empty")
)
