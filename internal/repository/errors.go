package repository

import "errors"

var (
	// ErrInvalidCoordinate indicates an artifact requirement whose value is not group:name:version.
	ErrInvalidCoordinate = errors.New("invalid artifact coordinate")
	// ErrNoDelegates is returned by an Aggregate without repositories.
	ErrNoDelegates = errors.New("aggregate repository has no delegates")
)
