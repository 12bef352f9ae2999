package rpc

import "errors"

var (
	ErrMissingNamespace    = errors.New("rpc: namespace is required")
	ErrMissingRequirements = errors.New("rpc: at least one requirement is required")
	ErrMalformedMessage    = errors.New("rpc: malformed message")
)
