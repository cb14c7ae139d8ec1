package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	// ErrRateLimited is an explicit quota signal from an upstream provider.
	// Callers skip retries when they see it.
	ErrRateLimited     = errors.New("upstream rate limited")
	ErrMalformedOutput = errors.New("malformed provider output")
	ErrRunInProgress   = errors.New("pipeline run already in progress")
)
