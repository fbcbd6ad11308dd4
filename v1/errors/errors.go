package errors

import "errors"

var (
	// ErrInvalidMaxSize is returned when a negative capacity is configured.
	ErrInvalidMaxSize = errors.New("resultcache: invalid max size")
	// ErrInvalidTTL is returned when a negative TTL is configured.
	ErrInvalidTTL = errors.New("resultcache: invalid ttl")
	// ErrEmptyPrompt is returned when a generation request carries no prompt.
	ErrEmptyPrompt = errors.New("generation: empty prompt")
	// ErrGeneratorUnavailable is returned when no generator backs a request.
	ErrGeneratorUnavailable = errors.New("generation: generator unavailable")
)
