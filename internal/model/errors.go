package model

import "errors"

var (
	// ErrModelInvocation wraps failures returned by the LLM collaborator.
	ErrModelInvocation = errors.New("model invocation failed")

	// ErrResponseParse marks model output that is malformed or violates the schema.
	ErrResponseParse = errors.New("response parse failed")

	// ErrCacheBackend marks a durable cache that could not be reached.
	ErrCacheBackend = errors.New("cache backend unavailable")

	// ErrEmptyQuery is returned when a request carries no query text.
	ErrEmptyQuery = errors.New("query cannot be empty")
)
