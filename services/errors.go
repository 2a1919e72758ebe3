package services

import "errors"

// Error taxonomy shared by the services and mapped to HTTP status codes in
// the route handlers.
var (
	// ErrNotFound: unknown paper, keyword or user identifier.
	ErrNotFound = errors.New("not found")
	// ErrJobInFlight: a stage-2/3 job is already running for the paper.
	ErrJobInFlight = errors.New("analysis job already in flight")
	// ErrStagePrecondition: stage 3 requested before stage 2 exists.
	ErrStagePrecondition = errors.New("stage precondition not met")
	// ErrDuplicate: keyword already present in its category, or user exists.
	ErrDuplicate = errors.New("already exists")
	// ErrUpstream: an external API or the AI CLI failed; wrapped with detail.
	ErrUpstream = errors.New("upstream request failed")
)
