package domain

import "errors"

var (
	// ErrAuthenticationRequired is returned when a client-initiated call is
	// missing the required user or session identity.
	ErrAuthenticationRequired = errors.New("authentication required")

	// ErrMalformedRequest is returned when a required field of a request
	// body is missing.
	ErrMalformedRequest = errors.New("malformed request")
)
