package apperrors

import "errors"

// Standard application errors
var (
	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when the input provided by the client is invalid.
	ErrInvalidInput = errors.New("invalid input provided")

	// ErrUnreachable is returned when an endpoint cannot be reached at all.
	ErrUnreachable = errors.New("endpoint unreachable")

	// ErrTimeout is returned when an operation times out.
	ErrTimeout = errors.New("operation timed out")

	// ErrChainMismatch is returned when an endpoint reports a different chain ID than expected.
	ErrChainMismatch = errors.New("endpoint reported unexpected chain id")

	// ErrMalformedResponse is returned when an endpoint answers with an unparseable payload.
	ErrMalformedResponse = errors.New("malformed endpoint response")

	// ErrExternalServiceFailure is returned when an interaction with an external service fails.
	ErrExternalServiceFailure = errors.New("external service interaction failed")

	// ErrInternal is returned for unexpected internal system errors.
	ErrInternal = errors.New("internal system error")
)
