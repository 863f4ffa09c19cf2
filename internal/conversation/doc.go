// Package conversation holds the conversation lifecycle rules and the service
// every entry point (webhook and Query API) goes through.
//
// # State Machine
//
//	OPEN ──close──▶ CLOSED
//
// OPEN is initial, CLOSED is terminal. Only OPEN conversations accept messages.
//
// # Errors
//
// Failures are reported as *Error values wrapping one of the kind sentinels
// (ErrMissingField, ErrConflict, ErrNotFound, ...). Callers branch with
// errors.Is and map to HTTP with HTTPStatus. Any error that does not wrap a
// kind is an internal failure.
package conversation
