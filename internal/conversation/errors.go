// ABOUTME: Error taxonomy shared by the webhook dispatcher and the Query API
// ABOUTME: Kind sentinels, the Error wrapper and the HTTP status mapping

package conversation

import (
	"errors"
	"net/http"
)

// Error kinds. Match with errors.Is.
var (
	ErrMalformedPayload = errors.New("malformed payload")
	ErrPayloadTooLarge  = errors.New("payload too large")
	ErrMissingField     = errors.New("missing field")
	ErrInvalidField     = errors.New("invalid field")
	ErrUnknownEventType = errors.New("unknown event type")
	ErrConflict         = errors.New("conflict")
	ErrNotFound         = errors.New("not found")
	ErrInvalidState     = errors.New("invalid state")
)

// Error is a client-facing failure: a kind plus the message returned in the "error" field.
type Error struct {
	Kind    error
	Message string
}

// NewError creates an Error of the given kind.
func NewError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// HTTPStatus maps an error to the status code returned to clients.
// Errors that carry no kind are internal failures.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrMalformedPayload),
		errors.Is(err, ErrMissingField),
		errors.Is(err, ErrInvalidField),
		errors.Is(err, ErrUnknownEventType),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrInvalidState):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// IsClientError reports whether err is one of the known kinds, as opposed to an internal failure.
func IsClientError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// Client-facing errors returned by Service.
var (
	ErrConversationIDMissing = NewError(ErrMissingField, "Missing conversation ID")
	ErrMessageFieldsMissing  = NewError(ErrMissingField, "Missing required message fields")
	ErrInvalidDirection      = NewError(ErrInvalidField, "Invalid message direction, expected SENT or RECEIVED")
	ErrConversationExists    = NewError(ErrConflict, "Conversation already exists")
	ErrMessageExists         = NewError(ErrConflict, "Message already exists")
	ErrConversationNotFound  = NewError(ErrNotFound, "Conversation not found")
	ErrConversationClosed    = NewError(ErrInvalidState, "Cannot add message to closed conversation")
)
