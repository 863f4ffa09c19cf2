package conversation

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"malformed", NewError(ErrMalformedPayload, "Invalid JSON"), http.StatusBadRequest},
		{"too large", NewError(ErrPayloadTooLarge, "Payload too large"), http.StatusRequestEntityTooLarge},
		{"missing", ErrConversationIDMissing, http.StatusBadRequest},
		{"invalid field", ErrInvalidDirection, http.StatusBadRequest},
		{"unknown type", NewError(ErrUnknownEventType, "Unknown event type"), http.StatusBadRequest},
		{"conflict", ErrConversationExists, http.StatusBadRequest},
		{"invalid state", ErrConversationClosed, http.StatusBadRequest},
		{"not found", ErrConversationNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("handler: %w", ErrConversationNotFound), http.StatusNotFound},
		{"internal", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestError_MessageAndKind(t *testing.T) {
	err := NewError(ErrConflict, "Message already exists")

	assert.Equal(t, "Message already exists", err.Error())
	assert.ErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.True(t, IsClientError(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, IsClientError(errors.New("plain")))
}
