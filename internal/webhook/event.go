// ABOUTME: Webhook event envelope and its validation
// ABOUTME: Rejects malformed JSON, missing type/data and non-object data

package webhook

import (
	"bytes"
	"encoding/json"

	"github.com/2389/convo-gateway/internal/conversation"
)

// EventType identifies the kind of state change an event describes
type EventType string

const (
	EventNewConversation   EventType = "NEW_CONVERSATION"
	EventNewMessage        EventType = "NEW_MESSAGE"
	EventCloseConversation EventType = "CLOSE_CONVERSATION"
)

// Event is a parsed webhook envelope. Data is left raw for the type-specific handler.
type Event struct {
	Type      EventType
	Timestamp string
	Data      json.RawMessage

	// BadTimestamp holds a timestamp value that was present but not a string.
	BadTimestamp json.RawMessage
}

var (
	errInvalidJSON   = conversation.NewError(conversation.ErrMalformedPayload, "Invalid JSON")
	errInvalidFormat = conversation.NewError(conversation.ErrMissingField, "Invalid webhook format")
	errDataNotObject = conversation.NewError(conversation.ErrMalformedPayload, "Webhook data must be a JSON object")
	errTypeNotString = conversation.NewError(conversation.ErrMalformedPayload, "Webhook type must be a string")
)

// ParseEvent decodes and validates a webhook body.
// An absent, null or empty type or data is a missing field. An empty data
// object counts as no data.
func ParseEvent(body []byte) (*Event, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, errInvalidJSON
	}

	rawType, ok := envelope["type"]
	if !ok || isNull(rawType) {
		return nil, errInvalidFormat
	}
	var eventType string
	if err := json.Unmarshal(rawType, &eventType); err != nil {
		return nil, errTypeNotString
	}
	if eventType == "" {
		return nil, errInvalidFormat
	}

	rawData, ok := envelope["data"]
	if !ok || isNull(rawData) {
		return nil, errInvalidFormat
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(rawData, &fields); err != nil {
		return nil, errDataNotObject
	}
	if len(fields) == 0 {
		return nil, errInvalidFormat
	}

	ev := &Event{
		Type: EventType(eventType),
		Data: rawData,
	}

	// timestamp is informational; a non-string value never rejects the event
	if rawTS, ok := envelope["timestamp"]; ok {
		if err := json.Unmarshal(rawTS, &ev.Timestamp); err != nil {
			ev.BadTimestamp = rawTS
		}
	}

	return ev, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
