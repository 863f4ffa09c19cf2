// ABOUTME: Dispatcher routes webhook events to type-specific handlers
// ABOUTME: Maps handler outcomes to HTTP status codes and JSON bodies

package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/2389/convo-gateway/internal/conversation"
	"github.com/2389/convo-gateway/internal/dedupe"
	"github.com/2389/convo-gateway/internal/store"
)

// SeenCache remembers ids already created through the webhook.
// *dedupe.Cache satisfies it.
type SeenCache interface {
	Contains(key string) bool
	Add(key string)
	Remove(key string) bool
}

// Response is the HTTP outcome of a webhook delivery
type Response struct {
	Status int
	Body   map[string]string
}

type handlerFunc func(ctx context.Context, data json.RawMessage) (*Response, error)

// Dispatcher validates events and applies them through the conversation service.
type Dispatcher struct {
	conversations *conversation.Service
	seen          SeenCache
	logger        *slog.Logger
	handlers      map[EventType]handlerFunc
}

// NewDispatcher creates a Dispatcher. seen may be nil to disable the replay fast path.
func NewDispatcher(conversations *conversation.Service, seen SeenCache, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		conversations: conversations,
		seen:          seen,
		logger:        logger.With("component", "webhook"),
	}
	d.handlers = map[EventType]handlerFunc{
		EventNewConversation:   d.handleNewConversation,
		EventNewMessage:        d.handleNewMessage,
		EventCloseConversation: d.handleCloseConversation,
	}
	return d
}

// Dispatch parses a raw body and applies the event. It never returns nil.
func (d *Dispatcher) Dispatch(ctx context.Context, body []byte) *Response {
	ev, err := ParseEvent(body)
	if err != nil {
		d.logger.Info("webhook rejected", "error", err)
		return ErrorResponse(err)
	}

	resp, err := d.Handle(ctx, ev)
	if err != nil {
		if conversation.IsClientError(err) {
			d.logger.Info("webhook rejected", "type", ev.Type, "error", err)
		} else {
			d.logger.Error("webhook failed", "type", ev.Type, "error", err)
		}
		return ErrorResponse(err)
	}
	return resp
}

// Handle routes an already parsed event to its handler.
func (d *Dispatcher) Handle(ctx context.Context, ev *Event) (*Response, error) {
	handler, ok := d.handlers[ev.Type]
	if !ok {
		return nil, conversation.NewError(conversation.ErrUnknownEventType, "Unknown event type")
	}

	if ev.BadTimestamp != nil {
		d.logger.Debug("ignoring non-string timestamp", "type", ev.Type, "timestamp", string(ev.BadTimestamp))
	}
	d.logger.Debug("dispatching webhook event", "type", ev.Type, "timestamp", ev.Timestamp)
	return handler(ctx, ev.Data)
}

// ErrorResponse converts an error into a Response. Internal failures get a
// generic message so storage details never reach the caller.
func ErrorResponse(err error) *Response {
	status := conversation.HTTPStatus(err)
	msg := "internal server error"
	if conversation.IsClientError(err) {
		msg = err.Error()
	}
	return &Response{Status: status, Body: map[string]string{"error": msg}}
}

// seenInStore reports whether key is cached and the store still holds the
// entity. A cached key whose entity is gone (purged or deleted) is dropped
// so the event takes the normal path.
func (d *Dispatcher) seenInStore(ctx context.Context, key string, exists func(context.Context) (bool, error)) (bool, error) {
	if d.seen == nil || !d.seen.Contains(key) {
		return false, nil
	}
	ok, err := exists(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		d.seen.Remove(key)
		d.logger.Debug("dropped stale dedupe key", "key", key)
	}
	return ok, nil
}

// decodeData unmarshals the event data into the handler's payload type.
func decodeData(eventType EventType, data json.RawMessage, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return conversation.NewError(conversation.ErrMalformedPayload,
			fmt.Sprintf("Invalid data for %s event", eventType))
	}
	return nil
}

type newConversationData struct {
	ID string `json:"id"`
}

func (d *Dispatcher) handleNewConversation(ctx context.Context, data json.RawMessage) (*Response, error) {
	var in newConversationData
	if err := decodeData(EventNewConversation, data, &in); err != nil {
		return nil, err
	}

	if in.ID != "" {
		seen, err := d.seenInStore(ctx, dedupe.ConversationKey(in.ID), func(ctx context.Context) (bool, error) {
			return d.conversations.ConversationExists(ctx, in.ID)
		})
		if err != nil {
			return nil, err
		}
		if seen {
			return nil, conversation.ErrConversationExists
		}
	}

	conv, err := d.conversations.Open(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if d.seen != nil {
		d.seen.Add(dedupe.ConversationKey(conv.ID))
	}

	return &Response{
		Status: http.StatusCreated,
		Body: map[string]string{
			"message":         "Conversation created",
			"conversation_id": conv.ID,
		},
	}, nil
}

type newMessageData struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	Direction      string `json:"direction"`
	Content        string `json:"content"`
}

func (d *Dispatcher) handleNewMessage(ctx context.Context, data json.RawMessage) (*Response, error) {
	var in newMessageData
	if err := decodeData(EventNewMessage, data, &in); err != nil {
		return nil, err
	}

	// Field validation comes before the replay check so a replayed but
	// invalid event still reports the field problem.
	valid := in.ID != "" && in.ConversationID != "" && in.Content != "" &&
		store.MessageDirection(in.Direction).Valid()
	if valid {
		seen, err := d.seenInStore(ctx, dedupe.MessageKey(in.ID), func(ctx context.Context) (bool, error) {
			return d.conversations.MessageExists(ctx, in.ID)
		})
		if err != nil {
			return nil, err
		}
		if seen {
			return nil, conversation.ErrMessageExists
		}
	}

	msg, err := d.conversations.AddMessage(ctx, conversation.NewMessage{
		ID:             in.ID,
		ConversationID: in.ConversationID,
		Direction:      in.Direction,
		Content:        in.Content,
	})
	if err != nil {
		return nil, err
	}
	if d.seen != nil {
		d.seen.Add(dedupe.MessageKey(msg.ID))
	}

	return &Response{
		Status: http.StatusCreated,
		Body: map[string]string{
			"message":    "Message created",
			"message_id": msg.ID,
		},
	}, nil
}

type closeConversationData struct {
	ID string `json:"id"`
}

func (d *Dispatcher) handleCloseConversation(ctx context.Context, data json.RawMessage) (*Response, error) {
	var in closeConversationData
	if err := decodeData(EventCloseConversation, data, &in); err != nil {
		return nil, err
	}

	result, err := d.conversations.Close(ctx, in.ID)
	if err != nil {
		return nil, err
	}

	return &Response{
		Status: http.StatusOK,
		Body:   CloseBody(result),
	}, nil
}

// CloseBody is the success body for a close, shared with the Query API close endpoint.
func CloseBody(result *conversation.CloseResult) map[string]string {
	msg := "Conversation closed"
	if result.AlreadyClosed {
		msg = "Conversation already closed"
	}
	return map[string]string{
		"message":         msg,
		"conversation_id": result.Conversation.ID,
	}
}
