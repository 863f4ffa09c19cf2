// ABOUTME: Service applies conversation lifecycle rules on top of the store
// ABOUTME: Webhook handlers and Query API handlers both go through here

package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/2389/convo-gateway/internal/store"
)

// ConversationStore defines what the service needs from storage
type ConversationStore interface {
	CreateConversation(ctx context.Context, conv *store.Conversation) error
	GetConversation(ctx context.Context, id string) (*store.Conversation, error)
	ListConversations(ctx context.Context) ([]*store.Conversation, error)
	CloseConversation(ctx context.Context, id string) error

	CreateMessage(ctx context.Context, msg *store.Message) error
	GetMessage(ctx context.Context, id string) (*store.Message, error)
	ListMessages(ctx context.Context, conversationID string) ([]*store.Message, error)
	ListAllMessages(ctx context.Context) ([]*store.Message, error)

	Stats(ctx context.Context) (*store.Stats, error)
}

// Service enforces the conversation state machine and translates store
// errors into the client-facing error taxonomy.
type Service struct {
	store  ConversationStore
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the clock used for created_at timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a new Service
func New(st ConversationStore, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:  st,
		logger: logger.With("component", "conversation"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewMessage is the input for AddMessage
type NewMessage struct {
	ID             string
	ConversationID string
	Direction      string
	Content        string
}

// CloseResult reports the outcome of Close
type CloseResult struct {
	Conversation  *store.Conversation
	AlreadyClosed bool
}

// Open creates a conversation in the initial state.
func (s *Service) Open(ctx context.Context, id string) (*store.Conversation, error) {
	if id == "" {
		return nil, ErrConversationIDMissing
	}

	conv := &store.Conversation{
		ID:        id,
		State:     InitialState,
		CreatedAt: s.now().UTC(),
	}

	if err := s.store.CreateConversation(ctx, conv); err != nil {
		if errors.Is(err, store.ErrDuplicateConversation) {
			return nil, ErrConversationExists
		}
		return nil, fmt.Errorf("creating conversation %s: %w", id, err)
	}

	s.logger.Info("conversation opened", "conversation_id", id)
	return conv, nil
}

// AddMessage appends a message to an OPEN conversation.
// Checks run in order: required fields, direction, duplicate id, conversation existence, state.
func (s *Service) AddMessage(ctx context.Context, in NewMessage) (*store.Message, error) {
	if in.ID == "" || in.ConversationID == "" || in.Direction == "" || in.Content == "" {
		return nil, ErrMessageFieldsMissing
	}

	direction := store.MessageDirection(in.Direction)
	if !direction.Valid() {
		return nil, ErrInvalidDirection
	}

	if _, err := s.store.GetMessage(ctx, in.ID); err == nil {
		return nil, ErrMessageExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("looking up message %s: %w", in.ID, err)
	}

	conv, err := s.store.GetConversation(ctx, in.ConversationID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("looking up conversation %s: %w", in.ConversationID, err)
	}
	if !AcceptsMessages(conv.State) {
		return nil, ErrConversationClosed
	}

	msg := &store.Message{
		ID:             in.ID,
		ConversationID: in.ConversationID,
		Direction:      direction,
		Content:        in.Content,
		CreatedAt:      s.now().UTC(),
	}

	// The store re-checks existence and state atomically; a close that landed
	// after the lookup above surfaces here.
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateMessage):
			return nil, ErrMessageExists
		case errors.Is(err, store.ErrNotFound):
			return nil, ErrConversationNotFound
		case errors.Is(err, store.ErrConversationClosed):
			return nil, ErrConversationClosed
		}
		return nil, fmt.Errorf("creating message %s: %w", in.ID, err)
	}

	s.logger.Info("message added",
		"message_id", msg.ID,
		"conversation_id", msg.ConversationID,
		"direction", msg.Direction)
	return msg, nil
}

// Close moves a conversation to CLOSED. Closing a CLOSED conversation succeeds
// without a write and reports AlreadyClosed.
func (s *Service) Close(ctx context.Context, id string) (*CloseResult, error) {
	if id == "" {
		return nil, ErrConversationIDMissing
	}

	conv, err := s.store.GetConversation(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("looking up conversation %s: %w", id, err)
	}

	if !CanTransition(conv.State, store.StateClosed) {
		if conv.State == store.StateClosed {
			return &CloseResult{Conversation: conv, AlreadyClosed: true}, nil
		}
		return nil, NewError(ErrInvalidState, fmt.Sprintf("Cannot close conversation in state %s", conv.State))
	}

	err = s.store.CloseConversation(ctx, id)
	switch {
	case errors.Is(err, store.ErrAlreadyClosed):
		// Lost a race with another close; the outcome is the same
		conv.State = store.StateClosed
		return &CloseResult{Conversation: conv, AlreadyClosed: true}, nil
	case errors.Is(err, store.ErrNotFound):
		return nil, ErrConversationNotFound
	case err != nil:
		return nil, fmt.Errorf("closing conversation %s: %w", id, err)
	}

	conv.State = store.StateClosed
	s.logger.Info("conversation closed", "conversation_id", id)
	return &CloseResult{Conversation: conv}, nil
}

// Get returns a single conversation.
func (s *Service) Get(ctx context.Context, id string) (*store.Conversation, error) {
	conv, err := s.store.GetConversation(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting conversation %s: %w", id, err)
	}
	return conv, nil
}

// List returns every conversation in storage order.
func (s *Service) List(ctx context.Context) ([]*store.Conversation, error) {
	convs, err := s.store.ListConversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	return convs, nil
}

// Messages returns a conversation's messages in ascending created_at order.
func (s *Service) Messages(ctx context.Context, conversationID string) ([]*store.Message, error) {
	msgs, err := s.store.ListMessages(ctx, conversationID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("listing messages for %s: %w", conversationID, err)
	}
	return msgs, nil
}

// MessagesByConversation returns every message grouped by conversation id,
// each group in ascending created_at order. Conversations without messages
// have no entry.
func (s *Service) MessagesByConversation(ctx context.Context) (map[string][]*store.Message, error) {
	msgs, err := s.store.ListAllMessages(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing all messages: %w", err)
	}
	grouped := make(map[string][]*store.Message)
	for _, m := range msgs {
		grouped[m.ConversationID] = append(grouped[m.ConversationID], m)
	}
	return grouped, nil
}

// ConversationExists reports whether a conversation is in storage.
func (s *Service) ConversationExists(ctx context.Context, id string) (bool, error) {
	_, err := s.store.GetConversation(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("looking up conversation %s: %w", id, err)
	}
	return true, nil
}

// MessageExists reports whether a message id is in storage.
func (s *Service) MessageExists(ctx context.Context, id string) (bool, error) {
	_, err := s.store.GetMessage(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("looking up message %s: %w", id, err)
	}
	return true, nil
}

// Stats returns aggregate conversation counts.
func (s *Service) Stats(ctx context.Context) (*store.Stats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("computing stats: %w", err)
	}
	return stats, nil
}
