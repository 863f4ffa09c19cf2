// ABOUTME: Store interface and data types for conversation persistence
// ABOUTME: Defines Conversation, Message, Stats and the sentinel errors

package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity does not exist
	ErrNotFound = errors.New("not found")

	// ErrDuplicateConversation is returned when a conversation id is already taken
	ErrDuplicateConversation = errors.New("conversation already exists")

	// ErrDuplicateMessage is returned when a message id is already taken
	ErrDuplicateMessage = errors.New("message already exists")

	// ErrConversationClosed is returned when a message targets a CLOSED conversation
	ErrConversationClosed = errors.New("conversation is closed")

	// ErrAlreadyClosed is returned when closing a conversation that is already CLOSED
	ErrAlreadyClosed = errors.New("conversation already closed")
)

// ConversationState is the lifecycle state of a conversation.
type ConversationState string

const (
	StateOpen   ConversationState = "OPEN"
	StateClosed ConversationState = "CLOSED"
)

// Valid reports whether s is a known state.
func (s ConversationState) Valid() bool {
	return s == StateOpen || s == StateClosed
}

// MessageDirection tells whether a message was sent to or received from the external party.
type MessageDirection string

const (
	DirectionSent     MessageDirection = "SENT"
	DirectionReceived MessageDirection = "RECEIVED"
)

// Valid reports whether d is a known direction.
func (d MessageDirection) Valid() bool {
	return d == DirectionSent || d == DirectionReceived
}

// Conversation is an ordered collection of messages exchanged with an external channel
type Conversation struct {
	ID        string
	State     ConversationState
	CreatedAt time.Time
}

// Message is a single directional unit of content within a conversation
type Message struct {
	ID             string
	ConversationID string
	Direction      MessageDirection
	Content        string
	CreatedAt      time.Time
}

// Stats holds aggregate conversation counts.
// TotalConversations always equals OpenConversations + ClosedConversations.
type Stats struct {
	TotalConversations        int
	OpenConversations         int
	ClosedConversations       int
	ConversationsWithMessages int
}

// Store defines the interface for conversation and message persistence
type Store interface {
	// Conversations
	CreateConversation(ctx context.Context, conv *Conversation) error
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	ListConversations(ctx context.Context) ([]*Conversation, error)
	CloseConversation(ctx context.Context, id string) error
	DeleteConversation(ctx context.Context, id string) error

	// Messages
	CreateMessage(ctx context.Context, msg *Message) error
	GetMessage(ctx context.Context, id string) (*Message, error)
	ListMessages(ctx context.Context, conversationID string) ([]*Message, error)
	ListAllMessages(ctx context.Context) ([]*Message, error)

	// Aggregates
	Stats(ctx context.Context) (*Stats, error)

	// Ping checks that the backing database is reachable
	Ping(ctx context.Context) error

	// Close releases any resources held by the store
	Close() error
}
