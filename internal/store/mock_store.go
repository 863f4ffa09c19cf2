// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"sort"
	"sync"
)

// MockStore is an in-memory Store implementation for testing.
// It mirrors SQLiteStore semantics: insertion-ordered listing, guarded message
// inserts and cascade deletes.
type MockStore struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation // keyed by conversation ID
	convOrder     []string                 // conversation IDs in insertion order
	messages      map[string]*Message      // keyed by message ID
	byConv        map[string][]string      // conversation ID -> message IDs in insertion order
	closed        bool

	// PingErr, when set, is returned by Ping
	PingErr error
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		conversations: make(map[string]*Conversation),
		messages:      make(map[string]*Message),
		byConv:        make(map[string][]string),
	}
}

// CreateConversation stores a new conversation.
func (m *MockStore) CreateConversation(ctx context.Context, conv *Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.conversations[conv.ID]; ok {
		return ErrDuplicateConversation
	}

	c := *conv
	if c.State == "" {
		c.State = StateOpen
	}
	m.conversations[c.ID] = &c
	m.convOrder = append(m.convOrder, c.ID)
	return nil
}

// GetConversation retrieves a conversation by ID.
func (m *MockStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	result := *c
	return &result, nil
}

// ListConversations returns all conversations in insertion order.
func (m *MockStore) ListConversations(ctx context.Context) ([]*Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Conversation, 0, len(m.convOrder))
	for _, id := range m.convOrder {
		c := *m.conversations[id]
		result = append(result, &c)
	}
	return result, nil
}

// CloseConversation moves an OPEN conversation to CLOSED.
func (m *MockStore) CloseConversation(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.conversations[id]
	if !ok {
		return ErrNotFound
	}
	if c.State == StateClosed {
		return ErrAlreadyClosed
	}
	c.State = StateClosed
	return nil
}

// DeleteConversation removes a conversation and its messages.
func (m *MockStore) DeleteConversation(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.conversations[id]; !ok {
		return ErrNotFound
	}

	for _, msgID := range m.byConv[id] {
		delete(m.messages, msgID)
	}
	delete(m.byConv, id)
	delete(m.conversations, id)

	for i, cid := range m.convOrder {
		if cid == id {
			m.convOrder = append(m.convOrder[:i], m.convOrder[i+1:]...)
			break
		}
	}
	return nil
}

// CreateMessage stores a message if its conversation exists and is OPEN.
func (m *MockStore) CreateMessage(ctx context.Context, msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.conversations[msg.ConversationID]
	if !ok {
		return ErrNotFound
	}
	if c.State != StateOpen {
		return ErrConversationClosed
	}
	if _, ok := m.messages[msg.ID]; ok {
		return ErrDuplicateMessage
	}

	mm := *msg
	m.messages[mm.ID] = &mm
	m.byConv[mm.ConversationID] = append(m.byConv[mm.ConversationID], mm.ID)
	return nil
}

// GetMessage retrieves a message by ID.
func (m *MockStore) GetMessage(ctx context.Context, id string) (*Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	msg, ok := m.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	result := *msg
	return &result, nil
}

// ListMessages returns a conversation's messages ordered by CreatedAt, insertion order on ties.
func (m *MockStore) ListMessages(ctx context.Context, conversationID string) ([]*Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.conversations[conversationID]; !ok {
		return nil, ErrNotFound
	}

	ids := m.byConv[conversationID]
	result := make([]*Message, 0, len(ids))
	for _, id := range ids {
		msg := *m.messages[id]
		result = append(result, &msg)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// ListAllMessages returns every message ordered by CreatedAt.
func (m *MockStore) ListAllMessages(ctx context.Context) ([]*Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Message, 0, len(m.messages))
	for _, convID := range m.convOrder {
		for _, id := range m.byConv[convID] {
			msg := *m.messages[id]
			result = append(result, &msg)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// Stats computes aggregate counts.
func (m *MockStore) Stats(ctx context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var stats Stats
	for id, c := range m.conversations {
		stats.TotalConversations++
		switch c.State {
		case StateOpen:
			stats.OpenConversations++
		case StateClosed:
			stats.ClosedConversations++
		}
		if len(m.byConv[id]) > 0 {
			stats.ConversationsWithMessages++
		}
	}
	return &stats, nil
}

// Ping returns PingErr.
func (m *MockStore) Ping(ctx context.Context) error {
	return m.PingErr
}

// Close marks the store closed.
func (m *MockStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Compile-time interface checks
var (
	_ Store = (*MockStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)
