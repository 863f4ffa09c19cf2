// ABOUTME: Conversation lifecycle state machine
// ABOUTME: OPEN is initial, CLOSED is terminal, only OPEN accepts messages

package conversation

import "github.com/2389/convo-gateway/internal/store"

// transitions lists every allowed state change.
var transitions = map[store.ConversationState][]store.ConversationState{
	store.StateOpen: {store.StateClosed},
}

// InitialState is the state of a newly created conversation.
const InitialState = store.StateOpen

// CanTransition reports whether a conversation may move from one state to another.
func CanTransition(from, to store.ConversationState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves the state.
func IsTerminal(s store.ConversationState) bool {
	return s.Valid() && len(transitions[s]) == 0
}

// AcceptsMessages reports whether new messages may be added in the state.
func AcceptsMessages(s store.ConversationState) bool {
	return s == store.StateOpen
}
