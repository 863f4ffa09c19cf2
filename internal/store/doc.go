// Package store provides persistent storage for conversations and messages.
//
// # Architecture
//
// Store is the single interface consumed by the rest of the gateway.
// SQLiteStore implements it on database/sql and MockStore implements it in
// memory for unit tests.
//
// # Data Models
//
//   - Conversation: externally identified thread with state OPEN or CLOSED
//   - Message: SENT or RECEIVED content belonging to one conversation
//   - Stats: aggregate counts over conversations
//
// Apart from Conversation.State (OPEN to CLOSED) every field is write-once.
//
// # SQLite Configuration
//
// Two drivers are supported:
//
//   - "sqlite": modernc.org/sqlite, pure Go (default)
//   - "sqlite3": github.com/mattn/go-sqlite3, requires cgo
//
// Pragmas are set through the DSN so that every pooled connection has them:
//
//	foreign_keys=ON, journal_mode=WAL, busy_timeout=5000
//
// # Error Handling
//
//   - ErrNotFound: conversation or message does not exist
//   - ErrDuplicateConversation / ErrDuplicateMessage: id already taken
//   - ErrConversationClosed: message insert against a CLOSED conversation
//   - ErrAlreadyClosed: close of a conversation that is already CLOSED
//
// CreateMessage and CloseConversation are single guarded statements, so the
// state check and the write cannot interleave with a concurrent close.
//
// # Testing
//
// Use NewMockStore() for unit tests and NewSQLiteStore with a file under
// t.TempDir() for integration tests.
package store
