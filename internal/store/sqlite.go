// ABOUTME: SQLite implementation of the Store interface (modernc.org/sqlite or mattn/go-sqlite3)
// ABOUTME: Provides conversation/message persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Driver names accepted by OpenSQLite.
const (
	DriverModernc = "sqlite"  // modernc.org/sqlite, pure Go
	DriverCGo     = "sqlite3" // github.com/mattn/go-sqlite3
)

// timeLayout is fixed width so that lexical order of stored values equals chronological order
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path using the pure Go driver.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	return OpenSQLite(DriverModernc, path)
}

// OpenSQLite creates a new SQLite store at the given path with the named driver.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func OpenSQLite(driver, path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	dsn, err := buildDSN(driver, path)
	if err != nil {
		return nil, err
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Every pooled connection to :memory: would otherwise see its own empty database
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path, "driver", driver)
	return s, nil
}

// buildDSN returns a connection string carrying the pragmas each driver understands.
func buildDSN(driver, path string) (string, error) {
	switch driver {
	case DriverModernc:
		if path == ":memory:" {
			return "file::memory:?_pragma=foreign_keys(1)", nil
		}
		return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", nil
	case DriverCGo:
		if path == ":memory:" {
			return "file::memory:?_foreign_keys=on", nil
		}
		return "file:" + path + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS conversations (
			id         TEXT PRIMARY KEY,
			state      TEXT NOT NULL DEFAULT 'OPEN',
			created_at TEXT NOT NULL,

			CHECK (state IN ('OPEN', 'CLOSED'))
		);

		CREATE INDEX IF NOT EXISTS idx_conversations_state ON conversations(state);

		CREATE TABLE IF NOT EXISTS messages (
			id              TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			direction       TEXT NOT NULL,
			content         TEXT NOT NULL,
			created_at      TEXT NOT NULL,

			CHECK (direction IN ('SENT', 'RECEIVED'))
		);

		CREATE INDEX IF NOT EXISTS idx_messages_conversation_created
			ON messages(conversation_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Ping checks the database connection
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// isConstraintViolation checks if the error is a SQLite UNIQUE/PRIMARY KEY constraint violation.
// Both drivers include the SQLite message text in their errors.
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "PRIMARY KEY constraint failed")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// CreateConversation inserts a new conversation.
// Returns ErrDuplicateConversation if the id is already taken.
func (s *SQLiteStore) CreateConversation(ctx context.Context, conv *Conversation) error {
	state := conv.State
	if state == "" {
		state = StateOpen
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, state, created_at) VALUES (?, ?, ?)`,
		conv.ID,
		string(state),
		formatTime(conv.CreatedAt),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateConversation
		}
		return fmt.Errorf("inserting conversation: %w", err)
	}

	s.logger.Debug("created conversation", "id", conv.ID, "state", state)
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanConversation(row scanner) (*Conversation, error) {
	var conv Conversation
	var state, createdAt string

	if err := row.Scan(&conv.ID, &state, &createdAt); err != nil {
		return nil, err
	}

	conv.State = ConversationState(state)
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	conv.CreatedAt = t
	return &conv, nil
}

// GetConversation retrieves a conversation by ID.
// Returns ErrNotFound if the conversation doesn't exist.
func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, state, created_at FROM conversations WHERE id = ?`, id)

	conv, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying conversation: %w", err)
	}
	return conv, nil
}

// ListConversations returns every conversation in insertion order.
func (s *SQLiteStore) ListConversations(ctx context.Context) ([]*Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, state, created_at FROM conversations ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	convs := []*Conversation{}
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning conversation row: %w", err)
		}
		convs = append(convs, conv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversation rows: %w", err)
	}
	return convs, nil
}

// CloseConversation moves an OPEN conversation to CLOSED.
// Returns ErrNotFound if the conversation doesn't exist and ErrAlreadyClosed if it is CLOSED.
func (s *SQLiteStore) CloseConversation(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET state = ? WHERE id = ? AND state = ?`,
		string(StateClosed), id, string(StateOpen),
	)
	if err != nil {
		return fmt.Errorf("closing conversation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		if _, err := s.GetConversation(ctx, id); err != nil {
			return err
		}
		return ErrAlreadyClosed
	}

	s.logger.Debug("closed conversation", "id", id)
	return nil
}

// DeleteConversation removes a conversation; its messages go with it via ON DELETE CASCADE.
// Returns ErrNotFound if the conversation doesn't exist.
func (s *SQLiteStore) DeleteConversation(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Info("deleted conversation", "id", id)
	return nil
}

// CreateMessage inserts a message if its conversation exists and is OPEN.
// The state check is part of the INSERT so a concurrent close cannot slip in between.
func (s *SQLiteStore) CreateMessage(ctx context.Context, msg *Message) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, direction, content, created_at)
		SELECT ?, id, ?, ?, ?
		FROM conversations
		WHERE id = ? AND state = ?
	`,
		msg.ID,
		string(msg.Direction),
		msg.Content,
		formatTime(msg.CreatedAt),
		msg.ConversationID,
		string(StateOpen),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateMessage
		}
		return fmt.Errorf("inserting message: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		if _, err := s.GetConversation(ctx, msg.ConversationID); err != nil {
			return err
		}
		return ErrConversationClosed
	}

	s.logger.Debug("created message", "id", msg.ID, "conversation_id", msg.ConversationID, "direction", msg.Direction)
	return nil
}

func scanMessage(row scanner) (*Message, error) {
	var msg Message
	var direction, createdAt string

	if err := row.Scan(&msg.ID, &msg.ConversationID, &direction, &msg.Content, &createdAt); err != nil {
		return nil, err
	}

	msg.Direction = MessageDirection(direction)
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	msg.CreatedAt = t
	return &msg, nil
}

// GetMessage retrieves a message by ID.
// Returns ErrNotFound if the message doesn't exist.
func (s *SQLiteStore) GetMessage(ctx context.Context, id string) (*Message, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, direction, content, created_at
		FROM messages
		WHERE id = ?
	`, id)

	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying message: %w", err)
	}
	return msg, nil
}

// ListMessages returns the messages of a conversation in ascending created_at order,
// falling back to insertion order for equal timestamps.
// Returns ErrNotFound if the conversation doesn't exist.
func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID string) ([]*Message, error) {
	if _, err := s.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}

	return s.queryMessages(ctx, `
		SELECT id, conversation_id, direction, content, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC, rowid ASC
	`, conversationID)
}

// ListAllMessages returns every message, ordered the same way as ListMessages.
func (s *SQLiteStore) ListAllMessages(ctx context.Context) ([]*Message, error) {
	return s.queryMessages(ctx, `
		SELECT id, conversation_id, direction, content, created_at
		FROM messages
		ORDER BY created_at ASC, rowid ASC
	`)
}

func (s *SQLiteStore) queryMessages(ctx context.Context, query string, args ...any) ([]*Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	msgs := []*Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		msgs = append(msgs, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}
	return msgs, nil
}

// Stats computes the aggregate counts in a single statement.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN state = 'OPEN' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN state = 'CLOSED' THEN 1 ELSE 0 END), 0),
			(SELECT COUNT(DISTINCT conversation_id) FROM messages)
		FROM conversations
	`).Scan(
		&stats.TotalConversations,
		&stats.OpenConversations,
		&stats.ClosedConversations,
		&stats.ConversationsWithMessages,
	)
	if err != nil {
		return nil, fmt.Errorf("querying stats: %w", err)
	}
	return &stats, nil
}
