package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_session_store.go -package=mocks coursetutor/internal/storage SessionStore,MessageStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SessionStore defines the interface for chat session storage operations.
type SessionStore interface {
	// Create inserts a session and sets its ID and timestamps.
	Create(ctx context.Context, session *ChatSession) error
	// Get returns a session by ID. Returns ErrNotFound if not found.
	Get(ctx context.Context, id int64) (*ChatSession, error)
	// ListByUser returns the user's sessions, most recently active first.
	// A courseID of zero lists sessions across all courses.
	ListByUser(ctx context.Context, userID string, courseID int64) ([]ChatSession, error)
	// UpdateContext replaces the session's JSON context and bumps updated_at.
	UpdateContext(ctx context.Context, id int64, contextJSON string) error
}

// MessageStore defines the interface for chat message storage operations.
type MessageStore interface {
	// Insert appends a message to its session and sets its ID and CreatedAt.
	Insert(ctx context.Context, msg *Message) error
	// ListBySession returns a session's messages in chronological order.
	ListBySession(ctx context.Context, sessionID int64) ([]Message, error)
}

// SessionRepo implements SessionStore on SQLite.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo creates a new SessionRepo.
func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

const sessionColumns = "id, user_id, course_id, title, context, created_at, updated_at"

func scanSession(s rowScanner) (*ChatSession, error) {
	var cs ChatSession
	if err := s.Scan(&cs.ID, &cs.UserID, &cs.CourseID, &cs.Title, &cs.Context, &cs.CreatedAt, &cs.UpdatedAt); err != nil {
		return nil, err
	}
	return &cs, nil
}

// Create inserts a session and sets its ID and timestamps.
func (r *SessionRepo) Create(ctx context.Context, session *ChatSession) error {
	if session.Context == "" {
		session.Context = "{}"
	}
	result, err := r.db.ExecContext(ctx,
		"INSERT INTO chat_sessions (user_id, course_id, title, context) VALUES (?, ?, ?, ?)",
		session.UserID, session.CourseID, session.Title, session.Context,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read session id: %w", err)
	}

	created, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	*session = *created
	return nil
}

// Get returns a session by ID. Returns ErrNotFound if not found.
func (r *SessionRepo) Get(ctx context.Context, id int64) (*ChatSession, error) {
	cs, err := scanSession(r.db.QueryRowContext(ctx, "SELECT "+sessionColumns+" FROM chat_sessions WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	return cs, nil
}

// ListByUser returns the user's sessions, most recently active first.
func (r *SessionRepo) ListByUser(ctx context.Context, userID string, courseID int64) ([]ChatSession, error) {
	query := "SELECT " + sessionColumns + " FROM chat_sessions WHERE user_id = ?"
	args := []any{userID}
	if courseID != 0 {
		query += " AND course_id = ?"
		args = append(args, courseID)
	}
	query += " ORDER BY updated_at DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var sessions []ChatSession
	for rows.Next() {
		cs, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *cs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return sessions, nil
}

// UpdateContext replaces the session's JSON context and bumps updated_at.
func (r *SessionRepo) UpdateContext(ctx context.Context, id int64, contextJSON string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE chat_sessions SET context = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		contextJSON, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update session context: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// MessageRepo implements MessageStore on SQLite.
type MessageRepo struct {
	db *sql.DB
}

// NewMessageRepo creates a new MessageRepo.
func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Insert appends a message to its session and sets its ID and CreatedAt.
// The session's updated_at is bumped in the same transaction.
func (r *MessageRepo) Insert(ctx context.Context, msg *Message) (err error) {
	if msg.Metadata == "" {
		msg.Metadata = "{}"
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	result, err := tx.ExecContext(ctx,
		"INSERT INTO messages (session_id, role, content, metadata) VALUES (?, ?, ?, ?)",
		msg.SessionID, msg.Role, msg.Content, msg.Metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		"UPDATE chat_sessions SET updated_at = CURRENT_TIMESTAMP WHERE id = ?", msg.SessionID,
	); err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read message id: %w", err)
	}
	if err = tx.QueryRowContext(ctx, "SELECT created_at FROM messages WHERE id = ?", id).Scan(&msg.CreatedAt); err != nil {
		return fmt.Errorf("failed to read message: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit message: %w", err)
	}
	msg.ID = id
	return nil
}

// ListBySession returns a session's messages in chronological order.
func (r *MessageRepo) ListBySession(ctx context.Context, sessionID int64) ([]Message, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, session_id, role, content, metadata, created_at FROM messages WHERE session_id = ? ORDER BY id",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.Metadata, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return msgs, nil
}
