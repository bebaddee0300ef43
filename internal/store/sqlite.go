package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        username TEXT UNIQUE NOT NULL,
        name TEXT NOT NULL,
        password_hash TEXT NOT NULL
    );

    CREATE TABLE IF NOT EXISTS chat_sessions (
        session_id TEXT PRIMARY KEY, -- UUID
        user_id INTEGER NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (user_id) REFERENCES users (id)
    );

    CREATE TABLE IF NOT EXISTS messages (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        session_id TEXT NOT NULL,
        sender TEXT NOT NULL CHECK (sender IN ('user', 'model')),
        content TEXT NOT NULL,
        timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
        mermaid_code TEXT,
        image BLOB,
        FOREIGN KEY (session_id) REFERENCES chat_sessions (session_id)
    );

    CREATE TABLE IF NOT EXISTS evidence_chunks (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        content TEXT NOT NULL,
        embedding_json TEXT -- Storing as JSON string of []float32
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// isUniqueViolation reports whether err is the driver's UNIQUE constraint error.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// User methods

func (s *SQLiteStore) CreateUser(username, name, passwordHash string) (*User, error) {
	res, err := s.db.Exec("INSERT INTO users (username, name, password_hash) VALUES (?, ?, ?)", username, name, passwordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetUserByID(id)
}

func (s *SQLiteStore) GetUserByUsername(username string) (*User, error) {
	var user User
	err := s.db.QueryRow("SELECT id, username, name, password_hash FROM users WHERE username = ?", username).
		Scan(&user.ID, &user.Username, &user.Name, &user.PasswordHash)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

func (s *SQLiteStore) GetUserByID(id int64) (*User, error) {
	var user User
	err := s.db.QueryRow("SELECT id, username, name, password_hash FROM users WHERE id = ?", id).
		Scan(&user.ID, &user.Username, &user.Name, &user.PasswordHash)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &user, nil
}

func (s *SQLiteStore) UpdateUserPassword(username, passwordHash string) error {
	res, err := s.db.Exec("UPDATE users SET password_hash = ? WHERE username = ?", passwordHash, username)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteUser(username string) error {
	res, err := s.db.Exec("DELETE FROM users WHERE username = ?", username)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Chat session methods

func (s *SQLiteStore) CreateSession(userID int64) (*ChatSession, error) {
	sessionID := uuid.NewString()
	now := time.Now()
	_, err := s.db.Exec("INSERT INTO chat_sessions (session_id, user_id, created_at) VALUES (?, ?, ?)", sessionID, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert chat session: %w", err)
	}
	return &ChatSession{SessionID: sessionID, UserID: userID, CreatedAt: now}, nil
}

func (s *SQLiteStore) GetSessionByID(sessionID string, userID int64) (*ChatSession, error) {
	var session ChatSession
	err := s.db.QueryRow("SELECT session_id, user_id, created_at FROM chat_sessions WHERE session_id = ? AND user_id = ?", sessionID, userID).
		Scan(&session.SessionID, &session.UserID, &session.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get chat session: %w", err)
	}
	return &session, nil
}

func (s *SQLiteStore) GetSessionsByUserID(userID int64) ([]ChatSession, error) {
	rows, err := s.db.Query("SELECT session_id, user_id, created_at FROM chat_sessions WHERE user_id = ? ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat sessions: %w", err)
	}
	defer rows.Close()

	var sessions []ChatSession
	for rows.Next() {
		var session ChatSession
		if err := rows.Scan(&session.SessionID, &session.UserID, &session.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat session row: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// Message methods

// AppendTurn stores a user message and the model's reply in a single
// transaction. Either both rows land or neither does.
func (s *SQLiteStore) AppendTurn(sessionID string, userMsg, modelMsg *Message) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin turn transaction: %w", err)
	}
	defer tx.Rollback()

	userMsg.SessionID = sessionID
	userMsg.Sender = "user"
	userMsg.Timestamp = time.Now()
	if err := insertMessage(tx, userMsg); err != nil {
		return fmt.Errorf("failed to store user message: %w", err)
	}

	modelMsg.SessionID = sessionID
	modelMsg.Sender = "model"
	modelMsg.Timestamp = time.Now()
	if err := insertMessage(tx, modelMsg); err != nil {
		return fmt.Errorf("failed to store model message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit turn: %w", err)
	}
	return nil
}

func insertMessage(tx *sql.Tx, msg *Message) error {
	res, err := tx.Exec(
		"INSERT INTO messages (session_id, sender, content, timestamp, mermaid_code, image) VALUES (?, ?, ?, ?, ?, ?)",
		msg.SessionID, msg.Sender, msg.Content, msg.Timestamp, msg.MermaidCode, msg.Image,
	)
	if err != nil {
		return err
	}
	msg.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) GetMessagesBySessionID(sessionID string) ([]Message, error) {
	rows, err := s.db.Query(
		"SELECT id, session_id, sender, content, timestamp, mermaid_code, image FROM messages WHERE session_id = ? ORDER BY timestamp ASC, id ASC",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// GetLastNMessagesBySessionID returns the most recent n messages in ascending
// timestamp order, for prompt history assembly.
func (s *SQLiteStore) GetLastNMessagesBySessionID(sessionID string, n int) ([]Message, error) {
	rows, err := s.db.Query(`
        SELECT id, session_id, sender, content, timestamp, mermaid_code, image
        FROM messages
        WHERE session_id = ?
        ORDER BY timestamp DESC, id DESC
        LIMIT ?`,
		sessionID, n,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}

	// Reverse back into chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func scanMessages(rows *sql.Rows) ([]Message, error) {
	var messages []Message
	for rows.Next() {
		var msg Message
		var mermaid sql.NullString
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Sender, &msg.Content, &msg.Timestamp, &mermaid, &msg.Image); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		if mermaid.Valid {
			msg.MermaidCode = &mermaid.String
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
