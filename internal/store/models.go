package store

import "time"

type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Name         string `json:"name"`
	PasswordHash string `json:"-"` // Do not expose this in JSON responses
}

type ChatSession struct {
	SessionID string    `json:"session_id"` // UUID
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Message struct {
	ID          int64     `json:"id"`
	SessionID   string    `json:"session_id"`
	Sender      string    `json:"sender"` // "user" or "model"
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
	MermaidCode *string   `json:"mermaid_code,omitempty"`
	Image       []byte    `json:"image,omitempty"`
}

type EvidenceChunk struct {
	ID            int64     `json:"id"`
	Content       string    `json:"content"`
	Embedding     []float32 `json:"-"` // Don't marshal to JSON response, internal
	EmbeddingJSON string    `json:"-"` // Store as JSON string for DB
}
