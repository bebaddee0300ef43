package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"textgen-backend/internal/store"
)

// ErrProvider marks failures of the external generation provider. A chat turn
// that hits it is aborted: nothing is persisted for that turn.
var ErrProvider = errors.New("generation provider failure")

const historyLimit = 10 // messages replayed as conversation context

// Responder produces a model reply for an augmented prompt and prior
// conversation. Satisfied by GeminiService.
type Responder interface {
	ChatRespond(ctx context.Context, augmentedPrompt string, history []store.Message) (string, error)
}

// PromptAugmenter wraps a prompt with retrieved evidence context. Satisfied by
// EvidenceService.
type PromptAugmenter interface {
	Augment(ctx context.Context, prompt string) string
}

type ChatService struct {
	dbStore   *store.SQLiteStore
	responder Responder
	augmenter PromptAugmenter
}

func NewChatService(db *store.SQLiteStore, responder Responder, augmenter PromptAugmenter) *ChatService {
	return &ChatService{
		dbStore:   db,
		responder: responder,
		augmenter: augmenter,
	}
}

func (s *ChatService) CreateSession(userID int64) (*store.ChatSession, error) {
	session, err := s.dbStore.CreateSession(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat session: %w", err)
	}
	return session, nil
}

func (s *ChatService) ListSessions(userID int64) ([]store.ChatSession, error) {
	return s.dbStore.GetSessionsByUserID(userID)
}

// GetSessionMessages returns the session and its full message history in
// ascending timestamp order. The session is nil when it does not exist or
// belongs to another user.
func (s *ChatService) GetSessionMessages(sessionID string, userID int64) (*store.ChatSession, []store.Message, error) {
	session, err := s.dbStore.GetSessionByID(sessionID, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, nil, nil // Not found
	}

	messages, err := s.dbStore.GetMessagesBySessionID(sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get messages for session: %w", err)
	}
	return session, messages, nil
}

// PostMessage runs one chat turn: load prior messages, augment the prompt with
// evidence, call the provider, then persist the user and model messages in one
// transaction. A provider failure aborts the turn before anything is written.
func (s *ChatService) PostMessage(ctx context.Context, sessionID string, userID int64, prompt string) (*store.Message, error) {
	session, err := s.dbStore.GetSessionByID(sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify session: %w", err)
	}
	if session == nil {
		return nil, store.ErrNotFound
	}

	history, err := s.dbStore.GetLastNMessagesBySessionID(sessionID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}

	augmentedPrompt := s.augmenter.Augment(ctx, prompt)

	output, err := s.responder.ChatRespond(ctx, augmentedPrompt, history)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}

	userMsg := store.Message{Content: prompt}
	modelMsg := store.Message{
		Content:     output,
		MermaidCode: extractMermaid(output),
	}
	if err := s.dbStore.AppendTurn(sessionID, &userMsg, &modelMsg); err != nil {
		return nil, fmt.Errorf("failed to persist chat turn: %w", err)
	}

	return &modelMsg, nil
}

// extractMermaid pulls the first ```mermaid fence out of the model output so
// the diagram markup is stored alongside the message.
func extractMermaid(text string) *string {
	const fence = "```mermaid"
	start := strings.Index(text, fence)
	if start < 0 {
		return nil
	}
	rest := text[start+len(fence):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return nil
	}
	code := strings.TrimSpace(rest[:end])
	if code == "" {
		return nil
	}
	return &code
}
