package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"textgen-backend/internal/core"
	"textgen-backend/internal/store"
)

type CreateChatResponse struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type ChatMessageResponse struct {
	Message string `json:"message"`
	Mermaid string `json:"mermaid,omitempty"`
}

type SessionMessagesResponse struct {
	*store.ChatSession
	Messages []store.Message `json:"messages"`
}

func (h *APIHandler) CreateChatHandler(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	session, err := h.chat.CreateSession(userID)
	if err != nil {
		log.Printf("Error creating chat session for user %d: %v", userID, err)
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusCreated, CreateChatResponse{
		SessionID: session.SessionID,
		Message:   "New chat session created",
	})
}

func (h *APIHandler) ListSessionsHandler(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	sessions, err := h.chat.ListSessions(userID)
	if err != nil {
		log.Printf("Error listing sessions for user %d: %v", userID, err)
		writeInternalError(w)
		return
	}
	if sessions == nil {
		sessions = []store.ChatSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *APIHandler) GetSessionMessagesHandler(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	session, messages, err := h.chat.GetSessionMessages(sessionID, userID)
	if err != nil {
		log.Printf("Error getting messages for user %d, session %s: %v", userID, sessionID, err)
		writeInternalError(w)
		return
	}
	if session == nil {
		writeError(w, http.StatusNotFound, CodeNotFound, "Session not found")
		return
	}
	if messages == nil {
		messages = []store.Message{}
	}

	writeJSON(w, http.StatusOK, SessionMessagesResponse{
		ChatSession: session,
		Messages:    messages,
	})
}

func (h *APIHandler) PostChatMessageHandler(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	prompt, ok := h.chatPrompt(w, r)
	if !ok {
		return
	}

	h.collector.TurnStarted()
	defer h.collector.TurnFinished()

	start := time.Now()
	modelMsg, err := h.chat.PostMessage(r.Context(), sessionID, userID, prompt)
	h.collector.RecordGeneration("chat", time.Since(start), err)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, CodeNotFound, "Session not found")
		case errors.Is(err, core.ErrProvider):
			log.Printf("Provider failure for session %s: %v", sessionID, err)
			writeError(w, http.StatusBadGateway, CodeProvider, "Failed to generate a response")
		default:
			log.Printf("Error posting message for user %d, session %s: %v", userID, sessionID, err)
			writeInternalError(w)
		}
		return
	}

	resp := ChatMessageResponse{Message: modelMsg.Content}
	if modelMsg.MermaidCode != nil {
		resp.Mermaid = *modelMsg.MermaidCode
	}
	writeJSON(w, http.StatusOK, resp)
}

// chatPrompt reads the prompt from a typed JSON body, falling back to the
// ?prompt= query form the original API exposed.
func (h *APIHandler) chatPrompt(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req PromptRequest
	if r.Body != nil && r.ContentLength != 0 {
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, CodeValidation, "Invalid request body: "+err.Error())
			return "", false
		}
	}
	if req.Prompt == "" {
		req.Prompt = r.URL.Query().Get("prompt")
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, CodeValidation, "Prompt is required")
		return "", false
	}
	return req.Prompt, true
}
