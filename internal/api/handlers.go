package api

import (
	"context"

	"textgen-backend/internal/core"
	"textgen-backend/internal/metrics"
)

// Generator is the slice of the generation gateway the proxy endpoints need.
// Satisfied by core.GeminiService.
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	GenerateImage(ctx context.Context, prompt string) ([]byte, string, error)
}

// Speech synthesizes audio for a prompt. Satisfied by tts.Client.
type Speech interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type APIHandler struct {
	users     *core.UserService
	chat      *core.ChatService
	generator Generator
	speech    Speech
	collector *metrics.Collector
}

func NewAPIHandler(users *core.UserService, chat *core.ChatService, generator Generator, speech Speech, collector *metrics.Collector) *APIHandler {
	return &APIHandler{
		users:     users,
		chat:      chat,
		generator: generator,
		speech:    speech,
		collector: collector,
	}
}
