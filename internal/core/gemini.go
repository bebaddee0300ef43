package core

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"

	"textgen-backend/internal/store"
)

const (
	defaultTextModelName      = "gemini-2.0-flash-lite"
	defaultImageModelName     = "gemini-2.0-flash-preview-image-generation"
	defaultEmbeddingModelName = "text-embedding-004"

	chatSystemInstruction = "You are a helpful assistant. Answer questions based on the provided evidence context when it is present. " +
		"If the answer is not found in the provided context, clearly state that you don't have the information. " +
		"Keep your answers concise and directly related to the user's question. Do not make up information."
)

// GeminiService is the gateway to the generative provider. The client is
// constructed at startup and injected; its lifecycle belongs to main.
type GeminiService struct {
	client *genai.Client
}

func NewGeminiService(client *genai.Client) *GeminiService {
	return &GeminiService{client: client}
}

func (s *GeminiService) GenerateText(ctx context.Context, prompt string) (string, error) {
	model := s.client.GenerativeModel(defaultTextModelName)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini text generation request failed: %w", err)
	}

	text := extractText(resp)
	if text == "" {
		log.Println("Gemini text response was empty or had no valid candidates/parts.")
		return "I'm sorry, I couldn't generate a response at this time. Please try again.", nil
	}
	return text, nil
}

// GenerateImage returns the raw image bytes and their MIME type. The image
// model interleaves text and inline image parts; the first blob part wins.
func (s *GeminiService) GenerateImage(ctx context.Context, prompt string) ([]byte, string, error) {
	model := s.client.GenerativeModel(defaultImageModelName)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, "", fmt.Errorf("gemini image generation request failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, "", fmt.Errorf("gemini image response had no candidates")
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if blob, ok := part.(genai.Blob); ok && len(blob.Data) > 0 {
			return blob.Data, blob.MIMEType, nil
		}
	}
	return nil, "", fmt.Errorf("gemini image response contained no image data")
}

// ChatRespond replays prior session messages as conversation history and sends
// the (already augmented) prompt as the final user turn. Single blocking round
// trip; no retry.
func (s *GeminiService) ChatRespond(ctx context.Context, augmentedPrompt string, history []store.Message) (string, error) {
	model := s.client.GenerativeModel(defaultTextModelName)

	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(chatSystemInstruction)},
	}

	chatSession := model.StartChat()
	for _, msg := range history {
		chatSession.History = append(chatSession.History, &genai.Content{
			Role:  msg.Sender,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}

	resp, err := chatSession.SendMessage(ctx, genai.Text(augmentedPrompt))
	if err != nil {
		return "", fmt.Errorf("gemini chat SendMessage failed: %w", err)
	}

	text := extractText(resp)
	if text == "" {
		log.Println("Gemini chat response was empty or had no valid candidates/parts.")
		return "I received an empty or non-text response, please try rephrasing your question.", nil
	}
	return text, nil
}

func (s *GeminiService) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	em := s.client.EmbeddingModel(defaultEmbeddingModelName)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embedding request failed: %w", err)
	}

	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("no embedding data received from gemini")
	}
	return res.Embedding.Values, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		} else {
			log.Printf("Gemini response part was not text: %T", part)
		}
	}
	return sb.String()
}
