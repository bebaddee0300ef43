package api

import (
	"encoding/base64"
	"log"
	"net/http"
	"time"

	"textgen-backend/internal/imaging"
)

type PromptRequest struct {
	Prompt string `json:"prompt"`
}

type GenTextResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type GenImageResponse struct {
	Success   bool   `json:"success"`
	Image     string `json:"image"` // base64
	MimeType  string `json:"mime_type"`
	Thumbnail string `json:"thumbnail,omitempty"` // base64 PNG
}

type GenAudioResponse struct {
	Success bool   `json:"success"`
	Audio   string `json:"audio"` // base64 MP3
}

func (h *APIHandler) GenTextHandler(w http.ResponseWriter, r *http.Request) {
	var req PromptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, CodeValidation, "Prompt is required")
		return
	}

	start := time.Now()
	text, err := h.generator.GenerateText(r.Context(), req.Prompt)
	h.collector.RecordGeneration("text", time.Since(start), err)
	if err != nil {
		log.Printf("Text generation failed: %v", err)
		writeError(w, http.StatusBadGateway, CodeProvider, "Text generation failed")
		return
	}

	writeJSON(w, http.StatusOK, GenTextResponse{Success: true, Message: text})
}

func (h *APIHandler) GenImageHandler(w http.ResponseWriter, r *http.Request) {
	var req PromptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, CodeValidation, "Prompt is required")
		return
	}

	start := time.Now()
	imageBytes, mimeType, err := h.generator.GenerateImage(r.Context(), req.Prompt)
	h.collector.RecordGeneration("image", time.Since(start), err)
	if err != nil {
		log.Printf("Image generation failed: %v", err)
		writeError(w, http.StatusBadGateway, CodeProvider, "Image generation failed")
		return
	}

	resp := GenImageResponse{
		Success:  true,
		Image:    base64.StdEncoding.EncodeToString(imageBytes),
		MimeType: mimeType,
	}

	if thumb, err := imaging.Thumbnail(imageBytes); err != nil {
		log.Printf("Thumbnail generation failed: %v", err)
	} else {
		resp.Thumbnail = base64.StdEncoding.EncodeToString(thumb)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *APIHandler) GenAudioHandler(w http.ResponseWriter, r *http.Request) {
	var req PromptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, CodeValidation, "Prompt is required")
		return
	}

	start := time.Now()
	audio, err := h.speech.Synthesize(r.Context(), req.Prompt)
	h.collector.RecordGeneration("audio", time.Since(start), err)
	if err != nil {
		log.Printf("Audio generation failed: %v", err)
		writeError(w, http.StatusBadGateway, CodeProvider, "Audio generation failed")
		return
	}

	writeJSON(w, http.StatusOK, GenAudioResponse{
		Success: true,
		Audio:   base64.StdEncoding.EncodeToString(audio),
	})
}
