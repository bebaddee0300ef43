// Package tts synthesizes speech through the Google Translate TTS endpoint
// and returns MP3 audio.
package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	defaultBaseURL = "https://translate.google.com/translate_tts"
	defaultLang    = "en"

	// The endpoint rejects queries longer than this; longer prompts are
	// split and the MP3 segments concatenated.
	maxChunkLen = 200
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	lang       string
}

func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		lang:       defaultLang,
	}
}

// NewClientWithBaseURL is used by tests to point at a local server.
func NewClientWithBaseURL(baseURL string) *Client {
	c := NewClient()
	c.baseURL = baseURL
	return c
}

func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("text for speech synthesis cannot be empty")
	}

	var audio []byte
	for _, chunk := range splitChunks(text, maxChunkLen) {
		segment, err := c.fetchSegment(ctx, chunk)
		if err != nil {
			return nil, err
		}
		audio = append(audio, segment...)
	}
	return audio, nil
}

func (c *Client) fetchSegment(ctx context.Context, chunk string) ([]byte, error) {
	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("client", "tw-ob")
	params.Set("tl", c.lang)
	params.Set("q", chunk)
	params.Set("textlen", fmt.Sprintf("%d", utf8.RuneCountInString(chunk)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build tts request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tts endpoint returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read tts response: %w", err)
	}
	return data, nil
}

// splitChunks breaks text into pieces of at most limit runes, preferring to
// split on whitespace so words stay intact.
func splitChunks(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	for _, word := range strings.Fields(text) {
		wordLen := utf8.RuneCountInString(word)
		if currentLen > 0 && currentLen+1+wordLen > limit {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
		if currentLen > 0 {
			current.WriteByte(' ')
			currentLen++
		}
		// A single word longer than the limit is split hard.
		for wordLen > limit {
			runes := []rune(word)
			current.WriteString(string(runes[:limit-currentLen]))
			chunks = append(chunks, current.String())
			current.Reset()
			word = string(runes[limit-currentLen:])
			wordLen = utf8.RuneCountInString(word)
			currentLen = 0
		}
		current.WriteString(word)
		currentLen += wordLen
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
