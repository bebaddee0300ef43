package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

// Evidence chunk methods. Chunks back the evidence-pack prompt augmentation
// on the chat path.

func (s *SQLiteStore) createEvidenceChunk(chunk *EvidenceChunk) error {
	embeddingBytes, err := json.Marshal(chunk.Embedding)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}
	chunk.EmbeddingJSON = string(embeddingBytes)

	res, err := s.db.Exec("INSERT INTO evidence_chunks (content, embedding_json) VALUES (?, ?)", chunk.Content, chunk.EmbeddingJSON)
	if err != nil {
		return fmt.Errorf("failed to insert evidence chunk: %w", err)
	}
	chunk.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) GetAllEvidenceChunks() ([]EvidenceChunk, error) {
	rows, err := s.db.Query("SELECT id, content, embedding_json FROM evidence_chunks")
	if err != nil {
		return nil, fmt.Errorf("failed to query evidence chunks: %w", err)
	}
	defer rows.Close()

	var chunks []EvidenceChunk
	for rows.Next() {
		var chunk EvidenceChunk
		var embeddingJSON string
		if err := rows.Scan(&chunk.ID, &chunk.Content, &embeddingJSON); err != nil {
			return nil, fmt.Errorf("failed to scan evidence chunk row: %w", err)
		}
		if embeddingJSON != "" {
			if err := json.Unmarshal([]byte(embeddingJSON), &chunk.Embedding); err != nil {
				log.Printf("Warning: failed to unmarshal embedding for chunk %d (content: %.50s...): %v. Embedding will be empty.", chunk.ID, chunk.Content, err)
				chunk.Embedding = nil
			}
		} else {
			log.Printf("Warning: empty embedding_json for chunk ID %d. Embedding will be empty.", chunk.ID)
			chunk.Embedding = nil
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

func (s *SQLiteStore) ClearEvidenceChunks() error {
	_, err := s.db.Exec("DELETE FROM evidence_chunks")
	if err != nil {
		return fmt.Errorf("failed to delete evidence chunks: %w", err)
	}
	_, err = s.db.Exec("DELETE FROM sqlite_sequence WHERE name='evidence_chunks'")
	if err != nil && !strings.Contains(err.Error(), "no such table") {
		log.Printf("Warning: could not reset sequence for evidence_chunks: %v", err)
	}
	return nil
}

// IngestEvidenceFromFile reads a Markdown table of key facts, embeds each row,
// and replaces the stored evidence chunks.
func (s *SQLiteStore) IngestEvidenceFromFile(filePath string, embedder func(string) ([]float32, error)) (int, error) {
	contentBytes, err := os.ReadFile(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to read evidence file %s: %w", filePath, err)
	}
	lines := strings.Split(string(contentBytes), "\n")

	var rawChunks []string
	for i, line := range lines {
		trimmedLine := strings.TrimSpace(line)
		if trimmedLine == "" {
			continue
		}

		// Skip table header and separator rows.
		if i == 0 && strings.Contains(trimmedLine, "|") && (strings.Contains(strings.ToLower(trimmedLine), "text") || strings.Contains(strings.ToLower(trimmedLine), "content")) {
			continue
		}
		if i == 1 && strings.Contains(trimmedLine, "|") && strings.Contains(trimmedLine, "---") {
			continue
		}

		if strings.HasPrefix(trimmedLine, "|") && strings.HasSuffix(trimmedLine, "|") {
			parts := strings.Split(trimmedLine, "|")
			if len(parts) >= 3 { // At least | content |
				cellContent := strings.TrimSpace(parts[1])
				if cellContent != "" {
					rawChunks = append(rawChunks, cellContent)
				}
			} else {
				log.Printf("Skipping malformed table row (not enough '|'): %s", trimmedLine)
			}
		} else if i > 1 {
			log.Printf("Skipping line not matching table row format: %s", trimmedLine)
		}
	}

	if len(rawChunks) == 0 {
		log.Println("No chunks generated from evidence file. Ensure it's a Markdown table with a 'text' column and content.")
		return 0, nil
	}

	log.Printf("Generated %d raw chunks from table. Now embedding (this may take a while)...", len(rawChunks))

	if err := s.ClearEvidenceChunks(); err != nil {
		return 0, fmt.Errorf("failed to clear existing evidence chunks: %w", err)
	}

	count := 0

	ticker := time.NewTicker(40 * time.Millisecond) // delay to not hit rate limit (1500/min)
	defer ticker.Stop()

	for i, rawChunk := range rawChunks {
		<-ticker.C

		embedding, err := embedder(rawChunk)
		if err != nil {
			log.Printf("Failed to generate embedding for chunk %d (\"%.50s...\"): %v. Skipping.", i+1, rawChunk, err)
			continue
		}

		chunk := EvidenceChunk{
			Content:   rawChunk,
			Embedding: embedding,
		}
		if err := s.createEvidenceChunk(&chunk); err != nil {
			log.Printf("Failed to store evidence chunk %d: %v. Skipping.", i+1, err)
			continue
		}
		count++
	}
	log.Printf("Successfully ingested %d evidence chunks.", count)
	return count, nil
}
