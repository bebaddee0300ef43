package core

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"

	"textgen-backend/internal/store"
)

const (
	NumRelevantChunks   = 3   // Number of chunks to retrieve for context
	SimilarityThreshold = 0.7 // Minimum similarity score to consider a chunk relevant
)

// Embedder produces a vector embedding for a piece of text.
type Embedder interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
}

// EvidenceService ranks stored key facts against a query and wraps the prompt
// with the most relevant ones before it reaches the model.
type EvidenceService struct {
	dbStore  *store.SQLiteStore
	embedder Embedder
	chunks   []store.EvidenceChunk // In-memory cache of chunks and their embeddings
}

func NewEvidenceService(db *store.SQLiteStore, embedder Embedder) (*EvidenceService, error) {
	chunks, err := db.GetAllEvidenceChunks()
	if err != nil {
		return nil, fmt.Errorf("failed to load evidence chunks: %w", err)
	}
	if len(chunks) == 0 {
		log.Println("Warning: EvidenceService initialized with no chunks. Ensure evidence has been ingested with the current embedding model.")
	} else {
		log.Printf("EvidenceService initialized with %d evidence chunks.", len(chunks))
	}

	return &EvidenceService{
		dbStore:  db,
		embedder: embedder,
		chunks:   chunks,
	}, nil
}

type scoredChunk struct {
	chunk      store.EvidenceChunk
	similarity float32
}

// RetrieveContext returns the concatenated content of the best-matching
// chunks, or "" when nothing clears the similarity threshold.
func (s *EvidenceService) RetrieveContext(ctx context.Context, query string) (string, error) {
	if len(s.chunks) == 0 {
		return "", nil // No context if no data
	}

	queryEmbedding, err := s.embedder.GetEmbedding(ctx, query)
	if err != nil {
		return "", fmt.Errorf("failed to get query embedding: %w", err)
	}

	scored := make([]scoredChunk, 0, len(s.chunks))
	for _, chunk := range s.chunks {
		if len(chunk.Embedding) == 0 {
			continue
		}
		similarity, err := cosineSimilarity(queryEmbedding, chunk.Embedding)
		if err != nil {
			log.Printf("Error calculating similarity for chunk %d: %v. Skipping.", chunk.ID, err)
			continue
		}
		if similarity >= SimilarityThreshold {
			scored = append(scored, scoredChunk{chunk: chunk, similarity: similarity})
		}
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].similarity > scored[j].similarity
	})

	var contextBuilder strings.Builder
	retrieved := 0
	for i := 0; i < len(scored) && retrieved < NumRelevantChunks; i++ {
		contextBuilder.WriteString(scored[i].chunk.Content)
		contextBuilder.WriteString("\n\n")
		retrieved++
	}

	if retrieved == 0 {
		return "", nil // No relevant context found meeting the threshold
	}
	return strings.TrimSpace(contextBuilder.String()), nil
}

// Augment wraps the prompt with retrieved evidence. Retrieval is best-effort:
// on failure the original prompt is forwarded unchanged.
func (s *EvidenceService) Augment(ctx context.Context, prompt string) string {
	evidence, err := s.RetrieveContext(ctx, prompt)
	if err != nil {
		log.Printf("Failed to retrieve evidence context, proceeding without it: %v", err)
		return prompt
	}
	if evidence == "" {
		return prompt
	}
	return fmt.Sprintf("Based on the following potentially relevant evidence:\n\n--- CONTEXT START ---\n%s\n--- CONTEXT END ---\n\nNow, please answer my question: %s", evidence, prompt)
}

// cosineSimilarity scores two embeddings in [-1, 1]. A zero-magnitude vector
// scores 0 against everything.
func cosineSimilarity(a, b []float32) (float32, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, fmt.Errorf("embeddings cannot be empty")
	}
	if len(a) != len(b) {
		return 0, fmt.Errorf("embedding dimensions differ: %d vs %d", len(a), len(b))
	}

	var dot, sumA, sumB float32
	for i := range a {
		dot += a[i] * b[i]
		sumA += a[i] * a[i]
		sumB += b[i] * b[i]
	}
	if sumA == 0 || sumB == 0 {
		return 0, nil
	}
	return dot / float32(math.Sqrt(float64(sumA))*math.Sqrt(float64(sumB))), nil
}
