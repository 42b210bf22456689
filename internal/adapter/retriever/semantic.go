package retriever

import (
	"context"
	"fmt"
	"strings"

	"pdfrag/internal/domain"
	"pdfrag/internal/port"
)

// SemanticRetriever embeds the query and asks the vector store for its nearest chunks.
type SemanticRetriever struct {
	store    port.VectorStore
	embedder port.Embedder
	minScore float64
}

func NewSemanticRetriever(store port.VectorStore, embedder port.Embedder, minScore float64) *SemanticRetriever {
	return &SemanticRetriever{
		store:    store,
		embedder: embedder,
		minScore: minScore,
	}
}

// Retrieve returns at most k chunks, best first. An empty store or a blank
// query yields no results and never reaches the embedder.
func (r *SemanticRetriever) Retrieve(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 || strings.TrimSpace(query) == "" {
		return nil, nil
	}

	count, err := r.store.Count()
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	if count == 0 {
		return nil, nil
	}

	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(embeddings) != 1 {
		return nil, fmt.Errorf("%w: expected 1 query vector, got %d", domain.ErrEmbedding, len(embeddings))
	}

	results, err := r.store.Query(embeddings[0], k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	if r.minScore <= 0 {
		return results, nil
	}
	filtered := results[:0]
	for _, res := range results {
		if res.Score >= r.minScore {
			filtered = append(filtered, res)
		}
	}
	return filtered, nil
}
