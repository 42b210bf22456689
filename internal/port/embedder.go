package port

import (
	"context"

	"pdfrag/internal/domain"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// VectorStore persists chunk records and answers similarity queries.
type VectorStore interface {
	// Upsert inserts records whose ids are not yet present and skips the rest.
	// It returns how many records were added.
	Upsert(records []domain.Record) (int, error)

	// Query returns the k records most similar to vector, best first.
	Query(vector []float32, k int) ([]domain.ScoredChunk, error)

	// Existing reports which of ids are already stored.
	Existing(ids []string) (map[string]bool, error)

	// Clear removes every record.
	Clear() error

	// Count returns the number of records in the store.
	Count() (int, error)

	Close() error
}

// Binding describes the embedder and chunking setup a store is used with.
type Binding struct {
	Model     string
	Dimension int
	IndexHash string
}

// ModelBinder is implemented by persistent stores that remember which
// embedding model produced their vectors. Bind fails when stored vectors
// cannot be compared with the configured embedder's output; a non-empty
// warning flags settings that changed in a compatible way.
type ModelBinder interface {
	Bind(b Binding) (warning string, err error)
}

// StoreInfo describes a store for status output.
type StoreInfo struct {
	Driver        string
	Path          string
	Records       int
	Dimension     int
	Model         string
	SchemaVersion int
}

type Describer interface {
	Describe() (StoreInfo, error)
}
