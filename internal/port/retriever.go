package port

import (
	"context"
	"iter"

	"pdfrag/internal/domain"
)

// Retriever finds the indexed passages most relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error)
}

// PageLoader discovers source files and streams their pages.
type PageLoader interface {
	Discover(root string) ([]FileInfo, error)
	Pages(ctx context.Context, files []FileInfo) iter.Seq2[domain.Page, error]
}
