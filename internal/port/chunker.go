package port

import "pdfrag/internal/domain"

// Chunker splits one page into ordered passages.
type Chunker interface {
	Chunk(page domain.Page) []domain.Chunk
}
