package chunker

import (
	"fmt"
	"strings"

	"pdfrag/internal/domain"
)

// separators in order of preference when looking for a chunk boundary.
var separators = [][]rune{
	[]rune("\n\n"),
	[]rune("\n"),
	[]rune(" "),
}

// CharChunker splits page text into windows of at most size characters.
// Consecutive chunks of a page share exactly overlap characters.
type CharChunker struct {
	size    int
	overlap int
}

// NewCharChunker creates a chunker. size must be positive and overlap in [0, size).
func NewCharChunker(size, overlap int) (*CharChunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidInput, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap must be in [0, %d), got %d", domain.ErrInvalidInput, size, overlap)
	}
	return &CharChunker{size: size, overlap: overlap}, nil
}

// Chunk splits one page. Ids are "<source>:<page>:<index>" with index
// counting the page's chunks from 0. Whitespace-only windows are dropped.
func (c *CharChunker) Chunk(page domain.Page) []domain.Chunk {
	if strings.TrimSpace(page.Text) == "" {
		return nil
	}

	runes := []rune(page.Text)
	var chunks []domain.Chunk

	start := 0
	for start < len(runes) {
		end := start + c.size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = c.boundary(runes, start, end)
		}

		text := string(runes[start:end])
		if strings.TrimSpace(text) != "" {
			idx := len(chunks)
			chunks = append(chunks, domain.Chunk{
				ID:     domain.ChunkID(page.Source, page.Number, idx),
				Source: page.Source,
				Page:   page.Number,
				Index:  idx,
				Text:   text,
			})
		}

		if end == len(runes) {
			break
		}
		start = end - c.overlap
	}

	return chunks
}

// boundary moves end back to just after the last separator found in the
// second half of the window. The result always leaves more than overlap
// characters in the window, so the next start moves forward.
func (c *CharChunker) boundary(runes []rune, start, end int) int {
	lowest := start + max(c.size/2, c.overlap+1)

	for _, sep := range separators {
		for i := end - len(sep); i >= lowest-len(sep) && i > start; i-- {
			if hasPrefixAt(runes, i, sep) {
				return i + len(sep)
			}
		}
	}
	return end
}

func hasPrefixAt(runes []rune, i int, sep []rune) bool {
	if i < 0 || i+len(sep) > len(runes) {
		return false
	}
	for j, r := range sep {
		if runes[i+j] != r {
			return false
		}
	}
	return true
}
