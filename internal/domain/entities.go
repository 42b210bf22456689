package domain

import "fmt"

// Document is a source PDF discovered during populate.
type Document struct {
	Path      string
	PageCount int
}

// Page is the extracted text of one PDF page. Number is 1-based.
type Page struct {
	Source string
	Number int
	Text   string
}

type Chunk struct {
	ID     string
	Source string
	Page   int
	Index  int
	Text   string
}

// ChunkID builds the positional id "<source>:<page>:<index>".
// Page and index are integers, so the id stays unambiguous even when the
// source path itself contains colons.
func ChunkID(source string, page, index int) string {
	return fmt.Sprintf("%s:%d:%d", source, page, index)
}

// Record is a chunk with its embedding as held by a vector store.
// Seq is assigned by the store on insert and breaks similarity ties.
type Record struct {
	Chunk  Chunk
	Vector []float32
	Seq    uint64
}

type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// ChunkIDs returns the ids of results in rank order.
func ChunkIDs(results []ScoredChunk) []string {
	if len(results) == 0 {
		return nil
	}
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.Chunk.ID
	}
	return ids
}

// PopulateReport summarises one populate run.
type PopulateReport struct {
	FilesSeen      int
	FilesLoaded    int
	Pages          int
	ChunksProduced int
	ChunksSkipped  int // already present before embedding
	ChunksAdded    int
	ExistingCount  int
	TotalCount     int
	Failures       []*IngestionError
}
