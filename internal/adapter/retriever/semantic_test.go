package retriever

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfrag/internal/adapter/memstore"
	"pdfrag/internal/domain"
)

type stubEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (e *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = e.vector
	}
	return out, nil
}

func (e *stubEmbedder) Dimension() int    { return len(e.vector) }
func (e *stubEmbedder) ModelName() string { return "stub" }

func seededStore(t *testing.T) *memstore.MemoryStore {
	t.Helper()
	store := memstore.NewMemoryStore()
	_, err := store.Upsert([]domain.Record{
		{Chunk: domain.Chunk{ID: "a.pdf:1:0", Text: "contact"}, Vector: []float32{1, 0}},
		{Chunk: domain.Chunk{ID: "a.pdf:1:1", Text: "skills"}, Vector: []float32{0, 1}},
		{Chunk: domain.Chunk{ID: "a.pdf:2:0", Text: "both"}, Vector: []float32{1, 1}},
	})
	require.NoError(t, err)
	return store
}

func TestSemanticRetriever_Ranks(t *testing.T) {
	r := NewSemanticRetriever(seededStore(t), &stubEmbedder{vector: []float32{1, 0}}, 0)

	got, err := r.Retrieve(context.Background(), "email", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf:1:0", "a.pdf:2:0"}, domain.ChunkIDs(got))
}

func TestSemanticRetriever_MinScore(t *testing.T) {
	r := NewSemanticRetriever(seededStore(t), &stubEmbedder{vector: []float32{1, 0}}, 0.9)

	got, err := r.Retrieve(context.Background(), "email", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf:1:0"}, domain.ChunkIDs(got))
}

func TestSemanticRetriever_EmptyStoreSkipsEmbedder(t *testing.T) {
	emb := &stubEmbedder{vector: []float32{1, 0}}
	r := NewSemanticRetriever(memstore.NewMemoryStore(), emb, 0)

	got, err := r.Retrieve(context.Background(), "email", 4)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, emb.calls)
}

func TestSemanticRetriever_BlankQuery(t *testing.T) {
	emb := &stubEmbedder{vector: []float32{1, 0}}
	r := NewSemanticRetriever(seededStore(t), emb, 0)

	got, err := r.Retrieve(context.Background(), "   ", 4)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, emb.calls)
}

func TestSemanticRetriever_EmbedderError(t *testing.T) {
	cause := errors.New("model down")
	r := NewSemanticRetriever(seededStore(t), &stubEmbedder{err: cause}, 0)

	_, err := r.Retrieve(context.Background(), "email", 4)
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
}
