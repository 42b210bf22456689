package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfrag/internal/domain"
)

func results(ids ...string) []domain.ScoredChunk {
	out := make([]domain.ScoredChunk, len(ids))
	for i, id := range ids {
		out[i] = domain.ScoredChunk{Chunk: domain.Chunk{ID: id}, Score: 1}
	}
	return out
}

func TestQueryCache_GetPut(t *testing.T) {
	c := NewQueryCache(10, time.Minute)

	_, ok := c.Get("email", 4)
	assert.False(t, ok)

	c.Put("email", 4, results("a"))
	got, ok := c.Get("email", 4)
	require.True(t, ok)
	assert.Equal(t, "a", got[0].Chunk.ID)

	// k is part of the key
	_, ok = c.Get("email", 5)
	assert.False(t, ok)

	// surrounding whitespace is not
	_, ok = c.Get("  email ", 4)
	assert.True(t, ok)
}

func TestQueryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewQueryCache(2, time.Minute)

	c.Put("one", 4, results("1"))
	c.Put("two", 4, results("2"))
	_, _ = c.Get("one", 4) // "two" is now the oldest
	c.Put("three", 4, results("3"))

	assert.Equal(t, 2, c.Size())
	_, ok := c.Get("two", 4)
	assert.False(t, ok)
	_, ok = c.Get("one", 4)
	assert.True(t, ok)
}

func TestQueryCache_TTL(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Put("q", 4, results("a"))
	now = now.Add(2 * time.Minute)

	_, ok := c.Get("q", 4)
	assert.False(t, ok)
	assert.Zero(t, c.Size())
}

func TestQueryCache_Invalidate(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	c.Put("q", 4, results("a"))

	c.Invalidate()

	_, ok := c.Get("q", 4)
	assert.False(t, ok)
	assert.Zero(t, c.Size())
}

type countingRetriever struct {
	calls int
	err   error
}

func (r *countingRetriever) Retrieve(_ context.Context, _ string, _ int) ([]domain.ScoredChunk, error) {
	r.calls++
	return results("a"), r.err
}

func TestCachedRetriever(t *testing.T) {
	inner := &countingRetriever{}
	r := NewCachedRetriever(inner, NewQueryCache(10, time.Minute))
	ctx := context.Background()

	_, err := r.Retrieve(ctx, "email", 4)
	require.NoError(t, err)
	_, err = r.Retrieve(ctx, "email", 4)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)

	r.Invalidate()
	_, err = r.Retrieve(ctx, "email", 4)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedRetriever_ErrorsAreNotCached(t *testing.T) {
	inner := &countingRetriever{err: errors.New("embedder down")}
	r := NewCachedRetriever(inner, NewQueryCache(10, time.Minute))

	_, err := r.Retrieve(context.Background(), "email", 4)
	assert.Error(t, err)
	_, err = r.Retrieve(context.Background(), "email", 4)
	assert.Error(t, err)
	assert.Equal(t, 2, inner.calls)
}
