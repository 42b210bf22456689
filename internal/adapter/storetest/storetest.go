// Package storetest holds behaviour tests shared by every port.VectorStore.
package storetest

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfrag/internal/domain"
	"pdfrag/internal/port"
)

// Record builds a record for source page 1.
func Record(id, text string, vec ...float32) domain.Record {
	return domain.Record{
		Chunk:  domain.Chunk{ID: id, Source: "doc.pdf", Page: 1, Text: text},
		Vector: vec,
	}
}

// Run exercises the store contract against fresh stores from open.
func Run(t *testing.T, open func(t *testing.T) port.VectorStore) {
	t.Run("empty store", func(t *testing.T) {
		s := open(t)

		n, err := s.Count()
		require.NoError(t, err)
		assert.Zero(t, n)

		res, err := s.Query([]float32{1, 0, 0}, 4)
		require.NoError(t, err)
		assert.Empty(t, res)
	})

	t.Run("upsert then count", func(t *testing.T) {
		s := open(t)

		added, err := s.Upsert([]domain.Record{
			Record("a", "alpha", 1, 0, 0),
			Record("b", "beta", 0, 1, 0),
		})
		require.NoError(t, err)
		assert.Equal(t, 2, added)

		n, err := s.Count()
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("existing ids are skipped, first write wins", func(t *testing.T) {
		s := open(t)

		_, err := s.Upsert([]domain.Record{Record("a", "original", 1, 0, 0)})
		require.NoError(t, err)

		added, err := s.Upsert([]domain.Record{
			Record("a", "replacement", 0, 1, 0),
			Record("b", "beta", 0, 1, 0),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, added)

		res, err := s.Query([]float32{1, 0, 0}, 1)
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, "a", res[0].Chunk.ID)
		assert.Equal(t, "original", res[0].Chunk.Text)
		assert.InDelta(t, 1.0, res[0].Score, 1e-6)
	})

	t.Run("duplicate ids within one batch", func(t *testing.T) {
		s := open(t)

		added, err := s.Upsert([]domain.Record{
			Record("a", "first", 1, 0, 0),
			Record("a", "second", 0, 1, 0),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, added)

		res, err := s.Query([]float32{1, 0, 0}, 4)
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, "first", res[0].Chunk.Text)
	})

	t.Run("re-upserting the same batch adds nothing", func(t *testing.T) {
		s := open(t)
		batch := []domain.Record{Record("a", "alpha", 1, 0, 0), Record("b", "beta", 0, 1, 0)}

		_, err := s.Upsert(batch)
		require.NoError(t, err)
		added, err := s.Upsert(batch)
		require.NoError(t, err)
		assert.Zero(t, added)

		n, _ := s.Count()
		assert.Equal(t, 2, n)
	})

	t.Run("query ranks by cosine similarity", func(t *testing.T) {
		s := open(t)
		_, err := s.Upsert([]domain.Record{
			Record("x", "x axis", 1, 0, 0),
			Record("y", "y axis", 0, 1, 0),
			Record("xy", "diagonal", 1, 1, 0),
		})
		require.NoError(t, err)

		res, err := s.Query([]float32{1, 0.1, 0}, 3)
		require.NoError(t, err)
		assert.Equal(t, []string{"x", "xy", "y"}, domain.ChunkIDs(res))
		assert.GreaterOrEqual(t, res[0].Score, res[1].Score)
		assert.GreaterOrEqual(t, res[1].Score, res[2].Score)

		res, err = s.Query([]float32{1, 0.1, 0}, 2)
		require.NoError(t, err)
		assert.Len(t, res, 2)

		res, err = s.Query([]float32{1, 0.1, 0}, 0)
		require.NoError(t, err)
		assert.Empty(t, res)
	})

	t.Run("ties keep insertion order", func(t *testing.T) {
		s := open(t)
		for i := 0; i < 5; i++ {
			_, err := s.Upsert([]domain.Record{Record(fmt.Sprintf("z%d", 4-i), "same", 0, 0, 1)})
			require.NoError(t, err)
		}

		for i := 0; i < 3; i++ {
			res, err := s.Query([]float32{0, 0, 1}, 5)
			require.NoError(t, err)
			assert.Equal(t, []string{"z4", "z3", "z2", "z1", "z0"}, domain.ChunkIDs(res))
		}
	})

	t.Run("existing", func(t *testing.T) {
		s := open(t)
		_, err := s.Upsert([]domain.Record{Record("a", "alpha", 1, 0, 0)})
		require.NoError(t, err)

		found, err := s.Existing([]string{"a", "b"})
		require.NoError(t, err)
		assert.True(t, found["a"])
		assert.False(t, found["b"])
	})

	t.Run("clear removes everything", func(t *testing.T) {
		s := open(t)
		_, err := s.Upsert([]domain.Record{Record("a", "alpha", 1, 0, 0), Record("b", "beta", 0, 1, 0)})
		require.NoError(t, err)

		require.NoError(t, s.Clear())

		n, err := s.Count()
		require.NoError(t, err)
		assert.Zero(t, n)

		res, err := s.Query([]float32{1, 0, 0}, 4)
		require.NoError(t, err)
		assert.Empty(t, res)

		// clearing an empty store is fine too
		require.NoError(t, s.Clear())
	})

	t.Run("dimension is pinned by the first upsert", func(t *testing.T) {
		s := open(t)
		_, err := s.Upsert([]domain.Record{Record("a", "alpha", 1, 0, 0)})
		require.NoError(t, err)

		_, err = s.Upsert([]domain.Record{Record("b", "beta", 1, 0)})
		assert.ErrorIs(t, err, domain.ErrStore)
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

		_, err = s.Query([]float32{1, 0}, 1)
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

		n, _ := s.Count()
		assert.Equal(t, 1, n)
	})

	t.Run("clear unpins the dimension", func(t *testing.T) {
		s := open(t)
		_, err := s.Upsert([]domain.Record{Record("a", "alpha", 1, 0, 0)})
		require.NoError(t, err)
		require.NoError(t, s.Clear())

		added, err := s.Upsert([]domain.Record{Record("b", "beta", 1, 0)})
		require.NoError(t, err)
		assert.Equal(t, 1, added)
	})

	t.Run("mismatched batch writes nothing", func(t *testing.T) {
		s := open(t)
		_, err := s.Upsert([]domain.Record{
			Record("a", "alpha", 1, 0, 0),
			Record("b", "beta", 1, 0),
		})
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

		n, _ := s.Count()
		assert.Zero(t, n)
	})
	t.Run("concurrent upsert clear and query", func(t *testing.T) {
		s := open(t)

		batch := make([]domain.Record, 8)
		for i := range batch {
			batch[i] = Record(fmt.Sprintf("doc.pdf:1:%d", i), "text", 1, float32(i))
		}
		full := len(batch)

		var wg sync.WaitGroup
		for w := 0; w < 4; w++ {
			wg.Add(3)
			go func() {
				defer wg.Done()
				for i := 0; i < 20; i++ {
					_, err := s.Upsert(batch)
					assert.NoError(t, err)
				}
			}()
			go func() {
				defer wg.Done()
				for i := 0; i < 20; i++ {
					assert.NoError(t, s.Clear())
				}
			}()
			go func() {
				defer wg.Done()
				for i := 0; i < 20; i++ {
					_, err := s.Query([]float32{1, 1}, 3)
					assert.NoError(t, err)
					n, err := s.Count()
					assert.NoError(t, err)
					assert.Contains(t, []int{0, full}, n, "batch must land whole or not at all")
				}
			}()
		}
		wg.Wait()

		n, err := s.Count()
		require.NoError(t, err)
		assert.Contains(t, []int{0, full}, n)
	})
}
