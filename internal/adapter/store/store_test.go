package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfrag/internal/adapter/storetest"
	"pdfrag/internal/domain"
	"pdfrag/internal/port"
)

type persistentStore interface {
	port.VectorStore
	port.ModelBinder
	port.Describer
}

var backends = map[string]func(path string) (persistentStore, error){
	"bolt": func(path string) (persistentStore, error) {
		return OpenBolt(path)
	},
	"sqlite": func(path string) (persistentStore, error) {
		return OpenSQLite(path)
	},
}

func openAt(t *testing.T, driver, path string) persistentStore {
	t.Helper()
	s, err := backends[driver](path)
	require.NoError(t, err)
	return s
}

func TestStores(t *testing.T) {
	for driver := range backends {
		t.Run(driver, func(t *testing.T) {
			storetest.Run(t, func(t *testing.T) port.VectorStore {
				s := openAt(t, driver, filepath.Join(t.TempDir(), "nested", "index.db"))
				t.Cleanup(func() { s.Close() })
				return s
			})
		})
	}
}

func TestStores_SurviveReopen(t *testing.T) {
	for driver := range backends {
		t.Run(driver, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "index.db")

			s := openAt(t, driver, path)
			_, err := s.Upsert([]domain.Record{
				storetest.Record("doc.pdf:1:0", "first", 1, 0),
				storetest.Record("doc.pdf:1:1", "second", 1, 0),
			})
			require.NoError(t, err)
			require.NoError(t, s.Close())

			s = openAt(t, driver, path)
			defer s.Close()

			n, err := s.Count()
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			// insertion order survives for ties
			res, err := s.Query([]float32{1, 0}, 2)
			require.NoError(t, err)
			assert.Equal(t, []string{"doc.pdf:1:0", "doc.pdf:1:1"}, domain.ChunkIDs(res))
			assert.Equal(t, "first", res[0].Chunk.Text)
			assert.Equal(t, "doc.pdf", res[0].Chunk.Source)

			// dimension stays pinned after reopen
			_, err = s.Upsert([]domain.Record{storetest.Record("other", "x", 1, 0, 0)})
			assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

			added, err := s.Upsert([]domain.Record{storetest.Record("doc.pdf:1:0", "changed", 0, 1)})
			require.NoError(t, err)
			assert.Zero(t, added)
		})
	}
}

func TestStores_Bind(t *testing.T) {
	for driver := range backends {
		t.Run(driver, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "index.db")
			binding := port.Binding{Model: "nomic-embed-text", Dimension: 2, IndexHash: ComputeIndexHash(800, 80, "native")}

			s := openAt(t, driver, path)
			warning, err := s.Bind(binding)
			require.NoError(t, err)
			assert.Empty(t, warning)

			_, err = s.Upsert([]domain.Record{storetest.Record("a", "alpha", 1, 0)})
			require.NoError(t, err)
			require.NoError(t, s.Close())

			s = openAt(t, driver, path)
			defer s.Close()

			info, err := s.Describe()
			require.NoError(t, err)
			assert.Equal(t, driver, info.Driver)
			assert.Equal(t, "nomic-embed-text", info.Model)
			assert.Equal(t, 2, info.Dimension)
			assert.Equal(t, 1, info.Records)

			_, err = s.Bind(binding)
			assert.NoError(t, err)

			_, err = s.Bind(port.Binding{Model: "mxbai-embed-large", Dimension: 1024})
			assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

			_, err = s.Bind(port.Binding{Model: "other-model", Dimension: 2})
			assert.ErrorIs(t, err, domain.ErrStore)

			warning, err = s.Bind(port.Binding{Model: "nomic-embed-text", Dimension: 2, IndexHash: ComputeIndexHash(400, 40, "native")})
			require.NoError(t, err)
			assert.NotEmpty(t, warning)

			// an empty store accepts any model
			require.NoError(t, s.Clear())
			_, err = s.Bind(port.Binding{Model: "mxbai-embed-large", Dimension: 1024})
			assert.NoError(t, err)

			info, err = s.Describe()
			require.NoError(t, err)
			assert.Zero(t, info.Records)
			assert.Empty(t, info.Model)
		})
	}
}

func TestComputeIndexHash(t *testing.T) {
	assert.Equal(t, ComputeIndexHash(800, 80, "native"), ComputeIndexHash(800, 80, "native"))
	assert.NotEqual(t, ComputeIndexHash(800, 80, "native"), ComputeIndexHash(800, 80, "pdftotext"))
	assert.Len(t, ComputeIndexHash(800, 80, "native"), 16)
}

func TestDecodeSchemaInfo_NewerVersion(t *testing.T) {
	_, err := decodeSchemaInfo([]byte(`{"version": 99}`))
	assert.ErrorIs(t, err, domain.ErrStore)

	info, err := decodeSchemaInfo(nil)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, info.Version)
}

func TestVectorBlob(t *testing.T) {
	v := []float32{0.25, -1.5, 3.0e-7, 42}
	assert.Equal(t, v, blobToVector(vectorToBlob(v)))
	assert.Len(t, vectorToBlob(v), 16)
}
