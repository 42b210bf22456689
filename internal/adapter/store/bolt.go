package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"pdfrag/internal/adapter/memstore"
	"pdfrag/internal/domain"
	"pdfrag/internal/port"
)

var (
	bucketRecords = []byte("records")
	bucketMeta    = []byte("meta")
	keySchema     = []byte("schema")
)

// BoltStore persists records in a bbolt file keyed by chunk id and keeps all
// vectors in memory for brute-force search.
type BoltStore struct {
	mu      sync.Mutex
	db      *bbolt.DB
	path    string
	index   *memstore.MemoryStore
	info    SchemaInfo
	binding port.Binding
}

type storedRecord struct {
	Seq    uint64    `json:"seq"`
	Source string    `json:"source"`
	Page   int       `json:"page"`
	Index  int       `json:"index"`
	Text   string    `json:"text"`
	Vector []float32 `json:"vector"`
}

func OpenBolt(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("%w: create store directory: %w", domain.ErrStore, err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: open bolt db: %w", domain.ErrStore, err)
	}

	s := &BoltStore{db: db, path: path, index: memstore.NewMemoryStore()}
	if err := s.load(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *BoltStore) load() error {
	var records []domain.Record

	err := s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketRecords, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}

		info, err := decodeSchemaInfo(tx.Bucket(bucketMeta).Get(keySchema))
		if err != nil {
			return err
		}
		s.info = info

		return tx.Bucket(bucketRecords).ForEach(func(k, v []byte) error {
			var sr storedRecord
			if err := json.Unmarshal(v, &sr); err != nil {
				return fmt.Errorf("decode record %s: %w", k, err)
			}
			records = append(records, domain.Record{
				Chunk: domain.Chunk{
					ID:     string(k),
					Source: sr.Source,
					Page:   sr.Page,
					Index:  sr.Index,
					Text:   sr.Text,
				},
				Vector: sr.Vector,
				Seq:    sr.Seq,
			})
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("%w: load %s: %w", domain.ErrStore, s.path, err)
	}

	// bbolt iterates in key order; search ties need insertion order
	sort.Slice(records, func(i, j int) bool { return records[i].Seq < records[j].Seq })
	s.index.Insert(records)
	if s.info.Dimension == 0 {
		s.info.Dimension = s.index.Dimension()
	}
	return nil
}

// Bind checks stored vectors against the embedder in use and remembers the
// binding so the first records written to an empty store record it.
func (s *BoltStore) Bind(b port.Binding) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, _ := s.index.Count()
	warning, err := checkBinding(s.info, n, b)
	if err != nil {
		return "", err
	}
	s.binding = b
	return warning, nil
}

func (s *BoltStore) Upsert(records []domain.Record) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(records) == 0 {
		return 0, nil
	}
	if err := memstore.CheckDimension(s.index.Dimension(), records); err != nil {
		return 0, err
	}

	var added []domain.Record
	var pinned *SchemaInfo

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		for _, r := range records {
			key := []byte(r.Chunk.ID)
			if b.Get(key) != nil {
				continue
			}

			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			r.Seq = seq

			data, err := json.Marshal(storedRecord{
				Seq:    r.Seq,
				Source: r.Chunk.Source,
				Page:   r.Chunk.Page,
				Index:  r.Chunk.Index,
				Text:   r.Chunk.Text,
				Vector: r.Vector,
			})
			if err != nil {
				return err
			}
			if err := b.Put(key, data); err != nil {
				return err
			}
			added = append(added, r)
		}

		if len(added) > 0 && s.index.Dimension() == 0 {
			info := pinnedInfo(s.binding, len(added[0].Vector))
			data, err := json.Marshal(info)
			if err != nil {
				return err
			}
			if err := tx.Bucket(bucketMeta).Put(keySchema, data); err != nil {
				return err
			}
			pinned = &info
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: upsert: %w", domain.ErrStore, err)
	}

	if pinned != nil {
		s.info = *pinned
	}
	s.index.Insert(added)
	return len(added), nil
}

func (s *BoltStore) Query(vector []float32, k int) ([]domain.ScoredChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Query(vector, k)
}

func (s *BoltStore) Existing(ids []string) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Existing(ids)
}

// Clear drops all records and the pinned model and dimension.
func (s *BoltStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := SchemaInfo{Version: CurrentSchemaVersion}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketRecords); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return err
		}
		if _, err := tx.CreateBucket(bucketRecords); err != nil {
			return err
		}
		data, err := json.Marshal(info)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put(keySchema, data)
	})
	if err != nil {
		return fmt.Errorf("%w: clear: %w", domain.ErrStore, err)
	}

	s.info = info
	return s.index.Clear()
}

func (s *BoltStore) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Count()
}

func (s *BoltStore) Describe() (port.StoreInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, _ := s.index.Count()
	return port.StoreInfo{
		Driver:        "bolt",
		Path:          s.path,
		Records:       n,
		Dimension:     s.index.Dimension(),
		Model:         s.info.Model,
		SchemaVersion: s.info.Version,
	}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
