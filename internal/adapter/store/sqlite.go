package store

import (
	"database/sql"
	_ "embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"pdfrag/internal/adapter/memstore"
	"pdfrag/internal/domain"
	"pdfrag/internal/port"
)

//go:embed schema.sql
var schemaSQL string

// existingBatch bounds the number of placeholders in one IN (...) lookup.
const existingBatch = 500

// SQLiteStore keeps records in a single SQLite table. Queries scan every
// vector; the ORDER BY seq scan gives insertion order for tie-breaking.
type SQLiteStore struct {
	mu      sync.Mutex
	db      *sql.DB
	path    string
	info    SchemaInfo
	binding port.Binding
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("%w: create store directory: %w", domain.ErrStore, err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %w", domain.ErrStore, err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate %s: %w", domain.ErrStore, path, err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	var raw string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = 'schema'`).Scan(&raw)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read schema info: %w", err)
	}
	info, err := decodeSchemaInfo([]byte(raw))
	if err != nil {
		return err
	}

	if info.Dimension == 0 {
		var blobLen int
		err := s.db.QueryRow(`SELECT length(vector) FROM records ORDER BY seq LIMIT 1`).Scan(&blobLen)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("probe dimension: %w", err)
		}
		info.Dimension = blobLen / 4
	}
	s.info = info
	return nil
}

func (s *SQLiteStore) Bind(b port.Binding) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.count()
	if err != nil {
		return "", err
	}
	warning, err := checkBinding(s.info, n, b)
	if err != nil {
		return "", err
	}
	s.binding = b
	return warning, nil
}

func (s *SQLiteStore) Upsert(records []domain.Record) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(records) == 0 {
		return 0, nil
	}
	if err := memstore.CheckDimension(s.info.Dimension, records); err != nil {
		return 0, err
	}

	added, pinned, err := s.insert(records)
	if err != nil {
		return 0, fmt.Errorf("%w: upsert: %w", domain.ErrStore, err)
	}
	if pinned != nil {
		s.info = *pinned
	}
	return added, nil
}

func (s *SQLiteStore) insert(records []domain.Record) (int, *SchemaInfo, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO records (id, source, page, chunk_index, text, vector) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	added := 0
	for _, r := range records {
		res, err := stmt.Exec(r.Chunk.ID, r.Chunk.Source, r.Chunk.Page, r.Chunk.Index, r.Chunk.Text, vectorToBlob(r.Vector))
		if err != nil {
			return 0, nil, fmt.Errorf("insert %s: %w", r.Chunk.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, nil, err
		}
		added += int(n)
	}

	var pinned *SchemaInfo
	if added > 0 && s.info.Dimension == 0 {
		info := pinnedInfo(s.binding, len(records[0].Vector))
		if err := writeSchemaInfo(tx, info); err != nil {
			return 0, nil, err
		}
		pinned = &info
	}

	if err := tx.Commit(); err != nil {
		return 0, nil, fmt.Errorf("commit: %w", err)
	}
	return added, pinned, nil
}

func (s *SQLiteStore) Query(vector []float32, k int) ([]domain.ScoredChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if k <= 0 {
		return nil, nil
	}

	rows, err := s.db.Query(`SELECT seq, id, source, page, chunk_index, text, vector FROM records ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", domain.ErrStore, err)
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		var r domain.Record
		var blob []byte
		if err := rows.Scan(&r.Seq, &r.Chunk.ID, &r.Chunk.Source, &r.Chunk.Page, &r.Chunk.Index, &r.Chunk.Text, &blob); err != nil {
			return nil, fmt.Errorf("%w: scan: %w", domain.ErrStore, err)
		}
		r.Vector = blobToVector(blob)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: query: %w", domain.ErrStore, err)
	}

	if len(records) == 0 {
		return nil, nil
	}
	if len(vector) != s.info.Dimension {
		return nil, fmt.Errorf("%w: %w: query has %d dimensions, store holds %d",
			domain.ErrStore, domain.ErrDimensionMismatch, len(vector), s.info.Dimension)
	}
	return domain.RankTopK(vector, records, k), nil
}

func (s *SQLiteStore) Existing(ids []string) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := make(map[string]bool)
	for start := 0; start < len(ids); start += existingBatch {
		batch := ids[start:min(start+existingBatch, len(ids))]

		args := make([]any, len(batch))
		for i, id := range batch {
			args[i] = id
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(batch)), ",")

		rows, err := s.db.Query(`SELECT id FROM records WHERE id IN (`+placeholders+`)`, args...)
		if err != nil {
			return nil, fmt.Errorf("%w: lookup ids: %w", domain.ErrStore, err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("%w: scan id: %w", domain.ErrStore, err)
			}
			found[id] = true
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: lookup ids: %w", domain.ErrStore, err)
		}
	}
	return found, nil
}

func (s *SQLiteStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := SchemaInfo{Version: CurrentSchemaVersion}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: clear: %w", domain.ErrStore, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM records`); err != nil {
		return fmt.Errorf("%w: clear: %w", domain.ErrStore, err)
	}
	if err := writeSchemaInfo(tx, info); err != nil {
		return fmt.Errorf("%w: clear: %w", domain.ErrStore, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: clear: %w", domain.ErrStore, err)
	}

	s.info = info
	return nil
}

func (s *SQLiteStore) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count()
}

func (s *SQLiteStore) count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count: %w", domain.ErrStore, err)
	}
	return n, nil
}

func (s *SQLiteStore) Describe() (port.StoreInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.count()
	if err != nil {
		return port.StoreInfo{}, err
	}
	return port.StoreInfo{
		Driver:        "sqlite",
		Path:          s.path,
		Records:       n,
		Dimension:     s.info.Dimension,
		Model:         s.info.Model,
		SchemaVersion: s.info.Version,
	}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func writeSchemaInfo(tx *sql.Tx, info SchemaInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	_, err = tx.Exec(`INSERT INTO meta (key, value) VALUES ('schema', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, string(data))
	if err != nil {
		return fmt.Errorf("write schema info: %w", err)
	}
	return nil
}

// vectorToBlob encodes a vector as little-endian float32s.
func vectorToBlob(v []float32) []byte {
	blob := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(f))
	}
	return blob
}

func blobToVector(blob []byte) []float32 {
	v := make([]float32, len(blob)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return v
}
