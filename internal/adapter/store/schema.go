package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"pdfrag/internal/domain"
	"pdfrag/internal/port"
)

// CurrentSchemaVersion is the current schema version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

// SchemaInfo is kept next to the records and describes how they were produced.
type SchemaInfo struct {
	Version   int    `json:"version"`
	Model     string `json:"model,omitempty"`
	Dimension int    `json:"dimension,omitempty"`
	IndexHash string `json:"index_hash,omitempty"`
}

func decodeSchemaInfo(data []byte) (SchemaInfo, error) {
	info := SchemaInfo{Version: CurrentSchemaVersion}
	if len(data) == 0 {
		return info, nil
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return info, fmt.Errorf("decode schema info: %w", err)
	}
	if info.Version > CurrentSchemaVersion {
		return info, fmt.Errorf("%w: store schema version %d is newer than supported version %d",
			domain.ErrStore, info.Version, CurrentSchemaVersion)
	}
	return info, nil
}

// ComputeIndexHash hashes the settings that decide chunk boundaries and ids.
// A different hash means re-populating would not line up with stored chunks.
func ComputeIndexHash(chunkSize, chunkOverlap int, extractor string) string {
	relevant := struct {
		ChunkSize    int    `json:"chunk_size"`
		ChunkOverlap int    `json:"chunk_overlap"`
		Extractor    string `json:"extractor"`
	}{chunkSize, chunkOverlap, extractor}

	data, _ := json.Marshal(relevant)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}

// checkBinding compares stored schema info with the embedder and chunking
// settings in use. Conflicting vectors are an error; a changed chunking
// setup only warrants a warning since old chunks stay searchable.
func checkBinding(info SchemaInfo, records int, b port.Binding) (string, error) {
	if records == 0 {
		return "", nil
	}
	if info.Dimension != 0 && info.Dimension != b.Dimension {
		return "", fmt.Errorf("%w: %w: store holds %d-dimensional vectors, embedder %q produces %d; run clear before switching models",
			domain.ErrStore, domain.ErrDimensionMismatch, info.Dimension, b.Model, b.Dimension)
	}
	if info.Model != "" && b.Model != "" && info.Model != b.Model {
		return "", fmt.Errorf("%w: store was populated with embedding model %q, configured model is %q; run clear before switching models",
			domain.ErrStore, info.Model, b.Model)
	}
	if info.IndexHash != "" && b.IndexHash != "" && info.IndexHash != b.IndexHash {
		return "chunking settings changed since the store was populated; run clear and populate to re-chunk", nil
	}
	return "", nil
}

// pinnedInfo is the schema info written with the first records of an empty store.
func pinnedInfo(b port.Binding, dimension int) SchemaInfo {
	return SchemaInfo{
		Version:   CurrentSchemaVersion,
		Model:     b.Model,
		Dimension: dimension,
		IndexHash: b.IndexHash,
	}
}
