package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Chunk.Size != 800 {
		t.Errorf("expected Chunk.Size=800, got %d", cfg.Chunk.Size)
	}
	if cfg.Chunk.Overlap != 80 {
		t.Errorf("expected Chunk.Overlap=80, got %d", cfg.Chunk.Overlap)
	}
	if cfg.Retrieve.TopK != 4 {
		t.Errorf("expected TopK=4, got %d", cfg.Retrieve.TopK)
	}
	if cfg.Embedding.Model != "nomic-embed-text" || cfg.Embedding.Dimension != 768 {
		t.Errorf("unexpected embedding defaults: %s/%d", cfg.Embedding.Model, cfg.Embedding.Dimension)
	}
	if cfg.LLM.Model != "mistral" {
		t.Errorf("expected LLM.Model=mistral, got %s", cfg.LLM.Model)
	}
	if cfg.Generate.EmptyContext != "not_found" {
		t.Errorf("expected EmptyContext=not_found, got %s", cfg.Generate.EmptyContext)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("expected no error for non-existent file, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "pdfrag.yaml")

	content := `
chunk:
  size: 400
  overlap: 40
store:
  driver: sqlite
retrieve:
  top_k: 10
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Chunk.Size != 400 || cfg.Chunk.Overlap != 40 {
		t.Errorf("expected chunk 400/40, got %d/%d", cfg.Chunk.Size, cfg.Chunk.Overlap)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Errorf("expected Store.Driver=sqlite, got %s", cfg.Store.Driver)
	}
	if cfg.Retrieve.TopK != 10 {
		t.Errorf("expected TopK=10, got %d", cfg.Retrieve.TopK)
	}
	// untouched sections keep their defaults
	if cfg.LLM.Model != "mistral" {
		t.Errorf("expected LLM.Model=mistral, got %s", cfg.LLM.Model)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "pdfrag.yaml")
	if err := os.WriteFile(configPath, []byte("chunk: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadFromDir(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "pdfrag.yaml")

	content := `
generate:
  token_budget: 8000
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Generate.TokenBudget != 8000 {
		t.Errorf("expected TokenBudget=8000, got %d", cfg.Generate.TokenBudget)
	}
}

func TestLoadFromDir_StateDirFallback(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, StateDir), 0755); err != nil {
		t.Fatal(err)
	}
	content := "llm:\n  model: llama3\n"
	if err := os.WriteFile(filepath.Join(tmpDir, StateDir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LLM.Model != "llama3" {
		t.Errorf("expected LLM.Model=llama3, got %s", cfg.LLM.Model)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pdfrag.yaml")
	cfg := DefaultConfig()
	cfg.Embedding.Provider = "hash"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Embedding.Provider != "hash" {
		t.Errorf("expected provider hash, got %s", loaded.Embedding.Provider)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero chunk size", func(c *Config) { c.Chunk.Size = 0 }, "chunk.size"},
		{"overlap equals size", func(c *Config) { c.Chunk.Overlap = c.Chunk.Size }, "chunk.overlap"},
		{"negative overlap", func(c *Config) { c.Chunk.Overlap = -1 }, "chunk.overlap"},
		{"unknown driver", func(c *Config) { c.Store.Driver = "chroma" }, "store.driver"},
		{"unknown embedder", func(c *Config) { c.Embedding.Provider = "voyage" }, "embedding.provider"},
		{"zero dimension", func(c *Config) { c.Embedding.Dimension = 0 }, "embedding.dimension"},
		{"unknown policy", func(c *Config) { c.Generate.EmptyContext = "guess" }, "generate.empty_context"},
		{"zero top k", func(c *Config) { c.Retrieve.TopK = 0 }, "retrieve.top_k"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestPaths(t *testing.T) {
	cfg := DefaultConfig()

	if got, want := cfg.StoreDBPath("/home/user/project"), filepath.Join("/home/user/project", ".pdfrag", "index.db"); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
	if got, want := cfg.DataDir("/home/user/project"), filepath.Join("/home/user/project", "data"); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}

	cfg.Data.Dir = "/srv/pdfs"
	if got := cfg.DataDir("/home/user/project"); got != "/srv/pdfs" {
		t.Errorf("absolute data dir should be kept, got %s", got)
	}
}

func TestTimeouts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.TimeoutSec = 0

	if got := cfg.LLMTimeout(); got != 120*time.Second {
		t.Errorf("expected fallback 120s, got %s", got)
	}
	if got := cfg.EmbeddingTimeout(); got != 60*time.Second {
		t.Errorf("expected 60s, got %s", got)
	}
}
