package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// StateDir is the per-project directory holding the store and the optional config file.
const StateDir = ".pdfrag"

// Config holds all configuration for the PDF assistant.
type Config struct {
	Data      DataConfig      `yaml:"data"`
	Chunk     ChunkConfig     `yaml:"chunk"`
	Store     StoreConfig     `yaml:"store"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Generate  GenerateConfig  `yaml:"generate"`
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DataConfig describes where source PDFs live and how they are read.
type DataConfig struct {
	Dir       string   `yaml:"dir"`
	Includes  []string `yaml:"includes"`
	Excludes  []string `yaml:"excludes"`
	Extractor string   `yaml:"extractor"` // "native" or "pdftotext"
}

// ChunkConfig sizes passages in characters.
type ChunkConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// StoreConfig selects the vector store backend.
type StoreConfig struct {
	Driver string `yaml:"driver"` // "bolt", "sqlite", "memory"
	Path   string `yaml:"path"`
}

// EmbeddingConfig holds embedding model configuration.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // "ollama", "openai", "hash"
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"base_url"`
	APIKeyEnv  string `yaml:"api_key_env"` // Environment variable for API key
	Dimension  int    `yaml:"dimension"`
	BatchSize  int    `yaml:"batch_size"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// LLMConfig holds generation model configuration.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // "ollama", "openai"
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	TimeoutSec  int     `yaml:"timeout_sec"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK        int     `yaml:"top_k"`
	MinScore    float64 `yaml:"min_score"` // Filter results below this score (0 = disabled)
	CacheSize   int     `yaml:"cache_size"`
	CacheTTLSec int     `yaml:"cache_ttl_sec"`
}

// GenerateConfig controls prompt assembly.
type GenerateConfig struct {
	TokenBudget  int    `yaml:"token_budget"`
	EmptyContext string `yaml:"empty_context"` // "not_found" or "general_knowledge"
}

// HTTPConfig holds the chat server settings.
type HTTPConfig struct {
	Addr            string `yaml:"addr"`
	ReadTimeoutSec  int    `yaml:"read_timeout_sec"`
	WriteTimeoutSec int    `yaml:"write_timeout_sec"` // populate requests on /chat are not bound by it
	ShutdownSec     int    `yaml:"shutdown_sec"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
	Env   string `yaml:"env"` // "local", "dev", "prod"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			Dir:       "data",
			Includes:  []string{"**/*.pdf", "**/*.PDF"},
			Excludes:  []string{"**/.*/**"},
			Extractor: "native",
		},
		Chunk: ChunkConfig{
			Size:    800,
			Overlap: 80,
		},
		Store: StoreConfig{
			Driver: "bolt",
			Path:   filepath.Join(StateDir, "index.db"),
		},
		Embedding: EmbeddingConfig{
			Provider:   "ollama",
			Model:      "nomic-embed-text",
			BaseURL:    "http://localhost:11434",
			Dimension:  768,
			BatchSize:  32,
			TimeoutSec: 60,
		},
		LLM: LLMConfig{
			Provider:   "ollama",
			Model:      "mistral",
			BaseURL:    "http://localhost:11434",
			TimeoutSec: 120,
		},
		Retrieve: RetrieveConfig{
			TopK:        4,
			CacheSize:   128,
			CacheTTLSec: 300,
		},
		Generate: GenerateConfig{
			TokenBudget:  3000,
			EmptyContext: "not_found",
		},
		HTTP: HTTPConfig{
			Addr:            ":8000",
			ReadTimeoutSec:  15,
			WriteTimeoutSec: 180,
			ShutdownSec:     10,
		},
		Logging: LoggingConfig{
			Level: "info",
			Env:   "local",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for pdfrag.yaml, then .pdfrag/config.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "pdfrag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, StateDir, "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Chunk.Size <= 0 {
		errs = append(errs, fmt.Errorf("chunk.size must be positive, got %d", c.Chunk.Size))
	}
	if c.Chunk.Overlap < 0 || c.Chunk.Overlap >= c.Chunk.Size {
		errs = append(errs, fmt.Errorf("chunk.overlap must be in [0, chunk.size), got %d", c.Chunk.Overlap))
	}
	if !oneOf(c.Data.Extractor, "native", "pdftotext") {
		errs = append(errs, fmt.Errorf("unknown data.extractor %q", c.Data.Extractor))
	}
	if !oneOf(c.Store.Driver, "bolt", "sqlite", "memory") {
		errs = append(errs, fmt.Errorf("unknown store.driver %q", c.Store.Driver))
	}
	if !oneOf(c.Embedding.Provider, "ollama", "openai", "hash") {
		errs = append(errs, fmt.Errorf("unknown embedding.provider %q", c.Embedding.Provider))
	}
	if c.Embedding.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("embedding.dimension must be positive, got %d", c.Embedding.Dimension))
	}
	if !oneOf(c.LLM.Provider, "ollama", "openai") {
		errs = append(errs, fmt.Errorf("unknown llm.provider %q", c.LLM.Provider))
	}
	if c.Retrieve.TopK <= 0 {
		errs = append(errs, fmt.Errorf("retrieve.top_k must be positive, got %d", c.Retrieve.TopK))
	}
	if !oneOf(c.Generate.EmptyContext, "not_found", "general_knowledge") {
		errs = append(errs, fmt.Errorf("unknown generate.empty_context %q", c.Generate.EmptyContext))
	}

	return errors.Join(errs...)
}

// DataDir resolves the PDF directory against the project root.
func (c *Config) DataDir(root string) string {
	return resolve(root, c.Data.Dir)
}

// StoreDBPath resolves the vector store file against the project root.
func (c *Config) StoreDBPath(root string) string {
	return resolve(root, c.Store.Path)
}

// EmbeddingTimeout returns the bound on a single embedding call.
func (c *Config) EmbeddingTimeout() time.Duration {
	return seconds(c.Embedding.TimeoutSec, 60)
}

// LLMTimeout returns the bound on a single generation call.
func (c *Config) LLMTimeout() time.Duration {
	return seconds(c.LLM.TimeoutSec, 120)
}

// CacheTTL returns how long retrieval results stay cached.
func (c *Config) CacheTTL() time.Duration {
	return seconds(c.Retrieve.CacheTTLSec, 300)
}

// EnsureStateDir ensures the directory holding the store file exists.
func (c *Config) EnsureStateDir(root string) error {
	return os.MkdirAll(filepath.Dir(c.StoreDBPath(root)), 0755)
}

func resolve(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

func seconds(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Second
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
