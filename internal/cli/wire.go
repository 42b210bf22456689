package cli

import (
	"fmt"

	"go.uber.org/zap"

	"pdfrag/config"
	"pdfrag/internal/adapter/analyzer"
	"pdfrag/internal/adapter/cache"
	"pdfrag/internal/adapter/chunker"
	"pdfrag/internal/adapter/embedding"
	"pdfrag/internal/adapter/fs"
	"pdfrag/internal/adapter/llm"
	"pdfrag/internal/adapter/memstore"
	"pdfrag/internal/adapter/pdf"
	"pdfrag/internal/adapter/prompt"
	"pdfrag/internal/adapter/retriever"
	"pdfrag/internal/adapter/store"
	"pdfrag/internal/metrics"
	"pdfrag/internal/port"
	"pdfrag/internal/usecase"
)

// app is the composition root shared by every command.
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	store      port.VectorStore
	embedder   *embedding.Guarded
	llm        port.LLM
	cache      *cache.QueryCache
	retriever  port.Retriever
	generator  *usecase.Generator
	populate   *usecase.PopulateUseCase
	controller *usecase.Controller
}

// buildApp opens the store and wires the pipeline. The language model is
// only constructed when withLLM is set, so retrieval-only commands work
// without generation credentials.
func buildApp(cfg *config.Config, root string, withLLM bool, logger *zap.Logger) (*app, error) {
	tok := analyzer.NewTokenizer()

	emb, err := buildEmbedder(cfg, tok)
	if err != nil {
		return nil, err
	}
	guarded := embedding.NewGuarded(emb, cfg.Embedding.Provider, logger)

	st, err := openStore(cfg, root)
	if err != nil {
		return nil, err
	}

	if binder, ok := st.(port.ModelBinder); ok {
		warning, err := binder.Bind(port.Binding{
			Model:     guarded.ModelName(),
			Dimension: guarded.Dimension(),
			IndexHash: store.ComputeIndexHash(cfg.Chunk.Size, cfg.Chunk.Overlap, cfg.Data.Extractor),
		})
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		if warning != "" {
			logger.Warn(warning)
		}
	}
	if n, err := st.Count(); err == nil {
		metrics.StoreRecords.Set(float64(n))
	}

	ch, err := chunker.NewCharChunker(cfg.Chunk.Size, cfg.Chunk.Overlap)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	extractor, err := buildExtractor(cfg)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	loader := pdf.NewLoader(fs.NewWalker(cfg.Data.Includes, cfg.Data.Excludes), extractor, logger)

	qc := cache.NewQueryCache(cfg.Retrieve.CacheSize, cfg.CacheTTL())
	ret := cache.NewCachedRetriever(retriever.NewSemanticRetriever(st, guarded, cfg.Retrieve.MinScore), qc)

	prompts, err := prompt.NewBuilder(tok, cfg.Generate.TokenBudget)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	a := &app{
		cfg:       cfg,
		logger:    logger,
		store:     st,
		embedder:  guarded,
		cache:     qc,
		retriever: ret,
		populate:  usecase.NewPopulateUseCase(loader, ch, guarded, st, cfg.Embedding.BatchSize, logger),
	}

	if withLLM {
		a.llm, err = buildLLM(cfg)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
	}
	a.generator = usecase.NewGenerator(a.llm, cfg.LLM.Provider, prompts, usecase.EmptyContextPolicy(cfg.Generate.EmptyContext), logger)

	a.controller = usecase.NewController(usecase.ControllerConfig{
		DataDir:   cfg.DataDir(root),
		TopK:      cfg.Retrieve.TopK,
		Populate:  a.populate,
		Store:     st,
		Retriever: ret,
		Generator: a.generator,
		Cache:     qc,
		Logger:    logger,
	})
	return a, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// pingers lists the model clients /healthz and status can check.
func (a *app) pingers() map[string]port.Pinger {
	out := map[string]port.Pinger{"embedding": a.embedder}
	if p, ok := a.llm.(port.Pinger); ok {
		out["llm"] = p
	}
	return out
}

func openStore(cfg *config.Config, root string) (port.VectorStore, error) {
	switch cfg.Store.Driver {
	case "memory":
		return memstore.NewMemoryStore(), nil
	case "sqlite":
		if err := cfg.EnsureStateDir(root); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
		return store.OpenSQLite(cfg.StoreDBPath(root))
	case "bolt", "":
		if err := cfg.EnsureStateDir(root); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
		return store.OpenBolt(cfg.StoreDBPath(root))
	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}
}

func buildEmbedder(cfg *config.Config, tok port.Tokenizer) (port.Embedder, error) {
	e := cfg.Embedding
	switch e.Provider {
	case "ollama":
		return embedding.NewOllamaEmbedder(embedding.OllamaConfig{
			BaseURL:   e.BaseURL,
			Model:     e.Model,
			Dimension: e.Dimension,
			Timeout:   cfg.EmbeddingTimeout(),
		}), nil
	case "openai":
		return embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
			BaseURL:   e.BaseURL,
			APIKeyEnv: e.APIKeyEnv,
			Model:     e.Model,
			Dimension: e.Dimension,
			Timeout:   cfg.EmbeddingTimeout(),
		})
	case "hash":
		return embedding.NewHashEmbedder(e.Dimension, tok), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", e.Provider)
	}
}

func buildLLM(cfg *config.Config) (port.LLM, error) {
	l := cfg.LLM
	switch l.Provider {
	case "ollama":
		return llm.NewOllamaClient(llm.OllamaConfig{
			BaseURL:     l.BaseURL,
			Model:       l.Model,
			Temperature: l.Temperature,
			MaxTokens:   l.MaxTokens,
			Timeout:     cfg.LLMTimeout(),
		}), nil
	case "openai":
		return llm.NewOpenAIClient(llm.OpenAIConfig{
			BaseURL:     l.BaseURL,
			APIKeyEnv:   l.APIKeyEnv,
			Model:       l.Model,
			Temperature: l.Temperature,
			MaxTokens:   l.MaxTokens,
			Timeout:     cfg.LLMTimeout(),
		})
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", l.Provider)
	}
}

func buildExtractor(cfg *config.Config) (pdf.Extractor, error) {
	switch cfg.Data.Extractor {
	case "pdftotext":
		if err := pdf.CheckPdftotext(); err != nil {
			return nil, err
		}
		return pdf.NewPdftotextExtractor(), nil
	case "native", "":
		return pdf.NewNativeExtractor(), nil
	default:
		return nil, fmt.Errorf("unknown pdf extractor: %s", cfg.Data.Extractor)
	}
}
