package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"pdfrag/internal/adapter/retry"
	"pdfrag/internal/domain"
)

// OpenAIEmbedder talks to any OpenAI-compatible embeddings endpoint
// (OpenAI itself, llama.cpp server, LM Studio, vLLM, Ollama's /v1).
type OpenAIEmbedder struct {
	client    *openai.Client
	model     openai.EmbeddingModel
	dimension int
}

type OpenAIConfig struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Dimension int
	Timeout   time.Duration
}

func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	apiKey, err := apiKeyFromEnv(cfg.APIKeyEnv)
	if err != nil {
		return nil, err
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	dimension := cfg.Dimension
	if dimension <= 0 {
		dimension = KnownDimension(cfg.Model)
	}

	return &OpenAIEmbedder{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     openai.EmbeddingModel(cfg.Model),
		dimension: dimension,
	}, nil
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}

	var resp openai.EmbeddingResponse
	err := retry.Once(ctx, func() error {
		var err error
		resp, err = e.client.CreateEmbeddings(ctx, req)
		return err
	})
	if err != nil {
		return nil, parseAPIError(err)
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index >= 0 && d.Index < len(out) {
			out[d.Index] = d.Embedding
		}
	}
	for i, v := range out {
		if v == nil {
			return nil, fmt.Errorf("response is missing the embedding for input %d", i)
		}
	}
	return out, nil
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

func (e *OpenAIEmbedder) ModelName() string {
	return string(e.model)
}

// Ping lists models, which every compatible server exposes for free.
func (e *OpenAIEmbedder) Ping(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("%w: list models: %w", domain.ErrModelUnavailable, err)
	}
	return nil
}

// apiKeyFromEnv reads the key from the named variable. Local servers ignore
// the key, so an unset name yields a placeholder.
func apiKeyFromEnv(name string) (string, error) {
	if name == "" {
		return "local", nil
	}
	key := os.Getenv(name)
	if key == "" {
		return "", fmt.Errorf("API key not found in environment variable: %s", name)
	}
	return key, nil
}

// parseAPIError turns go-openai errors into readable messages.
func parseAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding API error %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("embedding API error %d: %s", reqErr.HTTPStatusCode, preview(reqErr.Body))
	}

	if retry.IsTransient(err) {
		return fmt.Errorf("%w: %w", domain.ErrModelUnavailable, err)
	}
	return fmt.Errorf("embedding request failed: %w", err)
}
