package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pdfrag/internal/domain"
	"pdfrag/internal/metrics"
	"pdfrag/internal/port"
)

// Guarded wraps an embedder with result validation, metrics and logging.
// Every failure it returns wraps domain.ErrEmbedding; a short or misshapen
// result is an error, never padded with zero vectors.
type Guarded struct {
	inner    port.Embedder
	provider string
	logger   *zap.Logger
}

func NewGuarded(inner port.Embedder, provider string, logger *zap.Logger) *Guarded {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guarded{inner: inner, provider: provider, logger: logger}
}

func (g *Guarded) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	start := time.Now()
	vecs, err := g.inner.Embed(ctx, texts)
	if err == nil {
		err = g.validate(texts, vecs)
	}
	metrics.ObserveModelRequest("embed", g.provider, g.inner.ModelName(), err, time.Since(start))

	if err != nil {
		g.logger.Error("Embedding request failed",
			zap.String("provider", g.provider),
			zap.String("model", g.inner.ModelName()),
			zap.Int("inputs", len(texts)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
	}

	g.logger.Debug("Embedded batch",
		zap.Int("inputs", len(texts)),
		zap.Duration("took", time.Since(start)),
	)
	return vecs, nil
}

func (g *Guarded) validate(texts []string, vecs [][]float32) error {
	if len(vecs) != len(texts) {
		return fmt.Errorf("model returned %d vectors for %d inputs", len(vecs), len(texts))
	}
	want := g.inner.Dimension()
	for i, v := range vecs {
		if len(v) != want {
			return fmt.Errorf("%w: vector %d has %d dimensions, expected %d",
				domain.ErrDimensionMismatch, i, len(v), want)
		}
	}
	return nil
}

func (g *Guarded) Dimension() int {
	return g.inner.Dimension()
}

func (g *Guarded) ModelName() string {
	return g.inner.ModelName()
}

// Ping forwards to the wrapped embedder when it can check its backend.
func (g *Guarded) Ping(ctx context.Context) error {
	if p, ok := g.inner.(port.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
