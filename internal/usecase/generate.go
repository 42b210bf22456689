package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"pdfrag/internal/adapter/prompt"
	"pdfrag/internal/domain"
	"pdfrag/internal/metrics"
	"pdfrag/internal/port"
)

// EmptyContextPolicy decides what happens when retrieval finds nothing.
type EmptyContextPolicy string

const (
	// PolicyNotFound answers with domain.NoContextAnswer without calling the model.
	PolicyNotFound EmptyContextPolicy = "not_found"
	// PolicyGeneralKnowledge lets the model answer, labelled as general knowledge.
	PolicyGeneralKnowledge EmptyContextPolicy = "general_knowledge"
)

// Answer is a generated reply and the chunk ids it was grounded on.
type Answer struct {
	Text       string
	Sources    []string
	UsedTokens int
}

// Generator turns retrieved passages into an answer.
type Generator struct {
	llm      port.LLM
	provider string
	prompts  *prompt.Builder
	policy   EmptyContextPolicy
	logger   *zap.Logger
}

func NewGenerator(llm port.LLM, provider string, prompts *prompt.Builder, policy EmptyContextPolicy, logger *zap.Logger) *Generator {
	if policy == "" {
		policy = PolicyNotFound
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{llm: llm, provider: provider, prompts: prompts, policy: policy, logger: logger}
}

// Answer generates a reply to question from results. When the model fails,
// the returned Answer carries domain.GenerationFallbackAnswer and the error
// wraps domain.ErrGeneration.
func (g *Generator) Answer(ctx context.Context, question string, results []domain.ScoredChunk) (Answer, error) {
	var (
		p   prompt.Prompt
		err error
	)
	if len(results) == 0 {
		if g.policy == PolicyNotFound {
			return Answer{Text: domain.NoContextAnswer}, nil
		}
		p, err = g.prompts.BuildNoContext(question)
	} else {
		p, err = g.prompts.Build(question, results)
	}
	if err != nil {
		return Answer{Text: domain.GenerationFallbackAnswer}, fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}

	answer := Answer{Sources: p.Sources(), UsedTokens: p.UsedTokens}

	start := time.Now()
	text, err := g.llm.Generate(ctx, p.Text)
	if err == nil && strings.TrimSpace(text) == "" {
		err = fmt.Errorf("model returned an empty completion")
	}
	metrics.ObserveModelRequest("generate", g.provider, g.llm.ModelName(), err, time.Since(start))

	if err != nil {
		g.logger.Error("Generation failed",
			zap.String("provider", g.provider),
			zap.String("model", g.llm.ModelName()),
			zap.Int("passages", len(p.Used)),
			zap.Error(err),
		)
		answer.Text = domain.GenerationFallbackAnswer
		return answer, fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}

	g.logger.Debug("Generated answer",
		zap.Int("passages", len(p.Used)),
		zap.Int("prompt_tokens", p.UsedTokens),
		zap.Duration("took", time.Since(start)),
	)
	answer.Text = strings.TrimSpace(text)
	return answer, nil
}

// Prompt renders the prompt that Answer would send, without calling the model.
func (g *Generator) Prompt(question string, results []domain.ScoredChunk) (prompt.Prompt, error) {
	if len(results) == 0 {
		return g.prompts.BuildNoContext(question)
	}
	return g.prompts.Build(question, results)
}
