// Package prompt renders the generation prompt from embedded templates,
// packing retrieved passages under a token budget.
package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"pdfrag/internal/domain"
	"pdfrag/internal/port"
)

//go:embed templates/*.tmpl
var templates embed.FS

// PassageSeparator sits between context passages.
const PassageSeparator = "\n\n---\n\n"

const (
	answerTemplate    = "answer.tmpl"
	noContextTemplate = "no_context.tmpl"
)

// Prompt is a rendered prompt plus the passages that made it in.
type Prompt struct {
	Text       string
	Used       []domain.ScoredChunk
	UsedTokens int
}

// Sources returns the ids of the passages used as context.
func (p Prompt) Sources() []string {
	return domain.ChunkIDs(p.Used)
}

type templateData struct {
	Context  string
	Question string
}

type Builder struct {
	tmpl      *template.Template
	tokenizer port.Tokenizer
	budget    int
}

// NewBuilder parses the embedded templates. budget <= 0 disables packing limits.
func NewBuilder(tokenizer port.Tokenizer, budget int) (*Builder, error) {
	tmpl, err := template.ParseFS(templates, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse prompt templates: %w", err)
	}
	return &Builder{tmpl: tmpl, tokenizer: tokenizer, budget: budget}, nil
}

// Build renders the answer prompt for question over results, which must be in rank order.
func (b *Builder) Build(question string, results []domain.ScoredChunk) (Prompt, error) {
	used, tokens := b.pack(results)

	texts := make([]string, len(used))
	for i, r := range used {
		texts[i] = r.Chunk.Text
	}

	text, err := b.render(answerTemplate, templateData{
		Context:  strings.Join(texts, PassageSeparator),
		Question: question,
	})
	if err != nil {
		return Prompt{}, err
	}
	return Prompt{Text: text, Used: used, UsedTokens: tokens}, nil
}

// BuildNoContext renders the general-knowledge prompt used when nothing was retrieved.
func (b *Builder) BuildNoContext(question string) (Prompt, error) {
	text, err := b.render(noContextTemplate, templateData{Question: question})
	if err != nil {
		return Prompt{}, err
	}
	return Prompt{Text: text}, nil
}

// pack walks results in rank order and keeps every passage that still fits
// the budget. The top passage is always kept, even when it alone exceeds it.
func (b *Builder) pack(results []domain.ScoredChunk) ([]domain.ScoredChunk, int) {
	if len(results) == 0 {
		return nil, 0
	}

	sepTokens := b.tokenizer.CountTokens(PassageSeparator)
	used := make([]domain.ScoredChunk, 0, len(results))
	total := 0

	for i, r := range results {
		cost := b.tokenizer.CountTokens(r.Chunk.Text)
		if len(used) > 0 {
			cost += sepTokens
		}
		if i > 0 && b.budget > 0 && total+cost > b.budget {
			continue
		}
		used = append(used, r)
		total += cost
	}

	return used, total
}

func (b *Builder) render(name string, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := b.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
