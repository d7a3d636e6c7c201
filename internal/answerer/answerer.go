// Package answerer builds the grounded prompt from retrieved chunks and asks the model.
package answerer

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/retriever"
)

// NoContextText is the reply given when nothing relevant was retrieved.
const NoContextText = "No relevant context found."

// ContextDelimiter separates chunk texts inside the prompt.
const ContextDelimiter = "\n\n---\n\n"

const promptText = `
Answer the question based only on the following context:

{{.Context}}

---

Answer the question based on the above context: {{.Question}}
`

var promptTemplate = template.Must(template.New("prompt").Parse(promptText))

type promptData struct {
	Context  string
	Question string
}

// BuildPrompt joins the result texts in order and fills the prompt template.
func BuildPrompt(query string, results []models.RetrievalResult) (string, error) {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Content
	}
	var b strings.Builder
	if err := promptTemplate.Execute(&b, promptData{
		Context:  strings.Join(texts, ContextDelimiter),
		Question: query,
	}); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return b.String(), nil
}

// NoContext returns the fixed answer for a query without relevant context.
func NoContext(query string) *models.Answer {
	return &models.Answer{Query: query, Text: NoContextText, Sources: []models.SourceRef{}, NoContext: true}
}

// Answerer asks a Generator to answer from retrieved context.
type Answerer struct {
	generator llm.Generator
	logger    *zap.Logger
}

// Option configures an Answerer.
type Option func(*Answerer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Answerer) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an answerer.
func New(generator llm.Generator, opts ...Option) *Answerer {
	a := &Answerer{generator: generator, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Answer makes one model call with results as context and returns the reply verbatim.
// With no results it returns NoContext without calling the model.
func (a *Answerer) Answer(ctx context.Context, query string, results []models.RetrievalResult) (*models.Answer, error) {
	if len(results) == 0 {
		return NoContext(query), nil
	}
	prompt, err := BuildPrompt(query, results)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("prompting model", zap.Int("context_chunks", len(results)), zap.Int("prompt_chars", len(prompt)))
	reply, err := a.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	return &models.Answer{
		Query:   query,
		Text:    reply,
		Sources: retriever.Sources(results),
	}, nil
}
