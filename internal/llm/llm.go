// Package llm sends prompts to an OpenAI-compatible chat completion endpoint.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
)

// ErrEmptyResponse is returned when the model replies without any choices.
var ErrEmptyResponse = errors.New("model returned no choices")

// Generator turns a prompt into a reply.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// OpenAIGenerator sends one user message per call. Requests are not retried.
type OpenAIGenerator struct {
	client      openai.Client
	model       string
	temperature float64
	timeout     time.Duration
	logger      *zap.Logger
}

// Option configures an OpenAIGenerator.
type Option func(*OpenAIGenerator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *OpenAIGenerator) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewOpenAIGenerator creates a generator from cfg.
func NewOpenAIGenerator(cfg config.LLMConfig, opts ...Option) *OpenAIGenerator {
	g := &OpenAIGenerator{
		client: openai.NewClient(
			option.WithBaseURL(cfg.BaseURL),
			option.WithAPIKey(cfg.APIKey),
			option.WithMaxRetries(0),
		),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Model returns the model name.
func (g *OpenAIGenerator) Model() string {
	return g.model
}

// Generate returns the content of the first choice, verbatim.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
	}
	if g.temperature > 0 {
		params.Temperature = openai.Float(g.temperature)
	}

	start := time.Now()
	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion with %s: %w", g.model, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	g.logger.Debug("chat completion",
		zap.String("model", g.model),
		zap.Int("prompt_chars", len(prompt)),
		zap.Duration("duration", time.Since(start)))
	return resp.Choices[0].Message.Content, nil
}
