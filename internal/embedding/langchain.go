package embedding

import (
	"context"
	"fmt"
	"strings"

	"resume-matcher/internal/config"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangchainEmbedder adapts a langchaingo embedder. Inputs are truncated to the
// token budget and outputs re-normalised.
type LangchainEmbedder struct {
	inner     embeddings.Embedder
	dim       int
	maxTokens int
}

func NewLangchainEmbedder(inner embeddings.Embedder, cfg config.EmbeddingConfig) *LangchainEmbedder {
	return &LangchainEmbedder{inner: inner, dim: cfg.Dimension, maxTokens: cfg.MaxTokens}
}

// NewOllamaEmbedder connects to an Ollama server
func NewOllamaEmbedder(llmConfig *config.LLMConfig, cfg config.EmbeddingConfig) (*LangchainEmbedder, error) {
	log.Debug().Interface("config", map[string]string{
		"base_url":        llmConfig.BaseURL,
		"embedding_model": llmConfig.Model,
	}).Msg("Loaded config")

	llm, err := ollama.New(
		ollama.WithServerURL(llmConfig.BaseURL),
		ollama.WithModel(llmConfig.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ollama: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return NewLangchainEmbedder(embedder, cfg), nil
}

// NewOpenAIEmbedder connects to an OpenAI-compatible endpoint
func NewOpenAIEmbedder(llmConfig *config.LLMConfig, cfg config.EmbeddingConfig) (*LangchainEmbedder, error) {
	log.Debug().Interface("config", map[string]string{
		"base_url":        llmConfig.BaseURL,
		"embedding_model": llmConfig.Model,
	}).Msg("Loaded config")

	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
		openai.WithEmbeddingModel(llmConfig.Model),
	}
	if llmConfig.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize openai: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return NewLangchainEmbedder(embedder, cfg), nil
}

func (e *LangchainEmbedder) Dimension() int { return e.dim }

func (e *LangchainEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	in := make([]string, len(texts))
	for i, t := range texts {
		in[i] = Truncate(t, e.maxTokens)
	}
	vecs, err := e.inner.EmbedDocuments(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("failed to embed documents: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(texts))
	}
	out := make([][]float32, len(vecs))
	for i, v := range vecs {
		if err := checkDimension(v, e.dim); err != nil {
			return nil, err
		}
		out[i] = Normalize(v)
	}
	return out, nil
}

func (e *LangchainEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	v, err := e.inner.EmbedQuery(ctx, Truncate(text, e.maxTokens))
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if err := checkDimension(v, e.dim); err != nil {
		return nil, err
	}
	return Normalize(v), nil
}
