package llmservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"resume-matcher/internal/config"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrDisabled is returned for the "none" provider
var ErrDisabled = errors.New("llm provider disabled")

// New builds the chat model described by llmConfig
func New(llmConfig *config.LLMConfig) (llms.Model, error) {
	log.Debug().Str("provider", llmConfig.Provider).Str("base_url", llmConfig.BaseURL).Str("model", llmConfig.Model).Msg("Creating llm client")
	switch llmConfig.Provider {
	case config.ProviderOpenAI:
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
			openai.WithModel(llmConfig.Model),
		}
		if llmConfig.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai client: %w", err)
		}
		return llm, nil
	case config.ProviderOllama:
		llm, err := ollama.New(
			ollama.WithServerURL(llmConfig.BaseURL),
			ollama.WithModel(llmConfig.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		return llm, nil
	case config.ProviderNone, "":
		return nil, ErrDisabled
	default:
		return nil, fmt.Errorf("unknown llm provider %q", llmConfig.Provider)
	}
}

// GenerateContent calls llm with the configured sampling options and tools
func GenerateContent(ctx context.Context, llm llms.Model, llmConfig *config.LLMConfig, tools []llms.Tool, messages []llms.MessageContent) (*llms.ContentResponse, error) {
	var opts []llms.CallOption
	if llmConfig != nil {
		opts = append(opts, llms.WithTemperature(llmConfig.Temperature))
		if llmConfig.MaxTokens > 0 {
			opts = append(opts, llms.WithMaxTokens(llmConfig.MaxTokens))
		}
	}
	if len(tools) > 0 {
		opts = append(opts, llms.WithTools(tools))
	}

	resp, err := llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("llm returned no choices")
	}
	return resp, nil
}
