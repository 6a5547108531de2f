package embedding

import (
	"context"
	"fmt"

	"resume-matcher/internal/config"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// New builds the embedder named by cfg.EmbedLLM.Provider, wrapped in the Redis
// cache when one is configured.
func New(ctx context.Context, cfg *config.Config) (Embedder, error) {
	var (
		base Embedder
		err  error
	)
	switch cfg.EmbedLLM.Provider {
	case config.ProviderLocal, "":
		base = NewLocalEmbedder(cfg.Embedding.Dimension, cfg.Embedding.MaxTokens)
	case config.ProviderOllama:
		base, err = NewOllamaEmbedder(&cfg.EmbedLLM, cfg.Embedding)
	case config.ProviderOpenAI:
		base, err = NewOpenAIEmbedder(&cfg.EmbedLLM, cfg.Embedding)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbedLLM.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Cache.RedisAddr == "" {
		return base, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.RedisAddr,
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
	})
	namespace := cfg.EmbedLLM.Provider + ":" + cfg.EmbedLLM.Model
	cached, err := NewCachedEmbedder(ctx, base, client, namespace, cfg.Cache.TTL)
	if err != nil {
		log.Warn().Err(err).Str("addr", cfg.Cache.RedisAddr).Msg("Embedding cache disabled")
		_ = client.Close()
		return base, nil
	}
	return cached, nil
}
