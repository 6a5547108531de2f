package embedding

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// CachedEmbedder keeps vectors in Redis keyed by a hash of the text. Redis
// failures are logged and the inner embedder is used directly.
type CachedEmbedder struct {
	inner     Embedder
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

func NewCachedEmbedder(ctx context.Context, inner Embedder, client *redis.Client, namespace string, ttl time.Duration) (*CachedEmbedder, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &CachedEmbedder{inner: inner, client: client, namespace: namespace, ttl: ttl}, nil
}

func (c *CachedEmbedder) Dimension() int { return c.inner.Dimension() }

func (c *CachedEmbedder) Close() error { return c.client.Close() }

func (c *CachedEmbedder) key(text string) string {
	return "emb:" + c.namespace + ":" + strconv.Itoa(c.inner.Dimension()) + ":" +
		strconv.FormatUint(xxhash.Sum64String(text), 16)
}

func (c *CachedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *CachedEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = c.key(t)
	}

	out := make([][]float32, len(texts))
	cached, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		log.Warn().Err(err).Msg("Embedding cache read failed")
		cached = nil
	}

	var missIdx []int
	var missTexts []string
	for i := range texts {
		if i < len(cached) {
			if s, ok := cached[i].(string); ok {
				if v, ok := decodeVector(s, c.inner.Dimension()); ok {
					out[i] = v
					continue
				}
			}
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, texts[i])
	}
	log.Debug().Int("hits", len(texts)-len(missIdx)).Int("misses", len(missIdx)).Msg("Embedding cache lookup")
	if len(missIdx) == 0 {
		return out, nil
	}

	fresh, err := c.inner.EmbedDocuments(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	pipe := c.client.Pipeline()
	for j, i := range missIdx {
		out[i] = fresh[j]
		pipe.Set(ctx, keys[i], encodeVector(fresh[j]), c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warn().Err(err).Msg("Embedding cache write failed")
	}
	return out, nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(s string, dim int) ([]float32, bool) {
	if len(s) != 4*dim {
		return nil, false
	}
	b := []byte(s)
	v := make([]float32, dim)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, true
}
