package embedding

import (
	"context"
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"
)

// LocalEmbedder is an offline encoder. Each token maps to a fixed pseudo-random
// vector seeded by its hash, so equal text always embeds identically and texts
// sharing vocabulary land close together.
type LocalEmbedder struct {
	dim       int
	maxTokens int
}

func NewLocalEmbedder(dim, maxTokens int) *LocalEmbedder {
	return &LocalEmbedder{dim: dim, maxTokens: maxTokens}
}

func (e *LocalEmbedder) Dimension() int { return e.dim }

func (e *LocalEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedDocuments encodes the batch padded to its longest member, then pools
// each row under its attention mask.
func (e *LocalEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	batch := make([][]string, len(texts))
	longest := 0
	for i, text := range texts {
		toks := Tokenize(text)
		if e.maxTokens > 0 && len(toks) > e.maxTokens {
			toks = toks[:e.maxTokens]
		}
		batch[i] = toks
		longest = max(longest, len(toks))
	}

	pad := make([]float32, e.dim)
	out := make([][]float32, len(texts))
	for i, toks := range batch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if longest == 0 {
			out[i] = make([]float32, e.dim)
			continue
		}
		hidden := make([][]float32, longest)
		mask := make([]float32, longest)
		for j := range hidden {
			if j < len(toks) {
				hidden[j] = e.tokenVector(toks[j])
				mask[j] = 1
			} else {
				hidden[j] = pad
			}
		}
		out[i] = Normalize(MeanPool(hidden, mask))
	}
	return out, nil
}

func (e *LocalEmbedder) tokenVector(tok string) []float32 {
	seed := xxhash.Sum64String(tok)
	rng := rand.New(rand.NewPCG(seed, seed>>1|1))
	v := make([]float32, e.dim)
	for i := range v {
		v[i] = float32(rng.NormFloat64())
	}
	return v
}
