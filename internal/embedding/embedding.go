// Package embedding maps text to unit-length dense vectors. Every embedder
// mean-pools token vectors under the attention mask and L2-normalises the
// result, so build-time and query-time vectors are comparable.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode"
)

var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

const maskEpsilon = 1e-9

type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// MeanPool averages the token vectors weighted by mask. An all-zero mask
// yields the zero vector.
func MeanPool(tokens [][]float32, mask []float32) []float32 {
	if len(tokens) == 0 {
		return nil
	}
	sum := make([]float64, len(tokens[0]))
	var weight float64
	for i, tok := range tokens {
		m := float64(mask[i])
		if m == 0 {
			continue
		}
		weight += m
		for j, v := range tok {
			sum[j] += m * float64(v)
		}
	}
	weight = math.Max(weight, maskEpsilon)

	out := make([]float32, len(sum))
	for j := range sum {
		out[j] = float32(sum[j] / weight)
	}
	return out
}

// Normalize returns an L2-normalised copy of v. A zero vector is returned as is.
func Normalize(v []float32) []float32 {
	var sq float64
	for _, x := range v {
		sq += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	copy(out, v)
	if sq == 0 {
		return out
	}
	norm := math.Sqrt(sq)
	for i := range out {
		out[i] = float32(float64(out[i]) / norm)
	}
	return out
}

// Tokenize lower-cases text and splits it into letter/digit runs
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
}

// Truncate keeps at most maxTokens whitespace-separated words of text
func Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}
	words := strings.Fields(text)
	if len(words) <= maxTokens {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:maxTokens], " ")
}

func checkDimension(v []float32, dim int) error {
	if dim > 0 && len(v) != dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(v), dim)
	}
	return nil
}
