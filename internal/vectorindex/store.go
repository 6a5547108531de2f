// Package vectorindex holds the positional vector store used for matching.
// Position i of the vectors always pairs with entry i of the metadata; both
// grow only by appending together.
package vectorindex

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"resume-matcher/internal/models"
)

var (
	ErrLengthMismatch    = errors.New("vectors and entries differ in length")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Store is an append-only vector index with exact inner-product search
type Store interface {
	Add(ctx context.Context, vectors [][]float32, entries []models.IndexEntry) error
	Search(ctx context.Context, query []float32, k int) ([]models.Hit, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// Persister is implemented by stores that keep state outside the process
type Persister interface {
	Persist(ctx context.Context) error
}

// Resetter is implemented by stores that can drop all their records
type Resetter interface {
	Reset(ctx context.Context) error
}

// ValidateBatch checks an Add call before anything is written
func ValidateBatch(vectors [][]float32, entries []models.IndexEntry, dim int) error {
	if len(vectors) != len(entries) {
		return fmt.Errorf("%w: %d vectors, %d entries", ErrLengthMismatch, len(vectors), len(entries))
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has %d values, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
	}
	return nil
}

// SortHits orders hits by score, highest first, breaking ties by position
func SortHits(hits []models.Hit) {
	slices.SortStableFunc(hits, func(a, b models.Hit) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Position, b.Position)
	})
}

// Dot is the inner product of two equal-length vectors
func Dot(a, b []float32) float32 {
	var s float32
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
