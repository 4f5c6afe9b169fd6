// Package local provides a deterministic in-process embedder for offline
// runs and tests. Tokens are feature-hashed into a fixed-dimension vector,
// so no corpus preparation or remote provider is needed.
package local

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"docsearch/internal/domain"
)

var _ domain.Embedder = (*Embedder)(nil)

var wordPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

// Embedder hashes word tokens into a fixed number of buckets and
// L2-normalizes the result. Texts sharing vocabulary land close together
// under cosine similarity, which is all the offline store needs.
type Embedder struct {
	dimensions int
}

// NewEmbedder creates a local embedder producing vectors of the given size.
func NewEmbedder(dimensions int) (*Embedder, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be positive, got %d", dimensions)
	}
	return &Embedder{dimensions: dimensions}, nil
}

// Dimensions returns the configured vector size.
func (e *Embedder) Dimensions() int { return e.dimensions }

// Embed maps text to a unit-length vector. Empty or whitespace-only input
// is rejected, matching the remote client's contract.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("embed: %w", domain.ErrInvalidInput)
	}
	vector := make([]float32, e.dimensions)
	tokens := wordPattern.FindAllString(strings.ToLower(text), -1)
	for _, token := range tokens {
		h := fnv.New64a()
		_, _ = h.Write([]byte(token))
		sum := h.Sum64()
		bucket := int(sum % uint64(e.dimensions))
		sign := float32(1)
		if sum&(1<<63) != 0 {
			sign = -1
		}
		vector[bucket] += sign
	}
	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vector {
			vector[i] *= scale
		}
	}
	return vector, nil
}
