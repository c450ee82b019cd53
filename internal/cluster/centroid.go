// Package cluster aggregates item embeddings per label and uses the
// resulting centroids to snap new items and merge duplicate labels.
package cluster

import (
	"context"
	"strings"

	"github.com/ppiankov/categora/internal/embed"
	"github.com/ppiankov/categora/internal/model"
	"github.com/ppiankov/categora/internal/score"
)

// TextSource yields the (label, text) pairs of a scope in insertion order
type TextSource interface {
	LabelTexts(ctx context.Context, scope string) ([]model.LabelText, error)
}

// Centroids maps labels to the mean embedding of their item texts
type Centroids struct {
	Labels  []string // first-seen order
	Vectors map[string][]float32
}

// Len is the number of labels with a centroid
func (c Centroids) Len() int {
	return len(c.Labels)
}

// Builder computes centroids on demand; nothing is cached between calls
type Builder struct {
	backend *embed.Backend
	source  TextSource
}

func NewBuilder(backend *embed.Backend, source TextSource) *Builder {
	return &Builder{backend: backend, source: source}
}

// Build returns the centroids of every label in scope. An unavailable
// backend yields no centroids and no error; store failures propagate.
func (b *Builder) Build(ctx context.Context, scope string) (Centroids, error) {
	if !b.backend.Available(ctx) {
		return Centroids{Vectors: map[string][]float32{}}, nil
	}
	pairs, err := b.source.LabelTexts(ctx, scope)
	if err != nil {
		return Centroids{}, err
	}
	return b.FromPairs(ctx, pairs), nil
}

// FromPairs aggregates explicit (label, text) pairs. Empty texts are ignored
// and labels left without texts get no centroid.
func (b *Builder) FromPairs(ctx context.Context, pairs []model.LabelText) Centroids {
	out := Centroids{Vectors: map[string][]float32{}}

	var texts []string
	var owners []string
	seen := map[string]bool{}
	for _, p := range pairs {
		text := strings.TrimSpace(p.Text)
		if text == "" {
			continue
		}
		if !seen[p.Label] {
			seen[p.Label] = true
			out.Labels = append(out.Labels, p.Label)
		}
		texts = append(texts, text)
		owners = append(owners, p.Label)
	}
	if len(texts) == 0 {
		return out
	}

	vecs, ok := b.backend.Encode(ctx, texts)
	if !ok {
		return Centroids{Vectors: map[string][]float32{}}
	}

	grouped := make(map[string][][]float32, len(out.Labels))
	for i, label := range owners {
		grouped[label] = append(grouped[label], vecs[i])
	}
	for _, label := range out.Labels {
		out.Vectors[label] = score.Mean(grouped[label])
	}
	return out
}
