package cluster

import (
	"context"
	"strings"

	"github.com/ppiankov/categora/internal/score"
)

// Assignment is a confident nearest-centroid match
type Assignment struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Nearest returns the label whose centroid best matches text, if the match
// reaches threshold. No backend, no labels or an empty text all give ok=false.
func (b *Builder) Nearest(ctx context.Context, text, scope string, threshold float64) (Assignment, bool, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Assignment{}, false, nil
	}
	centroids, err := b.Build(ctx, scope)
	if err != nil {
		return Assignment{}, false, err
	}
	a, ok := b.NearestIn(ctx, text, centroids, threshold)
	return a, ok, nil
}

// NearestIn scores text against precomputed centroids
func (b *Builder) NearestIn(ctx context.Context, text string, centroids Centroids, threshold float64) (Assignment, bool) {
	if centroids.Len() == 0 {
		return Assignment{}, false
	}
	vecs, ok := b.backend.Encode(ctx, []string{text})
	if !ok {
		return Assignment{}, false
	}

	var best Assignment
	found := false
	for _, label := range centroids.Labels {
		s := score.Semantic(vecs[0], centroids.Vectors[label])
		if !found || s > best.Score {
			best = Assignment{Label: label, Score: s}
			found = true
		}
	}
	if !found || best.Score < threshold {
		return best, false
	}
	return best, true
}
