package embed

import (
	"context"
	"fmt"
	"time"

	"github.com/ppiankov/categora/internal/cache"
)

// CachedEncoder serves repeated texts from a cache keyed by model and text
type CachedEncoder struct {
	inner Encoder
	store cache.Cache
	ttl   time.Duration
}

// NewCachedEncoder wraps inner. A zero ttl uses the cache's default.
func NewCachedEncoder(inner Encoder, store cache.Cache, ttl time.Duration) *CachedEncoder {
	return &CachedEncoder{inner: inner, store: store, ttl: ttl}
}

func (c *CachedEncoder) ModelID() string {
	return c.inner.ModelID()
}

func (c *CachedEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	model := c.inner.ModelID()

	// duplicates inside one batch are encoded once
	missIdx := make(map[string][]int)
	var missing []string
	for i, text := range texts {
		if data, ok := c.store.Get(cache.VectorKey(model, text)); ok {
			if vec, err := cache.DecodeVector(data); err == nil && len(vec) > 0 {
				out[i] = vec
				continue
			}
		}
		if _, seen := missIdx[text]; !seen {
			missing = append(missing, text)
		}
		missIdx[text] = append(missIdx[text], i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	fresh, err := c.inner.Encode(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missing) {
		return nil, fmt.Errorf("encoder returned %d vectors for %d texts", len(fresh), len(missing))
	}
	for j, text := range missing {
		vec := fresh[j]
		for _, i := range missIdx[text] {
			out[i] = vec
		}
		// a cache write failure only costs a re-encode later
		_ = c.store.Set(cache.VectorKey(model, text), cache.EncodeVector(vec), c.ttl)
	}
	return out, nil
}

func (c *CachedEncoder) Close() error {
	if cl, ok := c.inner.(closer); ok {
		return cl.Close()
	}
	return nil
}
