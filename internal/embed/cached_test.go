package embed

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/categora/internal/cache"
)

func TestCachedEncoder_ReusesVectors(t *testing.T) {
	var encoded atomic.Int32
	inner := EncoderFunc("m", func(_ context.Context, texts []string) ([][]float32, error) {
		encoded.Add(int32(len(texts)))
		out := make([][]float32, len(texts))
		for i, s := range texts {
			out[i] = []float32{float32(len(s)), 1}
		}
		return out, nil
	})
	store := cache.NewMemoryCache(time.Hour, time.Minute)
	enc := NewCachedEncoder(inner, store, 0)
	ctx := context.Background()

	first, err := enc.Encode(ctx, []string{"gym", "work", "gym"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if encoded.Load() != 2 {
		t.Errorf("encoded %d texts, want 2 (duplicate in batch)", encoded.Load())
	}
	if first[0][0] != 3 || first[2][0] != 3 || first[1][0] != 4 {
		t.Errorf("unexpected vectors %v", first)
	}

	if _, err := enc.Encode(ctx, []string{"work", "health"}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if encoded.Load() != 3 {
		t.Errorf("encoded %d texts, want 3 after cache hit", encoded.Load())
	}
	if store.Len() != 3 {
		t.Errorf("cache holds %d entries, want 3", store.Len())
	}
	if enc.ModelID() != "m" {
		t.Errorf("ModelID = %q", enc.ModelID())
	}
}
