package embed

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/categora/internal/cache"
	"github.com/ppiankov/categora/internal/model"
)

// Model names substituted when the configured model is the local default
// and a remote provider is selected.
const (
	defaultOpenAIModel = "text-embedding-3-small"
	defaultOllamaModel = "all-minilm"
)

// NewLoader returns the loader for the configured provider, or nil when
// embeddings are disabled.
func NewLoader(cfg model.EmbeddingConfig) (Loader, error) {
	provider := strings.ToLower(cfg.Provider)
	timeout := time.Duration(cfg.Timeout) * time.Second

	var build Loader
	switch provider {
	case "", "none":
		return nil, nil

	case "onnx":
		build = func(context.Context) (Encoder, error) {
			return NewONNXEncoder(ONNXOptions{
				Model:         cfg.Model,
				LibraryPath:   cfg.ORTLibrary,
				ModelPath:     cfg.ModelPath,
				TokenizerPath: cfg.TokenizerPath,
				MaxSeqLen:     cfg.MaxSeqLen,
			})
		}

	case "openai":
		build = func(context.Context) (Encoder, error) {
			return NewOpenAIEncoder(OpenAIOptions{
				APIKey:     cfg.APIKey,
				BaseURL:    cfg.BaseURL,
				Model:      remoteModel(cfg.Model, defaultOpenAIModel),
				Timeout:    timeout,
				HTTPProxy:  cfg.HTTPProxy,
				HTTPSProxy: cfg.HTTPSProxy,
				NoProxy:    cfg.NoProxy,
				Limiter:    NewLimiter(cfg.RequestsPerSecond, cfg.Burst),
			})
		}

	case "ollama":
		build = func(ctx context.Context) (Encoder, error) {
			enc, err := NewOllamaEncoder(OllamaOptions{
				BaseURL:    cfg.BaseURL,
				Model:      remoteModel(cfg.Model, defaultOllamaModel),
				Timeout:    timeout,
				HTTPProxy:  cfg.HTTPProxy,
				HTTPSProxy: cfg.HTTPSProxy,
				NoProxy:    cfg.NoProxy,
				Limiter:    NewLimiter(cfg.RequestsPerSecond, cfg.Burst),
			})
			if err != nil {
				return nil, err
			}
			if err := enc.Ping(ctx); err != nil {
				return nil, fmt.Errorf("ollama unavailable: %w", err)
			}
			return enc, nil
		}

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: onnx, openai, ollama, none)", cfg.Provider)
	}

	store, ttl, err := vectorCache(cfg)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) (Encoder, error) {
		enc, err := build(ctx)
		if err != nil {
			return nil, err
		}
		return NewCachedEncoder(enc, store, ttl), nil
	}, nil
}

func remoteModel(configured, fallback string) string {
	if configured == "" || configured == model.DefaultModel {
		return fallback
	}
	return configured
}

// vectorCache builds the memory cache, layered over disk when a TTL is set
func vectorCache(cfg model.EmbeddingConfig) (cache.Cache, time.Duration, error) {
	if cfg.CacheTTL == "" {
		return cache.NewMemoryCache(time.Hour, 10*time.Minute), 0, nil
	}
	ttl, err := time.ParseDuration(cfg.CacheTTL)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid embedding.cache_ttl %q: %w", cfg.CacheTTL, err)
	}
	dir := cfg.CacheDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cache.NewMemoryCache(time.Hour, 10*time.Minute), 0, nil
		}
		dir = filepath.Join(home, ".categora", "embeddings")
	}
	return cache.NewLayeredCache(time.Hour, dir, ttl), ttl, nil
}
