package model

import (
	"errors"
	"math"
	"testing"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Thresholds.Semantic != 0.58 || cfg.Thresholds.Fuzzy != 0.88 || cfg.Thresholds.Merge != 0.74 {
		t.Errorf("unexpected default thresholds: %+v", cfg.Thresholds)
	}
	if !cfg.Synonyms.AllowCreate {
		t.Error("synonym creation should default to on")
	}
}

func TestValidateRejectsThresholds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"semantic above one", func(c *Config) { c.Thresholds.Semantic = 1.2 }},
		{"fuzzy negative", func(c *Config) { c.Thresholds.Fuzzy = -0.1 }},
		{"merge NaN", func(c *Config) { c.Thresholds.Merge = math.NaN() }},
		{"assign above one", func(c *Config) { c.Thresholds.Assign = 2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidThreshold) {
				t.Errorf("Validate() = %v, want ErrInvalidThreshold", err)
			}
		})
	}
}

func TestValidateBoundaries(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Thresholds = Thresholds{Semantic: 0, Fuzzy: 1, Merge: 1, Assign: 0}
	if err := cfg.Validate(); err != nil {
		t.Errorf("boundary thresholds rejected: %v", err)
	}
}

func TestValidateProvider(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Embedding.Provider = "word2vec"
	if err := cfg.Validate(); err == nil {
		t.Error("expected unknown provider error")
	}
	cfg.Embedding.Provider = "OpenAI"
	if err := cfg.Validate(); err != nil {
		t.Errorf("provider name should be case-insensitive: %v", err)
	}
}
